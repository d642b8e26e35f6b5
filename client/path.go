package client

import (
	"fmt"
	"maps"
	"net/url"
	"reflect"
	"slices"
	"strings"

	"github.com/yosida95/uritemplate/v3"
)

// Params holds the path expansions and query parameters of a request.
// A nil value is treated as if the key were absent.
type Params map[string]any

// Reserved parameter names. They carry pipeline-level meaning and never
// become part of the URL.
const (
	ParamBody        = "body"
	ParamReadTimeout = "read_timeout"
	ParamAction      = "action"
)

// ExpandPath expands an RFC 6570 path template such as "/{index}/_doc{/id}"
// with params. Parameters declared by the template are substituted in
// place and a declared segment with no value is dropped along with its
// separator. All other parameters are appended as a query string, sorted
// by key. List values are comma-joined.
//
// The "action" parameter is a label and is always discarded.
func ExpandPath(template string, params Params) (string, error) {
	tmpl, err := uritemplate.New(template)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrMalformedTemplate, template, err)
	}

	rest := make(Params, len(params))
	for k, v := range params {
		if k == ParamAction || v == nil {
			continue
		}
		rest[k] = v
	}

	vars := uritemplate.Values{}
	for _, name := range tmpl.Varnames() {
		v, ok := rest[name]
		if !ok {
			continue
		}
		delete(rest, name)

		vals := formatValues(v)
		if isList(v) {
			vars.Set(name, uritemplate.List(vals...))
			continue
		}
		vars.Set(name, uritemplate.String(vals[0]))
	}

	path, err := tmpl.Expand(vars)
	if err != nil {
		return "", fmt.Errorf("%w: expanding %q: %w", ErrMalformedTemplate, template, err)
	}

	if len(rest) == 0 {
		return path, nil
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	return path + sep + encodeQuery(rest), nil
}

// AssertParamPresence returns an error naming the first of names that is
// missing from params or holds an empty value.
func AssertParamPresence(params Params, names ...string) error {
	for _, name := range names {
		v, ok := params[name]
		if !ok || v == nil {
			return fmt.Errorf("%w: %q parameter is required", ErrInvalidArgument, name)
		}

		vals := formatValues(v)
		if len(vals) == 0 || strings.TrimSpace(strings.Join(vals, "")) == "" {
			return fmt.Errorf("%w: %q parameter must not be empty", ErrInvalidArgument, name)
		}
	}

	return nil
}

func encodeQuery(params Params) string {
	var b strings.Builder
	for i, k := range slices.Sorted(maps.Keys(params)) {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(queryEscape(k))
		b.WriteByte('=')

		vals := formatValues(params[k])
		for j, v := range vals {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(queryEscape(v))
		}
	}

	return b.String()
}

// queryEscape escapes s for a query component, encoding spaces as %20.
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func isList(v any) bool {
	if _, ok := v.([]byte); ok {
		return false
	}
	k := reflect.ValueOf(v).Kind()

	return k == reflect.Slice || k == reflect.Array
}

func formatValues(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []byte:
		return []string{string(val)}
	}

	if !isList(v) {
		return []string{formatScalar(v)}
	}

	rv := reflect.ValueOf(v)
	out := make([]string, 0, rv.Len())
	for i := range rv.Len() {
		out = append(out, formatScalar(rv.Index(i).Interface()))
	}

	return out
}

func formatScalar(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
