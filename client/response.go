package client

import (
	"bytes"
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Response is a completed server response. Body holds the decoded JSON
// value (map[string]any, []any, string, json.Number, bool) when the server
// declared a JSON content type, the raw text otherwise, or nil when the
// body was empty.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       any
	Raw        []byte
}

// Get runs a gjson path query against the raw response body.
func (r *Response) Get(path string) gjson.Result {
	if r == nil || len(r.Raw) == 0 {
		return gjson.Result{}
	}

	return gjson.GetBytes(r.Raw, path)
}

// Map returns the body as a JSON object, if it is one.
func (r *Response) Map() (map[string]any, bool) {
	if r == nil {
		return nil, false
	}
	m, ok := r.Body.(map[string]any)

	return m, ok
}

// NewResponse builds a Response from the raw parts returned by a
// transport, decoding the body according to its content type. A body
// labeled JSON that does not parse is kept as a string, so proxies
// answering with HTML still reach [Classify].
func NewResponse(status int, header http.Header, raw []byte) (*Response, error) {
	if header == nil {
		header = http.Header{}
	}

	resp := Response{
		StatusCode: status,
		Header:     header,
		Raw:        raw,
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return &resp, nil
	}

	if !isJSON(header.Get("Content-Type")) {
		resp.Body = string(raw)
		return &resp, nil
	}

	var body any
	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()
	if err := d.Decode(&body); err != nil {
		resp.Body = string(raw)
		return &resp, nil
	}
	resp.Body = body

	return &resp, nil
}

// Classify decides whether resp represents success. A status of 500 or
// above, or a JSON object body with a truthy "error" field, is a
// [ResponseError]. Everything else, 4XX responses without an "error"
// field included, is returned unchanged.
func Classify(resp *Response) (*Response, error) {
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &ResponseError{Response: resp, Err: ErrResponse}
	}

	if m, ok := resp.Map(); ok && truthy(m["error"]) {
		return nil, &ResponseError{Response: resp, Err: ErrResponse}
	}

	return resp, nil
}

// truthy reports whether a decoded JSON value counts as set. Only null
// and false do not.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	}

	return true
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
