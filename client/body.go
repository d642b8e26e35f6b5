package client

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	contentTypeJSON   = "application/json"
	contentTypeNDJSON = "application/x-ndjson"
)

// encodeBody turns a request body into bytes and reports its content
// type. Raw strings and bytes pass through untouched. Slices are bulk
// payloads: each item becomes one line and the payload ends with a newline.
func encodeBody(body any) ([]byte, string, error) {
	var items []any
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return []byte(b), contentTypeJSON, nil
	case []byte:
		return b, contentTypeJSON, nil
	case json.RawMessage:
		return b, contentTypeJSON, nil
	case []string:
		for _, s := range b {
			items = append(items, s)
		}
	case []map[string]any:
		for _, m := range b {
			items = append(items, m)
		}
	case []any:
		items = b
	default:
		out, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("encoding request body: %w", err)
		}
		return out, contentTypeJSON, nil
	}

	out, err := encodeBulk(items)
	if err != nil {
		return nil, "", err
	}

	return out, contentTypeNDJSON, nil
}

func encodeBulk(items []any) ([]byte, error) {
	if len(items) == 0 {
		return []byte{}, nil
	}

	var buf bytes.Buffer
	for i, item := range items {
		var line []byte
		switch it := item.(type) {
		case string:
			line = []byte(it)
		case []byte:
			line = it
		case json.RawMessage:
			line = it
		default:
			b, err := json.Marshal(it)
			if err != nil {
				return nil, fmt.Errorf("encoding bulk item %d: %w", i, err)
			}
			line = b
		}
		buf.Write(bytes.TrimRight(line, "\n"))
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}
