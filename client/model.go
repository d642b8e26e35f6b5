package client

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"time"
)

// Call describes one outbound request as it reaches the transport.
// Middleware may read it and may add headers, but must not retain it
// past the call.
type Call struct {
	Verb Verb
	// Path is the expanded request path, query string included.
	Path string
	URL  *url.URL
	Body []byte
	// Params are the caller's parameters after reserved keys were lifted out.
	Params Params
	// Action labels the request for instrumentation, e.g. "cluster.available".
	Action  string
	Header  http.Header
	Timeout time.Duration
}

// Handler performs a Call and returns the raw, unclassified response.
type Handler func(ctx context.Context, call *Call) (*Response, error)

// Middleware wraps a Handler with additional behaviour such as logging
// or tracing.
type Middleware func(next Handler) Handler

// wrap middleware around the handler; the first middleware runs outermost.
func wrap(mw []Middleware, handler Handler) Handler {
	for _, mwFn := range slices.Backward(mw) {
		if mwFn != nil {
			handler = mwFn(handler)
		}
	}

	return handler
}
