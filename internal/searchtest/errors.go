package searchtest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Error is a server-side failure rendered in the search server's error body shape.
type Error struct {
	Status int
	Type   string
	Reason string
}

// NewError constructs an Error with a formatted reason.
func NewError(status int, typ, format string, args ...any) *Error {
	return &Error{
		Status: status,
		Type:   typ,
		Reason: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Type, e.Reason)
}

type errorBody struct {
	Error  errorCause `json:"error"`
	Status int        `json:"status"`
}

type errorCause struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// errors handles errors coming out of the call chain.
func (s *Server) errors(handler Handler) Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		err := handler(ctx, w, r)
		if err == nil {
			return nil
		}

		appErr, ok := errors.AsType[*Error](err)
		if !ok {
			s.logger.Error("searchtest", "path", r.URL.Path, "error", err)
			appErr = &Error{Status: http.StatusInternalServerError, Type: "exception", Reason: err.Error()}
		}

		body := errorBody{
			Error:  errorCause{Type: appErr.Type, Reason: appErr.Reason},
			Status: appErr.Status,
		}

		return respondJSON(w, appErr.Status, body)
	}
}

// record keeps a copy of every inbound request.
func (s *Server) record(handler Handler) Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return fmt.Errorf("reading body: %w", err)
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:      r.Method,
			Path:        r.URL.Path,
			RawQuery:    r.URL.RawQuery,
			ContentType: r.Header.Get("Content-Type"),
			OpaqueID:    r.Header.Get("X-Opaque-Id"),
			Body:        body,
		})
		s.mu.Unlock()

		return handler(ctx, w, r)
	}
}

func (s *Server) delay(handler Handler) Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if s.latency <= 0 {
			return handler(ctx, w, r)
		}

		select {
		case <-time.After(s.latency):
			return handler(ctx, w, r)
		case <-ctx.Done():
			return nil
		}
	}
}
