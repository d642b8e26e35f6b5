package client

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for programmer errors such as an
	// unsupported verb or a missing required parameter. It is raised before
	// any network activity.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMalformedTemplate is wrapped when a path template cannot be parsed.
	ErrMalformedTemplate = errors.New("malformed path template")
	// ErrTimeout is the sentinel error wrapped by [TimeoutError].
	ErrTimeout = errors.New("request timed out")
	// ErrResponse is the sentinel error wrapped by [ResponseError].
	ErrResponse = errors.New("error response")
	// ErrRequestSize is the sentinel error wrapped by [RequestSizeError].
	ErrRequestSize = errors.New("request body too large")
	// ErrNoResponse is returned when a transport or middleware yields
	// neither a response nor an error.
	ErrNoResponse = errors.New("no response")
	// ErrUnknownAdapter is returned by [Build] when the adapter name is not registered.
	ErrUnknownAdapter = errors.New("unknown adapter")
)

// ResponseError is returned when the server signals a failure: a 5XX
// status or a JSON object body carrying a truthy "error" field.
// The full response is kept for inspection.
type ResponseError struct {
	Response *Response
	Err      error
}

func (e *ResponseError) Error() string {
	if reason := e.Reason(); reason != "" {
		return fmt.Sprintf("%v: %d, reason: %s", e.Err, e.Response.StatusCode, reason)
	}

	return fmt.Sprintf("%v: %d", e.Err, e.Response.StatusCode)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

// StatusCode is a shortcut for e.Response.StatusCode.
func (e *ResponseError) StatusCode() int {
	return e.Response.StatusCode
}

// Type returns the server's error type, e.g. "index_not_found_exception".
// It is empty when the body carries no structured error.
func (e *ResponseError) Type() string {
	return e.Response.Get("error.type").String()
}

// Reason returns the server's description of the failure. A plain string
// "error" field is returned as is.
func (e *ResponseError) Reason() string {
	errField := e.Response.Get("error")
	if !errField.Exists() {
		return ""
	}
	if errField.IsObject() {
		return errField.Get("reason").String()
	}

	return errField.String()
}

// TimeoutError is returned when the transport gives up waiting on the
// server. It carries the expanded request path for diagnostics.
type TimeoutError struct {
	Path  string
	Cause error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrTimeout, e.Path, e.Cause)
}

// Unwrap exposes both [ErrTimeout] and the underlying transport error.
func (e *TimeoutError) Unwrap() []error {
	return []error{ErrTimeout, e.Cause}
}

// RequestSizeError is returned when the encoded body exceeds the limit
// configured with [WithMaxRequestSize].
type RequestSizeError struct {
	Size  int
	Limit int
}

func (e *RequestSizeError) Error() string {
	return fmt.Sprintf("%v: %d bytes exceeds limit of %d", ErrRequestSize, e.Size, e.Limit)
}

func (e *RequestSizeError) Unwrap() error {
	return ErrRequestSize
}
