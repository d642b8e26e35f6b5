package client

import (
	"fmt"
	"net/http"
	"strings"
)

// Verb is one of the HTTP methods the search server API is built on.
type Verb int

const (
	Head Verb = iota + 1
	Get
	Put
	Post
	Delete
)

// ParseVerb maps an HTTP method name, case-insensitively, to a Verb.
func ParseVerb(method string) (Verb, error) {
	switch strings.ToUpper(method) {
	case http.MethodHead:
		return Head, nil
	case http.MethodGet:
		return Get, nil
	case http.MethodPut:
		return Put, nil
	case http.MethodPost:
		return Post, nil
	case http.MethodDelete:
		return Delete, nil
	}

	return 0, fmt.Errorf("%w: unsupported verb %q", ErrInvalidArgument, method)
}

func (v Verb) String() string {
	switch v {
	case Head:
		return http.MethodHead
	case Get:
		return http.MethodGet
	case Put:
		return http.MethodPut
	case Post:
		return http.MethodPost
	case Delete:
		return http.MethodDelete
	}

	return fmt.Sprintf("Verb(%d)", int(v))
}

// payload decides what body goes on the wire for the verb. HEAD never
// sends one, GET and DELETE only when supplied, PUT and POST always
// send one even when empty.
func (v Verb) payload(body []byte) ([]byte, error) {
	switch v {
	case Head:
		return nil, nil
	case Get, Delete:
		return body, nil
	case Put, Post:
		if body == nil {
			return []byte{}, nil
		}
		return body, nil
	}

	return nil, fmt.Errorf("%w: unsupported verb %s", ErrInvalidArgument, v)
}
