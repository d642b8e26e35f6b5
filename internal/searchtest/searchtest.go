// Package searchtest provides an in-memory search server that speaks enough
// of the REST dialect to exercise the client end to end.
package searchtest

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"
)

// Handler is a http.Handler that returns an error.
type Handler func(ctx context.Context, w http.ResponseWriter, r *http.Request) error

// Middleware defines a signature to chain Handler together.
type Middleware func(handler Handler) Handler

// Request is a recorded inbound request.
type Request struct {
	Method      string
	Path        string
	RawQuery    string
	ContentType string
	OpaqueID    string
	Body        []byte
}

// Server is a running in-memory search server.
type Server struct {
	*httptest.Server

	mux     *http.ServeMux
	mw      []Middleware
	logger  *slog.Logger
	version string
	latency time.Duration

	mu       sync.RWMutex
	indices  map[string]index
	requests []Request
}

type index map[string][]byte

// Option configures a Server.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	mw      []Middleware
	version string
	latency time.Duration
}

// WithLogger sets the logger used for handler failures. Default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = log
	}
}

// WithMiddleware appends handler middleware, run in the order given.
func WithMiddleware(mw ...Middleware) Option {
	return func(opts *options) {
		opts.mw = append(opts.mw, mw...)
	}
}

// WithVersion sets the version number reported by the info endpoint.
func WithVersion(version string) Option {
	return func(opts *options) {
		opts.version = version
	}
}

// WithLatency delays every response by d, or until the request is abandoned.
func WithLatency(d time.Duration) Option {
	return func(opts *options) {
		opts.latency = d
	}
}

// New starts a Server that is closed when the test finishes.
func New(t testing.TB, optFns ...Option) *Server {
	t.Helper()

	opts := options{version: "8.15.0"}
	for _, opt := range optFns {
		opt(&opts)
	}
	if opts.logger == nil {
		opts.logger = slog.Default()
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  opts.logger,
		version: opts.version,
		latency: opts.latency,
		indices: make(map[string]index),
	}
	s.mw = append([]Middleware{s.record, s.delay, s.errors}, opts.mw...)
	s.routes()

	s.Server = httptest.NewServer(s.mux)
	t.Cleanup(s.Close)

	return s
}

// Requests returns a copy of every request served so far.
func (s *Server) Requests() []Request {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.requests)
}

// Document returns the stored source of a document.
func (s *Server) Document(indexName, id string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, ok := s.indices[indexName][id]
	return src, ok
}

func (s *Server) handle(method, path string, handler Handler) {
	handler = wrap(s.mw, handler)

	h := func(w http.ResponseWriter, r *http.Request) {
		if err := handler(r.Context(), w, r); err != nil {
			s.logger.Error("searchtest", "handle", err)
		}
	}

	s.mux.HandleFunc(method+" "+path, h)
}

// wrap middleware around the handler and execute in order given.
func wrap(mw []Middleware, handler Handler) Handler {
	for _, mwFn := range slices.Backward(mw) {
		if mwFn != nil {
			handler = mwFn(handler)
		}
	}

	return handler
}
