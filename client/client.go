// Package client exposes a series of helper functions for
// executing requests against a REST-style search server.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iRoxx/elastomer-client/client/throttle"
)

// Client sends requests to a single search server. Its configuration is
// fixed at [Build] time and the transport is created on first use, so a
// Client is safe for concurrent use.
type Client struct {
	cfg            Config
	baseURL        *url.URL
	logger         *slog.Logger
	maxRequestSize int

	handler   Handler
	transport func() (Transport, error)
}

// Build creates a Client. Without options it talks to
// http://localhost:9200 through the net/http adapter.
func Build(optFns ...Option) (*Client, error) {
	opts := options{cfg: DefaultConfig()}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	if err := opts.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	base, err := opts.cfg.baseURL()
	if err != nil {
		return nil, fmt.Errorf("resolving server url: %w", err)
	}

	factory, err := lookupAdapter(opts.cfg.Adapter)
	if err != nil {
		return nil, fmt.Errorf("selecting adapter: %w", err)
	}

	cfg := opts.cfg
	cfg.URL = base.String()
	cfg.Host = base.Hostname()
	cfg.Port = portOf(base)

	client := &Client{
		cfg:            cfg,
		baseURL:        base,
		logger:         slog.Default(),
		maxRequestSize: opts.maxRequestSize,
	}
	if opts.logger != nil {
		client.logger = opts.logger
	}

	tcfg := TransportConfig{
		Base:        opts.rt,
		OpenTimeout: cfg.OpenTimeout,
		Options:     opts.adapterOpts,
		Logger:      client.logger,
		decorate: func(transport http.RoundTripper) (http.RoundTripper, error) {
			if opts.userAgent != "" {
				transport = userAgent{value: opts.userAgent, base: transport}
			}
			if opts.throttle != nil {
				rt, err := throttle.NewRoundTripper(opts.throttle.RPS, opts.throttle.Burst, func() *slog.Logger { return client.logger }, transport)
				if err != nil {
					return nil, fmt.Errorf("configuring throttle: %w", err)
				}
				transport = rt
			}
			return transport, nil
		},
	}

	client.transport = sync.OnceValues(func() (Transport, error) {
		t, err := factory(tcfg)
		if err != nil {
			return nil, fmt.Errorf("building %s transport: %w", cfg.Adapter, err)
		}
		return t, nil
	})
	client.handler = wrap(opts.mw, client.send)

	return client, nil
}

// Config returns the resolved configuration. URL, Host and Port are
// always populated.
func (c *Client) Config() Config {
	return c.cfg
}

// URL returns the server root URL.
func (c *Client) URL() string {
	return c.cfg.URL
}

// Host returns the server host name.
func (c *Client) Host() string {
	return c.cfg.Host
}

// Port returns the server port.
func (c *Client) Port() int {
	return c.cfg.Port
}

// Head sends a HEAD request. See [Client.Request].
func (c *Client) Head(ctx context.Context, path string, params Params, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, Head, path, params, opts...)
}

// Get sends a GET request. See [Client.Request].
func (c *Client) Get(ctx context.Context, path string, params Params, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, Get, path, params, opts...)
}

// Put sends a PUT request. See [Client.Request].
func (c *Client) Put(ctx context.Context, path string, params Params, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, Put, path, params, opts...)
}

// Post sends a POST request. See [Client.Request].
func (c *Client) Post(ctx context.Context, path string, params Params, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, Post, path, params, opts...)
}

// Delete sends a DELETE request. See [Client.Request].
func (c *Client) Delete(ctx context.Context, path string, params Params, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, Delete, path, params, opts...)
}

// Request expands the path template with params, sends the request
// through the middleware chain and classifies the response.
//
// The reserved keys "body", "read_timeout" and "action" are lifted out of
// params before expansion; the equivalent RequestOptions take precedence.
// Transport timeouts are returned as a *TimeoutError, server failures as
// a *ResponseError. Other transport errors are returned unchanged.
func (c *Client) Request(ctx context.Context, verb Verb, path string, params Params, opts ...RequestOption) (*Response, error) {
	call, err := c.prepare(verb, path, params, opts)
	if err != nil {
		return nil, err
	}

	resp, err := c.handler(ctx, call)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Path: call.Path, Cause: err}
		}
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoResponse, call.Path)
	}

	return Classify(resp)
}

// Available reports whether the server answers a HEAD request on its root
// path. Any failure, timeouts included, yields false.
func (c *Client) Available(ctx context.Context) bool {
	if _, err := c.Head(ctx, "/", nil, WithAction("cluster.available")); err != nil {
		c.logger.Debug("server unavailable", "url", c.cfg.URL, "error", err)
		return false
	}

	return true
}

// Ping is an alias for [Client.Available].
func (c *Client) Ping(ctx context.Context) bool {
	return c.Available(ctx)
}

// Info returns the server's root document: name, cluster and version.
func (c *Client) Info(ctx context.Context) (*Response, error) {
	return c.Get(ctx, "/", nil, WithAction("cluster.info"))
}

// Version returns the server's version number, e.g. "8.13.4".
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.Info(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching info: %w", err)
	}

	v := resp.Get("version.number")
	if !v.Exists() {
		return "", errors.New("server info carries no version number")
	}

	return v.String(), nil
}

// send is the innermost handler: it applies the per-call timeout and
// hands the call to the cached transport.
func (c *Client) send(ctx context.Context, call *Call) (*Response, error) {
	t, err := c.transport()
	if err != nil {
		return nil, err
	}

	if call.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, call.Timeout)
		defer cancel()
	}

	return t.Send(ctx, call)
}

// prepare resolves everything about a call that can fail without I/O.
func (c *Client) prepare(verb Verb, path string, params Params, optFns []RequestOption) (*Call, error) {
	if _, err := verb.payload(nil); err != nil {
		return nil, err
	}

	var settings requestOpts
	rest := make(Params, len(params))
	for k, v := range params {
		switch k {
		case ParamBody:
			settings.body = v
			settings.hasBody = v != nil
		case ParamReadTimeout:
			if v == nil {
				continue
			}
			d, err := toDuration(v)
			if err != nil {
				return nil, err
			}
			settings.readTimeout = &d
		case ParamAction:
			if v != nil {
				settings.action = formatScalar(v)
			}
		default:
			rest[k] = v
		}
	}

	for _, opt := range optFns {
		if err := opt(&settings); err != nil {
			return nil, fmt.Errorf("applying request option: %w", err)
		}
	}

	var (
		body        []byte
		contentType string
	)
	if settings.hasBody {
		var err error
		body, contentType, err = encodeBody(settings.body)
		if err != nil {
			return nil, err
		}
	}

	body, err := verb.payload(body)
	if err != nil {
		return nil, err
	}
	if c.maxRequestSize > 0 && len(body) > c.maxRequestSize {
		return nil, &RequestSizeError{Size: len(body), Limit: c.maxRequestSize}
	}

	expanded, err := ExpandPath(path, rest)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(expanded, "/") {
		expanded = "/" + expanded
	}

	u, err := url.Parse(c.cfg.URL + expanded)
	if err != nil {
		return nil, fmt.Errorf("%w: request url: %w", ErrInvalidArgument, err)
	}

	header := settings.header.Clone()
	if header == nil {
		header = http.Header{}
	}
	if body != nil && header.Get("Content-Type") == "" {
		if contentType == "" {
			contentType = contentTypeJSON
		}
		header.Set("Content-Type", contentType)
	}

	timeout := c.cfg.ReadTimeout
	if settings.readTimeout != nil {
		timeout = *settings.readTimeout
	}

	call := Call{
		Verb:    verb,
		Path:    expanded,
		URL:     u,
		Body:    body,
		Params:  rest,
		Action:  settings.action,
		Header:  header,
		Timeout: timeout,
	}

	return &call, nil
}

// toDuration reads a "read_timeout" parameter. Bare numbers are seconds.
func toDuration(v any) (time.Duration, error) {
	var d time.Duration
	switch t := v.(type) {
	case time.Duration:
		d = t
	case int:
		d = time.Duration(t) * time.Second
	case int64:
		d = time.Duration(t) * time.Second
	case float64:
		d = time.Duration(t * float64(time.Second))
	case string:
		parsed, err := time.ParseDuration(t)
		if err != nil {
			return 0, fmt.Errorf("%w: read_timeout %q: %w", ErrInvalidArgument, t, err)
		}
		d = parsed
	default:
		return 0, fmt.Errorf("%w: read_timeout of type %T", ErrInvalidArgument, v)
	}

	if d < 0 {
		return 0, fmt.Errorf("%w: read_timeout %v must not be negative", ErrInvalidArgument, d)
	}

	return d, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func portOf(u *url.URL) int {
	if p, err := strconv.Atoi(u.Port()); err == nil {
		return p
	}
	if u.Scheme == "https" {
		return 443
	}

	return 80
}
