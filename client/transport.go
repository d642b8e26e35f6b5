package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"
)

// Names of the built-in adapters.
const (
	AdapterNetHTTP = "nethttp"
	AdapterResty   = "resty"
)

// Transport performs the network call for a [Call]. Implementations must
// honour ctx cancellation and deadlines and be safe for concurrent use.
type Transport interface {
	Send(ctx context.Context, call *Call) (*Response, error)
}

// TransportConfig is handed to an [AdapterFactory] when the client first
// needs its transport.
type TransportConfig struct {
	// Base replaces the tuned *http.Transport when set.
	Base        http.RoundTripper
	OpenTimeout time.Duration
	// Options are the adapter-specific settings passed to WithAdapter.
	Options map[string]any
	Logger  *slog.Logger

	decorate func(http.RoundTripper) (http.RoundTripper, error)
}

// AdapterFactory builds a Transport from its configuration.
type AdapterFactory func(cfg TransportConfig) (Transport, error)

var (
	adaptersMu sync.RWMutex
	adapters   = map[string]AdapterFactory{
		AdapterNetHTTP: newNetHTTPTransport,
		AdapterResty:   newRestyTransport,
	}
)

// RegisterAdapter makes a Transport implementation selectable by name
// through [WithAdapter]. Registering an existing name replaces it.
func RegisterAdapter(name string, factory AdapterFactory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("%w: adapter name and factory must be set", ErrInvalidArgument)
	}

	adaptersMu.Lock()
	defer adaptersMu.Unlock()
	adapters[name] = factory

	return nil
}

func lookupAdapter(name string) (AdapterFactory, error) {
	adaptersMu.RLock()
	defer adaptersMu.RUnlock()

	factory, ok := adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, name)
	}

	return factory, nil
}

// RoundTripper returns the http.RoundTripper adapters should send through:
// the base transport, tuned by the shared connection options, wrapped with
// the client's User-Agent and throttle decorators.
func (cfg TransportConfig) RoundTripper() (http.RoundTripper, error) {
	base := cfg.Base
	if base == nil {
		t, err := tunedTransport(cfg.OpenTimeout, cfg.Options)
		if err != nil {
			return nil, err
		}
		base = t
	}

	if cfg.decorate == nil {
		return base, nil
	}

	return cfg.decorate(base)
}

// Connection options understood by every adapter built on net/http.
const (
	optMaxIdleConns        = "max_idle_conns"
	optMaxIdleConnsPerHost = "max_idle_conns_per_host"
	optIdleConnTimeout     = "idle_conn_timeout"
	optInsecureSkipVerify  = "insecure_skip_verify"
)

var connOptions = []string{optMaxIdleConns, optMaxIdleConnsPerHost, optIdleConnTimeout, optInsecureSkipVerify}

// tunedTransport clones http.DefaultTransport and bounds connection setup
// by openTimeout.
func tunedTransport(openTimeout time.Duration, opts map[string]any) (*http.Transport, error) {
	t := http.DefaultTransport.(*http.Transport).Clone()

	t.DialContext = (&net.Dialer{
		Timeout:   openTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	t.TLSHandshakeTimeout = openTimeout

	if n, ok, err := option[int](opts, optMaxIdleConns); err != nil {
		return nil, err
	} else if ok {
		t.MaxIdleConns = n
	}
	if n, ok, err := option[int](opts, optMaxIdleConnsPerHost); err != nil {
		return nil, err
	} else if ok {
		t.MaxIdleConnsPerHost = n
	}
	if d, ok, err := option[time.Duration](opts, optIdleConnTimeout); err != nil {
		return nil, err
	} else if ok {
		t.IdleConnTimeout = d
	}
	if skip, ok, err := option[bool](opts, optInsecureSkipVerify); err != nil {
		return nil, err
	} else if ok && skip {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for test clusters.
	}

	return t, nil
}

// option reads a typed adapter option.
func option[T any](opts map[string]any, key string) (T, bool, error) {
	var zero T
	v, ok := opts[key]
	if !ok {
		return zero, false, nil
	}

	t, ok := v.(T)
	if !ok {
		return zero, false, fmt.Errorf("%w: adapter option %q: want %T, got %T", ErrInvalidArgument, key, zero, v)
	}

	return t, true, nil
}

func checkOptions(adapter string, opts map[string]any, known ...string) error {
	for k := range opts {
		if !slices.Contains(known, k) {
			return fmt.Errorf("%w: adapter %q does not support option %q", ErrInvalidArgument, adapter, k)
		}
	}

	return nil
}

// netHTTPTransport sends calls with a plain *http.Client.
type netHTTPTransport struct {
	c *http.Client
}

func newNetHTTPTransport(cfg TransportConfig) (Transport, error) {
	if err := checkOptions(AdapterNetHTTP, cfg.Options, connOptions...); err != nil {
		return nil, err
	}

	rt, err := cfg.RoundTripper()
	if err != nil {
		return nil, fmt.Errorf("configuring %s transport: %w", AdapterNetHTTP, err)
	}

	return &netHTTPTransport{c: &http.Client{Transport: rt}}, nil
}

func (t *netHTTPTransport) Send(ctx context.Context, call *Call) (*Response, error) {
	var body io.Reader
	if call.Body != nil {
		body = bytes.NewReader(call.Body)
	}

	req, err := http.NewRequestWithContext(ctx, call.Verb.String(), call.URL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}
	if call.Header != nil {
		req.Header = call.Header.Clone()
	}

	resp, err := t.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exec http do: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return NewResponse(resp.StatusCode, resp.Header, raw)
}

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}
