package client

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"time"

	"github.com/iRoxx/elastomer-client/client/throttle"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	cfg            Config
	adapterOpts    map[string]any
	rt             http.RoundTripper
	userAgent      string
	throttle       *throttle.Config
	logger         *slog.Logger
	mw             []Middleware
	maxRequestSize int
}

// WithConfig replaces the whole connection configuration, e.g. with one
// loaded by [ConfigFromEnv]. Options applied after it still take effect.
func WithConfig(cfg Config) Option {
	return func(o *options) error {
		o.cfg = cfg
		return nil
	}
}

// WithHost sets the server host name. Defaults to "localhost".
func WithHost(host string) Option {
	return func(o *options) error {
		if host == "" {
			return errors.New("host must not be empty")
		}
		o.cfg.Host = host
		return nil
	}
}

// WithPort sets the server port. Defaults to 9200.
func WithPort(port int) Option {
	return func(o *options) error {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("port %d out of range", port)
		}
		o.cfg.Port = port
		return nil
	}
}

// WithURL sets the server root URL, overriding host and port.
func WithURL(rawURL string) Option {
	return func(o *options) error {
		if rawURL == "" {
			return errors.New("url must not be empty")
		}
		o.cfg.URL = rawURL
		return nil
	}
}

// WithReadTimeout sets the default time allowed for a request to complete.
// Zero disables the limit.
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("read timeout must not be negative")
		}
		o.cfg.ReadTimeout = d
		return nil
	}
}

// WithOpenTimeout bounds connection setup, TLS handshake included.
func WithOpenTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("open timeout must not be negative")
		}
		o.cfg.OpenTimeout = d
		return nil
	}
}

// WithAdapter selects the transport implementation by name, passing it
// adapter-specific options. See [AdapterNetHTTP], [AdapterResty] and
// [RegisterAdapter].
func WithAdapter(name string, adapterOpts map[string]any) Option {
	return func(o *options) error {
		if name == "" {
			return errors.New("adapter must not be empty")
		}
		o.cfg.Adapter = name
		o.adapterOpts = maps.Clone(adapterOpts)
		return nil
	}
}

// WithHTTPTransport sets a custom [http.RoundTripper] as the base transport
// for adapters built on net/http.
func WithHTTPTransport(rt http.RoundTripper) Option {
	return func(o *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		o.rt = rt
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(o *options) error {
		o.userAgent = header
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting with the given requests per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(o *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		o.throttle = &throttle.Config{RPS: rps, Burst: burst}
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithMiddleware appends instrumentation stages run around every
// transport call. The first middleware given runs outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(o *options) error {
		o.mw = append(o.mw, mw...)
		return nil
	}
}

// WithMaxRequestSize rejects request bodies larger than n bytes before
// they are sent.
func WithMaxRequestSize(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("max request size %w", throttle.ErrMustNotBeZero)
		}
		o.maxRequestSize = n
		return nil
	}
}

// /////////////////////////////////////////////////////////////////

// RequestOption sets the reserved, pipeline-level inputs of a single
// request.
type RequestOption func(*requestOpts) error

type requestOpts struct {
	body        any
	hasBody     bool
	readTimeout *time.Duration
	action      string
	header      http.Header
}

// WithBody sets the request body. Strings and byte slices are sent as is,
// a slice of bulk items is sent as newline-delimited JSON and anything
// else is JSON-encoded.
func WithBody(body any) RequestOption {
	return func(o *requestOpts) error {
		o.body = body
		o.hasBody = true
		return nil
	}
}

// WithRequestTimeout overrides the client's read timeout for this call.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(o *requestOpts) error {
		if d < 0 {
			return errors.New("read timeout must not be negative")
		}
		o.readTimeout = &d
		return nil
	}
}

// WithAction labels the request for instrumentation, e.g. "index.create".
func WithAction(action string) RequestOption {
	return func(o *requestOpts) error {
		o.action = action
		return nil
	}
}

// WithHeader adds a header to this request.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOpts) error {
		if key == "" {
			return errors.New("header key must not be empty")
		}
		if o.header == nil {
			o.header = http.Header{}
		}
		o.header.Add(key, value)
		return nil
	}
}
