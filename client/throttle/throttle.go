package throttle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// Config defines the throttler's
// Requests Per Second and Burst Rate
type Config struct {
	RPS   int
	Burst int
}

// limiter is an http.RoundTripper holding requests to the search server
// back until the token bucket has capacity.
type limiter struct {
	bucket *rate.Limiter
	cfg    Config
	next   http.RoundTripper
	logFn  func() *slog.Logger
}

// NewRoundTripper returns an http.RoundTripper that throttles outbound requests
// using a token bucket rate limiter. logFn lazily resolves the logger at request
// time, making option ordering irrelevant. A nil-returning logFn disables the
// exhaustion log lines.
func NewRoundTripper(rps, burst int, logFn func() *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, ErrMustNotBeZero)
	}
	if next == nil {
		next = http.DefaultTransport
	}
	if logFn == nil {
		logFn = func() *slog.Logger { return nil }
	}

	l := limiter{
		bucket: rate.NewLimiter(rate.Limit(rps), burst),
		cfg:    Config{RPS: rps, Burst: burst},
		next:   next,
		logFn:  logFn,
	}

	return &l, nil
}

func (l *limiter) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	logger := l.logFn()
	if logger != nil && l.bucket.Tokens() < 1 {
		logger.Info("throttle tokens exhausted", "rate", l.cfg.RPS, "burst", l.cfg.Burst, "method", r.Method, "path", r.URL.Path)

		start := time.Now()
		defer func() {
			logger.Info("throttle wait complete", "waited", time.Since(start).String(), "method", r.Method, "path", r.URL.Path)
		}()
	}

	if err := l.bucket.Wait(ctx); err != nil {
		// The limiter refuses early when the deadline cannot be met.
		if _, ok := ctx.Deadline(); ok && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w: %w", ErrWaitingFailed, context.DeadlineExceeded, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}

	if err := ctx.Err(); err != nil { // Check context hasn't expired again.
		return nil, fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return l.next.RoundTrip(r)
}
