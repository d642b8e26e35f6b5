package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iRoxx/elastomer-client/client"
)

// Collectors holds the metrics recorded by [Metrics].
type Collectors struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewCollectors creates the request counter and latency histogram and
// registers them with reg, when reg is not nil.
func NewCollectors(reg prometheus.Registerer) (*Collectors, error) {
	c := Collectors{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "elastomer",
			Name:      "requests_total",
			Help:      "Requests sent to the search server by method, action and status code.",
		}, []string{"method", "action", "code"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "elastomer",
			Name:      "request_duration_seconds",
			Help:      "Latency of requests sent to the search server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "action"}),
	}

	if reg == nil {
		return &c, nil
	}

	for _, col := range []prometheus.Collector{c.Requests, c.Duration} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}

	return &c, nil
}

// Metrics records every call on cols. Failed calls are counted with the
// code "error".
func Metrics(cols *Collectors) client.Middleware {
	m := func(next client.Handler) client.Handler {
		h := func(ctx context.Context, call *client.Call) (*client.Response, error) {
			start := time.Now()

			resp, err := next(ctx, call)

			method := call.Verb.String()
			cols.Duration.WithLabelValues(method, call.Action).Observe(time.Since(start).Seconds())

			code := "error"
			if err == nil {
				code = strconv.Itoa(resp.StatusCode)
			}
			cols.Requests.WithLabelValues(method, call.Action, code).Inc()

			return resp, err
		}

		return h
	}

	return m
}
