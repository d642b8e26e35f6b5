// Package throttle provides an [http.RoundTripper] that rate-limits
// requests to the search server using a token bucket from
// [golang.org/x/time/rate].
//
// Requests over the limit block until a token is available or the
// request context ends. The client wires it in with client.WithThrottle;
// it can also wrap any transport directly:
//
//	rt, err := throttle.NewRoundTripper(50, 10, nil, http.DefaultTransport)
package throttle
