package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// Options understood by the resty adapter in addition to the shared
// connection options.
const (
	optDebug   = "debug"
	optHeaders = "headers"
)

// restyTransport sends calls through a resty client sharing the same
// round tripper chain as the net/http adapter.
type restyTransport struct {
	c *resty.Client
}

func newRestyTransport(cfg TransportConfig) (Transport, error) {
	if err := checkOptions(AdapterResty, cfg.Options, append([]string{optDebug, optHeaders}, connOptions...)...); err != nil {
		return nil, err
	}

	rt, err := cfg.RoundTripper()
	if err != nil {
		return nil, fmt.Errorf("configuring %s transport: %w", AdapterResty, err)
	}

	c := resty.NewWithClient(&http.Client{Transport: rt})

	debug, _, err := option[bool](cfg.Options, optDebug)
	if err != nil {
		return nil, err
	}
	c.SetDebug(debug)

	headers, _, err := option[map[string]string](cfg.Options, optHeaders)
	if err != nil {
		return nil, err
	}
	c.SetHeaders(headers)

	return &restyTransport{c: c}, nil
}

func (t *restyTransport) Send(ctx context.Context, call *Call) (*Response, error) {
	req := t.c.R().SetContext(ctx)
	if call.Header != nil {
		req.SetHeaderMultiValues(call.Header)
	}
	if call.Body != nil {
		req.SetBody(call.Body)
	}

	resp, err := req.Execute(call.Verb.String(), call.URL.String())
	if err != nil {
		return nil, fmt.Errorf("exec resty request: %w", err)
	}

	return NewResponse(resp.StatusCode(), resp.Header(), resp.Body())
}
