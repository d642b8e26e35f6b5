package client_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/iRoxx/elastomer-client/client"
)

// captured is what the test server saw of a request.
type captured struct {
	Method      string
	Path        string
	Query       string
	Body        string
	ContentType string
	UserAgent   string
}

var ignoreUA = cmpopts.IgnoreFields(captured{}, "UserAgent")

type test struct {
	*client.Client

	server *httptest.Server
	hits   atomic.Int32

	mu   sync.Mutex
	last captured
}

// newTest starts a server answering every request with status and a JSON
// body, and a client pointed at it.
func newTest(t *testing.T, status int, body string, opts ...client.Option) *test {
	t.Helper()

	tt := &test{}
	tt.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tt.hits.Add(1)

		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("reading request body: %v", err)
		}

		tt.mu.Lock()
		tt.last = captured{
			Method:      r.Method,
			Path:        r.URL.Path,
			Query:       r.URL.RawQuery,
			Body:        string(b),
			ContentType: r.Header.Get("Content-Type"),
			UserAgent:   r.Header.Get("User-Agent"),
		}
		tt.mu.Unlock()

		if body != "" {
			w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(tt.server.Close)

	c, err := client.Build(append([]client.Option{client.WithURL(tt.server.URL)}, opts...)...)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	tt.Client = c

	return tt
}

func (tt *test) captured() captured {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	return tt.last
}

// slowServer answers after delay, or when the client goes away.
func slowServer(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(delay):
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"status":"green"}`)
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(ts.Close)

	return ts
}

func TestClient_RequestPathAndQuery(t *testing.T) {
	tt := newTest(t, http.StatusOK, `{"found":true}`)

	resp, err := tt.Get(t.Context(), "/{index}/_doc{/id}", client.Params{
		"index":   "books",
		"id":      "go programming",
		"routing": "user 1",
		"action":  "document.get",
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !resp.Get("found").Bool() {
		t.Errorf("expected found=true, got body %v", resp.Body)
	}

	exp := captured{
		Method: http.MethodGet,
		Path:   "/books/_doc/go programming",
		Query:  "routing=user%201",
	}
	if diff := cmp.Diff(exp, tt.captured(), ignoreUA); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_VerbBodies(t *testing.T) {
	query := map[string]any{"query": map[string]any{"match_all": map[string]any{}}}

	testCases := []struct {
		name    string
		verb    client.Verb
		opts    []client.RequestOption
		expBody string
		expCT   string
	}{
		{
			name: "HEAD never sends a body",
			verb: client.Head,
			opts: []client.RequestOption{client.WithBody(query)},
		},
		{
			name: "GET without body",
			verb: client.Get,
		},
		{
			name:    "GET with body",
			verb:    client.Get,
			opts:    []client.RequestOption{client.WithBody(query)},
			expBody: `{"query":{"match_all":{}}}`,
			expCT:   "application/json",
		},
		{
			name:    "DELETE with body",
			verb:    client.Delete,
			opts:    []client.RequestOption{client.WithBody(`{"query":{"term":{"draft":true}}}`)},
			expBody: `{"query":{"term":{"draft":true}}}`,
			expCT:   "application/json",
		},
		{
			name:  "PUT always sends a body",
			verb:  client.Put,
			expCT: "application/json",
		},
		{
			name:  "POST always sends a body",
			verb:  client.Post,
			expCT: "application/json",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tt := newTest(t, http.StatusOK, `{"acknowledged":true}`)

			if _, err := tt.Request(t.Context(), tc.verb, "/books", nil, tc.opts...); err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}

			got := tt.captured()
			if got.Method != tc.verb.String() {
				t.Errorf("expected method %s, got %s", tc.verb, got.Method)
			}
			if got.Body != tc.expBody {
				t.Errorf("expected body %q, got %q", tc.expBody, got.Body)
			}
			if got.ContentType != tc.expCT {
				t.Errorf("expected content type %q, got %q", tc.expCT, got.ContentType)
			}
		})
	}
}

func TestClient_Bulk(t *testing.T) {
	tt := newTest(t, http.StatusOK, `{"took":3,"errors":false,"items":[]}`)

	_, err := tt.Post(t.Context(), "{/index}/_bulk", client.Params{"refresh": "wait_for"}, client.WithBody([]any{
		map[string]any{"index": map[string]any{"_id": "1"}},
		map[string]any{"title": "Go"},
	}))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	exp := captured{
		Method:      http.MethodPost,
		Path:        "/_bulk",
		Query:       "refresh=wait_for",
		Body:        "{\"index\":{\"_id\":\"1\"}}\n{\"title\":\"Go\"}\n",
		ContentType: "application/x-ndjson",
	}
	if diff := cmp.Diff(exp, tt.captured(), ignoreUA); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_ReservedParams(t *testing.T) {
	tt := newTest(t, http.StatusOK, `{"hits":{"total":{"value":0}}}`)

	var seen *client.Call
	tt.Client = rebuild(t, tt, client.WithMiddleware(func(next client.Handler) client.Handler {
		return func(ctx context.Context, call *client.Call) (*client.Response, error) {
			seen = call
			return next(ctx, call)
		}
	}))

	_, err := tt.Request(t.Context(), client.Post, "/{index}/_search", client.Params{
		"index":        "books",
		"q":            "go",
		"body":         map[string]any{"size": 0},
		"read_timeout": 3,
		"action":       "search",
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	got := tt.captured()
	if got.Query != "q=go" {
		t.Errorf("expected only q in the query, got %q", got.Query)
	}
	if got.Body != `{"size":0}` {
		t.Errorf("unexpected body %q", got.Body)
	}

	if seen == nil {
		t.Fatal("middleware was not called")
	}
	if seen.Action != "search" {
		t.Errorf("expected action search, got %q", seen.Action)
	}
	if seen.Timeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %v", seen.Timeout)
	}
	if diff := cmp.Diff(client.Params{"index": "books", "q": "go"}, seen.Params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
	if seen.Path != "/books/_search?q=go" {
		t.Errorf("unexpected path %q", seen.Path)
	}
}

func TestClient_OptionsOverrideReservedParams(t *testing.T) {
	tt := newTest(t, http.StatusOK, `{}`)

	var seen *client.Call
	tt.Client = rebuild(t, tt, client.WithMiddleware(func(next client.Handler) client.Handler {
		return func(ctx context.Context, call *client.Call) (*client.Response, error) {
			seen = call
			return next(ctx, call)
		}
	}))

	_, err := tt.Put(t.Context(), "/books", client.Params{"body": `{"a":1}`, "action": "old"},
		client.WithBody(`{"b":2}`),
		client.WithAction("index.create"),
		client.WithRequestTimeout(time.Second),
	)
	if err != nil {
		t.Fatal(err)
	}

	if got := tt.captured().Body; got != `{"b":2}` {
		t.Errorf("expected option body to win, got %q", got)
	}
	if seen.Action != "index.create" || seen.Timeout != time.Second {
		t.Errorf("expected option action and timeout, got %q %v", seen.Action, seen.Timeout)
	}
}

// rebuild creates a new client for tt's server with extra options.
func rebuild(t *testing.T, tt *test, opts ...client.Option) *client.Client {
	t.Helper()

	c, err := client.Build(append([]client.Option{client.WithURL(tt.server.URL)}, opts...)...)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	return c
}

func TestClient_Classification(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
		expErr bool
	}{
		{name: "200", status: http.StatusOK, body: `{"acknowledged":true}`},
		{name: "404 without error field", status: http.StatusNotFound, body: `{"found":false}`},
		{name: "404 without body", status: http.StatusNotFound},
		{name: "200 with error field", status: http.StatusOK, body: `{"error":"x"}`, expErr: true},
		{name: "400 with error field", status: http.StatusBadRequest, body: `{"error":{"type":"parsing_exception"}}`, expErr: true},
		{name: "500", status: http.StatusInternalServerError, body: `{"ok":true}`, expErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tt := newTest(t, tc.status, tc.body)

			resp, err := tt.Get(t.Context(), "/books/_doc/1", nil)
			if !tc.expErr {
				if err != nil {
					t.Fatalf("expected success, got: %v", err)
				}
				if resp.StatusCode != tc.status {
					t.Errorf("expected status %d, got %d", tc.status, resp.StatusCode)
				}
				return
			}

			var respErr *client.ResponseError
			if !errors.As(err, &respErr) {
				t.Fatalf("expected *ResponseError, got: %v", err)
			}
			if respErr.StatusCode() != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, respErr.StatusCode())
			}
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	ts := slowServer(t, 500*time.Millisecond)

	c, err := client.Build(client.WithURL(ts.URL), client.WithReadTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Get(t.Context(), "/_cluster/health{/index}", client.Params{"index": "books", "wait_for_status": "green"})

	var timeoutErr *client.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected *TimeoutError, got: %v", err)
	}
	if timeoutErr.Path != "/_cluster/health/books?wait_for_status=green" {
		t.Errorf("unexpected path %q", timeoutErr.Path)
	}
	if !errors.Is(err, client.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got: %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the transport cause to be kept, got: %v", err)
	}
}

func TestClient_PerCallTimeout(t *testing.T) {
	ts := slowServer(t, 100*time.Millisecond)

	c, err := client.Build(client.WithURL(ts.URL), client.WithReadTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Get(t.Context(), "/_cluster/health", nil, client.WithRequestTimeout(5*time.Second)); err != nil {
		t.Fatalf("expected override to allow the slow call, got: %v", err)
	}

	c, err = client.Build(client.WithURL(ts.URL))
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Get(t.Context(), "/_cluster/health", client.Params{"read_timeout": "10ms"})
	if !errors.Is(err, client.ErrTimeout) {
		t.Fatalf("expected read_timeout param to bound the call, got: %v", err)
	}
}

func TestClient_TransportErrorsPropagate(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	addr := ts.URL
	ts.Close()

	c, err := client.Build(client.WithURL(addr))
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Get(t.Context(), "/", nil)
	if err == nil {
		t.Fatal("expected connection error")
	}
	if errors.Is(err, client.ErrTimeout) {
		t.Errorf("expected a non-timeout error, got: %v", err)
	}

	var respErr *client.ResponseError
	if errors.As(err, &respErr) {
		t.Errorf("expected a transport error, got: %v", err)
	}
}

func TestClient_InvalidVerb(t *testing.T) {
	tt := newTest(t, http.StatusOK, `{}`)

	_, err := tt.Request(t.Context(), client.Verb(42), "/", nil)
	if !errors.Is(err, client.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got: %v", err)
	}
	if hits := tt.hits.Load(); hits != 0 {
		t.Errorf("expected no requests, got %d", hits)
	}
}

func TestClient_MalformedTemplate(t *testing.T) {
	tt := newTest(t, http.StatusOK, `{}`)

	_, err := tt.Get(t.Context(), "/{index/_search", client.Params{"index": "books"})
	if !errors.Is(err, client.ErrMalformedTemplate) {
		t.Fatalf("expected ErrMalformedTemplate, got: %v", err)
	}
	if hits := tt.hits.Load(); hits != 0 {
		t.Errorf("expected no requests, got %d", hits)
	}
}

func TestClient_MaxRequestSize(t *testing.T) {
	tt := newTest(t, http.StatusOK, `{}`)
	tt.Client = rebuild(t, tt, client.WithMaxRequestSize(16))

	_, err := tt.Post(t.Context(), "/_bulk", nil, client.WithBody(strings.Repeat("x", 17)))

	var sizeErr *client.RequestSizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected *RequestSizeError, got: %v", err)
	}
	if sizeErr.Size != 17 || sizeErr.Limit != 16 {
		t.Errorf("unexpected size error %+v", sizeErr)
	}
	if hits := tt.hits.Load(); hits != 0 {
		t.Errorf("expected no requests, got %d", hits)
	}

	if _, err := tt.Post(t.Context(), "/_bulk", nil, client.WithBody(strings.Repeat("x", 16))); err != nil {
		t.Errorf("expected body at the limit to pass, got: %v", err)
	}
}

func TestClient_Available(t *testing.T) {
	t.Run("Up", func(t *testing.T) {
		tt := newTest(t, http.StatusOK, "")

		if !tt.Available(t.Context()) {
			t.Fatal("expected server to be available")
		}

		got := tt.captured()
		if got.Method != http.MethodHead || got.Path != "/" {
			t.Errorf("expected HEAD /, got %s %s", got.Method, got.Path)
		}
	})

	t.Run("Server error", func(t *testing.T) {
		tt := newTest(t, http.StatusServiceUnavailable, "")

		if tt.Ping(t.Context()) {
			t.Fatal("expected 503 to be unavailable")
		}
	})

	t.Run("Unreachable", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		addr := ts.URL
		ts.Close()

		c, err := client.Build(client.WithURL(addr))
		if err != nil {
			t.Fatal(err)
		}

		if c.Available(t.Context()) {
			t.Fatal("expected unreachable server to be unavailable")
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		ts := slowServer(t, time.Second)

		c, err := client.Build(client.WithURL(ts.URL), client.WithReadTimeout(20*time.Millisecond))
		if err != nil {
			t.Fatal(err)
		}

		if c.Available(t.Context()) {
			t.Fatal("expected timed out server to be unavailable")
		}
	})
}

func TestClient_InfoAndVersion(t *testing.T) {
	tt := newTest(t, http.StatusOK, `{"name":"node-1","cluster_name":"search","version":{"number":"8.13.4"}}`)

	resp, err := tt.Info(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if got := resp.Get("cluster_name").String(); got != "search" {
		t.Errorf("expected cluster name search, got %q", got)
	}

	version, err := tt.Version(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if version != "8.13.4" {
		t.Errorf("expected version 8.13.4, got %q", version)
	}

	empty := newTest(t, http.StatusOK, `{"name":"node-1"}`)
	if _, err := empty.Version(t.Context()); err == nil {
		t.Error("expected error for info without version")
	}
}

func TestClient_Middleware(t *testing.T) {
	tt := newTest(t, http.StatusOK, `{"acknowledged":true}`)

	var order []string
	stage := func(name string) client.Middleware {
		return func(next client.Handler) client.Handler {
			return func(ctx context.Context, call *client.Call) (*client.Response, error) {
				order = append(order, name+" before")
				resp, err := next(ctx, call)
				order = append(order, name+" after")
				return resp, err
			}
		}
	}

	tt.Client = rebuild(t, tt, client.WithMiddleware(stage("outer"), nil, stage("inner")))

	if _, err := tt.Delete(t.Context(), "/books", nil); err != nil {
		t.Fatal(err)
	}

	exp := []string{"outer before", "inner before", "inner after", "outer after"}
	if diff := cmp.Diff(exp, order); diff != "" {
		t.Errorf("middleware order mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_MiddlewareSeesUnclassifiedResponse(t *testing.T) {
	tt := newTest(t, http.StatusInternalServerError, `{"error":"boom"}`)

	var status int
	tt.Client = rebuild(t, tt, client.WithMiddleware(func(next client.Handler) client.Handler {
		return func(ctx context.Context, call *client.Call) (*client.Response, error) {
			resp, err := next(ctx, call)
			if err == nil {
				status = resp.StatusCode
			}
			return resp, err
		}
	}))

	_, err := tt.Get(t.Context(), "/", nil)
	if !errors.Is(err, client.ErrResponse) {
		t.Fatalf("expected ErrResponse, got: %v", err)
	}
	if status != http.StatusInternalServerError {
		t.Errorf("expected middleware to see the 500 response, got %d", status)
	}
}

func TestClient_UserAgentAndThrottle(t *testing.T) {
	tt := newTest(t, http.StatusOK, `{}`)
	tt.Client = rebuild(t, tt,
		client.WithThrottle(100, 10),
		client.WithUserAgent("elastomer-test/1.0"),
	)

	if _, err := tt.Get(t.Context(), "/", nil); err != nil {
		t.Fatal(err)
	}
	if got := tt.captured().UserAgent; got != "elastomer-test/1.0" {
		t.Errorf("expected user agent, got %q", got)
	}
}

func TestClient_WithHTTPTransport(t *testing.T) {
	tt := newTest(t, http.StatusOK, `{}`)

	var called atomic.Bool
	tt.Client = rebuild(t, tt, client.WithHTTPTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		called.Store(true)
		return http.DefaultTransport.RoundTrip(r)
	})))

	if _, err := tt.Get(t.Context(), "/", nil); err != nil {
		t.Fatal(err)
	}
	if !called.Load() {
		t.Error("expected custom transport to be used")
	}
}

func TestClient_RestyAdapter(t *testing.T) {
	var header string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("X-Cluster")
		b, _ := io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusInternalServerError)
		}
		fmt.Fprintf(w, `{"echo":%q,"method":%q}`, string(b), r.Method)
	}))
	defer ts.Close()

	c, err := client.Build(
		client.WithURL(ts.URL),
		client.WithAdapter(client.AdapterResty, map[string]any{"headers": map[string]string{"X-Cluster": "blue"}}),
	)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := c.Put(t.Context(), "/{index}", client.Params{"index": "books"}, client.WithBody(map[string]any{"mappings": map[string]any{}}))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if got := resp.Get("echo").String(); got != `{"mappings":{}}` {
		t.Errorf("unexpected echoed body %q", got)
	}
	if got := resp.Get("method").String(); got != http.MethodPut {
		t.Errorf("expected PUT, got %q", got)
	}
	if header != "blue" {
		t.Errorf("expected adapter header, got %q", header)
	}

	if _, err := c.Get(t.Context(), "/broken", nil); !errors.Is(err, client.ErrResponse) {
		t.Errorf("expected ErrResponse, got: %v", err)
	}
}

func TestClient_RestyAdapterTimeout(t *testing.T) {
	ts := slowServer(t, 500*time.Millisecond)

	c, err := client.Build(
		client.WithURL(ts.URL),
		client.WithAdapter(client.AdapterResty, nil),
		client.WithReadTimeout(30*time.Millisecond),
	)
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Get(t.Context(), "/_cluster/health", nil)

	var timeoutErr *client.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected *TimeoutError, got: %v", err)
	}
	if timeoutErr.Path != "/_cluster/health" {
		t.Errorf("unexpected path %q", timeoutErr.Path)
	}
}

func TestClient_AdapterErrors(t *testing.T) {
	if _, err := client.Build(client.WithAdapter("excon", nil)); !errors.Is(err, client.ErrUnknownAdapter) {
		t.Errorf("expected ErrUnknownAdapter, got: %v", err)
	}

	testCases := []struct {
		name    string
		adapter string
		opts    map[string]any
	}{
		{name: "Unknown option", adapter: client.AdapterNetHTTP, opts: map[string]any{"pool": 5}},
		{name: "Wrong option type", adapter: client.AdapterNetHTTP, opts: map[string]any{"max_idle_conns": "five"}},
		{name: "Resty unknown option", adapter: client.AdapterResty, opts: map[string]any{"retry_count": 3}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tt := newTest(t, http.StatusOK, `{}`)
			tt.Client = rebuild(t, tt, client.WithAdapter(tc.adapter, tc.opts))

			_, err := tt.Get(t.Context(), "/", nil)
			if !errors.Is(err, client.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got: %v", err)
			}
			if hits := tt.hits.Load(); hits != 0 {
				t.Errorf("expected no requests, got %d", hits)
			}
		})
	}
}

func TestClient_AdapterOptions(t *testing.T) {
	tt := newTest(t, http.StatusOK, `{}`)
	tt.Client = rebuild(t, tt, client.WithAdapter(client.AdapterNetHTTP, map[string]any{
		"max_idle_conns":          10,
		"max_idle_conns_per_host": 5,
		"idle_conn_timeout":       30 * time.Second,
	}))

	if _, err := tt.Get(t.Context(), "/", nil); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

// transportFunc adapts a function to a client.Transport.
type transportFunc func(ctx context.Context, call *client.Call) (*client.Response, error)

func (f transportFunc) Send(ctx context.Context, call *client.Call) (*client.Response, error) {
	return f(ctx, call)
}

func TestClient_TransportBuiltOnce(t *testing.T) {
	var built atomic.Int32
	err := client.RegisterAdapter("counting", func(cfg client.TransportConfig) (client.Transport, error) {
		built.Add(1)
		return transportFunc(func(ctx context.Context, call *client.Call) (*client.Response, error) {
			return client.NewResponse(http.StatusOK, http.Header{"Content-Type": {"application/json"}}, []byte(`{"ok":true}`))
		}), nil
	})
	if err != nil {
		t.Fatal(err)
	}

	c, err := client.Build(client.WithAdapter("counting", nil))
	if err != nil {
		t.Fatal(err)
	}
	if built.Load() != 0 {
		t.Fatal("expected transport to be built lazily")
	}

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Get(t.Context(), "/", nil); err != nil {
				t.Errorf("expected no error, got: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := built.Load(); got != 1 {
		t.Errorf("expected transport to be built once, got %d", got)
	}
}

// netTimeout is a net.Error reporting a timeout without a context deadline.
type netTimeout struct{}

func (netTimeout) Error() string   { return "i/o timeout" }
func (netTimeout) Timeout() bool   { return true }
func (netTimeout) Temporary() bool { return true }

func TestClient_NetErrorTimeout(t *testing.T) {
	err := client.RegisterAdapter("net-timeout", func(cfg client.TransportConfig) (client.Transport, error) {
		return transportFunc(func(ctx context.Context, call *client.Call) (*client.Response, error) {
			return nil, fmt.Errorf("exec: %w", netTimeout{})
		}), nil
	})
	if err != nil {
		t.Fatal(err)
	}

	c, err := client.Build(client.WithAdapter("net-timeout", nil))
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Get(t.Context(), "/_nodes{/node}/stats", client.Params{"node": "n1"})

	var timeoutErr *client.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected *TimeoutError, got: %v", err)
	}
	if timeoutErr.Path != "/_nodes/n1/stats" {
		t.Errorf("unexpected path %q", timeoutErr.Path)
	}
}

func TestRegisterAdapter_Validation(t *testing.T) {
	if err := client.RegisterAdapter("", nil); !errors.Is(err, client.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got: %v", err)
	}
}

// roundTripFunc adapts a function to an http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestClient_GatewayHTMLUnderJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "<html>502 Bad Gateway</html>")
	}))
	t.Cleanup(ts.Close)

	for _, adapter := range []string{client.AdapterNetHTTP, client.AdapterResty} {
		t.Run(adapter, func(t *testing.T) {
			c, err := client.Build(client.WithURL(ts.URL), client.WithAdapter(adapter, nil))
			if err != nil {
				t.Fatal(err)
			}

			_, err = c.Get(t.Context(), "/_cluster/health", nil)

			var respErr *client.ResponseError
			if !errors.As(err, &respErr) {
				t.Fatalf("expected *ResponseError, got: %v", err)
			}
			if respErr.StatusCode() != http.StatusBadGateway {
				t.Errorf("expected status 502, got %d", respErr.StatusCode())
			}
			if got := respErr.Response.Body; got != "<html>502 Bad Gateway</html>" {
				t.Errorf("expected raw body to be kept, got %v", got)
			}
		})
	}
}

func TestClient_ThrottleDeadline(t *testing.T) {
	tt := newTest(t, http.StatusOK, `{}`)
	tt.Client = rebuild(t, tt, client.WithThrottle(1, 1))

	if _, err := tt.Get(t.Context(), "/", nil); err != nil {
		t.Fatal(err)
	}

	_, err := tt.Get(t.Context(), "/_search", nil, client.WithRequestTimeout(50*time.Millisecond))

	var timeoutErr *client.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected *TimeoutError, got: %v", err)
	}
	if timeoutErr.Path != "/_search" {
		t.Errorf("unexpected path %q", timeoutErr.Path)
	}
	if hits := tt.hits.Load(); hits != 1 {
		t.Errorf("expected the throttled call to never reach the server, got %d hits", hits)
	}
}

func TestClient_NegativeReadTimeoutParam(t *testing.T) {
	tt := newTest(t, http.StatusOK, `{}`)

	for _, v := range []any{-1, int64(-2), -0.5, "-1s", -time.Second} {
		_, err := tt.Get(t.Context(), "/", client.Params{"read_timeout": v})
		if !errors.Is(err, client.ErrInvalidArgument) {
			t.Errorf("%v: expected ErrInvalidArgument, got: %v", v, err)
		}
	}
	if hits := tt.hits.Load(); hits != 0 {
		t.Errorf("expected no requests, got %d", hits)
	}

	if _, err := tt.Get(t.Context(), "/", client.Params{"read_timeout": 0}); err != nil {
		t.Errorf("expected zero to disable the timeout, got: %v", err)
	}
}

func TestClient_NilResponse(t *testing.T) {
	err := client.RegisterAdapter("silent", func(cfg client.TransportConfig) (client.Transport, error) {
		return transportFunc(func(ctx context.Context, call *client.Call) (*client.Response, error) {
			return nil, nil
		}), nil
	})
	if err != nil {
		t.Fatal(err)
	}

	c, err := client.Build(client.WithAdapter("silent", nil))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Get(t.Context(), "/", nil); !errors.Is(err, client.ErrNoResponse) {
		t.Fatalf("expected ErrNoResponse, got: %v", err)
	}
	if c.Available(t.Context()) {
		t.Error("expected a silent transport to be unavailable")
	}

	tt := newTest(t, http.StatusOK, `{}`, client.WithMiddleware(func(next client.Handler) client.Handler {
		return func(ctx context.Context, call *client.Call) (*client.Response, error) {
			return nil, nil
		}
	}))
	if _, err := tt.Get(t.Context(), "/", nil); !errors.Is(err, client.ErrNoResponse) {
		t.Fatalf("expected ErrNoResponse from middleware, got: %v", err)
	}
}

func TestClient_HeadIgnoresBodySize(t *testing.T) {
	tt := newTest(t, http.StatusOK, "")
	tt.Client = rebuild(t, tt, client.WithMaxRequestSize(4))

	if _, err := tt.Head(t.Context(), "/books", nil, client.WithBody(`{"query":{"match_all":{}}}`)); err != nil {
		t.Fatalf("expected HEAD to drop the body, got: %v", err)
	}
	if got := tt.captured(); got.Body != "" || got.Method != http.MethodHead {
		t.Errorf("unexpected request %+v", got)
	}
}
