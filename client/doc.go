// Package client sends requests to a REST-style search server.
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithURL("http://search.internal:9200"),
//		client.WithReadTimeout(10*time.Second),
//		client.WithUserAgent("indexer/1.0"),
//	)
//
// Connection settings can also come from the environment with
// [ConfigFromEnv] and [WithConfig].
//
// # Making Requests
//
// Paths are RFC 6570 URI templates. Params fill template variables and
// whatever the template does not name becomes the query string:
//
//	resp, err := c.Get(ctx, "/{index}/_search", client.Params{
//		"index": "books",
//		"q":     "title:go",
//	})
//	total := resp.Get("hits.total.value").Int()
//
// The "body", "read_timeout" and "action" params are consumed by the
// pipeline and never sent. The same settings are available as
// [RequestOption] values, which win over params:
//
//	resp, err := c.Put(ctx, "/{index}/_doc/{id}", client.Params{"index": "books", "id": "1"},
//		client.WithBody(doc),
//		client.WithRequestTimeout(time.Second),
//	)
//
// A slice body is sent as newline-delimited JSON for bulk endpoints.
//
// # Errors
//
// Any response with status 500 or above, or with a truthy top-level
// "error" field, is returned as a [*ResponseError] wrapping [ErrResponse].
// Expired deadlines are returned as a [*TimeoutError] wrapping [ErrTimeout].
//
// # Transports
//
// Requests go through a named adapter, [AdapterNetHTTP] by default or
// [AdapterResty]. Custom adapters are added with [RegisterAdapter].
// Cross-cutting behavior wraps the pipeline as [Middleware]; see the
// [github.com/iRoxx/elastomer-client/client/middleware] package.
package client
