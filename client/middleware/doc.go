// Package middleware provides ready-made [client.Middleware] stages that
// wrap every transport call of a [client.Client]:
//
//	c, err := client.Build(
//		client.WithMiddleware(
//			middleware.RequestID(),
//			middleware.Tracing(tracer),
//			middleware.Logger(slog.Default()),
//			middleware.Metrics(collectors),
//		),
//	)
//
// Stages see the raw response before it is classified, so a 5XX reply
// reaches them as a response rather than an error.
package middleware
