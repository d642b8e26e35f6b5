package middleware

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/iRoxx/elastomer-client/client"
)

// Tracing starts a client span per call and injects the trace context into
// the outgoing headers. A nil tracer falls back to a no-op tracer.
func Tracing(tracer trace.Tracer) client.Middleware {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("no-op tracer")
	}

	m := func(next client.Handler) client.Handler {
		h := func(ctx context.Context, call *client.Call) (*client.Response, error) {
			name := call.Action
			if name == "" {
				name = call.Verb.String()
			}

			ctx, span := tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
			defer span.End()

			span.SetAttributes(
				attribute.String("http.request.method", call.Verb.String()),
				attribute.String("db.operation.name", call.Action),
			)
			if call.URL != nil {
				span.SetAttributes(attribute.String("url.full", call.URL.String()))
			}

			if call.Header == nil {
				call.Header = http.Header{}
			}
			otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(call.Header))

			resp, err := next(ctx, call)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return resp, err
			}

			span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
			if resp.StatusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
			}

			return resp, nil
		}

		return h
	}

	return m
}
