package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/iRoxx/elastomer-client/client"
)

// Logger logs a line before and after every call.
func Logger(log *slog.Logger) client.Middleware {
	m := func(next client.Handler) client.Handler {
		h := func(ctx context.Context, call *client.Call) (*client.Response, error) {
			start := time.Now()

			log.InfoContext(ctx, "request started", "method", call.Verb.String(), "path", call.Path, "action", call.Action)

			resp, err := next(ctx, call)
			if err != nil {
				log.ErrorContext(ctx, "request failed", "method", call.Verb.String(), "path", call.Path, "action", call.Action, "since", time.Since(start).String(), "error", err)
				return resp, err
			}

			log.InfoContext(ctx, "request completed", "method", call.Verb.String(), "path", call.Path, "action", call.Action, "statusCode", resp.StatusCode, "since", time.Since(start).String())

			return resp, nil
		}

		return h
	}

	return m
}
