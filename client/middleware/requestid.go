package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/iRoxx/elastomer-client/client"
)

// OpaqueIDHeader is echoed back by the search server and shows up in its
// task list and slow logs.
const OpaqueIDHeader = "X-Opaque-Id"

// RequestID tags every call lacking one with a random X-Opaque-Id header.
func RequestID() client.Middleware {
	m := func(next client.Handler) client.Handler {
		h := func(ctx context.Context, call *client.Call) (*client.Response, error) {
			if call.Header == nil {
				call.Header = http.Header{}
			}
			if call.Header.Get(OpaqueIDHeader) == "" {
				call.Header.Set(OpaqueIDHeader, uuid.NewString())
			}

			return next(ctx, call)
		}

		return h
	}

	return m
}
