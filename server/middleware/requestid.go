package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/easychat/auth/authctx"
	"github.com/kbukum/easychat/observability"
)

// HeaderRequestID is the correlation id header read from requests and echoed
// on every response.
const HeaderRequestID = "x-request-id"

// RequestID reads the inbound x-request-id or generates a time-ordered one
// (UUIDv7). The id is set on the response headers before inner stages run, so
// short-circuit responses carry it too.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = newRequestID()
				r.Header.Set(HeaderRequestID, id)
			}
			w.Header().Set(HeaderRequestID, id)

			ctx, rc := authctx.Ensure(r.Context())
			rc.RequestID = id
			trace.SpanFromContext(ctx).SetAttributes(attribute.String(observability.AttrRequestID, id))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
