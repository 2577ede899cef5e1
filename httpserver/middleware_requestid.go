package httpserver

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader is the header carrying the request ID.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds inbound IDs so a hostile client cannot
// inflate logs and span attributes.
const maxRequestIDLength = 128

type requestIDKey struct{}

// RequestID returns middleware that ensures every request has an ID: an
// inbound X-Request-ID is forwarded, anything else gets a fresh UUID.
// The ID is echoed on the response and stored in the request context,
// where the tracing middleware picks it up as a span attribute.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > maxRequestIDLength {
				id = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, id)

			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext returns the request ID, or "" when the RequestID
// middleware did not run.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
