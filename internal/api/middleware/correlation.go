package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const correlationHeader = "X-Correlation-ID"

type ctxKey int

const correlationKey ctxKey = iota

// CorrelationID tags every request with a correlation ID: the caller's
// X-Correlation-ID header when present, a fresh UUID otherwise. The ID is
// placed on the request context and echoed in the response header, so a
// schedule call can be traced from its HTTP log line to the delivery log
// lines it eventually produces.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(correlationHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(correlationHeader, id)
		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), correlationKey, id)))
	})
}

// GetCorrelationID returns the request's correlation ID, or "" when the
// middleware did not run.
func GetCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey).(string)
	return id
}
