package middleware

import (
	"net/http"

	"audioshelf/internal/observability"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// RequestLogContext copies chi's request ID into the logging context so
// every logger obtained via observability.FromContext tags its lines with
// request_id. Must run after chi's RequestID middleware.
func RequestLogContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := chimiddleware.GetReqID(r.Context()); reqID != "" {
			r = r.WithContext(observability.WithRequestID(r.Context(), reqID))
		}
		next.ServeHTTP(w, r)
	})
}
