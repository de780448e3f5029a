package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/tracing"
)

// Trace opens a root span per request, keyed by the request ID, and logs
// the span tree when the request takes at least slow. Run it inside
// RequestID.
func Trace(slow time.Duration) func(http.Handler) http.Handler {
	l := slog.Default().With("component", "trace")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.StartSpan(r.Context(), r.Method+" "+normalizePath(r.URL.Path), GetRequestID(r.Context()))
			next.ServeHTTP(w, r.WithContext(ctx))
			span.End()
			if span.Duration >= slow {
				span.Log(l)
			}
		})
	}
}
