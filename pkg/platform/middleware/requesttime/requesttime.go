// Package requesttime stamps each request with one timestamp so every event
// a request produces shares the same occurred_at.
package requesttime

import (
	"net/http"
	"time"

	"tipjar/pkg/requestcontext"
)

// Middleware stamps requests with the wall clock in UTC.
func Middleware(next http.Handler) http.Handler {
	return WithClock(time.Now)(next)
}

// WithClock returns middleware that stamps requests using clock.
func WithClock(clock func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), clock().UTC())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
