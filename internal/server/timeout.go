package server

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware caps the whole request, fan-out included, by deadline on
// the request context. Cancellation is cooperative: the aggregator and ERP
// clients observe ctx.Done(), the handler is not forcibly terminated. A
// non-positive timeout disables the cap.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
