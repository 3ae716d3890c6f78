package middleware

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/tuanvumaihuynh/product-tracker/internal/apperr"
)

// ErrorHandlerFunc writes err as the response.
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)

// RateLimit rejects requests above limit per second (with the given burst)
// across all clients.
func RateLimit(limit float64, burst int, onError ErrorHandlerFunc) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(limit), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				onError(w, r, apperr.TooManyRequestsErr)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
