package ports

import (
	"net/http"

	"github.com/Amund211/blitzstats/internal/ratelimiting"
)

// NewRateLimitMiddleware rejects requests whose key has no tokens left.
// onLimitExceeded receives the key that was refused.
func NewRateLimitMiddleware(
	rateLimiter ratelimiting.RequestRateLimiter,
	onLimitExceeded func(w http.ResponseWriter, r *http.Request, key string),
) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !rateLimiter.Consume(r) {
				onLimitExceeded(w, r, rateLimiter.KeyFor(r))
				return
			}

			next(w, r)
		}
	}
}

// ComposeMiddlewares chains middlewares so the first one is outermost
func ComposeMiddlewares(middlewares ...func(http.HandlerFunc) http.HandlerFunc) func(http.HandlerFunc) http.HandlerFunc {
	return func(h http.HandlerFunc) http.HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			h = middlewares[i](h)
		}
		return h
	}
}
