// File: internal/middleware/ratelimit.go
package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/iyunix/go-converse/internal/logging"
	"github.com/iyunix/go-converse/internal/ratelimit"
)

// RateLimitMiddleware spends one token per request, keyed by owner when the
// request is authenticated and by client IP otherwise.
func RateLimitMiddleware(limiter *ratelimit.MemoryRateLimiter, name string, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier, ok := OwnerIDFromContext(r.Context())
			if ok {
				identifier = "owner:" + identifier
			} else {
				identifier = "ip:" + ratelimit.GetClientIP(r)
			}

			allowed, info := limiter.Allow(name + ":" + identifier)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))

			if !allowed {
				retryAfter := int(math.Ceil(info.RetryAfter.Seconds()))
				logger.Warn("[RateLimit] blocked request",
					"limiter", name,
					"key", identifier,
					"retry_after_s", retryAfter,
					"request_id", RequestIDFromContext(r.Context()))

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", retryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
