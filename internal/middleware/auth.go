// File: internal/middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/iyunix/go-converse/internal/auth"
	"github.com/iyunix/go-converse/internal/logging"
)

// NewJWTMiddleware resolves the owner from a bearer token, falling back to
// the auth cookie. Requests without a valid token get 401.
func NewJWTMiddleware(secret []byte, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if cookie, err := r.Cookie(AuthCookieName); err == nil {
					token = cookie.Value
				}
			}
			if token == "" {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", 0)
				return
			}

			ownerID, err := auth.ValidateToken(token, secret)
			if err != nil {
				logger.Warn("[AuthMiddleware] invalid token",
					"path", r.URL.Path,
					"request_id", RequestIDFromContext(r.Context()),
					"error", err)
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token", 0)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOwnerID(r.Context(), ownerID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
