// File: internal/middleware/internal.go
package middleware

import (
	"crypto/subtle"
	"net"
	"net/http"

	"github.com/iyunix/go-converse/internal/logging"
)

// RequireInternal guards maintenance endpoints. With a configured secret the
// request must carry it in X-Internal-Secret; without one only loopback and
// private-network peers are let through. Forwarding headers are ignored.
func RequireInternal(secret string, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" {
				got := r.Header.Get(InternalSecretHeader)
				if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
					logger.Warn("[InternalMiddleware] rejected request with bad secret",
						"path", r.URL.Path, "remote", r.RemoteAddr)
					writeError(w, http.StatusForbidden, "FORBIDDEN", "forbidden", 0)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if !privatePeer(r.RemoteAddr) {
				logger.Warn("[InternalMiddleware] rejected non-private peer",
					"path", r.URL.Path, "remote", r.RemoteAddr)
				writeError(w, http.StatusForbidden, "FORBIDDEN", "forbidden", 0)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func privatePeer(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate())
}
