// File: internal/middleware/constants.go
package middleware

import "context"

// Context keys for middleware communication
type contextKey string

const (
	OwnerIDKey   contextKey = "owner_id"
	RequestIDKey contextKey = "request_id"
)

const (
	RequestIDHeader      = "X-Request-ID"
	InternalSecretHeader = "X-Internal-Secret"
	AuthCookieName       = "auth_token"
)

// WithOwnerID stores the authenticated owner on ctx.
func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, OwnerIDKey, ownerID)
}

// OwnerIDFromContext returns the owner set by the JWT middleware.
func OwnerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(OwnerIDKey).(string)
	return id, ok && id != ""
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
