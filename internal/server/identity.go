package server

import (
	"context"
	"net/http"
	"strings"
)

// UserIDHeader is set by the upstream authentication layer.
const UserIDHeader = "X-User-ID"

type userIDKey struct{}

// IdentityMiddleware reads the caller identity from X-User-ID. A missing
// header leaves the request unauthenticated; handlers decide whether that
// is acceptable.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}
		AddLogField(r.Context(), "user_id", userID)
		ctx := context.WithValue(r.Context(), userIDKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the caller identity, or "" when unauthenticated.
func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey{}).(string); ok {
		return id
	}
	return ""
}
