package httputil

import (
	"context"
	"net/http"
)

// Context key type to avoid collisions.
type contextKey string

const (
	userIDKey contextKey = "userID"
	rolesKey  contextKey = "roles"
)

// WithIdentity attaches the authenticated user id and role tags to the
// request context.
func WithIdentity(r *http.Request, userID string, roles []string) *http.Request {
	ctx := context.WithValue(r.Context(), userIDKey, userID)
	ctx = context.WithValue(ctx, rolesKey, roles)
	return r.WithContext(ctx)
}

// GetUserID retrieves the authenticated user id, empty for anonymous
// requests.
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

// HasRole reports whether the request carries the given role tag.
func HasRole(r *http.Request, role string) bool {
	roles, _ := r.Context().Value(rolesKey).([]string)
	for _, have := range roles {
		if have == role {
			return true
		}
	}
	return false
}
