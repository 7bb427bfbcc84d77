package httputil

import (
	"context"
	"net/http"
)

// Unexported key type keeps context values collision-free.
type contextKey string

const userIDKey contextKey = "userID"

// WithUserID returns a shallow copy of the request whose context
// carries the authenticated user's id.
func WithUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
}

// GetUserID reads the authenticated user id from the request context.
// Empty string means the auth middleware never ran.
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}
