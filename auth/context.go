package auth

import (
	"context"

	"github.com/user/techblog-go/session"
)

// contextKey is a private type so this package's context keys cannot
// collide with keys from other packages.
type contextKey string

const sessionContextKey contextKey = "auth_session"

// NewContextWithSession returns a child context carrying the session.
func NewContextWithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SessionFromContext extracts the session placed by SessionMiddleware.
// The bool is false for anonymous requests.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(*session.Session)
	return sess, ok && sess != nil
}

// UserIDFromContext is a shortcut for handlers that only need the acting
// user's id. Returns 0, false for anonymous requests.
func UserIDFromContext(ctx context.Context) (int, bool) {
	sess, ok := SessionFromContext(ctx)
	if !ok || !sess.LoggedIn() {
		return 0, false
	}
	return sess.UserID, true
}
