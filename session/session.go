// Package session implements the server-side session store. A session is an
// ephemeral identity record correlated with an opaque token the client holds
// in a cookie; the server keeps the actual state. Created on login and
// registration, destroyed on logout and account deletion.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a token does not resolve to a live session.
var ErrNotFound = errors.New("session not found or expired")

// Session is the server-held identity record.
type Session struct {
	Token     string
	UserID    int
	Username  string
	ExpiresAt time.Time
}

// LoggedIn reports whether the session carries an authenticated user.
func (s *Session) LoggedIn() bool {
	return s != nil && s.UserID != 0
}

// Store defines how sessions are persisted and retrieved.
//
// Create and Destroy are synchronous: when they return without error the
// change is durable. Handlers rely on this to emit cookies and response
// bodies strictly after the session state is committed.
type Store interface {
	// Create persists a new session for the user and returns it, token included.
	Create(ctx context.Context, userID int, username string) (*Session, error)
	// Get resolves a token to a live session. Expired or unknown tokens
	// yield ErrNotFound.
	Get(ctx context.Context, token string) (*Session, error)
	// Destroy removes the session. Destroying an unknown token is not an
	// error; destruction is idempotent.
	Destroy(ctx context.Context, token string) error
	// DestroyAllForUser removes every session belonging to the user.
	DestroyAllForUser(ctx context.Context, userID int) error
	// DeleteExpired removes expired sessions and reports how many were deleted.
	DeleteExpired(ctx context.Context) (int64, error)
}
