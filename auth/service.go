// Package auth is responsible for authentication: registration, login,
// logout, and the session guards. The session itself lives in the session
// package; this package decides when sessions come and go.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/techblog-go/apperror"
	"github.com/user/techblog-go/session"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pgUniqueViolation = "23505"

// AuthService provides authentication-related services.
type AuthService struct {
	users    UserStore
	sessions session.Store
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, sessions session.Store) *AuthService {
	return &AuthService{users: users, sessions: sessions}
}

// Register creates a new user and immediately logs them in. The returned
// session is only handed back after the store has committed it, so callers
// can safely describe the new identity in their response.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*User, *session.Session, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, apperror.NewInternalError("failed to hash password", err)
	}

	user := &User{
		Username:       req.Username,
		Email:          strings.ToLower(req.Email),
		HashedPassword: string(hashedPassword),
	}

	createdUser, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return nil, nil, mapUniqueViolation(err, "failed to create user")
	}

	sess, err := s.sessions.Create(ctx, createdUser.ID, createdUser.Username)
	if err != nil {
		return nil, nil, err
	}
	return createdUser, sess, nil
}

// Login authenticates a user by email and password and opens a session.
// An unknown email and a wrong password are reported distinctly; the
// client UI depends on the two messages.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*User, *session.Session, error) {
	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, apperror.NewNotFoundError("No user found with this email address", nil)
		}
		return nil, nil, apperror.NewDatabaseError("failed to get user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		return nil, nil, apperror.NewBadRequestError("Incorrect password", nil)
	}

	sess, err := s.sessions.Create(ctx, user.ID, user.Username)
	if err != nil {
		return nil, nil, err
	}
	return user, sess, nil
}

// Logout destroys the session; destroying an already-gone session succeeds.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

// mapUniqueViolation converts a users-table unique violation into the
// matching conflict error, or wraps anything else as a database error.
func mapUniqueViolation(err error, fallback string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		if strings.Contains(pgErr.ConstraintName, "username") {
			return apperror.NewConflictError("username already exists", nil)
		}
		if strings.Contains(pgErr.ConstraintName, "email") {
			return apperror.NewConflictError("email already exists", nil)
		}
	}
	return apperror.NewDatabaseError(fallback, err)
}
