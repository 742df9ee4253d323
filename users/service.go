package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/techblog-go/apperror"
	"github.com/user/techblog-go/auth"
	"github.com/user/techblog-go/session"
)

const pgUniqueViolation = "23505"

// UserService provides account management operations. Every credential
// change re-verifies the current password before writing; the repository
// makes the verify-then-write atomic.
type UserService struct {
	repo     Repository
	sessions session.Store
}

// NewUserService creates a new UserService.
func NewUserService(repo Repository, sessions session.Store) *UserService {
	return &UserService{repo: repo, sessions: sessions}
}

// ListUsers returns all users. The password never leaves the repository
// here; the query does not select it.
func (s *UserService) ListUsers(ctx context.Context) ([]auth.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list users", err)
	}
	return users, nil
}

// GetPublicUser returns the public shape of one user.
func (s *UserService) GetPublicUser(ctx context.Context, id int) (*PublicUserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, apperror.NewNotFoundError("No user found with this ID", nil)
		}
		return nil, apperror.NewDatabaseError("failed to get user", err)
	}
	return &PublicUserResponse{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	}, nil
}

// UpdatePassword verifies the old password and stores a hash of the new one.
func (s *UserService) UpdatePassword(ctx context.Context, userID int, req UpdatePasswordRequest) (*auth.User, error) {
	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.NewInternalError("failed to hash password", err)
	}

	hashStr := string(newHash)
	user, err := s.repo.UpdateCredentials(ctx, userID,
		checkPassword(req.OldPassword, "Old password is incorrect"),
		CredentialUpdate{PasswordHash: &hashStr},
	)
	if err != nil {
		return nil, s.mapUpdateError(err)
	}
	return user, nil
}

// UpdateUsername verifies the current password and sets the new username.
// The password hash is left untouched; re-writing it with the same value
// would be a pointless extra hash.
func (s *UserService) UpdateUsername(ctx context.Context, userID int, req UpdateUsernameRequest) (*auth.User, error) {
	user, err := s.repo.UpdateCredentials(ctx, userID,
		checkPassword(req.Password, "Incorrect password"),
		CredentialUpdate{Username: &req.Username},
	)
	if err != nil {
		return nil, s.mapUpdateError(err)
	}
	return user, nil
}

// UpdateEmail verifies the current password and sets the new email.
func (s *UserService) UpdateEmail(ctx context.Context, userID int, req UpdateEmailRequest) (*auth.User, error) {
	email := strings.ToLower(req.Email)
	user, err := s.repo.UpdateCredentials(ctx, userID,
		checkPassword(req.Password, "Incorrect password"),
		CredentialUpdate{Email: &email},
	)
	if err != nil {
		return nil, s.mapUpdateError(err)
	}
	return user, nil
}

// DeleteAccount verifies the password, deletes the user row (posts cascade
// with it), and destroys every session of that user. The caller's cookie is
// meaningless once this returns.
func (s *UserService) DeleteAccount(ctx context.Context, userID int, password string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return apperror.NewNotFoundError("No user found with this ID", nil)
		}
		return apperror.NewDatabaseError("failed to get user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return apperror.NewBadRequestError("Incorrect password", nil)
	}

	if err := s.repo.Delete(ctx, userID); err != nil {
		return apperror.NewDatabaseError("failed to delete user", err)
	}
	if err := s.sessions.DestroyAllForUser(ctx, userID); err != nil {
		return err
	}
	return nil
}

// checkPassword builds the verify callback the repository runs against the
// stored hash inside the update transaction.
func checkPassword(plaintext, wrongMessage string) func(storedHash string) error {
	return func(storedHash string) error {
		if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)); err != nil {
			return apperror.NewBadRequestError(wrongMessage, nil)
		}
		return nil
	}
}

func (s *UserService) mapUpdateError(err error) error {
	if _, ok := apperror.FromError(err); ok {
		return err
	}
	if errors.Is(err, auth.ErrUserNotFound) {
		return apperror.NewNotFoundError("No user found with this ID", nil)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		if strings.Contains(pgErr.ConstraintName, "username") {
			return apperror.NewConflictError("username already exists", nil)
		}
		if strings.Contains(pgErr.ConstraintName, "email") {
			return apperror.NewConflictError("email already exists", nil)
		}
		return apperror.NewConflictError(fmt.Sprintf("unique constraint violated: %s", pgErr.ConstraintName), nil)
	}
	return apperror.NewDatabaseError("failed to update user", err)
}
