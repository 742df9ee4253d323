package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserStore is the slice of user persistence the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// PgxUserStore implements UserStore against the users table.
type PgxUserStore struct {
	db *pgxpool.Pool
}

// NewPgxUserStore creates a PgxUserStore.
func NewPgxUserStore(db *pgxpool.Pool) *PgxUserStore {
	return &PgxUserStore{db: db}
}

// ErrUserNotFound signals a lookup miss; the service decides the HTTP meaning.
var ErrUserNotFound = errors.New("user not found")

func (r *PgxUserStore) CreateUser(ctx context.Context, user *User) (*User, error) {
	query := `INSERT INTO users (username, email, password)
              VALUES ($1, $2, $3)
              RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, user.Username, user.Email, user.HashedPassword).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *PgxUserStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	query := `SELECT id, username, email, password, created_at, updated_at
              FROM users WHERE email = $1`
	err := r.db.QueryRow(ctx, query, strings.ToLower(email)).Scan(
		&user.ID, &user.Username, &user.Email, &user.HashedPassword,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
