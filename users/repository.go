package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/techblog-go/auth"
)

// CredentialUpdate names the columns a credential change may set. Nil fields
// are left untouched.
type CredentialUpdate struct {
	Username     *string
	Email        *string
	PasswordHash *string
}

// Repository is the user persistence surface the account service needs.
type Repository interface {
	List(ctx context.Context) ([]auth.User, error)
	GetByID(ctx context.Context, id int) (*auth.User, error)
	// UpdateCredentials runs check against the stored password hash and, if
	// it passes, applies the update, all inside one transaction with the
	// row locked, so concurrent credential changes serialize instead of
	// interleaving. The error from check is returned unchanged.
	UpdateCredentials(ctx context.Context, id int, check func(storedHash string) error, set CredentialUpdate) (*auth.User, error)
	Delete(ctx context.Context, id int) error
}

// PgxRepository implements Repository against the users table.
type PgxRepository struct {
	db *pgxpool.Pool
}

// NewPgxRepository creates a PgxRepository.
func NewPgxRepository(db *pgxpool.Pool) *PgxRepository {
	return &PgxRepository{db: db}
}

func (r *PgxRepository) List(ctx context.Context) ([]auth.User, error) {
	query := `SELECT id, username, email, created_at, updated_at
              FROM users ORDER BY id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []auth.User
	for rows.Next() {
		var u auth.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PgxRepository) GetByID(ctx context.Context, id int) (*auth.User, error) {
	var user auth.User
	query := `SELECT id, username, email, password, created_at, updated_at
              FROM users WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.HashedPassword,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *PgxRepository) UpdateCredentials(ctx context.Context, id int, check func(storedHash string) error, set CredentialUpdate) (*auth.User, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var storedHash string
	err = tx.QueryRow(ctx, `SELECT password FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&storedHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}

	if err := check(storedHash); err != nil {
		return nil, err
	}

	var setClauses []string
	var args []interface{}
	argID := 1
	if set.Username != nil {
		setClauses = append(setClauses, fmt.Sprintf("username = $%d", argID))
		args = append(args, *set.Username)
		argID++
	}
	if set.Email != nil {
		setClauses = append(setClauses, fmt.Sprintf("email = $%d", argID))
		args = append(args, *set.Email)
		argID++
	}
	if set.PasswordHash != nil {
		setClauses = append(setClauses, fmt.Sprintf("password = $%d", argID))
		args = append(args, *set.PasswordHash)
		argID++
	}
	if len(setClauses) == 0 {
		return nil, fmt.Errorf("no credential fields to update")
	}
	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d
              RETURNING id, username, email, created_at, updated_at`,
		strings.Join(setClauses, ", "), argID)

	var user auth.User
	err = tx.QueryRow(ctx, query, args...).Scan(
		&user.ID, &user.Username, &user.Email, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PgxRepository) Delete(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}
