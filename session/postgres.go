package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/techblog-go/apperror"
)

// PostgresStore persists sessions in the sessions table. Tokens are random
// UUIDs, so possession of the token is the whole proof of identity.
type PostgresStore struct {
	db  *pgxpool.Pool
	ttl time.Duration
}

// NewPostgresStore creates a PostgresStore with the given session lifetime.
func NewPostgresStore(db *pgxpool.Pool, ttl time.Duration) *PostgresStore {
	return &PostgresStore{db: db, ttl: ttl}
}

func (s *PostgresStore) Create(ctx context.Context, userID int, username string) (*Session, error) {
	sess := &Session{
		Token:     uuid.New().String(),
		UserID:    userID,
		Username:  username,
		ExpiresAt: time.Now().Add(s.ttl),
	}

	query := `INSERT INTO sessions (token, user_id, username, expires_at)
              VALUES ($1, $2, $3, $4)`
	if _, err := s.db.Exec(ctx, query, sess.Token, sess.UserID, sess.Username, sess.ExpiresAt); err != nil {
		return nil, apperror.NewDatabaseError("failed to create session", err)
	}
	return sess, nil
}

func (s *PostgresStore) Get(ctx context.Context, token string) (*Session, error) {
	var sess Session
	sess.Token = token

	query := `SELECT user_id, username, expires_at FROM sessions WHERE token = $1`
	err := s.db.QueryRow(ctx, query, token).Scan(&sess.UserID, &sess.Username, &sess.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, apperror.NewDatabaseError("failed to load session", err)
	}

	if time.Now().After(sess.ExpiresAt) {
		// Lazy cleanup; the sweeper handles the rest.
		_, _ = s.db.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
		return nil, ErrNotFound
	}
	return &sess, nil
}

func (s *PostgresStore) Destroy(ctx context.Context, token string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return apperror.NewDatabaseError("failed to destroy session", err)
	}
	return nil
}

func (s *PostgresStore) DestroyAllForUser(ctx context.Context, userID int) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return apperror.NewDatabaseError("failed to destroy user sessions", err)
	}
	return nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, apperror.NewDatabaseError("failed to delete expired sessions", err)
	}
	return tag.RowsAffected(), nil
}
