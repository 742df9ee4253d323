package posts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPostNotFound signals a lookup miss; the service decides the HTTP meaning.
var ErrPostNotFound = errors.New("post not found")

// Repository is the post persistence surface the service needs.
type Repository interface {
	ListWithOwners(ctx context.Context) ([]PostWithOwner, error)
	GetByID(ctx context.Context, id int) (*PostWithOwner, error)
	GetOwnerID(ctx context.Context, id int) (int, error)
	Create(ctx context.Context, userID int, title, content string) (*Post, error)
	Update(ctx context.Context, id int, title, content string) (*Post, error)
	Delete(ctx context.Context, id int) error
}

// PgxRepository implements Repository against the posts table.
type PgxRepository struct {
	db *pgxpool.Pool
}

// NewPgxRepository creates a PgxRepository.
func NewPgxRepository(db *pgxpool.Pool) *PgxRepository {
	return &PgxRepository{db: db}
}

// ListWithOwners returns every post joined with its owner, most recently
// updated first. The home feed depends on this ordering.
func (r *PgxRepository) ListWithOwners(ctx context.Context) ([]PostWithOwner, error) {
	query := `SELECT p.id, p.title, p.content, p.user_id, p.created_at, p.updated_at,
                     u.id, u.username
              FROM posts p
              JOIN users u ON u.id = p.user_id
              ORDER BY p.updated_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PostWithOwner
	for rows.Next() {
		var p PostWithOwner
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Content, &p.UserID, &p.CreatedAt, &p.UpdatedAt,
			&p.User.ID, &p.User.Username,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PgxRepository) GetByID(ctx context.Context, id int) (*PostWithOwner, error) {
	var p PostWithOwner
	query := `SELECT p.id, p.title, p.content, p.user_id, p.created_at, p.updated_at,
                     u.id, u.username
              FROM posts p
              JOIN users u ON u.id = p.user_id
              WHERE p.id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.Content, &p.UserID, &p.CreatedAt, &p.UpdatedAt,
		&p.User.ID, &p.User.Username,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgxRepository) GetOwnerID(ctx context.Context, id int) (int, error) {
	var ownerID int
	err := r.db.QueryRow(ctx, `SELECT user_id FROM posts WHERE id = $1`, id).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrPostNotFound
		}
		return 0, err
	}
	return ownerID, nil
}

func (r *PgxRepository) Create(ctx context.Context, userID int, title, content string) (*Post, error) {
	var p Post
	query := `INSERT INTO posts (title, content, user_id)
              VALUES ($1, $2, $3)
              RETURNING id, title, content, user_id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, title, content, userID).Scan(
		&p.ID, &p.Title, &p.Content, &p.UserID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PgxRepository) Update(ctx context.Context, id int, title, content string) (*Post, error) {
	var p Post
	query := `UPDATE posts SET title = $1, content = $2, updated_at = now()
              WHERE id = $3
              RETURNING id, title, content, user_id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, title, content, id).Scan(
		&p.ID, &p.Title, &p.Content, &p.UserID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgxRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}
