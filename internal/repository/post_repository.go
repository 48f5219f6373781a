package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/socialcast-io/socialcast/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, p *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	SetStatus(ctx context.Context, id int64, status string) error
	SetOutcome(ctx context.Context, id int64, status, errorMessage string, publishedAt time.Time) error
	Remove(ctx context.Context, userID, postID int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, p *models.Post) (int64, error) {
	var err error
	var id int64

	var insertQuery = `
			INSERT INTO posts(
				user_id,
				content,
				post_type,
				media_refs,
				target_account_ids,
				status,
				scheduled_for
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`

	if tx != nil {
		err = tx.QueryRowContext(ctx, insertQuery,
			p.UserID,
			p.Content,
			p.PostType,
			pq.Array(p.MediaRefs),
			pq.Array(p.TargetAccountIDs),
			p.Status,
			p.ScheduledFor,
		).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, insertQuery,
			p.UserID,
			p.Content,
			p.PostType,
			pq.Array(p.MediaRefs),
			pq.Array(p.TargetAccountIDs),
			p.Status,
			p.ScheduledFor,
		).Scan(&id)
	}

	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT id, user_id, content, post_type, media_refs, target_account_ids,
			status, scheduled_for, error_message, published_at, created_at, updated_at
			FROM posts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var p models.Post
	err := row.Scan(&p.ID, &p.UserID, &p.Content, &p.PostType, pq.Array(&p.MediaRefs),
		pq.Array(&p.TargetAccountIDs), &p.Status, &p.ScheduledFor, &p.ErrorMessage,
		&p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &p, nil
}

func (r *postRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT id, user_id, content, post_type, media_refs, target_account_ids,
			status, scheduled_for, error_message, published_at, created_at, updated_at
			FROM posts WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		var p models.Post
		err := rows.Scan(&p.ID, &p.UserID, &p.Content, &p.PostType, pq.Array(&p.MediaRefs),
			pq.Array(&p.TargetAccountIDs), &p.Status, &p.ScheduledFor, &p.ErrorMessage,
			&p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, &p)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return posts, nil
}

func (r *postRepository) SetStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE posts SET status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) SetOutcome(ctx context.Context, id int64, status, errorMessage string, publishedAt time.Time) error {
	query := `UPDATE posts
			SET status = $2, error_message = $3, published_at = $4, updated_at = CURRENT_TIMESTAMP
			WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, status, errorMessage, publishedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) Remove(ctx context.Context, userID, postID int64) error {
	query := `DELETE FROM posts WHERE id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, postID, userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
