package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/socialcast-io/socialcast/internal/models"
)

type PublishHistoryRepository interface {
	Create(ctx context.Context, h *models.PublishHistory) (int64, error)
	ListByPostID(ctx context.Context, userID, postID int64) ([]*models.PublishHistory, error)
}

type publishHistoryRepository struct {
	db *sql.DB
}

func NewPublishHistoryRepository(db *sql.DB) PublishHistoryRepository {
	return &publishHistoryRepository{db: db}
}

func (r *publishHistoryRepository) Create(ctx context.Context, h *models.PublishHistory) (int64, error) {
	var id int64

	query := `
			INSERT INTO publish_history(
				user_id,
				post_id,
				account_id,
				platform_post_id,
				error_message
			)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`

	err := r.db.QueryRowContext(ctx, query,
		h.UserID,
		h.PostID,
		h.AccountID,
		h.PlatformPostID,
		h.ErrorMessage,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *publishHistoryRepository) ListByPostID(ctx context.Context, userID, postID int64) ([]*models.PublishHistory, error) {
	query := `SELECT id, user_id, post_id, account_id, platform_post_id, error_message, created_at
			FROM publish_history WHERE user_id = $1 AND post_id = $2`
	rows, err := r.db.QueryContext(ctx, query, userID, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var history []*models.PublishHistory
	for rows.Next() {
		var h models.PublishHistory
		err := rows.Scan(&h.ID, &h.UserID, &h.PostID, &h.AccountID, &h.PlatformPostID,
			&h.ErrorMessage, &h.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		history = append(history, &h)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return history, nil
}
