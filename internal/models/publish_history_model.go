package models

import "time"

// PublishAttempt is the per-account outcome of a single fan-out. It is
// returned to the caller and mirrored into publish_history, but is not a
// long-lived record in its own right.
type PublishAttempt struct {
	AccountID      int64  `json:"account_id"`
	Platform       string `json:"platform"`
	Success        bool   `json:"success"`
	PlatformPostID string `json:"result,omitempty"`
	Error          string `json:"error,omitempty"`
}

type PublishHistory struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	PostID         int64     `db:"post_id" json:"post_id"`
	AccountID      int64     `db:"account_id" json:"account_id"`
	PlatformPostID string    `db:"platform_post_id" json:"platform_post_id"`
	ErrorMessage   string    `db:"error_message" json:"error_message"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
