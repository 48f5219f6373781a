package models

import "time"

type Post struct {
	ID               int64     `db:"id" json:"id"`
	UserID           int64     `db:"user_id" json:"user_id"`
	Content          string    `db:"content" json:"content"`
	PostType         string    `db:"post_type" json:"post_type"`
	MediaRefs        []string  `db:"media_refs" json:"media_refs,omitempty"`
	TargetAccountIDs []int64   `db:"target_account_ids" json:"target_account_ids"`
	Status           string    `db:"status" json:"status"`
	ScheduledFor     time.Time `db:"scheduled_for" json:"scheduled_for,omitempty"`
	ErrorMessage     string    `db:"error_message" json:"error_message,omitempty"`
	PublishedAt      time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)

const (
	PostTypeText  = "text"
	PostTypeImage = "image"
	PostTypeVideo = "video"
	PostTypeReel  = "reel"
)

// ValidPostTransition reports whether a Post may move from one status to
// another. Transitions are monotonic: a post never returns to draft, and
// published/failed are terminal.
func ValidPostTransition(from, to string) bool {
	switch from {
	case PostStatusDraft:
		return to == PostStatusScheduled || to == PostStatusPublished || to == PostStatusFailed
	case PostStatusScheduled:
		return to == PostStatusPublished || to == PostStatusFailed
	default:
		return false
	}
}
