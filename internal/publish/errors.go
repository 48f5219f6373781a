package publish

import "errors"

var (
	// ErrNoActiveAccounts means none of the requested target accounts resolved.
	ErrNoActiveAccounts = errors.New("no active accounts resolved for publish")

	// ErrAccountOwnership means a resolved account belongs to another user.
	ErrAccountOwnership = errors.New("target account does not belong to the requesting user")

	ErrPostNotFound = errors.New("post not found")

	// ErrNotScheduled is returned when dispatch is invoked for a post that is
	// not waiting in scheduled status.
	ErrNotScheduled = errors.New("post is not in scheduled status")

	// ErrMediaHostRequired is returned when a post with media is scheduled for
	// later but no media host is configured to hold the bytes until dispatch.
	ErrMediaHostRequired = errors.New("scheduling posts with media requires a configured media host")
)
