package platform

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// AuthError means the token was rejected or a refresh failed. The
// orchestrator refreshes-and-retries exactly once on it; a second AuthError
// is terminal for that account.
type AuthError struct {
	Platform string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %v", e.Platform, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RateLimitError carries how long the platform asked us to wait. It is never
// retried within the same publish call.
type RateLimitError struct {
	Platform string
	Wait     time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited, try again in %s", e.Platform, HumanizeWait(e.Wait))
}

// ValidationError means the request violates a platform posting rule (missing
// board, missing media, empty self text) and was rejected before any network
// call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// PlatformError is the catch-all for adapter and API failures that are
// neither auth, rate-limit, nor local validation problems.
type PlatformError struct {
	Platform string
	Op       string
	Err      error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Platform, e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error { return e.Err }

// classifyResponse maps an HTTP error response onto the taxonomy. The body is
// read for the error message but callers keep ownership of closing it.
func classifyResponse(platform, op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Platform: platform, Err: fmt.Errorf("%s returned %d: %s", op, resp.StatusCode, body)}
	case http.StatusTooManyRequests:
		return &RateLimitError{Platform: platform, Wait: ParseRetryWait(resp.Header)}
	default:
		return &PlatformError{Platform: platform, Op: op, Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)}
	}
}
