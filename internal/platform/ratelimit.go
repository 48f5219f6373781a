package platform

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// DefaultRetryWait applies when a 429 carries no usable reset information.
const DefaultRetryWait = 900 * time.Second

// ParseRetryWait extracts a wait duration from rate-limit response headers.
// Retry-After wins (seconds or HTTP date), then the platform's reset epoch,
// then the default.
func ParseRetryWait(h http.Header) time.Duration {
	if retryAfter := h.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
		if t, err := http.ParseTime(retryAfter); err == nil {
			if d := time.Until(t); d > 0 {
				return d
			}
		}
	}

	for _, name := range []string{"x-rate-limit-reset", "X-RateLimit-Reset"} {
		if reset := h.Get(name); reset != "" {
			if epoch, err := strconv.ParseInt(reset, 10, 64); err == nil {
				if d := time.Until(time.Unix(epoch, 0)); d > 0 {
					return d
				}
			}
		}
	}

	return DefaultRetryWait
}

// HumanizeWait renders a wait duration the way a user reads it: whole minutes
// when it divides evenly, otherwise seconds.
func HumanizeWait(d time.Duration) string {
	if d <= 0 {
		d = DefaultRetryWait
	}

	seconds := int(d.Round(time.Second).Seconds())
	if seconds >= 60 && seconds%60 == 0 {
		minutes := seconds / 60
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	if seconds == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%d seconds", seconds)
}
