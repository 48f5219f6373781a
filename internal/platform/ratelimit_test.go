package platform

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRetryWait(t *testing.T) {
	t.Run("retry-after seconds", func(t *testing.T) {
		h := http.Header{}
		h.Set("Retry-After", "120")
		assert.Equal(t, 120*time.Second, ParseRetryWait(h))
	})

	t.Run("retry-after http date", func(t *testing.T) {
		h := http.Header{}
		h.Set("Retry-After", time.Now().Add(90*time.Second).UTC().Format(http.TimeFormat))
		wait := ParseRetryWait(h)
		assert.Greater(t, wait, 80*time.Second)
		assert.LessOrEqual(t, wait, 90*time.Second)
	})

	t.Run("rate limit reset epoch", func(t *testing.T) {
		h := http.Header{}
		h.Set("x-rate-limit-reset", strconv.FormatInt(time.Now().Add(5*time.Minute).Unix(), 10))
		wait := ParseRetryWait(h)
		assert.Greater(t, wait, 4*time.Minute)
		assert.LessOrEqual(t, wait, 5*time.Minute)
	})

	t.Run("no headers falls back to default", func(t *testing.T) {
		assert.Equal(t, DefaultRetryWait, ParseRetryWait(http.Header{}))
	})

	t.Run("garbage retry-after falls back to default", func(t *testing.T) {
		h := http.Header{}
		h.Set("Retry-After", "soon")
		assert.Equal(t, DefaultRetryWait, ParseRetryWait(h))
	})
}

func TestHumanizeWait(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{120 * time.Second, "2 minutes"},
		{60 * time.Second, "1 minute"},
		{90 * time.Second, "90 seconds"},
		{time.Second, "1 second"},
		{900 * time.Second, "15 minutes"},
		{0, "15 minutes"}, // default wait
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HumanizeWait(tt.d))
	}
}

func TestRateLimitErrorMessage(t *testing.T) {
	err := &RateLimitError{Platform: "x", Wait: 120 * time.Second}
	assert.Contains(t, err.Error(), "2 minutes")
}
