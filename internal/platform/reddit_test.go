package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialcast-io/socialcast/internal/media"
)

func testRedditAdapter(serverURL string) *redditAdapter {
	return &redditAdapter{
		client:     &http.Client{Timeout: 5 * time.Second},
		userAgent:  "socialcast-test/1.0",
		apiBaseURL: serverURL,
		tokenURL:   serverURL + "/api/v1/access_token",
	}
}

func TestRedditRejectsEmptySelfPost(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	a := testRedditAdapter(server.URL)
	_, err := a.Publish(context.Background(), Session{Username: "bob", Token: "t"}, PublishInput{
		Content: "   \n\t ",
	})
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestRedditSubmitsSelfPostToProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/submit", r.URL.Path)
		assert.Equal(t, "socialcast-test/1.0", r.Header.Get("User-Agent"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "self", r.PostForm.Get("kind"))
		assert.Equal(t, "u_bob", r.PostForm.Get("sr"))
		assert.Equal(t, "first line", r.PostForm.Get("title"))
		assert.Equal(t, "first line\nsecond line", r.PostForm.Get("text"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"json": map[string]interface{}{
				"errors": []interface{}{},
				"data":   map[string]string{"name": "t3_abc"},
			},
		})
	}))
	defer server.Close()

	a := testRedditAdapter(server.URL)
	name, err := a.Publish(context.Background(), Session{Username: "bob", Token: "t"}, PublishInput{
		Content: "first line\nsecond line",
	})
	require.NoError(t, err)
	assert.Equal(t, "t3_abc", name)
}

func TestRedditSubmitsLinkPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "link", r.PostForm.Get("kind"))
		assert.Equal(t, "https://example.com/article", r.PostForm.Get("url"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"json": map[string]interface{}{
				"errors": []interface{}{},
				"data":   map[string]string{"name": "t3_link"},
			},
		})
	}))
	defer server.Close()

	a := testRedditAdapter(server.URL)
	name, err := a.Publish(context.Background(), Session{Username: "bob", Token: "t"}, PublishInput{
		Content: "check this out",
		LinkURL: "https://example.com/article",
	})
	require.NoError(t, err)
	assert.Equal(t, "t3_link", name)
}

func TestRedditSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"json": map[string]interface{}{
				"errors": [][]string{{"RATELIMIT", "you are doing that too much"}},
			},
		})
	}))
	defer server.Close()

	a := testRedditAdapter(server.URL)
	_, err := a.Publish(context.Background(), Session{Username: "bob", Token: "t"}, PublishInput{
		Content: "hello",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATELIMIT")
}

func TestRedditUploadMediaUnsupported(t *testing.T) {
	a := testRedditAdapter("http://unreachable.invalid")
	f := &media.File{Name: "p.jpg", MimeType: "image/jpeg", Size: 1, Data: []byte{0}}

	_, err := a.UploadMedia(context.Background(), Session{Token: "t"}, f)
	require.Error(t, err)

	var uploadErr *media.UploadError
	assert.ErrorAs(t, err, &uploadErr)
}

func TestRedditPostTitle(t *testing.T) {
	assert.Equal(t, "hello", postTitle("hello\nworld"))
	assert.Equal(t, "trimmed", postTitle("  trimmed  "))

	long := strings.Repeat("a", 400)
	assert.Len(t, postTitle(long), 300)
}
