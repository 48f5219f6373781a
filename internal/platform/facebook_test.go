package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialcast-io/socialcast/internal/media"
)

func testFacebookAdapter(serverURL string) *facebookAdapter {
	return &facebookAdapter{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: serverURL,
	}
}

func fbPagesResponse(w http.ResponseWriter) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data": []map[string]string{{"id": "page-1", "access_token": "page-token"}},
	})
}

func TestFacebookPublishWithoutPageFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/accounts", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
	}))
	defer server.Close()

	a := testFacebookAdapter(server.URL)
	_, err := a.Publish(context.Background(), Session{Token: "t"}, PublishInput{Content: "hi"})
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Error(), "no pages")
}

func TestFacebookPhotoUploadThenFeedPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/me/accounts":
			fbPagesResponse(w)
		case "/page-1/photos":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "page-token", r.FormValue("access_token"))
			assert.Equal(t, "false", r.FormValue("published"))
			json.NewEncoder(w).Encode(map[string]string{"id": "photo-1"})
		case "/page-1/feed":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "hello page", r.PostForm.Get("message"))
			assert.Equal(t, `{"media_fbid":"photo-1"}`, r.PostForm.Get("attached_media[0]"))
			json.NewEncoder(w).Encode(map[string]string{"id": "feed-post-1"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	a := testFacebookAdapter(server.URL)
	s := Session{Token: "user-token"}

	f := &media.File{Name: "pic.jpg", MimeType: "image/jpeg", Size: 3, Data: []byte{1, 2, 3}}
	ref, err := a.UploadMedia(context.Background(), s, f)
	require.NoError(t, err)
	assert.Equal(t, "photo-1", ref)

	postID, err := a.Publish(context.Background(), s, PublishInput{
		Content:   "hello page",
		MediaRefs: []string{ref},
	})
	require.NoError(t, err)
	assert.Equal(t, "feed-post-1", postID)
}

func TestFacebookVideoUploadIsThePost(t *testing.T) {
	var feedCalled bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/me/accounts":
			fbPagesResponse(w)
		case "/page-1/videos":
			json.NewEncoder(w).Encode(map[string]string{"id": "video-post-1"})
		case "/page-1/feed":
			feedCalled = true
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	a := testFacebookAdapter(server.URL)
	s := Session{Token: "user-token"}

	f := &media.File{Name: "clip.mp4", MimeType: "video/mp4", Size: 3, Data: []byte{1, 2, 3}}
	ref, err := a.UploadMedia(context.Background(), s, f)
	require.NoError(t, err)
	assert.Equal(t, "video:video-post-1", ref)

	// The video upload already created the post; no feed call happens.
	postID, err := a.Publish(context.Background(), s, PublishInput{
		Content:   "watch this",
		MediaRefs: []string{ref},
	})
	require.NoError(t, err)
	assert.Equal(t, "video-post-1", postID)
	assert.False(t, feedCalled)
}
