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

type stubHost struct {
	url string
}

func (h *stubHost) Put(ctx context.Context, f *media.File) (string, error) {
	return h.url + "/" + f.Name, nil
}

func testInstagramAdapter(serverURL string, host media.Host) *instagramAdapter {
	return &instagramAdapter{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: serverURL,
		host:    host,
	}
}

func TestInstagramUploadWithoutHostNotImplemented(t *testing.T) {
	a := testInstagramAdapter("http://unreachable.invalid", nil)
	f := &media.File{Name: "p.jpg", MimeType: "image/jpeg", Size: 1, Data: []byte{0}}

	_, err := a.UploadMedia(context.Background(), Session{Token: "t"}, f)
	require.Error(t, err)

	var platformErr *PlatformError
	require.ErrorAs(t, err, &platformErr)
	assert.Contains(t, platformErr.Error(), "not implemented")
}

func TestInstagramContainerCreateThenPublish(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/ig-user-1/media":
			var payload map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "hello insta", payload["caption"])
			assert.Equal(t, "https://cdn.example/pic.jpg", payload["image_url"])
			json.NewEncoder(w).Encode(map[string]string{"id": "container-1"})
		case "/ig-user-1/media_publish":
			var payload map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "container-1", payload["creation_id"])
			json.NewEncoder(w).Encode(map[string]string{"id": "ig-post-1"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	a := testInstagramAdapter(server.URL, nil)
	postID, err := a.Publish(context.Background(), Session{PlatformUserID: "ig-user-1", Token: "t"}, PublishInput{
		Content:   "hello insta",
		MediaRefs: []string{"image|https://cdn.example/pic.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ig-post-1", postID)
	assert.Equal(t, []string{"/ig-user-1/media", "/ig-user-1/media_publish"}, paths)
}

func TestInstagramReelUsesReelsMediaType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ig-user-1/media":
			var payload map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "REELS", payload["media_type"])
			assert.Equal(t, "https://cdn.example/clip.mp4", payload["video_url"])
			json.NewEncoder(w).Encode(map[string]string{"id": "container-2"})
		case "/ig-user-1/media_publish":
			json.NewEncoder(w).Encode(map[string]string{"id": "ig-reel-1"})
		}
	}))
	defer server.Close()

	a := testInstagramAdapter(server.URL, nil)
	postID, err := a.Publish(context.Background(), Session{PlatformUserID: "ig-user-1", Token: "t"}, PublishInput{
		Content:   "new reel",
		PostType:  "reel",
		MediaRefs: []string{"video|https://cdn.example/clip.mp4"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ig-reel-1", postID)
}

func TestInstagramPublishRequiresMedia(t *testing.T) {
	a := testInstagramAdapter("http://unreachable.invalid", nil)

	_, err := a.Publish(context.Background(), Session{PlatformUserID: "ig-user-1", Token: "t"}, PublishInput{
		Content: "text only",
	})
	require.Error(t, err)

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestInstagramUploadUsesHost(t *testing.T) {
	a := testInstagramAdapter("http://unreachable.invalid", &stubHost{url: "https://cdn.example"})
	f := &media.File{Name: "pic.jpg", MimeType: "image/jpeg", Size: 1, Data: []byte{0}}

	ref, err := a.UploadMedia(context.Background(), Session{Token: "t"}, f)
	require.NoError(t, err)
	assert.Equal(t, "image|https://cdn.example/pic.jpg", ref)
}
