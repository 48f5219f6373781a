package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialcast-io/socialcast/internal/media"
)

func mastodonSession(serverURL string) Session {
	return Session{AccountID: 1, Username: "tester", InstanceURL: serverURL, Token: "token-123"}
}

func TestMastodonVerifyCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/accounts/verify_credentials", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{
			"id": "42", "username": "tester", "display_name": "Tester",
		})
	}))
	defer server.Close()

	a := NewMastodonAdapter()
	profile, err := a.VerifyCredentials(context.Background(), mastodonSession(server.URL))
	require.NoError(t, err)
	assert.Equal(t, "42", profile.ID)
	assert.Equal(t, "tester", profile.Username)
}

func TestMastodonUploadThenPublish(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/media":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			_, _, err := r.FormFile("file")
			require.NoError(t, err)
			json.NewEncoder(w).Encode(map[string]string{"id": "9001"})
		case "/api/v1/statuses":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "hello fediverse", r.PostForm.Get("status"))
			assert.Equal(t, []string{"9001"}, r.PostForm["media_ids[]"])
			json.NewEncoder(w).Encode(map[string]string{"id": "status-1"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	a := NewMastodonAdapter()
	s := mastodonSession(server.URL)

	f := &media.File{Name: "pic.jpg", MimeType: "image/jpeg", Size: 3, Data: []byte{1, 2, 3}}
	mediaID, err := a.UploadMedia(context.Background(), s, f)
	require.NoError(t, err)
	assert.Equal(t, "9001", mediaID)

	postID, err := a.Publish(context.Background(), s, PublishInput{
		Content:   "hello fediverse",
		MediaRefs: []string{mediaID},
	})
	require.NoError(t, err)
	assert.Equal(t, "status-1", postID)
}

func TestMastodonClassifiesAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	a := NewMastodonAdapter()
	_, err := a.Publish(context.Background(), mastodonSession(server.URL), PublishInput{Content: "x"})
	require.Error(t, err)

	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestMastodonRefreshNotSupported(t *testing.T) {
	a := NewMastodonAdapter()
	_, err := a.RefreshToken(context.Background(), "whatever")
	assert.ErrorIs(t, err, ErrRefreshNotSupported)
}
