package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialcast-io/socialcast/internal/media"
)

func testPinterestAdapter(serverURL string) *pinterestAdapter {
	return &pinterestAdapter{
		client:     &http.Client{Timeout: 5 * time.Second},
		apiBaseURL: serverURL,
	}
}

func TestPinterestRejectsPinWithoutMedia(t *testing.T) {
	var boardCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&boardCalls, 1)
	}))
	defer server.Close()

	a := testPinterestAdapter(server.URL)
	_, err := a.Publish(context.Background(), Session{Token: "t"}, PublishInput{Content: "no image"})
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	// The media check comes before the board lookup; no request was made.
	assert.Equal(t, int32(0), atomic.LoadInt32(&boardCalls))
}

func TestPinterestRejectsAccountWithoutBoards(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/boards", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{"items": []interface{}{}})
	}))
	defer server.Close()

	a := testPinterestAdapter(server.URL)
	_, err := a.Publish(context.Background(), Session{Token: "t"}, PublishInput{
		Content:   "pin me",
		MediaRefs: []string{"image/jpeg;AAAA"},
	})
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Error(), "no boards")
}

func TestPinterestCreatesPinOnFirstBoard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/boards":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"items": []map[string]string{{"id": "board-1"}, {"id": "board-2"}},
			})
		case "/pins":
			var payload struct {
				BoardID     string `json:"board_id"`
				Description string `json:"description"`
				MediaSource struct {
					SourceType  string `json:"source_type"`
					ContentType string `json:"content_type"`
					Data        string `json:"data"`
				} `json:"media_source"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "board-1", payload.BoardID)
			assert.Equal(t, "pin me", payload.Description)
			assert.Equal(t, "image_base64", payload.MediaSource.SourceType)
			assert.Equal(t, "image/jpeg", payload.MediaSource.ContentType)
			assert.Equal(t, "AAAA", payload.MediaSource.Data)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]string{"id": "pin-1"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	a := testPinterestAdapter(server.URL)
	pinID, err := a.Publish(context.Background(), Session{Token: "t"}, PublishInput{
		Content:   "pin me",
		MediaRefs: []string{"image/jpeg;AAAA"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pin-1", pinID)
}

func TestPinterestUploadMediaIsLocal(t *testing.T) {
	a := testPinterestAdapter("http://unreachable.invalid")
	f := &media.File{Name: "p.jpg", MimeType: "image/jpeg", Size: 3, Data: []byte{0, 1, 2}}

	ref, err := a.UploadMedia(context.Background(), Session{Token: "t"}, f)
	require.NoError(t, err)

	contentType, data, found := cutMediaRef(ref)
	require.True(t, found)
	assert.Equal(t, "image/jpeg", contentType)
	assert.NotEmpty(t, data)
}
