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

func testBlueskyAdapter(serverURL string) *blueskyAdapter {
	return &blueskyAdapter{
		client:   &http.Client{Timeout: 5 * time.Second},
		baseURL:  serverURL,
		sessions: newSessionCache(blueskySessionTTL, blueskyMaxCached),
	}
}

func TestBlueskyOversizeBlobRejectedLocally(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	a := testBlueskyAdapter(server.URL)
	oversized := &media.File{
		Name:     "huge.png",
		MimeType: "image/png",
		Size:     media.BlueskyMaxBlobBytes + 1,
	}

	_, err := a.UploadMedia(context.Background(), Session{AccountID: 1, Username: "alice.bsky.social", Token: "pw"}, oversized)
	require.Error(t, err)

	var uploadErr *media.UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Contains(t, uploadErr.Error(), "1MB")
	// Nothing should have reached the wire, not even a login.
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestBlueskySessionReusedAcrossCalls(t *testing.T) {
	var logins int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/com.atproto.server.createSession":
			atomic.AddInt32(&logins, 1)
			var creds map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			assert.Equal(t, "alice.bsky.social", creds["identifier"])
			assert.Equal(t, "app-password", creds["password"])
			json.NewEncoder(w).Encode(map[string]string{
				"did": "did:plc:abc", "handle": "alice.bsky.social", "accessJwt": "jwt-1",
			})
		case "/com.atproto.repo.createRecord":
			assert.Equal(t, "Bearer jwt-1", r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(map[string]string{"uri": "at://did:plc:abc/app.bsky.feed.post/1"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	a := testBlueskyAdapter(server.URL)
	s := Session{AccountID: 7, Username: "alice.bsky.social", Token: "app-password"}

	for i := 0; i < 3; i++ {
		_, err := a.Publish(context.Background(), s, PublishInput{Content: "hi"})
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))
}

func TestBlueskySessionDroppedOnUnauthorized(t *testing.T) {
	var logins int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/com.atproto.server.createSession":
			n := atomic.AddInt32(&logins, 1)
			json.NewEncoder(w).Encode(map[string]string{
				"did": "did:plc:abc", "accessJwt": "jwt-" + string(rune('0'+n)),
			})
		case "/com.atproto.repo.createRecord":
			// First record call fails with a stale-token 401.
			if r.Header.Get("Authorization") == "Bearer jwt-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"uri": "at://post/2"})
		}
	}))
	defer server.Close()

	a := testBlueskyAdapter(server.URL)
	s := Session{AccountID: 7, Username: "alice.bsky.social", Token: "pw"}

	_, err := a.Publish(context.Background(), s, PublishInput{Content: "first"})
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)

	// The stale session was evicted, so the next publish logs in again.
	uri, err := a.Publish(context.Background(), s, PublishInput{Content: "second"})
	require.NoError(t, err)
	assert.Equal(t, "at://post/2", uri)
	assert.Equal(t, int32(2), atomic.LoadInt32(&logins))
}

func TestSessionCacheExpiry(t *testing.T) {
	cache := newSessionCache(time.Millisecond, 4)
	cache.put(1, &bskySession{DID: "did:plc:one"})
	require.NotNil(t, cache.get(1))

	time.Sleep(5 * time.Millisecond)
	assert.Nil(t, cache.get(1))
}

func TestSessionCacheBounded(t *testing.T) {
	cache := newSessionCache(time.Hour, 2)
	cache.put(1, &bskySession{DID: "one"})
	time.Sleep(time.Millisecond)
	cache.put(2, &bskySession{DID: "two"})
	time.Sleep(time.Millisecond)
	cache.put(3, &bskySession{DID: "three"})

	// Entry 1 was closest to expiry and should have been evicted.
	assert.Nil(t, cache.get(1))
	assert.NotNil(t, cache.get(2))
	assert.NotNil(t, cache.get(3))
}
