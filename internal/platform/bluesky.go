package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/socialcast-io/socialcast/internal/media"
)

const (
	blueskyBaseURL = "https://bsky.social/xrpc"

	blueskySessionTTL = 12 * time.Hour
	blueskyMaxCached  = 256
)

// bskySession is one authenticated AT Protocol session. Sessions are
// expensive to create, so they are cached per account.
type bskySession struct {
	DID       string
	AccessJwt string
	expires   time.Time
}

// sessionCache is a bounded TTL cache keyed by account id. When full, the
// entry closest to expiry is evicted.
type sessionCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	maxSize  int
	sessions map[int64]*bskySession
}

func newSessionCache(ttl time.Duration, maxSize int) *sessionCache {
	return &sessionCache{
		ttl:      ttl,
		maxSize:  maxSize,
		sessions: make(map[int64]*bskySession),
	}
}

func (c *sessionCache) get(accountID int64) *bskySession {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.sessions[accountID]
	if !ok {
		return nil
	}
	if time.Now().After(session.expires) {
		delete(c.sessions, accountID)
		return nil
	}
	return session
}

func (c *sessionCache) put(accountID int64, session *bskySession) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.sessions) >= c.maxSize {
		var oldestKey int64
		var oldest time.Time
		for key, s := range c.sessions {
			if oldest.IsZero() || s.expires.Before(oldest) {
				oldestKey, oldest = key, s.expires
			}
		}
		delete(c.sessions, oldestKey)
	}

	session.expires = time.Now().Add(c.ttl)
	c.sessions[accountID] = session
}

func (c *sessionCache) drop(accountID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, accountID)
}

type blueskyAdapter struct {
	client   *http.Client
	baseURL  string
	sessions *sessionCache
}

func NewBlueskyAdapter() Adapter {
	return &blueskyAdapter{
		client:   newHTTPClient(),
		baseURL:  blueskyBaseURL,
		sessions: newSessionCache(blueskySessionTTL, blueskyMaxCached),
	}
}

func (a *blueskyAdapter) Name() string { return "bluesky" }

// session returns the cached session for the account or logs in fresh. The
// stored credential is the account's app password; the handle is the account
// username.
func (a *blueskyAdapter) session(ctx context.Context, s Session) (*bskySession, error) {
	if cached := a.sessions.get(s.AccountID); cached != nil {
		return cached, nil
	}

	payload := map[string]string{
		"identifier": s.Username,
		"password":   s.Token,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/com.atproto.server.createSession",
		bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &PlatformError{Platform: "bluesky", Op: "create session", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyResponse("bluesky", "create session", resp)
	}

	var created struct {
		DID       string `json:"did"`
		Handle    string `json:"handle"`
		AccessJwt string `json:"accessJwt"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		slog.Info(err.Error())
		return nil, &PlatformError{Platform: "bluesky", Op: "decode session", Err: err}
	}

	session := &bskySession{DID: created.DID, AccessJwt: created.AccessJwt}
	a.sessions.put(s.AccountID, session)
	return session, nil
}

func (a *blueskyAdapter) VerifyCredentials(ctx context.Context, s Session) (*Profile, error) {
	session, err := a.session(ctx, s)
	if err != nil {
		return nil, err
	}
	return &Profile{ID: session.DID, Username: s.Username}, nil
}

func (a *blueskyAdapter) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return nil, ErrRefreshNotSupported
}

// UploadMedia uploads a blob. The 1MB cap is enforced here again so no bytes
// ever reach the wire even if the caller skipped pipeline validation; the
// returned ref is the JSON blob descriptor embedded verbatim into the post.
func (a *blueskyAdapter) UploadMedia(ctx context.Context, s Session, f *media.File) (string, error) {
	if f.Size > media.BlueskyMaxBlobBytes {
		return "", &media.UploadError{Reason: fmt.Sprintf(
			"bluesky: file %q is %d bytes, exceeds the 1MB blob limit", f.Name, f.Size)}
	}

	session, err := a.session(ctx, s)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/com.atproto.repo.uploadBlob",
		bytes.NewReader(f.Data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+session.AccessJwt)
	req.Header.Set("Content-Type", f.MimeType)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &PlatformError{Platform: "bluesky", Op: "upload blob", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// The cached session may simply have gone stale server-side.
		a.sessions.drop(s.AccountID)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyResponse("bluesky", "upload blob", resp)
	}

	var uploaded struct {
		Blob json.RawMessage `json:"blob"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: "bluesky", Op: "decode blob response", Err: err}
	}

	return string(uploaded.Blob), nil
}

func (a *blueskyAdapter) Publish(ctx context.Context, s Session, in PublishInput) (string, error) {
	session, err := a.session(ctx, s)
	if err != nil {
		return "", err
	}

	record := map[string]interface{}{
		"$type":     "app.bsky.feed.post",
		"text":      in.Content,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
	}

	if len(in.MediaRefs) > 0 {
		images := make([]map[string]interface{}, 0, len(in.MediaRefs))
		for _, ref := range in.MediaRefs {
			images = append(images, map[string]interface{}{
				"alt":   "",
				"image": json.RawMessage(ref),
			})
		}
		record["embed"] = map[string]interface{}{
			"$type":  "app.bsky.embed.images",
			"images": images,
		}
	}

	payload := map[string]interface{}{
		"repo":       session.DID,
		"collection": "app.bsky.feed.post",
		"record":     record,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/com.atproto.repo.createRecord",
		bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+session.AccessJwt)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &PlatformError{Platform: "bluesky", Op: "create record", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		a.sessions.drop(s.AccountID)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyResponse("bluesky", "create record", resp)
	}

	var created struct {
		URI string `json:"uri"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: "bluesky", Op: "decode record response", Err: err}
	}

	return created.URI, nil
}
