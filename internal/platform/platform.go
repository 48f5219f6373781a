// Package platform holds the sealed set of social platform adapters behind a
// single interface. Each adapter knows its own authentication-refresh
// semantics and media-upload protocol; everything cross-platform (fan-out,
// retry policy, aggregation) lives in internal/publish.
package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/socialcast-io/socialcast/internal/media"
)

// ErrRefreshNotSupported is returned by adapters for platforms whose tokens
// have no refresh grant (Pinterest, Bluesky, Mastodon in this system).
var ErrRefreshNotSupported = errors.New("platform does not support token refresh")

// Profile identifies the remote account behind a credential.
type Profile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// TokenPair is the outcome of a refresh grant. RefreshToken is empty when the
// platform does not rotate it.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// Session carries everything an adapter needs about one connected account for
// one call. The decrypted token lives only as long as the attempt that uses
// it; callers re-derive it from the vault each time.
type Session struct {
	AccountID      int64
	PlatformUserID string
	Username       string
	InstanceURL    string
	Token          string
}

// PublishInput is the platform-independent authoring intent.
type PublishInput struct {
	Content   string
	MediaRefs []string
	PostType  string
	LinkURL   string
}

// Adapter is the capability set every platform implements.
type Adapter interface {
	Name() string
	VerifyCredentials(ctx context.Context, s Session) (*Profile, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
	UploadMedia(ctx context.Context, s Session, f *media.File) (string, error)
	Publish(ctx context.Context, s Session, in PublishInput) (string, error)
}

// Registry is a sealed adapter set looked up once per account, never
// re-dispatched per call site.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

func (r *Registry) Get(platform string) (Adapter, error) {
	a, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
	return a, nil
}

func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}
