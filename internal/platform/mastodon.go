package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/socialcast-io/socialcast/internal/media"
)

// mastodonAdapter talks to whichever instance the account lives on; there is
// no fixed API host.
type mastodonAdapter struct {
	client *http.Client
}

func NewMastodonAdapter() Adapter {
	return &mastodonAdapter{client: newHTTPClient()}
}

func (a *mastodonAdapter) Name() string { return "mastodon" }

func (a *mastodonAdapter) instance(s Session) string {
	return strings.TrimSuffix(s.InstanceURL, "/")
}

func (a *mastodonAdapter) VerifyCredentials(ctx context.Context, s Session) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", a.instance(s)+"/api/v1/accounts/verify_credentials", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &PlatformError{Platform: "mastodon", Op: "verify credentials", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyResponse("mastodon", "verify credentials", resp)
	}

	var account struct {
		ID          string `json:"id"`
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
		Avatar      string `json:"avatar"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		slog.Info(err.Error())
		return nil, &PlatformError{Platform: "mastodon", Op: "decode account", Err: err}
	}

	return &Profile{
		ID:          account.ID,
		Username:    account.Username,
		DisplayName: account.DisplayName,
		AvatarURL:   account.Avatar,
	}, nil
}

// RefreshToken is unsupported: Mastodon access tokens do not expire.
func (a *mastodonAdapter) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return nil, ErrRefreshNotSupported
}

// UploadMedia is a single multipart shot; the returned numeric id is consumed
// directly by the status-create call.
func (a *mastodonAdapter) UploadMedia(ctx context.Context, s Session, f *media.File) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", f.Name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(f.Data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.instance(s)+"/api/v2/media", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &PlatformError{Platform: "mastodon", Op: "upload media", Err: err}
	}
	defer resp.Body.Close()

	// 202 means the instance is still processing the attachment; the id is
	// already valid for status creation.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", classifyResponse("mastodon", "upload media", resp)
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: "mastodon", Op: "decode media response", Err: err}
	}
	if uploaded.ID == "" {
		return "", &PlatformError{Platform: "mastodon", Op: "upload media", Err: fmt.Errorf("no media id returned")}
	}

	return uploaded.ID, nil
}

func (a *mastodonAdapter) Publish(ctx context.Context, s Session, in PublishInput) (string, error) {
	form := url.Values{}
	form.Set("status", in.Content)
	for _, id := range in.MediaRefs {
		form.Add("media_ids[]", id)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.instance(s)+"/api/v1/statuses",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &PlatformError{Platform: "mastodon", Op: "create status", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyResponse("mastodon", "create status", resp)
	}

	var status struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: "mastodon", Op: "decode status response", Err: err}
	}

	return status.ID, nil
}
