package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	config "github.com/socialcast-io/socialcast/configs"
	"github.com/socialcast-io/socialcast/internal/media"
)

const instagramGraphBaseURL = "https://graph.instagram.com/v21.0"

// instagramAdapter drives the two-step container create → publish protocol.
// The Graph API only takes media by public URL, so the adapter depends on a
// media.Host; without one, publishing media is unimplementable and fails
// loudly instead of pretending.
type instagramAdapter struct {
	client       *http.Client
	clientSecret string
	baseURL      string
	host         media.Host
}

func NewInstagramAdapter(cfg *config.Config, host media.Host) Adapter {
	return &instagramAdapter{
		client:       newHTTPClient(),
		clientSecret: cfg.InstagramClientSecret,
		baseURL:      instagramGraphBaseURL,
		host:         host,
	}
}

func (a *instagramAdapter) Name() string { return "instagram" }

func (a *instagramAdapter) VerifyCredentials(ctx context.Context, s Session) (*Profile, error) {
	reqURL := fmt.Sprintf("%s/me?fields=id,username,name,profile_picture_url&access_token=%s",
		a.baseURL, s.Token)
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &PlatformError{Platform: "instagram", Op: "verify credentials", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyResponse("instagram", "verify credentials", resp)
	}

	var me struct {
		ID             string `json:"id"`
		Username       string `json:"username"`
		Name           string `json:"name"`
		ProfilePicture string `json:"profile_picture_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		slog.Info(err.Error())
		return nil, &PlatformError{Platform: "instagram", Op: "decode user", Err: err}
	}

	return &Profile{ID: me.ID, Username: me.Username, DisplayName: me.Name, AvatarURL: me.ProfilePicture}, nil
}

func (a *instagramAdapter) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	reqURL := fmt.Sprintf("%s/refresh_access_token?grant_type=ig_refresh_token&access_token=%s",
		a.baseURL, refreshToken)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &AuthError{Platform: "instagram", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &AuthError{Platform: "instagram", Err: fmt.Errorf("token refresh returned %d", resp.StatusCode)}
	}

	var refreshed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&refreshed); err != nil {
		slog.Info(err.Error())
		return nil, &AuthError{Platform: "instagram", Err: err}
	}

	// Instagram long-lived tokens refresh in place; the access token doubles
	// as the refresh token.
	return &TokenPair{
		AccessToken:  refreshed.AccessToken,
		RefreshToken: refreshed.AccessToken,
		ExpiresIn:    refreshed.ExpiresIn,
	}, nil
}

// UploadMedia hosts the buffer publicly and returns its URL; the container
// step consumes the URL, never the bytes.
func (a *instagramAdapter) UploadMedia(ctx context.Context, s Session, f *media.File) (string, error) {
	if a.host == nil {
		return "", &PlatformError{Platform: "instagram", Op: "upload media",
			Err: fmt.Errorf("not implemented: instagram requires a publicly reachable media URL and no media host is configured")}
	}

	fileURL, err := a.host.Put(ctx, f)
	if err != nil {
		return "", &PlatformError{Platform: "instagram", Op: "host media", Err: err}
	}

	if f.IsVideo() {
		return "video|" + fileURL, nil
	}
	return "image|" + fileURL, nil
}

func (a *instagramAdapter) createContainer(ctx context.Context, accountID, token string, payload map[string]interface{}) (string, error) {
	payload["access_token"] = token

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/%s/media", a.baseURL, accountID), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &PlatformError{Platform: "instagram", Op: "create container", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyResponse("instagram", "create container", resp)
	}

	var container struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&container); err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: "instagram", Op: "decode container", Err: err}
	}
	if container.ID == "" {
		return "", &PlatformError{Platform: "instagram", Op: "create container", Err: fmt.Errorf("no container id returned")}
	}

	return container.ID, nil
}

func (a *instagramAdapter) Publish(ctx context.Context, s Session, in PublishInput) (string, error) {
	if len(in.MediaRefs) == 0 {
		return "", &ValidationError{Reason: "instagram posts require at least one image or video"}
	}

	kind, fileURL, found := cutRefKind(in.MediaRefs[0])
	if !found {
		return "", &PlatformError{Platform: "instagram", Op: "create container", Err: fmt.Errorf("malformed media ref")}
	}

	payload := map[string]interface{}{"caption": in.Content}
	switch {
	case kind == "video" && in.PostType == "reel":
		payload["media_type"] = "REELS"
		payload["video_url"] = fileURL
	case kind == "video":
		payload["media_type"] = "VIDEO"
		payload["video_url"] = fileURL
	default:
		payload["image_url"] = fileURL
	}

	containerID, err := a.createContainer(ctx, s.PlatformUserID, s.Token, payload)
	if err != nil {
		return "", err
	}

	return a.publishContainer(ctx, s.PlatformUserID, s.Token, containerID)
}

func (a *instagramAdapter) publishContainer(ctx context.Context, accountID, token, containerID string) (string, error) {
	payload := map[string]string{
		"creation_id":  containerID,
		"access_token": token,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/%s/media_publish", a.baseURL, accountID), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &PlatformError{Platform: "instagram", Op: "publish container", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyResponse("instagram", "publish container", resp)
	}

	var published struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&published); err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: "instagram", Op: "decode publish response", Err: err}
	}

	return published.ID, nil
}

func cutRefKind(ref string) (kind, rest string, found bool) {
	for i := 0; i < len(ref); i++ {
		if ref[i] == '|' {
			return ref[:i], ref[i+1:], true
		}
	}
	return "", "", false
}
