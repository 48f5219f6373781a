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

	config "github.com/socialcast-io/socialcast/configs"
	"github.com/socialcast-io/socialcast/internal/media"
)

const facebookGraphBaseURL = "https://graph.facebook.com/v21.0"

type facebookAdapter struct {
	client       *http.Client
	clientID     string
	clientSecret string
	baseURL      string
}

func NewFacebookAdapter(cfg *config.Config) Adapter {
	return &facebookAdapter{
		client:       newHTTPClient(),
		clientID:     cfg.FacebookClientID,
		clientSecret: cfg.FacebookClientSecret,
		baseURL:      facebookGraphBaseURL,
	}
}

func (a *facebookAdapter) Name() string { return "facebook" }

func (a *facebookAdapter) VerifyCredentials(ctx context.Context, s Session) (*Profile, error) {
	reqURL := fmt.Sprintf("%s/me?fields=id,name&access_token=%s", a.baseURL, url.QueryEscape(s.Token))
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &PlatformError{Platform: "facebook", Op: "verify credentials", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyResponse("facebook", "verify credentials", resp)
	}

	var me struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		slog.Info(err.Error())
		return nil, &PlatformError{Platform: "facebook", Op: "decode user", Err: err}
	}

	return &Profile{ID: me.ID, DisplayName: me.Name}, nil
}

// RefreshToken exchanges the current long-lived token for a fresh one; the
// Graph API has no separate refresh token.
func (a *facebookAdapter) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	reqURL := fmt.Sprintf(
		"%s/oauth/access_token?grant_type=fb_exchange_token&client_id=%s&client_secret=%s&fb_exchange_token=%s",
		a.baseURL, a.clientID, a.clientSecret, url.QueryEscape(refreshToken),
	)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &AuthError{Platform: "facebook", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &AuthError{Platform: "facebook", Err: fmt.Errorf("token exchange returned %d", resp.StatusCode)}
	}

	var exchanged struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&exchanged); err != nil {
		slog.Info(err.Error())
		return nil, &AuthError{Platform: "facebook", Err: err}
	}

	return &TokenPair{
		AccessToken:  exchanged.AccessToken,
		RefreshToken: exchanged.AccessToken,
		ExpiresIn:    exchanged.ExpiresIn,
	}, nil
}

type fbPage struct {
	ID          string
	AccessToken string
}

// resolvePage finds the Page the account manages. Posting happens on the Page,
// never on the user profile, and the Page carries its own access token.
func (a *facebookAdapter) resolvePage(ctx context.Context, token string) (*fbPage, error) {
	reqURL := fmt.Sprintf("%s/me/accounts?access_token=%s", a.baseURL, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &PlatformError{Platform: "facebook", Op: "resolve page", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyResponse("facebook", "resolve page", resp)
	}

	var pages struct {
		Data []struct {
			ID          string `json:"id"`
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pages); err != nil {
		slog.Info(err.Error())
		return nil, &PlatformError{Platform: "facebook", Op: "decode pages", Err: err}
	}
	if len(pages.Data) == 0 {
		return nil, &ValidationError{Reason: "facebook account manages no pages; connect a page before publishing"}
	}

	return &fbPage{ID: pages.Data[0].ID, AccessToken: pages.Data[0].AccessToken}, nil
}

// UploadMedia pushes a photo or video through the page-scoped endpoints.
// Photos are uploaded unpublished and attached to the feed post later; a
// video upload IS the post, so its ref is marked to skip the feed step.
func (a *facebookAdapter) UploadMedia(ctx context.Context, s Session, f *media.File) (string, error) {
	page, err := a.resolvePage(ctx, s.Token)
	if err != nil {
		return "", err
	}

	endpoint := "photos"
	if f.IsVideo() {
		endpoint = "videos"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.WriteField("access_token", page.AccessToken)
	if endpoint == "photos" {
		writer.WriteField("published", "false")
	}
	part, err := writer.CreateFormFile("source", f.Name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(f.Data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/%s/%s", a.baseURL, page.ID, endpoint), &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &PlatformError{Platform: "facebook", Op: "upload " + endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyResponse("facebook", "upload "+endpoint, resp)
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: "facebook", Op: "decode upload response", Err: err}
	}
	if uploaded.ID == "" {
		return "", &PlatformError{Platform: "facebook", Op: "upload " + endpoint, Err: fmt.Errorf("no media id returned")}
	}

	if endpoint == "videos" {
		return "video:" + uploaded.ID, nil
	}
	return uploaded.ID, nil
}

func (a *facebookAdapter) Publish(ctx context.Context, s Session, in PublishInput) (string, error) {
	// A video upload already created the post.
	for _, ref := range in.MediaRefs {
		if id, ok := strings.CutPrefix(ref, "video:"); ok {
			return id, nil
		}
	}

	page, err := a.resolvePage(ctx, s.Token)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("message", in.Content)
	form.Set("access_token", page.AccessToken)
	for i, ref := range in.MediaRefs {
		form.Set(fmt.Sprintf("attached_media[%d]", i), fmt.Sprintf(`{"media_fbid":"%s"}`, ref))
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/%s/feed", a.baseURL, page.ID), strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &PlatformError{Platform: "facebook", Op: "create feed post", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyResponse("facebook", "create feed post", resp)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: "facebook", Op: "decode feed response", Err: err}
	}

	return created.ID, nil
}
