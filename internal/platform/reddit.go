package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	config "github.com/socialcast-io/socialcast/configs"
	"github.com/socialcast-io/socialcast/internal/media"
)

const (
	redditAPIBaseURL = "https://oauth.reddit.com"
	redditTokenURL   = "https://www.reddit.com/api/v1/access_token"
)

type redditAdapter struct {
	client       *http.Client
	clientID     string
	clientSecret string
	userAgent    string
	apiBaseURL   string
	tokenURL     string
}

func NewRedditAdapter(cfg *config.Config) Adapter {
	return &redditAdapter{
		client:       newHTTPClient(),
		clientID:     cfg.RedditClientID,
		clientSecret: cfg.RedditClientSecret,
		userAgent:    cfg.RedditUserAgent,
		apiBaseURL:   redditAPIBaseURL,
		tokenURL:     redditTokenURL,
	}
}

func (a *redditAdapter) Name() string { return "reddit" }

func (a *redditAdapter) VerifyCredentials(ctx context.Context, s Session) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", a.apiBaseURL+"/api/v1/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &PlatformError{Platform: "reddit", Op: "verify credentials", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyResponse("reddit", "verify credentials", resp)
	}

	var me struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		IconImg string `json:"icon_img"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		slog.Info(err.Error())
		return nil, &PlatformError{Platform: "reddit", Op: "decode user", Err: err}
	}

	return &Profile{ID: me.ID, Username: me.Name, AvatarURL: me.IconImg}, nil
}

func (a *redditAdapter) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	conf := &oauth2.Config{
		ClientID:     a.clientID,
		ClientSecret: a.clientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: a.tokenURL},
	}

	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		slog.Info(err.Error())
		return nil, &AuthError{Platform: "reddit", Err: fmt.Errorf("refresh grant: %w", err)}
	}

	pair := &TokenPair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	if !tok.Expiry.IsZero() {
		pair.ExpiresIn = int(time.Until(tok.Expiry).Seconds())
	}
	return pair, nil
}

// UploadMedia is unsupported; reddit posts here are self (text) or link kind.
func (a *redditAdapter) UploadMedia(ctx context.Context, s Session, f *media.File) (string, error) {
	return "", &media.UploadError{Reason: "reddit media upload is not supported; publish text or link posts"}
}

// Publish submits a self or link post to the account's profile. An empty self
// post is rejected before any network call.
func (a *redditAdapter) Publish(ctx context.Context, s Session, in PublishInput) (string, error) {
	kind := "self"
	if in.LinkURL != "" {
		kind = "link"
	}

	if kind == "self" && strings.TrimSpace(in.Content) == "" {
		return "", &ValidationError{Reason: "reddit self posts require non-empty text"}
	}

	form := url.Values{}
	form.Set("kind", kind)
	form.Set("sr", "u_"+s.Username)
	form.Set("api_type", "json")
	if kind == "link" {
		form.Set("title", in.Content)
		form.Set("url", in.LinkURL)
	} else {
		form.Set("title", postTitle(in.Content))
		form.Set("text", in.Content)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.apiBaseURL+"/api/submit",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &PlatformError{Platform: "reddit", Op: "submit post", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyResponse("reddit", "submit post", resp)
	}

	var submitted struct {
		JSON struct {
			Errors [][]interface{} `json:"errors"`
			Data   struct {
				Name string `json:"name"`
			} `json:"data"`
		} `json:"json"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: "reddit", Op: "decode submit response", Err: err}
	}
	if len(submitted.JSON.Errors) > 0 {
		return "", &PlatformError{Platform: "reddit", Op: "submit post",
			Err: fmt.Errorf("api errors: %v", submitted.JSON.Errors)}
	}

	return submitted.JSON.Data.Name, nil
}

// postTitle derives a reddit title from the first line of the content,
// clipped to the API's 300 character limit.
func postTitle(content string) string {
	title := content
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	title = strings.TrimSpace(title)
	if len(title) > 300 {
		title = title[:300]
	}
	return title
}
