package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	config "github.com/socialcast-io/socialcast/configs"
)

const (
	xAPIBaseURL = "https://api.x.com"
	xTokenURL   = "https://api.x.com/2/oauth2/token"

	// Two equivalent upload hosts; some tokens are only accepted by one of
	// them, so every strategy is tried against both.
	xUploadHostTwitter = "https://upload.twitter.com/1.1"
	xUploadHostX       = "https://upload.x.com/1.1"

	// Anything above this goes straight to chunked upload.
	xChunkedThreshold = 5 * 1024 * 1024
	xChunkSize        = 1024 * 1024

	// Total budget for the async processing poll after FINALIZE.
	xProcessingBudget = 5 * time.Minute
)

type xAdapter struct {
	client       *http.Client
	clientID     string
	clientSecret string

	apiBaseURL  string
	tokenURL    string
	uploadHosts []string

	chunkedThreshold int64
	processingBudget time.Duration
	sleep            func(ctx context.Context, d time.Duration) error
}

func NewXAdapter(cfg *config.Config) Adapter {
	return &xAdapter{
		client:           newHTTPClient(),
		clientID:         cfg.XClientID,
		clientSecret:     cfg.XClientSecret,
		apiBaseURL:       xAPIBaseURL,
		tokenURL:         xTokenURL,
		uploadHosts:      []string{xUploadHostTwitter, xUploadHostX},
		chunkedThreshold: xChunkedThreshold,
		processingBudget: xProcessingBudget,
		sleep:            sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (a *xAdapter) Name() string { return "x" }

func (a *xAdapter) VerifyCredentials(ctx context.Context, s Session) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", a.apiBaseURL+"/2/users/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &PlatformError{Platform: "x", Op: "verify credentials", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyResponse("x", "verify credentials", resp)
	}

	var me struct {
		Data struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		slog.Info(err.Error())
		return nil, &PlatformError{Platform: "x", Op: "decode user", Err: err}
	}

	return &Profile{ID: me.Data.ID, Username: me.Data.Username, DisplayName: me.Data.Name}, nil
}

// RefreshToken runs the standard OAuth2 refresh grant against the X token
// endpoint.
func (a *xAdapter) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	conf := &oauth2.Config{
		ClientID:     a.clientID,
		ClientSecret: a.clientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: a.tokenURL},
	}

	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		slog.Info(err.Error())
		return nil, &AuthError{Platform: "x", Err: fmt.Errorf("refresh grant: %w", err)}
	}

	pair := &TokenPair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	if !tok.Expiry.IsZero() {
		pair.ExpiresIn = int(time.Until(tok.Expiry).Seconds())
	}
	return pair, nil
}

func (a *xAdapter) Publish(ctx context.Context, s Session, in PublishInput) (string, error) {
	payload := map[string]interface{}{
		"text": in.Content,
	}
	if len(in.MediaRefs) > 0 {
		payload["media"] = map[string]interface{}{"media_ids": in.MediaRefs}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.apiBaseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &PlatformError{Platform: "x", Op: "create tweet", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", classifyResponse("x", "create tweet", resp)
	}

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: "x", Op: "decode tweet response", Err: err}
	}
	if created.Data.ID == "" {
		return "", &PlatformError{Platform: "x", Op: "create tweet", Err: fmt.Errorf("no tweet id returned")}
	}

	return created.Data.ID, nil
}
