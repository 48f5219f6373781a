package platform

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/socialcast-io/socialcast/internal/media"
)

const pinterestAPIBaseURL = "https://api.pinterest.com/v5"

type pinterestAdapter struct {
	client     *http.Client
	apiBaseURL string
}

func NewPinterestAdapter() Adapter {
	return &pinterestAdapter{client: newHTTPClient(), apiBaseURL: pinterestAPIBaseURL}
}

func (a *pinterestAdapter) Name() string { return "pinterest" }

func (a *pinterestAdapter) VerifyCredentials(ctx context.Context, s Session) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", a.apiBaseURL+"/user_account", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &PlatformError{Platform: "pinterest", Op: "verify credentials", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyResponse("pinterest", "verify credentials", resp)
	}

	var account struct {
		ID              string `json:"id"`
		Username        string `json:"username"`
		ProfileImageURL string `json:"profile_image"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		slog.Info(err.Error())
		return nil, &PlatformError{Platform: "pinterest", Op: "decode account", Err: err}
	}

	return &Profile{ID: account.ID, Username: account.Username, AvatarURL: account.ProfileImageURL}, nil
}

func (a *pinterestAdapter) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return nil, ErrRefreshNotSupported
}

// UploadMedia keeps the bytes local: pin creation carries the image inline as
// base64, so the "platform media ref" is the encoded payload itself.
func (a *pinterestAdapter) UploadMedia(ctx context.Context, s Session, f *media.File) (string, error) {
	return f.MimeType + ";" + base64.StdEncoding.EncodeToString(f.Data), nil
}

func (a *pinterestAdapter) getUserBoards(ctx context.Context, token string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", a.apiBaseURL+"/boards", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &PlatformError{Platform: "pinterest", Op: "list boards", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyResponse("pinterest", "list boards", resp)
	}

	var boards struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&boards); err != nil {
		slog.Info(err.Error())
		return nil, &PlatformError{Platform: "pinterest", Op: "decode boards", Err: err}
	}

	ids := make([]string, 0, len(boards.Items))
	for _, b := range boards.Items {
		ids = append(ids, b.ID)
	}
	return ids, nil
}

// Publish creates a pin on the account's first board. Pins without media are
// rejected before any network call, and an account with no boards is a domain
// error, not a transport one.
func (a *pinterestAdapter) Publish(ctx context.Context, s Session, in PublishInput) (string, error) {
	if len(in.MediaRefs) == 0 {
		return "", &ValidationError{Reason: "pinterest pins require at least one image; none was provided"}
	}

	boards, err := a.getUserBoards(ctx, s.Token)
	if err != nil {
		return "", err
	}
	if len(boards) == 0 {
		return "", &ValidationError{Reason: "pinterest account has no boards; create a board before publishing"}
	}

	contentType, data, found := cutMediaRef(in.MediaRefs[0])
	if !found {
		return "", &PlatformError{Platform: "pinterest", Op: "create pin", Err: fmt.Errorf("malformed media ref")}
	}

	payload := map[string]interface{}{
		"board_id":    boards[0],
		"description": in.Content,
		"media_source": map[string]string{
			"source_type":  "image_base64",
			"content_type": contentType,
			"data":         data,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.apiBaseURL+"/pins", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &PlatformError{Platform: "pinterest", Op: "create pin", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", classifyResponse("pinterest", "create pin", resp)
	}

	var pin struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pin); err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: "pinterest", Op: "decode pin response", Err: err}
	}

	return pin.ID, nil
}

func cutMediaRef(ref string) (contentType, data string, found bool) {
	for i := 0; i < len(ref); i++ {
		if ref[i] == ';' {
			return ref[:i], ref[i+1:], true
		}
	}
	return "", "", false
}
