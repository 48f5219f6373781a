// Package nimble is a flat CRUD proxy over a Nimble Streamer management API
// for RTMP republishing rules. Rules live on the streaming server; nothing is
// persisted locally and no orchestration happens here.
package nimble

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	config "github.com/socialcast-io/socialcast/configs"
	"github.com/socialcast-io/socialcast/internal/models"
)

type Client struct {
	client    *http.Client
	baseURL   string
	sharedKey string

	// salt is swapped in tests to make the auth query deterministic.
	salt func() (string, error)
}

func NewClient(cfg config.Nimble) *Client {
	return &Client{
		client:    &http.Client{Timeout: 15 * time.Second},
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		sharedKey: cfg.SharedKey,
		salt:      randomSalt,
	}
}

func randomSalt() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return n.String(), nil
}

// authQuery builds the management API's salted-MD5 query string:
// hash = base64(md5(salt + "/" + sharedKey)).
func (c *Client) authQuery() (string, error) {
	salt, err := c.salt()
	if err != nil {
		return "", err
	}

	sum := md5.Sum([]byte(salt + "/" + c.sharedKey))
	hash := base64.StdEncoding.EncodeToString(sum[:])

	return fmt.Sprintf("salt=%s&hash=%s", salt, hash), nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	auth, err := c.authQuery()
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+auth, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("nimble %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("nimble %s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			slog.Info(err.Error())
			return fmt.Errorf("nimble %s %s: decode response: %w", method, path, err)
		}
	}

	return nil
}

func (c *Client) ListRules(ctx context.Context) ([]models.RepublishRule, error) {
	var listed struct {
		Rules []models.RepublishRule `json:"rules"`
	}
	if err := c.do(ctx, "GET", "/manage/rtmp/republish", nil, &listed); err != nil {
		return nil, err
	}
	return listed.Rules, nil
}

func (c *Client) CreateRule(ctx context.Context, rule *models.RepublishRule) (*models.RepublishRule, error) {
	var created models.RepublishRule
	if err := c.do(ctx, "POST", "/manage/rtmp/republish", rule, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteRule(ctx context.Context, ruleID string) error {
	return c.do(ctx, "DELETE", "/manage/rtmp/republish/"+ruleID, nil, nil)
}
