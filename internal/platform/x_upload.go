package platform

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/socialcast-io/socialcast/internal/media"
)

// uploadStrategy is one way of getting bytes onto the upload host. Strategies
// are tried in order against every host and the first success wins.
type uploadStrategy struct {
	name string
	run  func(ctx context.Context, token, host string, f *media.File) (string, error)
}

func (a *xAdapter) strategies(f *media.File) []uploadStrategy {
	chunked := uploadStrategy{name: "chunked", run: a.uploadChunked}

	// Video and GIF always need the chunked protocol (FINALIZE kicks off
	// async processing), as does anything over the size threshold.
	if f.IsVideo() || f.IsGIF() || f.Size > a.chunkedThreshold {
		return []uploadStrategy{chunked}
	}

	return []uploadStrategy{
		{name: "multipart", run: a.uploadMultipart},
		{name: "base64", run: a.uploadBase64},
		chunked,
	}
}

func (a *xAdapter) UploadMedia(ctx context.Context, s Session, f *media.File) (string, error) {
	var lastErr error

	for _, strategy := range a.strategies(f) {
		for _, host := range a.uploadHosts {
			mediaID, err := strategy.run(ctx, s.Token, host, f)
			if err == nil {
				return mediaID, nil
			}

			// Auth and throttling problems will not be fixed by a
			// different transport; surface them immediately.
			var authErr *AuthError
			var rateErr *RateLimitError
			if errors.As(err, &authErr) || errors.As(err, &rateErr) {
				return "", err
			}

			slog.Info("x media upload strategy failed",
				"strategy", strategy.name, "host", host, "error", err)
			lastErr = err
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no upload strategy applicable")
	}
	return "", &PlatformError{Platform: "x", Op: "upload media", Err: lastErr}
}

func (a *xAdapter) uploadMultipart(ctx context.Context, token, host string, f *media.File) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("media", f.Name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(f.Data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", host+"/media/upload.json", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return a.doUpload(req)
}

func (a *xAdapter) uploadBase64(ctx context.Context, token, host string, f *media.File) (string, error) {
	form := url.Values{}
	form.Set("media_data", base64.StdEncoding.EncodeToString(f.Data))

	req, err := http.NewRequestWithContext(ctx, "POST", host+"/media/upload.json",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return a.doUpload(req)
}

type xMediaResponse struct {
	MediaIDString  string `json:"media_id_string"`
	ProcessingInfo *struct {
		State          string `json:"state"`
		CheckAfterSecs int    `json:"check_after_secs"`
		Error          *struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"processing_info"`
}

func (a *xAdapter) doUpload(req *http.Request) (string, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", classifyResponse("x", "upload media", resp)
	}

	var uploaded xMediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", err
	}
	if uploaded.MediaIDString == "" {
		return "", fmt.Errorf("no media id in upload response")
	}
	return uploaded.MediaIDString, nil
}

func (a *xAdapter) mediaCategory(f *media.File) string {
	switch {
	case f.IsVideo():
		return "tweet_video"
	case f.IsGIF():
		return "tweet_gif"
	default:
		return "tweet_image"
	}
}

// uploadChunked runs the INIT / APPEND / FINALIZE protocol, then polls STATUS
// while the platform processes video or GIF media.
func (a *xAdapter) uploadChunked(ctx context.Context, token, host string, f *media.File) (string, error) {
	mediaID, err := a.chunkedInit(ctx, token, host, f)
	if err != nil {
		return "", err
	}

	for index, offset := 0, int64(0); offset < f.Size; index++ {
		end := offset + xChunkSize
		if end > f.Size {
			end = f.Size
		}
		if err := a.chunkedAppend(ctx, token, host, mediaID, index, f.Data[offset:end]); err != nil {
			return "", err
		}
		offset = end
	}

	finalized, err := a.chunkedFinalize(ctx, token, host, mediaID)
	if err != nil {
		return "", err
	}

	if finalized.ProcessingInfo == nil {
		return mediaID, nil
	}
	return a.awaitProcessing(ctx, token, host, mediaID, finalized)
}

func (a *xAdapter) chunkedInit(ctx context.Context, token, host string, f *media.File) (string, error) {
	form := url.Values{}
	form.Set("command", "INIT")
	form.Set("total_bytes", strconv.FormatInt(f.Size, 10))
	form.Set("media_type", f.MimeType)
	form.Set("media_category", a.mediaCategory(f))

	req, err := http.NewRequestWithContext(ctx, "POST", host+"/media/upload.json",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return a.doUpload(req)
}

func (a *xAdapter) chunkedAppend(ctx context.Context, token, host, mediaID string, index int, chunk []byte) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.WriteField("command", "APPEND")
	writer.WriteField("media_id", mediaID)
	writer.WriteField("segment_index", strconv.Itoa(index))

	part, err := writer.CreateFormFile("media", "chunk")
	if err != nil {
		return err
	}
	if _, err := part.Write(chunk); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", host+"/media/upload.json", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("APPEND segment %d returned status %d", index, resp.StatusCode)
	}
	return nil
}

func (a *xAdapter) chunkedFinalize(ctx context.Context, token, host, mediaID string) (*xMediaResponse, error) {
	form := url.Values{}
	form.Set("command", "FINALIZE")
	form.Set("media_id", mediaID)

	req, err := http.NewRequestWithContext(ctx, "POST", host+"/media/upload.json",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, classifyResponse("x", "finalize upload", resp)
	}

	var finalized xMediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&finalized); err != nil {
		return nil, err
	}
	return &finalized, nil
}

// awaitProcessing polls STATUS, sleeping check_after_secs between polls,
// until the media succeeds, fails, or the overall budget runs out.
func (a *xAdapter) awaitProcessing(ctx context.Context, token, host, mediaID string, current *xMediaResponse) (string, error) {
	deadline := time.Now().Add(a.processingBudget)

	for {
		info := current.ProcessingInfo
		if info == nil || info.State == "succeeded" {
			return mediaID, nil
		}
		if info.State == "failed" {
			msg := "processing failed"
			if info.Error != nil {
				msg = info.Error.Message
			}
			return "", fmt.Errorf("media processing failed: %s", msg)
		}

		wait := time.Duration(info.CheckAfterSecs) * time.Second
		if wait <= 0 {
			wait = time.Second
		}
		if time.Now().Add(wait).After(deadline) {
			return "", fmt.Errorf("media processing did not finish within %s", a.processingBudget)
		}
		if err := a.sleep(ctx, wait); err != nil {
			return "", err
		}

		next, err := a.uploadStatus(ctx, token, host, mediaID)
		if err != nil {
			return "", err
		}
		current = next
	}
}

func (a *xAdapter) uploadStatus(ctx context.Context, token, host, mediaID string) (*xMediaResponse, error) {
	statusURL := fmt.Sprintf("%s/media/upload.json?command=STATUS&media_id=%s", host, mediaID)
	req, err := http.NewRequestWithContext(ctx, "GET", statusURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyResponse("x", "upload status", resp)
	}

	var status xMediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}
