package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/socialcast-io/socialcast/internal/media"
	"github.com/socialcast-io/socialcast/internal/publish"
	"github.com/socialcast-io/socialcast/internal/transfer"
)

type PublishHandler struct {
	orchestrator publish.Orchestrator
}

func NewPublishHandler(orchestrator publish.Orchestrator) *PublishHandler {
	return &PublishHandler{orchestrator: orchestrator}
}

func (h *PublishHandler) Publish(c *fiber.Ctx) error {
	userID := GetUserID(c)

	form, err := c.MultipartForm()
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse form",
		})
	}

	pc := &transfer.PublishCreation{
		Content:        c.FormValue("content"),
		PostType:       c.FormValue("post_type"),
		LinkURL:        c.FormValue("link_url"),
		ScheduledTime:  c.FormValue("scheduled_for"),
		TargetAccounts: c.FormValue("target_accounts"),
	}

	req, err := buildRequest(pc, form.File["files"])
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	result, err := h.orchestrator.Publish(c.Context(), userID, req)
	if err != nil {
		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, publish.ErrNoActiveAccounts), errors.Is(err, publish.ErrMediaHostRequired):
			status = fiber.StatusBadRequest
		case errors.Is(err, publish.ErrAccountOwnership):
			status = fiber.StatusForbidden
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func buildRequest(pc *transfer.PublishCreation, files []*multipart.FileHeader) (*publish.Request, error) {
	if pc.Content == "" && len(files) == 0 {
		return nil, errors.New("content or media is required")
	}

	var targetAccounts []int64
	if err := json.Unmarshal([]byte(pc.TargetAccounts), &targetAccounts); err != nil {
		return nil, errors.New("invalid target accounts format")
	}
	if len(targetAccounts) == 0 {
		return nil, errors.New("no target accounts selected")
	}

	req := &publish.Request{
		Content:          pc.Content,
		PostType:         pc.PostType,
		LinkURL:          pc.LinkURL,
		TargetAccountIDs: targetAccounts,
	}

	if pc.ScheduledTime != "" {
		scheduledFor, err := time.Parse("2006-01-02T15:04", pc.ScheduledTime)
		if err != nil {
			return nil, errors.New("invalid scheduled time format")
		}
		req.ScheduledFor = scheduledFor
	}

	for _, header := range files {
		f, err := readFile(header)
		if err != nil {
			return nil, err
		}
		req.Media = append(req.Media, f)
	}

	return req, nil
}

func readFile(header *multipart.FileHeader) (*media.File, error) {
	src, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}

	return media.FromBytes(header.Filename, data)
}
