package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/socialcast-io/socialcast/internal/models"
	"github.com/socialcast-io/socialcast/internal/nimble"
)

type RepublishHandler struct {
	nimble *nimble.Client
}

func NewRepublishHandler(client *nimble.Client) *RepublishHandler {
	return &RepublishHandler{nimble: client}
}

func (h *RepublishHandler) ListRules(c *fiber.Ctx) error {
	rules, err := h.nimble.ListRules(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Unable to list republishing rules",
		})
	}

	return c.Status(fiber.StatusOK).JSON(rules)
}

func (h *RepublishHandler) CreateRule(c *fiber.Ctx) error {
	var rule models.RepublishRule
	if err := c.BodyParser(&rule); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid rule payload",
		})
	}

	if rule.SrcApp == "" || rule.SrcStream == "" || rule.DestAddr == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "src_app, src_stream and dest_addr are required",
		})
	}

	created, err := h.nimble.CreateRule(c.Context(), &rule)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Unable to create republishing rule",
		})
	}

	return c.Status(fiber.StatusOK).JSON(created)
}

func (h *RepublishHandler) RemoveRule(c *fiber.Ctx) error {
	ruleID := c.Query("id")
	if ruleID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing rule id",
		})
	}

	if err := h.nimble.DeleteRule(c.Context(), ruleID); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Unable to remove republishing rule",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
