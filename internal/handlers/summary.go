package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/clipbrief/video-insight/internal/gemini"
	"github.com/clipbrief/video-insight/internal/storage"
)

// SummaryHandler proxies raw audio bodies to the generative endpoint.
type SummaryHandler struct {
	ai *gemini.Client
	db *storage.DB
}

// NewSummaryHandler creates the summary proxy handler.
func NewSummaryHandler(ai *gemini.Client, db *storage.DB) *SummaryHandler {
	return &SummaryHandler{ai: ai, db: db}
}

// Handle accepts the audio bytes, calls the provider, and returns either
// {result} or a 500 {error} envelope.
func (h *SummaryHandler) Handle(c *fiber.Ctx) error {
	audio := c.Body()
	if len(audio) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Empty audio payload",
		})
	}

	text, err := h.ai.Summarize(c.Context(), audio)
	if err != nil {
		if errors.Is(err, gemini.ErrMissingConfig) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "System configuration error: Missing API Key, Base URL or Model Name.",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	// The counter is a vanity metric; its failure never reaches the caller.
	if _, err := h.db.IncrementUsage(); err != nil {
		logrus.Warnf("Failed to update usage count: %v", err)
	}

	return c.JSON(fiber.Map{"result": text})
}
