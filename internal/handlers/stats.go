package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/clipbrief/video-insight/internal/storage"
)

// StatsHandler exposes the usage counter.
type StatsHandler struct {
	db *storage.DB
}

// NewStatsHandler creates the stats handler.
func NewStatsHandler(db *storage.DB) *StatsHandler {
	return &StatsHandler{db: db}
}

// Get returns the current usage count, 0 when none has been recorded.
func (h *StatsHandler) Get(c *fiber.Ctx) error {
	count, err := h.db.UsageCount()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"count": count})
}

// Increment bumps the counter by one and returns the new value.
func (h *StatsHandler) Increment(c *fiber.Ctx) error {
	count, err := h.db.IncrementUsage()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"count": count})
}
