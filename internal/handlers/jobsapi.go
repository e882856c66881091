package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/clipbrief/video-insight/internal/jobs"
	"github.com/clipbrief/video-insight/internal/types"
)

// JobsHandler exposes the current job snapshot and explicit reset.
type JobsHandler struct {
	manager *jobs.Manager
}

// NewJobsHandler creates the job inspection handler.
func NewJobsHandler(manager *jobs.Manager) *JobsHandler {
	return &JobsHandler{manager: manager}
}

// Current returns a snapshot of the single job slot.
func (h *JobsHandler) Current(c *fiber.Ctx) error {
	return c.JSON(h.manager.Snapshot())
}

// Reset returns a finished job to idle. Running jobs are not resettable.
func (h *JobsHandler) Reset(c *fiber.Ctx) error {
	if err := h.manager.Reset(); err != nil {
		if errors.Is(err, jobs.ErrJobStillRunning) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Job is still running",
				"code":  "ERR_JOB_ACTIVE",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": types.StatusIdle})
}
