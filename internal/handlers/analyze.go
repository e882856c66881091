package handlers

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/clipbrief/video-insight/internal/jobs"
	"github.com/clipbrief/video-insight/internal/media"
	"github.com/clipbrief/video-insight/internal/types"
)

// AnalyzeHandler accepts a video upload and starts the analysis pipeline.
type AnalyzeHandler struct {
	runner    *jobs.Runner
	uploadDir string
	maxSizeMB int
}

// NewAnalyzeHandler creates the upload handler.
func NewAnalyzeHandler(runner *jobs.Runner, uploadDir string, maxSizeMB int) *AnalyzeHandler {
	return &AnalyzeHandler{
		runner:    runner,
		uploadDir: uploadDir,
		maxSizeMB: maxSizeMB,
	}
}

// Handle validates the upload, stages it, and claims the single job slot.
func (h *AnalyzeHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file uploaded",
			"code":  "ERR_NO_FILE",
		})
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if file.Size > maxSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB),
			"code":  "ERR_FILE_TOO_LARGE",
		})
	}

	if !media.ValidateVideoFormat(file.Filename) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unsupported video format",
			"code":  "ERR_INVALID_FORMAT",
		})
	}

	tempPath := filepath.Join(h.uploadDir, fmt.Sprintf("upload_%s%s", uuid.New().String(), filepath.Ext(file.Filename)))
	if err := c.SaveFile(file, tempPath); err != nil {
		logrus.Errorf("Failed to save uploaded file: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save file",
			"code":  "ERR_SAVE_FAILED",
		})
	}

	jobID, err := h.runner.Start(file.Filename, tempPath)
	if err != nil {
		if errors.Is(err, jobs.ErrJobAlreadyRunning) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "An analysis is already in progress",
				"code":  "ERR_JOB_ACTIVE",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_START_FAILED",
		})
	}

	return c.JSON(fiber.Map{
		"job_id": jobID,
		"status": types.StatusPreparing,
	})
}
