package handlers

import (
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/clipbrief/video-insight/internal/jobs"
)

const progressPollInterval = 200 * time.Millisecond

// ProgressHandler streams job events to WebSocket subscribers.
type ProgressHandler struct {
	bus *jobs.EventBus
}

// NewProgressHandler creates the progress stream handler.
func NewProgressHandler(bus *jobs.EventBus) *ProgressHandler {
	return &ProgressHandler{bus: bus}
}

// Handle pushes every event published after the connection opened, in
// order, until the client disconnects.
func (h *ProgressHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	// New subscribers only see events from now on; the UI snapshot
	// endpoint covers catch-up.
	var lastSeq int64
	if latest := h.bus.Since(0); len(latest) > 0 {
		lastSeq = latest[len(latest)-1].Seq
	}

	ticker := time.NewTicker(progressPollInterval)
	defer ticker.Stop()

	for range ticker.C {
		for _, event := range h.bus.Since(lastSeq) {
			if err := c.WriteJSON(event); err != nil {
				logrus.Debugf("Progress subscriber gone: %v", err)
				return
			}
			lastSeq = event.Seq
		}
	}
}
