package jobs

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/clipbrief/video-insight/internal/types"
)

// ErrJobAlreadyRunning is returned when a second job is started while one
// is still active. At most one analysis runs at a time.
var ErrJobAlreadyRunning = errors.New("an analysis is already in progress")

// ErrJobStillRunning is returned when reset is requested mid-flight.
var ErrJobStillRunning = errors.New("job is still running")

// Job is one user-initiated run of the pipeline, from file selection to
// result or failure.
type Job struct {
	ID         string                `json:"id"`
	SourceName string                `json:"source_name,omitempty"`
	Status     string                `json:"status"`
	Percent    int                   `json:"percent"`
	Detail     string                `json:"detail,omitempty"`
	Error      string                `json:"error,omitempty"`
	Result     *types.AnalysisResult `json:"result,omitempty"`
	CreatedAt  time.Time             `json:"created_at,omitempty"`
}

// Manager owns the single in-flight job and enforces its state machine.
type Manager struct {
	mu      sync.RWMutex
	current Job
}

// NewManager creates a manager in idle state.
func NewManager() *Manager {
	return &Manager{current: Job{Status: types.StatusIdle}}
}

// Start claims the single job slot. Fails with ErrJobAlreadyRunning while
// another job is active.
func (m *Manager) Start(id, sourceName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isRunning(m.current.Status) {
		return ErrJobAlreadyRunning
	}
	m.current = Job{
		ID:         id,
		SourceName: sourceName,
		Status:     types.StatusPreparing,
		CreatedAt:  time.Now(),
	}
	return nil
}

// Transition applies one state-machine edge for the current job.
func (m *Manager) Transition(status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if status == m.current.Status {
		return nil
	}
	if !isValidTransition(m.current.Status, status) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.Status, status)
	}
	m.current.Status = status
	return nil
}

// SetProgress updates the displayed percentage and detail text. The
// percentage is clamped to be monotonically non-decreasing within a job.
func (m *Manager) SetProgress(percent int, detail string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if percent > m.current.Percent {
		m.current.Percent = percent
	}
	if detail != "" {
		m.current.Detail = detail
	}
	return m.current.Percent
}

// SetDetail updates only the description text. Used for advisory engine log
// lines, which must never move the percentage.
func (m *Manager) SetDetail(detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.Detail = detail
}

// Complete stores the result and moves the job to its terminal state.
func (m *Manager) Complete(result *types.AnalysisResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !isValidTransition(m.current.Status, types.StatusCompleted) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.Status, types.StatusCompleted)
	}
	m.current.Status = types.StatusCompleted
	m.current.Percent = types.ProgressDone
	m.current.Result = result
	return nil
}

// Fail marks the job failed with a user-visible message. The job's partial
// data is discarded; only the message survives for display.
func (m *Manager) Fail(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current.Status = types.StatusFailed
	m.current.Error = message
	m.current.Result = nil
}

// Reset returns a finished job to idle. Running jobs cannot be reset.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isRunning(m.current.Status) {
		return ErrJobStillRunning
	}
	m.current = Job{Status: types.StatusIdle}
	return nil
}

// Snapshot returns a copy of the current job.
func (m *Manager) Snapshot() Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// IsRunning reports whether a job is mid-flight.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return isRunning(m.current.Status)
}

func isRunning(status string) bool {
	switch status {
	case types.StatusPreparing, types.StatusExtracting, types.StatusSubmitting:
		return true
	default:
		return false
	}
}

func isValidTransition(from, to string) bool {
	switch from {
	case types.StatusIdle:
		return to == types.StatusPreparing
	case types.StatusPreparing:
		return to == types.StatusExtracting || to == types.StatusFailed
	case types.StatusExtracting:
		return to == types.StatusSubmitting || to == types.StatusFailed
	case types.StatusSubmitting:
		return to == types.StatusCompleted || to == types.StatusFailed
	case types.StatusCompleted, types.StatusFailed:
		return to == types.StatusIdle
	default:
		return false
	}
}

// ScaleToStage maps a stage-local fraction in [0,1] into the stage's display
// percent range [lo, hi].
func ScaleToStage(fraction float64, lo, hi int) int {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return lo + int(math.Round(fraction*float64(hi-lo)))
}
