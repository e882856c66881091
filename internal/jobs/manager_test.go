package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipbrief/video-insight/internal/types"
)

func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	assert.False(t, m.IsRunning())
	assert.Equal(t, types.StatusIdle, m.Snapshot().Status)

	require.NoError(t, m.Start("job-1", "clip.mp4"))
	assert.True(t, m.IsRunning())

	require.NoError(t, m.Transition(types.StatusExtracting))
	require.NoError(t, m.Transition(types.StatusSubmitting))
	require.NoError(t, m.Complete(&types.AnalysisResult{RawText: "ok"}))

	snap := m.Snapshot()
	assert.Equal(t, types.StatusCompleted, snap.Status)
	assert.Equal(t, types.ProgressDone, snap.Percent)
	require.NotNil(t, snap.Result)
}

func TestManagerSingleFlight(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Start("job-1", "a.mp4"))

	err := m.Start("job-2", "b.mp4")
	assert.ErrorIs(t, err, ErrJobAlreadyRunning)

	// The original job is untouched by the rejected start.
	assert.Equal(t, "job-1", m.Snapshot().ID)
}

func TestManagerRejectsInvalidTransition(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Start("job-1", "a.mp4"))

	assert.Error(t, m.Transition(types.StatusSubmitting))
	assert.Error(t, m.Complete(&types.AnalysisResult{}))
}

func TestManagerProgressMonotonic(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Start("job-1", "a.mp4"))

	assert.Equal(t, 40, m.SetProgress(40, "a"))
	assert.Equal(t, 40, m.SetProgress(30, "b"))
	assert.Equal(t, 55, m.SetProgress(55, "c"))

	snap := m.Snapshot()
	assert.Equal(t, 55, snap.Percent)
	assert.Equal(t, "c", snap.Detail)
}

func TestManagerDetailOnlyUpdate(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Start("job-1", "a.mp4"))
	m.SetProgress(20, "transcoding")

	m.SetDetail("engine chatter")
	snap := m.Snapshot()
	assert.Equal(t, 20, snap.Percent)
	assert.Equal(t, "engine chatter", snap.Detail)
}

func TestManagerResetRules(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Start("job-1", "a.mp4"))

	assert.ErrorIs(t, m.Reset(), ErrJobStillRunning)

	m.Fail("boom")
	require.NoError(t, m.Reset())
	snap := m.Snapshot()
	assert.Equal(t, types.StatusIdle, snap.Status)
	assert.Empty(t, snap.Error)

	// Idle again: a fresh job may start.
	assert.NoError(t, m.Start("job-2", "b.mp4"))
}

func TestManagerFailFromAnyActiveState(t *testing.T) {
	for _, stage := range []string{types.StatusPreparing, types.StatusExtracting, types.StatusSubmitting} {
		m := NewManager()
		require.NoError(t, m.Start("job-1", "a.mp4"))
		if stage != types.StatusPreparing {
			require.NoError(t, m.Transition(types.StatusExtracting))
		}
		if stage == types.StatusSubmitting {
			require.NoError(t, m.Transition(types.StatusSubmitting))
		}

		m.Fail("broken")
		snap := m.Snapshot()
		assert.Equal(t, types.StatusFailed, snap.Status)
		assert.Equal(t, "broken", snap.Error)
		assert.Nil(t, snap.Result)
	}
}

func TestScaleToStage(t *testing.T) {
	// Extraction occupies the 15 to 60 band.
	assert.Equal(t, 15, ScaleToStage(0, 15, 60))
	assert.Equal(t, 60, ScaleToStage(1, 15, 60))
	assert.Equal(t, 60, ScaleToStage(2.5, 15, 60))
	assert.Equal(t, 15, ScaleToStage(-1, 15, 60))

	prev := 0
	for _, f := range []float64{0.1, 0.4, 0.9, 1.0} {
		pct := ScaleToStage(f, 15, 60)
		assert.GreaterOrEqual(t, pct, prev)
		prev = pct
	}
	assert.Equal(t, 60, prev)
}
