package types

import "time"

// Job status constants
const (
	StatusIdle       = "IDLE"
	StatusPreparing  = "PREPARING"
	StatusExtracting = "EXTRACTING"
	StatusSubmitting = "SUBMITTING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Display-percent ceiling per pipeline stage. Each stage scales its own
// fractional progress into its slice of the 0-100 range.
const (
	ProgressPreparingEnd  = 15
	ProgressExtractingEnd = 60
	ProgressSubmittingEnd = 95
	ProgressDone          = 100
)

// AnalysisResult is the structured output of one completed analysis
type AnalysisResult struct {
	RawText     string    `json:"raw_text"`
	SummaryText string    `json:"summary_text"`
	SummaryHTML string    `json:"summary_html"`
	Titles      []string  `json:"titles"`
	TitlesHint  string    `json:"titles_hint,omitempty"`
	UsageCount  int64     `json:"usage_count"`
	ProcessedAt time.Time `json:"processed_at"`
}
