package analyze

import "time"

// Status tracks where an analysis run is in its lifecycle.
type Status string

const (
	// StatusPending means created, not yet started
	StatusPending Status = "pending"

	// StatusInProgress means currently being processed
	StatusInProgress Status = "in_progress"

	// StatusComplete means finished successfully
	StatusComplete Status = "complete"

	// StatusFailed means aborted before the backlog was drained
	StatusFailed Status = "failed"
)

// Report is the tally of one analysis run.
type Report struct {
	Total      int      `json:"total"`
	Analyzed   int      `json:"analyzed"`
	Summarized int      `json:"summarized"`
	Errors     []string `json:"errors,omitempty"`
}

// Run is the outcome of an analysis run.
type Run struct {
	ID          string    `json:"id"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
	Duration    float64   `json:"duration_seconds,omitempty"`
	Report      *Report   `json:"report,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// StartResult is the outcome of requesting a new analysis run.
type StartResult struct {
	ID      string
	Skipped bool
	Reason  string
}

// Progress stages reported while a run works through the backlog.
const (
	StageAnalyzing   = "analyzing"
	StageSummarizing = "summarizing"
	StageSaving      = "saving"
	StageCompleted   = "completed"
	StageError       = "error"
)

// ProgressFunc observes per-message progress. current counts finished
// messages, total is the backlog size, label identifies the message being
// worked on.
type ProgressFunc func(current, total int, label, stage string)
