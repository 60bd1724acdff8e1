package history

import "time"

// Status is the outcome of a run or of one track within it.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	// StatusPartial marks a run where some selected tracks failed.
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
	// StatusRejected marks work refused for a reason the operator must fix
	// (bad input, missing tools, invalid configuration).
	StatusRejected Status = "rejected"
	// StatusSkipped marks a track that produced no cues.
	StatusSkipped Status = "skipped"
)

// Run is one extraction invocation against one input file.
type Run struct {
	ID         string
	InputPath  string
	Status     Status
	Languages  string
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Duration returns the elapsed run time, measured to now while running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Track is the per-track record of a run.
type Track struct {
	RunID        string
	StreamIndex  int
	Codec        string
	Language     string
	Status       Status
	PacketCount  int
	DroppedCount int
	CueCount     int
	OutputPath   string
	Error        string
	UpdatedAt    time.Time
}
