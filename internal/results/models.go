package results

import (
	"time"

	"gazefix/internal/services"
)

// RunStatus tracks the lifecycle of one batch run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one invocation of the batch pipeline.
type Run struct {
	ID           string
	DataDir      string
	OutputDir    string
	Status       RunStatus
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time

	// Aggregates derived from the recordings table.
	Files     int
	Processed int
	Fixations int
}

// Skipped returns how many recordings did not contribute rows.
func (r Run) Skipped() int {
	return r.Files - r.Processed
}

// Elapsed returns the run duration, or zero while the run is in progress.
func (r Run) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FileOutcome records what happened to a single recording during a run.
type FileOutcome struct {
	Path        string
	Participant string
	Trial       string
	Layout      string
	Samples     int
	Outcome     services.Outcome
	Fixations   int
	Detail      string
	Elapsed     time.Duration
	RecordedAt  time.Time
}
