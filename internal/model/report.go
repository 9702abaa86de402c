package model

import "time"

// RunStatus represents the current state of a discovery run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusComplete  RunStatus = "complete"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status will not change further.
func (s RunStatus) Terminal() bool {
	return s == RunStatusComplete || s == RunStatusFailed || s == RunStatusCancelled
}

// OutcomeStatus classifies a single item's terminal result within a stage.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

// ItemError records a non-fatal per-item failure for the run report.
type ItemError struct {
	Stage     string `json:"stage"`
	Item      string `json:"item"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// StageReport aggregates the per-item outcomes of one stage.
type StageReport struct {
	Stage      string        `json:"stage"`
	Items      int           `json:"items"`
	Succeeded  int           `json:"succeeded"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Attempts   int           `json:"attempts"`
	DurationMS int64         `json:"duration_ms"`
	Status     OutcomeStatus `json:"status"`
}

// RunReport is the aggregate of a complete discovery run. It is built
// incrementally while the run executes and frozen once the run reaches a
// terminal status.
type RunReport struct {
	RunID           string        `json:"run_id"`
	Market          string        `json:"market"`
	Status          RunStatus     `json:"status"`
	CandidatesSeen  int           `json:"candidates_seen"`
	StageReports    []StageReport `json:"stage_reports"`
	Errors          []ItemError   `json:"errors,omitempty"`
	Prospects       []*Prospect   `json:"prospects"`
	Rejected        int           `json:"rejected"`
	FailureReason   string        `json:"failure_reason,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	CompletedAt     time.Time     `json:"completed_at"`
	DurationMS      int64         `json:"duration_ms"`
	AverageICPScore float64       `json:"avg_icp_score"`
}

// Run represents a persisted discovery run.
type Run struct {
	ID        string     `json:"id"`
	Market    string     `json:"market"`
	Status    RunStatus  `json:"status"`
	Report    *RunReport `json:"report,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
