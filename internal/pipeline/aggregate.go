package pipeline

import (
	"sync"
	"time"

	"github.com/sells-group/leadscout/internal/model"
)

// Aggregator builds the run report incrementally as stage outcomes
// stream in. All methods are safe for concurrent use; Snapshot returns a
// consistent copy at any point during the run, so live progress reads
// never see a half-updated report.
type Aggregator struct {
	mu     sync.Mutex
	report model.RunReport
}

// NewAggregator starts a report for a run.
func NewAggregator(runID, market string) *Aggregator {
	return &Aggregator{
		report: model.RunReport{
			RunID:     runID,
			Market:    market,
			Status:    model.RunStatusRunning,
			StartedAt: time.Now().UTC(),
		},
	}
}

// StageStarted opens a new stage report entry. Each coarse retry of an
// exhausted stage gets its own entry, so the report shows every pass.
func (a *Aggregator) StageStarted(stage model.Stage, items int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.report.StageReports = append(a.report.StageReports, model.StageReport{
		Stage: stage.String(),
		Items: items,
	})
}

// Outcome records one item's terminal result against the stage's open
// entry. Failures land in the report's error list; validate-stage skips
// count as rejected prospects.
func (a *Aggregator) Outcome(stage model.Stage, item string, status model.OutcomeStatus, attempts int, retryable bool, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sr := a.currentStage(stage)
	if sr == nil {
		return
	}
	sr.Attempts += attempts

	switch status {
	case model.OutcomeSuccess:
		sr.Succeeded++
	case model.OutcomeSkipped:
		sr.Skipped++
		if stage == model.StageValidate {
			a.report.Rejected++
		}
	case model.OutcomeFailed:
		sr.Failed++
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		a.report.Errors = append(a.report.Errors, model.ItemError{
			Stage:     stage.String(),
			Item:      item,
			Error:     msg,
			Retryable: retryable,
		})
	}
}

// StageDone closes the stage's open entry.
func (a *Aggregator) StageDone(stage model.Stage, elapsed time.Duration, exhausted bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sr := a.currentStage(stage)
	if sr == nil {
		return
	}
	sr.DurationMS = elapsed.Milliseconds()
	if exhausted {
		sr.Status = model.OutcomeFailed
	} else {
		sr.Status = model.OutcomeSuccess
	}
}

// CandidatesSeen adds to the raw candidate count from discovery.
func (a *Aggregator) CandidatesSeen(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.report.CandidatesSeen += n
}

// Finish freezes the report in a terminal status with the final prospect
// list.
func (a *Aggregator) Finish(status model.RunStatus, prospects []*model.Prospect, reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.report.Status = status
	a.report.Prospects = prospects
	a.report.FailureReason = reason
	a.report.CompletedAt = time.Now().UTC()
	a.report.DurationMS = a.report.CompletedAt.Sub(a.report.StartedAt).Milliseconds()

	if len(prospects) > 0 {
		sum := 0.0
		for _, p := range prospects {
			sum += p.ICPScore
		}
		a.report.AverageICPScore = sum / float64(len(prospects))
	}
}

// Snapshot returns a consistent copy of the report as it stands.
func (a *Aggregator) Snapshot() model.RunReport {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := a.report
	snap.StageReports = append([]model.StageReport(nil), a.report.StageReports...)
	snap.Errors = append([]model.ItemError(nil), a.report.Errors...)
	snap.Prospects = append([]*model.Prospect(nil), a.report.Prospects...)
	return snap
}

// currentStage returns the most recent open entry for a stage. Callers
// hold a.mu.
func (a *Aggregator) currentStage(stage model.Stage) *model.StageReport {
	name := stage.String()
	for i := len(a.report.StageReports) - 1; i >= 0; i-- {
		if a.report.StageReports[i].Stage == name {
			return &a.report.StageReports[i]
		}
	}
	return nil
}
