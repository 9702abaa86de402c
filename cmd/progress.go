package main

import (
	"sync"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/pipeline"
)

// runProgress is the live view of an in-flight run served by the
// progress endpoint: the latest event per stage plus the run status.
type runProgress struct {
	RunID  string                   `json:"run_id"`
	Status model.RunStatus          `json:"status"`
	Stages []pipeline.ProgressEvent `json:"stages,omitempty"`
}

// progressTracker is a ProgressSink that keeps the latest event per
// stage for each in-flight run, so the API can answer progress polls
// without touching the store.
type progressTracker struct {
	mu   sync.Mutex
	runs map[string]*runProgress
}

func newProgressTracker() *progressTracker {
	return &progressTracker{runs: make(map[string]*runProgress)}
}

// Progress implements pipeline.ProgressSink.
func (t *progressTracker) Progress(e pipeline.ProgressEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prog, ok := t.runs[e.RunID]
	if !ok {
		prog = &runProgress{RunID: e.RunID}
		t.runs[e.RunID] = prog
	}
	prog.Status = e.Status

	if e.Stage == "" {
		return
	}
	for i := range prog.Stages {
		if prog.Stages[i].Stage == e.Stage {
			prog.Stages[i] = e
			return
		}
	}
	prog.Stages = append(prog.Stages, e)
}

// snapshot returns a copy of the tracked progress for a run.
func (t *progressTracker) snapshot(runID string) (runProgress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prog, ok := t.runs[runID]
	if !ok {
		return runProgress{}, false
	}
	out := runProgress{RunID: prog.RunID, Status: prog.Status}
	out.Stages = append(out.Stages, prog.Stages...)
	return out, true
}

// forget drops a run from the tracker once its report is persisted.
func (t *progressTracker) forget(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.runs, runID)
}
