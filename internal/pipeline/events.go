package pipeline

import (
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
)

// ProgressEvent is one observable step of a run: a stage starting or
// finishing, or the run reaching a terminal status.
type ProgressEvent struct {
	RunID     string          `json:"run_id"`
	Stage     string          `json:"stage,omitempty"`
	Status    model.RunStatus `json:"status"`
	Items     int             `json:"items,omitempty"`
	Succeeded int             `json:"succeeded,omitempty"`
	Failed    int             `json:"failed,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// ProgressSink receives progress events as a run executes. Events are
// emitted serially from the pipeline goroutine.
type ProgressSink interface {
	Progress(e ProgressEvent)
}

// LogSink is the default sink: structured log lines via the global
// logger.
type LogSink struct{}

// Progress implements ProgressSink.
func (LogSink) Progress(e ProgressEvent) {
	zap.L().Info("run progress",
		zap.String("run_id", e.RunID),
		zap.String("stage", e.Stage),
		zap.String("status", string(e.Status)),
		zap.Int("items", e.Items),
		zap.Int("succeeded", e.Succeeded),
		zap.Int("failed", e.Failed),
		zap.String("message", e.Message),
	)
}

// multiSink fans events out to several sinks.
type multiSink []ProgressSink

func (m multiSink) Progress(e ProgressEvent) {
	for _, s := range m {
		s.Progress(e)
	}
}

// MultiSink combines sinks; nil sinks are dropped.
func MultiSink(sinks ...ProgressSink) ProgressSink {
	var out multiSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
