// Package pipeline orchestrates a discovery run through its five stages:
// discover, parse, enrich, contacts, validate. Stages execute strictly in
// order; items that fail a stage are dropped from the forward batch but
// kept in the run report. A stage that produces zero successes exhausts
// the run, subject to a small coarse retry ceiling.
package pipeline

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/config"
	"github.com/sells-group/leadscout/internal/dedupe"
	"github.com/sells-group/leadscout/internal/executor"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/ratelimit"
	"github.com/sells-group/leadscout/internal/resilience"
	"github.com/sells-group/leadscout/internal/tool"
)

// Tools holds the adapter for each stage.
type Tools struct {
	Discover tool.DiscoverTool
	Parse    tool.ParseTool
	Enrich   tool.ProspectTool
	Contacts tool.ProspectTool
	Validate tool.ProspectTool
}

// Pipeline executes discovery runs.
type Pipeline struct {
	cfg     config.DiscoveryConfig
	limiter *ratelimit.Limiter
	tools   Tools
	sink    ProgressSink
}

// New creates a pipeline. A nil sink logs progress via the global logger.
func New(cfg config.DiscoveryConfig, limiter *ratelimit.Limiter, tools Tools, sink ProgressSink) *Pipeline {
	if sink == nil {
		sink = LogSink{}
	}
	return &Pipeline{cfg: cfg, limiter: limiter, tools: tools, sink: sink}
}

// Run executes one discovery run to a terminal status. The report is
// always returned, even when the run fails or is cancelled; err is
// non-nil only for failed and cancelled runs.
func (p *Pipeline) Run(ctx context.Context, runID string) (*model.RunReport, error) {
	agg := NewAggregator(runID, p.cfg.Market)

	if t := p.cfg.RunTimeout(); t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	queries := p.queries()
	if len(queries) == 0 {
		err := resilience.NewValidationError("pipeline", "no discovery queries configured (need industries and locations)")
		return p.finish(ctx, agg, runID, nil, err)
	}

	log := zap.L().With(zap.String("run_id", runID), zap.String("market", p.cfg.Market))
	log.Info("run starting", zap.Int("queries", len(queries)))

	// Discover.
	batches, err := runStage(ctx, p, agg, runID, model.StageDiscover, p.tools.Discover.Spec(), queries,
		p.tools.Discover.Invoke,
		func(q model.DiscoveryQuery) string { return q.String() },
	)
	if err != nil {
		return p.finish(ctx, agg, runID, nil, err)
	}
	var candidates []model.RawCandidate
	for _, b := range batches {
		candidates = append(candidates, b...)
	}
	agg.CandidatesSeen(len(candidates))

	// Parse, then collapse duplicates before any paid enrichment runs.
	parsed, err := runStage(ctx, p, agg, runID, model.StageParse, p.tools.Parse.Spec(), candidates,
		p.tools.Parse.Invoke,
		candidateLabel,
	)
	if err != nil {
		return p.finish(ctx, agg, runID, nil, err)
	}
	deduper := dedupe.New()
	for _, pr := range parsed {
		pr.Stages.Mark(model.StageDiscover)
		pr.Stages.Mark(model.StageParse)
		deduper.Ingest(pr)
	}
	batch := deduper.Prospects()
	log.Info("parse complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("unique_prospects", len(batch)),
	)

	// Enrich and contacts. A stage failure freezes the report with the
	// prospects the preceding stages produced, so a failed run still
	// surfaces the work already paid for.
	enriched, err := p.prospectStage(ctx, agg, runID, model.StageEnrich, p.tools.Enrich, batch)
	if err != nil {
		return p.finish(ctx, agg, runID, batch, err)
	}
	withContacts, err := p.prospectStage(ctx, agg, runID, model.StageContacts, p.tools.Contacts, enriched)
	if err != nil {
		return p.finish(ctx, agg, runID, enriched, err)
	}

	// Validate: skips are rejections, counted by the aggregator.
	qualified, err := p.prospectStage(ctx, agg, runID, model.StageValidate, p.tools.Validate, withContacts)
	if err != nil {
		return p.finish(ctx, agg, runID, withContacts, err)
	}

	final := finalize(qualified, p.cfg.MaxProspects)
	log.Info("run complete",
		zap.Int("qualified", len(qualified)),
		zap.Int("delivered", len(final)),
	)
	return p.finish(ctx, agg, runID, final, nil)
}

// prospectStage runs one prospect-transforming stage and marks the stage
// bit on every success.
func (p *Pipeline) prospectStage(ctx context.Context, agg *Aggregator, runID string, stage model.Stage, t tool.ProspectTool, batch []*model.Prospect) ([]*model.Prospect, error) {
	successes, err := runStage(ctx, p, agg, runID, stage, t.Spec(), batch,
		t.Invoke,
		func(pr *model.Prospect) string { return pr.CompanyName },
	)
	if err != nil {
		return nil, err
	}
	for _, pr := range successes {
		pr.Stages.Mark(stage)
	}
	return successes, nil
}

// runStage executes one stage batch, retrying the whole stage up to the
// coarse ceiling when it exhausts (zero successes with at least one
// retryable failure). Skip-only stages are not exhaustion: rejecting
// every item is a legitimate outcome.
func runStage[I, O any](
	ctx context.Context,
	p *Pipeline,
	agg *Aggregator,
	runID string,
	stage model.Stage,
	spec tool.Spec,
	items []I,
	invoke func(ctx context.Context, item I) (O, error),
	label func(I) string,
) ([]O, error) {
	if len(items) == 0 {
		return nil, nil
	}

	retry := resilience.RetryConfig{
		MaxAttempts: p.cfg.Retry.MaxAttempts,
		BaseDelay:   p.cfg.Retry.BaseDelay(),
		MaxDelay:    p.cfg.Retry.MaxDelay(),
	}

	passes := 1 + p.cfg.PipelineRetries
	for pass := 0; pass < passes; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		agg.StageStarted(stage, len(items))
		p.sink.Progress(ProgressEvent{
			RunID:  runID,
			Stage:  stage.String(),
			Status: model.RunStatusRunning,
			Items:  len(items),
		})

		start := time.Now()
		outcomes := executor.Run(ctx, executor.Options{
			Stage:       stage,
			Concurrency: p.cfg.StageConcurrency(stage.String()),
			Retry:       retry,
			Limiter:     p.limiter,
		}, spec, items, invoke, func(o executor.Outcome[I, O]) {
			agg.Outcome(stage, label(o.Item), o.Status, o.Attempts, o.Retryable, o.Err)
		})

		var successes []O
		failed, retryable := 0, false
		for _, o := range outcomes {
			switch o.Status {
			case model.OutcomeSuccess:
				successes = append(successes, o.Value)
			case model.OutcomeFailed:
				failed++
				retryable = retryable || o.Retryable
			}
		}

		exhausted := len(successes) == 0 && failed > 0
		agg.StageDone(stage, time.Since(start), exhausted)
		p.sink.Progress(ProgressEvent{
			RunID:     runID,
			Stage:     stage.String(),
			Status:    model.RunStatusRunning,
			Items:     len(items),
			Succeeded: len(successes),
			Failed:    failed,
		})

		if !exhausted {
			return successes, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !retryable || pass == passes-1 {
			break
		}
		zap.L().Warn("stage exhausted, retrying whole stage",
			zap.String("run_id", runID),
			zap.String("stage", stage.String()),
			zap.Int("pass", pass+1),
		)
	}

	return nil, &resilience.StageExhaustedError{Stage: stage.String(), Items: len(items)}
}

// finish freezes the report in its terminal status.
func (p *Pipeline) finish(ctx context.Context, agg *Aggregator, runID string, prospects []*model.Prospect, err error) (*model.RunReport, error) {
	status := model.RunStatusComplete
	reason := ""

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		status = model.RunStatusCancelled
		reason = "run cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		// The run timeout behaves like a cancellation, not a failure; the
		// reason string keeps the two distinguishable.
		status = model.RunStatusCancelled
		reason = "run timeout exceeded"
	default:
		status = model.RunStatusFailed
		reason = err.Error()
	}

	agg.Finish(status, prospects, reason)
	p.sink.Progress(ProgressEvent{
		RunID:   runID,
		Status:  status,
		Message: reason,
	})

	snap := agg.Snapshot()
	return &snap, err
}

// queries fans the configured filters out into the cross product of
// industries and locations.
func (p *Pipeline) queries() []model.DiscoveryQuery {
	limit := p.cfg.MaxProspects
	if limit <= 0 {
		limit = 50
	}
	var out []model.DiscoveryQuery
	for _, industry := range p.cfg.Filters.Industries {
		for _, location := range p.cfg.Filters.Locations {
			out = append(out, model.DiscoveryQuery{
				Industry:     industry,
				Location:     location,
				RadiusMeters: p.cfg.Filters.RadiusMeters,
				Limit:        limit,
			})
		}
	}
	return out
}

// finalize orders the qualified list by completeness and cuts it to the
// configured maximum: more completed stages first, then more populated
// contact fields, then higher ICP score, then identity key for a stable
// order.
func finalize(prospects []*model.Prospect, maxProspects int) []*model.Prospect {
	sort.Slice(prospects, func(i, j int) bool {
		a, b := prospects[i], prospects[j]
		if ac, bc := a.Stages.Count(), b.Stages.Count(); ac != bc {
			return ac > bc
		}
		if af, bf := a.ContactFields(), b.ContactFields(); af != bf {
			return af > bf
		}
		if a.ICPScore != b.ICPScore {
			return a.ICPScore > b.ICPScore
		}
		return dedupe.IdentityKey(a) < dedupe.IdentityKey(b)
	})

	if maxProspects > 0 && len(prospects) > maxProspects {
		prospects = prospects[:maxProspects]
	}
	return prospects
}

func candidateLabel(c model.RawCandidate) string {
	if name, ok := c.Payload["name"].(string); ok && name != "" {
		return name
	}
	return c.Source
}
