// Package executor runs one pipeline stage's batch of items through a
// tool adapter with bounded concurrency. Each item gets exactly one
// terminal outcome (success, skipped, or failed); per-item failures never
// abort the batch. Cancellation stops new admissions while invocations
// already in flight run to completion under their own timeout.
package executor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/ratelimit"
	"github.com/sells-group/leadscout/internal/resilience"
	"github.com/sells-group/leadscout/internal/tool"
)

// Outcome is the terminal result of one item's trip through a stage.
// Value is populated on success, and on skips when the adapter returned
// a value alongside the skip.
type Outcome[I, O any] struct {
	Item      I
	Value     O
	Status    model.OutcomeStatus
	Err       error
	Attempts  int
	Retryable bool
	Duration  time.Duration
}

// Options configures a stage batch run.
type Options struct {
	Stage       model.Stage
	Concurrency int
	Retry       resilience.RetryConfig
	Limiter     *ratelimit.Limiter
}

// Run invokes the adapter once per item with at most opts.Concurrency
// invocations in flight, applying the admission bucket, the per-call
// timeout, and the retry policy from spec. Outcomes are returned in item
// order; onOutcome (optional) additionally receives each outcome as it
// lands, serialized.
func Run[I, O any](
	ctx context.Context,
	opts Options,
	spec tool.Spec,
	items []I,
	invoke func(ctx context.Context, item I) (O, error),
	onOutcome func(Outcome[I, O]),
) []Outcome[I, O] {
	if len(items) == 0 {
		return nil
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	outcomes := make([]Outcome[I, O], len(items))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			out := runOne(gctx, opts, spec, item, invoke)
			outcomes[i] = out
			if onOutcome != nil {
				mu.Lock()
				onOutcome(out)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors

	return outcomes
}

// runOne produces the single terminal outcome for one item.
func runOne[I, O any](
	ctx context.Context,
	opts Options,
	spec tool.Spec,
	item I,
	invoke func(ctx context.Context, item I) (O, error),
) Outcome[I, O] {
	out := Outcome[I, O]{Item: item}
	start := time.Now()

	// Cancelled before admission: the item was never attempted.
	if err := ctx.Err(); err != nil {
		out.Status = model.OutcomeFailed
		out.Err = err
		out.Retryable = true
		out.Duration = time.Since(start)
		return out
	}

	cfg := opts.Retry
	if spec.MaxAttempts > 0 {
		cfg.MaxAttempts = spec.MaxAttempts
	}
	cfg.OnRetry = resilience.RetryLogger(opts.Stage.String(), spec.Name)

	attempts := 0
	var skipVal O
	var skipped bool

	val, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (O, error) {
		// Every attempt debits the declared bucket, win or lose. A bucket
		// exhausted past its wait ceiling (or a cancellation during the
		// wait) fails the attempt without reaching the tool, and rate-limit
		// errors are never retried locally: hammering an exhausted budget
		// only digs the hole deeper.
		if opts.Limiter != nil && spec.Bucket != "" {
			if err := opts.Limiter.Acquire(ctx, spec.Bucket); err != nil {
				var zero O
				return zero, err
			}
		}
		attempts++

		// In-flight invocations complete even if the run is cancelled;
		// the per-call timeout is the only clock on an attempt.
		callCtx := context.WithoutCancel(ctx)
		if spec.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(callCtx, spec.Timeout)
			defer cancel()
		}

		v, err := invoke(callCtx, item)
		if err != nil && tool.IsSkip(err) {
			// Preserve the value a skip may carry (e.g. a rejected
			// prospect with its score and issues filled in).
			skipVal, skipped = v, true
		}
		return v, err
	})

	out.Attempts = attempts
	out.Duration = time.Since(start)

	switch {
	case err == nil:
		out.Status = model.OutcomeSuccess
		out.Value = val
	case skipped:
		out.Status = model.OutcomeSkipped
		out.Err = err
		out.Value = skipVal
	default:
		out.Status = model.OutcomeFailed
		out.Err = err
		out.Retryable = resilience.IsRetryable(err) || resilience.IsRateLimited(err)
		zap.L().Debug("item failed",
			zap.String("stage", opts.Stage.String()),
			zap.String("tool", spec.Name),
			zap.Int("attempts", attempts),
			zap.Bool("retryable", out.Retryable),
			zap.Error(err),
		)
	}
	return out
}
