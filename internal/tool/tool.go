// Package tool defines the adapter contract wrapping each external
// capability behind a uniform invoke surface, and the stock adapters for
// the five pipeline stages. Adapters validate their inputs up front
// (failures are fatal, never retried), declare the rate-limit bucket they
// consume and their per-call timeout, and cap their output size;
// oversized output is truncated and flagged, never silently dropped.
package tool

import (
	"context"
	"time"

	"github.com/sells-group/leadscout/internal/model"
)

// Spec declares an adapter's external footprint: the bucket every
// invocation debits (win or lose), the per-call timeout, the per-item
// retry ceiling, and the output payload cap.
type Spec struct {
	Name            string
	Bucket          string
	Timeout         time.Duration
	MaxAttempts     int
	MaxPayloadBytes int
}

// DiscoverTool turns a discovery query into raw candidates.
type DiscoverTool interface {
	Spec() Spec
	Invoke(ctx context.Context, q model.DiscoveryQuery) ([]model.RawCandidate, error)
}

// ParseTool turns one raw candidate into a canonical prospect.
type ParseTool interface {
	Spec() Spec
	Invoke(ctx context.Context, c model.RawCandidate) (*model.Prospect, error)
}

// ProspectTool updates a prospect in place for one stage (enrich,
// contacts, validate). Implementations must return a prospect derived
// from the input rather than sharing mutable state across items.
type ProspectTool interface {
	Spec() Spec
	Invoke(ctx context.Context, p *model.Prospect) (*model.Prospect, error)
}

// truncate cuts s to the spec's payload cap and reports whether it cut
// anything.
func truncate(s string, spec Spec) (string, bool) {
	if spec.MaxPayloadBytes <= 0 || len(s) <= spec.MaxPayloadBytes {
		return s, false
	}
	return s[:spec.MaxPayloadBytes], true
}
