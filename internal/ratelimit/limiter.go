// Package ratelimit provides the shared, named-bucket admission control
// point for all external tool calls. Every adapter declares the bucket it
// consumes; stages sharing an upstream service share a bucket.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadscout/internal/resilience"
)

// BucketConfig defines one named budget: a refill rate, a burst capacity,
// and the longest an acquirer is willing to wait for a token before the
// acquisition fails with a RateLimitError.
type BucketConfig struct {
	Rate    float64       `yaml:"rate" mapstructure:"rate"`
	Burst   int           `yaml:"burst" mapstructure:"burst"`
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
}

type bucket struct {
	limiter *rate.Limiter
	maxWait time.Duration
}

// Limiter is a process-wide set of named token buckets. Tokens replenish
// on a wall-clock schedule regardless of request arrival order; Acquire is
// the only mutation path, so concurrent acquirers from multiple stages
// serialize correctly on the underlying limiter.
type Limiter struct {
	mu       sync.RWMutex
	buckets  map[string]*bucket
	fallback BucketConfig
}

// DefaultBuckets returns the built-in bucket configuration for the
// external services the stock adapters call.
func DefaultBuckets() map[string]BucketConfig {
	return map[string]BucketConfig{
		"google_maps": {Rate: 10, Burst: 10, MaxWait: 30 * time.Second},
		"firecrawl":   {Rate: 2, Burst: 4, MaxWait: 60 * time.Second},
		"perplexity":  {Rate: 1, Burst: 2, MaxWait: 60 * time.Second},
		"hunter":      {Rate: 5, Burst: 5, MaxWait: 30 * time.Second},
		"apollo":      {Rate: 5, Burst: 5, MaxWait: 30 * time.Second},
	}
}

// New creates a Limiter from bucket configs. Buckets not configured get a
// conservative fallback budget on first use.
func New(cfgs map[string]BucketConfig) *Limiter {
	l := &Limiter{
		buckets:  make(map[string]*bucket, len(cfgs)),
		fallback: BucketConfig{Rate: 5, Burst: 5, MaxWait: 30 * time.Second},
	}
	for name, c := range cfgs {
		l.buckets[name] = newBucket(c)
	}
	return l
}

func newBucket(c BucketConfig) *bucket {
	if c.Rate <= 0 {
		c.Rate = 1
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	return &bucket{
		limiter: rate.NewLimiter(rate.Limit(c.Rate), c.Burst),
		maxWait: c.MaxWait,
	}
}

func (l *Limiter) bucketFor(name string) *bucket {
	l.mu.RLock()
	b, ok := l.buckets[name]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok = l.buckets[name]; ok {
		return b
	}
	zap.L().Warn("ratelimit: unconfigured bucket, using fallback budget",
		zap.String("bucket", name),
		zap.Float64("rate", l.fallback.Rate),
	)
	b = newBucket(l.fallback)
	l.buckets[name] = b
	return b
}

// Acquire consumes one token from the named bucket, blocking until a token
// is available. If the projected wait exceeds the bucket's MaxWait, the
// reservation is released and a RateLimitError is returned without
// sleeping. An empty bucket name is a no-op (local tools consume no
// external budget).
func (l *Limiter) Acquire(ctx context.Context, name string) error {
	return l.AcquireN(ctx, name, 1)
}

// AcquireN consumes n tokens from the named bucket with Acquire semantics.
func (l *Limiter) AcquireN(ctx context.Context, name string, n int) error {
	if name == "" {
		return nil
	}
	b := l.bucketFor(name)

	res := b.limiter.ReserveN(time.Now(), n)
	if !res.OK() {
		return &resilience.RateLimitError{Bucket: name, Wait: b.maxWait}
	}
	delay := res.Delay()
	if b.maxWait > 0 && delay > b.maxWait {
		res.Cancel()
		return &resilience.RateLimitError{Bucket: name, Wait: delay}
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		res.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Tokens reports the current token count of a bucket, for observability.
func (l *Limiter) Tokens(name string) float64 {
	return l.bucketFor(name).limiter.Tokens()
}
