package main

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/config"
	"github.com/sells-group/leadscout/internal/pipeline"
	"github.com/sells-group/leadscout/internal/ratelimit"
	"github.com/sells-group/leadscout/internal/tool"
	"github.com/sells-group/leadscout/pkg/apollo"
	"github.com/sells-group/leadscout/pkg/firecrawl"
	"github.com/sells-group/leadscout/pkg/hunter"
	"github.com/sells-group/leadscout/pkg/perplexity"
	"github.com/sells-group/leadscout/pkg/places"
)

// initLimiter builds the shared rate limiter: default bucket budgets
// overlaid with any configured overrides.
func initLimiter() *ratelimit.Limiter {
	buckets := ratelimit.DefaultBuckets()
	for name, bc := range cfg.Buckets {
		buckets[name] = bc
	}
	return ratelimit.New(buckets)
}

// initTools wires the five stage tools from config. The places key is
// the only hard requirement; contact sources degrade per-source when a
// key is missing, so those keys are only warned about.
func initTools(limiter *ratelimit.Limiter) (pipeline.Tools, error) {
	if cfg.Places.Key == "" {
		return pipeline.Tools{}, eris.New("google places API key is required (LEADSCOUT_PLACES_KEY)")
	}
	for name, key := range map[string]string{
		"firecrawl":  cfg.Firecrawl.Key,
		"perplexity": cfg.Perplexity.Key,
		"hunter":     cfg.Hunter.Key,
		"apollo":     cfg.Apollo.Key,
	} {
		if key == "" {
			zap.L().Warn("API key not configured, stage coverage degraded", zap.String("service", name))
		}
	}

	placesClient := places.NewClient(cfg.Places.Key, places.WithBaseURL(cfg.Places.BaseURL))
	firecrawlClient := firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
	perplexityClient := perplexity.NewClient(cfg.Perplexity.Key, perplexity.WithBaseURL(cfg.Perplexity.BaseURL), perplexity.WithModel(cfg.Perplexity.Model))
	hunterClient := hunter.NewClient(cfg.Hunter.Key, hunter.WithBaseURL(cfg.Hunter.BaseURL))
	apolloClient := apollo.NewClient(cfg.Apollo.Key, apollo.WithBaseURL(cfg.Apollo.BaseURL))

	profile, err := config.LoadICPProfile(cfg.Discovery.ICPPath)
	if err != nil {
		return pipeline.Tools{}, eris.Wrap(err, "load ICP profile")
	}

	return pipeline.Tools{
		Discover: tool.NewMapsDiscoverTool(placesClient, limiter),
		Parse:    tool.NewMapsParseTool(cfg.Discovery.Filters.MinRating),
		Enrich:   tool.NewEnrichTool(firecrawlClient, perplexityClient, limiter),
		Contacts: tool.NewContactsTool(hunterClient, apolloClient, limiter),
		Validate: tool.NewValidateTool(profile, cfg.Discovery.MinICPScore),
	}, nil
}
