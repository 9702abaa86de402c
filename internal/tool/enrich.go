package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/ratelimit"
	"github.com/sells-group/leadscout/internal/resilience"
	"github.com/sells-group/leadscout/pkg/firecrawl"
	"github.com/sells-group/leadscout/pkg/perplexity"
)

// maxResearchTokens bounds the Perplexity completion per prospect.
const maxResearchTokens = 300

// EnrichTool fills in a prospect's descriptive fields from two sources:
// a Firecrawl scrape of the company website and a Perplexity research
// summary. The scrape is best-effort; research failures fail the item.
type EnrichTool struct {
	scraper    firecrawl.Client
	researcher perplexity.Client
	limiter    *ratelimit.Limiter
}

// NewEnrichTool creates the enrichment adapter. It spans two upstream
// services, so it declares no single bucket and debits the firecrawl and
// perplexity buckets itself per call.
func NewEnrichTool(scraper firecrawl.Client, researcher perplexity.Client, limiter *ratelimit.Limiter) *EnrichTool {
	return &EnrichTool{scraper: scraper, researcher: researcher, limiter: limiter}
}

// Spec implements ProspectTool.
func (t *EnrichTool) Spec() Spec {
	return Spec{
		Name:            "enricher",
		Timeout:         90 * time.Second,
		MaxAttempts:     3,
		MaxPayloadBytes: 3000,
	}
}

// Invoke implements ProspectTool.
func (t *EnrichTool) Invoke(ctx context.Context, p *model.Prospect) (*model.Prospect, error) {
	if p == nil {
		return nil, resilience.NewValidationError("enricher", "nil prospect")
	}
	if p.CompanyName == "" {
		return nil, resilience.NewValidationError("enricher", "prospect has no company name")
	}

	out := *p

	if out.Website != "" {
		if err := t.scrape(ctx, &out); err != nil {
			if resilience.IsRateLimited(err) || ctx.Err() != nil {
				return nil, err
			}
			zap.L().Warn("website scrape failed, continuing without content",
				zap.String("company", out.CompanyName),
				zap.String("website", out.Website),
				zap.Error(err),
			)
		}
	}

	if err := t.research(ctx, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (t *EnrichTool) scrape(ctx context.Context, p *model.Prospect) error {
	if err := t.acquire(ctx, "firecrawl"); err != nil {
		return err
	}

	resp, err := t.scraper.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:             p.Website,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
	})
	if err != nil {
		var apiErr *firecrawl.APIError
		if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
			return resilience.NewTransientError(apiErr, apiErr.StatusCode)
		}
		return err
	}
	if !resp.Success {
		return fmt.Errorf("enricher: scrape of %s unsuccessful", p.Website)
	}

	content, cut := truncate(resp.Data.Markdown, t.Spec())
	p.WebsiteContent = content
	p.Truncated = p.Truncated || cut
	if p.Description == "" {
		p.Description = resp.Data.Metadata.Description
	}
	return nil
}

func (t *EnrichTool) research(ctx context.Context, p *model.Prospect) error {
	if err := t.acquire(ctx, "perplexity"); err != nil {
		return err
	}

	query := fmt.Sprintf("What does %s do?", p.CompanyName)
	if p.Website != "" {
		query += fmt.Sprintf(" (website: %s)", p.Website)
	}
	query += " Provide a brief description, their main products/services, and estimated company size."

	maxTokens := maxResearchTokens
	resp, err := t.researcher.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages:  []perplexity.Message{{Role: "user", Content: query}},
		MaxTokens: &maxTokens,
	})
	if err != nil {
		var apiErr *perplexity.APIError
		if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
			return resilience.NewTransientError(apiErr, apiErr.StatusCode)
		}
		return err
	}
	if len(resp.Choices) == 0 {
		return resilience.NewTransientError(fmt.Errorf("enricher: empty completion for %s", p.CompanyName), 0)
	}

	summary, cut := truncate(resp.Choices[0].Message.Content, t.Spec())
	p.ResearchSummary = summary
	p.Truncated = p.Truncated || cut
	return nil
}

func (t *EnrichTool) acquire(ctx context.Context, bucket string) error {
	if t.limiter == nil {
		return nil
	}
	return t.limiter.Acquire(ctx, bucket)
}
