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
	"github.com/sells-group/leadscout/pkg/places"
)

// pageSettleDelay is how long Google requires a fresh next_page_token to
// settle before it becomes valid.
const pageSettleDelay = 2 * time.Second

// MapsDiscoverTool searches Google Maps for businesses matching a query
// and enriches the top hits with place details. One Invoke covers the
// full paginated search for a single industry+location query.
type MapsDiscoverTool struct {
	client  places.Client
	limiter *ratelimit.Limiter

	// DetailsLimit caps how many results get a place-details lookup per
	// query. Results past the cap keep their text-search fields only.
	DetailsLimit int

	// PageSettle overrides the pagination settle delay (shortened in tests).
	PageSettle time.Duration
}

// NewMapsDiscoverTool creates the Google Maps discovery adapter. The
// limiter covers the per-page and per-details calls made inside a single
// invocation; the first call's token is acquired by the stage executor.
func NewMapsDiscoverTool(client places.Client, limiter *ratelimit.Limiter) *MapsDiscoverTool {
	return &MapsDiscoverTool{
		client:       client,
		limiter:      limiter,
		DetailsLimit: 20,
		PageSettle:   pageSettleDelay,
	}
}

// Spec implements DiscoverTool.
func (t *MapsDiscoverTool) Spec() Spec {
	return Spec{
		Name:        "google_maps",
		Bucket:      "google_maps",
		Timeout:     2 * time.Minute,
		MaxAttempts: 3,
	}
}

// Invoke implements DiscoverTool.
func (t *MapsDiscoverTool) Invoke(ctx context.Context, q model.DiscoveryQuery) ([]model.RawCandidate, error) {
	if q.Industry == "" {
		return nil, resilience.NewValidationError("google_maps", "empty industry")
	}
	if q.Location == "" {
		return nil, resilience.NewValidationError("google_maps", "empty location")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	var results []places.PlaceResult
	pageToken := ""
	for len(results) < limit {
		if pageToken != "" {
			if err := t.settle(ctx); err != nil {
				return nil, err
			}
			if err := t.acquire(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := t.client.TextSearch(ctx, places.TextSearchRequest{
			Query:     q.String(),
			PageToken: pageToken,
		})
		if err != nil {
			return nil, classifyPlacesError(err)
		}

		switch resp.Status {
		case places.StatusOK, places.StatusZeroResults:
		case places.StatusOverQueryLimit:
			// Upstream quota spent. Keep whatever we already have; the
			// local bucket budget is the real backstop.
			zap.L().Warn("google maps quota exceeded, returning partial results",
				zap.String("query", q.String()),
				zap.Int("results", len(results)),
			)
			return t.candidates(ctx, results, limit)
		default:
			return nil, resilience.NewTransientError(
				fmt.Errorf("google_maps: search status %s: %s", resp.Status, resp.ErrorMessage), 0)
		}

		results = append(results, resp.Results...)
		pageToken = resp.NextPageToken
		if pageToken == "" || len(resp.Results) == 0 {
			break
		}
	}

	return t.candidates(ctx, results, limit)
}

// candidates enriches the leading results with place details and wraps
// everything as raw candidates. Details failures degrade to the bare
// search hit; only rate-limit and cancellation errors abort.
func (t *MapsDiscoverTool) candidates(ctx context.Context, results []places.PlaceResult, limit int) ([]model.RawCandidate, error) {
	if len(results) > limit {
		results = results[:limit]
	}

	out := make([]model.RawCandidate, 0, len(results))
	for i, r := range results {
		payload := map[string]any{
			"place_id":           r.PlaceID,
			"name":               r.Name,
			"formatted_address":  r.FormattedAddress,
			"rating":             r.Rating,
			"user_ratings_total": r.UserRatingsTotal,
			"business_status":    r.BusinessStatus,
			"types":              r.Types,
		}

		if i < t.DetailsLimit && r.PlaceID != "" {
			details, err := t.details(ctx, r.PlaceID)
			if err != nil {
				if resilience.IsRateLimited(err) || ctx.Err() != nil {
					return nil, err
				}
				zap.L().Warn("place details lookup failed",
					zap.String("place_id", r.PlaceID),
					zap.Error(err),
				)
			} else if details != nil {
				payload["website"] = details.Website
				payload["phone"] = details.FormattedPhone
				payload["full_address"] = details.FormattedAddress
				payload["detailed_rating"] = details.Rating
				payload["detailed_review_count"] = details.UserRatingsTotal
			}
		}

		out = append(out, model.RawCandidate{Source: "google_maps", Payload: payload})
	}
	return out, nil
}

func (t *MapsDiscoverTool) details(ctx context.Context, placeID string) (*places.PlaceDetails, error) {
	if err := t.acquire(ctx); err != nil {
		return nil, err
	}
	resp, err := t.client.Details(ctx, placeID)
	if err != nil {
		return nil, classifyPlacesError(err)
	}
	if resp.Status != places.StatusOK {
		return nil, nil
	}
	return &resp.Result, nil
}

// acquire debits the bucket for one inner call beyond the admission token
// the executor already took.
func (t *MapsDiscoverTool) acquire(ctx context.Context) error {
	if t.limiter == nil {
		return nil
	}
	return t.limiter.Acquire(ctx, "google_maps")
}

func (t *MapsDiscoverTool) settle(ctx context.Context) error {
	if t.PageSettle <= 0 {
		return nil
	}
	timer := time.NewTimer(t.PageSettle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func classifyPlacesError(err error) error {
	var apiErr *places.APIError
	if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
		return resilience.NewTransientError(apiErr, apiErr.StatusCode)
	}
	return err
}
