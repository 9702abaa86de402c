package tool

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/ratelimit"
	"github.com/sells-group/leadscout/internal/resilience"
	"github.com/sells-group/leadscout/pkg/apollo"
	"github.com/sells-group/leadscout/pkg/hunter"
)

const (
	// perSourceLimit caps how many contacts each provider returns.
	perSourceLimit = 5
	// maxContacts caps how many contacts a prospect keeps after merging.
	maxContacts = 5
	// derivedConfidence scores a pattern-derived email guess.
	derivedConfidence = 30
)

// defaultTargetTitles are the decision-maker titles searched when the
// caller supplies none.
var defaultTargetTitles = []string{"CEO", "CTO", "Founder", "VP", "Director"}

// ContactsTool finds decision-maker contacts for a prospect by querying
// Hunter and Apollo, merging the results by email, and marking the
// highest-confidence contact primary. Contacts with a name but no email
// get a pattern-derived guess at low confidence.
type ContactsTool struct {
	hunter  hunter.Client
	apollo  apollo.Client
	limiter *ratelimit.Limiter

	// TargetTitles narrows the Apollo people search.
	TargetTitles []string
}

// NewContactsTool creates the contact discovery adapter. Like the
// enricher it spans two services and debits their buckets itself.
func NewContactsTool(h hunter.Client, a apollo.Client, limiter *ratelimit.Limiter) *ContactsTool {
	return &ContactsTool{
		hunter:       h,
		apollo:       a,
		limiter:      limiter,
		TargetTitles: defaultTargetTitles,
	}
}

// Spec implements ProspectTool.
func (t *ContactsTool) Spec() Spec {
	return Spec{
		Name:        "contact_finder",
		Timeout:     60 * time.Second,
		MaxAttempts: 3,
	}
}

// Invoke implements ProspectTool. A prospect without a domain passes
// through unchanged; the validator downstream flags the missing contacts.
func (t *ContactsTool) Invoke(ctx context.Context, p *model.Prospect) (*model.Prospect, error) {
	if p == nil {
		return nil, resilience.NewValidationError("contact_finder", "nil prospect")
	}

	out := *p
	if out.Domain == "" {
		return &out, nil
	}

	var contacts []model.Contact
	var firstErr error

	hunterContacts, pattern, err := t.searchHunter(ctx, out.Domain)
	if err != nil {
		if resilience.IsRateLimited(err) || ctx.Err() != nil {
			return nil, err
		}
		firstErr = err
		zap.L().Warn("hunter search failed",
			zap.String("domain", out.Domain),
			zap.Error(err),
		)
	}
	contacts = append(contacts, hunterContacts...)

	apolloContacts, err := t.searchApollo(ctx, out.Domain)
	if err != nil {
		if resilience.IsRateLimited(err) || ctx.Err() != nil {
			return nil, err
		}
		if firstErr == nil {
			firstErr = err
		}
		zap.L().Warn("apollo search failed",
			zap.String("domain", out.Domain),
			zap.Error(err),
		)
	}
	contacts = append(contacts, apolloContacts...)

	// Both sources down with nothing found: fail the item so retry and
	// the report see it, rather than shipping an unexplained empty list.
	if len(contacts) == 0 && firstErr != nil {
		return nil, firstErr
	}

	for i := range contacts {
		if contacts[i].Email == "" && contacts[i].Name != "" {
			contacts[i].Email = deriveEmail(contacts[i].Name, out.Domain, pattern)
			if contacts[i].Email != "" {
				contacts[i].Confidence = derivedConfidence
			}
		}
	}

	out.Contacts = mergeContactResults(contacts)
	return &out, nil
}

func (t *ContactsTool) searchHunter(ctx context.Context, domain string) ([]model.Contact, string, error) {
	if t.hunter == nil {
		return nil, "", nil
	}
	if err := t.acquire(ctx, "hunter"); err != nil {
		return nil, "", err
	}

	resp, err := t.hunter.DomainSearch(ctx, domain, perSourceLimit)
	if err != nil {
		var apiErr *hunter.APIError
		if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
			return nil, "", resilience.NewTransientError(apiErr, apiErr.StatusCode)
		}
		return nil, "", err
	}

	contacts := make([]model.Contact, 0, len(resp.Data.Emails))
	for _, e := range resp.Data.Emails {
		contacts = append(contacts, model.Contact{
			Name:       strings.TrimSpace(e.FirstName + " " + e.LastName),
			Title:      e.Position,
			Email:      e.Value,
			Confidence: float64(e.Confidence),
			Source:     "hunter",
		})
	}
	return contacts, resp.Data.Pattern, nil
}

func (t *ContactsTool) searchApollo(ctx context.Context, domain string) ([]model.Contact, error) {
	if t.apollo == nil {
		return nil, nil
	}
	if err := t.acquire(ctx, "apollo"); err != nil {
		return nil, err
	}

	resp, err := t.apollo.PeopleSearch(ctx, apollo.PeopleSearchRequest{
		OrganizationDomains: domain,
		PersonTitles:        t.TargetTitles,
		PerPage:             perSourceLimit,
	})
	if err != nil {
		var apiErr *apollo.APIError
		if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
			return nil, resilience.NewTransientError(apiErr, apiErr.StatusCode)
		}
		return nil, err
	}

	contacts := make([]model.Contact, 0, len(resp.People))
	for _, person := range resp.People {
		confidence := 50.0
		if person.Email != "" {
			confidence = 90
		}
		contacts = append(contacts, model.Contact{
			Name:       person.Name,
			Title:      person.Title,
			Email:      person.Email,
			LinkedIn:   person.LinkedInURL,
			Confidence: confidence,
			Source:     "apollo",
		})
	}
	return contacts, nil
}

func (t *ContactsTool) acquire(ctx context.Context, bucket string) error {
	if t.limiter == nil {
		return nil
	}
	return t.limiter.Acquire(ctx, bucket)
}

// mergeContactResults deduplicates by lowercase email (contacts without an
// email survive if they carry a name), sorts by confidence, marks the top
// contact primary, and keeps the best few.
func mergeContactResults(contacts []model.Contact) []model.Contact {
	seen := make(map[string]bool)
	unique := make([]model.Contact, 0, len(contacts))
	for _, c := range contacts {
		email := strings.ToLower(strings.TrimSpace(c.Email))
		switch {
		case email != "":
			if seen[email] {
				continue
			}
			seen[email] = true
			unique = append(unique, c)
		case c.Name != "":
			unique = append(unique, c)
		}
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Confidence > unique[j].Confidence
	})

	if len(unique) > maxContacts {
		unique = unique[:maxContacts]
	}
	for i := range unique {
		unique[i].Primary = i == 0
	}
	return unique
}

// deriveEmail guesses an address from the provider-reported pattern
// (falling back to first.last) and the contact's name. Two name tokens
// are required; anything fancier is not worth guessing at.
func deriveEmail(name, domain, pattern string) string {
	parts := strings.Fields(strings.ToLower(name))
	if len(parts) < 2 {
		return ""
	}
	first, last := parts[0], parts[len(parts)-1]

	if pattern == "" {
		pattern = "{first}.{last}"
	}
	local := strings.NewReplacer(
		"{first}", first,
		"{last}", last,
		"{f}", first[:1],
		"{l}", last[:1],
	).Replace(pattern)
	if strings.ContainsAny(local, "{}") {
		return ""
	}
	return local + "@" + domain
}
