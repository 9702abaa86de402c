package tool

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sells-group/leadscout/internal/dedupe"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/resilience"
)

// closedPermanently is the Places business status for businesses that no
// longer exist; these are dropped at parse time.
const closedPermanently = "CLOSED_PERMANENTLY"

var stateRe = regexp.MustCompile(`^([A-Z]{2})`)

// industryKeyword maps a keyword found in place types or the company name
// to an industry label. Order matters: the first match wins.
type industryKeyword struct {
	keyword  string
	industry string
}

var industryKeywords = []industryKeyword{
	{"software", "Software"},
	{"technology", "Technology"},
	{"finance", "Finance"},
	{"real_estate", "Real Estate"},
	{"restaurant", "Food & Beverage"},
	{"health", "Healthcare"},
	{"law", "Legal"},
	{"accounting", "Accounting"},
	{"marketing", "Marketing"},
	{"consulting", "Consulting"},
	{"construction", "Construction"},
	{"manufacturing", "Manufacturing"},
	{"retail", "Retail"},
	{"e-commerce", "E-Commerce"},
}

// MapsParseTool converts one raw Google Maps candidate into a canonical
// prospect: address components split out, website reduced to a bare
// domain, industry inferred from place types and the company name.
type MapsParseTool struct {
	// MinRating skips prospects rated below the threshold (0 disables).
	MinRating float64
}

// NewMapsParseTool creates the parse adapter.
func NewMapsParseTool(minRating float64) *MapsParseTool {
	return &MapsParseTool{MinRating: minRating}
}

// Spec implements ParseTool. Parsing is local and deterministic: no
// bucket, one attempt.
func (t *MapsParseTool) Spec() Spec {
	return Spec{
		Name:        "maps_parser",
		Timeout:     5 * time.Second,
		MaxAttempts: 1,
	}
}

// Invoke implements ParseTool.
func (t *MapsParseTool) Invoke(_ context.Context, c model.RawCandidate) (*model.Prospect, error) {
	if c.Payload == nil {
		return nil, resilience.NewValidationError("maps_parser", "nil payload")
	}
	name := payloadString(c.Payload, "name")
	if name == "" {
		return nil, resilience.NewValidationError("maps_parser", "candidate has no name")
	}

	status := payloadString(c.Payload, "business_status")
	if status == "" {
		status = "OPERATIONAL"
	}
	if status == closedPermanently {
		return nil, Skip("business permanently closed")
	}

	address := payloadString(c.Payload, "full_address")
	if address == "" {
		address = payloadString(c.Payload, "formatted_address")
	}

	website := payloadString(c.Payload, "website")

	rating := payloadFloat(c.Payload, "detailed_rating")
	if rating == 0 {
		rating = payloadFloat(c.Payload, "rating")
	}
	reviews := payloadInt(c.Payload, "detailed_review_count")
	if reviews == 0 {
		reviews = payloadInt(c.Payload, "user_ratings_total")
	}

	if t.MinRating > 0 && rating > 0 && rating < t.MinRating {
		return nil, Skip(fmt.Sprintf("rating %.1f below minimum %.1f", rating, t.MinRating))
	}

	types := payloadStrings(c.Payload, "types")

	p := &model.Prospect{
		CompanyName:    name,
		Website:        website,
		Domain:         dedupe.NormalizeDomain(website),
		PlaceID:        payloadString(c.Payload, "place_id"),
		Location:       parseAddress(address),
		Phone:          payloadString(c.Payload, "phone"),
		Rating:         rating,
		ReviewCount:    reviews,
		BusinessStatus: status,
		Types:          types,
		Industry:       inferIndustry(types, name),
	}
	return p, nil
}

// parseAddress splits a formatted address of the shape
// "123 Main St, City, ST 94103, Country" into components. Anything it
// cannot place stays in the street address.
func parseAddress(address string) model.Location {
	loc := model.Location{
		Address: address,
		Country: "USA",
	}
	parts := strings.Split(address, ",")
	if len(parts) < 2 {
		return loc
	}

	loc.Address = strings.TrimSpace(parts[0])
	if len(parts) >= 3 {
		if len(parts) > 3 {
			loc.City = strings.TrimSpace(parts[len(parts)-3])
		} else {
			loc.City = strings.TrimSpace(parts[len(parts)-2])
		}
		statePart := strings.TrimSpace(parts[len(parts)-2])
		if m := stateRe.FindStringSubmatch(statePart); m != nil {
			loc.State = m[1]
		}
	}
	return loc
}

// inferIndustry maps place types (then the company name) to an industry
// label, defaulting to general business services.
func inferIndustry(types []string, name string) string {
	for _, t := range types {
		lower := strings.ToLower(t)
		for _, kw := range industryKeywords {
			if strings.Contains(lower, kw.keyword) {
				return kw.industry
			}
		}
	}
	lower := strings.ToLower(name)
	for _, kw := range industryKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.industry
		}
	}
	return "Business Services"
}

func payloadString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func payloadFloat(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func payloadInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func payloadStrings(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
