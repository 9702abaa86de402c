package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/resilience"
)

func candidate(payload map[string]any) model.RawCandidate {
	return model.RawCandidate{Source: "google_maps", Payload: payload}
}

func TestMapsParse_FullCandidate(t *testing.T) {
	p, err := NewMapsParseTool(0).Invoke(context.Background(), candidate(map[string]any{
		"place_id":           "abc123",
		"name":               "Acme Software",
		"formatted_address":  "123 Main St, Tulsa, OK 74103, USA",
		"website":            "https://www.acme.dev/about",
		"phone":              "(918) 555-0100",
		"rating":             4.6,
		"user_ratings_total": float64(120),
		"business_status":    "OPERATIONAL",
		"types":              []any{"software_company", "point_of_interest"},
	}))
	require.NoError(t, err)

	assert.Equal(t, "Acme Software", p.CompanyName)
	assert.Equal(t, "abc123", p.PlaceID)
	assert.Equal(t, "acme.dev", p.Domain)
	assert.Equal(t, "(918) 555-0100", p.Phone)
	assert.Equal(t, 4.6, p.Rating)
	assert.Equal(t, 120, p.ReviewCount)
	assert.Equal(t, "OPERATIONAL", p.BusinessStatus)
	assert.Equal(t, "Software", p.Industry)

	assert.Equal(t, "123 Main St", p.Location.Address)
	assert.Equal(t, "Tulsa", p.Location.City)
	assert.Equal(t, "OK", p.Location.State)
	assert.Equal(t, "USA", p.Location.Country)
}

func TestMapsParse_DetailedFieldsPreferred(t *testing.T) {
	p, err := NewMapsParseTool(0).Invoke(context.Background(), candidate(map[string]any{
		"name":                  "Acme",
		"rating":                3.0,
		"detailed_rating":       4.8,
		"user_ratings_total":    float64(10),
		"detailed_review_count": float64(250),
		"formatted_address":     "1 Way, Tulsa, OK",
		"full_address":          "1 Better Way, Tulsa, OK 74103",
	}))
	require.NoError(t, err)

	assert.Equal(t, 4.8, p.Rating)
	assert.Equal(t, 250, p.ReviewCount)
	assert.Equal(t, "1 Better Way", p.Location.Address)
}

func TestMapsParse_MissingNameIsFatal(t *testing.T) {
	_, err := NewMapsParseTool(0).Invoke(context.Background(), candidate(map[string]any{
		"formatted_address": "123 Main St",
	}))
	require.Error(t, err)
	assert.True(t, resilience.IsFatal(err))

	_, err = NewMapsParseTool(0).Invoke(context.Background(), model.RawCandidate{Source: "google_maps"})
	require.Error(t, err)
	assert.True(t, resilience.IsFatal(err))
}

func TestMapsParse_ClosedPermanentlySkipped(t *testing.T) {
	_, err := NewMapsParseTool(0).Invoke(context.Background(), candidate(map[string]any{
		"name":            "Gone Fishing",
		"business_status": "CLOSED_PERMANENTLY",
	}))
	require.Error(t, err)
	assert.True(t, IsSkip(err))
}

func TestMapsParse_BelowMinRatingSkipped(t *testing.T) {
	tool := NewMapsParseTool(4.0)

	_, err := tool.Invoke(context.Background(), candidate(map[string]any{
		"name":   "One Star Wonder",
		"rating": 2.1,
	}))
	require.Error(t, err)
	assert.True(t, IsSkip(err))

	// Unrated candidates pass: absence of a rating is not a low rating.
	p, err := tool.Invoke(context.Background(), candidate(map[string]any{
		"name": "Unrated Newcomer",
	}))
	require.NoError(t, err)
	assert.Equal(t, "Unrated Newcomer", p.CompanyName)
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    model.Location
	}{
		{
			name:    "full US address",
			address: "123 Main St, Tulsa, OK 74103, USA",
			want:    model.Location{Address: "123 Main St", City: "Tulsa", State: "OK", Country: "USA"},
		},
		{
			name:    "no country part leaves state empty",
			address: "500 Elm Ave, Austin, TX 78701",
			want:    model.Location{Address: "500 Elm Ave", City: "Austin", Country: "USA"},
		},
		{
			name:    "street and city only",
			address: "9 Oak Rd, Reno",
			want:    model.Location{Address: "9 Oak Rd", Country: "USA"},
		},
		{
			name:    "unsplittable",
			address: "Somewhere",
			want:    model.Location{Address: "Somewhere", Country: "USA"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseAddress(tt.address))
		})
	}
}

func TestInferIndustry(t *testing.T) {
	tests := []struct {
		types []string
		name  string
		want  string
	}{
		{[]string{"software_company"}, "Whatever", "Software"},
		{[]string{"point_of_interest", "health"}, "Whatever", "Healthcare"},
		{[]string{"point_of_interest"}, "Tulsa Law Group", "Legal"},
		{[]string{"restaurant"}, "Benny's", "Food & Beverage"},
		{nil, "Smith Consulting", "Consulting"},
		{nil, "Totally Generic Holdings", "Business Services"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inferIndustry(tt.types, tt.name), "types=%v name=%q", tt.types, tt.name)
	}
}
