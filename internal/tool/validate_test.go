package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/config"
	"github.com/sells-group/leadscout/internal/model"
)

func testProfile() *config.ICPProfile {
	return &config.ICPProfile{
		PrimaryIndustries:   []string{"Software"},
		SecondaryIndustries: []string{"Consulting"},
		PrimaryMarkets:      []config.Market{{City: "Tulsa", State: "OK"}},
		PrimaryTitles:       []string{"CEO", "Founder"},
		SecondaryTitles:     []string{"Director"},
	}
}

func qualifiedProspect() *model.Prospect {
	return &model.Prospect{
		CompanyName: "Acme Software",
		Website:     "https://acme.dev",
		Industry:    "Software",
		Location:    model.Location{City: "Tulsa", State: "OK"},
		Contacts: []model.Contact{
			{Name: "Pat Lee", Title: "CEO", Email: "pat@acme.dev", Confidence: 90, Primary: true},
		},
	}
}

func TestValidate_QualifiedProspectPasses(t *testing.T) {
	v := NewValidateTool(testProfile(), 0.3)

	out, err := v.Invoke(context.Background(), qualifiedProspect())
	require.NoError(t, err)

	// industry 0.25 + location 0.20 + size 0.075 + title 0.25 + email 0.15
	assert.InDelta(t, 0.93, out.ICPScore, 1e-9)
	assert.Empty(t, out.ValidationIssues)
}

func TestValidate_InputNotMutated(t *testing.T) {
	v := NewValidateTool(testProfile(), 0.3)
	in := qualifiedProspect()

	out, err := v.Invoke(context.Background(), in)
	require.NoError(t, err)

	assert.NotSame(t, in, out)
	assert.Zero(t, in.ICPScore)
	assert.NotZero(t, out.ICPScore)
}

func TestValidate_QualityIssuesSkipWithValue(t *testing.T) {
	v := NewValidateTool(testProfile(), 0.3)

	p := qualifiedProspect()
	p.Contacts = nil

	out, err := v.Invoke(context.Background(), p)
	require.Error(t, err)
	assert.True(t, IsSkip(err))

	// The rejected prospect still carries its score and issues.
	require.NotNil(t, out)
	assert.Contains(t, out.ValidationIssues, "no contacts found")
	assert.Greater(t, out.ICPScore, 0.0)
}

func TestValidate_LowScoreSkipped(t *testing.T) {
	v := NewValidateTool(testProfile(), 0.9)

	p := qualifiedProspect()
	p.Industry = "Totally Unrelated"
	p.Location.City = "Nowhere"

	out, err := v.Invoke(context.Background(), p)
	require.Error(t, err)
	assert.True(t, IsSkip(err))
	assert.Contains(t, err.Error(), "below minimum")
	assert.Less(t, out.ICPScore, 0.9)
}

func TestValidate_SecondaryMatchesEarnHalf(t *testing.T) {
	v := NewValidateTool(testProfile(), 0)

	p := qualifiedProspect()
	p.Industry = "Consulting"
	p.Contacts[0].Title = "Director of Operations"

	out, err := v.Invoke(context.Background(), p)
	require.NoError(t, err)

	// industry 0.125 + location 0.20 + size 0.075 + title 0.125 + email 0.15
	assert.InDelta(t, 0.68, out.ICPScore, 1e-9)
}

func TestValidate_NilProspectIsFatal(t *testing.T) {
	v := NewValidateTool(nil, 0.3)
	_, err := v.Invoke(context.Background(), nil)
	require.Error(t, err)
	assert.False(t, IsSkip(err))
}

func TestQualityIssues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Prospect)
		want   string
	}{
		{"missing name", func(p *model.Prospect) { p.CompanyName = " " }, "missing company name"},
		{"missing city", func(p *model.Prospect) { p.Location.City = "" }, "missing city"},
		{"no contacts", func(p *model.Prospect) { p.Contacts = nil }, "no contacts found"},
		{"bad email", func(p *model.Prospect) { p.Contacts[0].Email = "not-an-email" }, "no valid email found"},
		{"no primary", func(p *model.Prospect) { p.Contacts[0].Primary = false }, "no primary contact designated"},
		{"closed", func(p *model.Prospect) { p.BusinessStatus = "CLOSED_PERMANENTLY" }, "business is permanently closed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := qualifiedProspect()
			tt.mutate(p)
			assert.Contains(t, qualityIssues(p), tt.want)
		})
	}

	assert.Empty(t, qualityIssues(qualifiedProspect()))
}

func TestDefaultProfile_ScoresContactQualityOnly(t *testing.T) {
	v := NewValidateTool(config.DefaultICPProfile(), 0.3)

	out, err := v.Invoke(context.Background(), qualifiedProspect())
	require.NoError(t, err)

	// No industries or markets configured: size 0.075 + title 0.25 + email 0.15.
	assert.InDelta(t, 0.48, out.ICPScore, 1e-9)
}
