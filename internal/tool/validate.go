package tool

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/sells-group/leadscout/internal/config"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/resilience"
)

// ICP scoring weights. They sum to 1.0; secondary matches earn half.
const (
	weightIndustry     = 0.25
	weightLocation     = 0.20
	weightCompanySize  = 0.15
	weightContactTitle = 0.25
	weightHasEmail     = 0.15
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateTool scores a prospect against the ideal customer profile and
// checks data quality. Prospects with quality issues or a score below the
// minimum are skipped (rejected) with the score and issues preserved.
type ValidateTool struct {
	profile  *config.ICPProfile
	minScore float64
}

// NewValidateTool creates the validation adapter. A nil profile falls
// back to the default decision-maker profile.
func NewValidateTool(profile *config.ICPProfile, minScore float64) *ValidateTool {
	if profile == nil {
		profile = config.DefaultICPProfile()
	}
	return &ValidateTool{profile: profile, minScore: minScore}
}

// Spec implements ProspectTool. Validation is local: no bucket, one
// attempt.
func (t *ValidateTool) Spec() Spec {
	return Spec{
		Name:        "icp_validator",
		Timeout:     5 * time.Second,
		MaxAttempts: 1,
	}
}

// Invoke implements ProspectTool.
func (t *ValidateTool) Invoke(_ context.Context, p *model.Prospect) (*model.Prospect, error) {
	if p == nil {
		return nil, resilience.NewValidationError("icp_validator", "nil prospect")
	}

	out := *p
	out.ICPScore = t.score(&out)
	out.ValidationIssues = qualityIssues(&out)

	if len(out.ValidationIssues) > 0 {
		return &out, Skip(strings.Join(out.ValidationIssues, "; "))
	}
	if out.ICPScore < t.minScore {
		return &out, Skip(fmt.Sprintf("icp score %.2f below minimum %.2f", out.ICPScore, t.minScore))
	}
	return &out, nil
}

// score computes the weighted ICP match in [0, 1], rounded to two
// decimals.
func (t *ValidateTool) score(p *model.Prospect) float64 {
	score := 0.0

	industry := strings.ToLower(p.Industry)
	if matchesIndustry(industry, t.profile.PrimaryIndustries) {
		score += weightIndustry
	} else if matchesIndustry(industry, t.profile.SecondaryIndustries) {
		score += weightIndustry * 0.5
	}

	city := strings.ToLower(p.Location.City)
	state := strings.ToLower(p.Location.State)
	for _, m := range t.profile.PrimaryMarkets {
		if (m.City != "" && strings.ToLower(m.City) == city) ||
			(m.State != "" && strings.ToLower(m.State) == state) {
			score += weightLocation
			break
		}
	}

	// Partial size credit when there is anything to size the company by.
	if p.EmployeeEstimate > 0 || p.Website != "" {
		score += weightCompanySize * 0.5
	}

	for _, c := range p.Contacts {
		title := strings.ToLower(c.Title)
		if title == "" {
			continue
		}
		if containsAny(title, t.profile.PrimaryTitles) {
			score += weightContactTitle
			break
		}
		if containsAny(title, t.profile.SecondaryTitles) {
			score += weightContactTitle * 0.5
			break
		}
	}

	for _, c := range p.Contacts {
		if emailRe.MatchString(c.Email) {
			score += weightHasEmail
			break
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return math.Round(score*100) / 100
}

// qualityIssues lists the data-quality problems that make a prospect
// unusable for outreach.
func qualityIssues(p *model.Prospect) []string {
	var issues []string

	if strings.TrimSpace(p.CompanyName) == "" {
		issues = append(issues, "missing company name")
	}
	if strings.TrimSpace(p.Location.City) == "" {
		issues = append(issues, "missing city")
	}

	if len(p.Contacts) == 0 {
		issues = append(issues, "no contacts found")
	} else {
		hasEmail := false
		for _, c := range p.Contacts {
			if emailRe.MatchString(c.Email) {
				hasEmail = true
				break
			}
		}
		if !hasEmail {
			issues = append(issues, "no valid email found")
		}
		if p.PrimaryContact() == nil {
			issues = append(issues, "no primary contact designated")
		}
	}

	if p.BusinessStatus == closedPermanently {
		issues = append(issues, "business is permanently closed")
	}

	return issues
}

func matchesIndustry(industry string, targets []string) bool {
	if industry == "" {
		return false
	}
	for _, t := range targets {
		lower := strings.ToLower(t)
		if lower == "" {
			continue
		}
		if strings.Contains(industry, lower) || strings.Contains(lower, industry) {
			return true
		}
	}
	return false
}

func containsAny(s string, targets []string) bool {
	for _, t := range targets {
		if t == "" {
			continue
		}
		if strings.Contains(s, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
