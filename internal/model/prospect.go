package model

import "strings"

// Stage is one ordered step of the discovery pipeline.
type Stage int

const (
	StageDiscover Stage = iota
	StageParse
	StageEnrich
	StageContacts
	StageValidate
	stageCount
)

// Stages lists all pipeline stages in execution order.
func Stages() []Stage {
	return []Stage{StageDiscover, StageParse, StageEnrich, StageContacts, StageValidate}
}

// String returns the stage name used in reports and logs.
func (s Stage) String() string {
	switch s {
	case StageDiscover:
		return "discover"
	case StageParse:
		return "parse"
	case StageEnrich:
		return "enrich"
	case StageContacts:
		return "contacts"
	case StageValidate:
		return "validate"
	default:
		return "unknown"
	}
}

// StageSet is a bitset of stages that have successfully processed a prospect.
// It only ever gains bits; merging two sets is a union.
type StageSet uint8

// Mark sets the bit for the given stage.
func (ss *StageSet) Mark(s Stage) {
	*ss |= 1 << uint(s)
}

// Has reports whether the stage bit is set.
func (ss StageSet) Has(s Stage) bool {
	return ss&(1<<uint(s)) != 0
}

// Union returns the combined set.
func (ss StageSet) Union(other StageSet) StageSet {
	return ss | other
}

// Count returns the number of completed stages.
func (ss StageSet) Count() int {
	n := 0
	for s := Stage(0); s < stageCount; s++ {
		if ss.Has(s) {
			n++
		}
	}
	return n
}

// Names returns the completed stage names in pipeline order.
func (ss StageSet) Names() []string {
	var names []string
	for _, s := range Stages() {
		if ss.Has(s) {
			names = append(names, s.String())
		}
	}
	return names
}

// RawCandidate is the unparsed output of a discovery tool: an opaque
// payload tagged with the tool that produced it. The parse stage consumes
// candidates and turns them into prospects.
type RawCandidate struct {
	Source  string         `json:"source"`
	Payload map[string]any `json:"payload"`
}

// Location holds the parsed address components of a prospect.
type Location struct {
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

// Contact is a decision-maker contact attached to a prospect.
type Contact struct {
	Name       string  `json:"name,omitempty"`
	Title      string  `json:"title,omitempty"`
	Email      string  `json:"email,omitempty"`
	LinkedIn   string  `json:"linkedin_url,omitempty"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
	Primary    bool    `json:"is_primary,omitempty"`
}

// Prospect is the unit of work as it moves through stages. Identity fields
// are set at parse time and never change; enrichment and contact fields are
// filled in by later stages. Ownership transfers serially stage to stage,
// so individual prospects are never mutated concurrently.
type Prospect struct {
	// Identity
	CompanyName string `json:"company_name"`
	Website     string `json:"website,omitempty"`
	Domain      string `json:"domain,omitempty"`

	// Discovery metadata
	PlaceID        string   `json:"place_id,omitempty"`
	Location       Location `json:"location"`
	Phone          string   `json:"phone,omitempty"`
	Rating         float64  `json:"rating,omitempty"`
	ReviewCount    int      `json:"review_count,omitempty"`
	BusinessStatus string   `json:"business_status,omitempty"`
	Types          []string `json:"types,omitempty"`

	// Enrichment
	Industry         string `json:"industry,omitempty"`
	Description      string `json:"description,omitempty"`
	WebsiteContent   string `json:"website_content,omitempty"`
	EmployeeEstimate int    `json:"employee_estimate,omitempty"`
	ResearchSummary  string `json:"research_summary,omitempty"`

	// Contacts
	Contacts []Contact `json:"contacts,omitempty"`

	// Validation
	ICPScore         float64  `json:"icp_match_score"`
	ValidationIssues []string `json:"validation_issues,omitempty"`

	// Stages records which stages have successfully processed this prospect.
	Stages StageSet `json:"stages"`

	// Truncated is set when a tool's output exceeded its payload cap and
	// was cut rather than dropped.
	Truncated bool `json:"truncated,omitempty"`
}

// PrimaryContact returns the contact marked primary, or nil.
func (p *Prospect) PrimaryContact() *Contact {
	for i := range p.Contacts {
		if p.Contacts[i].Primary {
			return &p.Contacts[i]
		}
	}
	return nil
}

// ContactFields counts populated contact fields across all contacts,
// used as the completeness tie-break when truncating the final list.
func (p *Prospect) ContactFields() int {
	n := 0
	for _, c := range p.Contacts {
		for _, f := range []string{c.Name, c.Title, c.Email, c.LinkedIn} {
			if strings.TrimSpace(f) != "" {
				n++
			}
		}
	}
	return n
}
