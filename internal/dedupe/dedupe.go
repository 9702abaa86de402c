// Package dedupe canonicalizes and deduplicates prospects across stages.
// The merge is commutative and idempotent, so stage outputs may arrive in
// any order without changing the stored result.
package dedupe

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
)

// Deduplicator maps identity keys to the most complete known prospect.
// It is consulted by the currently-executing stage's aggregation step
// only (strict stage ordering guarantees no concurrent mutation), so it
// carries no lock.
type Deduplicator struct {
	byKey map[string]*model.Prospect
	order []string // first-seen order, for deterministic iteration
}

// New creates an empty Deduplicator.
func New() *Deduplicator {
	return &Deduplicator{byKey: make(map[string]*model.Prospect)}
}

// Ingest inserts or merges a prospect. The stored entry keeps its identity
// key forever; incoming values only fill fields the stored entry lacks or
// improve them with a strictly more complete value. Returns the stored
// prospect and whether the key was new.
func (d *Deduplicator) Ingest(p *model.Prospect) (*model.Prospect, bool) {
	key := IdentityKey(p)
	existing, ok := d.byKey[key]
	if !ok {
		cp := *p
		d.byKey[key] = &cp
		d.order = append(d.order, key)
		return &cp, true
	}
	merge(existing, p)
	return existing, false
}

// Get returns the stored prospect for a key, or nil.
func (d *Deduplicator) Get(key string) *model.Prospect {
	return d.byKey[key]
}

// Len returns the number of distinct prospects seen.
func (d *Deduplicator) Len() int {
	return len(d.byKey)
}

// Prospects returns the deduplicated set in first-seen order.
func (d *Deduplicator) Prospects() []*model.Prospect {
	out := make([]*model.Prospect, 0, len(d.order))
	for _, key := range d.order {
		out = append(out, d.byKey[key])
	}
	return out
}

// merge folds src into dst field by field. Preference is "most complete
// wins": a set value beats an unset one; when both are set, the longer
// string wins with a lexicographic tie-break, and numerics take the max.
// This ordering makes the merge commutative and idempotent, which the
// executor's unordered outcome delivery relies on.
func merge(dst, src *model.Prospect) {
	dst.CompanyName = pickString(dst.CompanyName, src.CompanyName)
	dst.Website = pickString(dst.Website, src.Website)
	dst.Domain = pickString(dst.Domain, src.Domain)
	dst.PlaceID = pickString(dst.PlaceID, src.PlaceID)
	dst.Phone = pickString(dst.Phone, src.Phone)
	dst.BusinessStatus = pickString(dst.BusinessStatus, src.BusinessStatus)
	dst.Industry = pickString(dst.Industry, src.Industry)
	dst.Description = pickString(dst.Description, src.Description)
	dst.WebsiteContent = pickString(dst.WebsiteContent, src.WebsiteContent)
	dst.ResearchSummary = pickString(dst.ResearchSummary, src.ResearchSummary)

	dst.Location.Address = pickString(dst.Location.Address, src.Location.Address)
	dst.Location.City = pickString(dst.Location.City, src.Location.City)
	dst.Location.State = pickString(dst.Location.State, src.Location.State)
	dst.Location.Country = pickString(dst.Location.Country, src.Location.Country)

	dst.Rating = maxFloat(dst.Rating, src.Rating)
	dst.ICPScore = maxFloat(dst.ICPScore, src.ICPScore)
	dst.ReviewCount = maxInt(dst.ReviewCount, src.ReviewCount)
	dst.EmployeeEstimate = maxInt(dst.EmployeeEstimate, src.EmployeeEstimate)

	dst.Types = unionStrings(dst.Types, src.Types)
	dst.ValidationIssues = unionStrings(dst.ValidationIssues, src.ValidationIssues)
	dst.Contacts = mergeContacts(dst.Contacts, src.Contacts)
	dst.Stages = dst.Stages.Union(src.Stages)
	dst.Truncated = dst.Truncated || src.Truncated

	if IdentityKey(dst) != IdentityKey(src) {
		// Should not happen: callers ingest under src's key.
		zap.L().Warn("dedupe: merged prospects with differing identity keys",
			zap.String("stored", IdentityKey(dst)),
			zap.String("incoming", IdentityKey(src)),
		)
	}
}

// pickString prefers the more complete of two values: non-empty over
// empty, longer over shorter, lexicographically smaller on equal length.
func pickString(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	case len(a) > len(b):
		return a
	case len(b) > len(a):
		return b
	case a <= b:
		return a
	default:
		return b
	}
}

func maxFloat(a, b float64) float64 {
	if a >= b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a >= b {
		return a
	}
	return b
}

// unionStrings merges two string sets preserving sorted order.
func unionStrings(a, b []string) []string {
	if len(a) == 0 {
		return append([]string(nil), b...)
	}
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string(nil), a...), b...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// mergeContacts unions contacts by lowercase email (falling back to name
// for email-less entries), keeps the higher-confidence duplicate, and
// re-derives the primary flag so exactly one contact is primary.
func mergeContacts(a, b []model.Contact) []model.Contact {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	byKey := make(map[string]model.Contact, len(a)+len(b))
	for _, c := range append(append([]model.Contact(nil), a...), b...) {
		key := strings.ToLower(strings.TrimSpace(c.Email))
		if key == "" {
			key = "name:" + strings.ToLower(strings.TrimSpace(c.Name))
		}
		if key == "" || key == "name:" {
			continue
		}
		if prev, ok := byKey[key]; ok {
			if prev.Confidence >= c.Confidence {
				continue
			}
		}
		c.Primary = false
		byKey[key] = c
	}

	out := make([]model.Contact, 0, len(byKey))
	for _, c := range byKey {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		if out[i].Email != out[j].Email {
			return out[i].Email < out[j].Email
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > 0 {
		out[0].Primary = true
	}
	return out
}
