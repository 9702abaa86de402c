package dedupe

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/sells-group/leadscout/internal/model"
)

// legalSuffixes lists common legal entity suffixes to strip during name
// normalization.
var legalSuffixes = []string{
	" LLC", " L.L.C.", " L.L.C",
	" INC", " INC.", " INCORPORATED",
	" CORP", " CORP.", " CORPORATION",
	" LTD", " LTD.", " LIMITED",
	" LP", " L.P.", " L.P",
	" LLP", " L.L.P.", " L.L.P",
	" PC", " P.C.", " P.C",
	" PA", " P.A.", " P.A",
	" CO", " CO.",
	" PLC", " P.L.C.",
	" DBA", " D/B/A",
	" PLLC",
}

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// NormalizeName standardizes a company name for identity matching:
// trim, uppercase, strip legal suffixes, strip punctuation, collapse
// whitespace.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	name = strings.ToUpper(name)

	for _, suffix := range legalSuffixes {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}

	name = strings.NewReplacer(
		",", "",
		".", "",
		"'", "",
		"\"", "",
		"&", "AND",
		"-", " ",
	).Replace(name)

	name = multiSpaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// NormalizeDomain extracts the bare registrable host from a website URL:
// lowercase, scheme and path stripped, leading www removed. Returns ""
// when the input has no usable host.
func NormalizeDomain(website string) string {
	website = strings.TrimSpace(strings.ToLower(website))
	if website == "" {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := u.Hostname()
	host = strings.TrimPrefix(host, "www.")
	return host
}

// IdentityKey computes the deduplication key for a prospect: the
// normalized domain when present, otherwise normalized company name plus
// locality. The key is derived only from identity fields set at parse
// time, so it never changes across merges.
func IdentityKey(p *model.Prospect) string {
	if d := NormalizeDomain(p.Website); d != "" {
		return d
	}
	if p.Domain != "" {
		return strings.ToLower(p.Domain)
	}
	locality := strings.ToLower(strings.TrimSpace(p.Location.City))
	if locality == "" {
		locality = strings.ToLower(strings.TrimSpace(p.Location.State))
	}
	return NormalizeName(p.CompanyName) + "|" + locality
}
