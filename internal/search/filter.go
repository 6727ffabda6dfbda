package search

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/geo"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/plan"
	"github.com/sells-group/prospect-cli/internal/refdata"
	"github.com/sells-group/prospect-cli/internal/textnorm"
)

// Filter turns raw results into candidates. It remembers every URL it has
// seen, so one Filter serves exactly one run.
type Filter struct {
	data     *refdata.Data
	profile  geo.Profile
	kinds    *KindDetector
	explicit []string
	seen     map[string]struct{}
}

// NewFilter creates a Filter. explicitIntent lists the phrases that let a
// non-lead-like page through.
func NewFilter(data *refdata.Data, profile geo.Profile, explicitIntent []string) *Filter {
	return &Filter{
		data:     data,
		profile:  profile,
		kinds:    NewKindDetector(data),
		explicit: textnorm.DedupeList(explicitIntent, 0, 0),
		seen:     make(map[string]struct{}),
	}
}

// Check applies the filter chain to one result from query q. It returns the
// candidate, or the rejection reason.
func (f *Filter) Check(r Result, q plan.Query, queryIndex, resultIndex int) (model.Candidate, string) {
	canonical, err := textnorm.CanonicalURL(r.URL)
	if err != nil {
		return model.Candidate{}, model.ReasonInvalidURL
	}
	if q.Site != "" && !siteMatches(canonical, q.Site) {
		return model.Candidate{}, model.ReasonSiteMismatch
	}
	if reason := f.blocked(canonical); reason != "" {
		return model.Candidate{}, reason
	}
	if _, dup := f.seen[canonical]; dup {
		return model.Candidate{}, model.ReasonDuplicateURL
	}
	f.seen[canonical] = struct{}{}

	kind := f.kinds.Detect(canonical, r.Title)
	text := r.Title + "\n" + r.Snippet
	if !kind.IsLeadLike() && len(textnorm.ContainsAny(textnorm.Normalize(text), f.explicit)) == 0 {
		return model.Candidate{}, model.ReasonSourceKind
	}

	fit := f.profile.Fit(canonical, text, false)
	if fit.Verdict == model.GeoRejected {
		return model.Candidate{}, model.ReasonGeoRejected
	}

	return model.Candidate{
		ID:          fmt.Sprintf("q%d-r%d", queryIndex, resultIndex),
		URL:         canonical,
		Title:       strings.TrimSpace(r.Title),
		Snippet:     strings.TrimSpace(r.Snippet),
		SourceKind:  kind,
		Query:       q.Text,
		QueryIndex:  queryIndex,
		ResultIndex: resultIndex,
		GeoVerdict:  fit.Verdict,
	}, ""
}

// CheckProvided admits a caller-supplied URL. Only URL validity and
// duplicates are checked; the caller chose these pages.
func (f *Filter) CheckProvided(rawURL string, index int) (model.Candidate, string) {
	canonical, err := textnorm.CanonicalURL(rawURL)
	if err != nil {
		return model.Candidate{}, model.ReasonInvalidURL
	}
	if _, dup := f.seen[canonical]; dup {
		return model.Candidate{}, model.ReasonDuplicateURL
	}
	f.seen[canonical] = struct{}{}
	return model.Candidate{
		ID:          fmt.Sprintf("u%d", index),
		URL:         canonical,
		SourceKind:  f.kinds.Detect(canonical, ""),
		Provider:    "provided",
		QueryIndex:  -1,
		ResultIndex: index,
		GeoVerdict:  f.profile.Fit(canonical, "", false).Verdict,
	}, ""
}

// blocked returns the blocklist reason for a canonical URL, or "".
func (f *Filter) blocked(canonical string) string {
	host := textnorm.Host(canonical)
	for _, d := range f.data.Blocklist.Domains {
		if textnorm.HostMatches(host, d) {
			return model.ReasonBlockedDomain
		}
	}
	segments := strings.Split(textnorm.Path(canonical), "/")
	for _, rule := range f.data.Blocklist.Paths {
		for _, seg := range segments {
			if seg == "" {
				continue
			}
			for _, s := range rule.Segments {
				if seg == s {
					zap.L().Debug("search: path blocked",
						zap.String("url", canonical),
						zap.String("segment", seg),
					)
					return rule.Reason
				}
			}
		}
	}
	return ""
}

// siteMatches reports whether a canonical URL is inside a site restriction
// such as "hh.ru" or "linkedin.com/jobs".
func siteMatches(canonical, site string) bool {
	host, prefix := site, ""
	if i := strings.IndexByte(site, '/'); i >= 0 {
		host, prefix = site[:i], site[i:]
	}
	if !textnorm.HostMatches(textnorm.Host(canonical), host) {
		return false
	}
	if prefix == "" {
		return true
	}
	path := textnorm.Path(canonical)
	prefix = strings.TrimRight(prefix, "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
