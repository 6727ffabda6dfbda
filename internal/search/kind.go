package search

import (
	"net/url"
	"strings"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/refdata"
	"github.com/sells-group/prospect-cli/internal/rules"
	"github.com/sells-group/prospect-cli/internal/textnorm"
)

// page is the input to source-kind rules.
type page struct {
	host     string
	hostPath string
	segments []string
	title    string
}

func newPage(canonicalURL, title string) page {
	p := page{title: textnorm.Normalize(title)}
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return p
	}
	p.host = strings.ToLower(u.Hostname())
	path := strings.ToLower(u.Path)
	p.hostPath = p.host + path
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			p.segments = append(p.segments, s)
		}
	}
	return p
}

// KindDetector classifies pages with the reference source-kind rules,
// first match wins.
type KindDetector struct {
	table rules.Table[page, model.SourceKind]
}

// NewKindDetector builds the rule table from reference data.
func NewKindDetector(data *refdata.Data) *KindDetector {
	table := make(rules.Table[page, model.SourceKind], 0, len(data.SourceKinds))
	for _, r := range data.SourceKinds {
		table = append(table, rules.Rule[page, model.SourceKind]{
			Name:    string(r.Kind),
			Match:   kindMatcher(r),
			Outcome: r.Kind,
		})
	}
	return &KindDetector{table: table}
}

func kindMatcher(r refdata.SourceKindRule) func(page) bool {
	return func(p page) bool {
		for _, h := range r.Hosts {
			if textnorm.HostMatches(p.host, h) {
				return true
			}
		}
		for _, s := range r.URLContains {
			if strings.Contains(p.hostPath, s) {
				return true
			}
		}
		for _, s := range r.TitleContains {
			if strings.Contains(p.title, s) {
				return true
			}
		}
		if r.Root && len(p.segments) == 0 && p.host != "" {
			return true
		}
		if len(r.FirstSegments) > 0 && len(p.segments) > 0 {
			for _, s := range r.FirstSegments {
				if p.segments[0] == s {
					return true
				}
			}
		}
		return false
	}
}

// Detect classifies a page by canonical URL and title.
func (d *KindDetector) Detect(canonicalURL, title string) model.SourceKind {
	kind, _ := rules.First(d.table, newPage(canonicalURL, title), model.SourceOther)
	return kind
}
