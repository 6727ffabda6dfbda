package fetch

import (
	"net/url"
	"path"
	"strings"
)

// defaultSkipPatterns are binary documents and downloads the readers cannot
// turn into text within the enrichment budget.
var defaultSkipPatterns = []string{
	"*.pdf",
	"*.doc",
	"*.docx",
	"*.xls",
	"*.xlsx",
	"*.zip",
	"*.rar",
	"/download/*",
	"/files/*",
}

// PathMatcher filters URLs by glob-style path patterns. A pattern with a
// leading slash matches the whole path, "/files/*" also matching deeper
// paths; a pattern without one matches the last path segment.
type PathMatcher struct {
	patterns []string
}

// NewPathMatcher creates a PathMatcher. Nil patterns use the defaults; an
// empty non-nil slice skips nothing.
func NewPathMatcher(patterns []string) *PathMatcher {
	if patterns == nil {
		patterns = defaultSkipPatterns
	}
	lower := make([]string, 0, len(patterns))
	for _, p := range patterns {
		lower = append(lower, strings.ToLower(p))
	}
	return &PathMatcher{patterns: lower}
}

// Patterns returns the configured patterns.
func (m *PathMatcher) Patterns() []string {
	return m.patterns
}

// IsExcluded checks whether a URL matches any pattern. Unparseable URLs are
// excluded.
func (m *PathMatcher) IsExcluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	p := strings.ToLower(u.Path)
	for _, pattern := range m.patterns {
		if matchSegmented(pattern, p) {
			return true
		}
	}
	return false
}

func matchSegmented(pattern, urlPath string) bool {
	if !strings.HasPrefix(pattern, "/") {
		ok, _ := path.Match(pattern, path.Base(urlPath))
		return ok
	}
	if ok, _ := path.Match(pattern, urlPath); ok {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/") {
			return true
		}
	}
	return false
}
