package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathMatcher_Defaults(t *testing.T) {
	m := NewPathMatcher(nil)
	tests := []struct {
		url  string
		want bool
	}{
		{"https://acme.ru/tenders/123", false},
		{"https://acme.ru/docs/Price.PDF", true},
		{"https://acme.ru/report.xlsx?x=1", true},
		{"https://acme.ru/files/a/b/c", true},
		{"https://acme.ru/files", true},
		{"https://acme.ru/filesystem", false},
		{"https://acme.ru/", false},
		{"://bad", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, m.IsExcluded(tt.url))
		})
	}
}

func TestPathMatcher_Custom(t *testing.T) {
	m := NewPathMatcher([]string{"/Blog/*"})
	assert.Equal(t, []string{"/blog/*"}, m.Patterns())
	assert.True(t, m.IsExcluded("https://acme.ru/blog/deep/post"))
	assert.False(t, m.IsExcluded("https://acme.ru/price.pdf"))

	none := NewPathMatcher([]string{})
	assert.False(t, none.IsExcluded("https://acme.ru/price.pdf"))
}
