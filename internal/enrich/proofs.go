package enrich

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/prospect-cli/internal/geo"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/textnorm"
)

const (
	// snippetRadius is the number of runes kept on each side of a match.
	snippetRadius = 80
	// previewRunes caps the preview proof snippet.
	previewRunes = 300
	// maxSignalProofs caps buying-signal proofs per page.
	maxSignalProofs = 3
	// maxContactProofs caps proofs per contact kind per page.
	maxContactProofs = 2
)

var (
	emailRe = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Russian (+7/8) and international numbers with optional separators.
	phoneRe = regexp.MustCompile(`(?:\+7|\b8)[\s\-(]*\d{3}[\s\-)]*\d{3}[\s\-]*\d{2}[\s\-]*\d{2}\b|\+\d{1,3}[\s\-]?\(?\d{2,4}\)?[\s\-]?\d{3}[\s\-]?\d{2,4}(?:[\s\-]?\d{2})?`)
)

// PreviewProof is the default proof every candidate carries: its title and
// snippet as returned by search.
func PreviewProof(c model.Candidate) model.ProofItem {
	snippet := strings.TrimSpace(c.Snippet)
	if snippet == "" {
		snippet = c.Title
	}
	return model.ProofItem{
		URL:             c.URL,
		SourceType:      c.SourceKind,
		SignalType:      model.SignalPreview,
		SignalValue:     strings.TrimSpace(c.Title),
		EvidenceSnippet: textnorm.Truncate(strings.Join(strings.Fields(snippet), " "), previewRunes),
	}
}

// PageProofs extracts buying-signal and contact proofs from fetched text.
func PageProofs(c model.Candidate, text string, signals []string) []model.ProofItem {
	var out []model.ProofItem
	proof := func(signal, value, snippet string) model.ProofItem {
		return model.ProofItem{
			URL:             c.URL,
			SourceType:      c.SourceKind,
			SignalType:      signal,
			SignalValue:     value,
			EvidenceSnippet: snippet,
		}
	}

	for i, s := range geo.Matches(text, signals) {
		if i >= maxSignalProofs {
			break
		}
		out = append(out, proof(model.SignalBuying, s, snippetAround(text, matchKey(s))))
	}

	seen := map[string]bool{}
	n := 0
	for _, m := range emailRe.FindAllString(text, -1) {
		m = strings.ToLower(m)
		if seen[m] || n >= maxContactProofs {
			continue
		}
		seen[m] = true
		n++
		out = append(out, proof(model.SignalContactEmail, m, snippetAround(text, m)))
	}

	n = 0
	for _, m := range phoneRe.FindAllString(text, -1) {
		digits := onlyDigits(m)
		if len(digits) < 10 || seen[digits] || n >= maxContactProofs {
			continue
		}
		seen[digits] = true
		n++
		out = append(out, proof(model.SignalContactPhone, strings.TrimSpace(m), snippetAround(text, m)))
	}
	return out
}

// matchKey is the text searched for when locating a phrase match: the whole
// phrase, or the stem of a long single word.
func matchKey(phrase string) string {
	if strings.ContainsRune(phrase, ' ') || utf8.RuneCountInString(phrase) < 5 {
		return phrase
	}
	r := []rune(phrase)
	return string(r[:len(r)-1])
}

// snippetAround returns a whitespace-collapsed window of text around the
// first case-insensitive occurrence of needle.
func snippetAround(text, needle string) string {
	runes := []rune(text)
	lower := []rune(strings.ToLower(text))
	n := []rune(strings.ToLower(needle))
	idx := indexRunes(lower, n)
	if idx < 0 || len(lower) != len(runes) {
		return textnorm.Truncate(strings.Join(strings.Fields(text), " "), 2*snippetRadius)
	}
	start := max(0, idx-snippetRadius)
	end := min(len(runes), idx+len(n)+snippetRadius)
	return strings.Join(strings.Fields(string(runes[start:end])), " ")
}

func indexRunes(hay, needle []rune) int {
	if len(needle) == 0 {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(hay); i++ {
		for j, r := range needle {
			if hay[i+j] != r {
				continue outer
			}
		}
		return i
	}
	return -1
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
