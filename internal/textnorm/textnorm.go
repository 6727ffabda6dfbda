// Package textnorm provides the text and URL normalization shared by every
// pipeline stage: case folding, tokenization, stemming, language detection,
// and URL canonicalization.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Language is the dominant script of a text.
type Language string

const (
	LangRU    Language = "ru"
	LangEN    Language = "en"
	LangMixed Language = "mixed"
)

// dominance is the ratio one script's letter count must reach over the other
// to be considered dominant.
const dominance = 1.4

// stemRunes is the prefix length used as a crude cross-language stem.
const stemRunes = 6

// minTokenRunes drops short function words ("на", "of", "и").
const minTokenRunes = 3

// Normalize applies NFKC, Unicode case folding, maps ё to е, and collapses
// whitespace.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	// A Caser carries state, so each call gets its own.
	s = cases.Fold().String(s)
	s = strings.ReplaceAll(s, "ё", "е")
	return strings.Join(strings.Fields(s), " ")
}

// Tokens splits s into normalized letter/digit runs of at least three runes.
func Tokens(s string) []string {
	s = Normalize(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenRunes {
			out = append(out, f)
		}
	}
	return out
}

// Stem truncates a token to its first six runes. Good enough to match
// "бухгалтера" with "бухгалтер" and "outsourcing" with "outsource".
func Stem(tok string) string {
	if utf8.RuneCountInString(tok) <= stemRunes {
		return tok
	}
	r := []rune(tok)
	return string(r[:stemRunes])
}

// StemSet returns the set of stems of every token in texts.
func StemSet(texts ...string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range texts {
		for _, tok := range Tokens(t) {
			set[Stem(tok)] = struct{}{}
		}
	}
	return set
}

// letterCounts returns the number of Cyrillic and Latin letters in s.
func letterCounts(s string) (cyr, lat int) {
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			cyr++
		case unicode.Is(unicode.Latin, r):
			lat++
		}
	}
	return cyr, lat
}

// DetectLanguage reports which script dominates s. Ties and texts with no
// letters resolve to LangMixed.
func DetectLanguage(s string) Language {
	cyr, lat := letterCounts(s)
	switch {
	case cyr > 0 && float64(cyr) >= dominance*float64(lat):
		return LangRU
	case lat > 0 && float64(lat) >= dominance*float64(cyr):
		return LangEN
	default:
		return LangMixed
	}
}

// CyrillicShare returns the fraction of letters in s that are Cyrillic.
func CyrillicShare(s string) float64 {
	cyr, lat := letterCounts(s)
	if cyr+lat == 0 {
		return 0
	}
	return float64(cyr) / float64(cyr+lat)
}

// LetterCount returns the number of letters in s.
func LetterCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}

// DedupeList normalizes each item, drops empties and duplicates, truncates
// items to maxRunes and the list to maxItems. A zero limit disables it.
func DedupeList(items []string, maxItems, maxRunes int) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		n := Truncate(Normalize(it), maxRunes)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
		if maxItems > 0 && len(out) >= maxItems {
			break
		}
	}
	return out
}

// ContainsAny returns the entries of phrases that occur in the normalized
// text. Phrases are expected to be normalized already.
func ContainsAny(normText string, phrases []string) []string {
	var hits []string
	for _, p := range phrases {
		if p != "" && strings.Contains(normText, p) {
			hits = append(hits, p)
		}
	}
	return hits
}

// Words splits s into normalized letter/digit runs of any length, keeping
// hyphenated words ("санкт-петербург") whole.
func Words(s string) []string {
	return strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

// WordText returns the words of s joined by single spaces and padded with a
// space on each side, ready for HasPhrase.
func WordText(s string) string {
	return " " + strings.Join(Words(s), " ") + " "
}

// HasPhrase reports whether phrase occurs in wordText on word boundaries.
// wordText must come from WordText.
func HasPhrase(wordText, phrase string) bool {
	p := strings.TrimSpace(WordText(phrase))
	if p == "" {
		return false
	}
	return strings.Contains(wordText, " "+p+" ")
}
