// Package geo resolves a run's geographic targeting policy into a Profile
// used for both query qualification and candidate filtering.
package geo

import (
	"strings"
	"unicode/utf8"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/refdata"
	"github.com/sells-group/prospect-cli/internal/textnorm"
)

// minDecidableLetters is the amount of text below which a non-strict check
// returns undecided instead of rejected.
const minDecidableLetters = 40

// cyrillicMajority is the Cyrillic share at which CIS scope accepts a page
// without a marker.
const cyrillicMajority = 0.5

// stemMinRunes is the marker length from which inflected forms match
// ("москва" matches "москве").
const stemMinRunes = 5

// Profile is a resolved geo scope. It is read-only once returned.
type Profile struct {
	Scope        model.GeoScope `json:"scope"`
	Markers      []string       `json:"markers"`
	TLDAllowlist []string       `json:"tldAllowlist,omitempty"`
	QueryClause  string         `json:"queryClause"`
	// Terms are the geo words that earn a relevance bonus when a page
	// mentions them.
	Terms []string `json:"terms"`
	// Notes explains any scope substitution made during resolution.
	Notes []string `json:"notes,omitempty"`
}

// Fit is the outcome of a geo check.
type Fit struct {
	Verdict model.GeoVerdict
	Reason  string
}

// Fit reasons.
const (
	ReasonGlobal   = "global"
	ReasonTLD      = "tld"
	ReasonMarker   = "marker"
	ReasonCyrillic = "cyrillic"
	ReasonTooShort = "too_short"
	ReasonNoMarker = "no_marker"
)

// Resolve derives the geo profile from an intent. An empty scope resolves to
// CIS; a custom scope without any country resolves to global.
func Resolve(in model.Intent, data *refdata.Data) Profile {
	scope := in.ICP.GeoScope
	if scope == "" {
		scope = model.GeoCIS
	}

	switch scope {
	case model.GeoGlobal:
		return Profile{Scope: model.GeoGlobal, Terms: textnorm.DedupeList(in.ICP.Geo, 0, 0)}

	case model.GeoCustom:
		names := dedupeKeepCase(append(append([]string(nil), in.ICP.Countries...), in.ICP.Geo...))
		if len(names) == 0 {
			return Profile{
				Scope: model.GeoGlobal,
				Notes: []string{"custom geo scope without countries; searching globally"},
			}
		}
		p := Profile{Scope: model.GeoCustom}
		var clauses []string
		for _, n := range names {
			c, ok := data.Country(n)
			if !ok {
				p.Markers = append(p.Markers, n)
				clauses = append(clauses, n)
				continue
			}
			p.Markers = append(p.Markers, c.Aliases...)
			p.TLDAllowlist = append(p.TLDAllowlist, c.TLDs...)
			clauses = append(clauses, c.Clause)
		}
		p.Markers = textnorm.DedupeList(p.Markers, 0, 0)
		p.TLDAllowlist = textnorm.DedupeList(p.TLDAllowlist, 0, 0)
		// Clauses keep their original casing for query text.
		p.QueryClause = strings.Join(dedupeKeepCase(clauses), " ")
		p.Terms = textnorm.DedupeList(append(append([]string(nil), names...), p.Markers...), 0, 0)
		return p

	default:
		lang := in.Constraints.Language
		if lang != textnorm.LangEN {
			lang = textnorm.LangRU
		}
		cis := data.Geo.CIS
		return Profile{
			Scope:        model.GeoCIS,
			Markers:      append([]string(nil), cis.Markers...),
			TLDAllowlist: append([]string(nil), cis.TLDs...),
			QueryClause:  cis.Clause[lang],
			Terms:        textnorm.DedupeList(append(append([]string(nil), in.ICP.Geo...), cis.Markers...), 0, 0),
		}
	}
}

func dedupeKeepCase(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		k := textnorm.Normalize(s)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

// Fit evaluates whether a page at rawURL with the given text is inside the
// profile. A strict check never returns undecided.
func (p Profile) Fit(rawURL, text string, strict bool) Fit {
	if p.Scope == model.GeoGlobal {
		return Fit{Verdict: model.GeoAllowed, Reason: ReasonGlobal}
	}
	if tldAllowed(textnorm.Host(rawURL), p.TLDAllowlist) {
		return Fit{Verdict: model.GeoAllowed, Reason: ReasonTLD}
	}
	if p.hasMarkerWords(textnorm.Words(text)) {
		return Fit{Verdict: model.GeoAllowed, Reason: ReasonMarker}
	}
	if p.Scope == model.GeoCIS && textnorm.LetterCount(text) > 0 && textnorm.CyrillicShare(text) >= cyrillicMajority {
		return Fit{Verdict: model.GeoAllowed, Reason: ReasonCyrillic}
	}
	if !strict && textnorm.LetterCount(text) < minDecidableLetters {
		return Fit{Verdict: model.GeoUndecided, Reason: ReasonTooShort}
	}
	return Fit{Verdict: model.GeoRejected, Reason: ReasonNoMarker}
}

// HasMarker reports whether s mentions any of the profile's markers.
func (p Profile) HasMarker(s string) bool {
	return p.hasMarkerWords(textnorm.Words(s))
}

// MentionsTerm reports whether s mentions any geo term.
func (p Profile) MentionsTerm(s string) bool {
	return matchAny(textnorm.Words(s), p.Terms)
}

// Matches returns the phrases that occur in text, matching long single
// words by stem.
func Matches(text string, phrases []string) []string {
	words := textnorm.Words(text)
	if len(words) == 0 {
		return nil
	}
	wordText := " " + strings.Join(words, " ") + " "
	var out []string
	for _, ph := range phrases {
		if matchPhrase(words, wordText, ph) {
			out = append(out, ph)
		}
	}
	return out
}

func (p Profile) hasMarkerWords(words []string) bool {
	return matchAny(words, p.Markers)
}

func matchAny(words, phrases []string) bool {
	if len(words) == 0 || len(phrases) == 0 {
		return false
	}
	wordText := " " + strings.Join(words, " ") + " "
	for _, ph := range phrases {
		if matchPhrase(words, wordText, ph) {
			return true
		}
	}
	return false
}

// matchPhrase matches multi-word phrases exactly on word boundaries and
// single long words by stem, so case endings still match.
func matchPhrase(words []string, wordText, phrase string) bool {
	if strings.ContainsRune(phrase, ' ') || utf8.RuneCountInString(phrase) < stemMinRunes {
		return textnorm.HasPhrase(wordText, phrase)
	}
	r := []rune(phrase)
	stem := string(r[:len(r)-1])
	for _, w := range words {
		if strings.HasPrefix(w, stem) {
			return true
		}
	}
	return false
}

func tldAllowed(host string, allow []string) bool {
	if host == "" || len(allow) == 0 {
		return false
	}
	tld := host
	if i := strings.LastIndex(host, "."); i >= 0 {
		tld = host[i+1:]
	}
	for _, a := range allow {
		if tld == a {
			return true
		}
	}
	return false
}
