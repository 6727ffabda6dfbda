package intent

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/prospect-cli/internal/geo"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/refdata"
	"github.com/sells-group/prospect-cli/internal/textnorm"
)

var (
	quotedRe = regexp.MustCompile(`"([^"]{2,80})"|«([^»]{2,80})»|“([^”]{2,80})”`)
	domainRe = regexp.MustCompile(`(?i)\b(?:https?://)?(?:www\.)?((?:[a-z0-9][a-z0-9-]*\.)+(?:[a-z]{2,12}|рф))\b`)
	// clauseEnd stops a marker capture at punctuation.
	clauseEnd = regexp.MustCompile(`[.,;!?()\n]`)
)

// maxCaptureWords limits how much text follows an offer or exclusion marker.
const maxCaptureWords = 5

// placeStemRunes is the shortest place name matched in inflected forms.
const placeStemRunes = 5

// maxContentTerms caps the single-word keywords taken from free text.
const maxContentTerms = 6

// Lexical builds an intent from text alone using the reference lexicons.
// It never fails; fields it cannot find fall back to language defaults and
// each default is recorded in AssumptionsApplied.
func Lexical(text string, hints Hints, data *refdata.Data) model.Intent {
	lang := textnorm.DetectLanguage(text)
	lex := data.Lexicon(lang)
	normText := textnorm.Normalize(text)

	in := model.Intent{
		TaskText:    strings.TrimSpace(text),
		Constraints: model.Constraints{Language: lang},
		Objective:   model.ObjectiveBuyers,
	}

	quoted := quotedPhrases(text)
	offers := captureAfter(normText, lex.OfferMarkers, geoNames(data), lex.Stopwords)
	excluded := captureAfter(normText, lex.ExclusionMarkers, nil, nil)
	content := contentTerms(normText, lex, excluded, data)

	switch {
	case len(quoted) > 0:
		in.Offer.ProductOrService = quoted[0]
	case len(offers) > 0:
		in.Offer.ProductOrService = offers[0]
	case len(content) > 0:
		in.Offer.ProductOrService = strings.Join(content[:min(3, len(content))], " ")
	default:
		in.Offer.ProductOrService = lex.DefaultOfferTerm
		in.AssumptionsApplied = append(in.AssumptionsApplied, "offer not recognized; using default term \""+lex.DefaultOfferTerm+"\"")
	}

	in.Offer.Keywords = append(append(append([]string(nil), quoted...), offers...), content...)
	in.Offer.Domains = domains(text)
	in.Offer.Synonyms = synonyms(in.Offer.ProductOrService, in.Offer.Keywords, data)
	in.Constraints.MustHave = quoted
	in.Constraints.MustNotHave = excluded

	in.BuyingSignalLexicon = model.Lexicon{
		RU: data.Lexicon(textnorm.LangRU).BuyingSignals,
		EN: data.Lexicon(textnorm.LangEN).BuyingSignals,
	}
	in.NegativeLexicon = splitByScript(excluded)

	in.ICP.Industries = lex.DefaultIndustries
	in.ICP.Roles = lex.DefaultRoles
	in.AssumptionsApplied = append(in.AssumptionsApplied, "default industries and roles applied")

	detectGeo(&in, text, data)
	applyHints(&in, hints)
	return in.Normalized()
}

// applyHints overrides detected values with caller-supplied ones.
func applyHints(in *model.Intent, h Hints) {
	if h.GeoScope != "" {
		in.ICP.GeoScope = h.GeoScope
	}
	if len(h.Countries) > 0 {
		in.ICP.Countries = h.Countries
		if h.GeoScope == "" {
			in.ICP.GeoScope = model.GeoCustom
		}
	}
	if h.Objective != "" {
		in.Objective = h.Objective
	}
}

func quotedPhrases(text string) []string {
	var out []string
	for _, m := range quotedRe.FindAllStringSubmatch(text, -1) {
		for _, g := range m[1:] {
			if g != "" {
				out = append(out, g)
			}
		}
	}
	return out
}

// captureAfter returns the words following each marker occurrence, up to
// the end of the clause or the first place name. Connectives left dangling
// before a place name are trimmed.
func captureAfter(normText string, markers, places, stopwords []string) []string {
	var out []string
	for _, clause := range clauseEnd.Split(normText, -1) {
		words := textnorm.Words(clause)
		for _, m := range markers {
			mw := textnorm.Words(m)
			i := indexWords(words, mw)
			if i < 0 {
				continue
			}
			rest := words[i+len(mw):]
			rest = rest[:min(maxCaptureWords, len(rest))]
			if cut := indexPlace(rest, places); cut >= 0 {
				rest = trimConnectives(rest[:cut], stopwords)
			}
			if len(rest) == 0 {
				continue
			}
			out = append(out, strings.Join(rest, " "))
		}
	}
	return out
}

// indexPlace returns the index of the first word naming one of places, or -1.
// Long names also match their inflected forms.
func indexPlace(words, places []string) int {
	for i, w := range words {
		for _, p := range places {
			if isPlaceWord(w, p) {
				return i
			}
		}
	}
	return -1
}

func isPlaceWord(w, place string) bool {
	if w == place {
		return true
	}
	n := utf8.RuneCountInString(place)
	if n < placeStemRunes || strings.ContainsRune(place, ' ') {
		return false
	}
	stem := string([]rune(place)[:n-1])
	return strings.HasPrefix(w, stem) && utf8.RuneCountInString(w) <= n+2
}

// trimConnectives drops trailing stopwords and words too short to be terms.
func trimConnectives(words, stopwords []string) []string {
	for len(words) > 0 {
		last := words[len(words)-1]
		if utf8.RuneCountInString(last) >= 3 && !slices.Contains(stopwords, last) {
			break
		}
		words = words[:len(words)-1]
	}
	return words
}

func indexWords(words, sub []string) int {
	if len(sub) == 0 {
		return -1
	}
outer:
	for i := 0; i+len(sub) <= len(words); i++ {
		for j := range sub {
			if words[i+j] != sub[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}

// contentTerms returns tokens that are not stopwords, signal or marker
// words, geo names, or part of an exclusion clause.
func contentTerms(normText string, lex refdata.LangLexicon, excluded []string, data *refdata.Data) []string {
	skip := make(map[string]struct{})
	lists := [][]string{lex.Stopwords, lex.BuyingSignals, lex.OfferMarkers, lex.ExclusionMarkers, geoNames(data)}
	for _, list := range lists {
		for _, p := range list {
			for _, w := range textnorm.Words(p) {
				skip[w] = struct{}{}
			}
		}
	}
	for _, e := range excluded {
		for _, w := range textnorm.Words(e) {
			skip[w] = struct{}{}
		}
	}
	var out []string
	for _, tok := range textnorm.Tokens(normText) {
		if _, ok := skip[tok]; ok {
			continue
		}
		if strings.ContainsAny(tok, "0123456789") {
			continue
		}
		out = append(out, tok)
	}
	return textnorm.DedupeList(out, maxContentTerms, 0)
}

// geoNames returns the CIS markers and every country alias.
func geoNames(data *refdata.Data) []string {
	out := append([]string(nil), data.Geo.CIS.Markers...)
	for _, c := range data.Geo.Countries {
		out = append(out, c.Aliases...)
	}
	return out
}

func domains(text string) []string {
	var out []string
	for _, m := range domainRe.FindAllStringSubmatch(text, -1) {
		out = append(out, strings.ToLower(m[1]))
	}
	return out
}

func synonyms(product string, keywords []string, data *refdata.Data) []string {
	var out []string
	seen := map[string]struct{}{}
	add := func(term string) {
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		out = append(out, data.SynonymsFor(term)...)
	}
	add(product)
	for _, k := range keywords {
		add(k)
		for _, w := range textnorm.Tokens(k) {
			add(w)
		}
	}
	return out
}

func splitByScript(items []string) model.Lexicon {
	var lx model.Lexicon
	for _, it := range items {
		if textnorm.DetectLanguage(it) == textnorm.LangEN {
			lx.EN = append(lx.EN, it)
		} else {
			lx.RU = append(lx.RU, it)
		}
	}
	return lx
}

// detectGeo sets the scope from geo markers in the text: a named country
// outside the CIS gives a custom scope, CIS markers give cis, nothing gives
// cis for Cyrillic text and global otherwise.
func detectGeo(in *model.Intent, text string, data *refdata.Data) {
	cisHits := geo.Matches(text, data.Geo.CIS.Markers)
	in.ICP.Geo = append(in.ICP.Geo, cisHits...)
	var foreign []string
	for _, c := range data.Geo.Countries {
		if isCIS(c, data) {
			continue
		}
		if hits := geo.Matches(text, c.Aliases); len(hits) > 0 {
			foreign = append(foreign, c.Name)
			in.ICP.Geo = append(in.ICP.Geo, hits[0])
		}
	}
	cisHit := len(cisHits) > 0

	switch {
	case len(foreign) > 0:
		in.ICP.GeoScope = model.GeoCustom
		in.ICP.Countries = foreign
	case cisHit:
		in.ICP.GeoScope = model.GeoCIS
	case in.Constraints.Language == textnorm.LangEN:
		in.ICP.GeoScope = model.GeoGlobal
		in.AssumptionsApplied = append(in.AssumptionsApplied, "no geography named; searching globally")
	default:
		in.ICP.GeoScope = model.GeoCIS
		in.AssumptionsApplied = append(in.AssumptionsApplied, "no geography named; assuming CIS")
	}
}

func isCIS(c refdata.Country, data *refdata.Data) bool {
	for _, t := range c.TLDs {
		for _, ct := range data.Geo.CIS.TLDs {
			if t == ct {
				return true
			}
		}
	}
	return false
}
