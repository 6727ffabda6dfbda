package scoring

import (
	"fmt"
	"strings"

	"github.com/sells-group/prospect-cli/internal/geo"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/refdata"
	"github.com/sells-group/prospect-cli/internal/textnorm"
)

// Relevance weights.
const (
	overlapWeight      = 60
	overlapMinTerms    = 2
	domainBonus        = 10
	primaryBonus       = 10
	geoBonus           = 5
	contactBonus       = 5
	buyingBonus        = 20
	noisePenalty       = 15
	noisePenaltyCap    = 30
	negativePenalty    = 10
	negativePenaltyCap = 40
)

// Intent weights.
const (
	buyingHitWeight = 30
	buyingHitCap    = 75
	explicitBonus   = 20
	intentContact   = 10
	vendorPenalty   = 30

	// vendorRoleHits is the vendor-phrase count that makes a page a vendor
	// when no buyer phrase is present.
	vendorRoleHits = 2
)

// Scoring sources.
const (
	ByHeuristic = "heuristic"
	ByLLM       = "llm"
	ByMerged    = "merged"
)

const evidenceRunes = 240

// Assessment is one candidate's scores and role.
type Assessment struct {
	Relevance       int              `json:"relevanceScore"`
	Intent          int              `json:"intentScore"`
	Role            model.EntityRole `json:"entityRole"`
	HasBuyingSignal bool             `json:"hasBuyingSignal"`
	Reason          string           `json:"reason"`
	Evidence        string           `json:"evidence"`
	ContactHint     string           `json:"contactHint"`
	By              string           `json:"scoredBy"`
}

// Heuristic scores a candidate from its text alone. It is pure: the same
// inputs always give the same assessment.
func Heuristic(c model.Candidate, in model.Intent, profile geo.Profile, negatives []string, data *refdata.Data) Assessment {
	lex := data.AllLanguages()
	text := c.Text()

	intentStems := offerStemGroups(in.OfferTerms(), data)
	candStems := textnorm.StemSet(text)
	matched := 0
	for _, group := range intentStems {
		for s := range group {
			if _, ok := candStems[s]; ok {
				matched++
				break
			}
		}
	}

	buying := geo.Matches(text, textnorm.DedupeList(append(in.BuyingSignalLexicon.All(), lex.BuyingSignals...), 0, 0))
	explicit := len(geo.Matches(text, lex.ExplicitIntent)) > 0
	vendor := geo.Matches(text, lex.VendorPhrases)
	contactHint := contactFromProofs(c.Proofs)
	contactPhrases := geo.Matches(text, lex.ContactPhrases)
	contact := contactHint != "" || len(contactPhrases) > 0
	if contactHint == "" && len(contactPhrases) > 0 {
		contactHint = contactPhrases[0]
	}
	noise := geo.Matches(text, data.Noise.Markers)
	negs := geo.Matches(text, negatives)
	hasBuying := len(buying) > 0 || explicit || hasProof(c.Proofs, model.SignalBuying)

	// Relevance.
	rel := 0
	if denom := min(len(intentStems), overlapMinTerms); denom > 0 {
		ratio := min(1.0, float64(matched)/float64(denom))
		rel += int(overlapWeight * ratio)
	}
	if mentionsDomain(c.URL, text, in.Offer.Domains) {
		rel += domainBonus
	}
	if p := in.Offer.ProductOrService; p != "" && len(geo.Matches(text, []string{p})) > 0 {
		rel += primaryBonus
	}
	if profile.MentionsTerm(text) {
		rel += geoBonus
	}
	if contact {
		rel += contactBonus
	}
	if hasBuying {
		rel += buyingBonus
	}
	rel -= min(noisePenaltyCap, noisePenalty*len(noise))
	rel -= min(negativePenaltyCap, negativePenalty*len(negs))

	// Intent.
	score := min(buyingHitCap, buyingHitWeight*len(buying))
	if explicit {
		score += explicitBonus
	}
	if contact {
		score += intentContact
	}
	if len(vendor) > 0 && len(buying) == 0 && !explicit {
		score -= vendorPenalty
	}

	return Assessment{
		Relevance:       clamp(rel),
		Intent:          clamp(score),
		Role:            heuristicRole(c.SourceKind, len(buying) > 0 || explicit, len(vendor)),
		HasBuyingSignal: hasBuying,
		Reason:          reason(matched, len(intentStems), buying, negs),
		Evidence:        evidence(c),
		ContactHint:     contactHint,
		By:              ByHeuristic,
	}
}

// offerStemGroups maps each offer-term stem to the stems that match it: its
// own and those of its synonyms, so a Russian page can match an English
// offer and the other way round.
func offerStemGroups(terms []string, data *refdata.Data) map[string]map[string]struct{} {
	groups := make(map[string]map[string]struct{})
	for _, term := range terms {
		for _, tok := range textnorm.Tokens(term) {
			key := textnorm.Stem(tok)
			g, ok := groups[key]
			if !ok {
				g = map[string]struct{}{key: {}}
				groups[key] = g
			}
			for s := range textnorm.StemSet(data.SynonymsFor(tok)...) {
				g[s] = struct{}{}
			}
		}
	}
	return groups
}

func heuristicRole(kind model.SourceKind, buyer bool, vendorHits int) model.EntityRole {
	switch kind {
	case model.SourceDictionary:
		return model.RoleOther
	case model.SourceForum, model.SourceArticle:
		return model.RoleMedia
	case model.SourceDirectory:
		return model.RoleDirectory
	}
	switch {
	case buyer:
		return model.RoleBuyer
	case vendorHits >= vendorRoleHits:
		return model.RoleVendor
	default:
		return model.RoleOther
	}
}

func mentionsDomain(rawURL, text string, domains []string) bool {
	if len(domains) == 0 {
		return false
	}
	host := textnorm.Host(rawURL)
	norm := textnorm.Normalize(text)
	for _, d := range domains {
		if d == "" {
			continue
		}
		if textnorm.HostMatches(host, d) || strings.Contains(norm, d) {
			return true
		}
	}
	return false
}

func contactFromProofs(proofs []model.ProofItem) string {
	for _, p := range proofs {
		if p.SignalType == model.SignalContactEmail || p.SignalType == model.SignalContactPhone {
			return p.SignalValue
		}
	}
	return ""
}

func hasProof(proofs []model.ProofItem, signal string) bool {
	for _, p := range proofs {
		if p.SignalType == signal {
			return true
		}
	}
	return false
}

func reason(matched, total int, buying, negs []string) string {
	parts := []string{fmt.Sprintf("matched %d/%d offer terms", matched, total)}
	if len(buying) > 0 {
		parts = append(parts, "buying signals: "+strings.Join(buying, ", "))
	}
	if len(negs) > 0 {
		parts = append(parts, "negatives: "+strings.Join(negs, ", "))
	}
	return strings.Join(parts, "; ")
}

// evidence prefers a buying-signal proof, then any fetched proof, then the
// search snippet.
func evidence(c model.Candidate) string {
	var fallback string
	for _, p := range c.Proofs {
		switch {
		case p.SignalType == model.SignalBuying:
			return textnorm.Truncate(p.EvidenceSnippet, evidenceRunes)
		case p.SignalType != model.SignalPreview && fallback == "":
			fallback = p.EvidenceSnippet
		}
	}
	if fallback == "" {
		fallback = strings.Join(strings.Fields(firstNonEmpty(c.Snippet, c.Title)), " ")
	}
	return textnorm.Truncate(fallback, evidenceRunes)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func clamp(v int) int {
	return max(0, min(100, v))
}
