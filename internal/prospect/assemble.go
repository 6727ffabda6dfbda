package prospect

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/refdata"
	"github.com/sells-group/prospect-cli/internal/textnorm"
)

const (
	maxSegments     = 5
	maxCompanyRunes = 80
	relevanceWeight = 0.6
	intentWeight    = 0.4
)

// titleSeparators split "page | brand" style titles.
var titleSeparators = []string{" | ", " — ", " – ", " - ", " :: ", " · "}

// legalForms mark a title segment as a company name.
var legalForms = []string{"ооо", "ао", "пао", "зао", "оао", "ип", "нко", "llc", "inc", "ltd", "gmbh", "corp"}

// Confidence blends relevance and intent into 0..1, rounded to two decimals.
func Confidence(relevance, intent int) float64 {
	return math.Round(relevanceWeight*float64(relevance)+intentWeight*float64(intent)) / 100
}

// leadDraft is a lead with the candidate it came from; proofs are attached
// only after dedupe and truncation.
type leadDraft struct {
	lead   model.Lead
	proofs []model.ProofItem
}

// draftLeads turns Hot and Warm candidates into leads ordered by confidence,
// descending. Ties keep input order.
func draftLeads(scored []model.ScoredCandidate) []leadDraft {
	var out []leadDraft
	for _, sc := range scored {
		if sc.LeadType != model.LeadHot && sc.LeadType != model.LeadWarm {
			continue
		}
		c := sc.Candidate
		why := sc.Reason
		if sc.ClassifyNote != "" {
			why += "; " + sc.ClassifyNote
		}
		out = append(out, leadDraft{
			lead: model.Lead{
				Title:           c.Title,
				URL:             c.URL,
				Company:         CompanyName(c.Title, c.URL),
				Source:          textnorm.Host(c.URL),
				SourceType:      sc.SourceType,
				EntityRole:      sc.EntityRole,
				RelevanceScore:  sc.RelevanceScore,
				IntentScore:     sc.IntentScore,
				HasBuyingSignal: sc.HasBuyingSignal,
				Confidence:      Confidence(sc.RelevanceScore, sc.IntentScore),
				LeadType:        sc.LeadType,
				WhyMatch:        why,
				Evidence:        sc.Evidence,
				ContactHint:     sc.ContactHint,
				ProofRefs:       []int{},
			},
			proofs: c.Proofs,
		})
	}
	slices.SortStableFunc(out, func(a, b leadDraft) int {
		switch {
		case a.lead.Confidence > b.lead.Confidence:
			return -1
		case a.lead.Confidence < b.lead.Confidence:
			return 1
		}
		return 0
	})
	return out
}

// attachProofs appends each lead's proofs to the shared list and records
// their indexes on the lead.
func attachProofs(drafts []leadDraft) ([]model.Lead, []model.ProofItem) {
	leads := make([]model.Lead, 0, len(drafts))
	proofs := []model.ProofItem{}
	for _, d := range drafts {
		l := d.lead
		for _, p := range d.proofs {
			l.ProofRefs = append(l.ProofRefs, len(proofs))
			proofs = append(proofs, p)
		}
		leads = append(leads, l)
	}
	return leads, proofs
}

// CompanyName derives the company behind a page: a title segment carrying a
// legal form wins, then the trailing "| Brand" segment, then the host.
func CompanyName(title, rawURL string) string {
	parts := splitTitle(title)
	for _, p := range parts {
		if hasLegalForm(p) {
			return textnorm.Truncate(p, maxCompanyRunes)
		}
	}
	if len(parts) > 1 {
		last := parts[len(parts)-1]
		if n := utf8.RuneCountInString(last); n >= 2 && n <= maxCompanyRunes {
			return last
		}
	}
	return textnorm.Host(rawURL)
}

func splitTitle(title string) []string {
	parts := []string{strings.TrimSpace(title)}
	for _, sep := range titleSeparators {
		var next []string
		for _, p := range parts {
			for _, s := range strings.Split(p, sep) {
				if s = strings.TrimSpace(s); s != "" {
					next = append(next, s)
				}
			}
		}
		parts = next
	}
	return parts
}

func hasLegalForm(s string) bool {
	for _, w := range textnorm.Words(s) {
		w = strings.Trim(w, ".-")
		if slices.Contains(legalForms, w) {
			return true
		}
	}
	return false
}

// Segments suggests up to five Warm ICP segments, industry × role, walked
// diagonally so the first few cover different industries and roles.
func Segments(in model.Intent, data *refdata.Data) []model.Segment {
	lex := data.Lexicon(in.Constraints.Language)
	industries := in.ICP.Industries
	if len(industries) == 0 {
		industries = lex.DefaultIndustries
	}
	roles := in.ICP.Roles
	if len(roles) == 0 {
		roles = lex.DefaultRoles
	}
	product := in.Offer.ProductOrService
	if product == "" {
		product = lex.DefaultOfferTerm
	}
	if len(industries) == 0 || len(roles) == 0 {
		return nil
	}

	var out []model.Segment
	for s := 0; s < len(industries)+len(roles)-1 && len(out) < maxSegments; s++ {
		for i := 0; i <= s && len(out) < maxSegments; i++ {
			j := s - i
			if i >= len(industries) || j >= len(roles) {
				continue
			}
			ind, role := industries[i], roles[j]
			out = append(out, model.Segment{
				Title:    fmt.Sprintf("%s / %s", ind, role),
				Industry: ind,
				Role:     role,
				Query:    strings.TrimSpace(product + " " + ind),
				LeadType: model.LeadWarm,
				WhyMatch: fmt.Sprintf("%s in %s typically decide on %s", role, ind, product),
			})
		}
	}
	return out
}
