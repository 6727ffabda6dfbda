package model

import "github.com/sells-group/prospect-cli/internal/textnorm"

// List caps applied to every Intent list field.
const (
	MaxListItems = 12
	MaxItemRunes = 80
)

// Offer describes what the business sells.
type Offer struct {
	ProductOrService string   `json:"productOrService"`
	Keywords         []string `json:"keywords"`
	Synonyms         []string `json:"synonyms"`
	// Domains are brand or site names mentioned in the task text.
	Domains []string `json:"domains,omitempty"`
}

// ICP is the ideal customer profile.
type ICP struct {
	Geo         []string `json:"geo"`
	CompanySize string   `json:"companySize,omitempty"`
	Industries  []string `json:"industries"`
	Roles       []string `json:"roles"`
	GeoScope    GeoScope `json:"geoScope"`
	// Countries are the explicit markers for a custom scope.
	Countries []string `json:"countries,omitempty"`
}

// Constraints narrow the search.
type Constraints struct {
	Language    textnorm.Language `json:"language"`
	MustHave    []string          `json:"mustHave"`
	MustNotHave []string          `json:"mustNotHave"`
}

// Lexicon holds per-language phrase lists.
type Lexicon struct {
	RU []string `json:"ru"`
	EN []string `json:"en"`
}

// All returns the RU and EN phrases together.
func (l Lexicon) All() []string {
	out := make([]string, 0, len(l.RU)+len(l.EN))
	out = append(out, l.RU...)
	return append(out, l.EN...)
}

// Intent is the structured reading of a prospecting request. It is created
// once per request and treated as immutable afterwards.
type Intent struct {
	TaskText            string      `json:"taskText"`
	Offer               Offer       `json:"offer"`
	ICP                 ICP         `json:"icp"`
	Constraints         Constraints `json:"constraints"`
	Objective           Objective   `json:"objective"`
	BuyingSignalLexicon Lexicon     `json:"buyingSignalLexicon"`
	NegativeLexicon     Lexicon     `json:"negativeLexicon"`
	AssumptionsApplied  []string    `json:"assumptionsApplied"`
}

func normList(in []string) []string {
	return textnorm.DedupeList(in, MaxListItems, MaxItemRunes)
}

// Normalized returns a copy of the intent with every list field
// deduplicated, case-normalized and length-capped.
func (in Intent) Normalized() Intent {
	out := in
	out.Offer.ProductOrService = textnorm.Truncate(textnorm.Normalize(in.Offer.ProductOrService), MaxItemRunes)
	out.Offer.Keywords = normList(in.Offer.Keywords)
	out.Offer.Synonyms = normList(in.Offer.Synonyms)
	out.Offer.Domains = normList(in.Offer.Domains)
	out.ICP.Geo = normList(in.ICP.Geo)
	out.ICP.Industries = normList(in.ICP.Industries)
	out.ICP.Roles = normList(in.ICP.Roles)
	out.ICP.Countries = normList(in.ICP.Countries)
	out.Constraints.MustHave = normList(in.Constraints.MustHave)
	out.Constraints.MustNotHave = normList(in.Constraints.MustNotHave)
	out.BuyingSignalLexicon = Lexicon{RU: normList(in.BuyingSignalLexicon.RU), EN: normList(in.BuyingSignalLexicon.EN)}
	out.NegativeLexicon = Lexicon{RU: normList(in.NegativeLexicon.RU), EN: normList(in.NegativeLexicon.EN)}
	// Assumptions are human-readable notes; only dedupe them.
	out.AssumptionsApplied = textnorm.DedupeList(in.AssumptionsApplied, 0, 0)
	return out
}

// OfferTerms returns the product phrase, keywords and synonyms as one
// deduplicated list, product phrase first.
func (in Intent) OfferTerms() []string {
	terms := make([]string, 0, 1+len(in.Offer.Keywords)+len(in.Offer.Synonyms))
	if in.Offer.ProductOrService != "" {
		terms = append(terms, in.Offer.ProductOrService)
	}
	terms = append(terms, in.Offer.Keywords...)
	terms = append(terms, in.Offer.Synonyms...)
	return textnorm.DedupeList(terms, 0, MaxItemRunes)
}
