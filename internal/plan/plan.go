// Package plan expands an intent into a bounded, deduplicated list of web
// search queries.
package plan

import (
	"strings"

	"github.com/sells-group/prospect-cli/internal/geo"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/refdata"
	"github.com/sells-group/prospect-cli/internal/textnorm"
)

// maxActiveTerms is how many offer terms feed the primary expansion. The
// rest wait for the secondary pass.
const maxActiveTerms = 6

// TemplateExpansion marks queries produced by the secondary pass.
const TemplateExpansion = "expansion"

// TemplateSuffix marks the primary-term solution query.
const TemplateSuffix = "solution-suffix"

// Bounds limits the number of queries in a plan.
type Bounds struct {
	Min int
	Max int
}

// BoundsFor returns the query bounds of a mode.
func BoundsFor(m model.Mode) Bounds {
	p := model.PresetFor(m)
	return Bounds{Min: p.MinQueries, Max: p.MaxQueries}
}

// Query is one search query with its provenance.
type Query struct {
	Text     string `json:"text"`
	Template string `json:"template"`
	Family   string `json:"family,omitempty"`
	Term     string `json:"term"`
	// Site is the "site:" restriction of the query, if any.
	Site string `json:"site,omitempty"`
}

// Plan is an ordered query list. Earlier queries are more important.
type Plan struct {
	Queries []Query `json:"queries"`
	// Short is set when the secondary pass ran out of combinations before
	// reaching the minimum.
	Short bool `json:"short,omitempty"`
}

// Texts returns the query strings.
func (p Plan) Texts() []string {
	out := make([]string, len(p.Queries))
	for i, q := range p.Queries {
		out[i] = q.Text
	}
	return out
}

type builder struct {
	profile geo.Profile
	max     int
	seen    map[string]struct{}
	out     []Query
}

func (b *builder) full() bool { return len(b.out) >= b.max }

// add appends q after geo qualification unless an equivalent query exists.
func (b *builder) add(q Query) {
	if b.full() {
		return
	}
	q.Text = strings.Join(strings.Fields(q.Text), " ")
	if q.Text == "" {
		return
	}
	if b.profile.Scope != model.GeoGlobal && b.profile.QueryClause != "" && !b.profile.HasMarker(q.Text) {
		q.Text += " " + b.profile.QueryClause
	}
	key := textnorm.Normalize(q.Text)
	if _, ok := b.seen[key]; ok {
		return
	}
	b.seen[key] = struct{}{}
	q.Site = siteOf(q.Text)
	b.out = append(b.out, q)
}

// Build expands the intent into queries within bounds. The result always has
// at least bounds.Min queries as long as the reference data carries generic
// qualifiers, since the offer term list is never empty.
func Build(in model.Intent, profile geo.Profile, data *refdata.Data, bounds Bounds) Plan {
	if bounds.Max < bounds.Min {
		bounds.Max = bounds.Min
	}
	lang := in.Constraints.Language
	if lang == "" {
		lang = textnorm.LangMixed
	}
	lex := data.Lexicon(lang)

	terms := in.OfferTerms()
	if len(terms) == 0 {
		terms = []string{lex.DefaultOfferTerm}
	}
	active, rest := terms, []string(nil)
	if len(terms) > maxActiveTerms {
		active, rest = terms[:maxActiveTerms], terms[maxActiveTerms:]
	}

	b := &builder{profile: profile, max: bounds.Max, seen: make(map[string]struct{})}

	objective := in.Objective
	if objective == "" {
		objective = model.ObjectiveBuyers
	}
	if objective == model.ObjectiveBuyers || objective == model.ObjectiveAny {
		buyerQueries(b, data.TemplatesFor(lang, model.ObjectiveBuyers), lex, active)
	}
	if objective == model.ObjectiveCompetitors || objective == model.ObjectiveAny {
		vendorQueries(b, data.TemplatesFor(lang, model.ObjectiveCompetitors), active)
	}

	p := Plan{}
	if len(b.out) < bounds.Min {
		expand(b, bounds.Min, append(append([]string(nil), rest...), active...), qualifiers(in, lex))
		p.Short = len(b.out) < bounds.Min
	}
	p.Queries = b.out
	return p
}

// buyerQueries runs the buyer passes: the first signal for every term, a
// solution query for the primary term, every source template for the
// primary term, the remaining signals for every term, and finally source
// templates for the secondary terms.
func buyerQueries(b *builder, templates []refdata.Template, lex refdata.LangLexicon, terms []string) {
	var signalTpls, sourceTpls []refdata.Template
	for _, t := range templates {
		if t.Family == refdata.FamilySignal {
			signalTpls = append(signalTpls, t)
		} else {
			sourceTpls = append(sourceTpls, t)
		}
	}
	signals := lex.QuerySignals
	primary := terms[0]

	if len(signals) > 0 {
		for _, term := range terms {
			for _, t := range signalTpls {
				b.add(render(t, term, signals[0]))
			}
		}
	}
	for _, suffix := range lex.SolutionSuffixes {
		if !strings.Contains(primary, suffix) {
			b.add(Query{Text: primary + " " + suffix, Template: TemplateSuffix, Term: primary})
		}
	}
	for _, t := range sourceTpls {
		b.add(render(t, primary, ""))
	}
	for _, sig := range signals[min(1, len(signals)):] {
		for _, term := range terms {
			for _, t := range signalTpls {
				b.add(render(t, term, sig))
			}
		}
	}
	for _, term := range terms[1:] {
		for _, t := range sourceTpls {
			b.add(render(t, term, ""))
		}
	}
}

func vendorQueries(b *builder, templates []refdata.Template, terms []string) {
	for _, term := range terms {
		for _, t := range templates {
			b.add(render(t, term, ""))
		}
	}
}

// qualifiers returns industry and role qualifiers followed by the generic
// fallback list.
func qualifiers(in model.Intent, lex refdata.LangLexicon) []string {
	q := make([]string, 0, len(in.ICP.Industries)+len(in.ICP.Roles)+len(lex.GenericQualifiers))
	q = append(q, in.ICP.Industries...)
	q = append(q, in.ICP.Roles...)
	q = append(q, lex.GenericQualifiers...)
	return textnorm.DedupeList(q, 0, 0)
}

// expand combines terms with qualifiers until the plan reaches minimum.
func expand(b *builder, minimum int, terms, quals []string) {
	for _, q := range quals {
		for _, term := range terms {
			if len(b.out) >= minimum || b.full() {
				return
			}
			if strings.Contains(term, q) {
				continue
			}
			b.add(Query{Text: term + " " + q, Template: TemplateExpansion, Term: term})
		}
	}
}

func render(t refdata.Template, term, signal string) Query {
	text := strings.ReplaceAll(t.Pattern, "{term}", term)
	text = strings.ReplaceAll(text, "{signal}", signal)
	return Query{Text: text, Template: t.ID, Family: t.Family, Term: term}
}

// siteOf returns the target of a "site:" operator, lowercased.
func siteOf(text string) string {
	for _, f := range strings.Fields(text) {
		if strings.HasPrefix(strings.ToLower(f), "site:") {
			return strings.ToLower(strings.TrimPrefix(f[len("site:"):], "www."))
		}
	}
	return ""
}
