// Package refdata loads the versioned reference tables the pipeline runs on:
// lexicons, blocklists, source-kind rules, geo markers and query templates.
// The tables are parsed once and treated as read-only afterwards.
package refdata

import (
	_ "embed"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/textnorm"
)

//go:embed data/refdata.yaml
var embedded []byte

// Template families.
const (
	FamilySignal    = "signal"
	FamilyJob       = "job"
	FamilyTender    = "tender"
	FamilyCommunity = "community"
	FamilyVendor    = "vendor"
)

// LangLexicon holds the phrase lists for one language.
type LangLexicon struct {
	BuyingSignals     []string `yaml:"buying_signals"`
	ExplicitIntent    []string `yaml:"explicit_intent"`
	VendorPhrases     []string `yaml:"vendor_phrases"`
	ContactPhrases    []string `yaml:"contact_phrases"`
	VendorNegatives   []string `yaml:"vendor_negatives"`
	DefaultIndustries []string `yaml:"default_industries"`
	DefaultRoles      []string `yaml:"default_roles"`
	OfferMarkers      []string `yaml:"offer_markers"`
	ExclusionMarkers  []string `yaml:"exclusion_markers"`
	Stopwords         []string `yaml:"stopwords"`
	QuerySignals      []string `yaml:"query_signals"`
	SolutionSuffixes  []string `yaml:"solution_suffixes"`
	GenericQualifiers []string `yaml:"generic_qualifiers"`
	DefaultOfferTerm  string   `yaml:"default_offer_term"`
}

// Noise lists low-value vocabulary.
type Noise struct {
	// Vocabulary words become negative keywords when enough candidates share them.
	Vocabulary []string `yaml:"vocabulary"`
	// Markers are penalized directly in relevance scoring.
	Markers []string `yaml:"markers"`
}

// Country describes one country for custom geo scope.
type Country struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
	TLDs    []string `yaml:"tlds"`
	Clause  string   `yaml:"clause"`
}

// CIS is the fixed CIS geo profile.
type CIS struct {
	Markers []string                     `yaml:"markers"`
	TLDs    []string                     `yaml:"tlds"`
	Clause  map[textnorm.Language]string `yaml:"clause"`
}

// Geo holds the geo tables.
type Geo struct {
	CIS       CIS       `yaml:"cis"`
	Countries []Country `yaml:"countries"`
}

// PathRule rejects URLs that contain any of the path segments.
type PathRule struct {
	Reason   string   `yaml:"reason"`
	Segments []string `yaml:"segments"`
}

// Blocklist holds domain and path blocklists.
type Blocklist struct {
	Domains []string   `yaml:"domains"`
	Paths   []PathRule `yaml:"paths"`
}

// SourceKindRule detects one source kind. Any populated matcher that hits
// is enough.
type SourceKindRule struct {
	Kind          model.SourceKind `yaml:"kind"`
	Hosts         []string         `yaml:"hosts"`
	URLContains   []string         `yaml:"url_contains"`
	TitleContains []string         `yaml:"title_contains"`
	FirstSegments []string         `yaml:"first_segments"`
	// Root matches site root pages.
	Root bool `yaml:"root"`
}

// Template is a query pattern with {term} and {signal} placeholders.
type Template struct {
	ID        string            `yaml:"id"`
	Family    string            `yaml:"family"`
	Lang      textnorm.Language `yaml:"lang"`
	Objective model.Objective   `yaml:"objective"`
	Pattern   string            `yaml:"pattern"`
}

// Data is the parsed reference data.
type Data struct {
	Version            int                               `yaml:"version"`
	Languages          map[textnorm.Language]LangLexicon `yaml:"languages"`
	Noise              Noise                             `yaml:"noise"`
	Synonyms           map[string][]string               `yaml:"synonyms"`
	Geo                Geo                               `yaml:"geo"`
	Blocklist          Blocklist                         `yaml:"blocklist"`
	SourceKinds        []SourceKindRule                  `yaml:"source_kinds"`
	HotEligibleDomains []string                          `yaml:"hot_eligible_domains"`
	Templates          []Template                        `yaml:"templates"`

	countries map[string]Country
}

var (
	defaultOnce sync.Once
	defaultData *Data
	defaultErr  error
)

// Default returns the embedded reference data, parsed on first use.
func Default() (*Data, error) {
	defaultOnce.Do(func() {
		defaultData, defaultErr = Parse(embedded)
	})
	return defaultData, defaultErr
}

// MustDefault is Default for callers that cannot proceed without it.
func MustDefault() *Data {
	d, err := Default()
	if err != nil {
		panic(err)
	}
	return d
}

// LoadFile reads reference data from a YAML file instead of the embedded copy.
func LoadFile(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "refdata: read %s", path)
	}
	return Parse(raw)
}

// Parse decodes, normalizes and validates reference data.
func Parse(raw []byte) (*Data, error) {
	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, eris.Wrap(err, "refdata: parse")
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	d.normalize()
	return &d, nil
}

func (d *Data) validate() error {
	if d.Version <= 0 {
		return eris.New("refdata: missing version")
	}
	for _, lang := range []textnorm.Language{textnorm.LangRU, textnorm.LangEN} {
		lex, ok := d.Languages[lang]
		if !ok {
			return eris.Errorf("refdata: missing lexicon for %s", lang)
		}
		if len(lex.BuyingSignals) == 0 || lex.DefaultOfferTerm == "" {
			return eris.Errorf("refdata: incomplete lexicon for %s", lang)
		}
	}
	rank := make(map[model.SourceKind]int)
	for i, k := range model.SourceKindOrder() {
		rank[k] = i
	}
	last := -1
	for _, r := range d.SourceKinds {
		i, ok := rank[r.Kind]
		if !ok {
			return eris.Errorf("refdata: unknown source kind %q", r.Kind)
		}
		if i <= last {
			return eris.Errorf("refdata: source kind %q out of order", r.Kind)
		}
		last = i
	}
	for _, t := range d.Templates {
		switch t.Family {
		case FamilySignal, FamilyJob, FamilyTender, FamilyCommunity, FamilyVendor:
		default:
			return eris.Errorf("refdata: template %s has unknown family %q", t.ID, t.Family)
		}
	}
	return nil
}

func norm(in []string) []string {
	return textnorm.DedupeList(in, 0, 0)
}

func (d *Data) normalize() {
	for lang, lex := range d.Languages {
		lex.BuyingSignals = norm(lex.BuyingSignals)
		lex.ExplicitIntent = norm(lex.ExplicitIntent)
		lex.VendorPhrases = norm(lex.VendorPhrases)
		lex.ContactPhrases = norm(lex.ContactPhrases)
		lex.VendorNegatives = norm(lex.VendorNegatives)
		lex.DefaultIndustries = norm(lex.DefaultIndustries)
		lex.DefaultRoles = norm(lex.DefaultRoles)
		lex.OfferMarkers = norm(lex.OfferMarkers)
		lex.ExclusionMarkers = norm(lex.ExclusionMarkers)
		lex.Stopwords = norm(lex.Stopwords)
		lex.QuerySignals = norm(lex.QuerySignals)
		lex.SolutionSuffixes = norm(lex.SolutionSuffixes)
		lex.GenericQualifiers = norm(lex.GenericQualifiers)
		lex.DefaultOfferTerm = textnorm.Normalize(lex.DefaultOfferTerm)
		d.Languages[lang] = lex
	}
	d.Noise.Vocabulary = norm(d.Noise.Vocabulary)
	d.Noise.Markers = norm(d.Noise.Markers)

	syn := make(map[string][]string, len(d.Synonyms))
	for k, v := range d.Synonyms {
		syn[textnorm.Normalize(k)] = norm(v)
	}
	d.Synonyms = syn

	d.Geo.CIS.Markers = norm(d.Geo.CIS.Markers)
	d.Geo.CIS.TLDs = norm(d.Geo.CIS.TLDs)
	d.countries = make(map[string]Country)
	for i, c := range d.Geo.Countries {
		c.Name = textnorm.Normalize(c.Name)
		c.Aliases = norm(append([]string{c.Name}, c.Aliases...))
		c.TLDs = norm(c.TLDs)
		d.Geo.Countries[i] = c
		for _, a := range c.Aliases {
			if _, ok := d.countries[a]; !ok {
				d.countries[a] = c
			}
		}
	}

	d.Blocklist.Domains = norm(d.Blocklist.Domains)
	for i, p := range d.Blocklist.Paths {
		p.Segments = norm(p.Segments)
		d.Blocklist.Paths[i] = p
	}
	for i, r := range d.SourceKinds {
		r.Hosts = norm(r.Hosts)
		r.URLContains = norm(r.URLContains)
		r.TitleContains = norm(r.TitleContains)
		r.FirstSegments = norm(r.FirstSegments)
		d.SourceKinds[i] = r
	}
	d.HotEligibleDomains = norm(d.HotEligibleDomains)
}

// Lexicon returns the lexicon for lang. LangMixed merges both languages,
// Russian first; the default offer term comes from the Russian table.
func (d *Data) Lexicon(lang textnorm.Language) LangLexicon {
	if lang != textnorm.LangMixed {
		if lex, ok := d.Languages[lang]; ok {
			return lex
		}
	}
	ru, en := d.Languages[textnorm.LangRU], d.Languages[textnorm.LangEN]
	merge := func(a, b []string) []string {
		return norm(append(append([]string(nil), a...), b...))
	}
	return LangLexicon{
		BuyingSignals:     merge(ru.BuyingSignals, en.BuyingSignals),
		ExplicitIntent:    merge(ru.ExplicitIntent, en.ExplicitIntent),
		VendorPhrases:     merge(ru.VendorPhrases, en.VendorPhrases),
		ContactPhrases:    merge(ru.ContactPhrases, en.ContactPhrases),
		VendorNegatives:   merge(ru.VendorNegatives, en.VendorNegatives),
		DefaultIndustries: merge(ru.DefaultIndustries, en.DefaultIndustries),
		DefaultRoles:      merge(ru.DefaultRoles, en.DefaultRoles),
		OfferMarkers:      merge(ru.OfferMarkers, en.OfferMarkers),
		ExclusionMarkers:  merge(ru.ExclusionMarkers, en.ExclusionMarkers),
		Stopwords:         merge(ru.Stopwords, en.Stopwords),
		QuerySignals:      merge(ru.QuerySignals, en.QuerySignals),
		SolutionSuffixes:  merge(ru.SolutionSuffixes, en.SolutionSuffixes),
		GenericQualifiers: merge(ru.GenericQualifiers, en.GenericQualifiers),
		DefaultOfferTerm:  ru.DefaultOfferTerm,
	}
}

// AllLanguages returns the merged lexicon of every language.
func (d *Data) AllLanguages() LangLexicon {
	return d.Lexicon(textnorm.LangMixed)
}

// Country looks a country up by name or alias.
func (d *Data) Country(name string) (Country, bool) {
	c, ok := d.countries[textnorm.Normalize(name)]
	return c, ok
}

// SynonymsFor returns the synonyms of a normalized term.
func (d *Data) SynonymsFor(term string) []string {
	return d.Synonyms[textnorm.Normalize(term)]
}

// TemplatesFor returns the templates for a language and objective.
// LangMixed selects both languages; ObjectiveAny selects buyer and vendor
// templates.
func (d *Data) TemplatesFor(lang textnorm.Language, obj model.Objective) []Template {
	var out []Template
	for _, t := range d.Templates {
		if lang != textnorm.LangMixed && t.Lang != lang {
			continue
		}
		if obj != model.ObjectiveAny && t.Objective != obj {
			continue
		}
		out = append(out, t)
	}
	return out
}
