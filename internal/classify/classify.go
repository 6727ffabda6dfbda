// Package classify turns scored candidates into Hot, Warm or Drop with an
// ordered rule table, then applies the downgrade passes.
package classify

import (
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/rules"
	"github.com/sells-group/prospect-cli/internal/textnorm"
)

// Default thresholds.
const (
	DefaultDropThreshold      = 70
	DefaultRelevanceThreshold = 75
	DefaultHotThreshold       = 80
	DefaultHotIntentThreshold = 70
)

// Rule names.
const (
	RuleNonLeadSource    = "non_lead_source"
	RuleVendorInBuyerRun = "vendor_in_buyer_run"
	RuleBelowDrop        = "below_drop_threshold"
	RuleHot              = "hot"
	RuleWarm             = "warm"
	RuleDefaultDrop      = "default_drop"
)

// Downgrade notes.
const (
	NoteNotHotEligible   = "downgraded to Warm: domain is not on the hot-eligible list"
	NoteCompetitorVendor = "downgraded to Warm: vendor in a competitor scan"
)

// Config holds the thresholds and the hot-eligible allowlist.
type Config struct {
	DropThreshold      int
	RelevanceThreshold int
	HotThreshold       int
	HotIntentThreshold int
	// HotEligibleDomains may stay Hot regardless of source kind.
	HotEligibleDomains []string
	Objective          model.Objective
}

// DefaultConfig returns the default thresholds for objective.
func DefaultConfig(objective model.Objective) Config {
	return Config{
		DropThreshold:      DefaultDropThreshold,
		RelevanceThreshold: DefaultRelevanceThreshold,
		HotThreshold:       DefaultHotThreshold,
		HotIntentThreshold: DefaultHotIntentThreshold,
		Objective:          objective,
	}
}

// Input is what classification looks at.
type Input struct {
	URL             string
	SourceKind      model.SourceKind
	EntityRole      model.EntityRole
	Relevance       int
	Intent          int
	HasBuyingSignal bool
}

// InputFrom extracts the classification input from a scored candidate.
func InputFrom(sc model.ScoredCandidate) Input {
	return Input{
		URL:             sc.Candidate.URL,
		SourceKind:      sc.SourceType,
		EntityRole:      sc.EntityRole,
		Relevance:       sc.RelevanceScore,
		Intent:          sc.IntentScore,
		HasBuyingSignal: sc.HasBuyingSignal,
	}
}

// Decision is a classification with the rule that produced it.
type Decision struct {
	LeadType model.LeadType `json:"leadType"`
	Rule     string         `json:"rule"`
	Note     string         `json:"note,omitempty"`
}

// Classifier classifies candidates. It is safe for concurrent use.
type Classifier struct {
	cfg   Config
	table rules.Table[Input, model.LeadType]
}

// New builds a Classifier. Non-positive thresholds take their defaults.
func New(cfg Config) *Classifier {
	def := DefaultConfig(cfg.Objective)
	if cfg.DropThreshold <= 0 {
		cfg.DropThreshold = def.DropThreshold
	}
	if cfg.RelevanceThreshold <= 0 {
		cfg.RelevanceThreshold = def.RelevanceThreshold
	}
	if cfg.HotThreshold <= 0 {
		cfg.HotThreshold = def.HotThreshold
	}
	if cfg.HotIntentThreshold <= 0 {
		cfg.HotIntentThreshold = def.HotIntentThreshold
	}
	if cfg.Objective == "" {
		cfg.Objective = model.ObjectiveBuyers
	}
	c := &Classifier{cfg: cfg}
	c.table = rules.Table[Input, model.LeadType]{
		{Name: RuleNonLeadSource, Outcome: model.LeadDrop, Match: func(in Input) bool {
			return in.SourceKind.IsContent()
		}},
		{Name: RuleVendorInBuyerRun, Outcome: model.LeadDrop, Match: func(in Input) bool {
			return cfg.Objective == model.ObjectiveBuyers && in.EntityRole == model.RoleVendor
		}},
		{Name: RuleBelowDrop, Outcome: model.LeadDrop, Match: func(in Input) bool {
			return in.Relevance < cfg.DropThreshold
		}},
		{Name: RuleHot, Outcome: model.LeadHot, Match: func(in Input) bool {
			return in.EntityRole == model.RoleBuyer &&
				in.Relevance >= cfg.HotThreshold &&
				in.Intent >= cfg.HotIntentThreshold &&
				in.HasBuyingSignal &&
				hotKind(in.SourceKind)
		}},
		{Name: RuleWarm, Outcome: model.LeadWarm, Match: func(in Input) bool {
			return in.Relevance >= cfg.RelevanceThreshold
		}},
	}
	return c
}

// Config returns the effective configuration.
func (c *Classifier) Config() Config { return c.cfg }

func hotKind(k model.SourceKind) bool {
	switch k {
	case model.SourceTender, model.SourceJob, model.SourceSocialPost, model.SourceCompanyPage:
		return true
	}
	return false
}

// inherentlyEligible kinds stay Hot on any domain.
func inherentlyEligible(k model.SourceKind) bool {
	return k == model.SourceTender || k == model.SourceJob || k == model.SourceSocialPost
}

// Classify runs the rule table and the downgrade passes.
func (c *Classifier) Classify(in Input) Decision {
	lt, rule := rules.First(c.table, in, model.LeadDrop)
	if rule == "" {
		rule = RuleDefaultDrop
	}
	d := Decision{LeadType: lt, Rule: rule}
	if d.LeadType != model.LeadHot {
		return d
	}
	if !inherentlyEligible(in.SourceKind) && !c.eligibleDomain(in.URL) {
		d.LeadType = model.LeadWarm
		d.Note = NoteNotHotEligible
		return d
	}
	if c.cfg.Objective == model.ObjectiveCompetitors && in.EntityRole == model.RoleVendor {
		d.LeadType = model.LeadWarm
		d.Note = NoteCompetitorVendor
	}
	return d
}

func (c *Classifier) eligibleDomain(rawURL string) bool {
	host := textnorm.Host(rawURL)
	for _, d := range c.cfg.HotEligibleDomains {
		if textnorm.HostMatches(host, d) {
			return true
		}
	}
	return false
}

// Apply classifies every candidate in place and returns the slice.
func (c *Classifier) Apply(scs []model.ScoredCandidate) []model.ScoredCandidate {
	for i := range scs {
		d := c.Classify(InputFrom(scs[i]))
		scs[i].LeadType = d.LeadType
		scs[i].ClassifyRule = d.Rule
		scs[i].ClassifyNote = d.Note
	}
	return scs
}
