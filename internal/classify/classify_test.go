package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

func hotInput() Input {
	return Input{
		URL:             "https://www.b2b-center.ru/market/tender-123/",
		SourceKind:      model.SourceTender,
		EntityRole:      model.RoleBuyer,
		Relevance:       85,
		Intent:          80,
		HasBuyingSignal: true,
	}
}

func TestClassify_Table(t *testing.T) {
	t.Parallel()

	c := New(Config{Objective: model.ObjectiveBuyers, HotEligibleDomains: []string{"b2b-center.ru", "acme.ru"}})

	tests := []struct {
		name     string
		mutate   func(*Input)
		wantType model.LeadType
		wantRule string
		wantNote string
	}{
		{name: "hot tender", mutate: func(*Input) {}, wantType: model.LeadHot, wantRule: RuleHot},
		{
			name:     "article drops regardless of scores",
			mutate:   func(in *Input) { in.SourceKind = model.SourceArticle },
			wantType: model.LeadDrop, wantRule: RuleNonLeadSource,
		},
		{
			name:     "dictionary",
			mutate:   func(in *Input) { in.SourceKind = model.SourceDictionary },
			wantType: model.LeadDrop, wantRule: RuleNonLeadSource,
		},
		{
			name:     "vendor in buyer run",
			mutate:   func(in *Input) { in.EntityRole = model.RoleVendor },
			wantType: model.LeadDrop, wantRule: RuleVendorInBuyerRun,
		},
		{
			name:     "below drop threshold",
			mutate:   func(in *Input) { in.Relevance = 69 },
			wantType: model.LeadDrop, wantRule: RuleBelowDrop,
		},
		{
			name:     "low intent is warm",
			mutate:   func(in *Input) { in.Intent = 60 },
			wantType: model.LeadWarm, wantRule: RuleWarm,
		},
		{
			name:     "no buying signal is warm",
			mutate:   func(in *Input) { in.HasBuyingSignal = false },
			wantType: model.LeadWarm, wantRule: RuleWarm,
		},
		{
			name:     "directory kind cannot be hot",
			mutate:   func(in *Input) { in.SourceKind = model.SourceDirectory },
			wantType: model.LeadWarm, wantRule: RuleWarm,
		},
		{
			name:     "between drop and warm falls through",
			mutate:   func(in *Input) { in.Relevance = 72 },
			wantType: model.LeadDrop, wantRule: RuleDefaultDrop,
		},
		{
			name: "company page on eligible domain stays hot",
			mutate: func(in *Input) {
				in.SourceKind = model.SourceCompanyPage
				in.URL = "https://shop.acme.ru/about"
			},
			wantType: model.LeadHot, wantRule: RuleHot,
		},
		{
			name: "company page elsewhere is downgraded",
			mutate: func(in *Input) {
				in.SourceKind = model.SourceCompanyPage
				in.URL = "https://example.com/about"
			},
			wantType: model.LeadWarm, wantRule: RuleHot, wantNote: NoteNotHotEligible,
		},
		{
			name:     "job kind is inherently eligible",
			mutate:   func(in *Input) { in.SourceKind = model.SourceJob; in.URL = "https://example.com/jobs/1" },
			wantType: model.LeadHot, wantRule: RuleHot,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := hotInput()
			tt.mutate(&in)
			d := c.Classify(in)
			assert.Equal(t, tt.wantType, d.LeadType)
			assert.Equal(t, tt.wantRule, d.Rule)
			assert.Equal(t, tt.wantNote, d.Note)
		})
	}
}

func TestClassify_Objectives(t *testing.T) {
	t.Parallel()

	vendor := hotInput()
	vendor.EntityRole = model.RoleVendor

	competitors := New(Config{Objective: model.ObjectiveCompetitors})
	d := competitors.Classify(vendor)
	assert.Equal(t, model.LeadWarm, d.LeadType)
	assert.Equal(t, RuleWarm, d.Rule)

	anyRun := New(Config{Objective: model.ObjectiveAny})
	assert.Equal(t, model.LeadWarm, anyRun.Classify(vendor).LeadType)

	buyers := New(Config{})
	assert.Equal(t, model.LeadDrop, buyers.Classify(vendor).LeadType)
}

func TestClassify_VendorHotDowngradedInCompetitorScan(t *testing.T) {
	t.Parallel()

	// A custom table can still let a vendor through as Hot; the downgrade
	// pass keeps it Warm in a competitor scan.
	c := New(Config{Objective: model.ObjectiveCompetitors})
	c.table = append(c.table[:0:0], c.table...)
	c.table[3].Match = func(in Input) bool { return in.Relevance >= 80 }

	in := hotInput()
	in.EntityRole = model.RoleVendor
	d := c.Classify(in)
	assert.Equal(t, model.LeadWarm, d.LeadType)
	assert.Equal(t, NoteCompetitorVendor, d.Note)
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	c := New(Config{DropThreshold: 60})
	cfg := c.Config()
	assert.Equal(t, 60, cfg.DropThreshold)
	assert.Equal(t, DefaultRelevanceThreshold, cfg.RelevanceThreshold)
	assert.Equal(t, DefaultHotThreshold, cfg.HotThreshold)
	assert.Equal(t, DefaultHotIntentThreshold, cfg.HotIntentThreshold)
	assert.Equal(t, model.ObjectiveBuyers, cfg.Objective)
}

func rank(lt model.LeadType) int {
	switch lt {
	case model.LeadHot:
		return 2
	case model.LeadWarm:
		return 1
	}
	return 0
}

func TestClassify_Monotonic(t *testing.T) {
	t.Parallel()

	c := New(Config{HotEligibleDomains: []string{"b2b-center.ru"}})
	kinds := []model.SourceKind{model.SourceTender, model.SourceCompanyPage, model.SourceDirectory, model.SourceOther}
	roles := []model.EntityRole{model.RoleBuyer, model.RoleOther, model.RoleDirectory}

	for _, kind := range kinds {
		for _, role := range roles {
			for _, signal := range []bool{true, false} {
				base := Input{URL: "https://b2b-center.ru/t/1", SourceKind: kind, EntityRole: role, HasBuyingSignal: signal}
				for intent := 0; intent <= 100; intent += 10 {
					prev := model.LeadDrop
					for rel := 0; rel <= 100; rel++ {
						in := base
						in.Relevance, in.Intent = rel, intent
						got := c.Classify(in).LeadType
						if prev != model.LeadDrop {
							require.NotEqual(t, model.LeadDrop, got, "kind=%s role=%s rel=%d intent=%d", kind, role, rel, intent)
						}
						prev = got
					}
				}
				for rel := 0; rel <= 100; rel += 5 {
					prev := model.LeadDrop
					for intent := 0; intent <= 100; intent++ {
						in := base
						in.Relevance, in.Intent = rel, intent
						got := c.Classify(in).LeadType
						if role == model.RoleBuyer && prev == model.LeadWarm {
							require.GreaterOrEqual(t, rank(got), rank(prev), "kind=%s rel=%d intent=%d", kind, rel, intent)
						}
						prev = got
					}
				}
			}
		}
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	c := New(Config{HotEligibleDomains: []string{"b2b-center.ru"}})
	scs := []model.ScoredCandidate{
		{
			Candidate:       model.Candidate{ID: "c1", URL: "https://b2b-center.ru/t/1"},
			SourceType:      model.SourceTender,
			EntityRole:      model.RoleBuyer,
			RelevanceScore:  85,
			IntentScore:     80,
			HasBuyingSignal: true,
		},
		{
			Candidate:      model.Candidate{ID: "c2", URL: "https://vc.ru/post"},
			SourceType:     model.SourceArticle,
			EntityRole:     model.RoleMedia,
			RelevanceScore: 95,
		},
	}
	out := c.Apply(scs)
	require.Len(t, out, 2)
	assert.Equal(t, model.LeadHot, out[0].LeadType)
	assert.Equal(t, RuleHot, out[0].ClassifyRule)
	assert.Equal(t, model.LeadDrop, out[1].LeadType)
	assert.Equal(t, RuleNonLeadSource, out[1].ClassifyRule)
}
