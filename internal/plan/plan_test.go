package plan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/geo"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/refdata"
	"github.com/sells-group/prospect-cli/internal/textnorm"
)

func accountingIntent(scope model.GeoScope) model.Intent {
	return model.Intent{
		Offer: model.Offer{
			ProductOrService: "бухгалтерский аутсорсинг",
			Keywords:         []string{"бухгалтер", "аутсорс"},
			Synonyms:         []string{"бухучет"},
		},
		ICP: model.ICP{
			GeoScope:   scope,
			Industries: []string{"розничная торговля"},
			Roles:      []string{"финансовый директор"},
		},
		Constraints: model.Constraints{Language: textnorm.LangRU},
		Objective:   model.ObjectiveBuyers,
	}.Normalized()
}

func build(t *testing.T, in model.Intent, mode model.Mode) Plan {
	t.Helper()
	data := refdata.MustDefault()
	return Build(in, geo.Resolve(in, data), data, BoundsFor(mode))
}

func TestBuild_Bounds(t *testing.T) {
	intents := map[string]model.Intent{
		"accounting cis":    accountingIntent(model.GeoCIS),
		"accounting global": accountingIntent(model.GeoGlobal),
		"empty":             {},
		"english any": {
			Offer:       model.Offer{ProductOrService: "payroll software"},
			Constraints: model.Constraints{Language: textnorm.LangEN},
			Objective:   model.ObjectiveAny,
		},
		"mixed competitors": {
			Offer:       model.Offer{Keywords: []string{"seo", "продвижение сайтов"}},
			Constraints: model.Constraints{Language: textnorm.LangMixed},
			Objective:   model.ObjectiveCompetitors,
		},
		"many terms": {
			Offer: model.Offer{Keywords: []string{"a1", "b2", "c3", "d4", "e5", "f6", "g7", "h8", "i9"}},
		},
	}
	for name, in := range intents {
		for _, mode := range []model.Mode{model.ModeQuick, model.ModeStandard, model.ModeDeep} {
			t.Run(name+"/"+string(mode), func(t *testing.T) {
				p := build(t, in, mode)
				b := BoundsFor(mode)
				assert.GreaterOrEqual(t, len(p.Queries), b.Min)
				assert.LessOrEqual(t, len(p.Queries), b.Max)
				assert.False(t, p.Short)

				seen := map[string]bool{}
				for _, q := range p.Queries {
					key := textnorm.Normalize(q.Text)
					assert.False(t, seen[key], "duplicate query %q", q.Text)
					seen[key] = true
				}
			})
		}
	}
}

func TestBuild_GeoQualifier(t *testing.T) {
	cis := build(t, accountingIntent(model.GeoCIS), model.ModeStandard)
	for _, q := range cis.Queries {
		assert.True(t, strings.HasSuffix(q.Text, "Россия"), q.Text)
	}

	global := build(t, accountingIntent(model.GeoGlobal), model.ModeStandard)
	for _, q := range global.Queries {
		assert.NotContains(t, q.Text, "Россия")
	}

	in := accountingIntent(model.GeoCIS)
	in.Offer.Keywords = []string{"бухгалтер москва"}
	p := build(t, in, model.ModeDeep)
	var withMarker int
	for _, q := range p.Queries {
		if q.Term == "бухгалтер москва" {
			withMarker++
			assert.NotContains(t, q.Text, "Россия", "query already names a CIS place")
		}
	}
	assert.Positive(t, withMarker)
}

func TestBuild_BuyerOrdering(t *testing.T) {
	p := build(t, accountingIntent(model.GeoGlobal), model.ModeQuick)
	require.NotEmpty(t, p.Queries)
	assert.Equal(t, "ищем бухгалтерский аутсорсинг", p.Queries[0].Text)
	assert.Equal(t, refdata.FamilySignal, p.Queries[0].Family)

	families := map[string]bool{}
	for _, q := range p.Queries {
		families[q.Family] = true
	}
	assert.True(t, families[refdata.FamilyJob])
	assert.True(t, families[refdata.FamilyTender])
	assert.True(t, families[refdata.FamilyCommunity])
	assert.False(t, families[refdata.FamilyVendor])
}

func TestBuild_Competitors(t *testing.T) {
	in := accountingIntent(model.GeoGlobal)
	in.Objective = model.ObjectiveCompetitors
	p := build(t, in, model.ModeStandard)
	for _, q := range p.Queries {
		if q.Template == TemplateExpansion {
			continue
		}
		assert.Equal(t, refdata.FamilyVendor, q.Family, q.Text)
	}
}

func TestBuild_SecondaryExpansion(t *testing.T) {
	in := model.Intent{
		Offer:       model.Offer{ProductOrService: "аудит"},
		ICP:         model.ICP{GeoScope: model.GeoGlobal, Industries: []string{"ритейл"}},
		Constraints: model.Constraints{Language: textnorm.LangRU},
		Objective:   model.ObjectiveCompetitors,
	}
	p := build(t, in, model.ModeDeep)
	require.Len(t, p.Queries, BoundsFor(model.ModeDeep).Min)

	var expansion []string
	for _, q := range p.Queries {
		if q.Template == TemplateExpansion {
			expansion = append(expansion, q.Text)
		}
	}
	require.NotEmpty(t, expansion)
	assert.Equal(t, "аудит ритейл", expansion[0], "industry qualifiers come before generic ones")
}

func TestBuild_Sites(t *testing.T) {
	p := build(t, accountingIntent(model.GeoGlobal), model.ModeDeep)
	sites := map[string]string{}
	for _, q := range p.Queries {
		if q.Site != "" {
			sites[q.Template] = q.Site
		}
	}
	assert.Equal(t, "hh.ru", sites["ru-job-hh"])
	assert.Equal(t, "zakupki.gov.ru", sites["ru-tender-zakupki"])
}

func TestSiteOf(t *testing.T) {
	assert.Equal(t, "linkedin.com/jobs", siteOf("site:www.LinkedIn.com/jobs payroll"))
	assert.Equal(t, "", siteOf("payroll site"))
}

func TestPlanTexts(t *testing.T) {
	p := Plan{Queries: []Query{{Text: "a"}, {Text: "b"}}}
	assert.Equal(t, []string{"a", "b"}, p.Texts())
}
