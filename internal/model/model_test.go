package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageAdd(t *testing.T) {
	t.Parallel()

	t.Run("adds all fields", func(t *testing.T) {
		t.Parallel()
		a := Usage{LLMCalls: 1, InputTokens: 100, OutputTokens: 50, SearchCalls: 2, FetchCalls: 1, FetchTokens: 10, Cost: 0.01}
		b := Usage{LLMCalls: 2, LLMFailures: 1, InputTokens: 200, OutputTokens: 100, SearchCalls: 3, Cost: 0.02}
		a.Add(b)
		assert.Equal(t, 3, a.LLMCalls)
		assert.Equal(t, 1, a.LLMFailures)
		assert.Equal(t, 300, a.InputTokens)
		assert.Equal(t, 150, a.OutputTokens)
		assert.Equal(t, 5, a.SearchCalls)
		assert.Equal(t, 1, a.FetchCalls)
		assert.Equal(t, 10, a.FetchTokens)
		assert.InDelta(t, 0.03, a.Cost, 0.0001)
	})

	t.Run("add zero is no-op", func(t *testing.T) {
		t.Parallel()
		a := Usage{InputTokens: 100, Cost: 0.01}
		a.Add(Usage{})
		assert.Equal(t, 100, a.InputTokens)
		assert.InDelta(t, 0.01, a.Cost, 0.0001)
	})
}

func TestParseEnums(t *testing.T) {
	t.Parallel()

	scope, err := ParseGeoScope(" CIS ")
	require.NoError(t, err)
	assert.Equal(t, GeoCIS, scope)

	_, err = ParseGeoScope("europe")
	assert.Error(t, err)

	dm, err := ParseDedupeMode("text_fingerprint")
	require.NoError(t, err)
	assert.Equal(t, DedupeFingerprint, dm)

	_, err = ParseMode("turbo")
	assert.Error(t, err)

	rm, err := ParseRunMode("refresh")
	require.NoError(t, err)
	assert.Equal(t, RunRefresh, rm)

	obj, err := ParseObjective("competitors")
	require.NoError(t, err)
	assert.Equal(t, ObjectiveCompetitors, obj)
}

func TestParseEntityRole(t *testing.T) {
	t.Parallel()

	r, ok := ParseEntityRole("Buyer")
	assert.True(t, ok)
	assert.Equal(t, RoleBuyer, r)

	_, ok = ParseEntityRole("reseller")
	assert.False(t, ok)
}

func TestSourceKind_Predicates(t *testing.T) {
	t.Parallel()

	leadLike := map[SourceKind]bool{}
	for _, k := range SourceKindOrder() {
		leadLike[k] = k.IsLeadLike()
	}
	assert.True(t, leadLike[SourceTender])
	assert.True(t, leadLike[SourceCompanyPage])
	assert.False(t, leadLike[SourceArticle])
	assert.False(t, leadLike[SourceOther])

	assert.True(t, SourceForum.IsContent())
	assert.False(t, SourceJob.IsContent())
	assert.Equal(t, SourceDictionary, SourceKindOrder()[0])
}

func TestIntentNormalized(t *testing.T) {
	t.Parallel()

	in := Intent{
		Offer: Offer{
			ProductOrService: "  Accounting  OUTSOURCING ",
			Keywords:         []string{"Бухгалтер", "бухгалтер", "", "аутсорс"},
		},
		ICP: ICP{Industries: []string{"Retail", "retail"}},
	}
	out := in.Normalized()
	assert.Equal(t, "accounting outsourcing", out.Offer.ProductOrService)
	assert.Equal(t, []string{"бухгалтер", "аутсорс"}, out.Offer.Keywords)
	assert.Equal(t, []string{"retail"}, out.ICP.Industries)
	// The original is untouched.
	assert.Equal(t, "Бухгалтер", in.Offer.Keywords[0])
}

func TestIntentOfferTerms(t *testing.T) {
	t.Parallel()

	in := Intent{Offer: Offer{
		ProductOrService: "seo",
		Keywords:         []string{"seo", "продвижение сайтов"},
		Synonyms:         []string{"поисковое продвижение"},
	}}
	assert.Equal(t, []string{"seo", "продвижение сайтов", "поисковое продвижение"}, in.OfferTerms())
}

func TestCandidateText(t *testing.T) {
	t.Parallel()

	c := Candidate{Title: "T", Snippet: "S"}
	assert.Equal(t, "T\nS", c.Text())
	c.PageText = "P"
	assert.Equal(t, "T\nS\nP", c.Text())
}

func TestPresetFor(t *testing.T) {
	t.Parallel()

	quick, standard, deep := PresetFor(ModeQuick), PresetFor(ModeStandard), PresetFor(ModeDeep)
	assert.Less(t, quick.SearchTimeout, standard.SearchTimeout)
	assert.Less(t, standard.SearchTimeout, deep.SearchTimeout)
	assert.Less(t, quick.EnrichBudget, deep.EnrichBudget)
	for _, p := range []Preset{quick, standard, deep} {
		assert.LessOrEqual(t, p.MinQueries, p.MaxQueries)
		assert.Less(t, p.EnrichBudget, p.MaxCalls)
	}
	assert.Equal(t, standard, PresetFor("turbo"))
}
