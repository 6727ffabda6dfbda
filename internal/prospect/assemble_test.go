package prospect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/refdata"
)

func TestConfidence(t *testing.T) {
	tests := []struct {
		rel, intent int
		want        float64
	}{
		{85, 80, 0.83},
		{0, 0, 0},
		{100, 100, 1},
		{75, 0, 0.45},
		{71, 33, 0.56},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Confidence(tt.rel, tt.intent), 1e-9, "%d/%d", tt.rel, tt.intent)
	}
}

func TestCompanyName(t *testing.T) {
	tests := []struct {
		name  string
		title string
		url   string
		want  string
	}{
		{name: "legal form segment", title: "Бухгалтерия для бизнеса | ООО Ромашка", url: "https://romashka.ru", want: "ООО Ромашка"},
		{name: "legal form first", title: "Acme Inc. - Careers", url: "https://acme.com/careers", want: "Acme Inc."},
		{name: "trailing brand", title: "Тендер на аудит - Ромашка", url: "https://romashka.ru/tender", want: "Ромашка"},
		{name: "single segment", title: "Ищем бухгалтера на аутсорс", url: "https://www.b2b-center.ru/market/tender/1", want: "b2b-center.ru"},
		{name: "brand too short", title: "Вакансии | X", url: "https://hh.ru/vacancy/1", want: "hh.ru"},
		{name: "empty title", title: "", url: "https://romashka.ru", want: "romashka.ru"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompanyName(tt.title, tt.url))
		})
	}
}

func TestSegments_DiagonalWalk(t *testing.T) {
	in := model.Intent{
		Offer: model.Offer{ProductOrService: "seo"},
		ICP: model.ICP{
			Industries: []string{"retail", "logistics"},
			Roles:      []string{"cmo", "ceo", "owner"},
		},
	}
	segs := Segments(in, refdata.MustDefault())
	require.Len(t, segs, 5)

	var titles []string
	for _, s := range segs {
		titles = append(titles, s.Title)
		assert.Equal(t, model.LeadWarm, s.LeadType)
		assert.NotEmpty(t, s.WhyMatch)
	}
	assert.Equal(t, []string{
		"retail / cmo",
		"retail / ceo",
		"logistics / cmo",
		"retail / owner",
		"logistics / ceo",
	}, titles)
	assert.Equal(t, "seo retail", segs[0].Query)
}

func TestSegments_Defaults(t *testing.T) {
	segs := Segments(model.Intent{}, refdata.MustDefault())
	require.NotEmpty(t, segs)
	assert.LessOrEqual(t, len(segs), 5)
	for _, s := range segs {
		assert.NotEmpty(t, s.Industry)
		assert.NotEmpty(t, s.Role)
		assert.NotEmpty(t, s.Query)
	}
}

func scored(url string, rel, intent int, lt model.LeadType, proofs ...model.ProofItem) model.ScoredCandidate {
	return model.ScoredCandidate{
		Candidate:      model.Candidate{URL: url, Title: "Ищем бухгалтера", Proofs: proofs},
		RelevanceScore: rel,
		IntentScore:    intent,
		LeadType:       lt,
		Reason:         "matched 2/2 offer terms",
	}
}

func TestDraftLeads_OrderAndProofs(t *testing.T) {
	p := func(url, v string) model.ProofItem {
		return model.ProofItem{URL: url, SignalType: model.SignalPreview, SignalValue: v}
	}
	in := []model.ScoredCandidate{
		scored("https://a.ru/tender", 76, 20, model.LeadWarm, p("https://a.ru/tender", "a")),
		scored("https://b.ru/tender", 90, 85, model.LeadHot, p("https://b.ru/tender", "b1"), p("https://b.ru/tender", "b2")),
		scored("https://c.ru/tender", 40, 10, model.LeadDrop, p("https://c.ru/tender", "c")),
	}
	in[0].ClassifyNote = "not hot-eligible"

	drafts := draftLeads(in)
	require.Len(t, drafts, 2)
	assert.Equal(t, "https://b.ru/tender", drafts[0].lead.URL)
	assert.Equal(t, "https://a.ru/tender", drafts[1].lead.URL)
	assert.Equal(t, "matched 2/2 offer terms; not hot-eligible", drafts[1].lead.WhyMatch)
	assert.Equal(t, "a.ru", drafts[1].lead.Source)

	leads, proofs := attachProofs(drafts)
	require.Len(t, proofs, 3)
	assert.Equal(t, []int{0, 1}, leads[0].ProofRefs)
	assert.Equal(t, []int{2}, leads[1].ProofRefs)
	for _, l := range leads {
		for _, ref := range l.ProofRefs {
			assert.Equal(t, l.URL, proofs[ref].URL)
		}
	}
}

func TestDraftLeads_TiesKeepInputOrder(t *testing.T) {
	drafts := draftLeads([]model.ScoredCandidate{
		scored("https://a.ru/1", 80, 50, model.LeadWarm),
		scored("https://b.ru/2", 80, 50, model.LeadWarm),
	})
	require.Len(t, drafts, 2)
	assert.Equal(t, "https://a.ru/1", drafts[0].lead.URL)
	assert.Equal(t, "https://b.ru/2", drafts[1].lead.URL)
	assert.Empty(t, drafts[0].lead.ProofRefs)
}
