package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/geo"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/plan"
	"github.com/sells-group/prospect-cli/internal/refdata"
)

func newTestFilter(scope model.GeoScope) *Filter {
	data := refdata.MustDefault()
	profile := geo.Resolve(model.Intent{ICP: model.ICP{GeoScope: scope}}, data)
	return NewFilter(data, profile, data.AllLanguages().ExplicitIntent)
}

func TestFilter_Reasons(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		query  plan.Query
		want   string
	}{
		{name: "relative url", result: Result{URL: "/tenders/1"}, want: model.ReasonInvalidURL},
		{name: "ftp url", result: Result{URL: "ftp://files.example.ru/a"}, want: model.ReasonInvalidURL},
		{name: "site mismatch", result: Result{URL: "https://superjob.ru/vacancy/1"}, query: plan.Query{Site: "hh.ru"}, want: model.ReasonSiteMismatch},
		{name: "site path mismatch", result: Result{URL: "https://linkedin.com/posts/1"}, query: plan.Query{Site: "linkedin.com/jobs"}, want: model.ReasonSiteMismatch},
		{name: "blocked domain", result: Result{URL: "https://ru.wikipedia.org/wiki/Бухгалтер"}, want: model.ReasonBlockedDomain},
		// A /support/ path on an otherwise allowed domain.
		{name: "docs support path", result: Result{URL: "https://romashka.ru/support/tender-faq", Title: "Тендер"}, want: model.ReasonBlockedDocsSupport},
		{name: "blocked path", result: Result{URL: "https://romashka.ru/login?next=/tenders"}, want: model.ReasonBlockedPath},
		{name: "article without intent", result: Result{URL: "https://vc.ru/money/1-buhgalteriya", Title: "Как вести бухгалтерию"}, want: model.ReasonSourceKind},
		{name: "english page outside cis", result: Result{URL: "https://acme.com/careers/accountant", Title: "Accountant", Snippet: "We are hiring an accountant for our Lisbon office to handle monthly reporting."}, want: model.ReasonGeoRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFilter(model.GeoCIS)
			_, reason := f.Check(tt.result, tt.query, 0, 0)
			assert.Equal(t, tt.want, reason)
		})
	}
}

func TestFilter_Accepts(t *testing.T) {
	f := newTestFilter(model.GeoCIS)

	c, reason := f.Check(Result{
		URL:     "https://www.B2B-Center.ru/market/tender/123/?utm_source=x",
		Title:   "Тендер: бухгалтерское обслуживание",
		Snippet: "Ищем бухгалтера на аутсорс",
	}, plan.Query{Text: "тендер бухгалтер Россия"}, 2, 5)
	require.Empty(t, reason)
	assert.Equal(t, "q2-r5", c.ID)
	assert.Equal(t, "https://b2b-center.ru/market/tender/123", c.URL)
	assert.Equal(t, model.SourceTender, c.SourceKind)
	assert.Equal(t, model.GeoAllowed, c.GeoVerdict)
	assert.Equal(t, "тендер бухгалтер Россия", c.Query)

	// Explicit intent lets a forum thread through.
	c, reason = f.Check(Result{
		URL:   "https://forumhouse.ru/threads/555",
		Title: "Ищем подрядчика на бухгалтерию",
	}, plan.Query{}, 0, 1)
	require.Empty(t, reason)
	assert.Equal(t, model.SourceForum, c.SourceKind)

	// Site restriction satisfied by a subdomain and a path prefix.
	_, reason = f.Check(Result{URL: "https://ru.linkedin.com/jobs/view/1", Title: "Бухгалтер"}, plan.Query{Site: "linkedin.com/jobs"}, 0, 2)
	assert.Empty(t, reason)
}

func TestFilter_DuplicateURL(t *testing.T) {
	f := newTestFilter(model.GeoGlobal)
	_, reason := f.Check(Result{URL: "https://hh.ru/vacancy/1?utm_source=yandex"}, plan.Query{}, 0, 0)
	require.Empty(t, reason)
	_, reason = f.Check(Result{URL: "https://hh.ru/vacancy/1?utm_campaign=spring"}, plan.Query{}, 1, 0)
	assert.Equal(t, model.ReasonDuplicateURL, reason)
}

func TestFilter_GeoUndecidedKept(t *testing.T) {
	f := newTestFilter(model.GeoCIS)
	c, reason := f.Check(Result{URL: "https://acme.com/jobs/1", Title: "Accountant"}, plan.Query{}, 0, 0)
	require.Empty(t, reason)
	assert.Equal(t, model.GeoUndecided, c.GeoVerdict)
}

func TestFilter_CheckProvided(t *testing.T) {
	f := newTestFilter(model.GeoCIS)

	c, reason := f.CheckProvided("https://vc.ru/money/1", 0)
	require.Empty(t, reason)
	assert.Equal(t, "u0", c.ID)
	assert.Equal(t, "provided", c.Provider)
	assert.Equal(t, model.SourceArticle, c.SourceKind)

	_, reason = f.CheckProvided("https://vc.ru/money/1/", 1)
	assert.Equal(t, model.ReasonDuplicateURL, reason)

	_, reason = f.CheckProvided("not a url", 2)
	assert.Equal(t, model.ReasonInvalidURL, reason)
}

func TestSiteMatches(t *testing.T) {
	assert.True(t, siteMatches("https://hh.ru/vacancy/1", "hh.ru"))
	assert.True(t, siteMatches("https://spb.hh.ru/vacancy/1", "hh.ru"))
	assert.False(t, siteMatches("https://hh.ru.evil.com/x", "hh.ru"))
	assert.True(t, siteMatches("https://linkedin.com/jobs", "linkedin.com/jobs"))
	assert.False(t, siteMatches("https://linkedin.com/jobsearch", "linkedin.com/jobs"))
}
