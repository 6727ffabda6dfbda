package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/pkg/jina"
)

func TestJinaProvider_Search(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":200,"data":[
			{"title":" Ищем бухгалтера ","url":"https://hh.ru/vacancy/1","description":"Требуется бухгалтер на аутсорс"},
			{"title":"Тендер","url":"https://zakupki.gov.ru/x","content":"  Закупка   услуг\nбухгалтерского учета  "},
			{"title":"Extra","url":"https://example.com/3","description":"cut by limit"}
		]}`))
	}))
	defer srv.Close()

	p := NewJinaProvider(jina.NewClient("key", jina.WithSearchBaseURL(srv.URL)))
	resp, err := p.Search(context.Background(), Request{
		Query:    "ищем бухгалтера",
		Limit:    2,
		Geo:      model.GeoCIS,
		Country:  "ru",
		Language: "ru",
		Site:     "linkedin.com/jobs",
	})
	require.NoError(t, err)
	require.True(t, resp.OK)
	assert.Equal(t, "jina", resp.Provider)

	require.Len(t, resp.Results, 2)
	assert.Equal(t, Result{URL: "https://hh.ru/vacancy/1", Title: "Ищем бухгалтера", Snippet: "Требуется бухгалтер на аутсорс", Rank: 1}, resp.Results[0])
	assert.Equal(t, "Закупка услуг бухгалтерского учета", resp.Results[1].Snippet)
	assert.Equal(t, 2, resp.Results[1].Rank)

	assert.Contains(t, gotPath, "ищем")
	assert.Contains(t, gotQuery, "site=linkedin.com")
	assert.NotContains(t, gotQuery, "jobs")
	assert.Contains(t, gotQuery, "num=2")
	assert.Contains(t, gotQuery, "gl=ru")
	assert.Contains(t, gotQuery, "hl=ru")
}

func TestJinaProvider_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode string
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, wantCode: resilience.CodeRateLimited},
		{name: "unavailable", status: http.StatusServiceUnavailable, wantCode: resilience.CodeTransient},
		{name: "unauthorized", status: http.StatusUnauthorized, wantCode: resilience.CodeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			p := NewJinaProvider(jina.NewClient("key", jina.WithSearchBaseURL(srv.URL)))
			resp, err := p.Search(context.Background(), Request{Query: "q"})
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.False(t, resp.OK)
			assert.Equal(t, tt.wantCode, resp.ErrorCode)
		})
	}
}

func TestJinaProvider_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	p := NewJinaProvider(jina.NewClient("key", jina.WithSearchBaseURL(srv.URL)))
	resp, err := p.Search(context.Background(), Request{Query: "q"})
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Empty(t, resp.Results)
}

func TestSiteHost(t *testing.T) {
	assert.Equal(t, "hh.ru", siteHost("hh.ru"))
	assert.Equal(t, "linkedin.com", siteHost("linkedin.com/jobs"))
	assert.Empty(t, siteHost(""))
}
