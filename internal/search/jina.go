package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/textnorm"
	"github.com/sells-group/prospect-cli/pkg/jina"
)

// maxSnippetRunes caps snippets built from result content.
const maxSnippetRunes = 400

// JinaProvider searches through Jina Search.
type JinaProvider struct {
	client jina.Client
}

// NewJinaProvider wraps a Jina client.
func NewJinaProvider(client jina.Client) *JinaProvider {
	return &JinaProvider{client: client}
}

// Name implements Provider.
func (p *JinaProvider) Name() string { return "jina" }

// Search implements Provider.
func (p *JinaProvider) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	var opts []jina.SearchOption
	if req.Limit > 0 {
		opts = append(opts, jina.WithCount(req.Limit))
	}
	if req.Country != "" {
		opts = append(opts, jina.WithCountry(req.Country))
	}
	if req.Language != "" {
		opts = append(opts, jina.WithLanguage(req.Language))
	}
	if host := siteHost(req.Site); host != "" {
		opts = append(opts, jina.WithSiteFilter(host))
	}

	resp, err := p.client.Search(ctx, req.Query, opts...)
	if err != nil {
		var se *jina.StatusError
		if errors.As(err, &se) && resilience.IsTransientHTTPStatus(se.StatusCode) {
			err = resilience.NewTransientError(err, se.StatusCode)
		}
		return &Response{
			Provider:  p.Name(),
			Duration:  time.Since(start),
			ErrorCode: resilience.Code(err),
		}, eris.Wrap(err, "search: jina")
	}

	out := &Response{OK: true, Provider: p.Name(), Duration: time.Since(start)}
	for i, r := range resp.Data {
		if req.Limit > 0 && len(out.Results) >= req.Limit {
			break
		}
		snippet := strings.TrimSpace(r.Description)
		if snippet == "" {
			snippet = textnorm.Truncate(strings.Join(strings.Fields(r.Content), " "), maxSnippetRunes)
		}
		out.Results = append(out.Results, Result{
			URL:     r.URL,
			Title:   strings.TrimSpace(r.Title),
			Snippet: snippet,
			Rank:    i + 1,
		})
	}
	return out, nil
}

// siteHost returns the host part of a site restriction ("linkedin.com/jobs"
// gives "linkedin.com").
func siteHost(site string) string {
	if i := strings.IndexByte(site, '/'); i >= 0 {
		return site[:i]
	}
	return site
}
