package fetch

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/pkg/firecrawl"
)

// FirecrawlName is the Source name of FirecrawlSource; each page it serves
// costs one scrape credit.
const FirecrawlName = "firecrawl"

// FirecrawlSource scrapes pages through Firecrawl. It renders JavaScript, so
// it serves pages the reader could not.
type FirecrawlSource struct {
	client    firecrawl.Client
	timeoutMS int
}

// NewFirecrawlSource wraps a Firecrawl client. timeoutMS is the server-side
// page timeout; zero uses the service default.
func NewFirecrawlSource(client firecrawl.Client, timeoutMS int) *FirecrawlSource {
	return &FirecrawlSource{client: client, timeoutMS: timeoutMS}
}

// Name implements Source.
func (f *FirecrawlSource) Name() string { return FirecrawlName }

// Fetch implements Source.
func (f *FirecrawlSource) Fetch(ctx context.Context, targetURL string, opts Options) (*Page, error) {
	req := firecrawl.ScrapeRequest{
		URL:       targetURL,
		Formats:   []string{"markdown"},
		TimeoutMS: f.timeoutMS,
	}
	// Listings keep their surrounding blocks; for articles and posts only
	// the main body matters.
	switch opts.Type {
	case model.SourceDirectory, model.SourceTender, model.SourceJob:
	default:
		req.OnlyMainContent = true
	}

	resp, err := f.client.Scrape(ctx, req)
	if err != nil {
		var ae *firecrawl.APIError
		if errors.As(err, &ae) && resilience.IsTransientHTTPStatus(ae.StatusCode) {
			err = resilience.NewTransientError(err, ae.StatusCode)
		}
		return nil, eris.Wrap(err, "fetch: firecrawl scrape")
	}

	p := &Page{
		URL:    firstNonEmpty(resp.Data.Metadata.SourceURL, targetURL),
		Title:  strings.TrimSpace(resp.Data.Metadata.Title),
		Text:   resp.Data.Markdown,
		HTML:   resp.Data.HTML,
		Source: f.Name(),
	}
	markBlocked(p, resp.Data.Metadata.StatusCode)
	return p, nil
}
