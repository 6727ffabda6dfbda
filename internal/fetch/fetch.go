// Package fetch retrieves candidate pages for enrichment through a chain of
// reader providers, falling through to the next provider when one fails or
// serves a bot-challenge page.
package fetch

import (
	"context"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Page is fetched page content.
type Page struct {
	URL   string
	Title string
	// Text is the readable content (markdown or plain text).
	Text string
	// HTML is set only by sources that see raw markup.
	HTML string
	// Blocked marks a bot-challenge or JS-only shell. Text is not usable.
	Blocked   bool
	BlockType BlockType
	// Source names the provider that served the page.
	Source string
	// Tokens is the reader-reported token count, when known.
	Tokens int
}

// Options tune a single fetch.
type Options struct {
	// Type is the candidate's source kind; sources may use it to pick a
	// rendering strategy.
	Type model.SourceKind
}

// Fetcher fetches one page.
type Fetcher interface {
	FetchPage(ctx context.Context, url string, opts Options) (*Page, error)
}

// Source is one provider in a Chain.
type Source interface {
	Name() string
	Fetch(ctx context.Context, url string, opts Options) (*Page, error)
}
