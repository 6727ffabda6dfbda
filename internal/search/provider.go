// Package search runs a query plan against a web search provider under call
// and time budgets, and filters raw results into candidates.
package search

import (
	"context"
	"time"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Request is one provider call.
type Request struct {
	Query string
	Limit int
	Geo   model.GeoScope
	// Country and Language are provider locale hints ("ru").
	Country  string
	Language string
	// Site is the query's site restriction, if any.
	Site string
	// Source is the template family that produced the query.
	Source string
}

// Result is one raw search hit.
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Rank    int    `json:"rank"`
}

// Response is a provider answer. OK is false when the provider answered but
// could not serve the query; ErrorCode then says why.
type Response struct {
	OK        bool
	Results   []Result
	Provider  string
	Duration  time.Duration
	ErrorCode string
}

// Provider is a web search backend.
type Provider interface {
	Search(ctx context.Context, req Request) (*Response, error)
	Name() string
}
