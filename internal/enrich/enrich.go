// Package enrich fetches fuller page text for a bounded subset of
// candidates, attaches proof items, and re-checks geo fit on the fetched
// text.
package enrich

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-cli/internal/fetch"
	"github.com/sells-group/prospect-cli/internal/geo"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/textnorm"
)

// DefaultConcurrency bounds parallel page fetches.
const DefaultConcurrency = 3

// maxPageRunes caps the page text kept on a candidate.
const maxPageRunes = 6000

// Budget returns the fetch budget for a run: the mode's enrichment budget,
// never more than half the search-call budget, and at least one.
func Budget(mode model.Mode, maxCalls int) int {
	return min(model.PresetFor(mode).EnrichBudget, max(1, maxCalls/2))
}

// Options configure an Enricher.
type Options struct {
	Concurrency int
	// Timeout applies to each page fetch.
	Timeout time.Duration
}

// Stats summarize an enrichment pass.
type Stats struct {
	Attempted   int `json:"attempted"`
	Fetched     int `json:"fetched"`
	Failed      int `json:"failed"`
	Blocked     int `json:"blocked"`
	Skipped     int `json:"skipped"`
	GeoRejected int `json:"geoRejected"`
	Tokens      int `json:"tokens"`

	// GeoUnverified counts custom-scope candidates dropped because nothing
	// confirmed their country.
	GeoUnverified int `json:"geoUnverified"`
	// Served counts pages returned per fetch source, blocked ones included.
	Served map[string]int `json:"served,omitempty"`
}

// Outcome is the result of Enrich. Candidates keep their input order.
type Outcome struct {
	Candidates []model.Candidate
	// Rejected are candidates dropped by the strict geo re-check.
	Rejected []model.Candidate
	// Unverified are custom-scope candidates still undecided after
	// enrichment whose held text has no country marker.
	Unverified []model.Candidate
	Stats      Stats
}

// Enricher attaches proofs and page text to candidates.
type Enricher struct {
	fetcher fetch.Fetcher
	profile geo.Profile
	signals []string
	opts    Options
}

// New creates an Enricher. A nil fetcher only attaches preview proofs.
// signals are the buying-signal phrases looked for in fetched text.
func New(fetcher fetch.Fetcher, profile geo.Profile, signals []string, opts Options) *Enricher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Enricher{fetcher: fetcher, profile: profile, signals: signals, opts: opts}
}

type fetchResult struct {
	page *fetch.Page
	err  error
}

// Enrich fetches up to budget candidates, geo-undecided ones first. Fetch
// failures keep the candidate with its preview proof.
func (e *Enricher) Enrich(ctx context.Context, cands []model.Candidate, budget int) Outcome {
	log := zap.L().With(zap.String("stage", "enrich"))

	out := make([]model.Candidate, len(cands))
	for i, c := range cands {
		c.Proofs = append(c.Proofs[:len(c.Proofs):len(c.Proofs)], PreviewProof(c))
		out[i] = c
	}

	var selected []int
	if e.fetcher != nil {
		selected = selectForFetch(out, budget)
	}
	results := make([]fetchResult, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for k, idx := range selected {
		c := out[idx]
		g.Go(func() error {
			fctx := gctx
			if e.opts.Timeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(gctx, e.opts.Timeout)
				defer cancel()
			}
			page, err := e.fetcher.FetchPage(fctx, c.URL, fetch.Options{Type: c.SourceKind})
			results[k] = fetchResult{page: page, err: err}
			return nil
		})
	}
	_ = g.Wait()

	stats := Stats{Attempted: len(selected)}
	drop := make(map[int]bool)
	for k, idx := range selected {
		r := results[k]
		c := &out[idx]
		if r.err == nil && r.page != nil && r.page.Source != "" {
			if stats.Served == nil {
				stats.Served = make(map[string]int)
			}
			stats.Served[r.page.Source]++
		}
		switch {
		case errors.Is(r.err, fetch.ErrSkipped):
			stats.Skipped++
			continue
		case r.err != nil:
			stats.Failed++
			log.Debug("enrich: fetch failed, keeping preview", zap.String("url", c.URL), zap.Error(r.err))
			continue
		case r.page == nil:
			stats.Failed++
			continue
		case r.page.Blocked:
			stats.Blocked++
			log.Debug("enrich: page blocked, keeping preview",
				zap.String("url", c.URL),
				zap.String("block", string(r.page.BlockType)),
			)
			continue
		}

		stats.Fetched++
		stats.Tokens += r.page.Tokens
		c.PageText = textnorm.Truncate(r.page.Text, maxPageRunes)
		c.Fetched = true
		c.Proofs = append(c.Proofs, PageProofs(*c, c.PageText, e.signals)...)

		fit := e.profile.Fit(c.URL, c.Text(), true)
		c.GeoVerdict = fit.Verdict
		if fit.Verdict == model.GeoRejected {
			drop[idx] = true
			stats.GeoRejected++
		}
	}

	// A custom scope admits only pages that match a marker.
	unverified := make(map[int]bool)
	if e.profile.Scope == model.GeoCustom {
		for i := range out {
			c := &out[i]
			if drop[i] || c.GeoVerdict != model.GeoUndecided {
				continue
			}
			fit := e.profile.Fit(c.URL, c.Text(), true)
			c.GeoVerdict = fit.Verdict
			if fit.Verdict == model.GeoRejected {
				unverified[i] = true
				stats.GeoUnverified++
			}
		}
	}

	res := Outcome{Stats: stats, Candidates: make([]model.Candidate, 0, len(out))}
	for i, c := range out {
		switch {
		case drop[i]:
			res.Rejected = append(res.Rejected, c)
		case unverified[i]:
			res.Unverified = append(res.Unverified, c)
		default:
			res.Candidates = append(res.Candidates, c)
		}
	}

	log.Info("enrich: done",
		zap.Int("candidates", len(cands)),
		zap.Int("attempted", stats.Attempted),
		zap.Int("fetched", stats.Fetched),
		zap.Int("failed", stats.Failed),
		zap.Int("blocked", stats.Blocked),
		zap.Int("geo_rejected", stats.GeoRejected),
		zap.Int("geo_unverified", stats.GeoUnverified),
	)
	return res
}

// selectForFetch picks up to budget candidate indexes, geo-undecided first,
// each group in input order.
func selectForFetch(cands []model.Candidate, budget int) []int {
	if budget <= 0 {
		return nil
	}
	sel := make([]int, 0, min(budget, len(cands)))
	for pass := 0; pass < 2 && len(sel) < budget; pass++ {
		for i, c := range cands {
			if len(sel) >= budget {
				break
			}
			undecided := c.GeoVerdict == model.GeoUndecided
			if (pass == 0) == undecided {
				sel = append(sel, i)
			}
		}
	}
	return sel
}
