// Package prospect runs the prospecting pipeline end to end: intent, geo,
// plan, search, enrich, score, classify, dedupe and assemble.
package prospect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospect-cli/internal/classify"
	"github.com/sells-group/prospect-cli/internal/cost"
	"github.com/sells-group/prospect-cli/internal/dedupe"
	"github.com/sells-group/prospect-cli/internal/enrich"
	"github.com/sells-group/prospect-cli/internal/fetch"
	"github.com/sells-group/prospect-cli/internal/geo"
	"github.com/sells-group/prospect-cli/internal/intent"
	"github.com/sells-group/prospect-cli/internal/llm"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/plan"
	"github.com/sells-group/prospect-cli/internal/refdata"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/scoring"
	"github.com/sells-group/prospect-cli/internal/search"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/internal/textnorm"
)

// candidatesPerLead sets the early-stop point of the search stage.
const candidatesPerLead = 3

// Deps are the collaborators of a Pipeline. Only Data is required; a nil
// provider disables its stage.
type Deps struct {
	Data       *refdata.Data
	Generator  llm.Generator
	Search     search.Provider
	Fetcher    fetch.Fetcher
	Store      store.Store
	Calculator *cost.Calculator
	Limiter    *rate.Limiter
	Breaker    *resilience.CircuitBreaker
	// FetchBreakers are the per-source breakers of the fetch chain, reported
	// by BreakerStates.
	FetchBreakers *resilience.ServiceBreakers
}

// Config tunes a Pipeline.
type Config struct {
	// Classify holds thresholds and the hot-eligible allowlist; its
	// Objective is set per run.
	Classify        classify.Config
	LLMBatchSize    int
	ResultsPerQuery int
	// Defaults fill request options left unset.
	Defaults Options
}

// Pipeline runs prospecting requests. It is safe for concurrent use; every
// Run builds its own per-run state.
type Pipeline struct {
	deps Deps
	cfg  Config
}

// New creates a Pipeline.
func New(deps Deps, cfg Config) *Pipeline {
	if deps.Data == nil {
		deps.Data = refdata.MustDefault()
	}
	if deps.Calculator == nil {
		deps.Calculator = cost.NewCalculator(cost.DefaultRates())
	}
	if deps.Breaker == nil {
		deps.Breaker = resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())
	}
	if len(cfg.Classify.HotEligibleDomains) == 0 {
		cfg.Classify.HotEligibleDomains = deps.Data.HotEligibleDomains
	}
	return &Pipeline{deps: deps, cfg: cfg}
}

// BreakerStates reports the search circuit and every fetch source circuit
// seen so far, keyed "search" and "fetch.<source>".
func (p *Pipeline) BreakerStates() map[string]string {
	states := map[string]string{"search": p.deps.Breaker.State().String()}
	if p.deps.FetchBreakers != nil {
		for name, st := range p.deps.FetchBreakers.States() {
			states["fetch."+name] = st.String()
		}
	}
	return states
}

// run is the per-request state.
type run struct {
	req    Request
	preset model.Preset
	resp   *Response
	meter  *llm.Meter
	log    *zap.Logger
}

func (r *run) limit(format string, args ...any) {
	r.resp.Meta.Limitations = append(r.resp.Meta.Limitations, fmt.Sprintf(format, args...))
}

func (r *run) assume(notes ...string) {
	r.resp.Meta.Assumptions = append(r.resp.Meta.Assumptions, notes...)
}

func (r *run) track(name string, fn func()) {
	start := time.Now()
	fn()
	d := time.Since(start).Milliseconds()
	r.resp.Meta.Stages = append(r.resp.Meta.Stages, StageTiming{Name: name, DurationMS: d})
	r.log.Info("prospect: stage complete", zap.String("stage", name), zap.Int64("duration_ms", d))
}

func (r *run) generator() llm.Generator {
	if r.meter == nil {
		return nil
	}
	return r.meter
}

// priorRun is what a continue or refresh run reuses.
type priorRun struct {
	id     string
	keys   []string
	intent *model.Intent
}

// Run executes one request. The only errors are invalid requests; provider
// failures degrade the response and are reported in its meta.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Response, error) {
	req, err := req.normalize(p.cfg.Defaults)
	if err != nil {
		return nil, err
	}
	opts := req.Options
	data := p.deps.Data

	r := &run{
		req:    req,
		preset: model.PresetFor(opts.Mode),
		resp: &Response{
			Leads:  []model.Lead{},
			Proofs: []model.ProofItem{},
			Meta: Meta{
				RunID:       uuid.New().String(),
				TaskKey:     store.TaskKey(req.TaskText, opts.GeoScope, opts.Objective),
				Limitations: []string{},
				Assumptions: []string{},
				SearchDebug: SearchDebug{
					FilteredReasons:  map[string]int{},
					FilteredSamples:  map[string][]string{},
					NegativeKeywords: []string{},
				},
			},
		},
	}
	r.log = zap.L().With(zap.String("run_id", r.resp.Meta.RunID))
	if p.deps.Generator != nil {
		r.meter = llm.NewMeter(p.deps.Generator, p.deps.Calculator)
	}
	r.log.Info("prospect: starting run",
		zap.String("mode", string(opts.Mode)),
		zap.String("run_mode", string(opts.RunMode)),
		zap.Int("target", opts.TargetCount),
	)

	prior := p.loadPrior(ctx, r)

	// Intent and geo.
	var in model.Intent
	var profile geo.Profile
	r.track("intent", func() {
		hints := intent.Hints{
			GeoScope:  opts.GeoScope,
			Countries: opts.Countries,
			Objective: opts.Objective,
		}
		if prior != nil {
			hints.Prior = prior.intent
		}
		in, _ = intent.NewExtractor(r.generator(), data, r.preset.IntentTimeout).Extract(ctx, req.TaskText, hints)
		r.assume(in.AssumptionsApplied...)
		if in.Objective == "" {
			in.Objective = model.ObjectiveBuyers
		}
		profile = geo.Resolve(in, data)
		r.assume(profile.Notes...)
	})
	r.resp.Meta.Intent = in
	r.resp.Meta.SearchDebug.GeoScope = profile.Scope

	filter := search.NewFilter(data, profile, data.AllLanguages().ExplicitIntent)
	stats := search.NewStats()
	var cands []model.Candidate
	maxCalls := opts.MaxWebRequests
	if maxCalls <= 0 {
		maxCalls = r.preset.MaxCalls
	}

	switch {
	case len(req.ProvidedURLs) > 0:
		r.resp.Meta.StatusCode = model.StatusRankProvidedList
		r.assume("ranked the provided URLs instead of searching")
		for i, u := range req.ProvidedURLs {
			c, reason := filter.CheckProvided(u, i)
			if reason != "" {
				stats.Reject(reason, u)
				continue
			}
			cands = append(cands, c)
		}
		maxCalls = max(maxCalls, len(cands))
	case p.deps.Search == nil:
		r.resp.Meta.StatusCode = model.StatusNoWebSearchConfigured
		r.limit("web search is not configured; returning ICP segments instead of leads")
		return p.finish(ctx, r, in, stats, nil, prior), nil
	default:
		r.track("search", func() {
			pl := plan.Build(in, profile, data, plan.BoundsFor(opts.Mode))
			r.resp.Meta.SearchPlan.Queries = pl.Queries
			if pl.Short {
				r.limit("search plan has %d queries, fewer than the %d this mode expects", len(pl.Queries), plan.BoundsFor(opts.Mode).Min)
			}
			country, language := localeHints(in, profile)
			out := search.NewExecutor(p.deps.Search, p.deps.Limiter, p.deps.Breaker).Run(ctx, pl, filter, search.Options{
				MaxCalls:        maxCalls,
				Timeout:         r.preset.SearchTimeout,
				StopAfter:       opts.TargetCount * candidatesPerLead,
				ResultsPerQuery: p.cfg.ResultsPerQuery,
				Geo:             profile.Scope,
				Country:         country,
				Language:        language,
			})
			stats = out.Stats
			cands = out.Candidates
		})
		if stats.AllFailed() {
			r.resp.Meta.StatusCode = model.StatusSearchNotAvailable
			if stats.CallsMade == 0 {
				r.limit("web search circuit is open after earlier failures; returning ICP segments instead of leads")
			} else {
				r.limit("web search failed on every call (%s); returning ICP segments instead of leads", codeList(stats.ErrorCodes))
			}
			return p.finish(ctx, r, in, stats, nil, prior), nil
		}
		if stats.CallsFailed > 0 {
			r.limit("%d of %d search calls failed", stats.CallsFailed, stats.CallsMade)
		}
	}

	// Enrichment.
	r.track("enrich", func() {
		signals := append(append([]string(nil), data.AllLanguages().BuyingSignals...), in.BuyingSignalLexicon.All()...)
		out := enrich.New(p.deps.Fetcher, profile, textnorm.DedupeList(signals, 0, 0), enrich.Options{
			Timeout: r.preset.SearchTimeout,
		}).Enrich(ctx, cands, enrich.Budget(opts.Mode, maxCalls))
		for _, c := range out.Rejected {
			stats.Reject(model.ReasonGeoRejectedFetched, c.URL)
		}
		for _, c := range out.Unverified {
			stats.Reject(model.ReasonGeoRejected, c.URL)
		}
		cands = out.Candidates
		r.resp.Meta.Enrichment = out.Stats
	})

	// Scoring and classification.
	var scored []model.ScoredCandidate
	r.track("score", func() {
		negatives := scoring.BuildNegatives(in, cands, in.Objective, data)
		r.resp.Meta.SearchDebug.NegativeKeywords = negatives

		var llmScorer *scoring.LLMScorer
		if gen := r.generator(); gen != nil {
			llmScorer = scoring.NewLLMScorer(gen, r.preset.LLMBatchTimeout).WithBatching(p.cfg.LLMBatchSize, 0)
		}
		var sstats scoring.Stats
		scored, sstats = scoring.NewScorer(data, llmScorer).Score(ctx, scoring.Input{
			Intent:     in,
			Profile:    profile,
			Negatives:  negatives,
			Candidates: cands,
		})
		r.resp.Meta.Scoring = sstats
		if sstats.Batches.Failed > 0 {
			r.log.Warn("prospect: scoring batches fell back to heuristics",
				zap.Int("failed", sstats.Batches.Failed),
				zap.Int("batches", sstats.Batches.Batches),
			)
			r.assume(fmt.Sprintf("%d of %d scoring batches used heuristic scores only", sstats.Batches.Failed, sstats.Batches.Batches))
		}
	})
	r.track("classify", func() {
		ccfg := p.cfg.Classify
		ccfg.Objective = in.Objective
		scored = classify.New(ccfg).Apply(scored)
		for _, sc := range scored {
			if sc.LeadType == model.LeadDrop {
				stats.Reject(dropReason(sc.ClassifyRule), sc.Candidate.URL)
			}
		}
	})

	return p.finish(ctx, r, in, stats, scored, prior), nil
}

// finish dedupes, assembles and persists the response.
func (p *Pipeline) finish(ctx context.Context, r *run, in model.Intent, stats search.Stats, scored []model.ScoredCandidate, prior *priorRun) *Response {
	opts := r.req.Options
	resp := r.resp

	var shownKeys []string
	r.track("assemble", func() {
		drafts := draftLeads(scored)
		var priorKeys []string
		if prior != nil {
			priorKeys = prior.keys
		}
		inRun, dups := dedupeDrafts(dedupe.New(opts.DedupeBy, nil), drafts)
		final, priorDups := dedupeDrafts(dedupe.New(opts.DedupeBy, priorKeys), inRun)
		for _, d := range append(dups, priorDups...) {
			stats.Reject(d.Reason, d.Lead.URL)
		}
		if opts.RunMode == model.RunRefresh && prior != nil {
			diff := dedupe.Compare(prior.keys, draftKeys(inRun))
			resp.Meta.Diff = &diff
		}
		if len(final) > opts.TargetCount {
			final = final[:opts.TargetCount]
		}
		resp.Leads, resp.Proofs = attachProofs(final)
		shownKeys = draftKeys(final)
	})

	if len(resp.Leads) == 0 {
		if resp.Meta.StatusCode == "" {
			resp.Meta.StatusCode = model.StatusNoRelevantResults
			r.limit("no candidate reached the Warm threshold; returning ICP segments instead of leads")
		}
		resp.Segments = Segments(in, p.deps.Data)
	} else if resp.Meta.StatusCode == "" {
		resp.Meta.StatusCode = model.StatusOK
	}

	debug := &resp.Meta.SearchDebug
	debug.FilteredReasons = stats.FilteredReasons
	debug.FilteredSamples = stats.FilteredSamples
	debug.CallsMade = stats.CallsMade
	debug.CallsFailed = stats.CallsFailed
	debug.ErrorCodes = stats.ErrorCodes
	debug.StopReason = stats.StopReason
	resp.Meta.SearchPlan.QueriesUsed = stats.QueriesUsed
	if resp.Meta.SearchPlan.QueriesUsed == nil {
		resp.Meta.SearchPlan.QueriesUsed = []string{}
	}

	p.account(r, stats)

	storedKeys := shownKeys
	if prior != nil {
		resp.Meta.PriorRunID = prior.id
		if opts.RunMode == model.RunContinue {
			storedKeys = union(prior.keys, shownKeys)
		}
	}
	p.save(ctx, r, storedKeys)

	r.log.Info("prospect: run complete",
		zap.String("status", string(resp.Meta.StatusCode)),
		zap.Int("leads", len(resp.Leads)),
		zap.Float64("cost_usd", resp.Meta.CostUSD),
	)
	return resp
}

// account fills usage and cost.
func (p *Pipeline) account(r *run, stats search.Stats) {
	var u model.Usage
	if r.meter != nil {
		u.Add(r.meter.Usage())
	}
	e := r.resp.Meta.Enrichment
	u.SearchCalls = stats.CallsMade
	u.FetchCalls = e.Attempted - e.Skipped
	u.FetchTokens = e.Tokens
	u.Cost += p.deps.Calculator.Search(stats.CallsMade) + p.deps.Calculator.Jina(e.Tokens)
	u.Cost += float64(e.Served[fetch.FirecrawlName]) * p.deps.Calculator.FirecrawlScrape()

	r.resp.Meta.Usage = Usage{Usage: u, LLMTokens: u.InputTokens + u.OutputTokens}
	r.resp.Meta.CostUSD = u.Cost
}

// loadPrior finds the run a continue or refresh request builds on.
func (p *Pipeline) loadPrior(ctx context.Context, r *run) *priorRun {
	opts := r.req.Options
	if opts.RunMode == model.RunNew {
		return nil
	}
	if p.deps.Store == nil {
		r.limit("run mode %s needs a run store; treated as a new run", opts.RunMode)
		return nil
	}

	var (
		prev *store.Run
		err  error
	)
	if opts.PriorRunID != "" {
		prev, err = p.deps.Store.GetRun(ctx, opts.PriorRunID)
	} else {
		prev, err = p.deps.Store.LatestRun(ctx, r.resp.Meta.TaskKey)
	}
	if errors.Is(err, store.ErrNotFound) {
		r.assume("no prior run found for this task; treated as a new run")
		return nil
	}
	if err != nil {
		r.log.Warn("prospect: load prior run failed", zap.Error(err))
		r.limit("prior run could not be loaded; treated as a new run")
		return nil
	}

	pr := &priorRun{id: prev.ID, keys: prev.DedupeKeys}
	if len(prev.Response) > 0 {
		var old Response
		if err := json.Unmarshal(prev.Response, &old); err != nil {
			r.log.Warn("prospect: decode prior response failed", zap.String("prior_run_id", prev.ID), zap.Error(err))
		} else if old.Meta.Intent.Offer.ProductOrService != "" {
			pr.intent = &old.Meta.Intent
		}
	}
	return pr
}

// save persists the run. Failures are logged; a run is still returned.
func (p *Pipeline) save(ctx context.Context, r *run, keys []string) {
	if p.deps.Store == nil {
		return
	}
	reqJSON, err := json.Marshal(r.req)
	if err != nil {
		r.log.Warn("prospect: marshal request failed", zap.Error(err))
		return
	}
	respJSON, err := json.Marshal(r.resp)
	if err != nil {
		r.log.Warn("prospect: marshal response failed", zap.Error(err))
		return
	}
	err = p.deps.Store.SaveRun(ctx, &store.Run{
		ID:         r.resp.Meta.RunID,
		TaskKey:    r.resp.Meta.TaskKey,
		StatusCode: string(r.resp.Meta.StatusCode),
		Request:    reqJSON,
		Response:   respJSON,
		DedupeKeys: keys,
	})
	if err != nil {
		r.log.Warn("prospect: save run failed", zap.Error(err))
	}
}

// localeHints maps the intent and geo profile to provider locale hints.
func localeHints(in model.Intent, profile geo.Profile) (country, language string) {
	switch in.Constraints.Language {
	case textnorm.LangRU:
		language = "ru"
	case textnorm.LangEN:
		language = "en"
	}
	switch profile.Scope {
	case model.GeoCIS:
		country = "ru"
	case model.GeoCustom:
		if len(profile.TLDAllowlist) == 1 {
			country = profile.TLDAllowlist[0]
		}
	}
	return country, language
}

func dropReason(rule string) string {
	switch rule {
	case classify.RuleNonLeadSource:
		return model.ReasonSourceKind
	case classify.RuleVendorInBuyerRun:
		return model.ReasonVendorInBuyerRun
	default:
		return model.ReasonBelowThreshold
	}
}

func codeList(codes map[string]int) string {
	if len(codes) == 0 {
		return "no error code"
	}
	out := make([]string, 0, len(codes))
	for c := range codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}

// dedupeDrafts runs d over the drafts' leads and returns the kept drafts
// with their dedupe keys set.
func dedupeDrafts(d *dedupe.Deduper, drafts []leadDraft) ([]leadDraft, []dedupe.Dropped) {
	leads := make([]model.Lead, len(drafts))
	for i, dr := range drafts {
		leads[i] = dr.lead
	}
	idx, keys, dropped := d.Select(leads)
	kept := make([]leadDraft, len(idx))
	for i, j := range idx {
		kept[i] = drafts[j]
		kept[i].lead.DedupeKey = keys[i]
	}
	return kept, dropped
}

func draftKeys(drafts []leadDraft) []string {
	keys := make([]string, 0, len(drafts))
	for _, d := range drafts {
		keys = append(keys, d.lead.DedupeKey)
	}
	return keys
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, k := range append(append([]string(nil), a...), b...) {
		if _, ok := seen[k]; ok || k == "" {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
