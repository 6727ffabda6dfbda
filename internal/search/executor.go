package search

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/plan"
	"github.com/sells-group/prospect-cli/internal/resilience"
)

// maxSamplesPerReason caps the URLs kept per rejection reason.
const maxSamplesPerReason = 3

// DefaultResultsPerQuery is the provider result limit per call.
const DefaultResultsPerQuery = 10

// Stop reasons.
const (
	StopBudget      = "budget_exhausted"
	StopTarget      = "target_reached"
	StopCircuitOpen = "circuit_open"
	StopCanceled    = "canceled"
)

// Options bound one executor run.
type Options struct {
	// MaxCalls is the requested call budget; it is clamped to [1, plan size].
	MaxCalls int
	// Timeout applies to each provider call.
	Timeout time.Duration
	// StopAfter ends the run once this many candidates passed the filter.
	// Zero disables early stop.
	StopAfter       int
	ResultsPerQuery int
	Geo             model.GeoScope
	Country         string
	Language        string
}

// Stats are the run diagnostics.
type Stats struct {
	CallsMade       int                 `json:"callsMade"`
	CallsFailed     int                 `json:"callsFailed"`
	ErrorCodes      map[string]int      `json:"errorCodes,omitempty"`
	FilteredReasons map[string]int      `json:"filteredReasons"`
	FilteredSamples map[string][]string `json:"filteredSamples"`
	QueriesUsed     []string            `json:"queriesUsed"`
	StopReason      string              `json:"stopReason"`
}

// NewStats returns empty stats.
func NewStats() Stats {
	return Stats{
		ErrorCodes:      map[string]int{},
		FilteredReasons: map[string]int{},
		FilteredSamples: map[string][]string{},
	}
}

// Reject counts a rejection and samples its URL.
func (s *Stats) Reject(reason, rawURL string) {
	s.FilteredReasons[reason]++
	if len(s.FilteredSamples[reason]) < maxSamplesPerReason {
		s.FilteredSamples[reason] = append(s.FilteredSamples[reason], rawURL)
	}
}

// AllFailed reports whether no call succeeded, either because every call made
// failed or because the circuit was open before any call could succeed.
func (s Stats) AllFailed() bool {
	if s.CallsFailed != s.CallsMade {
		return false
	}
	return s.CallsMade > 0 || s.StopReason == StopCircuitOpen
}

// Outcome is the result of an executor run.
type Outcome struct {
	Candidates []model.Candidate
	Stats      Stats
}

// Executor dispatches plan queries to a provider sequentially, in plan
// order.
type Executor struct {
	provider Provider
	limiter  *rate.Limiter
	breaker  *resilience.CircuitBreaker
}

// NewExecutor creates an Executor. A nil limiter means no rate limit; a nil
// breaker gets the default configuration.
func NewExecutor(provider Provider, limiter *rate.Limiter, breaker *resilience.CircuitBreaker) *Executor {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())
	}
	return &Executor{provider: provider, limiter: limiter, breaker: breaker}
}

// ClampCalls bounds a requested call budget to [1, planSize]. A non-positive
// request uses fallback first.
func ClampCalls(requested, fallback, planSize int) int {
	n := requested
	if n <= 0 {
		n = fallback
	}
	if n > planSize {
		n = planSize
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Run executes up to opts.MaxCalls queries of p and filters the results.
func (e *Executor) Run(ctx context.Context, p plan.Plan, filter *Filter, opts Options) Outcome {
	log := zap.L().With(zap.String("stage", "search"), zap.String("provider", e.provider.Name()))
	out := Outcome{Stats: NewStats()}
	if len(p.Queries) == 0 {
		out.Stats.StopReason = StopBudget
		return out
	}

	calls := ClampCalls(opts.MaxCalls, len(p.Queries), len(p.Queries))
	limit := opts.ResultsPerQuery
	if limit <= 0 {
		limit = DefaultResultsPerQuery
	}

	out.Stats.StopReason = StopBudget
	for qi, q := range p.Queries[:calls] {
		if ctx.Err() != nil {
			out.Stats.StopReason = StopCanceled
			break
		}
		if e.breaker.Open() {
			out.Stats.StopReason = StopCircuitOpen
			log.Warn("search: circuit open, stopping", zap.Int("calls_made", out.Stats.CallsMade))
			break
		}
		if err := e.limiter.Wait(ctx); err != nil {
			out.Stats.StopReason = StopCanceled
			break
		}

		out.Stats.CallsMade++
		out.Stats.QueriesUsed = append(out.Stats.QueriesUsed, q.Text)
		resp, err := e.call(ctx, q, limit, opts)
		if err != nil {
			code := errorCode(err)
			out.Stats.CallsFailed++
			out.Stats.ErrorCodes[code]++
			log.Warn("search: call failed",
				zap.String("query", q.Text),
				zap.String("code", code),
				zap.Error(err),
			)
			continue
		}

		for ri, r := range resp.Results {
			c, reason := filter.Check(r, q, qi, ri)
			if reason != "" {
				out.Stats.Reject(reason, r.URL)
				log.Debug("search: result rejected", zap.String("url", r.URL), zap.String("reason", reason))
				continue
			}
			c.Provider = resp.Provider
			out.Candidates = append(out.Candidates, c)
		}

		if opts.StopAfter > 0 && len(out.Candidates) >= opts.StopAfter {
			out.Stats.StopReason = StopTarget
			break
		}
	}

	log.Info("search: done",
		zap.Int("calls_made", out.Stats.CallsMade),
		zap.Int("calls_failed", out.Stats.CallsFailed),
		zap.Int("candidates", len(out.Candidates)),
		zap.String("stop", out.Stats.StopReason),
	)
	return out
}

// call runs one query under the per-call timeout and the breaker. A response
// with OK false is returned as an error.
func (e *Executor) call(ctx context.Context, q plan.Query, limit int, opts Options) (*Response, error) {
	callCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	return resilience.ExecuteVal(callCtx, e.breaker, func(ctx context.Context) (*Response, error) {
		resp, err := e.provider.Search(ctx, Request{
			Query:    q.Text,
			Limit:    limit,
			Geo:      opts.Geo,
			Country:  opts.Country,
			Language: opts.Language,
			Site:     q.Site,
			Source:   q.Family,
		})
		if err != nil {
			return nil, err
		}
		if resp == nil || !resp.OK {
			code := ""
			if resp != nil {
				code = resp.ErrorCode
			}
			return nil, &ProviderError{Code: code}
		}
		return resp, nil
	})
}

func errorCode(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Code != "" {
		return pe.Code
	}
	return resilience.Code(err)
}

// ProviderError is an OK=false provider answer.
type ProviderError struct {
	Code string
}

func (e *ProviderError) Error() string {
	if e.Code == "" {
		return "search: provider returned no results status"
	}
	return "search: provider error " + e.Code
}
