package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospect-cli/internal/classify"
	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/cost"
	"github.com/sells-group/prospect-cli/internal/fetch"
	"github.com/sells-group/prospect-cli/internal/llm"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/prospect"
	"github.com/sells-group/prospect-cli/internal/refdata"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/search"
	"github.com/sells-group/prospect-cli/internal/store"
	anthropicpkg "github.com/sells-group/prospect-cli/pkg/anthropic"
	"github.com/sells-group/prospect-cli/pkg/firecrawl"
	"github.com/sells-group/prospect-cli/pkg/jina"
	"github.com/sells-group/prospect-cli/pkg/perplexity"
)

// breakerReset is how long a tripped search breaker stays open.
const breakerReset = 60 * time.Second

// pipelineEnv holds the store and the pipeline needed by the prospect and
// serve commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *prospect.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens and migrates the configured run store.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	st, err := store.Open(ctx, c.Store.Driver, c.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}

// initPipeline sets up the store, all API clients and the Pipeline. Callers
// should defer env.Close().
func initPipeline(ctx context.Context, c *config.Config, mode string) (*pipelineEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	data, err := loadRefdata(c.Prospect.RefdataPath)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx, c)
	if err != nil {
		return nil, err
	}

	deps := buildDeps(c, data)
	deps.Store = st

	return &pipelineEnv{
		Store:    st,
		Pipeline: prospect.New(deps, pipelineConfig(c)),
	}, nil
}

func loadRefdata(path string) (*refdata.Data, error) {
	if path == "" {
		return refdata.Default()
	}
	data, err := refdata.LoadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "load reference data")
	}
	zap.L().Info("reference data loaded", zap.String("path", path), zap.Int("version", data.Version))
	return data, nil
}

// buildDeps builds every provider the configuration enables. Disabled
// providers stay nil so the pipeline degrades instead of failing.
func buildDeps(c *config.Config, data *refdata.Data) prospect.Deps {
	breakerCfg := resilience.NewCircuitConfig(c.Search.BreakerThreshold, breakerReset)
	deps := prospect.Deps{
		Data:          data,
		Calculator:    cost.NewCalculator(pricingRates(c.Pricing)),
		Breaker:       resilience.NewCircuitBreaker(breakerCfg),
		FetchBreakers: resilience.NewServiceBreakers(breakerCfg),
		Generator:     buildGenerator(c),
	}
	if c.Search.RateLimit > 0 {
		deps.Limiter = rate.NewLimiter(rate.Limit(c.Search.RateLimit), 1)
	}

	jinaOpts := []jina.Option{jina.WithMaxAttempts(c.Jina.MaxAttempts)}
	if c.Jina.BaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithBaseURL(c.Jina.BaseURL))
	}
	if c.Jina.SearchBaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(c.Jina.SearchBaseURL))
	}
	jinaClient := jina.NewClient(c.Jina.Key, jinaOpts...)

	if c.Search.Provider == config.ProviderJina {
		deps.Search = search.NewJinaProvider(jinaClient)
	} else {
		zap.L().Warn("web search disabled; runs will return ICP segments only")
	}

	// Fetch chain: Jina primary, then Firecrawl, then a direct GET.
	var sources []fetch.Source
	if c.Jina.Key != "" {
		sources = append(sources, fetch.NewJinaSource(jinaClient))
	}
	if c.Firecrawl.Key != "" {
		var fcOpts []firecrawl.Option
		if c.Firecrawl.BaseURL != "" {
			fcOpts = append(fcOpts, firecrawl.WithBaseURL(c.Firecrawl.BaseURL))
		}
		fc := firecrawl.NewClient(c.Firecrawl.Key, fcOpts...)
		sources = append(sources, fetch.NewFirecrawlSource(fc, c.Firecrawl.TimeoutMS))
	}
	if c.Fetch.Direct {
		sources = append(sources, fetch.NewDirectSource(nil, c.Fetch.UserAgent))
	}
	if len(sources) > 0 {
		deps.Fetcher = fetch.NewChain(fetch.NewPathMatcher(c.Fetch.ExcludePaths), deps.FetchBreakers, sources...)
	}
	return deps
}

func buildGenerator(c *config.Config) llm.Generator {
	switch c.LLM.Provider {
	case config.ProviderAnthropic:
		client := anthropicpkg.NewClient(c.Anthropic.Key, c.Anthropic.BaseURL)
		return llm.NewAnthropicGenerator(client, c.Anthropic.Model)
	case config.ProviderPerplexity:
		var opts []perplexity.Option
		if c.Perplexity.Model != "" {
			opts = append(opts, perplexity.WithModel(c.Perplexity.Model))
		}
		if c.Perplexity.BaseURL != "" {
			opts = append(opts, perplexity.WithBaseURL(c.Perplexity.BaseURL))
		}
		client := perplexity.NewClient(c.Perplexity.Key, opts...)
		return llm.NewPerplexityGenerator(client, c.Perplexity.Model)
	default:
		zap.L().Warn("llm disabled; intent extraction and scoring run lexically")
		return nil
	}
}

func pipelineConfig(c *config.Config) prospect.Config {
	p := c.Prospect
	return prospect.Config{
		Classify: classify.Config{
			DropThreshold:      p.Thresholds.Drop,
			RelevanceThreshold: p.Thresholds.Relevance,
			HotThreshold:       p.Thresholds.Hot,
			HotIntentThreshold: p.Thresholds.HotIntent,
			HotEligibleDomains: p.HotEligibleDomains,
		},
		LLMBatchSize:    p.LLMBatchSize,
		ResultsPerQuery: c.Search.ResultsPerQuery,
		Defaults: prospect.Options{
			MaxWebRequests: p.MaxWebRequests,
			TargetCount:    p.TargetCount,
			GeoScope:       model.GeoScope(p.GeoScope),
			DedupeBy:       model.DedupeMode(p.DedupeBy),
			Mode:           model.Mode(p.Mode),
			Objective:      model.Objective(p.Objective),
		},
	}
}

// pricingRates converts configured pricing into calculator rates. Models
// missing from the configuration keep their built-in rates.
func pricingRates(p config.PricingConfig) cost.Rates {
	rates := cost.DefaultRates()
	for name, m := range p.Anthropic {
		rates.Anthropic[name] = cost.ModelRate{
			Input:         m.Input,
			Output:        m.Output,
			CacheWriteMul: m.CacheWriteMul,
			CacheReadMul:  m.CacheReadMul,
		}
	}
	rates.Jina = cost.JinaRate{PerMTok: p.Jina.PerMTok, PerSearch: p.Jina.PerSearch}
	rates.Perplexity = cost.PerplexityRate{PerQuery: p.Perplexity.PerQuery, PerMTok: p.Perplexity.PerMTok}
	rates.Firecrawl = cost.FirecrawlRate{PlanMonthly: p.Firecrawl.PlanMonthly, CreditsIncluded: p.Firecrawl.CreditsIncluded}
	return rates
}
