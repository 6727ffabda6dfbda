package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/prospect-cli/internal/model"
)

// LLM and search provider names.
const (
	ProviderAnthropic  = "anthropic"
	ProviderPerplexity = "perplexity"
	ProviderJina       = "jina"
	ProviderNone       = "none"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Prospect   ProspectConfig   `yaml:"prospect" mapstructure:"prospect"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// JinaConfig holds Jina Reader and Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
	// MaxAttempts is how many times a transient Jina failure is tried.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// FirecrawlConfig holds Firecrawl API settings (fetch fallback only).
type FirecrawlConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutMS int    `yaml:"timeout_ms" mapstructure:"timeout_ms"`
}

// LLMConfig selects the text-generation provider.
type LLMConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// SearchConfig configures the web search provider.
type SearchConfig struct {
	Provider         string  `yaml:"provider" mapstructure:"provider"`
	RateLimit        float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	ResultsPerQuery  int     `yaml:"results_per_query" mapstructure:"results_per_query"`
	BreakerThreshold int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
}

// FetchConfig configures page enrichment.
type FetchConfig struct {
	// Direct adds a plain HTTP fetch as the last source in the chain.
	Direct       bool     `yaml:"direct" mapstructure:"direct"`
	UserAgent    string   `yaml:"user_agent" mapstructure:"user_agent"`
	ExcludePaths []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
}

// ThresholdsConfig holds the classification thresholds.
type ThresholdsConfig struct {
	Drop      int `yaml:"drop" mapstructure:"drop"`
	Relevance int `yaml:"relevance" mapstructure:"relevance"`
	Hot       int `yaml:"hot" mapstructure:"hot"`
	HotIntent int `yaml:"hot_intent" mapstructure:"hot_intent"`
}

// ProspectConfig holds request defaults and pipeline tuning.
type ProspectConfig struct {
	Mode               string           `yaml:"mode" mapstructure:"mode"`
	MaxWebRequests     int              `yaml:"max_web_requests" mapstructure:"max_web_requests"`
	TargetCount        int              `yaml:"target_count" mapstructure:"target_count"`
	GeoScope           string           `yaml:"geo_scope" mapstructure:"geo_scope"`
	DedupeBy           string           `yaml:"dedupe_by" mapstructure:"dedupe_by"`
	Objective          string           `yaml:"objective" mapstructure:"objective"`
	Thresholds         ThresholdsConfig `yaml:"thresholds" mapstructure:"thresholds"`
	LLMBatchSize       int              `yaml:"llm_batch_size" mapstructure:"llm_batch_size"`
	HotEligibleDomains []string         `yaml:"hot_eligible_domains" mapstructure:"hot_eligible_domains"`
	// RefdataPath replaces the embedded reference data when set.
	RefdataPath string `yaml:"refdata_path" mapstructure:"refdata_path"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	Anthropic  map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
	Jina       JinaPricing             `yaml:"jina" mapstructure:"jina"`
	Perplexity PerplexityPricing       `yaml:"perplexity" mapstructure:"perplexity"`
	Firecrawl  FirecrawlPricing        `yaml:"firecrawl" mapstructure:"firecrawl"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// JinaPricing holds Jina Reader and Search pricing.
type JinaPricing struct {
	PerMTok   float64 `yaml:"per_mtok" mapstructure:"per_mtok"`
	PerSearch float64 `yaml:"per_search" mapstructure:"per_search"`
}

// PerplexityPricing holds Perplexity pricing.
type PerplexityPricing struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
	PerMTok  float64 `yaml:"per_mtok" mapstructure:"per_mtok"`
}

// FirecrawlPricing holds Firecrawl pricing.
type FirecrawlPricing struct {
	PlanMonthly     float64 `yaml:"plan_monthly" mapstructure:"plan_monthly"`
	CreditsIncluded float64 `yaml:"credits_included" mapstructure:"credits_included"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "prospect.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("llm.provider", ProviderAnthropic)
	v.SetDefault("search.provider", ProviderJina)
	v.SetDefault("search.rate_limit", 5.0)
	v.SetDefault("search.results_per_query", 10)
	v.SetDefault("search.breaker_threshold", 3)
	v.SetDefault("fetch.direct", true)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (compatible; prospect-cli/1.0)")
	v.SetDefault("prospect.mode", string(model.ModeStandard))
	v.SetDefault("prospect.target_count", 10)
	v.SetDefault("prospect.dedupe_by", string(model.DedupeURL))
	v.SetDefault("prospect.thresholds.drop", 70)
	v.SetDefault("prospect.thresholds.relevance", 75)
	v.SetDefault("prospect.thresholds.hot", 80)
	v.SetDefault("prospect.thresholds.hot_intent", 70)
	v.SetDefault("prospect.llm_batch_size", 12)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("jina.max_attempts", 2)
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("firecrawl.timeout_ms", 20000)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("pricing.jina.per_mtok", 0.02)
	v.SetDefault("pricing.jina.per_search", 0.001)
	v.SetDefault("pricing.perplexity.per_query", 0.005)
	v.SetDefault("pricing.perplexity.per_mtok", 1.00)
	v.SetDefault("pricing.firecrawl.plan_monthly", 19.00)
	v.SetDefault("pricing.firecrawl.credits_included", 3000)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for a command mode: "prospect" and
// "serve" run the pipeline, "runs" only needs the store.
func (c *Config) Validate(mode string) error {
	var errs []string
	switch mode {
	case "prospect", "serve":
		errs = append(errs, c.validatePipeline()...)
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "runs":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}
	errs = append(errs, c.validateStore()...)

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "sqlite":
		return nil
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for postgres"}
		}
		return nil
	default:
		return []string{fmt.Sprintf("unknown store.driver %q", c.Store.Driver)}
	}
}

func (c *Config) validatePipeline() []string {
	var errs []string
	switch c.LLM.Provider {
	case ProviderAnthropic:
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required when llm.provider is anthropic")
		}
	case ProviderPerplexity:
		if c.Perplexity.Key == "" {
			errs = append(errs, "perplexity.key is required when llm.provider is perplexity")
		}
	case ProviderNone:
	default:
		errs = append(errs, fmt.Sprintf("unknown llm.provider %q", c.LLM.Provider))
	}
	switch c.Search.Provider {
	case ProviderJina:
		if c.Jina.Key == "" {
			errs = append(errs, "jina.key is required when search.provider is jina")
		}
	case ProviderNone:
	default:
		errs = append(errs, fmt.Sprintf("unknown search.provider %q", c.Search.Provider))
	}

	p := c.Prospect
	enums := []struct {
		key, value string
		parse      func(string) error
	}{
		{"prospect.mode", p.Mode, func(s string) error { _, err := model.ParseMode(s); return err }},
		{"prospect.geo_scope", p.GeoScope, func(s string) error { _, err := model.ParseGeoScope(s); return err }},
		{"prospect.dedupe_by", p.DedupeBy, func(s string) error { _, err := model.ParseDedupeMode(s); return err }},
		{"prospect.objective", p.Objective, func(s string) error { _, err := model.ParseObjective(s); return err }},
	}
	for _, e := range enums {
		if e.value == "" {
			continue
		}
		if err := e.parse(e.value); err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s %q", e.key, e.value))
		}
	}

	t := p.Thresholds
	if t.Drop > t.Relevance || t.Relevance > t.Hot {
		errs = append(errs, fmt.Sprintf("prospect.thresholds must satisfy drop <= relevance <= hot (got %d, %d, %d)", t.Drop, t.Relevance, t.Hot))
	}
	if p.TargetCount < 0 || p.MaxWebRequests < 0 {
		errs = append(errs, "prospect.target_count and prospect.max_web_requests must be >= 0")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
