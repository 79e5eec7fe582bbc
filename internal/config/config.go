// Package config loads grant-seeker settings from config.yaml and GRANTS_*
// environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/grant-seeker/internal/cost"
)

// Config holds the full application configuration.
type Config struct {
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Tavily     TavilyConfig     `yaml:"tavily" mapstructure:"tavily"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Filter     FilterConfig     `yaml:"filter" mapstructure:"filter"`
	Refine     RefineConfig     `yaml:"refine" mapstructure:"refine"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Pricing    cost.Rates       `yaml:"pricing" mapstructure:"pricing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	OCR        OCRConfig        `yaml:"ocr" mapstructure:"ocr"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	Driver   string `yaml:"driver" mapstructure:"driver"`
	Dir      string `yaml:"dir" mapstructure:"dir"`
	DSN      string `yaml:"dsn" mapstructure:"dsn"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// TTL returns the entry lifetime. Zero disables caching.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// SearchConfig configures lead discovery.
type SearchConfig struct {
	MaxResults     int      `yaml:"max_results" mapstructure:"max_results"`
	Providers      []string `yaml:"providers" mapstructure:"providers"`
	RatePerSec     float64  `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TriageMaxToken int64    `yaml:"triage_max_tokens" mapstructure:"triage_max_tokens"`
}

// TavilyConfig holds Tavily API settings.
type TavilyConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GoogleConfig holds Google Custom Search settings.
type GoogleConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	EngineID string `yaml:"engine_id" mapstructure:"engine_id"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
}

// JinaConfig holds Jina AI reader and search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// FirecrawlConfig holds Firecrawl API settings (fetch fallback only).
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
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

// LLMConfig picks the model provider behind triage, extraction and query
// generation.
type LLMConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// ExtractConfig configures the extraction fan-out and fetch chain.
type ExtractConfig struct {
	MaxConcurrency   int      `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	PreviewLength    int      `yaml:"preview_length" mapstructure:"preview_length"`
	TimeoutSecs      int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MinContentLength int      `yaml:"min_content_length" mapstructure:"min_content_length"`
	MaxTokens        int64    `yaml:"max_tokens" mapstructure:"max_tokens"`
	Sources          []string `yaml:"sources" mapstructure:"sources"`
	FetchRatePerSec  float64  `yaml:"fetch_rate_per_sec" mapstructure:"fetch_rate_per_sec"`
	ExcludeHosts     []string `yaml:"exclude_hosts" mapstructure:"exclude_hosts"`
	ExcludePaths     []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
}

// FilterConfig configures the eligibility filter.
type FilterConfig struct {
	PolicyFile string `yaml:"policy_file" mapstructure:"policy_file"`
}

// RefineConfig configures the query refinement loop.
type RefineConfig struct {
	TargetCount int    `yaml:"target_count" mapstructure:"target_count"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	BroadQuery  string `yaml:"broad_query" mapstructure:"broad_query"`
}

// RetryConfig configures provider retries and fetch circuit breakers.
type RetryConfig struct {
	MaxAttempts      int   `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseBackoffMs    int   `yaml:"base_backoff_ms" mapstructure:"base_backoff_ms"`
	MaxBackoffMs     int   `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	RetryableStatus  []int `yaml:"retryable_status" mapstructure:"retryable_status"`
	FailureThreshold int   `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int   `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// OCRConfig configures PDF text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RequestTimeout int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("GRANTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	// Keys without a default are invisible to AutomaticEnv on Unmarshal.
	for _, key := range []string{
		"cache.dsn", "tavily.key", "google.key", "google.engine_id", "jina.key",
		"firecrawl.key", "anthropic.key", "anthropic.base_url", "perplexity.key",
		"filter.policy_file",
	} {
		v.SetDefault(key, "")
	}

	v.SetDefault("cache.driver", "file")
	v.SetDefault("cache.dir", ".cache")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("search.max_results", 20)
	v.SetDefault("search.providers", []string{"tavily", "google", "jina"})
	v.SetDefault("search.rate_per_sec", 2.0)
	v.SetDefault("search.triage_max_tokens", 2048)
	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("google.base_url", "https://www.googleapis.com/customsearch/v1")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("extract.max_concurrency", 3)
	v.SetDefault("extract.preview_length", 12000)
	v.SetDefault("extract.timeout_secs", 90)
	v.SetDefault("extract.min_content_length", 200)
	v.SetDefault("extract.max_tokens", 4096)
	v.SetDefault("extract.sources", []string{"tavily", "jina", "firecrawl", "local", "pdf"})
	v.SetDefault("extract.fetch_rate_per_sec", 5.0)
	v.SetDefault("refine.target_count", 5)
	v.SetDefault("refine.max_attempts", 3)
	v.SetDefault("refine.broad_query", "small business grants")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 10000)
	v.SetDefault("retry.retryable_status", []int{429, 500, 502, 503, 504})
	v.SetDefault("retry.failure_threshold", 5)
	v.SetDefault("retry.reset_timeout_secs", 60)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_secs", 300)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")

	rates := cost.DefaultRates()
	for model, r := range rates.Anthropic {
		key := "pricing.anthropic." + model
		v.SetDefault(key+".input", r.Input)
		v.SetDefault(key+".output", r.Output)
		v.SetDefault(key+".cache_write_mul", r.CacheWriteMul)
		v.SetDefault(key+".cache_read_mul", r.CacheReadMul)
	}
	v.SetDefault("pricing.tavily.per_credit", rates.Tavily.PerCredit)
	v.SetDefault("pricing.google.per_call", rates.Google.PerCall)
	v.SetDefault("pricing.jina.per_call", rates.Jina.PerCall)
	v.SetDefault("pricing.perplexity.per_call", rates.Perplexity.PerCall)
	v.SetDefault("pricing.firecrawl.plan_monthly", rates.Firecrawl.PlanMonthly)
	v.SetDefault("pricing.firecrawl.credits_included", rates.Firecrawl.CreditsIncluded)
}

// Validate checks the settings a command needs. Mode is "search", "query",
// "cache" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "search", "serve":
		errs = append(errs, c.validateProviders()...)
		errs = append(errs, c.validateCache()...)
		if c.Search.MaxResults < 1 || c.Search.MaxResults > 100 {
			errs = append(errs, "search.max_results must be between 1 and 100")
		}
		if c.Extract.MaxConcurrency < 1 || c.Extract.MaxConcurrency > 20 {
			errs = append(errs, "extract.max_concurrency must be between 1 and 20")
		}
		if c.Extract.PreviewLength < 1 {
			errs = append(errs, "extract.preview_length must be > 0")
		}
		if c.Refine.TargetCount < 1 {
			errs = append(errs, "refine.target_count must be > 0")
		}
		if c.Refine.MaxAttempts < 1 || c.Refine.MaxAttempts > 5 {
			errs = append(errs, "refine.max_attempts must be between 1 and 5")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "query":
		errs = append(errs, c.validateLLM()...)
	case "cache":
		errs = append(errs, c.validateCache()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateProviders() []string {
	var errs []string
	var searchers int
	for _, p := range c.Search.Providers {
		switch p {
		case "tavily":
			if c.Tavily.Key != "" {
				searchers++
			}
		case "google":
			if c.Google.Key != "" && c.Google.EngineID != "" {
				searchers++
			}
		case "jina":
			if c.Jina.Key != "" {
				searchers++
			}
		default:
			errs = append(errs, fmt.Sprintf("search.providers: unknown provider %q", p))
		}
	}
	if searchers == 0 {
		errs = append(errs, "at least one search provider key is required (tavily.key, google.key+engine_id, jina.key)")
	}
	return append(errs, c.validateLLM()...)
}

func (c *Config) validateLLM() []string {
	switch c.LLM.Provider {
	case "anthropic", "":
		if c.Anthropic.Key == "" {
			return []string{"anthropic.key is required"}
		}
	case "perplexity":
		if c.Perplexity.Key == "" {
			return []string{"perplexity.key is required"}
		}
	default:
		return []string{fmt.Sprintf("llm.provider: unknown provider %q", c.LLM.Provider)}
	}
	return nil
}

func (c *Config) validateCache() []string {
	switch c.Cache.Driver {
	case "file", "":
		return nil
	case "sqlite", "postgres":
		if c.Cache.DSN == "" {
			return []string{"cache.dsn is required for driver " + c.Cache.Driver}
		}
		return nil
	default:
		return []string{fmt.Sprintf("cache.driver: unknown driver %q", c.Cache.Driver)}
	}
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
