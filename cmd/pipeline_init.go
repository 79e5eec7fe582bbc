package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/grant-seeker/internal/agent"
	"github.com/sells-group/grant-seeker/internal/cache"
	"github.com/sells-group/grant-seeker/internal/config"
	"github.com/sells-group/grant-seeker/internal/cost"
	"github.com/sells-group/grant-seeker/internal/discovery"
	"github.com/sells-group/grant-seeker/internal/extract"
	"github.com/sells-group/grant-seeker/internal/filter"
	"github.com/sells-group/grant-seeker/internal/ocr"
	"github.com/sells-group/grant-seeker/internal/pipeline"
	"github.com/sells-group/grant-seeker/internal/rank"
	"github.com/sells-group/grant-seeker/internal/resilience"
	"github.com/sells-group/grant-seeker/internal/scrape"
	anthropicpkg "github.com/sells-group/grant-seeker/pkg/anthropic"
	"github.com/sells-group/grant-seeker/pkg/firecrawl"
	"github.com/sells-group/grant-seeker/pkg/google"
	"github.com/sells-group/grant-seeker/pkg/jina"
	"github.com/sells-group/grant-seeker/pkg/perplexity"
	"github.com/sells-group/grant-seeker/pkg/tavily"
)

// searchEnv holds the clients and shared state that every search run uses.
// Per-run state (usage tracking) is created by newRun.
type searchEnv struct {
	cfg           *config.Config
	cache         *cache.Service
	searchers     []discovery.Searcher
	sources       []scrape.Source
	completer     agent.Completer
	breakers      *resilience.ServiceBreakers
	searchLimiter *rate.Limiter
	fetchLimiter  *rate.Limiter
	matcher       *scrape.PathMatcher
	policy        filter.Policy
	calc          *cost.Calculator
}

// Close releases the cache backend.
func (e *searchEnv) Close() {
	if err := e.cache.Close(); err != nil {
		zap.L().Warn("close cache", zap.Error(err))
	}
}

// initSearchEnv validates cfg for mode and builds every client. Callers
// should defer env.Close().
func initSearchEnv(ctx context.Context, c *config.Config, mode string) (*searchEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	policy := filter.DefaultPolicy()
	if c.Filter.PolicyFile != "" {
		p, err := filter.LoadPolicy(c.Filter.PolicyFile)
		if err != nil {
			return nil, err
		}
		policy = p
	}

	completer, err := initCompleter(c)
	if err != nil {
		return nil, err
	}

	sources, err := initSources(c)
	if err != nil {
		return nil, err
	}

	store, err := initCache(ctx, c.Cache)
	if err != nil {
		return nil, err
	}

	env := &searchEnv{
		cfg:       c,
		cache:     store,
		searchers: initSearchers(c),
		sources:   sources,
		completer: completer,
		breakers: resilience.NewServiceBreakers(resilience.CircuitBreakerConfig{
			FailureThreshold: c.Retry.FailureThreshold,
			ResetTimeout:     time.Duration(c.Retry.ResetTimeoutSecs) * time.Second,
		}),
		searchLimiter: newLimiter(c.Search.RatePerSec),
		fetchLimiter:  newLimiter(c.Extract.FetchRatePerSec),
		matcher:       scrape.NewPathMatcher(c.Extract.ExcludeHosts, c.Extract.ExcludePaths),
		policy:        policy,
		calc:          cost.NewCalculator(c.Pricing),
	}

	zap.L().Info("search environment ready",
		zap.String("cache_driver", c.Cache.Driver),
		zap.Int("searchers", len(env.searchers)),
		zap.Int("fetch_sources", len(env.sources)),
		zap.String("llm", c.LLM.Provider),
	)
	return env, nil
}

// newRun wires a fresh Orchestrator with its own usage tracker.
func (e *searchEnv) newRun() (*pipeline.Orchestrator, *cost.Tracker) {
	tracker := cost.NewTracker(e.calc)
	llm := agent.Metered(e.completer, tracker)

	searcher := discovery.NewMultiSearcher(tracker.AddSearch, e.searchers...)
	disc := discovery.New(searcher, agent.NewTriager(llm, e.cfg.Search.TriageMaxToken),
		discovery.WithCache(e.cache),
		discovery.WithLimiter(e.searchLimiter),
		discovery.WithMaxResults(e.cfg.Search.MaxResults),
		discovery.WithTracker(tracker),
	)

	chain := scrape.NewChain(e.sources,
		scrape.WithBreakers(e.breakers),
		scrape.WithLimiter(e.fetchLimiter),
		scrape.WithPathMatcher(e.matcher),
		scrape.WithMinLength(e.cfg.Extract.MinContentLength),
		scrape.WithFetchHook(tracker.AddFetch),
	)
	coord := extract.New(chain, agent.NewExtractor(llm, e.cfg.Extract.MaxTokens),
		extract.WithCache(e.cache),
		extract.WithConcurrency(e.cfg.Extract.MaxConcurrency),
		extract.WithPreviewLength(e.cfg.Extract.PreviewLength),
		extract.WithTimeout(time.Duration(e.cfg.Extract.TimeoutSecs)*time.Second),
		extract.WithTracker(tracker),
	)

	orch := pipeline.New(disc, coord,
		pipeline.WithFilter(filter.New(filter.WithPolicy(e.policy))),
		pipeline.WithRanker(rank.New(nil)),
		pipeline.WithBroadQuery(e.cfg.Refine.BroadQuery),
		pipeline.WithTracker(tracker),
	)
	return orch, tracker
}

// queryGenerator returns a metered query generator for one run.
func (e *searchEnv) queryGenerator(tracker *cost.Tracker) pipeline.QueryGenerator {
	return agent.NewQueryGenerator(agent.Metered(e.completer, tracker))
}

func retryPolicy(c *config.Config) resilience.Policy {
	return resilience.NewPolicy(c.Retry.MaxAttempts, c.Retry.BaseBackoffMs, c.Retry.MaxBackoffMs, c.Retry.RetryableStatus)
}

func newLimiter(perSec float64) *rate.Limiter {
	if perSec <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSec), 1)
}

func initCache(ctx context.Context, c config.CacheConfig) (*cache.Service, error) {
	var (
		backend cache.Backend
		err     error
	)
	switch c.Driver {
	case "sqlite":
		backend, err = cache.NewSQLiteBackend(ctx, c.DSN)
	case "postgres":
		backend, err = cache.NewPostgresBackend(ctx, c.DSN)
	case "file", "":
		backend, err = cache.NewFileBackend(c.Dir)
	default:
		return nil, eris.Errorf("cache: unknown driver %q", c.Driver)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "init %s cache", c.Driver)
	}
	return cache.New(backend, c.TTL()), nil
}

func initCompleter(c *config.Config) (agent.Completer, error) {
	policy := retryPolicy(c)
	switch c.LLM.Provider {
	case "anthropic", "":
		opts := []anthropicpkg.Option{anthropicpkg.WithRetryPolicy(policy)}
		if c.Anthropic.BaseURL != "" {
			opts = append(opts, anthropicpkg.WithBaseURL(c.Anthropic.BaseURL))
		}
		return agent.NewAnthropicCompleter(anthropicpkg.NewClient(c.Anthropic.Key, opts...), c.Anthropic.Model), nil
	case "perplexity":
		client := perplexity.NewClient(c.Perplexity.Key,
			perplexity.WithBaseURL(c.Perplexity.BaseURL),
			perplexity.WithModel(c.Perplexity.Model),
			perplexity.WithRetryPolicy(policy),
		)
		return agent.NewPerplexityCompleter(client, c.Perplexity.Model), nil
	default:
		return nil, eris.Errorf("llm: unknown provider %q", c.LLM.Provider)
	}
}

// initSearchers returns the configured searchers that have credentials, in
// provider order.
func initSearchers(c *config.Config) []discovery.Searcher {
	policy := retryPolicy(c)
	var out []discovery.Searcher
	for _, p := range c.Search.Providers {
		switch p {
		case "tavily":
			if c.Tavily.Key != "" {
				out = append(out, discovery.NewTavilySearcher(tavily.NewClient(c.Tavily.Key,
					tavily.WithBaseURL(c.Tavily.BaseURL), tavily.WithRetryPolicy(policy))))
			}
		case "google":
			if c.Google.Key != "" && c.Google.EngineID != "" {
				out = append(out, discovery.NewGoogleSearcher(google.NewClient(c.Google.Key, c.Google.EngineID,
					google.WithBaseURL(c.Google.BaseURL), google.WithRetryPolicy(policy))))
			}
		case "jina":
			if c.Jina.Key != "" {
				out = append(out, discovery.NewJinaSearcher(newJinaClient(c, policy)))
			}
		}
	}
	return out
}

// initSources builds the fetch chain in the configured order. API-backed
// sources without a key are skipped.
func initSources(c *config.Config) ([]scrape.Source, error) {
	policy := retryPolicy(c)
	hc := &http.Client{Timeout: 30 * time.Second}

	var out []scrape.Source
	for _, name := range c.Extract.Sources {
		switch name {
		case "tavily":
			if c.Tavily.Key != "" {
				out = append(out, scrape.NewTavilySource(tavily.NewClient(c.Tavily.Key,
					tavily.WithBaseURL(c.Tavily.BaseURL), tavily.WithRetryPolicy(policy))))
			}
		case "jina":
			out = append(out, scrape.NewJinaSource(newJinaClient(c, policy)))
		case "firecrawl":
			if c.Firecrawl.Key != "" {
				out = append(out, scrape.NewFirecrawlSource(firecrawl.NewClient(c.Firecrawl.Key,
					firecrawl.WithBaseURL(c.Firecrawl.BaseURL), firecrawl.WithRetryPolicy(policy))))
			}
		case "local":
			out = append(out, scrape.NewLocalSource(hc))
		case "pdf":
			ext, err := ocr.NewExtractor(c.OCR)
			if err != nil {
				return nil, err
			}
			out = append(out, scrape.NewPDFSource(hc, ext))
		default:
			return nil, eris.Errorf("extract: unknown source %q", name)
		}
	}
	if len(out) == 0 {
		return nil, eris.New("extract: no fetch sources configured")
	}
	return out, nil
}

func newJinaClient(c *config.Config, policy resilience.Policy) jina.Client {
	opts := []jina.Option{jina.WithBaseURL(c.Jina.BaseURL), jina.WithRetryPolicy(policy)}
	if c.Jina.SearchBaseURL != "" {
		opts = append(opts, jina.WithSearchBaseURL(c.Jina.SearchBaseURL))
	}
	return jina.NewClient(c.Jina.Key, opts...)
}
