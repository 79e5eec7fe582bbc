package cost

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sells-group/grant-seeker/internal/model"
)

// Tracker accumulates provider usage for one run. A nil *Tracker ignores
// every call.
type Tracker struct {
	calc *Calculator

	searches  atomic.Int64
	fetches   atomic.Int64
	cacheHits atomic.Int64
	llmCalls  atomic.Int64
	inTokens  atomic.Int64
	outTokens atomic.Int64

	mu       sync.Mutex
	costUSD  float64
	bySource map[string]int64
}

// NewTracker creates a Tracker that prices calls with calc. A nil calc
// counts calls without pricing them.
func NewTracker(calc *Calculator) *Tracker {
	if calc == nil {
		calc = NewCalculator(Rates{})
	}
	return &Tracker{calc: calc, bySource: make(map[string]int64)}
}

// AddSearch counts one search call on provider.
func (t *Tracker) AddSearch(provider string) {
	if t == nil {
		return
	}
	t.searches.Add(1)
	t.add("search:"+provider, t.calc.Search(provider))
}

// AddFetch counts one page fetch through source.
func (t *Tracker) AddFetch(source string) {
	if t == nil {
		return
	}
	t.fetches.Add(1)
	t.add("fetch:"+source, t.calc.Fetch(source))
}

// AddCacheHit counts one cache hit.
func (t *Tracker) AddCacheHit() {
	if t == nil {
		return
	}
	t.cacheHits.Add(1)
}

// RecordLLM counts one model call. A zero costUSD is priced from the rates:
// known Claude models by token, anything else as a Perplexity query.
func (t *Tracker) RecordLLM(modelName string, inputTokens, outputTokens int64, costUSD float64) {
	if t == nil {
		return
	}
	t.llmCalls.Add(1)
	t.inTokens.Add(inputTokens)
	t.outTokens.Add(outputTokens)

	if costUSD <= 0 {
		if t.calc.KnownModel(modelName) {
			costUSD = t.calc.Claude(modelName, inputTokens, outputTokens, 0, 0)
		} else {
			costUSD = t.calc.PerplexityQuery()
		}
	}
	t.add("llm:"+modelName, costUSD)
}

func (t *Tracker) add(key string, usd float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.costUSD += usd
	t.bySource[key]++
}

// Calls returns the per-provider call counts keyed "search:<name>",
// "fetch:<name>" and "llm:<model>".
func (t *Tracker) Calls() map[string]int64 {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int64, len(t.bySource))
	for k, v := range t.bySource {
		out[k] = v
	}
	return out
}

// Snapshot returns the current totals.
func (t *Tracker) Snapshot() model.Usage {
	if t == nil {
		return model.Usage{}
	}
	t.mu.Lock()
	usd := t.costUSD
	t.mu.Unlock()
	return model.Usage{
		SearchCalls:   t.searches.Load(),
		FetchCalls:    t.fetches.Load(),
		CacheHits:     t.cacheHits.Load(),
		LLMCalls:      t.llmCalls.Load(),
		InputTokens:   t.inTokens.Load(),
		OutputTokens:  t.outTokens.Load(),
		EstimatedCost: usd,
	}
}

// Log writes the totals at info level.
func (t *Tracker) Log() {
	u := t.Snapshot()
	zap.L().Info("run usage",
		zap.Int64("search_calls", u.SearchCalls),
		zap.Int64("fetch_calls", u.FetchCalls),
		zap.Int64("cache_hits", u.CacheHits),
		zap.Int64("llm_calls", u.LLMCalls),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Float64("estimated_cost_usd", u.EstimatedCost),
	)
}
