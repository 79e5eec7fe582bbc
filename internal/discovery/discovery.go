// Package discovery turns a search query into a short list of promising
// funding program pages.
package discovery

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/grant-seeker/internal/cache"
	"github.com/sells-group/grant-seeker/internal/cost"
	"github.com/sells-group/grant-seeker/internal/model"
)

// DefaultMaxResults is the number of search hits requested per query.
const DefaultMaxResults = 20

// Triager picks the most promising leads out of raw search hits.
type Triager interface {
	Triage(ctx context.Context, query string, results []model.SearchResult) ([]model.Lead, error)
}

// DiscoveryError reports a search that failed after retries.
type DiscoveryError struct {
	Query string
	Err   error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery: search %q: %v", e.Query, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithCache caches raw search results.
func WithCache(c *cache.Service) Option {
	return func(d *Discoverer) { d.cache = c }
}

// WithLimiter spaces search calls.
func WithLimiter(l *rate.Limiter) Option {
	return func(d *Discoverer) { d.limiter = l }
}

// WithMaxResults overrides DefaultMaxResults.
func WithMaxResults(n int) Option {
	return func(d *Discoverer) {
		if n > 0 {
			d.maxResults = n
		}
	}
}

// WithTracker counts cache hits on t.
func WithTracker(t *cost.Tracker) Option {
	return func(d *Discoverer) { d.tracker = t }
}

// Discoverer runs the search and triage steps.
type Discoverer struct {
	searcher   Searcher
	triager    Triager
	cache      *cache.Service
	limiter    *rate.Limiter
	tracker    *cost.Tracker
	maxResults int
}

// New creates a Discoverer.
func New(searcher Searcher, triager Triager, opts ...Option) *Discoverer {
	d := &Discoverer{
		searcher:   searcher,
		triager:    triager,
		maxResults: DefaultMaxResults,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover searches for query and returns the triaged leads. A failed
// search returns a *DiscoveryError; an empty search or unusable triage
// output returns no leads and no error.
func (d *Discoverer) Discover(ctx context.Context, query string) ([]model.Lead, error) {
	query = strings.TrimSpace(query)
	log := zap.L().With(zap.String("query", query))

	results, err := d.search(ctx, query)
	if err != nil {
		return nil, &DiscoveryError{Query: query, Err: err}
	}
	if len(results) == 0 {
		log.Info("discovery: search returned no results")
		return nil, nil
	}

	leads, err := d.triager.Triage(ctx, query, results)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("discovery: triage failed, continuing with no leads", zap.Error(err))
		return nil, nil
	}

	log.Info("discovery: leads selected",
		zap.Int("results", len(results)),
		zap.Int("leads", len(leads)),
	)
	return leads, nil
}

func (d *Discoverer) search(ctx context.Context, query string) ([]model.SearchResult, error) {
	key := cache.SearchKey(query, d.maxResults)

	var cached []model.SearchResult
	if d.cache.Get(ctx, key, &cached) {
		d.tracker.AddCacheHit()
		zap.L().Debug("discovery: search cache hit", zap.String("query", query))
		return cached, nil
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	results, err := d.searcher.Search(ctx, query, d.maxResults)
	if err != nil {
		return nil, err
	}
	if len(results) > d.maxResults {
		results = results[:d.maxResults]
	}
	if len(results) > 0 {
		d.cache.Set(ctx, key, results)
	}
	return results, nil
}
