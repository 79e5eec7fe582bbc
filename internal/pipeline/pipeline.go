// Package pipeline runs the iterative grant search: it tries successive
// query variants through discovery, extraction and filtering until enough
// unique records are found or the attempt budget runs out.
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/grant-seeker/internal/cost"
	"github.com/sells-group/grant-seeker/internal/discovery"
	"github.com/sells-group/grant-seeker/internal/filter"
	"github.com/sells-group/grant-seeker/internal/model"
	"github.com/sells-group/grant-seeker/internal/rank"
)

const (
	// DefaultTargetCount is the number of unique records that ends the loop.
	DefaultTargetCount = 5
	// DefaultMaxAttempts bounds the number of query variants tried.
	DefaultMaxAttempts = 3
)

// State is a step of the refinement loop.
type State string

const (
	StateSearching  State = "searching"
	StateExtracting State = "extracting"
	StateFiltering  State = "filtering"
	StateEvaluating State = "evaluating"
	StateDone       State = "done"
)

// Discoverer finds candidate leads for a query.
type Discoverer interface {
	Discover(ctx context.Context, query string) ([]model.Lead, error)
}

// Extractor turns leads into records scored against query.
type Extractor interface {
	ExtractAll(ctx context.Context, leads []model.Lead, query string) []model.Record
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFilter overrides the default record filter.
func WithFilter(f *filter.Filter) Option {
	return func(o *Orchestrator) { o.filter = f }
}

// WithRanker overrides the default ranker.
func WithRanker(r *rank.Ranker) Option {
	return func(o *Orchestrator) { o.ranker = r }
}

// WithBroadQuery overrides DefaultBroadQuery.
func WithBroadQuery(q string) Option {
	return func(o *Orchestrator) {
		if q != "" {
			o.broadQuery = q
		}
	}
}

// WithTracker reports the tracker's usage on each Result.
func WithTracker(t *cost.Tracker) Option {
	return func(o *Orchestrator) { o.tracker = t }
}

// WithClock overrides time.Now for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// RunOption configures a single Run.
type RunOption func(*runConfig)

type runConfig struct {
	filters model.Filters
}

// WithFilters applies the caller's own criteria on top of the built-in
// filter and adds their keywords to the second query variant.
func WithFilters(f model.Filters) RunOption {
	return func(c *runConfig) { c.filters = f }
}

// Orchestrator owns the refinement loop. Its collaborators are injected
// once and shared by every Run.
type Orchestrator struct {
	discoverer Discoverer
	extractor  Extractor
	filter     *filter.Filter
	ranker     *rank.Ranker
	tracker    *cost.Tracker
	broadQuery string
	now        func() time.Time
}

// New creates an Orchestrator.
func New(d Discoverer, e Extractor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		discoverer: d,
		extractor:  e,
		broadQuery: DefaultBroadQuery,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.filter == nil {
		o.filter = filter.New(filter.WithClock(o.now))
	}
	if o.ranker == nil {
		o.ranker = rank.New(o.now)
	}
	return o
}

// Run searches for query until targetCount unique records pass the filters,
// maxAttempts variants have been tried, or the variants run out. Provider
// failures only end the attempt they occur in; the returned error is
// non-nil only when ctx is cancelled, in which case the records accepted
// by earlier attempts are still returned ranked.
func (o *Orchestrator) Run(ctx context.Context, query string, targetCount, maxAttempts int, opts ...RunOption) (*model.Result, error) {
	var rc runConfig
	for _, opt := range opts {
		opt(&rc)
	}
	if targetCount <= 0 {
		targetCount = DefaultTargetCount
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	log := zap.L().With(zap.String("query", query))
	log.Info("pipeline: starting search",
		zap.Int("target", targetCount),
		zap.Int("max_attempts", maxAttempts),
	)

	result := &model.Result{Query: query, StartedAt: o.now()}
	seenURLs := make(map[string]bool)
	tried := make(map[string]bool)
	var found []model.Record
	var runErr error

	for _, variant := range Variants(query, rc.filters, o.broadQuery) {
		if len(result.Attempts) >= maxAttempts || len(found) >= targetCount {
			break
		}
		key := variantKey(variant)
		if key == "" || tried[key] {
			log.Debug("pipeline: skipping repeated variant", zap.String("variant", variant))
			continue
		}
		tried[key] = true

		attempt, err := o.attempt(ctx, len(result.Attempts)+1, variant, query, rc.filters, seenURLs)
		if err != nil {
			log.Warn("pipeline: search cancelled, returning partial results",
				zap.Int("attempt", attempt.Number),
				zap.Int("total", len(found)),
				zap.Error(err),
			)
			runErr = err
			break
		}
		found = append(found, attempt.NewRecords...)
		result.Attempts = append(result.Attempts, attempt)

		log.Info("pipeline: attempt complete",
			zap.Int("attempt", attempt.Number),
			zap.String("variant", variant),
			zap.Int("leads", attempt.Leads),
			zap.Int("new_records", attempt.NewCount),
			zap.Int("total", len(found)),
		)
		transition(log, StateEvaluating)
	}

	transition(log, StateDone)
	result.Records = o.ranker.Finalize(found)
	result.CompletedAt = o.now()
	if o.tracker != nil {
		result.Usage = o.tracker.Snapshot()
		o.tracker.Log()
	}

	log.Info("pipeline: search complete",
		zap.Int("attempts", len(result.Attempts)),
		zap.Int("records", len(result.Records)),
		zap.Duration("elapsed", result.CompletedAt.Sub(result.StartedAt)),
	)
	return result, runErr
}

// attempt runs one variant through discovery, extraction and filtering and
// returns the records whose URLs were not seen by an earlier attempt.
func (o *Orchestrator) attempt(
	ctx context.Context,
	number int,
	variant, query string,
	filters model.Filters,
	seenURLs map[string]bool,
) (model.SearchAttempt, error) {
	log := zap.L().With(zap.Int("attempt", number), zap.String("variant", variant))
	a := model.SearchAttempt{Number: number, Query: variant}

	transition(log, StateSearching)
	leads, err := o.discoverer.Discover(ctx, variant)
	if ctx.Err() != nil {
		return a, ctx.Err()
	}
	if err != nil {
		var de *discovery.DiscoveryError
		if errors.As(err, &de) {
			log.Warn("pipeline: discovery failed, moving to next variant", zap.Error(err))
		} else {
			log.Warn("pipeline: discovery error", zap.Error(err))
		}
		a.Err = err.Error()
		return a, nil
	}
	a.Leads = len(leads)
	if len(leads) == 0 {
		return a, nil
	}

	transition(log, StateExtracting)
	records := o.extractor.ExtractAll(ctx, leads, query)
	if ctx.Err() != nil {
		return a, ctx.Err()
	}

	transition(log, StateFiltering)
	records = o.filter.Apply(records)
	if !filters.Empty() {
		records = filter.ApplyUser(records, filters)
	}

	for _, r := range rank.Dedup(records) {
		if seenURLs[r.URL] {
			continue
		}
		seenURLs[r.URL] = true
		a.NewRecords = append(a.NewRecords, r)
	}
	a.NewCount = len(a.NewRecords)
	return a, nil
}

func transition(log *zap.Logger, s State) {
	log.Debug("pipeline: state", zap.String("state", string(s)))
}
