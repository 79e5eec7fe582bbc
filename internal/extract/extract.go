// Package extract turns discovered leads into grant records: it fetches each
// page, asks the record extractor for structured data, and caches the
// result per URL.
package extract

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/grant-seeker/internal/cache"
	"github.com/sells-group/grant-seeker/internal/cost"
	"github.com/sells-group/grant-seeker/internal/filter"
	"github.com/sells-group/grant-seeker/internal/model"
	"github.com/sells-group/grant-seeker/internal/relevance"
	"github.com/sells-group/grant-seeker/internal/scrape"
)

const (
	// DefaultConcurrency bounds simultaneous lead extractions.
	DefaultConcurrency = 3
	// DefaultPreviewLength is how much page text the extractor sees.
	DefaultPreviewLength = 12000
	// DefaultTimeout bounds one lead's fetch and extraction.
	DefaultTimeout = 90 * time.Second
)

// Fetcher returns the readable text of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*scrape.Page, error)
}

// RecordExtractor reads one or more grant records out of page text.
type RecordExtractor interface {
	Extract(ctx context.Context, url, content string) ([]model.Record, error)
}

// ExtractionError describes why a lead produced no record. It is carried on
// the record's Error field rather than returned.
type ExtractionError struct {
	URL    string
	Stage  string
	Reason error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Reason }

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithCache caches extracted records per URL.
func WithCache(c *cache.Service) Option {
	return func(co *Coordinator) { co.cache = c }
}

// WithConcurrency overrides DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(co *Coordinator) {
		if n > 0 {
			co.concurrency = n
		}
	}
}

// WithPreviewLength overrides DefaultPreviewLength.
func WithPreviewLength(n int) Option {
	return func(co *Coordinator) {
		if n > 0 {
			co.previewLength = n
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(co *Coordinator) {
		if d > 0 {
			co.timeout = d
		}
	}
}

// WithTracker counts cache hits on t.
func WithTracker(t *cost.Tracker) Option {
	return func(co *Coordinator) { co.tracker = t }
}

// Coordinator fans lead extraction out over a bounded worker group.
type Coordinator struct {
	fetcher       Fetcher
	extractor     RecordExtractor
	cache         *cache.Service
	tracker       *cost.Tracker
	concurrency   int
	previewLength int
	timeout       time.Duration
}

// New creates a Coordinator.
func New(fetcher Fetcher, extractor RecordExtractor, opts ...Option) *Coordinator {
	c := &Coordinator{
		fetcher:       fetcher,
		extractor:     extractor,
		concurrency:   DefaultConcurrency,
		previewLength: DefaultPreviewLength,
		timeout:       DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExtractAll returns the records for every lead, scored against query.
// A lead that cannot be fetched or parsed yields one record with Error set.
// Output order is not guaranteed.
func (c *Coordinator) ExtractAll(ctx context.Context, leads []model.Lead, query string) []model.Record {
	var (
		mu  sync.Mutex
		out []model.Record
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, lead := range leads {
		g.Go(func() error {
			records := c.extractOne(gCtx, lead, query)
			mu.Lock()
			out = append(out, records...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// extractOne runs the fetch and extraction steps for one lead.
func (c *Coordinator) extractOne(ctx context.Context, lead model.Lead, query string) []model.Record {
	log := zap.L().With(zap.String("url", lead.URL))
	key := cache.ExtractKey(lead.URL)

	var cached []model.Record
	if c.cache.Get(ctx, key, &cached) && len(cached) > 0 {
		c.tracker.AddCacheHit()
		log.Debug("extract: cache hit", zap.Int("records", len(cached)))
		relevance.Apply(cached, query)
		return cached
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	page, err := c.fetcher.Fetch(ctx, lead.URL)
	if err != nil {
		log.Warn("extract: fetch failed", zap.Error(err))
		return []model.Record{failureRecord(lead, &ExtractionError{URL: lead.URL, Stage: "fetch", Reason: err})}
	}

	content := truncate(page.Content, c.previewLength)

	records, err := c.extractor.Extract(ctx, lead.URL, content)
	if err != nil {
		log.Warn("extract: record extraction failed", zap.String("source", page.Source), zap.Error(err))
		return []model.Record{failureRecord(lead, &ExtractionError{URL: lead.URL, Stage: "parse", Reason: err})}
	}
	if len(records) == 0 {
		return []model.Record{failureRecord(lead, &ExtractionError{URL: lead.URL, Stage: "parse", Reason: errNoRecords})}
	}

	for i := range records {
		records[i].Normalize()
		if records[i].URL == "" {
			records[i].URL = lead.URL
		}
		if t, ok := filter.ParseDeadline(records[i].Deadline); ok {
			records[i].DeadlineDate = &t
		}
	}
	c.cache.Set(ctx, key, records)

	relevance.Apply(records, query)
	log.Debug("extract: records extracted",
		zap.String("source", page.Source),
		zap.Int("records", len(records)),
	)
	return records
}

var errNoRecords = eris.New("no records in page")

func failureRecord(lead model.Lead, err *ExtractionError) model.Record {
	r := model.Record{
		Title:  lead.Title,
		Funder: lead.Source,
		URL:    lead.URL,
		Error:  err.Error(),
	}
	r.Normalize()
	return r
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
