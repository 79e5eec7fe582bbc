package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/grant-seeker/internal/resilience"
)

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithBreakers guards each source with a per-source circuit breaker.
func WithBreakers(b *resilience.ServiceBreakers) ChainOption {
	return func(c *Chain) { c.breakers = b }
}

// WithLimiter throttles source calls.
func WithLimiter(l *rate.Limiter) ChainOption {
	return func(c *Chain) { c.limiter = l }
}

// WithPathMatcher skips URLs the matcher excludes.
func WithPathMatcher(m *PathMatcher) ChainOption {
	return func(c *Chain) { c.matcher = m }
}

// WithMinLength overrides DefaultMinContentLength.
func WithMinLength(n int) ChainOption {
	return func(c *Chain) {
		if n > 0 {
			c.minLength = n
		}
	}
}

// WithFetchHook registers fn to be called with the source name after every
// source call, successful or not.
func WithFetchHook(fn func(source string)) ChainOption {
	return func(c *Chain) { c.onFetch = fn }
}

// Chain tries sources in priority order, returning the first page whose
// text is long enough to be useful.
type Chain struct {
	sources   []Source
	breakers  *resilience.ServiceBreakers
	limiter   *rate.Limiter
	matcher   *PathMatcher
	minLength int
	onFetch   func(string)
}

// NewChain creates a Chain over sources.
func NewChain(sources []Source, opts ...ChainOption) *Chain {
	c := &Chain{
		sources:   sources,
		minLength: DefaultMinContentLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sources returns the names of the configured sources in order.
func (c *Chain) Sources() []string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return names
}

// Fetch returns the first usable page for url. It returns an error wrapping
// ErrNoContent when every supporting source failed or came back short.
func (c *Chain) Fetch(ctx context.Context, url string) (*Page, error) {
	if c.matcher != nil && c.matcher.IsExcluded(url) {
		return nil, eris.Wrapf(ErrNoContent, "scrape: url excluded: %s", url)
	}

	var lastErr error
	tried := 0
	for _, s := range c.sources {
		if !s.Supports(url) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "scrape: fetch cancelled")
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "scrape: rate limit wait")
			}
		}

		tried++
		page, err := c.fetchOne(ctx, s, url)
		if c.onFetch != nil {
			c.onFetch(s.Name())
		}
		if err != nil {
			zap.L().Debug("scrape: source failed, trying next",
				zap.String("source", s.Name()),
				zap.String("url", url),
				zap.Error(err),
			)
			lastErr = err
			continue
		}

		n := len(strings.TrimSpace(page.Content))
		if n < c.minLength {
			zap.L().Debug("scrape: content too short, trying next",
				zap.String("source", s.Name()),
				zap.String("url", url),
				zap.Int("chars", n),
			)
			lastErr = eris.Errorf("scrape: %s returned %d chars", s.Name(), n)
			continue
		}

		if page.URL == "" {
			page.URL = url
		}
		page.Source = s.Name()
		return page, nil
	}

	if tried == 0 {
		return nil, eris.Wrapf(ErrNoContent, "scrape: no source supports %s", url)
	}
	return nil, eris.Wrapf(ErrNoContent, "scrape: all sources failed for %s: %v", url, lastErr)
}

func (c *Chain) fetchOne(ctx context.Context, s Source, url string) (*Page, error) {
	fetch := func(ctx context.Context) (*Page, error) {
		page, err := s.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		if page == nil {
			return nil, eris.Errorf("scrape: %s returned no page", s.Name())
		}
		return page, nil
	}
	if c.breakers == nil {
		return fetch(ctx)
	}
	return resilience.ExecuteVal(ctx, c.breakers.Get(s.Name()), fetch)
}
