package discovery

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/grant-seeker/internal/model"
	"github.com/sells-group/grant-seeker/pkg/google"
	"github.com/sells-group/grant-seeker/pkg/jina"
	"github.com/sells-group/grant-seeker/pkg/tavily"
)

// Searcher runs a web search and returns raw hits.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error)
}

// TavilySearcher searches with Tavily's advanced depth.
type TavilySearcher struct {
	client tavily.Client
}

// NewTavilySearcher wraps a Tavily client as a Searcher.
func NewTavilySearcher(client tavily.Client) *TavilySearcher {
	return &TavilySearcher{client: client}
}

func (s *TavilySearcher) Name() string { return "tavily" }

func (s *TavilySearcher) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	resp, err := s.client.Search(ctx, tavily.SearchRequest{
		Query:       query,
		MaxResults:  maxResults,
		SearchDepth: "advanced",
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, model.SearchResult{URL: r.URL, Title: r.Title, Snippet: r.Content})
	}
	return out, nil
}

// GoogleSearcher searches with Google Custom Search. The API returns at
// most 10 hits per call.
type GoogleSearcher struct {
	client google.Client
}

// NewGoogleSearcher wraps a Google Custom Search client as a Searcher.
func NewGoogleSearcher(client google.Client) *GoogleSearcher {
	return &GoogleSearcher{client: client}
}

func (s *GoogleSearcher) Name() string { return "google" }

func (s *GoogleSearcher) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	resp, err := s.client.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	out := make([]model.SearchResult, 0, len(resp.Items))
	for _, it := range resp.Items {
		out = append(out, model.SearchResult{URL: it.Link, Title: it.Title, Snippet: it.Snippet})
	}
	return out, nil
}

// JinaSearcher searches with Jina search.
type JinaSearcher struct {
	client jina.Client
}

// NewJinaSearcher wraps a Jina client as a Searcher.
func NewJinaSearcher(client jina.Client) *JinaSearcher {
	return &JinaSearcher{client: client}
}

func (s *JinaSearcher) Name() string { return "jina" }

func (s *JinaSearcher) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	resp, err := s.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]model.SearchResult, 0, len(resp.Data))
	for _, r := range resp.Data {
		if maxResults > 0 && len(out) == maxResults {
			break
		}
		snippet := r.Description
		if snippet == "" {
			snippet = r.Content
		}
		out = append(out, model.SearchResult{URL: r.URL, Title: r.Title, Snippet: snippet})
	}
	return out, nil
}

// MultiSearcher tries searchers in order and returns the first non-empty
// result. Later searchers are fallbacks for failures and empty answers.
type MultiSearcher struct {
	searchers []Searcher
	onCall    func(provider string)
}

// NewMultiSearcher creates a MultiSearcher. onCall, when set, is invoked
// once per provider call.
func NewMultiSearcher(onCall func(provider string), searchers ...Searcher) *MultiSearcher {
	return &MultiSearcher{searchers: searchers, onCall: onCall}
}

func (m *MultiSearcher) Name() string { return "multi" }

// Search returns an error only when every searcher failed.
func (m *MultiSearcher) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	if len(m.searchers) == 0 {
		return nil, eris.New("discovery: no searchers configured")
	}

	var lastErr error
	failures := 0
	for _, s := range m.searchers {
		if m.onCall != nil {
			m.onCall(s.Name())
		}
		results, err := s.Search(ctx, query, maxResults)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			zap.L().Warn("discovery: searcher failed, trying next",
				zap.String("searcher", s.Name()),
				zap.String("query", query),
				zap.Error(err),
			)
			lastErr = err
			failures++
			continue
		}
		if len(results) > 0 {
			return results, nil
		}
		zap.L().Debug("discovery: searcher returned nothing",
			zap.String("searcher", s.Name()),
			zap.String("query", query),
		)
	}

	if failures == len(m.searchers) {
		return nil, lastErr
	}
	return nil, nil
}
