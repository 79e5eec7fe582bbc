package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/grant-seeker/pkg/firecrawl"
	"github.com/sells-group/grant-seeker/pkg/jina"
	"github.com/sells-group/grant-seeker/pkg/tavily"
)

// TavilySource reads pages through the Tavily extract endpoint.
type TavilySource struct {
	client tavily.Client
}

// NewTavilySource wraps a Tavily client as a Source.
func NewTavilySource(client tavily.Client) *TavilySource {
	return &TavilySource{client: client}
}

func (s *TavilySource) Name() string { return "tavily" }

func (s *TavilySource) Supports(url string) bool { return !IsPDFURL(url) }

func (s *TavilySource) Fetch(ctx context.Context, url string) (*Page, error) {
	resp, err := s.client.Extract(ctx, []string{url})
	if err != nil {
		return nil, err
	}
	for _, r := range resp.Results {
		if r.RawContent != "" {
			return &Page{URL: url, Content: r.RawContent}, nil
		}
	}
	if len(resp.FailedResults) > 0 {
		return nil, eris.Errorf("tavily: extract failed: %s", resp.FailedResults[0].Error)
	}
	return nil, eris.New("tavily: extract returned no content")
}

// JinaSource reads pages through the Jina reader.
type JinaSource struct {
	client jina.Client
}

// NewJinaSource wraps a Jina client as a Source.
func NewJinaSource(client jina.Client) *JinaSource {
	return &JinaSource{client: client}
}

func (s *JinaSource) Name() string { return "jina" }

// Supports returns true for every URL; the reader renders PDFs too.
func (s *JinaSource) Supports(string) bool { return true }

func (s *JinaSource) Fetch(ctx context.Context, url string) (*Page, error) {
	resp, err := s.client.Read(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp.Code != 0 && resp.Code != 200 {
		return nil, eris.Errorf("jina: reader code %d", resp.Code)
	}
	content := strings.TrimSpace(resp.Data.Content)
	if looksBlocked(content) {
		return nil, eris.New("jina: challenge page")
	}
	return &Page{URL: url, Title: resp.Data.Title, Content: content}, nil
}

// FirecrawlSource scrapes pages through Firecrawl.
type FirecrawlSource struct {
	client firecrawl.Client
}

// NewFirecrawlSource wraps a Firecrawl client as a Source.
func NewFirecrawlSource(client firecrawl.Client) *FirecrawlSource {
	return &FirecrawlSource{client: client}
}

func (s *FirecrawlSource) Name() string { return "firecrawl" }

func (s *FirecrawlSource) Supports(url string) bool { return !IsPDFURL(url) }

func (s *FirecrawlSource) Fetch(ctx context.Context, url string) (*Page, error) {
	resp, err := s.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:             url,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, eris.New("firecrawl: scrape unsuccessful")
	}
	if looksBlocked(resp.Data.Markdown) {
		return nil, eris.New("firecrawl: challenge page")
	}
	return &Page{URL: url, Title: resp.Data.Metadata.Title, Content: resp.Data.Markdown}, nil
}
