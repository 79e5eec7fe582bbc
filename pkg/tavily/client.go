// Package tavily provides a client for the Tavily search and extract API.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/grant-seeker/internal/resilience"
)

// Client defines the Tavily operations.
type Client interface {
	// Search runs a web search and returns ranked results.
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	// Extract returns the raw page content for each URL.
	Extract(ctx context.Context, urls []string) (*ExtractResponse, error)
}

// SearchRequest is the body of a search call. The API key is filled in by
// the client.
type SearchRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	SearchDepth       string `json:"search_depth"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

// SearchResponse is the parsed search response.
type SearchResponse struct {
	Query   string         `json:"query"`
	Answer  string         `json:"answer,omitempty"`
	Results []SearchResult `json:"results"`
}

// SearchResult is a single search hit.
type SearchResult struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	RawContent string  `json:"raw_content,omitempty"`
}

type extractRequest struct {
	APIKey string   `json:"api_key"`
	URLs   []string `json:"urls"`
}

// ExtractResponse is the parsed extract response.
type ExtractResponse struct {
	Results       []ExtractResult `json:"results"`
	FailedResults []FailedResult  `json:"failed_results"`
}

// ExtractResult holds the content of one URL.
type ExtractResult struct {
	URL        string `json:"url"`
	RawContent string `json:"raw_content"`
}

// FailedResult describes a URL Tavily could not extract.
type FailedResult struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Option configures the Tavily client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetryPolicy sets the retry policy for every call.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) {
		c.policy = p
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	policy  resilience.Policy
}

// NewClient creates a new Tavily client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.tavily.com",
		http:    &http.Client{Timeout: 30 * time.Second},
		policy:  resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	req.APIKey = c.apiKey
	if req.SearchDepth == "" {
		req.SearchDepth = "advanced"
	}
	if req.MaxResults <= 0 {
		req.MaxResults = 5
	}

	var resp SearchResponse
	if err := c.post(ctx, "/search", "search", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) Extract(ctx context.Context, urls []string) (*ExtractResponse, error) {
	if len(urls) == 0 {
		return &ExtractResponse{}, nil
	}

	var resp ExtractResponse
	if err := c.post(ctx, "/extract", "extract", extractRequest{APIKey: c.apiKey, URLs: urls}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) post(ctx context.Context, path, op string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrapf(err, "tavily: marshal %s request", op)
	}

	body, err := resilience.DoVal(ctx, c.policy.WithLogger("tavily", op), func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
		if err != nil {
			return nil, eris.Wrapf(err, "tavily: create %s request", op)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "tavily: %s request", op)
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrapf(err, "tavily: read %s response", op)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, resilience.NewStatusError("tavily", resp.StatusCode, b)
		}
		return b, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "tavily: unmarshal %s response", op)
	}
	return nil
}
