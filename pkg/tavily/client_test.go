package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/grant-seeker/internal/resilience"
)

func fastRetry() Option {
	return WithRetryPolicy(resilience.Policy{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond})
}

func TestSearch_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)

		var req SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tvly-key", req.APIKey)
		assert.Equal(t, "community garden grants", req.Query)
		assert.Equal(t, 20, req.MaxResults)
		assert.Equal(t, "advanced", req.SearchDepth)

		json.NewEncoder(w).Encode(SearchResponse{
			Query: req.Query,
			Results: []SearchResult{
				{Title: "Green Fund", URL: "https://fund.ca/green", Content: "Grants for gardens", Score: 0.9},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("tvly-key", WithBaseURL(srv.URL))
	resp, err := client.Search(context.Background(), SearchRequest{Query: "community garden grants", MaxResults: 20})

	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "https://fund.ca/green", resp.Results[0].URL)
}

func TestSearch_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL), fastRetry())
	resp, err := client.Search(context.Background(), SearchRequest{Query: "q"})

	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSearch_PermanentError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"invalid key"}`))
	}))
	defer srv.Close()

	client := NewClient("bad", WithBaseURL(srv.URL), fastRetry())
	_, err := client.Search(context.Background(), SearchRequest{Query: "q"})

	require.Error(t, err)
	code, ok := resilience.StatusCode(err)
	assert.True(t, ok)
	assert.Equal(t, 401, code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearch_InvalidJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	_, err := client.Search(context.Background(), SearchRequest{Query: "q"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal search response")
}

func TestExtract_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extract", r.URL.Path)
		var req extractRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"https://fund.ca/green"}, req.URLs)

		w.Write([]byte(`{"results":[{"url":"https://fund.ca/green","raw_content":"Apply by 2099-01-01"}],"failed_results":[]}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	resp, err := client.Extract(context.Background(), []string{"https://fund.ca/green"})

	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Apply by 2099-01-01", resp.Results[0].RawContent)
}

func TestExtract_NoURLs(t *testing.T) {
	t.Parallel()

	client := NewClient("k", WithBaseURL("http://127.0.0.1:0"))
	resp, err := client.Extract(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}
