package jina

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
	return WithRetryPolicy(resilience.Policy{MaxAttempts: 2, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond})
}

func TestRead_Success(t *testing.T) {
	t.Parallel()

	want := ReadResponse{
		Code: 200,
		Data: ReadData{
			Title:   "Community Garden Fund",
			URL:     "https://fund.ca/garden",
			Content: "# Community Garden Fund\n\nUp to $10,000.",
			Usage:   ReadUsage{Tokens: 812},
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "markdown", r.Header.Get("X-Return-Format"))
		assert.Equal(t, "/https://fund.ca/garden", r.URL.Path)
		json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	got, err := client.Read(context.Background(), "https://fund.ca/garden")

	require.NoError(t, err)
	assert.Equal(t, want.Data.Content, got.Data.Content)
	assert.Equal(t, 812, got.Data.Usage.Tokens)
}

func TestRead_RateLimitedExhausts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limit exceeded"}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), fastRetry())
	_, err := client.Read(context.Background(), "https://fund.ca")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Equal(t, int32(2), calls.Load())
}

func TestRead_NotFoundNoRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), fastRetry())
	_, err := client.Read(context.Background(), "https://fund.ca")

	require.Error(t, err)
	code, _ := resilience.StatusCode(err)
	assert.Equal(t, 404, code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearch_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/youth employment grants", r.URL.Path)
		w.Write([]byte(`{"code":200,"data":[{"title":"Youth Fund","url":"https://y.ca","description":"Wage subsidy"}]}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithSearchBaseURL(srv.URL))
	resp, err := client.Search(context.Background(), "youth employment grants")

	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "https://y.ca", resp.Data[0].URL)
}

func TestSearch_NoResults422(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewClient("k", WithSearchBaseURL(srv.URL))
	resp, err := client.Search(context.Background(), "nothing")

	require.NoError(t, err)
	assert.Empty(t, resp.Data)
	assert.Equal(t, 422, resp.Code)
}
