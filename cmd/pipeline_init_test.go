package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/grant-seeker/internal/config"
	"github.com/sells-group/grant-seeker/internal/cost"
	"github.com/sells-group/grant-seeker/internal/export"
	"github.com/sells-group/grant-seeker/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.Cache = config.CacheConfig{Driver: "file", Dir: t.TempDir(), TTLHours: 24}
	c.Search = config.SearchConfig{MaxResults: 20, Providers: []string{"tavily", "google", "jina"}, TriageMaxToken: 2048}
	c.Tavily.Key = "tvly"
	c.Anthropic = config.AnthropicConfig{Key: "sk-ant", Model: "claude-haiku-4-5-20251001"}
	c.LLM.Provider = "anthropic"
	c.Extract = config.ExtractConfig{
		MaxConcurrency:   3,
		PreviewLength:    12000,
		TimeoutSecs:      90,
		MinContentLength: 200,
		MaxTokens:        4096,
		Sources:          []string{"tavily", "jina", "firecrawl", "local", "pdf"},
	}
	c.Refine = config.RefineConfig{TargetCount: 5, MaxAttempts: 3}
	c.Retry = config.RetryConfig{MaxAttempts: 2, BaseBackoffMs: 1, MaxBackoffMs: 1, FailureThreshold: 3, ResetTimeoutSecs: 1}
	c.Pricing = cost.DefaultRates()
	c.OCR = config.OCRConfig{Provider: "local", PdfToTextPath: "pdftotext"}
	c.Server.Port = 8080
	return c
}

func TestInitCache_File(t *testing.T) {
	dir := t.TempDir()
	store, err := initCache(context.Background(), config.CacheConfig{Driver: "file", Dir: dir, TTLHours: 1})
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck

	store.Set(context.Background(), "search:a:5", []string{"x"})
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestInitCache_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "cache.db")
	store, err := initCache(context.Background(), config.CacheConfig{Driver: "sqlite", DSN: dsn, TTLHours: 1})
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck

	store.Set(context.Background(), "k", "v")
	var got string
	assert.True(t, store.Get(context.Background(), "k", &got))
	assert.Equal(t, "v", got)
}

func TestInitCache_UnknownDriver(t *testing.T) {
	_, err := initCache(context.Background(), config.CacheConfig{Driver: "redis"})
	assert.Error(t, err)
}

func TestInitSearchers(t *testing.T) {
	c := testConfig(t)
	assert.Len(t, initSearchers(c), 1)

	c.Google.Key, c.Google.EngineID = "g", "cx"
	c.Jina.Key = "jina"
	got := initSearchers(c)
	require.Len(t, got, 3)
	assert.Equal(t, "tavily", got[0].Name())
	assert.Equal(t, "google", got[1].Name())
	assert.Equal(t, "jina", got[2].Name())
}

func TestInitSources(t *testing.T) {
	c := testConfig(t)
	sources, err := initSources(c)
	require.NoError(t, err)

	var names []string
	for _, s := range sources {
		names = append(names, s.Name())
	}
	// firecrawl has no key and is skipped.
	assert.Equal(t, []string{"tavily", "jina", "local", "pdf"}, names)

	c.Extract.Sources = []string{"smoke-signal"}
	_, err = initSources(c)
	assert.Error(t, err)

	c.Extract.Sources = nil
	_, err = initSources(c)
	assert.Error(t, err)
}

func TestInitCompleter(t *testing.T) {
	c := testConfig(t)
	_, err := initCompleter(c)
	require.NoError(t, err)

	c.LLM.Provider = "perplexity"
	c.Perplexity = config.PerplexityConfig{Key: "pplx", Model: "sonar-pro"}
	_, err = initCompleter(c)
	require.NoError(t, err)

	c.LLM.Provider = "other"
	_, err = initCompleter(c)
	assert.Error(t, err)
}

func TestInitSearchEnv(t *testing.T) {
	c := testConfig(t)
	env, err := initSearchEnv(context.Background(), c, "search")
	require.NoError(t, err)
	defer env.Close()

	orch, tracker := env.newRun()
	assert.NotNil(t, orch)
	assert.NotNil(t, tracker)
	assert.NotNil(t, env.queryGenerator(tracker))
}

func TestInitSearchEnv_InvalidConfig(t *testing.T) {
	c := testConfig(t)
	c.Anthropic.Key = ""
	_, err := initSearchEnv(context.Background(), c, "search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
}

func TestInitSearchEnv_PolicyFile(t *testing.T) {
	c := testConfig(t)
	c.Filter.PolicyFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := initSearchEnv(context.Background(), c, "search")
	assert.Error(t, err)
}

func TestOutputFormat(t *testing.T) {
	f, err := outputFormat("", "grants.xlsx")
	require.NoError(t, err)
	assert.Equal(t, export.FormatXLSX, f)

	f, err = outputFormat("csv", "grants.xlsx")
	require.NoError(t, err)
	assert.Equal(t, export.FormatCSV, f)

	f, err = outputFormat("", "")
	require.NoError(t, err)
	assert.Equal(t, export.FormatJSON, f)

	_, err = outputFormat("html", "")
	assert.Error(t, err)
}

func TestWriteResult(t *testing.T) {
	records := []model.Record{{ID: 1, Title: "Garden Grant", URL: "https://fund.ca/g"}}

	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, "", export.FormatJSON, records))
	assert.Contains(t, buf.String(), "Garden Grant")

	path := filepath.Join(t.TempDir(), "out.csv")
	buf.Reset()
	require.NoError(t, writeResult(&buf, path, export.FormatCSV, records))
	assert.Empty(t, buf.String())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Garden Grant")
}

func TestFinishSearch_WritesPartialRecords(t *testing.T) {
	result := &model.Result{Records: []model.Record{{ID: 1, Title: "Garden Grant", URL: "https://fund.ca/g"}}}

	var buf bytes.Buffer
	err := finishSearch(&buf, "", export.FormatJSON, result, context.Canceled)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, buf.String(), "Garden Grant")
}

func TestFinishSearch_NoResult(t *testing.T) {
	var buf bytes.Buffer
	err := finishSearch(&buf, "", export.FormatJSON, nil, context.Canceled)
	require.Error(t, err)
	assert.Empty(t, buf.String())
}

func TestFinishSearch_Complete(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, finishSearch(&buf, "", export.FormatJSON, &model.Result{}, nil))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}
