package cost

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_Counts(t *testing.T) {
	tr := NewTracker(NewCalculator(testRates()))

	tr.AddSearch("tavily")
	tr.AddFetch("jina")
	tr.AddFetch("local")
	tr.AddCacheHit()
	tr.RecordLLM("haiku", 1_000_000, 0, 0)
	tr.RecordLLM("sonar", 10, 5, 0)
	tr.RecordLLM("sonnet", 1, 1, 0.5)

	u := tr.Snapshot()
	assert.Equal(t, int64(1), u.SearchCalls)
	assert.Equal(t, int64(2), u.FetchCalls)
	assert.Equal(t, int64(1), u.CacheHits)
	assert.Equal(t, int64(3), u.LLMCalls)
	assert.Equal(t, int64(1_000_011), u.InputTokens)
	assert.Equal(t, int64(6), u.OutputTokens)
	// 0.02 search + 0.001 jina + 0.80 haiku + 0.005 sonar + 0.5 given.
	assert.InDelta(t, 1.326, u.EstimatedCost, 1e-9)

	calls := tr.Calls()
	assert.Equal(t, int64(1), calls["fetch:local"])
	assert.Equal(t, int64(1), calls["llm:sonar"])
}

func TestTracker_Nil(t *testing.T) {
	var tr *Tracker
	tr.AddSearch("tavily")
	tr.AddFetch("jina")
	tr.AddCacheHit()
	tr.RecordLLM("haiku", 1, 1, 0)
	tr.Log()

	assert.Zero(t, tr.Snapshot())
	assert.Nil(t, tr.Calls())
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewTracker(nil)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.AddFetch("local")
			tr.AddCacheHit()
		}()
	}
	wg.Wait()

	u := tr.Snapshot()
	assert.Equal(t, int64(50), u.FetchCalls)
	assert.Equal(t, int64(50), u.CacheHits)
	assert.Zero(t, u.EstimatedCost)
}
