package rank

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/grant-seeker/internal/model"
)

func fixedNow() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }

func TestDedup_KeepsHigherScore(t *testing.T) {
	got := Dedup([]model.Record{
		{URL: "https://a.ca", FitScore: 40, Title: "low"},
		{URL: "https://b.ca", FitScore: 10},
		{URL: "https://a.ca", FitScore: 85, Title: "high"},
	})

	require.Len(t, got, 2)
	assert.Equal(t, 85, got[0].FitScore)
	assert.Equal(t, "high", got[0].Title)
	assert.Equal(t, "https://b.ca", got[1].URL)
}

func TestDedup_TieKeepsFirst(t *testing.T) {
	got := Dedup([]model.Record{
		{URL: "https://a.ca", FitScore: 50, Title: "first"},
		{URL: "https://a.ca", FitScore: 50, Title: "second"},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].Title)
}

func TestCompleteness(t *testing.T) {
	assert.Equal(t, 100.0, Completeness(model.Record{Amount: "$5,000", Deadline: "2099-01-01"}))
	assert.Equal(t, 50.0, Completeness(model.Record{Amount: "$5,000", Deadline: model.DefaultDeadline}))
	assert.Equal(t, 0.0, Completeness(model.Record{Amount: model.DefaultAmount}))
}

func TestFreshness(t *testing.T) {
	k := New(fixedNow)

	assert.Equal(t, 100.0, k.Freshness(model.Record{Deadline: "Rolling deadline"}))
	assert.Equal(t, 100.0, k.Freshness(model.Record{Deadline: "2099-01-01"}))
	assert.Equal(t, 0.0, k.Freshness(model.Record{Deadline: "2020-01-01"}))
	assert.Equal(t, 0.0, k.Freshness(model.Record{Deadline: "Spring 2027"}))
	assert.Equal(t, 0.0, k.Freshness(model.Record{Deadline: model.DefaultDeadline}))
}

func TestComposite(t *testing.T) {
	k := New(fixedNow)
	r := model.Record{FitScore: 50, Amount: "$1,000", Deadline: "2099-01-01"}
	// 0.6*50 + 0.2*100 + 0.2*100
	assert.InDelta(t, 70.0, k.Composite(r), 1e-9)
}

func TestFinalize(t *testing.T) {
	k := New(fixedNow)
	records := []model.Record{
		{URL: "https://a.ca", FitScore: 40, Amount: model.DefaultAmount, Deadline: model.DefaultDeadline},
		{URL: "https://b.ca", FitScore: 60, Amount: "$1,000", Deadline: "Rolling"},
		{URL: "https://c.ca", FitScore: 40, Amount: model.DefaultAmount, Deadline: model.DefaultDeadline},
		{URL: "https://a.ca", FitScore: 85, Amount: model.DefaultAmount, Deadline: model.DefaultDeadline},
	}

	got := k.Finalize(records)
	require.Len(t, got, 3)

	// b: 36+20+20=76, a: 51, c: 24.
	assert.Equal(t, "https://b.ca", got[0].URL)
	assert.Equal(t, "https://a.ca", got[1].URL)
	assert.Equal(t, 85, got[1].FitScore)
	assert.Equal(t, "https://c.ca", got[2].URL)
	for i, r := range got {
		assert.Equal(t, i+1, r.ID)
	}
}

func TestFinalize_StableOnTies(t *testing.T) {
	k := New(fixedNow)
	records := []model.Record{
		{URL: "https://x.ca", FitScore: 30},
		{URL: "https://y.ca", FitScore: 30},
		{URL: "https://z.ca", FitScore: 30},
	}

	got := k.Finalize(records)
	assert.Equal(t, []string{"https://x.ca", "https://y.ca", "https://z.ca"},
		[]string{got[0].URL, got[1].URL, got[2].URL})
}

func TestFinalize_Empty(t *testing.T) {
	assert.Empty(t, New(nil).Finalize(nil))
}
