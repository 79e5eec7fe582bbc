// Package rank deduplicates grant records and orders them for display.
package rank

import (
	"sort"
	"time"

	"github.com/sells-group/grant-seeker/internal/filter"
	"github.com/sells-group/grant-seeker/internal/model"
)

const (
	fitWeight          = 0.6
	completenessWeight = 0.2
	freshnessWeight    = 0.2
)

// Ranker orders records by composite score.
type Ranker struct {
	now func() time.Time
}

// New creates a Ranker. A nil now uses time.Now.
func New(now func() time.Time) *Ranker {
	if now == nil {
		now = time.Now
	}
	return &Ranker{now: now}
}

// Dedup keeps one record per URL: the one with the higher fit score, or the
// first seen on a tie. The survivor takes the position of the first
// occurrence.
func Dedup(records []model.Record) []model.Record {
	index := make(map[string]int, len(records))
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if i, ok := index[r.URL]; ok {
			if r.FitScore > out[i].FitScore {
				out[i] = r
			}
			continue
		}
		index[r.URL] = len(out)
		out = append(out, r)
	}
	return out
}

// Completeness awards 50 points each for a stated amount and deadline.
func Completeness(r model.Record) float64 {
	score := 0.0
	if r.Amount != "" && r.Amount != model.DefaultAmount {
		score += 50
	}
	if r.Deadline != "" && r.Deadline != model.DefaultDeadline {
		score += 50
	}
	return score
}

// Freshness is 100 for rolling intake or a readable deadline that has not
// passed, else 0.
func (k *Ranker) Freshness(r model.Record) float64 {
	if filter.IsRolling(r.Deadline) {
		return 100
	}
	if _, ok := filter.ParseDeadline(r.Deadline); ok && !filter.IsExpired(r.Deadline, k.now()) {
		return 100
	}
	return 0
}

// Composite blends fit, completeness and freshness into one score.
func (k *Ranker) Composite(r model.Record) float64 {
	return fitWeight*float64(r.FitScore) +
		completenessWeight*Completeness(r) +
		freshnessWeight*k.Freshness(r)
}

// Finalize deduplicates records, sorts them by composite score (stable, so
// ties keep discovery order) and assigns IDs from 1.
func (k *Ranker) Finalize(records []model.Record) []model.Record {
	out := Dedup(records)

	scores := make([]float64, len(out))
	for i := range out {
		scores[i] = k.Composite(out[i])
	}
	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

	ranked := make([]model.Record, len(out))
	for pos, i := range idx {
		ranked[pos] = out[i]
		ranked[pos].ID = pos + 1
	}
	return ranked
}
