// Package filter drops grant records that are expired, out of region,
// too thin to show, or outside the caller's own criteria.
package filter

import (
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/grant-seeker/internal/model"
)

// Reason names why a record was dropped.
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonExpired   Reason = "expired"
	ReasonGeography Reason = "geography"
	ReasonNotViable Reason = "not_viable"
)

// Option configures a Filter.
type Option func(*Filter)

// WithPolicy overrides DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(f *Filter) { f.policy = p }
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(f *Filter) { f.now = now }
}

// Filter applies the expiry, geography and viability rules.
type Filter struct {
	policy Policy
	now    func() time.Time
}

// New creates a Filter with the default policy.
func New(opts ...Option) *Filter {
	f := &Filter{policy: DefaultPolicy(), now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Check returns why r would be dropped, or ReasonNone.
func (f *Filter) Check(r model.Record) Reason {
	switch {
	case IsExpired(r.Deadline, f.now()):
		return ReasonExpired
	case f.policy.Excluded(r.Geography):
		return ReasonGeography
	case !IsViable(r):
		return ReasonNotViable
	}
	return ReasonNone
}

// Keep reports whether r passes every rule.
func (f *Filter) Keep(r model.Record) bool {
	return f.Check(r) == ReasonNone
}

// Apply returns the records that pass, in their original order.
func (f *Filter) Apply(records []model.Record) []model.Record {
	out := make([]model.Record, 0, len(records))
	dropped := make(map[Reason]int)
	for _, r := range records {
		if reason := f.Check(r); reason != ReasonNone {
			dropped[reason]++
			continue
		}
		out = append(out, r)
	}
	if len(dropped) > 0 {
		zap.L().Debug("filter: records dropped",
			zap.Int("kept", len(out)),
			zap.Int("expired", dropped[ReasonExpired]),
			zap.Int("geography", dropped[ReasonGeography]),
			zap.Int("not_viable", dropped[ReasonNotViable]),
		)
	}
	return out
}
