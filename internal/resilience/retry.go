package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"go.uber.org/zap"
)

// DefaultRetryableStatus lists the HTTP status codes every provider call
// retries on unless a Policy overrides them.
var DefaultRetryableStatus = []int{429, 500, 502, 503, 504}

// Policy is the single retry policy applied to outbound provider calls.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first try.
	MaxAttempts int

	// BaseBackoff is the delay before the first retry.
	BaseBackoff time.Duration

	// MaxBackoff caps any single delay.
	MaxBackoff time.Duration

	// Multiplier scales the delay after each attempt.
	Multiplier float64

	// JitterFraction adds +/- that fraction of the computed delay.
	JitterFraction float64

	// RetryableStatus is the set of HTTP status codes treated as transient.
	RetryableStatus []int

	// OnRetry is called before each retry sleep.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		BaseBackoff:     time.Second,
		MaxBackoff:      30 * time.Second,
		Multiplier:      2.0,
		JitterFraction:  0.25,
		RetryableStatus: DefaultRetryableStatus,
	}
}

// NewPolicy builds a Policy from config values, falling back to defaults for
// anything unset.
func NewPolicy(maxAttempts, baseBackoffMs, maxBackoffMs int, statusCodes []int) Policy {
	p := DefaultPolicy()
	if maxAttempts > 0 {
		p.MaxAttempts = maxAttempts
	}
	if baseBackoffMs > 0 {
		p.BaseBackoff = time.Duration(baseBackoffMs) * time.Millisecond
	}
	if maxBackoffMs > 0 {
		p.MaxBackoff = time.Duration(maxBackoffMs) * time.Millisecond
	}
	if len(statusCodes) > 0 {
		p.RetryableStatus = statusCodes
	}
	return p
}

// WithLogger returns a copy of p that logs each retry for service/operation.
func (p Policy) WithLogger(service, operation string) Policy {
	p.OnRetry = RetryLogger(service, operation)
	return p
}

// RetryableStatusCode reports whether code is in the policy's retry set.
func (p Policy) RetryableStatusCode(code int) bool {
	codes := p.RetryableStatus
	if len(codes) == 0 {
		codes = DefaultRetryableStatus
	}
	return slices.Contains(codes, code)
}

// Retryable reports whether err is worth another attempt under this policy.
func (p Policy) Retryable(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := StatusCode(err); ok {
		return p.RetryableStatusCode(code)
	}
	return IsTransient(err)
}

// Do executes fn until it succeeds, returns a non-retryable error, the
// attempts run out, or ctx is done.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for calls that return a value.
func DoVal[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = applyDefaults(p)

	var zero T
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !p.Retryable(err) {
			return zero, lastErr
		}
		if attempt >= p.MaxAttempts-1 {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt+1, lastErr)
		}

		timer := time.NewTimer(backoff(attempt, p))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

func applyDefaults(p Policy) Policy {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseBackoff <= 0 {
		p.BaseBackoff = def.BaseBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = def.MaxBackoff
	}
	if p.Multiplier <= 0 {
		p.Multiplier = def.Multiplier
	}
	if p.JitterFraction < 0 {
		p.JitterFraction = 0
	}
	return p
}

func backoff(attempt int, p Policy) time.Duration {
	delay := float64(p.BaseBackoff) * math.Pow(p.Multiplier, float64(attempt))
	if delay > float64(p.MaxBackoff) {
		delay = float64(p.MaxBackoff)
	}
	if p.JitterFraction > 0 {
		spread := delay * p.JitterFraction
		delay += (rand.Float64()*2 - 1) * spread
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying provider call",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
