package dispatch

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy bounds retry behavior for adapters that opt in.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration

	// Multiplier is the backoff growth factor between attempts.
	Multiplier float64

	// Jitter is the fraction of the delay randomized in each direction,
	// in the range [0, 1].
	Jitter float64
}

// DefaultRetryPolicy returns the standard policy: three attempts with
// exponential backoff starting at 100ms, doubling, capped at 5s, with
// 50% jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.5,
	}
}

// normalized fills zero fields with defaults.
func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		p.Jitter = def.Jitter
	}
	return p
}

// Delay returns the backoff delay after the given 1-based failed
// attempt, with jitter applied.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	p = p.normalized()

	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
		if d >= float64(p.MaxDelay) {
			d = float64(p.MaxDelay)
			break
		}
	}

	if p.Jitter > 0 {
		// Spread the delay uniformly across [d*(1-j), d*(1+j)].
		d *= 1 - p.Jitter + 2*p.Jitter*rand.Float64()
	}
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	return time.Duration(d)
}

// Retry runs fn up to policy.MaxAttempts times, sleeping between
// attempts. Only errors the retryable predicate accepts are retried;
// permanent errors and context cancellation end the loop immediately.
// The last error is returned after attempts are exhausted.
func Retry(ctx context.Context, policy RetryPolicy, retryable func(error) bool, fn func(context.Context) error) (int, error) {
	policy = policy.normalized()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if retryable != nil && !retryable(lastErr) {
			return attempt, lastErr
		}
		if attempt == policy.MaxAttempts {
			break
		}

		timer := time.NewTimer(policy.Delay(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return attempt, lastErr
		}
	}
	return policy.MaxAttempts, lastErr
}
