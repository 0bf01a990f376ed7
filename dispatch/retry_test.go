package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Multiplier:  2.0,
		Jitter:      0,
	}
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	attempts, err := Retry(context.Background(), fastPolicy(3), nil, func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Retry error: %v", err)
	}
	if calls != 1 || attempts != 1 {
		t.Errorf("calls = %d, attempts = %d, want 1, 1", calls, attempts)
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	boom := errors.New("transient")
	attempts, err := Retry(context.Background(), fastPolicy(5), func(error) bool { return true }, func(context.Context) error {
		calls++
		if calls < 3 {
			return boom
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry error: %v", err)
	}
	if calls != 3 || attempts != 3 {
		t.Errorf("calls = %d, attempts = %d, want 3, 3", calls, attempts)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	// Max 3 attempts means exactly 3 calls, never a 4th, and the last
	// error comes back.
	calls := 0
	boom := errors.New("always failing")
	attempts, err := Retry(context.Background(), fastPolicy(3), func(error) bool { return true }, func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want exactly 3", calls)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	permanent := errors.New("permanent")
	attempts, err := Retry(context.Background(), fastPolicy(5), func(error) bool { return false }, func(context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Errorf("error = %v, want %v", err, permanent)
	}
	if calls != 1 || attempts != 1 {
		t.Errorf("calls = %d, attempts = %d, want 1, 1", calls, attempts)
	}
}

func TestRetry_ContextCancelStopsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	boom := errors.New("transient")
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1, Jitter: 0}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := Retry(ctx, policy, func(error) bool { return true }, func(context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want last attempt error", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Retry should stop backoff sleep when context is cancelled")
	}
}

func TestRetryPolicy_DelayGrowsAndCaps(t *testing.T) {
	p := RetryPolicy{
		MaxAttempts: 10,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    time.Second,
		Multiplier:  2.0,
		Jitter:      0,
	}

	if d := p.Delay(1); d != 100*time.Millisecond {
		t.Errorf("Delay(1) = %v, want 100ms", d)
	}
	if d := p.Delay(2); d != 200*time.Millisecond {
		t.Errorf("Delay(2) = %v, want 200ms", d)
	}
	if d := p.Delay(3); d != 400*time.Millisecond {
		t.Errorf("Delay(3) = %v, want 400ms", d)
	}
	if d := p.Delay(20); d != time.Second {
		t.Errorf("Delay(20) = %v, want cap of 1s", d)
	}
}

func TestRetryPolicy_JitterBounds(t *testing.T) {
	p := RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    time.Second,
		Multiplier:  2.0,
		Jitter:      0.5,
	}
	for i := 0; i < 100; i++ {
		d := p.Delay(1)
		if d < 50*time.Millisecond || d > 150*time.Millisecond {
			t.Fatalf("Delay(1) = %v, want within [50ms, 150ms]", d)
		}
	}
}

func TestRetryPolicy_Defaults(t *testing.T) {
	var p RetryPolicy
	n := p.normalized()
	def := DefaultRetryPolicy()
	if n.MaxAttempts != def.MaxAttempts || n.BaseDelay != def.BaseDelay || n.MaxDelay != def.MaxDelay {
		t.Errorf("normalized zero policy = %+v, want defaults %+v", n, def)
	}
}
