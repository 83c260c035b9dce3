package retry

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func testPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func TestBackoffBounds(t *testing.T) {
	p := testPolicy()
	for attempt := 1; attempt <= 10; attempt++ {
		d := p.Backoff(attempt)
		if d <= 0 {
			t.Errorf("attempt %d: non-positive backoff %s", attempt, d)
		}
		// Delay is capped at MaxDelay plus up to half of it in jitter.
		if d > p.MaxDelay+p.MaxDelay/2 {
			t.Errorf("attempt %d: backoff %s exceeds cap", attempt, d)
		}
	}
}

func TestBackoffGrows(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: time.Hour, Multiplier: 2.0}
	// Jitter adds at most half, so attempt 3 (4s base) always exceeds
	// attempt 1's maximum (1.5s).
	if p.Backoff(3) <= 1500*time.Millisecond {
		t.Error("expected exponential growth to dominate jitter")
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("transient")
		}
		return nil
	}, func(error) bool { return true })

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := fmt.Errorf("permanent")
	err := testPolicy().Do(context.Background(), func() error {
		calls++
		return permanent
	}, func(error) bool { return false })

	if err != permanent {
		t.Errorf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	failure := fmt.Errorf("always failing")
	err := testPolicy().Do(context.Background(), func() error {
		calls++
		return failure
	}, func(error) bool { return true })

	if err != failure {
		t.Errorf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoAlwaysRunsAtLeastOnce(t *testing.T) {
	for _, maxAttempts := range []int{0, -1} {
		calls := 0
		failure := fmt.Errorf("still failing")
		p := Policy{MaxAttempts: maxAttempts, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2.0}

		err := p.Do(context.Background(), func() error {
			calls++
			return failure
		}, func(error) bool { return true })

		if calls != 1 {
			t.Errorf("MaxAttempts=%d: expected exactly 1 call, got %d", maxAttempts, calls)
		}
		if err != failure {
			t.Errorf("MaxAttempts=%d: expected the attempt's error, got %v", maxAttempts, err)
		}
	}
}

func TestDoRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{MaxAttempts: 3, BaseDelay: time.Minute, MaxDelay: time.Hour, Multiplier: 2.0}
	err := p.Do(ctx, func() error {
		return fmt.Errorf("transient")
	}, func(error) bool { return true })

	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSleepReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Minute)
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep did not return promptly on cancellation")
	}
}
