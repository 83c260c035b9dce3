// Package retry provides the backoff policy shared by external calls that
// may fail transiently. Policies are explicit values rather than constants
// scattered across call sites, so each call type carries its own bounds.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// Backoff returns the jittered delay before the given retry. attempt is
// 1-based: the delay after the first failed attempt is Backoff(1).
func (p Policy) Backoff(attempt int) time.Duration {
	backoff := time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1)))
	if backoff > p.MaxDelay {
		backoff = p.MaxDelay
	}
	// Jitter to prevent thundering herd against the remote service.
	jitter := time.Duration(rand.Int63n(int64(backoff/2) + 1))
	return backoff + jitter
}

// Sleep waits for d or until ctx is cancelled, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn up to MaxAttempts times, backing off between attempts while
// retryable reports the error as transient. fn always runs at least once,
// even under a non-positive MaxAttempts; returning nil without a single
// attempt would report success for work that never happened. The last error
// is returned unwrapped so callers keep their own taxonomy.
func (p Policy) Do(ctx context.Context, fn func() error, retryable func(error) bool) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !retryable(err) || attempt == attempts {
			return err
		}
		if sleepErr := Sleep(ctx, p.Backoff(attempt)); sleepErr != nil {
			return sleepErr
		}
	}
	return err
}
