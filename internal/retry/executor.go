package retry

import (
	"context"
	"time"
)

// sleepFunc is the sleep used between attempts (injectable for tests)
var sleepFunc = sleepCtx

// Policy bounds the executor: attempt count and backoff schedule.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy is 3 attempts with 1s/2s/4s exponential backoff.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 4 * time.Second}
}

// Outcome reports how an execution went. Attempts counts calls made;
// Retries is Attempts-1 for a successful run.
type Outcome struct {
	Err      error
	Attempts int
	Retries  int
	Elapsed  time.Duration
}

// Success reports whether the operation eventually succeeded.
func (o Outcome) Success() bool { return o.Err == nil }

// Executor wraps fallible remote calls with bounded retry and exponential
// backoff. Terminal errors fail immediately without consuming the retry
// budget. Do never panics: exhaustion surfaces as Outcome.Err.
type Executor struct {
	policy Policy
}

// NewExecutor builds an executor, falling back to defaults for zero fields.
func NewExecutor(policy Policy) *Executor {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = time.Second
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 4 * time.Second
	}
	return &Executor{policy: policy}
}

// Do runs op until it succeeds, fails terminally, exhausts the attempt
// budget, or the context ends.
func (e *Executor) Do(ctx context.Context, op func(ctx context.Context) error) Outcome {
	start := time.Now()
	var lastErr error

	for attempt := 0; attempt < e.policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			return Outcome{Err: lastErr, Attempts: attempt, Retries: attempt, Elapsed: time.Since(start)}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return Outcome{Attempts: attempt + 1, Retries: attempt, Elapsed: time.Since(start)}
		}

		if Classify(lastErr) == ClassTerminal {
			return Outcome{Err: lastErr, Attempts: attempt + 1, Retries: attempt, Elapsed: time.Since(start)}
		}

		if attempt < e.policy.MaxAttempts-1 {
			if err := sleepFunc(ctx, e.backoff(attempt)); err != nil {
				return Outcome{Err: err, Attempts: attempt + 1, Retries: attempt, Elapsed: time.Since(start)}
			}
		}
	}

	return Outcome{
		Err:      lastErr,
		Attempts: e.policy.MaxAttempts,
		Retries:  e.policy.MaxAttempts - 1,
		Elapsed:  time.Since(start),
	}
}

// backoff returns the delay before the next attempt: base << attempt,
// capped at MaxDelay.
func (e *Executor) backoff(attempt int) time.Duration {
	d := e.policy.BaseDelay << uint(attempt)
	if d > e.policy.MaxDelay {
		d = e.policy.MaxDelay
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
