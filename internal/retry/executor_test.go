package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	orig := sleepFunc
	sleepFunc = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	t.Cleanup(func() { sleepFunc = orig })
	return &slept
}

func TestExecutor_SuccessFirstAttempt(t *testing.T) {
	stubSleep(t)
	e := NewExecutor(DefaultPolicy())

	out := e.Do(context.Background(), func(ctx context.Context) error { return nil })

	if !out.Success() {
		t.Fatalf("expected success, got %v", out.Err)
	}
	if out.Attempts != 1 || out.Retries != 0 {
		t.Errorf("expected attempts=1 retries=0, got attempts=%d retries=%d", out.Attempts, out.Retries)
	}
}

func TestExecutor_SuccessOnThirdAttempt(t *testing.T) {
	slept := stubSleep(t)
	e := NewExecutor(DefaultPolicy())

	calls := 0
	out := e.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Transient(errors.New("flaky"))
		}
		return nil
	})

	if !out.Success() {
		t.Fatalf("expected success, got %v", out.Err)
	}
	if out.Retries != 2 {
		t.Errorf("expected retry_count=2, got %d", out.Retries)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("expected %d sleeps, got %d", len(want), len(*slept))
	}
	for i, d := range want {
		if (*slept)[i] != d {
			t.Errorf("sleep %d: expected %v, got %v", i, d, (*slept)[i])
		}
	}
}

func TestExecutor_Exhaustion(t *testing.T) {
	stubSleep(t)
	e := NewExecutor(DefaultPolicy())

	out := e.Do(context.Background(), func(ctx context.Context) error {
		return Transient(errors.New("still broken"))
	})

	if out.Success() {
		t.Fatal("expected failure after exhaustion")
	}
	if out.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", out.Attempts)
	}
}

func TestExecutor_TerminalFailsImmediately(t *testing.T) {
	slept := stubSleep(t)
	e := NewExecutor(DefaultPolicy())

	calls := 0
	out := e.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Terminalf("bad credentials: %w", ErrMissingCredential)
	})

	if calls != 1 {
		t.Errorf("terminal error should not be retried, got %d calls", calls)
	}
	if len(*slept) != 0 {
		t.Errorf("terminal error should not back off, slept %d times", len(*slept))
	}
	if out.Success() {
		t.Error("expected failure outcome")
	}
}

func TestExecutor_BackoffCapped(t *testing.T) {
	slept := stubSleep(t)
	e := NewExecutor(Policy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: 4 * time.Second})

	e.Do(context.Background(), func(ctx context.Context) error {
		return Transient(errors.New("flaky"))
	})

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("expected %d sleeps, got %d", len(want), len(*slept))
	}
	for i, d := range want {
		if (*slept)[i] != d {
			t.Errorf("sleep %d: expected %v, got %v", i, d, (*slept)[i])
		}
	}
}

func TestExecutor_ContextCancelled(t *testing.T) {
	stubSleep(t)
	e := NewExecutor(DefaultPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := e.Do(ctx, func(ctx context.Context) error { return nil })
	if out.Success() {
		t.Error("expected failure for cancelled context")
	}
	if out.Attempts != 0 {
		t.Errorf("expected no attempts, got %d", out.Attempts)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"explicit transient", Transient(errors.New("x")), ClassRetryable},
		{"explicit terminal", Terminal(errors.New("x")), ClassTerminal},
		{"wrapped missing credential", fmt.Errorf("forum: %w", ErrMissingCredential), ClassTerminal},
		{"deadline exceeded", context.DeadlineExceeded, ClassRetryable},
		{"cancelled", context.Canceled, ClassTerminal},
		{"timeout message", errors.New("request failed: timeout awaiting headers"), ClassRetryable},
		{"rate limit message", errors.New("rate limit exceeded"), ClassRetryable},
		{"connection reset", errors.New("read: connection reset by peer"), ClassRetryable},
		{"unknown", errors.New("malformed request body"), ClassTerminal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestHTTPStatusClass(t *testing.T) {
	tests := []struct {
		status int
		want   Class
	}{
		{429, ClassRetryable},
		{500, ClassRetryable},
		{503, ClassRetryable},
		{401, ClassTerminal},
		{403, ClassTerminal},
		{400, ClassTerminal},
		{404, ClassTerminal},
	}
	for _, tt := range tests {
		if got := HTTPStatusClass(tt.status); got != tt.want {
			t.Errorf("HTTPStatusClass(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
