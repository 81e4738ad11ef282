package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Class partitions failures into retryable and terminal.
type Class int

const (
	// ClassRetryable covers transient faults: timeouts, rate limits, 5xx.
	ClassRetryable Class = iota
	// ClassTerminal covers faults a retry cannot fix: bad credentials,
	// malformed requests. These fail immediately without consuming budget.
	ClassTerminal
)

// classifiedError carries an explicit class alongside the cause.
type classifiedError struct {
	class Class
	err   error
}

func (e *classifiedError) Error() string { return e.err.Error() }
func (e *classifiedError) Unwrap() error { return e.err }

// Terminal wraps err so the executor fails immediately.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{class: ClassTerminal, err: err}
}

// Terminalf is Terminal over fmt.Errorf.
func Terminalf(format string, args ...any) error {
	return Terminal(fmt.Errorf(format, args...))
}

// Transient wraps err so the executor retries it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{class: ClassRetryable, err: err}
}

// ErrMissingCredential marks a configuration failure: the adapter cannot
// run at all in this environment. Always terminal.
var ErrMissingCredential = errors.New("missing credential")

// Classify decides how the executor should treat err. Explicit wrapping
// wins; otherwise network timeouts and context deadlines are retryable,
// cancellation and everything unrecognized is terminal-by-default except
// for transport-level faults that look transient on the wire.
func Classify(err error) Class {
	if err == nil {
		return ClassTerminal
	}

	var ce *classifiedError
	if errors.As(err, &ce) {
		return ce.class
	}

	if errors.Is(err, ErrMissingCredential) {
		return ClassTerminal
	}
	if errors.Is(err, context.Canceled) {
		return ClassTerminal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassRetryable
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassRetryable
	}

	if isTransientMessage(err.Error()) {
		return ClassRetryable
	}

	return ClassTerminal
}

// HTTPStatusClass maps an HTTP status code to a retry class: 429 and 5xx
// are transient, 401/403 and other 4xx are terminal.
func HTTPStatusClass(status int) Class {
	switch {
	case status == 429:
		return ClassRetryable
	case status >= 500 && status < 600:
		return ClassRetryable
	default:
		return ClassTerminal
	}
}

func isTransientMessage(msg string) bool {
	s := strings.ToLower(msg)
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "too many requests") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
