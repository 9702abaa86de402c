// Package resilience holds the pipeline's error taxonomy and retry logic.
// Tools classify failures into exactly one of: ValidationError (malformed
// input, never retried), TransientError (retried with backoff), or
// RateLimitError (bucket exhausted past its wait ceiling, retried only at
// the coarse pipeline level). StageExhaustedError is the pipeline-level
// failure raised when a whole stage produces zero successes.
package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"
)

// ValidationError marks a tool input as structurally invalid. Retrying
// cannot help, so it is always terminal after one attempt.
type ValidationError struct {
	Tool   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid input: %s", e.Tool, e.Reason)
}

// NewValidationError creates a fatal input-validation error for a tool.
func NewValidationError(tool, reason string) *ValidationError {
	return &ValidationError{Tool: tool, Reason: reason}
}

// TransientError wraps an error that is safe to retry (e.g., 429, 5xx,
// network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP
// status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// RateLimitError is returned when a bucket's wait ceiling is exceeded.
// The stage executor records the item as retryable-failed without running
// the stage-local retry loop; only the pipeline's coarse retry may pick
// it up again.
type RateLimitError struct {
	Bucket string
	Wait   time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for bucket %q (needed %s)", e.Bucket, e.Wait)
}

// StageExhaustedError means a stage produced zero successful items, which
// is fatal to the run (distinct from tolerated per-item failures).
type StageExhaustedError struct {
	Stage string
	Items int
}

func (e *StageExhaustedError) Error() string {
	return fmt.Sprintf("stage %s exhausted: 0 of %d items succeeded", e.Stage, e.Items)
}

// IsFatal reports whether the error is a ValidationError anywhere in its
// chain. Fatal errors get exactly one attempt.
func IsFatal(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRateLimited reports whether the error is a RateLimitError.
func IsRateLimited(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// IsRetryable returns true if the error (or any error in its chain) is a
// TransientError, or matches common transient network failure patterns.
// ValidationError and RateLimitError are never retryable at the item level.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsFatal(err) || IsRateLimited(err) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
