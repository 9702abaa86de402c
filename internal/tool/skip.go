package tool

import "errors"

// SkipError is the sentinel an adapter returns to decline an item without
// failing it: the item is recorded as skipped, never retried, and not
// forwarded to the next stage. An adapter may return a value alongside a
// SkipError; the executor preserves it so reports can show what was
// rejected and why.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

// Skip creates a SkipError with the given reason.
func Skip(reason string) *SkipError {
	return &SkipError{Reason: reason}
}

// IsSkip reports whether the error chain contains a SkipError.
func IsSkip(err error) bool {
	var se *SkipError
	return errors.As(err, &se)
}
