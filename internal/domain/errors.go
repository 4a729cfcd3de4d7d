package domain

import (
	"context"
	"errors"
)

// Error classes. Callers wrap these with fmt.Errorf("%w: ...") and test with errors.Is.
var (
	ErrExtraction    = errors.New("extraction failed")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmbedding     = errors.New("embedding failed")
	ErrStore         = errors.New("vector store error")
	ErrIndexConfig   = errors.New("index configuration mismatch")
)

// TransientError marks a failure that may succeed when retried
// (transport errors, timeouts, rate limiting, 5xx responses).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsRetryable reports whether err, or anything it wraps, was marked transient.
// Deadline expiry counts as retryable; explicit cancellation does not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
