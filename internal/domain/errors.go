package domain

import "github.com/pkg/errors"

// Error kinds. Specific errors are created with KindError so callers can
// branch with errors.Is on the kind.
var (
	ErrNotFound     = errors.New("not found")
	ErrBlocked      = errors.New("blocked")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrTransient    = errors.New("store temporarily unavailable")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == e.kind }

// KindError returns a sentinel with its own message that matches kind under errors.Is.
func KindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() error { return e.err }

func (e *transientError) Is(target error) bool { return target == ErrTransient }

// Transient marks err as a retryable store failure.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsRetryable reports whether the caller may retry the operation that produced err.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
