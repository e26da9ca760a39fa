package jobs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the job does not exist.
	ErrNotFound = errors.New("job not found")
	// ErrInvalidInput indicates a malformed enqueue request.
	ErrInvalidInput = errors.New("invalid job input")
	// ErrInvalidTransition indicates an action not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid job transition")
	// ErrDocumentNotFound indicates the job names a document that does not exist.
	ErrDocumentNotFound = fmt.Errorf("%w: document not found", ErrInvalidInput)
	// ErrPermanent marks a failure that must not be retried.
	ErrPermanent = errors.New("permanent job failure")
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() []error { return []error{ErrPermanent, e.err} }

// Permanent wraps err so the worker fails the job without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
