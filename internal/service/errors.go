package service

import (
	"errors"
	"fmt"

	"review-portal-backend/internal/metrics"
)

var (
	ErrForbidden    = errors.New("forbidden for this role")
	ErrInvalidInput = errors.New("invalid input")
	ErrNoSession    = errors.New("no profile for the current session")
	ErrNoFeed       = errors.New("no change feed configured")

	ErrBlankFields   = fmt.Errorf("%w: please fill in all fields", ErrInvalidInput)
	ErrBlankComment  = fmt.Errorf("%w: please enter a comment", ErrInvalidInput)
	ErrInvalidStatus = fmt.Errorf("%w: unknown status", ErrInvalidInput)
	ErrInvalidRole   = fmt.Errorf("%w: unknown role", ErrInvalidInput)
	ErrNotReviewer   = fmt.Errorf("%w: assignee is not a reviewer", ErrInvalidInput)
)

// OperationError is returned by every failed store operation. Message is
// safe to show to end users; Err carries the cause.
type OperationError struct {
	Op      string
	Message string
	Err     error
}

func (e *OperationError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func opError(op, message string, err error) error {
	return &OperationError{Op: op, Message: message, Err: err}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNoSession):
		return metrics.ResultForbidden
	case errors.Is(err, ErrInvalidInput):
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}
