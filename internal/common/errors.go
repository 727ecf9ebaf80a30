package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrPrecondition = errors.New("precondition not met")
	ErrBusy         = errors.New("operation already in flight")
	ErrRemote       = errors.New("remote service error")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// PreconditionError reports a locally rejected operation: nothing was sent to
// the remote service and no workflow state changed.
func PreconditionError(message string) error {
	return NewAppError("PRECONDITION", message, ErrPrecondition)
}

func PreconditionErrorf(format string, args ...interface{}) error {
	return PreconditionError(fmt.Sprintf(format, args...))
}

// RemoteError reports a failed remote call; the operation may be retried
// without resetting accumulated workflow state.
func RemoteError(op string, cause error) error {
	return NewAppError("REMOTE", op+" failed", errors.Join(ErrRemote, cause))
}
