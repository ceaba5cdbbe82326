package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// NotFoundError is returned when a requested record does not exist or is out of the caller's reach.
type NotFoundError struct {
	message string
}

func NewNotFoundError(msg string) *NotFoundError {
	return &NotFoundError{message: msg}
}

func (err NotFoundError) Error() string { return err.message }

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

// ConflictError is returned when an operation conflicts with the current state of the records.
type ConflictError struct {
	message string
}

func NewConflictError(msg string) *ConflictError {
	return &ConflictError{message: msg}
}

func (err ConflictError) Error() string { return err.message }

// PermissionError is returned when the caller may not perform an operation.
type PermissionError struct {
	message string
}

func NewPermissionError(msg string) *PermissionError {
	return &PermissionError{message: msg}
}

func (err PermissionError) Error() string { return err.message }

var ErrForbidden = NewPermissionError("permission denied")

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
