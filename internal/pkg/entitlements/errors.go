package entitlements

import (
	"errors"
	"fmt"
)

// Error kinds used across the entitlement engine. Controllers map these to
// HTTP statuses; the job queue treats everything except ValidationError as
// retryable.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Msg
}

type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// ConflictError signals a lost race or a no-op request, e.g. attaching to a
// slot another publish just claimed, or converting a slot that is already in
// the requested ad model.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Msg
}

// StateError signals an operation that is invalid for the current
// subscription or slot state, e.g. publishing without an available token.
type StateError struct {
	Msg string
}

func (e *StateError) Error() string {
	return "invalid state: " + e.Msg
}

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(resource, key string) error {
	return &NotFoundError{Resource: resource, Key: key}
}

func NewConflictError(format string, args ...interface{}) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

func NewStateError(format string, args ...interface{}) error {
	return &StateError{Msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsState(err error) bool {
	var e *StateError
	return errors.As(err, &e)
}
