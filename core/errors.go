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

// NewBadRequestError is a ValidationError without field details.
func NewBadRequestError(msg string) error {
	return &ValidationError{Err: errors.New(msg)}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// PermissionError is returned when the actor is authenticated but not allowed to perform an action.
type PermissionError struct {
	message string
}

func NewPermissionError(msg string) error {
	if msg == "" {
		msg = "permission denied"
	}
	return &PermissionError{message: msg}
}

func (err PermissionError) Error() string { return err.message }

// UpgradeRequiredError is a PermissionError caused by the subscription plan.
type UpgradeRequiredError struct {
	Feature string
	message string
}

func NewUpgradeRequiredError(feature, msg string) error {
	return &UpgradeRequiredError{Feature: feature, message: msg}
}

func (err UpgradeRequiredError) Error() string { return err.message }

type NotFoundError struct {
	message string
}

func NewNotFoundError(msg string) error {
	if msg == "" {
		msg = "not found"
	}
	return &NotFoundError{message: msg}
}

func (err NotFoundError) Error() string { return err.message }

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

// ConflictError is returned when a resource already exists.
type ConflictError struct {
	message string
}

func NewConflictError(msg string) error {
	return &ConflictError{message: msg}
}

func (err ConflictError) Error() string { return err.message }

// ExternalServiceError wraps failures of third-party calls (Twilio, Stripe...) that should reach the user.
type ExternalServiceError struct {
	Service string
	Err     error
	message string
}

func NewExternalServiceError(service, msg string, err error) error {
	return &ExternalServiceError{Service: service, Err: err, message: msg}
}

func (err ExternalServiceError) Error() string { return err.message }

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
