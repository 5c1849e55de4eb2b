package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField indicates a required input field was absent
	ErrMissingField = errors.New("field is missing")

	// ErrNotANumber indicates a field could not be read as a finite real number
	ErrNotANumber = errors.New("value is not a real number")

	// ErrInvalidControllerState indicates an unknown controller state
	ErrInvalidControllerState = errors.New("controller state must be \"on\" or \"off\"")

	// ErrCredentialNotFound indicates the credential table is empty
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrAuthentication indicates a login attempt with bad credentials
	ErrAuthentication = errors.New("invalid username or password")
)

// ValidationError reports malformed or incomplete input.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %v", e.Err)
	}
	return fmt.Sprintf("validation failed for %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// PersistenceError reports that storage was unavailable or a commit failed.
type PersistenceError struct {
	Op  string
	Err error
}

// NewPersistenceError wraps err, returning nil when err is nil.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DeliveryError reports that an alert could not be handed to the mail relay.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("alert delivery failed: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPersistence reports whether err carries a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
