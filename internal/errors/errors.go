// LOCATION: internal/errors/errors.go
//
// This file provides:
// - Sentinel errors for all error conditions
// - Error category checking functions
// - ErrorToExitCode mapping for the CLI
// - Error wrapping utilities
// - A collector for option validation errors

package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Process exit codes - returned by the CLI
// ============================================================================

const (
	ExitOK              = 0
	ExitInternal        = 1
	ExitUsage           = 2
	ExitInvalidInput    = 3
	ExitUnsupportedType = 4
	ExitResource        = 5
)

// ============================================================================
// Sentinel errors for common conditions
// ============================================================================

var (
	// Not found errors
	ErrNotFound         = errors.New("not found")
	ErrFunctionNotFound = errors.New("function not found")
	ErrColumnNotFound   = errors.New("column not found")

	// Already exists errors
	ErrAlreadyExists = errors.New("already exists")

	// Validation errors
	ErrInvalidOptions  = errors.New("invalid options")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrMissingField    = errors.New("missing required field")
	ErrInvalidQuantile = errors.New("invalid quantile")

	// Type errors
	ErrUnsupportedType = errors.New("unsupported type")
	ErrTypeMismatch    = errors.New("type mismatch")

	// State errors
	ErrIncompatibleState = errors.New("incompatible aggregator state")
	ErrCorruptState      = errors.New("corrupt digest state")

	// Resource errors
	ErrAllocationFailed = errors.New("allocation failed")

	// Internal errors
	ErrInternal = errors.New("internal error")
	ErrDatabase = errors.New("database error")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// New is a convenience wrapper for errors.New
var New = errors.New

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrFunctionNotFound) ||
		errors.Is(err, ErrColumnNotFound)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidOptions) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidQuantile)
}

// IsTypeError returns true if err is caused by an input element kind.
func IsTypeError(err error) bool {
	return errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrTypeMismatch)
}

// IsStateError returns true if err is caused by an aggregator state.
func IsStateError(err error) bool {
	return errors.Is(err, ErrIncompatibleState) ||
		errors.Is(err, ErrCorruptState)
}

// ============================================================================
// Error to exit code mapping
// ============================================================================

// ErrorToExitCode maps an error to the CLI exit status.
func ErrorToExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case IsValidation(err):
		return ExitUsage
	case Is(err, ErrUnsupportedType):
		return ExitUnsupportedType
	case IsNotFound(err), IsStateError(err), Is(err, ErrTypeMismatch):
		return ExitInvalidInput
	case Is(err, ErrAllocationFailed):
		return ExitResource
	default:
		return ExitInternal
	}
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewNotFound creates a not-found error with context.
func NewNotFound(entityType, identifier string) error {
	return fmt.Errorf("%s '%s': %w", entityType, identifier, ErrNotFound)
}

// NewAlreadyExists creates an already-exists error with context.
func NewAlreadyExists(entityType, identifier string) error {
	return fmt.Errorf("%s '%s': %w", entityType, identifier, ErrAlreadyExists)
}

// NewUnsupportedType creates an unsupported-type error naming the kind.
func NewUnsupportedType(kind string) error {
	return fmt.Errorf("no tdigest implemented for %s: %w", kind, ErrUnsupportedType)
}

// NewTypeMismatch creates a type-mismatch error.
func NewTypeMismatch(expected, actual string) error {
	return fmt.Errorf("expected %s, got %s: %w", expected, actual, ErrTypeMismatch)
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidValue creates an invalid value error.
func NewInvalidValue(field string, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s '%v': %s: %w", field, value, reason, ErrInvalidConfig)
}

// NewInvalidOption creates an invalid aggregate option error.
func NewInvalidOption(field string, value interface{}, reason string) error {
	return fmt.Errorf("%s '%v': %s: %w", field, value, reason, ErrInvalidOptions)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// AddMissing adds a missing field error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Errors = append(v.Errors, NewMissingField(field))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the collected errors for errors.Is/As support.
func (v *ValidationErrors) Unwrap() []error {
	return v.Errors
}
