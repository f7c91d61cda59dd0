package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the lifecycle controller, the service directory
// and the persistence layer. Match them with errors.Is.
var (
	// Persistence
	ErrNotFound = errors.New("record not found")

	// Input
	ErrValidation     = errors.New("validation failed")
	ErrUnknownService = errors.New("unknown service")

	// Lifecycle preconditions
	ErrMigrationInProgress = errors.New("offline database migration in progress, try again after it has completed")
	ErrOperationInProgress = errors.New("another lifecycle operation is in progress")

	// Collaborator failures
	ErrStatsUnavailable = errors.New("no stats available")
	ErrConfigInvalid    = errors.New("core configuration is invalid")
	ErrOperation        = errors.New("core operation failed")
)

// ValidationError reports a field that violates its declared constraints.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ConfigInvalidError carries the log output of a failed configuration check.
type ConfigInvalidError struct {
	Details string
}

func (e *ConfigInvalidError) Error() string {
	if e.Details == "" {
		return ErrConfigInvalid.Error()
	}
	return fmt.Sprintf("%s: %s", ErrConfigInvalid, e.Details)
}

// Is makes errors.Is(err, ErrConfigInvalid) match.
func (e *ConfigInvalidError) Is(target error) bool {
	return target == ErrConfigInvalid
}

// OperationError wraps a runtime failure that happened while a supervised
// lifecycle operation was executing.
type OperationError struct {
	Operation string
	Err       error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrOperation) match.
func (e *OperationError) Is(target error) bool {
	return target == ErrOperation
}
