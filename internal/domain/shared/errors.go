// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies
// apart from the ID generator.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Infrastructure errors
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "student", "attendance", "ranking"
	Op      string // Operation that failed, e.g., "Record", "Submit"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching against both the kind and the cause.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Student directory errors
var (
	ErrStudentNotFound    = NewDomainError("student", "Find", ErrNotFound, "student not found")
	ErrInvalidStudentID   = NewDomainError("student", "Validate", ErrInvalidID, "student id cannot be empty")
	ErrInvalidStudentName = NewDomainError("student", "Validate", ErrInvalidInput, "student name cannot be empty")
)

// Attendance ledger errors
var (
	ErrAttendanceNotFound = NewDomainError("attendance", "Find", ErrNotFound, "attendance entry not found")
	ErrInvalidStatus      = NewDomainError("attendance", "Validate", ErrInvalidInput, "status must be present, absent or late")
	ErrInvalidSession     = NewDomainError("attendance", "Validate", ErrEmptyValue, "session label cannot be empty")
)

// Progress tracker errors
var (
	ErrPlanNotFound = NewDomainError("progress", "Find", ErrNotFound, "study plan not found")
	ErrTaskNotFound = NewDomainError("progress", "ToggleTask", ErrNotFound, "task not found in plan")
)

// Quiz log errors
var (
	ErrInvalidScore     = NewDomainError("quiz", "Validate", ErrValueOutOfRange, "score must be between 0 and 100")
	ErrInvalidQuizID    = NewDomainError("quiz", "Validate", ErrInvalidID, "quiz id cannot be empty")
	ErrSubmissionAbsent = NewDomainError("quiz", "Find", ErrNotFound, "submission not found")
)

// Ranking errors
var (
	ErrStudentNotRanked = NewDomainError("ranking", "GetStudentRank", ErrNotFound, "student has no ranking entry")
	ErrSnapshotNotFound = NewDomainError("ranking", "FindSnapshot", ErrNotFound, "ranking snapshot not found")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
