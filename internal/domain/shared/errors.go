// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
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
	ErrFutureTimestamp = errors.New("timestamp cannot be in the future")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("already processed")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "student", "risk", "academics"
	Op      string // Operation that failed, e.g., "Create", "Reconcile"
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

// Is implements errors.Is() matching.
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

// Student domain errors
var (
	ErrStudentNotFound      = NewDomainError("student", "Find", ErrNotFound, "student not found")
	ErrStudentAlreadyExists = NewDomainError("student", "Create", ErrAlreadyExists, "student already exists")
	ErrSchoolNotFound       = NewDomainError("student", "FindSchool", ErrNotFound, "school not found")
	ErrStudentNotEnrolled   = NewDomainError("student", "CheckStatus", ErrInvalidState, "student is not enrolled")
	ErrInvalidRiskLevel     = NewDomainError("student", "SetRiskLevel", ErrInvalidInput, "invalid risk level")
)

// Academics domain errors
var (
	ErrAttendanceDuplicate   = NewDomainError("academics", "RecordAttendance", ErrAlreadyExists, "attendance already recorded for this date")
	ErrAttendanceNotFound    = NewDomainError("academics", "FindAttendance", ErrNotFound, "attendance record not found")
	ErrPerformanceNotFound   = NewDomainError("academics", "FindPerformance", ErrNotFound, "performance record not found")
	ErrInvalidScore          = NewDomainError("academics", "Validate", ErrValueOutOfRange, "score must be between zero and max score")
	ErrInvalidAttendanceDate = NewDomainError("academics", "Validate", ErrFutureTimestamp, "attendance date cannot be in the future")
)

// Risk domain errors
var (
	ErrFlagNotFound        = NewDomainError("risk", "FindFlag", ErrNotFound, "risk flag not found")
	ErrFlagAlreadyResolved = NewDomainError("risk", "Resolve", ErrAlreadyProcessed, "risk flag already resolved")
	ErrFlagAlreadyOpen     = NewDomainError("risk", "CreateFlag", ErrAlreadyExists, "an open flag of this type already exists for the student")
	ErrInvalidSeverity     = NewDomainError("risk", "Validate", ErrInvalidInput, "invalid severity")
	ErrInvalidRiskType     = NewDomainError("risk", "Validate", ErrInvalidInput, "invalid risk type")
	ErrEvidenceMismatch    = NewDomainError("risk", "Validate", ErrInvalidEntity, "evidence does not match risk type")
	ErrSettingsNotFound    = NewDomainError("risk", "FindSettings", ErrNotFound, "risk rule settings not found")
)

// Notification domain errors
var (
	ErrNotificationNotFound = NewDomainError("notification", "Find", ErrNotFound, "notification not found")
	ErrNotificationFailed   = NewDomainError("notification", "Send", ErrExternalService, "failed to send notification")
	ErrInvalidChannel       = NewDomainError("notification", "Validate", ErrInvalidInput, "invalid notification channel")
	ErrNoGuardianContact    = NewDomainError("notification", "Send", ErrInvalidState, "student has no reachable guardian")
)

// External service errors
var (
	ErrSMSGatewayUnavailable = NewDomainError("sms", "Send", ErrServiceUnavailable, "SMS gateway is unavailable")
	ErrSMSGatewayRejected    = NewDomainError("sms", "Send", ErrExternalService, "SMS gateway rejected the message")
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
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsTransient checks if the error is likely to succeed on retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}
