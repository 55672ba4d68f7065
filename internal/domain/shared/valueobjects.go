// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// StudentID represents a unique student identifier (UUID format).
type StudentID string

// IsValid checks if the student ID is a valid UUID.
func (s StudentID) IsValid() bool {
	return uuidRegex.MatchString(string(s))
}

// String returns the string representation.
func (s StudentID) String() string {
	return string(s)
}

// IsEmpty checks if the ID is empty.
func (s StudentID) IsEmpty() bool {
	return s == ""
}

// NewStudentID creates a new StudentID with validation.
func NewStudentID(id string) (StudentID, error) {
	sid := StudentID(strings.ToLower(strings.TrimSpace(id)))
	if !sid.IsValid() {
		return "", NewDomainError("shared", "NewStudentID", ErrInvalidID, "invalid student ID format")
	}
	return sid, nil
}

// SchoolID represents a unique school identifier (UUID format).
type SchoolID string

// IsValid checks if the school ID is a valid UUID.
func (s SchoolID) IsValid() bool {
	return uuidRegex.MatchString(string(s))
}

// String returns the string representation.
func (s SchoolID) String() string {
	return string(s)
}

// IsEmpty checks if the ID is empty.
func (s SchoolID) IsEmpty() bool {
	return s == ""
}

// NewSchoolID creates a new SchoolID with validation.
func NewSchoolID(id string) (SchoolID, error) {
	sid := SchoolID(strings.ToLower(strings.TrimSpace(id)))
	if !sid.IsValid() {
		return "", NewDomainError("shared", "NewSchoolID", ErrInvalidID, "invalid school ID format")
	}
	return sid, nil
}

// ActorID identifies the user (administrator or system principal) that
// initiated an operation, for audit trails on flag resolution.
type ActorID string

// SystemActor is the actor recorded for automated detection runs.
const SystemActor ActorID = "system"

// String returns the string representation.
func (a ActorID) String() string {
	return string(a)
}

// IsEmpty checks if the actor ID is empty.
func (a ActorID) IsEmpty() bool {
	return a == ""
}

// OrSystem returns the actor, or SystemActor when empty.
func (a ActorID) OrSystem() ActorID {
	if a.IsEmpty() {
		return SystemActor
	}
	return a
}

// ═══════════════════════════════════════════════════════════════════════════
// Contact Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// PhoneNumber is a guardian phone number in E.164-ish form.
type PhoneNumber string

// Rwandan numbers are +250 followed by nine digits, but we accept any
// international number the messaging gateway can route.
var phoneRegex = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

// IsValid checks if the phone number looks routable.
func (p PhoneNumber) IsValid() bool {
	return phoneRegex.MatchString(string(p))
}

// String returns the string representation.
func (p PhoneNumber) String() string {
	return string(p)
}

// Email is a guardian or administrator email address.
type Email string

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// IsValid performs a shallow format check.
func (e Email) IsValid() bool {
	return emailRegex.MatchString(string(e))
}

// String returns the string representation.
func (e Email) String() string {
	return string(e)
}
