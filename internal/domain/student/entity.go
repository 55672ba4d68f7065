// Package student contains the student aggregate for EduGuard.
// This is core business logic - there are no external dependencies here.
package student

import (
	"strings"
	"time"

	"github.com/eduguard/eduguard-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// UbudeheLevel is the Rwandan household socio-economic classification
// (1 = most vulnerable, 4 = least vulnerable). Zero means not assessed.
type UbudeheLevel int

// IsValid checks the level is within the national classification range.
func (u UbudeheLevel) IsValid() bool {
	return u >= 0 && u <= 4
}

// IsAssessed reports whether the household has been classified.
func (u UbudeheLevel) IsAssessed() bool {
	return u >= 1 && u <= 4
}

// Guardian is a parent or caretaker contact attached to a student.
type Guardian struct {
	Name         string             `json:"name"`
	Relationship string             `json:"relationship"` // e.g., "mother", "uncle", "caretaker"
	Phone        shared.PhoneNumber `json:"phone,omitempty"`
	Email        shared.Email       `json:"email,omitempty"`
}

// IsReachable reports whether the guardian has at least one usable contact.
func (g Guardian) IsReachable() bool {
	return g.Phone.IsValid() || g.Email.IsValid()
}

// SocioEconomicProfile holds the household risk inputs collected at
// enrollment and updated by social workers. Read-only for the risk engine.
type SocioEconomicProfile struct {
	// UbudeheLevel is the household poverty classification (0 = unknown).
	UbudeheLevel UbudeheLevel

	// HasParents is false when the student has no living/present parents.
	HasParents bool

	// FamilyStable is false when the household is flagged as unstable
	// (displacement, separation, repeated relocation).
	FamilyStable bool

	// DistanceToSchoolKm is the home-to-school distance in kilometers.
	// Nil means not measured - the distance evaluator treats that as
	// insufficient evidence, not as risk.
	DistanceToSchoolKm *float64
}

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status defines the student's enrollment status.
type Status string

const (
	// StatusActive - student is enrolled and attending.
	StatusActive Status = "active"
	// StatusTransferred - student moved to another school.
	StatusTransferred Status = "transferred"
	// StatusGraduated - student completed the final year.
	StatusGraduated Status = "graduated"
	// StatusInactive - student deactivated by an administrator.
	// Students are never deleted, only deactivated.
	StatusInactive Status = "inactive"
)

// IsValid checks that the status is one of the known values.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusTransferred, StatusGraduated, StatusInactive:
		return true
	default:
		return false
	}
}

// IsEnrolled returns true if the student is still part of the school.
func (s Status) IsEnrolled() bool {
	return s == StatusActive
}

// RiskLevel is the student's overall dropout-risk level, recomputed by the
// risk level aggregator after every reconciliation. No other component may
// write it.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// IsValid checks that the risk level is one of the known values.
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelCritical:
		return true
	default:
		return false
	}
}

// Rank returns the ordinal position of the level (LOW=0 .. CRITICAL=3).
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLevelMedium:
		return 1
	case RiskLevelHigh:
		return 2
	case RiskLevelCritical:
		return 3
	default:
		return 0
	}
}

// WorseThan reports whether r is strictly more severe than other.
func (r RiskLevel) WorseThan(other RiskLevel) bool {
	return r.Rank() > other.Rank()
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student is the learner profile tracked by EduGuard.
type Student struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// SchoolID is the school the student is enrolled at.
	SchoolID string

	// FirstName and LastName form the student's legal name.
	FirstName string
	LastName  string

	// ClassName is the class/stream label, e.g. "P5 A".
	ClassName string

	// Status is the enrollment status.
	Status Status

	// Profile holds the household socio-economic inputs.
	Profile SocioEconomicProfile

	// Guardians are the parent/caretaker contacts for alerting.
	Guardians []Guardian

	// RiskLevel is owned exclusively by the risk level aggregator.
	RiskLevel RiskLevel

	// LastAllFlagsResolvedAt is stamped when the student's last active
	// flag is resolved and their level drops back to LOW.
	LastAllFlagsResolvedAt *time.Time

	// EnrolledAt is when the student joined the school.
	EnrolledAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewStudent creates a new student at enrollment. The initial risk level is
// always LOW; only the aggregator moves it afterwards.
func NewStudent(id, schoolID, firstName, lastName, className string, profile SocioEconomicProfile, now time.Time) (*Student, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return nil, shared.NewDomainError("student", "New", shared.ErrEmptyValue, "first and last name are required")
	}
	if id == "" {
		return nil, shared.NewDomainError("student", "New", shared.ErrInvalidID, "student ID is required")
	}
	if schoolID == "" {
		return nil, shared.NewDomainError("student", "New", shared.ErrInvalidID, "school ID is required")
	}
	if !profile.UbudeheLevel.IsValid() {
		return nil, shared.NewDomainError("student", "New", shared.ErrValueOutOfRange, "ubudehe level must be between 0 and 4")
	}

	return &Student{
		ID:         id,
		SchoolID:   schoolID,
		FirstName:  firstName,
		LastName:   lastName,
		ClassName:  strings.TrimSpace(className),
		Status:     StatusActive,
		Profile:    profile,
		RiskLevel:  RiskLevelLow,
		EnrolledAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// FullName returns the display name.
func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// IsEnrolled reports whether the student should be included in detection runs.
func (s *Student) IsEnrolled() bool {
	return s.Status.IsEnrolled()
}

// Deactivate marks the student as inactive. Students are never deleted.
func (s *Student) Deactivate(now time.Time) {
	s.Status = StatusInactive
	s.UpdatedAt = now
}

// ReachableGuardians returns the guardians that can actually be alerted.
func (s *Student) ReachableGuardians() []Guardian {
	out := make([]Guardian, 0, len(s.Guardians))
	for _, g := range s.Guardians {
		if g.IsReachable() {
			out = append(out, g)
		}
	}
	return out
}

// ApplyRiskLevel records an aggregator decision on the entity and reports
// whether the level actually changed. A LOW level always stamps
// LastAllFlagsResolvedAt, even when the level was already LOW.
//
// Only the risk level aggregator may call this.
func (s *Student) ApplyRiskLevel(level RiskLevel, now time.Time) (changed bool, err error) {
	if !level.IsValid() {
		return false, shared.ErrInvalidRiskLevel
	}
	if level == RiskLevelLow {
		t := now
		s.LastAllFlagsResolvedAt = &t
	}
	if s.RiskLevel == level {
		s.UpdatedAt = now
		return false, nil
	}
	s.RiskLevel = level
	s.UpdatedAt = now
	return true, nil
}
