package risk

import (
	"time"

	"github.com/eduguard/eduguard-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RISK FLAG
//
// The central mutable entity of the risk engine. Two invariants govern it:
//
//   Uniqueness: for a given (student, type), at most one flag may be
//   active and unresolved at the same time.
//
//   Monotonic lifecycle: a flag transitions active -> resolved exactly once
//   per episode. Re-detection of the same risk type updates the still-open
//   flag in place; it never creates a duplicate.
// ══════════════════════════════════════════════════════════════════════════════

// RiskFlag asserts that a student currently exhibits a specific category of
// dropout risk at a given severity.
type RiskFlag struct {
	ID        string
	StudentID string
	SchoolID  string

	Type        RiskType
	Severity    Severity
	Title       string
	Description string

	// Evidence is the category-specific snapshot behind the flag,
	// replaced whenever a fresher candidate updates the flag.
	Evidence Evidence

	IsActive   bool
	IsResolved bool

	ResolvedAt      *time.Time
	ResolvedBy      string
	ResolutionNotes string

	// AutoGenerated is true for flags the detection engine created,
	// false for flags raised manually by an administrator.
	AutoGenerated bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewFlagFromCandidate creates an open, auto-generated flag from a candidate.
func NewFlagFromCandidate(id, studentID, schoolID string, c CandidateRisk, now time.Time) (*RiskFlag, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if id == "" || studentID == "" || schoolID == "" {
		return nil, shared.NewDomainError("risk", "NewFlag", shared.ErrInvalidID, "id, student ID and school ID are required")
	}

	return &RiskFlag{
		ID:            id,
		StudentID:     studentID,
		SchoolID:      schoolID,
		Type:          c.Type,
		Severity:      c.Severity,
		Title:         c.Title,
		Description:   c.Description,
		Evidence:      c.Evidence,
		IsActive:      true,
		IsResolved:    false,
		AutoGenerated: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// IsOpen reports whether the flag is active and unresolved - the state the
// uniqueness invariant counts.
func (f *RiskFlag) IsOpen() bool {
	return f.IsActive && !f.IsResolved
}

// ApplyCandidate overwrites the flag's title, description, severity and
// evidence with a fresher candidate of the same type. It reports whether the
// severity strictly increased, which is what gates escalation notifications.
func (f *RiskFlag) ApplyCandidate(c CandidateRisk, now time.Time) (escalated bool, previous Severity, err error) {
	if err := c.Validate(); err != nil {
		return false, f.Severity, err
	}
	if c.Type != f.Type {
		return false, f.Severity, shared.NewDomainError("risk", "ApplyCandidate", shared.ErrInvalidInput, "candidate type does not match flag type")
	}
	if !f.IsOpen() {
		return false, f.Severity, shared.ErrFlagAlreadyResolved
	}

	previous = f.Severity
	escalated = c.Severity.WorseThan(previous)

	f.Severity = c.Severity
	f.Title = c.Title
	f.Description = c.Description
	f.Evidence = c.Evidence
	f.UpdatedAt = now

	return escalated, previous, nil
}

// Resolve closes the flag. A flag resolves exactly once; resolving an
// already-resolved flag is a state error.
func (f *RiskFlag) Resolve(by shared.ActorID, notes string, now time.Time) error {
	if f.IsResolved {
		return shared.ErrFlagAlreadyResolved
	}
	f.IsActive = false
	f.IsResolved = true
	t := now
	f.ResolvedAt = &t
	f.ResolvedBy = by.OrSystem().String()
	f.ResolutionNotes = notes
	f.UpdatedAt = now
	return nil
}

// WorstSeverity returns the most severe severity among the given flags, or
// SeverityLow when the slice is empty. Used by the aggregator.
func WorstSeverity(flags []*RiskFlag) Severity {
	worst := SeverityLow
	for _, f := range flags {
		if f.Severity.WorseThan(worst) {
			worst = f.Severity
		}
	}
	return worst
}
