package student

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// These interfaces define the contract for the storage layer.
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines the persistence operations for students.
type Repository interface {
	// Create stores a new student.
	// Returns shared.ErrStudentAlreadyExists if the student already exists.
	Create(ctx context.Context, student *Student) error

	// GetByID returns a student by internal ID.
	// Returns shared.ErrStudentNotFound if no student matches.
	GetByID(ctx context.Context, id string) (*Student, error)

	// Update persists changes to a student.
	// Returns shared.ErrStudentNotFound if no student matches.
	Update(ctx context.Context, student *Student) error

	// UpdateRiskLevel persists only the aggregator-owned fields
	// (risk_level, last_all_flags_resolved_at). Kept separate from Update
	// so concurrent profile edits cannot clobber the aggregator's write.
	UpdateRiskLevel(ctx context.Context, student *Student) error

	// GetBySchool returns the enrolled students of a school. Used by the
	// batch detection paths, which iterate students one at a time.
	GetBySchool(ctx context.Context, schoolID string, opts ListOptions) ([]*Student, error)

	// CountBySchool returns the number of enrolled students in a school.
	CountBySchool(ctx context.Context, schoolID string) (int, error)

	// Deactivate marks a student inactive (soft delete - students are
	// never removed).
	Deactivate(ctx context.Context, id string) error
}

// ListOptions contains pagination and filtering parameters for bulk reads.
type ListOptions struct {
	// Offset is the pagination offset.
	Offset int

	// Limit is the maximum number of records (0 = repository default).
	Limit int

	// IncludeInactive includes deactivated students in results.
	IncludeInactive bool
}

// DefaultListOptions returns the defaults used by detection batches.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Offset:          0,
		Limit:           500,
		IncludeInactive: false,
	}
}
