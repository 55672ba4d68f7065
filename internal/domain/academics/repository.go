package academics

import (
	"context"

	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

// AttendanceRepository defines persistence for attendance records.
// The risk engine only reads from it; writes come from the record commands.
type AttendanceRepository interface {
	// Create stores a new attendance record.
	// Returns shared.ErrAttendanceDuplicate when a record already exists
	// for the same student and calendar day.
	Create(ctx context.Context, rec *AttendanceRecord) error

	// Correct applies an administrative status correction.
	Correct(ctx context.Context, id string, status AttendanceStatus) error

	// GetByStudent returns the student's records inside the date range,
	// ordered by date ascending.
	GetByStudent(ctx context.Context, studentID string, r DateRange) ([]*AttendanceRecord, error)
}

// PerformanceFilter narrows performance lookups.
type PerformanceFilter struct {
	AcademicYear string
	Term         schoolcal.Term // zero = any term
	Subject      string         // empty = any subject
}

// PerformanceRepository defines persistence for performance records.
type PerformanceRepository interface {
	// Create stores a new performance record.
	Create(ctx context.Context, rec *PerformanceRecord) error

	// GetByStudent returns the student's records matching the filter,
	// ordered by AssessedAt descending (most recent first).
	GetByStudent(ctx context.Context, studentID string, f PerformanceFilter) ([]*PerformanceRecord, error)

	// LatestOverall returns the most recent Overall record for the given
	// academic year and term, or shared.ErrPerformanceNotFound.
	LatestOverall(ctx context.Context, studentID, academicYear string, term schoolcal.Term) (*PerformanceRecord, error)
}
