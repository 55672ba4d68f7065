// Package academics contains the attendance and performance records that feed
// the risk engine. Records are read-only inputs to risk detection: the engine
// never mutates them.
package academics

import (
	"time"

	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

// AttendanceStatus is the outcome recorded for one student on one school day.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
	AttendanceLate    AttendanceStatus = "LATE"
	AttendanceExcused AttendanceStatus = "EXCUSED"
)

// IsValid checks that the status is one of the known values.
func (s AttendanceStatus) IsValid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	default:
		return false
	}
}

// CountsAsAbsence reports whether the status contributes to absence-based
// risk. Excused absences and lateness do not.
func (s AttendanceStatus) CountsAsAbsence() bool {
	return s == AttendanceAbsent
}

// AttendanceRecord is one (student, date) attendance observation.
// Invariant: at most one record per student per calendar day. The record is
// immutable once created, except for administrative correction of Status.
type AttendanceRecord struct {
	ID        string
	StudentID string
	SchoolID  string

	// Date is the school day the record covers, normalized to the start
	// of day in school-local time.
	Date time.Time

	Status AttendanceStatus

	// RecordedBy is the teacher or import job that created the record.
	RecordedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAttendanceRecord validates and builds an attendance record.
func NewAttendanceRecord(id, studentID, schoolID string, date time.Time, status AttendanceStatus, recordedBy string, now time.Time) (*AttendanceRecord, error) {
	if id == "" || studentID == "" || schoolID == "" {
		return nil, shared.NewDomainError("academics", "NewAttendance", shared.ErrInvalidID, "id, student ID and school ID are required")
	}
	if !status.IsValid() {
		return nil, shared.NewDomainError("academics", "NewAttendance", shared.ErrInvalidInput, "unknown attendance status")
	}
	if date.After(now) {
		return nil, shared.ErrInvalidAttendanceDate
	}

	return &AttendanceRecord{
		ID:         id,
		StudentID:  studentID,
		SchoolID:   schoolID,
		Date:       schoolcal.StartOfDay(date),
		Status:     status,
		RecordedBy: recordedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Correct applies an administrative correction to the status. This is the
// only mutation attendance records permit.
func (r *AttendanceRecord) Correct(status AttendanceStatus, now time.Time) error {
	if !status.IsValid() {
		return shared.NewDomainError("academics", "Correct", shared.ErrInvalidInput, "unknown attendance status")
	}
	r.Status = status
	r.UpdatedAt = now
	return nil
}

// DateRange is an inclusive window of school days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range.
func (d DateRange) Contains(t time.Time) bool {
	return !t.Before(d.From) && !t.After(d.To)
}

// WeekRange builds the range for a Monday-Friday school week.
func WeekRange(w schoolcal.SchoolWeek) DateRange {
	return DateRange{From: w.Monday, To: w.Friday}
}
