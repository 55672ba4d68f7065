package academics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

func TestNewAttendanceRecord(t *testing.T) {
	now := schoolcal.Date(2025, 3, 12).Add(17 * time.Hour)
	date := schoolcal.Date(2025, 3, 12).Add(8 * time.Hour)

	rec, err := NewAttendanceRecord("att-1", "st-1", "sch-1", date, AttendanceAbsent, "teacher-1", now)
	require.NoError(t, err)

	assert.Equal(t, AttendanceAbsent, rec.Status)
	assert.Equal(t, "teacher-1", rec.RecordedBy)
	// The date is normalized to the start of the school day.
	assert.Equal(t, schoolcal.Date(2025, 3, 12), rec.Date)
}

func TestNewAttendanceRecord_Validation(t *testing.T) {
	now := schoolcal.Date(2025, 3, 12)

	_, err := NewAttendanceRecord("", "st-1", "sch-1", now, AttendancePresent, "t", now)
	assert.ErrorIs(t, err, shared.ErrInvalidID)

	_, err = NewAttendanceRecord("att-1", "st-1", "sch-1", now, AttendanceStatus("SKIPPED"), "t", now)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	future := now.AddDate(0, 0, 1)
	_, err = NewAttendanceRecord("att-1", "st-1", "sch-1", future, AttendancePresent, "t", now)
	assert.ErrorIs(t, err, shared.ErrInvalidAttendanceDate)
}

func TestAttendanceStatus(t *testing.T) {
	assert.True(t, AttendanceAbsent.CountsAsAbsence())
	assert.False(t, AttendanceLate.CountsAsAbsence())
	assert.False(t, AttendanceExcused.CountsAsAbsence())
	assert.False(t, AttendancePresent.CountsAsAbsence())

	assert.True(t, AttendanceExcused.IsValid())
	assert.False(t, AttendanceStatus("SKIPPED").IsValid())
}

func TestCorrect(t *testing.T) {
	now := schoolcal.Date(2025, 3, 12)
	rec, err := NewAttendanceRecord("att-1", "st-1", "sch-1", now, AttendanceAbsent, "teacher-1", now)
	require.NoError(t, err)

	later := now.Add(2 * time.Hour)
	require.NoError(t, rec.Correct(AttendanceExcused, later))
	assert.Equal(t, AttendanceExcused, rec.Status)
	assert.Equal(t, later, rec.UpdatedAt)

	assert.ErrorIs(t, rec.Correct(AttendanceStatus("SKIPPED"), later), shared.ErrInvalidInput)
}

func TestWeekRange(t *testing.T) {
	week := schoolcal.CurrentSchoolWeek(schoolcal.Date(2025, 3, 12))
	r := WeekRange(week)

	assert.True(t, r.Contains(schoolcal.Date(2025, 3, 10)))
	assert.True(t, r.Contains(schoolcal.Date(2025, 3, 14)))
	assert.False(t, r.Contains(schoolcal.Date(2025, 3, 9)))
	assert.False(t, r.Contains(schoolcal.Date(2025, 3, 15)))
}
