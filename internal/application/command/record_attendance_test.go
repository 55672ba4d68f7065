package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduguard/eduguard-backend/internal/domain/academics"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

func newAttendanceHandler(env *detectorEnv) *RecordAttendanceHandler {
	return NewRecordAttendanceHandler(env.attendanceRepo, env.studentRepo,
		env.detector, env.publisher, env.idGen,
		schoolcal.FixedClock{Instant: testNow}, testLogger())
}

func TestRecordAttendance_StoresRecord(t *testing.T) {
	st := enrolledStudent(t, "st-1")
	env := newDetectorEnv(t, st)
	handler := newAttendanceHandler(env)

	res, err := handler.Handle(context.Background(), RecordAttendanceCommand{
		StudentID:  "st-1",
		Date:       schoolcal.Date(2025, 3, 12),
		Status:     academics.AttendancePresent,
		RecordedBy: "teacher-1",
	})
	require.NoError(t, err)

	assert.Equal(t, academics.AttendancePresent, res.Record.Status)
	assert.Equal(t, "sch-1", res.Record.SchoolID)
	// Presence never triggers detection.
	assert.Nil(t, res.Detection)
}

func TestRecordAttendance_AbsenceTriggersWeeklyDetection(t *testing.T) {
	st := enrolledStudent(t, "st-1")
	env := newDetectorEnv(t, st)
	handler := newAttendanceHandler(env)
	ctx := context.Background()

	// Mark Monday and Tuesday absent; the second absence crosses the
	// weekly MEDIUM threshold inline.
	_, err := handler.Handle(ctx, RecordAttendanceCommand{
		StudentID: "st-1", Date: schoolcal.Date(2025, 3, 10),
		Status: academics.AttendanceAbsent, RecordedBy: "teacher-1",
	})
	require.NoError(t, err)
	assert.Zero(t, env.flagRepo.openCount("st-1"))

	res, err := handler.Handle(ctx, RecordAttendanceCommand{
		StudentID: "st-1", Date: schoolcal.Date(2025, 3, 11),
		Status: academics.AttendanceAbsent, RecordedBy: "teacher-1",
	})
	require.NoError(t, err)

	require.NotNil(t, res.Detection)
	assert.Equal(t, PathWeeklyAttendance, res.Detection.Path)
	assert.Equal(t, 1, res.Detection.FlagsCreated)
	assert.Equal(t, 1, env.flagRepo.openCount("st-1"))
}

func TestRecordAttendance_PastWeekAbsenceSkipsDetection(t *testing.T) {
	st := enrolledStudent(t, "st-1")
	env := newDetectorEnv(t, st)
	handler := newAttendanceHandler(env)

	// Backfilling last week's register does not re-evaluate the current
	// week.
	res, err := handler.Handle(context.Background(), RecordAttendanceCommand{
		StudentID: "st-1", Date: schoolcal.Date(2025, 3, 5),
		Status: academics.AttendanceAbsent, RecordedBy: "teacher-1",
	})
	require.NoError(t, err)
	assert.Nil(t, res.Detection)
}

func TestRecordAttendance_DuplicateDay(t *testing.T) {
	st := enrolledStudent(t, "st-1")
	env := newDetectorEnv(t, st)
	handler := newAttendanceHandler(env)
	ctx := context.Background()

	cmd := RecordAttendanceCommand{
		StudentID: "st-1", Date: schoolcal.Date(2025, 3, 12),
		Status: academics.AttendancePresent, RecordedBy: "teacher-1",
	}
	_, err := handler.Handle(ctx, cmd)
	require.NoError(t, err)

	_, err = handler.Handle(ctx, cmd)
	assert.ErrorIs(t, err, shared.ErrAttendanceDuplicate)
}

func TestRecordAttendance_Validation(t *testing.T) {
	env := newDetectorEnv(t)
	handler := newAttendanceHandler(env)
	ctx := context.Background()

	_, err := handler.Handle(ctx, RecordAttendanceCommand{
		Date: schoolcal.Date(2025, 3, 12), Status: academics.AttendancePresent,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidID)

	_, err = handler.Handle(ctx, RecordAttendanceCommand{
		StudentID: "st-1", Date: schoolcal.Date(2025, 3, 12), Status: "SKIPPED",
	})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = handler.Handle(ctx, RecordAttendanceCommand{
		StudentID: "st-1", Status: academics.AttendancePresent,
	})
	assert.ErrorIs(t, err, shared.ErrValidation)

	// Saturday. Attendance is only taken on school days.
	_, err = handler.Handle(ctx, RecordAttendanceCommand{
		StudentID: "st-1", Date: schoolcal.Date(2025, 3, 15),
		Status: academics.AttendancePresent, RecordedBy: "teacher-1",
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordAttendance_FutureDateRejected(t *testing.T) {
	st := enrolledStudent(t, "st-1")
	env := newDetectorEnv(t, st)
	handler := newAttendanceHandler(env)

	_, err := handler.Handle(context.Background(), RecordAttendanceCommand{
		StudentID: "st-1", Date: schoolcal.Date(2025, 3, 20),
		Status: academics.AttendancePresent, RecordedBy: "teacher-1",
	})
	assert.ErrorIs(t, err, shared.ErrInvalidAttendanceDate)
}
