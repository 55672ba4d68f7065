package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eduguard/eduguard-backend/internal/domain/academics"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/internal/domain/student"
	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

// RecordAttendanceCommand stores one attendance record and, when the day is
// marked an absence, re-runs the weekly attendance detection path so the
// flag reflects the week as soon as the register is taken.
type RecordAttendanceCommand struct {
	StudentID  string
	Date       time.Time
	Status     academics.AttendanceStatus
	RecordedBy string
}

// Validate validates the command.
func (c RecordAttendanceCommand) Validate() error {
	if c.StudentID == "" {
		return shared.NewDomainError("command", "RecordAttendance", shared.ErrInvalidID, "student_id is required")
	}
	if !c.Status.IsValid() {
		return shared.NewDomainError("command", "RecordAttendance", shared.ErrValidation,
			fmt.Sprintf("invalid attendance status %q", c.Status))
	}
	if c.Date.IsZero() {
		return shared.NewDomainError("command", "RecordAttendance", shared.ErrValidation, "date is required")
	}
	if !schoolcal.IsSchoolDay(c.Date) {
		return shared.NewDomainError("command", "RecordAttendance", shared.ErrValidation,
			"attendance is recorded for school days (Monday-Friday) only")
	}
	return nil
}

// RecordAttendanceResult reports the stored record and any detection outcome.
type RecordAttendanceResult struct {
	Record    *academics.AttendanceRecord
	Detection *DetectStudentRisksResult // nil when detection did not run
}

// RecordAttendanceHandler handles the RecordAttendanceCommand.
type RecordAttendanceHandler struct {
	attendanceRepo academics.AttendanceRepository
	studentRepo    student.Repository
	detector       *DetectStudentRisksHandler
	eventPublisher shared.EventPublisher
	idGen          IDGenerator
	clock          schoolcal.Clock
	logger         *slog.Logger
}

// NewRecordAttendanceHandler creates a new RecordAttendanceHandler.
func NewRecordAttendanceHandler(
	attendanceRepo academics.AttendanceRepository,
	studentRepo student.Repository,
	detector *DetectStudentRisksHandler,
	eventPublisher shared.EventPublisher,
	idGen IDGenerator,
	clock schoolcal.Clock,
	logger *slog.Logger,
) *RecordAttendanceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = schoolcal.SystemClock{}
	}
	if eventPublisher == nil {
		eventPublisher = shared.NoopPublisher{}
	}
	return &RecordAttendanceHandler{
		attendanceRepo: attendanceRepo,
		studentRepo:    studentRepo,
		detector:       detector,
		eventPublisher: eventPublisher,
		idGen:          idGen,
		clock:          clock,
		logger:         logger,
	}
}

// Handle executes the command.
func (h *RecordAttendanceHandler) Handle(ctx context.Context, cmd RecordAttendanceCommand) (*RecordAttendanceResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	st, err := h.studentRepo.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, fmt.Errorf("record_attendance: load student: %w", err)
	}

	now := h.clock.Now()
	rec, err := academics.NewAttendanceRecord(h.idGen.NewID(), st.ID, st.SchoolID, cmd.Date, cmd.Status, cmd.RecordedBy, now)
	if err != nil {
		return nil, err
	}
	if err := h.attendanceRepo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("record_attendance: persist record: %w", err)
	}

	result := &RecordAttendanceResult{Record: rec}

	// Only an absence can push the weekly count over a threshold, and
	// only when it lands in the week currently being evaluated.
	if cmd.Status.CountsAsAbsence() && schoolcal.CurrentSchoolWeek(now).Contains(rec.Date) {
		det, err := h.detector.Handle(ctx, DetectStudentRisksCommand{
			StudentID: st.ID,
			Path:      PathWeeklyAttendance,
		})
		if err != nil {
			// The record is already stored; a detection failure is an
			// operational problem, not a reason to fail the teacher's
			// register entry. The scheduled sweep will catch up.
			h.logger.Error("attendance detection failed after record",
				"student_id", st.ID, "error", err)
		} else {
			result.Detection = det
		}
	}

	return result, nil
}
