package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/internal/domain/student"
	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

// RegisterStudentCommand enrolls a new student. Registration immediately runs
// the socio-economic detection path: household factors are known at
// enrollment time and should not wait for the first scheduled sweep.
type RegisterStudentCommand struct {
	SchoolID  string
	FirstName string
	LastName  string
	ClassName string
	Profile   student.SocioEconomicProfile
	Guardians []student.Guardian
}

// Validate validates the command.
func (c RegisterStudentCommand) Validate() error {
	if c.SchoolID == "" {
		return shared.NewDomainError("command", "RegisterStudent", shared.ErrInvalidID, "school_id is required")
	}
	if c.FirstName == "" || c.LastName == "" {
		return shared.NewDomainError("command", "RegisterStudent", shared.ErrEmptyValue, "first and last name are required")
	}
	return nil
}

// RegisterStudentResult reports the enrolled student and any detection
// outcome from the initial socio-economic pass.
type RegisterStudentResult struct {
	Student   *student.Student
	Detection *DetectStudentRisksResult
}

// RegisterStudentHandler handles the RegisterStudentCommand.
type RegisterStudentHandler struct {
	studentRepo    student.Repository
	detector       *DetectStudentRisksHandler
	eventPublisher shared.EventPublisher
	idGen          IDGenerator
	clock          schoolcal.Clock
	logger         *slog.Logger
}

// NewRegisterStudentHandler creates a new RegisterStudentHandler.
func NewRegisterStudentHandler(
	studentRepo student.Repository,
	detector *DetectStudentRisksHandler,
	eventPublisher shared.EventPublisher,
	idGen IDGenerator,
	clock schoolcal.Clock,
	logger *slog.Logger,
) *RegisterStudentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = schoolcal.SystemClock{}
	}
	if eventPublisher == nil {
		eventPublisher = shared.NoopPublisher{}
	}
	return &RegisterStudentHandler{
		studentRepo:    studentRepo,
		detector:       detector,
		eventPublisher: eventPublisher,
		idGen:          idGen,
		clock:          clock,
		logger:         logger,
	}
}

// Handle executes the registration.
func (h *RegisterStudentHandler) Handle(ctx context.Context, cmd RegisterStudentCommand) (*RegisterStudentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := h.clock.Now()
	st, err := student.NewStudent(h.idGen.NewID(), cmd.SchoolID, cmd.FirstName, cmd.LastName, cmd.ClassName, cmd.Profile, now)
	if err != nil {
		return nil, err
	}
	st.Guardians = cmd.Guardians

	if err := h.studentRepo.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("register_student: persist student: %w", err)
	}

	if err := h.eventPublisher.Publish(shared.NewStudentRegisteredEvent(st.ID, st.SchoolID, st.FullName())); err != nil {
		h.logger.Warn("failed to publish student registered event",
			"student_id", st.ID, "error", err)
	}

	result := &RegisterStudentResult{Student: st}

	det, err := h.detector.Handle(ctx, DetectStudentRisksCommand{
		StudentID: st.ID,
		Path:      PathSocioEconomic,
	})
	if err != nil {
		// Enrollment stands even when the initial pass fails.
		h.logger.Error("socio-economic detection failed after registration",
			"student_id", st.ID, "error", err)
	} else {
		result.Detection = det
	}

	return result, nil
}
