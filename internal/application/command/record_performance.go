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

// RecordPerformanceCommand stores one performance record. Recording an
// Overall score for the current term re-runs the term performance detection
// path; subject scores are stored without triggering detection since only
// the Overall record feeds the performance rule.
type RecordPerformanceCommand struct {
	StudentID    string
	Subject      string // academics.SubjectOverall for the term aggregate
	Term         schoolcal.Term
	AcademicYear string
	Score        float64
	MaxScore     float64
	AssessedAt   time.Time
	RecordedBy   string
}

// Validate validates the command.
func (c RecordPerformanceCommand) Validate() error {
	if c.StudentID == "" {
		return shared.NewDomainError("command", "RecordPerformance", shared.ErrInvalidID, "student_id is required")
	}
	if c.Subject == "" {
		return shared.NewDomainError("command", "RecordPerformance", shared.ErrEmptyValue, "subject is required")
	}
	if c.MaxScore <= 0 {
		return shared.NewDomainError("command", "RecordPerformance", shared.ErrValidation, "max_score must be positive")
	}
	if c.Score < 0 || c.Score > c.MaxScore {
		return shared.NewDomainError("command", "RecordPerformance", shared.ErrValidation, "score must be between 0 and max_score")
	}
	return nil
}

// RecordPerformanceResult reports the stored record and any detection outcome.
type RecordPerformanceResult struct {
	Record    *academics.PerformanceRecord
	Detection *DetectStudentRisksResult // nil when detection did not run
}

// RecordPerformanceHandler handles the RecordPerformanceCommand.
type RecordPerformanceHandler struct {
	performanceRepo academics.PerformanceRepository
	studentRepo     student.Repository
	detector        *DetectStudentRisksHandler
	idGen           IDGenerator
	clock           schoolcal.Clock
	logger          *slog.Logger
}

// NewRecordPerformanceHandler creates a new RecordPerformanceHandler.
func NewRecordPerformanceHandler(
	performanceRepo academics.PerformanceRepository,
	studentRepo student.Repository,
	detector *DetectStudentRisksHandler,
	idGen IDGenerator,
	clock schoolcal.Clock,
	logger *slog.Logger,
) *RecordPerformanceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = schoolcal.SystemClock{}
	}
	return &RecordPerformanceHandler{
		performanceRepo: performanceRepo,
		studentRepo:     studentRepo,
		detector:        detector,
		idGen:           idGen,
		clock:           clock,
		logger:          logger,
	}
}

// Handle executes the command.
func (h *RecordPerformanceHandler) Handle(ctx context.Context, cmd RecordPerformanceCommand) (*RecordPerformanceResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	st, err := h.studentRepo.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, fmt.Errorf("record_performance: load student: %w", err)
	}

	now := h.clock.Now()
	term := cmd.Term
	if term == 0 {
		term = schoolcal.CurrentTerm(now)
	}
	year := cmd.AcademicYear
	if year == "" {
		year = schoolcal.AcademicYear(now)
	}
	assessedAt := cmd.AssessedAt
	if assessedAt.IsZero() {
		assessedAt = now
	}

	rec, err := academics.NewPerformanceRecord(h.idGen.NewID(), st.ID, st.SchoolID,
		cmd.Subject, term, year, cmd.Score, cmd.MaxScore, assessedAt, cmd.RecordedBy, now)
	if err != nil {
		return nil, err
	}
	if err := h.performanceRepo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("record_performance: persist record: %w", err)
	}

	result := &RecordPerformanceResult{Record: rec}

	if rec.IsOverall() && term == schoolcal.CurrentTerm(now) && year == schoolcal.AcademicYear(now) {
		det, err := h.detector.Handle(ctx, DetectStudentRisksCommand{
			StudentID: st.ID,
			Path:      PathTermPerformance,
		})
		if err != nil {
			// Same stance as attendance: the grade is stored, detection
			// catches up on the next scheduled sweep.
			h.logger.Error("performance detection failed after record",
				"student_id", st.ID, "error", err)
		} else {
			result.Detection = det
		}
	}

	return result, nil
}
