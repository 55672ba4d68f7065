package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/internal/domain/student"
	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

// ══════════════════════════════════════════════════════════════════════════════
// DETECT SCHOOL RISKS COMMAND
//
// Runs a detection pass over every enrolled student of a school. Students
// are processed sequentially; one student failing never aborts the batch.
// Failures are logged, counted, and reported in the summary so an operator
// can see exactly which students a sweep skipped.
// ══════════════════════════════════════════════════════════════════════════════

// DetectSchoolRisksCommand requests a detection sweep over a school.
type DetectSchoolRisksCommand struct {
	SchoolID string
	Path     DetectionPath // empty = PathFull

	// TriggeredBy identifies who asked for the sweep; empty means the
	// system scheduler.
	TriggeredBy shared.ActorID
}

// Validate validates the command.
func (c DetectSchoolRisksCommand) Validate() error {
	if c.SchoolID == "" {
		return shared.NewDomainError("command", "DetectSchoolRisks", shared.ErrInvalidID, "school_id is required")
	}
	return nil
}

// StudentFailure records one student the sweep could not process.
type StudentFailure struct {
	StudentID string
	Error     string
}

// DetectSchoolRisksResult summarizes a school sweep.
type DetectSchoolRisksResult struct {
	SchoolID string
	Path     DetectionPath

	StudentsProcessed int
	StudentsFailed    int
	TotalFlagsCreated int
	TotalFlagsUpdated int

	// Failures lists the students skipped, capped at maxReportedFailures.
	Failures []StudentFailure

	StartedAt time.Time
	Duration  time.Duration
}

// maxReportedFailures bounds the failure list carried in the result; the
// full detail always goes to the log.
const maxReportedFailures = 50

// DetectSchoolRisksHandler handles the DetectSchoolRisksCommand.
type DetectSchoolRisksHandler struct {
	studentRepo student.Repository
	detector    *DetectStudentRisksHandler
	clock       schoolcal.Clock
	logger      *slog.Logger
}

// NewDetectSchoolRisksHandler creates a new DetectSchoolRisksHandler.
func NewDetectSchoolRisksHandler(
	studentRepo student.Repository,
	detector *DetectStudentRisksHandler,
	clock schoolcal.Clock,
	logger *slog.Logger,
) *DetectSchoolRisksHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = schoolcal.SystemClock{}
	}
	return &DetectSchoolRisksHandler{
		studentRepo: studentRepo,
		detector:    detector,
		clock:       clock,
		logger:      logger,
	}
}

// Handle executes the sweep.
func (h *DetectSchoolRisksHandler) Handle(ctx context.Context, cmd DetectSchoolRisksCommand) (*DetectSchoolRisksResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	path := cmd.Path
	if path == "" {
		path = PathFull
	}

	started := h.clock.Now()
	result := &DetectSchoolRisksResult{
		SchoolID:  cmd.SchoolID,
		Path:      path,
		StartedAt: started,
	}

	opts := student.DefaultListOptions()
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := h.studentRepo.GetBySchool(ctx, cmd.SchoolID, opts)
		if err != nil {
			return nil, fmt.Errorf("detect_school_risks: list students: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, st := range batch {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			det, err := h.detector.Handle(ctx, DetectStudentRisksCommand{
				StudentID:   st.ID,
				Path:        path,
				TriggeredBy: cmd.TriggeredBy,
			})
			if err != nil {
				result.StudentsFailed++
				if len(result.Failures) < maxReportedFailures {
					result.Failures = append(result.Failures, StudentFailure{
						StudentID: st.ID,
						Error:     err.Error(),
					})
				}
				h.logger.Error("detection failed for student",
					"school_id", cmd.SchoolID,
					"student_id", st.ID,
					"path", string(path),
					"error", err,
				)
				continue
			}
			result.StudentsProcessed++
			result.TotalFlagsCreated += det.FlagsCreated
			result.TotalFlagsUpdated += det.FlagsUpdated
		}

		if len(batch) < opts.Limit {
			break
		}
		opts.Offset += opts.Limit
	}

	result.Duration = h.clock.Now().Sub(started)
	h.logger.Info("school detection sweep finished",
		"school_id", cmd.SchoolID,
		"path", string(path),
		"processed", result.StudentsProcessed,
		"failed", result.StudentsFailed,
		"flags_created", result.TotalFlagsCreated,
		"flags_updated", result.TotalFlagsUpdated,
		"duration", result.Duration,
	)
	return result, nil
}
