package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eduguard/eduguard-backend/internal/domain/notification"
	"github.com/eduguard/eduguard-backend/internal/domain/risk"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/internal/domain/student"
	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECOMPUTE RISK LEVEL COMMAND
//
// The student risk level aggregator. Student.RiskLevel is owned exclusively
// by this handler: it is recomputed from the open flag set after every
// reconciliation and after manual flag resolution, and no other component
// writes it.
// ══════════════════════════════════════════════════════════════════════════════

// RecomputeRiskLevelCommand asks for a student's overall level to be
// recomputed from their open flags.
type RecomputeRiskLevelCommand struct {
	StudentID string
}

// Validate validates the command.
func (c RecomputeRiskLevelCommand) Validate() error {
	if c.StudentID == "" {
		return shared.NewDomainError("command", "RecomputeRiskLevel", shared.ErrInvalidID, "student_id is required")
	}
	return nil
}

// RecomputeRiskLevelResult reports the aggregation outcome.
type RecomputeRiskLevelResult struct {
	StudentID string

	// Level is the recomputed overall risk level.
	Level student.RiskLevel

	// PreviousLevel is the level before this run.
	PreviousLevel student.RiskLevel

	// Changed is true when Level differs from PreviousLevel.
	Changed bool

	// OpenFlags is the number of open flags the level was derived from.
	OpenFlags int
}

// RecomputeRiskLevelHandler handles the RecomputeRiskLevelCommand.
type RecomputeRiskLevelHandler struct {
	studentRepo    student.Repository
	flagRepo       risk.FlagRepository
	adminSink      notification.AdminSink
	guardians      *notification.AsyncGuardianNotifier
	eventPublisher shared.EventPublisher
	clock          schoolcal.Clock
	logger         *slog.Logger
}

// NewRecomputeRiskLevelHandler creates a new RecomputeRiskLevelHandler.
func NewRecomputeRiskLevelHandler(
	studentRepo student.Repository,
	flagRepo risk.FlagRepository,
	adminSink notification.AdminSink,
	guardians *notification.AsyncGuardianNotifier,
	eventPublisher shared.EventPublisher,
	clock schoolcal.Clock,
	logger *slog.Logger,
) *RecomputeRiskLevelHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = schoolcal.SystemClock{}
	}
	if eventPublisher == nil {
		eventPublisher = shared.NoopPublisher{}
	}
	return &RecomputeRiskLevelHandler{
		studentRepo:    studentRepo,
		flagRepo:       flagRepo,
		adminSink:      adminSink,
		guardians:      guardians,
		eventPublisher: eventPublisher,
		clock:          clock,
		logger:         logger,
	}
}

// Handle recomputes the student's overall risk level.
func (h *RecomputeRiskLevelHandler) Handle(ctx context.Context, cmd RecomputeRiskLevelCommand) (*RecomputeRiskLevelResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	now := h.clock.Now()

	st, err := h.studentRepo.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, fmt.Errorf("recompute_risk_level: load student: %w", err)
	}

	open, err := h.flagRepo.ListOpenByStudent(ctx, cmd.StudentID)
	if err != nil {
		return nil, fmt.Errorf("recompute_risk_level: load open flags: %w", err)
	}

	previous := st.RiskLevel
	level := risk.WorstSeverity(open).RiskLevel()
	if len(open) == 0 {
		level = student.RiskLevelLow
	}

	changed, err := st.ApplyRiskLevel(level, now)
	if err != nil {
		return nil, fmt.Errorf("recompute_risk_level: apply level: %w", err)
	}
	if err := h.studentRepo.UpdateRiskLevel(ctx, st); err != nil {
		return nil, fmt.Errorf("recompute_risk_level: persist level: %w", err)
	}

	if changed {
		if err := h.eventPublisher.Publish(shared.NewRiskLevelChangedEvent(
			st.ID, st.SchoolID, string(previous), string(level),
		)); err != nil {
			h.logger.Warn("failed to publish risk level change",
				"student_id", st.ID, "error", err)
		}
	}

	if err := h.notify(ctx, st, previous, level, changed, len(open)); err != nil {
		return nil, err
	}

	return &RecomputeRiskLevelResult{
		StudentID:     st.ID,
		Level:         level,
		PreviousLevel: previous,
		Changed:       changed,
		OpenFlags:     len(open),
	}, nil
}

// notify fans out the admin (awaited) and guardian (fire-and-forget) alerts
// the recomputed level warrants.
func (h *RecomputeRiskLevelHandler) notify(ctx context.Context, st *student.Student, previous, level student.RiskLevel, changed bool, openFlags int) error {
	alert := notification.StudentRiskAlert{
		StudentID:   st.ID,
		SchoolID:    st.SchoolID,
		StudentName: st.FullName(),
		Severity:    string(level),
	}

	if level == student.RiskLevelLow {
		// All flags resolved. Only worth announcing when the level
		// actually dropped.
		if previous != student.RiskLevelLow {
			alert.Kind = notification.TypeRiskReduced
			alert.Message = fmt.Sprintf("%s: all risk flags resolved, risk level reduced to LOW", st.FullName())
			if err := h.adminSink.NotifyAdminOfStudentRisk(ctx, alert); err != nil {
				return fmt.Errorf("recompute_risk_level: admin notification: %w", err)
			}
		}
		return nil
	}

	if changed {
		alert.Kind = notification.TypeRiskLevelChanged
		alert.Message = fmt.Sprintf("%s: risk level changed from %s to %s (%d open flags)",
			st.FullName(), previous, level, openFlags)
	} else {
		alert.Kind = notification.TypeRiskContinuing
		alert.Message = fmt.Sprintf("%s: risk level remains %s (%d open flags)",
			st.FullName(), level, openFlags)
	}
	if err := h.adminSink.NotifyAdminOfStudentRisk(ctx, alert); err != nil {
		return fmt.Errorf("recompute_risk_level: admin notification: %w", err)
	}

	if changed && (level == student.RiskLevelHigh || level == student.RiskLevelCritical) && h.guardians != nil {
		h.guardians.Notify(alert)
	}

	return nil
}
