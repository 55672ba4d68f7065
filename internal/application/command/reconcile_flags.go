package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eduguard/eduguard-backend/internal/domain/notification"
	"github.com/eduguard/eduguard-backend/internal/domain/risk"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/internal/domain/student"
	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONCILE FLAGS COMMAND
//
// Merges one detection pass's candidate risks into the flag store while
// preserving per-(student, type) uniqueness:
//
//   - no open flag of the type      -> sweep strays, create a new flag
//   - an open flag already exists   -> overwrite it in place, sweep strays
//
// A strict severity increase to HIGH/CRITICAL notifies admins (awaited) and
// guardians (fire-and-forget); an unchanged or lowered severity never does.
// After any create or update the student risk level aggregator runs.
// ══════════════════════════════════════════════════════════════════════════════

// ReconcileFlagsCommand carries the candidates of one detection pass.
type ReconcileFlagsCommand struct {
	StudentID  string
	SchoolID   string
	Candidates []risk.CandidateRisk

	// TriggeredBy is recorded on any resolution the pass performs, so an
	// admin-triggered run is distinguishable from a scheduled one in the
	// audit trail. Empty means the system.
	TriggeredBy shared.ActorID
}

// Validate validates the command.
func (c ReconcileFlagsCommand) Validate() error {
	if c.StudentID == "" {
		return shared.NewDomainError("command", "ReconcileFlags", shared.ErrInvalidID, "student_id is required")
	}
	if c.SchoolID == "" {
		return shared.NewDomainError("command", "ReconcileFlags", shared.ErrInvalidID, "school_id is required")
	}
	for _, cand := range c.Candidates {
		if err := cand.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ReconcileFlagsResult reports what the reconciliation changed.
type ReconcileFlagsResult struct {
	StudentID string

	// Created and Updated count flags written this pass.
	Created int
	Updated int

	// SweptDuplicates counts stray open flags force-resolved by the
	// safety sweep.
	SweptDuplicates int

	// Flags are the open flags touched this pass (created or updated).
	Flags []*risk.RiskFlag

	// RiskLevel is the aggregation outcome, present when any flag was
	// created or updated.
	RiskLevel *RecomputeRiskLevelResult
}

// ReconcileFlagsHandler handles the ReconcileFlagsCommand.
type ReconcileFlagsHandler struct {
	flagRepo       risk.FlagRepository
	studentRepo    student.Repository
	adminSink      notification.AdminSink
	guardians      *notification.AsyncGuardianNotifier
	levelHandler   *RecomputeRiskLevelHandler
	eventPublisher shared.EventPublisher
	idGen          IDGenerator
	clock          schoolcal.Clock
	locks          *keyedMutex
	logger         *slog.Logger
}

// NewReconcileFlagsHandler creates a new ReconcileFlagsHandler.
func NewReconcileFlagsHandler(
	flagRepo risk.FlagRepository,
	studentRepo student.Repository,
	adminSink notification.AdminSink,
	guardians *notification.AsyncGuardianNotifier,
	levelHandler *RecomputeRiskLevelHandler,
	eventPublisher shared.EventPublisher,
	idGen IDGenerator,
	clock schoolcal.Clock,
	logger *slog.Logger,
) *ReconcileFlagsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = schoolcal.SystemClock{}
	}
	if eventPublisher == nil {
		eventPublisher = shared.NoopPublisher{}
	}
	return &ReconcileFlagsHandler{
		flagRepo:       flagRepo,
		studentRepo:    studentRepo,
		adminSink:      adminSink,
		guardians:      guardians,
		levelHandler:   levelHandler,
		eventPublisher: eventPublisher,
		idGen:          idGen,
		clock:          clock,
		locks:          newKeyedMutex(),
		logger:         logger,
	}
}

// Handle executes the reconciliation.
func (h *ReconcileFlagsHandler) Handle(ctx context.Context, cmd ReconcileFlagsCommand) (*ReconcileFlagsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	st, err := h.studentRepo.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, fmt.Errorf("reconcile_flags: load student: %w", err)
	}

	result := &ReconcileFlagsResult{StudentID: cmd.StudentID}
	actor := cmd.TriggeredBy.OrSystem()

	// One winner per type: highest severity, first seen breaks ties.
	for _, cand := range risk.SelectWorstPerType(cmd.Candidates) {
		if err := h.reconcileOne(ctx, st, cand, actor, result); err != nil {
			return nil, err
		}
	}

	if result.Created+result.Updated > 0 {
		level, err := h.levelHandler.Handle(ctx, RecomputeRiskLevelCommand{StudentID: cmd.StudentID})
		if err != nil {
			return nil, fmt.Errorf("reconcile_flags: aggregate risk level: %w", err)
		}
		result.RiskLevel = level
	}

	return result, nil
}

// reconcileOne merges a single chosen candidate into the flag store.
func (h *ReconcileFlagsHandler) reconcileOne(ctx context.Context, st *student.Student, cand risk.CandidateRisk, actor shared.ActorID, result *ReconcileFlagsResult) error {
	unlock := h.locks.Lock(st.ID + "/" + string(cand.Type))
	defer unlock()

	now := h.clock.Now()

	existing, err := h.flagRepo.FindOpen(ctx, st.ID, cand.Type)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return h.createFlag(ctx, st, cand, actor, now, result)
	case err != nil:
		return fmt.Errorf("reconcile_flags: find open flag: %w", err)
	default:
		return h.updateFlag(ctx, st, cand, existing, actor, now, result)
	}
}

// createFlag handles the no-existing-flag branch.
func (h *ReconcileFlagsHandler) createFlag(ctx context.Context, st *student.Student, cand risk.CandidateRisk, actor shared.ActorID, now time.Time, result *ReconcileFlagsResult) error {
	// Safety sweep: a concurrent run may have created a flag between the
	// lookup and here. Close anything open of this type before creating.
	swept, err := h.flagRepo.BulkResolve(ctx, risk.OpenFlagFilter{
		StudentID: st.ID,
		Type:      cand.Type,
	}, risk.Resolution{
		By:    actor,
		Notes: "superseded by detection run triggered by " + actor.String(),
		At:    now,
	})
	if err != nil {
		return fmt.Errorf("reconcile_flags: safety sweep: %w", err)
	}
	result.SweptDuplicates += swept

	flag, err := risk.NewFlagFromCandidate(h.idGen.NewID(), st.ID, st.SchoolID, cand, now)
	if err != nil {
		return err
	}
	if err := h.flagRepo.Create(ctx, flag); err != nil {
		return fmt.Errorf("reconcile_flags: create flag: %w", err)
	}
	result.Created++
	result.Flags = append(result.Flags, flag)

	if err := h.eventPublisher.Publish(shared.NewRiskFlagCreatedEvent(
		flag.ID, flag.StudentID, flag.SchoolID,
		string(flag.Type), string(flag.Severity), flag.Title,
	)); err != nil {
		h.logger.Warn("failed to publish flag created event",
			"flag_id", flag.ID, "error", err)
	}

	if flag.Severity.AtLeastHigh() {
		if err := h.notifyFlag(ctx, st, flag, notification.TypeRiskFlagCreated); err != nil {
			return err
		}
	}
	return nil
}

// updateFlag handles the existing-flag branch: overwrite in place, never
// create a second row.
func (h *ReconcileFlagsHandler) updateFlag(ctx context.Context, st *student.Student, cand risk.CandidateRisk, existing *risk.RiskFlag, actor shared.ActorID, now time.Time, result *ReconcileFlagsResult) error {
	escalated, previous, err := existing.ApplyCandidate(cand, now)
	if err != nil {
		return fmt.Errorf("reconcile_flags: apply candidate: %w", err)
	}
	if err := h.flagRepo.Update(ctx, existing); err != nil {
		return fmt.Errorf("reconcile_flags: update flag: %w", err)
	}
	result.Updated++
	result.Flags = append(result.Flags, existing)

	// Sweep stray duplicates, keeping the canonical flag open.
	swept, err := h.flagRepo.BulkResolve(ctx, risk.OpenFlagFilter{
		StudentID: st.ID,
		Type:      cand.Type,
		ExcludeID: existing.ID,
	}, risk.Resolution{
		By:    actor,
		Notes: "duplicate of flag " + existing.ID,
		At:    now,
	})
	if err != nil {
		return fmt.Errorf("reconcile_flags: duplicate sweep: %w", err)
	}
	result.SweptDuplicates += swept

	if escalated {
		if err := h.eventPublisher.Publish(shared.NewRiskFlagEscalatedEvent(
			existing.ID, existing.StudentID, existing.SchoolID,
			string(existing.Type), string(previous), string(existing.Severity),
		)); err != nil {
			h.logger.Warn("failed to publish flag escalated event",
				"flag_id", existing.ID, "error", err)
		}
	}

	// Notifications fire only on a strict severity increase into the
	// HIGH/CRITICAL band. Unchanged or lowered severity stays quiet.
	if escalated && existing.Severity.AtLeastHigh() {
		if err := h.notifyFlag(ctx, st, existing, notification.TypeRiskEscalated); err != nil {
			return err
		}
	}
	return nil
}

// notifyFlag sends the admin alert inline and hands the guardian alert to the
// async notifier.
func (h *ReconcileFlagsHandler) notifyFlag(ctx context.Context, st *student.Student, flag *risk.RiskFlag, kind notification.Type) error {
	alert := notification.StudentRiskAlert{
		StudentID:   st.ID,
		SchoolID:    st.SchoolID,
		StudentName: st.FullName(),
		Severity:    string(flag.Severity),
		RiskType:    string(flag.Type),
		Message:     fmt.Sprintf("%s: %s (%s)", st.FullName(), flag.Title, flag.Severity),
		Kind:        kind,
	}

	if err := h.adminSink.NotifyAdminOfStudentRisk(ctx, alert); err != nil {
		return fmt.Errorf("reconcile_flags: admin notification: %w", err)
	}
	if h.guardians != nil {
		h.guardians.Notify(alert)
	}
	return nil
}
