package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eduguard/eduguard-backend/internal/domain/risk"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

// ResolveFlagCommand closes a risk flag after an administrator judged the
// risk handled. Resolution is terminal: a resolved flag never reopens, a
// later detection pass creates a fresh flag instead.
type ResolveFlagCommand struct {
	FlagID     string
	ResolvedBy shared.ActorID
	Notes      string
}

// Validate validates the command.
func (c ResolveFlagCommand) Validate() error {
	if c.FlagID == "" {
		return shared.NewDomainError("command", "ResolveFlag", shared.ErrInvalidID, "flag_id is required")
	}
	if c.ResolvedBy == "" {
		return shared.NewDomainError("command", "ResolveFlag", shared.ErrEmptyValue, "resolved_by is required")
	}
	return nil
}

// ResolveFlagResult reports a resolution and the recomputed risk level.
type ResolveFlagResult struct {
	Flag      *risk.RiskFlag
	RiskLevel *RecomputeRiskLevelResult
}

// ResolveFlagHandler handles the ResolveFlagCommand.
type ResolveFlagHandler struct {
	flagRepo       risk.FlagRepository
	levelHandler   *RecomputeRiskLevelHandler
	eventPublisher shared.EventPublisher
	clock          schoolcal.Clock
	logger         *slog.Logger
}

// NewResolveFlagHandler creates a new ResolveFlagHandler.
func NewResolveFlagHandler(
	flagRepo risk.FlagRepository,
	levelHandler *RecomputeRiskLevelHandler,
	eventPublisher shared.EventPublisher,
	clock schoolcal.Clock,
	logger *slog.Logger,
) *ResolveFlagHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = schoolcal.SystemClock{}
	}
	if eventPublisher == nil {
		eventPublisher = shared.NoopPublisher{}
	}
	return &ResolveFlagHandler{
		flagRepo:       flagRepo,
		levelHandler:   levelHandler,
		eventPublisher: eventPublisher,
		clock:          clock,
		logger:         logger,
	}
}

// Handle executes the resolution.
func (h *ResolveFlagHandler) Handle(ctx context.Context, cmd ResolveFlagCommand) (*ResolveFlagResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	flag, err := h.flagRepo.GetByID(ctx, cmd.FlagID)
	if err != nil {
		return nil, fmt.Errorf("resolve_flag: load flag: %w", err)
	}
	now := h.clock.Now()
	if err := flag.Resolve(cmd.ResolvedBy, cmd.Notes, now); err != nil {
		return nil, err
	}
	if err := h.flagRepo.Update(ctx, flag); err != nil {
		return nil, fmt.Errorf("resolve_flag: persist flag: %w", err)
	}

	h.logger.Info("risk flag resolved",
		"flag_id", flag.ID,
		"student_id", flag.StudentID,
		"risk_type", string(flag.Type),
		"resolved_by", cmd.ResolvedBy.String(),
		"open_days", schoolcal.DaysSince(now, flag.CreatedAt),
	)

	if err := h.eventPublisher.Publish(shared.NewRiskFlagResolvedEvent(
		flag.ID, flag.StudentID, string(flag.Type), string(cmd.ResolvedBy), false,
	)); err != nil {
		h.logger.Warn("failed to publish flag resolved event",
			"flag_id", flag.ID, "error", err)
	}

	// Closing a flag can lower the student's aggregated level, possibly
	// back to LOW when it was the last one open.
	level, err := h.levelHandler.Handle(ctx, RecomputeRiskLevelCommand{StudentID: flag.StudentID})
	if err != nil {
		return nil, fmt.Errorf("resolve_flag: aggregate risk level: %w", err)
	}

	return &ResolveFlagResult{Flag: flag, RiskLevel: level}, nil
}
