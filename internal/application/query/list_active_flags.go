package query

import (
	"context"
	"fmt"

	"github.com/eduguard/eduguard-backend/internal/domain/risk"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
)

// ListActiveFlagsQuery requests the open flags of a school, optionally
// narrowed by severity or risk type.
type ListActiveFlagsQuery struct {
	SchoolID string
	Severity risk.Severity // empty = any
	Type     risk.RiskType // empty = any
	Limit    int           // 0 = default
}

const defaultFlagListLimit = 100

// ListActiveFlagsHandler handles the query.
type ListActiveFlagsHandler struct {
	flagRepo risk.FlagRepository
}

// NewListActiveFlagsHandler creates the handler.
func NewListActiveFlagsHandler(flagRepo risk.FlagRepository) *ListActiveFlagsHandler {
	return &ListActiveFlagsHandler{flagRepo: flagRepo}
}

// Handle executes the query. Severity and type filtering happens in memory:
// open-flag volume per school is small by construction (at most one open
// flag per student per type).
func (h *ListActiveFlagsHandler) Handle(ctx context.Context, q ListActiveFlagsQuery) ([]*risk.RiskFlag, error) {
	if q.SchoolID == "" {
		return nil, shared.NewDomainError("query", "ListActiveFlags", shared.ErrInvalidID, "school_id is required")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultFlagListLimit
	}

	flags, err := h.flagRepo.ListOpenBySchool(ctx, q.SchoolID, limit)
	if err != nil {
		return nil, fmt.Errorf("list_active_flags: %w", err)
	}

	if q.Severity == "" && q.Type == "" {
		return flags, nil
	}
	filtered := make([]*risk.RiskFlag, 0, len(flags))
	for _, f := range flags {
		if q.Severity != "" && f.Severity != q.Severity {
			continue
		}
		if q.Type != "" && f.Type != q.Type {
			continue
		}
		filtered = append(filtered, f)
	}
	return filtered, nil
}
