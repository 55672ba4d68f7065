package query

import (
	"context"
	"fmt"

	"github.com/eduguard/eduguard-backend/internal/domain/risk"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/internal/domain/student"
)

// GetSchoolRiskSummaryQuery requests the dashboard counters of a school.
type GetSchoolRiskSummaryQuery struct {
	SchoolID string
}

// SchoolRiskSummary is the dashboard read model.
type SchoolRiskSummary struct {
	SchoolID      string
	TotalStudents int

	// OpenFlagsBySeverity counts open flags grouped by severity.
	OpenFlagsBySeverity map[risk.Severity]int

	// TotalOpenFlags is the sum over all severities.
	TotalOpenFlags int
}

// GetSchoolRiskSummaryHandler handles the query.
type GetSchoolRiskSummaryHandler struct {
	studentRepo student.Repository
	flagRepo    risk.FlagRepository
}

// NewGetSchoolRiskSummaryHandler creates the handler.
func NewGetSchoolRiskSummaryHandler(studentRepo student.Repository, flagRepo risk.FlagRepository) *GetSchoolRiskSummaryHandler {
	return &GetSchoolRiskSummaryHandler{studentRepo: studentRepo, flagRepo: flagRepo}
}

// Handle executes the query.
func (h *GetSchoolRiskSummaryHandler) Handle(ctx context.Context, q GetSchoolRiskSummaryQuery) (*SchoolRiskSummary, error) {
	if q.SchoolID == "" {
		return nil, shared.NewDomainError("query", "GetSchoolRiskSummary", shared.ErrInvalidID, "school_id is required")
	}

	total, err := h.studentRepo.CountBySchool(ctx, q.SchoolID)
	if err != nil {
		return nil, fmt.Errorf("get_school_risk_summary: count students: %w", err)
	}
	bySeverity, err := h.flagRepo.CountOpenBySchool(ctx, q.SchoolID)
	if err != nil {
		return nil, fmt.Errorf("get_school_risk_summary: count flags: %w", err)
	}

	sum := 0
	for _, n := range bySeverity {
		sum += n
	}
	return &SchoolRiskSummary{
		SchoolID:            q.SchoolID,
		TotalStudents:       total,
		OpenFlagsBySeverity: bySeverity,
		TotalOpenFlags:      sum,
	}, nil
}
