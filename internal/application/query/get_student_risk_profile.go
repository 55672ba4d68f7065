package query

import (
	"context"
	"fmt"
	"time"

	"github.com/eduguard/eduguard-backend/internal/domain/risk"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/internal/domain/student"
)

// GetStudentRiskProfileQuery requests the full risk view of one student.
type GetStudentRiskProfileQuery struct {
	StudentID string

	// HistoryLimit caps the resolved-flag history returned (0 = default).
	HistoryLimit int
}

const defaultHistoryLimit = 20

// StudentRiskProfile is the assembled read model.
type StudentRiskProfile struct {
	Student                *student.Student
	RiskLevel              student.RiskLevel
	OpenFlags              []*risk.RiskFlag
	History                []*risk.RiskFlag
	LastAllFlagsResolvedAt *time.Time
}

// GetStudentRiskProfileHandler handles the query.
type GetStudentRiskProfileHandler struct {
	studentRepo student.Repository
	flagRepo    risk.FlagRepository
}

// NewGetStudentRiskProfileHandler creates the handler.
func NewGetStudentRiskProfileHandler(studentRepo student.Repository, flagRepo risk.FlagRepository) *GetStudentRiskProfileHandler {
	return &GetStudentRiskProfileHandler{studentRepo: studentRepo, flagRepo: flagRepo}
}

// Handle executes the query.
func (h *GetStudentRiskProfileHandler) Handle(ctx context.Context, q GetStudentRiskProfileQuery) (*StudentRiskProfile, error) {
	if q.StudentID == "" {
		return nil, shared.NewDomainError("query", "GetStudentRiskProfile", shared.ErrInvalidID, "student_id is required")
	}
	limit := q.HistoryLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	st, err := h.studentRepo.GetByID(ctx, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get_student_risk_profile: load student: %w", err)
	}

	open, err := h.flagRepo.ListOpenByStudent(ctx, st.ID)
	if err != nil {
		return nil, fmt.Errorf("get_student_risk_profile: open flags: %w", err)
	}
	history, err := h.flagRepo.ListByStudent(ctx, st.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("get_student_risk_profile: flag history: %w", err)
	}

	return &StudentRiskProfile{
		Student:                st,
		RiskLevel:              st.RiskLevel,
		OpenFlags:              open,
		History:                history,
		LastAllFlagsResolvedAt: st.LastAllFlagsResolvedAt,
	}, nil
}
