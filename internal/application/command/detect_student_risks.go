package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eduguard/eduguard-backend/internal/domain/academics"
	"github.com/eduguard/eduguard-backend/internal/domain/risk"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/internal/domain/student"
	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

// ══════════════════════════════════════════════════════════════════════════════
// DETECT STUDENT RISKS COMMAND
//
// The full detection path for one student: gather evidence, run every rule
// evaluator, let the escalator add a COMBINED candidate when the independent
// findings compound, then hand everything to the flag reconciler.
//
// The narrow paths (weekly attendance, term performance, socio-economic)
// run a single evaluator after the matching data changes. They never invoke
// the escalator: a COMBINED flag only comes out of a full pass, where every
// rule had a chance to speak.
// ══════════════════════════════════════════════════════════════════════════════

// DetectionPath selects which evaluators a detection run executes.
type DetectionPath string

const (
	// PathFull runs every evaluator plus the escalator.
	PathFull DetectionPath = "full"

	// PathWeeklyAttendance runs only the weekly attendance evaluator.
	PathWeeklyAttendance DetectionPath = "weekly_attendance"

	// PathTermPerformance runs only the term performance evaluator.
	PathTermPerformance DetectionPath = "term_performance"

	// PathSocioEconomic runs only the socio-economic evaluator.
	PathSocioEconomic DetectionPath = "socioeconomic"
)

// DetectStudentRisksCommand requests a detection pass for one student.
type DetectStudentRisksCommand struct {
	StudentID string
	Path      DetectionPath // empty = PathFull

	// TriggeredBy identifies who asked for the pass. Empty means the
	// system (a scheduled sweep or a record-write trigger).
	TriggeredBy shared.ActorID
}

// Validate validates the command.
func (c DetectStudentRisksCommand) Validate() error {
	if c.StudentID == "" {
		return shared.NewDomainError("command", "DetectStudentRisks", shared.ErrInvalidID, "student_id is required")
	}
	switch c.Path {
	case "", PathFull, PathWeeklyAttendance, PathTermPerformance, PathSocioEconomic:
		return nil
	default:
		return shared.NewDomainError("command", "DetectStudentRisks", shared.ErrValidation,
			fmt.Sprintf("unknown detection path %q", c.Path))
	}
}

// DetectStudentRisksResult reports one detection pass.
type DetectStudentRisksResult struct {
	StudentID  string
	Path       DetectionPath
	Candidates []risk.CandidateRisk

	// FlagsCreated and FlagsUpdated carry the reconciler's outcome.
	FlagsCreated int
	FlagsUpdated int

	// RiskLevel is the aggregated level after reconciliation, when any
	// flag changed.
	RiskLevel *RecomputeRiskLevelResult
}

// DetectStudentRisksHandler handles the DetectStudentRisksCommand.
type DetectStudentRisksHandler struct {
	studentRepo     student.Repository
	attendanceRepo  academics.AttendanceRepository
	performanceRepo academics.PerformanceRepository
	settingsRepo    risk.SettingsRepository
	reconciler      *ReconcileFlagsHandler
	clock           schoolcal.Clock
	logger          *slog.Logger
}

// NewDetectStudentRisksHandler creates a new DetectStudentRisksHandler.
func NewDetectStudentRisksHandler(
	studentRepo student.Repository,
	attendanceRepo academics.AttendanceRepository,
	performanceRepo academics.PerformanceRepository,
	settingsRepo risk.SettingsRepository,
	reconciler *ReconcileFlagsHandler,
	clock schoolcal.Clock,
	logger *slog.Logger,
) *DetectStudentRisksHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = schoolcal.SystemClock{}
	}
	return &DetectStudentRisksHandler{
		studentRepo:     studentRepo,
		attendanceRepo:  attendanceRepo,
		performanceRepo: performanceRepo,
		settingsRepo:    settingsRepo,
		reconciler:      reconciler,
		clock:           clock,
		logger:          logger,
	}
}

// Handle executes the detection pass.
func (h *DetectStudentRisksHandler) Handle(ctx context.Context, cmd DetectStudentRisksCommand) (*DetectStudentRisksResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	path := cmd.Path
	if path == "" {
		path = PathFull
	}

	st, err := h.studentRepo.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, fmt.Errorf("detect_student_risks: load student: %w", err)
	}

	settings, err := h.settingsRepo.GetOrCreate(ctx, st.SchoolID)
	if err != nil {
		return nil, fmt.Errorf("detect_student_risks: load settings: %w", err)
	}
	now := h.clock.Now()
	settings.Normalize(now)

	candidates, err := h.evaluate(ctx, st, settings, path, now)
	if err != nil {
		return nil, err
	}

	result := &DetectStudentRisksResult{
		StudentID:  st.ID,
		Path:       path,
		Candidates: candidates,
	}

	if len(candidates) == 0 {
		// No rule produced evidence. Existing flags stay as they are:
		// absence of fresh evidence is not proof the risk passed.
		return result, nil
	}

	rec, err := h.reconciler.Handle(ctx, ReconcileFlagsCommand{
		StudentID:   st.ID,
		SchoolID:    st.SchoolID,
		Candidates:  candidates,
		TriggeredBy: cmd.TriggeredBy,
	})
	if err != nil {
		return nil, err
	}
	result.FlagsCreated = rec.Created
	result.FlagsUpdated = rec.Updated
	result.RiskLevel = rec.RiskLevel
	return result, nil
}

// evaluate runs the evaluators the path selects and collects their candidates.
func (h *DetectStudentRisksHandler) evaluate(ctx context.Context, st *student.Student, settings *risk.RiskRuleSettings, path DetectionPath, now time.Time) ([]risk.CandidateRisk, error) {
	var candidates []risk.CandidateRisk
	add := func(c *risk.CandidateRisk) {
		if c != nil {
			candidates = append(candidates, *c)
		}
	}

	if path == PathFull || path == PathWeeklyAttendance {
		c, err := h.evaluateAttendance(ctx, st.ID, settings.Attendance, now)
		if err != nil {
			return nil, err
		}
		add(c)
	}

	if path == PathFull || path == PathTermPerformance {
		c, err := h.evaluatePerformance(ctx, st.ID, settings.Performance, now)
		if err != nil {
			return nil, err
		}
		add(c)
	}

	if path == PathFull || path == PathSocioEconomic {
		add(risk.EvaluateSocioEconomic(st, settings.SocioEconomic))
	}

	if path == PathFull {
		add(risk.EvaluateDistance(st, settings.Distance))
		add(risk.Escalate(candidates, settings.Combined))
	}

	return candidates, nil
}

// evaluateAttendance loads the attendance window and runs the configured
// attendance rule.
func (h *DetectStudentRisksHandler) evaluateAttendance(ctx context.Context, studentID string, rules risk.AttendanceRules, now time.Time) (*risk.CandidateRisk, error) {
	if rules.UseLegacyRolling {
		// The fetch must cover the widest rolling window the school has
		// configured, not just the default 14 days.
		r := academics.DateRange{From: now.AddDate(0, 0, -rules.MaxWindowDays()), To: now}
		records, err := h.attendanceRepo.GetByStudent(ctx, studentID, r)
		if err != nil {
			return nil, fmt.Errorf("detect_student_risks: load attendance: %w", err)
		}
		return risk.EvaluateRollingAttendance(records, rules, now), nil
	}

	week := schoolcal.CurrentSchoolWeek(now)
	records, err := h.attendanceRepo.GetByStudent(ctx, studentID, academics.WeekRange(week))
	if err != nil {
		return nil, fmt.Errorf("detect_student_risks: load attendance: %w", err)
	}
	return risk.EvaluateWeeklyAttendance(records, rules, week), nil
}

// evaluatePerformance loads the latest Overall record for the current term.
// A student with no Overall record yet is insufficient evidence, not a risk.
func (h *DetectStudentRisksHandler) evaluatePerformance(ctx context.Context, studentID string, rules risk.PerformanceRules, now time.Time) (*risk.CandidateRisk, error) {
	rec, err := h.performanceRepo.LatestOverall(ctx, studentID, schoolcal.AcademicYear(now), schoolcal.CurrentTerm(now))
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("detect_student_risks: load performance: %w", err)
	}
	return risk.EvaluateTermPerformance(rec, rules), nil
}
