package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduguard/eduguard-backend/internal/application/command"
	"github.com/eduguard/eduguard-backend/internal/domain/academics"
	"github.com/eduguard/eduguard-backend/internal/domain/notification"
	"github.com/eduguard/eduguard-backend/internal/domain/risk"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/internal/domain/student"
	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

var sweepNow = schoolcal.Date(2025, 3, 12).Add(12 * time.Hour)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// Just enough persistence for the socio-economic path, which reads nothing
// beyond the student record itself.
// ══════════════════════════════════════════════════════════════════════════════

type sweepStudentRepo struct {
	bySchool map[string][]*student.Student
	fail     map[string]error
}

func (r *sweepStudentRepo) Create(context.Context, *student.Student) error          { return nil }
func (r *sweepStudentRepo) Update(context.Context, *student.Student) error          { return nil }
func (r *sweepStudentRepo) UpdateRiskLevel(context.Context, *student.Student) error { return nil }
func (r *sweepStudentRepo) Deactivate(context.Context, string) error                { return nil }

func (r *sweepStudentRepo) GetByID(_ context.Context, id string) (*student.Student, error) {
	for _, students := range r.bySchool {
		for _, st := range students {
			if st.ID == id {
				return st, nil
			}
		}
	}
	return nil, shared.ErrStudentNotFound
}

func (r *sweepStudentRepo) GetBySchool(_ context.Context, schoolID string, opts student.ListOptions) ([]*student.Student, error) {
	if err := r.fail[schoolID]; err != nil {
		return nil, err
	}
	if opts.Offset > 0 {
		return nil, nil
	}
	return r.bySchool[schoolID], nil
}

func (r *sweepStudentRepo) CountBySchool(_ context.Context, schoolID string) (int, error) {
	return len(r.bySchool[schoolID]), nil
}

type sweepFlagRepo struct {
	mu      sync.Mutex
	created []*risk.RiskFlag
}

func (r *sweepFlagRepo) Create(_ context.Context, f *risk.RiskFlag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, f)
	return nil
}

func (r *sweepFlagRepo) Update(context.Context, *risk.RiskFlag) error { return nil }

func (r *sweepFlagRepo) GetByID(context.Context, string) (*risk.RiskFlag, error) {
	return nil, shared.ErrFlagNotFound
}

func (r *sweepFlagRepo) FindOpen(context.Context, string, risk.RiskType) (*risk.RiskFlag, error) {
	return nil, shared.ErrFlagNotFound
}

func (r *sweepFlagRepo) ListOpenByStudent(_ context.Context, studentID string) ([]*risk.RiskFlag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*risk.RiskFlag
	for _, f := range r.created {
		if f.StudentID == studentID && !f.IsResolved {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *sweepFlagRepo) ListByStudent(context.Context, string, int) ([]*risk.RiskFlag, error) {
	return nil, nil
}

func (r *sweepFlagRepo) ListOpenBySchool(context.Context, string, int) ([]*risk.RiskFlag, error) {
	return nil, nil
}

func (r *sweepFlagRepo) BulkResolve(context.Context, risk.OpenFlagFilter, risk.Resolution) (int, error) {
	return 0, nil
}

func (r *sweepFlagRepo) CountOpenBySchool(context.Context, string) (map[risk.Severity]int, error) {
	return nil, nil
}

func (r *sweepFlagRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.created)
}

type sweepAttendanceRepo struct{}

func (sweepAttendanceRepo) Create(context.Context, *academics.AttendanceRecord) error { return nil }
func (sweepAttendanceRepo) Correct(context.Context, string, academics.AttendanceStatus) error {
	return nil
}
func (sweepAttendanceRepo) GetByStudent(context.Context, string, academics.DateRange) ([]*academics.AttendanceRecord, error) {
	return nil, nil
}

type sweepPerformanceRepo struct{}

func (sweepPerformanceRepo) Create(context.Context, *academics.PerformanceRecord) error { return nil }
func (sweepPerformanceRepo) GetByStudent(context.Context, string, academics.PerformanceFilter) ([]*academics.PerformanceRecord, error) {
	return nil, nil
}
func (sweepPerformanceRepo) LatestOverall(context.Context, string, string, schoolcal.Term) (*academics.PerformanceRecord, error) {
	return nil, shared.ErrPerformanceNotFound
}

type sweepSettingsRepo struct{}

func (sweepSettingsRepo) GetOrCreate(_ context.Context, schoolID string) (*risk.RiskRuleSettings, error) {
	return risk.DefaultSettings(schoolID, sweepNow), nil
}

func (sweepSettingsRepo) Update(context.Context, *risk.RiskRuleSettings) error { return nil }

type sweepAdminSink struct{}

func (sweepAdminSink) NotifyAdminOfStudentRisk(context.Context, notification.StudentRiskAlert) error {
	return nil
}

type sweepGuardianSink struct{}

func (sweepGuardianSink) NotifyGuardiansOfRisk(context.Context, notification.StudentRiskAlert) error {
	return nil
}

type sweepIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *sweepIDGen) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return string(rune('a'+g.n-1)) + "-id"
}

// ══════════════════════════════════════════════════════════════════════════════
// WIRING
// ══════════════════════════════════════════════════════════════════════════════

func sweepStudent(t *testing.T, id, schoolID string, vulnerable bool) *student.Student {
	t.Helper()
	profile := student.SocioEconomicProfile{UbudeheLevel: 3, HasParents: true, FamilyStable: true}
	if vulnerable {
		profile = student.SocioEconomicProfile{UbudeheLevel: 1, HasParents: false, FamilyStable: true}
	}
	st, err := student.NewStudent(id, schoolID, "Eric", "Mugisha", "P6", profile, sweepNow)
	require.NoError(t, err)
	return st
}

func newSweepDetector(t *testing.T, studentRepo *sweepStudentRepo, flagRepo *sweepFlagRepo) *command.DetectSchoolRisksHandler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := schoolcal.FixedClock{Instant: sweepNow}
	guardians := notification.NewAsyncGuardianNotifier(sweepGuardianSink{}, logger)

	levels := command.NewRecomputeRiskLevelHandler(
		studentRepo, flagRepo, sweepAdminSink{}, guardians, shared.NoopPublisher{}, clock, logger)
	reconciler := command.NewReconcileFlagsHandler(
		flagRepo, studentRepo, sweepAdminSink{}, guardians, levels, shared.NoopPublisher{}, &sweepIDGen{}, clock, logger)
	detector := command.NewDetectStudentRisksHandler(
		studentRepo, sweepAttendanceRepo{}, sweepPerformanceRepo{}, sweepSettingsRepo{}, reconciler, clock, logger)
	return command.NewDetectSchoolRisksHandler(studentRepo, detector, clock, logger)
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestDetectionSweep_AggregatesAcrossSchools(t *testing.T) {
	studentRepo := &sweepStudentRepo{bySchool: map[string][]*student.Student{
		"sch-1": {sweepStudent(t, "st-1", "sch-1", true), sweepStudent(t, "st-2", "sch-1", false)},
		"sch-2": {sweepStudent(t, "st-3", "sch-2", true)},
	}}
	flagRepo := &sweepFlagRepo{}

	job := NewSocioEconomicScanJob(
		newSweepDetector(t, studentRepo, flagRepo),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		DefaultDetectionSweepConfig([]string{"sch-1", "sch-2"}),
	)

	require.NoError(t, job.Run(context.Background()))

	stats := job.LastRunStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.SchoolsProcessed)
	assert.Equal(t, 0, stats.SchoolsFailed)
	assert.Equal(t, 3, stats.StudentsProcessed)
	assert.Equal(t, 0, stats.StudentsFailed)
	assert.Equal(t, 2, stats.FlagsCreated)
	assert.Equal(t, 2, flagRepo.count())
}

func TestDetectionSweep_ContinuesPastFailedSchool(t *testing.T) {
	studentRepo := &sweepStudentRepo{
		bySchool: map[string][]*student.Student{
			"sch-2": {sweepStudent(t, "st-1", "sch-2", true)},
		},
		fail: map[string]error{"sch-1": errors.New("connection reset")},
	}
	flagRepo := &sweepFlagRepo{}

	job := NewSocioEconomicScanJob(
		newSweepDetector(t, studentRepo, flagRepo),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		DefaultDetectionSweepConfig([]string{"sch-1", "sch-2"}),
	)

	require.NoError(t, job.Run(context.Background()))

	stats := job.LastRunStats()
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.SchoolsProcessed)
	assert.Equal(t, 1, stats.SchoolsFailed)
	require.Len(t, stats.Errors, 1)
	assert.Contains(t, stats.Errors[0].Error(), "sch-1")
	assert.Equal(t, 1, stats.FlagsCreated)
}

func TestDetectionSweep_StopOnFailureWhenConfigured(t *testing.T) {
	studentRepo := &sweepStudentRepo{
		bySchool: map[string][]*student.Student{
			"sch-2": {sweepStudent(t, "st-1", "sch-2", true)},
		},
		fail: map[string]error{"sch-1": errors.New("connection reset")},
	}
	flagRepo := &sweepFlagRepo{}

	config := DefaultDetectionSweepConfig([]string{"sch-1", "sch-2"})
	config.ContinueOnSchoolFailure = false
	job := NewSocioEconomicScanJob(
		newSweepDetector(t, studentRepo, flagRepo),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		config,
	)

	err := job.Run(context.Background())
	assert.Error(t, err)

	stats := job.LastRunStats()
	assert.Equal(t, 0, stats.SchoolsProcessed)
	assert.Equal(t, 1, stats.SchoolsFailed)
	assert.Equal(t, 0, flagRepo.count())
}

func TestDetectionSweep_FailsWhenEverySchoolFails(t *testing.T) {
	studentRepo := &sweepStudentRepo{
		fail: map[string]error{
			"sch-1": errors.New("down"),
			"sch-2": errors.New("down"),
		},
	}

	job := NewFullDetectionJob(
		newSweepDetector(t, studentRepo, &sweepFlagRepo{}),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		DefaultDetectionSweepConfig([]string{"sch-1", "sch-2"}),
	)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 schools")
}

func TestDetectionSweep_CancelledContext(t *testing.T) {
	studentRepo := &sweepStudentRepo{bySchool: map[string][]*student.Student{
		"sch-1": {sweepStudent(t, "st-1", "sch-1", true)},
	}}

	job := NewSocioEconomicScanJob(
		newSweepDetector(t, studentRepo, &sweepFlagRepo{}),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		DefaultDetectionSweepConfig([]string{"sch-1"}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, job.Run(ctx))
	stats := job.LastRunStats()
	assert.Equal(t, 0, stats.SchoolsProcessed)
	require.NotEmpty(t, stats.Errors)
	assert.ErrorIs(t, stats.Errors[0], context.Canceled)
}

func TestDetectionSweep_Identity(t *testing.T) {
	detector := newSweepDetector(t, &sweepStudentRepo{}, &sweepFlagRepo{})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	config := DefaultDetectionSweepConfig(nil)

	assert.Equal(t, "full_detection", NewFullDetectionJob(detector, logger, config).Name())
	assert.Equal(t, "weekly_attendance_scan", NewWeeklyAttendanceScanJob(detector, logger, config).Name())
	assert.Equal(t, "term_performance_scan", NewTermPerformanceScanJob(detector, logger, config).Name())
	assert.Equal(t, "socioeconomic_scan", NewSocioEconomicScanJob(detector, logger, config).Name())
	assert.NotEmpty(t, NewFullDetectionJob(detector, logger, config).Description())
}
