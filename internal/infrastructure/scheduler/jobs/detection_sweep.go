// Package jobs contains implementations of scheduled jobs for EduGuard.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/eduguard/eduguard-backend/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// DETECTION SWEEP JOB
// ══════════════════════════════════════════════════════════════════════════════

// DetectionSweepJob runs a school-wide risk detection pass over every
// configured school. Each of the four detection paths gets its own job
// instance with its own schedule; they all share this implementation.
//
// The sweep exists because event-driven detection alone is not enough:
// a student who simply stops showing up generates no attendance writes,
// so nothing would ever re-evaluate them. The periodic pass catches the
// students the triggers miss.
type DetectionSweepJob struct {
	name        string
	description string
	path        command.DetectionPath

	detector *command.DetectSchoolRisksHandler
	logger   *slog.Logger

	config DetectionSweepConfig

	lastRunStats atomic.Value // *DetectionSweepStats
}

// DetectionSweepConfig contains configuration for a detection sweep job.
type DetectionSweepConfig struct {
	// SchoolIDs lists the schools the sweep covers.
	SchoolIDs []string

	// Timeout is the maximum duration for one full sweep across all schools.
	Timeout time.Duration

	// ContinueOnSchoolFailure keeps the sweep going when one school's
	// batch fails outright (students within a batch are already isolated
	// by the batch handler).
	ContinueOnSchoolFailure bool
}

// DefaultDetectionSweepConfig returns sensible defaults.
func DefaultDetectionSweepConfig(schoolIDs []string) DetectionSweepConfig {
	return DetectionSweepConfig{
		SchoolIDs:               schoolIDs,
		Timeout:                 30 * time.Minute,
		ContinueOnSchoolFailure: true,
	}
}

// DetectionSweepStats contains statistics from a sweep run.
type DetectionSweepStats struct {
	StartedAt         time.Time
	CompletedAt       time.Time
	Duration          time.Duration
	SchoolsProcessed  int
	SchoolsFailed     int
	StudentsProcessed int
	StudentsFailed    int
	FlagsCreated      int
	FlagsUpdated      int
	Errors            []error
}

// newDetectionSweepJob wires a sweep job for one detection path.
func newDetectionSweepJob(
	name string,
	description string,
	path command.DetectionPath,
	detector *command.DetectSchoolRisksHandler,
	logger *slog.Logger,
	config DetectionSweepConfig,
) *DetectionSweepJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &DetectionSweepJob{
		name:        name,
		description: description,
		path:        path,
		detector:    detector,
		logger:      logger,
		config:      config,
	}
}

// NewFullDetectionJob creates the nightly job that runs every rule family,
// including the combined escalation, over all configured schools.
func NewFullDetectionJob(detector *command.DetectSchoolRisksHandler, logger *slog.Logger, config DetectionSweepConfig) *DetectionSweepJob {
	return newDetectionSweepJob(
		"full_detection",
		"Runs all risk rule families over every enrolled student",
		command.PathFull,
		detector, logger, config,
	)
}

// NewWeeklyAttendanceScanJob creates the job that re-evaluates weekly
// attendance for every enrolled student.
func NewWeeklyAttendanceScanJob(detector *command.DetectSchoolRisksHandler, logger *slog.Logger, config DetectionSweepConfig) *DetectionSweepJob {
	return newDetectionSweepJob(
		"weekly_attendance_scan",
		"Re-evaluates weekly attendance risk for every enrolled student",
		command.PathWeeklyAttendance,
		detector, logger, config,
	)
}

// NewTermPerformanceScanJob creates the job that re-evaluates term
// performance for every enrolled student.
func NewTermPerformanceScanJob(detector *command.DetectSchoolRisksHandler, logger *slog.Logger, config DetectionSweepConfig) *DetectionSweepJob {
	return newDetectionSweepJob(
		"term_performance_scan",
		"Re-evaluates term performance risk for every enrolled student",
		command.PathTermPerformance,
		detector, logger, config,
	)
}

// NewSocioEconomicScanJob creates the job that re-evaluates socio-economic
// risk for every enrolled student. Ubudehe categories and guardian data
// change rarely, so this runs on a slow schedule.
func NewSocioEconomicScanJob(detector *command.DetectSchoolRisksHandler, logger *slog.Logger, config DetectionSweepConfig) *DetectionSweepJob {
	return newDetectionSweepJob(
		"socioeconomic_scan",
		"Re-evaluates socio-economic risk for every enrolled student",
		command.PathSocioEconomic,
		detector, logger, config,
	)
}

// Name returns the job name.
func (j *DetectionSweepJob) Name() string {
	return j.name
}

// Description returns a human-readable description.
func (j *DetectionSweepJob) Description() string {
	return j.description
}

// LastRunStats returns the statistics from the most recent run, or nil
// if the job has never run.
func (j *DetectionSweepJob) LastRunStats() *DetectionSweepStats {
	stats, _ := j.lastRunStats.Load().(*DetectionSweepStats)
	return stats
}

// Run executes the sweep over all configured schools.
func (j *DetectionSweepJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &DetectionSweepStats{
		StartedAt: startedAt,
		Errors:    make([]error, 0),
	}

	j.logger.Info("starting detection sweep",
		"job", j.name,
		"path", string(j.path),
		"schools", len(j.config.SchoolIDs),
	)

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	for _, schoolID := range j.config.SchoolIDs {
		if err := ctx.Err(); err != nil {
			stats.Errors = append(stats.Errors, err)
			break
		}

		result, err := j.detector.Handle(ctx, command.DetectSchoolRisksCommand{
			SchoolID: schoolID,
			Path:     j.path,
		})
		if err != nil {
			stats.SchoolsFailed++
			stats.Errors = append(stats.Errors, fmt.Errorf("school %s: %w", schoolID, err))
			j.logger.Error("school sweep failed",
				"job", j.name,
				"school_id", schoolID,
				"error", err,
			)
			if !j.config.ContinueOnSchoolFailure {
				break
			}
			continue
		}

		stats.SchoolsProcessed++
		stats.StudentsProcessed += result.StudentsProcessed
		stats.StudentsFailed += result.StudentsFailed
		stats.FlagsCreated += result.TotalFlagsCreated
		stats.FlagsUpdated += result.TotalFlagsUpdated

		j.logger.Info("school sweep completed",
			"job", j.name,
			"school_id", schoolID,
			"students_processed", result.StudentsProcessed,
			"students_failed", result.StudentsFailed,
			"flags_created", result.TotalFlagsCreated,
			"flags_updated", result.TotalFlagsUpdated,
		)
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("detection sweep finished",
		"job", j.name,
		"duration", stats.Duration.String(),
		"schools_processed", stats.SchoolsProcessed,
		"schools_failed", stats.SchoolsFailed,
		"students_processed", stats.StudentsProcessed,
		"flags_created", stats.FlagsCreated,
		"flags_updated", stats.FlagsUpdated,
	)

	if stats.SchoolsFailed > 0 && stats.SchoolsProcessed == 0 {
		return fmt.Errorf("detection sweep failed for all %d schools", stats.SchoolsFailed)
	}

	return nil
}
