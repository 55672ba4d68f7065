// Package main is the entry point for the EduGuard background worker.
//
// The worker runs the periodic detection sweeps: a nightly full pass over
// every rule family, plus the narrower attendance, performance, and
// socio-economic scans. Event-driven detection in the API catches changes
// as they happen; the sweeps catch the students who stopped generating
// events at all.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eduguard/eduguard-backend/config"
	"github.com/eduguard/eduguard-backend/internal/application/command"
	"github.com/eduguard/eduguard-backend/internal/application/eventhandler"
	"github.com/eduguard/eduguard-backend/internal/domain/notification"
	"github.com/eduguard/eduguard-backend/internal/domain/risk"
	"github.com/eduguard/eduguard-backend/internal/infrastructure/external/sms"
	"github.com/eduguard/eduguard-backend/internal/infrastructure/messaging"
	"github.com/eduguard/eduguard-backend/internal/infrastructure/persistence/postgres"
	"github.com/eduguard/eduguard-backend/internal/infrastructure/persistence/redis"
	"github.com/eduguard/eduguard-backend/internal/infrastructure/scheduler"
	"github.com/eduguard/eduguard-backend/internal/infrastructure/scheduler/jobs"
	"github.com/eduguard/eduguard-backend/internal/infrastructure/service"
	"github.com/eduguard/eduguard-backend/pkg/logger"
	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION & LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Environment: string(cfg.App.Environment),
		Level:       cfg.Observability.LogLevel,
		Service:     "eduguard-worker",
	})
	slog.SetDefault(log)

	log.Info("starting EduGuard worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"schools", len(cfg.Scheduler.SchoolIDs),
	)

	if !cfg.Scheduler.Enabled {
		return fmt.Errorf("scheduler is disabled, nothing to do")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. DATABASE
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// The worker also applies migrations so a fresh deployment can start
	// from either binary.
	if cfg.Database.RunMigrations {
		log.Info("checking database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (optional settings cache)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REPOSITORIES & SINKS
	// ─────────────────────────────────────────────────────────────────────────
	studentRepo := postgres.NewStudentRepository(dbConn)
	attendanceRepo := postgres.NewAttendanceRepository(dbConn)
	performanceRepo := postgres.NewPerformanceRepository(dbConn)
	flagRepo := postgres.NewFlagRepository(dbConn)
	notificationRepo := postgres.NewNotificationRepository(dbConn)
	settingsRepo := postgres.NewSettingsRepository(dbConn)

	var detectionSettings risk.SettingsRepository = settingsRepo
	if redisCache != nil {
		detectionSettings = redis.NewSettingsCache(settingsRepo, redisCache, log)
	}

	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	auditLog := eventhandler.NewAuditLogHandler(log)
	if err := auditLog.Register(eventBus); err != nil {
		return fmt.Errorf("failed to subscribe audit log handler: %w", err)
	}

	clock := schoolcal.SystemClock{}

	var smsSender service.SMSSender
	if cfg.SMS.Disabled || cfg.SMS.BaseURL == "" ||
		!cfg.Features.IsEnabled(config.FeatureNotifyGuardianSMS, nil) {
		log.Info("guardian SMS disabled")
		smsSender = sms.NoopSender{Logger: log}
	} else {
		smsCfg := sms.DefaultClientConfig(cfg.SMS.BaseURL)
		smsCfg.APIKey = cfg.SMS.APIKey
		smsCfg.SenderID = cfg.SMS.SenderID
		smsCfg.Timeout = cfg.SMS.RequestTimeout
		smsCfg.Logger = log
		smsSender = sms.NewClient(smsCfg)
	}

	adminSink := service.NewAdminNotifier(notificationRepo, clock, log)
	guardianSink := service.NewGuardianNotifier(studentRepo, smsSender, notificationRepo, clock, log)
	asyncGuardians := notification.NewAsyncGuardianNotifier(guardianSink, log)
	defer asyncGuardians.Wait()

	// ─────────────────────────────────────────────────────────────────────────
	// 5. DETECTION PIPELINE
	// ─────────────────────────────────────────────────────────────────────────
	idGen := service.UUIDGenerator{}

	levelHandler := command.NewRecomputeRiskLevelHandler(
		studentRepo, flagRepo, adminSink, asyncGuardians, eventBus, clock, log)
	reconciler := command.NewReconcileFlagsHandler(
		flagRepo, studentRepo, adminSink, asyncGuardians, levelHandler, eventBus, idGen, clock, log)
	detector := command.NewDetectStudentRisksHandler(
		studentRepo, attendanceRepo, performanceRepo, detectionSettings, reconciler, clock, log)
	schoolDetector := command.NewDetectSchoolRisksHandler(studentRepo, detector, clock, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. SCHEDULER & JOBS
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{
		Logger:   log,
		Timezone: schoolcal.KigaliTZ,
	})

	// Each sweep covers only the schools its feature flag is rolled out
	// to, so a scan can be piloted on a subset of the district.
	sweepJobConfig := func(feature string) (jobs.DetectionSweepConfig, bool) {
		schools := cfg.Features.EnabledSchools(feature, cfg.Scheduler.SchoolIDs)
		if len(schools) == 0 {
			log.Info("sweep disabled by feature flag", "feature", feature)
			return jobs.DetectionSweepConfig{}, false
		}
		jobCfg := jobs.DefaultDetectionSweepConfig(schools)
		jobCfg.Timeout = cfg.Scheduler.JobTimeout
		return jobCfg, true
	}

	type registration struct {
		job      scheduler.Job
		schedule scheduler.Schedule
	}
	var registrations []registration

	if jobCfg, ok := sweepJobConfig(config.FeatureSweepFullDetection); ok {
		registrations = append(registrations, registration{
			jobs.NewFullDetectionJob(schoolDetector, log, jobCfg),
			scheduler.NewDailySchedule(cfg.Scheduler.FullDetectionHour, cfg.Scheduler.FullDetectionMinute, schoolcal.KigaliTZ),
		})
	}
	if jobCfg, ok := sweepJobConfig(config.FeatureSweepAttendanceScan); ok {
		registrations = append(registrations, registration{
			jobs.NewWeeklyAttendanceScanJob(schoolDetector, log, jobCfg),
			scheduler.NewIntervalSchedule(cfg.Scheduler.WeeklyAttendanceScanInterval),
		})
	}
	if jobCfg, ok := sweepJobConfig(config.FeatureSweepPerformanceScan); ok {
		registrations = append(registrations, registration{
			jobs.NewTermPerformanceScanJob(schoolDetector, log, jobCfg),
			scheduler.NewIntervalSchedule(cfg.Scheduler.TermPerformanceScanInterval),
		})
	}
	if jobCfg, ok := sweepJobConfig(config.FeatureSweepSocioEconomic); ok {
		registrations = append(registrations, registration{
			jobs.NewSocioEconomicScanJob(schoolDetector, log, jobCfg),
			scheduler.NewWeeklySchedule(time.Sunday, 3, 0, schoolcal.KigaliTZ),
		})
	}

	for _, reg := range registrations {
		if err := sched.Register(reg.job, reg.schedule); err != nil {
			return fmt.Errorf("failed to register job %s: %w", reg.job.Name(), err)
		}
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	log.Info("EduGuard worker is running", "jobs", len(registrations))

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	if err := sched.Stop(); err != nil {
		log.Error("scheduler stop failed", "error", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}
