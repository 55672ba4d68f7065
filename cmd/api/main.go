// Package main is the entry point for the EduGuard API server.
//
// The API serves school administrators: registering students, recording
// attendance and performance (which trigger the narrow detection paths),
// resolving risk flags, and the dashboard read models. Detection can also
// be triggered manually per student or per school.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/eduguard/eduguard-backend/config"
	"github.com/eduguard/eduguard-backend/internal/application/command"
	"github.com/eduguard/eduguard-backend/internal/application/eventhandler"
	"github.com/eduguard/eduguard-backend/internal/application/query"
	"github.com/eduguard/eduguard-backend/internal/domain/notification"
	"github.com/eduguard/eduguard-backend/internal/domain/risk"
	"github.com/eduguard/eduguard-backend/internal/infrastructure/external/sms"
	"github.com/eduguard/eduguard-backend/internal/infrastructure/messaging"
	"github.com/eduguard/eduguard-backend/internal/infrastructure/persistence/postgres"
	"github.com/eduguard/eduguard-backend/internal/infrastructure/persistence/redis"
	"github.com/eduguard/eduguard-backend/internal/infrastructure/service"
	httpapi "github.com/eduguard/eduguard-backend/internal/interface/http"
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
		Service:     "eduguard-api",
	})
	slog.SetDefault(log)

	log.Info("starting EduGuard API",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
	)

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
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns

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
	// 4. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	studentRepo := postgres.NewStudentRepository(dbConn)
	attendanceRepo := postgres.NewAttendanceRepository(dbConn)
	performanceRepo := postgres.NewPerformanceRepository(dbConn)
	flagRepo := postgres.NewFlagRepository(dbConn)
	notificationRepo := postgres.NewNotificationRepository(dbConn)

	settingsRepo := postgres.NewSettingsRepository(dbConn)

	// Settings are read on every detection pass; the Redis read-through
	// cache keeps that off the database when Redis is available.
	var detectionSettings risk.SettingsRepository = settingsRepo
	if redisCache != nil {
		detectionSettings = redis.NewSettingsCache(settingsRepo, redisCache, log)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
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

	// ─────────────────────────────────────────────────────────────────────────
	// 6. NOTIFICATION SINKS
	// ─────────────────────────────────────────────────────────────────────────
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
	// 7. APPLICATION HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	idGen := service.UUIDGenerator{}

	levelHandler := command.NewRecomputeRiskLevelHandler(
		studentRepo, flagRepo, adminSink, asyncGuardians, eventBus, clock, log)
	reconciler := command.NewReconcileFlagsHandler(
		flagRepo, studentRepo, adminSink, asyncGuardians, levelHandler, eventBus, idGen, clock, log)
	detector := command.NewDetectStudentRisksHandler(
		studentRepo, attendanceRepo, performanceRepo, detectionSettings, reconciler, clock, log)
	schoolDetector := command.NewDetectSchoolRisksHandler(studentRepo, detector, clock, log)

	registerHandler := command.NewRegisterStudentHandler(
		studentRepo, detector, eventBus, idGen, clock, log)
	attendanceHandler := command.NewRecordAttendanceHandler(
		attendanceRepo, studentRepo, detector, eventBus, idGen, clock, log)
	performanceHandler := command.NewRecordPerformanceHandler(
		performanceRepo, studentRepo, detector, idGen, clock, log)
	resolveHandler := command.NewResolveFlagHandler(
		flagRepo, levelHandler, eventBus, clock, log)

	profileHandler := query.NewGetStudentRiskProfileHandler(studentRepo, flagRepo)
	flagsHandler := query.NewListActiveFlagsHandler(flagRepo)
	summaryHandler := query.NewGetSchoolRiskSummaryHandler(studentRepo, flagRepo)
	notificationsHandler := query.NewListNotificationsHandler(notificationRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpapi.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	serverCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins

	server := httpapi.NewServer(serverCfg, httpapi.Dependencies{
		RegisterStudentHandler:   registerHandler,
		RecordAttendanceHandler:  attendanceHandler,
		RecordPerformanceHandler: performanceHandler,
		ResolveFlagHandler:       resolveHandler,
		DetectStudentHandler:     detector,
		DetectSchoolHandler:      schoolDetector,
		RiskProfileHandler:       profileHandler,
		ListActiveFlagsHandler:   flagsHandler,
		SchoolRiskSummaryHandler: summaryHandler,
		ListNotificationsHandler: notificationsHandler,
		Logger:                   log,
		HealthChecker:            &healthChecker{db: dbConn, cache: redisCache},
	})

	errCh := server.StartAsync()
	log.Info("EduGuard API is running", "address", server.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 9. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}
