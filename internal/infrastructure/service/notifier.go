// Package service wires domain interfaces to infrastructure: notification
// sinks over the notification store and SMS gateway, and ID generation.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eduguard/eduguard-backend/internal/domain/notification"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/internal/domain/student"
	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

// ══════════════════════════════════════════════════════════════════════════════
// ID GENERATION
// ══════════════════════════════════════════════════════════════════════════════

// UUIDGenerator implements command.IDGenerator with random UUIDs.
type UUIDGenerator struct{}

// NewID returns a new UUID string.
func (UUIDGenerator) NewID() string {
	return uuid.New().String()
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN NOTIFIER
// ══════════════════════════════════════════════════════════════════════════════

// AdminNotifier implements notification.AdminSink by writing in-app
// notification rows that the school dashboard lists. The write is awaited:
// if the row cannot be stored, the administrator never sees the alert and
// the triggering operation must know.
type AdminNotifier struct {
	repo   notification.Repository
	clock  schoolcal.Clock
	logger *slog.Logger
}

// NewAdminNotifier creates an AdminNotifier.
func NewAdminNotifier(repo notification.Repository, clock schoolcal.Clock, logger *slog.Logger) *AdminNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = schoolcal.SystemClock{}
	}
	return &AdminNotifier{repo: repo, clock: clock, logger: logger}
}

// NotifyAdminOfStudentRisk stores an in-app notification for the school's
// administrators.
func (a *AdminNotifier) NotifyAdminOfStudentRisk(ctx context.Context, alert notification.StudentRiskAlert) error {
	kind := alert.Kind
	if kind == "" {
		kind = notification.TypeRiskLevelChanged
	}
	now := a.clock.Now()

	n, err := notification.New(
		uuid.New().String(),
		alert.SchoolID,
		alert.StudentID,
		kind,
		notification.RecipientAdmin,
		notification.ChannelInApp,
		alert.Severity,
		alertTitle(alert),
		alert.Message,
		now,
	)
	if err != nil {
		return fmt.Errorf("admin notifier: build notification: %w", err)
	}

	// In-app rows are delivered the moment they are stored.
	n.MarkSent(now)

	if err := a.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("admin notifier: store notification: %w", err)
	}

	a.logger.Info("admin notified",
		"student_id", alert.StudentID,
		"type", string(kind),
		"severity", alert.Severity,
	)
	return nil
}

// alertTitle derives a short title for the stored notification row.
func alertTitle(alert notification.StudentRiskAlert) string {
	if alert.RiskType != "" {
		return fmt.Sprintf("%s risk: %s", alert.RiskType, alert.StudentName)
	}
	return fmt.Sprintf("Risk level %s: %s", alert.Severity, alert.StudentName)
}

// ══════════════════════════════════════════════════════════════════════════════
// GUARDIAN NOTIFIER
// ══════════════════════════════════════════════════════════════════════════════

// SMSSender delivers one text message. Implemented by the SMS gateway
// client in infrastructure/external/sms.
type SMSSender interface {
	Send(ctx context.Context, to, message string) error
}

// StudentReader is the slice of student.Repository the guardian notifier
// needs to resolve guardian contacts.
type StudentReader interface {
	GetByID(ctx context.Context, id string) (*student.Student, error)
}

// GuardianNotifier implements notification.GuardianSink over SMS. Every
// reachable guardian with a phone number gets the alert; a student with no
// reachable guardian is reported so the gap shows up in the delivery audit.
type GuardianNotifier struct {
	students StudentReader
	sms      SMSSender
	repo     notification.Repository
	clock    schoolcal.Clock
	logger   *slog.Logger
}

// NewGuardianNotifier creates a GuardianNotifier.
func NewGuardianNotifier(students StudentReader, sms SMSSender, repo notification.Repository, clock schoolcal.Clock, logger *slog.Logger) *GuardianNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = schoolcal.SystemClock{}
	}
	return &GuardianNotifier{
		students: students,
		sms:      sms,
		repo:     repo,
		clock:    clock,
		logger:   logger,
	}
}

// NotifyGuardiansOfRisk sends the alert to every guardian with a phone
// number and records the outcome per send. A partial delivery returns the
// first send error after attempting all guardians.
func (g *GuardianNotifier) NotifyGuardiansOfRisk(ctx context.Context, alert notification.StudentRiskAlert) error {
	st, err := g.students.GetByID(ctx, alert.StudentID)
	if err != nil {
		return fmt.Errorf("guardian notifier: load student: %w", err)
	}

	guardians := st.ReachableGuardians()
	if len(guardians) == 0 {
		return shared.ErrNoGuardianContact
	}

	kind := alert.Kind
	if kind == "" {
		kind = notification.TypeRiskLevelChanged
	}

	var firstErr error
	for _, guardian := range guardians {
		if guardian.Phone == "" {
			continue
		}
		if err := g.notifyOne(ctx, alert, kind, guardian.Name, string(guardian.Phone)); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// notifyOne sends one SMS and records the delivery outcome.
func (g *GuardianNotifier) notifyOne(ctx context.Context, alert notification.StudentRiskAlert, kind notification.Type, guardianName, phone string) error {
	now := g.clock.Now()

	n, err := notification.New(
		uuid.New().String(),
		alert.SchoolID,
		alert.StudentID,
		kind,
		notification.RecipientGuardian,
		notification.ChannelSMS,
		alert.Severity,
		alertTitle(alert),
		guardianMessage(alert, now),
		now,
	)
	if err != nil {
		return fmt.Errorf("guardian notifier: build notification: %w", err)
	}

	sendErr := g.sms.Send(ctx, phone, n.Message)
	if sendErr != nil {
		n.MarkFailed(sendErr, g.clock.Now())
		g.logger.Error("guardian SMS failed",
			"student_id", alert.StudentID,
			"guardian", guardianName,
			"error", sendErr,
		)
	} else {
		n.MarkSent(g.clock.Now())
	}

	if err := g.repo.Create(ctx, n); err != nil {
		// The SMS may already be out; losing the audit row is the lesser
		// problem but still worth surfacing.
		g.logger.Error("failed to store guardian notification",
			"student_id", alert.StudentID, "error", err)
		if sendErr == nil {
			return err
		}
	}

	return sendErr
}

// guardianMessage renders the SMS body sent to guardians.
func guardianMessage(alert notification.StudentRiskAlert, now time.Time) string {
	ts := now.In(schoolcal.KigaliTZ).Format("02 Jan")
	return fmt.Sprintf("EduGuard %s: %s needs attention (%s risk). Please contact the school. %s",
		ts, alert.StudentName, alert.Severity, alert.Message)
}
