package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduguard/eduguard-backend/internal/domain/notification"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/internal/domain/student"
	"github.com/eduguard/eduguard-backend/pkg/schoolcal"
)

var notifierNow = schoolcal.Date(2025, 3, 12).Add(14 * time.Hour)

type storedNotifications struct {
	rows      []*notification.Notification
	createErr error
}

func (r *storedNotifications) Create(_ context.Context, n *notification.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.rows = append(r.rows, n)
	return nil
}

func (r *storedNotifications) Update(context.Context, *notification.Notification) error { return nil }

func (r *storedNotifications) ListBySchool(context.Context, string, int) ([]*notification.Notification, error) {
	return nil, nil
}

func (r *storedNotifications) ListByStudent(context.Context, string, int) ([]*notification.Notification, error) {
	return nil, nil
}

type recordedSend struct {
	to      string
	message string
}

type fakeSMS struct {
	sends []recordedSend
	err   error
}

func (s *fakeSMS) Send(_ context.Context, to, message string) error {
	if s.err != nil {
		return s.err
	}
	s.sends = append(s.sends, recordedSend{to: to, message: message})
	return nil
}

type singleStudentReader struct {
	st *student.Student
}

func (r singleStudentReader) GetByID(_ context.Context, id string) (*student.Student, error) {
	if r.st != nil && r.st.ID == id {
		return r.st, nil
	}
	return nil, shared.ErrStudentNotFound
}

func notifierStudent(t *testing.T, guardians ...student.Guardian) *student.Student {
	t.Helper()
	st, err := student.NewStudent("st-1", "sch-1", "Aline", "Uwase", "P5", student.SocioEconomicProfile{
		UbudeheLevel: 3,
		HasParents:   true,
		FamilyStable: true,
	}, notifierNow)
	require.NoError(t, err)
	st.Guardians = guardians
	return st
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN NOTIFIER
// ══════════════════════════════════════════════════════════════════════════════

func TestAdminNotifier_StoresSentRow(t *testing.T) {
	repo := &storedNotifications{}
	n := NewAdminNotifier(repo, schoolcal.FixedClock{Instant: notifierNow}, quietLogger())

	err := n.NotifyAdminOfStudentRisk(context.Background(), notification.StudentRiskAlert{
		StudentID:   "st-1",
		SchoolID:    "sch-1",
		StudentName: "Aline Uwase",
		Severity:    "HIGH",
		RiskType:    "ATTENDANCE",
		Message:     "3 absences this week.",
		Kind:        notification.TypeRiskFlagCreated,
	})
	require.NoError(t, err)

	require.Len(t, repo.rows, 1)
	row := repo.rows[0]
	assert.Equal(t, notification.TypeRiskFlagCreated, row.Type)
	assert.Equal(t, notification.RecipientAdmin, row.Recipient)
	assert.Equal(t, notification.ChannelInApp, row.Channel)
	assert.Equal(t, notification.StatusSent, row.Status)
	assert.Equal(t, "ATTENDANCE risk: Aline Uwase", row.Title)
}

func TestAdminNotifier_DefaultsKindAndTitle(t *testing.T) {
	repo := &storedNotifications{}
	n := NewAdminNotifier(repo, schoolcal.FixedClock{Instant: notifierNow}, quietLogger())

	err := n.NotifyAdminOfStudentRisk(context.Background(), notification.StudentRiskAlert{
		StudentID:   "st-1",
		SchoolID:    "sch-1",
		StudentName: "Aline Uwase",
		Severity:    "LOW",
		Message:     "All flags resolved.",
	})
	require.NoError(t, err)

	require.Len(t, repo.rows, 1)
	assert.Equal(t, notification.TypeRiskLevelChanged, repo.rows[0].Type)
	assert.Equal(t, "Risk level LOW: Aline Uwase", repo.rows[0].Title)
}

func TestAdminNotifier_StoreFailureSurfaces(t *testing.T) {
	repo := &storedNotifications{createErr: errors.New("postgres down")}
	n := NewAdminNotifier(repo, schoolcal.FixedClock{Instant: notifierNow}, quietLogger())

	err := n.NotifyAdminOfStudentRisk(context.Background(), notification.StudentRiskAlert{
		StudentID: "st-1", SchoolID: "sch-1", Severity: "HIGH", Message: "m",
	})
	assert.Error(t, err)
}

// ══════════════════════════════════════════════════════════════════════════════
// GUARDIAN NOTIFIER
// ══════════════════════════════════════════════════════════════════════════════

func TestGuardianNotifier_SendsToEveryReachableGuardian(t *testing.T) {
	st := notifierStudent(t,
		student.Guardian{Name: "Chantal", Relationship: "mother", Phone: "+250788123456"},
		student.Guardian{Name: "Jean", Relationship: "uncle", Phone: "+250722987654"},
		student.Guardian{Name: "NoContact", Relationship: "aunt"},
	)
	sms := &fakeSMS{}
	repo := &storedNotifications{}
	n := NewGuardianNotifier(singleStudentReader{st: st}, sms, repo, schoolcal.FixedClock{Instant: notifierNow}, quietLogger())

	err := n.NotifyGuardiansOfRisk(context.Background(), notification.StudentRiskAlert{
		StudentID:   "st-1",
		SchoolID:    "sch-1",
		StudentName: "Aline Uwase",
		Severity:    "HIGH",
		Message:     "Repeated absences.",
		Kind:        notification.TypeRiskEscalated,
	})
	require.NoError(t, err)

	require.Len(t, sms.sends, 2)
	assert.Equal(t, "+250788123456", sms.sends[0].to)
	assert.Contains(t, sms.sends[0].message, "Aline Uwase")
	assert.Contains(t, sms.sends[0].message, "HIGH")

	// One audit row per attempted guardian.
	require.Len(t, repo.rows, 2)
	for _, row := range repo.rows {
		assert.Equal(t, notification.RecipientGuardian, row.Recipient)
		assert.Equal(t, notification.ChannelSMS, row.Channel)
		assert.Equal(t, notification.StatusSent, row.Status)
	}
}

func TestGuardianNotifier_NoReachableGuardian(t *testing.T) {
	st := notifierStudent(t, student.Guardian{Name: "NoContact", Relationship: "aunt"})
	n := NewGuardianNotifier(singleStudentReader{st: st}, &fakeSMS{}, &storedNotifications{}, schoolcal.FixedClock{Instant: notifierNow}, quietLogger())

	err := n.NotifyGuardiansOfRisk(context.Background(), notification.StudentRiskAlert{StudentID: "st-1", SchoolID: "sch-1", Message: "m"})
	assert.ErrorIs(t, err, shared.ErrNoGuardianContact)
}

func TestGuardianNotifier_SendFailureRecordedAndReported(t *testing.T) {
	st := notifierStudent(t, student.Guardian{Name: "Chantal", Relationship: "mother", Phone: "+250788123456"})
	smsErr := errors.New("gateway timeout")
	repo := &storedNotifications{}
	n := NewGuardianNotifier(singleStudentReader{st: st}, &fakeSMS{err: smsErr}, repo, schoolcal.FixedClock{Instant: notifierNow}, quietLogger())

	err := n.NotifyGuardiansOfRisk(context.Background(), notification.StudentRiskAlert{
		StudentID: "st-1", SchoolID: "sch-1", StudentName: "Aline Uwase", Severity: "HIGH", Message: "m",
	})
	assert.ErrorIs(t, err, smsErr)

	// The failed attempt still lands in the audit trail.
	require.Len(t, repo.rows, 1)
	assert.Equal(t, notification.StatusFailed, repo.rows[0].Status)
	assert.Equal(t, "gateway timeout", repo.rows[0].LastErr)
}

func TestGuardianNotifier_UnknownStudent(t *testing.T) {
	n := NewGuardianNotifier(singleStudentReader{}, &fakeSMS{}, &storedNotifications{}, schoolcal.FixedClock{Instant: notifierNow}, quietLogger())

	err := n.NotifyGuardiansOfRisk(context.Background(), notification.StudentRiskAlert{StudentID: "st-missing", Message: "m"})
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)
}

func TestUUIDGenerator(t *testing.T) {
	gen := UUIDGenerator{}
	a, b := gen.NewID(), gen.NewID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
