package notification

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

	"github.com/eduguard/eduguard-backend/internal/domain/shared"
)

var notifyNow = time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

func TestNew_BuildsPendingNotification(t *testing.T) {
	n, err := New("nt-1", "sch-1", "st-1",
		TypeRiskFlagCreated, RecipientAdmin, ChannelInApp,
		"HIGH", "New risk flag", "A new risk flag was raised.", notifyNow)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, n.Status)
	assert.Equal(t, TypeRiskFlagCreated, n.Type)
	assert.Equal(t, RecipientAdmin, n.Recipient)
	assert.Equal(t, ChannelInApp, n.Channel)
	assert.Equal(t, "HIGH", n.Severity)
	assert.Nil(t, n.SentAt)
	assert.Nil(t, n.FailedAt)
	assert.Equal(t, notifyNow, n.CreatedAt)
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", "sch-1", "st-1", TypeRiskFlagCreated, RecipientAdmin, ChannelInApp, "HIGH", "t", "m", notifyNow)
	assert.ErrorIs(t, err, shared.ErrInvalidID)

	_, err = New("nt-1", "sch-1", "st-1", Type("bogus"), RecipientAdmin, ChannelInApp, "HIGH", "t", "m", notifyNow)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = New("nt-1", "sch-1", "st-1", TypeRiskFlagCreated, RecipientAdmin, Channel("pigeon"), "HIGH", "t", "m", notifyNow)
	assert.ErrorIs(t, err, shared.ErrInvalidChannel)

	_, err = New("nt-1", "sch-1", "st-1", TypeRiskFlagCreated, RecipientAdmin, ChannelInApp, "HIGH", "t", "", notifyNow)
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
}

func TestNotification_DeliveryTransitions(t *testing.T) {
	n, err := New("nt-1", "sch-1", "st-1",
		TypeRiskEscalated, RecipientGuardian, ChannelSMS,
		"CRITICAL", "Risk escalated", "Risk escalated to critical.", notifyNow)
	require.NoError(t, err)

	sentAt := notifyNow.Add(time.Minute)
	n.MarkSent(sentAt)
	assert.Equal(t, StatusSent, n.Status)
	require.NotNil(t, n.SentAt)
	assert.Equal(t, sentAt, *n.SentAt)

	failedAt := notifyNow.Add(2 * time.Minute)
	n.MarkFailed(errors.New("gateway timeout"), failedAt)
	assert.Equal(t, StatusFailed, n.Status)
	require.NotNil(t, n.FailedAt)
	assert.Equal(t, "gateway timeout", n.LastErr)
}

func TestTypeIsValid(t *testing.T) {
	for _, typ := range []Type{
		TypeRiskFlagCreated, TypeRiskEscalated, TypeRiskLevelChanged,
		TypeRiskContinuing, TypeRiskReduced, TypeFlagResolved,
	} {
		assert.True(t, typ.IsValid(), string(typ))
	}
	assert.False(t, Type("bogus").IsValid())
}

func TestChannelIsValid(t *testing.T) {
	assert.True(t, ChannelInApp.IsValid())
	assert.True(t, ChannelSMS.IsValid())
	assert.True(t, ChannelEmail.IsValid())
	assert.False(t, Channel("pigeon").IsValid())
}

// ══════════════════════════════════════════════════════════════════════════════
// ASYNC GUARDIAN NOTIFIER
// ══════════════════════════════════════════════════════════════════════════════

type recordingGuardianSink struct {
	mu     sync.Mutex
	alerts []StudentRiskAlert
	err    error
	panics bool
}

func (s *recordingGuardianSink) NotifyGuardiansOfRisk(_ context.Context, alert StudentRiskAlert) error {
	if s.panics {
		panic("sink exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
	return s.err
}

func (s *recordingGuardianSink) sent() []StudentRiskAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StudentRiskAlert(nil), s.alerts...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAsyncGuardianNotifier_DeliversInBackground(t *testing.T) {
	sink := &recordingGuardianSink{}
	notifier := NewAsyncGuardianNotifier(sink, discardLogger())

	notifier.Notify(StudentRiskAlert{StudentID: "st-1", Severity: "HIGH", Kind: TypeRiskFlagCreated})
	notifier.Notify(StudentRiskAlert{StudentID: "st-2", Severity: "CRITICAL", Kind: TypeRiskEscalated})
	notifier.Wait()

	assert.Len(t, sink.sent(), 2)
}

func TestAsyncGuardianNotifier_SwallowsSinkErrors(t *testing.T) {
	sink := &recordingGuardianSink{err: errors.New("sms gateway down")}
	notifier := NewAsyncGuardianNotifier(sink, discardLogger())

	notifier.Notify(StudentRiskAlert{StudentID: "st-1"})
	notifier.Wait()

	assert.Len(t, sink.sent(), 1)
}

func TestAsyncGuardianNotifier_RecoversSinkPanic(t *testing.T) {
	sink := &recordingGuardianSink{panics: true}
	notifier := NewAsyncGuardianNotifier(sink, discardLogger())

	notifier.Notify(StudentRiskAlert{StudentID: "st-1"})
	notifier.Wait()
}
