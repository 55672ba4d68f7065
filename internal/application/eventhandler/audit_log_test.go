package eventhandler

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/internal/infrastructure/messaging"
)

func newAuditLog() *AuditLogHandler {
	return NewAuditLogHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandle_CountsEventsByType(t *testing.T) {
	h := newAuditLog()

	require.NoError(t, h.Handle(shared.NewRiskFlagCreatedEvent("flag-1", "st-1", "sch-1", "ATTENDANCE", "HIGH", "High Weekly Absence")))
	require.NoError(t, h.Handle(shared.NewRiskFlagCreatedEvent("flag-2", "st-2", "sch-1", "DISTANCE", "MEDIUM", "Long Commute")))
	require.NoError(t, h.Handle(shared.NewStudentRegisteredEvent("st-3", "sch-1", "Aline Uwase")))

	totals := h.Totals()
	assert.Equal(t, int64(2), totals[shared.EventRiskFlagCreated])
	assert.Equal(t, int64(1), totals[shared.EventStudentRegistered])
	assert.Zero(t, totals[shared.EventRiskFlagResolved])
}

func TestHandle_NilEventIsIgnored(t *testing.T) {
	h := newAuditLog()

	require.NoError(t, h.Handle(nil))
	assert.Empty(t, h.Totals())
}

func TestTotals_ReturnsSnapshotCopy(t *testing.T) {
	h := newAuditLog()
	require.NoError(t, h.Handle(shared.NewStudentRegisteredEvent("st-1", "sch-1", "Aline Uwase")))

	snapshot := h.Totals()
	snapshot[shared.EventStudentRegistered] = 99

	assert.Equal(t, int64(1), h.Totals()[shared.EventStudentRegistered])
}

func TestRegister_ReceivesPublishedEvents(t *testing.T) {
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{
		AsyncMode: false,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	defer func() { require.NoError(t, bus.Close()) }()

	h := newAuditLog()
	require.NoError(t, h.Register(bus))

	require.NoError(t, bus.Publish(shared.NewRiskLevelChangedEvent("st-1", "sch-1", "LOW", "HIGH")))
	require.NoError(t, bus.Publish(shared.NewRiskFlagResolvedEvent("flag-1", "st-1", "ATTENDANCE", "admin-1", false)))

	totals := h.Totals()
	assert.Equal(t, int64(1), totals[shared.EventRiskLevelChanged])
	assert.Equal(t, int64(1), totals[shared.EventRiskFlagResolved])
}
