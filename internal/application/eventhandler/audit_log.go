// Package eventhandler contains the consumers of domain events. Handlers
// here are the reactive side of the system: they run side effects like
// audit logging after a command has already committed its changes.
package eventhandler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/eduguard/eduguard-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUDIT LOG HANDLER
//
// Subscribes to every domain event and writes a structured audit record.
// Flag and risk-level changes are the trail a dropout-prevention officer
// reads back, so those log at INFO; the rest stay at DEBUG.
// ══════════════════════════════════════════════════════════════════════════════

// AuditLogHandler records every published domain event.
type AuditLogHandler struct {
	logger *slog.Logger

	mu     sync.Mutex
	totals map[shared.EventType]int64
}

// NewAuditLogHandler creates a new AuditLogHandler.
func NewAuditLogHandler(logger *slog.Logger) *AuditLogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogHandler{
		logger: logger.With("handler", "audit_log"),
		totals: make(map[shared.EventType]int64),
	}
}

// Register subscribes the handler to every event on the bus.
func (h *AuditLogHandler) Register(bus shared.EventSubscriber) error {
	return bus.SubscribeAll(h.Handle)
}

// Handle implements shared.EventHandler.
func (h *AuditLogHandler) Handle(event shared.Event) error {
	if event == nil {
		return nil
	}

	h.mu.Lock()
	h.totals[event.EventType()]++
	h.mu.Unlock()

	level := slog.LevelDebug
	switch event.EventType() {
	case shared.EventRiskFlagCreated,
		shared.EventRiskFlagEscalated,
		shared.EventRiskFlagResolved,
		shared.EventRiskLevelChanged:
		level = slog.LevelInfo
	}

	h.logger.Log(context.Background(), level, "domain event",
		"event_type", string(event.EventType()),
		"aggregate_id", event.AggregateID(),
		"occurred_at", event.OccurredAt(),
		"payload", event.Payload(),
	)
	return nil
}

// Totals returns a snapshot of per-type event counts since startup.
func (h *AuditLogHandler) Totals() map[shared.EventType]int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	snapshot := make(map[shared.EventType]int64, len(h.totals))
	for k, v := range h.totals {
		snapshot[k] = v
	}
	return snapshot
}
