package notification

import (
	"context"
	"log/slog"
	"sync"
)

// StudentRiskAlert is the payload the risk engine hands to the notification
// sinks. Severity and risk type travel as strings so the notification model
// stays decoupled from the risk package.
type StudentRiskAlert struct {
	StudentID   string
	SchoolID    string
	StudentName string
	Severity    string
	RiskType    string
	Message     string

	// Kind classifies the alert for the stored notification row.
	Kind Type
}

// AdminSink notifies school administrators about a student's risk. The
// reconciler and aggregator await this call inline: a failure here is a
// reconciliation failure.
type AdminSink interface {
	NotifyAdminOfStudentRisk(ctx context.Context, alert StudentRiskAlert) error
}

// GuardianSink notifies a student's guardians over SMS/email. Callers must
// never await it on the reconciliation path - use AsyncGuardianNotifier.
type GuardianSink interface {
	NotifyGuardiansOfRisk(ctx context.Context, alert StudentRiskAlert) error
}

// AsyncGuardianNotifier wraps a GuardianSink with the fire-and-forget
// contract: Notify returns immediately, the send runs in a background
// goroutine, and a delivery failure is logged and swallowed. It must never
// block or fail the reconciliation that triggered it.
type AsyncGuardianNotifier struct {
	sink   GuardianSink
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewAsyncGuardianNotifier builds the async wrapper.
func NewAsyncGuardianNotifier(sink GuardianSink, logger *slog.Logger) *AsyncGuardianNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &AsyncGuardianNotifier{sink: sink, logger: logger}
}

// Notify dispatches the alert in the background. The spawned send uses a
// fresh context: the triggering request finishing (or failing) must not
// cancel an in-flight guardian alert.
func (a *AsyncGuardianNotifier) Notify(alert StudentRiskAlert) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("guardian notification panicked",
					"student_id", alert.StudentID, "panic", r)
			}
		}()
		if err := a.sink.NotifyGuardiansOfRisk(context.Background(), alert); err != nil {
			a.logger.Error("guardian notification failed",
				"student_id", alert.StudentID,
				"severity", alert.Severity,
				"error", err,
			)
		}
	}()
}

// Wait blocks until every in-flight send has finished. Used during shutdown
// and by tests.
func (a *AsyncGuardianNotifier) Wait() {
	a.wg.Wait()
}
