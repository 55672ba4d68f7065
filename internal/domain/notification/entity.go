// Package notification contains the notification model for EduGuard.
// Notifications are how risk detection reaches people: school administrators
// get in-app alerts, guardians get SMS/email. The engine decides *when* to
// notify; this package models *what* is sent and through which channel.
package notification

import (
	"time"

	"github.com/eduguard/eduguard-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION TYPE
// ══════════════════════════════════════════════════════════════════════════════

// Type defines the kind of notification.
type Type string

const (
	// TypeRiskFlagCreated - a new risk flag was raised for a student.
	TypeRiskFlagCreated Type = "risk_flag_created"

	// TypeRiskEscalated - an existing flag's severity strictly increased.
	TypeRiskEscalated Type = "risk_escalated"

	// TypeRiskLevelChanged - the student's overall risk level moved.
	TypeRiskLevelChanged Type = "risk_level_changed"

	// TypeRiskContinuing - the student's elevated risk level persists
	// unchanged after a detection run.
	TypeRiskContinuing Type = "risk_continuing"

	// TypeRiskReduced - all flags resolved, level back to LOW.
	TypeRiskReduced Type = "risk_reduced"

	// TypeFlagResolved - a flag was manually resolved by an administrator.
	TypeFlagResolved Type = "flag_resolved"
)

// IsValid checks that the notification type is known.
func (t Type) IsValid() bool {
	switch t {
	case TypeRiskFlagCreated, TypeRiskEscalated, TypeRiskLevelChanged,
		TypeRiskContinuing, TypeRiskReduced, TypeFlagResolved:
		return true
	default:
		return false
	}
}

// RecipientKind distinguishes the two notification audiences.
type RecipientKind string

const (
	// RecipientAdmin - school administrators, notified in-app and awaited
	// inline as part of reconciliation.
	RecipientAdmin RecipientKind = "admin"

	// RecipientGuardian - parents/caretakers, notified over SMS/email,
	// always fire-and-forget.
	RecipientGuardian RecipientKind = "guardian"
)

// Status tracks delivery of a notification row.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Notification is one alert addressed to one audience about one student.
type Notification struct {
	ID        string
	SchoolID  string
	StudentID string

	Type      Type
	Recipient RecipientKind
	Channel   Channel

	// Severity is the risk severity or level the alert reports, stored as
	// its string form to keep this package decoupled from the risk model.
	Severity string

	Title   string
	Message string

	Status   Status
	SentAt   *time.Time
	FailedAt *time.Time
	LastErr  string

	CreatedAt time.Time
}

// New builds a pending notification.
func New(id, schoolID, studentID string, typ Type, recipient RecipientKind, channel Channel, severity, title, message string, now time.Time) (*Notification, error) {
	if id == "" || schoolID == "" || studentID == "" {
		return nil, shared.NewDomainError("notification", "New", shared.ErrInvalidID, "id, school ID and student ID are required")
	}
	if !typ.IsValid() {
		return nil, shared.NewDomainError("notification", "New", shared.ErrInvalidInput, "unknown notification type")
	}
	if !channel.IsValid() {
		return nil, shared.ErrInvalidChannel
	}
	if message == "" {
		return nil, shared.NewDomainError("notification", "New", shared.ErrEmptyValue, "message is required")
	}

	return &Notification{
		ID:        id,
		SchoolID:  schoolID,
		StudentID: studentID,
		Type:      typ,
		Recipient: recipient,
		Channel:   channel,
		Severity:  severity,
		Title:     title,
		Message:   message,
		Status:    StatusPending,
		CreatedAt: now,
	}, nil
}

// MarkSent records successful delivery.
func (n *Notification) MarkSent(now time.Time) {
	n.Status = StatusSent
	t := now
	n.SentAt = &t
}

// MarkFailed records a delivery failure.
func (n *Notification) MarkFailed(err error, now time.Time) {
	n.Status = StatusFailed
	t := now
	n.FailedAt = &t
	if err != nil {
		n.LastErr = err.Error()
	}
}
