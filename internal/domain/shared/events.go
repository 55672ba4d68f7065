// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven notification fan-out.
// Each event represents something significant that happened in the domain.
const (
	// Student events
	EventStudentRegistered  EventType = "student.registered"
	EventStudentDeactivated EventType = "student.deactivated"
	EventRiskLevelChanged   EventType = "student.risk_level_changed"

	// Academics events
	EventAttendanceRecorded  EventType = "academics.attendance_recorded"
	EventPerformanceRecorded EventType = "academics.performance_recorded"

	// Risk flag events
	EventRiskFlagCreated   EventType = "risk.flag_created"
	EventRiskFlagEscalated EventType = "risk.flag_escalated"
	EventRiskFlagUpdated   EventType = "risk.flag_updated"
	EventRiskFlagResolved  EventType = "risk.flag_resolved"

	// Notification events
	EventNotificationSent   EventType = "notification.sent"
	EventNotificationFailed EventType = "notification.failed"

	// System events
	EventDetectionCompleted EventType = "system.detection_completed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Risk Flag Events
// ═══════════════════════════════════════════════════════════════════════════

// RiskFlagCreatedEvent is emitted when the reconciler creates a new flag.
type RiskFlagCreatedEvent struct {
	BaseEvent
	FlagID    string `json:"flag_id"`
	StudentID string `json:"student_id"`
	SchoolID  string `json:"school_id"`
	RiskType  string `json:"risk_type"`
	Severity  string `json:"severity"`
	Title     string `json:"title"`
}

// Payload implements Event interface.
func (e RiskFlagCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"flag_id":    e.FlagID,
		"student_id": e.StudentID,
		"school_id":  e.SchoolID,
		"risk_type":  e.RiskType,
		"severity":   e.Severity,
		"title":      e.Title,
	}
}

// NewRiskFlagCreatedEvent creates a new RiskFlagCreatedEvent.
func NewRiskFlagCreatedEvent(flagID, studentID, schoolID, riskType, severity, title string) RiskFlagCreatedEvent {
	return RiskFlagCreatedEvent{
		BaseEvent: NewBaseEvent(EventRiskFlagCreated, studentID),
		FlagID:    flagID,
		StudentID: studentID,
		SchoolID:  schoolID,
		RiskType:  riskType,
		Severity:  severity,
		Title:     title,
	}
}

// RiskFlagEscalatedEvent is emitted when an existing flag's severity strictly
// increases during reconciliation.
type RiskFlagEscalatedEvent struct {
	BaseEvent
	FlagID       string `json:"flag_id"`
	StudentID    string `json:"student_id"`
	SchoolID     string `json:"school_id"`
	RiskType     string `json:"risk_type"`
	FromSeverity string `json:"from_severity"`
	ToSeverity   string `json:"to_severity"`
}

// Payload implements Event interface.
func (e RiskFlagEscalatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"flag_id":       e.FlagID,
		"student_id":    e.StudentID,
		"school_id":     e.SchoolID,
		"risk_type":     e.RiskType,
		"from_severity": e.FromSeverity,
		"to_severity":   e.ToSeverity,
	}
}

// NewRiskFlagEscalatedEvent creates a new RiskFlagEscalatedEvent.
func NewRiskFlagEscalatedEvent(flagID, studentID, schoolID, riskType, from, to string) RiskFlagEscalatedEvent {
	return RiskFlagEscalatedEvent{
		BaseEvent:    NewBaseEvent(EventRiskFlagEscalated, studentID),
		FlagID:       flagID,
		StudentID:    studentID,
		SchoolID:     schoolID,
		RiskType:     riskType,
		FromSeverity: from,
		ToSeverity:   to,
	}
}

// RiskFlagResolvedEvent is emitted when a flag is resolved, either
// automatically by the reconciler or manually by an administrator.
type RiskFlagResolvedEvent struct {
	BaseEvent
	FlagID     string `json:"flag_id"`
	StudentID  string `json:"student_id"`
	RiskType   string `json:"risk_type"`
	ResolvedBy string `json:"resolved_by"`
	Automatic  bool   `json:"automatic"`
}

// Payload implements Event interface.
func (e RiskFlagResolvedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"flag_id":     e.FlagID,
		"student_id":  e.StudentID,
		"risk_type":   e.RiskType,
		"resolved_by": e.ResolvedBy,
		"automatic":   e.Automatic,
	}
}

// NewRiskFlagResolvedEvent creates a new RiskFlagResolvedEvent.
func NewRiskFlagResolvedEvent(flagID, studentID, riskType, resolvedBy string, automatic bool) RiskFlagResolvedEvent {
	return RiskFlagResolvedEvent{
		BaseEvent:  NewBaseEvent(EventRiskFlagResolved, studentID),
		FlagID:     flagID,
		StudentID:  studentID,
		RiskType:   riskType,
		ResolvedBy: resolvedBy,
		Automatic:  automatic,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Student Events
// ═══════════════════════════════════════════════════════════════════════════

// RiskLevelChangedEvent is emitted when the aggregator moves a student's
// overall risk level.
type RiskLevelChangedEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	SchoolID  string `json:"school_id"`
	FromLevel string `json:"from_level"`
	ToLevel   string `json:"to_level"`
}

// Payload implements Event interface.
func (e RiskLevelChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"school_id":  e.SchoolID,
		"from_level": e.FromLevel,
		"to_level":   e.ToLevel,
	}
}

// NewRiskLevelChangedEvent creates a new RiskLevelChangedEvent.
func NewRiskLevelChangedEvent(studentID, schoolID, from, to string) RiskLevelChangedEvent {
	return RiskLevelChangedEvent{
		BaseEvent: NewBaseEvent(EventRiskLevelChanged, studentID),
		StudentID: studentID,
		SchoolID:  schoolID,
		FromLevel: from,
		ToLevel:   to,
	}
}

// StudentRegisteredEvent is emitted when a new student is enrolled.
type StudentRegisteredEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	SchoolID  string `json:"school_id"`
	FullName  string `json:"full_name"`
}

// Payload implements Event interface.
func (e StudentRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"school_id":  e.SchoolID,
		"full_name":  e.FullName,
	}
}

// NewStudentRegisteredEvent creates a new StudentRegisteredEvent.
func NewStudentRegisteredEvent(studentID, schoolID, fullName string) StudentRegisteredEvent {
	return StudentRegisteredEvent{
		BaseEvent: NewBaseEvent(EventStudentRegistered, studentID),
		StudentID: studentID,
		SchoolID:  schoolID,
		FullName:  fullName,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Interfaces
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NoopPublisher is an EventPublisher that drops every event.
// Used in tests and in commands where event fan-out is optional.
type NoopPublisher struct{}

// Publish implements EventPublisher.
func (NoopPublisher) Publish(Event) error { return nil }
