// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"context"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Every mutation of a ranking collaborator emits one of
// the collaborator events; the ranking engine subscribes to them.
const (
	// Student directory events
	EventStudentSaved   EventType = "student.saved"
	EventStudentDeleted EventType = "student.deleted"

	// Attendance ledger events
	EventAttendanceRecorded EventType = "attendance.recorded"
	EventAttendanceDeleted  EventType = "attendance.deleted"

	// Progress tracker events
	EventPlanSaved   EventType = "progress.plan_saved"
	EventTaskToggled EventType = "progress.task_toggled"
	EventPlanDeleted EventType = "progress.plan_deleted"

	// Quiz log events
	EventQuizSubmitted EventType = "quiz.submitted"

	// Ranking events
	EventRankingRecalculated EventType = "ranking.recalculated"
)

// CollaboratorEvents lists every event that changes a ranking input.
var CollaboratorEvents = []EventType{
	EventStudentSaved,
	EventStudentDeleted,
	EventAttendanceRecorded,
	EventAttendanceDeleted,
	EventPlanSaved,
	EventTaskToggled,
	EventPlanDeleted,
	EventQuizSubmitted,
}

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
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Collaborator Events
// ═══════════════════════════════════════════════════════════════════════════

// CollaboratorChangedEvent is emitted by every leaf collaborator mutation.
// StudentID is the affected student, EntityID the mutated record.
type CollaboratorChangedEvent struct {
	BaseEvent
	StudentID StudentID `json:"student_id"`
	EntityID  string    `json:"entity_id,omitempty"`
}

// Payload implements Event interface.
func (e CollaboratorChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID.String(),
		"entity_id":  e.EntityID,
	}
}

// NewCollaboratorChangedEvent creates a new CollaboratorChangedEvent.
func NewCollaboratorChangedEvent(eventType EventType, studentID StudentID, entityID string) CollaboratorChangedEvent {
	aggregate := entityID
	if aggregate == "" {
		aggregate = studentID.String()
	}
	return CollaboratorChangedEvent{
		BaseEvent: NewBaseEvent(eventType, aggregate),
		StudentID: studentID,
		EntityID:  entityID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Ranking Events
// ═══════════════════════════════════════════════════════════════════════════

// RankingRecalculatedEvent is emitted after a recompute pass replaced the snapshot.
type RankingRecalculatedEvent struct {
	BaseEvent
	SnapshotID    string        `json:"snapshot_id"`
	TotalStudents int           `json:"total_students"`
	Orphans       int           `json:"orphans"`
	Trigger       EventType     `json:"trigger,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// Payload implements Event interface.
func (e RankingRecalculatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"snapshot_id":    e.SnapshotID,
		"total_students": e.TotalStudents,
		"orphans":        e.Orphans,
		"trigger":        string(e.Trigger),
		"duration_ms":    e.Duration.Milliseconds(),
	}
}

// NewRankingRecalculatedEvent creates a new RankingRecalculatedEvent.
func NewRankingRecalculatedEvent(snapshotID string, total, orphans int, trigger EventType, d time.Duration) RankingRecalculatedEvent {
	return RankingRecalculatedEvent{
		BaseEvent:     NewBaseEvent(EventRankingRecalculated, snapshotID),
		SnapshotID:    snapshotID,
		TotalStudents: total,
		Orphans:       orphans,
		Trigger:       trigger,
		Duration:      d,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(ctx context.Context, event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(ctx context.Context, event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }
