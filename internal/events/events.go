package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "aptitude-service"
	EventVersion = "1.0"
)

type EventType string

const (
	EventAttemptStarted     EventType = "attempt.started"
	EventAttemptSubmitted   EventType = "attempt.submitted"
	EventAttemptMarked      EventType = "attempt.marked"
	EventAttemptApproved    EventType = "attempt.approved"
	EventAttemptRejected    EventType = "attempt.rejected"
	EventAssignmentCreated  EventType = "assignment.created"
	EventAssignmentExpired  EventType = "assignment.expired"
	EventAssignmentFinished EventType = "assignment.completed"
)

// Event is the envelope published for every domain change
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type AttemptEventData struct {
	AttemptID    uint     `json:"attemptId"`
	AssignmentID uint     `json:"assignmentId"`
	UserID       string   `json:"userId"`
	TemplateID   uint     `json:"templateId"`
	Status       string   `json:"status"`
	Score        *float64 `json:"score,omitempty"`
	ReviewedBy   *string  `json:"reviewedBy,omitempty"`
}

type AssignmentEventData struct {
	AssignmentID   uint       `json:"assignmentId"`
	UserID         string     `json:"userId"`
	TemplateID     uint       `json:"templateId"`
	AssignedBy     string     `json:"assignedBy,omitempty"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	ReassignedFrom *uint      `json:"reassignedFrom,omitempty"`
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
