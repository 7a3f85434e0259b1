package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewEvent_Structure(t *testing.T) {
	event := NewEvent(EventAttemptSubmitted, AttemptEventData{AttemptID: 3})

	if event.ID == "" {
		t.Error("Event ID should not be empty")
	}
	if event.Source != "aptitude-service" {
		t.Errorf("Expected source 'aptitude-service', got '%s'", event.Source)
	}
	if event.Version != "1.0" {
		t.Errorf("Expected version '1.0', got '%s'", event.Version)
	}
	if event.Timestamp.IsZero() {
		t.Error("Event timestamp should not be zero")
	}
}

func TestWatermillPublisher_GoChannel(t *testing.T) {
	logger := testLogger()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(context.Background(), DefaultTopic)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	publisher := NewPublisherWith(pubSub, "", logger)
	event := NewEvent(EventAssignmentCreated, AssignmentEventData{AssignmentID: 9, UserID: "u1"})
	if err := publisher.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		if msg.UUID != event.ID {
			t.Errorf("expected message uuid %s, got %s", event.ID, msg.UUID)
		}
		if msg.Metadata.Get("type") != string(EventAssignmentCreated) {
			t.Errorf("unexpected type metadata %q", msg.Metadata.Get("type"))
		}
		var decoded Event
		if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
			t.Fatalf("payload is not an event: %v", err)
		}
		if decoded.Type != EventAssignmentCreated {
			t.Errorf("unexpected decoded type %s", decoded.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(testLogger())
	ctx := context.Background()

	_ = mock.Publish(ctx, NewEvent(EventAttemptStarted, nil))
	_ = mock.Publish(ctx, NewEvent(EventAttemptSubmitted, nil))

	if got := len(mock.GetPublishedEvents()); got != 2 {
		t.Fatalf("Expected 2 events, got %d", got)
	}
	if got := len(mock.EventsOfType(EventAttemptStarted)); got != 1 {
		t.Errorf("Expected 1 started event, got %d", got)
	}

	mock.ClearEvents()
	if got := len(mock.GetPublishedEvents()); got != 0 {
		t.Errorf("Expected no events after clear, got %d", got)
	}
}
