package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func TestWatermillPublisher_GoChannel(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	publisher, pubSub := NewGoChannelPublisher("exams.", logger)
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, "exams.attempt.submitted")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	payload := AttemptPayload{AttemptID: "a1", ExamID: "e1", UserID: "u1", Status: "completed", Score: 75, Passed: true}
	if err := publisher.Publish(ctx, AttemptSubmitted, payload); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		if got := msg.Metadata.Get("event_type"); got != string(AttemptSubmitted) {
			t.Errorf("event_type metadata = %q", got)
		}

		var event struct {
			ID      string         `json:"id"`
			Type    EventType      `json:"type"`
			Payload AttemptPayload `json:"payload"`
		}
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if event.ID != msg.UUID {
			t.Errorf("event id %q != message uuid %q", event.ID, msg.UUID)
		}
		if event.Type != AttemptSubmitted || event.Payload.Score != 75 || !event.Payload.Passed {
			t.Errorf("unexpected event: %+v", event)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestWatermillPublisher_Topic(t *testing.T) {
	publisher, _ := NewGoChannelPublisher("prod.", slog.New(slog.DiscardHandler))
	defer publisher.Close()

	if got := publisher.Topic(ExamDeleted); got != "prod.exam.deleted" {
		t.Errorf("Topic() = %q", got)
	}
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(nil)
	ctx := context.Background()

	_ = mock.Publish(ctx, ExamCreated, ExamPayload{ExamID: "e1"})
	_ = mock.Publish(ctx, ExamDeleted, ExamPayload{ExamID: "e1"})

	if n := len(mock.GetPublishedEvents()); n != 2 {
		t.Fatalf("published %d events, want 2", n)
	}
	deleted := mock.EventsOfType(ExamDeleted)
	if len(deleted) != 1 || deleted[0].Payload.(ExamPayload).ExamID != "e1" {
		t.Errorf("EventsOfType(ExamDeleted) = %+v", deleted)
	}
}
