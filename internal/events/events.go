package events

import (
	"context"
	"time"
)

type EventType string

const (
	ExamCreated      EventType = "exam.created"
	ExamDeleted      EventType = "exam.deleted"
	AttemptStarted   EventType = "attempt.started"
	AttemptSubmitted EventType = "attempt.submitted"
	AttemptsExpired  EventType = "attempt.expired"
)

// Event is the envelope published for every domain change
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

type ExamPayload struct {
	ExamID          string `json:"examId"`
	Title           string `json:"title,omitempty"`
	ActorID         string `json:"actorId"`
	TotalQuestions  int    `json:"totalQuestions,omitempty"`
	AttemptsDeleted int64  `json:"attemptsDeleted,omitempty"`
}

type AttemptPayload struct {
	AttemptID string  `json:"attemptId"`
	ExamID    string  `json:"examId"`
	UserID    string  `json:"userId"`
	Status    string  `json:"status"`
	Score     float64 `json:"score"`
	Passed    bool    `json:"passed"`
	TimeSpent int     `json:"timeSpent"`
}

type ExpiryPayload struct {
	Expired int64     `json:"expired"`
	At      time.Time `json:"at"`
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, eventType EventType, payload interface{}) error
	Close() error
}
