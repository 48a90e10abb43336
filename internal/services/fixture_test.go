package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/docuhub/exam-service/internal/events"
	"github.com/docuhub/exam-service/internal/models"
	"github.com/docuhub/exam-service/internal/repositories/memory"
	"github.com/docuhub/exam-service/internal/validator"
)

var (
	admin = &models.User{ID: "admin-1", FullName: "Ada Admin", Email: "ada@example.com", Role: models.RoleAdmin}
	alice = &models.User{ID: "alice", FullName: "Alice", Email: "alice@example.com", Role: models.RoleUser}
	bob   = &models.User{ID: "bob", FullName: "Bob", Email: "bob@example.com", Role: models.RoleUser}
)

type fixture struct {
	repo     *memory.Repository
	events   *events.MockEventPublisher
	exams    *examService
	attempts *attemptService
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	users := memory.NewUserStore()
	for _, u := range []*models.User{admin, alice, bob} {
		users.Save(u)
	}

	f := &fixture{
		repo:   memory.NewRepository(users),
		events: events.NewMockEventPublisher(logger),
		clock:  time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	v := validator.New()
	f.exams = NewExamService(f.repo, logger, v, f.events).(*examService)
	f.attempts = NewAttemptService(f.repo, logger, v, f.events).(*attemptService)
	f.attempts.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

// examRequest is a valid two-question request open an hour either side of the fixture clock
func (f *fixture) examRequest() *validator.ExamCreateRequest {
	start := f.clock.Add(-time.Hour)
	end := f.clock.Add(time.Hour)
	return &validator.ExamCreateRequest{
		Title:     "Go fundamentals",
		Duration:  30,
		StartTime: &start,
		EndTime:   &end,
		Questions: []validator.QuestionCreateRequest{
			{QuestionText: "Which keyword starts a goroutine?", Options: []string{"go", "async", "spawn"}, CorrectAnswer: json.RawMessage(`0`), Points: 2},
			{QuestionText: "Slices are reference types", QuestionType: models.TrueFalse, CorrectAnswer: json.RawMessage(`"0"`)},
			{QuestionText: "Explain channels", QuestionType: models.Essay},
		},
	}
}

func (f *fixture) createExam(t *testing.T, mutate func(*validator.ExamCreateRequest)) *models.Exam {
	t.Helper()
	req := f.examRequest()
	if mutate != nil {
		mutate(req)
	}
	exam, err := f.exams.Create(context.Background(), req, admin)
	if err != nil {
		t.Fatalf("create exam: %v", err)
	}
	return exam
}

func answersFor(t *testing.T, exam *models.Exam, values ...string) json.RawMessage {
	t.Helper()
	out := map[string]json.RawMessage{}
	for i, v := range values {
		if v == "" {
			continue
		}
		out[exam.Questions[i].ID] = json.RawMessage(v)
	}
	raw, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}
