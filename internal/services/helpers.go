package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/docuhub/exam-service/internal/events"
	"github.com/docuhub/exam-service/internal/models"
	"github.com/docuhub/exam-service/internal/repositories"
)

// publishEvent publishes best effort. A broker outage never fails the request.
func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, eventType events.EventType, payload interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, eventType, payload); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "event_type", eventType, "error", err)
	}
}

// userDirectory resolves user ids into summaries, keeping unresolvable ids as bare references
type userDirectory map[string]models.UserSummary

func loadUsers(ctx context.Context, users repositories.UserRepository, logger *slog.Logger, ids []string) userDirectory {
	dir := make(userDirectory, len(ids))
	if users == nil || len(ids) == 0 {
		return dir
	}

	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}

	resolved, err := users.GetByIDs(ctx, unique)
	if err != nil {
		logger.WarnContext(ctx, "Failed to resolve users", "count", len(unique), "error", err)
		return dir
	}
	for _, u := range resolved {
		dir[u.ID] = u.Summary()
	}
	return dir
}

func (d userDirectory) summary(id string) models.UserSummary {
	if s, ok := d[id]; ok {
		return s
	}
	return models.UserSummary{ID: id}
}

func populateExamUsers(ctx context.Context, users repositories.UserRepository, logger *slog.Logger, exams ...*models.Exam) {
	var ids []string
	for _, e := range exams {
		ids = append(ids, e.CreatedBy)
		ids = append(ids, e.AllowedUsers...)
	}
	dir := loadUsers(ctx, users, logger, ids)

	for _, e := range exams {
		creator := dir.summary(e.CreatedBy)
		e.Creator = &creator
		e.AllowedUserDetails = make([]models.UserSummary, 0, len(e.AllowedUsers))
		for _, id := range e.AllowedUsers {
			e.AllowedUserDetails = append(e.AllowedUserDetails, dir.summary(id))
		}
	}
}

func populateAttemptUsers(ctx context.Context, users repositories.UserRepository, logger *slog.Logger, attempts ...*models.ExamAttempt) {
	ids := make([]string, 0, len(attempts))
	for _, a := range attempts {
		ids = append(ids, a.UserID)
	}
	dir := loadUsers(ctx, users, logger, ids)

	for _, a := range attempts {
		u := dir.summary(a.UserID)
		a.User = &u
	}
}

// getExam maps the repository not-found error to ErrExamNotFound
func getExam(ctx context.Context, repo repositories.Repository, examID string) (*models.Exam, error) {
	exam, err := repo.Exam().GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return exam, nil
}
