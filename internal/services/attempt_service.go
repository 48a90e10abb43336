package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/docuhub/exam-service/internal/events"
	"github.com/docuhub/exam-service/internal/models"
	"github.com/docuhub/exam-service/internal/repositories"
	"github.com/docuhub/exam-service/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	events    events.EventPublisher
	now       func() time.Time
}

func NewAttemptService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) AttemptService {
	return &attemptService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		events:    publisher,
		now:       time.Now,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

// Start opens an attempt, or hands back the caller's attempt that is still in progress
func (s *attemptService) Start(ctx context.Context, examID string, caller *models.User) (*StartAttemptResult, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Starting exam attempt",
		"exam_id", examID,
		"user_id", caller.ID)

	exam, err := getExam(ctx, s.repo, examID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if now.Before(exam.StartTime) {
		return nil, NewBusinessRuleError("exam_window", "Exam has not started yet", ErrExamNotStarted, map[string]interface{}{
			"startTime": exam.StartTime,
		})
	}
	if now.After(exam.EndTime) {
		return nil, NewBusinessRuleError("exam_window", "Exam has ended", ErrExamEnded, map[string]interface{}{
			"endTime": exam.EndTime,
		})
	}

	if !CanView(exam, caller) {
		return nil, NewPermissionError(caller.ID, examID, "exam", "start", "not on the exam allow-list")
	}

	current, err := s.repo.Attempt().FindInProgress(ctx, examID, caller.ID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to find current attempt: %w", err)
	}
	if current != nil {
		s.logger.InfoContext(ctx, "Resuming existing attempt", "attempt_id", current.ID)
		current.Exam = exam.Sanitized()
		return &StartAttemptResult{
			ExamAttempt: current,
			TimeLeft:    secondsLeft(current.DeadlineFor(exam), now),
			Resumed:     true,
		}, nil
	}

	count, err := s.repo.Attempt().CountByExamAndUser(ctx, examID, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	if count >= int64(exam.MaxAttempts) {
		return nil, NewBusinessRuleError("max_attempts", "Maximum attempts reached for this exam", ErrAttemptLimitExceeded, map[string]interface{}{
			"maxAttempts": exam.MaxAttempts,
			"attempts":    count,
		})
	}

	attempt := &models.ExamAttempt{
		ExamID:    examID,
		UserID:    caller.ID,
		Status:    models.AttemptInProgress,
		StartedAt: now,
		Answers:   []models.AttemptAnswer{},
	}
	if err := s.repo.Attempt().Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	s.logger.InfoContext(ctx, "Exam attempt started successfully",
		"attempt_id", attempt.ID,
		"exam_id", examID,
		"user_id", caller.ID)

	publishEvent(ctx, s.events, s.logger, events.AttemptStarted, events.AttemptPayload{
		AttemptID: attempt.ID,
		ExamID:    examID,
		UserID:    caller.ID,
		Status:    string(attempt.Status),
	})

	attempt.Exam = exam.Sanitized()
	return &StartAttemptResult{
		ExamAttempt: attempt,
		TimeLeft:    exam.Duration * 60,
	}, nil
}

// Submit scores the caller's answers and completes the attempt exactly once
func (s *attemptService) Submit(ctx context.Context, examID string, req *SubmitAttemptRequest, caller *models.User) (*models.ExamAttempt, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Submitting exam attempt",
		"attempt_id", req.AttemptID,
		"exam_id", examID,
		"user_id", caller.ID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	attempt, err := s.getAttempt(ctx, req.AttemptID)
	if err != nil {
		return nil, err
	}
	if attempt.ExamID != examID {
		return nil, ErrAttemptNotFound
	}

	// Submission is owner-only, admins included
	if attempt.UserID != caller.ID {
		return nil, NewPermissionError(caller.ID, attempt.ID, "attempt", "submit", "not owned by user")
	}

	switch attempt.Status {
	case models.AttemptInProgress:
	case models.AttemptExpired:
		return nil, NewBusinessRuleError("attempt_state", "Attempt has expired", ErrAttemptExpired, nil)
	default:
		return nil, NewBusinessRuleError("attempt_state", "Attempt has already been submitted", ErrAttemptAlreadySubmitted, nil)
	}

	answers, err := decodeAnswers(req.Answers)
	if err != nil {
		return nil, err
	}

	exam, err := getExam(ctx, s.repo, examID)
	if err != nil {
		return nil, err
	}

	scored := ScoreSubmission(exam.Questions, answers)

	now := s.now()
	attempt.Answers = scored.Answers
	attempt.Score = scored.Score
	attempt.Status = models.AttemptCompleted
	attempt.SubmittedAt = &now
	attempt.TimeSpent = int(now.Sub(attempt.StartedAt) / time.Second)

	if err := s.repo.Attempt().Complete(ctx, attempt); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, NewBusinessRuleError("attempt_state", "Attempt has already been submitted", ErrAttemptAlreadySubmitted, nil)
		}
		return nil, fmt.Errorf("failed to complete attempt: %w", err)
	}

	passed := Passed(attempt.Score, exam)
	s.logger.InfoContext(ctx, "Exam attempt submitted successfully",
		"attempt_id", attempt.ID,
		"score", attempt.Score,
		"points_earned", scored.PointsEarned,
		"total_points", scored.TotalPoints,
		"passed", passed)

	publishEvent(ctx, s.events, s.logger, events.AttemptSubmitted, events.AttemptPayload{
		AttemptID: attempt.ID,
		ExamID:    examID,
		UserID:    caller.ID,
		Status:    string(attempt.Status),
		Score:     attempt.Score,
		Passed:    passed,
		TimeSpent: attempt.TimeSpent,
	})

	attempt.Exam = exam
	populateAttemptUsers(ctx, s.repo.User(), s.logger, attempt)
	return attempt, nil
}

// Get returns an attempt to its owner or an admin
func (s *attemptService) Get(ctx context.Context, attemptID string, caller *models.User) (*models.ExamAttempt, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	attempt, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	if attempt.UserID != caller.ID && !caller.IsAdmin() {
		return nil, NewPermissionError(caller.ID, attemptID, "attempt", "view", "not owned by user")
	}

	exam, err := getExam(ctx, s.repo, attempt.ExamID)
	if err != nil && !errors.Is(err, ErrExamNotFound) {
		return nil, err
	}
	if exam != nil {
		// The answer key stays hidden while the attempt can still be submitted
		if attempt.Status == models.AttemptInProgress {
			attempt.Exam = viewFor(exam, caller)
		} else {
			attempt.Exam = exam
		}
	}

	populateAttemptUsers(ctx, s.repo.User(), s.logger, attempt)
	return attempt, nil
}

// ListMyResults returns the caller's attempts, most recently submitted first
func (s *attemptService) ListMyResults(ctx context.Context, caller *models.User) ([]*AttemptResult, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	userID := caller.ID
	attempts, err := s.repo.Attempt().List(ctx, repositories.AttemptFilters{UserID: &userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	return toResults(attempts), nil
}

// ListExamResults returns every attempt on an exam for admins
func (s *attemptService) ListExamResults(ctx context.Context, examID string, caller *models.User) ([]*AttemptResult, error) {
	if err := requireAdmin(caller, examID, "exam", "view_results"); err != nil {
		return nil, err
	}

	if _, err := getExam(ctx, s.repo, examID); err != nil {
		return nil, err
	}

	attempts, err := s.repo.Attempt().List(ctx, repositories.AttemptFilters{ExamID: &examID})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	populateAttemptUsers(ctx, s.repo.User(), s.logger, attempts...)
	return toResults(attempts), nil
}

// ExpireStale marks in-progress attempts whose time allowance ran out as expired
func (s *attemptService) ExpireStale(ctx context.Context) (int64, error) {
	now := s.now()
	expired, err := s.repo.Attempt().ExpireStale(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire attempts: %w", err)
	}

	if expired > 0 {
		s.logger.InfoContext(ctx, "Expired stale attempts", "count", expired)
		publishEvent(ctx, s.events, s.logger, events.AttemptsExpired, events.ExpiryPayload{
			Expired: expired,
			At:      now,
		})
	}
	return expired, nil
}

// ===== HELPERS =====

func (s *attemptService) getAttempt(ctx context.Context, attemptID string) (*models.ExamAttempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return attempt, nil
}

func toResults(attempts []*models.ExamAttempt) []*AttemptResult {
	out := make([]*AttemptResult, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, &AttemptResult{
			ExamAttempt: a,
			Passed:      a.Status == models.AttemptCompleted && Passed(a.Score, a.Exam),
		})
	}
	return out
}

func secondsLeft(deadline, now time.Time) int {
	left := int(deadline.Sub(now) / time.Second)
	if left < 0 {
		return 0
	}
	return left
}

// decodeAnswers accepts the object or array form; absent and null mean no answers
func decodeAnswers(raw json.RawMessage) (models.SubmittedAnswers, error) {
	answers := models.SubmittedAnswers{}
	if len(raw) == 0 {
		return answers, nil
	}
	if err := json.Unmarshal(raw, &answers); err != nil {
		return nil, ValidationErrors{{
			Field:   "answers",
			Message: err.Error(),
			Rule:    "answers_shape",
		}}
	}
	return answers, nil
}
