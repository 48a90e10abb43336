package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/datatypes"

	"github.com/docuhub/exam-service/internal/events"
	"github.com/docuhub/exam-service/internal/models"
	"github.com/docuhub/exam-service/internal/repositories"
	"github.com/docuhub/exam-service/internal/validator"
)

type examService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	events    events.EventPublisher
}

func NewExamService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) ExamService {
	return &examService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		events:    publisher,
	}
}

// Create validates the request, applies defaults and stores the exam with its questions
func (s *examService) Create(ctx context.Context, req *validator.ExamCreateRequest, caller *models.User) (*models.Exam, error) {
	if err := requireAdmin(caller, "", "exam", "create"); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Creating exam",
		"title", req.Title,
		"creator_id", caller.ID,
		"questions_count", len(req.Questions))

	if !req.HasRequiredFields() {
		return nil, ErrExamMissingFields
	}
	if len(req.Questions) == 0 {
		return nil, ErrExamNoQuestions
	}

	if errs := s.validator.Business().ValidateExamCreate(req); len(errs) > 0 {
		return nil, errs
	}

	exam := buildExam(req, caller.ID)

	if err := s.repo.Exam().Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}

	s.logger.InfoContext(ctx, "Exam created successfully",
		"exam_id", exam.ID,
		"total_questions", exam.TotalQuestions)

	publishEvent(ctx, s.events, s.logger, events.ExamCreated, events.ExamPayload{
		ExamID:         exam.ID,
		Title:          exam.Title,
		ActorID:        caller.ID,
		TotalQuestions: exam.TotalQuestions,
	})

	populateExamUsers(ctx, s.repo.User(), s.logger, exam)
	return exam, nil
}

// buildExam maps a validated request onto the model, filling defaults
func buildExam(req *validator.ExamCreateRequest, creatorID string) *models.Exam {
	exam := &models.Exam{
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Duration:       int(req.Duration),
		PassingGrade:   int(req.PassingGrade),
		StartTime:      *req.StartTime,
		EndTime:        *req.EndTime,
		MaxAttempts:    int(req.MaxAttempts),
		IsActive:       true,
		TotalQuestions: len(req.Questions),
		CreatedBy:      creatorID,
		AllowedUsers:   datatypes.JSONSlice[string]{},
		Questions:      make([]models.Question, 0, len(req.Questions)),
	}
	if exam.PassingGrade == 0 {
		exam.PassingGrade = models.DefaultPassingGrade
	}
	if exam.MaxAttempts == 0 {
		exam.MaxAttempts = models.DefaultMaxAttempts
	}
	if req.IsActive != nil {
		exam.IsActive = *req.IsActive
	}
	for _, id := range req.AllowedUsers {
		if id = strings.TrimSpace(id); id != "" && !exam.Allows(id) {
			exam.AllowedUsers = append(exam.AllowedUsers, id)
		}
	}

	for i, qr := range req.Questions {
		q := models.Question{
			Position:     i,
			QuestionText: qr.QuestionText,
			QuestionType: qr.QuestionType,
			Options:      datatypes.JSONSlice[string]{},
			Points:       int(qr.Points),
			Explanation:  qr.Explanation,
			MaxLength:    int(qr.MaxLength),
		}
		if q.QuestionType == "" {
			q.QuestionType = models.MultipleChoice
		}
		if q.Points == 0 {
			q.Points = models.DefaultQuestionPoints
		}
		if q.MaxLength == 0 {
			q.MaxLength = models.DefaultEssayMaxLength
		}
		if len(qr.Options) > 0 {
			q.Options = append(q.Options, qr.Options...)
		} else if q.QuestionType == models.TrueFalse {
			q.Options = append(q.Options, models.DefaultTrueFalseOptions...)
		}
		if key := storedAnswer(qr.CorrectAnswer); key != nil {
			q.CorrectAnswer = key
		}
		exam.Questions = append(exam.Questions, q)
	}

	return exam
}

// List returns the active exams the caller may see, newest first
func (s *examService) List(ctx context.Context, caller *models.User) ([]*models.Exam, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	exams, err := s.repo.Exam().List(ctx, examFiltersFor(caller))
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}

	out := make([]*models.Exam, 0, len(exams))
	for _, e := range exams {
		out = append(out, viewFor(e, caller))
	}
	populateExamUsers(ctx, s.repo.User(), s.logger, out...)
	return out, nil
}

func (s *examService) Get(ctx context.Context, examID string, caller *models.User) (*models.Exam, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	exam, err := getExam(ctx, s.repo, examID)
	if err != nil {
		return nil, err
	}

	if !CanView(exam, caller) {
		return nil, NewPermissionError(caller.ID, examID, "exam", "view", "not on the exam allow-list")
	}

	view := viewFor(exam, caller)
	populateExamUsers(ctx, s.repo.User(), s.logger, view)
	return view, nil
}

// Delete removes the exam and every attempt on it in one transaction
func (s *examService) Delete(ctx context.Context, examID string, caller *models.User) (*DeleteExamResult, error) {
	if err := requireAdmin(caller, examID, "exam", "delete"); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Deleting exam", "exam_id", examID, "user_id", caller.ID)

	result := &DeleteExamResult{ExamID: examID}
	var title string
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		exam, err := getExam(ctx, tx, examID)
		if err != nil {
			return err
		}
		title = exam.Title

		deleted, err := tx.Attempt().DeleteByExam(ctx, examID)
		if err != nil {
			return fmt.Errorf("failed to delete attempts: %w", err)
		}
		result.AttemptsDeleted = deleted

		if err := tx.Exam().Delete(ctx, examID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrExamNotFound
			}
			return fmt.Errorf("failed to delete exam: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Exam deleted successfully",
		"exam_id", examID,
		"attempts_deleted", result.AttemptsDeleted)

	publishEvent(ctx, s.events, s.logger, events.ExamDeleted, events.ExamPayload{
		ExamID:          examID,
		Title:           title,
		ActorID:         caller.ID,
		AttemptsDeleted: result.AttemptsDeleted,
	})

	return result, nil
}
