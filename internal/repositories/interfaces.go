package repositories

import (
	"context"
	"time"

	"github.com/docuhub/exam-service/internal/models"
)

type ExamFilters struct {
	ActiveOnly bool
	// VisibleTo limits results to exams the user may see. Nil means no restriction.
	VisibleTo *string
}

type AttemptFilters struct {
	ExamID *string
	UserID *string
	Status *models.AttemptStatus
}

// ExamRepository stores exams together with their ordered questions
type ExamRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	GetByID(ctx context.Context, id string) (*models.Exam, error)
	// List returns exams newest first, questions included
	List(ctx context.Context, filters ExamFilters) ([]*models.Exam, error)
	Delete(ctx context.Context, id string) error
}

// AttemptRepository stores exam attempts and their answer records
type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.ExamAttempt) error
	GetByID(ctx context.Context, id string) (*models.ExamAttempt, error)
	FindInProgress(ctx context.Context, examID, userID string) (*models.ExamAttempt, error)
	CountByExamAndUser(ctx context.Context, examID, userID string) (int64, error)

	// Complete writes the scored attempt only while it is still in progress.
	// It returns ErrConflict when another submission got there first.
	Complete(ctx context.Context, attempt *models.ExamAttempt) error

	// List returns attempts with their exam, ordered by submittedAt desc with unsubmitted last
	List(ctx context.Context, filters AttemptFilters) ([]*models.ExamAttempt, error)
	DeleteByExam(ctx context.Context, examID string) (int64, error)

	// ExpireStale marks in-progress attempts past their exam duration as expired
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}
