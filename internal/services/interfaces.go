package services

import (
	"context"
	"encoding/json"

	"github.com/docuhub/exam-service/internal/models"
	"github.com/docuhub/exam-service/internal/validator"
)

// ExamService manages exam definitions and their visibility
type ExamService interface {
	Create(ctx context.Context, req *validator.ExamCreateRequest, caller *models.User) (*models.Exam, error)
	List(ctx context.Context, caller *models.User) ([]*models.Exam, error)
	Get(ctx context.Context, examID string, caller *models.User) (*models.Exam, error)
	Delete(ctx context.Context, examID string, caller *models.User) (*DeleteExamResult, error)
}

// AttemptService drives the attempt lifecycle and scoring
type AttemptService interface {
	Start(ctx context.Context, examID string, caller *models.User) (*StartAttemptResult, error)
	Submit(ctx context.Context, examID string, req *SubmitAttemptRequest, caller *models.User) (*models.ExamAttempt, error)
	Get(ctx context.Context, attemptID string, caller *models.User) (*models.ExamAttempt, error)
	ListMyResults(ctx context.Context, caller *models.User) ([]*AttemptResult, error)
	ListExamResults(ctx context.Context, examID string, caller *models.User) ([]*AttemptResult, error)
	ExpireStale(ctx context.Context) (int64, error)
}

// ExportService renders exam results as spreadsheets
type ExportService interface {
	ExportExamResults(ctx context.Context, examID string, caller *models.User) (*ExportFile, error)
}

// ServiceManager owns service construction and lifecycle
type ServiceManager interface {
	Exam() ExamService
	Attempt() AttemptService
	Export() ExportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ===== REQUEST / RESPONSE TYPES =====

// SubmitAttemptRequest carries answers undecoded so ownership and state are
// checked before the payload shape is.
type SubmitAttemptRequest struct {
	AttemptID string          `json:"attemptId" validate:"required"`
	Answers   json.RawMessage `json:"answers"`
}

// StartAttemptResult is the started (or resumed) attempt with its countdown
type StartAttemptResult struct {
	*models.ExamAttempt
	// Seconds left on the clock. Not persisted.
	TimeLeft int  `json:"timeLeft"`
	Resumed  bool `json:"-"`
}

// AttemptResult is an attempt with its display-only pass flag
type AttemptResult struct {
	*models.ExamAttempt
	Passed bool `json:"passed"`
}

type DeleteExamResult struct {
	ExamID          string `json:"examId"`
	AttemptsDeleted int64  `json:"attemptsDeleted"`
}

type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
