package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/docuhub/exam-service/internal/models"
	"github.com/docuhub/exam-service/internal/services"
	"github.com/docuhub/exam-service/internal/utils"
	"github.com/docuhub/exam-service/internal/validator"
)

// failingExams returns err from every call
type failingExams struct {
	err error
}

func (f failingExams) Create(ctx context.Context, req *validator.ExamCreateRequest, caller *models.User) (*models.Exam, error) {
	return nil, f.err
}

func (f failingExams) List(ctx context.Context, caller *models.User) ([]*models.Exam, error) {
	return nil, f.err
}

func (f failingExams) Get(ctx context.Context, examID string, caller *models.User) (*models.Exam, error) {
	return nil, f.err
}

func (f failingExams) Delete(ctx context.Context, examID string, caller *models.User) (*services.DeleteExamResult, error) {
	return nil, f.err
}

func serveExamGet(t *testing.T, err error, exposeErrors bool) (int, envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewExamHandler(failingExams{err: err}, nil, nil, utils.Discard(), exposeErrors)
	router := gin.New()
	router.GET("/exams/:id", func(c *gin.Context) {
		c.Set("user", testAlice)
		c.Next()
	}, h.GetExam)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/exams/e1", nil))

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	return w.Code, env
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"not found", services.ErrExamNotFound, http.StatusNotFound, "Exam not found"},
		{"wrapped not found", errors.Join(errors.New("ctx"), services.ErrAttemptNotFound), http.StatusNotFound, "Exam attempt not found"},
		{"business rule", services.NewBusinessRuleError("exam_window", "Exam has ended", services.ErrExamEnded, nil), http.StatusBadRequest, "Exam has ended"},
		{"permission", services.NewPermissionError("u", "e1", "exam", "view", "not listed"), http.StatusForbidden, msgNotAuthorized},
		{"validation", services.ValidationErrors{{Field: "title", Message: "is required"}}, http.StatusBadRequest, "Failed to get exam: title is required"},
		{"unauthenticated", services.ErrUnauthenticatedCaller, http.StatusUnauthorized, msgNoToken},
		{"unexpected", errors.New("connection refused"), http.StatusInternalServerError, "Failed to get exam"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := serveExamGet(t, tt.err, true)
			if status != tt.wantStatus || env.Message != tt.wantMsg || env.Success {
				t.Errorf("got %d %+v, want %d %q", status, env, tt.wantStatus, tt.wantMsg)
			}
		})
	}
}

func TestHandleServiceError_ErrorTextOnlyOutsideProduction(t *testing.T) {
	boom := errors.New("connection refused")

	_, env := serveExamGet(t, boom, true)
	if env.Error != "connection refused" {
		t.Errorf("development error = %q, want raw text", env.Error)
	}

	_, env = serveExamGet(t, boom, false)
	if env.Error != "" {
		t.Errorf("production error = %q, want empty", env.Error)
	}
}
