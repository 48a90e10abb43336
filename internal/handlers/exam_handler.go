package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docuhub/exam-service/internal/services"
	"github.com/docuhub/exam-service/internal/utils"
	"github.com/docuhub/exam-service/internal/validator"
)

type ExamHandler struct {
	BaseHandler
	examService    services.ExamService
	attemptService services.AttemptService
	exportService  services.ExportService
}

func NewExamHandler(
	examService services.ExamService,
	attemptService services.AttemptService,
	exportService services.ExportService,
	logger utils.Logger,
	exposeErrors bool,
) *ExamHandler {
	return &ExamHandler{
		BaseHandler:    NewBaseHandler(logger, exposeErrors),
		examService:    examService,
		attemptService: attemptService,
		exportService:  exportService,
	}
}

// ListExams returns the active exams visible to the caller
// @Router /exams [get]
func (h *ExamHandler) ListExams(c *gin.Context) {
	h.LogRequest(c, "Listing exams")

	caller, ok := callerFromContext(c)
	if !ok {
		return
	}

	exams, err := h.examService.List(c.Request.Context(), caller)
	if err != nil {
		h.handleServiceError(c, err, "Failed to list exams")
		return
	}

	respondList(c, http.StatusOK, exams, len(exams))
}

// CreateExam creates an exam with its questions
// @Router /exams [post]
func (h *ExamHandler) CreateExam(c *gin.Context) {
	h.LogRequest(c, "Creating exam")

	caller, ok := callerFromContext(c)
	if !ok {
		return
	}

	var req validator.ExamCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, "Failed to create exam", err)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleServiceError(c, err, "Failed to create exam")
		return
	}

	respondData(c, http.StatusCreated, exam)
}

// GetExam returns one exam, without answer keys for non-admins
// @Router /exams/{id} [get]
func (h *ExamHandler) GetExam(c *gin.Context) {
	examID := c.Param("id")
	h.LogRequest(c, "Getting exam", "exam_id", examID)

	caller, ok := callerFromContext(c)
	if !ok {
		return
	}

	exam, err := h.examService.Get(c.Request.Context(), examID, caller)
	if err != nil {
		h.handleServiceError(c, err, "Failed to get exam")
		return
	}

	respondData(c, http.StatusOK, exam)
}

// DeleteExam removes an exam and every attempt on it
// @Router /exams/{id} [delete]
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	examID := c.Param("id")
	h.LogRequest(c, "Deleting exam", "exam_id", examID)

	caller, ok := callerFromContext(c)
	if !ok {
		return
	}

	result, err := h.examService.Delete(c.Request.Context(), examID, caller)
	if err != nil {
		h.handleServiceError(c, err, "Failed to delete exam")
		return
	}

	respondMessage(c, http.StatusOK, "Exam and related attempts deleted", result)
}

// ListExamResults returns every attempt on an exam
// @Router /exams/{id}/results [get]
func (h *ExamHandler) ListExamResults(c *gin.Context) {
	examID := c.Param("id")
	h.LogRequest(c, "Listing exam results", "exam_id", examID)

	caller, ok := callerFromContext(c)
	if !ok {
		return
	}

	results, err := h.attemptService.ListExamResults(c.Request.Context(), examID, caller)
	if err != nil {
		h.handleServiceError(c, err, "Failed to get exam results")
		return
	}

	respondList(c, http.StatusOK, results, len(results))
}

// ExportExamResults downloads the exam results as a spreadsheet
// @Router /exams/{id}/results/export [get]
func (h *ExamHandler) ExportExamResults(c *gin.Context) {
	examID := c.Param("id")
	h.LogRequest(c, "Exporting exam results", "exam_id", examID)

	caller, ok := callerFromContext(c)
	if !ok {
		return
	}

	file, err := h.exportService.ExportExamResults(c.Request.Context(), examID, caller)
	if err != nil {
		h.handleServiceError(c, err, "Failed to export exam results")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
