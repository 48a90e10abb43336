package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docuhub/exam-service/internal/models"
	"github.com/docuhub/exam-service/internal/services"
	"github.com/docuhub/exam-service/internal/utils"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewAttemptHandler(attemptService services.AttemptService, logger utils.Logger, exposeErrors bool) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger, exposeErrors),
		attemptService: attemptService,
	}
}

// StartAttempt starts an attempt, or returns the caller's attempt still in progress
// @Success 201 new attempt
// @Success 200 resumed attempt
// @Router /exams/{id}/start [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	examID := c.Param("id")
	h.LogRequest(c, "Starting exam attempt", "exam_id", examID)

	caller, ok := callerFromContext(c)
	if !ok {
		return
	}

	result, err := h.attemptService.Start(c.Request.Context(), examID, caller)
	if err != nil {
		h.handleServiceError(c, err, "Failed to start exam")
		return
	}

	status := http.StatusCreated
	if result.Resumed {
		status = http.StatusOK
	}
	respondData(c, status, result)
}

// SubmitAttempt scores and completes an attempt
// @Router /exams/{id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	examID := c.Param("id")
	h.LogRequest(c, "Submitting exam attempt", "exam_id", examID)

	caller, ok := callerFromContext(c)
	if !ok {
		return
	}

	var req services.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, "Failed to submit exam", err)
		return
	}

	attempt, err := h.attemptService.Submit(c.Request.Context(), examID, &req, caller)
	if err != nil {
		h.handleServiceError(c, err, "Failed to submit exam")
		return
	}

	respondData(c, http.StatusOK, attempt)
}

// GetAttempt returns an attempt to its owner or an admin
// @Router /exams/attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attemptID := c.Param("id")
	h.LogRequest(c, "Getting exam attempt", "attempt_id", attemptID)

	caller, ok := callerFromContext(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.Get(c.Request.Context(), attemptID, caller)
	if err != nil {
		h.handleServiceError(c, err, "Failed to get attempt")
		return
	}

	respondData(c, http.StatusOK, attempt)
}

// ListMyResults returns the caller's attempts, most recently submitted first
// @Router /exams/results [get]
func (h *AttemptHandler) ListMyResults(c *gin.Context) {
	h.LogRequest(c, "Listing exam results for user")

	caller, ok := callerFromContext(c)
	if !ok {
		return
	}

	results, err := h.attemptService.ListMyResults(c.Request.Context(), caller)
	if err != nil {
		h.handleServiceError(c, err, "Failed to get exam results")
		return
	}

	respondList(c, http.StatusOK, results, len(results))
}

// callerFromContext aborts with 401 when no user was authenticated
func callerFromContext(c *gin.Context) (*models.User, bool) {
	user, err := GetUserFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, msgNoToken, nil)
		return nil, false
	}
	return user, true
}
