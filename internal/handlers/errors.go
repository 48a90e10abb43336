package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docuhub/exam-service/internal/services"
)

const (
	msgNoToken       = "Not authorized, no token"
	msgTokenFailed   = "Not authorized, token failed"
	msgNotAdmin      = "Not authorized as an admin"
	msgNotAllowed    = "You are not allowed to take this exam"
	msgNotAuthorized = "Not authorized"
)

// handleServiceError maps service errors onto status codes. failure is the
// message used for validation and unexpected errors, e.g. "Failed to create exam".
func (h *BaseHandler) handleServiceError(c *gin.Context, err error, failure string) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("%s: %s", failure, validationErrors.Error()), validationErrors)
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		abortWithError(c, http.StatusBadRequest, businessRuleError.Message, map[string]interface{}{
			"rule":    businessRuleError.Rule,
			"context": businessRuleError.Context,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		abortWithError(c, http.StatusForbidden, permissionMessage(permissionError), map[string]interface{}{
			"resource": permissionError.Resource,
			"action":   permissionError.Action,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrUnauthenticatedCaller):
		abortWithError(c, http.StatusUnauthorized, msgNoToken, nil)
	case errors.Is(err, services.ErrExamNotFound):
		abortWithError(c, http.StatusNotFound, "Exam not found", nil)
	case errors.Is(err, services.ErrAttemptNotFound):
		abortWithError(c, http.StatusNotFound, "Exam attempt not found", nil)
	case errors.Is(err, services.ErrExamMissingFields):
		abortWithError(c, http.StatusBadRequest, "Please fill in all required fields: title, duration, start time, end time", nil)
	case errors.Is(err, services.ErrExamNoQuestions):
		abortWithError(c, http.StatusBadRequest, "Exam must have at least 1 question", nil)
	case errors.Is(err, services.ErrExamNotStarted):
		abortWithError(c, http.StatusBadRequest, "Exam has not started yet", nil)
	case errors.Is(err, services.ErrExamEnded):
		abortWithError(c, http.StatusBadRequest, "Exam has ended", nil)
	case errors.Is(err, services.ErrAttemptLimitExceeded):
		abortWithError(c, http.StatusBadRequest, "Maximum attempts reached for this exam", nil)
	case errors.Is(err, services.ErrAttemptAlreadySubmitted):
		abortWithError(c, http.StatusBadRequest, "Attempt has already been submitted", nil)
	case errors.Is(err, services.ErrAttemptExpired):
		abortWithError(c, http.StatusBadRequest, "Attempt has expired", nil)
	default:
		h.LogError(c, err, failure)
		resp := Response{Success: false, Message: failure}
		if h.exposeErrors {
			resp.Error = err.Error()
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
	}
}

func permissionMessage(err *services.PermissionError) string {
	switch {
	case err.Reason == services.ErrInsufficientRole.Error():
		return msgNotAdmin
	case err.Resource == "exam" && err.Action == "start":
		return msgNotAllowed
	default:
		return msgNotAuthorized
	}
}

// bindError reports a malformed request body
func bindError(c *gin.Context, failure string, err error) {
	abortWithError(c, http.StatusBadRequest, fmt.Sprintf("%s: %s", failure, err.Error()), nil)
}
