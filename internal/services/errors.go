package services

import (
	"errors"
	"fmt"

	"github.com/docuhub/exam-service/internal/validator"
)

// Exam errors
var (
	ErrExamNotFound          = errors.New("exam not found")
	ErrExamMissingFields     = errors.New("please fill in all required fields: title, duration, start time, end time")
	ErrExamNoQuestions       = errors.New("exam must have at least 1 question")
	ErrExamNotStarted        = errors.New("exam has not started yet")
	ErrExamEnded             = errors.New("exam has ended")
	ErrExamAccessDenied      = errors.New("access denied to exam")
	ErrInsufficientRole      = errors.New("insufficient role permissions")
	ErrUnauthenticatedCaller = errors.New("caller is not authenticated")
)

// Attempt errors
var (
	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrAttemptLimitExceeded    = errors.New("maximum attempts reached for this exam")
	ErrAttemptAlreadySubmitted = errors.New("attempt has already been submitted")
	ErrAttemptExpired          = errors.New("attempt has expired")
)

// ValidationErrors is returned when a request fails field or business rules
type ValidationErrors = validator.ValidationErrors

// PermissionError describes a denied action on a resource
type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

// BusinessRuleError describes a rejected state transition
type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
	Err     error                  `json:"-"`
}

func NewBusinessRuleError(rule, message string, err error, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
		Err:     err,
	}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation [%s]: %s", e.Rule, e.Message)
}

func (e *BusinessRuleError) Unwrap() error {
	return e.Err
}

// IsPermissionError reports whether err carries a *PermissionError
func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}
