package validator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/docuhub/exam-service/internal/models"
)

// IntValue accepts a JSON number or a numeric string, as form-driven clients send both.
// Fractions and values beyond 32 bits are rejected.
type IntValue int

const maxIntValue = math.MaxInt32

func (v *IntValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = 0
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*v = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid integer %q", s)
		}
		*v = IntValue(n)
		return nil
	}

	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return err
	}
	if f != math.Trunc(f) {
		return fmt.Errorf("invalid integer %s: must be a whole number", trimmed)
	}
	if math.Abs(f) > maxIntValue {
		return fmt.Errorf("invalid integer %s: out of range", trimmed)
	}
	*v = IntValue(int(f))
	return nil
}

// ExamCreateRequest represents the request structure for creating exams
type ExamCreateRequest struct {
	Title        string                  `json:"title" validate:"required,exam_title"`
	Description  string                  `json:"description" validate:"max=5000"`
	Duration     IntValue                `json:"duration" validate:"required,min=1"`
	PassingGrade IntValue                `json:"passingGrade" validate:"omitempty,passing_grade"`
	StartTime    *time.Time              `json:"startTime" validate:"required"`
	EndTime      *time.Time              `json:"endTime" validate:"required"`
	MaxAttempts  IntValue                `json:"maxAttempts" validate:"omitempty,min=1"`
	IsActive     *bool                   `json:"isActive"`
	AllowedUsers []string                `json:"allowedUsers" validate:"omitempty,dive,required"`
	Questions    []QuestionCreateRequest `json:"questions" validate:"required,min=1,dive"`
}

// QuestionCreateRequest represents one question embedded in an exam creation request
type QuestionCreateRequest struct {
	QuestionText  string              `json:"questionText" validate:"required"`
	QuestionType  models.QuestionType `json:"questionType" validate:"omitempty,question_type"`
	Options       []string            `json:"options"`
	CorrectAnswer json.RawMessage     `json:"correctAnswer"`
	Points        IntValue            `json:"points" validate:"omitempty,min=1"`
	Explanation   string              `json:"explanation"`
	MaxLength     IntValue            `json:"maxLength" validate:"omitempty,min=1"`
}

// HasRequiredFields mirrors the first-pass presence check done before any rule validation
func (r *ExamCreateRequest) HasRequiredFields() bool {
	return strings.TrimSpace(r.Title) != "" && r.Duration != 0 && r.StartTime != nil && r.EndTime != nil
}
