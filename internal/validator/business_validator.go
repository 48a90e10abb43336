package validator

import (
	"fmt"
	"strings"

	"github.com/docuhub/exam-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// BusinessValidator handles exam rules that struct tags cannot express
type BusinessValidator struct {
	validate *validator.Validate
}

func newBusinessValidator(validate *validator.Validate) *BusinessValidator {
	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()
	return bv
}

// ValidateExamCreate validates exam creation business rules
func (bv *BusinessValidator) ValidateExamCreate(req *ExamCreateRequest) ValidationErrors {
	var errors ValidationErrors

	// Basic struct validation
	if err := bv.validate.Struct(req); err != nil {
		errors = append(errors, ToValidationErrors(err)...)
	}

	// Answer keys
	for i := range req.Questions {
		errors = append(errors, bv.validateQuestionAnswerKey(i, &req.Questions[i])...)
	}

	return errors
}

// validateQuestionAnswerKey checks that choice questions point at a real option
func (bv *BusinessValidator) validateQuestionAnswerKey(index int, q *QuestionCreateRequest) ValidationErrors {
	qType := q.QuestionType
	if qType == "" {
		qType = models.MultipleChoice
	}
	if qType == models.Essay {
		return nil
	}

	options := q.Options
	if qType == models.TrueFalse && len(options) == 0 {
		options = models.DefaultTrueFalseOptions
	}

	field := fmt.Sprintf("questions[%d].correctAnswer", index)
	key := models.NormalizeAnswer(q.CorrectAnswer)
	if !key.Present {
		return ValidationErrors{{
			Field:   field,
			Message: "is required",
			Rule:    "required",
		}}
	}

	idx, ok := key.Index()
	if !ok || idx >= len(options) {
		return ValidationErrors{{
			Field:   field,
			Message: fmt.Sprintf("must be an option index between 0 and %d", len(options)-1),
			Value:   string(q.CorrectAnswer),
			Rule:    "option_index",
		}}
	}

	return nil
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Passing grade is a percentage (1-100)
	bv.validate.RegisterValidation("passing_grade", func(fl validator.FieldLevel) bool {
		grade := fl.Field().Int()
		return grade >= 1 && grade <= 100
	})

	// Title validation (1-200 characters)
	bv.validate.RegisterValidation("exam_title", func(fl validator.FieldLevel) bool {
		title := strings.TrimSpace(fl.Field().String())
		return len(title) >= 1 && len(title) <= 200
	})

	// Question type validation
	bv.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		qType := models.QuestionType(fl.Field().String())
		switch qType {
		case models.MultipleChoice, models.TrueFalse, models.Essay:
			return true
		default:
			return false
		}
	})
}
