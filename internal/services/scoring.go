package services

import (
	"bytes"

	"gorm.io/datatypes"

	"github.com/docuhub/exam-service/internal/models"
)

// ScoreResult is the outcome of scoring one submission
type ScoreResult struct {
	Answers      []models.AttemptAnswer
	PointsEarned int
	TotalPoints  int
	// Percentage in [0, 100]
	Score float64
}

// ScoreSubmission compares submitted answers against the exam's answer key.
// One answer record is produced per exam question, in question order.
func ScoreSubmission(questions []models.Question, submitted models.SubmittedAnswers) ScoreResult {
	result := ScoreResult{
		Answers: make([]models.AttemptAnswer, 0, len(questions)),
	}

	for i := range questions {
		q := &questions[i]
		weight := q.Weight()
		result.TotalPoints += weight

		raw, _ := submitted.Lookup(q.ID)
		correct := isCorrect(q, raw)
		if correct {
			result.PointsEarned += weight
		}

		result.Answers = append(result.Answers, models.AttemptAnswer{
			Position:     i,
			QuestionID:   q.ID,
			Answer:       storedAnswer(raw),
			IsCorrect:    correct,
			QuestionType: q.QuestionType,
		})
	}

	if result.TotalPoints > 0 {
		result.Score = float64(result.PointsEarned) / float64(result.TotalPoints) * 100
	}
	return result
}

func isCorrect(q *models.Question, raw []byte) bool {
	switch q.QuestionType {
	case models.Essay:
		// Essays are not graded and always count as correct.
		return true
	case models.MultipleChoice, models.TrueFalse:
		answer := models.NormalizeAnswer(raw)
		return answer.Equal(models.NormalizeAnswer(q.CorrectAnswer))
	default:
		return false
	}
}

// storedAnswer keeps the submitted value as sent, with JSON null for unanswered
func storedAnswer(raw []byte) datatypes.JSON {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return datatypes.JSON(append([]byte(nil), trimmed...))
}

// Passed reports whether a score meets the exam's passing grade
func Passed(score float64, exam *models.Exam) bool {
	if exam == nil {
		return false
	}
	return score >= float64(exam.PassingGrade)
}
