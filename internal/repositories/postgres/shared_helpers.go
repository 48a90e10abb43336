package postgres

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/docuhub/exam-service/internal/repositories"
)

// visibilityClause matches exams listing the user, exams with an empty list and exams without one
const visibilityClause = "(allowed_users @> ?::jsonb OR allowed_users = '[]'::jsonb OR allowed_users IS NULL)"

// mapNotFound converts gorm's not-found error to the repository sentinel
func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.ErrNotFound
	}
	return err
}

// ApplyExamFilters applies common filters to exam queries
func ApplyExamFilters(query *gorm.DB, filters repositories.ExamFilters) (*gorm.DB, error) {
	if filters.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filters.VisibleTo != nil {
		member, err := json.Marshal([]string{*filters.VisibleTo})
		if err != nil {
			return nil, err
		}
		query = query.Where(visibilityClause, string(member))
	}
	return query, nil
}

// ApplyAttemptFilters applies common filters to attempt queries
func ApplyAttemptFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.ExamID != nil {
		query = query.Where("exam_id = ?", *filters.ExamID)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	return query
}

func orderedQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func orderedAnswers(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// examSummary is the exam projection embedded in result listings
func examSummary(db *gorm.DB) *gorm.DB {
	return db.Select("id", "title", "passing_grade", "duration", "total_questions", "start_time", "end_time", "is_active", "created_by", "created_at", "updated_at")
}
