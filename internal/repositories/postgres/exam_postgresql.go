package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/docuhub/exam-service/internal/cache"
	"github.com/docuhub/exam-service/internal/models"
	"github.com/docuhub/exam-service/internal/repositories"
)

type ExamPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
	invalidator  *examInvalidator
}

func NewExamPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ExamRepository {
	cm := cache.NewCacheManager(redisClient)
	return newExamPostgreSQL(db, cm, newExamInvalidator(cm))
}

func newExamPostgreSQL(db *gorm.DB, cm *cache.CacheManager, invalidator *examInvalidator) *ExamPostgreSQL {
	return &ExamPostgreSQL{
		db:           db,
		cacheManager: cm,
		invalidator:  invalidator,
	}
}

// Create inserts the exam and its questions
func (e *ExamPostgreSQL) Create(ctx context.Context, exam *models.Exam) error {
	if err := e.db.WithContext(ctx).Create(exam).Error; err != nil {
		return fmt.Errorf("failed to create exam: %w", err)
	}
	return nil
}

func (e *ExamPostgreSQL) GetByID(ctx context.Context, id string) (*models.Exam, error) {
	var exam models.Exam

	err := e.cacheManager.Exam.CacheOrExecute(ctx, cache.ExamKey(id), &exam, cache.ExamCacheConfig.TTL, func() (interface{}, error) {
		var dbExam models.Exam
		if err := e.db.WithContext(ctx).
			Preload("Questions", orderedQuestions).
			First(&dbExam, "id = ?", id).Error; err != nil {
			return nil, mapNotFound(err)
		}
		return &dbExam, nil
	})
	if err != nil {
		return nil, err
	}

	return &exam, nil
}

func (e *ExamPostgreSQL) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, error) {
	query, err := ApplyExamFilters(e.db.WithContext(ctx).Model(&models.Exam{}), filters)
	if err != nil {
		return nil, err
	}

	var exams []*models.Exam
	if err := query.
		Preload("Questions", orderedQuestions).
		Order("created_at DESC").
		Find(&exams).Error; err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}

	return exams, nil
}

// Delete removes the exam and its questions. Attempts are removed by the caller.
func (e *ExamPostgreSQL) Delete(ctx context.Context, id string) error {
	db := e.db.WithContext(ctx)

	if err := db.Where("exam_id = ?", id).Delete(&models.Question{}).Error; err != nil {
		return fmt.Errorf("failed to delete exam questions: %w", err)
	}

	result := db.Delete(&models.Exam{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete exam: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	e.invalidator.invalidate(ctx, id)
	return nil
}
