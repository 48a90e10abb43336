package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/docuhub/exam-service/internal/models"
	"github.com/docuhub/exam-service/internal/repositories"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.ExamAttempt) error {
	if err := a.db.WithContext(ctx).Omit("Exam").Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	return nil
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id string) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := a.db.WithContext(ctx).
		Preload("Answers", orderedAnswers).
		First(&attempt, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) FindInProgress(ctx context.Context, examID, userID string) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := a.db.WithContext(ctx).
		Where("exam_id = ? AND user_id = ? AND status = ?", examID, userID, models.AttemptInProgress).
		Order("started_at DESC").
		First(&attempt).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) CountByExamAndUser(ctx context.Context, examID, userID string) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("exam_id = ? AND user_id = ?", examID, userID).
		Count(&count).Error
	return count, err
}

// Complete flips the attempt to completed with a conditional update, then stores the answer records
func (a *AttemptPostgreSQL) Complete(ctx context.Context, attempt *models.ExamAttempt) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ExamAttempt{}).
			Where("id = ? AND status = ?", attempt.ID, models.AttemptInProgress).
			Updates(map[string]interface{}{
				"status":       attempt.Status,
				"score":        attempt.Score,
				"time_spent":   attempt.TimeSpent,
				"submitted_at": attempt.SubmittedAt,
				"updated_at":   time.Now().UTC(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to complete attempt: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return repositories.ErrConflict
		}

		if len(attempt.Answers) == 0 {
			return nil
		}
		for i := range attempt.Answers {
			attempt.Answers[i].AttemptID = attempt.ID
			attempt.Answers[i].Position = i
		}
		if err := tx.Create(&attempt.Answers).Error; err != nil {
			return fmt.Errorf("failed to store attempt answers: %w", err)
		}
		return nil
	})
}

func (a *AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.ExamAttempt, error) {
	query := ApplyAttemptFilters(a.db.WithContext(ctx).Model(&models.ExamAttempt{}), filters)

	var attempts []*models.ExamAttempt
	if err := query.
		Preload("Answers", orderedAnswers).
		Preload("Exam", examSummary).
		Order("submitted_at DESC NULLS LAST").
		Order("started_at DESC").
		Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	return attempts, nil
}

// DeleteByExam removes every attempt of an exam together with its answer records
func (a *AttemptPostgreSQL) DeleteByExam(ctx context.Context, examID string) (int64, error) {
	db := a.db.WithContext(ctx)

	attemptIDs := db.Model(&models.ExamAttempt{}).Select("id").Where("exam_id = ?", examID)
	if err := db.Where("attempt_id IN (?)", attemptIDs).Delete(&models.AttemptAnswer{}).Error; err != nil {
		return 0, fmt.Errorf("failed to delete attempt answers: %w", err)
	}

	result := db.Where("exam_id = ?", examID).Delete(&models.ExamAttempt{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete attempts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (a *AttemptPostgreSQL) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	result := a.db.WithContext(ctx).Exec(`
		UPDATE exam_attempts AS a
		SET status = ?, updated_at = ?
		FROM exams AS e
		WHERE a.exam_id = e.id
		  AND a.status = ?
		  AND a.started_at + (e.duration * INTERVAL '1 minute') < ?`,
		models.AttemptExpired, now, models.AttemptInProgress, now)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire attempts: %w", result.Error)
	}
	return result.RowsAffected, nil
}
