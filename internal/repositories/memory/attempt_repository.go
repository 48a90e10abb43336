package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/docuhub/exam-service/internal/models"
	"github.com/docuhub/exam-service/internal/repositories"
)

type attemptRepository struct {
	store   *Repository
	journal *journal
}

func (r *attemptRepository) Create(ctx context.Context, attempt *models.ExamAttempt) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := r.store.clock()
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.Status == "" {
		attempt.Status = models.AttemptInProgress
	}
	attempt.CreatedAt = now
	attempt.UpdatedAt = now

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.journal.recordAttempt(r.store, attempt.ID)
	r.store.attempts[attempt.ID] = cloneAttempt(attempt)
	return nil
}

func (r *attemptRepository) GetByID(ctx context.Context, id string) (*models.ExamAttempt, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	attempt, ok := r.store.attempts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneAttempt(attempt), nil
}

func (r *attemptRepository) FindInProgress(ctx context.Context, examID, userID string) (*models.ExamAttempt, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var found *models.ExamAttempt
	for _, a := range r.store.attempts {
		if a.ExamID != examID || a.UserID != userID || a.Status != models.AttemptInProgress {
			continue
		}
		if found == nil || a.StartedAt.After(found.StartedAt) {
			found = a
		}
	}
	if found == nil {
		return nil, repositories.ErrNotFound
	}
	return cloneAttempt(found), nil
}

func (r *attemptRepository) CountByExamAndUser(ctx context.Context, examID, userID string) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var count int64
	for _, a := range r.store.attempts {
		if a.ExamID == examID && a.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *attemptRepository) Complete(ctx context.Context, attempt *models.ExamAttempt) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.attempts[attempt.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if stored.Status != models.AttemptInProgress {
		return repositories.ErrConflict
	}

	for i := range attempt.Answers {
		attempt.Answers[i].AttemptID = attempt.ID
		attempt.Answers[i].Position = i
	}
	attempt.UpdatedAt = r.store.clock()

	updated := cloneAttempt(attempt)
	updated.ExamID = stored.ExamID
	updated.UserID = stored.UserID
	updated.StartedAt = stored.StartedAt
	updated.CreatedAt = stored.CreatedAt
	r.journal.recordAttempt(r.store, attempt.ID)
	r.store.attempts[attempt.ID] = updated
	return nil
}

func (r *attemptRepository) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.ExamAttempt, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*models.ExamAttempt, 0)
	for _, a := range r.store.attempts {
		if filters.ExamID != nil && a.ExamID != *filters.ExamID {
			continue
		}
		if filters.UserID != nil && a.UserID != *filters.UserID {
			continue
		}
		if filters.Status != nil && a.Status != *filters.Status {
			continue
		}
		attempt := cloneAttempt(a)
		if exam, ok := r.store.exams[a.ExamID]; ok {
			attempt.Exam = cloneExam(exam, false)
		}
		out = append(out, attempt)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return submittedFirst(out[i], out[j])
	})
	return out, nil
}

// submittedFirst orders by submittedAt desc with unsubmitted attempts last
func submittedFirst(a, b *models.ExamAttempt) bool {
	switch {
	case a.SubmittedAt != nil && b.SubmittedAt != nil:
		if !a.SubmittedAt.Equal(*b.SubmittedAt) {
			return a.SubmittedAt.After(*b.SubmittedAt)
		}
	case a.SubmittedAt != nil:
		return true
	case b.SubmittedAt != nil:
		return false
	}
	return a.StartedAt.After(b.StartedAt)
}

func (r *attemptRepository) DeleteByExam(ctx context.Context, examID string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var deleted int64
	for id, a := range r.store.attempts {
		if a.ExamID == examID {
			r.journal.recordAttempt(r.store, id)
			delete(r.store.attempts, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *attemptRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var expired int64
	for id, a := range r.store.attempts {
		if a.Status != models.AttemptInProgress {
			continue
		}
		exam, ok := r.store.exams[a.ExamID]
		if !ok || !a.DeadlineFor(exam).Before(now) {
			continue
		}
		r.journal.recordAttempt(r.store, id)
		a.Status = models.AttemptExpired
		a.UpdatedAt = now
		expired++
	}
	return expired, nil
}
