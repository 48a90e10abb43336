package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/docuhub/exam-service/internal/models"
	"github.com/docuhub/exam-service/internal/repositories"
)

type examRepository struct {
	store   *Repository
	journal *journal
}

func (r *examRepository) Create(ctx context.Context, exam *models.Exam) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := r.store.clock()
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = now
	}
	exam.UpdatedAt = now
	if exam.AllowedUsers == nil {
		exam.AllowedUsers = []string{}
	}
	for i := range exam.Questions {
		q := &exam.Questions[i]
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		q.ExamID = exam.ID
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.journal.recordExam(r.store, exam.ID)
	r.store.exams[exam.ID] = cloneExam(exam, true)
	return nil
}

func (r *examRepository) GetByID(ctx context.Context, id string) (*models.Exam, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	exam, ok := r.store.exams[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneExam(exam, true), nil
}

func (r *examRepository) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*models.Exam, 0, len(r.store.exams))
	for _, exam := range r.store.exams {
		if filters.ActiveOnly && !exam.IsActive {
			continue
		}
		if filters.VisibleTo != nil && !visibleTo(exam, *filters.VisibleTo) {
			continue
		}
		out = append(out, cloneExam(exam, true))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *examRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.exams[id]; !ok {
		return repositories.ErrNotFound
	}
	r.journal.recordExam(r.store, id)
	delete(r.store.exams, id)
	return nil
}

// visibleTo mirrors the SQL predicate: listed, empty list, or no list at all
func visibleTo(exam *models.Exam, userID string) bool {
	return exam.AllowedUsers == nil ||
		len(exam.AllowedUsers) == 0 ||
		slices.Contains(exam.AllowedUsers, userID)
}
