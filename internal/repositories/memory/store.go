package memory

import (
	"context"
	"sync"
	"time"

	"github.com/docuhub/exam-service/internal/models"
	"github.com/docuhub/exam-service/internal/repositories"
)

// Repository is an in-process implementation of repositories.Repository,
// used with STORAGE_DRIVER=memory and in tests. Stored values are copied on
// the way in and out so callers never share memory with the store.
type Repository struct {
	clock func() time.Time

	// txMu serializes transactions. A rollback restores only the keys the
	// transaction wrote, so concurrent writes outside it survive.
	txMu sync.Mutex

	mu       sync.RWMutex
	exams    map[string]*models.Exam
	attempts map[string]*models.ExamAttempt

	users *UserStore
}

// NewRepository creates an empty store backed by the given users
func NewRepository(users *UserStore) *Repository {
	if users == nil {
		users = NewUserStore()
	}
	return &Repository{
		clock:    time.Now,
		exams:    make(map[string]*models.Exam),
		attempts: make(map[string]*models.ExamAttempt),
		users:    users,
	}
}

func (r *Repository) Exam() repositories.ExamRepository {
	return &examRepository{store: r}
}

func (r *Repository) Attempt() repositories.AttemptRepository {
	return &attemptRepository{store: r}
}

func (r *Repository) User() repositories.UserRepository {
	return r.users
}

// Users exposes the writable user store
func (r *Repository) Users() *UserStore {
	return r.users
}

// WithTransaction runs fn and undoes its writes if it fails
func (r *Repository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	tx := &txRepository{store: r, journal: newJournal()}
	if err := fn(tx); err != nil {
		r.mu.Lock()
		tx.journal.restore(r)
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *Repository) Close() error {
	return nil
}

// journal keeps the first-seen value of every key written in a transaction.
// A nil entry means the key did not exist. Callers hold store.mu.
type journal struct {
	exams    map[string]*models.Exam
	attempts map[string]*models.ExamAttempt
}

func newJournal() *journal {
	return &journal{
		exams:    make(map[string]*models.Exam),
		attempts: make(map[string]*models.ExamAttempt),
	}
}

func (j *journal) recordExam(s *Repository, id string) {
	if j == nil {
		return
	}
	if _, seen := j.exams[id]; seen {
		return
	}
	var prev *models.Exam
	if e, ok := s.exams[id]; ok {
		prev = cloneExam(e, true)
	}
	j.exams[id] = prev
}

func (j *journal) recordAttempt(s *Repository, id string) {
	if j == nil {
		return
	}
	if _, seen := j.attempts[id]; seen {
		return
	}
	var prev *models.ExamAttempt
	if a, ok := s.attempts[id]; ok {
		prev = cloneAttempt(a)
	}
	j.attempts[id] = prev
}

func (j *journal) restore(s *Repository) {
	for id, prev := range j.exams {
		if prev == nil {
			delete(s.exams, id)
		} else {
			s.exams[id] = prev
		}
	}
	for id, prev := range j.attempts {
		if prev == nil {
			delete(s.attempts, id)
		} else {
			s.attempts[id] = prev
		}
	}
}

// txRepository is the view handed to a transaction body
type txRepository struct {
	store   *Repository
	journal *journal
}

func (t *txRepository) Exam() repositories.ExamRepository {
	return &examRepository{store: t.store, journal: t.journal}
}

func (t *txRepository) Attempt() repositories.AttemptRepository {
	return &attemptRepository{store: t.store, journal: t.journal}
}

func (t *txRepository) User() repositories.UserRepository {
	return t.store.users
}

// WithTransaction joins the enclosing transaction
func (t *txRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(t)
}

func (t *txRepository) Ping(ctx context.Context) error {
	return t.store.Ping(ctx)
}

func (t *txRepository) Close() error {
	return nil
}

// RepositoryManager wraps the in-memory repository for the service lifecycle
type RepositoryManager struct {
	repo *Repository
}

func NewRepositoryManager(users *UserStore) *RepositoryManager {
	return &RepositoryManager{repo: NewRepository(users)}
}

func (rm *RepositoryManager) Initialize() error {
	return nil
}

func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	return rm.repo.Ping(ctx)
}

func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	return rm.repo.Close()
}

func cloneExam(e *models.Exam, withQuestions bool) *models.Exam {
	out := *e
	out.Creator = nil
	out.AllowedUserDetails = nil
	if e.AllowedUsers != nil {
		out.AllowedUsers = append(make([]string, 0, len(e.AllowedUsers)), e.AllowedUsers...)
	}
	out.Questions = nil
	if withQuestions && e.Questions != nil {
		out.Questions = make([]models.Question, len(e.Questions))
		for i, q := range e.Questions {
			out.Questions[i] = cloneQuestion(q)
		}
	}
	return &out
}

func cloneQuestion(q models.Question) models.Question {
	out := q
	if q.Options != nil {
		out.Options = append(make([]string, 0, len(q.Options)), q.Options...)
	}
	if q.CorrectAnswer != nil {
		out.CorrectAnswer = append([]byte(nil), q.CorrectAnswer...)
	}
	return out
}

func cloneAttempt(a *models.ExamAttempt) *models.ExamAttempt {
	out := *a
	out.Exam = nil
	out.User = nil
	if a.SubmittedAt != nil {
		t := *a.SubmittedAt
		out.SubmittedAt = &t
	}
	if a.Answers != nil {
		out.Answers = make([]models.AttemptAnswer, len(a.Answers))
		for i, ans := range a.Answers {
			out.Answers[i] = ans
			if ans.Answer != nil {
				out.Answers[i].Answer = append([]byte(nil), ans.Answer...)
			}
		}
	}
	return &out
}
