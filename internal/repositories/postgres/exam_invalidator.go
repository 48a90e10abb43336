package postgres

import (
	"context"
	"sync"

	"github.com/docuhub/exam-service/internal/cache"
)

// examInvalidator drops cached exams. Inside a transaction the ids are held
// until flush runs after commit; a rollback simply discards them.
type examInvalidator struct {
	cacheManager *cache.CacheManager
	deferred     bool

	mu      sync.Mutex
	pending []string
}

func newExamInvalidator(cm *cache.CacheManager) *examInvalidator {
	return &examInvalidator{cacheManager: cm}
}

func newDeferredExamInvalidator(cm *cache.CacheManager) *examInvalidator {
	return &examInvalidator{cacheManager: cm, deferred: true}
}

func (i *examInvalidator) invalidate(ctx context.Context, examID string) {
	if !i.deferred {
		cache.InvalidateExamCache(ctx, i.cacheManager, examID)
		return
	}
	i.mu.Lock()
	i.pending = append(i.pending, examID)
	i.mu.Unlock()
}

// flush invalidates everything queued since the transaction began
func (i *examInvalidator) flush(ctx context.Context) {
	i.mu.Lock()
	pending := i.pending
	i.pending = nil
	i.mu.Unlock()

	for _, id := range pending {
		cache.InvalidateExamCache(ctx, i.cacheManager, id)
	}
}
