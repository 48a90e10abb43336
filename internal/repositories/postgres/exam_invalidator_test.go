package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/docuhub/exam-service/internal/cache"
)

func newCachedExam(t *testing.T, examID string) (*cache.CacheManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cm := cache.NewCacheManager(client)
	ctx := context.Background()
	if err := cm.Exam.Set(ctx, cache.ExamKey(examID), map[string]string{"id": examID}, time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := cm.Exam.Set(ctx, cache.ExamKey(examID)+":sanitized", map[string]string{"id": examID}, time.Minute); err != nil {
		t.Fatal(err)
	}
	return cm, mr
}

func TestExamInvalidator_Immediate(t *testing.T) {
	cm, mr := newCachedExam(t, "e1")

	newExamInvalidator(cm).invalidate(context.Background(), "e1")

	if mr.Exists("exam:id:e1") || mr.Exists("exam:id:e1:sanitized") {
		t.Error("outside a transaction the exam keys should be dropped at once")
	}
}

func TestExamInvalidator_DeferredUntilFlush(t *testing.T) {
	cm, mr := newCachedExam(t, "e1")
	ctx := context.Background()

	inv := newDeferredExamInvalidator(cm)
	inv.invalidate(ctx, "e1")
	if !mr.Exists("exam:id:e1") {
		t.Fatal("key dropped before commit")
	}

	// A reader repopulating the key before commit is overwritten by the flush
	if err := cm.Exam.Set(ctx, cache.ExamKey("e1"), map[string]string{"id": "e1"}, time.Minute); err != nil {
		t.Fatal(err)
	}

	inv.flush(ctx)
	if mr.Exists("exam:id:e1") || mr.Exists("exam:id:e1:sanitized") {
		t.Error("flush should drop the queued exam keys")
	}

	// Flushing twice is a no-op
	inv.flush(ctx)
}

func TestExamInvalidator_DiscardedOnRollback(t *testing.T) {
	cm, mr := newCachedExam(t, "e1")

	inv := newDeferredExamInvalidator(cm)
	inv.invalidate(context.Background(), "e1")
	// rolled back: flush never runs

	if !mr.Exists("exam:id:e1") {
		t.Error("a rolled back delete must leave the cache alone")
	}
}
