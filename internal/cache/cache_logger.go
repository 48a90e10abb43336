package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// ExamKey is the cache key of a single exam with its questions
func ExamKey(examID string) string {
	return fmt.Sprintf("id:%s", examID)
}

// InvalidateExamCache drops every cached view of an exam
func InvalidateExamCache(ctx context.Context, cm *CacheManager, examID string) {
	SafeDelete(ctx, cm.Exam, ExamKey(examID))
	SafeInvalidatePattern(ctx, cm.Exam, fmt.Sprintf("%s:*", ExamKey(examID)))
}
