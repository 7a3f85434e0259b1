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

// InvalidateTemplateCache drops the cached template and every list that may contain it
func InvalidateTemplateCache(ctx context.Context, cm *CacheManager, templateID uint) {
	SafeDelete(ctx, cm.Template, fmt.Sprintf("id:%d", templateID))
	SafeInvalidatePattern(ctx, cm.Template, "list:*")
	// assignments embed their template
	SafeInvalidatePattern(ctx, cm.Assignment, "user:*")
}

// InvalidateUserAssignments drops the cached assignment list of one user
func InvalidateUserAssignments(ctx context.Context, cm *CacheManager, userID string) {
	SafeDelete(ctx, cm.Assignment, fmt.Sprintf("user:%s", userID))
}
