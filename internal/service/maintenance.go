package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/jobs"
)

// Maintenance task kinds handled by MaintenanceHandler.
const (
	TaskInvalidateCourse = "invalidate-course"
	TaskCleanupExports   = "cleanup-exports"
)

type taskQueue interface {
	Enqueue(task jobs.Task) error
}

type exportJanitor interface {
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// RetryingInvalidator drops a course's cached analytics immediately and hands
// failed invalidations to the maintenance queue.
type RetryingInvalidator struct {
	cache  courseCacheInvalidator
	queue  taskQueue
	logger *zap.Logger
}

// NewRetryingInvalidator constructs a RetryingInvalidator.
func NewRetryingInvalidator(cache courseCacheInvalidator, queue taskQueue, logger *zap.Logger) *RetryingInvalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingInvalidator{cache: cache, queue: queue, logger: logger}
}

// InvalidateCourse returns an error only when the invalidation failed and could not be queued.
func (r *RetryingInvalidator) InvalidateCourse(ctx context.Context, courseID string) error {
	err := r.cache.InvalidateCourse(ctx, courseID)
	if err == nil || r.queue == nil {
		return err
	}
	if qerr := r.queue.Enqueue(jobs.Task{Kind: TaskInvalidateCourse, Key: courseID}); qerr != nil {
		r.logger.Error("failed to queue cache invalidation", zap.String("course_id", courseID), zap.Error(qerr))
		return err
	}
	r.logger.Warn("cache invalidation deferred", zap.String("course_id", courseID), zap.Error(err))
	return nil
}

// MaintenanceHandler runs queued cache invalidations and export cleanups.
func MaintenanceHandler(cache courseCacheInvalidator, exports exportJanitor, exportTTL time.Duration, logger *zap.Logger) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, task jobs.Task) error {
		switch task.Kind {
		case TaskInvalidateCourse:
			return cache.InvalidateCourse(ctx, task.Key)
		case TaskCleanupExports:
			if exports == nil {
				return nil
			}
			removed, err := exports.CleanupOlderThan(exportTTL)
			if len(removed) > 0 {
				logger.Info("expired exports removed", zap.Int("count", len(removed)))
			}
			return err
		default:
			return fmt.Errorf("unknown maintenance task %q", task.Kind)
		}
	}
}
