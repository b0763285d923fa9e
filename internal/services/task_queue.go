package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/patchwatch/backend/internal/config"
	"github.com/patchwatch/backend/internal/database"
	"github.com/patchwatch/backend/internal/models"
	"gorm.io/gorm"
)

// TaskQueue is the durable queue of pending fan-out work. All status
// transitions go through this type; ClaimBatch is the single point of
// mutual exclusion between overlapping sweep runs.
type TaskQueue struct {
	policy config.EnginePolicy
}

// NewTaskQueue creates a task queue with the given policy limits
func NewTaskQueue(policy config.EnginePolicy) *TaskQueue {
	return &TaskQueue{policy: policy}
}

// Enqueue inserts a pending task. The priority hint is clamped to the
// 1-10 intake scale.
func (q *TaskQueue) Enqueue(taskType, entityType string, entityID uint, payload *models.EventPayload, priorityHint int) (*models.NotificationTask, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	if priorityHint < 1 {
		priorityHint = 1
	} else if priorityHint > 10 {
		priorityHint = 10
	}

	task := models.NotificationTask{
		PublicID:    uuid.New().String(),
		TaskType:    taskType,
		EntityType:  entityType,
		EntityID:    entityID,
		Payload:     data,
		Priority:    priorityHint,
		Status:      models.TaskStatusPending,
		MaxAttempts: q.policy.MaxAttempts,
	}

	if err := database.DB.Create(&task).Error; err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	database.InvalidateQueueStatsCache()
	return &task, nil
}

// ClaimBatch atomically flips up to limit pending tasks to processing and
// returns the rows this caller won, ordered by priority descending then
// age ascending. The status guard in the outer WHERE is what prevents two
// overlapping sweeps from claiming the same row; there is no separate
// read-then-write step.
func (q *TaskQueue) ClaimBatch(taskType string, limit int) ([]models.NotificationTask, error) {
	if limit <= 0 {
		limit = q.policy.BatchSize
	}

	now := time.Now().UTC()
	var tasks []models.NotificationTask
	err := database.DB.Raw(`
		UPDATE notification_tasks
		SET status = ?, attempts = attempts + 1, started_at = ?, updated_at = ?
		WHERE status = ?
		AND id IN (
			SELECT id FROM notification_tasks
			WHERE status = ? AND task_type = ?
			ORDER BY priority DESC, created_at ASC
			LIMIT ?
		)
		RETURNING *`,
		models.TaskStatusProcessing, now, now,
		models.TaskStatusPending,
		models.TaskStatusPending, taskType, limit,
	).Scan(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to claim tasks: %w", err)
	}

	// RETURNING does not preserve the subquery's order; restore it so
	// high-priority tasks are processed (and consume cap slots) first
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Priority != tasks[j].Priority {
			return tasks[i].Priority > tasks[j].Priority
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})

	return tasks, nil
}

// Complete finalizes a task as successfully processed with its fan-out counts
func (q *TaskQueue) Complete(taskID uint, result models.TaskResult) error {
	data, _ := json.Marshal(result)
	now := time.Now().UTC()

	err := database.DB.Model(&models.NotificationTask{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":        models.TaskStatusCompleted,
			"result":        data,
			"error_message": "",
			"completed_at":  now,
			"updated_at":    now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to complete task %d: %w", taskID, err)
	}

	database.InvalidateQueueStatsCache()
	return nil
}

// Fail finalizes a failed attempt. While attempts remain below the task's
// cap the row returns to pending for a later sweep; once exhausted it is
// terminally failed.
func (q *TaskQueue) Fail(taskID uint, taskErr error) error {
	var task models.NotificationTask
	if err := database.DB.First(&task, taskID).Error; err != nil {
		return fmt.Errorf("failed to load task %d: %w", taskID, err)
	}

	status := models.TaskStatusPending
	if task.Attempts >= task.MaxAttempts {
		status = models.TaskStatusFailed
	}

	err := database.DB.Model(&models.NotificationTask{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": taskErr.Error(),
			"updated_at":    time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark task %d failed: %w", taskID, err)
	}

	if status == models.TaskStatusFailed {
		log.Printf("TaskQueue: Task %s failed permanently after %d attempts: %v", task.PublicID, task.Attempts, taskErr)
	}

	database.InvalidateQueueStatsCache()
	return nil
}

// FailPermanently skips remaining retries. Used for malformed payloads,
// where another attempt cannot succeed.
func (q *TaskQueue) FailPermanently(taskID uint, taskErr error) error {
	err := database.DB.Model(&models.NotificationTask{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":        models.TaskStatusFailed,
			"attempts":      gorm.Expr("max_attempts"),
			"error_message": taskErr.Error(),
			"updated_at":    time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark task %d failed: %w", taskID, err)
	}

	database.InvalidateQueueStatsCache()
	return nil
}

// ReclaimStale recovers tasks stuck in processing (a worker crashed
// before finalizing). Tasks with attempts remaining return to pending
// without an attempt increment; the claim that died already paid for its
// attempt. Tasks that died on their last attempt are terminally failed so
// a crash can never buy an extra claim past the retry cap.
func (q *TaskQueue) ReclaimStale() (int64, error) {
	cutoff := time.Now().UTC().Add(-q.policy.StaleAfter)
	now := time.Now().UTC()

	exhausted := database.DB.Model(&models.NotificationTask{}).
		Where("status = ? AND started_at < ? AND attempts >= max_attempts", models.TaskStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":        models.TaskStatusFailed,
			"error_message": "claim went stale with no attempts remaining",
			"updated_at":    now,
		})
	if exhausted.Error != nil {
		return 0, fmt.Errorf("failed to expire stale tasks: %w", exhausted.Error)
	}
	if exhausted.RowsAffected > 0 {
		log.Printf("TaskQueue: Failed %d stale tasks with exhausted attempts", exhausted.RowsAffected)
	}

	result := database.DB.Model(&models.NotificationTask{}).
		Where("status = ? AND started_at < ?", models.TaskStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":     models.TaskStatusPending,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to reclaim stale tasks: %w", result.Error)
	}

	reclaimed := result.RowsAffected + exhausted.RowsAffected
	if reclaimed > 0 {
		if result.RowsAffected > 0 {
			log.Printf("TaskQueue: Reclaimed %d stale tasks (processing since before %v)", result.RowsAffected, cutoff)
		}
		database.InvalidateQueueStatsCache()
	}
	return reclaimed, nil
}

// GetByPublicID loads a task by its producer-facing handle
func (q *TaskQueue) GetByPublicID(publicID string) (*models.NotificationTask, error) {
	var task models.NotificationTask
	if err := database.DB.Where("public_id = ?", publicID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// QueueStats summarizes the queue by status
type QueueStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

// Stats counts tasks per status, served from cache when fresh
func (q *TaskQueue) Stats() (*QueueStats, error) {
	var stats QueueStats
	if err := database.CacheGet(database.CacheKeyQueueStats, &stats); err == nil {
		return &stats, nil
	}

	rows := []struct {
		Status string
		Count  int64
	}{}
	err := database.DB.Model(&models.NotificationTask{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	for _, row := range rows {
		switch row.Status {
		case models.TaskStatusPending:
			stats.Pending = row.Count
		case models.TaskStatusProcessing:
			stats.Processing = row.Count
		case models.TaskStatusCompleted:
			stats.Completed = row.Count
		case models.TaskStatusFailed:
			stats.Failed = row.Count
		}
	}

	database.CacheSet(database.CacheKeyQueueStats, &stats, database.CacheTTLQueueStats)
	return &stats, nil
}
