package services

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/patchwatch/backend/internal/config"
	"github.com/patchwatch/backend/internal/database"
	"github.com/patchwatch/backend/internal/models"
)

// QueueProcessor drains the smart-notification queue: it claims a batch,
// fans each task out to the interested users, runs every candidate through
// the decision engine and the run limiter, batch-inserts the accepted
// notifications and finalizes the task. It is the only component that
// writes to the notification log.
type QueueProcessor struct {
	queue    *TaskQueue
	resolver *FollowerResolver
	prefs    *PreferenceService
	matcher  RuleMatcher
	policy   config.EnginePolicy
}

// NewQueueProcessor wires a processor with the default store-backed
// collaborators. A nil matcher falls back to the no-boost implementation.
func NewQueueProcessor(policy config.EnginePolicy, matcher RuleMatcher) *QueueProcessor {
	if matcher == nil {
		matcher = NoopRuleMatcher{}
	}
	return &QueueProcessor{
		queue:    NewTaskQueue(policy),
		resolver: NewFollowerResolver(),
		prefs:    NewPreferenceService(),
		matcher:  matcher,
		policy:   policy,
	}
}

// Queue exposes the underlying task queue (shared with the HTTP surface)
func (p *QueueProcessor) Queue() *TaskQueue {
	return p.queue
}

// TaskOutcome reports one task's fan-out result
type TaskOutcome struct {
	TaskID   string `json:"task_id"`
	Notified int    `json:"notified"`
	Skipped  int    `json:"skipped"`
	Error    string `json:"error,omitempty"`
}

// RunReport summarizes one sweep
type RunReport struct {
	Processed int           `json:"processed"`
	Results   []TaskOutcome `json:"results"`
}

// ProcessQueue claims up to batchSize pending tasks and processes them to
// completion. Safe to invoke repeatedly and concurrently; overlap safety
// rests entirely on ClaimBatch's atomicity. A single RunLimiter spans the
// whole batch so the daily cap holds across tasks in one run.
func (p *QueueProcessor) ProcessQueue(batchSize int) (*RunReport, error) {
	tasks, err := p.queue.ClaimBatch(models.TaskTypeSmartNotification, batchSize)
	if err != nil {
		return nil, err
	}

	report := &RunReport{Processed: len(tasks)}
	if len(tasks) == 0 {
		return report, nil
	}
	log.Printf("QueueProcessor: Claimed %d tasks", len(tasks))

	limiter := NewRunLimiter(p.policy)
	for i := range tasks {
		report.Results = append(report.Results, p.processTask(&tasks[i], limiter))
	}
	return report, nil
}

func (p *QueueProcessor) processTask(task *models.NotificationTask, limiter *RunLimiter) TaskOutcome {
	outcome := TaskOutcome{TaskID: task.PublicID}

	var payload models.EventPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		// Retrying cannot fix a payload that does not parse
		p.failPermanently(task, fmt.Errorf("malformed payload: %w", err), &outcome)
		return outcome
	}
	if payload.GameID == 0 {
		p.failPermanently(task, fmt.Errorf("malformed payload: missing game_id"), &outcome)
		return outcome
	}

	followers, err := p.resolveFollowers(task.EntityType, payload.GameID)
	if err != nil {
		p.fail(task, err, &outcome)
		return outcome
	}
	if len(followers) == 0 {
		p.complete(task, &outcome)
		return outcome
	}

	notifType := models.NotificationTypeFor(task.EntityType)
	ref := dedupRef(task, &payload)

	var staged []models.Notification
	var followerErrs []string
	for _, userID := range followers {
		prefs, err := p.prefs.GetPreferences(userID)
		if err != nil {
			followerErrs = append(followerErrs, fmt.Sprintf("user %d: %v", userID, err))
			outcome.Skipped++
			continue
		}

		decision := Decide(userID, task.EntityType, &payload, prefs, p.matcher)
		if !decision.Notify {
			outcome.Skipped++
			continue
		}

		allowed, _, err := limiter.ShouldEmit(userID, notifType, ref)
		if err != nil {
			followerErrs = append(followerErrs, fmt.Sprintf("user %d: %v", userID, err))
			outcome.Skipped++
			continue
		}
		if !allowed {
			outcome.Skipped++
			continue
		}

		staged = append(staged, buildNotification(task, &payload, userID, decision))
		outcome.Notified++
	}

	if len(staged) > 0 {
		if err := database.DB.Create(&staged).Error; err != nil {
			// Nothing was written; the retry reruns under a fresh
			// limiter on a later sweep. Counters already advanced for
			// these rows can under-fill the rest of this run, never
			// overshoot the cap.
			outcome.Notified = 0
			outcome.Skipped = 0
			p.fail(task, fmt.Errorf("failed to insert notifications: %w", err), &outcome)
			return outcome
		}
	}

	p.complete(task, &outcome)
	if len(followerErrs) > 0 {
		outcome.Error = strings.Join(followerErrs, "; ")
		log.Printf("QueueProcessor: Task %s had %d follower errors: %s", task.PublicID, len(followerErrs), outcome.Error)
	}
	return outcome
}

func (p *QueueProcessor) resolveFollowers(entityType string, gameID uint) ([]uint, error) {
	if entityType == models.EntityTypeReminder {
		return p.resolver.ResolveSavedUsers(gameID)
	}
	return p.resolver.ResolveInterestedUsers(gameID)
}

func (p *QueueProcessor) complete(task *models.NotificationTask, outcome *TaskOutcome) {
	result := models.TaskResult{Notified: outcome.Notified, Skipped: outcome.Skipped}
	if err := p.queue.Complete(task.ID, result); err != nil {
		log.Printf("QueueProcessor: Failed to finalize task %s: %v", task.PublicID, err)
		outcome.Error = err.Error()
	}
}

func (p *QueueProcessor) fail(task *models.NotificationTask, taskErr error, outcome *TaskOutcome) {
	outcome.Error = taskErr.Error()
	if err := p.queue.Fail(task.ID, taskErr); err != nil {
		log.Printf("QueueProcessor: Failed to mark task %s failed: %v", task.PublicID, err)
	}
}

func (p *QueueProcessor) failPermanently(task *models.NotificationTask, taskErr error, outcome *TaskOutcome) {
	outcome.Error = taskErr.Error()
	log.Printf("QueueProcessor: Task %s rejected: %v", task.PublicID, taskErr)
	if err := p.queue.FailPermanently(task.ID, taskErr); err != nil {
		log.Printf("QueueProcessor: Failed to mark task %s failed: %v", task.PublicID, err)
	}
}

// dedupRef picks the content identifier the dedup key is built from
func dedupRef(task *models.NotificationTask, payload *models.EventPayload) uint {
	switch task.EntityType {
	case models.EntityTypePatch, models.EntityTypeNews:
		return task.EntityID
	case models.EntityTypeDeal:
		if payload.DealID != 0 {
			return payload.DealID
		}
		return task.EntityID
	}
	return payload.GameID
}

// buildNotification stages one feed row for one recipient
func buildNotification(task *models.NotificationTask, payload *models.EventPayload, userID uint, decision Decision) models.Notification {
	gameName := payload.GameName
	if gameName == "" {
		gameName = payload.Title
	}

	notification := models.Notification{
		UserID:   userID,
		Type:     models.NotificationTypeFor(task.EntityType),
		Title:    payload.Title,
		Priority: decision.Priority,
		GameID:   ptr(payload.GameID),
	}

	meta := models.NotificationMetadata{
		TaskID:       task.PublicID,
		FilterReason: decision.Reason,
	}

	switch task.EntityType {
	case models.EntityTypePatch:
		notification.PatchID = ptr(task.EntityID)
		notification.Body = payload.Excerpt
		if notification.Body == "" {
			notification.Body = fmt.Sprintf("%s received a new update", gameName)
		}
		meta.ImpactScore = payload.ImpactScore

	case models.EntityTypeNews:
		notification.NewsID = ptr(task.EntityID)
		notification.Body = payload.Excerpt

	case models.EntityTypeDeal:
		notification.Body = fmt.Sprintf("%s is %d%% off", gameName, payload.DiscountPercent)
		meta.DealID = payload.DealID
		if meta.DealID == 0 {
			meta.DealID = task.EntityID
		}

	case models.EntityTypeRelease:
		notification.Body = fmt.Sprintf("%s is out now", gameName)

	case models.EntityTypeReminder:
		notification.Title = fmt.Sprintf("Still in your backlog: %s", gameName)
		notification.Body = payload.Excerpt
		if notification.Body == "" {
			notification.Body = fmt.Sprintf("You saved %s a while ago. Maybe tonight?", gameName)
		}
	}

	notification.Metadata, _ = json.Marshal(meta)
	return notification
}

func ptr(v uint) *uint {
	return &v
}
