package models

import (
	"encoding/json"
	"time"
)

// Task status lifecycle: pending -> processing -> completed | failed.
// A failed task with attempts < max_attempts is returned to pending.
const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// Task types processed by the queue. Only smart_notification is handled
// by the fan-out engine; the constant exists so producers and workers
// agree on the string.
const (
	TaskTypeSmartNotification = "smart_notification"
)

// Content entity types a task can reference
const (
	EntityTypePatch   = "patch"
	EntityTypeNews    = "news"
	EntityTypeDeal    = "deal"
	EntityTypeRelease = "release"
	// EntityTypeReminder produces silent saved_reminder entries for
	// backlog holders; it has no ingestion fetcher behind it.
	EntityTypeReminder = "reminder"
)

// NotificationTypeFor maps a task entity type to the notification type
// written to the feed
func NotificationTypeFor(entityType string) string {
	switch entityType {
	case EntityTypePatch:
		return NotifyNewPatch
	case EntityTypeNews:
		return NotifyNewNews
	case EntityTypeDeal:
		return NotifyPriceDrop
	case EntityTypeRelease:
		return NotifyGameRelease
	case EntityTypeReminder:
		return NotifySavedReminder
	}
	return ""
}

// NotificationTask is one unit of queued fan-out work tied to a single content event
type NotificationTask struct {
	ID           uint            `gorm:"column:id;primaryKey" json:"id"`
	PublicID     string          `gorm:"column:public_id;size:36;uniqueIndex;not null" json:"public_id"`
	TaskType     string          `gorm:"column:task_type;size:50;not null;index:idx_tasks_claim" json:"task_type"`
	EntityType   string          `gorm:"column:entity_type;size:20;not null" json:"entity_type"`
	EntityID     uint            `gorm:"column:entity_id;not null" json:"entity_id"`
	Payload      json.RawMessage `gorm:"column:payload;type:json" json:"payload"`
	Priority     int             `gorm:"column:priority;default:5" json:"priority"` // 1-10 intake hint
	Status       string          `gorm:"column:status;size:20;not null;default:pending;index:idx_tasks_claim" json:"status"`
	Attempts     int             `gorm:"column:attempts;default:0" json:"attempts"`
	MaxAttempts  int             `gorm:"column:max_attempts;default:3" json:"max_attempts"`
	ErrorMessage string          `gorm:"column:error_message;type:text" json:"error_message"`
	Result       json.RawMessage `gorm:"column:result;type:json" json:"result"`
	CreatedAt    time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at" json:"updated_at"`
	StartedAt    *time.Time      `gorm:"column:started_at" json:"started_at"`
	CompletedAt  *time.Time      `gorm:"column:completed_at" json:"completed_at"`
}

func (NotificationTask) TableName() string {
	return "notification_tasks"
}

// TaskResult is the summary stored in the result column of a completed task
type TaskResult struct {
	Notified int `json:"notified"`
	Skipped  int `json:"skipped"`
}

// EventPayload is the structured payload carried by a smart_notification task.
// It is a variant record keyed by the task's entity_type: patch events carry
// ImpactScore, news events carry IsRumor/Topics, deal events carry
// DiscountPercent/DealID. Release events use only the common fields.
type EventPayload struct {
	GameID   uint   `json:"game_id"`
	GameName string `json:"game_name,omitempty"`
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt,omitempty"`

	// patch
	ImpactScore int `json:"impact_score,omitempty"`

	// news
	IsRumor bool     `json:"is_rumor,omitempty"`
	Topics  []string `json:"topics,omitempty"`

	// deal
	DiscountPercent int  `json:"discount_percent,omitempty"`
	DealID          uint `json:"deal_id,omitempty"`
}
