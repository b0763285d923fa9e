package models

import (
	"encoding/json"
	"time"
)

// Notification kinds on the user-facing feed
const (
	NotifyNewPatch      = "new_patch"
	NotifyNewNews       = "new_news"
	NotifyPriceDrop     = "price_drop"
	NotifyGameRelease   = "game_release"
	NotifySavedReminder = "saved_reminder"
)

// Notification is one emitted record for one recipient and one content
// subject. Rows are append-only from the engine's point of view; only the
// product surface ever touches read_at.
type Notification struct {
	ID        uint            `gorm:"column:id;primaryKey" json:"id"`
	UserID    uint            `gorm:"column:user_id;not null;index:idx_notifications_user_day" json:"user_id"`
	Type      string          `gorm:"column:type;size:30;not null" json:"type"`
	Title     string          `gorm:"column:title;size:255;not null" json:"title"`
	Body      string          `gorm:"column:body;type:text" json:"body"`
	Priority  int             `gorm:"column:priority;default:3" json:"priority"` // 1-5 user-facing scale
	GameID    *uint           `gorm:"column:game_id;index" json:"game_id"`
	PatchID   *uint           `gorm:"column:patch_id" json:"patch_id"`
	NewsID    *uint           `gorm:"column:news_id" json:"news_id"`
	Metadata  json.RawMessage `gorm:"column:metadata;type:json" json:"metadata"`
	ReadAt    *time.Time      `gorm:"column:read_at" json:"read_at"`
	CreatedAt time.Time       `gorm:"column:created_at;index:idx_notifications_user_day" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// NotificationMetadata is the free-form metadata stored alongside a
// notification: dedup keys and the audit trail of the filtering decision.
type NotificationMetadata struct {
	TaskID       string `json:"task_id,omitempty"`
	DealID       uint   `json:"deal_id,omitempty"`
	FilterReason string `json:"filter_reason,omitempty"`
	ImpactScore  int    `json:"impact_score,omitempty"`
}

// Meta decodes the metadata column; a missing or malformed column decodes
// to the zero value rather than failing.
func (n *Notification) Meta() NotificationMetadata {
	var meta NotificationMetadata
	if len(n.Metadata) > 0 {
		json.Unmarshal(n.Metadata, &meta)
	}
	return meta
}
