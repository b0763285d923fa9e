package models

import "time"

// Subscription tiers; alert rules only fire for premium accounts
const (
	TierFree    = "free"
	TierPremium = "premium"
)

// UserProfile carries the subscription tier used to gate alert rules.
// Account data itself lives with the auth subsystem.
type UserProfile struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"id"`
	UserID    uint      `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	Tier      string    `gorm:"column:tier;size:20;default:free" json:"tier"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

// AlertRule is a user-authored priority rule. When an event matches, the
// rule's boost is added to the base notification priority (clamped to 5).
type AlertRule struct {
	ID         uint      `gorm:"column:id;primaryKey" json:"id"`
	UserID     uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	Name       string    `gorm:"column:name;size:100;not null" json:"name"`
	GameID     *uint     `gorm:"column:game_id" json:"game_id"` // nil matches any game
	EntityType string    `gorm:"column:entity_type;size:20" json:"entity_type"` // empty matches any type
	MinImpact  int       `gorm:"column:min_impact;default:0" json:"min_impact"` // patch events only
	Boost      int       `gorm:"column:boost;default:1" json:"boost"`
	Enabled    bool      `gorm:"column:enabled;not null" json:"enabled"` // no default tag: a stored false must survive insert
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (AlertRule) TableName() string {
	return "alert_rules"
}

// Matches reports whether the rule applies to the given event
func (r *AlertRule) Matches(entityType string, payload *EventPayload) bool {
	if !r.Enabled {
		return false
	}
	if r.GameID != nil && *r.GameID != payload.GameID {
		return false
	}
	if r.EntityType != "" && r.EntityType != entityType {
		return false
	}
	if entityType == EntityTypePatch && payload.ImpactScore < r.MinImpact {
		return false
	}
	return true
}
