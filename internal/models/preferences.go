package models

import (
	"encoding/json"
	"strconv"
)

// NotificationPreferences holds a user's per-category toggles and
// per-game overrides. The record is created lazily on first write; a
// missing row is equivalent to DefaultPreferences for that user.
type NotificationPreferences struct {
	ID                 uint            `gorm:"column:id;primaryKey" json:"id"`
	UserID             uint            `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	// No column defaults on the toggles: gorm omits zero-valued fields
	// that carry a default tag, which would turn an explicit false into
	// true on insert. DefaultPreferences supplies the all-enabled state.
	NotifyMajorPatches bool            `gorm:"column:notify_major_patches;not null" json:"notify_major_patches"`
	NotifyMinorPatches bool            `gorm:"column:notify_minor_patches;not null" json:"notify_minor_patches"`
	NotifyDLC          bool            `gorm:"column:notify_dlc;not null" json:"notify_dlc"`
	NotifySales        bool            `gorm:"column:notify_sales;not null" json:"notify_sales"`
	NotifyEsports      bool            `gorm:"column:notify_esports;not null" json:"notify_esports"`
	NotifyCosmetics    bool            `gorm:"column:notify_cosmetics;not null" json:"notify_cosmetics"`
	GameOverrides      json.RawMessage `gorm:"column:game_overrides;type:json" json:"game_overrides"`
}

func (NotificationPreferences) TableName() string {
	return "notification_preferences"
}

// GameOverride is a per-game exception to the category toggles
type GameOverride struct {
	Muted     bool `json:"muted,omitempty"`
	NotifyAll bool `json:"notify_all,omitempty"`
}

// DefaultPreferences returns the hard-coded fallback used when a user has
// no stored record: every category enabled, no overrides.
func DefaultPreferences(userID uint) *NotificationPreferences {
	return &NotificationPreferences{
		UserID:             userID,
		NotifyMajorPatches: true,
		NotifyMinorPatches: true,
		NotifyDLC:          true,
		NotifySales:        true,
		NotifyEsports:      true,
		NotifyCosmetics:    true,
	}
}

// Overrides decodes the game_overrides column into a map keyed by game ID.
// JSON object keys are strings, so numeric IDs are parsed back out; entries
// with non-numeric keys are dropped.
func (p *NotificationPreferences) Overrides() map[uint]GameOverride {
	result := make(map[uint]GameOverride)
	if len(p.GameOverrides) == 0 {
		return result
	}
	var raw map[string]GameOverride
	if err := json.Unmarshal(p.GameOverrides, &raw); err != nil {
		return result
	}
	for key, override := range raw {
		id, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			continue
		}
		result[uint(id)] = override
	}
	return result
}

// SetOverrides encodes the map back into the game_overrides column
func (p *NotificationPreferences) SetOverrides(overrides map[uint]GameOverride) error {
	raw := make(map[string]GameOverride, len(overrides))
	for id, override := range overrides {
		raw[strconv.FormatUint(uint64(id), 10)] = override
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	p.GameOverrides = data
	return nil
}
