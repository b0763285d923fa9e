package models

import "time"

// GameFollow is an explicit "follows this game" relation. Rows are owned
// by the library subsystem; the engine only reads them.
type GameFollow struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"id"`
	UserID    uint      `gorm:"column:user_id;not null;uniqueIndex:idx_follows_user_game" json:"user_id"`
	GameID    uint      `gorm:"column:game_id;not null;uniqueIndex:idx_follows_user_game;index" json:"game_id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (GameFollow) TableName() string {
	return "game_follows"
}

// BacklogEntry is a game in a user's personal backlog/library. Backlog
// membership counts as interest for fan-out purposes regardless of status.
type BacklogEntry struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"id"`
	UserID    uint      `gorm:"column:user_id;not null;uniqueIndex:idx_backlog_user_game" json:"user_id"`
	GameID    uint      `gorm:"column:game_id;not null;uniqueIndex:idx_backlog_user_game;index" json:"game_id"`
	Status    string    `gorm:"column:status;size:20;default:backlog" json:"status"` // backlog, playing, finished
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (BacklogEntry) TableName() string {
	return "backlog_entries"
}
