package services

import (
	"fmt"

	"github.com/patchwatch/backend/internal/database"
)

// FollowerResolver expands a content event's subject game into the set of
// users with an interest relationship. The relations are read-only here;
// the library subsystem owns the rows.
type FollowerResolver struct{}

// NewFollowerResolver creates a follower resolver
func NewFollowerResolver() *FollowerResolver {
	return &FollowerResolver{}
}

// ResolveInterestedUsers returns the deduplicated union of explicit
// followers and backlog holders for a game. An empty result is a normal,
// common outcome.
func (r *FollowerResolver) ResolveInterestedUsers(gameID uint) ([]uint, error) {
	var userIDs []uint
	err := database.DB.Raw(`
		SELECT user_id FROM game_follows WHERE game_id = ?
		UNION
		SELECT user_id FROM backlog_entries WHERE game_id = ?`,
		gameID, gameID,
	).Scan(&userIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve followers for game %d: %w", gameID, err)
	}
	return userIDs, nil
}

// ResolveSavedUsers returns only backlog holders. Saved reminders target
// users who shelved the game, not everyone following its news.
func (r *FollowerResolver) ResolveSavedUsers(gameID uint) ([]uint, error) {
	var userIDs []uint
	err := database.DB.Raw(
		`SELECT DISTINCT user_id FROM backlog_entries WHERE game_id = ?`, gameID,
	).Scan(&userIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve backlog holders for game %d: %w", gameID, err)
	}
	return userIDs, nil
}
