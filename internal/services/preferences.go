package services

import (
	"errors"
	"fmt"

	"github.com/patchwatch/backend/internal/database"
	"github.com/patchwatch/backend/internal/models"
	"gorm.io/gorm"
)

// PreferenceService reads and writes per-user notification preferences.
// Reads go through the Redis cache when one is connected.
type PreferenceService struct{}

// NewPreferenceService creates a preference service
func NewPreferenceService() *PreferenceService {
	return &PreferenceService{}
}

// GetPreferences loads a user's preferences. A missing record resolves to
// the all-enabled defaults rather than an error; preference absence never
// blocks a notification.
func (s *PreferenceService) GetPreferences(userID uint) (*models.NotificationPreferences, error) {
	var prefs models.NotificationPreferences
	if err := database.CacheGet(database.PreferencesCacheKey(userID), &prefs); err == nil {
		return &prefs, nil
	}

	err := database.DB.Where("user_id = ?", userID).First(&prefs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultPreferences(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences for user %d: %w", userID, err)
	}

	database.CacheSet(database.PreferencesCacheKey(userID), &prefs, database.CacheTTLPreferences)
	return &prefs, nil
}

// UpdatePreferences upserts the user's record, creating it lazily on the
// first write, and invalidates the cache.
func (s *PreferenceService) UpdatePreferences(userID uint, updated *models.NotificationPreferences) (*models.NotificationPreferences, error) {
	var prefs models.NotificationPreferences
	err := database.DB.Where("user_id = ?", userID).First(&prefs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		prefs = *updated
		prefs.ID = 0
		prefs.UserID = userID
		if err := database.DB.Create(&prefs).Error; err != nil {
			return nil, fmt.Errorf("failed to create preferences for user %d: %w", userID, err)
		}
		database.InvalidatePreferencesCache(userID)
		return &prefs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences for user %d: %w", userID, err)
	}

	err = database.DB.Model(&prefs).Updates(map[string]interface{}{
		"notify_major_patches": updated.NotifyMajorPatches,
		"notify_minor_patches": updated.NotifyMinorPatches,
		"notify_dlc":           updated.NotifyDLC,
		"notify_sales":         updated.NotifySales,
		"notify_esports":       updated.NotifyEsports,
		"notify_cosmetics":     updated.NotifyCosmetics,
		"game_overrides":       updated.GameOverrides,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update preferences for user %d: %w", userID, err)
	}

	database.InvalidatePreferencesCache(userID)
	return &prefs, nil
}
