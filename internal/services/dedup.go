package services

import (
	"fmt"
	"time"

	"github.com/patchwatch/backend/internal/config"
	"github.com/patchwatch/backend/internal/database"
	"github.com/patchwatch/backend/internal/models"
)

// Skip reasons produced by the limiter, reported in task results
const (
	SkipDuplicate = "duplicate"
	SkipDailyCap  = "daily_cap_reached"
)

// RunLimiter enforces the dedup window and the daily cap for one
// processing run. It keeps per-user state in memory so a batch that fans
// out to the same user many times neither re-reads the store for every
// candidate nor overshoots the cap: the counters advance the moment a
// notification is provisionally accepted, before the batch write.
type RunLimiter struct {
	policy config.EnginePolicy
	now    func() time.Time

	dailyCounts map[uint]int
	seeded      map[uint]bool
	granted     map[string]bool
}

// NewRunLimiter creates a limiter scoped to a single processing run
func NewRunLimiter(policy config.EnginePolicy) *RunLimiter {
	return &RunLimiter{
		policy:      policy,
		now:         time.Now,
		dailyCounts: make(map[uint]int),
		seeded:      make(map[uint]bool),
		granted:     make(map[string]bool),
	}
}

// ShouldEmit evaluates both gates for one candidate notification. The ref
// is the content identifier the dedup key is built from: patch ID for
// new_patch, news ID for new_news, deal ID for price_drop, game ID for
// game_release and saved_reminder. On acceptance the run-scoped counters
// are updated immediately.
func (l *RunLimiter) ShouldEmit(userID uint, notifType string, ref uint) (bool, string, error) {
	key := fmt.Sprintf("%d:%s:%d", userID, notifType, ref)

	if l.granted[key] {
		return false, SkipDuplicate, nil
	}
	exists, err := l.existsInWindow(userID, notifType, ref)
	if err != nil {
		return false, "", err
	}
	if exists {
		return false, SkipDuplicate, nil
	}

	// Saved reminders are silent entries: they neither count toward nor
	// are blocked by the daily cap.
	if notifType != models.NotifySavedReminder {
		count, err := l.dailyCount(userID)
		if err != nil {
			return false, "", err
		}
		if count >= l.policy.DailyCap {
			return false, SkipDailyCap, nil
		}
		l.dailyCounts[userID] = count + 1
	}

	l.granted[key] = true
	return true, "", nil
}

// window returns the rolling dedup window for a notification type
func (l *RunLimiter) window(notifType string) time.Duration {
	if notifType == models.NotifySavedReminder {
		return l.policy.ReminderWindow
	}
	return l.policy.ContentWindow
}

// existsInWindow checks the notification log for a prior emission with the
// same dedup key. Deal references live in the metadata column, so those
// candidates are filtered in memory rather than with dialect-specific JSON
// operators.
func (l *RunLimiter) existsInWindow(userID uint, notifType string, ref uint) (bool, error) {
	since := l.now().Add(-l.window(notifType))
	query := database.DB.Model(&models.Notification{}).
		Where("user_id = ? AND type = ? AND created_at >= ?", userID, notifType, since)

	switch notifType {
	case models.NotifyNewPatch:
		query = query.Where("patch_id = ?", ref)
	case models.NotifyNewNews:
		query = query.Where("news_id = ?", ref)
	case models.NotifyPriceDrop:
		var candidates []models.Notification
		if err := query.Find(&candidates).Error; err != nil {
			return false, fmt.Errorf("failed to query prior notifications: %w", err)
		}
		for i := range candidates {
			if candidates[i].Meta().DealID == ref {
				return true, nil
			}
		}
		return false, nil
	default:
		query = query.Where("game_id = ?", ref)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to query prior notifications: %w", err)
	}
	return count > 0, nil
}

// dailyCount returns the user's non-reminder notification count for the
// current day, seeding from the store on first sight of the user and
// serving from the run accumulator after that.
func (l *RunLimiter) dailyCount(userID uint) (int, error) {
	if l.seeded[userID] {
		return l.dailyCounts[userID], nil
	}

	now := l.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var count int64
	err := database.DB.Model(&models.Notification{}).
		Where("user_id = ? AND type <> ? AND created_at >= ?", userID, models.NotifySavedReminder, startOfDay).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count today's notifications: %w", err)
	}

	l.dailyCounts[userID] = int(count)
	l.seeded[userID] = true
	return int(count), nil
}
