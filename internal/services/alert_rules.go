package services

import (
	"errors"
	"fmt"

	"github.com/patchwatch/backend/internal/database"
	"github.com/patchwatch/backend/internal/models"
	"gorm.io/gorm"
)

// Rule boosts never push priority past the 1-5 scale on their own
const maxRuleBoost = 4

// RuleMatcher is the priority-alert-rules collaborator. The engine treats
// it as best effort: a lookup failure means boost zero, never suppression.
type RuleMatcher interface {
	Boost(userID uint, entityType string, payload *models.EventPayload) (int, error)
}

// NoopRuleMatcher is the default matcher: no rules, no boost
type NoopRuleMatcher struct{}

func (NoopRuleMatcher) Boost(userID uint, entityType string, payload *models.EventPayload) (int, error) {
	return 0, nil
}

// AlertRuleMatcher evaluates user-authored alert rules from the store.
// Rules only fire for premium accounts.
type AlertRuleMatcher struct{}

// NewAlertRuleMatcher creates the store-backed rule matcher
func NewAlertRuleMatcher() *AlertRuleMatcher {
	return &AlertRuleMatcher{}
}

// Boost returns the largest boost among the user's matching rules, or
// zero when the user has none or is not premium
func (m *AlertRuleMatcher) Boost(userID uint, entityType string, payload *models.EventPayload) (int, error) {
	var profile models.UserProfile
	err := database.DB.Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load profile for user %d: %w", userID, err)
	}
	if profile.Tier != models.TierPremium {
		return 0, nil
	}

	var rules []models.AlertRule
	err = database.DB.Where("user_id = ? AND enabled = ?", userID, true).Find(&rules).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load alert rules for user %d: %w", userID, err)
	}

	best := 0
	for i := range rules {
		if !rules[i].Matches(entityType, payload) {
			continue
		}
		boost := rules[i].Boost
		if boost > maxRuleBoost {
			boost = maxRuleBoost
		}
		if boost > best {
			best = boost
		}
	}
	return best, nil
}
