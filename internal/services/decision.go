package services

import (
	"log"
	"strings"

	"github.com/patchwatch/backend/internal/models"
)

// Stable reason codes stored in notification metadata and task skip logs.
// These strings are part of the audit contract; do not reword them.
const (
	ReasonPassedFilters        = "passed_filters"
	ReasonGameMuted            = "game_muted"
	ReasonMajorPatchesDisabled = "major_patches_disabled"
	ReasonMinorPatchesDisabled = "minor_patches_disabled"
	ReasonRumorFiltered        = "rumor_filtered"
	ReasonEsportsDisabled      = "esports_disabled"
	ReasonCosmeticsDisabled    = "cosmetics_disabled"
	ReasonDLCDisabled          = "dlc_disabled"
	ReasonSalesDisabled        = "sales_disabled"
)

// Patches with an impact score at or above this are "major"
const majorPatchImpact = 7

// Decision is the ternary outcome for one (user, event) pair: either
// suppress with a reason, or notify at a 1-5 priority.
type Decision struct {
	Notify   bool
	Priority int
	Reason   string
}

func suppress(reason string) Decision {
	return Decision{Notify: false, Reason: reason}
}

// Decide evaluates one content event against one user's preferences.
// Checks run in fixed order and the first matching suppression wins:
// game mute, then the content-type category gates, then base priority
// plus any alert-rule boost. Rule-matcher failures never suppress; the
// boost degrades to zero.
func Decide(userID uint, entityType string, payload *models.EventPayload, prefs *models.NotificationPreferences, matcher RuleMatcher) Decision {
	override := prefs.Overrides()[payload.GameID]
	if override.Muted {
		return suppress(ReasonGameMuted)
	}

	// notify_all overrides skip the category gates, not the mute above
	if !override.NotifyAll {
		if d, suppressed := categoryGate(entityType, payload, prefs); suppressed {
			return d
		}
	}

	priority := basePriority(entityType, payload)

	// Saved reminders are defined as silent priority-1 entries; rules
	// never promote them.
	if entityType == models.EntityTypeReminder {
		return Decision{Notify: true, Priority: priority, Reason: ReasonPassedFilters}
	}

	if matcher != nil {
		boost, err := matcher.Boost(userID, entityType, payload)
		if err != nil {
			log.Printf("Decide: Rule boost lookup failed for user %d: %v", userID, err)
		} else if boost > 0 {
			priority += boost
		}
	}
	if priority > 5 {
		priority = 5
	}
	if priority < 1 {
		priority = 1
	}

	return Decision{Notify: true, Priority: priority, Reason: ReasonPassedFilters}
}

// categoryGate applies the content-type specific toggle checks
func categoryGate(entityType string, payload *models.EventPayload, prefs *models.NotificationPreferences) (Decision, bool) {
	switch entityType {
	case models.EntityTypePatch:
		if payload.ImpactScore >= majorPatchImpact {
			if !prefs.NotifyMajorPatches {
				return suppress(ReasonMajorPatchesDisabled), true
			}
		} else if !prefs.NotifyMinorPatches {
			return suppress(ReasonMinorPatchesDisabled), true
		}

	case models.EntityTypeNews:
		if payload.IsRumor && !hasAnyTopic(payload.Topics, "Launch", "DLC", "Delay") {
			return suppress(ReasonRumorFiltered), true
		}
		// First failing topic toggle wins, in this order
		if hasAnyTopic(payload.Topics, "Esports") && !prefs.NotifyEsports {
			return suppress(ReasonEsportsDisabled), true
		}
		if hasAnyTopic(payload.Topics, "Cosmetic") && !prefs.NotifyCosmetics {
			return suppress(ReasonCosmeticsDisabled), true
		}
		if hasAnyTopic(payload.Topics, "DLC") && !prefs.NotifyDLC {
			return suppress(ReasonDLCDisabled), true
		}
		if hasAnyTopic(payload.Topics, "Sale") && !prefs.NotifySales {
			return suppress(ReasonSalesDisabled), true
		}

	case models.EntityTypeDeal, models.EntityTypeRelease, models.EntityTypeReminder:
		// Pre-filtered by the producer (e.g. deal discount threshold);
		// no category gate here.
	}

	return Decision{}, false
}

// basePriority computes the user-facing 1-5 priority before rule boosts
func basePriority(entityType string, payload *models.EventPayload) int {
	switch entityType {
	case models.EntityTypePatch:
		switch {
		case payload.ImpactScore >= 8:
			return 5
		case payload.ImpactScore >= 6:
			return 4
		case payload.ImpactScore >= 4:
			return 3
		default:
			return 2
		}

	case models.EntityTypeNews:
		switch {
		case hasAnyTopic(payload.Topics, "Launch"):
			return 5
		case hasAnyTopic(payload.Topics, "DLC", "Delay"):
			return 4
		case payload.IsRumor:
			return 2
		default:
			return 3
		}

	case models.EntityTypeDeal:
		switch {
		case payload.DiscountPercent >= 70:
			return 5
		case payload.DiscountPercent >= 50:
			return 4
		default:
			return 3
		}

	case models.EntityTypeRelease:
		return 5

	case models.EntityTypeReminder:
		return 1
	}

	return 3
}

func hasAnyTopic(topics []string, wanted ...string) bool {
	for _, topic := range topics {
		for _, w := range wanted {
			if strings.EqualFold(topic, w) {
				return true
			}
		}
	}
	return false
}
