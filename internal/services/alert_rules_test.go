package services

import (
	"testing"

	"github.com/patchwatch/backend/internal/database"
	"github.com/patchwatch/backend/internal/models"
)

func seedProfile(t *testing.T, userID uint, tier string) {
	t.Helper()
	if err := database.DB.Create(&models.UserProfile{UserID: userID, Tier: tier}).Error; err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}
}

func seedRule(t *testing.T, rule models.AlertRule) {
	t.Helper()
	if err := database.DB.Create(&rule).Error; err != nil {
		t.Fatalf("failed to seed rule: %v", err)
	}
}

func TestBoostRequiresPremium(t *testing.T) {
	setupTestDB(t)
	matcher := NewAlertRuleMatcher()
	payload := &models.EventPayload{GameID: 42, ImpactScore: 9}

	seedRule(t, models.AlertRule{UserID: 1, Name: "any", Boost: 3, Enabled: true})

	// No profile at all
	boost, err := matcher.Boost(1, models.EntityTypePatch, payload)
	if err != nil || boost != 0 {
		t.Fatalf("no profile: boost=%d err=%v", boost, err)
	}

	// Free tier
	seedProfile(t, 1, models.TierFree)
	boost, err = matcher.Boost(1, models.EntityTypePatch, payload)
	if err != nil || boost != 0 {
		t.Fatalf("free tier: boost=%d err=%v", boost, err)
	}
}

func TestBoostPicksLargestMatch(t *testing.T) {
	setupTestDB(t)
	matcher := NewAlertRuleMatcher()
	seedProfile(t, 1, models.TierPremium)

	gameID := uint(42)
	otherGame := uint(99)
	seedRule(t, models.AlertRule{UserID: 1, Name: "small", GameID: &gameID, Boost: 1, Enabled: true})
	seedRule(t, models.AlertRule{UserID: 1, Name: "big", GameID: &gameID, Boost: 3, Enabled: true})
	seedRule(t, models.AlertRule{UserID: 1, Name: "wrong game", GameID: &otherGame, Boost: 4, Enabled: true})
	seedRule(t, models.AlertRule{UserID: 1, Name: "disabled", GameID: &gameID, Boost: 4, Enabled: false})
	seedRule(t, models.AlertRule{UserID: 2, Name: "other user", GameID: &gameID, Boost: 4, Enabled: true})

	boost, err := matcher.Boost(1, models.EntityTypePatch, &models.EventPayload{GameID: 42, ImpactScore: 9})
	if err != nil {
		t.Fatalf("Boost: %v", err)
	}
	if boost != 3 {
		t.Fatalf("boost = %d, want 3", boost)
	}
}

func TestBoostClampsOversizedRules(t *testing.T) {
	setupTestDB(t)
	matcher := NewAlertRuleMatcher()
	seedProfile(t, 1, models.TierPremium)

	seedRule(t, models.AlertRule{UserID: 1, Name: "huge", Boost: 9, Enabled: true})

	boost, err := matcher.Boost(1, models.EntityTypeNews, &models.EventPayload{GameID: 42})
	if err != nil {
		t.Fatalf("Boost: %v", err)
	}
	if boost != maxRuleBoost {
		t.Fatalf("boost = %d, want %d", boost, maxRuleBoost)
	}
}

func TestRuleMatchFilters(t *testing.T) {
	gameID := uint(42)

	tests := []struct {
		name       string
		rule       models.AlertRule
		entityType string
		payload    models.EventPayload
		want       bool
	}{
		{
			name:       "wildcard rule matches anything",
			rule:       models.AlertRule{Enabled: true},
			entityType: models.EntityTypeDeal,
			payload:    models.EventPayload{GameID: 7},
			want:       true,
		},
		{
			name:       "game filter matches",
			rule:       models.AlertRule{GameID: &gameID, Enabled: true},
			entityType: models.EntityTypeNews,
			payload:    models.EventPayload{GameID: 42},
			want:       true,
		},
		{
			name:       "game filter rejects",
			rule:       models.AlertRule{GameID: &gameID, Enabled: true},
			entityType: models.EntityTypeNews,
			payload:    models.EventPayload{GameID: 7},
			want:       false,
		},
		{
			name:       "entity type filter rejects",
			rule:       models.AlertRule{EntityType: models.EntityTypePatch, Enabled: true},
			entityType: models.EntityTypeNews,
			payload:    models.EventPayload{GameID: 42},
			want:       false,
		},
		{
			name:       "min impact gates patches",
			rule:       models.AlertRule{EntityType: models.EntityTypePatch, MinImpact: 7, Enabled: true},
			entityType: models.EntityTypePatch,
			payload:    models.EventPayload{GameID: 42, ImpactScore: 6},
			want:       false,
		},
		{
			name:       "min impact passes at threshold",
			rule:       models.AlertRule{EntityType: models.EntityTypePatch, MinImpact: 7, Enabled: true},
			entityType: models.EntityTypePatch,
			payload:    models.EventPayload{GameID: 42, ImpactScore: 7},
			want:       true,
		},
		{
			name:       "min impact ignored for non-patch",
			rule:       models.AlertRule{MinImpact: 7, Enabled: true},
			entityType: models.EntityTypeNews,
			payload:    models.EventPayload{GameID: 42},
			want:       true,
		},
		{
			name:       "disabled never matches",
			rule:       models.AlertRule{Enabled: false},
			entityType: models.EntityTypePatch,
			payload:    models.EventPayload{GameID: 42, ImpactScore: 9},
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Matches(tt.entityType, &tt.payload); got != tt.want {
				t.Fatalf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveInterestedUsersUnion(t *testing.T) {
	setupTestDB(t)
	resolver := NewFollowerResolver()

	follow(t, 1, 42)
	follow(t, 2, 42)
	backlog(t, 2, 42) // both relations; must appear once
	backlog(t, 3, 42)
	follow(t, 4, 99) // different game

	users, err := resolver.ResolveInterestedUsers(42)
	if err != nil {
		t.Fatalf("ResolveInterestedUsers: %v", err)
	}
	got := map[uint]int{}
	for _, id := range users {
		got[id]++
	}
	if len(users) != 3 || got[1] != 1 || got[2] != 1 || got[3] != 1 {
		t.Fatalf("unexpected users %v", users)
	}
}

func TestResolveSavedUsersBacklogOnly(t *testing.T) {
	setupTestDB(t)
	resolver := NewFollowerResolver()

	follow(t, 1, 42)
	backlog(t, 2, 42)

	users, err := resolver.ResolveSavedUsers(42)
	if err != nil {
		t.Fatalf("ResolveSavedUsers: %v", err)
	}
	if len(users) != 1 || users[0] != 2 {
		t.Fatalf("unexpected users %v", users)
	}
}
