package services

import (
	"errors"
	"testing"

	"github.com/patchwatch/backend/internal/models"
)

type stubMatcher struct {
	boost int
	err   error
}

func (m stubMatcher) Boost(userID uint, entityType string, payload *models.EventPayload) (int, error) {
	return m.boost, m.err
}

func mutedPrefs(t *testing.T, gameID uint) *models.NotificationPreferences {
	t.Helper()
	prefs := models.DefaultPreferences(1)
	if err := prefs.SetOverrides(map[uint]models.GameOverride{gameID: {Muted: true}}); err != nil {
		t.Fatalf("SetOverrides: %v", err)
	}
	return prefs
}

func TestDecideMuteIsAbsolute(t *testing.T) {
	prefs := mutedPrefs(t, 42)

	payloads := []struct {
		entityType string
		payload    models.EventPayload
	}{
		{models.EntityTypePatch, models.EventPayload{GameID: 42, Title: "Patch", ImpactScore: 10}},
		{models.EntityTypeNews, models.EventPayload{GameID: 42, Title: "News", Topics: []string{"Launch"}}},
		{models.EntityTypeDeal, models.EventPayload{GameID: 42, Title: "Deal", DiscountPercent: 90}},
		{models.EntityTypeRelease, models.EventPayload{GameID: 42, Title: "Release"}},
		{models.EntityTypeReminder, models.EventPayload{GameID: 42, Title: "Reminder"}},
	}

	for _, tc := range payloads {
		d := Decide(1, tc.entityType, &tc.payload, prefs, NoopRuleMatcher{})
		if d.Notify {
			t.Fatalf("muted game notified for %s", tc.entityType)
		}
		if d.Reason != ReasonGameMuted {
			t.Fatalf("expected reason %q for %s, got %q", ReasonGameMuted, tc.entityType, d.Reason)
		}
	}
}

func TestDecidePatchCategories(t *testing.T) {
	prefs := models.DefaultPreferences(1)
	prefs.NotifyMajorPatches = false

	major := models.EventPayload{GameID: 1, Title: "Big patch", ImpactScore: 8}
	d := Decide(1, models.EntityTypePatch, &major, prefs, NoopRuleMatcher{})
	if d.Notify || d.Reason != ReasonMajorPatchesDisabled {
		t.Fatalf("expected major_patches_disabled, got %+v", d)
	}

	// Impact below 7 classifies as minor and passes the minor toggle
	minor := models.EventPayload{GameID: 1, Title: "Small patch", ImpactScore: 5}
	d = Decide(1, models.EntityTypePatch, &minor, prefs, NoopRuleMatcher{})
	if !d.Notify {
		t.Fatalf("minor patch should pass with majors disabled, got %+v", d)
	}

	prefs.NotifyMinorPatches = false
	d = Decide(1, models.EntityTypePatch, &minor, prefs, NoopRuleMatcher{})
	if d.Notify || d.Reason != ReasonMinorPatchesDisabled {
		t.Fatalf("expected minor_patches_disabled, got %+v", d)
	}
}

func TestDecideRumorFiltering(t *testing.T) {
	prefs := models.DefaultPreferences(1)

	skins := models.EventPayload{GameID: 1, Title: "Leak", IsRumor: true, Topics: []string{"Skins"}}
	d := Decide(1, models.EntityTypeNews, &skins, prefs, NoopRuleMatcher{})
	if d.Notify || d.Reason != ReasonRumorFiltered {
		t.Fatalf("expected rumor_filtered, got %+v", d)
	}

	launch := models.EventPayload{GameID: 1, Title: "Leak", IsRumor: true, Topics: []string{"Launch"}}
	d = Decide(1, models.EntityTypeNews, &launch, prefs, NoopRuleMatcher{})
	if !d.Notify {
		t.Fatalf("launch rumor should pass, got %+v", d)
	}
	if d.Priority != 5 {
		t.Fatalf("launch news should be priority 5, got %d", d.Priority)
	}
}

func TestDecideTopicGates(t *testing.T) {
	cases := []struct {
		topic  string
		toggle func(*models.NotificationPreferences)
		reason string
	}{
		{"Esports", func(p *models.NotificationPreferences) { p.NotifyEsports = false }, ReasonEsportsDisabled},
		{"Cosmetic", func(p *models.NotificationPreferences) { p.NotifyCosmetics = false }, ReasonCosmeticsDisabled},
		{"DLC", func(p *models.NotificationPreferences) { p.NotifyDLC = false }, ReasonDLCDisabled},
		{"Sale", func(p *models.NotificationPreferences) { p.NotifySales = false }, ReasonSalesDisabled},
	}

	for _, tc := range cases {
		prefs := models.DefaultPreferences(1)
		tc.toggle(prefs)

		payload := models.EventPayload{GameID: 1, Title: "News", Topics: []string{tc.topic}}
		d := Decide(1, models.EntityTypeNews, &payload, prefs, NoopRuleMatcher{})
		if d.Notify || d.Reason != tc.reason {
			t.Fatalf("topic %s: expected %q, got %+v", tc.topic, tc.reason, d)
		}

		// Same topic passes when the toggle stays on
		d = Decide(1, models.EntityTypeNews, &payload, models.DefaultPreferences(1), NoopRuleMatcher{})
		if !d.Notify {
			t.Fatalf("topic %s: expected pass with default prefs, got %+v", tc.topic, d)
		}
	}
}

func TestDecideNotifyAllOverrideSkipsCategoryGates(t *testing.T) {
	prefs := models.DefaultPreferences(1)
	prefs.NotifyMajorPatches = false
	if err := prefs.SetOverrides(map[uint]models.GameOverride{7: {NotifyAll: true}}); err != nil {
		t.Fatalf("SetOverrides: %v", err)
	}

	payload := models.EventPayload{GameID: 7, Title: "Patch", ImpactScore: 9}
	d := Decide(1, models.EntityTypePatch, &payload, prefs, NoopRuleMatcher{})
	if !d.Notify {
		t.Fatalf("notify_all override should bypass disabled category, got %+v", d)
	}
}

func TestDecideBasePriorities(t *testing.T) {
	prefs := models.DefaultPreferences(1)

	cases := []struct {
		name       string
		entityType string
		payload    models.EventPayload
		want       int
	}{
		{"patch impact 9", models.EntityTypePatch, models.EventPayload{GameID: 1, ImpactScore: 9}, 5},
		{"patch impact 6", models.EntityTypePatch, models.EventPayload{GameID: 1, ImpactScore: 6}, 4},
		{"patch impact 4", models.EntityTypePatch, models.EventPayload{GameID: 1, ImpactScore: 4}, 3},
		{"patch impact 1", models.EntityTypePatch, models.EventPayload{GameID: 1, ImpactScore: 1}, 2},
		{"news launch", models.EntityTypeNews, models.EventPayload{GameID: 1, Topics: []string{"Launch"}}, 5},
		{"news delay", models.EntityTypeNews, models.EventPayload{GameID: 1, Topics: []string{"Delay"}}, 4},
		{"news plain", models.EntityTypeNews, models.EventPayload{GameID: 1, Topics: []string{"Interview"}}, 3},
		{"deal 75", models.EntityTypeDeal, models.EventPayload{GameID: 1, DiscountPercent: 75}, 5},
		{"deal 50", models.EntityTypeDeal, models.EventPayload{GameID: 1, DiscountPercent: 50}, 4},
		{"deal 30", models.EntityTypeDeal, models.EventPayload{GameID: 1, DiscountPercent: 30}, 3},
		{"release", models.EntityTypeRelease, models.EventPayload{GameID: 1}, 5},
		{"reminder", models.EntityTypeReminder, models.EventPayload{GameID: 1}, 1},
	}

	for _, tc := range cases {
		d := Decide(1, tc.entityType, &tc.payload, prefs, NoopRuleMatcher{})
		if !d.Notify {
			t.Fatalf("%s: unexpected suppression %+v", tc.name, d)
		}
		if d.Priority != tc.want {
			t.Fatalf("%s: expected priority %d, got %d", tc.name, tc.want, d.Priority)
		}
		if d.Reason != ReasonPassedFilters {
			t.Fatalf("%s: expected reason %q, got %q", tc.name, ReasonPassedFilters, d.Reason)
		}
	}
}

func TestDecideBoostClampedToFive(t *testing.T) {
	prefs := models.DefaultPreferences(1)
	payload := models.EventPayload{GameID: 1, Title: "Patch", ImpactScore: 9}

	d := Decide(1, models.EntityTypePatch, &payload, prefs, stubMatcher{boost: 3})
	if d.Priority != 5 {
		t.Fatalf("expected clamp to 5, got %d", d.Priority)
	}

	low := models.EventPayload{GameID: 1, Title: "Patch", ImpactScore: 1}
	d = Decide(1, models.EntityTypePatch, &low, prefs, stubMatcher{boost: 2})
	if d.Priority != 4 {
		t.Fatalf("expected 2+2=4, got %d", d.Priority)
	}
}

func TestDecideBoostErrorIsNonFatal(t *testing.T) {
	prefs := models.DefaultPreferences(1)
	payload := models.EventPayload{GameID: 1, Title: "Patch", ImpactScore: 9}

	d := Decide(1, models.EntityTypePatch, &payload, prefs, stubMatcher{err: errors.New("rules store down")})
	if !d.Notify {
		t.Fatalf("boost failure must not suppress, got %+v", d)
	}
	if d.Priority != 5 {
		t.Fatalf("expected base priority 5 with zero boost, got %d", d.Priority)
	}
}

func TestDecidePriorityAlwaysInBounds(t *testing.T) {
	prefs := models.DefaultPreferences(1)
	entityTypes := []string{
		models.EntityTypePatch, models.EntityTypeNews, models.EntityTypeDeal,
		models.EntityTypeRelease, models.EntityTypeReminder,
	}

	for _, entityType := range entityTypes {
		for impact := 0; impact <= 10; impact++ {
			for boost := 0; boost <= 6; boost++ {
				payload := models.EventPayload{
					GameID:          1,
					Title:           "x",
					ImpactScore:     impact,
					DiscountPercent: impact * 10,
					Topics:          []string{"Launch"},
				}
				d := Decide(1, entityType, &payload, prefs, stubMatcher{boost: boost})
				if !d.Notify {
					continue
				}
				if d.Priority < 1 || d.Priority > 5 {
					t.Fatalf("%s impact=%d boost=%d: priority %d out of bounds", entityType, impact, boost, d.Priority)
				}
			}
		}
	}
}
