package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/patchwatch/backend/internal/models"
	"github.com/patchwatch/backend/internal/services"
)

// PreferencesHandler exposes per-user notification preference editing
type PreferencesHandler struct {
	prefs *services.PreferenceService
}

// NewPreferencesHandler creates a preferences handler
func NewPreferencesHandler() *PreferencesHandler {
	return &PreferencesHandler{prefs: services.NewPreferenceService()}
}

// Get returns a user's preferences; users without a stored record get the
// defaults back
func (h *PreferencesHandler) Get(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid user id",
		})
	}

	prefs, err := h.prefs.GetPreferences(uint(userID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load preferences",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    prefs,
	})
}

// UpdatePreferencesRequest carries the editable preference fields
type UpdatePreferencesRequest struct {
	NotifyMajorPatches bool                           `json:"notify_major_patches"`
	NotifyMinorPatches bool                           `json:"notify_minor_patches"`
	NotifyDLC          bool                           `json:"notify_dlc"`
	NotifySales        bool                           `json:"notify_sales"`
	NotifyEsports      bool                           `json:"notify_esports"`
	NotifyCosmetics    bool                           `json:"notify_cosmetics"`
	GameOverrides      map[string]models.GameOverride `json:"game_overrides"`
}

// Update upserts a user's preferences, creating the record lazily on the
// first write
func (h *PreferencesHandler) Update(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid user id",
		})
	}

	var req UpdatePreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	overrides, err := json.Marshal(req.GameOverrides)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid game overrides",
		})
	}

	updated := &models.NotificationPreferences{
		UserID:             uint(userID),
		NotifyMajorPatches: req.NotifyMajorPatches,
		NotifyMinorPatches: req.NotifyMinorPatches,
		NotifyDLC:          req.NotifyDLC,
		NotifySales:        req.NotifySales,
		NotifyEsports:      req.NotifyEsports,
		NotifyCosmetics:    req.NotifyCosmetics,
		GameOverrides:      overrides,
	}

	prefs, err := h.prefs.UpdatePreferences(uint(userID), updated)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update preferences",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    prefs,
	})
}
