package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/patchwatch/backend/internal/database"
	"github.com/patchwatch/backend/internal/models"
)

// AlertRulesHandler manages user-authored priority alert rules
type AlertRulesHandler struct{}

// NewAlertRulesHandler creates an alert rules handler
func NewAlertRulesHandler() *AlertRulesHandler {
	return &AlertRulesHandler{}
}

// List returns a user's alert rules
func (h *AlertRulesHandler) List(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid user id",
		})
	}

	var rules []models.AlertRule
	if err := database.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&rules).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load alert rules",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    rules,
	})
}

// CreateAlertRuleRequest carries a new rule definition
type CreateAlertRuleRequest struct {
	Name       string `json:"name"`
	GameID     *uint  `json:"game_id"`
	EntityType string `json:"entity_type"`
	MinImpact  int    `json:"min_impact"`
	Boost      int    `json:"boost"`
}

// Create adds an alert rule for a premium user
func (h *AlertRulesHandler) Create(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid user id",
		})
	}

	var req CreateAlertRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Rule name is required",
		})
	}
	if req.Boost < 1 || req.Boost > 4 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Boost must be between 1 and 4",
		})
	}

	var profile models.UserProfile
	if err := database.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil || profile.Tier != models.TierPremium {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Alert rules require a premium subscription",
		})
	}

	rule := models.AlertRule{
		UserID:     uint(userID),
		Name:       req.Name,
		GameID:     req.GameID,
		EntityType: req.EntityType,
		MinImpact:  req.MinImpact,
		Boost:      req.Boost,
		Enabled:    true,
	}
	if err := database.DB.Create(&rule).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create alert rule",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    rule,
	})
}

// Delete removes one of the user's alert rules
func (h *AlertRulesHandler) Delete(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid user id",
		})
	}
	ruleID, err := c.ParamsInt("ruleId")
	if err != nil || ruleID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid rule id",
		})
	}

	result := database.DB.Where("id = ? AND user_id = ?", ruleID, userID).Delete(&models.AlertRule{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete alert rule",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Alert rule not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}
