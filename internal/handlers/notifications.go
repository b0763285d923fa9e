package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/patchwatch/backend/internal/database"
	"github.com/patchwatch/backend/internal/models"
)

// NotificationsHandler serves the read side of the notification feed.
// The fan-out engine only appends rows; read-marking belongs to the
// product surface here.
type NotificationsHandler struct{}

// NewNotificationsHandler creates a notifications handler
func NewNotificationsHandler() *NotificationsHandler {
	return &NotificationsHandler{}
}

// List returns a user's notifications, newest first
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid user id",
		})
	}

	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := database.DB.Where("user_id = ?", userID)
	if c.Query("unread") == "true" {
		query = query.Where("read_at IS NULL")
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Limit(limit).Find(&notifications).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load notifications",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    notifications,
	})
}

// UnreadCount returns a user's unread notification count
func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid user id",
		})
	}

	var count int64
	err = database.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to count notifications",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   count,
	})
}

// MarkRead stamps one notification as read
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid notification id",
		})
	}

	result := database.DB.Model(&models.Notification{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", time.Now().UTC())
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to mark notification read",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Notification not found or already read",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}
