package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/patchwatch/backend/internal/config"
	"github.com/patchwatch/backend/internal/models"
	"github.com/patchwatch/backend/internal/services"
	"gorm.io/gorm"
)

// QueueHandler exposes the task queue: the producer contract for the
// ingestion collaborators and the ops endpoints for the scheduler.
type QueueHandler struct {
	producer  *services.Producer
	processor *services.QueueProcessor
	policy    config.EnginePolicy
}

// NewQueueHandler creates a queue handler
func NewQueueHandler(cfg *config.Config) *QueueHandler {
	return &QueueHandler{
		producer:  services.NewProducer(cfg.Policy),
		processor: services.NewQueueProcessor(cfg.Policy, services.NewAlertRuleMatcher()),
		policy:    cfg.Policy,
	}
}

// EnqueueRequest is the producer contract payload
type EnqueueRequest struct {
	EntityType string              `json:"entity_type"`
	EntityID   uint                `json:"entity_id"`
	Payload    models.EventPayload `json:"payload"`
}

// Enqueue queues one smart-notification task for a content event
func (h *QueueHandler) Enqueue(c *fiber.Ctx) error {
	var req EnqueueRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	task, err := h.producer.QueueSmartNotification(req.EntityType, req.EntityID, &req.Payload)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"task_id": task.PublicID,
	})
}

// Process runs one sweep now and returns the run report. The scheduler
// hits this endpoint; it is safe to invoke repeatedly and concurrently.
func (h *QueueHandler) Process(c *fiber.Ctx) error {
	batchSize := c.QueryInt("batch_size", h.policy.BatchSize)

	report, err := h.processor.ProcessQueue(batchSize)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Sweep failed: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    report,
	})
}

// Reclaim returns stuck processing tasks to pending
func (h *QueueHandler) Reclaim(c *fiber.Ctx) error {
	reclaimed, err := h.processor.Queue().ReclaimStale()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Reclaim failed: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"reclaimed": reclaimed,
	})
}

// GetTask returns one task by its public ID
func (h *QueueHandler) GetTask(c *fiber.Ctx) error {
	task, err := h.processor.Queue().GetByPublicID(c.Params("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Task not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load task",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    task,
	})
}

// Stats returns queue depth per status
func (h *QueueHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.processor.Queue().Stats()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load queue stats",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}
