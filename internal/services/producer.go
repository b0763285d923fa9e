package services

import (
	"fmt"

	"github.com/patchwatch/backend/internal/config"
	"github.com/patchwatch/backend/internal/models"
)

// Producer is the enqueue side of the engine, used by the ingestion
// collaborators (patch/news/deal fetchers) and the HTTP surface.
type Producer struct {
	queue *TaskQueue
}

// NewProducer creates a producer over the shared task queue
func NewProducer(policy config.EnginePolicy) *Producer {
	return &Producer{queue: NewTaskQueue(policy)}
}

// QueueSmartNotification enqueues one fan-out task for a content event.
// The payload must carry at least the subject game and a title; the
// priority hint follows the intake heuristic (high-impact content jumps
// the queue, everything else rides at the default).
func (p *Producer) QueueSmartNotification(entityType string, entityID uint, payload *models.EventPayload) (*models.NotificationTask, error) {
	switch entityType {
	case models.EntityTypePatch, models.EntityTypeNews, models.EntityTypeDeal,
		models.EntityTypeRelease, models.EntityTypeReminder:
	default:
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}
	if payload == nil || payload.GameID == 0 {
		return nil, fmt.Errorf("payload must include game_id")
	}
	if payload.Title == "" {
		return nil, fmt.Errorf("payload must include title")
	}

	hint := 5
	if payload.ImpactScore >= 7 {
		hint = 8
	}

	return p.queue.Enqueue(models.TaskTypeSmartNotification, entityType, entityID, payload, hint)
}
