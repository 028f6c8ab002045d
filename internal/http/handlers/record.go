package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/training-platform/backend/internal/middleware"
	"github.com/training-platform/backend/internal/services"
	"go.uber.org/zap"
)

// recordChange writes a model-change audit entry for a mutation handler.
// With failOpen the error is logged and the request proceeds; without it
// the error bubbles up and fails the request.
func recordChange(c *fiber.Ctx, audit *services.AuditService, log *zap.Logger, failOpen bool,
	action, entityType string, entityID int64, oldValues, newValues any, description string) error {

	_, err := audit.RecordModelChange(c.Context(), action, entityType, entityID,
		oldValues, newValues, description, middleware.GetActor(c), middleware.GetRequestInfo(c))
	if err == nil {
		return nil
	}
	log.Error("failed to record model change",
		zap.String("action", action),
		zap.String("entity_type", entityType),
		zap.Int64("entity_id", entityID),
		zap.Error(err))
	if failOpen {
		return nil
	}
	return err
}
