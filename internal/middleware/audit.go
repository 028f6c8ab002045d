package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/training-platform/backend/internal/models"
	"github.com/training-platform/backend/internal/services"
	"go.uber.org/zap"
)

type actionRecorder interface {
	RecordAction(ctx context.Context, e services.ActionEntry) (*models.AuditLog, error)
}

// Paths never audited: health probes and the session endpoint.
var defaultSkipPaths = []string{"/up", "/health", "/api/v1/user"}

// AuditMiddleware writes a best-effort audit record for every request
// after the downstream handler has produced its response. Handlers that
// need precise before/after payloads record their own entries on top;
// overlapping records are accepted. A failed audit write is logged and
// discarded, never surfaced to the client.
func AuditMiddleware(recorder actionRecorder, extraSkipPaths []string, log *zap.Logger) fiber.Handler {
	resolver := NewRouteResolver()

	skip := make(map[string]struct{}, len(defaultSkipPaths)+len(extraSkipPaths))
	for _, p := range defaultSkipPaths {
		skip[p] = struct{}{}
	}
	for _, p := range extraSkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		err := c.Next()

		if _, ok := skip[c.Path()]; ok {
			return err
		}

		method := c.Method()
		path := c.Path()

		// Errors returned by handlers (including fiber's own 404 for
		// unmatched routes) are mapped to a status by the app-level
		// ErrorHandler after this middleware, so the response status is
		// not settled yet; derive it from the error instead.
		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		entry := services.ActionEntry{
			Action:        resolver.Action(method),
			Endpoint:      path,
			Method:        method,
			Description:   fmt.Sprintf("%s %s", method, path),
			AuditableType: resolver.EntityType(path),
			StatusCode:    &status,
			Actor:         GetActor(c),
			Request:       GetRequestInfo(c),
		}
		if entry.AuditableType != "" {
			entry.AuditableID = resolver.EntityID(c.AllParams())
		}

		if _, recErr := recorder.RecordAction(c.Context(), entry); recErr != nil {
			log.Error("audit logging failed",
				zap.String("method", method),
				zap.String("path", path),
				zap.Error(recErr),
			)
		}

		return err
	}
}
