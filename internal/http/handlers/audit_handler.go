package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/training-platform/backend/internal/http/dto"
	"github.com/training-platform/backend/internal/middleware"
	"github.com/training-platform/backend/internal/models"
	"github.com/training-platform/backend/internal/repositories"
	"github.com/training-platform/backend/internal/services"
	"go.uber.org/zap"
)

// Short resource names accepted by the history endpoint.
var historyModelMap = map[string]string{
	"user":     models.EntityUser,
	"category": models.EntityCourseCategory,
	"course":   models.EntityCourse,
	"file":     models.EntityFile,
}

type AuditHandler struct {
	audit *services.AuditService
	log   *zap.Logger
}

func NewAuditHandler(audit *services.AuditService, log *zap.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, log: log}
}

// Index lists audit records with optional filters (admin surface).
func (h *AuditHandler) Index(c *fiber.Ctx) error {
	f := repositories.AuditFilter{
		Limit: c.QueryInt("per_page", 50),
	}
	if v := c.QueryInt("user_id", 0); v > 0 {
		id := int64(v)
		f.UserID = &id
	}
	if v := c.Query("action"); v != "" {
		f.Action = &v
	}
	if v := c.Query("endpoint"); v != "" {
		f.Endpoint = &v
	}
	if v := c.Query("method"); v != "" {
		f.Method = &v
	}
	if t, ok := parseDate(c.Query("from_date")); ok {
		f.From = &t
	}
	if t, ok := parseDate(c.Query("to_date")); ok {
		end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		f.To = &end
	}
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	f.Offset = (page - 1) * f.Limit

	logs, total, err := h.audit.List(c.Context(), f)
	if err != nil {
		h.log.Error("failed to list audit logs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.PagedResponse{Data: logs, Total: total, Page: page, PerPage: f.Limit})
}

// MyLogs returns the current user's own trail.
func (h *AuditHandler) MyLogs(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	logs, err := h.audit.UserTrail(c.Context(), userID, c.QueryInt("limit", 50))
	if err != nil {
		h.log.Error("failed to load user trail", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.UserTrailResponse{UserID: userID, Total: len(logs), Logs: logs})
}

// ModelHistory returns all changes recorded against one entity.
func (h *AuditHandler) ModelHistory(c *fiber.Ctx) error {
	entityType, ok := historyModelMap[c.Params("modelType")]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid model type"})
	}
	modelID, err := c.ParamsInt("modelId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid model id"})
	}

	history, err := h.audit.EntityHistory(c.Context(), entityType, int64(modelID))
	if err != nil {
		h.log.Error("failed to load entity history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.EntityHistoryResponse{
		ModelType:    c.Params("modelType"),
		ModelID:      int64(modelID),
		TotalChanges: len(history),
		History:      history,
	})
}

// AuthLogs returns the authentication trail.
func (h *AuditHandler) AuthLogs(c *fiber.Ctx) error {
	var f repositories.AuthTrailFilter
	if v := c.Query("email"); v != "" {
		f.EmailContains = &v
	}
	if v := c.Query("success"); v != "" {
		success := v == "true"
		f.Success = &success
	}
	page := c.QueryInt("page", 1)
	perPage := c.QueryInt("per_page", 50)

	logs, total, err := h.audit.AuthTrail(c.Context(), f, page, perPage)
	if err != nil {
		h.log.Error("failed to load auth trail", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.PagedResponse{Data: logs, Total: total, Page: page, PerPage: perPage})
}

// Suspicious returns failed events inside a rolling trailing window.
func (h *AuditHandler) Suspicious(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	perPage := c.QueryInt("per_page", 50)

	logs, total, err := h.audit.SuspiciousActivity(c.Context(), c.QueryInt("hours", 24), page, perPage)
	if err != nil {
		h.log.Error("failed to load suspicious activity", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.PagedResponse{Data: logs, Total: total, Page: page, PerPage: perPage})
}

// Summary aggregates the trail over a date window.
func (h *AuditHandler) Summary(c *fiber.Ctx) error {
	var from, to time.Time
	if t, ok := parseDate(c.Query("from_date")); ok {
		from = t
	}
	if t, ok := parseDate(c.Query("to_date")); ok {
		to = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	summary, err := h.audit.Summary(c.Context(), from, to)
	if err != nil {
		h.log.Error("failed to build audit summary", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(summary)
}

// parseDate accepts both plain dates and RFC3339 timestamps.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
