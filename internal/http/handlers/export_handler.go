package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/training-platform/backend/internal/config"
	"github.com/training-platform/backend/internal/export"
	"github.com/training-platform/backend/internal/http/dto"
	"github.com/training-platform/backend/internal/middleware"
	"github.com/training-platform/backend/internal/repositories"
	"github.com/training-platform/backend/internal/services"
	"go.uber.org/zap"
)

// Audit exports are capped so one request cannot drag the whole table
// through the renderer.
const maxExportRows = 500

type ExportHandler struct {
	cfg       *config.Config
	users     *repositories.UserRepo
	audit     *services.AuditService
	renderers map[string]export.Renderer
	log       *zap.Logger
}

// NewExportHandler serves one route per registered format; requests for
// an unregistered format get a 422.
func NewExportHandler(cfg *config.Config, users *repositories.UserRepo, audit *services.AuditService, renderers map[string]export.Renderer, log *zap.Logger) *ExportHandler {
	return &ExportHandler{cfg: cfg, users: users, audit: audit, renderers: renderers, log: log}
}

// Users exports the full user list.
func (h *ExportHandler) Users(c *fiber.Ctx) error {
	renderer, errResp := h.renderer(c)
	if renderer == nil {
		return errResp
	}

	users, err := h.users.ListAll(c.Context())
	if err != nil {
		h.log.Error("failed to load users for export", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	headers := []string{"ID", "Name", "Email", "Role", "Created At"}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			strconv.FormatInt(u.ID, 10),
			u.Name,
			u.Email,
			u.Role,
			u.CreatedAt.Format(time.RFC3339),
		})
	}
	return h.send(c, renderer, "Users", "users", headers, rows)
}

// AuditLogs exports recent audit records, newest first.
func (h *ExportHandler) AuditLogs(c *fiber.Ctx) error {
	renderer, errResp := h.renderer(c)
	if renderer == nil {
		return errResp
	}

	f := repositories.AuditFilter{Limit: maxExportRows}
	if v := c.QueryInt("user_id", 0); v > 0 {
		id := int64(v)
		f.UserID = &id
	}
	if v := c.Query("action"); v != "" {
		f.Action = &v
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

	logs, _, err := h.audit.List(c.Context(), f)
	if err != nil {
		h.log.Error("failed to load audit logs for export", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	headers := []string{"ID", "User Email", "Action", "Method", "Endpoint", "Status", "Description", "Created At"}
	rows := make([][]string, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, []string{
			strconv.FormatInt(l.ID, 10),
			strVal(l.UserEmail),
			l.Action,
			strVal(l.Method),
			strVal(l.Endpoint),
			intVal(l.StatusCode),
			strVal(l.Description),
			l.CreatedAt.Format(time.RFC3339),
		})
	}
	return h.send(c, renderer, "Audit Logs", "audit_logs", headers, rows)
}

func (h *ExportHandler) renderer(c *fiber.Ctx) (export.Renderer, error) {
	format := c.Params("format", "csv")
	r, ok := h.renderers[format]
	if !ok {
		return nil, c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: "unsupported export format"})
	}
	return r, nil
}

func (h *ExportHandler) send(c *fiber.Ctx, renderer export.Renderer, title, prefix string, headers []string, rows [][]string) error {
	body, err := renderer.Render(title, headers, rows)
	if err != nil {
		h.log.Error("failed to render export", zap.String("export", prefix), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	entry := services.ActionEntry{
		Action:      "export",
		Endpoint:    c.Path(),
		Method:      c.Method(),
		Description: fmt.Sprintf("Exported %s to %s (%d rows)", prefix, renderer.Extension(), len(rows)),
		NewValues:   map[string]any{"export": prefix, "rows": len(rows)},
		Actor:       middleware.GetActor(c),
		Request:     middleware.GetRequestInfo(c),
	}
	if _, err := h.audit.RecordAction(c.Context(), entry); err != nil {
		h.log.Error("failed to record export", zap.String("export", prefix), zap.Error(err))
		if !h.cfg.AuditFailOpen {
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
		}
	}

	name := export.Filename(prefix, renderer.Extension(), time.Now())
	c.Set(fiber.HeaderContentType, renderer.ContentType())
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Send(body)
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func intVal(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
