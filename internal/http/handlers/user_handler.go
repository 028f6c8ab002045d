package handlers

import (
	"errors"
	"fmt"
	"net/mail"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/training-platform/backend/internal/auth"
	"github.com/training-platform/backend/internal/config"
	"github.com/training-platform/backend/internal/http/dto"
	"github.com/training-platform/backend/internal/middleware"
	"github.com/training-platform/backend/internal/models"
	"github.com/training-platform/backend/internal/repositories"
	"github.com/training-platform/backend/internal/services"
	"go.uber.org/zap"
)

type UserHandler struct {
	cfg   *config.Config
	users *repositories.UserRepo
	audit *services.AuditService
	log   *zap.Logger
}

func NewUserHandler(cfg *config.Config, users *repositories.UserRepo, audit *services.AuditService, log *zap.Logger) *UserHandler {
	return &UserHandler{cfg: cfg, users: users, audit: audit, log: log}
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	f := repositories.UserFilter{
		Sort:      c.Query("sort", "created_at"),
		Direction: c.Query("direction", "desc"),
		Limit:     c.QueryInt("per_page", 15),
	}
	if v := c.Query("search"); v != "" {
		f.Search = &v
	}
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	f.Offset = (page - 1) * f.Limit

	users, total, err := h.users.List(c.Context(), f)
	if err != nil {
		h.log.Error("failed to list users", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.PagedResponse{Data: users, Total: total, Page: page, PerPage: f.Limit})
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid user id"})
	}
	u, err := h.users.GetByID(c.Context(), int64(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "user not found"})
		}
		h.log.Error("failed to load user", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(u)
}

func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Name == "" || len(req.Password) < 8 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: "name and password (min 8 chars) are required"})
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: "valid email is required"})
	}
	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: "invalid role"})
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.log.Error("failed to hash password", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	u := &models.User{Name: req.Name, Email: req.Email, PasswordHash: hash, Role: role}
	if err := h.users.Create(c.Context(), u); err != nil {
		h.log.Error("failed to create user", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	if err := recordChange(c, h.audit, h.log, h.cfg.AuditFailOpen,
		"create", models.EntityUser, u.ID, nil, userSnapshot(u),
		fmt.Sprintf("User created: %s", u.Email)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.Status(fiber.StatusCreated).JSON(u)
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid user id"})
	}
	u, err := h.users.GetByID(c.Context(), int64(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "user not found"})
		}
		h.log.Error("failed to load user", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	old := userSnapshot(u)
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Email != nil {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: "valid email is required"})
		}
		u.Email = *req.Email
	}
	if req.Role != nil {
		if !models.ValidRole(*req.Role) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: "invalid role"})
		}
		u.Role = *req.Role
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: "password must be at least 8 characters"})
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			h.log.Error("failed to hash password", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
		}
		u.PasswordHash = hash
	}

	if err := h.users.Update(c.Context(), u); err != nil {
		h.log.Error("failed to update user", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	if err := recordChange(c, h.audit, h.log, h.cfg.AuditFailOpen,
		"update", models.EntityUser, u.ID, old, userSnapshot(u),
		fmt.Sprintf("User updated: %s", u.Email)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(u)
}

func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid user id"})
	}
	if int64(id) == middleware.GetUserID(c) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: "cannot delete your own account"})
	}

	u, err := h.users.GetByID(c.Context(), int64(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "user not found"})
		}
		h.log.Error("failed to load user", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	if err := h.users.Delete(c.Context(), u.ID); err != nil {
		h.log.Error("failed to delete user", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	if err := recordChange(c, h.audit, h.log, h.cfg.AuditFailOpen,
		"delete", models.EntityUser, u.ID, userSnapshot(u), nil,
		fmt.Sprintf("User deleted: %s", u.Email)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// userSnapshot is what goes into the audit trail; never the password hash.
func userSnapshot(u *models.User) map[string]any {
	return map[string]any{
		"id":    u.ID,
		"name":  u.Name,
		"email": u.Email,
		"role":  u.Role,
	}
}
