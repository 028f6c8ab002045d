package handlers

import (
	"net/mail"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/training-platform/backend/internal/auth"
	"github.com/training-platform/backend/internal/config"
	"github.com/training-platform/backend/internal/http/dto"
	"github.com/training-platform/backend/internal/middleware"
	"github.com/training-platform/backend/internal/models"
	"github.com/training-platform/backend/internal/repositories"
	"github.com/training-platform/backend/internal/services"
	"go.uber.org/zap"
)

type AuthHandler struct {
	cfg   *config.Config
	users *repositories.UserRepo
	audit *services.AuditService
	rdb   *redis.Client
	log   *zap.Logger
}

func NewAuthHandler(cfg *config.Config, users *repositories.UserRepo, audit *services.AuditService, rdb *redis.Client, log *zap.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users, audit: audit, rdb: rdb, log: log}
}

// Register creates a local account and issues a token.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	reqInfo := middleware.GetRequestInfo(c)
	if reason := validateRegistration(req); reason != "" {
		h.recordAuth(c, "register", req.Email, req.Name, false, "Validation failed", reqInfo)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: reason})
	}
	if existing, err := h.users.GetByEmail(c.Context(), req.Email); err == nil && existing != nil {
		h.recordAuth(c, "register", req.Email, req.Name, false, "Email already taken", reqInfo)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: "email already taken"})
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.log.Error("failed to hash password", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	u := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := h.users.Create(c.Context(), u); err != nil {
		h.log.Error("failed to create user", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, u.ID, u.Email, u.Name, u.Role, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to generate token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	h.recordAuth(c, "register", u.Email, u.Name, true, "", reqInfo)
	return c.Status(fiber.StatusCreated).JSON(dto.AuthResponse{Token: token, Type: "Bearer", User: u})
}

// Login checks credentials and issues a token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	reqInfo := middleware.GetRequestInfo(c)
	u, err := h.users.GetByEmail(c.Context(), req.Email)
	if err != nil || u == nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
		h.recordAuth(c, "login", req.Email, "", false, "Invalid credentials", reqInfo)
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid credentials"})
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, u.ID, u.Email, u.Name, u.Role, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to generate token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	h.recordAuth(c, "login", u.Email, u.Name, true, "", reqInfo)
	return c.JSON(dto.AuthResponse{Token: token, Type: "Bearer", User: u})
}

// Logout blacklists the current token until it would have expired anyway.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	jti := middleware.GetTokenID(c)
	if jti != "" {
		if err := h.rdb.Set(c.Context(), middleware.RevokedTokenKey(jti), "1", h.cfg.JWTExpiration).Err(); err != nil {
			h.log.Error("failed to revoke token", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
		}
	}

	actor := middleware.GetActor(c)
	email, name := "", ""
	if actor != nil {
		email, name = actor.Email, actor.Name
	}
	h.recordAuth(c, "logout", email, name, true, "", middleware.GetRequestInfo(c))
	return c.JSON(dto.SuccessResponse{OK: true})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	u, err := h.users.GetByID(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "user not found"})
	}
	return c.JSON(u)
}

func (h *AuthHandler) recordAuth(c *fiber.Ctx, action, email, username string, success bool, reason string, reqInfo *services.RequestInfo) {
	if _, err := h.audit.RecordAuthAction(c.Context(), action, email, username, success, reason, reqInfo); err != nil {
		h.log.Error("failed to record auth event", zap.String("action", action), zap.Error(err))
	}
}

func validateRegistration(req dto.RegisterRequest) string {
	if req.Name == "" {
		return "name is required"
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return "valid email is required"
	}
	if len(req.Password) < 8 {
		return "password must be at least 8 characters"
	}
	return ""
}
