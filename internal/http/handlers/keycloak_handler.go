package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/training-platform/backend/internal/auth"
	"github.com/training-platform/backend/internal/config"
	"github.com/training-platform/backend/internal/http/dto"
	"github.com/training-platform/backend/internal/keycloak"
	"github.com/training-platform/backend/internal/middleware"
	"github.com/training-platform/backend/internal/repositories"
	"github.com/training-platform/backend/internal/services"
	"go.uber.org/zap"
)

type KeycloakHandler struct {
	cfg   *config.Config
	kc    *keycloak.Client
	users *repositories.UserRepo
	audit *services.AuditService
	log   *zap.Logger
}

func NewKeycloakHandler(cfg *config.Config, kc *keycloak.Client, users *repositories.UserRepo, audit *services.AuditService, log *zap.Logger) *KeycloakHandler {
	return &KeycloakHandler{cfg: cfg, kc: kc, users: users, audit: audit, log: log}
}

// Login hands the SPA the authorization URL to redirect to.
func (h *KeycloakHandler) Login(c *fiber.Ctx) error {
	state := uuid.NewString()
	return c.JSON(dto.KeycloakLoginResponse{
		AuthURL: h.kc.AuthCodeURL(state),
		State:   state,
	})
}

// Callback exchanges the authorization code, verifies the ID token,
// provisions the local account and issues a local JWT.
func (h *KeycloakHandler) Callback(c *fiber.Ctx) error {
	var req dto.KeycloakCallbackRequest
	if err := c.BodyParser(&req); err != nil || req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "code is required"})
	}

	reqInfo := middleware.GetRequestInfo(c)
	token, err := h.kc.Exchange(c.Context(), req.Code)
	if err != nil {
		h.recordAuth(c, "login", "", false, "Keycloak code exchange failed", reqInfo)
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "authorization code exchange failed"})
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		h.recordAuth(c, "login", "", false, "Missing ID token", reqInfo)
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "missing id token"})
	}
	info, err := h.kc.VerifyIDToken(c.Context(), rawIDToken)
	if err != nil {
		h.recordAuth(c, "login", "", false, "ID token verification failed", reqInfo)
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "id token verification failed"})
	}

	u, err := h.users.UpsertByKeycloakSubject(c.Context(), info.Subject, info.Email, info.Name)
	if err != nil {
		h.log.Error("failed to provision keycloak user", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	localToken, err := auth.GenerateJWT(h.cfg.JWTSecret, u.ID, u.Email, u.Name, u.Role, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to generate token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	h.recordAuth(c, "login", u.Email, true, "", reqInfo)
	return c.JSON(dto.KeycloakTokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		IDToken:      rawIDToken,
		LocalToken:   localToken,
		User:         u,
	})
}

// Refresh trades a Keycloak refresh token for a fresh token pair.
func (h *KeycloakHandler) Refresh(c *fiber.Ctx) error {
	var req dto.KeycloakRefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "refresh_token is required"})
	}

	token, err := h.kc.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "refresh failed"})
	}
	return c.JSON(dto.KeycloakTokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	})
}

// UserInfo returns the provider identity already verified by the
// Keycloak auth middleware.
func (h *KeycloakHandler) UserInfo(c *fiber.Ctx) error {
	info := middleware.GetKeycloakUser(c)
	if info == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "missing bearer token"})
	}
	return c.JSON(info)
}

// Logout revokes the Keycloak refresh token.
func (h *KeycloakHandler) Logout(c *fiber.Ctx) error {
	var req dto.KeycloakRefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "refresh_token is required"})
	}

	if err := h.kc.Revoke(c.Context(), req.RefreshToken); err != nil {
		h.log.Warn("failed to revoke keycloak token", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: "token revocation failed"})
	}

	email := ""
	if info := middleware.GetKeycloakUser(c); info != nil {
		email = info.Email
	}
	h.recordAuth(c, "logout", email, true, "", middleware.GetRequestInfo(c))
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *KeycloakHandler) recordAuth(c *fiber.Ctx, action, email string, success bool, reason string, reqInfo *services.RequestInfo) {
	if _, err := h.audit.RecordAuthAction(c.Context(), action, email, "", success, reason, reqInfo); err != nil {
		h.log.Error("failed to record auth event", zap.String("action", action), zap.Error(err))
	}
}
