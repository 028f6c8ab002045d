package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/training-platform/backend/internal/auth"
	"github.com/training-platform/backend/internal/config"
	"github.com/training-platform/backend/internal/services"
	"go.uber.org/zap"
)

const (
	CtxUserID    = "user_id"
	CtxUserEmail = "user_email"
	CtxUserName  = "user_name"
	CtxUserRole  = "user_role"
	CtxTokenID   = "token_jti"
)

// AuthMiddleware validates the bearer token, rejects revoked tokens and
// stores the actor identity in request locals for handlers and the
// audit middleware.
func AuthMiddleware(cfg *config.Config, rdb *redis.Client, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		if rdb != nil && claims.ID != "" {
			revoked, err := rdb.Exists(c.Context(), revokedTokenKey(claims.ID)).Result()
			if err == nil && revoked > 0 {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "token revoked"})
			}
		}

		c.Locals(CtxUserID, claims.UserID)
		c.Locals(CtxUserEmail, claims.Email)
		c.Locals(CtxUserName, claims.Name)
		c.Locals(CtxUserRole, claims.Role)
		c.Locals(CtxTokenID, claims.ID)

		return c.Next()
	}
}

func GetUserID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(CtxUserID).(int64)
	return id
}

func GetTokenID(c *fiber.Ctx) string {
	jti, _ := c.Locals(CtxTokenID).(string)
	return jti
}

// GetActor returns the authenticated actor for audit recording, nil for
// unauthenticated requests.
func GetActor(c *fiber.Ctx) *services.Actor {
	id, ok := c.Locals(CtxUserID).(int64)
	if !ok || id == 0 {
		return nil
	}
	email, _ := c.Locals(CtxUserEmail).(string)
	name, _ := c.Locals(CtxUserName).(string)
	return &services.Actor{ID: id, Email: email, Name: name}
}

// GetRequestInfo captures the request-scoped audit details.
func GetRequestInfo(c *fiber.Ctx) *services.RequestInfo {
	return &services.RequestInfo{
		IP:        c.IP(),
		UserAgent: c.Get("User-Agent"),
	}
}

func revokedTokenKey(jti string) string {
	return fmt.Sprintf("revoked_token:%s", jti)
}

// RevokedTokenKey is used by the logout handler to blacklist a token.
func RevokedTokenKey(jti string) string {
	return revokedTokenKey(jti)
}
