package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/training-platform/backend/internal/keycloak"
	"go.uber.org/zap"
)

const CtxKeycloakUser = "keycloak_user"

type keycloakVerifier interface {
	UserInfo(ctx context.Context, accessToken string) (*keycloak.UserInfo, error)
}

// KeycloakAuthMiddleware validates a Keycloak access token against the
// provider's userinfo endpoint and stores the verified identity in
// request locals. Local JWTs are not accepted here; routes using local
// sessions go through AuthMiddleware instead.
func KeycloakAuthMiddleware(kc keycloakVerifier, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if authHeader == "" || token == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
		}

		info, err := kc.UserInfo(c.Context(), token)
		if err != nil {
			log.Debug("keycloak token rejected", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals(CtxKeycloakUser, info)
		return c.Next()
	}
}

// GetKeycloakUser returns the verified provider identity, nil outside
// KeycloakAuthMiddleware.
func GetKeycloakUser(c *fiber.Ctx) *keycloak.UserInfo {
	info, _ := c.Locals(CtxKeycloakUser).(*keycloak.UserInfo)
	return info
}
