package middleware

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/training-platform/backend/internal/keycloak"
	"go.uber.org/zap"
)

type fakeVerifier struct {
	info      *keycloak.UserInfo
	err       error
	lastToken string
}

func (f *fakeVerifier) UserInfo(_ context.Context, accessToken string) (*keycloak.UserInfo, error) {
	f.lastToken = accessToken
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

func newKeycloakApp(v *fakeVerifier) *fiber.App {
	app := fiber.New()
	app.Get("/user-info", KeycloakAuthMiddleware(v, zap.NewNop()), func(c *fiber.Ctx) error {
		return c.JSON(GetKeycloakUser(c))
	})
	return app
}

func TestKeycloakAuthRejectsMissingBearer(t *testing.T) {
	v := &fakeVerifier{info: &keycloak.UserInfo{Subject: "sub-1"}}
	app := newKeycloakApp(v)

	resp, err := app.Test(httptest.NewRequest("GET", "/user-info", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/user-info", nil)
	req.Header.Set("Authorization", "Basic abc")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, v.lastToken, "provider must not be consulted without a bearer token")
}

func TestKeycloakAuthRejectsInvalidToken(t *testing.T) {
	v := &fakeVerifier{err: errors.New("token inactive")}
	app := newKeycloakApp(v)

	req := httptest.NewRequest("GET", "/user-info", nil)
	req.Header.Set("Authorization", "Bearer provider-token")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "provider-token", v.lastToken)
}

func TestKeycloakAuthStoresVerifiedIdentity(t *testing.T) {
	v := &fakeVerifier{info: &keycloak.UserInfo{Subject: "sub-1", Email: "kc@example.com", Name: "KC User"}}
	app := newKeycloakApp(v)

	req := httptest.NewRequest("GET", "/user-info", nil)
	req.Header.Set("Authorization", "Bearer provider-token")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "provider-token", v.lastToken)
}
