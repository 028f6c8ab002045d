package middleware

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/training-platform/backend/internal/models"
	"github.com/training-platform/backend/internal/services"
	"go.uber.org/zap"
)

type captureRecorder struct {
	entries []services.ActionEntry
	err     error
}

func (r *captureRecorder) RecordAction(_ context.Context, e services.ActionEntry) (*models.AuditLog, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.entries = append(r.entries, e)
	return &models.AuditLog{Action: e.Action}, nil
}

func newAuditApp(rec *captureRecorder, extraSkip []string) *fiber.App {
	app := fiber.New()
	app.Use(AuditMiddleware(rec, extraSkip, zap.NewNop()))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/api/v1/users/:id", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": c.Params("id")})
	})
	app.Delete("/api/v1/course-categories/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/api/v1/reports", func(c *fiber.Ctx) error {
		return c.SendString("report body")
	})
	return app
}

func TestAuditMiddlewareRecordsRequest(t *testing.T) {
	rec := &captureRecorder{}
	app := newAuditApp(rec, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/users/42", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	require.Len(t, rec.entries, 1)
	e := rec.entries[0]
	assert.Equal(t, "view", e.Action)
	assert.Equal(t, "GET", e.Method)
	assert.Equal(t, "/api/v1/users/42", e.Endpoint)
	assert.Equal(t, "GET /api/v1/users/42", e.Description)
	assert.Equal(t, models.EntityUser, e.AuditableType)
	require.NotNil(t, e.AuditableID)
	assert.Equal(t, int64(42), *e.AuditableID)
	require.NotNil(t, e.StatusCode)
	assert.Equal(t, 200, *e.StatusCode)
}

func TestAuditMiddlewareDeriveDelete(t *testing.T) {
	rec := &captureRecorder{}
	app := newAuditApp(rec, nil)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/api/v1/course-categories/7", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	require.Len(t, rec.entries, 1)
	e := rec.entries[0]
	assert.Equal(t, "delete", e.Action)
	assert.Equal(t, models.EntityCourseCategory, e.AuditableType)
	require.NotNil(t, e.AuditableID)
	assert.Equal(t, int64(7), *e.AuditableID)
	assert.Equal(t, fiber.StatusNoContent, *e.StatusCode)
}

func TestAuditMiddlewareSkipsExcludedPaths(t *testing.T) {
	rec := &captureRecorder{}
	app := newAuditApp(rec, []string{"/api/v1/reports"})

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Empty(t, rec.entries, "default skip path must not be audited")

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/reports", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Empty(t, rec.entries, "caller-specified skip path must not be audited")

	_, err = app.Test(httptest.NewRequest("GET", "/api/v1/users/1", nil))
	require.NoError(t, err)
	assert.Len(t, rec.entries, 1, "non-excluded path produces exactly one record")
}

func TestAuditMiddlewareSwallowsRecorderFailure(t *testing.T) {
	rec := &captureRecorder{err: errors.New("store down")}
	app := newAuditApp(rec, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/reports", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "report body", string(body), "response must be unaffected by audit failure")
}

func TestAuditMiddlewareUnmappedResource(t *testing.T) {
	rec := &captureRecorder{}
	app := newAuditApp(rec, nil)

	_, err := app.Test(httptest.NewRequest("GET", "/api/v1/reports", nil))
	require.NoError(t, err)

	require.Len(t, rec.entries, 1)
	assert.Empty(t, rec.entries[0].AuditableType, "unmapped resource degrades to empty type")
	assert.Nil(t, rec.entries[0].AuditableID)
}

func TestAuditMiddlewareRecordsHandlerErrorStatus(t *testing.T) {
	rec := &captureRecorder{}
	app := fiber.New()
	app.Use(AuditMiddleware(rec, nil, zap.NewNop()))
	app.Get("/api/v1/users/:id", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusInternalServerError, "store down")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/users/3", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	require.Len(t, rec.entries, 1)
	require.NotNil(t, rec.entries[0].StatusCode)
	assert.Equal(t, fiber.StatusInternalServerError, *rec.entries[0].StatusCode)
}

func TestAuditMiddlewareRecordsNotFoundStatus(t *testing.T) {
	rec := &captureRecorder{}
	app := newAuditApp(rec, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/nowhere", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	require.Len(t, rec.entries, 1)
	require.NotNil(t, rec.entries[0].StatusCode)
	assert.Equal(t, fiber.StatusNotFound, *rec.entries[0].StatusCode)
}

func TestAuditMiddlewareRecordsNonFiberErrorAs500(t *testing.T) {
	rec := &captureRecorder{}
	app := fiber.New()
	app.Use(AuditMiddleware(rec, nil, zap.NewNop()))
	app.Get("/api/v1/users/:id", func(c *fiber.Ctx) error {
		return errors.New("plain failure")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/users/3", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	require.Len(t, rec.entries, 1)
	require.NotNil(t, rec.entries[0].StatusCode)
	assert.Equal(t, fiber.StatusInternalServerError, *rec.entries[0].StatusCode)
}
