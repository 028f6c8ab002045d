package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/training-platform/backend/internal/config"
	"github.com/training-platform/backend/internal/http/handlers"
	"github.com/training-platform/backend/internal/keycloak"
	"github.com/training-platform/backend/internal/middleware"
	"github.com/training-platform/backend/internal/services"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	audit *services.AuditService,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	categoryHandler *handlers.CategoryHandler,
	courseHandler *handlers.CourseHandler,
	fileHandler *handlers.FileHandler,
	auditHandler *handlers.AuditHandler,
	exportHandler *handlers.ExportHandler,
	keycloakHandler *handlers.KeycloakHandler,
	kc *keycloak.Client,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))
	app.Use(middleware.AuditMiddleware(audit, cfg.AuditSkipPaths, log))

	// Health checks
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/up", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)

	// Keycloak SSO (public half of the flow)
	if keycloakHandler != nil {
		api.Get("/keycloak/login", keycloakHandler.Login)
		api.Post("/keycloak/callback", keycloakHandler.Callback)
		api.Post("/keycloak/refresh", keycloakHandler.Refresh)
	}

	// Rate-limited from here on
	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Keycloak session endpoints authenticate with the provider token,
	// not a local JWT.
	if keycloakHandler != nil {
		kcAuth := api.Group("/keycloak", middleware.KeycloakAuthMiddleware(kc, log))
		kcAuth.Get("/user-info", keycloakHandler.UserInfo)
		kcAuth.Post("/logout", keycloakHandler.Logout)
	}

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, rdb, log))

	// Session
	protected.Get("/user", authHandler.Me)
	protected.Post("/auth/logout", authHandler.Logout)

	// Users
	protected.Get("/users", middleware.RequirePermission("users.view"), userHandler.List)
	protected.Post("/users", middleware.RequirePermission("users.create"), userHandler.Create)
	protected.Get("/users/:id", middleware.RequirePermission("users.view"), userHandler.Get)
	protected.Put("/users/:id", middleware.RequirePermission("users.update"), userHandler.Update)
	protected.Delete("/users/:id", middleware.RequirePermission("users.delete"), userHandler.Delete)

	// Course categories
	protected.Get("/course-categories", middleware.RequirePermission("course-categories.view"), categoryHandler.List)
	protected.Post("/course-categories", middleware.RequirePermission("course-categories.create"), categoryHandler.Create)
	protected.Get("/course-categories/:id", middleware.RequirePermission("course-categories.view"), categoryHandler.Get)
	protected.Put("/course-categories/:id", middleware.RequirePermission("course-categories.update"), categoryHandler.Update)
	protected.Delete("/course-categories/:id", middleware.RequirePermission("course-categories.delete"), categoryHandler.Delete)
	protected.Get("/course-categories/:id/courses", middleware.RequirePermission("course-categories.view"), categoryHandler.Courses)

	// Courses
	protected.Post("/courses", middleware.RequirePermission("courses.create"), courseHandler.Create)
	protected.Get("/courses/:id", middleware.RequirePermission("courses.view"), courseHandler.Get)
	protected.Put("/courses/:id", middleware.RequirePermission("courses.update"), courseHandler.Update)
	protected.Delete("/courses/:id", middleware.RequirePermission("courses.delete"), courseHandler.Delete)

	// Files
	protected.Post("/files/upload", middleware.RequirePermission("files.upload"), fileHandler.Upload)
	protected.Get("/files", middleware.RequirePermission("files.view"), fileHandler.List)
	protected.Get("/files/my-files", middleware.RequirePermission("files.view"), fileHandler.MyFiles)
	protected.Get("/files/category/:category", middleware.RequirePermission("files.view"), fileHandler.ByCategory)
	protected.Get("/files/:fileId", middleware.RequirePermission("files.view"), fileHandler.Show)
	protected.Get("/files/:fileId/download", middleware.RequirePermission("files.download"), fileHandler.Download)
	protected.Get("/files/:fileId/preview", middleware.RequirePermission("files.view"), fileHandler.Preview)
	protected.Put("/files/:fileId", middleware.RequirePermission("files.update"), fileHandler.Update)
	protected.Delete("/files/:fileId", middleware.RequirePermission("files.delete"), fileHandler.Delete)

	// Audit trail
	protected.Get("/audit-logs", middleware.RequirePermission("audit-logs.view"), auditHandler.Index)
	protected.Get("/audit-logs/my-logs", middleware.RequirePermission("audit-logs.view-own"), auditHandler.MyLogs)
	protected.Get("/audit-logs/auth", middleware.RequirePermission("audit-logs.view"), auditHandler.AuthLogs)
	protected.Get("/audit-logs/suspicious", middleware.RequirePermission("audit-logs.view"), auditHandler.Suspicious)
	protected.Get("/audit-logs/summary", middleware.RequirePermission("audit-logs.view"), auditHandler.Summary)
	protected.Get("/audit-logs/history/:modelType/:modelId", middleware.RequirePermission("audit-logs.view"), auditHandler.ModelHistory)

	// Report exports
	protected.Get("/exports/users/:format?", middleware.RequirePermission("reports.export"), exportHandler.Users)
	protected.Get("/exports/audit-logs/:format?", middleware.RequirePermission("reports.export"), exportHandler.AuditLogs)
}
