package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/training-platform/backend/internal/config"
	"github.com/training-platform/backend/internal/db"
	"github.com/training-platform/backend/internal/export"
	apphttp "github.com/training-platform/backend/internal/http"
	"github.com/training-platform/backend/internal/http/handlers"
	"github.com/training-platform/backend/internal/keycloak"
	"github.com/training-platform/backend/internal/repositories"
	"github.com/training-platform/backend/internal/services"
	"github.com/training-platform/backend/internal/storage"
	"github.com/training-platform/backend/migrations"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Blob storage
	blobs, err := storage.NewLocalStore(cfg.UploadDir)
	if err != nil {
		log.Fatal("failed to init upload storage", zap.Error(err))
	}

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	categoryRepo := repositories.NewCategoryRepo(pool)
	courseRepo := repositories.NewCourseRepo(pool)
	fileRepo := repositories.NewFileRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Services
	auditService := services.NewAuditService(auditRepo, log)
	fileService := services.NewFileService(fileRepo, blobs, log)

	// Keycloak is optional; without it only local auth is served.
	var kc *keycloak.Client
	var keycloakHandler *handlers.KeycloakHandler
	if cfg.KeycloakEnabled() {
		kc, err = keycloak.New(ctx, cfg, rdb, log)
		if err != nil {
			log.Fatal("failed to init keycloak client", zap.Error(err))
		}
		keycloakHandler = handlers.NewKeycloakHandler(cfg, kc, userRepo, auditService, log)
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(cfg, userRepo, auditService, rdb, log)
	userHandler := handlers.NewUserHandler(cfg, userRepo, auditService, log)
	categoryHandler := handlers.NewCategoryHandler(cfg, categoryRepo, courseRepo, auditService, log)
	courseHandler := handlers.NewCourseHandler(cfg, courseRepo, auditService, log)
	fileHandler := handlers.NewFileHandler(cfg, fileService, auditService, log)
	auditHandler := handlers.NewAuditHandler(auditService, log)
	renderers := map[string]export.Renderer{"csv": export.NewCSVRenderer()}
	exportHandler := handlers.NewExportHandler(cfg, userRepo, auditService, renderers, log)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, auditService,
		authHandler, userHandler, categoryHandler, courseHandler,
		fileHandler, auditHandler, exportHandler, keycloakHandler, kc)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
