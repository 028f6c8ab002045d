package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/training-platform/backend/internal/config"
	"github.com/training-platform/backend/internal/http/dto"
	"github.com/training-platform/backend/internal/middleware"
	"github.com/training-platform/backend/internal/models"
	"github.com/training-platform/backend/internal/services"
	"go.uber.org/zap"
)

const maxUploadSize = 50 << 20 // 50 MB

type fileStore interface {
	Store(ctx context.Context, in services.StoreFileInput) (*models.File, error)
	Get(ctx context.Context, id int64, userID *int64) (*models.File, error)
	OpenContent(ctx context.Context, f *models.File) (io.ReadCloser, error)
	OpenContentRaw(ctx context.Context, f *models.File) (io.ReadCloser, error)
	FindDuplicate(ctx context.Context, hash string) (*models.File, error)
	UpdateMeta(ctx context.Context, f *models.File, in services.UpdateFileInput) (*models.File, error)
	Delete(ctx context.Context, f *models.File) error
	List(ctx context.Context, limit, offset int) ([]models.File, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.File, error)
	ListByCategory(ctx context.Context, category string, limit int) ([]models.File, error)
}

type FileHandler struct {
	cfg   *config.Config
	files fileStore
	audit *services.AuditService
	log   *zap.Logger
}

func NewFileHandler(cfg *config.Config, files fileStore, audit *services.AuditService, log *zap.Logger) *FileHandler {
	return &FileHandler{cfg: cfg, files: files, audit: audit, log: log}
}

// Upload stores a multipart file with optional category, description
// and visibility fields. A content hash already on record short-circuits
// to the existing file instead of storing a second copy.
func (h *FileHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: "file is required"})
	}
	if fh.Size > maxUploadSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(dto.ErrorResponse{Error: "file too large"})
	}

	hash, err := multipartSHA256(fh)
	if err != nil {
		h.log.Error("failed to hash upload", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	dup, err := h.files.FindDuplicate(c.Context(), hash)
	if err != nil {
		h.log.Error("failed to check for duplicate upload", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	if dup != nil {
		if err := recordChange(c, h.audit, h.log, h.cfg.AuditFailOpen,
			"upload_duplicate", models.EntityFile, dup.ID, nil, nil,
			fmt.Sprintf("Duplicate upload of: %s", dup.OriginalFilename)); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
		}
		return c.JSON(dto.DuplicateFileResponse{Duplicate: true, File: dup})
	}

	src, err := fh.Open()
	if err != nil {
		h.log.Error("failed to open upload", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	defer src.Close()

	userID := middleware.GetUserID(c)
	in := services.StoreFileInput{
		Content:      src,
		OriginalName: fh.Filename,
		MimeType:     fh.Header.Get("Content-Type"),
		Size:         fh.Size,
		UserID:       &userID,
		IsPublic:     c.FormValue("is_public") == "true",
	}
	if v := c.FormValue("category"); v != "" {
		in.Category = &v
	}
	if v := c.FormValue("description"); v != "" {
		in.Description = &v
	}
	if v := c.FormValue("metadata"); v != "" {
		if !json.Valid([]byte(v)) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: "metadata must be valid JSON"})
		}
		in.Metadata = json.RawMessage(v)
	}
	if v := c.FormValue("expires_at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: "expires_at must be RFC3339"})
		}
		in.ExpiresAt = &t
	}

	f, err := h.files.Store(c.Context(), in)
	if err != nil {
		h.log.Error("failed to store file", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	if err := recordChange(c, h.audit, h.log, h.cfg.AuditFailOpen,
		"upload", models.EntityFile, f.ID, nil, fileSnapshot(f),
		fmt.Sprintf("File uploaded: %s", f.OriginalFilename)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.Status(fiber.StatusCreated).JSON(f)
}

func (h *FileHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("per_page", 15)
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	files, err := h.files.List(c.Context(), limit, (page-1)*limit)
	if err != nil {
		h.log.Error("failed to list files", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.PagedResponse{Data: files, Total: int64(len(files)), Page: page, PerPage: limit})
}

// MyFiles lists the files the caller owns.
func (h *FileHandler) MyFiles(c *fiber.Ctx) error {
	files, err := h.files.ListByUser(c.Context(), middleware.GetUserID(c), c.QueryInt("limit", 50))
	if err != nil {
		h.log.Error("failed to list user files", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: files})
}

func (h *FileHandler) ByCategory(c *fiber.Ctx) error {
	files, err := h.files.ListByCategory(c.Context(), c.Params("category"), c.QueryInt("limit", 50))
	if err != nil {
		h.log.Error("failed to list files by category", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: files})
}

func (h *FileHandler) Show(c *fiber.Ctx) error {
	f, err := h.load(c)
	if f == nil {
		return err
	}
	return c.JSON(f)
}

// Download streams the blob and counts the download.
func (h *FileHandler) Download(c *fiber.Ctx) error {
	f, err := h.load(c)
	if f == nil {
		return err
	}

	rc, err := h.files.OpenContent(c.Context(), f)
	if err != nil {
		if errors.Is(err, services.ErrFileNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "file not found"})
		}
		h.log.Error("failed to open file content", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	if err := recordChange(c, h.audit, h.log, h.cfg.AuditFailOpen,
		"download", models.EntityFile, f.ID, nil, nil,
		fmt.Sprintf("File downloaded: %s", f.OriginalFilename)); err != nil {
		rc.Close()
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	c.Set(fiber.HeaderContentType, f.MimeType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", f.OriginalFilename))
	return c.SendStream(rc, int(f.Size))
}

// Preview streams the blob inline without counting a download.
func (h *FileHandler) Preview(c *fiber.Ctx) error {
	f, err := h.load(c)
	if f == nil {
		return err
	}

	rc, err := h.files.OpenContentRaw(c.Context(), f)
	if err != nil {
		if errors.Is(err, services.ErrFileNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "file not found"})
		}
		h.log.Error("failed to open file content", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	c.Set(fiber.HeaderContentType, f.MimeType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", f.OriginalFilename))
	return c.SendStream(rc, int(f.Size))
}

func (h *FileHandler) Update(c *fiber.Ctx) error {
	f, err := h.load(c)
	if f == nil {
		return err
	}
	if !h.canModify(c, f) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "forbidden"})
	}

	var req dto.UpdateFileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	old := fileSnapshot(f)
	updated, err := h.files.UpdateMeta(c.Context(), f, services.UpdateFileInput{
		Category:    req.Category,
		Description: req.Description,
		Metadata:    req.Metadata,
		IsPublic:    req.IsPublic,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		h.log.Error("failed to update file", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	if err := recordChange(c, h.audit, h.log, h.cfg.AuditFailOpen,
		"update", models.EntityFile, updated.ID, old, fileSnapshot(updated),
		fmt.Sprintf("File updated: %s", updated.OriginalFilename)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(updated)
}

func (h *FileHandler) Delete(c *fiber.Ctx) error {
	f, err := h.load(c)
	if f == nil {
		return err
	}
	if !h.canModify(c, f) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "forbidden"})
	}

	if err := h.files.Delete(c.Context(), f); err != nil {
		h.log.Error("failed to delete file", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	if err := recordChange(c, h.audit, h.log, h.cfg.AuditFailOpen,
		"delete", models.EntityFile, f.ID, fileSnapshot(f), nil,
		fmt.Sprintf("File deleted: %s", f.OriginalFilename)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *FileHandler) load(c *fiber.Ctx) (*models.File, error) {
	id, err := c.ParamsInt("fileId")
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid file id"})
	}
	userID := middleware.GetUserID(c)
	f, err := h.files.Get(c.Context(), int64(id), &userID)
	if err != nil {
		if errors.Is(err, services.ErrFileNotFound) {
			return nil, c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "file not found"})
		}
		h.log.Error("failed to load file", zap.Error(err))
		return nil, c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return f, nil
}

// Only the owner or an admin can change or delete a file.
func (h *FileHandler) canModify(c *fiber.Ctx, f *models.File) bool {
	role, _ := c.Locals(middleware.CtxUserRole).(string)
	if role == models.RoleAdmin {
		return true
	}
	userID := middleware.GetUserID(c)
	return f.UserID != nil && *f.UserID == userID
}

func fileSnapshot(f *models.File) map[string]any {
	return map[string]any{
		"id":                f.ID,
		"original_filename": f.OriginalFilename,
		"category":          f.Category,
		"description":       f.Description,
		"is_public":         f.IsPublic,
		"expires_at":        f.ExpiresAt,
	}
}

func multipartSHA256(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	sum := sha256.New()
	if _, err := io.Copy(sum, src); err != nil {
		return "", err
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}
