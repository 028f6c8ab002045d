package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/training-platform/backend/internal/models"
	"github.com/training-platform/backend/internal/repositories"
	"github.com/training-platform/backend/internal/storage"
	"go.uber.org/zap"
)

var ErrFileNotFound = errors.New("file not found")

type FileService struct {
	fileRepo *repositories.FileRepo
	blobs    storage.BlobStore
	log      *zap.Logger
}

func NewFileService(fileRepo *repositories.FileRepo, blobs storage.BlobStore, log *zap.Logger) *FileService {
	return &FileService{fileRepo: fileRepo, blobs: blobs, log: log}
}

type StoreFileInput struct {
	Content      io.Reader
	OriginalName string
	MimeType     string
	Size         int64
	UserID       *int64
	Category     *string
	Description  *string
	Metadata     json.RawMessage
	IsPublic     bool
	ExpiresAt    *time.Time
}

// Store writes the blob under a category/date path with a generated
// filename and records its metadata. The sha256 is computed while the
// content streams to the store, for duplicate detection.
func (s *FileService) Store(ctx context.Context, in StoreFileInput) (*models.File, error) {
	ext := path.Ext(in.OriginalName)
	filename := uuid.New().String() + ext

	dir := time.Now().Format("2006/01/02")
	if in.Category != nil && *in.Category != "" {
		dir = *in.Category + "/" + dir
	}
	blobPath := dir + "/" + filename

	hasher := sha256.New()
	if err := s.blobs.Save(ctx, blobPath, io.TeeReader(in.Content, hasher)); err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}

	f := &models.File{
		Filename:         filename,
		OriginalFilename: in.OriginalName,
		MimeType:         in.MimeType,
		Size:             in.Size,
		Path:             blobPath,
		Hash:             hex.EncodeToString(hasher.Sum(nil)),
		UserID:           in.UserID,
		Category:         in.Category,
		Description:      in.Description,
		Metadata:         in.Metadata,
		IsPublic:         in.IsPublic,
		ExpiresAt:        in.ExpiresAt,
	}
	if err := s.fileRepo.Create(ctx, f); err != nil {
		// The blob is orphaned; remove it so retries do not accumulate.
		if delErr := s.blobs.Delete(ctx, blobPath); delErr != nil {
			s.log.Warn("failed to remove orphaned blob", zap.String("path", blobPath), zap.Error(delErr))
		}
		return nil, err
	}
	return f, nil
}

// Get returns the file if it exists, is not expired, and is readable by
// the given user. All three failures look identical to the caller.
func (s *FileService) Get(ctx context.Context, id int64, userID *int64) (*models.File, error) {
	f, err := s.fileRepo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	if f.IsExpired() || !f.CanAccess(userID) {
		return nil, ErrFileNotFound
	}
	return f, nil
}

// OpenContent opens the blob for download and bumps the counter.
func (s *FileService) OpenContent(ctx context.Context, f *models.File) (io.ReadCloser, error) {
	if !s.blobs.Exists(ctx, f.Path) {
		return nil, ErrFileNotFound
	}
	if err := s.fileRepo.IncrementDownloadCount(ctx, f.ID); err != nil {
		s.log.Warn("failed to increment download count", zap.Int64("file_id", f.ID), zap.Error(err))
	}
	return s.blobs.Open(ctx, f.Path)
}

// OpenContentRaw streams the blob without counting a download, for
// inline previews.
func (s *FileService) OpenContentRaw(ctx context.Context, f *models.File) (io.ReadCloser, error) {
	if !s.blobs.Exists(ctx, f.Path) {
		return nil, ErrFileNotFound
	}
	return s.blobs.Open(ctx, f.Path)
}

func (s *FileService) FindDuplicate(ctx context.Context, hash string) (*models.File, error) {
	f, err := s.fileRepo.FindByHash(ctx, hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return f, err
}

type UpdateFileInput struct {
	Category    *string
	Description *string
	Metadata    json.RawMessage
	IsPublic    *bool
	ExpiresAt   *time.Time
}

func (s *FileService) UpdateMeta(ctx context.Context, f *models.File, in UpdateFileInput) (*models.File, error) {
	if in.Category != nil {
		f.Category = in.Category
	}
	if in.Description != nil {
		f.Description = in.Description
	}
	if in.Metadata != nil {
		f.Metadata = in.Metadata
	}
	if in.IsPublic != nil {
		f.IsPublic = *in.IsPublic
	}
	if in.ExpiresAt != nil {
		f.ExpiresAt = in.ExpiresAt
	}
	if err := s.fileRepo.UpdateMeta(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Delete removes the blob and soft-deletes the metadata row.
func (s *FileService) Delete(ctx context.Context, f *models.File) error {
	if err := s.blobs.Delete(ctx, f.Path); err != nil {
		s.log.Warn("failed to delete blob", zap.String("path", f.Path), zap.Error(err))
	}
	return s.fileRepo.SoftDelete(ctx, f.ID)
}

func (s *FileService) List(ctx context.Context, limit, offset int) ([]models.File, error) {
	return s.fileRepo.List(ctx, limit, offset)
}

func (s *FileService) ListByUser(ctx context.Context, userID int64, limit int) ([]models.File, error) {
	return s.fileRepo.ListByUser(ctx, userID, limit)
}

func (s *FileService) ListByCategory(ctx context.Context, category string, limit int) ([]models.File, error) {
	return s.fileRepo.ListByCategory(ctx, category, limit)
}
