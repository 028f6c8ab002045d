package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/training-platform/backend/internal/models"
)

const fileColumns = `id, filename, original_filename, mime_type, size, path, hash,
	       user_id, category, description, metadata, is_public, download_count,
	       expires_at, deleted_at, created_at, updated_at`

type FileRepo struct {
	pool *pgxpool.Pool
}

func NewFileRepo(pool *pgxpool.Pool) *FileRepo {
	return &FileRepo{pool: pool}
}

func (r *FileRepo) Create(ctx context.Context, f *models.File) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO files (filename, original_filename, mime_type, size, path, hash,
		        user_id, category, description, metadata, is_public, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`, f.Filename, f.OriginalFilename, f.MimeType, f.Size, f.Path, f.Hash,
		f.UserID, f.Category, f.Description, f.Metadata, f.IsPublic, f.ExpiresAt,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
}

// GetByID returns the file row, soft-deleted rows excluded.
func (r *FileRepo) GetByID(ctx context.Context, id int64) (*models.File, error) {
	var f models.File
	err := r.pool.QueryRow(ctx, `
		SELECT `+fileColumns+` FROM files WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&f.ID, &f.Filename, &f.OriginalFilename, &f.MimeType, &f.Size,
		&f.Path, &f.Hash, &f.UserID, &f.Category, &f.Description, &f.Metadata,
		&f.IsPublic, &f.DownloadCount, &f.ExpiresAt, &f.DeletedAt, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FileRepo) FindByHash(ctx context.Context, hash string) (*models.File, error) {
	var f models.File
	err := r.pool.QueryRow(ctx, `
		SELECT `+fileColumns+` FROM files WHERE hash = $1 AND deleted_at IS NULL LIMIT 1
	`, hash).Scan(&f.ID, &f.Filename, &f.OriginalFilename, &f.MimeType, &f.Size,
		&f.Path, &f.Hash, &f.UserID, &f.Category, &f.Description, &f.Metadata,
		&f.IsPublic, &f.DownloadCount, &f.ExpiresAt, &f.DeletedAt, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FileRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]models.File, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.queryFiles(ctx, `
		SELECT `+fileColumns+` FROM files
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
}

func (r *FileRepo) ListByCategory(ctx context.Context, category string, limit int) ([]models.File, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.queryFiles(ctx, `
		SELECT `+fileColumns+` FROM files
		WHERE category = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC LIMIT $2
	`, category, limit)
}

func (r *FileRepo) List(ctx context.Context, limit, offset int) ([]models.File, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.queryFiles(ctx, `
		SELECT `+fileColumns+` FROM files
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
}

func (r *FileRepo) UpdateMeta(ctx context.Context, f *models.File) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE files SET category = $1, description = $2, metadata = $3,
		       is_public = $4, expires_at = $5, updated_at = now()
		WHERE id = $6
	`, f.Category, f.Description, f.Metadata, f.IsPublic, f.ExpiresAt, f.ID)
	return err
}

func (r *FileRepo) IncrementDownloadCount(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE files SET download_count = download_count + 1 WHERE id = $1
	`, id)
	return err
}

func (r *FileRepo) SoftDelete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE files SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return err
}

func (r *FileRepo) queryFiles(ctx context.Context, query string, args ...any) ([]models.File, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []models.File
	for rows.Next() {
		var f models.File
		if err := rows.Scan(&f.ID, &f.Filename, &f.OriginalFilename, &f.MimeType,
			&f.Size, &f.Path, &f.Hash, &f.UserID, &f.Category, &f.Description,
			&f.Metadata, &f.IsPublic, &f.DownloadCount, &f.ExpiresAt, &f.DeletedAt,
			&f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
