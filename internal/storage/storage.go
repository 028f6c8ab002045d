package storage

import (
	"context"
	"io"
)

// BlobStore abstracts where file contents live. The metadata rows in
// Postgres reference blobs by the relative path returned at save time.
type BlobStore interface {
	Save(ctx context.Context, path string, r io.Reader) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) bool
}
