package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/lescriminels/guild/config"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("attachment not found")

// Storage is the object store attachments are written to. Delete of a
// missing key must succeed.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// OpenStorage builds the storage named by cfg.UploadDriver.
func OpenStorage(ctx context.Context, cfg config.Config) (Storage, error) {
	switch cfg.UploadDriver {
	case "", "fs":
		return NewFSStorage(cfg.UploadDir)
	case "memory":
		return NewMemoryStorage(), nil
	case "minio":
		m, err := NewMinioStorage(cfg.Minio)
		if err != nil {
			return nil, err
		}
		if err := m.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket %s: %w", m.Bucket(), err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("unknown UPLOAD_DRIVER %q", cfg.UploadDriver)
}
