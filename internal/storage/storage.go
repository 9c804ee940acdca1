package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"alcyxob/file-storage/internal/config"
)

// SignedURLExpiry is the validity window of every download URL handed out by the API.
const SignedURLExpiry = 3600 * time.Second

// DefaultContentType is stored when the client sent no content type.
const DefaultContentType = "application/octet-stream"

var ErrUnknownDriver = errors.New("unknown storage driver")

// FileStorage defines the interface for object storage operations.
// Implementations must be safe for concurrent use.
type FileStorage interface {
	// BucketName returns the configured bucket. Empty means unconfigured;
	// callers must check it before issuing any other call.
	BucketName() string

	// PutObject writes size bytes from body under objectKey.
	PutObject(ctx context.Context, objectKey string, body io.Reader, size int64, contentType string) error

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading/viewing an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}

// New builds the FileStorage selected by cfg.Driver.
func New(ctx context.Context, cfg config.S3Config) (FileStorage, error) {
	switch cfg.Driver {
	case "", config.DriverS3:
		return NewS3Storage(ctx, cfg)
	case config.DriverMinio:
		return NewMinioStorage(cfg)
	case config.DriverMemory:
		return NewMemoryStorage(cfg.BucketName), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func normalizeExpiry(expires time.Duration) time.Duration {
	if expires <= 0 {
		return SignedURLExpiry
	}
	return expires
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return DefaultContentType
	}
	return contentType
}
