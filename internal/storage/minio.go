package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"alcyxob/file-storage/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

var ErrMinioEndpointRequired = errors.New("minio driver requires s3.endpoint")

// minioStorage implements FileStorage with the MinIO client.
type minioStorage struct {
	client     *minio.Client
	bucketName string
}

// NewMinioStorage creates a FileStorage for a MinIO server.
// The endpoint may be given as host:port or as a URL; a URL scheme overrides UseSSL.
func NewMinioStorage(cfg config.S3Config) (FileStorage, error) {
	host, secure, err := parseMinioEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	opts := &minio.Options{
		Secure: secure,
		Region: cfg.Region,
	}
	if cfg.HasStaticCredentials() {
		opts.Creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	} else {
		opts.Creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
			&credentials.IAM{Client: &http.Client{Transport: http.DefaultTransport}},
		})
	}

	cli, err := minio.New(host, opts)
	if err != nil {
		return nil, err
	}

	log.Info().Str("endpoint", host).Bool("secure", secure).Str("bucket", cfg.BucketName).Msg("MinIO storage initialized")

	return &minioStorage{client: cli, bucketName: cfg.BucketName}, nil
}

func parseMinioEndpoint(endpoint string, useSSL bool) (string, bool, error) {
	if endpoint == "" {
		return "", false, ErrMinioEndpointRequired
	}
	if !strings.Contains(endpoint, "://") {
		return endpoint, useSSL, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, err
	}
	return u.Host, u.Scheme == "https", nil
}

func (m *minioStorage) BucketName() string {
	return m.bucketName
}

func (m *minioStorage) PutObject(ctx context.Context, objectKey string, body io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucketName, objectKey, body, size, minio.PutObjectOptions{
		ContentType: normalizeContentType(contentType),
	})
	if err != nil {
		log.Error().Err(err).Str("key", objectKey).Str("bucket", m.bucketName).Msg("failed to put object")
		return err
	}
	return nil
}

func (m *minioStorage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucketName, objectKey, normalizeExpiry(expires), nil)
	if err != nil {
		log.Error().Err(err).Str("key", objectKey).Msg("failed to generate presigned GET URL")
		return "", err
	}
	return u.String(), nil
}

func (m *minioStorage) DeleteObject(ctx context.Context, objectKey string) error {
	if err := m.client.RemoveObject(ctx, m.bucketName, objectKey, minio.RemoveObjectOptions{}); err != nil {
		log.Error().Err(err).Str("key", objectKey).Str("bucket", m.bucketName).Msg("failed to delete object")
		return err
	}
	log.Info().Str("key", objectKey).Str("bucket", m.bucketName).Msg("deleted object")
	return nil
}

var _ FileStorage = (*minioStorage)(nil)
