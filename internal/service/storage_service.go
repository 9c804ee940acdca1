package service

import (
	"alcyxob/file-storage/internal/domain"
	"alcyxob/file-storage/internal/repository"
	"alcyxob/file-storage/internal/storage"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// --- Error Definitions ---
var (
	ErrBucketNotConfigured = errors.New("S3_BUCKET is not configured")
	ErrInvalidObjectKey    = errors.New("object key is required")

	// ErrUploadFailed is matched by every backend failure of UploadFile.
	ErrUploadFailed       = errors.New("Failed to upload file to S3")
	ErrObjectWriteFailed  = fmt.Errorf("%w: object write failed", ErrUploadFailed)
	ErrSignedURLFailed    = fmt.Errorf("%w: signed URL generation failed", ErrUploadFailed)
	ErrObjectDeleteFailed = errors.New("failed to delete file from S3")
)

// backendError keeps the step that failed for errors.Is while its message
// reads like the public one: "Failed to upload file to S3: <backend error>".
type backendError struct {
	kind  error
	cause error
}

func (e *backendError) Error() string {
	return fmt.Sprintf("%s: %v", publicMessage(e.kind), e.cause)
}

func (e *backendError) Unwrap() []error {
	return []error{e.kind, e.cause}
}

func publicMessage(kind error) string {
	if errors.Is(kind, ErrUploadFailed) {
		return ErrUploadFailed.Error()
	}
	return kind.Error()
}

// UploadFileInput is one file received by the upload endpoint.
type UploadFileInput struct {
	Body        io.Reader
	Size        int64 // -1 when unknown
	FileName    string
	ContentType string
	Folder      string // optional key prefix
}

// UploadResult holds the key of the stored object and a signed URL to read it.
// FileName and ContentType are only filled from the metadata log.
type UploadResult struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	FileName    string `json:"fileName,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

type StorageService interface {
	UploadFile(ctx context.Context, in UploadFileInput) (*UploadResult, error)
	GetDownloadURL(ctx context.Context, objectKey string) (*UploadResult, error)
	DeleteFile(ctx context.Context, objectKey string) error
}

// storageService implements the StorageService interface.
type storageService struct {
	fileStorage storage.FileStorage
	uploadRepo  repository.UploadRepository // nil disables the metadata log

	now   func() time.Time
	newID func() uuid.UUID
}

// NewStorageService always succeeds; a missing bucket is reported per call.
func NewStorageService(fileStorage storage.FileStorage, uploadRepo repository.UploadRepository) StorageService {
	return &storageService{
		fileStorage: fileStorage,
		uploadRepo:  uploadRepo,
		now:         time.Now,
		newID:       uuid.New,
	}
}

// UploadFile writes the file under a fresh key and signs a download URL for it.
// The URL is only requested after the write succeeded.
func (s *storageService) UploadFile(ctx context.Context, in UploadFileInput) (*UploadResult, error) {
	if err := s.checkBucket(); err != nil {
		return nil, err
	}

	now := s.now()
	key := BuildObjectKey(in.Folder, in.FileName, now, s.newID())

	if err := s.fileStorage.PutObject(ctx, key, in.Body, in.Size, in.ContentType); err != nil {
		return nil, &backendError{kind: ErrObjectWriteFailed, cause: err}
	}

	url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, key, storage.SignedURLExpiry)
	if err != nil {
		// The object stays in the bucket; GetDownloadURL can sign it later.
		log.Warn().Str("key", key).Msg("object stored but signing its URL failed")
		return nil, &backendError{kind: ErrSignedURLFailed, cause: err}
	}

	s.recordUpload(ctx, in, key, now)

	log.Info().Str("key", key).Int64("size", in.Size).Msg("file uploaded")
	return &UploadResult{URL: url, Key: key}, nil
}

// GetDownloadURL signs a fresh download URL for an existing key and, when the
// metadata log is enabled, attaches the recorded file name and content type.
func (s *storageService) GetDownloadURL(ctx context.Context, objectKey string) (*UploadResult, error) {
	if err := s.checkBucket(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(objectKey) == "" {
		return nil, ErrInvalidObjectKey
	}

	url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, objectKey, storage.SignedURLExpiry)
	if err != nil {
		return nil, &backendError{kind: ErrSignedURLFailed, cause: err}
	}

	result := &UploadResult{URL: url, Key: objectKey}
	if s.uploadRepo != nil {
		upload, err := s.uploadRepo.GetByObjectKey(ctx, objectKey)
		switch {
		case err == nil:
			result.FileName = upload.FileName
			result.ContentType = upload.ContentType
		case !errors.Is(err, repository.ErrNotFound):
			log.Warn().Err(err).Str("key", objectKey).Msg("failed to look up upload metadata")
		}
	}
	return result, nil
}

// DeleteFile removes the object, then its metadata if any was recorded.
func (s *storageService) DeleteFile(ctx context.Context, objectKey string) error {
	if err := s.checkBucket(); err != nil {
		return err
	}
	if strings.TrimSpace(objectKey) == "" {
		return ErrInvalidObjectKey
	}

	if err := s.fileStorage.DeleteObject(ctx, objectKey); err != nil {
		return &backendError{kind: ErrObjectDeleteFailed, cause: err}
	}

	if s.uploadRepo != nil {
		err := s.uploadRepo.DeleteByObjectKey(ctx, objectKey)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			log.Warn().Err(err).Str("key", objectKey).Msg("failed to delete upload metadata")
		}
	}
	return nil
}

func (s *storageService) checkBucket() error {
	if s.fileStorage == nil || s.fileStorage.BucketName() == "" {
		return ErrBucketNotConfigured
	}
	return nil
}

// recordUpload is best effort: the object store is the system of record.
func (s *storageService) recordUpload(ctx context.Context, in UploadFileInput, key string, now time.Time) {
	if s.uploadRepo == nil {
		return
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = storage.DefaultContentType
	}
	folder, _ := folderPrefix(in.Folder)
	upload := &domain.Upload{
		ObjectKey:   key,
		Bucket:      s.fileStorage.BucketName(),
		Folder:      folder,
		FileName:    in.FileName,
		ContentType: contentType,
		Size:        in.Size,
		UploadedAt:  now.UTC(),
	}
	if _, err := s.uploadRepo.Create(ctx, upload); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to record upload metadata")
	}
}

// BuildObjectKey returns {folder/}{epoch millis}-{id}-{fileName}.
// The folder is used only when it is non-blank; trailing slashes collapse to one
// and nothing else about it is changed.
func BuildObjectKey(folder, fileName string, now time.Time, id uuid.UUID) string {
	var b strings.Builder
	if prefix, ok := folderPrefix(folder); ok {
		b.WriteString(prefix)
		b.WriteByte('/')
	}
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('-')
	b.WriteString(id.String())
	b.WriteByte('-')
	b.WriteString(fileName)
	return b.String()
}

func folderPrefix(folder string) (string, bool) {
	if strings.TrimSpace(folder) == "" {
		return "", false
	}
	return strings.TrimRight(folder, "/"), true
}
