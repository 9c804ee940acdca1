package service

import (
	"alcyxob/file-storage/internal/domain"
	"alcyxob/file-storage/internal/repository"
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ---- fakes ----

type putCall struct {
	Key         string
	Data        []byte
	Size        int64
	ContentType string
}

// fakeStorage records every call made by the service.
type fakeStorage struct {
	mu     sync.Mutex
	bucket string

	PutErr     error
	PresignErr error
	DeleteErr  error

	Puts     []putCall
	Presigns []string
	Deletes  []string
	Calls    []string
}

func (f *fakeStorage) BucketName() string { return f.bucket }

func (f *fakeStorage) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, _ := io.ReadAll(body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "put")
	f.Puts = append(f.Puts, putCall{Key: key, Data: data, Size: size, ContentType: contentType})
	return f.PutErr
}

func (f *fakeStorage) GeneratePresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "presign")
	f.Presigns = append(f.Presigns, key)
	if f.PresignErr != nil {
		return "", f.PresignErr
	}
	return "https://" + f.bucket + ".s3.amazonaws.com/" + key + "?X-Amz-Expires=" + strconv.Itoa(int(expires.Seconds())), nil
}

func (f *fakeStorage) DeleteObject(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "delete")
	f.Deletes = append(f.Deletes, key)
	return f.DeleteErr
}

type fakeUploadRepo struct {
	CreateErr error
	DeleteErr error
	GetErr    error
	Created   []domain.Upload
	Deleted   []string
	Lookups   []string
}

func (r *fakeUploadRepo) Create(ctx context.Context, upload *domain.Upload) (primitive.ObjectID, error) {
	if r.CreateErr != nil {
		return primitive.NilObjectID, r.CreateErr
	}
	r.Created = append(r.Created, *upload)
	return primitive.NewObjectID(), nil
}

func (r *fakeUploadRepo) GetByObjectKey(ctx context.Context, objectKey string) (*domain.Upload, error) {
	r.Lookups = append(r.Lookups, objectKey)
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	for i := range r.Created {
		if r.Created[i].ObjectKey == objectKey {
			upload := r.Created[i]
			return &upload, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUploadRepo) DeleteByObjectKey(ctx context.Context, objectKey string) error {
	r.Deleted = append(r.Deleted, objectKey)
	return r.DeleteErr
}

// ---- helpers ----

var keyPattern = regexp.MustCompile(`^(?:(.+)/)?(\d+)-([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})-(.+)$`)

func newTestService(st *fakeStorage, repo repository.UploadRepository) *storageService {
	return NewStorageService(st, repo).(*storageService)
}

func textInput(folder string) UploadFileInput {
	content := []byte("0123456789")
	return UploadFileInput{
		Body:        bytes.NewReader(content),
		Size:        int64(len(content)),
		FileName:    "a.txt",
		ContentType: "text/plain",
		Folder:      folder,
	}
}

// ---- tests ----

func TestBuildObjectKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	id := uuid.MustParse("0b5c7a52-4f5e-4b2a-9a51-2c1f6f7d9e10")

	tests := []struct {
		name   string
		folder string
		want   string
	}{
		{name: "no folder", folder: "", want: "1700000000123-0b5c7a52-4f5e-4b2a-9a51-2c1f6f7d9e10-a.txt"},
		{name: "blank folder", folder: "   ", want: "1700000000123-0b5c7a52-4f5e-4b2a-9a51-2c1f6f7d9e10-a.txt"},
		{name: "plain folder", folder: "docs", want: "docs/1700000000123-0b5c7a52-4f5e-4b2a-9a51-2c1f6f7d9e10-a.txt"},
		{name: "trailing slash", folder: "images/", want: "images/1700000000123-0b5c7a52-4f5e-4b2a-9a51-2c1f6f7d9e10-a.txt"},
		{name: "many trailing slashes", folder: "images///", want: "images/1700000000123-0b5c7a52-4f5e-4b2a-9a51-2c1f6f7d9e10-a.txt"},
		{name: "nested folder", folder: "users/42/avatars/", want: "users/42/avatars/1700000000123-0b5c7a52-4f5e-4b2a-9a51-2c1f6f7d9e10-a.txt"},
		{name: "only slashes", folder: "//", want: "/1700000000123-0b5c7a52-4f5e-4b2a-9a51-2c1f6f7d9e10-a.txt"},
		{name: "surrounding spaces kept", folder: " docs ", want: " docs /1700000000123-0b5c7a52-4f5e-4b2a-9a51-2c1f6f7d9e10-a.txt"},
		{name: "space after slash kept", folder: "docs/ ", want: "docs/ /1700000000123-0b5c7a52-4f5e-4b2a-9a51-2c1f6f7d9e10-a.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildObjectKey(tt.folder, "a.txt", now, id))
		})
	}
}

func TestBuildObjectKey_KeepsFileNameVerbatim(t *testing.T) {
	id := uuid.New()
	key := BuildObjectKey("", "my report (final).pdf", time.UnixMilli(1), id)
	assert.Equal(t, "1-"+id.String()+"-my report (final).pdf", key)
}

func TestUploadFile_DocsScenario(t *testing.T) {
	st := &fakeStorage{bucket: "uploads"}
	svc := NewStorageService(st, nil)

	res, err := svc.UploadFile(context.Background(), textInput("docs"))
	require.NoError(t, err)

	m := keyPattern.FindStringSubmatch(res.Key)
	require.NotNil(t, m, "unexpected key %q", res.Key)
	assert.Equal(t, "docs", m[1])
	assert.Equal(t, "a.txt", m[4])
	assert.True(t, strings.HasPrefix(res.Key, "docs/"))

	require.Len(t, st.Puts, 1)
	assert.Equal(t, res.Key, st.Puts[0].Key)
	assert.Equal(t, []byte("0123456789"), st.Puts[0].Data)
	assert.EqualValues(t, 10, st.Puts[0].Size)
	assert.Equal(t, "text/plain", st.Puts[0].ContentType)

	assert.Equal(t, []string{"put", "presign"}, st.Calls)
	assert.Equal(t, []string{res.Key}, st.Presigns)
	assert.Contains(t, res.URL, res.Key)
}

func TestUploadFile_UsesClockAndID(t *testing.T) {
	st := &fakeStorage{bucket: "uploads"}
	svc := newTestService(st, nil)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	id := uuid.MustParse("11111111-2222-4333-8444-555555555555")
	svc.newID = func() uuid.UUID { return id }

	res, err := svc.UploadFile(context.Background(), textInput("images/"))
	require.NoError(t, err)
	assert.Equal(t, "images/1700000000000-11111111-2222-4333-8444-555555555555-a.txt", res.Key)
}

func TestUploadFile_SignsForOneHour(t *testing.T) {
	var got time.Duration
	st := &expiryCapture{fakeStorage: fakeStorage{bucket: "uploads"}, got: &got}
	svc := NewStorageService(st, nil)

	_, err := svc.UploadFile(context.Background(), textInput(""))
	require.NoError(t, err)
	assert.Equal(t, 3600*time.Second, got)
}

type expiryCapture struct {
	fakeStorage
	got *time.Duration
}

func (e *expiryCapture) GeneratePresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	*e.got = expires
	return e.fakeStorage.GeneratePresignedDownloadURL(ctx, key, expires)
}

func TestUploadFile_NoFolderHasNoPrefix(t *testing.T) {
	for _, folder := range []string{"", " ", "\t\n"} {
		st := &fakeStorage{bucket: "uploads"}
		res, err := NewStorageService(st, nil).UploadFile(context.Background(), textInput(folder))
		require.NoError(t, err)

		m := keyPattern.FindStringSubmatch(res.Key)
		require.NotNil(t, m)
		assert.Empty(t, m[1], "folder %q", folder)
		assert.NotContains(t, res.Key, "/")
	}
}

func TestUploadFile_IdenticalInputsGiveDistinctKeys(t *testing.T) {
	st := &fakeStorage{bucket: "uploads"}
	svc := NewStorageService(st, nil)

	first, err := svc.UploadFile(context.Background(), textInput("docs"))
	require.NoError(t, err)
	second, err := svc.UploadFile(context.Background(), textInput("docs"))
	require.NoError(t, err)

	assert.NotEqual(t, first.Key, second.Key)
	assert.Len(t, st.Puts, 2)
}

func TestUploadFile_BucketNotConfigured(t *testing.T) {
	st := &fakeStorage{}
	repo := &fakeUploadRepo{}
	svc := NewStorageService(st, repo)

	res, err := svc.UploadFile(context.Background(), textInput("docs"))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrBucketNotConfigured)
	assert.Empty(t, st.Calls)
	assert.Empty(t, repo.Created)

	_, err = svc.GetDownloadURL(context.Background(), "k")
	assert.ErrorIs(t, err, ErrBucketNotConfigured)
	assert.ErrorIs(t, svc.DeleteFile(context.Background(), "k"), ErrBucketNotConfigured)
	assert.Empty(t, st.Calls)
}

func TestUploadFile_NilStorageIsUnconfigured(t *testing.T) {
	svc := NewStorageService(nil, nil)

	_, err := svc.UploadFile(context.Background(), textInput(""))
	assert.ErrorIs(t, err, ErrBucketNotConfigured)
}

func TestUploadFile_WriteFailureSkipsSigning(t *testing.T) {
	st := &fakeStorage{bucket: "uploads", PutErr: errors.New("connection reset")}
	repo := &fakeUploadRepo{}
	svc := NewStorageService(st, repo)

	res, err := svc.UploadFile(context.Background(), textInput("docs"))
	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrObjectWriteFailed)
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.NotErrorIs(t, err, ErrSignedURLFailed)
	assert.Equal(t, "Failed to upload file to S3: connection reset", err.Error())

	assert.Equal(t, []string{"put"}, st.Calls)
	assert.Empty(t, repo.Created)
}

func TestUploadFile_SignFailureLeavesObject(t *testing.T) {
	cause := errors.New("credentials expired")
	st := &fakeStorage{bucket: "uploads", PresignErr: cause}
	svc := NewStorageService(st, nil)

	_, err := svc.UploadFile(context.Background(), textInput("docs"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSignedURLFailed)
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Failed to upload file to S3: credentials expired", err.Error())

	assert.Equal(t, []string{"put", "presign"}, st.Calls)
	assert.Empty(t, st.Deletes)
}

func TestUploadFile_RecordsMetadata(t *testing.T) {
	st := &fakeStorage{bucket: "uploads"}
	repo := &fakeUploadRepo{}
	svc := newTestService(st, repo)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }

	in := textInput("docs/")
	in.ContentType = ""
	res, err := svc.UploadFile(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, repo.Created, 1)
	got := repo.Created[0]
	assert.Equal(t, res.Key, got.ObjectKey)
	assert.Equal(t, "uploads", got.Bucket)
	assert.Equal(t, "docs", got.Folder)
	assert.Equal(t, "a.txt", got.FileName)
	assert.Equal(t, "application/octet-stream", got.ContentType)
	assert.EqualValues(t, 10, got.Size)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), got.UploadedAt)
}

func TestUploadFile_MetadataFailureDoesNotFailUpload(t *testing.T) {
	st := &fakeStorage{bucket: "uploads"}
	repo := &fakeUploadRepo{CreateErr: errors.New("mongo down")}

	res, err := NewStorageService(st, repo).UploadFile(context.Background(), textInput("docs"))
	require.NoError(t, err)
	assert.NotEmpty(t, res.URL)
}

func TestGetDownloadURL(t *testing.T) {
	st := &fakeStorage{bucket: "uploads"}
	svc := NewStorageService(st, nil)

	res, err := svc.GetDownloadURL(context.Background(), "docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "docs/a.txt", res.Key)
	assert.Contains(t, res.URL, "docs/a.txt")
	assert.Empty(t, res.FileName)

	_, err = svc.GetDownloadURL(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidObjectKey)

	st.PresignErr = errors.New("boom")
	_, err = svc.GetDownloadURL(context.Background(), "docs/a.txt")
	assert.ErrorIs(t, err, ErrSignedURLFailed)
}

func TestGetDownloadURL_AttachesRecordedMetadata(t *testing.T) {
	st := &fakeStorage{bucket: "uploads"}
	repo := &fakeUploadRepo{}
	svc := NewStorageService(st, repo)

	in := textInput("docs")
	in.FileName = "report.pdf"
	in.ContentType = "application/pdf"
	uploaded, err := svc.UploadFile(context.Background(), in)
	require.NoError(t, err)

	res, err := svc.GetDownloadURL(context.Background(), uploaded.Key)
	require.NoError(t, err)
	assert.Equal(t, uploaded.Key, res.Key)
	assert.Equal(t, "report.pdf", res.FileName)
	assert.Equal(t, "application/pdf", res.ContentType)
	assert.Equal(t, []string{uploaded.Key}, repo.Lookups)
}

func TestGetDownloadURL_MetadataMissingOrFailing(t *testing.T) {
	st := &fakeStorage{bucket: "uploads"}

	res, err := NewStorageService(st, &fakeUploadRepo{}).GetDownloadURL(context.Background(), "legacy/a.txt")
	require.NoError(t, err)
	assert.Empty(t, res.FileName)
	assert.Empty(t, res.ContentType)

	res, err = NewStorageService(st, &fakeUploadRepo{GetErr: errors.New("mongo down")}).GetDownloadURL(context.Background(), "legacy/a.txt")
	require.NoError(t, err)
	assert.NotEmpty(t, res.URL)
	assert.Empty(t, res.FileName)
}

func TestGetDownloadURL_SignFailureSkipsLookup(t *testing.T) {
	st := &fakeStorage{bucket: "uploads", PresignErr: errors.New("boom")}
	repo := &fakeUploadRepo{}

	_, err := NewStorageService(st, repo).GetDownloadURL(context.Background(), "docs/a.txt")
	assert.ErrorIs(t, err, ErrSignedURLFailed)
	assert.Empty(t, repo.Lookups)
}

func TestDeleteFile(t *testing.T) {
	st := &fakeStorage{bucket: "uploads"}
	repo := &fakeUploadRepo{DeleteErr: repository.ErrNotFound}
	svc := NewStorageService(st, repo)

	require.NoError(t, svc.DeleteFile(context.Background(), "docs/a.txt"))
	assert.Equal(t, []string{"docs/a.txt"}, st.Deletes)
	assert.Equal(t, []string{"docs/a.txt"}, repo.Deleted)

	assert.ErrorIs(t, svc.DeleteFile(context.Background(), ""), ErrInvalidObjectKey)

	st.DeleteErr = errors.New("denied")
	err := svc.DeleteFile(context.Background(), "docs/a.txt")
	assert.ErrorIs(t, err, ErrObjectDeleteFailed)
	assert.NotErrorIs(t, err, ErrUploadFailed)
	assert.Equal(t, "failed to delete file from S3: denied", err.Error())
}
