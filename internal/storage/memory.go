package storage

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// MemoryObject is an object held by the in-memory driver.
type MemoryObject struct {
	Data        []byte
	ContentType string
}

// MemoryStorage keeps objects in process memory. Meant for local development
// and tests; nothing survives a restart.
type MemoryStorage struct {
	mu         sync.RWMutex
	bucketName string
	objects    map[string]MemoryObject
}

func NewMemoryStorage(bucketName string) *MemoryStorage {
	return &MemoryStorage{
		bucketName: bucketName,
		objects:    make(map[string]MemoryObject),
	}
}

func (m *MemoryStorage) BucketName() string {
	return m.bucketName
}

func (m *MemoryStorage) PutObject(ctx context.Context, objectKey string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectKey] = MemoryObject{Data: data, ContentType: normalizeContentType(contentType)}
	return nil
}

// GeneratePresignedDownloadURL returns a memory:// URL carrying the expiry in seconds.
// Like S3 presigning, it does not check that the object exists.
func (m *MemoryStorage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	u := url.URL{
		Scheme:   "memory",
		Host:     m.bucketName,
		Path:     "/" + objectKey,
		RawQuery: url.Values{"X-Amz-Expires": {strconv.Itoa(int(normalizeExpiry(expires).Seconds()))}}.Encode(),
	}
	return u.String(), nil
}

// DeleteObject succeeds for missing keys, as S3 does.
func (m *MemoryStorage) DeleteObject(ctx context.Context, objectKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectKey)
	return nil
}

// Object returns a copy of the stored object.
func (m *MemoryStorage) Object(objectKey string) (MemoryObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[objectKey]
	if !ok {
		return MemoryObject{}, false
	}
	obj.Data = append([]byte(nil), obj.Data...)
	return obj, true
}

var _ FileStorage = (*MemoryStorage)(nil)
