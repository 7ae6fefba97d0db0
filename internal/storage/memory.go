package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tidecloud/tide-storage/internal/domain"
)

// MemoryBackend is an in-memory Backend implementation for tests and
// ephemeral deployments. State is lost on restart.
type MemoryBackend struct {
	mu      sync.RWMutex
	buckets map[string]*memoryBucket
	temps   map[string][]byte
}

type memoryBucket struct {
	created time.Time
	objects map[string]memoryObject
}

type memoryObject struct {
	data     []byte
	modified time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		buckets: make(map[string]*memoryBucket),
		temps:   make(map[string][]byte),
	}
}

// =============================================================================
// Buckets
// =============================================================================

func (b *MemoryBackend) BucketExists(_ context.Context, bucket string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.buckets[bucket]
	return ok, nil
}

func (b *MemoryBackend) CreateBucket(_ context.Context, bucket string) error {
	if !validBucketName(bucket) {
		return fmt.Errorf("%w: invalid bucket name %q", domain.ErrInvalidRequest, bucket)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.buckets[bucket]; ok {
		return domain.ErrBucketAlreadyExists
	}
	b.buckets[bucket] = &memoryBucket{
		created: time.Now(),
		objects: make(map[string]memoryObject),
	}
	return nil
}

func (b *MemoryBackend) DeleteBucket(_ context.Context, bucket string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	bk, ok := b.buckets[bucket]
	if !ok {
		return domain.ErrBucketNotFound
	}
	if len(bk.objects) > 0 {
		return domain.ErrBucketNotEmpty
	}
	delete(b.buckets, bucket)
	return nil
}

func (b *MemoryBackend) ListBuckets(_ context.Context) ([]domain.BucketInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	buckets := make([]domain.BucketInfo, 0, len(b.buckets))
	for name, bk := range b.buckets {
		buckets = append(buckets, domain.BucketInfo{Name: name, CreationDate: bk.created})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Name < buckets[j].Name })
	return buckets, nil
}

// =============================================================================
// Objects
// =============================================================================

func (b *MemoryBackend) PutObject(_ context.Context, bucket, key string, reader io.Reader) (int64, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bk, ok := b.buckets[bucket]
	if !ok {
		return 0, domain.ErrBucketNotFound
	}
	bk.objects[key] = memoryObject{data: data, modified: time.Now()}
	return int64(len(data)), nil
}

func (b *MemoryBackend) GetObject(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bk, ok := b.buckets[bucket]
	if !ok {
		return nil, domain.ErrBucketNotFound
	}
	obj, ok := bk.objects[key]
	if !ok {
		return nil, domain.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (b *MemoryBackend) StatObject(_ context.Context, bucket, key string) (Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bk, ok := b.buckets[bucket]
	if !ok {
		return Entry{}, domain.ErrBucketNotFound
	}
	obj, ok := bk.objects[key]
	if !ok {
		return Entry{}, domain.ErrObjectNotFound
	}
	return Entry{Path: key, Size: int64(len(obj.data)), LastModified: obj.modified}, nil
}

func (b *MemoryBackend) DeleteObject(_ context.Context, bucket, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	bk, ok := b.buckets[bucket]
	if !ok {
		return domain.ErrBucketNotFound
	}
	if _, ok := bk.objects[key]; !ok {
		return domain.ErrObjectNotFound
	}
	delete(bk.objects, key)
	return nil
}

func (b *MemoryBackend) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	src, err := b.GetObject(ctx, srcBucket, srcKey)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = b.PutObject(ctx, dstBucket, dstKey, src)
	return err
}

func (b *MemoryBackend) ListEntries(_ context.Context, bucket string) ([]Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bk, ok := b.buckets[bucket]
	if !ok {
		return nil, domain.ErrBucketNotFound
	}
	entries := make([]Entry, 0, len(bk.objects))
	dirs := make(map[string]bool)
	for key, obj := range bk.objects {
		entries = append(entries, Entry{
			Path:         key,
			Size:         int64(len(obj.data)),
			LastModified: obj.modified,
		})
		// Surface the implied directory entries a filesystem walk
		// would produce.
		parts := strings.Split(key, "/")
		for i := 1; i < len(parts); i++ {
			dirs[strings.Join(parts[:i], "/")] = true
		}
	}
	for dir := range dirs {
		entries = append(entries, Entry{Path: dir, IsDirectory: true})
	}
	return entries, nil
}

// =============================================================================
// Temporary Blobs
// =============================================================================

func (b *MemoryBackend) CreateTemp(_ context.Context) (string, error) {
	handle := uuid.NewString()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.temps[handle] = nil
	return handle, nil
}

func (b *MemoryBackend) WriteTemp(_ context.Context, handle string, reader io.Reader) (int64, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.temps[handle] = data
	return int64(len(data)), nil
}

func (b *MemoryBackend) OpenTemp(_ context.Context, handle string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.temps[handle]
	if !ok {
		return nil, domain.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *MemoryBackend) DeleteTemp(_ context.Context, handle string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.temps, handle)
	return nil
}
