package service

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/tidecloud/tide-storage/internal/cache"
	"github.com/tidecloud/tide-storage/internal/domain"
	"github.com/tidecloud/tide-storage/internal/lock"
	"github.com/tidecloud/tide-storage/internal/pkg/etag"
	"github.com/tidecloud/tide-storage/internal/storage"
)

// ObjectService handles object operations.
type ObjectService struct {
	backend storage.Backend
	locker  lock.Locker
	etags   *cache.ETagCache
	logger  zerolog.Logger
}

// NewObjectService creates a new ObjectService.
func NewObjectService(backend storage.Backend, locker lock.Locker, etags *cache.ETagCache, logger zerolog.Logger) *ObjectService {
	return &ObjectService{
		backend: backend,
		locker:  locker,
		etags:   etags,
		logger:  logger.With().Str("service", "object").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// PutObjectInput contains the data needed to store an object.
type PutObjectInput struct {
	Bucket string
	Key    string
	Body   []byte
}

// PutObjectOutput contains the result of storing an object.
type PutObjectOutput struct {
	ETag string
	Size int64
}

// GetObjectOutput contains the result of retrieving an object.
type GetObjectOutput struct {
	Body         io.ReadCloser
	Size         int64
	ETag         string
	LastModified time.Time
}

// HeadObjectOutput contains object metadata.
type HeadObjectOutput struct {
	Size         int64
	ETag         string
	LastModified time.Time
}

// CopyObjectInput identifies a source and destination for a copy.
type CopyObjectInput struct {
	SourceBucket string
	SourceKey    string
	DestBucket   string
	DestKey      string
}

// CopyObjectOutput contains the result of a copy.
type CopyObjectOutput struct {
	ETag         string
	LastModified time.Time
}

// =============================================================================
// Operations
// =============================================================================

// PutObject stores an object and returns its entity tag.
func (s *ObjectService) PutObject(ctx context.Context, input PutObjectInput) (*PutObjectOutput, error) {
	exists, err := s.backend.BucketExists(ctx, input.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrBucketNotFound
	}

	key := lock.Keys.ObjectWrite(input.Bucket, input.Key)
	acquired, err := s.locker.AcquireWithRetry(ctx, key, 30*time.Second, 3, 100*time.Millisecond)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, domain.ErrInternal
	}
	defer s.locker.Release(ctx, key)

	size, err := s.backend.PutObject(ctx, input.Bucket, input.Key, bytes.NewReader(input.Body))
	if err != nil {
		return nil, err
	}

	tag := etag.FromBytes(input.Body)
	if info, err := s.backend.StatObject(ctx, input.Bucket, input.Key); err == nil {
		s.etags.Set(input.Bucket, input.Key, info.LastModified, tag)
	}

	s.logger.Debug().
		Str("bucket", input.Bucket).
		Str("key", input.Key).
		Int64("size", size).
		Msg("object stored")

	return &PutObjectOutput{
		ETag: tag,
		Size: size,
	}, nil
}

// GetObject retrieves an object. The caller must close the body.
func (s *ObjectService) GetObject(ctx context.Context, bucket, key string) (*GetObjectOutput, error) {
	info, err := s.backend.StatObject(ctx, bucket, key)
	if err != nil {
		return nil, err
	}

	tag, err := s.computeETag(ctx, bucket, key, info.LastModified)
	if err != nil {
		return nil, err
	}

	body, err := s.backend.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, err
	}

	return &GetObjectOutput{
		Body:         body,
		Size:         info.Size,
		ETag:         tag,
		LastModified: info.LastModified,
	}, nil
}

// HeadObject returns object metadata without the body.
func (s *ObjectService) HeadObject(ctx context.Context, bucket, key string) (*HeadObjectOutput, error) {
	info, err := s.backend.StatObject(ctx, bucket, key)
	if err != nil {
		return nil, err
	}

	tag, err := s.computeETag(ctx, bucket, key, info.LastModified)
	if err != nil {
		return nil, err
	}

	return &HeadObjectOutput{
		Size:         info.Size,
		ETag:         tag,
		LastModified: info.LastModified,
	}, nil
}

// DeleteObject removes an object.
func (s *ObjectService) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := s.backend.DeleteObject(ctx, bucket, key); err != nil {
		return err
	}
	s.etags.Delete(bucket, key)
	s.logger.Debug().Str("bucket", bucket).Str("key", key).Msg("object deleted")
	return nil
}

// CopyObject copies an object between locations.
func (s *ObjectService) CopyObject(ctx context.Context, input CopyObjectInput) (*CopyObjectOutput, error) {
	exists, err := s.backend.BucketExists(ctx, input.DestBucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrBucketNotFound
	}

	if err := s.backend.CopyObject(ctx, input.SourceBucket, input.SourceKey, input.DestBucket, input.DestKey); err != nil {
		return nil, err
	}

	info, err := s.backend.StatObject(ctx, input.DestBucket, input.DestKey)
	if err != nil {
		return nil, err
	}
	tag, err := s.computeETag(ctx, input.DestBucket, input.DestKey, info.LastModified)
	if err != nil {
		return nil, err
	}

	return &CopyObjectOutput{
		ETag:         tag,
		LastModified: info.LastModified,
	}, nil
}

// computeETag returns the entity tag of the stored object, hashing the
// bytes only on a cache miss.
func (s *ObjectService) computeETag(ctx context.Context, bucket, key string, modTime time.Time) (string, error) {
	if tag, ok := s.etags.Get(bucket, key, modTime); ok {
		return tag, nil
	}

	r, err := s.backend.GetObject(ctx, bucket, key)
	if err != nil {
		return "", err
	}
	defer r.Close()

	tag := etag.FromReader(r)
	s.etags.Set(bucket, key, modTime, tag)
	return tag, nil
}
