// Package service provides business logic services for Tide Storage.
package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tidecloud/tide-storage/internal/domain"
	"github.com/tidecloud/tide-storage/internal/lock"
	"github.com/tidecloud/tide-storage/internal/storage"
)

// DefaultMaxKeys is the listing page size used when the request does
// not specify one.
const DefaultMaxKeys = 1000

// BucketService handles bucket operations and object listing.
type BucketService struct {
	backend storage.Backend
	locker  lock.Locker
	logger  zerolog.Logger
}

// NewBucketService creates a new BucketService.
func NewBucketService(backend storage.Backend, locker lock.Locker, logger zerolog.Logger) *BucketService {
	return &BucketService{
		backend: backend,
		locker:  locker,
		logger:  logger.With().Str("service", "bucket").Logger(),
	}
}

// CreateBucket creates a new bucket.
func (s *BucketService) CreateBucket(ctx context.Context, bucket string) error {
	acquired, err := s.locker.AcquireWithRetry(ctx, lock.Keys.Bucket(bucket), 10*time.Second, 3, 100*time.Millisecond)
	if err != nil {
		return err
	}
	if !acquired {
		return domain.ErrInternal
	}
	defer s.locker.Release(ctx, lock.Keys.Bucket(bucket))

	if err := s.backend.CreateBucket(ctx, bucket); err != nil {
		return err
	}
	s.logger.Info().Str("bucket", bucket).Msg("bucket created")
	return nil
}

// DeleteBucket removes an empty bucket.
func (s *BucketService) DeleteBucket(ctx context.Context, bucket string) error {
	acquired, err := s.locker.AcquireWithRetry(ctx, lock.Keys.Bucket(bucket), 10*time.Second, 3, 100*time.Millisecond)
	if err != nil {
		return err
	}
	if !acquired {
		return domain.ErrInternal
	}
	defer s.locker.Release(ctx, lock.Keys.Bucket(bucket))

	if err := s.backend.DeleteBucket(ctx, bucket); err != nil {
		return err
	}
	s.logger.Info().Str("bucket", bucket).Msg("bucket deleted")
	return nil
}

// BucketExists reports whether the bucket exists.
func (s *BucketService) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return s.backend.BucketExists(ctx, bucket)
}

// ListBuckets returns all buckets sorted by name.
func (s *BucketService) ListBuckets(ctx context.Context) ([]domain.BucketInfo, error) {
	return s.backend.ListBuckets(ctx)
}

// =============================================================================
// Object Listing
// =============================================================================

// ListObjects lists bucket contents with prefix filtering, delimiter
// grouping and cursor pagination. Keys are returned in ascending
// lexicographic order. The continuation token names the first key of
// the requested page, so a resume starts at the first key greater than
// or equal to it. A group of keys sharing a delimiter-bounded prefix
// collapses into a single common prefix that counts once against
// MaxKeys.
func (s *BucketService) ListObjects(ctx context.Context, req domain.ListObjectsRequest) (*domain.ListObjectsResult, error) {
	entries, err := s.backend.ListEntries(ctx, req.Bucket)
	if err != nil {
		return nil, err
	}

	maxKeys := req.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}

	keys := make([]storage.Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDirectory {
			continue
		}
		if !strings.HasPrefix(entry.Path, req.Prefix) {
			continue
		}
		keys = append(keys, entry)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Path < keys[j].Path })

	start := 0
	if req.ContinuationToken != "" {
		start = sort.Search(len(keys), func(i int) bool {
			return keys[i].Path >= req.ContinuationToken
		})
	}

	result := &domain.ListObjectsResult{
		Bucket:    req.Bucket,
		Prefix:    req.Prefix,
		Delimiter: req.Delimiter,
		MaxKeys:   maxKeys,
		IsV2:      req.IsV2,
	}

	seenPrefixes := make(map[string]bool)
	count := 0
	for i := start; i < len(keys); i++ {
		key := keys[i].Path

		if req.Delimiter != "" {
			if idx := strings.Index(key[len(req.Prefix):], req.Delimiter); idx >= 0 {
				commonPrefix := key[:len(req.Prefix)+idx+len(req.Delimiter)]
				if seenPrefixes[commonPrefix] {
					continue
				}
				if count == maxKeys {
					result.NextContinuationToken = key
					break
				}
				seenPrefixes[commonPrefix] = true
				result.CommonPrefixes = append(result.CommonPrefixes, commonPrefix)
				count++
				continue
			}
		}

		if count == maxKeys {
			result.NextContinuationToken = key
			break
		}
		result.Objects = append(result.Objects, domain.ObjectInfo{
			Key:          key,
			Size:         keys[i].Size,
			LastModified: keys[i].LastModified,
		})
		count++
	}

	return result, nil
}
