package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tidecloud/tide-storage/internal/domain"
	"github.com/tidecloud/tide-storage/internal/lock"
	"github.com/tidecloud/tide-storage/internal/pkg/etag"
	"github.com/tidecloud/tide-storage/internal/storage"
)

// MultipartService handles the multipart upload lifecycle.
// Parts are staged as temporary blobs and assembled into the final
// object on completion.
type MultipartService struct {
	backend  storage.Backend
	sessions SessionStore
	locker   lock.Locker
	logger   zerolog.Logger
}

// NewMultipartService creates a new MultipartService.
func NewMultipartService(backend storage.Backend, sessions SessionStore, locker lock.Locker, logger zerolog.Logger) *MultipartService {
	return &MultipartService{
		backend:  backend,
		sessions: sessions,
		locker:   locker,
		logger:   logger.With().Str("service", "multipart").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// UploadPartInput contains one part of a multipart upload.
type UploadPartInput struct {
	UploadID   string
	PartNumber int
	Body       []byte
}

// CompleteUploadOutput contains the result of assembling an upload.
type CompleteUploadOutput struct {
	Bucket string
	Key    string
	ETag   string
}

// =============================================================================
// Operations
// =============================================================================

// InitiateUpload starts a multipart upload session and returns its ID.
func (s *MultipartService) InitiateUpload(ctx context.Context, bucket, key string) (string, error) {
	exists, err := s.backend.BucketExists(ctx, bucket)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", domain.ErrBucketNotFound
	}

	uploadID := uuid.NewString()
	s.sessions.Create(domain.NewMultipartUpload(uploadID, bucket, key))

	s.logger.Info().
		Str("upload_id", uploadID).
		Str("bucket", bucket).
		Str("key", key).
		Msg("multipart upload initiated")
	return uploadID, nil
}

// ContainsUpload reports whether an upload session exists.
func (s *MultipartService) ContainsUpload(uploadID string) bool {
	_, ok := s.sessions.Get(uploadID)
	return ok
}

// UploadPart stages one part and returns its entity tag.
// Re-uploading an existing part number replaces the earlier data.
func (s *MultipartService) UploadPart(ctx context.Context, input UploadPartInput) (string, error) {
	upload, ok := s.sessions.Get(input.UploadID)
	if !ok {
		return "", domain.ErrUploadNotFound
	}
	if input.PartNumber < 1 {
		return "", fmt.Errorf("%w: %d", domain.ErrInvalidPartNumber, input.PartNumber)
	}

	handle, err := s.backend.CreateTemp(ctx)
	if err != nil {
		return "", err
	}
	if _, err := s.backend.WriteTemp(ctx, handle, bytes.NewReader(input.Body)); err != nil {
		s.backend.DeleteTemp(ctx, handle)
		return "", err
	}

	tag := etag.FromBytes(input.Body)
	upload.AddPart(domain.PartInfo{
		PartNumber: input.PartNumber,
		ETag:       tag,
		TempHandle: handle,
	})

	s.logger.Debug().
		Str("upload_id", input.UploadID).
		Int("part_number", input.PartNumber).
		Int("size", len(input.Body)).
		Msg("part staged")
	return tag, nil
}

// CompleteUpload assembles the staged parts in ascending part-number
// order into the final object, then removes the session and its
// temporary blobs. When a part number was uploaded more than once the
// most recent upload wins.
func (s *MultipartService) CompleteUpload(ctx context.Context, uploadID string) (*CompleteUploadOutput, error) {
	lockKey := lock.Keys.MultipartUpload(uploadID)
	acquired, err := s.locker.AcquireWithRetry(ctx, lockKey, 60*time.Second, 3, 100*time.Millisecond)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, domain.ErrInternal
	}
	defer s.locker.Release(ctx, lockKey)

	upload, ok := s.sessions.Get(uploadID)
	if !ok {
		return nil, domain.ErrUploadNotFound
	}

	parts := resolveParts(upload.Snapshot())
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: upload has no parts", domain.ErrInvalidRequest)
	}

	readers := make([]io.Reader, 0, len(parts))
	closers := make([]io.Closer, 0, len(parts))
	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}
	for _, part := range parts {
		r, err := s.backend.OpenTemp(ctx, part.TempHandle)
		if err != nil {
			closeAll()
			return nil, err
		}
		readers = append(readers, r)
		closers = append(closers, r)
	}

	_, err = s.backend.PutObject(ctx, upload.Bucket, upload.Key, io.MultiReader(readers...))
	closeAll()
	if err != nil {
		return nil, err
	}

	partTags := make([]string, len(parts))
	for i, part := range parts {
		partTags[i] = part.ETag
	}

	s.cleanup(ctx, upload)
	s.sessions.Delete(uploadID)

	s.logger.Info().
		Str("upload_id", uploadID).
		Str("bucket", upload.Bucket).
		Str("key", upload.Key).
		Int("parts", len(parts)).
		Msg("multipart upload completed")

	return &CompleteUploadOutput{
		Bucket: upload.Bucket,
		Key:    upload.Key,
		ETag:   etag.Composite(partTags),
	}, nil
}

// AbortUpload discards the session and its staged parts.
func (s *MultipartService) AbortUpload(ctx context.Context, uploadID string) error {
	lockKey := lock.Keys.MultipartUpload(uploadID)
	acquired, err := s.locker.AcquireWithRetry(ctx, lockKey, 60*time.Second, 3, 100*time.Millisecond)
	if err != nil {
		return err
	}
	if !acquired {
		return domain.ErrInternal
	}
	defer s.locker.Release(ctx, lockKey)

	upload, ok := s.sessions.Get(uploadID)
	if !ok {
		return domain.ErrUploadNotFound
	}

	s.cleanup(ctx, upload)
	s.sessions.Delete(uploadID)

	s.logger.Info().Str("upload_id", uploadID).Msg("multipart upload aborted")
	return nil
}

// cleanup removes every staged temp blob for an upload.
func (s *MultipartService) cleanup(ctx context.Context, upload *domain.MultipartUpload) {
	for _, part := range upload.Snapshot() {
		if err := s.backend.DeleteTemp(ctx, part.TempHandle); err != nil {
			s.logger.Warn().
				Err(err).
				Str("upload_id", upload.UploadID).
				Str("handle", part.TempHandle).
				Msg("temp blob cleanup failed")
		}
	}
}

// resolveParts deduplicates by part number, later uploads winning, and
// returns the survivors sorted by ascending part number.
func resolveParts(parts []domain.PartInfo) []domain.PartInfo {
	latest := make(map[int]domain.PartInfo, len(parts))
	for _, part := range parts {
		latest[part.PartNumber] = part
	}
	resolved := make([]domain.PartInfo, 0, len(latest))
	for _, part := range latest {
		resolved = append(resolved, part)
	}
	sort.Slice(resolved, func(i, j int) bool { return resolved[i].PartNumber < resolved[j].PartNumber })
	return resolved
}
