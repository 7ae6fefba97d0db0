// Package service provides business logic services for Tide Storage.
package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tidecloud/tide-storage/internal/domain"
	"github.com/tidecloud/tide-storage/internal/lock"
	"github.com/tidecloud/tide-storage/internal/pkg/etag"
	"github.com/tidecloud/tide-storage/internal/storage"
)

// =============================================================================
// Mock Types
// =============================================================================

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl, maxRetries, retryDelay)
	return args.Bool(0), args.Error(1)
}

func (m *mockLocker) Release(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockLocker) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// =============================================================================
// Helpers
// =============================================================================

func newMultipartFixture(t *testing.T) (*MultipartService, storage.Backend) {
	t.Helper()
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.CreateBucket(context.Background(), "bkt"))
	svc := NewMultipartService(backend, NewMemorySessionStore(), lock.NewNoOpLocker(), zerolog.Nop())
	return svc, backend
}

func readObject(t *testing.T, backend storage.Backend, bucket, key string) string {
	t.Helper()
	r, err := backend.GetObject(context.Background(), bucket, key)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

// =============================================================================
// Tests
// =============================================================================

func TestInitiateUpload(t *testing.T) {
	svc, _ := newMultipartFixture(t)
	ctx := context.Background()

	uploadID, err := svc.InitiateUpload(ctx, "bkt", "big.bin")
	require.NoError(t, err)
	require.NotEmpty(t, uploadID)
	require.True(t, svc.ContainsUpload(uploadID))

	_, err = svc.InitiateUpload(ctx, "missing", "big.bin")
	require.ErrorIs(t, err, domain.ErrBucketNotFound)
}

func TestCompleteUpload_AssemblesInPartNumberOrder(t *testing.T) {
	svc, backend := newMultipartFixture(t)
	ctx := context.Background()

	uploadID, err := svc.InitiateUpload(ctx, "bkt", "big.bin")
	require.NoError(t, err)

	// Parts arrive out of order.
	for _, p := range []struct {
		n    int
		data string
	}{{3, "ccc"}, {1, "aaa"}, {2, "bbb"}} {
		tag, err := svc.UploadPart(ctx, UploadPartInput{
			UploadID:   uploadID,
			PartNumber: p.n,
			Body:       []byte(p.data),
		})
		require.NoError(t, err)
		require.Equal(t, etag.FromBytes([]byte(p.data)), tag)
	}

	out, err := svc.CompleteUpload(ctx, uploadID)
	require.NoError(t, err)
	require.Equal(t, "bkt", out.Bucket)
	require.Equal(t, "big.bin", out.Key)
	require.Equal(t, "aaabbbccc", readObject(t, backend, "bkt", "big.bin"))

	want := etag.Composite([]string{
		etag.FromBytes([]byte("aaa")),
		etag.FromBytes([]byte("bbb")),
		etag.FromBytes([]byte("ccc")),
	})
	require.Equal(t, want, out.ETag)

	require.False(t, svc.ContainsUpload(uploadID))
}

func TestCompleteUpload_OrderIndependent(t *testing.T) {
	complete := func(order []int) string {
		svc, backend := newMultipartFixture(t)
		ctx := context.Background()
		uploadID, err := svc.InitiateUpload(ctx, "bkt", "obj")
		require.NoError(t, err)

		data := map[int]string{1: "one", 2: "two", 3: "three"}
		for _, n := range order {
			_, err := svc.UploadPart(ctx, UploadPartInput{
				UploadID:   uploadID,
				PartNumber: n,
				Body:       []byte(data[n]),
			})
			require.NoError(t, err)
		}
		_, err = svc.CompleteUpload(ctx, uploadID)
		require.NoError(t, err)
		return readObject(t, backend, "bkt", "obj")
	}

	require.Equal(t, complete([]int{1, 2, 3}), complete([]int{3, 1, 2}))
}

func TestUploadPart_DuplicateLastWriteWins(t *testing.T) {
	svc, backend := newMultipartFixture(t)
	ctx := context.Background()

	uploadID, err := svc.InitiateUpload(ctx, "bkt", "obj")
	require.NoError(t, err)

	_, err = svc.UploadPart(ctx, UploadPartInput{UploadID: uploadID, PartNumber: 1, Body: []byte("first")})
	require.NoError(t, err)
	_, err = svc.UploadPart(ctx, UploadPartInput{UploadID: uploadID, PartNumber: 1, Body: []byte("second")})
	require.NoError(t, err)

	_, err = svc.CompleteUpload(ctx, uploadID)
	require.NoError(t, err)
	require.Equal(t, "second", readObject(t, backend, "bkt", "obj"))
}

func TestUploadPart_UnknownUpload(t *testing.T) {
	svc, _ := newMultipartFixture(t)

	_, err := svc.UploadPart(context.Background(), UploadPartInput{
		UploadID:   "no-such-upload",
		PartNumber: 1,
		Body:       []byte("data"),
	})
	require.ErrorIs(t, err, domain.ErrUploadNotFound)
}

func TestUploadPart_InvalidPartNumber(t *testing.T) {
	svc, _ := newMultipartFixture(t)
	ctx := context.Background()

	uploadID, err := svc.InitiateUpload(ctx, "bkt", "obj")
	require.NoError(t, err)

	for _, n := range []int{0, -1} {
		_, err := svc.UploadPart(ctx, UploadPartInput{UploadID: uploadID, PartNumber: n, Body: []byte("x")})
		require.ErrorIs(t, err, domain.ErrInvalidPartNumber)
	}
}

func TestCompleteUpload_Unknown(t *testing.T) {
	svc, _ := newMultipartFixture(t)

	_, err := svc.CompleteUpload(context.Background(), "no-such-upload")
	require.ErrorIs(t, err, domain.ErrUploadNotFound)
}

func TestCompleteUpload_NoParts(t *testing.T) {
	svc, _ := newMultipartFixture(t)
	ctx := context.Background()

	uploadID, err := svc.InitiateUpload(ctx, "bkt", "obj")
	require.NoError(t, err)

	_, err = svc.CompleteUpload(ctx, uploadID)
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestAbortUpload_RemovesSessionAndTemps(t *testing.T) {
	svc, backend := newMultipartFixture(t)
	ctx := context.Background()

	uploadID, err := svc.InitiateUpload(ctx, "bkt", "obj")
	require.NoError(t, err)
	_, err = svc.UploadPart(ctx, UploadPartInput{UploadID: uploadID, PartNumber: 1, Body: []byte("data")})
	require.NoError(t, err)

	require.NoError(t, svc.AbortUpload(ctx, uploadID))
	require.False(t, svc.ContainsUpload(uploadID))

	// The object was never assembled.
	_, err = backend.GetObject(ctx, "bkt", "obj")
	require.ErrorIs(t, err, domain.ErrObjectNotFound)

	require.ErrorIs(t, svc.AbortUpload(ctx, uploadID), domain.ErrUploadNotFound)
}

func TestCompleteUpload_AcquiresLock(t *testing.T) {
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.CreateBucket(context.Background(), "bkt"))

	locker := &mockLocker{}
	svc := NewMultipartService(backend, NewMemorySessionStore(), locker, zerolog.Nop())
	ctx := context.Background()

	uploadID, err := svc.InitiateUpload(ctx, "bkt", "obj")
	require.NoError(t, err)
	_, err = svc.UploadPart(ctx, UploadPartInput{UploadID: uploadID, PartNumber: 1, Body: []byte("x")})
	require.NoError(t, err)

	lockKey := lock.Keys.MultipartUpload(uploadID)
	locker.On("AcquireWithRetry", mock.Anything, lockKey, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	locker.On("Release", mock.Anything, lockKey).Return(true, nil)

	_, err = svc.CompleteUpload(ctx, uploadID)
	require.NoError(t, err)
	locker.AssertExpectations(t)
}
