package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tidecloud/tide-storage/internal/domain"
)

// FilesystemBackend stores buckets as directories and objects as files
// under a data root. Multipart temp blobs live in a separate directory
// so bucket listings never see them.
type FilesystemBackend struct {
	dataDir string
	tempDir string
	logger  zerolog.Logger
}

// NewFilesystemBackend creates a filesystem backend rooted at dataDir.
// Both directories are created if they do not exist.
func NewFilesystemBackend(dataDir, tempDir string, logger zerolog.Logger) (*FilesystemBackend, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &FilesystemBackend{
		dataDir: dataDir,
		tempDir: tempDir,
		logger:  logger.With().Str("service", "storage").Logger(),
	}, nil
}

func (b *FilesystemBackend) bucketPath(bucket string) (string, error) {
	if !validBucketName(bucket) {
		return "", fmt.Errorf("%w: invalid bucket name %q", domain.ErrInvalidRequest, bucket)
	}
	return filepath.Join(b.dataDir, bucket), nil
}

func (b *FilesystemBackend) objectPath(bucket, key string) (string, error) {
	dir, err := b.bucketPath(bucket)
	if err != nil {
		return "", err
	}
	return safeJoin(dir, key)
}

// =============================================================================
// Buckets
// =============================================================================

func (b *FilesystemBackend) BucketExists(_ context.Context, bucket string) (bool, error) {
	dir, err := b.bucketPath(bucket)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

func (b *FilesystemBackend) CreateBucket(ctx context.Context, bucket string) error {
	exists, err := b.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrBucketAlreadyExists
	}
	dir, err := b.bucketPath(bucket)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	b.logger.Debug().Str("bucket", bucket).Msg("bucket created")
	return nil
}

func (b *FilesystemBackend) DeleteBucket(ctx context.Context, bucket string) error {
	exists, err := b.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrBucketNotFound
	}
	dir, err := b.bucketPath(bucket)
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return domain.ErrBucketNotEmpty
	}
	return os.Remove(dir)
}

func (b *FilesystemBackend) ListBuckets(_ context.Context) ([]domain.BucketInfo, error) {
	entries, err := os.ReadDir(b.dataDir)
	if err != nil {
		return nil, err
	}
	buckets := make([]domain.BucketInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, domain.BucketInfo{
			Name:         entry.Name(),
			CreationDate: info.ModTime(),
		})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Name < buckets[j].Name })
	return buckets, nil
}

// notFoundError resolves a missing object path to the right error:
// the bucket itself may be the thing that does not exist.
func (b *FilesystemBackend) notFoundError(ctx context.Context, bucket string) error {
	exists, err := b.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrBucketNotFound
	}
	return domain.ErrObjectNotFound
}

// =============================================================================
// Objects
// =============================================================================

func (b *FilesystemBackend) PutObject(_ context.Context, bucket, key string, reader io.Reader) (int64, error) {
	p, err := b.objectPath(bucket, key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return 0, fmt.Errorf("create object dirs: %w", err)
	}
	f, err := os.Create(p)
	if err != nil {
		return 0, fmt.Errorf("create object: %w", err)
	}
	n, err := io.Copy(f, reader)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(p)
		return 0, fmt.Errorf("write object: %w", err)
	}
	return n, nil
}

func (b *FilesystemBackend) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	p, err := b.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, b.notFoundError(ctx, bucket)
	}
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, domain.ErrObjectNotFound
	}
	return f, nil
}

func (b *FilesystemBackend) StatObject(ctx context.Context, bucket, key string) (Entry, error) {
	p, err := b.objectPath(bucket, key)
	if err != nil {
		return Entry{}, err
	}
	info, err := os.Stat(p)
	if os.IsNotExist(err) {
		return Entry{}, b.notFoundError(ctx, bucket)
	}
	if err != nil {
		return Entry{}, err
	}
	if info.IsDir() {
		return Entry{}, domain.ErrObjectNotFound
	}
	return Entry{
		Path:         key,
		Size:         info.Size(),
		LastModified: info.ModTime(),
	}, nil
}

func (b *FilesystemBackend) DeleteObject(ctx context.Context, bucket, key string) error {
	p, err := b.objectPath(bucket, key)
	if err != nil {
		return err
	}
	info, err := os.Stat(p)
	if os.IsNotExist(err) {
		return b.notFoundError(ctx, bucket)
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return domain.ErrObjectNotFound
	}
	return os.Remove(p)
}

func (b *FilesystemBackend) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	src, err := b.GetObject(ctx, srcBucket, srcKey)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = b.PutObject(ctx, dstBucket, dstKey, src)
	return err
}

func (b *FilesystemBackend) ListEntries(ctx context.Context, bucket string) ([]Entry, error) {
	exists, err := b.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrBucketNotFound
	}
	dir, err := b.bucketPath(bucket)
	if err != nil {
		return nil, err
	}

	var result []Entry
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entry := Entry{
			Path:         filepath.ToSlash(rel),
			IsDirectory:  d.IsDir(),
			LastModified: info.ModTime(),
		}
		if !d.IsDir() {
			entry.Size = info.Size()
		}
		result = append(result, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// =============================================================================
// Temporary Blobs
// =============================================================================

func (b *FilesystemBackend) CreateTemp(_ context.Context) (string, error) {
	f, err := os.CreateTemp(b.tempDir, "part-*")
	if err != nil {
		return "", fmt.Errorf("create temp blob: %w", err)
	}
	name := filepath.Base(f.Name())
	if err := f.Close(); err != nil {
		return "", err
	}
	return name, nil
}

func (b *FilesystemBackend) WriteTemp(_ context.Context, handle string, reader io.Reader) (int64, error) {
	p, err := safeJoin(b.tempDir, handle)
	if err != nil {
		return 0, err
	}
	f, err := os.Create(p)
	if err != nil {
		return 0, fmt.Errorf("write temp blob: %w", err)
	}
	n, err := io.Copy(f, reader)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func (b *FilesystemBackend) OpenTemp(_ context.Context, handle string) (io.ReadCloser, error) {
	p, err := safeJoin(b.tempDir, handle)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, domain.ErrObjectNotFound
	}
	return f, err
}

func (b *FilesystemBackend) DeleteTemp(_ context.Context, handle string) error {
	p, err := safeJoin(b.tempDir, handle)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
