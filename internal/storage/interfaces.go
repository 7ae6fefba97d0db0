// Package storage defines interfaces for object storage backends.
// The storage layer persists raw bucket and object data plus the
// temporary blobs used by in-flight multipart uploads. Higher layers
// own entity tags, listing semantics and multipart bookkeeping.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/tidecloud/tide-storage/internal/domain"
)

// Entry describes one item inside a bucket.
type Entry struct {
	// Path is the key relative to the bucket root, using "/" separators.
	Path string

	// IsDirectory marks entries that are containers rather than objects.
	IsDirectory bool

	// Size is the object size in bytes. Zero for directories.
	Size int64

	// LastModified is the modification timestamp.
	LastModified time.Time
}

// Backend defines the interface for storage backends.
// Implementations include the local filesystem and an in-memory store
// used for testing. All methods are safe for concurrent use.
type Backend interface {
	// BucketExists reports whether the bucket exists.
	BucketExists(ctx context.Context, bucket string) (bool, error)

	// CreateBucket creates an empty bucket.
	// Returns domain.ErrBucketAlreadyExists if the bucket exists.
	CreateBucket(ctx context.Context, bucket string) error

	// DeleteBucket removes a bucket.
	// Returns domain.ErrBucketNotFound if the bucket does not exist and
	// domain.ErrBucketNotEmpty if it still contains entries.
	DeleteBucket(ctx context.Context, bucket string) error

	// ListBuckets returns all buckets sorted by name.
	ListBuckets(ctx context.Context) ([]domain.BucketInfo, error)

	// PutObject stores an object, replacing any existing object at the key.
	// Intermediate directories implied by the key are created as needed.
	PutObject(ctx context.Context, bucket, key string, reader io.Reader) (int64, error)

	// GetObject opens an object for reading. The caller must close the
	// returned reader. Returns domain.ErrBucketNotFound if the bucket
	// does not exist and domain.ErrObjectNotFound if the object does not.
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// StatObject returns metadata for an object without opening it.
	// Returns domain.ErrBucketNotFound if the bucket does not exist and
	// domain.ErrObjectNotFound if the object does not.
	StatObject(ctx context.Context, bucket, key string) (Entry, error)

	// DeleteObject removes an object.
	// Returns domain.ErrBucketNotFound if the bucket does not exist and
	// domain.ErrObjectNotFound if the object does not.
	DeleteObject(ctx context.Context, bucket, key string) error

	// CopyObject copies an object between locations, which may be in the
	// same bucket. Returns domain.ErrObjectNotFound if the source does
	// not exist.
	CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error

	// ListEntries returns every entry in the bucket, including
	// directories, with paths relative to the bucket root.
	// Returns domain.ErrBucketNotFound if the bucket does not exist.
	ListEntries(ctx context.Context, bucket string) ([]Entry, error)

	// CreateTemp allocates a temporary blob and returns its handle.
	CreateTemp(ctx context.Context) (string, error)

	// WriteTemp replaces the contents of a temporary blob.
	WriteTemp(ctx context.Context, handle string, reader io.Reader) (int64, error)

	// OpenTemp opens a temporary blob for reading. The caller must close
	// the returned reader.
	OpenTemp(ctx context.Context, handle string) (io.ReadCloser, error)

	// DeleteTemp removes a temporary blob. Deleting a handle that does
	// not exist is not an error.
	DeleteTemp(ctx context.Context, handle string) error
}
