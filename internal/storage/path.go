package storage

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/tidecloud/tide-storage/internal/domain"
)

// safeJoin resolves a bucket-relative key under root. Cleaning the key
// as a rooted path strips any "." or ".." segments, so the result can
// never escape the root.
func safeJoin(root string, elems ...string) (string, error) {
	rel := path.Clean("/" + strings.Join(elems, "/"))
	if rel == "/" {
		return "", fmt.Errorf("%w: invalid path %q", domain.ErrInvalidRequest, strings.Join(elems, "/"))
	}
	return filepath.Join(root, filepath.FromSlash(rel)), nil
}

// validBucketName reports whether a bucket name is acceptable.
// Names must be non-empty single path segments.
func validBucketName(bucket string) bool {
	if bucket == "" || bucket == "." || bucket == ".." {
		return false
	}
	return !strings.ContainsAny(bucket, "/\\")
}
