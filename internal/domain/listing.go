package domain

import "time"

// ObjectInfo describes one object entry in a bucket listing.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// BucketInfo describes a bucket in the ListBuckets response.
type BucketInfo struct {
	Name         string
	CreationDate time.Time
}

// ListObjectsRequest carries the query parameters of a bucket listing.
// V1 and V2 share the same engine; they differ only in parameter names
// (marker vs continuation-token) and a few response fields.
type ListObjectsRequest struct {
	Bucket string
	Prefix string
	// Delimiter groups keys into common prefixes when non-empty.
	Delimiter string
	// MaxKeys caps objects plus distinct common prefixes. Defaults to 1000.
	MaxKeys int
	// ContinuationToken is the exclusive pagination cursor: the walk resumes
	// at the first key strictly greater than it.
	ContinuationToken string
	IsV2              bool
}

// ListObjectsResult is the outcome of one listing page.
type ListObjectsResult struct {
	Bucket            string
	Prefix            string
	Delimiter         string
	MaxKeys           int
	Objects           []ObjectInfo
	CommonPrefixes    []string
	ContinuationToken string
	// NextContinuationToken is the first unprocessed key, empty when the walk
	// reached the end of the key set.
	NextContinuationToken string
	IsV2                  bool
}

// IsTruncated reports whether a follow-up page exists.
func (r *ListObjectsResult) IsTruncated() bool {
	return r.NextContinuationToken != ""
}

// KeyCount is the V2 count of objects plus common prefixes on this page.
func (r *ListObjectsResult) KeyCount() int {
	return len(r.Objects) + len(r.CommonPrefixes)
}
