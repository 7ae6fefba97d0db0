package domain

import "sync"

// PartInfo records a single uploaded part of a multipart upload.
type PartInfo struct {
	// PartNumber is the client-assigned position of the part (>= 1).
	PartNumber int

	// ETag is the part's content fingerprint, as returned to the client.
	ETag string

	// TempHandle is the opaque temp-blob handle holding the part's bytes.
	TempHandle string
}

// MultipartUpload is an in-progress upload session. Parts are appended in
// arrival order; ordering by part number happens only at completion time.
//
// UploadPart calls for the same session may race, so appends go through a
// mutex. A successful append happens-before any later Snapshot, which is what
// Complete relies on.
type MultipartUpload struct {
	UploadID string
	Bucket   string
	Key      string

	mu    sync.Mutex
	parts []PartInfo
}

// NewMultipartUpload creates an ACTIVE session with no parts.
func NewMultipartUpload(uploadID, bucket, key string) *MultipartUpload {
	return &MultipartUpload{
		UploadID: uploadID,
		Bucket:   bucket,
		Key:      key,
	}
}

// AddPart appends a part record. Safe for concurrent use.
func (u *MultipartUpload) AddPart(p PartInfo) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.parts = append(u.parts, p)
}

// Snapshot returns a copy of the part list in arrival order.
func (u *MultipartUpload) Snapshot() []PartInfo {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]PartInfo, len(u.parts))
	copy(out, u.parts)
	return out
}
