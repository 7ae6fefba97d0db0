package service

import (
	"sync"

	"github.com/tidecloud/tide-storage/internal/domain"
)

// SessionStore tracks in-flight multipart upload sessions.
// Sessions live from initiation until complete or abort.
type SessionStore interface {
	// Create registers a new session.
	Create(upload *domain.MultipartUpload)

	// Get returns the session for an upload ID.
	Get(uploadID string) (*domain.MultipartUpload, bool)

	// Delete removes a session. Deleting an unknown ID is a no-op.
	Delete(uploadID string)
}

// MemorySessionStore is a mutex-guarded in-memory SessionStore.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.MultipartUpload
}

// NewMemorySessionStore creates an empty session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*domain.MultipartUpload),
	}
}

func (s *MemorySessionStore) Create(upload *domain.MultipartUpload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[upload.UploadID] = upload
}

func (s *MemorySessionStore) Get(uploadID string) (*domain.MultipartUpload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	upload, ok := s.sessions[uploadID]
	return upload, ok
}

func (s *MemorySessionStore) Delete(uploadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, uploadID)
}

var _ SessionStore = (*MemorySessionStore)(nil)
