package modules

import (
	"sync"

	"github.com/gofrs/uuid/v5"
)

// BlobPart is an immutable blob payload.
type BlobPart struct {
	Data []byte
	Type string
}

// BlobStore maps object URLs created by URL.createObjectURL to blob data.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string]BlobPart
}

func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string]BlobPart)}
}

// Insert stores a blob and returns its object URL, blob:null/<uuid>.
func (s *BlobStore) Insert(part BlobPart) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	u := "blob:null/" + id.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[u] = part
	return u, nil
}

func (s *BlobStore) Get(u string) (BlobPart, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	part, ok := s.blobs[u]
	return part, ok
}

// Remove revokes an object URL. It reports whether the URL was known.
func (s *BlobStore) Remove(u string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[u]
	delete(s.blobs, u)
	return ok
}

func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
