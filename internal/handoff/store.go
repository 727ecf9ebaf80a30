// Package handoff carries workflow context across a navigation boundary.
// A producer stores a blob keyed by document id before navigating; the
// consumer takes it exactly once (read-and-clear).
package handoff

import (
	"context"
	"sync"
	"time"

	"github.com/joseph-ayodele/docuflow/internal/common"
	"github.com/joseph-ayodele/docuflow/internal/entity"
)

// Blob is the context a workflow page needs to start: the document, its
// prior parse output, and the resolved folder.
type Blob struct {
	Document   entity.Document    `json:"document"`
	Parse      entity.ParseOutput `json:"parse"`
	FolderName string             `json:"folder_name"`
	StoredAt   time.Time          `json:"stored_at"`
}

// Store is the session-scoped handoff contract. Take removes the blob as it
// reads it; a second take for the same key misses.
type Store interface {
	Put(ctx context.Context, key string, b Blob) error
	Take(ctx context.Context, key string) (*Blob, error)
	Delete(ctx context.Context, key string) error
}

// Ensure MemoryStore implements the interface.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string]Blob
}

// NewMemoryStore creates a new in-memory handoff store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]Blob)}
}

// Put stores or replaces the blob for key.
func (s *MemoryStore) Put(_ context.Context, key string, b Blob) error {
	if b.StoredAt.IsZero() {
		b.StoredAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = b
	return nil
}

// Take returns the blob for key and removes it.
func (s *MemoryStore) Take(_ context.Context, key string) (*Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	delete(s.blobs, key)
	return &b, nil
}

// Delete removes the blob for key if present.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}
