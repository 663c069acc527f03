package store

import (
	"sync"

	"github.com/researchmesh/researchmesh/core"
)

// Compile-time interface check.
var _ core.DocumentStore = (*InMemoryDocumentStore)(nil)

// InMemoryDocumentStore is a trivial in-process DocumentStore implementation
// useful for tests, examples and single-process prototypes. It keeps all
// documents in a nested map guarded by an RWMutex. Data is copied on save and
// retrieval to avoid accidental external mutation of internal buffers.
//
// Layout: sessionID -> documentID -> raw bytes
//
// This implementation is intentionally minimal; it does not enforce retention
// limits, size quotas, or eviction. For production, prefer a durable
// implementation that can scale and survive process restarts.
type InMemoryDocumentStore struct {
	mu        sync.RWMutex
	documents map[string]map[string][]byte // sessionID -> documentID -> data
}

// NewInMemoryDocumentStore returns an empty in-memory document store.
func NewInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{documents: make(map[string]map[string][]byte)}
}

// Save stores (or overwrites) the document bytes for the given session and id.
// The input slice is copied before storage.
func (d *InMemoryDocumentStore) Save(sessionID, documentID string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.documents[sessionID]; !exists {
		d.documents[sessionID] = make(map[string][]byte)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	d.documents[sessionID][documentID] = cp
	return nil
}

// Get returns a copy of the stored document bytes or ErrNotFound.
func (d *InMemoryDocumentStore) Get(sessionID, documentID string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.documents[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	data, ok := m[documentID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// List returns the document ids stored for the session. The slice is a
// snapshot and safe for caller mutation.
func (d *InMemoryDocumentStore) List(sessionID string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.documents[sessionID]
	if !ok {
		return []string{}, nil
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	return ids, nil
}
