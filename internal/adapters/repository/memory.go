package repository

import (
	"sync/atomic"

	"github.com/okian/solvedboard/internal/domain/model"
)

// MemoryStore holds the current snapshot behind an atomic pointer. Published
// snapshots are replaced wholesale and never mutated.
type MemoryStore struct {
	current atomic.Pointer[model.Snapshot]
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Current returns the published snapshot.
func (m *MemoryStore) Current() (*model.Snapshot, error) {
	s := m.current.Load()
	if s == nil {
		return nil, model.ErrNoSnapshot
	}
	return s, nil
}

// Swap publishes s and returns the previous snapshot, if any.
func (m *MemoryStore) Swap(s *model.Snapshot) *model.Snapshot {
	return m.current.Swap(s)
}
