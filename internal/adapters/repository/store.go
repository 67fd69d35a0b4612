// Package repository persists snapshots as flat files and publishes the
// current one to readers.
package repository

import (
	"context"
	"time"

	"github.com/okian/solvedboard/internal/domain/model"
)

// Reader gives read access to the current snapshot.
type Reader interface {
	// Current returns the last published snapshot, or model.ErrNoSnapshot.
	Current() (*model.Snapshot, error)
}

// Store persists snapshots and publishes them to readers.
type Store interface {
	Reader

	// Save durably writes s and then publishes it. On failure neither the
	// files on disk nor the published snapshot change.
	Save(ctx context.Context, s *model.Snapshot) error

	// Load reads the persisted snapshot and publishes it. It returns
	// model.ErrNoSnapshot when nothing has been written yet.
	Load(ctx context.Context) (*model.Snapshot, error)
}

// SnapshotStore combines the flat-file store with the in-memory pointer.
type SnapshotStore struct {
	files  *FileStore
	memory *MemoryStore
}

var _ Store = (*SnapshotStore)(nil)

// NewSnapshotStore creates a store writing under dir.
func NewSnapshotStore(dir string, opts ...Option) *SnapshotStore {
	return &SnapshotStore{
		files:  NewFileStore(dir, opts...),
		memory: NewMemoryStore(),
	}
}

// Current returns the published snapshot.
func (s *SnapshotStore) Current() (*model.Snapshot, error) {
	return s.memory.Current()
}

// Save writes then publishes.
func (s *SnapshotStore) Save(ctx context.Context, snap *model.Snapshot) error {
	if err := s.files.Write(ctx, snap); err != nil {
		return err
	}
	s.memory.Swap(snap)
	return nil
}

// Load reads from disk then publishes.
func (s *SnapshotStore) Load(ctx context.Context) (*model.Snapshot, error) {
	snap, err := s.files.Read(ctx)
	if err != nil {
		return nil, err
	}
	s.memory.Swap(snap)
	return snap, nil
}

// Marker returns the persisted freshness marker.
func (s *SnapshotStore) Marker() (time.Time, error) {
	return s.files.Marker()
}
