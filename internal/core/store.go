package core

import "sync/atomic"

// SnapshotStore holds the latest published snapshot.
// Publish swaps the pointer; readers get either the old or the new snapshot, never a mix.
type SnapshotStore struct {
	current atomic.Pointer[Snapshot]
}

// NewSnapshotStore creates an empty store
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Current returns the latest snapshot, or nil before the first successful cycle
func (s *SnapshotStore) Current() *Snapshot {
	return s.current.Load()
}

// Publish replaces the current snapshot. nil is ignored.
func (s *SnapshotStore) Publish(snapshot *Snapshot) {
	if snapshot == nil {
		return
	}
	s.current.Store(snapshot)
}
