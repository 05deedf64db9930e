package db

import (
	"context"
	"sync"
)

// MemoryBackend keeps the snapshot in process. Used by tests and by
// throwaway dev servers.
type MemoryBackend struct {
	mu   sync.Mutex
	snap Snapshot
}

func NewMemoryBackend(seed Snapshot) *MemoryBackend {
	return &MemoryBackend{snap: seed.clone()}
}

func (m *MemoryBackend) Load(context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.clone(), nil
}

func (m *MemoryBackend) Commit(_ context.Context, next Snapshot, changed []Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	staged := m.snap
	next = next.clone()
	for _, c := range changed {
		switch c {
		case Users:
			staged.Users = next.Users
		case Items:
			staged.Items = next.Items
		case Borrows:
			staged.Borrows = next.Borrows
		default:
			return ErrUnknownCollection
		}
	}
	m.snap = staged
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
