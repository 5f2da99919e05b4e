package backend

import (
	"context"
	"sync"

	"github.com/csheth/recipescout/internal/favorites"
)

// Memory keeps favorites in process memory, in insertion order.
type Memory struct {
	mu     sync.Mutex
	owners map[string][]favorites.Entry
}

func NewMemory() *Memory {
	return &Memory{owners: make(map[string][]favorites.Entry)}
}

func (m *Memory) List(_ context.Context, owner string) ([]favorites.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]favorites.Entry(nil), m.owners[owner]...), nil
}

func (m *Memory) Insert(_ context.Context, owner string, e favorites.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.owners[owner] {
		if existing.Link == e.Link {
			return ErrDuplicate
		}
	}
	m.owners[owner] = append(m.owners[owner], e)
	return nil
}

func (m *Memory) Delete(_ context.Context, owner, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.owners[owner]
	for i, e := range entries {
		if e.Link == link {
			m.owners[owner] = append(entries[:i:i], entries[i+1:]...)
			return nil
		}
	}
	return favorites.ErrNotFound
}
