package storage

import (
	"context"
	"sync"
)

// MemorySlot is a process-local Slot. Values are lost on exit.
type MemorySlot struct {
	mu     sync.Mutex
	values map[string][]byte
	writes int
}

var _ Slot = (*MemorySlot)(nil)

// NewMemory creates an empty MemorySlot.
func NewMemory() *MemorySlot {
	return &MemorySlot{values: make(map[string][]byte)}
}

func (m *MemorySlot) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemorySlot) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	m.writes++
	return nil
}

// Writes reports how many Put calls have been made.
func (m *MemorySlot) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MemorySlot) Close() error { return nil }
