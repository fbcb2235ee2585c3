package storage

import (
	"context"
	"sync"
)

// MemoryStore is a process-local store, used for dry runs and tests
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, slot string) ([]byte, error) {
	if err := checkSlot(slot); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.slots[slot]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) Save(_ context.Context, slot string, data []byte) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Overlay reads through to a base store but keeps every write in memory.
// A dry run uses it so the persisted state is never touched.
type Overlay struct {
	base  Store
	upper *MemoryStore
}

func NewOverlay(base Store) *Overlay {
	return &Overlay{base: base, upper: NewMemoryStore()}
}

func (o *Overlay) Load(ctx context.Context, slot string) ([]byte, error) {
	o.upper.mu.RLock()
	data, ok := o.upper.slots[slot]
	o.upper.mu.RUnlock()
	if ok {
		return append([]byte(nil), data...), nil
	}
	return o.base.Load(ctx, slot)
}

func (o *Overlay) Save(ctx context.Context, slot string, data []byte) error {
	return o.upper.Save(ctx, slot, data)
}

func (o *Overlay) Close() error {
	return o.base.Close()
}
