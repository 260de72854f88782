package state

import (
	"fmt"
	"sort"
	"sync"
)

// MemStore is an in-memory Store. Snapshots are held encoded, so a loaded
// snapshot never aliases a saved one.
type MemStore struct {
	mu   sync.RWMutex
	data map[Kind]map[string][]byte
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[Kind]map[string][]byte)}
}

func (m *MemStore) Put(kind Kind, name string, v interface{}) error {
	if err := checkKey(kind, name); err != nil {
		return err
	}
	data, err := encodeGob(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[kind] == nil {
		m.data[kind] = make(map[string][]byte)
	}
	m.data[kind][name] = data
	return nil
}

func (m *MemStore) Get(kind Kind, name string, v interface{}) error {
	if err := checkKey(kind, name); err != nil {
		return err
	}
	m.mu.RLock()
	data, ok := m.data[kind][name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, kind, name)
	}
	return decodeGob(data, v)
}

func (m *MemStore) Names(kind Kind) ([]string, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.data[kind]))
	for name := range m.data[kind] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemStore) Delete(kind Kind, name string) error {
	if err := checkKey(kind, name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[kind][name]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, kind, name)
	}
	delete(m.data[kind], name)
	return nil
}
