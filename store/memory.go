package store

import (
	"encoding/json"
	"sort"
	"sync"
)

// MemoryStore keeps everything in memory. Data is lost on restart.
// Safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]byte),
	}
}

// Collections are held encoded so callers never share maps with the store
// and values come back with the same types a file backend would produce.

func (m *MemoryStore) Read(collection string) ([]map[string]any, error) {
	if err := checkName(collection); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.collections[collection]
	if !ok {
		return []map[string]any{}, nil
	}
	return decodeCollection(collection, b)
}

func (m *MemoryStore) Write(collection string, docs []map[string]any) error {
	if err := checkName(collection); err != nil {
		return err
	}
	if docs == nil {
		docs = []map[string]any{}
	}
	b, err := json.Marshal(docs)
	if err != nil {
		return &Error{Op: "write", Collection: collection, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = b
	return nil
}

func (m *MemoryStore) ListCollections() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for name := range m.collections {
		if internal(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
