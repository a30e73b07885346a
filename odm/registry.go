package odm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/stevemurr/userdb/schema"
	"github.com/stevemurr/userdb/store"
)

// Registry hands out one Model per collection name. It is built once at
// startup and passed to whoever needs models. Safe for concurrent use.
type Registry struct {
	store store.Store
	seq   *sequences

	mu     sync.Mutex
	models map[string]*Model
}

// NewRegistry creates a Registry whose models persist to st.
func NewRegistry(st store.Store) *Registry {
	return &Registry{store: st, seq: newSequences(st), models: make(map[string]*Model)}
}

// Model returns the Model bound to name, binding it to s on first use.
// Asking again for the same name with a different schema fails with
// ErrSchemaConflict.
func (r *Registry) Model(name string, s *schema.Schema) (*Model, error) {
	if s == nil {
		return nil, fmt.Errorf("model %q: nil schema", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.models[name]; ok {
		if m.schema != s {
			return nil, fmt.Errorf("model %q: %w", name, ErrSchemaConflict)
		}
		return m, nil
	}
	if err := store.CheckName(name); err != nil {
		return nil, err
	}
	if s.Has(IDField) {
		return nil, fmt.Errorf("model %q: schema must not declare %s", name, IDField)
	}
	m := newModel(name, s, r.store, r.seq)
	r.models[name] = m
	return m, nil
}

// Models returns the bound collection names, sorted.
func (r *Registry) Models() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
