// Package odm maps schema-validated documents onto store collections.
//
// A Model binds one collection name to a Schema and a Store and exposes CRUD
// operations over it. Every mutation is a full read-modify-write of the
// collection, serialized per Model so concurrent requests cannot lose updates.
// A Registry hands out one Model per collection name.
package odm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/stevemurr/userdb/schema"
	"github.com/stevemurr/userdb/store"
)

// IDField is the name of the identifier field carried by every record.
const IDField = "_id"

// Record is one persisted document.
type Record map[string]any

// ID returns the record's identifier, or false when it is missing or not an integer.
func (r Record) ID() (int64, bool) {
	return toID(r[IDField])
}

// Model performs CRUD operations on one collection.
type Model struct {
	name   string
	schema *schema.Schema
	store  store.Store
	seq    *sequences

	// mu serializes read-modify-write cycles on the collection.
	mu sync.Mutex
}

func newModel(name string, s *schema.Schema, st store.Store, seq *sequences) *Model {
	return &Model{name: name, schema: s, store: st, seq: seq}
}

// Name returns the bound collection name.
func (m *Model) Name() string {
	return m.name
}

// Schema returns the bound schema.
func (m *Model) Schema() *schema.Schema {
	return m.schema
}

// Create validates doc, assigns it the next identifier and appends it to the
// collection. Identifiers increase monotonically and are never reused, even
// after the highest record is deleted.
func (m *Model) Create(ctx context.Context, doc map[string]any) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, err := m.load(ctx, "create")
	if err != nil {
		return nil, err
	}
	validated, err := m.schema.Validate(doc)
	if err != nil {
		m.logValidation(ctx, "create", err)
		return nil, err
	}
	id, err := m.seq.next(m.name, highestID(records))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to reserve identifier", "collection", m.name, "err", err)
		return nil, &DatabaseError{Op: "create", Collection: m.name, Err: err}
	}
	rec := Record(validated)
	rec[IDField] = id
	records = append(records, rec)
	if err := m.save(ctx, "create", records); err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Created document", "collection", m.name, "id", rec[IDField])
	return rec, nil
}

// Find returns every record in storage order.
func (m *Model) Find(ctx context.Context) ([]Record, error) {
	return m.load(ctx, "find")
}

// FindOne returns the first record whose identifier is id.
func (m *Model) FindOne(ctx context.Context, id int64) (Record, error) {
	records, err := m.load(ctx, "findOne")
	if err != nil {
		return nil, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return nil, m.notFound("findOne", id)
	}
	return records[i], nil
}

// Update merges the schema-declared fields of fields into record id. Values
// are validated like on Create; undeclared fields are ignored.
func (m *Model) Update(ctx context.Context, id int64, fields map[string]any) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, err := m.load(ctx, "update")
	if err != nil {
		return nil, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return nil, m.notFound("update", id)
	}
	validated, err := m.schema.Validate(fields)
	if err != nil {
		m.logValidation(ctx, "update", err)
		return nil, err
	}
	maps.Copy(records[i], validated)
	if err := m.save(ctx, "update", records); err != nil {
		return nil, err
	}
	return records[i], nil
}

// Patch shallow-merges fields into record id without schema filtering.
// The identifier itself cannot be changed.
func (m *Model) Patch(ctx context.Context, id int64, fields map[string]any) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, err := m.load(ctx, "patch")
	if err != nil {
		return nil, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return nil, m.notFound("patch", id)
	}
	for k, v := range fields {
		if k == IDField {
			continue
		}
		records[i][k] = v
	}
	if err := m.save(ctx, "patch", records); err != nil {
		return nil, err
	}
	return records[i], nil
}

// Delete removes every record whose identifier is id.
func (m *Model) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, err := m.load(ctx, "delete")
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(records, func(r Record) bool {
		rid, ok := r.ID()
		return ok && rid == id
	})
	if len(kept) == len(records) {
		return m.notFound("delete", id)
	}
	return m.save(ctx, "delete", kept)
}

// FindUnique returns the distinct values held at field across the
// collection, in first-seen order. Records without the field are skipped.
func (m *Model) FindUnique(ctx context.Context, field string) ([]any, error) {
	records, err := m.load(ctx, "findUnique")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	values := []any{}
	for _, r := range records {
		v, ok := r[field]
		if !ok {
			continue
		}
		// Values may be maps or slices, so compare their encodings.
		key, err := json.Marshal(v)
		if err != nil {
			return nil, &DatabaseError{Op: "findUnique", Collection: m.name, Err: err}
		}
		if seen[string(key)] {
			continue
		}
		seen[string(key)] = true
		values = append(values, v)
	}
	return values, nil
}

func (m *Model) load(ctx context.Context, op string) ([]Record, error) {
	docs, err := m.store.Read(m.name)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read collection", "collection", m.name, "op", op, "err", err)
		return nil, &DatabaseError{Op: op, Collection: m.name, Err: err}
	}
	records := make([]Record, len(docs))
	for i, d := range docs {
		if id, ok := toID(d[IDField]); ok {
			d[IDField] = id
		}
		records[i] = Record(d)
	}
	return records, nil
}

func (m *Model) save(ctx context.Context, op string, records []Record) error {
	docs := make([]map[string]any, len(records))
	for i, r := range records {
		docs[i] = r
	}
	if err := m.store.Write(m.name, docs); err != nil {
		slog.ErrorContext(ctx, "Failed to write collection", "collection", m.name, "op", op, "err", err)
		return &DatabaseError{Op: op, Collection: m.name, Err: err}
	}
	return nil
}

func (m *Model) notFound(op string, id int64) error {
	return &DatabaseError{Op: op, Collection: m.name, ID: id, Err: ErrNotFound}
}

func (m *Model) logValidation(ctx context.Context, op string, err error) {
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		slog.WarnContext(ctx, "Validation failed", "collection", m.name, "op", op, "field", verr.Field, "err", err)
	}
}

func indexOf(records []Record, id int64) int {
	for i, r := range records {
		if rid, ok := r.ID(); ok && rid == id {
			return i
		}
	}
	return -1
}

func highestID(records []Record) int64 {
	var highest int64
	for _, r := range records {
		if id, ok := r.ID(); ok && id > highest {
			highest = id
		}
	}
	return highest
}

// toID converts a decoded identifier to int64. JSON decoding yields float64.
func toID(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		id, err := n.Int64()
		return id, err == nil
	}
	return 0, false
}
