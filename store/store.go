// Package store defines the backing store interface and implementations.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Store is the interface that all backing stores must implement.
// It operates on named collections, where each collection is an ordered
// sequence of documents read and written as a whole.
type Store interface {
	// Read returns every document in a collection in storage order.
	// A collection that was never written is empty, not an error.
	Read(collection string) ([]map[string]any, error)

	// Write replaces the full content of a collection.
	Write(collection string, docs []map[string]any) error

	// ListCollections returns the names of all collections that have been written.
	ListCollections() ([]string, error)
}

var (
	// ErrMalformed is returned when a collection's content is not a JSON array of objects.
	ErrMalformed = errors.New("malformed collection data")
	// ErrInvalidName is returned for collection names that cannot map to a storage location.
	ErrInvalidName = errors.New("invalid collection name")
)

// Error describes a failed store operation on a collection.
type Error struct {
	Op         string
	Collection string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store: %s %q: %v", e.Op, e.Collection, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// SequencesCollection holds the identifier high-water mark of every
// collection. It is readable and writable through any Store but never listed.
const SequencesCollection = "_sequences"

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// CheckName reports whether name is usable as a collection name.
// Names starting with "_" or "." are reserved.
func CheckName(name string) error {
	if !validName.MatchString(name) {
		return &Error{Op: "check", Collection: name, Err: ErrInvalidName}
	}
	return nil
}

// checkName is CheckName for backends, which also accept internal collections.
func checkName(name string) error {
	if name == SequencesCollection {
		return nil
	}
	return CheckName(name)
}

func internal(name string) bool {
	return strings.HasPrefix(name, "_")
}

// decodeCollection parses raw collection bytes. Empty or whitespace-only
// content is an empty collection.
func decodeCollection(collection string, data []byte) ([]map[string]any, error) {
	if strings.TrimSpace(string(data)) == "" {
		return []map[string]any{}, nil
	}
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &Error{Op: "read", Collection: collection, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	docs := make([]map[string]any, 0, len(raw))
	for i, v := range raw {
		doc, ok := v.(map[string]any)
		if !ok {
			return nil, &Error{Op: "read", Collection: collection, Err: fmt.Errorf("%w: element %d is not an object", ErrMalformed, i)}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// encodeCollection serializes docs as a two-space indented JSON array.
// A nil slice is written as [] so the file always holds an array.
func encodeCollection(docs []map[string]any) ([]byte, error) {
	if docs == nil {
		docs = []map[string]any{}
	}
	return json.MarshalIndent(docs, "", "  ")
}
