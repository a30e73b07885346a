package odm

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no record carries the requested identifier.
	ErrNotFound = errors.New("document not found")
	// ErrSchemaConflict is returned when a collection is bound again with a different schema.
	ErrSchemaConflict = errors.New("collection already bound to a different schema")
)

// DatabaseError describes a failed model operation. Err is ErrNotFound or
// the underlying storage failure.
type DatabaseError struct {
	Op         string
	Collection string
	ID         int64
	Err        error
}

func (e *DatabaseError) Error() string {
	if errors.Is(e.Err, ErrNotFound) {
		return fmt.Sprintf("%s: document with id %d not found in model %s", e.Op, e.ID, e.Collection)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}
