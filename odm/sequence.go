package odm

import (
	"sync"

	"github.com/stevemurr/userdb/store"
)

// sequences hands out identifiers from per-collection high-water marks kept
// in store.SequencesCollection. A mark only moves up, so an identifier is
// never handed out twice even after the record holding it is deleted.
type sequences struct {
	store store.Store

	// mu serializes updates to the shared sequences collection.
	mu sync.Mutex
}

func newSequences(st store.Store) *sequences {
	return &sequences{store: st}
}

// next reserves the identifier after max(mark, floor) for collection and
// persists it before returning.
func (s *sequences) next(collection string, floor int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.store.Read(store.SequencesCollection)
	if err != nil {
		return 0, err
	}
	entry := -1
	for i, d := range docs {
		if d["collection"] == collection {
			entry = i
			break
		}
	}
	highest := floor
	if entry >= 0 {
		if mark, ok := toID(docs[entry]["seq"]); ok && mark > highest {
			highest = mark
		}
	}
	id := highest + 1
	if entry >= 0 {
		docs[entry]["seq"] = id
	} else {
		docs = append(docs, map[string]any{"collection": collection, "seq": id})
	}
	if err := s.store.Write(store.SequencesCollection, docs); err != nil {
		return 0, err
	}
	return id, nil
}
