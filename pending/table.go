// Package pending implements the pending-call table: the map from request id to the
// handle its caller is waiting on.
//
// Lifecycle of an entry:
//
//	Register(id) ──→ entry ──┬── Resolve(id, outcome)   response arrived
//	                         ├── Remove(id)             caller gave up (context done)
//	                         └── DrainAll(err)          receive loop stopped
//
// Only Resolve and DrainAll complete handles, and every path removes the entry first,
// so a handle is completed at most once. After DrainAll the table is closed and
// Register fails fast with ErrClosed.
package pending

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrDuplicateID is returned by Register when the id is already in flight.
	ErrDuplicateID = errors.New("duplicate request id")
	// ErrClosed is returned by Register once the table has been drained.
	ErrClosed = errors.New("client closed")
)

// Table is safe for concurrent use.
type Table struct {
	mu      sync.Mutex
	entries map[string]*Handle
	closed  bool
}

func NewTable() *Table {
	return &Table{entries: make(map[string]*Handle)}
}

// Register creates and stores a handle for id.
func (t *Table) Register(id string) (*Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}
	if _, ok := t.entries[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	h := newHandle(id)
	t.entries[id] = h
	return h, nil
}

// Resolve removes the entry for id and completes its handle with o.
// It returns false when nobody is waiting on id.
func (t *Table) Resolve(id string, o Outcome) bool {
	t.mu.Lock()
	h, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}
	return h.complete(o)
}

// Remove drops the entry for id without completing it. Used when the caller stops
// waiting; a late response for id is then reported as unmatched.
func (t *Table) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[id]; !ok {
		return false
	}
	delete(t.entries, id)
	return true
}

// DrainAll fails every remaining handle with err, empties the table and closes it.
// It returns the number of handles that were abandoned. Calling it again is a no-op.
func (t *Table) DrainAll(err error) int {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0
	}
	t.closed = true
	entries := t.entries
	t.entries = make(map[string]*Handle)
	t.mu.Unlock()

	n := 0
	for _, h := range entries {
		if h.complete(Failure(err)) {
			n++
		}
	}
	return n
}

// Len returns the number of in-flight entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Closed reports whether DrainAll has run.
func (t *Table) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
