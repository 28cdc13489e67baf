// Package idmap holds the session-wide table of provisional to real identifiers.
//
// The table is an append-only arena: every record is addressed by its
// provisional identifier and tagged with the generation at which it was added,
// so observers can ask for everything resolved since a generation they saw.
package idmap

import (
	"sync"

	"github.com/tordrt/schemasync/internal/schema"
)

// Record is one resolved identifier
type Record struct {
	Provisional string
	Real        string
	Type        schema.EntityType
	Generation  uint64
}

// Resolver translates an identifier, returning it unchanged when it has no entry
type Resolver interface {
	Resolve(id string) string
}

// Map is a plain provisional to real mapping
type Map map[string]string

// Resolve implements Resolver
func (m Map) Resolve(id string) string {
	if real, ok := m[id]; ok {
		return real
	}
	return id
}

// Table is the accumulated mapping for a session. It is safe for concurrent use.
type Table struct {
	mu         sync.RWMutex
	records    []Record
	byProv     map[string]int
	byReal     map[string][]int
	generation uint64
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{
		byProv: make(map[string]int),
		byReal: make(map[string][]int),
	}
}

// Add records provisional -> real. Entries are never overwritten: if the
// provisional id is already present, or the pair is an identity, Add returns
// false and leaves the table unchanged.
func (t *Table) Add(provisional, real string, typ schema.EntityType) (Record, bool) {
	if provisional == "" || real == "" || provisional == real {
		return Record{}, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if i, ok := t.byProv[provisional]; ok {
		return t.records[i], false
	}

	t.generation++
	rec := Record{Provisional: provisional, Real: real, Type: typ, Generation: t.generation}
	t.records = append(t.records, rec)
	t.byProv[provisional] = len(t.records) - 1
	t.byReal[real] = append(t.byReal[real], len(t.records)-1)
	return rec, true
}

// Resolve implements Resolver
func (t *Table) Resolve(id string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if i, ok := t.byProv[id]; ok {
		return t.records[i].Real
	}
	return id
}

// Provisionals returns every provisional id that resolved to real
func (t *Table) Provisionals(real string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []string
	for _, i := range t.byReal[real] {
		out = append(out, t.records[i].Provisional)
	}
	return out
}

// Generation returns the generation of the most recent record
func (t *Table) Generation() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.generation
}

// Since returns the records added after generation gen, oldest first
func (t *Table) Since(gen uint64) []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	// Generations are dense and start at 1, so gen is also a slice offset
	if gen >= uint64(len(t.records)) {
		return nil
	}
	out := make([]Record, len(t.records)-int(gen))
	copy(out, t.records[gen:])
	return out
}
