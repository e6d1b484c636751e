// Package table implements the open-addressed hash table shared by the
// VM's string-intern pool and its global-variable environment. Both uses
// share this one implementation, as in the clox original this module is
// grounded on (no example repo in the retrieval pack implements an
// open-addressed table itself; the teacher's own globals are a bare Go
// map, which doesn't expose the tombstone-based "insert reports new key"
// signal SET_GLOBAL depends on).
package table

import (
	"golang.org/x/exp/slices"

	"github.com/estevaofon/lox-vm/internal/object"
	"github.com/estevaofon/lox-vm/internal/value"
)

const (
	initialCapacity = 8
	maxLoad         = 0.75
)

type entry struct {
	key   *object.String // nil key + Nil value = empty slot; nil key + non-Nil value = tombstone
	value value.Value
}

// Table is an open-addressed hash map keyed by *object.String reference,
// with linear probing and tombstone-based deletion.
type Table struct {
	entries  []entry
	count    int // live entries + tombstones, used against the load factor
	tableLen int // live entries only
}

// New returns an empty table (lazily allocated on first insert).
func New() *Table {
	return &Table{}
}

// Len reports the number of live (non-tombstone) entries.
func (t *Table) Len() int {
	return t.tableLen
}

func findEntry(entries []entry, key *object.String) *entry {
	index := key.Hash % uint32(len(entries))
	var tombstone *entry
	for {
		e := &entries[index]
		if e.key == nil {
			if e.value.Type == value.Nil {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		} else if e.key == key {
			return e
		}
		index = (index + 1) % uint32(len(entries))
	}
}

func (t *Table) adjustCapacity(capacity int) {
	entries := make([]entry, capacity)
	for i := range entries {
		entries[i] = entry{value: value.NewNil()}
	}

	t.tableLen = 0
	for _, old := range t.entries {
		if old.key == nil {
			continue
		}
		dest := findEntry(entries, old.key)
		dest.key = old.key
		dest.value = old.value
		t.tableLen++
	}
	// Tombstones are not carried over, so only live entries remain.
	t.count = t.tableLen

	t.entries = entries
}

// Insert adds or overwrites key -> v. It reports whether the slot was
// previously unoccupied (true for a genuinely new key, or a tombstone
// being reused) — SET_GLOBAL uses this to detect an undefined-variable
// assignment: it inserts speculatively, and if the insert reports "new",
// it undoes the insert and raises a runtime error.
func (t *Table) Insert(key *object.String, v value.Value) bool {
	if len(t.entries) == 0 || t.count+1 > int(float64(len(t.entries))*maxLoad) {
		capacity := growCapacity(len(t.entries))
		t.adjustCapacity(capacity)
	}

	e := findEntry(t.entries, key)
	isNewKey := e.key == nil
	if isNewKey && e.value.Type == value.Nil {
		t.count++
		t.tableLen++
	}

	e.key = key
	e.value = v
	return isNewKey
}

// Get looks up key by reference identity.
func (t *Table) Get(key *object.String) (value.Value, bool) {
	if t.tableLen == 0 {
		return value.Value{}, false
	}
	e := findEntry(t.entries, key)
	if e.key == nil {
		return value.Value{}, false
	}
	return e.value, true
}

// Delete places a tombstone at key's slot so later probe chains still
// find entries that hashed past it.
func (t *Table) Delete(key *object.String) bool {
	if t.tableLen == 0 {
		return false
	}
	e := findEntry(t.entries, key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.value = value.NewBool(true)
	t.tableLen--
	return true
}

// FindString looks up an entry by raw byte content rather than reference
// identity — the one place byte-wise comparison is required, used while
// interning to decide whether a freshly scanned/concatenated string
// duplicates one already on the heap.
func (t *Table) FindString(chars string, hash uint32) *object.String {
	if len(t.entries) == 0 {
		return nil
	}
	index := hash % uint32(len(t.entries))
	for {
		e := &t.entries[index]
		if e.key == nil {
			if e.value.Type == value.Nil {
				return nil
			}
		} else if e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		index = (index + 1) % uint32(len(t.entries))
	}
}

// Names returns every live key's bytes in sorted order — used by the REPL's
// `.globals` introspection command, where a stable ordering matters more
// than probe order.
func (t *Table) Names() []string {
	names := make([]string, 0, t.tableLen)
	for _, e := range t.entries {
		if e.key != nil {
			names = append(names, e.key.Chars)
		}
	}
	slices.Sort(names)
	return names
}

func growCapacity(capacity int) int {
	if capacity < initialCapacity {
		return initialCapacity
	}
	return capacity * 2
}
