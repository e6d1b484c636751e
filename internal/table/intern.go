package table

import (
	"github.com/estevaofon/lox-vm/internal/object"
	"github.com/estevaofon/lox-vm/internal/value"
)

// Intern returns the canonical *object.String for s, allocating and
// registering a new one in strings/heap only if s has never been seen
// before. Two calls with equal byte content always return the identical
// pointer, which is what makes Value.Equal's reference comparison work for
// strings.
func Intern(heap *object.Heap, strings *Table, s string) *object.String {
	hash := object.HashString(s)
	if existing := strings.FindString(s, hash); existing != nil {
		return existing
	}
	fresh := heap.Adopt(&object.String{Chars: s, Hash: hash})
	strings.Insert(fresh, value.NewNil())
	return fresh
}
