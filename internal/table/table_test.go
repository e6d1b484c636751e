package table

import (
	"testing"

	"github.com/estevaofon/lox-vm/internal/object"
	"github.com/estevaofon/lox-vm/internal/value"
)

func TestInsertGetDelete(t *testing.T) {
	tbl := New()
	key := &object.String{Chars: "a", Hash: object.HashString("a")}

	isNew := tbl.Insert(key, value.NewNumber(1))
	if !isNew {
		t.Fatalf("first insert of a fresh key should report new")
	}
	if got, ok := tbl.Get(key); !ok || got.Number != 1 {
		t.Fatalf("Get after Insert = %v, %v", got, ok)
	}

	isNew = tbl.Insert(key, value.NewNumber(2))
	if isNew {
		t.Fatalf("overwriting an existing key should report not-new")
	}
	if got, _ := tbl.Get(key); got.Number != 2 {
		t.Fatalf("expected overwritten value 2, got %v", got.Number)
	}

	if !tbl.Delete(key) {
		t.Fatalf("Delete of a present key should succeed")
	}
	if _, ok := tbl.Get(key); ok {
		t.Fatalf("Get after Delete should fail")
	}
}

// Deleting a key leaves a tombstone so the probe chain for a key that
// collided with it still finds entries inserted after it.
func TestTombstonePreservesProbeChain(t *testing.T) {
	tbl := New()
	// Two keys forced to share a slot: same precomputed hash, capacity 8.
	a := &object.String{Chars: "a", Hash: 0}
	b := &object.String{Chars: "b", Hash: 0}

	tbl.Insert(a, value.NewNumber(1))
	tbl.Insert(b, value.NewNumber(2))
	tbl.Delete(a)

	if got, ok := tbl.Get(b); !ok || got.Number != 2 {
		t.Fatalf("expected b still reachable after deleting a, got %v, %v", got, ok)
	}
}

// Reinserting into a tombstoned slot reports "new" (per spec.md §4.4 — the
// SET_GLOBAL algorithm depends on tombstone slots counting as reusable but
// still "new" for the purposes of the undefined-assignment check).
func TestReinsertIntoTombstoneReportsNew(t *testing.T) {
	tbl := New()
	key := &object.String{Chars: "a", Hash: object.HashString("a")}
	tbl.Insert(key, value.NewNumber(1))
	tbl.Delete(key)

	if isNew := tbl.Insert(key, value.NewNumber(3)); !isNew {
		t.Fatalf("reinserting a deleted key should report new")
	}
}

func TestGrowthAcrossLoadFactor(t *testing.T) {
	tbl := New()
	keys := make([]*object.String, 0, 64)
	for i := 0; i < 64; i++ {
		chars := string(rune('a' + i%26))
		for j := 0; j < i/26; j++ {
			chars += string(rune('a' + j))
		}
		s := &object.String{Chars: chars, Hash: object.HashString(chars)}
		keys = append(keys, s)
		tbl.Insert(s, value.NewNumber(float64(i)))
	}

	if tbl.Len() != 64 {
		t.Fatalf("expected 64 live entries after growth, got %d", tbl.Len())
	}
	for i, k := range keys {
		got, ok := tbl.Get(k)
		if !ok || got.Number != float64(i) {
			t.Fatalf("key %d lost or corrupted after growth: %v, %v", i, got, ok)
		}
	}
}

func TestFindStringByBytes(t *testing.T) {
	tbl := New()
	key := &object.String{Chars: "hello", Hash: object.HashString("hello")}
	tbl.Insert(key, value.NewNil())

	found := tbl.FindString("hello", object.HashString("hello"))
	if found != key {
		t.Fatalf("FindString should return the identical *object.String reference")
	}

	if tbl.FindString("nope", object.HashString("nope")) != nil {
		t.Fatalf("FindString for an absent string should return nil")
	}
}

func TestNamesSorted(t *testing.T) {
	tbl := New()
	for _, name := range []string{"zebra", "apple", "mango"} {
		tbl.Insert(&object.String{Chars: name, Hash: object.HashString(name)}, value.NewNil())
	}
	names := tbl.Names()
	want := []string{"apple", "mango", "zebra"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", names, want)
		}
	}
}

func TestIntern(t *testing.T) {
	heap := object.NewHeap()
	strs := New()

	a := Intern(heap, strs, "shared")
	b := Intern(heap, strs, "shared")
	if a != b {
		t.Fatalf("Intern should return the identical reference for equal byte content")
	}

	c := Intern(heap, strs, "different")
	if a == c {
		t.Fatalf("Intern should return distinct references for distinct content")
	}
}
