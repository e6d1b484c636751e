// Package object defines the heap-allocated object variants a Lox Value
// can reference (strings, functions, closures, natives) and the VM's
// object list, which owns every allocation until teardown.
package object

import (
	"github.com/estevaofon/lox-vm/internal/chunk"
	"github.com/estevaofon/lox-vm/internal/value"
)

// fnvOffsetBasis and fnvPrime are the canonical FNV-1a 32-bit constants,
// applied by hand (rather than through hash/fnv) so the 32-bit wraparound
// arithmetic matches the original byte for byte.
const (
	fnvOffsetBasis uint32 = 2166136261
	fnvPrime       uint32 = 16777619
)

// HashString computes the FNV-1a hash of a byte sequence.
func HashString(s string) uint32 {
	hash := fnvOffsetBasis
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= fnvPrime
	}
	return hash
}

// String is an interned, immutable string object. Two equal-content
// strings are always the same *String once they have passed through
// table.Intern, which is the only supported way to obtain one.
type String struct {
	Chars string
	Hash  uint32
}

func (s *String) String() string { return s.Chars }

// Function is a user-defined Lox function: a name (nil for the implicit
// top-level script), an arity, and the bytecode compiled for its body.
type Function struct {
	Name  *String
	Arity int
	Chunk *chunk.Chunk
}

func (f *Function) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return "<fn " + f.Name.Chars + ">"
}

// Closure wraps a Function. It captures no environment beyond the global
// table — functions see enclosing scopes only through global names, never
// through captured locals (see the design note on closures-by-name).
type Closure struct {
	Function *Function
}

func (c *Closure) String() string { return c.Function.String() }

// NativeFn is a host function exposed to Lox code.
type NativeFn func(args []value.Value) value.Value

// Native wraps a host function.
type Native struct {
	Name string
	Fn   NativeFn
}

func (n *Native) String() string { return "<native fn>" }

var (
	_ value.Obj = (*String)(nil)
	_ value.Obj = (*Function)(nil)
	_ value.Obj = (*Closure)(nil)
	_ value.Obj = (*Native)(nil)
)
