// Package value defines Lox's tagged value union. It is deliberately
// dependency-free (a leaf package): Chunk depends on it for the constants
// pool, and package object depends on it to implement Obj — keeping Value
// itself free of both avoids an import cycle the teacher's own value.go
// sidesteps with a bare interface{} Obj field.
package value

import (
	"strconv"
)

type Type int

const (
	Nil Type = iota
	Bool
	Number
	ObjRef
)

// Obj is satisfied by every heap object variant in package object
// (String, Function, Closure, Native). Its one method is exported (not
// package-private) because Go treats unexported interface method names as
// scoped to the declaring package — an unexported method on a type in
// package object would never satisfy an interface declared here. Value.Obj
// being a typed interface rather than interface{} also means equality (a
// plain == on the interface) compares the underlying pointers, giving the
// reference-identity semantics the string intern pool depends on.
type Obj interface {
	String() string
}

// Value is a tagged union: exactly one of the typed fields is meaningful,
// selected by Type. Object references keep the struct small (no heap
// object is ever copied; only the reference is).
type Value struct {
	Type   Type
	Bool   bool
	Number float64
	Obj    Obj
}

func NewNil() Value             { return Value{Type: Nil} }
func NewBool(b bool) Value      { return Value{Type: Bool, Bool: b} }
func NewNumber(n float64) Value { return Value{Type: Number, Number: n} }
func NewObj(o Obj) Value        { return Value{Type: ObjRef, Obj: o} }

// IsFalsey reports whether a value counts as false in an `if`/`while`/`and`/
// `or` condition: nil and the boolean false. Everything else, including
// zero and the empty string, is truthy.
func (v Value) IsFalsey() bool {
	switch v.Type {
	case Nil:
		return true
	case Bool:
		return !v.Bool
	default:
		return false
	}
}

// Equal implements Lox's `==`. Values of different variants are never
// equal. Object values compare by reference identity (the Go interface
// comparison compares the underlying pointers), which is transparently
// correct for strings because of interning.
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case Nil:
		return true
	case Bool:
		return v.Bool == other.Bool
	case Number:
		return v.Number == other.Number
	case ObjRef:
		return v.Obj == other.Obj
	default:
		return false
	}
}

// String renders a value the way `print` does.
func (v Value) String() string {
	switch v.Type {
	case Nil:
		return "nil"
	case Bool:
		if v.Bool {
			return "true"
		}
		return "false"
	case Number:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case ObjRef:
		return v.Obj.String()
	default:
		return "unknown"
	}
}
