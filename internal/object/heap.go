package object

import (
	"github.com/estevaofon/lox-vm/internal/chunk"
	"github.com/estevaofon/lox-vm/internal/value"
)

// Heap owns every object allocated during compilation and execution. It
// replaces the C original's intrusive linked list of objects (each Obj
// carrying a "next" pointer) with an explicit owned slice, per the design
// note that a systems-language reimplementation should use an arena or a
// vector of owned handles instead of a hand-rolled linked list — Go's GC
// would keep these objects alive on its own regardless, but the slice is
// kept anyway so Teardown has an explicit, deterministic enumeration of
// live objects matching the original's bulk-free-at-shutdown behavior.
type Heap struct {
	objects []value.Obj
}

// NewHeap returns an empty object heap.
func NewHeap() *Heap {
	return &Heap{}
}

func (h *Heap) track(o value.Obj) {
	h.objects = append(h.objects, o)
}

// NewFunction allocates and tracks a Function object.
func (h *Heap) NewFunction(name *String, arity int, c *chunk.Chunk) *Function {
	fn := &Function{Name: name, Arity: arity, Chunk: c}
	h.track(fn)
	return fn
}

// NewClosure allocates and tracks a Closure wrapping fn.
func (h *Heap) NewClosure(fn *Function) *Closure {
	cl := &Closure{Function: fn}
	h.track(cl)
	return cl
}

// NewNative allocates and tracks a Native wrapping a host function.
func (h *Heap) NewNative(name string, fn NativeFn) *Native {
	n := &Native{Name: name, Fn: fn}
	h.track(n)
	return n
}

// Adopt tracks a *String allocated elsewhere. The intern table is the only
// caller — it tracks a new string exactly once, at the moment a byte
// sequence turns out not to already be interned.
func (h *Heap) Adopt(s *String) *String {
	h.track(s)
	return s
}

// Teardown discards every tracked object. After Teardown the heap is empty.
func (h *Heap) Teardown() {
	h.objects = nil
}

// Count reports how many objects are currently live on the heap.
func (h *Heap) Count() int {
	return len(h.objects)
}
