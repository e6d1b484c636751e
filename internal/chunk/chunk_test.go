package chunk

import (
	"testing"

	"github.com/estevaofon/lox-vm/internal/value"
)

func TestWriteAppendsCodeAndLine(t *testing.T) {
	c := New()
	c.Write(byte(OpNil), 1)
	c.Write(byte(OpReturn), 1)
	c.Write(byte(OpPop), 2)

	if len(c.Code) != 3 || len(c.Lines) != 3 {
		t.Fatalf("expected 3 bytes/lines, got code=%v lines=%v", c.Code, c.Lines)
	}
	if c.Lines[0] != 1 || c.Lines[2] != 2 {
		t.Fatalf("line table mismatch: %v", c.Lines)
	}
}

func TestAddConstantReturnsIndex(t *testing.T) {
	c := New()
	i0 := c.AddConstant(value.NewNumber(1))
	i1 := c.AddConstant(value.NewNumber(2))
	if i0 != 0 || i1 != 1 {
		t.Fatalf("expected sequential indices 0, 1; got %d, %d", i0, i1)
	}
	if len(c.Constants) != 2 {
		t.Fatalf("expected 2 constants, got %d", len(c.Constants))
	}
}

func TestOpCodeStringCoversEveryOpcode(t *testing.T) {
	ops := []OpCode{
		OpConstant, OpNil, OpTrue, OpFalse, OpPop,
		OpGetLocal, OpSetLocal, OpDefineGlobal, OpGetGlobal, OpSetGlobal,
		OpEqual, OpGreater, OpLess, OpAdd, OpSubtract, OpMultiply, OpDivide,
		OpNot, OpNegate, OpPrint, OpJump, OpJumpIfFalse, OpLoop, OpCall,
		OpClosure, OpReturn,
	}
	for _, op := range ops {
		if op.String() == "OP_UNKNOWN" {
			t.Fatalf("opcode %d has no String() case", byte(op))
		}
	}
}
