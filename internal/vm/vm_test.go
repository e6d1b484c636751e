package vm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estevaofon/lox-vm/internal/value"
)

type vmTestCase struct {
	input    string
	expected interface{}
}

func TestNumberArithmetic(t *testing.T) {
	tests := []vmTestCase{
		{"report(1);", 1.0},
		{"report(1 + 2);", 3.0},
		{"report(1 - 2);", -1.0},
		{"report(1 * 2);", 2.0},
		{"report(4 / 2);", 2.0},
		{"report(50 / 2 * 2 + 10);", 60.0},
		{"report(2 * (5 + 10));", 30.0},
		{"report((5 + 10 * 2 + 15 / 3) * 2 + -10);", 50.0},
	}
	runVmTests(t, tests)
}

func TestBooleanAndComparison(t *testing.T) {
	tests := []vmTestCase{
		{"report(true);", true},
		{"report(false);", false},
		{"report(1 < 2);", true},
		{"report(1 > 2);", false},
		{"report(1 == 1);", true},
		{"report(1 != 1);", false},
		{"report(!true);", false},
		{"report(!false);", true},
		{"report(!nil);", true},
		{"report(1 >= 1);", true},
		{"report(1 <= 0);", false},
	}
	runVmTests(t, tests)
}

func TestStringConcatenation(t *testing.T) {
	tests := []vmTestCase{
		{`report("foo" + "bar");`, "foobar"},
		{`report("a" + "b" + "c");`, "abc"},
	}
	runVmTests(t, tests)
}

func TestGlobalsAndLocals(t *testing.T) {
	tests := []vmTestCase{
		{"var a = 10; report(a);", 10.0},
		{"var a = 10; a = 20; report(a);", 20.0},
		{"{ var a = 1; { var a = 2; report(a); } }", 2.0},
		{"{ var a = 1; { var a = 2; } report(a); }", 1.0},
	}
	runVmTests(t, tests)
}

func TestControlFlow(t *testing.T) {
	tests := []vmTestCase{
		{"if (true) report(1); else report(2);", 1.0},
		{"if (false) report(1); else report(2);", 2.0},
		{"var i = 0; while (i < 5) { i = i + 1; } report(i);", 5.0},
		{"var sum = 0; for (var i = 0; i < 5; i = i + 1) { sum = sum + i; } report(sum);", 10.0},
		{"report(true and false);", false},
		{"report(true or false);", true},
		{"report(false and sideEffectNeverRuns());", false},
	}
	runVmTests(t, tests)
}

func TestFunctionsAndClosuresByName(t *testing.T) {
	tests := []vmTestCase{
		{"fun add(a, b) { return a + b; } report(add(2, 3));", 5.0},
		{
			`var x = "global";
			 fun outer() {
			   fun inner() { return x; }
			   return inner();
			 }
			 report(outer());`,
			"global",
		},
		{
			`fun fib(n) {
			   if (n < 2) return n;
			   return fib(n - 1) + fib(n - 2);
			 }
			 report(fib(10));`,
			55.0,
		},
	}
	runVmTests(t, tests)
}

func TestNativeClock(t *testing.T) {
	v := New()
	err := v.Interpret("var t = clock(); print t >= 0;")
	require.NoError(t, err)
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"undefined global read", "report(nope);", "Undefined variable 'nope'."},
		{"undefined global assign", "nope = 1;", "Undefined variable 'nope'."},
		{"add type mismatch", `report(1 + "x");`, "Operands must be two numbers or two strings."},
		{"negate non-number", `report(-"x");`, "Operand must be a number."},
		{"call non-function", "var x = 1; x();", "Can only call functions and classes."},
		{"arity mismatch", "fun f(a, b) { return a; } f(1);", "Expected 2 arguments but got 1."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := New()
			vm.defineNative("report", func(args []value.Value) value.Value { return value.NewNil() })
			err := vm.Interpret(tt.input)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "got error %q, want it to contain %q", err.Error(), tt.wantErr)
		})
	}
}

func runVmTests(t *testing.T, tests []vmTestCase) {
	for _, tt := range tests {
		vm := New()
		var captured value.Value
		vm.defineNative("report", func(args []value.Value) value.Value {
			if len(args) > 0 {
				captured = args[0]
			}
			return value.NewNil()
		})
		vm.defineNative("sideEffectNeverRuns", func(args []value.Value) value.Value {
			t.Fatalf("short-circuit did not short-circuit for input %q", tt.input)
			return value.NewNil()
		})

		err := vm.Interpret(tt.input)
		require.NoError(t, err, "input: %s", tt.input)

		testExpectedObject(t, tt.expected, captured)
	}
}

func testExpectedObject(t *testing.T, expected interface{}, actual value.Value) {
	t.Helper()
	switch want := expected.(type) {
	case float64:
		require.Equal(t, value.Number, actual.Type)
		assert.Equal(t, want, actual.Number)
	case bool:
		require.Equal(t, value.Bool, actual.Type)
		assert.Equal(t, want, actual.Bool)
	case string:
		require.Equal(t, value.ObjRef, actual.Type)
		assert.Equal(t, want, actual.String())
	default:
		t.Fatalf("unsupported expected type %T", expected)
	}
}
