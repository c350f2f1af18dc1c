package vm

import (
	"bytes"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/pdplang/pdp"
	"github.com/pdplang/pdp/compiler"
	"github.com/pdplang/pdp/lexer"
	"github.com/pdplang/pdp/object"
	"github.com/pdplang/pdp/parser"
	"github.com/pdplang/pdp/symtab"
)

// compileSrc runs the first four pipeline stages, confident of their own
// package-level test coverage, to get a CodeObject for the VM to run.
func compileSrc(t *testing.T, src string) *compiler.CodeObject {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	_, tree, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	table, err := symtab.Build(tree)
	if err != nil {
		t.Fatalf("symtab.Build: %v", err)
	}
	code, err := compiler.Compile(tree, table)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return code
}

func run(t *testing.T, src string) (*VM, *bytes.Buffer, error) {
	t.Helper()
	code := compileSrc(t, src)
	machine := New(0)
	var out bytes.Buffer
	machine.Stdout = &out
	err := machine.Run(code)
	return machine, &out, err
}

func TestLiteralAssignment(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.vm")
	defer teardown()

	machine, _, err := run(t, "x = 10\n")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	x, ok := machine.Globals["x"]
	if !ok || x.Kind != object.NumberKind || x.Num != 10 {
		t.Errorf("Globals[x] = %+v, want Number(10)", x)
	}
}

func TestStackEmptyAfterTermination(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.vm")
	defer teardown()

	machine, _, err := run(t, "x = 1\ny = x + 2\nprint(y)\n")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if machine.stack.Size() != 0 {
		t.Errorf("eval stack size = %d, want 0 after a terminating run", machine.stack.Size())
	}
	if machine.frames.Size() != 0 {
		t.Errorf("frame stack size = %d, want 0 after a terminating run", machine.frames.Size())
	}
}

// TestNestedClosure is the design's own outer/inner worked example: outer
// returns inner, bound to its own local x as a cell; calling the returned
// function must read the captured value, not a fresh one.
func TestNestedClosure(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.vm")
	defer teardown()

	src := "def outer():\n" +
		"    x = 5\n" +
		"    def inner():\n" +
		"        return x\n" +
		"    return inner\n" +
		"f = outer()\n" +
		"result = f()\n"
	machine, _, err := run(t, src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result, ok := machine.Globals["result"]
	if !ok || result.Num != 5 {
		t.Errorf("result = %+v, want Number(5)", result)
	}
}

// TestThreeLevelClosureCaptureChain is the VM-side half of the Capture/
// FromFree fix: a function three scopes deep must still read the right
// cell's current value, not a stale or zero one.
func TestThreeLevelClosureCaptureChain(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.vm")
	defer teardown()

	// NameExpr only ever consumes one trailing call or index chain, never
	// both back to back, so each call must bind its result to a name
	// before the next call can be written.
	src := "def a():\n" +
		"    x = 42\n" +
		"    def b():\n" +
		"        def c():\n" +
		"            return x\n" +
		"        return c\n" +
		"    return b\n" +
		"f = a()\n" +
		"g = f()\n" +
		"result = g()\n"
	machine, _, err := run(t, src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result := machine.Globals["result"]
	if result.Num != 42 {
		t.Errorf("result = %+v, want Number(42)", result)
	}
}

// TestParameterCellCapture is spec.md §8 scenario 2: a parameter (n)
// captured by a nested def must be seeded into its cell at call time, not
// left None there while the copy lands in a Locals slot nothing reads.
// Binary chains have no precedence, so the division is parenthesized to
// get the scenario's 12.5; unparenthesized, i + n / x is (i + n) / x.
func TestParameterCellCapture(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.vm")
	defer teardown()

	src := "x = 10\n" +
		"def outer(n):\n" +
		"    total = 0\n" +
		"    def inner(i):\n" +
		"        return i + (n / x)\n" +
		"    for i in range(n):\n" +
		"        total += inner(i)\n" +
		"    return total\n" +
		"result = outer(5)\n"
	machine, _, err := run(t, src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result := machine.Globals["result"]
	if result.Num != 12.5 {
		t.Errorf("result = %+v, want Number(12.5)", result)
	}
}

// TestBreakContinueAccumulation is the design's scenario 3, exercising both
// the compound-assignment fix (total += i) and break/continue control flow.
func TestBreakContinueAccumulation(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.vm")
	defer teardown()

	src := "total = 0\n" +
		"for i in range(5):\n" +
		"    if i == 2:\n" +
		"        continue\n" +
		"    if i == 4:\n" +
		"        break\n" +
		"    total += i\n"
	machine, _, err := run(t, src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	total := machine.Globals["total"]
	// i runs 0,1,2,3,4: 2 is skipped by continue, 4 stops the loop via
	// break before its own total += i runs. 0+1+3 = 4.
	if total.Num != 4 {
		t.Errorf("total = %+v, want Number(4)", total)
	}
}

// TestGeneratorYieldsInOrder drives a generator entirely through FOR_ITER,
// the design's §8 scenario: values come out one at a time, in order.
func TestGeneratorYieldsInOrder(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.vm")
	defer teardown()

	src := "def gen():\n" +
		"    yield 1\n" +
		"    yield 2\n" +
		"    yield 3\n" +
		"for v in gen():\n" +
		"    print(v)\n"
	_, out, err := run(t, src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "1\n2\n3\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestBareReturnProducesNone(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.vm")
	defer teardown()

	machine, _, err := run(t, "def f():\n    return\nx = f()\n")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	x := machine.Globals["x"]
	if x.Kind != object.NoneKind {
		t.Errorf("x = %+v, want None", x)
	}
}

func TestRecursionHitsStackOverflow(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.vm")
	defer teardown()

	code := compileSrc(t, "def f():\n    return f()\nf()\n")
	machine := New(5)
	var out bytes.Buffer
	machine.Stdout = &out
	err := machine.Run(code)
	if err == nil {
		t.Fatal("expected a StackOverflowError for unbounded recursion")
	}
	if _, ok := err.(*pdp.StackOverflowError); !ok {
		t.Errorf("err = %T (%v), want *pdp.StackOverflowError", err, err)
	}
}

func TestTypeErrorOnBadOperands(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.vm")
	defer teardown()

	_, _, err := run(t, "x = 1 + \"a\"\n")
	if err == nil {
		t.Fatal("expected a TypeError adding a Number to a String")
	}
	if _, ok := err.(*pdp.TypeError); !ok {
		t.Errorf("err = %T (%v), want *pdp.TypeError", err, err)
	}
}

func TestZeroDivisionError(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.vm")
	defer teardown()

	_, _, err := run(t, "x = 1 / 0\n")
	if err == nil {
		t.Fatal("expected a ZeroDivisionError")
	}
	if _, ok := err.(*pdp.ZeroDivisionError); !ok {
		t.Errorf("err = %T (%v), want *pdp.ZeroDivisionError", err, err)
	}
}

func TestNameErrorOnUndefinedGlobal(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.vm")
	defer teardown()

	_, _, err := run(t, "print(undeclared)\n")
	if err == nil {
		t.Fatal("expected a NameError for an unbound name")
	}
	if _, ok := err.(*pdp.NameError); !ok {
		t.Errorf("err = %T (%v), want *pdp.NameError", err, err)
	}
}

func TestIndexChainCompoundAssignment(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.vm")
	defer teardown()

	machine, _, err := run(t, "xs = [1, 2, 3]\nxs[0] += 10\n")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	xs := machine.Globals["xs"]
	if xs.List.Elems[0].Num != 11 {
		t.Errorf("xs[0] = %v, want 11", xs.List.Elems[0])
	}
}
