package compiler

import (
	"testing"

	"github.com/cnf/structhash"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/pdplang/pdp/lexer"
	"github.com/pdplang/pdp/parser"
	"github.com/pdplang/pdp/symtab"
)

func compileSrc(t *testing.T, src string) *CodeObject {
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
	code, err := Compile(tree, table)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return code
}

// TestCompileIsIdempotent is the §8 round-trip property: compiling the
// same program twice must produce bytecode that hashes identically.
func TestCompileIsIdempotent(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.compiler")
	defer teardown()

	src := "total = 0\nfor i in range(5):\n    total += i\nprint(total)\n"
	a := compileSrc(t, src)
	b := compileSrc(t, src)

	ha, err := structhash.Hash(a, 1)
	if err != nil {
		t.Fatalf("structhash.Hash(a): %v", err)
	}
	hb, err := structhash.Hash(b, 1)
	if err != nil {
		t.Fatalf("structhash.Hash(b): %v", err)
	}
	if ha != hb {
		t.Errorf("compiling %q twice produced different bytecode hashes: %s != %s", src, ha, hb)
	}
}

func findOp(t *testing.T, code *CodeObject, op OpCode) (Instr, bool) {
	t.Helper()
	for _, instr := range code.Code {
		if instr.Op == op {
			return instr, true
		}
	}
	return Instr{}, false
}

// TestCompoundAssignmentEmitsBinOp guards the augmented-assignment fix:
// `total += i` must load total, load i, BIN_OP "+", then store — not just
// overwrite total with i.
func TestCompoundAssignmentEmitsBinOp(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.compiler")
	defer teardown()

	code := compileSrc(t, "total = 0\ntotal += 1\n")
	instr, ok := findOp(t, code, BinOp)
	if !ok {
		t.Fatal("total += 1 must compile to a BIN_OP instruction")
	}
	if instr.Str != "+" {
		t.Errorf("BIN_OP operator = %q, want %q", instr.Str, "+")
	}
	// The load must precede the store: a LOAD_GLOBAL for total, then the
	// BIN_OP, then a STORE_GLOBAL — never a bare STORE_GLOBAL with no
	// preceding load of the old value.
	var sawLoad, sawBinOpAfterLoad bool
	for _, in := range code.Code {
		switch in.Op {
		case LoadGlobal:
			sawLoad = true
		case BinOp:
			if sawLoad {
				sawBinOpAfterLoad = true
			}
		}
	}
	if !sawBinOpAfterLoad {
		t.Error("BIN_OP must follow a LOAD_GLOBAL of the target's current value")
	}
}

// TestPlainAssignmentEmitsNoBinOp keeps compound-assignment lowering from
// leaking into ordinary "=" assignment.
func TestPlainAssignmentEmitsNoBinOp(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.compiler")
	defer teardown()

	code := compileSrc(t, "total = 0\ntotal = 1\n")
	if _, ok := findOp(t, code, BinOp); ok {
		t.Error("plain '=' assignment must not emit a BIN_OP")
	}
}

// TestParamCapturedByNestedDefGetsCellSlot guards the ParamSlots fix: a
// parameter a nested def reads must be classified Cell, and its
// ParamSlot must say so, or CALL has nowhere to seed its argument value.
func TestParamCapturedByNestedDefGetsCellSlot(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.compiler")
	defer teardown()

	src := "def outer(n):\n" +
		"    def inner():\n" +
		"        return n\n" +
		"    return inner\n"
	code := compileSrc(t, src)
	instr, ok := findOp(t, code, MakeFunction)
	if !ok || instr.Code.Name != "outer" {
		t.Fatal("script must MAKE_FUNCTION outer")
	}
	outerCode := instr.Code
	if len(outerCode.ParamSlots) != 1 {
		t.Fatalf("outer.ParamSlots = %v, want exactly 1 entry (n)", outerCode.ParamSlots)
	}
	if !outerCode.ParamSlots[0].Cell {
		t.Error("n is captured by inner and must be a Cell param slot, not a Local one")
	}
}

// TestClosureCaptureThreeLevelsDeep exercises the Capture/
// FromFree generalization: a MAKE_FUNCTION three scopes deep must mark
// its capture FromFree, since the cell it forwards lives two scopes up,
// not in its own immediately-enclosing frame.
func TestClosureCaptureThreeLevelsDeep(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.compiler")
	defer teardown()

	src := "def a():\n" +
		"    x = 1\n" +
		"    def b():\n" +
		"        def c():\n" +
		"            return x\n" +
		"        return c\n" +
		"    return b\n"
	code := compileSrc(t, src)

	// Walk MAKE_FUNCTION instructions transitively to find c's.
	var find func(c *CodeObject, name string) *CodeObject
	find = func(c *CodeObject, name string) *CodeObject {
		for _, instr := range c.Code {
			if instr.Op == MakeFunction {
				if instr.Code.Name == name {
					return instr.Code
				}
				if found := find(instr.Code, name); found != nil {
					return found
				}
			}
		}
		return nil
	}
	bCode := find(code, "b")
	if bCode == nil {
		t.Fatal("could not find b's CodeObject")
	}
	cMakeInstr, ok := findOp(t, bCode, MakeFunction)
	if !ok || cMakeInstr.Code.Name != "c" {
		t.Fatal("b must MAKE_FUNCTION c")
	}
	if len(cMakeInstr.Captures) != 1 {
		t.Fatalf("c's captures = %v, want exactly 1 (x)", cMakeInstr.Captures)
	}
	if !cMakeInstr.Captures[0].FromFree {
		t.Error("c's capture of x must come from b's Frees (x is only free in b, not a cell there)")
	}
}
