package symtab

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/pdplang/pdp/ast"
	"github.com/pdplang/pdp/lexer"
	"github.com/pdplang/pdp/parser"
)

func build(t *testing.T, src string) (*ast.Node, *Table) {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	_, tree, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	table, err := Build(tree)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tree, table
}

// TestEveryNameClassifiedExactlyOnce walks every scope a program produces
// and checks each symbol lands in exactly one of Locals/Cells/Frees, or is
// Global (tracked only by class, since the script has no slot arrays).
func TestEveryNameClassifiedExactlyOnce(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.symtab")
	defer teardown()

	_, table := build(t, "def outer():\n    x = 1\n    def inner():\n        return x\n    return inner\n")
	var walk func(s *Scope)
	walk = func(s *Scope) {
		s.Each(func(sym *Symbol) {
			slots := 0
			for _, n := range s.Locals {
				if n == sym.Name {
					slots++
				}
			}
			for _, n := range s.Cells {
				if n == sym.Name {
					slots++
				}
			}
			for _, n := range s.Frees {
				if n == sym.Name {
					slots++
				}
			}
			if sym.Class == Global {
				if slots != 0 {
					t.Errorf("global symbol %q in scope %s has %d slot(s), want 0", sym.Name, s.Name, slots)
				}
				return
			}
			if slots != 1 {
				t.Errorf("symbol %q in scope %s has %d slot(s), want exactly 1", sym.Name, s.Name, slots)
			}
		})
	}
	for _, s := range table.byNode {
		walk(s)
	}
}

// TestScriptScopeNeverPromotesToCellOrFree covers the §8 worked closure
// example: a name assigned at script scope and read two function-scopes
// deep stays global, never promoted through cell/free, and — since global
// names carry no slot — only the scope that actually references it gets a
// classification at all; a scope the resolution search merely passed
// through (outer, here) gets none.
func TestScriptScopeNeverPromotesToCellOrFree(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.symtab")
	defer teardown()

	src := "x = 1\n" +
		"def outer():\n" +
		"    def inner():\n" +
		"        return x\n" +
		"    return inner\n"
	tree, table := build(t, src)

	outer := tree.Stmts[1]
	inner := outer.Body.Stmts[0]

	outerScope := table.ScopeOf(outer)
	innerScope := table.ScopeOf(inner)

	if _, ok := outerScope.Lookup("x"); ok {
		t.Error("outer never references x itself and must get no entry for it")
	}
	sym, ok := innerScope.Lookup("x")
	if !ok || sym.Class != Global {
		t.Errorf("x in inner = %+v, want global", sym)
	}
	if len(outerScope.Cells) != 0 {
		t.Errorf("outer.Cells = %v, want empty (x is global, never a cell)", outerScope.Cells)
	}
}

// TestTwoLevelClosureCapture is the design's own outer/inner worked
// example: a name local to outer, read by inner, is a cell in outer and
// free in inner.
func TestTwoLevelClosureCapture(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.symtab")
	defer teardown()

	src := "def outer():\n" +
		"    x = 1\n" +
		"    def inner():\n" +
		"        return x\n" +
		"    return inner\n"
	tree, table := build(t, src)

	outer := tree.Stmts[0]
	inner := outer.Body.Stmts[1]

	outerScope := table.ScopeOf(outer)
	innerScope := table.ScopeOf(inner)

	sym, ok := outerScope.Lookup("x")
	if !ok || sym.Class != Cell {
		t.Fatalf("x in outer = %+v, want cell", sym)
	}
	sym, ok = innerScope.Lookup("x")
	if !ok || sym.Class != Free {
		t.Fatalf("x in inner = %+v, want free", sym)
	}
	if len(outerScope.Cells) != 1 || outerScope.Cells[0] != "x" {
		t.Errorf("outer.Cells = %v, want [x]", outerScope.Cells)
	}
	if len(innerScope.Frees) != 1 || innerScope.Frees[0] != "x" {
		t.Errorf("inner.Frees = %v, want [x]", innerScope.Frees)
	}
}

// TestThreeLevelClosureCaptureChain exercises the deeper-than-two-levels
// case the compiler's Capture/FromFree mechanism exists for: a name local
// to the outermost function, read three scopes down, must be a cell only
// at the declaring scope and free at every scope strictly between it and
// the reference, not just the immediately enclosing one.
func TestThreeLevelClosureCaptureChain(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.symtab")
	defer teardown()

	src := "def a():\n" +
		"    x = 1\n" +
		"    def b():\n" +
		"        def c():\n" +
		"            return x\n" +
		"        return c\n" +
		"    return b\n"
	tree, table := build(t, src)

	aNode := tree.Stmts[0]
	bNode := aNode.Body.Stmts[1]
	cNode := bNode.Body.Stmts[0]

	aScope := table.ScopeOf(aNode)
	bScope := table.ScopeOf(bNode)
	cScope := table.ScopeOf(cNode)

	if sym, ok := aScope.Lookup("x"); !ok || sym.Class != Cell {
		t.Fatalf("x in a = %+v, want cell", sym)
	}
	if sym, ok := bScope.Lookup("x"); !ok || sym.Class != Free {
		t.Fatalf("x in b = %+v, want free (pass-through, not a cell of its own)", sym)
	}
	if sym, ok := cScope.Lookup("x"); !ok || sym.Class != Free {
		t.Fatalf("x in c = %+v, want free", sym)
	}
}

// TestForwardReferenceToLaterDeclaration covers the declare/resolve
// ordering fix: a nested function referencing a name the enclosing scope
// only assigns *after* the nested def in source order must still see it
// promoted to cell/free, not misclassified as global.
func TestForwardReferenceToLaterDeclaration(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.symtab")
	defer teardown()

	src := "def outer():\n" +
		"    def inner():\n" +
		"        return x\n" +
		"    x = 1\n" +
		"    return inner\n"
	tree, table := build(t, src)

	outer := tree.Stmts[0]
	inner := outer.Body.Stmts[0]

	outerScope := table.ScopeOf(outer)
	innerScope := table.ScopeOf(inner)

	if sym, ok := outerScope.Lookup("x"); !ok || sym.Class != Cell {
		t.Fatalf("x in outer = %+v, want cell (forward reference must still promote)", sym)
	}
	if sym, ok := innerScope.Lookup("x"); !ok || sym.Class != Free {
		t.Fatalf("x in inner = %+v, want free", sym)
	}
}

// TestEveryScopeGetsItsOwnSlotNumbering covers the finalize-recursion fix:
// every function scope, not just the script, must have its Locals slotted.
func TestEveryScopeGetsItsOwnSlotNumbering(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.symtab")
	defer teardown()

	src := "def f(a, b):\n    c = a + b\n    return c\n"
	tree, table := build(t, src)
	fn := tree.Stmts[0]
	scope := table.ScopeOf(fn)
	if len(scope.Locals) != 3 {
		t.Fatalf("f's Locals = %v, want 3 slots (a, b, c)", scope.Locals)
	}
	seen := map[int]bool{}
	for _, name := range scope.Locals {
		sym, _ := scope.Lookup(name)
		if seen[sym.Slot] {
			t.Errorf("duplicate slot %d in scope %s", sym.Slot, scope.Name)
		}
		seen[sym.Slot] = true
	}
}
