package parser

import (
	"errors"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/pdplang/pdp"
	"github.com/pdplang/pdp/ast"
	"github.com/pdplang/pdp/lexer"
)

func parse(t *testing.T, src string) *ast.Node {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("Lex(%q): %v", src, err)
	}
	_, tree, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return tree
}

func TestParseConsumesEveryTokenExceptEnd(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.parser")
	defer teardown()

	toks, err := lexer.Lex("x = 1\ny = 2\n")
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	p := New(toks)
	_, _, err = p.parseProgram()
	if err != nil {
		t.Fatalf("parseProgram: %v", err)
	}
	// Every token including END must have been consumed exactly once:
	// advance() never steps past END, so pos lands on the final index.
	if p.pos != len(toks)-1 {
		t.Errorf("parser consumed %d of %d tokens, want %d", p.pos, len(toks), len(toks)-1)
	}
}

func TestParseLiteralAssignment(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.parser")
	defer teardown()

	tree := parse(t, "x = 10\n")
	if len(tree.Stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(tree.Stmts))
	}
	stmt := tree.Stmts[0]
	if stmt.Kind != ast.AssignOp {
		t.Fatalf("statement kind = %s, want assign_op", stmt.Kind)
	}
	if stmt.Target.Kind != ast.Variable || stmt.Target.Name != "x" {
		t.Errorf("target = %+v, want variable x", stmt.Target)
	}
	if stmt.Value.Kind != ast.Number || stmt.Value.NumVal != 10 {
		t.Errorf("value = %+v, want number 10", stmt.Value)
	}
}

func TestParseFunctionDefDetectsGenerator(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.parser")
	defer teardown()

	tree := parse(t, "def gen():\n    yield 1\n")
	fn := tree.Stmts[0]
	if fn.Kind != ast.FunctionDef {
		t.Fatalf("kind = %s, want function_def", fn.Kind)
	}
	if !fn.IsGenerator {
		t.Error("function containing yield must be marked IsGenerator")
	}
}

func TestParseFunctionDefWithoutYieldIsNotGenerator(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.parser")
	defer teardown()

	tree := parse(t, "def plain():\n    return 1\n")
	fn := tree.Stmts[0]
	if fn.IsGenerator {
		t.Error("function with no yield must not be marked IsGenerator")
	}
}

func TestParseNestedYieldInNestedDefDoesNotPropagate(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.parser")
	defer teardown()

	tree := parse(t, "def outer():\n    def inner():\n        yield 1\n    return inner\n")
	outer := tree.Stmts[0]
	if outer.IsGenerator {
		t.Error("outer must not be a generator just because a nested def yields")
	}
	inner := outer.Body.Stmts[0]
	if !inner.IsGenerator {
		t.Error("inner must be a generator")
	}
}

func TestParseBraceLookaheadDict(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.parser")
	defer teardown()

	tree := parse(t, "x = {\"a\": 1}\n")
	val := tree.Stmts[0].Value
	if val.Kind != ast.Dictionary {
		t.Fatalf("kind = %s, want dictionary", val.Kind)
	}
	if len(val.Entries) != 1 || val.Entries[0].Key.StrVal != "a" {
		t.Errorf("entries = %+v, want one entry keyed \"a\"", val.Entries)
	}
}

func TestParseBraceLookaheadSet(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.parser")
	defer teardown()

	tree := parse(t, "x = {1, 2}\n")
	val := tree.Stmts[0].Value
	if val.Kind != ast.Set {
		t.Fatalf("kind = %s, want set", val.Kind)
	}
}

func TestParseEmptyBraceLiteralIsDict(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.parser")
	defer teardown()

	tree := parse(t, "x = {}\n")
	val := tree.Stmts[0].Value
	if val.Kind != ast.Dictionary || len(val.Entries) != 0 {
		t.Errorf("x = {} must abstract to an empty dictionary, got %+v", val)
	}
}

func TestParseBreakOutsideLoopIsRejected(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.parser")
	defer teardown()

	toks, err := lexer.Lex("break\n")
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	_, _, err = Parse(toks)
	if err == nil {
		t.Fatal("expected an error for 'break' outside a loop")
	}
}

func TestParseReturnOutsideFunctionIsRejected(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.parser")
	defer teardown()

	toks, err := lexer.Lex("return 1\n")
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	_, _, err = Parse(toks)
	if err == nil {
		t.Fatal("expected an error for 'return' outside a function")
	}
}

func TestParseBareReturnHasNilValue(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.parser")
	defer teardown()

	tree := parse(t, "def f():\n    return\n")
	body := tree.Stmts[0].Body
	ret := body.Stmts[0]
	if ret.Kind != ast.ReturnStmt {
		t.Fatalf("kind = %s, want return_stmt", ret.Kind)
	}
	if ret.Value != nil {
		t.Errorf("bare return must have a nil Value, got %+v", ret.Value)
	}
}

func TestParseSyntaxErrorReportsPosition(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.parser")
	defer teardown()

	toks, err := lexer.Lex("x = \n")
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	_, _, err = Parse(toks)
	if err == nil {
		t.Fatal("expected a parse error for a missing expression after '='")
	}
	var perr *pdp.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %T, want *pdp.ParseError", err)
	}
	if perr.Pos != (pdp.Position{Row: 1, Col: 5}) {
		t.Errorf("error position = %s, want 1:5 (the NEWLINE after '=')", perr.Pos)
	}
}
