package lexer

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/pdplang/pdp/token"
)

func TestLexEndsInExactlyOneEnd(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.lexer")
	defer teardown()

	toks, err := Lex("x = 10\n")
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	ends := 0
	for i, tok := range toks {
		if tok.Kind == token.END {
			ends++
			if i != len(toks)-1 {
				t.Errorf("END token at %d, not at the end (len %d)", i, len(toks))
			}
		}
	}
	if ends != 1 {
		t.Errorf("got %d END tokens, want exactly 1", ends)
	}
}

func TestLexLiteralAssignment(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.lexer")
	defer teardown()

	toks, err := Lex("x = 10\n")
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	want := []token.Kind{token.NAME, token.ASOP, token.NUMBER, token.NEWLINE, token.END}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d kind = %s, want %s", i, toks[i].Kind, k)
		}
	}
	if toks[2].Num != 10 {
		t.Errorf("NUMBER value = %g, want 10", toks[2].Num)
	}
}

func TestLexBlankAndCommentLinesCarryNoIndent(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.lexer")
	defer teardown()

	src := "if true:\n    # a comment, deeply indented\n\n    x = 1\n"
	toks, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	// The comment and blank lines must not contribute INDENT tokens; only
	// the genuinely-indented assignment line should.
	indents := 0
	for _, tok := range toks {
		if tok.Kind == token.INDENT {
			indents++
		}
	}
	if indents != 1 {
		t.Errorf("got %d INDENT tokens, want exactly 1 (only the x=1 line)", indents)
	}
}

func TestLexRejectsTabIndentation(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.lexer")
	defer teardown()

	_, err := Lex("if true:\n\tx = 1\n")
	if err == nil {
		t.Fatal("expected a LexError for tab indentation, got nil")
	}
}

func TestLexRejectsUnevenIndentation(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.lexer")
	defer teardown()

	_, err := Lex("if true:\n   x = 1\n")
	if err == nil {
		t.Fatal("expected a LexError for indentation not a multiple of the configured width, got nil")
	}
}

func TestLexBoundaryCheckRejectsNumberAbuttingName(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.lexer")
	defer teardown()

	_, err := Lex("x = 1abc\n")
	if err == nil {
		t.Fatal("expected a LexError: a NUMBER lexeme must not be followed by an identifier character")
	}
}

func TestLexKeywordsAndOperatorPriority(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.lexer")
	defer teardown()

	toks, err := Lex("x = a and not b\n")
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	var kinds []token.Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	want := []token.Kind{
		token.NAME, token.ASOP, token.NAME, token.OP, token.OP, token.NAME,
		token.NEWLINE, token.END,
	}
	if len(kinds) != len(want) {
		t.Fatalf("got kinds %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("token %d kind = %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestLexEmptySource(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "pdp.lexer")
	defer teardown()

	toks, err := Lex("")
	if err != nil {
		t.Fatalf("Lex(\"\"): %v", err)
	}
	if len(toks) != 1 || toks[0].Kind != token.END {
		t.Errorf("Lex(\"\") = %v, want a single END token", toks)
	}
}
