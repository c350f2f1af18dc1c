package token

import (
	"testing"

	"github.com/pdplang/pdp"
)

func TestClassifyWordPriority(t *testing.T) {
	// §4.1's variant-priority rule: "and"/"or"/"not"/"in" lex as OP even
	// though they're reserved words; "true"/"false" lex as BOOL; every
	// other reserved word lexes as KEYWORD.
	cases := []struct {
		word string
		kind Kind
	}{
		{"and", OP},
		{"or", OP},
		{"not", OP},
		{"in", OP},
		{"true", BOOL},
		{"false", BOOL},
		{"if", KEYWORD},
		{"def", KEYWORD},
		{"yield", KEYWORD},
		{"return", KEYWORD},
	}
	for _, c := range cases {
		if !Keywords[c.word] {
			t.Fatalf("%q should be a reserved word", c.word)
		}
		kind, _ := ClassifyWord(c.word)
		if kind != c.kind {
			t.Errorf("ClassifyWord(%q) = %s, want %s", c.word, kind, c.kind)
		}
	}
}

func TestClassifyWordBoolValue(t *testing.T) {
	_, val := ClassifyWord("true")
	if val != "true" {
		t.Errorf("ClassifyWord(true) value = %q, want %q", val, "true")
	}
}

func TestTokenStringOmitsValueForStructural(t *testing.T) {
	tok := New(NEWLINE, pdp.Position{Row: 3, Col: 7})
	s := tok.String()
	if s != "NEWLINE() @ 3:7" {
		t.Errorf("NEWLINE.String() = %q, want %q", s, "NEWLINE() @ 3:7")
	}
}
