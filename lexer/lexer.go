/*
Package lexer turns Python source text into the token stream consumed by
the parser (see package token).

Indentation is the one part of Python's grammar that a whole-buffer regex
DFA can't express on its own, so scanning proceeds line by line: each
physical line contributes zero or more INDENT tokens (one per run of four
leading spaces), then whatever lexmachine recognizes in the remainder of
the line, then a single NEWLINE. The heavy lifting for telling a NAME from
a KEYWORD from a NUMBER from an operator is delegated to lexmachine (see
lexmach.go); this file owns only the parts specific to PDP's grammar:
indent counting, blank/comment-only lines, and the boundary check that
numeric and word lexemes must not be immediately followed by another
alnum/underscore rune.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2024 The PDP Authors.

*/
package lexer

import (
	"strings"
	"unicode"

	"github.com/npillmayer/schuko/tracing"

	"github.com/pdplang/pdp"
	"github.com/pdplang/pdp/config"
	"github.com/pdplang/pdp/token"
)

// tracer traces with key 'pdp.lexer'.
func tracer() tracing.Trace {
	return tracing.Select("pdp.lexer")
}

// Lex scans src into a token stream terminated by exactly one END token.
func Lex(src string) ([]token.Token, error) {
	tracer().Debugf("lexing %d bytes of source", len(src))
	var toks []token.Token

	lines := strings.Split(src, "\n")
	// strings.Split on a trailing "\n" yields a final empty element that
	// does not correspond to a real physical line; drop it.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	for i, line := range lines {
		row := i + 1
		toksForLine, err := scanLine(line, row)
		if err != nil {
			return nil, err
		}
		toks = append(toks, toksForLine...)
	}

	toks = append(toks, token.New(token.END, pdp.Position{Row: len(lines) + 1, Col: 1}))
	tracer().Infof("lexed %d tokens", len(toks))
	return toks, nil
}

// scanLine tokenizes a single physical line, including its leading indent
// and trailing NEWLINE.
func scanLine(line string, row int) ([]token.Token, error) {
	if isBlankOrComment(line) {
		// Blank and comment-only lines never carry indentation for
		// grammar purposes: they collapse to a bare NEWLINE regardless
		// of how much whitespace precedes them.
		return []token.Token{token.New(token.NEWLINE, pdp.Position{Row: row, Col: len(line) + 1})}, nil
	}

	indentLen, err := leadingIndent(line, row)
	if err != nil {
		return nil, err
	}
	content := line[indentLen:]

	width := config.IndentWidth()
	var toks []token.Token
	nIndent := indentLen / width
	for i := 0; i < nIndent; i++ {
		toks = append(toks, token.New(token.INDENT, pdp.Position{Row: row, Col: i*width + 1}))
	}

	ls, err := newLineScanner(content)
	if err != nil {
		return nil, err
	}
	for {
		rt, ok, failTC, scanErr := ls.next()
		if scanErr != nil {
			return nil, &pdp.LexError{
				Pos:    pdp.Position{Row: row, Col: indentLen + failTC + 1},
				Reason: "unrecognized character",
			}
		}
		if !ok {
			break
		}
		if needsBoundaryCheck(rt.kind) {
			if end := ls.cursor(); end < len(content) && isIdentRune(rune(content[end])) {
				return nil, &pdp.LexError{
					Pos:    pdp.Position{Row: row, Col: indentLen + rt.startCol + 1},
					Reason: "literal must not be followed by an identifier character",
				}
			}
		}
		toks = append(toks, toToken(rt, row, indentLen))
	}
	toks = append(toks, token.New(token.NEWLINE, pdp.Position{Row: row, Col: len(line) + 1}))
	return toks, nil
}

// leadingIndent counts the leading run of spaces, rejecting tabs and
// indentation that isn't a multiple of four.
func leadingIndent(line string, row int) (int, error) {
	n := 0
	for n < len(line) {
		switch line[n] {
		case ' ':
			n++
		case '\t':
			return 0, &pdp.LexError{Pos: pdp.Position{Row: row, Col: n + 1}, Reason: "tabs are not accepted for indentation"}
		default:
			goto done
		}
	}
done:
	if n%config.IndentWidth() != 0 {
		return 0, &pdp.LexError{
			Pos:    pdp.Position{Row: row, Col: 1},
			Reason: "indentation must be a multiple of four spaces",
		}
	}
	return n, nil
}

func isBlankOrComment(content string) bool {
	trimmed := strings.TrimLeft(content, " \t")
	return trimmed == "" || strings.HasPrefix(trimmed, "#")
}

func needsBoundaryCheck(k token.Kind) bool {
	return k == token.NUMBER || k == token.NAME || k == token.KEYWORD || k == token.BOOL
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func toToken(rt rawToken, row, indentLen int) token.Token {
	pos := pdp.Position{Row: row, Col: indentLen + rt.startCol + 1}
	t := token.New(rt.kind, pos)
	t.Str = rt.text
	t.Num = rt.num
	t.Bool = rt.b
	return t
}
