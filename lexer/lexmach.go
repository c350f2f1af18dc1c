package lexer

import (
	"fmt"
	"sync"

	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"

	"github.com/pdplang/pdp/token"
)

// This file adapts timtadh/lexmachine into the shape the hand-rolled line
// scanner in lexer.go needs. Indentation and NEWLINE synthesis are
// fundamentally line-oriented and don't fit a single whole-buffer DFA, so
// scanLine (in lexer.go) slices out one physical line's content at a time
// and hands it to a fresh lexmachine.Scanner over just that slice. The DFA
// itself, compiled once in newMachine, does all the character-class work:
// telling STRING from NUMBER from NAME from an operator is exactly the kind
// of longest-match problem lexmachine exists for.

// payload is what every Action attaches to the lexmachine.Token it emits;
// rawToken (below) unwraps it once the caller has resolved row/col.
type payload struct {
	kind token.Kind
	text string
	num  float64
	b    bool
}

var (
	machineOnce sync.Once
	machine     *lexmachine.Lexer
	machineErr  error
)

func newMachine() (*lexmachine.Lexer, error) {
	machineOnce.Do(func() {
		lex := lexmachine.NewLexer()

		lex.Add([]byte(`#[^\n]*`), skip)
		lex.Add([]byte(`( |\t)+`), skip)

		lex.Add([]byte(`\"[^\"\n]*\"`), stringAction)
		lex.Add([]byte(`'[^'\n]*'`), stringAction)
		lex.Add([]byte(`[fF](\"[^\"\n]*\"|'[^'\n]*')`), fStringAction)

		lex.Add([]byte(`[0-9]+(\.[0-9]+)?`), numberAction)

		for _, op := range []string{
			`\*\*`, `\/\/`, `==`, `!=`, `<=`, `>=`,
			`\+`, `\-`, `\*`, `\/`, `%`, `<`, `>`,
		} {
			lex.Add([]byte(op), opAction)
		}
		for _, op := range []string{
			`\*\*=`, `\/\/=`, `\+=`, `\-=`, `\*=`, `\/=`, `%=`, `=`,
		} {
			lex.Add([]byte(op), asopAction)
		}
		for _, b := range []string{`\(`, `\)`, `\[`, `\]`, `\{`, `\}`} {
			lex.Add([]byte(b), bracketAction)
		}
		for _, m := range []string{`:`, `,`, `\.`} {
			lex.Add([]byte(m), miscAction)
		}

		lex.Add([]byte(`([a-zA-Z_])([a-zA-Z0-9_])*`), wordAction)

		machineErr = lex.Compile()
		machine = lex
	})
	return machine, machineErr
}

func skip(*lexmachine.Scanner, *machines.Match) (interface{}, error) {
	return nil, nil
}

func stringAction(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
	raw := string(m.Bytes)
	return s.Token(0, payload{kind: token.STRING, text: raw[1 : len(raw)-1]}, m), nil
}

func fStringAction(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
	raw := string(m.Bytes)[1:] // drop the f/F prefix; quotes are stripped below, content kept verbatim
	return s.Token(0, payload{kind: token.STRING, text: raw[1 : len(raw)-1]}, m), nil
}

func numberAction(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
	var f float64
	if _, err := fmt.Sscanf(string(m.Bytes), "%g", &f); err != nil {
		return nil, fmt.Errorf("malformed number literal %q", string(m.Bytes))
	}
	return s.Token(0, payload{kind: token.NUMBER, num: f}, m), nil
}

func opAction(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
	return s.Token(0, payload{kind: token.OP, text: string(m.Bytes)}, m), nil
}

func asopAction(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
	return s.Token(0, payload{kind: token.ASOP, text: string(m.Bytes)}, m), nil
}

func bracketAction(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
	return s.Token(0, payload{kind: token.BRACKET, text: string(m.Bytes)}, m), nil
}

func miscAction(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
	return s.Token(0, payload{kind: token.MISC, text: string(m.Bytes)}, m), nil
}

func wordAction(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
	word := string(m.Bytes)
	if token.Keywords[word] {
		kind, val := token.ClassifyWord(word)
		if kind == token.BOOL {
			return s.Token(0, payload{kind: token.BOOL, b: val == "true"}, m), nil
		}
		return s.Token(0, payload{kind: kind, text: word}, m), nil
	}
	return s.Token(0, payload{kind: token.NAME, text: word}, m), nil
}

// rawToken is one match plus enough positional info for the line scanner to
// stitch in row/col and run the boundary check.
type rawToken struct {
	payload
	startCol int // 0-based byte offset into the line content, after indent
	endCol   int
}

// lineScanner wraps a lexmachine.Scanner bound to a single line's content.
type lineScanner struct {
	sc *lexmachine.Scanner
}

func newLineScanner(content string) (*lineScanner, error) {
	m, err := newMachine()
	if err != nil {
		return nil, err
	}
	sc, err := m.Scanner([]byte(content))
	if err != nil {
		return nil, err
	}
	return &lineScanner{sc: sc}, nil
}

// next returns the next token on the line, or ok=false at end of line.
// unconsumed is the offset of the first byte lexmachine couldn't classify,
// reported when err != nil.
func (ls *lineScanner) next() (tok rawToken, ok bool, unconsumed int, err error) {
	raw, e, eof := ls.sc.Next()
	if eof {
		return rawToken{}, false, 0, nil
	}
	if e != nil {
		if ui, is := e.(*machines.UnconsumedInput); is {
			return rawToken{}, false, ui.FailTC, e
		}
		return rawToken{}, false, ls.sc.TC, e
	}
	lt := raw.(*lexmachine.Token)
	p := lt.Value.(payload)
	return rawToken{
		payload:  p,
		startCol: lt.StartColumn - 1,
		endCol:   lt.EndColumn,
	}, true, 0, nil
}

// cursor is the current byte offset into the line content; used to run the
// "next character must not be alnum/underscore" boundary check demanded by
// keyword/identifier and numeric lexemes.
func (ls *lineScanner) cursor() int {
	return ls.sc.TC
}
