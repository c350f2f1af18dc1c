/*
Package parser implements TPBA ("Top-down Parsing, Bottom-up Abstraction"):
a hand-written recursive-descent parser over the TPG grammar that builds a
concrete parse tree (package cst) while simultaneously abstracting an AST
(package ast) from it in the same traversal. Every grammar production is
one Go function returning a (*cst.Node, *ast.Node, error) triple — the
PTAG abstraction rule for that production is just the code choosing what
*ast.Node to hand back, keyed off the *abstract* kinds of its children
rather than their concrete parse-tree shapes.

The grammar is LL(1)-style but context sensitive: a ctx value threading
through the descent carries the current indentation depth and whether
continue/break/return are presently legal. Productions never backtrack
once a terminal has committed an arm; the one exception is the rollback
rule for quantified sub-productions (Scoped*, Scoped+, List?, Index*):
if the very first token of an attempted match doesn't fit, the attempt is
silently abandoned and zero tokens are considered consumed. Once any
token of an attempt was consumed, failure is a real, propagated error —
this is what gives a source with a genuine syntax error a precise
"unexpected token" diagnostic instead of a vacuous "expected END" at the
top of Program.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2024 The PDP Authors.

*/
package parser

import (
	"fmt"

	"github.com/npillmayer/schuko/tracing"

	"github.com/pdplang/pdp"
	"github.com/pdplang/pdp/ast"
	"github.com/pdplang/pdp/cst"
	"github.com/pdplang/pdp/token"
)

// tracer traces with key 'pdp.parser'.
func tracer() tracing.Trace {
	return tracing.Select("pdp.parser")
}

// ctx carries the TPG's three context flags through the descent.
type ctx struct {
	depth      int
	inLoop     bool
	inFunction bool
}

func (c ctx) nested() ctx {
	c.depth++
	return c
}

// Parser holds the token cursor. It is not re-entrant; create one per parse.
type Parser struct {
	toks []token.Token
	pos  int
}

// New creates a parser over a complete token stream (as produced by
// package lexer; must end in exactly one END token).
func New(toks []token.Token) *Parser {
	return &Parser{toks: toks}
}

// Parse runs TPBA over the whole token stream, returning the concrete
// parse tree and the abstracted AST rooted at Program.
func Parse(toks []token.Token) (*cst.Node, *ast.Node, error) {
	p := New(toks)
	return p.parseProgram()
}

// --- token cursor helpers ---------------------------------------------------

func (p *Parser) peek() token.Token {
	return p.toks[p.pos]
}

func (p *Parser) peekAt(offset int) token.Token {
	i := p.pos + offset
	if i >= len(p.toks) {
		i = len(p.toks) - 1
	}
	return p.toks[i]
}

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if t.Kind != token.END {
		p.pos++
	}
	return t
}

func (p *Parser) atKind(k token.Kind) bool {
	return p.peek().Kind == k
}

func (p *Parser) atOp(s string) bool {
	t := p.peek()
	return t.Kind == token.OP && t.Str == s
}

func (p *Parser) atASOP() bool {
	return p.peek().Kind == token.ASOP
}

func (p *Parser) atKeyword(s string) bool {
	t := p.peek()
	return t.Kind == token.KEYWORD && t.Str == s
}

func (p *Parser) atBracket(s string) bool {
	t := p.peek()
	return t.Kind == token.BRACKET && t.Str == s
}

func (p *Parser) atMisc(s string) bool {
	t := p.peek()
	return t.Kind == token.MISC && t.Str == s
}

func (p *Parser) expectKind(k token.Kind, expected string) (token.Token, error) {
	if p.peek().Kind != k {
		return token.Token{}, p.unexpected(expected)
	}
	return p.advance(), nil
}

func (p *Parser) expectBracket(s string) (token.Token, error) {
	if !p.atBracket(s) {
		return token.Token{}, p.unexpected(fmt.Sprintf("'%s'", s))
	}
	return p.advance(), nil
}

func (p *Parser) expectMisc(s string) (token.Token, error) {
	if !p.atMisc(s) {
		return token.Token{}, p.unexpected(fmt.Sprintf("'%s'", s))
	}
	return p.advance(), nil
}

func (p *Parser) expectKeyword(s string) (token.Token, error) {
	if !p.atKeyword(s) {
		return token.Token{}, p.unexpected(fmt.Sprintf("keyword '%s'", s))
	}
	return p.advance(), nil
}

func (p *Parser) expectOp(s string) (token.Token, error) {
	if !p.atOp(s) {
		return token.Token{}, p.unexpected(fmt.Sprintf("'%s'", s))
	}
	return p.advance(), nil
}

func (p *Parser) unexpected(expected string) error {
	return &pdp.ParseError{Pos: p.peek().Pos, Expected: expected, Found: describe(p.peek())}
}

func describe(t token.Token) string {
	if t.Kind == token.END {
		return "end of input"
	}
	return t.String()
}

// --- Program ----------------------------------------------------------------

func (p *Parser) parseProgram() (*cst.Node, *ast.Node, error) {
	root := ast.New(ast.Script, pdp.Position{Row: 1, Col: 1})
	var children []*cst.Node
	base := ctx{}
	for {
		sc, sa, matched, err := p.tryScoped(base)
		if err != nil {
			return nil, nil, err
		}
		if !matched {
			break
		}
		children = append(children, sc)
		if sa != nil {
			root.Stmts = append(root.Stmts, sa)
		}
	}
	endTok, err := p.expectKind(token.END, "end of input")
	if err != nil {
		return nil, nil, err
	}
	children = append(children, cst.Leaf(endTok))
	tracer().Infof("parsed program with %d statements", len(root.Stmts))
	return cst.Rule("Program", children...), root, nil
}

// --- Scoped: NEWLINE | INDENT{n} Unit ---------------------------------------

// tryScoped attempts one Scoped production. matched=false with err=nil
// means the quantified loop calling this should stop without consuming
// anything (a genuine end-of-block or end-of-input condition, not an
// error); matched=false with a non-nil err is a real parse error (an
// over-indented line, or a Unit that failed after its indent matched)
// that the caller propagates.
func (p *Parser) tryScoped(c ctx) (*cst.Node, *ast.Node, bool, error) {
	if p.atKind(token.END) {
		return nil, nil, false, nil
	}
	if p.atKind(token.NEWLINE) {
		nl := p.advance()
		return cst.Rule("Scoped", cst.Leaf(nl)), nil, true, nil
	}
	n := p.indentRun()
	if n < c.depth {
		return nil, nil, false, nil
	}
	var leaves []*cst.Node
	for i := 0; i < c.depth; i++ {
		leaves = append(leaves, cst.Leaf(p.advance()))
	}
	if n > c.depth {
		return nil, nil, false, p.unexpected("a statement")
	}
	uc, ua, err := p.parseUnit(c)
	if err != nil {
		return nil, nil, false, err
	}
	return cst.Rule("Scoped", append(leaves, uc)...), ua, true, nil
}

// indentRun counts consecutive INDENT tokens starting at the cursor,
// without consuming any of them.
func (p *Parser) indentRun() int {
	n := 0
	for p.peekAt(n).Kind == token.INDENT {
		n++
	}
	return n
}

// scopedPlus parses Scoped+ at depth c.depth+1, the shape of a block body.
// At least one Scoped must match.
func (p *Parser) scopedPlus(c ctx) (*ast.Node, []*cst.Node, error) {
	inner := c.nested()
	block := ast.New(ast.Block, p.peek().Pos)
	var children []*cst.Node
	first := true
	for {
		sc, sa, matched, err := p.tryScoped(inner)
		if err != nil {
			return nil, nil, err
		}
		if !matched {
			if first {
				return nil, nil, p.unexpected("an indented block")
			}
			break
		}
		first = false
		children = append(children, sc)
		if sa != nil {
			block.Stmts = append(block.Stmts, sa)
		}
	}
	return block, children, nil
}

// --- Unit --------------------------------------------------------------------

func (p *Parser) parseUnit(c ctx) (*cst.Node, *ast.Node, error) {
	switch {
	case p.atKeyword("if"):
		return p.parseIf(c)
	case p.atKeyword("while"):
		return p.parseWhile(c)
	case p.atKeyword("for"):
		return p.parseFor(c)
	case p.atKeyword("continue"):
		if !c.inLoop {
			return nil, nil, &pdp.SymbolError{Pos: p.peek().Pos, Reason: "'continue' outside loop"}
		}
		tok := p.advance()
		nl, err := p.expectKind(token.NEWLINE, "newline")
		if err != nil {
			return nil, nil, err
		}
		return cst.Rule("Unit", cst.Leaf(tok), cst.Leaf(nl)), ast.New(ast.Continue, tok.Pos), nil
	case p.atKeyword("break"):
		if !c.inLoop {
			return nil, nil, &pdp.SymbolError{Pos: p.peek().Pos, Reason: "'break' outside loop"}
		}
		tok := p.advance()
		nl, err := p.expectKind(token.NEWLINE, "newline")
		if err != nil {
			return nil, nil, err
		}
		return cst.Rule("Unit", cst.Leaf(tok), cst.Leaf(nl)), ast.New(ast.Break, tok.Pos), nil
	case p.atKeyword("return"):
		if !c.inFunction {
			return nil, nil, &pdp.SymbolError{Pos: p.peek().Pos, Reason: "'return' outside function"}
		}
		return p.parseReturn(c)
	case p.atKeyword("yield"):
		if !c.inFunction {
			return nil, nil, &pdp.SymbolError{Pos: p.peek().Pos, Reason: "'yield' outside function"}
		}
		return p.parseYield(c)
	case p.atKeyword("def"):
		return p.parseFunctionDef(c)
	case p.atKind(token.NAME):
		nc, na, err := p.parseNameStatement(c)
		if err != nil {
			return nil, nil, err
		}
		return cst.Rule("Unit", nc), na, nil
	default:
		return nil, nil, p.unexpected("a statement")
	}
}

func (p *Parser) parseIf(c ctx) (*cst.Node, *ast.Node, error) {
	ifTok := p.advance()
	condC, condA, err := p.parseExpr(c)
	if err != nil {
		return nil, nil, err
	}
	colon, err := p.expectMisc(":")
	if err != nil {
		return nil, nil, err
	}
	bodyC, bodyA, err := p.parseResult(c)
	if err != nil {
		return nil, nil, err
	}
	node := ast.New(ast.IfStmt, ifTok.Pos)
	node.Cond, node.Body = condA, bodyA
	return cst.Rule("Unit", cst.Leaf(ifTok), condC, cst.Leaf(colon), bodyC), node, nil
}

func (p *Parser) parseWhile(c ctx) (*cst.Node, *ast.Node, error) {
	whileTok := p.advance()
	condC, condA, err := p.parseExpr(c)
	if err != nil {
		return nil, nil, err
	}
	colon, err := p.expectMisc(":")
	if err != nil {
		return nil, nil, err
	}
	loopCtx := c
	loopCtx.inLoop = true
	bodyC, bodyA, err := p.parseResult(loopCtx)
	if err != nil {
		return nil, nil, err
	}
	node := ast.New(ast.WhileLoop, whileTok.Pos)
	node.Cond, node.Body = condA, bodyA
	return cst.Rule("Unit", cst.Leaf(whileTok), condC, cst.Leaf(colon), bodyC), node, nil
}

func (p *Parser) parseFor(c ctx) (*cst.Node, *ast.Node, error) {
	forTok := p.advance()
	nameTok, err := p.expectKind(token.NAME, "a name")
	if err != nil {
		return nil, nil, err
	}
	inTok, err := p.expectOp("in")
	if err != nil {
		return nil, nil, err
	}
	iterC, iterA, err := p.parseExpr(c)
	if err != nil {
		return nil, nil, err
	}
	colon, err := p.expectMisc(":")
	if err != nil {
		return nil, nil, err
	}
	loopCtx := c
	loopCtx.inLoop = true
	bodyC, bodyA, err := p.parseResult(loopCtx)
	if err != nil {
		return nil, nil, err
	}
	node := ast.New(ast.ForLoop, forTok.Pos)
	node.LoopVar = nameTok.Str
	node.Iterable, node.Body = iterA, bodyA
	return cst.Rule("Unit", cst.Leaf(forTok), cst.Leaf(nameTok), cst.Leaf(inTok), iterC, cst.Leaf(colon), bodyC), node, nil
}

func (p *Parser) parseReturn(c ctx) (*cst.Node, *ast.Node, error) {
	retTok := p.advance()
	node := ast.New(ast.ReturnStmt, retTok.Pos)
	children := []*cst.Node{cst.Leaf(retTok)}
	if !p.atKind(token.NEWLINE) {
		valC, valA, err := p.parseExpr(c)
		if err != nil {
			return nil, nil, err
		}
		node.Value = valA
		children = append(children, valC)
	}
	nl, err := p.expectKind(token.NEWLINE, "newline")
	if err != nil {
		return nil, nil, err
	}
	children = append(children, cst.Leaf(nl))
	return cst.Rule("Unit", children...), node, nil
}

func (p *Parser) parseYield(c ctx) (*cst.Node, *ast.Node, error) {
	yieldTok := p.advance()
	valC, valA, err := p.parseExpr(c)
	if err != nil {
		return nil, nil, err
	}
	nl, err := p.expectKind(token.NEWLINE, "newline")
	if err != nil {
		return nil, nil, err
	}
	node := ast.New(ast.Yield, yieldTok.Pos)
	node.Value = valA
	return cst.Rule("Unit", cst.Leaf(yieldTok), valC, cst.Leaf(nl)), node, nil
}

func (p *Parser) parseFunctionDef(c ctx) (*cst.Node, *ast.Node, error) {
	defTok := p.advance()
	nameTok, err := p.expectKind(token.NAME, "a function name")
	if err != nil {
		return nil, nil, err
	}
	open, err := p.expectBracket("(")
	if err != nil {
		return nil, nil, err
	}
	paramsC, paramsA, err := p.tryParamsList()
	if err != nil {
		return nil, nil, err
	}
	close, err := p.expectBracket(")")
	if err != nil {
		return nil, nil, err
	}
	colon, err := p.expectMisc(":")
	if err != nil {
		return nil, nil, err
	}
	fnCtx := c
	fnCtx.inFunction = true
	fnCtx.inLoop = false
	bodyA, bodyChildren, err := p.scopedPlusOrInlineReturn(fnCtx)
	if err != nil {
		return nil, nil, err
	}
	node := ast.New(ast.FunctionDef, defTok.Pos)
	node.Name = nameTok.Str
	node.Params = paramsA
	node.Body = bodyA
	node.IsGenerator = containsYield(bodyA)
	children := []*cst.Node{cst.Leaf(defTok), cst.Leaf(nameTok), cst.Leaf(open)}
	if paramsC != nil {
		children = append(children, paramsC)
	}
	children = append(children, cst.Leaf(close), cst.Leaf(colon))
	children = append(children, bodyChildren...)
	return cst.Rule("Unit", children...), node, nil
}

// containsYield reports whether block (a function body) contains a yield
// statement anywhere below it, not counting the bodies of nested
// function_defs — those are generators (or not) in their own right.
func containsYield(block *ast.Node) bool {
	if block == nil {
		return false
	}
	for _, stmt := range block.Stmts {
		switch stmt.Kind {
		case ast.Yield:
			return true
		case ast.IfStmt, ast.WhileLoop, ast.ForLoop:
			if containsYield(stmt.Body) {
				return true
			}
		}
	}
	return false
}

// --- Result: NEWLINE Scoped+ [n+=1] | NAME SideEffect NEWLINE --------------

func (p *Parser) parseResult(c ctx) (*cst.Node, *ast.Node, error) {
	if p.atKind(token.NEWLINE) {
		nl := p.advance()
		block, children, err := p.scopedPlus(c)
		if err != nil {
			return nil, nil, err
		}
		return cst.Rule("Result", append([]*cst.Node{cst.Leaf(nl)}, children...)...), block, nil
	}
	nc, na, err := p.parseNameStatement(c)
	if err != nil {
		return nil, nil, err
	}
	block := ast.New(ast.Block, na.Pos)
	block.Stmts = []*ast.Node{na}
	return cst.Rule("Result", nc), block, nil
}

// --- Body: NEWLINE Scoped+ [n+=1] | KEYWORD(Return) Expr NEWLINE -----------

func (p *Parser) scopedPlusOrInlineReturn(c ctx) (*ast.Node, []*cst.Node, error) {
	if p.atKind(token.NEWLINE) {
		nl := p.advance()
		block, children, err := p.scopedPlus(c)
		if err != nil {
			return nil, nil, err
		}
		return block, append([]*cst.Node{cst.Leaf(nl)}, children...), nil
	}
	if p.atKeyword("return") {
		retTok := p.advance()
		valC, valA, err := p.parseExpr(c)
		if err != nil {
			return nil, nil, err
		}
		nl, err := p.expectKind(token.NEWLINE, "newline")
		if err != nil {
			return nil, nil, err
		}
		ret := ast.New(ast.ReturnStmt, retTok.Pos)
		ret.Value = valA
		block := ast.New(ast.Block, retTok.Pos)
		block.Stmts = []*ast.Node{ret}
		return block, []*cst.Node{cst.Leaf(retTok), valC, cst.Leaf(nl)}, nil
	}
	return nil, nil, p.unexpected("an indented block or 'return'")
}

// --- NAME SideEffect: '(' List? ')' | Index* ASOP Expr ---------------------

func (p *Parser) parseNameStatement(c ctx) (*cst.Node, *ast.Node, error) {
	nameTok, err := p.expectKind(token.NAME, "a name")
	if err != nil {
		return nil, nil, err
	}
	variable := ast.New(ast.Variable, nameTok.Pos)
	variable.Name = nameTok.Str

	var effectC *cst.Node
	var effectA *ast.Node

	if p.atBracket("(") {
		open := p.advance()
		argsC, argsA, err := p.tryList()
		if err != nil {
			return nil, nil, err
		}
		close, err := p.expectBracket(")")
		if err != nil {
			return nil, nil, err
		}
		call := ast.New(ast.FunctionCall, nameTok.Pos)
		call.Callee = variable
		call.Args = argsA
		children := []*cst.Node{cst.Leaf(open)}
		if argsC != nil {
			children = append(children, argsC)
		}
		children = append(children, cst.Leaf(close))
		effectC, effectA = cst.Rule("SideEffect", children...), call
	} else {
		var idxChildren []*cst.Node
		var indices []*ast.Node
		for p.atBracket("[") {
			ic, ia, err := p.parseIndex(c)
			if err != nil {
				return nil, nil, err
			}
			idxChildren = append(idxChildren, ic)
			indices = append(indices, ia)
		}
		asop, err := p.expectKind(token.ASOP, "an assignment operator")
		if err != nil {
			return nil, nil, err
		}
		valC, valA, err := p.parseExpr(c)
		if err != nil {
			return nil, nil, err
		}
		var target *ast.Node
		if len(indices) > 0 {
			target = ast.New(ast.IndexChain, nameTok.Pos)
			target.Base = variable
			target.Indices = indices
		} else {
			target = variable
		}
		assign := ast.New(ast.AssignOp, nameTok.Pos)
		assign.Target = target
		assign.Op = asop.Str
		assign.Value = valA
		children := append(idxChildren, cst.Leaf(asop), valC)
		effectC, effectA = cst.Rule("SideEffect", children...), assign
	}
	nl, err := p.expectKind(token.NEWLINE, "newline")
	if err != nil {
		return nil, nil, err
	}
	return cst.Rule("NAME-stmt", cst.Leaf(nameTok), effectC, cst.Leaf(nl)), effectA, nil
}

func (p *Parser) parseIndex(c ctx) (*cst.Node, *ast.Node, error) {
	open, err := p.expectBracket("[")
	if err != nil {
		return nil, nil, err
	}
	exprC, exprA, err := p.parseExpr(c)
	if err != nil {
		return nil, nil, err
	}
	close, err := p.expectBracket("]")
	if err != nil {
		return nil, nil, err
	}
	return cst.Rule("Index", cst.Leaf(open), exprC, cst.Leaf(close)), exprA, nil
}
