package parser

import (
	"github.com/pdplang/pdp/ast"
	"github.com/pdplang/pdp/cst"
	"github.com/pdplang/pdp/token"
)

// --- Expr: ExprUnary ExprBinary* --------------------------------------------
//
// PTAG: zero binary tails propagates the head's abstraction unchanged; one
// or more tails produce a binary_op_chain. There is no operator precedence:
// the chain is evaluated strictly left to right by the compiler/VM.

func (p *Parser) parseExpr(c ctx) (*cst.Node, *ast.Node, error) {
	headC, headA, err := p.parseExprUnary(c)
	if err != nil {
		return nil, nil, err
	}
	children := []*cst.Node{headC}
	var tail []ast.BinOpTail
	for p.atKind(token.OP) {
		opTok := p.advance()
		rhsC, rhsA, err := p.parseExprUnit(c)
		if err != nil {
			return nil, nil, err
		}
		children = append(children, cst.Leaf(opTok), rhsC)
		tail = append(tail, ast.BinOpTail{Op: opTok.Str, Rhs: rhsA})
	}
	if len(tail) == 0 {
		return headC, headA, nil
	}
	node := ast.New(ast.BinaryOpChain, headA.Pos)
	node.Head = headA
	node.Tail = tail
	return cst.Rule("Expr", children...), node, nil
}

// --- ExprUnary: OP(Minus) ExprUnit | OP(Not) ExprUnit | ExprUnit -----------
//
// PTAG: the non-unary arm propagates its child untouched.

func (p *Parser) parseExprUnary(c ctx) (*cst.Node, *ast.Node, error) {
	if p.atOp("-") || p.atOp("not") {
		opTok := p.advance()
		operandC, operandA, err := p.parseExprUnit(c)
		if err != nil {
			return nil, nil, err
		}
		node := ast.New(ast.UnaryOp, opTok.Pos)
		node.UnaryOperator = opTok.Str
		node.Operand = operandA
		return cst.Rule("ExprUnary", cst.Leaf(opTok), operandC), node, nil
	}
	return p.parseExprUnit(c)
}

// --- ExprUnit ----------------------------------------------------------------

func (p *Parser) parseExprUnit(c ctx) (*cst.Node, *ast.Node, error) {
	switch {
	case p.atKind(token.NAME):
		nameTok := p.advance()
		variable := ast.New(ast.Variable, nameTok.Pos)
		variable.Name = nameTok.Str
		nameExprC, result, err := p.parseNameExpr(c, variable)
		if err != nil {
			return nil, nil, err
		}
		children := []*cst.Node{cst.Leaf(nameTok)}
		if nameExprC != nil {
			children = append(children, nameExprC)
		}
		return cst.Rule("ExprUnit", children...), result, nil

	case p.atBracket("("):
		open := p.advance()
		innerC, innerA, err := p.parseExpr(c)
		if err != nil {
			return nil, nil, err
		}
		close, err := p.expectBracket(")")
		if err != nil {
			return nil, nil, err
		}
		node := ast.New(ast.Expr, open.Pos)
		node.Inner = innerA
		return cst.Rule("ExprUnit", cst.Leaf(open), innerC, cst.Leaf(close)), node, nil

	case p.atBracket("["):
		open := p.advance()
		elemsC, elems, err := p.tryListElems()
		if err != nil {
			return nil, nil, err
		}
		close, err := p.expectBracket("]")
		if err != nil {
			return nil, nil, err
		}
		node := ast.New(ast.List, open.Pos)
		node.Elems = elems
		children := []*cst.Node{cst.Leaf(open)}
		children = append(children, elemsC...)
		children = append(children, cst.Leaf(close))
		return cst.Rule("ExprUnit", children...), node, nil

	case p.atBracket("{"):
		return p.parseBraceLiteral(c)

	case p.atKind(token.STRING):
		tok := p.advance()
		node := ast.New(ast.String, tok.Pos)
		node.StrVal = tok.Str
		return cst.Rule("ExprUnit", cst.Leaf(tok)), node, nil

	case p.atKind(token.NUMBER):
		tok := p.advance()
		node := ast.New(ast.Number, tok.Pos)
		node.NumVal = tok.Num
		return cst.Rule("ExprUnit", cst.Leaf(tok)), node, nil

	case p.atKind(token.BOOL):
		tok := p.advance()
		node := ast.New(ast.Boolean, tok.Pos)
		node.BoolVal = tok.Bool
		return cst.Rule("ExprUnit", cst.Leaf(tok)), node, nil

	default:
		return nil, nil, p.unexpected("an expression")
	}
}

// --- NameExpr: '(' List? ')' | Index* ---------------------------------------
//
// PTAG: an empty NameExpr (no call, no indices) propagates the bare
// variable reference as the atom for the enclosing ExprUnit.

func (p *Parser) parseNameExpr(c ctx, variable *ast.Node) (*cst.Node, *ast.Node, error) {
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
		call := ast.New(ast.FunctionCall, variable.Pos)
		call.Callee = variable
		call.Args = argsA
		children := []*cst.Node{cst.Leaf(open)}
		if argsC != nil {
			children = append(children, argsC)
		}
		children = append(children, cst.Leaf(close))
		return cst.Rule("NameExpr", children...), call, nil
	}

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
	if len(indices) == 0 {
		return nil, variable, nil
	}
	node := ast.New(ast.IndexChain, variable.Pos)
	node.Base = variable
	node.Indices = indices
	return cst.Rule("NameExpr", idxChildren...), node, nil
}

// --- BracExpr: Dict | List ---------------------------------------------------
//
// Open Question (resolved): empty braces {} abstract to an (empty)
// dictionary, matching Python. Otherwise two tokens of lookahead decide:
// STRING followed by MISC(':') means Dict, anything else means List -- and
// a braced List abstracts to a set, not a list, since the brackets used to
// enclose it are the only signal PTAG has for telling "list" from "set"
// apart at this production.

func (p *Parser) parseBraceLiteral(c ctx) (*cst.Node, *ast.Node, error) {
	open := p.advance() // '{'
	if p.atBracket("}") {
		close := p.advance()
		node := ast.New(ast.Dictionary, open.Pos)
		return cst.Rule("ExprUnit", cst.Leaf(open), cst.Leaf(close)), node, nil
	}
	if p.atKind(token.STRING) && p.peekAt(1).Kind == token.MISC && p.peekAt(1).Str == ":" {
		entriesC, entries, err := p.parseDictEntries(c)
		if err != nil {
			return nil, nil, err
		}
		close, err := p.expectBracket("}")
		if err != nil {
			return nil, nil, err
		}
		node := ast.New(ast.Dictionary, open.Pos)
		node.Entries = entries
		children := append([]*cst.Node{cst.Leaf(open)}, entriesC...)
		children = append(children, cst.Leaf(close))
		return cst.Rule("ExprUnit", children...), node, nil
	}
	elemsC, elems, err := p.tryListElems()
	if err != nil {
		return nil, nil, err
	}
	close, err := p.expectBracket("}")
	if err != nil {
		return nil, nil, err
	}
	node := ast.New(ast.Set, open.Pos)
	node.Elems = elems
	children := append([]*cst.Node{cst.Leaf(open)}, elemsC...)
	children = append(children, cst.Leaf(close))
	return cst.Rule("ExprUnit", children...), node, nil
}

func (p *Parser) parseDictEntries(c ctx) ([]*cst.Node, []ast.DictEntry, error) {
	var children []*cst.Node
	var entries []ast.DictEntry
	for {
		keyTok, err := p.expectKind(token.STRING, "a string key")
		if err != nil {
			return nil, nil, err
		}
		key := ast.New(ast.String, keyTok.Pos)
		key.StrVal = keyTok.Str
		colon, err := p.expectMisc(":")
		if err != nil {
			return nil, nil, err
		}
		valC, valA, err := p.parseExpr(c)
		if err != nil {
			return nil, nil, err
		}
		children = append(children, cst.Leaf(keyTok), cst.Leaf(colon), valC)
		entries = append(entries, ast.DictEntry{Key: key, Value: valA})
		if !p.atMisc(",") {
			break
		}
		children = append(children, cst.Leaf(p.advance()))
		if !p.atKind(token.STRING) {
			return nil, nil, p.unexpected("a string key")
		}
	}
	return children, entries, nil
}

// --- List: Expr (',' Expr)* --------------------------------------------------

// tryList attempts an optional comma-separated Expr list (used for call
// arguments), returning a nil AST Arguments node if none was present.
func (p *Parser) tryList() (*cst.Node, *ast.Node, error) {
	elemsC, elems, err := p.tryListElems()
	if err != nil {
		return nil, nil, err
	}
	if elemsC == nil {
		return nil, nil, nil
	}
	node := ast.New(ast.Arguments, elems[0].Pos)
	node.Elems = elems
	return cst.Rule("List", elemsC...), node, nil
}

// tryListElems is the same attempt but returns the raw child/element
// slices, for use by list/set literals which need their own ast.Kind.
func (p *Parser) tryListElems() ([]*cst.Node, []*ast.Node, error) {
	if !p.startsExpr() {
		return nil, nil, nil
	}
	var children []*cst.Node
	var elems []*ast.Node
	for {
		exprC, exprA, err := p.parseExpr(ctx{})
		if err != nil {
			return nil, nil, err
		}
		children = append(children, exprC)
		elems = append(elems, exprA)
		if !p.atMisc(",") {
			break
		}
		children = append(children, cst.Leaf(p.advance()))
	}
	return children, elems, nil
}

// startsExpr is the one-token-lookahead FIRST-set check that makes List? a
// true quantified rollback: if the current token can't possibly start an
// ExprUnit, the list is simply absent and zero tokens are consumed.
func (p *Parser) startsExpr() bool {
	t := p.peek()
	switch t.Kind {
	case token.NAME, token.STRING, token.NUMBER, token.BOOL:
		return true
	case token.BRACKET:
		return t.Str == "(" || t.Str == "[" || t.Str == "{"
	case token.OP:
		return t.Str == "-" || t.Str == "not"
	default:
		return false
	}
}

// --- ParamsList: NAME (',' NAME)* -------------------------------------------

func (p *Parser) tryParamsList() (*cst.Node, *ast.Node, error) {
	if !p.atKind(token.NAME) {
		return nil, nil, nil
	}
	var children []*cst.Node
	var elems []*ast.Node
	for {
		tok, err := p.expectKind(token.NAME, "a parameter name")
		if err != nil {
			return nil, nil, err
		}
		v := ast.New(ast.Variable, tok.Pos)
		v.Name = tok.Str
		children = append(children, cst.Leaf(tok))
		elems = append(elems, v)
		if !p.atMisc(",") {
			break
		}
		children = append(children, cst.Leaf(p.advance()))
	}
	node := ast.New(ast.ParamsList, elems[0].Pos)
	node.Elems = elems
	return cst.Rule("ParamsList", children...), node, nil
}
