/*
Package ast defines the abstract syntax tree abstracted from the concrete
parse tree during TPBA (see package parser). The AST is a disjoint union of
the forms named in the design: script, block, if_stmt, while_loop,
for_loop, continue, break, return_stmt, yield, function_def, function_call,
assign_op, variable, expr, unary_op, binary_op_chain, list, set,
dictionary, index_chain, params_list, arguments, number, string, boolean
and empty.

Go has no tagged unions, so — following the same pattern used for
token.Token — Node is one flat struct carrying every field any kind might
need, discriminated by Kind. Most fields are only meaningful for a handful
of kinds; see the per-kind comments below.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2024 The PDP Authors.

*/
package ast

import (
	"fmt"
	"strings"

	"github.com/pdplang/pdp"
)

// Kind discriminates the AST node variants.
type Kind int8

const (
	Script Kind = iota
	Block
	IfStmt
	WhileLoop
	ForLoop
	Continue
	Break
	ReturnStmt
	Yield
	FunctionDef
	FunctionCall
	AssignOp
	Variable
	Expr
	UnaryOp
	BinaryOpChain
	List
	Set
	Dictionary
	IndexChain
	ParamsList
	Arguments
	Number
	String
	Boolean
	Empty
)

var kindNames = [...]string{
	Script: "script", Block: "block", IfStmt: "if_stmt", WhileLoop: "while_loop",
	ForLoop: "for_loop", Continue: "continue", Break: "break", ReturnStmt: "return_stmt",
	Yield: "yield", FunctionDef: "function_def", FunctionCall: "function_call", AssignOp: "assign_op",
	Variable: "variable", Expr: "expr", UnaryOp: "unary_op", BinaryOpChain: "binary_op_chain",
	List: "list", Set: "set", Dictionary: "dictionary", IndexChain: "index_chain",
	ParamsList: "params_list", Arguments: "arguments", Number: "number",
	String: "string", Boolean: "boolean", Empty: "empty",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", k)
	}
	return kindNames[k]
}

// BinOpTail is one link of a binary_op_chain: an operator and its RHS.
type BinOpTail struct {
	Op  string
	Rhs *Node
}

// DictEntry is one key/value pair of a dictionary literal.
type DictEntry struct {
	Key   *Node
	Value *Node
}

// Node is the tagged union of all AST shapes. The leading (row, col) of
// the node's first token is retained in Pos for error messages.
type Node struct {
	Kind Kind
	Pos  pdp.Position

	// Script, Block: ordered statements.
	Stmts []*Node

	// IfStmt, WhileLoop: condition plus body block.
	Cond *Node
	Body *Node

	// ForLoop: loop variable name, iterable expression, body block.
	LoopVar  string
	Iterable *Node

	// ReturnStmt, Yield: value expression (ReturnStmt's may be nil for a
	// bare `return`; Yield's is always present).
	// FunctionDef: Name plus Params. FunctionCall: Args (its callee is in
	// Callee below, not Name).
	// AssignOp: Target plus Op plus Value.
	Name   string
	Value  *Node
	Params *Node // ParamsList
	Args   *Node // Arguments

	// FunctionDef: set once the body is known to contain a yield, marking
	// the function as a generator rather than a plain callable.
	IsGenerator bool

	Target *Node
	Op     string

	// FunctionCall: callee expression.
	Callee *Node

	// Expr: parenthesized grouping, wraps exactly one child.
	Inner *Node

	// UnaryOp: "-" or "not", operand expression.
	UnaryOperator string
	Operand       *Node

	// BinaryOpChain: left-to-right chain, no precedence.
	Head *Node
	Tail []BinOpTail

	// List, Set, ParamsList, Arguments: ordered elements.
	Elems []*Node

	// Dictionary: ordered key/value pairs.
	Entries []DictEntry

	// IndexChain: base expression plus one or more bracketed indices.
	Base    *Node
	Indices []*Node

	// Number, String, Boolean: literal payloads.
	NumVal  float64
	StrVal  string
	BoolVal bool
}

// New builds a bare node of the given kind, positioned at pos.
func New(kind Kind, pos pdp.Position) *Node {
	return &Node{Kind: kind, Pos: pos}
}

// IndentedString renders the AST as one indented line per node, the format
// written to ast.txt by package artifact.
func (n *Node) IndentedString() string {
	var b strings.Builder
	n.write(&b, 0)
	return b.String()
}

func (n *Node) write(b *strings.Builder, depth int) {
	if n == nil {
		fmt.Fprintf(b, "%s<nil>\n", strings.Repeat("  ", depth))
		return
	}
	fmt.Fprintf(b, "%s%s%s\n", strings.Repeat("  ", depth), n.Kind, n.summary())
	for _, c := range n.children() {
		c.write(b, depth+1)
	}
}

func (n *Node) summary() string {
	switch n.Kind {
	case Variable, FunctionDef, FunctionCall:
		return fmt.Sprintf(" %q", n.Name)
	case AssignOp:
		return fmt.Sprintf(" %q", n.Op)
	case UnaryOp:
		return fmt.Sprintf(" %q", n.UnaryOperator)
	case Number:
		return fmt.Sprintf(" %g", n.NumVal)
	case String:
		return fmt.Sprintf(" %q", n.StrVal)
	case Boolean:
		return fmt.Sprintf(" %t", n.BoolVal)
	case ForLoop:
		return fmt.Sprintf(" %q", n.LoopVar)
	default:
		return ""
	}
}

// children enumerates a node's child nodes in the fixed order dictated by
// its kind, for tree-printing and walking.
func (n *Node) children() []*Node {
	var out []*Node
	add := func(c *Node) {
		if c != nil {
			out = append(out, c)
		}
	}
	switch n.Kind {
	case Script, Block:
		out = append(out, n.Stmts...)
	case IfStmt, WhileLoop:
		add(n.Cond)
		add(n.Body)
	case ForLoop:
		add(n.Iterable)
		add(n.Body)
	case ReturnStmt, Yield:
		add(n.Value)
	case FunctionDef:
		add(n.Params)
		add(n.Body)
	case FunctionCall:
		add(n.Callee)
		add(n.Args)
	case AssignOp:
		add(n.Target)
		add(n.Value)
	case Expr:
		add(n.Inner)
	case UnaryOp:
		add(n.Operand)
	case BinaryOpChain:
		add(n.Head)
		for _, t := range n.Tail {
			add(t.Rhs)
		}
	case List, Set, ParamsList, Arguments:
		out = append(out, n.Elems...)
	case Dictionary:
		for _, e := range n.Entries {
			add(e.Key)
			add(e.Value)
		}
	case IndexChain:
		add(n.Base)
		out = append(out, n.Indices...)
	}
	return out
}
