/*
Package cst holds the concrete parse tree TPBA builds alongside the AST.
Its nodes mirror the TPG grammar arms directly: every nonterminal becomes
an internal node named after its production, and every terminal becomes a
leaf wrapping the token that matched it. Nothing here is abstracted —
that's PTAG's job, over in package parser — so a cst.Node is emitted if
and only if its grammar arm fully matched.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2024 The PDP Authors.

*/
package cst

import (
	"fmt"
	"strings"

	"github.com/pdplang/pdp/token"
)

// Node is either a nonterminal (Sym set, Children populated) or a leaf
// wrapping a terminal token (Tok set).
type Node struct {
	Sym      string
	Tok      *token.Token
	Children []*Node
}

// Leaf wraps a single matched token.
func Leaf(t token.Token) *Node {
	return &Node{Tok: &t}
}

// Rule builds an internal node for nonterminal sym with the given children.
func Rule(sym string, children ...*Node) *Node {
	return &Node{Sym: sym, Children: children}
}

// IsLeaf reports whether this node wraps a terminal token.
func (n *Node) IsLeaf() bool {
	return n.Tok != nil
}

// IndentedString renders the parse tree as one indented line per node, the
// format written to parse_tree.txt by package artifact.
func (n *Node) IndentedString() string {
	var b strings.Builder
	n.write(&b, 0)
	return b.String()
}

func (n *Node) write(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.IsLeaf() {
		fmt.Fprintf(b, "%s%s\n", indent, n.Tok.String())
		return
	}
	fmt.Fprintf(b, "%s%s\n", indent, n.Sym)
	for _, c := range n.Children {
		c.write(b, depth+1)
	}
}
