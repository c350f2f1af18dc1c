/*
Package artifact serializes the pipeline's intermediate products to the
pdp_out/ directory: the four the design requires (token_stream.txt,
parse_tree.txt, ast.txt, pdp.log) plus two the original implementation
also wrote (symbol_table.txt, bytecode.txt) that this port keeps, since
they're produced almost for free once the symbol table and CodeObject
already exist and they make the pipeline's middle stages inspectable the
same way the first two already are.

Every Write* call truncates and overwrites whatever file was already
there from a previous run.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2024 The PDP Authors.

*/
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdplang/pdp/ast"
	"github.com/pdplang/pdp/compiler"
	"github.com/pdplang/pdp/cst"
	"github.com/pdplang/pdp/symtab"
	"github.com/pdplang/pdp/token"
)

// Dir is the output directory name, relative to the working directory.
const Dir = "pdp_out"

// EnsureDir creates Dir if it does not already exist.
func EnsureDir() error {
	return os.MkdirAll(Dir, 0o755)
}

func write(name, content string) error {
	return os.WriteFile(filepath.Join(Dir, name), []byte(content), 0o644)
}

// WriteTokenStream writes one line per token, in the form
// "<kind>(<value>) @ <row>:<col>".
func WriteTokenStream(toks []token.Token) error {
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(t.String())
		b.WriteByte('\n')
	}
	return write("token_stream.txt", b.String())
}

// WriteParseTree writes the concrete parse tree's indented pretty-print.
func WriteParseTree(root *cst.Node) error {
	return write("parse_tree.txt", root.IndentedString())
}

// WriteAST writes the abstract syntax tree's indented pretty-print.
func WriteAST(root *ast.Node) error {
	return write("ast.txt", root.IndentedString())
}

// WriteSymbolTable writes one indented section per lexical scope, each
// listing its names' classification and slot index.
func WriteSymbolTable(table *symtab.Table) error {
	return write("symbol_table.txt", table.Dump())
}

// WriteBytecode writes a disassembly of code and everything it
// transitively references via MAKE_FUNCTION, one CodeObject per section.
func WriteBytecode(code *compiler.CodeObject) error {
	var b strings.Builder
	seen := map[*compiler.CodeObject]bool{}
	var walk func(c *compiler.CodeObject)
	walk = func(c *compiler.CodeObject) {
		if seen[c] {
			return
		}
		seen[c] = true
		fmt.Fprintf(&b, "CodeObject %s (params=%d locals=%d cells=%d frees=%d generator=%t)\n",
			c.Name, c.ParamCount, c.LocalVarsNum, c.CellVarsNum, c.FreeVarsNum, c.IsGenerator)
		var nested []*compiler.CodeObject
		for i, instr := range c.Code {
			fmt.Fprintf(&b, "  %4d  %s\n", i, disasm(instr))
			if instr.Op == compiler.MakeFunction {
				nested = append(nested, instr.Code)
			}
		}
		b.WriteByte('\n')
		for _, n := range nested {
			walk(n)
		}
	}
	walk(code)
	return write("bytecode.txt", b.String())
}

func disasm(i compiler.Instr) string {
	switch i.Op {
	case compiler.PushNum:
		return fmt.Sprintf("%s %g", i.Op, i.Num)
	case compiler.PushBool:
		return fmt.Sprintf("%s %t", i.Op, i.Bool)
	case compiler.PushStr:
		return fmt.Sprintf("%s %q", i.Op, i.Str)
	case compiler.LoadLocal, compiler.StoreLocal, compiler.LoadCell, compiler.StoreCell, compiler.LoadFree:
		return fmt.Sprintf("%s %d", i.Op, i.Index)
	case compiler.LoadGlobal, compiler.StoreGlobal, compiler.LoadBuiltin, compiler.BinOp, compiler.UnaryOp:
		return fmt.Sprintf("%s %s", i.Op, i.Str)
	case compiler.BuildList, compiler.BuildSet, compiler.BuildDict, compiler.Call:
		return fmt.Sprintf("%s %d", i.Op, i.Index)
	case compiler.Jump, compiler.JumpIfFalse, compiler.JumpIfTrue, compiler.ForIter:
		return fmt.Sprintf("%s -> %d", i.Op, i.Target)
	case compiler.MakeFunction:
		return fmt.Sprintf("%s <%s>", i.Op, i.Code.Name)
	default:
		return i.Op.String()
	}
}
