/*
Package compiler lowers an AST, together with the symbol tables built by
package symtab, into one CodeObject of stack-discipline bytecode per
function (plus one for the top-level script). It has no runtime behavior
of its own — package vm owns execution — so its only job is to walk the
tree once, emit instructions in traversal order, and patch forward jump
targets once the instructions they skip over are known.

OpCode, like token.Kind and ast.Kind before it, is a tagged union
flattened into one Instr struct rather than a family of instruction
types; the VM's dispatch loop wants a flat switch on Op, not an interface
type-switch.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2024 The PDP Authors.

*/
package compiler

import (
	"fmt"
	"strings"

	"github.com/npillmayer/schuko/tracing"

	"github.com/pdplang/pdp"
	"github.com/pdplang/pdp/ast"
	"github.com/pdplang/pdp/symtab"
)

func tracer() tracing.Trace {
	return tracing.Select("pdp.compiler")
}

// OpCode discriminates the bytecode instruction variants of §4.4.
type OpCode int8

const (
	PushNone OpCode = iota
	PushNum
	PushBool
	PushStr
	Pop
	Dup

	LoadLocal
	StoreLocal
	LoadCell
	StoreCell
	LoadFree
	LoadGlobal
	StoreGlobal
	LoadBuiltin

	BuildList
	BuildSet
	BuildDict
	IndexGet
	IndexSet

	BinOp
	UnaryOp

	Jump
	JumpIfFalse
	JumpIfTrue

	GetIter
	ForIter

	MakeFunction
	Call
	Return

	Yield
	Resume
)

var opNames = [...]string{
	PushNone: "PUSH_NONE", PushNum: "PUSH_NUM", PushBool: "PUSH_BOOL", PushStr: "PUSH_STR",
	Pop: "POP", Dup: "DUP",
	LoadLocal: "LOAD_LOCAL", StoreLocal: "STORE_LOCAL", LoadCell: "LOAD_CELL",
	StoreCell: "STORE_CELL", LoadFree: "LOAD_FREE", LoadGlobal: "LOAD_GLOBAL",
	StoreGlobal: "STORE_GLOBAL", LoadBuiltin: "LOAD_BUILTIN",
	BuildList: "BUILD_LIST", BuildSet: "BUILD_SET", BuildDict: "BUILD_DICT",
	IndexGet: "INDEX_GET", IndexSet: "INDEX_SET",
	BinOp: "BIN_OP", UnaryOp: "UNARY_OP",
	Jump: "JUMP", JumpIfFalse: "JUMP_IF_FALSE", JumpIfTrue: "JUMP_IF_TRUE",
	GetIter: "GET_ITER", ForIter: "FOR_ITER",
	MakeFunction: "MAKE_FUNCTION", Call: "CALL", Return: "RETURN",
	Yield: "YIELD", Resume: "RESUME",
}

func (op OpCode) String() string {
	if int(op) < 0 || int(op) >= len(opNames) {
		return fmt.Sprintf("OpCode(%d)", op)
	}
	return opNames[op]
}

// Instr is one bytecode instruction. Only the fields relevant to Op are
// meaningful; the comment on each field below names the opcodes using it.
type Instr struct {
	Op  OpCode
	Pos pdp.Position // for runtime error messages

	Num    float64 // PushNum
	Bool   bool    // PushBool
	Str    string  // PushStr, LoadGlobal/StoreGlobal/LoadBuiltin name, BinOp/UnaryOp operator
	Index  int     // Load/StoreLocal/Cell, LoadFree, Build*(n), Call(argc)
	Target int     // Jump*, ForIter end target

	Code     *CodeObject // MakeFunction
	Captures []Capture   // MakeFunction: where each capture comes from in the defining frame
}

// Capture identifies one cell a MAKE_FUNCTION pulls from its defining
// frame. A capture whose name is Cell in the immediately enclosing scope
// comes from that frame's cells[]; one that's merely Free there (the
// cell actually lives further out, and this frame only forwards it) comes
// from the frame's own frees[] instead — the same cell pointer, handed
// down one more level.
type Capture struct {
	FromFree bool
	Index    int
}

// ParamSlot locates where CALL must store one positional argument: a
// parameter symtab classified Local lands in the frame's Locals array, but
// one a nested closure captures — promoted to Cell during resolution —
// must land in Cells instead, since LOAD_CELL/STORE_CELL and the capture
// mechanism only ever look there.
type ParamSlot struct {
	Cell bool
	Slot int
}

// CodeObject is the immutable result of compiling one function (or the
// top-level script). It holds no mutable state; every frame built from it
// gets its own locals/cells/frees arrays sized by the counts here.
type CodeObject struct {
	Name         string
	ParamCount   int
	ParamSlots   []ParamSlot
	LocalVarsNum int
	CellVarsNum  int
	FreeVarsNum  int
	IsGenerator  bool
	Code         []Instr
}

// Compile lowers a fully symbol-resolved program into its script
// CodeObject. Every nested function_def becomes its own CodeObject,
// reachable transitively through MAKE_FUNCTION instructions.
func Compile(program *ast.Node, table *symtab.Table) (*CodeObject, error) {
	scope := table.ScopeOf(program)
	c := &fnCompiler{table: table, scope: scope}
	if err := c.stmts(program.Stmts); err != nil {
		return nil, err
	}
	tracer().Infof("compiled script: %d instructions", len(c.code))
	return &CodeObject{
		Name:         "<script>",
		LocalVarsNum: len(scope.Locals),
		CellVarsNum:  len(scope.Cells),
		FreeVarsNum:  len(scope.Frees),
		Code:         c.code,
	}, nil
}

// loopCtx tracks the patch points a break/continue inside the loop body
// needs: continue jumps straight to top (already known); break jumps
// forward to end (for a for_loop, to the POP of the iterator just before
// end), whose address isn't known until the loop is fully
// compiled, so its Jump instructions are collected here and patched once
// end is known.
type loopCtx struct {
	top      int
	breaks   []int
}

// fnCompiler compiles exactly one CodeObject (the script, or one
// function_def's body); nested function_defs get their own fnCompiler.
type fnCompiler struct {
	table     *symtab.Table
	scope     *symtab.Scope
	code      []Instr
	loopStack []loopCtx
}

func (c *fnCompiler) emit(i Instr) int {
	c.code = append(c.code, i)
	return len(c.code) - 1
}

func (c *fnCompiler) here() int {
	return len(c.code)
}

func (c *fnCompiler) patch(idx, target int) {
	c.code[idx].Target = target
}

func (c *fnCompiler) stmts(stmts []*ast.Node) error {
	for _, s := range stmts {
		if err := c.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *fnCompiler) stmt(n *ast.Node) error {
	switch n.Kind {
	case ast.AssignOp:
		return c.compileAssign(n)
	case ast.IfStmt:
		return c.compileIf(n)
	case ast.WhileLoop:
		return c.compileWhile(n)
	case ast.ForLoop:
		return c.compileFor(n)
	case ast.Continue:
		if len(c.loopStack) == 0 {
			return &pdp.CompileError{Pos: n.Pos, Reason: "continue outside loop"}
		}
		top := c.loopStack[len(c.loopStack)-1].top
		c.emit(Instr{Op: Jump, Pos: n.Pos, Target: top})
		return nil
	case ast.Break:
		if len(c.loopStack) == 0 {
			return &pdp.CompileError{Pos: n.Pos, Reason: "break outside loop"}
		}
		idx := c.emit(Instr{Op: Jump, Pos: n.Pos})
		top := len(c.loopStack) - 1
		c.loopStack[top].breaks = append(c.loopStack[top].breaks, idx)
		return nil
	case ast.ReturnStmt:
		if n.Value != nil {
			if err := c.expr(n.Value); err != nil {
				return err
			}
		} else {
			c.emit(Instr{Op: PushNone, Pos: n.Pos})
		}
		c.emit(Instr{Op: Return, Pos: n.Pos})
		return nil
	case ast.Yield:
		if err := c.expr(n.Value); err != nil {
			return err
		}
		c.emit(Instr{Op: Yield, Pos: n.Pos})
		return nil
	case ast.FunctionDef:
		return c.compileFunctionDef(n)
	case ast.FunctionCall:
		if err := c.expr(n); err != nil {
			return err
		}
		c.emit(Instr{Op: Pop, Pos: n.Pos})
		return nil
	default:
		return &pdp.CompileError{Pos: n.Pos, Reason: fmt.Sprintf("%s is not a statement", n.Kind)}
	}
}

// compileAssign lowers assign_op. A compound operator (+=, -=, *=, /=,
// //=, %=, **=) reads the target's current value, combines it with the
// RHS via the corresponding BIN_OP, and stores the result — the target
// location's base/index expressions are therefore evaluated twice (once
// to read, once to write) rather than cached in a temporary, since
// nothing below package compiler has a spare slot to cache them in; this
// is only observable if a base or index expression has a side effect,
// which none of the builtins or grammar productions in scope produce.
func (c *fnCompiler) compileAssign(n *ast.Node) error {
	op := augmentedOp(n.Op)

	if n.Target.Kind == ast.IndexChain {
		base := n.Target.Base
		indices := n.Target.Indices
		if op != "" {
			if err := c.expr(base); err != nil {
				return err
			}
			for _, idx := range indices {
				if err := c.expr(idx); err != nil {
					return err
				}
				c.emit(Instr{Op: IndexGet, Pos: n.Pos})
			}
			if err := c.expr(n.Value); err != nil {
				return err
			}
			c.emit(Instr{Op: BinOp, Pos: n.Pos, Str: op})
		} else if err := c.expr(n.Value); err != nil {
			return err
		}
		if err := c.expr(base); err != nil {
			return err
		}
		for i, idx := range indices {
			if i == len(indices)-1 {
				if err := c.expr(idx); err != nil {
					return err
				}
				c.emit(Instr{Op: IndexSet, Pos: n.Pos})
				return nil
			}
			if err := c.expr(idx); err != nil {
				return err
			}
			c.emit(Instr{Op: IndexGet, Pos: n.Pos})
		}
		return nil
	}

	if op != "" {
		if err := c.loadName(n.Target.Name, n.Pos); err != nil {
			return err
		}
		if err := c.expr(n.Value); err != nil {
			return err
		}
		c.emit(Instr{Op: BinOp, Pos: n.Pos, Str: op})
	} else if err := c.expr(n.Value); err != nil {
		return err
	}
	return c.storeName(n.Target.Name, n.Pos)
}

// augmentedOp returns the arithmetic operator a compound assignment
// operator (e.g. "+=") combines with, or "" for plain "=".
func augmentedOp(op string) string {
	if op == "=" {
		return ""
	}
	return strings.TrimSuffix(op, "=")
}

func (c *fnCompiler) storeName(name string, pos pdp.Position) error {
	sym, ok := c.scope.Lookup(name)
	if !ok {
		return &pdp.CompileError{Pos: pos, Reason: fmt.Sprintf("unresolved name %q", name)}
	}
	switch sym.Class {
	case symtab.Local:
		c.emit(Instr{Op: StoreLocal, Pos: pos, Index: sym.Slot})
	case symtab.Cell:
		c.emit(Instr{Op: StoreCell, Pos: pos, Index: sym.Slot})
	case symtab.Free:
		return &pdp.CompileError{Pos: pos, Reason: fmt.Sprintf("cannot assign free variable %q", name)}
	case symtab.Global:
		c.emit(Instr{Op: StoreGlobal, Pos: pos, Str: name})
	}
	return nil
}

func (c *fnCompiler) loadName(name string, pos pdp.Position) error {
	sym, ok := c.scope.Lookup(name)
	if !ok {
		return &pdp.CompileError{Pos: pos, Reason: fmt.Sprintf("unresolved name %q", name)}
	}
	switch sym.Class {
	case symtab.Local:
		c.emit(Instr{Op: LoadLocal, Pos: pos, Index: sym.Slot})
	case symtab.Cell:
		c.emit(Instr{Op: LoadCell, Pos: pos, Index: sym.Slot})
	case symtab.Free:
		c.emit(Instr{Op: LoadFree, Pos: pos, Index: sym.Slot})
	case symtab.Global:
		if _, declared := c.table.Script.Lookup(name); declared {
			c.emit(Instr{Op: LoadGlobal, Pos: pos, Str: name})
		} else {
			c.emit(Instr{Op: LoadBuiltin, Pos: pos, Str: name})
		}
	}
	return nil
}

func (c *fnCompiler) compileIf(n *ast.Node) error {
	if err := c.expr(n.Cond); err != nil {
		return err
	}
	jf := c.emit(Instr{Op: JumpIfFalse, Pos: n.Pos})
	if err := c.stmts(n.Body.Stmts); err != nil {
		return err
	}
	c.patch(jf, c.here())
	return nil
}

func (c *fnCompiler) compileWhile(n *ast.Node) error {
	top := c.here()
	if err := c.expr(n.Cond); err != nil {
		return err
	}
	jf := c.emit(Instr{Op: JumpIfFalse, Pos: n.Pos})
	c.loopStack = append(c.loopStack, loopCtx{top: top})
	if err := c.stmts(n.Body.Stmts); err != nil {
		return err
	}
	c.emit(Instr{Op: Jump, Pos: n.Pos, Target: top})
	end := c.here()
	c.patch(jf, end)
	c.finishLoop(end)
	return nil
}

func (c *fnCompiler) compileFor(n *ast.Node) error {
	if err := c.expr(n.Iterable); err != nil {
		return err
	}
	c.emit(Instr{Op: GetIter, Pos: n.Pos})
	top := c.here()
	fi := c.emit(Instr{Op: ForIter, Pos: n.Pos})
	if err := c.storeName(n.LoopVar, n.Pos); err != nil {
		return err
	}
	c.loopStack = append(c.loopStack, loopCtx{top: top})
	if err := c.stmts(n.Body.Stmts); err != nil {
		return err
	}
	c.emit(Instr{Op: Jump, Pos: n.Pos, Target: top})
	// FOR_ITER pops the iterator itself on exhaustion; a break leaves it on
	// the stack, so breaks land on this POP, just before end.
	breakTarget := c.emit(Instr{Op: Pop, Pos: n.Pos})
	end := c.here()
	c.patch(fi, end)
	c.finishLoop(breakTarget)
	return nil
}

func (c *fnCompiler) finishLoop(end int) {
	top := len(c.loopStack) - 1
	for _, idx := range c.loopStack[top].breaks {
		c.patch(idx, end)
	}
	c.loopStack = c.loopStack[:top]
}

func (c *fnCompiler) compileFunctionDef(n *ast.Node) error {
	childScope := c.table.ScopeOf(n)
	child := &fnCompiler{table: c.table, scope: childScope}
	// Parameters are stored into locals/cells by the VM's CALL handler
	// before the frame's first instruction runs (see ParamSlots below), so
	// they need no bytecode here.
	if err := child.stmts(n.Body.Stmts); err != nil {
		return err
	}
	paramSlots, err := paramSlots(childScope, n)
	if err != nil {
		return err
	}
	code := &CodeObject{
		Name:         n.Name,
		ParamCount:   paramCount(n),
		ParamSlots:   paramSlots,
		LocalVarsNum: len(childScope.Locals),
		CellVarsNum:  len(childScope.Cells),
		FreeVarsNum:  len(childScope.Frees),
		IsGenerator:  n.IsGenerator,
		Code:         child.code,
	}

	captures := make([]Capture, len(childScope.Frees))
	for i, name := range childScope.Frees {
		sym, ok := c.scope.Lookup(name)
		if !ok {
			return &pdp.CompileError{Pos: n.Pos, Reason: fmt.Sprintf("free variable %q has no enclosing binding", name)}
		}
		switch sym.Class {
		case symtab.Cell:
			captures[i] = Capture{Index: sym.Slot}
		case symtab.Free:
			captures[i] = Capture{FromFree: true, Index: sym.Slot}
		default:
			return &pdp.CompileError{Pos: n.Pos, Reason: fmt.Sprintf("free variable %q resolved to %s, not cell or free", name, sym.Class)}
		}
	}

	c.emit(Instr{Op: MakeFunction, Pos: n.Pos, Code: code, Captures: captures})
	return c.storeName(n.Name, n.Pos)
}

// paramSlots locates, for each parameter in declaration order, where CALL
// must copy its argument: a parameter symtab left classified Local stays
// in Locals, but one promoted to Cell (a nested def captures it) must be
// seeded into Cells instead — mirroring CPython's MAKE_CELL step for
// cell-backed parameters.
func paramSlots(scope *symtab.Scope, n *ast.Node) ([]ParamSlot, error) {
	if n.Params == nil {
		return nil, nil
	}
	slots := make([]ParamSlot, len(n.Params.Elems))
	for i, param := range n.Params.Elems {
		sym, ok := scope.Lookup(param.Name)
		if !ok {
			return nil, &pdp.CompileError{Pos: n.Pos, Reason: fmt.Sprintf("parameter %q has no symbol", param.Name)}
		}
		switch sym.Class {
		case symtab.Cell:
			slots[i] = ParamSlot{Cell: true, Slot: sym.Slot}
		case symtab.Local:
			slots[i] = ParamSlot{Slot: sym.Slot}
		default:
			return nil, &pdp.CompileError{Pos: n.Pos, Reason: fmt.Sprintf("parameter %q resolved to %s, not local or cell", param.Name, sym.Class)}
		}
	}
	return slots, nil
}

func paramCount(n *ast.Node) int {
	if n.Params == nil {
		return 0
	}
	return len(n.Params.Elems)
}

func (c *fnCompiler) expr(n *ast.Node) error {
	switch n.Kind {
	case ast.Number:
		c.emit(Instr{Op: PushNum, Pos: n.Pos, Num: n.NumVal})
	case ast.String:
		c.emit(Instr{Op: PushStr, Pos: n.Pos, Str: n.StrVal})
	case ast.Boolean:
		c.emit(Instr{Op: PushBool, Pos: n.Pos, Bool: n.BoolVal})
	case ast.Variable:
		return c.loadName(n.Name, n.Pos)
	case ast.Expr:
		return c.expr(n.Inner)
	case ast.UnaryOp:
		if err := c.expr(n.Operand); err != nil {
			return err
		}
		c.emit(Instr{Op: UnaryOp, Pos: n.Pos, Str: n.UnaryOperator})
	case ast.BinaryOpChain:
		if err := c.expr(n.Head); err != nil {
			return err
		}
		for _, tail := range n.Tail {
			if err := c.expr(tail.Rhs); err != nil {
				return err
			}
			c.emit(Instr{Op: BinOp, Pos: n.Pos, Str: tail.Op})
		}
	case ast.List:
		for _, e := range n.Elems {
			if err := c.expr(e); err != nil {
				return err
			}
		}
		c.emit(Instr{Op: BuildList, Pos: n.Pos, Index: len(n.Elems)})
	case ast.Set:
		for _, e := range n.Elems {
			if err := c.expr(e); err != nil {
				return err
			}
		}
		c.emit(Instr{Op: BuildSet, Pos: n.Pos, Index: len(n.Elems)})
	case ast.Dictionary:
		for _, e := range n.Entries {
			if err := c.expr(e.Key); err != nil {
				return err
			}
			if err := c.expr(e.Value); err != nil {
				return err
			}
		}
		c.emit(Instr{Op: BuildDict, Pos: n.Pos, Index: len(n.Entries)})
	case ast.IndexChain:
		if err := c.expr(n.Base); err != nil {
			return err
		}
		for _, idx := range n.Indices {
			if err := c.expr(idx); err != nil {
				return err
			}
			c.emit(Instr{Op: IndexGet, Pos: n.Pos})
		}
	case ast.FunctionCall:
		if err := c.expr(n.Callee); err != nil {
			return err
		}
		var argc int
		if n.Args != nil {
			argc = len(n.Args.Elems)
			for _, a := range n.Args.Elems {
				if err := c.expr(a); err != nil {
					return err
				}
			}
		}
		c.emit(Instr{Op: Call, Pos: n.Pos, Index: argc})
	default:
		return &pdp.CompileError{Pos: n.Pos, Reason: fmt.Sprintf("%s is not an expression", n.Kind)}
	}
	return nil
}
