/*
Package symtab builds one symbol table per lexical scope (the script scope
and each function body), classifying every name a scope touches as local,
cell, free or global.

The shape here — a Scope tree built by pushing/popping frames during a
tree walk, each scope owning its own table of named symbols — mirrors this
repository's runtime package, generalized from its Tag/SymbolTable pair to
the four-way local/cell/free/global classification closure semantics
demand. Classification is two passes, each over the whole scope tree
(declare, then resolve); turning "free in a nested scope" into "cell in the declaring
scope" needs the full picture of every nested scope's references before it
can commit a local to a cell, so the passes can't be fused into one.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2024 The PDP Authors.

*/
package symtab

import (
	"fmt"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/npillmayer/schuko/tracing"

	"github.com/pdplang/pdp"
	"github.com/pdplang/pdp/ast"
)

// tracer traces with key 'pdp.symtab'.
func tracer() tracing.Trace {
	return tracing.Select("pdp.symtab")
}

// Class is the classification assigned to a name within a scope.
type Class int8

const (
	Local Class = iota
	Cell
	Free
	Global
)

func (c Class) String() string {
	switch c {
	case Local:
		return "local"
	case Cell:
		return "cell"
	case Free:
		return "free"
	case Global:
		return "global"
	default:
		return "?"
	}
}

// Symbol is one name's classification plus its slot index within whichever
// of locals[]/cells[]/frees[] it belongs to.
type Symbol struct {
	Name  string
	Class Class
	Slot  int
}

// Scope is a symbol table attached to one lexical scope (the script, or a
// single function body). Scopes form a tree via Parent, mirroring lexical
// nesting of function_def.
type Scope struct {
	Name   string
	Parent *Scope
	Node   *ast.Node // the script or function_def node this scope covers

	table *linkedhashmap.Map // name -> *Symbol, insertion-ordered

	Locals []string
	Cells  []string
	Frees  []string
}

func newScope(name string, parent *Scope, node *ast.Node) *Scope {
	return &Scope{Name: name, Parent: parent, Node: node, table: linkedhashmap.New()}
}

// Lookup returns the symbol for name if this scope has classified it.
func (s *Scope) Lookup(name string) (*Symbol, bool) {
	v, ok := s.table.Get(name)
	if !ok {
		return nil, false
	}
	return v.(*Symbol), true
}

// Each walks every symbol in declaration order.
func (s *Scope) Each(f func(*Symbol)) {
	it := s.table.Iterator()
	for it.Next() {
		f(it.Value().(*Symbol))
	}
}

func (s *Scope) define(name string, class Class) *Symbol {
	sym := &Symbol{Name: name, Class: class}
	s.table.Put(name, sym)
	return sym
}

func (s *Scope) promote(name string, class Class) {
	v, _ := s.table.Get(name)
	sym := v.(*Symbol)
	sym.Class = class
}

func (s *Scope) slotLists() {
	for _, name := range orderedNamesOfClass(s, Local) {
		s.Locals = append(s.Locals, name)
	}
	for _, name := range orderedNamesOfClass(s, Cell) {
		s.Cells = append(s.Cells, name)
	}
	for _, name := range orderedNamesOfClass(s, Free) {
		s.Frees = append(s.Frees, name)
	}
	assignSlots := func(names []string) {
		for i, name := range names {
			v, _ := s.table.Get(name)
			v.(*Symbol).Slot = i
		}
	}
	assignSlots(s.Locals)
	assignSlots(s.Cells)
	assignSlots(s.Frees)
}

func orderedNamesOfClass(s *Scope, class Class) []string {
	var out []string
	s.Each(func(sym *Symbol) {
		if sym.Class == class {
			out = append(out, sym.Name)
		}
	})
	return out
}

// Table is the full set of scopes produced for one program, indexed by
// their defining AST node so the compiler can look a function's scope up
// while lowering its function_def.
type Table struct {
	Script *Scope
	byNode map[*ast.Node]*Scope
}

// ScopeOf returns the scope whose Node is n (the script node or a
// function_def node).
func (t *Table) ScopeOf(n *ast.Node) *Scope {
	return t.byNode[n]
}

// Build runs the two-pass classification over the whole program, returning
// one Scope per lexical scope, linked into a tree rooted at the script.
//
// The two passes are kept strictly separate across the *entire* tree,
// not interleaved scope by scope: declare first builds every scope (script
// and every nested function_def, however deep) with its locals and
// nested-def names bound, then resolve walks every scope's variable
// references. A name a nested function references before its enclosing
// scope's own declaration of it appears later in source order (a forward
// reference to a sibling statement, e.g. `def inner(): return x` written
// before `x = 5` in the same function body) must still see that
// declaration; fusing declare-then-resolve per scope in source order, as
// a single recursive descent would, resolves the inner scope while the
// outer scope's later statements are still undeclared and misclassifies
// the reference as global instead of cell/free.
func Build(program *ast.Node) (*Table, error) {
	if program.Kind != ast.Script {
		return nil, &pdp.SymbolError{Pos: program.Pos, Reason: "Build called on a non-script root"}
	}
	t := &Table{byNode: make(map[*ast.Node]*Scope)}
	root := newScope("<script>", nil, program)
	t.Script = root
	t.byNode[program] = root

	if err := declareAndRecurse(t, root, program.Stmts); err != nil {
		return nil, err
	}
	if err := resolveAll(t); err != nil {
		return nil, err
	}
	finalize(t, root)
	tracer().Infof("built symbol table for %d scope(s)", len(t.byNode))
	return t, nil
}

// declareAndRecurse is pass 1: declare locals and nested function_defs,
// then recurse into each nested function's own declare pass. It never
// resolves a reference; resolveAll does that once every scope in the
// program exists and has its own declarations complete.
func declareAndRecurse(t *Table, scope *Scope, stmts []*ast.Node) error {
	for _, stmt := range stmts {
		if err := declareStmt(t, scope, stmt); err != nil {
			return err
		}
	}
	return nil
}

func declareStmt(t *Table, scope *Scope, n *ast.Node) error {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case ast.AssignOp:
		if n.Target.Kind == ast.Variable {
			defineIfNew(scope, n.Target.Name)
		}
		// IndexChain targets mutate an existing container; the base name
		// must already be bound (as a local, cell, free or global) and is
		// handled by the resolve pass, not declared here.
	case ast.ForLoop:
		defineIfNew(scope, n.LoopVar)
		if err := declareAndRecurse(t, scope, n.Body.Stmts); err != nil {
			return err
		}
	case ast.IfStmt, ast.WhileLoop:
		if err := declareAndRecurse(t, scope, n.Body.Stmts); err != nil {
			return err
		}
	case ast.FunctionDef:
		defineIfNew(scope, n.Name)
		child := newScope(n.Name, scope, n)
		t.byNode[n] = child
		if n.Params != nil {
			for _, param := range n.Params.Elems {
				child.define(param.Name, Local)
			}
		}
		if err := declareAndRecurse(t, child, n.Body.Stmts); err != nil {
			return err
		}
	}
	return nil
}

// resolveAll runs pass 2 over every scope declareAndRecurse built, in any
// order: by the time this runs, every scope's own local declarations are
// already complete, so a resolveScope call for one scope never depends on
// another scope's resolve having already run — only on declare having
// already run everywhere, which it has.
func resolveAll(t *Table) error {
	for node, scope := range t.byNode {
		if err := resolveScope(scope, stmtsOf(node)); err != nil {
			return err
		}
	}
	return nil
}

// stmtsOf returns the statement list a scope's own resolve pass walks:
// the script's own top-level statements, or a function_def's body.
func stmtsOf(n *ast.Node) []*ast.Node {
	if n.Kind == ast.Script {
		return n.Stmts
	}
	return n.Body.Stmts
}

// declClass is the classification a bare declaration (assign_op LHS,
// for_loop variable, function_def name) receives in scope: the script
// scope has no "local" slots at all — its bindings live in the VM's
// globals map — so every declaration there is Global; a function scope
// declares Local as usual.
func declClass(scope *Scope) Class {
	if scope.Parent == nil {
		return Global
	}
	return Local
}

func defineIfNew(scope *Scope, name string) {
	if _, ok := scope.Lookup(name); !ok {
		scope.define(name, declClass(scope))
	}
}

// resolveScope is pass 2: walk every variable reference in this scope
// (but not into nested function bodies, which resolveAll visits as scopes
// of their own) and classify names that weren't already declared local
// here.
func resolveScope(scope *Scope, stmts []*ast.Node) error {
	for _, stmt := range stmts {
		if err := resolveStmt(scope, stmt); err != nil {
			return err
		}
	}
	return nil
}

func resolveStmt(scope *Scope, n *ast.Node) error {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case ast.AssignOp:
		if n.Target.Kind == ast.IndexChain {
			if err := resolveExpr(scope, n.Target.Base); err != nil {
				return err
			}
			for _, idx := range n.Target.Indices {
				if err := resolveExpr(scope, idx); err != nil {
					return err
				}
			}
		}
		return resolveExpr(scope, n.Value)
	case ast.IfStmt, ast.WhileLoop:
		if err := resolveExpr(scope, n.Cond); err != nil {
			return err
		}
		return resolveScope(scope, n.Body.Stmts)
	case ast.ForLoop:
		if err := resolveExpr(scope, n.Iterable); err != nil {
			return err
		}
		return resolveScope(scope, n.Body.Stmts)
	case ast.ReturnStmt, ast.Yield:
		return resolveExpr(scope, n.Value)
	case ast.FunctionCall:
		return resolveExpr(scope, n)
	case ast.FunctionDef:
		// The function's own body is a separate scope resolveAll visits
		// on its own; nothing in it is walked from here.
		return nil
	}
	return nil
}

// resolveExpr walks an expression tree, resolving every variable reference
// it finds. It is the half of the algorithm that turns an unresolved name
// into free (here) and a cell (in the enclosing scope that owns it).
func resolveExpr(scope *Scope, n *ast.Node) error {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case ast.Variable:
		resolveName(scope, n.Name)
	case ast.Expr:
		return resolveExpr(scope, n.Inner)
	case ast.UnaryOp:
		return resolveExpr(scope, n.Operand)
	case ast.BinaryOpChain:
		if err := resolveExpr(scope, n.Head); err != nil {
			return err
		}
		for _, tail := range n.Tail {
			if err := resolveExpr(scope, tail.Rhs); err != nil {
				return err
			}
		}
	case ast.FunctionCall:
		if err := resolveExpr(scope, n.Callee); err != nil {
			return err
		}
		if n.Args != nil {
			for _, a := range n.Args.Elems {
				if err := resolveExpr(scope, a); err != nil {
					return err
				}
			}
		}
	case ast.IndexChain:
		if err := resolveExpr(scope, n.Base); err != nil {
			return err
		}
		for _, idx := range n.Indices {
			if err := resolveExpr(scope, idx); err != nil {
				return err
			}
		}
	case ast.List, ast.Set:
		for _, e := range n.Elems {
			if err := resolveExpr(scope, e); err != nil {
				return err
			}
		}
	case ast.Dictionary:
		for _, e := range n.Entries {
			if err := resolveExpr(scope, e.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveName implements the classify-outward search: local names need no
// work. Otherwise search enclosing scopes outward. Landing on the script
// scope always yields global, however it got there — the script has no
// cell slots, its bindings live in the VM's globals map — so only the
// scope actually holding the reference is marked global; an intermediate
// function scope the search merely passed through never referenced the
// name itself and gets no entry for it. Landing on a function scope's
// local promotes that local to cell and marks every scope strictly
// between the declaring scope and this one (this one included) as free,
// since each of those scopes does forward the value through its own
// frees[] at runtime. A name that reaches the script scope without being
// declared there is still global — this covers a bare reference to a
// builtin (print, range, ...) exactly as much as a genuinely undefined
// name, at any nesting depth, including the script scope referencing one
// directly (the loop below never runs when scope has no parent, so that
// case falls through to the same scope.define call at the bottom). Global
// therefore doesn't mean "assigned somewhere in the script" — package
// compiler and package vm cooperate to resolve it at runtime, trying
// vm.Globals first and vm.Builtins second, and only report NameError once
// both have missed.
func resolveName(scope *Scope, name string) {
	if _, ok := scope.Lookup(name); ok {
		return // already classified in this scope
	}
	path := []*Scope{scope}
	for s := scope.Parent; s != nil; s = s.Parent {
		if s.Parent == nil { // the script scope
			scope.define(name, Global)
			return
		}
		// A Global entry in an intermediate scope is that scope's own
		// reference to a global, not a binding to capture: search on.
		if sym, ok := s.Lookup(name); ok && sym.Class != Global {
			if sym.Class == Local {
				s.promote(name, Cell)
			}
			for _, between := range path {
				between.define(name, Free)
			}
			return
		}
		path = append(path, s)
	}
	scope.define(name, Global)
}

// finalize assigns dense slot indices across every scope in the table,
// depth-first, and is called once classification is fully settled. It
// must walk every function scope, not just the script: each one owns its
// own locals[]/cells[]/frees[] slot numbering, independent of its
// parent's.
func finalize(t *Table, scope *Scope) {
	scope.slotLists()
	for _, child := range t.byNode {
		if child.Parent == scope {
			finalize(t, child)
		}
	}
}

// Dump renders the whole symbol table the way artifact.WriteSymbolTable
// writes it to disk: one indented section per scope.
func (t *Table) Dump() string {
	var out string
	var walk func(s *Scope, depth int)
	walk = func(s *Scope, depth int) {
		indent := ""
		for i := 0; i < depth; i++ {
			indent += "  "
		}
		out += fmt.Sprintf("%sscope %s\n", indent, s.Name)
		s.Each(func(sym *Symbol) {
			out += fmt.Sprintf("%s  %s: %s[%d]\n", indent, sym.Name, sym.Class, sym.Slot)
		})
	}
	var visit func(s *Scope, depth int)
	visit = func(s *Scope, depth int) {
		walk(s, depth)
		for _, child := range t.byNode {
			if child.Parent == s {
				visit(child, depth+1)
			}
		}
	}
	visit(t.Script, 0)
	return out
}
