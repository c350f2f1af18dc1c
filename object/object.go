/*
Package object defines Object, the tagged runtime value every frame's
locals, cells, frees and eval stack slots hold. As with token.Token and
ast.Node, Object is a flat struct discriminated by a Kind field rather
than an interface hierarchy: the VM's arithmetic and comparison dispatch
is a switch over two Kinds, which stays branch-predictable in the hot
loop in a way a pair of type assertions would not.

Composite kinds (List, Set, Dict, Function) hold their payload behind a
pointer so that copying an Object copies the reference, not the
contents — mutation through one alias is visible through every other,
matching the sharing the design calls for. Scalars (None, Number,
Boolean, String) are plain value fields and copy by value, which is what
Go already does for a struct passed or assigned by value.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2024 The PDP Authors.

*/
package object

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// Kind discriminates the Object variants of §3.
type Kind int8

const (
	NoneKind Kind = iota
	NumberKind
	BooleanKind
	StringKind
	ListKind
	SetKind
	DictKind
	CodeKind
	FunctionKind
	GeneratorKind

	// IteratorKind has no counterpart in the source-level Object variant
	// list: it's what GET_ITER leaves on the eval stack for FOR_ITER to
	// drive. Values of this kind are never reachable from user code —
	// not assignable, not printable — they only ever occupy the one
	// stack slot a for_loop's iteration protocol needs.
	IteratorKind
)

var kindNames = [...]string{
	NoneKind: "None", NumberKind: "Number", BooleanKind: "Boolean", StringKind: "String",
	ListKind: "List", SetKind: "Set", DictKind: "Dict", CodeKind: "Code",
	FunctionKind: "Function", GeneratorKind: "Generator", IteratorKind: "Iterator",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", k)
	}
	return kindNames[k]
}

// Cell is a one-slot mutable container shared by reference between a
// function's captures and the frame that created them.
type Cell struct {
	Value Object
}

// List is the shared, mutable backing store of a list literal.
type List struct {
	Elems []Object
}

// Set is the shared, mutable backing store of a set literal. Membership
// is keyed by each element's Key() so Number/String/Boolean elements
// hash and compare the way Python's immutable scalars do.
type Set struct {
	order []string
	items map[string]Object
}

// NewSet builds an empty set.
func NewSet() *Set {
	return &Set{items: make(map[string]Object)}
}

// Add inserts v, first-insertion order preserved, duplicates ignored.
func (s *Set) Add(v Object) {
	k := v.Key()
	if _, ok := s.items[k]; ok {
		return
	}
	s.order = append(s.order, k)
	s.items[k] = v
}

// Len reports the number of distinct elements.
func (s *Set) Len() int { return len(s.order) }

// Has reports whether key (as produced by Object.Key) is a member.
func (s *Set) Has(key string) bool {
	_, ok := s.items[key]
	return ok
}

// Each walks elements in insertion order.
func (s *Set) Each(f func(Object)) {
	for _, k := range s.order {
		f(s.items[k])
	}
}

// Dict is the shared, mutable backing store of a dict literal, keyed by
// string (the only key type the grammar's BracExpr Dict arm produces).
type Dict struct {
	order []string
	items map[string]Object
}

// NewDict builds an empty dict.
func NewDict() *Dict {
	return &Dict{items: make(map[string]Object)}
}

// Set inserts or overwrites key, preserving first-insertion order.
func (d *Dict) Set(key string, v Object) {
	if _, ok := d.items[key]; !ok {
		d.order = append(d.order, key)
	}
	d.items[key] = v
}

// Get looks up key.
func (d *Dict) Get(key string) (Object, bool) {
	v, ok := d.items[key]
	return v, ok
}

// Len reports the number of keys.
func (d *Dict) Len() int { return len(d.order) }

// Each walks key/value pairs in insertion order.
func (d *Dict) Each(f func(key string, v Object)) {
	for _, k := range d.order {
		f(k, d.items[k])
	}
}

// Keys returns a sorted copy of the dict's keys, used only for
// deterministic diagnostics (e.g. artifact dumps); runtime iteration
// order is always insertion order via Each.
func (d *Dict) Keys() []string {
	ks := make([]string, len(d.order))
	copy(ks, d.order)
	slices.Sort(ks)
	return ks
}

// Function is a callable value: a reference to its compiled code plus
// the cells it captured from its defining frame.
type Function struct {
	Name          string
	ParamCount    int
	Code          interface{} // *compiler.CodeObject; interface{} avoids an import cycle
	CapturedCells []*Cell
	IsGenerator   bool

	// Native is set instead of Code for a builtin: print, range, len,
	// str, int, float, bool. The VM's CALL handler dispatches to it
	// directly rather than pushing a bytecode frame.
	Native func(args []Object) (Object, error)
}

// Generator is the suspended-activation concept the design calls
// FrozenGenerator, realized as a goroutine blocked on a channel receive
// rather than a snapshotted frame: Go has no primitive for capturing and
// replaying a call stack, but a goroutine parked on <-Resume is exactly
// that suspension, for free, from the runtime. package vm owns the
// goroutine and the bytecode frame driving it; this struct is only the
// two-channel handshake the driver (FOR_ITER) and the generator body
// (YIELD) use to hand control and values back and forth one at a time.
type Generator struct {
	Values    chan Object
	Resume    chan struct{}
	Started   bool
	IsDone    bool
	LastValue Object
	Err       error
}

// Iterator is the mutable cursor GET_ITER produces and FOR_ITER advances.
// Elems holds a materialized snapshot for list/set/dict/string sources;
// Gen is set instead when iterating a generator, whose next value can
// only be produced by resuming its frame, something outside this
// package's reach — the VM special-cases a non-nil Gen in its FOR_ITER
// handler rather than calling through an interface here.
type Iterator struct {
	Elems []Object
	Pos   int
	Gen   *Generator
}

// Object is the tagged runtime value.
type Object struct {
	Kind Kind

	Num  float64
	Bool bool
	Str  string

	List *List
	Set  *Set
	Dict *Dict
	Code interface{} // *compiler.CodeObject, when Kind == CodeKind
	Fn   *Function
	Gen  *Generator
	Iter *Iterator
}

// None is the sole instance of the None variant.
var None = Object{Kind: NoneKind}

// Num builds a Number object.
func Num(f float64) Object { return Object{Kind: NumberKind, Num: f} }

// Bool builds a Boolean object.
func Bool(b bool) Object { return Object{Kind: BooleanKind, Bool: b} }

// Str builds a String object.
func Str(s string) Object { return Object{Kind: StringKind, Str: s} }

// Truthy implements the falsy set of §4.5: None, false, 0.0, "", and
// empty List/Set/Dict are falsy, everything else truthy.
func (o Object) Truthy() bool {
	switch o.Kind {
	case NoneKind:
		return false
	case BooleanKind:
		return o.Bool
	case NumberKind:
		return o.Num != 0
	case StringKind:
		return o.Str != ""
	case ListKind:
		return len(o.List.Elems) > 0
	case SetKind:
		return o.Set.Len() > 0
	case DictKind:
		return o.Dict.Len() > 0
	default:
		return true
	}
}

// Key renders a hashable key. Scalar kinds key by value, which is what set
// membership uses (BUILD_SET rejects any other element kind with a
// TypeError). Composite kinds key by the identity of their backing store,
// which the VM's equality falls back on for kinds it does not compare by
// content.
func (o Object) Key() string {
	switch o.Kind {
	case NoneKind:
		return "None"
	case NumberKind:
		return fmt.Sprintf("n:%v", o.Num)
	case BooleanKind:
		return fmt.Sprintf("b:%t", o.Bool)
	case StringKind:
		return "s:" + o.Str
	case SetKind:
		return fmt.Sprintf("set:%p", o.Set)
	case DictKind:
		return fmt.Sprintf("dict:%p", o.Dict)
	case FunctionKind:
		return fmt.Sprintf("fn:%p", o.Fn)
	case GeneratorKind:
		return fmt.Sprintf("gen:%p", o.Gen)
	default:
		return fmt.Sprintf("%p", o.List)
	}
}

// String renders an Object the way `str()`/`print` would.
func (o Object) String() string {
	switch o.Kind {
	case NoneKind:
		return "None"
	case NumberKind:
		return formatNumber(o.Num)
	case BooleanKind:
		if o.Bool {
			return "True"
		}
		return "False"
	case StringKind:
		return o.Str
	case ListKind:
		parts := make([]string, len(o.List.Elems))
		for i, e := range o.List.Elems {
			parts[i] = e.repr()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case SetKind:
		var parts []string
		o.Set.Each(func(e Object) { parts = append(parts, e.repr()) })
		return "{" + strings.Join(parts, ", ") + "}"
	case DictKind:
		var parts []string
		o.Dict.Each(func(k string, v Object) {
			parts = append(parts, fmt.Sprintf("%q: %s", k, v.repr()))
		})
		return "{" + strings.Join(parts, ", ") + "}"
	case FunctionKind:
		return fmt.Sprintf("<function %s>", o.Fn.Name)
	case GeneratorKind:
		return "<generator>"
	case CodeKind:
		return "<code>"
	default:
		return "<?>"
	}
}

func (o Object) repr() string {
	if o.Kind == StringKind {
		return fmt.Sprintf("%q", o.Str)
	}
	return o.String()
}

func formatNumber(f float64) string {
	return fmt.Sprintf("%g", f)
}
