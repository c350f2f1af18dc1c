package vm

import (
	"github.com/pdplang/pdp/compiler"
	"github.com/pdplang/pdp/object"
)

// Frame is one function activation: its own locals and deref cells, plus
// the instruction pointer into its CodeObject's flat instruction array.
// Unlike the shared eval stack, a frame's locals/cells/frees are private
// to it — closures share cells explicitly, via CapturedCells, never by
// sharing a whole frame.
type Frame struct {
	Code   *compiler.CodeObject
	Locals []object.Object
	Cells  []*object.Cell
	Frees  []*object.Cell
	IP     int
}

// newFrame allocates a fresh activation for code, wiring frees to the
// cells captured when its owning function was built and seeding args into
// Locals or Cells per code.ParamSlots — a parameter symtab promoted to a
// cell (because some nested def captures it) must land in Cells from the
// start, or its captured value would stay None (CPython's MAKE_CELL step).
func newFrame(code *compiler.CodeObject, frees []*object.Cell, args []object.Object) *Frame {
	f := &Frame{
		Code:   code,
		Locals: make([]object.Object, code.LocalVarsNum),
		Cells:  make([]*object.Cell, code.CellVarsNum),
		Frees:  frees,
	}
	for i := range f.Cells {
		f.Cells[i] = &object.Cell{}
	}
	for i, v := range args {
		slot := code.ParamSlots[i]
		if slot.Cell {
			f.Cells[slot.Slot].Value = v
		} else {
			f.Locals[slot.Slot] = v
		}
	}
	return f
}
