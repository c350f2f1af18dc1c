package vm

import (
	"github.com/pdplang/pdp"
	"github.com/pdplang/pdp/compiler"
	"github.com/pdplang/pdp/object"
)

// call implements CALL(argc): pop the callee and its argc arguments (in
// source order), and either run a native builtin, start a generator, or
// push a fresh bytecode frame and drive it to its RETURN before
// returning control (and its value) to the caller's frame.
func (vm *VM) call(argc int, pos pdp.Position) (object.Object, error) {
	args := vm.popN(argc)
	callee := vm.pop()
	if callee.Kind != object.FunctionKind {
		return object.None, &pdp.TypeError{Pos: pos, Reason: "object of kind " + callee.Kind.String() + " is not callable"}
	}
	fn := callee.Fn
	if fn.Native != nil {
		return fn.Native(args)
	}
	if fn.IsGenerator {
		return vm.makeGenerator(fn, args), nil
	}
	code := fn.Code.(*compiler.CodeObject)
	frame := newFrame(code, fn.CapturedCells, args)
	if err := vm.pushFrame(frame); err != nil {
		return object.None, err
	}
	return vm.execute()
}
