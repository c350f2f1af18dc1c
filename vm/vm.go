/*
Package vm executes the bytecode package compiler produces: a
register-of-stacks machine with one shared eval stack, a stack of call
frames, cell-variable closures and frozen generators.

The frame stack and eval stack both use gods' array-backed stack
container, the same family runtime/memframe.go in this codebase's
ancestor used for its MemoryFrameStack — Push/Pop/Peek is all either
stack ever needs; nothing here indexes into the middle of one.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2024 The PDP Authors.

*/
package vm

import (
	"io"
	"os"

	"github.com/emirpasic/gods/stacks/arraystack"
	"github.com/npillmayer/schuko/tracing"

	"github.com/pdplang/pdp"
	"github.com/pdplang/pdp/compiler"
	"github.com/pdplang/pdp/object"
)

func tracer() tracing.Trace {
	return tracing.Select("pdp.vm")
}

// VM holds all process-wide interpreter state. One VM runs one program;
// it is not safe for concurrent use, matching the single-threaded
// cooperative scheduling model the design calls for.
type VM struct {
	Globals  map[string]object.Object
	Builtins map[string]object.Object
	Stdout   io.Writer

	frames   *arraystack.Stack
	stack    *arraystack.Stack
	maxDepth int

	// gen is set only on the per-generator sub-VM a goroutine in
	// generator.go runs; it is nil on the main VM a program's script and
	// ordinary function calls execute on.
	gen *object.Generator
}

// New builds a VM with its builtins pre-seeded, ready to Run a script
// CodeObject. maxDepth bounds frame_stack depth before a StackOverflow
// is raised; 0 selects the design's default of 1000.
func New(maxDepth int) *VM {
	if maxDepth <= 0 {
		maxDepth = 1000
	}
	vm := &VM{
		Globals:  make(map[string]object.Object),
		Builtins: make(map[string]object.Object),
		Stdout:   os.Stdout,
		frames:   arraystack.New(),
		stack:    arraystack.New(),
		maxDepth: maxDepth,
	}
	vm.installBuiltins()
	return vm
}

func (vm *VM) push(o object.Object) {
	vm.stack.Push(o)
}

func (vm *VM) pop() object.Object {
	v, _ := vm.stack.Pop()
	return v.(object.Object)
}

func (vm *VM) peek() object.Object {
	v, _ := vm.stack.Peek()
	return v.(object.Object)
}

func (vm *VM) pushFrame(f *Frame) error {
	if vm.frames.Size() >= vm.maxDepth {
		return &pdp.StackOverflowError{Depth: vm.frames.Size()}
	}
	vm.frames.Push(f)
	return nil
}

func (vm *VM) popFrame() *Frame {
	v, _ := vm.frames.Pop()
	return v.(*Frame)
}

func (vm *VM) currentFrame() *Frame {
	v, _ := vm.frames.Peek()
	return v.(*Frame)
}

// Run executes code as the top-level script frame, returning once its
// implicit RETURN is reached. By the time Run returns normally, the
// eval stack and frame stack are both empty, matching §8's invariant for
// any run that terminates.
func (vm *VM) Run(code *compiler.CodeObject) error {
	f := newFrame(code, nil, nil)
	if err := vm.pushFrame(f); err != nil {
		return err
	}
	tracer().Infof("running %q: %d instructions", code.Name, len(code.Code))
	_, err := vm.execute()
	return err
}

// execute drives the frame on top of the frame stack to completion —
// RETURN, a YIELD (handled without ever returning from here; see
// generator.go), or falling off the end of its instructions — and
// returns its value. Every CALL handled by vm.call recurses back into
// execute for the frame it just pushed, so by the time this loop's own
// frame variable stops being the top of the stack, that nested call has
// already resolved and popped itself: frame is always this execute
// invocation's own frame, start to finish.
func (vm *VM) execute() (object.Object, error) {
	frame := vm.currentFrame()
	for {
		if frame.IP >= len(frame.Code.Code) {
			vm.popFrame()
			return object.None, nil
		}
		instr := frame.Code.Code[frame.IP]
		frame.IP++
		done, retVal, err := vm.step(frame, instr)
		if err != nil {
			return object.None, err
		}
		if done {
			vm.popFrame()
			return retVal, nil
		}
	}
}

// step executes one instruction against frame. done reports a RETURN (or
// an exhausted instruction stream, handled by execute's loop instead);
// retVal is only meaningful when done is true.
func (vm *VM) step(frame *Frame, instr compiler.Instr) (bool, object.Object, error) {
	switch instr.Op {
	case compiler.PushNone:
		vm.push(object.None)
	case compiler.PushNum:
		vm.push(object.Num(instr.Num))
	case compiler.PushBool:
		vm.push(object.Bool(instr.Bool))
	case compiler.PushStr:
		vm.push(object.Str(instr.Str))
	case compiler.Pop:
		vm.pop()
	case compiler.Dup:
		vm.push(vm.peek())

	case compiler.LoadLocal:
		vm.push(frame.Locals[instr.Index])
	case compiler.StoreLocal:
		frame.Locals[instr.Index] = vm.pop()
	case compiler.LoadCell:
		vm.push(frame.Cells[instr.Index].Value)
	case compiler.StoreCell:
		frame.Cells[instr.Index].Value = vm.pop()
	case compiler.LoadFree:
		vm.push(frame.Frees[instr.Index].Value)
	case compiler.LoadGlobal:
		v, ok := vm.Globals[instr.Str]
		if !ok {
			v, ok = vm.Builtins[instr.Str]
		}
		if !ok {
			return false, object.None, &pdp.NameError{Pos: instr.Pos, Name: instr.Str}
		}
		vm.push(v)
	case compiler.StoreGlobal:
		vm.Globals[instr.Str] = vm.pop()
	case compiler.LoadBuiltin:
		v, ok := vm.Builtins[instr.Str]
		if !ok {
			return false, object.None, &pdp.NameError{Pos: instr.Pos, Name: instr.Str}
		}
		vm.push(v)

	case compiler.BuildList:
		vm.push(object.Object{Kind: object.ListKind, List: &object.List{Elems: vm.popN(instr.Index)}})
	case compiler.BuildSet:
		elems := vm.popN(instr.Index)
		s := object.NewSet()
		for _, e := range elems {
			switch e.Kind {
			case object.NoneKind, object.NumberKind, object.BooleanKind, object.StringKind:
			default:
				return false, object.None, &pdp.TypeError{Pos: instr.Pos, Reason: "unhashable type: " + e.Kind.String()}
			}
			s.Add(e)
		}
		vm.push(object.Object{Kind: object.SetKind, Set: s})
	case compiler.BuildDict:
		n := instr.Index
		kvs := vm.popN(2 * n)
		d := object.NewDict()
		for i := 0; i < n; i++ {
			key := kvs[2*i]
			val := kvs[2*i+1]
			d.Set(key.Str, val)
		}
		vm.push(object.Object{Kind: object.DictKind, Dict: d})
	case compiler.IndexGet:
		idx := vm.pop()
		base := vm.pop()
		v, err := vm.indexGet(base, idx, instr.Pos)
		if err != nil {
			return false, object.None, err
		}
		vm.push(v)
	case compiler.IndexSet:
		idx := vm.pop()
		base := vm.pop()
		val := vm.pop()
		if err := vm.indexSet(base, idx, val, instr.Pos); err != nil {
			return false, object.None, err
		}

	case compiler.BinOp:
		rhs := vm.pop()
		lhs := vm.pop()
		v, err := vm.binOp(instr.Str, lhs, rhs, instr.Pos)
		if err != nil {
			return false, object.None, err
		}
		vm.push(v)
	case compiler.UnaryOp:
		v, err := vm.unaryOp(instr.Str, vm.pop(), instr.Pos)
		if err != nil {
			return false, object.None, err
		}
		vm.push(v)

	case compiler.Jump:
		frame.IP = instr.Target
	case compiler.JumpIfFalse:
		if !vm.pop().Truthy() {
			frame.IP = instr.Target
		}
	case compiler.JumpIfTrue:
		if vm.pop().Truthy() {
			frame.IP = instr.Target
		}

	case compiler.GetIter:
		it, err := vm.getIter(vm.pop())
		if err != nil {
			return false, object.None, err
		}
		vm.push(it)
	case compiler.ForIter:
		if _, err := vm.forIter(frame, instr); err != nil {
			return false, object.None, err
		}

	case compiler.MakeFunction:
		captured := make([]*object.Cell, len(instr.Captures))
		for i, capt := range instr.Captures {
			if capt.FromFree {
				captured[i] = frame.Frees[capt.Index]
			} else {
				captured[i] = frame.Cells[capt.Index]
			}
		}
		code := instr.Code
		vm.push(object.Object{Kind: object.FunctionKind, Fn: &object.Function{
			Name: code.Name, ParamCount: code.ParamCount, Code: code,
			CapturedCells: captured, IsGenerator: code.IsGenerator,
		}})
	case compiler.Call:
		v, err := vm.call(instr.Index, instr.Pos)
		if err != nil {
			return false, object.None, err
		}
		vm.push(v)
	case compiler.Return:
		return true, vm.pop(), nil

	case compiler.Yield:
		return false, object.None, vm.yield(frame)
	case compiler.Resume:
		// RESUME is driven entirely from forIter/advanceGenerator; it
		// never appears as a free-standing instruction frame.IP reaches
		// on its own.

	default:
		return false, object.None, &pdp.CompileError{Pos: instr.Pos, Reason: "unhandled opcode " + instr.Op.String()}
	}
	return false, object.None, nil
}

// popN pops n values and returns them in the order they were pushed
// (the stack gives them back in reverse).
func (vm *VM) popN(n int) []object.Object {
	out := make([]object.Object, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = vm.pop()
	}
	return out
}
