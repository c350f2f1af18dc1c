package vm

import (
	"github.com/emirpasic/gods/stacks/arraystack"

	"github.com/pdplang/pdp"
	"github.com/pdplang/pdp/compiler"
	"github.com/pdplang/pdp/object"
)

// makeGenerator builds the Generator object a generator call produces.
// Nothing runs yet: the backing goroutine parks on its first <-Resume
// before touching the frame, so construction alone has no side effects,
// matching Python's lazy generator semantics.
func (vm *VM) makeGenerator(fn *object.Function, args []object.Object) object.Object {
	code := fn.Code.(*compiler.CodeObject)
	frame := newFrame(code, fn.CapturedCells, args)
	gen := &object.Generator{
		Values: make(chan object.Object),
		Resume: make(chan struct{}),
	}
	go vm.runGenerator(gen, frame)
	return object.Object{Kind: object.GeneratorKind, Gen: gen}
}

// runGenerator is the body of the goroutine backing one generator. It
// shares the parent VM's globals and builtins but gets its own frame and
// eval stack, since a generator's activation is independent of whatever
// frame was executing when it was iterated.
func (vm *VM) runGenerator(gen *object.Generator, frame *Frame) {
	<-gen.Resume
	sub := &VM{
		Globals: vm.Globals, Builtins: vm.Builtins, Stdout: vm.Stdout,
		frames: arraystack.New(), stack: arraystack.New(), maxDepth: vm.maxDepth,
		gen: gen,
	}
	if err := sub.pushFrame(frame); err != nil {
		gen.Err = err
		gen.IsDone = true
		close(gen.Values)
		return
	}
	_, err := sub.execute()
	gen.Err = err
	gen.IsDone = true
	close(gen.Values)
}

// yield is reached only inside a generator's own goroutine (CALL never
// runs a generator's body directly; see call in call.go), so vm.gen is
// always set here.
func (vm *VM) yield(frame *Frame) error {
	v := vm.pop()
	vm.gen.LastValue = v
	vm.gen.Values <- v
	<-vm.gen.Resume
	return nil
}

// advanceGenerator asks gen's goroutine for its next value, blocking
// until it yields again or finishes.
func advanceGenerator(gen *object.Generator) (object.Object, bool, error) {
	if gen.IsDone {
		return object.None, false, nil
	}
	gen.Resume <- struct{}{}
	v, ok := <-gen.Values
	if !ok {
		return object.None, false, gen.Err
	}
	return v, true, nil
}

// getIter builds the Iterator object GET_ITER leaves on the stack for a
// source Object, or reports a TypeError if source has no iteration
// protocol.
func (vm *VM) getIter(source object.Object) (object.Object, error) {
	switch source.Kind {
	case object.ListKind:
		elems := make([]object.Object, len(source.List.Elems))
		copy(elems, source.List.Elems)
		return object.Object{Kind: object.IteratorKind, Iter: &object.Iterator{Elems: elems}}, nil
	case object.SetKind:
		var elems []object.Object
		source.Set.Each(func(o object.Object) { elems = append(elems, o) })
		return object.Object{Kind: object.IteratorKind, Iter: &object.Iterator{Elems: elems}}, nil
	case object.DictKind:
		var elems []object.Object
		source.Dict.Each(func(k string, _ object.Object) { elems = append(elems, object.Str(k)) })
		return object.Object{Kind: object.IteratorKind, Iter: &object.Iterator{Elems: elems}}, nil
	case object.StringKind:
		runes := []rune(source.Str)
		elems := make([]object.Object, len(runes))
		for i, r := range runes {
			elems[i] = object.Str(string(r))
		}
		return object.Object{Kind: object.IteratorKind, Iter: &object.Iterator{Elems: elems}}, nil
	case object.GeneratorKind:
		return object.Object{Kind: object.IteratorKind, Iter: &object.Iterator{Gen: source.Gen}}, nil
	default:
		return object.None, &pdp.TypeError{Reason: "object of kind " + source.Kind.String() + " is not iterable"}
	}
}

// forIter advances the Iterator on top of the stack, pushing its next
// value, or popping the exhausted iterator and jumping to instr.Target.
func (vm *VM) forIter(frame *Frame, instr compiler.Instr) (bool, error) {
	it := vm.peek().Iter
	if it.Gen != nil {
		v, ok, err := advanceGenerator(it.Gen)
		if err != nil {
			return false, err
		}
		if !ok {
			vm.pop()
			frame.IP = instr.Target
			return false, nil
		}
		vm.push(v)
		return true, nil
	}
	if it.Pos >= len(it.Elems) {
		vm.pop()
		frame.IP = instr.Target
		return false, nil
	}
	v := it.Elems[it.Pos]
	it.Pos++
	vm.push(v)
	return true, nil
}
