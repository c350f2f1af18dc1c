package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdplang/pdp"
	"github.com/pdplang/pdp/object"
)

// builtinNames lists the seven builtins installBuiltins registers.
// Package compiler does not consult it: it emits LOAD_BUILTIN for any
// global-classified name the script scope has no entry for.
var builtinNames = []string{"print", "range", "len", "str", "int", "float", "bool"}

func nativeFn(name string, fn func(args []object.Object) (object.Object, error)) object.Object {
	return object.Object{Kind: object.FunctionKind, Fn: &object.Function{Name: name, Native: fn}}
}

func (vm *VM) installBuiltins() {
	vm.Builtins["print"] = nativeFn("print", vm.builtinPrint)
	vm.Builtins["range"] = nativeFn("range", builtinRange)
	vm.Builtins["len"] = nativeFn("len", builtinLen)
	vm.Builtins["str"] = nativeFn("str", builtinStr)
	vm.Builtins["int"] = nativeFn("int", builtinInt)
	vm.Builtins["float"] = nativeFn("float", builtinFloat)
	vm.Builtins["bool"] = nativeFn("bool", builtinBool)
}

func (vm *VM) builtinPrint(args []object.Object) (object.Object, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	fmt.Fprintln(vm.Stdout, strings.Join(parts, " "))
	return object.None, nil
}

func builtinRange(args []object.Object) (object.Object, error) {
	var start, stop, step float64 = 0, 0, 1
	switch len(args) {
	case 1:
		stop = args[0].Num
	case 2:
		start, stop = args[0].Num, args[1].Num
	case 3:
		start, stop, step = args[0].Num, args[1].Num, args[2].Num
	default:
		return object.None, &pdp.TypeError{Reason: "range() takes 1 to 3 arguments"}
	}
	if step == 0 {
		return object.None, &pdp.TypeError{Reason: "range() step must not be zero"}
	}
	var elems []object.Object
	if step > 0 {
		for v := start; v < stop; v += step {
			elems = append(elems, object.Num(v))
		}
	} else {
		for v := start; v > stop; v += step {
			elems = append(elems, object.Num(v))
		}
	}
	return object.Object{Kind: object.ListKind, List: &object.List{Elems: elems}}, nil
}

func builtinLen(args []object.Object) (object.Object, error) {
	if len(args) != 1 {
		return object.None, &pdp.TypeError{Reason: "len() takes exactly one argument"}
	}
	switch args[0].Kind {
	case object.StringKind:
		return object.Num(float64(len([]rune(args[0].Str)))), nil
	case object.ListKind:
		return object.Num(float64(len(args[0].List.Elems))), nil
	case object.SetKind:
		return object.Num(float64(args[0].Set.Len())), nil
	case object.DictKind:
		return object.Num(float64(args[0].Dict.Len())), nil
	default:
		return object.None, &pdp.TypeError{Reason: fmt.Sprintf("object of kind %s has no len()", args[0].Kind)}
	}
}

func builtinStr(args []object.Object) (object.Object, error) {
	if len(args) != 1 {
		return object.None, &pdp.TypeError{Reason: "str() takes exactly one argument"}
	}
	return object.Str(args[0].String()), nil
}

func builtinInt(args []object.Object) (object.Object, error) {
	if len(args) != 1 {
		return object.None, &pdp.TypeError{Reason: "int() takes exactly one argument"}
	}
	switch args[0].Kind {
	case object.NumberKind:
		return object.Num(float64(int64(args[0].Num))), nil
	case object.BooleanKind:
		if args[0].Bool {
			return object.Num(1), nil
		}
		return object.Num(0), nil
	case object.StringKind:
		f, err := strconv.ParseFloat(strings.TrimSpace(args[0].Str), 64)
		if err != nil {
			return object.None, &pdp.TypeError{Reason: fmt.Sprintf("invalid literal for int(): %q", args[0].Str)}
		}
		return object.Num(float64(int64(f))), nil
	default:
		return object.None, &pdp.TypeError{Reason: fmt.Sprintf("cannot convert %s to int", args[0].Kind)}
	}
}

func builtinFloat(args []object.Object) (object.Object, error) {
	if len(args) != 1 {
		return object.None, &pdp.TypeError{Reason: "float() takes exactly one argument"}
	}
	switch args[0].Kind {
	case object.NumberKind:
		return args[0], nil
	case object.BooleanKind:
		if args[0].Bool {
			return object.Num(1), nil
		}
		return object.Num(0), nil
	case object.StringKind:
		f, err := strconv.ParseFloat(strings.TrimSpace(args[0].Str), 64)
		if err != nil {
			return object.None, &pdp.TypeError{Reason: fmt.Sprintf("invalid literal for float(): %q", args[0].Str)}
		}
		return object.Num(f), nil
	default:
		return object.None, &pdp.TypeError{Reason: fmt.Sprintf("cannot convert %s to float", args[0].Kind)}
	}
}

func builtinBool(args []object.Object) (object.Object, error) {
	if len(args) != 1 {
		return object.None, &pdp.TypeError{Reason: "bool() takes exactly one argument"}
	}
	return object.Bool(args[0].Truthy()), nil
}
