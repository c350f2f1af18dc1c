package vm

import (
	"github.com/pdplang/pdp"
	"github.com/pdplang/pdp/object"
)

func (vm *VM) indexGet(base, idx object.Object, pos pdp.Position) (object.Object, error) {
	switch base.Kind {
	case object.ListKind:
		i, err := listIndex(base.List.Elems, idx, pos)
		if err != nil {
			return object.None, err
		}
		return base.List.Elems[i], nil
	case object.DictKind:
		if idx.Kind != object.StringKind {
			return object.None, &pdp.TypeError{Pos: pos, Reason: "dict keys must be strings"}
		}
		v, ok := base.Dict.Get(idx.Str)
		if !ok {
			return object.None, &pdp.IndexError{Pos: pos, Reason: "key " + idx.Str + " not found"}
		}
		return v, nil
	case object.StringKind:
		runes := []rune(base.Str)
		i, err := intIndex(idx, len(runes), pos)
		if err != nil {
			return object.None, err
		}
		return object.Str(string(runes[i])), nil
	default:
		return object.None, &pdp.TypeError{Pos: pos, Reason: "object of kind " + base.Kind.String() + " is not subscriptable"}
	}
}

func (vm *VM) indexSet(base, idx, val object.Object, pos pdp.Position) error {
	switch base.Kind {
	case object.ListKind:
		i, err := listIndex(base.List.Elems, idx, pos)
		if err != nil {
			return err
		}
		base.List.Elems[i] = val
		return nil
	case object.DictKind:
		if idx.Kind != object.StringKind {
			return &pdp.TypeError{Pos: pos, Reason: "dict keys must be strings"}
		}
		base.Dict.Set(idx.Str, val)
		return nil
	default:
		return &pdp.TypeError{Pos: pos, Reason: "object of kind " + base.Kind.String() + " does not support item assignment"}
	}
}

func listIndex(elems []object.Object, idx object.Object, pos pdp.Position) (int, error) {
	return intIndex(idx, len(elems), pos)
}

func intIndex(idx object.Object, length int, pos pdp.Position) (int, error) {
	if !isNumeric(idx) {
		return 0, &pdp.TypeError{Pos: pos, Reason: "index must be a number, got " + idx.Kind.String()}
	}
	n, _ := numeric(idx)
	i := int(n)
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, &pdp.IndexError{Pos: pos, Reason: "index out of range"}
	}
	return i, nil
}
