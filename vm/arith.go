package vm

import (
	"math"
	"strings"

	"github.com/pdplang/pdp"
	"github.com/pdplang/pdp/object"
)

// numeric coerces a scalar usable in arithmetic to a float64: Number
// passes through, Boolean coerces per §4.5 ("mixed number/boolean
// coerces boolean to number").
func numeric(o object.Object) (float64, bool) {
	switch o.Kind {
	case object.NumberKind:
		return o.Num, true
	case object.BooleanKind:
		if o.Bool {
			return 1, false
		}
		return 0, false
	}
	return 0, false
}

func isNumeric(o object.Object) bool {
	return o.Kind == object.NumberKind || o.Kind == object.BooleanKind
}

func (vm *VM) binOp(op string, lhs, rhs object.Object, pos pdp.Position) (object.Object, error) {
	switch op {
	case "+":
		if lhs.Kind == object.StringKind && rhs.Kind == object.StringKind {
			return object.Str(lhs.Str + rhs.Str), nil
		}
		if lhs.Kind == object.ListKind && rhs.Kind == object.ListKind {
			elems := append(append([]object.Object{}, lhs.List.Elems...), rhs.List.Elems...)
			return object.Object{Kind: object.ListKind, List: &object.List{Elems: elems}}, nil
		}
		if isNumeric(lhs) && isNumeric(rhs) {
			a, _ := numeric(lhs)
			b, _ := numeric(rhs)
			return object.Num(a + b), nil
		}
		return object.None, typeErr(pos, "+", lhs, rhs)
	case "-":
		a, b, err := binNumeric(pos, "-", lhs, rhs)
		if err != nil {
			return object.None, err
		}
		return object.Num(a - b), nil
	case "*":
		if lhs.Kind == object.StringKind && isNumeric(rhs) {
			n, _ := numeric(rhs)
			return object.Str(strings.Repeat(lhs.Str, int(n))), nil
		}
		if rhs.Kind == object.StringKind && isNumeric(lhs) {
			n, _ := numeric(lhs)
			return object.Str(strings.Repeat(rhs.Str, int(n))), nil
		}
		a, b, err := binNumeric(pos, "*", lhs, rhs)
		if err != nil {
			return object.None, err
		}
		return object.Num(a * b), nil
	case "/":
		a, b, err := binNumeric(pos, "/", lhs, rhs)
		if err != nil {
			return object.None, err
		}
		if b == 0 {
			return object.None, &pdp.ZeroDivisionError{Pos: pos}
		}
		return object.Num(a / b), nil
	case "//":
		a, b, err := binNumeric(pos, "//", lhs, rhs)
		if err != nil {
			return object.None, err
		}
		if b == 0 {
			return object.None, &pdp.ZeroDivisionError{Pos: pos}
		}
		return object.Num(math.Floor(a / b)), nil
	case "%":
		a, b, err := binNumeric(pos, "%", lhs, rhs)
		if err != nil {
			return object.None, err
		}
		if b == 0 {
			return object.None, &pdp.ZeroDivisionError{Pos: pos}
		}
		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return object.Num(m), nil
	case "**":
		a, b, err := binNumeric(pos, "**", lhs, rhs)
		if err != nil {
			return object.None, err
		}
		if a == 0 && b < 0 {
			return object.None, &pdp.ZeroDivisionError{Pos: pos}
		}
		return object.Num(math.Pow(a, b)), nil
	case "==":
		return object.Bool(equalObjects(lhs, rhs)), nil
	case "!=":
		return object.Bool(!equalObjects(lhs, rhs)), nil
	case "<", "<=", ">", ">=":
		return compareOp(pos, op, lhs, rhs)
	case "and":
		return object.Bool(lhs.Truthy() && rhs.Truthy()), nil
	case "or":
		return object.Bool(lhs.Truthy() || rhs.Truthy()), nil
	case "in":
		return containsOp(lhs, rhs)
	}
	return object.None, &pdp.CompileError{Pos: pos, Reason: "unknown binary operator " + op}
}

func binNumeric(pos pdp.Position, op string, lhs, rhs object.Object) (float64, float64, error) {
	if !isNumeric(lhs) || !isNumeric(rhs) {
		return 0, 0, typeErr(pos, op, lhs, rhs)
	}
	a, _ := numeric(lhs)
	b, _ := numeric(rhs)
	return a, b, nil
}

func typeErr(pos pdp.Position, op string, lhs, rhs object.Object) error {
	return &pdp.TypeError{Pos: pos, Reason: "unsupported operand types for " + op + ": " + lhs.Kind.String() + " and " + rhs.Kind.String()}
}

func equalObjects(a, b object.Object) bool {
	if isNumeric(a) && isNumeric(b) {
		x, _ := numeric(a)
		y, _ := numeric(b)
		return x == y
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case object.NoneKind:
		return true
	case object.StringKind:
		return a.Str == b.Str
	case object.ListKind:
		if len(a.List.Elems) != len(b.List.Elems) {
			return false
		}
		for i := range a.List.Elems {
			if !equalObjects(a.List.Elems[i], b.List.Elems[i]) {
				return false
			}
		}
		return true
	default:
		return a.Key() == b.Key()
	}
}

func compareOp(pos pdp.Position, op string, lhs, rhs object.Object) (object.Object, error) {
	var less, equal bool
	switch {
	case isNumeric(lhs) && isNumeric(rhs):
		a, _ := numeric(lhs)
		b, _ := numeric(rhs)
		less, equal = a < b, a == b
	case lhs.Kind == object.StringKind && rhs.Kind == object.StringKind:
		less, equal = lhs.Str < rhs.Str, lhs.Str == rhs.Str
	default:
		return object.None, typeErr(pos, op, lhs, rhs)
	}
	switch op {
	case "<":
		return object.Bool(less), nil
	case "<=":
		return object.Bool(less || equal), nil
	case ">":
		return object.Bool(!less && !equal), nil
	case ">=":
		return object.Bool(!less), nil
	}
	return object.None, &pdp.CompileError{Pos: pos, Reason: "unknown comparison " + op}
}

func containsOp(item, container object.Object) (object.Object, error) {
	switch container.Kind {
	case object.ListKind:
		for _, e := range container.List.Elems {
			if equalObjects(item, e) {
				return object.Bool(true), nil
			}
		}
		return object.Bool(false), nil
	case object.SetKind:
		return object.Bool(container.Set.Has(item.Key())), nil
	case object.DictKind:
		_, ok := container.Dict.Get(item.Str)
		return object.Bool(ok), nil
	case object.StringKind:
		return object.Bool(strings.Contains(container.Str, item.Str)), nil
	default:
		return object.None, &pdp.TypeError{Reason: "argument of type " + container.Kind.String() + " is not iterable"}
	}
}

func (vm *VM) unaryOp(op string, operand object.Object, pos pdp.Position) (object.Object, error) {
	switch op {
	case "-":
		n, ok := numeric(operand)
		if !ok && !isNumeric(operand) {
			return object.None, &pdp.TypeError{Pos: pos, Reason: "bad operand type for unary -: " + operand.Kind.String()}
		}
		return object.Num(-n), nil
	case "not":
		return object.Bool(!operand.Truthy()), nil
	}
	return object.None, &pdp.CompileError{Pos: pos, Reason: "unknown unary operator " + op}
}
