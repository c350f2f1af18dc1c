package object

import "testing"

func TestTruthyFalsySet(t *testing.T) {
	falsy := []Object{
		None, Bool(false), Num(0), Str(""),
		{Kind: ListKind, List: &List{}},
		{Kind: SetKind, Set: NewSet()},
		{Kind: DictKind, Dict: NewDict()},
	}
	for _, o := range falsy {
		if o.Truthy() {
			t.Errorf("%v (%s) should be falsy", o, o.Kind)
		}
	}
	truthy := []Object{
		Bool(true), Num(1), Num(-1), Str("a"),
		{Kind: ListKind, List: &List{Elems: []Object{Num(1)}}},
	}
	for _, o := range truthy {
		if !o.Truthy() {
			t.Errorf("%v (%s) should be truthy", o, o.Kind)
		}
	}
}

func TestDictPreservesInsertionOrder(t *testing.T) {
	d := NewDict()
	d.Set("b", Num(2))
	d.Set("a", Num(1))
	d.Set("c", Num(3))
	var order []string
	d.Each(func(k string, _ Object) { order = append(order, k) })
	want := []string{"b", "a", "c"}
	for i, k := range want {
		if order[i] != k {
			t.Errorf("iteration order = %v, want %v", order, want)
		}
	}
}

func TestDictOverwritePreservesFirstInsertionPosition(t *testing.T) {
	d := NewDict()
	d.Set("a", Num(1))
	d.Set("b", Num(2))
	d.Set("a", Num(99))
	var order []string
	d.Each(func(k string, _ Object) { order = append(order, k) })
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("order = %v, want [a b] (overwrite must not move a to the end)", order)
	}
	v, _ := d.Get("a")
	if v.Num != 99 {
		t.Errorf("a = %v, want 99", v)
	}
}

func TestSetAddIgnoresDuplicates(t *testing.T) {
	s := NewSet()
	s.Add(Num(1))
	s.Add(Num(1))
	s.Add(Num(2))
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestStringRenderingMatchesPythonLiterals(t *testing.T) {
	cases := []struct {
		o    Object
		want string
	}{
		{None, "None"},
		{Bool(true), "True"},
		{Bool(false), "False"},
		{Num(3), "3"},
		{Num(3.5), "3.5"},
		{Str("hi"), "hi"},
	}
	for _, c := range cases {
		if got := c.o.String(); got != c.want {
			t.Errorf("%s.String() = %q, want %q", c.o.Kind, got, c.want)
		}
	}
}
