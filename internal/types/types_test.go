package types

import "testing"

func TestAcceptReflexiveAndDynamic(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	arr := in.Array(b.Int)
	fn := in.Func([]TypeID{b.Int, b.String}, false, b.Real)
	st := in.Struct(Field{Name: "x", Type: b.Int})

	for _, id := range []TypeID{b.Bool, b.Int, b.Real, b.String, b.Handle, arr, fn, st, b.Dynamic} {
		if !in.Accept(id, id) {
			t.Errorf("Accept(%s, %s) = false, want reflexive", in.Format(id), in.Format(id))
		}
		if !in.Accept(b.Dynamic, id) {
			t.Errorf("dynamic rejected %s", in.Format(id))
		}
	}
}

func TestPendingNeverAccepted(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	nested := in.Array(b.Pending)
	for _, other := range []TypeID{b.Int, b.Dynamic, b.Pending, nested} {
		if in.Accept(b.Pending, other) || in.Accept(other, b.Pending) {
			t.Errorf("pending satisfied Accept against %s", in.Format(other))
		}
	}
	if in.Accept(nested, nested) {
		t.Errorf("array<pending> accepted itself")
	}
	if in.IsSame(b.Pending, b.Pending) {
		t.Errorf("IsSame(pending, pending) must be false")
	}
}

func TestInternIsStructural(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if in.Map(b.String, in.Array(b.Int)) != in.Map(b.String, in.Array(b.Int)) {
		t.Fatalf("equal structures interned twice")
	}
	base := in.Struct(Field{Name: "x", Type: b.Int})
	p1 := in.Named(base, 10, "Point", nil)
	p2 := in.Named(base, 11, "Other", nil)
	if p1 == p2 || p1 == base {
		t.Fatalf("named types must be distinct from each other and their structure")
	}
	if in.Underlying(p1) != base {
		t.Fatalf("Underlying lost structure")
	}
	if in.Accept(p1, base) || in.ImplicitCast(base, p1) {
		t.Fatalf("named type accepted its structure implicitly")
	}
	if !in.ExplicitCast(base, p1) || !in.ExplicitCast(p1, p2) {
		t.Fatalf("explicit cast between named type and structure rejected")
	}
}

func TestCastTables(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	cases := []struct {
		from, to           TypeID
		implicit, explicit bool
	}{
		{b.Int, b.Real, true, true},
		{b.Real, b.Int, true, true},
		{b.Int, b.String, true, true},
		{b.String, b.Int, false, true},
		{b.Bool, b.Int, false, true},
		{b.String, b.Handle, false, false},
		{b.Dynamic, b.Int, true, true},
		{b.Int, b.Dynamic, true, true},
		{in.Array(b.Int), b.String, false, false},
		{b.Void, b.Dynamic, false, false},
	}
	for _, c := range cases {
		if got := in.ImplicitCast(c.from, c.to); got != c.implicit {
			t.Errorf("ImplicitCast(%s, %s) = %v", in.Format(c.from), in.Format(c.to), got)
		}
		if got := in.ExplicitCast(c.from, c.to); got != c.explicit {
			t.Errorf("ExplicitCast(%s, %s) = %v", in.Format(c.from), in.Format(c.to), got)
		}
	}
}

func TestBinaryUpper(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	cases := []struct {
		class OpClass
		l, r  TypeID
		want  TypeID
		ok    bool
	}{
		{ClassAdd, b.Int, b.Int, b.Int, true},
		{ClassAdd, b.Int, b.Real, b.Real, true},
		{ClassAdd, b.String, b.Int, b.String, true},
		{ClassArith, b.String, b.Int, NoTypeID, false},
		{ClassOrdering, b.String, b.String, b.Bool, true},
		{ClassLogical, b.Bool, b.Int, NoTypeID, false},
		{ClassBitwise, b.Dynamic, b.Int, b.Dynamic, true},
		{ClassEquality, b.Dynamic, b.Int, b.Bool, true},
	}
	for _, c := range cases {
		got, ok := in.BinaryUpper(c.class, c.l, c.r)
		if got != c.want || ok != c.ok {
			t.Errorf("BinaryUpper(%d, %s, %s) = %s, %v", c.class, in.Format(c.l), in.Format(c.r), in.Format(got), ok)
		}
	}
	named := in.Named(in.Struct(Field{Name: "v", Type: b.Int}), 3, "Vec", nil)
	if _, ok := in.BinaryUpper(ClassAdd, named, named); ok {
		t.Errorf("named operands must defer to operator overloading")
	}
}

func TestHasherProbesCollisions(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	h := NewHasher(in)

	if h.Key([]TypeID{b.Int}) != h.Key([]TypeID{b.Int}) {
		t.Fatalf("key not stable")
	}
	if h.Key([]TypeID{b.Int}) == h.Key([]TypeID{b.Real}) {
		t.Fatalf("distinct types share a key")
	}

	// Force a collision: pretend Real already owns Int's fingerprint.
	h2 := NewHasher(in)
	v := h2.Structural(b.Int)
	h2.table[v] = b.Real
	if got := h2.Hash(b.Int); got == v {
		t.Fatalf("collision was not probed")
	}
	if h2.Hash(b.Int) != h2.Hash(b.Int) {
		t.Fatalf("probed hash not memoized")
	}
}
