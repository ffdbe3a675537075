package symbols

import (
	"testing"

	"loom/internal/source"
)

func declareVar(t *testing.T, tbl *Table, scope ScopeID, name string, seq uint32) SymbolID {
	t.Helper()
	id, prev := tbl.Declare(scope, Symbol{Name: tbl.Strings.Intern(name), Kind: KindVariable, Seq: seq})
	if prev != NoSymbolID {
		t.Fatalf("unexpected redefinition of %s", name)
	}
	return id
}

func TestBlockShadowingAndSlotReuse(t *testing.T) {
	tbl := NewTable(nil)
	fnScope := tbl.NewScope(ScopeFunction, tbl.Root, "", source.Span{})

	outer := declareVar(t, tbl, fnScope, "x", 1)
	tbl.Symbol(outer).Storage, _ = tbl.AllocLocal(fnScope)

	block := tbl.NewScope(ScopeBlock, fnScope, "", source.Span{})
	tbl.EnterBlock(block)
	inner := declareVar(t, tbl, block, "x", 2)
	tbl.Symbol(inner).Storage, _ = tbl.AllocLocal(block)

	if got := tbl.Lookup(Query{From: block, Seq: 3}, "x"); got.Symbol != inner {
		t.Fatalf("block local did not shadow outer: got %d want %d", got.Symbol, inner)
	}
	innerSlot := tbl.Symbol(inner).Storage
	tbl.LeaveBlock(block)

	later := declareVar(t, tbl, fnScope, "y", 4)
	slot, _ := tbl.AllocLocal(fnScope)
	tbl.Symbol(later).Storage = slot
	if slot != innerSlot {
		t.Fatalf("block slot not reclaimed: got %s want %s", slot, innerSlot)
	}
	if got := tbl.Scope(fnScope).MaxStack; got != 2 {
		t.Fatalf("MaxStack = %d, want 2", got)
	}
	if got := tbl.Lookup(Query{From: fnScope, Seq: 5}, "x"); got.Symbol != outer {
		t.Fatalf("outer x not found after block")
	}
}

func TestLocalsInvisibleBeforeDeclaration(t *testing.T) {
	tbl := NewTable(nil)
	fn := tbl.NewScope(ScopeFunction, tbl.Root, "", source.Span{})
	declareVar(t, tbl, fn, "late", 10)
	if tbl.Lookup(Query{From: fn, Seq: 5}, "late").Found() {
		t.Fatalf("local visible before its declaration")
	}
}

func TestUsingAmbiguity(t *testing.T) {
	tbl := NewTable(nil)
	a := tbl.Namespace(tbl.Root, "a", source.Span{})
	b := tbl.Namespace(tbl.Root, "b", source.Span{})
	if again := tbl.Namespace(tbl.Root, "a", source.Span{}); again != a {
		t.Fatalf("namespace reopened as a new scope")
	}
	fa := declareVar(t, tbl, a, "f", 0)
	fb := declareVar(t, tbl, b, "f", 0)

	user := tbl.Namespace(tbl.Root, "user", source.Span{})
	tbl.AddUsing(user, Using{Path: []string{"a"}})
	if got := tbl.Lookup(Query{From: user}, "f"); got.Symbol != fa || got.Ambiguous != nil {
		t.Fatalf("single using: got %+v", got)
	}
	tbl.AddUsing(user, Using{Path: []string{"b"}, FromGlobal: true})
	got := tbl.Lookup(Query{From: user}, "f")
	if len(got.Ambiguous) != 2 || got.Ambiguous[0] != fa || got.Ambiguous[1] != fb {
		t.Fatalf("expected ambiguity between a::f and b::f, got %+v", got)
	}
	// Repeating a using that reaches the same symbol is not ambiguous.
	tbl.AddUsing(user, Using{Path: []string{"a"}, FromGlobal: true})
	if got := tbl.Lookup(Query{From: user}, "f"); len(got.Ambiguous) != 2 {
		t.Fatalf("duplicate import changed ambiguity: %+v", got)
	}
}

func TestQualifiedLookup(t *testing.T) {
	tbl := NewTable(nil)
	outer := tbl.Namespace(tbl.Root, "outer", source.Span{})
	inner := tbl.Namespace(outer, "inner", source.Span{})
	v := declareVar(t, tbl, inner, "v", 0)

	res, ok := tbl.LookupQualified(Query{From: outer}, []string{"inner"}, false, "v")
	if !ok || res.Symbol != v {
		t.Fatalf("relative qualified lookup failed: %+v %v", res, ok)
	}
	if _, ok := tbl.LookupQualified(Query{From: tbl.Root}, []string{"inner"}, true, "v"); ok {
		t.Fatalf("::inner must not resolve from the global root")
	}
	res, ok = tbl.LookupQualified(Query{From: tbl.Root}, []string{"outer", "inner"}, true, "v")
	if !ok || res.Symbol != v {
		t.Fatalf("global qualified lookup failed")
	}
}

func TestVisibility(t *testing.T) {
	tbl := NewTable(nil)
	ns := tbl.Namespace(tbl.Root, "ns", source.Span{})
	priv, _ := tbl.Declare(ns, Symbol{
		Name: tbl.Strings.Intern("p"), Kind: KindVariable, Attrs: AttrPrivate,
		Span: source.Span{File: 1},
	})
	prot, _ := tbl.Declare(ns, Symbol{Name: tbl.Strings.Intern("q"), Kind: KindVariable, Attrs: AttrProtected})

	if tbl.Accessible(Query{From: tbl.Root, File: 2}, priv) {
		t.Errorf("private symbol accessible from another file")
	}
	if !tbl.Accessible(Query{From: tbl.Root, File: 1}, priv) {
		t.Errorf("private symbol inaccessible from its own file")
	}
	if tbl.Accessible(Query{From: tbl.Root}, prot) {
		t.Errorf("protected symbol accessible outside its namespace")
	}
	nested := tbl.NewScope(ScopeFunction, ns, "", source.Span{})
	if !tbl.Accessible(Query{From: nested}, prot) {
		t.Errorf("protected symbol inaccessible from a nested scope")
	}
	res, _ := tbl.LookupQualified(Query{From: tbl.Root, File: 2}, []string{"ns"}, false, "p")
	if !res.Denied || res.Symbol != priv {
		t.Errorf("qualified lookup must bind and flag denied access: %+v", res)
	}
}

func TestCaptureDedup(t *testing.T) {
	tbl := NewTable(nil)
	outerFn := tbl.NewScope(ScopeFunction, tbl.Root, "", source.Span{})
	x := declareVar(t, tbl, outerFn, "x", 1)
	lit := tbl.NewScope(ScopeFunction, outerFn, "", source.Span{})

	c1 := tbl.Capture(lit, x)
	c2 := tbl.Capture(lit, x)
	if c1 != c2 || len(tbl.Scope(lit).Captures) != 1 {
		t.Fatalf("capture not deduplicated: %d %d %v", c1, c2, tbl.Scope(lit).Captures)
	}
	if st := tbl.Symbol(c1).Storage; st.Kind != StorageCaptured || st.Index != 0 {
		t.Fatalf("captured copy has storage %s", st)
	}
}

func TestOverloadSetsCollectCandidates(t *testing.T) {
	tbl := NewTable(nil)
	name := tbl.Strings.Intern("f")
	c1, prev := tbl.DeclareCandidate(tbl.Root, Symbol{Name: name, Kind: KindFunction})
	c2, _ := tbl.DeclareCandidate(tbl.Root, Symbol{Name: name, Kind: KindFunction})
	if prev != NoSymbolID {
		t.Fatalf("first candidate conflicted")
	}
	set := tbl.Symbol(tbl.Symbol(c1).Set)
	if set.Kind != KindOverloads || len(set.Overloads) != 2 || set.Overloads[1] != c2 {
		t.Fatalf("unexpected overload set %+v", set)
	}
	v := tbl.Strings.Intern("v")
	tbl.Declare(tbl.Root, Symbol{Name: v, Kind: KindVariable})
	if _, prev := tbl.DeclareCandidate(tbl.Root, Symbol{Name: v, Kind: KindFunction}); prev == NoSymbolID {
		t.Fatalf("function declared over a variable without conflict")
	}
}
