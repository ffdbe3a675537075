package sema

import (
	"context"
	"slices"
	"strings"
	"testing"

	"loom/internal/ast"
	"loom/internal/diag"
	"loom/internal/types"
)

func run(t *testing.T, b *ast.Builder) (*Analyzer, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(64)
	a := New(b.Finish(), Options{Reporter: diag.BagReporter{Bag: bag}})
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return a, bag
}

func dump(bag *diag.Bag) string {
	var sb strings.Builder
	for _, d := range bag.Items() {
		sb.WriteString(d.Code.ID())
		sb.WriteString(" ")
		sb.WriteString(d.Message)
		sb.WriteString("\n")
	}
	return sb.String()
}

func wantCodes(t *testing.T, bag *diag.Bag, want ...diag.Code) {
	t.Helper()
	var got []diag.Code
	for _, d := range bag.Items() {
		got = append(got, d.Code)
	}
	if !slices.Equal(got, want) {
		t.Fatalf("diagnostics = %v, want %v\n%s", got, want, dump(bag))
	}
}

func wantType(t *testing.T, a *Analyzer, id ast.NodeID, want types.TypeID) {
	t.Helper()
	n := a.node(id)
	if !n.Completed {
		t.Fatalf("node %d (%s) is not completed", id, n.Kind)
	}
	if n.ValueType != want {
		t.Fatalf("node %d (%s) has type %s, want %s", id, n.Kind, a.typeStr(n.ValueType), a.typeStr(want))
	}
}

// identity builds fn name(a T) T { return a } for a primitive T.
func identity(b *ast.Builder, name, typ string) ast.NodeID {
	return b.Func(name, ast.Params(b.Param("a", b.T(typ))), b.T(typ), b.Block(b.Return(b.Ident("a"))))
}

func TestSweepIsIdempotent(t *testing.T) {
	b := ast.NewBuilder("idem.lm")
	b.Add(
		identity(b, "f", "int"),
		b.Let("x", ast.NoNodeID, b.Call(b.Ident("f"), b.Real(1.5))),
		b.Let("y", ast.NoNodeID, b.Ident("missing")),
	)
	a, bag := run(t, b)
	wantCodes(t, bag, diag.SemaUnknownIdentifier)
	before := bag.Len()
	a.sweep()
	a.sweep()
	if bag.Len() != before {
		t.Fatalf("repeated sweeps added diagnostics:\n%s", dump(bag))
	}
}

func TestReturnTypeInference(t *testing.T) {
	b := ast.NewBuilder("ret.lm")
	// fn fact(n int) { if n < 2 { return n * fact(n - 1) } return 1 }
	rec := b.Call(b.Ident("fact"), b.Bin(ast.OpSub, b.Ident("n"), b.Int(1)))
	fact := b.Func("fact", ast.Params(b.Param("n", b.T("int"))), ast.NoNodeID, b.Block(
		b.If(b.Bin(ast.OpLt, b.Ident("n"), b.Int(2)),
			b.Block(b.Return(b.Bin(ast.OpMul, b.Ident("n"), rec))), ast.NoNodeID),
		b.Return(b.Int(1)),
	))
	call := b.Call(b.Ident("fact"), b.Int(5))
	noRet := b.Func("nothing", nil, ast.NoNodeID, b.Block())
	voidCall := b.Call(b.Ident("nothing"))
	b.Add(fact, noRet, b.Let("v", ast.NoNodeID, call), b.Expr(voidCall))

	a, bag := run(t, b)
	wantCodes(t, bag)
	wantType(t, a, call, a.builtins.Int)
	wantType(t, a, rec, a.builtins.Int)
	wantType(t, a, voidCall, a.builtins.Void)
}

func TestReturnMismatchAfterInference(t *testing.T) {
	b := ast.NewBuilder("ret.lm")
	b.Add(b.Func("h", ast.Params(b.Param("c", b.T("bool"))), ast.NoNodeID, b.Block(
		b.If(b.Ident("c"), b.Block(b.Return(b.Int(1))), ast.NoNodeID),
		b.Return(b.Str("s")),
	)))
	_, bag := run(t, b)
	wantCodes(t, bag, diag.SemaReturnMismatch)
}

func TestInferredReturnsAreNotCast(t *testing.T) {
	b := ast.NewBuilder("ret.lm")
	// int converts to string implicitly, but an inferred result admits no casts
	late := b.Return(b.Int(1))
	b.Add(b.Func("h", ast.Params(b.Param("c", b.T("bool"))), ast.NoNodeID, b.Block(
		b.If(b.Ident("c"), b.Block(b.Return(b.Str("s"))), ast.NoNodeID),
		late,
	)))
	a, bag := run(t, b)
	wantCodes(t, bag, diag.SemaReturnMismatch)
	if k := a.node(a.node(late).A).Kind; k != ast.KindLitInt {
		t.Fatalf("return value rewritten to %s", k)
	}
}

func TestAnnotatedReturnStillCasts(t *testing.T) {
	b := ast.NewBuilder("ret.lm")
	ret := b.Return(b.Int(1))
	b.Add(b.Func("k", nil, b.T("string"), b.Block(ret)))
	a, bag := run(t, b)
	wantCodes(t, bag)
	if k := a.node(a.node(ret).A).Kind; k != ast.KindCast {
		t.Fatalf("return value is %s, want an implicit cast", k)
	}
}

func TestBlockShadowingAndSlotReuse(t *testing.T) {
	b := ast.NewBuilder("block.lm")
	outer := b.Let("x", ast.NoNodeID, b.Int(1))
	inner := b.Let("x", ast.NoNodeID, b.Str("s"))
	use := b.Ident("x")
	later := b.Let("z", ast.NoNodeID, b.Ident("x"))
	b.Add(b.Func("main", nil, ast.NoNodeID, b.Block(
		outer,
		b.Block(inner, b.Expr(use)),
		later,
	)))
	a, bag := run(t, b)
	wantCodes(t, bag)
	wantType(t, a, use, a.builtins.String)
	if got := a.res.Bindings[use]; got != a.res.Decls[inner] {
		t.Fatalf("x inside the block bound to %d, want the inner declaration %d", got, a.res.Decls[inner])
	}
	innerSlot := a.table.Symbol(a.res.Decls[inner]).Storage
	laterSlot := a.table.Symbol(a.res.Decls[later]).Storage
	if innerSlot != laterSlot {
		t.Fatalf("block slot %s not reused, z got %s", innerSlot, laterSlot)
	}
	if a.table.Symbol(a.res.Decls[later]).Type != a.builtins.Int {
		t.Fatalf("z should see the outer int x after the block")
	}
}

func TestTopLevelLetIsGlobal(t *testing.T) {
	b := ast.NewBuilder("global.lm")
	g := b.Let("g", ast.NoNodeID, b.Int(1))
	b.Add(g)
	a, bag := run(t, b)
	wantCodes(t, bag)
	if s := a.table.Symbol(a.res.Decls[g]); s.IsLocal() {
		t.Fatalf("top-level variable got local storage %s", s.Storage)
	}
}

func TestQualifiedCallInNamespace(t *testing.T) {
	b := ast.NewBuilder("ns.lm")
	call := b.Call(b.Ident("ns", "f"), b.Int(41))
	b.Add(
		b.Namespace("ns", identity(b, "f", "int")),
		b.Let("r", ast.NoNodeID, call),
	)
	a, bag := run(t, b)
	wantCodes(t, bag)
	wantType(t, a, call, a.builtins.Int)
	if a.tree.Kind(a.node(call).List[0]) != ast.KindLitInt {
		t.Fatalf("int argument to int parameter must not be cast")
	}
}

func TestUsingAmbiguity(t *testing.T) {
	b := ast.NewBuilder("using.lm")
	b.Add(
		b.Namespace("a", b.Let("v", ast.NoNodeID, b.Int(1))),
		b.Namespace("b", b.Let("v", ast.NoNodeID, b.Int(2))),
		b.Using("a"),
		b.Using("b"),
		b.Let("w", ast.NoNodeID, b.Ident("v")),
	)
	_, bag := run(t, b)
	wantCodes(t, bag, diag.SemaAmbiguousSymbol)
	if notes := bag.Items()[0].Notes; len(notes) != 2 {
		t.Fatalf("want a note per candidate, got %d", len(notes))
	}
}

func TestUnknownNamespaceInUsing(t *testing.T) {
	b := ast.NewBuilder("using.lm")
	b.Add(b.Using("nowhere"))
	_, bag := run(t, b)
	wantCodes(t, bag, diag.SemaUnknownNamespace)
}

func TestAssignToConst(t *testing.T) {
	b := ast.NewBuilder("const.lm")
	b.Add(b.Func("main", nil, ast.NoNodeID, b.Block(
		b.Const("k", ast.NoNodeID, b.Int(1)),
		b.Expr(b.Assign(b.Ident("k"), b.Int(2))),
	)))
	_, bag := run(t, b)
	wantCodes(t, bag, diag.SemaAssignToConst)
}

func TestLoopControlOutsideLoop(t *testing.T) {
	b := ast.NewBuilder("loop.lm")
	b.Add(b.Func("main", nil, ast.NoNodeID, b.Block(
		b.Break(""),
		b.Labeled(b.While(b.Bool(true), b.Block(b.Continue("missing"))), "outer"),
	)))
	_, bag := run(t, b)
	wantCodes(t, bag, diag.SemaInvalidLoopControl, diag.SemaInvalidLoopControl)
}

func TestConditionMustBeBool(t *testing.T) {
	b := ast.NewBuilder("cond.lm")
	b.Add(b.Func("main", nil, ast.NoNodeID, b.Block(
		b.If(b.Str("yes"), b.Block(), ast.NoNodeID),
	)))
	_, bag := run(t, b)
	wantCodes(t, bag, diag.SemaConditionNotBool)
}

func TestMixedArithmeticIsBalanced(t *testing.T) {
	b := ast.NewBuilder("mixed.lm")
	sum := b.Bin(ast.OpAdd, b.Int(1), b.Real(2.5))
	cmp := b.Bin(ast.OpLt, b.Int(1), b.Real(2.5))
	b.Add(b.Let("s", ast.NoNodeID, sum), b.Let("c", ast.NoNodeID, cmp))
	a, bag := run(t, b)
	wantCodes(t, bag)
	wantType(t, a, sum, a.builtins.Real)
	wantType(t, a, cmp, a.builtins.Bool)
	for _, id := range []ast.NodeID{sum, cmp} {
		l := a.node(a.node(id).A)
		if l.Kind != ast.KindCast || !l.Flags.Has(ast.FlagImplicit) || l.ValueType != a.builtins.Real {
			t.Fatalf("int operand of %s was not cast to real", a.node(id).Op)
		}
	}
}

func TestForeachVariableTypes(t *testing.T) {
	b := ast.NewBuilder("each.lm")
	v, k := b.Ident("v"), b.Ident("k")
	b.Add(b.Func("main", nil, ast.NoNodeID, b.Block(
		b.Foreach("v", "k", b.Map(b.Str("a"), b.Real(1)), b.Block(b.Expr(v), b.Expr(k))),
		b.Foreach("x", "", b.Int(3), b.Block()),
	)))
	a, bag := run(t, b)
	wantCodes(t, bag, diag.SemaNotIterable)
	wantType(t, a, v, a.builtins.Real)
	wantType(t, a, k, a.builtins.String)
}
