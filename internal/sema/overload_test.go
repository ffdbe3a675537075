package sema

import (
	"testing"

	"loom/internal/ast"
	"loom/internal/diag"
)

func TestOverloadPrefersExactMatch(t *testing.T) {
	b := ast.NewBuilder("ov.lm")
	fInt := identity(b, "f", "int")
	fReal := identity(b, "f", "real")
	ci := b.Call(b.Ident("f"), b.Int(1))
	cr := b.Call(b.Ident("f"), b.Real(1.5))
	b.Add(fInt, fReal, b.Let("x", ast.NoNodeID, ci), b.Let("y", ast.NoNodeID, cr))

	a, bag := run(t, b)
	wantCodes(t, bag)
	if got := a.res.Calls[ci].Target; got != a.res.Funcs[fInt] {
		t.Fatalf("f(1) selected %s", a.signatureString(got))
	}
	if got := a.res.Calls[cr].Target; got != a.res.Funcs[fReal] {
		t.Fatalf("f(1.5) selected %s", a.signatureString(got))
	}
	wantType(t, a, ci, a.builtins.Int)
	wantType(t, a, cr, a.builtins.Real)
}

func TestOverloadCastTierInsertsImplicitCast(t *testing.T) {
	b := ast.NewBuilder("ov.lm")
	call := b.Call(b.Ident("g"), b.Int(1))
	b.Add(identity(b, "g", "real"), b.Let("x", ast.NoNodeID, call))

	a, bag := run(t, b)
	wantCodes(t, bag)
	arg := a.node(a.node(call).List[0])
	if arg.Kind != ast.KindCast || !arg.Flags.Has(ast.FlagImplicit) {
		t.Fatalf("argument is %s, want an implicit cast", arg.Kind)
	}
	wantType(t, a, a.node(call).List[0], a.builtins.Real)
}

func TestExactArityBeatsVariadic(t *testing.T) {
	b := ast.NewBuilder("ov.lm")
	fixed := identity(b, "h", "int")
	variadic := b.Flag(identity(b, "h", "int"), ast.FlagVariadic)
	one := b.Call(b.Ident("h"), b.Int(1))
	two := b.Call(b.Ident("h"), b.Int(1), b.Int(2))
	b.Add(fixed, variadic, b.Expr(one), b.Expr(two))

	a, bag := run(t, b)
	wantCodes(t, bag)
	if a.res.Calls[one].Target != a.res.Funcs[fixed] {
		t.Fatalf("h(1) should pick the fixed-arity overload")
	}
	if a.res.Calls[two].Target != a.res.Funcs[variadic] {
		t.Fatalf("h(1, 2) should pick the variadic overload")
	}
}

func TestIdenticalOverloadsAreAmbiguous(t *testing.T) {
	b := ast.NewBuilder("ov.lm")
	call := b.Call(b.Ident("f"), b.Int(1))
	b.Add(identity(b, "f", "int"), identity(b, "f", "int"), b.Expr(call))

	a, bag := run(t, b)
	wantCodes(t, bag, diag.SemaAmbiguousOverload)
	if notes := bag.Items()[0].Notes; len(notes) != 2 {
		t.Fatalf("want a note per candidate, got %d", len(notes))
	}
	wantType(t, a, call, a.builtins.Dynamic)
}

func TestCastTierAmbiguity(t *testing.T) {
	b := ast.NewBuilder("ov.lm")
	mk := func(p1, p2 string) ast.NodeID {
		return b.Func("f", ast.Params(b.Param("a", b.T(p1)), b.Param("b", b.T(p2))), b.T("int"), b.Block(b.Return(b.Int(0))))
	}
	b.Add(mk("int", "real"), mk("real", "int"), b.Expr(b.Call(b.Ident("f"), b.Int(1), b.Int(1))))
	_, bag := run(t, b)
	wantCodes(t, bag, diag.SemaAmbiguousOverload)
}

func TestNoOverloadReportsArity(t *testing.T) {
	b := ast.NewBuilder("ov.lm")
	b.Add(identity(b, "f", "int"), b.Expr(b.Call(b.Ident("f"))))
	_, bag := run(t, b)
	wantCodes(t, bag, diag.SemaArity)
}

func TestNoOverloadListsCandidates(t *testing.T) {
	b := ast.NewBuilder("ov.lm")
	b.Add(identity(b, "f", "int"), identity(b, "f", "bool"),
		b.Expr(b.Call(b.Ident("f"), b.Array(b.Int(1)))))
	_, bag := run(t, b)
	wantCodes(t, bag, diag.SemaNoOverload)
	if notes := bag.Items()[0].Notes; len(notes) != 2 {
		t.Fatalf("want a note per rejected candidate, got %d", len(notes))
	}
}

func TestProtectedCandidateIsInaccessible(t *testing.T) {
	b := ast.NewBuilder("ov.lm")
	hidden := b.Flag(identity(b, "f", "int"), ast.FlagProtected)
	b.Add(b.Namespace("ns", hidden), b.Expr(b.Call(b.Ident("ns", "f"), b.Int(1))))
	_, bag := run(t, b)
	wantCodes(t, bag, diag.SemaAccessibility)
}

func TestUnpackExpandsTupleArguments(t *testing.T) {
	b := ast.NewBuilder("ov.lm")
	sum := b.Func("sum", ast.Params(b.Param("a", b.T("int")), b.Param("b", b.T("int"))), b.T("int"),
		b.Block(b.Return(b.Bin(ast.OpAdd, b.Ident("a"), b.Ident("b")))))
	call := b.Call(b.Ident("sum"), b.Unpack(b.Tuple(b.Int(1), b.Int(2)), -1))
	over := b.Call(b.Ident("sum"), b.Unpack(b.Tuple(b.Int(1)), 2))
	b.Add(sum, b.Let("x", ast.NoNodeID, call), b.Expr(over))

	a, bag := run(t, b)
	wantCodes(t, bag, diag.SemaTypeMismatch)
	wantType(t, a, call, a.builtins.Int)
}

func TestOperatorOverloadRewritesToCall(t *testing.T) {
	b := ast.NewBuilder("op.lm")
	vec := b.TypeDecl("Vec", b.TStruct(b.Field("x", b.T("int"), ast.NoNodeID)))
	plus := b.Func("operator+", ast.Params(b.Param("l", b.T("Vec")), b.Param("r", b.T("Vec"))), b.T("Vec"),
		b.Block(b.Return(b.Ident("l"))))
	sum := b.Bin(ast.OpAdd, b.Ident("v"), b.Ident("v"))
	minus := b.Bin(ast.OpSub, b.Ident("v"), b.Ident("v"))
	b.Add(vec, plus,
		b.Let("v", ast.NoNodeID, b.StructLit(b.T("Vec"), b.Field("x", b.Int(1), ast.NoNodeID))),
		b.Let("w", ast.NoNodeID, sum),
		b.Expr(minus),
	)

	a, bag := run(t, b)
	wantCodes(t, bag, diag.SemaOperatorUnsupported)
	n := a.node(sum)
	if n.Kind != ast.KindCall {
		t.Fatalf("v + v was not rewritten into a call, got %s", n.Kind)
	}
	if a.res.Calls[sum].Target != a.res.Funcs[plus] {
		t.Fatalf("v + v does not call operator+")
	}
	if got := a.typeStr(n.ValueType); got != "Vec" {
		t.Fatalf("v + v has type %s, want Vec", got)
	}
}

func TestOperatorRewriteNeedsTwoNamedOperands(t *testing.T) {
	b := ast.NewBuilder("op.lm")
	vec := b.TypeDecl("Vec", b.TStruct(b.Field("x", b.T("int"), ast.NoNodeID)))
	plus := b.Func("operator+", ast.Params(b.Param("l", b.T("Vec")), b.Param("r", b.T("int"))), b.T("Vec"),
		b.Block(b.Return(b.Ident("l"))))
	mixed := b.Bin(ast.OpAdd, b.Ident("v"), b.Int(1))
	b.Add(vec, plus,
		b.Let("v", ast.NoNodeID, b.StructLit(b.T("Vec"), b.Field("x", b.Int(1), ast.NoNodeID))),
		b.Expr(mixed),
	)

	a, bag := run(t, b)
	wantCodes(t, bag, diag.SemaOperatorUnsupported)
	if k := a.node(mixed).Kind; k != ast.KindBinary {
		t.Fatalf("v + 1 was rewritten into %s", k)
	}
}

func TestMethodCallThroughTypeNamespace(t *testing.T) {
	b := ast.NewBuilder("method.lm")
	point := b.TypeDecl("Point", b.TStruct(
		b.Field("x", b.T("int"), ast.NoNodeID),
		b.Field("y", b.T("int"), b.Int(7)),
	))
	norm := b.Func("norm", ast.Params(b.Param("p", b.T("Point"))), b.T("int"),
		b.Block(b.Return(b.Member(b.Ident("p"), "y"))))
	call := b.Call(b.Member(b.Ident("p"), "norm"))
	b.Add(point, b.Namespace("Point", norm),
		b.Let("p", ast.NoNodeID, b.StructLit(b.T("Point"), b.Field("x", b.Int(1), ast.NoNodeID))),
		b.Let("n", ast.NoNodeID, call),
	)

	a, bag := run(t, b)
	wantCodes(t, bag)
	info := a.res.Calls[call]
	if !info.Method || info.Target != a.res.Funcs[norm] {
		t.Fatalf("p.norm() resolved to %+v", info)
	}
	wantType(t, a, call, a.builtins.Int)
}
