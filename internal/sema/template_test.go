package sema

import (
	"testing"

	"loom/internal/ast"
	"loom/internal/diag"
)

func genericIdentity(b *ast.Builder) ast.NodeID {
	return b.Generic(b.Func("id", ast.Params(b.Param("x", b.T("T"))), b.T("T"),
		b.Block(b.Return(b.Ident("x")))), "T")
}

func TestTemplateInstancesAreShared(t *testing.T) {
	b := ast.NewBuilder("tpl.lm")
	gen := genericIdentity(b)
	c1 := b.Call(b.Ident("id"), b.Int(1))
	c2 := b.Call(b.Ident("id"), b.Int(2))
	c3 := b.Call(b.Ident("id"), b.Real(1.5))
	b.Add(gen, b.Expr(c1), b.Expr(c2), b.Expr(c3))

	a, bag := run(t, b)
	wantCodes(t, bag)
	if a.res.Calls[c1].Target != a.res.Calls[c2].Target {
		t.Fatalf("id(1) and id(2) reified separate instances")
	}
	if a.res.Calls[c1].Target == a.res.Calls[c3].Target {
		t.Fatalf("id(1.5) reused the int instance")
	}
	if got := len(a.table.Symbol(a.res.Funcs[gen]).Template.Order); got != 2 {
		t.Fatalf("want 2 instances, got %d", got)
	}
	wantType(t, a, c1, a.builtins.Int)
	wantType(t, a, c3, a.builtins.Real)
}

func TestExplicitTemplateArguments(t *testing.T) {
	b := ast.NewBuilder("tpl.lm")
	call := b.Call(b.Inst("id", b.T("real")), b.Int(1))
	bad := b.Call(b.Inst("id", b.T("int"), b.T("int")), b.Int(1))
	b.Add(genericIdentity(b), b.Expr(call), b.Expr(bad))

	a, bag := run(t, b)
	wantCodes(t, bag, diag.SemaTemplateDerivation)
	wantType(t, a, call, a.builtins.Real)
}

func TestWhereClauseRejectsInstance(t *testing.T) {
	b := ast.NewBuilder("tpl.lm")
	onlyInt := b.Generic(b.Func("only", ast.Params(b.Param("x", b.T("T"))), b.T("int"),
		b.Block(b.Return(b.Int(1)))), "T")
	b.WhereClause(onlyInt, b.Is(b.Ident("x"), b.T("int")))
	ok := b.Call(b.Ident("only"), b.Int(1))
	b.Add(onlyInt, b.Expr(ok), b.Expr(b.Call(b.Ident("only"), b.Str("s"))))

	a, bag := run(t, b)
	wantCodes(t, bag, diag.SemaWhereClauseRejected)
	wantType(t, a, ok, a.builtins.Int)
}

func TestGenericStructType(t *testing.T) {
	b := ast.NewBuilder("tpl.lm")
	box := b.Generic(b.TypeDecl("Box", b.TStruct(b.Field("v", b.T("T"), ast.NoNodeID))), "T")
	get := b.Member(b.Ident("bi"), "v")
	bi := b.Let("bi", b.TInst("Box", b.T("int")), b.StructLit(b.TInst("Box", b.T("int")), b.Field("v", b.Int(3), ast.NoNodeID)))
	b.Add(box, bi,
		b.Let("got", ast.NoNodeID, get),
		b.Let("bad", b.TInst("Box"), ast.NoNodeID),
	)
	a, bag := run(t, b)
	wantCodes(t, bag, diag.SemaTemplateArgMismatch)
	wantType(t, a, get, a.builtins.Int)
	if got := a.typeStr(a.table.Symbol(a.res.Decls[bi]).Type); got != "Box<int>" {
		t.Fatalf("bi has type %s, want Box<int>", got)
	}
}

func TestGenericVariable(t *testing.T) {
	b := ast.NewBuilder("tpl.lm")
	zero := b.Generic(b.Let("zero", b.T("T"), b.Cast(b.Int(0), b.T("T"))), "T")
	use := b.Inst("zero", b.T("real"))
	again := b.Inst("zero", b.T("real"))
	b.Add(zero, b.Let("r", ast.NoNodeID, use), b.Let("s", ast.NoNodeID, again))

	a, bag := run(t, b)
	wantCodes(t, bag)
	wantType(t, a, use, a.builtins.Real)
	if a.res.Bindings[use] != a.res.Bindings[again] {
		t.Fatalf("zero<real> reified twice")
	}
	found := false
	for _, g := range a.res.Statics {
		if g.Symbol == a.res.Bindings[use] {
			found = true
		}
	}
	if !found {
		t.Fatalf("generic variable instance is not initialized as a static")
	}
}
