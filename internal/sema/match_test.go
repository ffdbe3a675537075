package sema

import (
	"testing"

	"loom/internal/ast"
	"loom/internal/diag"
)

func shapeUnion(b *ast.Builder) ast.NodeID {
	return b.Union("Shape",
		b.Variant("Circle", b.T("real")),
		b.Variant("Square", b.T("real")),
		b.Variant("Empty", ast.NoNodeID),
	)
}

func TestMatchBindsPayload(t *testing.T) {
	b := ast.NewBuilder("match.lm")
	r := b.Ident("r")
	ctor := b.Call(b.Ident("Shape", "Circle"), b.Int(2))
	m := b.Match(b.Ident("s"),
		b.Case("Circle", "r", b.Block(b.Expr(r))),
		b.Case("_", "", b.Block()),
	)
	b.Add(shapeUnion(b), b.Func("main", nil, ast.NoNodeID, b.Block(
		b.Let("s", ast.NoNodeID, ctor),
		m,
	)))

	a, bag := run(t, b)
	wantCodes(t, bag)
	wantType(t, a, r, a.builtins.Real)
	if got := a.typeStr(a.node(ctor).ValueType); got != "Shape" {
		t.Fatalf("constructor has type %s, want Shape", got)
	}
	if a.res.Calls[ctor].Kind != CallVariant {
		t.Fatalf("Shape::Circle(2) is not a variant construction")
	}
	if arm := a.node(m).List[1]; a.res.Cases[arm] != -1 {
		t.Fatalf("default arm tag = %d", a.res.Cases[arm])
	}
}

func TestIncompleteMatch(t *testing.T) {
	b := ast.NewBuilder("match.lm")
	b.Add(shapeUnion(b), b.Func("main", nil, ast.NoNodeID, b.Block(
		b.Let("s", ast.NoNodeID, b.Ident("Shape", "Empty")),
		b.Match(b.Ident("s"), b.Case("Circle", "", b.Block())),
	)))
	_, bag := run(t, b)
	wantCodes(t, bag, diag.SemaIncompleteMatch)
}

func TestDuplicateAndUnknownArms(t *testing.T) {
	b := ast.NewBuilder("match.lm")
	b.Add(shapeUnion(b), b.Func("main", nil, ast.NoNodeID, b.Block(
		b.Let("s", ast.NoNodeID, b.Ident("Shape", "Empty")),
		b.Match(b.Ident("s"),
			b.Case("Empty", "", b.Block()),
			b.Case("Empty", "", b.Block()),
			b.Case("Triangle", "", b.Block()),
			b.Case("Empty", "e", b.Block()),
			b.Case("_", "", b.Block()),
		),
	)))
	_, bag := run(t, b)
	wantCodes(t, bag, diag.SemaDuplicateMatchArm, diag.SemaUnknownMember, diag.SemaDuplicateMatchArm)
}

func TestMatchOnNonUnion(t *testing.T) {
	b := ast.NewBuilder("match.lm")
	b.Add(b.Func("main", nil, ast.NoNodeID, b.Block(
		b.Match(b.Int(1), b.Case("_", "", b.Block())),
	)))
	_, bag := run(t, b)
	wantCodes(t, bag, diag.SemaTypeMismatch)
}

func TestPayloadVariantIsNotAValue(t *testing.T) {
	b := ast.NewBuilder("match.lm")
	b.Add(shapeUnion(b),
		b.Let("c", ast.NoNodeID, b.Ident("Shape", "Circle")),
		b.Expr(b.Call(b.Ident("Shape", "Empty"), b.Int(1))),
	)
	_, bag := run(t, b)
	wantCodes(t, bag, diag.SemaNotAValue, diag.SemaArity)
}
