package ast

import (
	"bytes"
	"errors"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestCloneIsDeepAndResetsAnalysisState(t *testing.T) {
	b := NewBuilder("main.loom")
	body := b.Block(b.Return(b.Ident("x")))
	fn := b.Generic(b.Func("id", Params(b.Param("x", b.T("T"))), b.T("T"), body), "T")
	tree := b.Finish()

	tree.Get(body).Completed = true
	tree.Get(body).ValueType = 7

	cp := tree.Clone(fn)
	if cp == fn {
		t.Fatalf("clone returned the original node")
	}
	orig, dup := tree.Get(fn), tree.Get(cp)
	if dup.B == orig.B || dup.List[0] == orig.List[0] {
		t.Fatalf("children were shared between original and clone")
	}
	if dup.Params[0] != "T" {
		t.Fatalf("template params not copied: %v", dup.Params)
	}
	dup.Params[0] = "U"
	if orig.Params[0] != "T" {
		t.Fatalf("clone aliases the params slice")
	}
	if n := tree.Get(dup.B); n.Completed || n.ValueType != 0 {
		t.Fatalf("clone kept analysis state: %+v", n)
	}
}

func TestUnitRoundTripPreservesStructure(t *testing.T) {
	b := NewBuilder("a.loom")
	b.Add(b.Namespace("ns", b.Func("f", Params(b.Param("x", b.T("int"))), b.T("int"),
		b.Block(b.Return(b.Bin(OpAdd, b.Ident("x"), b.Int(1)))))))
	b.NewFile("b.loom").Add(b.Expr(b.Call(b.Ident("ns", "f"), b.Int(41))))
	tree := b.Finish()

	var buf bytes.Buffer
	if err := EncodeUnit(&buf, tree); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeUnit(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Roots) != 2 || got.Files.Len() != 2 {
		t.Fatalf("roots=%d files=%d", len(got.Roots), got.Files.Len())
	}
	if got.Nodes.Len() != tree.Nodes.Len() {
		t.Fatalf("node count %d != %d", got.Nodes.Len(), tree.Nodes.Len())
	}
	call := got.Get(got.Get(got.Get(got.Roots[1]).List[0]).A)
	callee := got.Get(call.A)
	if callee.QualifiedName() != "ns::f" || got.Get(call.List[0]).Int != 41 {
		t.Fatalf("unexpected call after round trip: %s", callee.QualifiedName())
	}
}

func TestDecodeRejectsDanglingReference(t *testing.T) {
	u := Unit{
		Version: UnitVersion,
		Files:   []UnitFile{{Path: "x.loom"}},
		Nodes:   []Node{{Kind: KindFile, List: []NodeID{9}}},
		Roots:   []NodeID{1},
	}
	data, err := msgpack.Marshal(&u)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeUnit(bytes.NewReader(data)); err == nil {
		t.Fatalf("expected dangling reference error")
	}

	u.Version = 99
	data, _ = msgpack.Marshal(&u)
	if _, err := DecodeUnit(bytes.NewReader(data)); !errors.Is(err, ErrUnitVersion) {
		t.Fatalf("expected ErrUnitVersion, got %v", err)
	}
}
