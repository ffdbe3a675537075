package ast

import (
	"loom/internal/source"
)

// Tree is one compilation unit: the files it was parsed from and every node.
type Tree struct {
	Files *source.FileSet
	Nodes *Arena[Node]
	Roots []NodeID // KindFile nodes in input order
}

func NewTree(files *source.FileSet) *Tree {
	if files == nil {
		files = source.NewFileSet()
	}
	return &Tree{
		Files: files,
		Nodes: NewArena[Node](1 << 8),
	}
}

// New stores n and returns its ID.
func (t *Tree) New(n Node) NodeID {
	return NodeID(t.Nodes.Allocate(n))
}

// Get returns the node for id, or nil for NoNodeID.
func (t *Tree) Get(id NodeID) *Node {
	return t.Nodes.Get(uint32(id))
}

func (t *Tree) Kind(id NodeID) Kind {
	if n := t.Get(id); n != nil {
		return n.Kind
	}
	return KindInvalid
}

func (t *Tree) Span(id NodeID) source.Span {
	if n := t.Get(id); n != nil {
		return n.Span
	}
	return source.Span{}
}

// Children lists the non-empty child slots in evaluation order.
func (t *Tree) Children(id NodeID) []NodeID {
	n := t.Get(id)
	if n == nil {
		return nil
	}
	out := make([]NodeID, 0, 4+len(n.List)+len(n.TypeArgs))
	for _, c := range [...]NodeID{n.A, n.B, n.C, n.D} {
		if c.IsValid() {
			out = append(out, c)
		}
	}
	out = append(out, n.TypeArgs...)
	out = append(out, n.List...)
	return out
}

// Walk visits id and its descendants depth-first. Returning false from fn
// skips the children of that node.
func (t *Tree) Walk(id NodeID, fn func(NodeID) bool) {
	if !id.IsValid() || !fn(id) {
		return
	}
	for _, c := range t.Children(id) {
		t.Walk(c, fn)
	}
}
