package ast

import (
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"loom/internal/source"
)

// UnitVersion is bumped whenever Node's wire layout changes.
const UnitVersion = 1

// ErrUnitVersion is returned when a unit was written by an incompatible producer.
var ErrUnitVersion = errors.New("unsupported unit version")

// UnitFile is the wire form of a source file.
type UnitFile struct {
	Path    string `msgpack:"path"`
	Content []byte `msgpack:"content,omitempty"`
}

// Unit is the parser's output format: a msgpack document carrying the files
// of one compilation unit and its flattened node arena.
type Unit struct {
	Version int        `msgpack:"version"`
	Files   []UnitFile `msgpack:"files"`
	Nodes   []Node     `msgpack:"nodes"`
	Roots   []NodeID   `msgpack:"roots"`
}

// EncodeUnit writes t to w.
func EncodeUnit(w io.Writer, t *Tree) error {
	u := Unit{Version: UnitVersion, Roots: t.Roots}
	for i := 0; i < t.Files.Len(); i++ {
		f := t.Files.Get(source.FileID(i))
		u.Files = append(u.Files, UnitFile{Path: f.Path, Content: f.Content})
	}
	u.Nodes = make([]Node, 0, t.Nodes.Len())
	for id := uint32(1); id <= t.Nodes.Len(); id++ {
		u.Nodes = append(u.Nodes, *t.Nodes.Get(id))
	}
	enc := msgpack.NewEncoder(w)
	enc.UseCompactInts(true)
	if err := enc.Encode(&u); err != nil {
		return fmt.Errorf("encode unit: %w", err)
	}
	return nil
}

// DecodeUnit reads a unit and validates its node references.
func DecodeUnit(r io.Reader) (*Tree, error) {
	var u Unit
	if err := msgpack.NewDecoder(r).Decode(&u); err != nil {
		return nil, fmt.Errorf("decode unit: %w", err)
	}
	if u.Version != UnitVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnitVersion, u.Version)
	}
	fs := source.NewFileSet()
	for _, f := range u.Files {
		fs.Add(f.Path, f.Content, 0)
	}
	t := NewTree(fs)
	for i := range u.Nodes {
		t.New(u.Nodes[i])
	}
	t.Roots = u.Roots
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) validate() error {
	limit := NodeID(t.Nodes.Len())
	check := func(owner, ref NodeID) error {
		if ref > limit {
			return fmt.Errorf("decode unit: node %d references missing node %d", owner, ref)
		}
		return nil
	}
	for _, r := range t.Roots {
		if r == NoNodeID || r > limit || t.Kind(r) != KindFile {
			return fmt.Errorf("decode unit: root %d is not a file node", r)
		}
	}
	for id := NodeID(1); id <= limit; id++ {
		n := t.Get(id)
		if n.Kind == KindInvalid || n.Kind >= kindCount {
			return fmt.Errorf("decode unit: node %d has invalid kind %d", id, n.Kind)
		}
		if int(n.Span.File) >= t.Files.Len() && t.Files.Len() > 0 {
			return fmt.Errorf("decode unit: node %d references missing file %d", id, n.Span.File)
		}
		for _, c := range t.Children(id) {
			if err := check(id, c); err != nil {
				return err
			}
		}
	}
	return nil
}
