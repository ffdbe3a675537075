package types

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// Hasher computes structural fingerprints of types for template memoization.
// Distinct types whose fingerprints collide are separated by linear probing
// against the table of already-issued hashes, so a hash identifies exactly
// one TypeID within the unit.
type Hasher struct {
	in    *Interner
	memo  map[TypeID]uint64
	table map[uint64]TypeID
}

func NewHasher(in *Interner) *Hasher {
	return &Hasher{
		in:    in,
		memo:  make(map[TypeID]uint64),
		table: make(map[uint64]TypeID),
	}
}

// Structural folds kind, aliasing symbol, nested element, argument and
// template-argument types into one value. Structurally equal types hash equal.
func (h *Hasher) Structural(id TypeID) uint64 {
	t, ok := h.in.Lookup(id)
	if !ok {
		return 0
	}
	d := xxh3.New()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}
	put(uint64(t.Kind))
	put(uint64(t.Sym))
	if t.Variadic {
		put(1)
	}
	if t.Kind == KindParam {
		_, _ = d.WriteString(t.Name)
	}
	for _, f := range t.Fields {
		_, _ = d.WriteString(f.Name)
		put(h.Structural(f.Type))
	}
	for _, c := range []TypeID{t.Elem, t.Key, t.Result} {
		put(h.Structural(c))
	}
	for _, p := range t.Params {
		put(h.Structural(p))
	}
	put(uint64(len(t.Args)))
	for _, a := range t.Args {
		put(h.Structural(a))
	}
	return d.Sum64()
}

// Hash returns the probed fingerprint of id.
func (h *Hasher) Hash(id TypeID) uint64 {
	if v, ok := h.memo[id]; ok {
		return v
	}
	v := h.Structural(id)
	for {
		owner, taken := h.table[v]
		if !taken {
			h.table[v] = id
			break
		}
		if owner == id {
			break
		}
		v++
	}
	h.memo[id] = v
	return v
}

// Key builds the memo key for a template argument vector.
func (h *Hasher) Key(args []TypeID) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = strconv.FormatUint(h.Hash(a), 16)
	}
	return strings.Join(parts, ",")
}
