package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"loom/internal/ast"
	"loom/internal/bytecode"
)

// Digest identifies a compiled unit in the disk cache.
type Digest [sha256.Size]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// IsZero reports whether d was never computed.
func (d Digest) IsZero() bool { return d == Digest{} }

// combineDigest: H(content || part1 || part2 ...). Parts are in a fixed order.
func combineDigest(content []byte, parts ...string) Digest {
	h := sha256.New()
	_, _ = h.Write(content)
	for _, p := range parts {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(p))
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// UnitDigest keys a unit by its encoded bytes, the configuration digest and
// the wire versions of everything the cache stores.
func UnitDigest(content []byte, configDigest string) Digest {
	return combineDigest(content,
		configDigest,
		strconv.Itoa(ast.UnitVersion),
		strconv.Itoa(bytecode.ProgramVersion),
		strconv.Itoa(int(cacheSchemaVersion)),
	)
}
