package symbols

import (
	"fmt"

	"fortio.org/safecast"

	"loom/internal/ast"
	"loom/internal/source"
	"loom/internal/types"
)

// Kind classifies what a symbol names.
type Kind uint8

const (
	KindInvalid   Kind = iota
	KindType           // type declaration, builtin type or template parameter binding
	KindVariable       // let, parameter, captured copy
	KindFunction       // one candidate definition
	KindOverloads      // the name of a function; holds candidates
	KindVariant        // union variant constructor
)

func (k Kind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindVariable:
		return "variable"
	case KindFunction:
		return "function"
	case KindOverloads:
		return "overload set"
	case KindVariant:
		return "variant"
	default:
		return "invalid"
	}
}

// Attr is a set of access attributes.
type Attr uint8

const (
	AttrConst Attr = 1 << iota
	AttrStatic
	AttrExtern
	AttrPrivate
	AttrProtected
)

func (a Attr) Has(m Attr) bool { return a&m != 0 }

// StorageKind selects the storage class of a variable.
type StorageKind uint8

const (
	StorageNone StorageKind = iota
	StorageGlobal
	StorageLocal
	StorageCaptured
)

// Storage is exactly one of: a global slot, a frame offset relative to the
// base pointer, or a closure capture index.
//
// Frame offsets: arguments are positive (2+i), ordinary locals are zero or
// negative. Code generation shifts argument offsets past the capture slots.
type Storage struct {
	Kind  StorageKind
	Index int32
}

func Global(slot uint32) Storage {
	return Storage{Kind: StorageGlobal, Index: safecast.MustConv[int32](slot)}
}

func Local(offset int32) Storage { return Storage{Kind: StorageLocal, Index: offset} }

func Captured(i uint32) Storage {
	return Storage{Kind: StorageCaptured, Index: safecast.MustConv[int32](i)}
}

// ArgOffset is the frame offset of argument i before capture shifting.
func ArgOffset(i int) int32 { return safecast.MustConv[int32](2 + i) }

// IsArg reports a local that addresses an argument.
func (s Storage) IsArg() bool { return s.Kind == StorageLocal && s.Index > 0 }

func (s Storage) String() string {
	switch s.Kind {
	case StorageGlobal:
		return fmt.Sprintf("global[%d]", s.Index)
	case StorageLocal:
		return fmt.Sprintf("bp%+d", s.Index)
	case StorageCaptured:
		return fmt.Sprintf("capture[%d]", s.Index)
	default:
		return "none"
	}
}

// Template is attached to generic declarations. Instances are memoized by the
// structural-hash vector of their type arguments.
type Template struct {
	Params    []string
	Instances map[string]SymbolID
	Order     []SymbolID // instances in creation order
	Pattern   []types.TypeID
	Result    types.TypeID
}

// Symbol is a named entity. Symbols live for the whole unit and are
// referenced by ID from every use site.
type Symbol struct {
	ID    SymbolID
	Name  source.StringID
	Kind  Kind
	Attrs Attr
	Scope ScopeID // defining scope
	Decl  ast.NodeID
	Span  source.Span
	Type  types.TypeID

	Storage Storage
	Seq     uint32 // declaration order of locals; 0 elsewhere

	Overloads []SymbolID // KindOverloads
	Set       SymbolID   // KindFunction: owning overload set
	Body      ScopeID    // KindFunction: function scope
	Extern    uint64     // KindFunction with AttrExtern: native handle

	Template     *Template
	Origin       SymbolID // instance -> generic definition
	TemplateArgs []types.TypeID
	Rejected     bool // instance whose where clause failed

	Tag int // KindVariant: variant index within its union
}

// IsGeneric reports a definition that must be instantiated before use.
func (s *Symbol) IsGeneric() bool { return s.Template != nil }

// IsLocal reports a frame-resident variable.
func (s *Symbol) IsLocal() bool { return s.Storage.Kind == StorageLocal }
