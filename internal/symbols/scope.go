package symbols

import (
	"loom/internal/source"
)

// ScopeKind enumerates lexical scopes.
type ScopeKind uint8

const (
	ScopeInvalid   ScopeKind = iota
	ScopeNamespace           // global root, namespace, union variant namespace
	ScopeFunction            // function body and its parameters
	ScopeBlock               // statement block, loop, match arm
	ScopeTemplate            // binds template parameter names for one instance
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeNamespace:
		return "namespace"
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	case ScopeTemplate:
		return "template"
	default:
		return "invalid"
	}
}

// Using is one `using namespace` import.
type Using struct {
	Path       []string
	FromGlobal bool
	Span       source.Span
}

// Scope owns the names declared directly inside it.
type Scope struct {
	ID     ScopeID
	Kind   ScopeKind
	Parent ScopeID
	Name   string // namespaces only
	Span   source.Span

	Names      map[source.StringID]SymbolID
	Namespaces map[source.StringID]ScopeID
	Usings     []Using

	// ScopeFunction.
	Func        SymbolID
	Anonymous   bool
	StackTop    int32 // live local slots
	MaxStack    int32 // high-water mark
	Captures    []SymbolID
	CaptureBind map[SymbolID]SymbolID // outer symbol -> captured copy

	// ScopeBlock.
	StackBase  int32
	Introduced []SymbolID
}

func (s *Scope) IsLocal() bool {
	return s.Kind == ScopeFunction || s.Kind == ScopeBlock
}
