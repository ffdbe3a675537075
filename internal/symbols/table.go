package symbols

import (
	"fmt"

	"fortio.org/safecast"

	"loom/internal/source"
)

// Table owns every scope and symbol of one compilation unit.
type Table struct {
	Strings *source.Interner
	Root    ScopeID

	scopes  []*Scope
	symbols []*Symbol
	globals uint32
}

// NewTable creates a table with an empty global namespace. If strings is nil
// a fresh interner is allocated.
func NewTable(strings *source.Interner) *Table {
	if strings == nil {
		strings = source.NewInterner()
	}
	t := &Table{
		Strings: strings,
		scopes:  make([]*Scope, 1, 32),
		symbols: make([]*Symbol, 1, 128),
	}
	t.Root = t.NewScope(ScopeNamespace, NoScopeID, "", source.Span{})
	return t
}

// Scope returns the scope or nil.
func (t *Table) Scope(id ScopeID) *Scope {
	if id == NoScopeID || int(id) >= len(t.scopes) {
		return nil
	}
	return t.scopes[id]
}

// Symbol returns the symbol or nil.
func (t *Table) Symbol(id SymbolID) *Symbol {
	if id == NoSymbolID || int(id) >= len(t.symbols) {
		return nil
	}
	return t.symbols[id]
}

// Name returns the text of a symbol's name.
func (t *Table) Name(id SymbolID) string {
	if s := t.Symbol(id); s != nil {
		return t.Strings.MustLookup(s.Name)
	}
	return ""
}

func (t *Table) SymbolCount() int    { return len(t.symbols) - 1 }
func (t *Table) GlobalCount() uint32 { return t.globals }

// NewScope allocates a scope under parent.
func (t *Table) NewScope(kind ScopeKind, parent ScopeID, name string, span source.Span) ScopeID {
	n, err := safecast.Conv[uint32](len(t.scopes))
	if err != nil {
		panic(fmt.Errorf("scope arena overflow: %w", err))
	}
	id := ScopeID(n)
	t.scopes = append(t.scopes, &Scope{
		ID:         id,
		Kind:       kind,
		Parent:     parent,
		Name:       name,
		Span:       span,
		Names:      make(map[source.StringID]SymbolID),
		Namespaces: make(map[source.StringID]ScopeID),
	})
	return id
}

// Namespace returns the child namespace scope called name, creating it on
// first use. Re-opening a namespace reuses the existing scope.
func (t *Table) Namespace(parent ScopeID, name string, span source.Span) ScopeID {
	key := t.Strings.Intern(name)
	p := t.Scope(parent)
	if id, ok := p.Namespaces[key]; ok {
		return id
	}
	id := t.NewScope(ScopeNamespace, parent, name, span)
	p.Namespaces[key] = id
	return id
}

// NewSymbol stores sym without binding it to a name.
func (t *Table) NewSymbol(sym Symbol) SymbolID {
	n, err := safecast.Conv[uint32](len(t.symbols))
	if err != nil {
		panic(fmt.Errorf("symbol arena overflow: %w", err))
	}
	sym.ID = SymbolID(n)
	t.symbols = append(t.symbols, &sym)
	return sym.ID
}

// Declare binds sym under its name in scope. When the name is taken the
// existing symbol is returned and nothing is bound.
func (t *Table) Declare(scope ScopeID, sym Symbol) (id, existing SymbolID) {
	s := t.Scope(scope)
	if prev, ok := s.Names[sym.Name]; ok {
		return NoSymbolID, prev
	}
	sym.Scope = scope
	id = t.NewSymbol(sym)
	s.Names[sym.Name] = id
	if s.Kind == ScopeBlock {
		s.Introduced = append(s.Introduced, id)
	}
	return id, NoSymbolID
}

// DeclareCandidate adds a function definition to the overload set named
// cand.Name in scope, creating the set on first use. existing is non-zero when
// the name is bound to something other than an overload set.
func (t *Table) DeclareCandidate(scope ScopeID, cand Symbol) (id, existing SymbolID) {
	s := t.Scope(scope)
	setID, ok := s.Names[cand.Name]
	if ok && t.Symbol(setID).Kind != KindOverloads {
		return NoSymbolID, setID
	}
	if !ok {
		setID, _ = t.Declare(scope, Symbol{
			Name: cand.Name, Kind: KindOverloads, Span: cand.Span, Attrs: cand.Attrs,
		})
	}
	cand.Scope = scope
	cand.Set = setID
	id = t.NewSymbol(cand)
	set := t.Symbol(setID)
	set.Overloads = append(set.Overloads, id)
	return id, NoSymbolID
}

// AllocGlobal reserves the next global slot.
func (t *Table) AllocGlobal() Storage {
	slot := t.globals
	t.globals++
	return Global(slot)
}

// FuncScope returns the nearest enclosing function scope of s, or NoScopeID
// when s is not inside a function.
func (t *Table) FuncScope(s ScopeID) ScopeID {
	for ; s != NoScopeID; s = t.Scope(s).Parent {
		switch t.Scope(s).Kind {
		case ScopeFunction:
			return s
		case ScopeNamespace:
			return NoScopeID
		}
	}
	return NoScopeID
}

// AllocLocal reserves the next frame slot of the function enclosing s.
func (t *Table) AllocLocal(s ScopeID) (Storage, bool) {
	fn := t.Scope(t.FuncScope(s))
	if fn == nil {
		return Storage{}, false
	}
	off := -fn.StackTop
	fn.StackTop++
	if fn.StackTop > fn.MaxStack {
		fn.MaxStack = fn.StackTop
	}
	return Local(off), true
}

// EnterBlock records the frame height at block entry.
func (t *Table) EnterBlock(s ScopeID) {
	if fn := t.Scope(t.FuncScope(s)); fn != nil {
		t.Scope(s).StackBase = fn.StackTop
	}
}

// LeaveBlock releases the slots introduced by block s for reuse.
func (t *Table) LeaveBlock(s ScopeID) {
	if fn := t.Scope(t.FuncScope(s)); fn != nil {
		fn.StackTop = t.Scope(s).StackBase
	}
}

// Capture binds outer inside function scope fn, returning the captured copy.
// Repeated captures of the same symbol return the first copy.
func (t *Table) Capture(fn ScopeID, outer SymbolID) SymbolID {
	f := t.Scope(fn)
	if f.CaptureBind == nil {
		f.CaptureBind = make(map[SymbolID]SymbolID)
	}
	if id, ok := f.CaptureBind[outer]; ok {
		return id
	}
	src := t.Symbol(outer)
	idx := safecast.MustConv[uint32](len(f.Captures))
	id := t.NewSymbol(Symbol{
		Name:    src.Name,
		Kind:    KindVariable,
		Attrs:   src.Attrs,
		Scope:   fn,
		Decl:    src.Decl,
		Span:    src.Span,
		Type:    src.Type,
		Storage: Captured(idx),
		Origin:  outer,
	})
	f.Captures = append(f.Captures, outer)
	f.CaptureBind[outer] = id
	return id
}

// IsWithin reports whether s equals anc or is nested inside it.
func (t *Table) IsWithin(s, anc ScopeID) bool {
	for ; s != NoScopeID; s = t.Scope(s).Parent {
		if s == anc {
			return true
		}
	}
	return false
}

// QualifiedName renders the namespace path of a scope, "::a::b".
func (t *Table) QualifiedName(s ScopeID) string {
	out := ""
	for ; s != NoScopeID && s != t.Root; s = t.Scope(s).Parent {
		sc := t.Scope(s)
		if sc.Kind == ScopeNamespace {
			out = "::" + sc.Name + out
		}
	}
	if out == "" {
		return "::"
	}
	return out
}
