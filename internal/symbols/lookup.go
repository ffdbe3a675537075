package symbols

import (
	"slices"

	"loom/internal/source"
)

// Query describes where a name is looked up from.
type Query struct {
	From ScopeID
	File source.FileID
	// Seq is the declaration order of the use site. Local variables declared
	// later in the same function are invisible. Zero disables the check.
	Seq uint32
}

// Result of a lookup. Ambiguous lists every distinct match when there is
// more than one; Symbol is then the first of them.
type Result struct {
	Symbol    SymbolID
	Ambiguous []SymbolID
	Denied    bool // found but not accessible from the query scope
}

func (r Result) Found() bool { return r.Symbol != NoSymbolID }

// Lookup resolves an unqualified name:
//  1. walk the scope chain; a local hit shadows everything, a namespace hit
//     ends the walk;
//  2. expand the using lists of the same chain and search each imported root;
//  3. collect the distinct matches of 1 and 2; more than one is ambiguous.
func (t *Table) Lookup(q Query, name string) Result {
	key := t.Strings.Intern(name)
	var hits []SymbolID
	for s := q.From; s != NoScopeID; s = t.Scope(s).Parent {
		sc := t.Scope(s)
		id, ok := sc.Names[key]
		if !ok || !t.visibleAt(id, q) {
			continue
		}
		if sc.Kind != ScopeNamespace {
			return t.result(q, []SymbolID{id})
		}
		hits = append(hits, id)
		break
	}
	for s := q.From; s != NoScopeID; s = t.Scope(s).Parent {
		for _, u := range t.Scope(s).Usings {
			root, ok := t.resolveUsing(s, u)
			if !ok {
				continue
			}
			if id, ok := t.Scope(root).Names[key]; ok {
				hits = append(hits, id)
			}
		}
	}
	return t.result(q, hits)
}

// LookupIn resolves name directly inside scope ns, without walking parents.
func (t *Table) LookupIn(q Query, ns ScopeID, name string) Result {
	id, ok := t.Scope(ns).Names[t.Strings.Intern(name)]
	if !ok {
		return Result{}
	}
	return t.result(q, []SymbolID{id})
}

// LookupQualified resolves path::name. ok is false when the namespace path
// itself does not resolve.
func (t *Table) LookupQualified(q Query, path []string, fromGlobal bool, name string) (Result, bool) {
	if len(path) == 0 {
		if fromGlobal {
			return t.LookupIn(q, t.Root, name), true
		}
		return t.Lookup(q, name), true
	}
	ns, ok := t.ResolveNamespace(q.From, path, fromGlobal)
	if !ok {
		return Result{}, false
	}
	return t.LookupIn(q, ns, name), true
}

// ResolveNamespace finds the namespace scope named by path as seen from scope
// from: the first segment is searched up the scope chain, then through the
// using lists of that chain.
func (t *Table) ResolveNamespace(from ScopeID, path []string, fromGlobal bool) (ScopeID, bool) {
	if fromGlobal {
		return t.descend(t.Root, path)
	}
	if ns, ok := t.namespaceOnChain(from, path); ok {
		return ns, true
	}
	for s := from; s != NoScopeID; s = t.Scope(s).Parent {
		for _, u := range t.Scope(s).Usings {
			root, ok := t.resolveUsing(s, u)
			if !ok {
				continue
			}
			if ns, ok := t.descend(root, path); ok {
				return ns, true
			}
		}
	}
	return NoScopeID, false
}

func (t *Table) namespaceOnChain(from ScopeID, path []string) (ScopeID, bool) {
	first := t.Strings.Intern(path[0])
	for s := from; s != NoScopeID; s = t.Scope(s).Parent {
		if child, ok := t.Scope(s).Namespaces[first]; ok {
			return t.descend(child, path[1:])
		}
	}
	return NoScopeID, false
}

func (t *Table) descend(ns ScopeID, path []string) (ScopeID, bool) {
	for _, seg := range path {
		child, ok := t.Scope(ns).Namespaces[t.Strings.Intern(seg)]
		if !ok {
			return NoScopeID, false
		}
		ns = child
	}
	return ns, true
}

// resolveUsing expands a using declared in scope owner. Imports are not
// transitive: the path is searched along owner's chain only.
func (t *Table) resolveUsing(owner ScopeID, u Using) (ScopeID, bool) {
	if u.FromGlobal {
		return t.descend(t.Root, u.Path)
	}
	return t.namespaceOnChain(owner, u.Path)
}

// AddUsing records an import in scope s.
func (t *Table) AddUsing(s ScopeID, u Using) {
	sc := t.Scope(s)
	sc.Usings = append(sc.Usings, u)
}

// UsingResolves reports whether u names an existing namespace from owner.
func (t *Table) UsingResolves(owner ScopeID, u Using) bool {
	_, ok := t.resolveUsing(owner, u)
	return ok
}

func (t *Table) result(q Query, hits []SymbolID) Result {
	if len(hits) == 0 {
		return Result{}
	}
	distinct := hits[:0:0]
	for _, h := range hits {
		if !slices.Contains(distinct, h) {
			distinct = append(distinct, h)
		}
	}
	r := Result{Symbol: distinct[0]}
	if len(distinct) > 1 {
		r.Ambiguous = distinct
		return r
	}
	r.Denied = !t.Accessible(q, r.Symbol)
	return r
}

func (t *Table) visibleAt(id SymbolID, q Query) bool {
	sym := t.Symbol(id)
	if q.Seq == 0 || sym.Seq == 0 || sym.Kind != KindVariable {
		return true
	}
	return sym.Seq <= q.Seq
}

// Accessible applies the private (same file) and protected (nested in the
// defining scope) rules.
func (t *Table) Accessible(q Query, id SymbolID) bool {
	sym := t.Symbol(id)
	if sym == nil {
		return false
	}
	if sym.Kind == KindOverloads {
		return true // candidates are filtered individually
	}
	if sym.Attrs.Has(AttrPrivate) && sym.Span.File != q.File {
		return false
	}
	if sym.Attrs.Has(AttrProtected) && !t.IsWithin(q.From, sym.Scope) {
		return false
	}
	return true
}
