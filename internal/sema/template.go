package sema

import (
	"loom/internal/ast"
	"loom/internal/symbols"
	"loom/internal/types"
)

// instantiate returns the instance of generic gen for args, reifying it on
// first use. Structurally equal argument vectors share one instance.
func (a *Analyzer) instantiate(gen symbols.SymbolID, args []types.TypeID) symbols.SymbolID {
	g := a.table.Symbol(gen)
	if g.Template == nil {
		internalf(g.Decl, "%s is not generic", a.name(gen))
	}
	key := a.hasher.Key(args)
	if inst, ok := g.Template.Instances[key]; ok {
		return inst
	}

	clone := a.tree.Clone(g.Decl)
	cn := a.node(clone)
	cn.Params = nil

	ts := a.table.NewScope(symbols.ScopeTemplate, g.Scope, "", g.Span)
	for i, p := range g.Template.Params {
		a.table.Declare(ts, symbols.Symbol{
			Name: a.table.Strings.Intern(p),
			Kind: symbols.KindType,
			Span: g.Span,
			Type: args[i],
		})
	}

	inst := a.table.NewSymbol(symbols.Symbol{
		Name:         g.Name,
		Kind:         g.Kind,
		Attrs:        g.Attrs,
		Scope:        g.Scope,
		Decl:         clone,
		Span:         g.Span,
		Type:         a.builtins.Pending,
		Set:          g.Set,
		Extern:       g.Extern,
		Origin:       gen,
		TemplateArgs: append([]types.TypeID(nil), args...),
	})
	// Registered before analysis so recursive uses find the same instance.
	g.Template.Instances[key] = inst
	g.Template.Order = append(g.Template.Order, inst)

	savedScope, savedLoops := a.scope, a.loops
	a.scope, a.loops = ts, nil
	a.setScope(clone, ts)
	switch g.Kind {
	case symbols.KindFunction:
		a.res.Funcs[clone] = inst
		a.declareFuncBody(clone, inst)
	case symbols.KindVariable:
		sym := a.table.Symbol(inst)
		sym.Storage = a.table.AllocGlobal()
		a.res.Decls[clone] = inst
		a.res.Statics = append(a.res.Statics, GlobalInit{Symbol: inst, Init: cn.B})
		a.declare(cn.A)
		a.declare(cn.B)
		if !a.hasParams(args) {
			a.instances = append(a.instances, clone)
		}
	case symbols.KindType:
		a.res.Decls[clone] = inst
		a.declare(cn.A)
	}
	a.scope, a.loops = savedScope, savedLoops

	if g.Kind == symbols.KindFunction && cn.C.IsValid() && !a.hasParams(args) {
		if !a.trying(func() bool { return a.whereHolds(cn.C) }) {
			a.table.Symbol(inst).Rejected = true
		}
	}
	return inst
}

func (a *Analyzer) hasParams(args []types.TypeID) bool {
	for _, t := range args {
		if a.types.HasParams(t) {
			return true
		}
	}
	return false
}

// whereHolds evaluates a where clause; every condition must fold to true.
func (a *Analyzer) whereHolds(where ast.NodeID) bool {
	for _, c := range a.node(where).List {
		t := a.resolve(c)
		if !a.resolved(t) || a.types.Kind(t) != types.KindBool {
			return false
		}
		cn := a.node(c)
		folded := cn.Flags.Has(ast.FlagFolded) || cn.Kind == ast.KindLitBool
		if !folded || cn.Int == 0 {
			return false
		}
	}
	a.finish(where, a.builtins.Void)
	return true
}

// pattern returns the parameter types of a generic function with its type
// parameters left as placeholders. It is computed once per generic.
func (a *Analyzer) pattern(gen symbols.SymbolID) ([]types.TypeID, bool) {
	g := a.table.Symbol(gen)
	tpl := g.Template
	if tpl.Pattern != nil {
		return tpl.Pattern, true
	}
	ts := a.table.NewScope(symbols.ScopeTemplate, g.Scope, "", g.Span)
	for i, p := range tpl.Params {
		a.table.Declare(ts, symbols.Symbol{
			Name: a.table.Strings.Intern(p),
			Kind: symbols.KindType,
			Span: g.Span,
			Type: a.types.Param(p, i),
		})
	}
	n := a.node(g.Decl)
	out := make([]types.TypeID, len(n.List))
	for i, p := range n.List {
		pn := a.node(p)
		if !pn.A.IsValid() {
			out[i] = a.builtins.Dynamic
			continue
		}
		a.tree.Walk(pn.A, func(id ast.NodeID) bool {
			a.setScope(id, ts)
			return true
		})
		out[i] = a.resolveTypeExpr(pn.A)
		if !a.resolved(out[i]) {
			return nil, false
		}
	}
	tpl.Pattern = out
	return out, true
}

// derive infers the type arguments of a generic function from the actual
// argument types. Every type parameter must be bound.
func (a *Analyzer) derive(gen symbols.SymbolID, actuals []actual) ([]types.TypeID, bool) {
	pat, ok := a.pattern(gen)
	if !ok {
		return nil, false
	}
	bind := make([]types.TypeID, len(a.table.Symbol(gen).Template.Params))
	for i := range pat {
		if i >= len(actuals) {
			break
		}
		if !a.unify(pat[i], actuals[i].typ, bind) {
			return nil, false
		}
	}
	for _, b := range bind {
		if b == types.NoTypeID {
			return nil, false
		}
	}
	return bind, true
}

// unify matches a formal pattern against an actual type, recording the
// bindings of placeholders in bind. Concrete parts of the pattern are left
// for the overload classifier to check.
func (a *Analyzer) unify(formal, actual types.TypeID, bind []types.TypeID) bool {
	if !a.types.HasParams(formal) {
		return true
	}
	f := a.types.MustLookup(formal)
	if f.Kind == types.KindParam {
		i := int(f.Key)
		if bind[i] == types.NoTypeID {
			bind[i] = actual
			return true
		}
		return bind[i] == actual
	}
	act, ok := a.types.Lookup(actual)
	if !ok {
		return false
	}
	if f.Named() {
		if !act.Named() || a.originOf(f.Sym) != a.originOf(act.Sym) || len(f.Args) != len(act.Args) {
			return false
		}
		return a.unifyAll(f.Args, act.Args, bind)
	}
	if f.Kind != act.Kind {
		return false
	}
	switch f.Kind {
	case types.KindArray:
		return a.unify(f.Elem, act.Elem, bind)
	case types.KindMap:
		return a.unify(f.Key, act.Key, bind) && a.unify(f.Elem, act.Elem, bind)
	case types.KindTuple:
		return a.unifyAll(f.Params, act.Params, bind)
	case types.KindFunc:
		return a.unifyAll(f.Params, act.Params, bind) && a.unify(f.Result, act.Result, bind)
	case types.KindStruct, types.KindUnion:
		if len(f.Fields) != len(act.Fields) {
			return false
		}
		for i := range f.Fields {
			if f.Fields[i].Name != act.Fields[i].Name || !a.unify(f.Fields[i].Type, act.Fields[i].Type, bind) {
				return false
			}
		}
		return true
	}
	return false
}

func (a *Analyzer) unifyAll(formal, actual []types.TypeID, bind []types.TypeID) bool {
	if len(formal) != len(actual) {
		return false
	}
	for i := range formal {
		if !a.unify(formal[i], actual[i], bind) {
			return false
		}
	}
	return true
}

// originOf maps a named type's symbol to the generic it was reified from.
func (a *Analyzer) originOf(sym uint32) symbols.SymbolID {
	id := symbols.SymbolID(sym)
	if s := a.table.Symbol(id); s != nil && s.Origin.IsValid() {
		return s.Origin
	}
	return id
}
