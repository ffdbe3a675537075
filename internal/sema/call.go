package sema

import (
	"loom/internal/ast"
	"loom/internal/diag"
	"loom/internal/symbols"
	"loom/internal/types"
)

func (a *Analyzer) resolveCall(id ast.NodeID, n *ast.Node) types.TypeID {
	callee := a.node(n.A)
	switch callee.Kind {
	case ast.KindIdent:
		return a.callIdent(id, n, callee)
	case ast.KindMember:
		return a.callMember(id, n, callee)
	}
	return a.callValue(id, n)
}

// argState summarizes the arguments of a call.
type argState uint8

const (
	argsReady argState = iota
	argsPending
	argsFailed
)

// callActuals resolves the arguments of a call and expands unpacked tuples
// and fixed-count unpacks. spread reports an unpack whose element count is
// only known at run time.
func (a *Analyzer) callActuals(n *ast.Node) (acts []actual, spread bool, st argState) {
	for i := range n.List {
		arg := n.List[i]
		an := a.node(arg)
		if an.Kind != ast.KindUnpack {
			if !a.resolved(a.resolve(arg)) {
				st = max(st, argsPending)
			}
			acts = append(acts, actual{slot: &n.List[i], typ: an.ValueType})
			continue
		}
		inner := a.resolve(an.A)
		if !a.resolved(inner) {
			st = max(st, argsPending)
			continue
		}
		elems, dyn, ok := a.expand(arg, an, inner)
		if !ok {
			st = argsFailed
			continue
		}
		for _, e := range elems {
			acts = append(acts, actual{typ: e})
		}
		spread = spread || dyn
	}
	return acts, spread, st
}

// waitArgs maps a non-ready argument state onto the call node.
func (a *Analyzer) waitArgs(id ast.NodeID, st argState) types.TypeID {
	if st == argsFailed {
		return a.fail(id)
	}
	return a.pendingOrFail(id)
}

// expand lists the element types an unpack contributes. A count of -1
// unpacks everything; for arrays that count is dynamic.
func (a *Analyzer) expand(id ast.NodeID, n *ast.Node, inner types.TypeID) (elems []types.TypeID, dyn, ok bool) {
	t := a.types.MustLookup(a.types.Underlying(inner))
	count := int(n.Int)
	switch t.Kind {
	case types.KindTuple:
		elems = t.Params
		if count >= 0 {
			if count > len(elems) {
				a.errorf(diag.SemaTypeMismatch, n.Span, "cannot unpack %d elements from %s", count, a.typeStr(inner)).Emit()
				a.fail(id)
				return nil, false, false
			}
			elems = elems[:count]
		}
	case types.KindArray, types.KindDynamic:
		elem := a.builtins.Dynamic
		if t.Kind == types.KindArray {
			elem = t.Elem
		}
		if count < 0 {
			dyn = true
			break
		}
		for range count {
			elems = append(elems, elem)
		}
	default:
		a.errorf(diag.SemaTypeMismatch, n.Span, "cannot unpack %s", a.typeStr(inner)).Emit()
		a.fail(id)
		return nil, false, false
	}
	a.finish(id, inner)
	return elems, dyn, true
}

// touchArgs resolves the arguments of a call that already failed so their
// own errors are still reported.
func (a *Analyzer) touchArgs(n *ast.Node) {
	for _, arg := range n.List {
		if an := a.node(arg); an.Kind == ast.KindUnpack {
			a.resolve(an.A)
			continue
		}
		a.resolve(arg)
	}
}

func (a *Analyzer) callIdent(id ast.NodeID, n, callee *ast.Node) types.TypeID {
	if !a.typeArgsReady(callee) {
		return a.pendingOrFail(id)
	}
	symID, ok := a.lookupIdent(n.A, callee)
	if !ok {
		a.fail(n.A)
		a.touchArgs(n)
		return a.fail(id)
	}
	sym := a.table.Symbol(symID)
	switch sym.Kind {
	case symbols.KindOverloads:
		return a.callOverloads(id, n, callee, sym.Overloads)
	case symbols.KindVariant:
		return a.callVariant(id, n, symID)
	case symbols.KindType:
		a.errorf(diag.SemaNotCallable, callee.Span, "%s is a type; convert with `as`", callee.QualifiedName()).Emit()
		a.fail(n.A)
		a.touchArgs(n)
		return a.fail(id)
	}
	return a.callValue(id, n)
}

func (a *Analyzer) callOverloads(id ast.NodeID, n, callee *ast.Node, cands []symbols.SymbolID) types.TypeID {
	acts, spread, st := a.callActuals(n)
	if st != argsReady {
		return a.waitArgs(id, st)
	}
	explicit, _ := a.typeArgs(callee)
	sel := a.selectOverload(a.query(id), cands, explicit, len(callee.TypeArgs) > 0, acts, spread)
	if sel.pending {
		return a.pendingOrFail(id)
	}
	if !sel.ok {
		a.reportSelection(id, callee.QualifiedName(), sel, acts)
		a.fail(n.A)
		return a.fail(id)
	}
	return a.finishCall(id, n.A, sel.winner, acts, false)
}

// finishCall records the selected candidate, inserts the implicit casts it
// needs and completes the call with its result type.
func (a *Analyzer) finishCall(id, callee ast.NodeID, c candidate, acts []actual, method bool) types.TypeID {
	ft := a.ensureFunc(c.fn)
	if !a.resolved(ft) {
		return a.pendingOrFail(id)
	}
	info := a.funcs[c.fn]
	for _, i := range c.casts {
		a.castSlot(acts[i].slot, info.params[i])
	}
	kind := CallStatic
	if a.table.Symbol(c.fn).Attrs.Has(symbols.AttrExtern) {
		kind = CallNative
	}
	a.res.Calls[id] = CallInfo{Kind: kind, Target: c.fn, Method: method}
	a.res.Bindings[callee] = c.fn
	a.finish(callee, ft)
	return a.finish(id, a.types.MustLookup(ft).Result)
}

// callValue calls a computed function value.
func (a *Analyzer) callValue(id ast.NodeID, n *ast.Node) types.TypeID {
	ft := a.resolve(n.A)
	acts, spread, st := a.callActuals(n)
	if st != argsReady {
		return a.waitArgs(id, st)
	}
	if !a.resolved(ft) {
		return a.pendingOrFail(id)
	}
	return a.callTyped(id, n, ft, acts, spread)
}

func (a *Analyzer) callTyped(id ast.NodeID, n *ast.Node, ft types.TypeID, acts []actual, spread bool) types.TypeID {
	t := a.types.MustLookup(a.types.Underlying(ft))
	switch t.Kind {
	case types.KindFunc:
		_, casts, r := a.classify(t.Params, t.Variadic, acts, spread)
		switch r {
		case rejectArity:
			a.errorf(diag.SemaArity, n.Span, "%s expects %d arguments, got %d", a.typeStr(ft), len(t.Params), len(acts)).Emit()
			return a.fail(id)
		case rejectType:
			argTypes := make([]types.TypeID, len(acts))
			for i, act := range acts {
				argTypes[i] = act.typ
			}
			a.errorf(diag.SemaCallMismatch, n.Span, "cannot call %s with (%s)", a.typeStr(ft), a.typeList(argTypes)).Emit()
			return a.fail(id)
		}
		for _, i := range casts {
			a.castSlot(acts[i].slot, t.Params[i])
		}
		a.res.Calls[id] = CallInfo{Kind: CallValue}
		return a.finish(id, t.Result)
	case types.KindDynamic:
		a.res.Calls[id] = CallInfo{Kind: CallValue}
		return a.finish(id, a.builtins.Dynamic)
	}
	a.errorf(diag.SemaNotCallable, a.tree.Span(n.A), "%s is not callable", a.typeStr(ft)).Emit()
	return a.fail(id)
}

// callVariant constructs a union value: Shape::Circle(2.0).
func (a *Analyzer) callVariant(id ast.NodeID, n *ast.Node, variant symbols.SymbolID) types.TypeID {
	payload, union := a.variantTypes(variant)
	a.touchArgs(n)
	if !a.resolved(union) {
		return a.pendingOrFail(id)
	}
	name := a.name(variant)
	want := 0
	if payload != types.NoTypeID {
		want = 1
	}
	if len(n.List) != want {
		a.errorf(diag.SemaArity, n.Span, "variant %s takes %d payload values, got %d", name, want, len(n.List)).Emit()
		return a.fail(id)
	}
	if want == 1 {
		arg := a.node(n.List[0])
		if arg.Kind == ast.KindUnpack {
			a.errorf(diag.SemaTypeMismatch, arg.Span, "variant payloads cannot be unpacked").Emit()
			return a.fail(id)
		}
		if !a.resolved(arg.ValueType) {
			return a.pendingOrFail(id)
		}
		a.coerce(&n.List[0], payload, diag.SemaCallMismatch)
	}
	a.res.Calls[id] = CallInfo{Kind: CallVariant, Target: variant}
	a.res.Bindings[n.A] = variant
	a.finish(n.A, a.table.Symbol(variant).Type)
	return a.finish(id, union)
}

// callMember resolves obj.m(args). A named receiver type first tries the
// functions of the namespace named after the type, with the receiver as the
// first argument; otherwise m must be a struct field holding a function.
func (a *Analyzer) callMember(id ast.NodeID, n, member *ast.Node) types.TypeID {
	recv := a.resolve(member.A)
	acts, spread, st := a.callActuals(n)
	if st != argsReady {
		return a.waitArgs(id, st)
	}
	if !a.resolved(recv) {
		return a.pendingOrFail(id)
	}
	rt := a.types.MustLookup(recv)
	hasField := false
	if st := a.types.MustLookup(a.types.Underlying(recv)); st.Kind == types.KindStruct {
		_, hasField = st.FieldIndex(member.Name)
	}
	if rt.Named() {
		if set, ok := a.methodSet(symbols.SymbolID(rt.Sym), member.Name); ok {
			all := append([]actual{{slot: &member.A, typ: recv}}, acts...)
			var sel selection
			found := a.trying(func() bool {
				sel = a.selectOverload(a.query(id), set, nil, false, all, spread)
				return sel.ok
			})
			switch {
			case sel.pending:
				return a.pendingOrFail(id)
			case found:
				return a.finishCall(id, n.A, sel.winner, all, true)
			case !hasField:
				a.reportSelection(id, a.typeStr(recv)+"."+member.Name, sel, all)
				return a.fail(id)
			}
		}
	}
	ft := a.resolve(n.A)
	if !a.resolved(ft) {
		return a.pendingOrFail(id)
	}
	return a.callTyped(id, n, ft, acts, spread)
}

// methodSet finds the overload set name in the namespace that shares its
// name with the declaring type.
func (a *Analyzer) methodSet(typeSym symbols.SymbolID, name string) ([]symbols.SymbolID, bool) {
	ts := a.table.Symbol(typeSym)
	if ts == nil || !ts.Scope.IsValid() {
		return nil, false
	}
	ns, ok := a.table.Scope(ts.Scope).Namespaces[ts.Name]
	if !ok {
		return nil, false
	}
	id, ok := a.table.Scope(ns).Names[a.table.Strings.Intern(name)]
	if !ok {
		return nil, false
	}
	set := a.table.Symbol(id)
	if set.Kind != symbols.KindOverloads {
		return nil, false
	}
	return set.Overloads, true
}
