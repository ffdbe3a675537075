package sema

import (
	"strconv"

	"loom/internal/ast"
	"loom/internal/diag"
	"loom/internal/symbols"
	"loom/internal/trace"
	"loom/internal/types"
)

// resolveSweeps repeats lenient sweeps while they make progress, then runs
// one strict sweep that turns every leftover pending node into a diagnostic.
func (a *Analyzer) resolveSweeps(tracer trace.Tracer, parent uint64) {
	for {
		a.res.Sweeps++
		span := trace.Begin(tracer, trace.ScopePass, "resolve_sweep", parent)
		a.sweep()
		span.WithExtra("pending", strconv.Itoa(a.pending)).
			WithExtra("strict", strconv.FormatBool(a.strict)).
			End("")
		if a.strict || a.pending == 0 {
			return
		}
		if !a.progress || a.res.Sweeps >= a.opts.MaxSweeps {
			a.strict = true
		}
	}
}

// sweep resolves every file, every function body and every reified
// variable once. Completed nodes are skipped.
func (a *Analyzer) sweep() {
	a.progress, a.pending = false, 0
	for _, f := range a.tree.Roots {
		a.resolve(f)
	}
	for i := 0; i < len(a.bodies); i++ {
		a.resolveBody(a.bodies[i])
	}
	for i := 0; i < len(a.instances); i++ {
		a.resolve(a.instances[i])
	}
}

func (a *Analyzer) resolveBody(fn symbols.SymbolID) {
	sym := a.table.Symbol(fn)
	if sym.Rejected || a.hasParams(sym.TemplateArgs) {
		return
	}
	info := a.funcs[fn]
	a.ensureFunc(fn)
	if body := a.node(info.node).B; body.IsValid() {
		a.resolve(body)
	}
}

// resolve computes the type of id, completing it when everything it depends
// on is known. Statements resolve to void.
func (a *Analyzer) resolve(id ast.NodeID) types.TypeID {
	if !id.IsValid() {
		return a.builtins.Void
	}
	n := a.node(id)
	if n.Completed {
		return n.ValueType
	}
	if a.resolving[id] {
		return a.pendingType()
	}
	a.resolving[id] = true
	defer delete(a.resolving, id)

	switch n.Kind {
	case ast.KindFile, ast.KindNamespace, ast.KindBlock:
		return a.resolveList(id, n.List)
	case ast.KindUsing:
		return a.resolveUsing(id, n)
	case ast.KindLet:
		return a.resolveLet(id, n)
	case ast.KindFunc:
		return a.resolveFunc(id, n)
	case ast.KindTypeDecl, ast.KindUnionDecl:
		return a.resolveTypeDecl(id, n)
	case ast.KindIf:
		c := a.condition(&n.A)
		return a.settle(id, c, a.resolve(n.B), a.resolve(n.C))
	case ast.KindWhile:
		c := a.condition(&n.A)
		return a.settle(id, c, a.resolve(n.B))
	case ast.KindFor:
		init := a.resolve(n.A)
		c := a.builtins.Bool
		if n.B.IsValid() {
			c = a.condition(&n.B)
		}
		return a.settle(id, init, c, a.resolve(n.C), a.resolve(n.D))
	case ast.KindForeach:
		return a.resolveForeach(id, n)
	case ast.KindMatch:
		return a.resolveMatch(id, n)
	case ast.KindCase:
		return a.settle(id, a.resolve(n.A))
	case ast.KindBreak, ast.KindContinue:
		return a.finish(id, a.builtins.Void)
	case ast.KindReturn:
		return a.resolveReturn(id, n)
	case ast.KindExprStmt:
		return a.settle(id, a.resolve(n.A))
	case ast.KindWhere:
		return a.resolveList(id, n.List)
	}
	if n.Kind.IsType() {
		return a.resolveTypeExpr(id)
	}
	return a.resolveExpr(id, n)
}

func (a *Analyzer) resolveList(id ast.NodeID, list []ast.NodeID) types.TypeID {
	done := true
	for _, c := range list {
		if !a.resolved(a.resolve(c)) {
			done = false
		}
	}
	if !done {
		return a.pendingType()
	}
	return a.finish(id, a.builtins.Void)
}

// settle completes a statement once all of its parts are resolved.
func (a *Analyzer) settle(id ast.NodeID, parts ...types.TypeID) types.TypeID {
	for _, t := range parts {
		if !a.resolved(t) {
			return a.pendingType()
		}
	}
	return a.finish(id, a.builtins.Void)
}

// pendingOrFail keeps id pending during lenient sweeps and reports it as
// not inferable in the strict one.
func (a *Analyzer) pendingOrFail(id ast.NodeID) types.TypeID {
	if !a.strict {
		return a.pendingType()
	}
	a.errorf(diag.SemaInferenceUnavailable, a.tree.Span(id), "cannot infer the type of this %s", a.tree.Kind(id)).Emit()
	return a.fail(id)
}

func (a *Analyzer) resolveUsing(id ast.NodeID, n *ast.Node) types.TypeID {
	u := symbols.Using{Path: n.Path, FromGlobal: n.Flags.Has(ast.FlagFromGlobal), Span: n.Span}
	if !a.table.UsingResolves(a.scopeOf(id), u) {
		a.errorf(diag.SemaUnknownNamespace, n.Span, "unknown namespace %s", a.usingPath(u)).Emit()
	}
	return a.finish(id, a.builtins.Void)
}

func (a *Analyzer) usingPath(u symbols.Using) string {
	out := ""
	if u.FromGlobal {
		out = "::"
	}
	for i, p := range u.Path {
		if i > 0 {
			out += "::"
		}
		out += p
	}
	return out
}

// condition resolves a branch or loop condition, which must be bool.
func (a *Analyzer) condition(slot *ast.NodeID) types.TypeID {
	t := a.resolve(*slot)
	if !a.resolved(t) {
		return t
	}
	switch a.types.Kind(t) {
	case types.KindBool, types.KindDynamic:
	default:
		a.errorf(diag.SemaConditionNotBool, a.tree.Span(*slot), "condition has type %s, want bool", a.typeStr(t)).Emit()
	}
	return t
}

// coerce makes the value in slot acceptable as want, wrapping it in an
// implicit cast when the conversion table allows one. It reports code on a
// mismatch and returns false only while either side is pending.
func (a *Analyzer) coerce(slot *ast.NodeID, want types.TypeID, code diag.Code) bool {
	got := a.node(*slot).ValueType
	if !a.resolved(got) || !a.resolved(want) {
		return false
	}
	if a.types.Accept(want, got) {
		return true
	}
	if a.types.ImplicitCast(got, want) {
		a.castSlot(slot, want)
		return true
	}
	a.errorf(code, a.tree.Span(*slot), "cannot use %s as %s", a.typeStr(got), a.typeStr(want)).Emit()
	return true
}

// castSlot wraps the expression in slot in a completed implicit cast to t.
func (a *Analyzer) castSlot(slot *ast.NodeID, t types.TypeID) {
	inner := *slot
	c := a.tree.New(ast.Node{
		Kind:      ast.KindCast,
		Span:      a.tree.Span(inner),
		Flags:     ast.FlagImplicit,
		A:         inner,
		ValueType: t,
		Completed: true,
	})
	a.adopt(c, inner)
	*slot = c
}

// declarations

func (a *Analyzer) resolveLet(id ast.NodeID, n *ast.Node) types.TypeID {
	if n.IsGeneric() {
		return a.finish(id, a.builtins.Void)
	}
	symID, ok := a.res.Decls[id]
	if !ok {
		a.resolve(n.B)
		return a.finish(id, a.builtins.Void)
	}
	t := a.letType(id)
	if !n.B.IsValid() {
		return a.settle(id, t)
	}
	init := a.resolve(n.B)
	if !a.resolved(t) || !a.resolved(init) {
		return a.pendingType()
	}
	a.coerce(&n.B, a.table.Symbol(symID).Type, diag.SemaAssignMismatch)
	return a.finish(id, a.builtins.Void)
}

// letType resolves the type of the variable declared by a Let node: the
// annotation when present, otherwise the type of the initializer.
func (a *Analyzer) letType(id ast.NodeID) types.TypeID {
	n := a.node(id)
	symID := a.res.Decls[id]
	sym := a.table.Symbol(symID)
	if a.resolved(sym.Type) {
		return sym.Type
	}
	if a.typing[symID] {
		return a.builtins.Pending
	}
	a.typing[symID] = true
	defer delete(a.typing, symID)

	var t types.TypeID
	switch {
	case n.A.IsValid():
		t = a.resolveTypeExpr(n.A)
	case n.B.IsValid():
		t = a.resolve(n.B)
	default:
		t = a.builtins.Dynamic
	}
	if a.resolved(t) {
		sym.Type = t
	}
	return t
}

func (a *Analyzer) resolveFunc(id ast.NodeID, n *ast.Node) types.TypeID {
	if n.IsGeneric() {
		return a.finish(id, a.builtins.Void)
	}
	fn, ok := a.res.Funcs[id]
	if !ok {
		return a.finish(id, a.builtins.Void)
	}
	t := a.ensureFunc(fn)
	if !a.resolved(t) {
		return a.pendingOrFail(id)
	}
	return a.finish(id, t)
}

func (a *Analyzer) resolveTypeDecl(id ast.NodeID, n *ast.Node) types.TypeID {
	sym, ok := a.res.Decls[id]
	if !ok || n.IsGeneric() {
		return a.finish(id, a.builtins.Void)
	}
	return a.settle(id, a.typeOfTypeSymbol(sym))
}

// functions

// ensureFunc resolves the signature of fn and returns its function type, or
// the pending type while parameters or the result are still unknown.
func (a *Analyzer) ensureFunc(fn symbols.SymbolID) types.TypeID {
	sym := a.table.Symbol(fn)
	info := a.funcs[fn]
	if info == nil {
		internalf(sym.Decl, "function %s has no body info", a.name(fn))
	}
	if info.sigDone && a.resolved(sym.Type) {
		return sym.Type
	}
	if !a.paramTypes(info) {
		return a.builtins.Pending
	}
	result := a.funcResult(fn, info)
	if !a.resolved(result) {
		return a.builtins.Pending
	}
	sym.Type = a.types.Func(info.params, info.variadic, result)
	return sym.Type
}

// paramTypes resolves the parameter annotations of a function. Unannotated
// parameters are dynamic.
func (a *Analyzer) paramTypes(info *funcInfo) bool {
	if info.sigDone {
		return true
	}
	n := a.node(info.node)
	params := make([]types.TypeID, len(n.List))
	for i, p := range n.List {
		t := a.paramType(p)
		if !a.resolved(t) {
			return false
		}
		params[i] = t
	}
	info.params = params
	info.variadic = n.Flags.Has(ast.FlagVariadic)
	info.sigDone = true
	return true
}

func (a *Analyzer) paramType(p ast.NodeID) types.TypeID {
	pn := a.node(p)
	t := a.builtins.Dynamic
	if pn.A.IsValid() {
		t = a.resolveTypeExpr(pn.A)
	}
	if a.resolved(t) {
		if sym, ok := a.res.Decls[p]; ok {
			a.table.Symbol(sym).Type = t
		}
		a.finish(p, t)
	}
	return t
}

// funcResult is the annotated result type, or the type of the first return
// statement whose value resolves. The inferred type is frozen once found;
// later returns are checked against it.
func (a *Analyzer) funcResult(fn symbols.SymbolID, info *funcInfo) types.TypeID {
	if a.resolved(info.result) {
		return info.result
	}
	n := a.node(info.node)
	if n.A.IsValid() {
		t := a.resolveTypeExpr(n.A)
		if a.resolved(t) {
			info.result = t
		}
		return t
	}
	if len(info.returns) == 0 {
		info.result = a.builtins.Void
		return info.result
	}
	if a.typing[fn] {
		return a.builtins.Pending
	}
	a.typing[fn] = true
	defer delete(a.typing, fn)
	for _, r := range info.returns {
		value := a.node(r).A
		if !value.IsValid() {
			info.result = a.builtins.Void
			return info.result
		}
		if t := a.resolve(value); a.resolved(t) {
			info.result = t
			return t
		}
	}
	return a.builtins.Pending
}

func (a *Analyzer) resolveReturn(id ast.NodeID, n *ast.Node) types.TypeID {
	fs := a.table.FuncScope(a.scopeOf(id))
	if !fs.IsValid() {
		a.resolve(n.A)
		return a.finish(id, a.builtins.Void)
	}
	fn := a.table.Scope(fs).Func
	info := a.funcs[fn]
	want := a.funcResult(fn, info)
	got := a.resolve(n.A)
	if !a.resolved(want) || !a.resolved(got) {
		return a.pendingOrFail(id)
	}
	isVoid := a.types.Kind(want) == types.KindVoid
	switch {
	case !n.A.IsValid() && !isVoid:
		a.errorf(diag.SemaReturnMismatch, n.Span, "missing return value of type %s", a.typeStr(want)).Emit()
	case n.A.IsValid() && isVoid:
		a.errorf(diag.SemaReturnMismatch, a.tree.Span(n.A), "function %s does not return a value", a.name(fn)).Emit()
	case n.A.IsValid() && !a.node(info.node).A.IsValid():
		// inferred result: every return must already agree, no implicit casts
		if !a.types.Accept(want, got) {
			a.errorf(diag.SemaReturnMismatch, a.tree.Span(n.A), "return of %s disagrees with the inferred result %s of %s",
				a.typeStr(got), a.typeStr(want), a.name(fn)).Emit()
		}
	case n.A.IsValid():
		a.coerce(&n.A, want, diag.SemaReturnMismatch)
	}
	return a.finish(id, a.builtins.Void)
}

// loops

func (a *Analyzer) resolveForeach(id ast.NodeID, n *ast.Node) types.TypeID {
	value, _ := a.foreachTypes(id)
	if !a.resolved(value) {
		a.resolve(n.B)
		return a.pendingOrFail(id)
	}
	return a.settle(id, a.resolve(n.B))
}

// foreachTypes derives the value and key variable types from the iterable:
// arrays yield (elem, int), maps (value, key), strings (string, int).
func (a *Analyzer) foreachTypes(id ast.NodeID) (value, key types.TypeID) {
	n := a.node(id)
	it := a.resolve(n.A)
	if !a.resolved(it) {
		return it, it
	}
	b := a.builtins
	t := a.types.MustLookup(a.types.Underlying(it))
	switch t.Kind {
	case types.KindArray:
		value, key = t.Elem, b.Int
	case types.KindMap:
		value, key = t.Elem, t.Key
	case types.KindString:
		value, key = b.String, b.Int
	case types.KindDynamic:
		value, key = b.Dynamic, b.Dynamic
	default:
		a.errorf(diag.SemaNotIterable, a.tree.Span(n.A), "cannot iterate over %s", a.typeStr(it)).Emit()
		value, key = b.Dynamic, b.Dynamic
	}
	if sym, ok := a.res.Decls[id]; ok {
		a.table.Symbol(sym).Type = value
	}
	if sym, ok := a.res.Keys[id]; ok {
		a.table.Symbol(sym).Type = key
	}
	return value, key
}

// variables

// varType returns the type of a variable symbol, resolving its declaration
// on demand.
func (a *Analyzer) varType(id symbols.SymbolID) types.TypeID {
	sym := a.table.Symbol(id)
	if a.resolved(sym.Type) {
		return sym.Type
	}
	if sym.Storage.Kind == symbols.StorageCaptured && sym.Origin.IsValid() {
		t := a.varType(sym.Origin)
		if a.resolved(t) {
			sym.Type = t
		}
		return t
	}
	if !sym.Decl.IsValid() {
		return a.builtins.Pending
	}
	switch a.tree.Kind(sym.Decl) {
	case ast.KindLet:
		return a.letType(sym.Decl)
	case ast.KindParam:
		return a.paramType(sym.Decl)
	case ast.KindForeach:
		value, key := a.foreachTypes(sym.Decl)
		if keyID, ok := a.res.Keys[sym.Decl]; ok && keyID == id {
			return key
		}
		return value
	case ast.KindCase:
		return a.caseBindType(sym.Decl)
	}
	return a.builtins.Pending
}
