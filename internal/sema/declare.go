package sema

import (
	"slices"

	"loom/internal/ast"
	"loom/internal/diag"
	"loom/internal/symbols"
)

// declare is the declaration pass over id and its subtree. Revisiting a node
// that is still being declared is a silent no-op.
func (a *Analyzer) declare(id ast.NodeID) {
	if !id.IsValid() || a.declaring[id] {
		return
	}
	a.declaring[id] = true
	defer delete(a.declaring, id)

	a.setScope(id, a.scope)
	n := a.node(id)
	switch n.Kind {
	case ast.KindFile:
		a.declareList(n.List)
	case ast.KindNamespace:
		ns := a.table.Namespace(a.scope, n.Name, n.Span)
		a.withScope(ns, func() { a.declareList(n.List) })
	case ast.KindUsing:
		a.table.AddUsing(a.scope, symbols.Using{
			Path:       n.Path,
			FromGlobal: n.Flags.Has(ast.FlagFromGlobal),
			Span:       n.Span,
		})
	case ast.KindBlock:
		a.declareBlock(id)
	case ast.KindLet:
		a.declareLet(id)
	case ast.KindFunc:
		if n.Name != "" {
			a.declareFunc(id)
		} else {
			a.declareLiteral(id)
		}
	case ast.KindTypeDecl:
		a.declareTypeDecl(id)
	case ast.KindUnionDecl:
		a.declareUnion(id)
	case ast.KindIf:
		a.declare(n.A)
		a.declareNested(n.B)
		a.declareNested(n.C)
	case ast.KindWhile:
		a.declare(n.A)
		a.inLoop(n.Label, func() { a.declareNested(n.B) })
	case ast.KindFor:
		a.inBlock(id, func() {
			a.declare(n.A)
			a.declare(n.B)
			a.declare(n.C)
			a.inLoop(n.Label, func() { a.declareNested(n.D) })
		})
	case ast.KindForeach:
		a.declare(n.A)
		a.inBlock(id, func() {
			a.res.Decls[id] = a.declareLocal(id, n.Name)
			if n.Bind != "" {
				a.res.Keys[id] = a.declareLocal(id, n.Bind)
			}
			a.inLoop(n.Label, func() { a.declareNested(n.B) })
		})
	case ast.KindMatch:
		a.declare(n.A)
		for _, c := range n.List {
			a.matchOf[c] = id
			a.declareCase(c)
		}
	case ast.KindBreak, ast.KindContinue:
		a.checkLoopControl(id)
	case ast.KindReturn:
		a.declareReturn(id)
	case ast.KindLitInt:
		a.finish(id, a.builtins.Int)
	case ast.KindLitReal:
		a.finish(id, a.builtins.Real)
	case ast.KindLitString:
		a.finish(id, a.builtins.String)
	case ast.KindLitBool:
		a.finish(id, a.builtins.Bool)
	default:
		for _, c := range a.tree.Children(id) {
			a.declare(c)
		}
	}
}

func (a *Analyzer) declareList(ids []ast.NodeID) {
	for _, id := range ids {
		a.declare(id)
	}
}

func (a *Analyzer) withScope(s symbols.ScopeID, fn func()) {
	saved := a.scope
	a.scope = s
	fn()
	a.scope = saved
}

// inBlock opens a block scope owned by node id for the duration of fn.
// Slots allocated inside are reclaimed when the block ends.
func (a *Analyzer) inBlock(id ast.NodeID, fn func()) symbols.ScopeID {
	bs := a.table.NewScope(symbols.ScopeBlock, a.scope, "", a.tree.Span(id))
	a.table.EnterBlock(bs)
	a.withScope(bs, fn)
	a.table.LeaveBlock(bs)
	return bs
}

func (a *Analyzer) declareBlock(id ast.NodeID) {
	n := a.node(id)
	bs := a.inBlock(id, func() { a.declareList(n.List) })
	a.nodeScope[id] = bs
}

// declareNested declares a branch or loop body; non-block statements still
// get their own scope.
func (a *Analyzer) declareNested(id ast.NodeID) {
	if !id.IsValid() {
		return
	}
	if a.tree.Kind(id) == ast.KindBlock {
		a.declare(id)
		return
	}
	a.inBlock(id, func() { a.declare(id) })
}

func (a *Analyzer) inLoop(label string, fn func()) {
	a.loops = append(a.loops, label)
	fn()
	a.loops = a.loops[:len(a.loops)-1]
}

func (a *Analyzer) checkLoopControl(id ast.NodeID) {
	n := a.node(id)
	what := "break"
	if n.Kind == ast.KindContinue {
		what = "continue"
	}
	switch {
	case len(a.loops) == 0:
		a.errorf(diag.SemaInvalidLoopControl, n.Span, "%s outside of a loop", what).Emit()
	case n.Label != "" && !slices.Contains(a.loops, n.Label):
		a.errorf(diag.SemaInvalidLoopControl, n.Span, "%s refers to unknown loop label %q", what, n.Label).Emit()
	}
}

func (a *Analyzer) attrs(n *ast.Node) symbols.Attr {
	var at symbols.Attr
	if n.Flags.Has(ast.FlagConst) {
		at |= symbols.AttrConst
	}
	if n.Flags.Has(ast.FlagStatic) {
		at |= symbols.AttrStatic
	}
	if n.Flags.Has(ast.FlagExtern) {
		at |= symbols.AttrExtern
	}
	if n.Flags.Has(ast.FlagPrivate) {
		at |= symbols.AttrPrivate
	}
	if n.Flags.Has(ast.FlagProtected) {
		at |= symbols.AttrProtected
	}
	return at
}

func (a *Analyzer) redefinition(n *ast.Node, prev symbols.SymbolID) {
	b := a.errorf(diag.SemaRedefinition, n.Span, "%q is already declared in this scope", n.Name)
	if p := a.table.Symbol(prev); p != nil && p.Span != n.Span {
		b = b.WithNote(p.Span, "previous declaration here")
	}
	b.Emit()
}

// storage picks the storage class of a new variable in the current scope.
func (a *Analyzer) storage(static bool) symbols.Storage {
	if !static {
		if st, ok := a.table.AllocLocal(a.scope); ok {
			return st
		}
	}
	return a.table.AllocGlobal()
}

func (a *Analyzer) isLocalScope() bool {
	return a.table.FuncScope(a.scope).IsValid()
}

// declareLocal binds a compiler-introduced variable (loop or match binding).
func (a *Analyzer) declareLocal(owner ast.NodeID, name string) symbols.SymbolID {
	sym := symbols.Symbol{
		Name:    a.table.Strings.Intern(name),
		Kind:    symbols.KindVariable,
		Decl:    owner,
		Span:    a.tree.Span(owner),
		Type:    a.builtins.Pending,
		Storage: a.storage(false),
	}
	if a.isLocalScope() {
		sym.Seq = a.nodeSeq[owner]
	}
	id, prev := a.table.Declare(a.scope, sym)
	if prev.IsValid() {
		a.redefinition(&ast.Node{Name: name, Span: sym.Span}, prev)
		return prev
	}
	return id
}

func (a *Analyzer) declareLet(id ast.NodeID) {
	n := a.node(id)
	sym := symbols.Symbol{
		Name:  a.table.Strings.Intern(n.Name),
		Kind:  symbols.KindVariable,
		Attrs: a.attrs(n),
		Decl:  id,
		Span:  n.Span,
		Type:  a.builtins.Pending,
	}
	if n.IsGeneric() {
		sym.Template = &symbols.Template{Params: n.Params, Instances: make(map[string]symbols.SymbolID)}
	} else {
		static := sym.Attrs.Has(symbols.AttrStatic)
		sym.Storage = a.storage(static)
		if a.isLocalScope() && !static {
			sym.Seq = a.nodeSeq[id]
		}
	}
	symID, prev := a.table.Declare(a.scope, sym)
	if prev.IsValid() {
		a.redefinition(n, prev)
		return
	}
	a.res.Decls[id] = symID
	if n.IsGeneric() {
		return
	}
	if sym.Attrs.Has(symbols.AttrStatic) && a.isLocalScope() {
		a.res.Statics = append(a.res.Statics, GlobalInit{Symbol: symID, Init: n.B})
	}
	a.declare(n.A)
	// The symbol is registered first so a function literal initializer can
	// refer to itself.
	a.declare(n.B)
}

func (a *Analyzer) declareFunc(id ast.NodeID) {
	n := a.node(id)
	sym := symbols.Symbol{
		Name:  a.table.Strings.Intern(n.Name),
		Kind:  symbols.KindFunction,
		Attrs: a.attrs(n),
		Decl:  id,
		Span:  n.Span,
		Type:  a.builtins.Pending,
	}
	if n.IsGeneric() {
		sym.Template = &symbols.Template{Params: n.Params, Instances: make(map[string]symbols.SymbolID)}
	}
	if n.Flags.Has(ast.FlagExtern) {
		sym.Extern = a.loadExtern(n)
	}
	symID, prev := a.table.DeclareCandidate(a.scope, sym)
	if prev.IsValid() {
		a.redefinition(n, prev)
		return
	}
	a.res.Funcs[id] = symID
	if n.IsGeneric() {
		return
	}
	a.declareFuncBody(id, symID)
}

func (a *Analyzer) declareLiteral(id ast.NodeID) {
	n := a.node(id)
	symID := a.table.NewSymbol(symbols.Symbol{
		Name:  a.table.Strings.Intern("<lambda>"),
		Kind:  symbols.KindFunction,
		Scope: a.scope,
		Decl:  id,
		Span:  n.Span,
		Type:  a.builtins.Pending,
	})
	a.res.Funcs[id] = symID
	a.declareFuncBody(id, symID)
}

// declareFuncBody opens the function scope, binds parameters and declares
// the body. Shared by named functions, literals and template instances.
func (a *Analyzer) declareFuncBody(id ast.NodeID, fn symbols.SymbolID) {
	n := a.node(id)
	fs := a.table.NewScope(symbols.ScopeFunction, a.scope, "", n.Span)
	scope := a.table.Scope(fs)
	scope.Func = fn
	scope.Anonymous = n.Name == ""
	a.table.Symbol(fn).Body = fs
	a.funcs[fn] = &funcInfo{node: id}
	a.bodies = append(a.bodies, fn)

	savedLoops := a.loops
	a.loops = nil
	a.withScope(fs, func() {
		for i, p := range n.List {
			a.setScope(p, fs)
			pn := a.node(p)
			a.declare(pn.A)
			symID, prev := a.table.Declare(fs, symbols.Symbol{
				Name:    a.table.Strings.Intern(pn.Name),
				Kind:    symbols.KindVariable,
				Decl:    p,
				Span:    pn.Span,
				Type:    a.builtins.Pending,
				Storage: symbols.Local(symbols.ArgOffset(i)),
				Seq:     a.nodeSeq[p],
			})
			if prev.IsValid() {
				a.redefinition(pn, prev)
				continue
			}
			a.res.Decls[p] = symID
		}
		a.declare(n.A)
		a.declare(n.C)
		if body := n.B; body.IsValid() {
			// The outermost block shares the function scope with the parameters.
			a.setScope(body, fs)
			if a.tree.Kind(body) == ast.KindBlock {
				a.declareList(a.node(body).List)
			} else {
				a.declare(body)
			}
		}
	})
	a.loops = savedLoops
}

func (a *Analyzer) declareReturn(id ast.NodeID) {
	n := a.node(id)
	fs := a.table.FuncScope(a.scope)
	if !fs.IsValid() {
		a.errorf(diag.SemaInvalidReturn, n.Span, "return outside of a function").Emit()
	} else if info := a.funcs[a.table.Scope(fs).Func]; info != nil {
		info.returns = append(info.returns, id)
	}
	a.declare(n.A)
}

func (a *Analyzer) declareTypeDecl(id ast.NodeID) {
	n := a.node(id)
	sym := symbols.Symbol{
		Name:  a.table.Strings.Intern(n.Name),
		Kind:  symbols.KindType,
		Attrs: a.attrs(n),
		Decl:  id,
		Span:  n.Span,
		Type:  a.builtins.Pending,
	}
	if n.IsGeneric() {
		sym.Template = &symbols.Template{Params: n.Params, Instances: make(map[string]symbols.SymbolID)}
	}
	symID, prev := a.table.Declare(a.scope, sym)
	if prev.IsValid() {
		a.redefinition(n, prev)
		return
	}
	a.res.Decls[id] = symID
	if !n.IsGeneric() {
		a.declare(n.A)
	}
}

// declareUnion registers the union type and a namespace of the same name
// holding one constructor symbol per variant.
func (a *Analyzer) declareUnion(id ast.NodeID) {
	n := a.node(id)
	symID, prev := a.table.Declare(a.scope, symbols.Symbol{
		Name:  a.table.Strings.Intern(n.Name),
		Kind:  symbols.KindType,
		Attrs: a.attrs(n),
		Decl:  id,
		Span:  n.Span,
		Type:  a.builtins.Pending,
	})
	if prev.IsValid() {
		a.redefinition(n, prev)
		return
	}
	a.res.Decls[id] = symID
	ns := a.table.Namespace(a.scope, n.Name, n.Span)
	for i, v := range n.List {
		a.setScope(v, a.scope)
		vn := a.node(v)
		a.declare(vn.A)
		_, prev := a.table.Declare(ns, symbols.Symbol{
			Name:  a.table.Strings.Intern(vn.Name),
			Kind:  symbols.KindVariant,
			Attrs: a.attrs(n),
			Decl:  v,
			Span:  vn.Span,
			Type:  a.builtins.Pending,
			Set:   symID,
			Tag:   i,
		})
		if prev.IsValid() {
			a.redefinition(vn, prev)
		}
	}
}

func (a *Analyzer) declareCase(id ast.NodeID) {
	a.setScope(id, a.scope)
	n := a.node(id)
	a.inBlock(id, func() {
		if n.Bind != "" {
			a.res.Decls[id] = a.declareLocal(id, n.Bind)
		}
		a.declareNested(n.A)
	})
}

func (a *Analyzer) loadExtern(n *ast.Node) uint64 {
	if n.Extern == nil {
		a.errorf(diag.SemaExternLoadFailed, n.Span, "extern function %q has no native binding", n.Name).Emit()
		return 0
	}
	if a.opts.Externs == nil {
		a.errorf(diag.SemaExternLoadFailed, n.Span, "cannot load %s from %q: no extern loader configured",
			n.Extern.Symbol, n.Extern.Library).Emit()
		return 0
	}
	h, err := a.opts.Externs.Load(n.Extern.Library, n.Extern.Symbol)
	if err != nil {
		a.errorf(diag.SemaExternLoadFailed, n.Span, "cannot load %s from %q: %v",
			n.Extern.Symbol, n.Extern.Library, err).Emit()
		return 0
	}
	return h
}
