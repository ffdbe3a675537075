package codegen

import (
	"loom/internal/ast"
	"loom/internal/bytecode"
	"loom/internal/symbols"
)

func (g *generator) stmts(list []ast.NodeID) {
	for _, id := range list {
		g.stmt(id)
	}
}

func (g *generator) stmt(id ast.NodeID) {
	if !id.IsValid() {
		return
	}
	n := g.node(id)
	if n.Kind.IsExpr() && n.Kind != ast.KindFunc {
		g.free(g.expr(id, needAny))
		return
	}
	g.dbg.Node(g.b.Pos(), n.Span)
	switch n.Kind {
	case ast.KindFile, ast.KindNamespace, ast.KindBlock:
		g.stmts(n.List)
	case ast.KindExprStmt:
		g.free(g.expr(n.A, needAny))
	case ast.KindLet:
		g.let(id, n)
	case ast.KindFunc, ast.KindTypeDecl, ast.KindUnionDecl, ast.KindUsing:
		// declarations; function bodies are emitted when first referenced
	case ast.KindIf:
		g.ifStmt(n)
	case ast.KindWhile:
		g.while(n)
	case ast.KindFor:
		g.forStmt(n)
	case ast.KindForeach:
		g.foreach(id, n)
	case ast.KindMatch:
		g.match(id, n)
	case ast.KindBreak:
		g.emit(bytecode.OpJmp, g.target(id, n.Label).brk.Operand())
	case ast.KindContinue:
		g.emit(bytecode.OpJmp, g.target(id, n.Label).cont.Operand())
	case ast.KindReturn:
		g.ret(n)
	default:
		fatalf(id, "cannot emit %s as a statement", n.Kind)
	}
}

func (g *generator) let(id ast.NodeID, n *ast.Node) {
	if n.IsGeneric() || n.Flags.Has(ast.FlagStatic) {
		return
	}
	sym, ok := g.res.Decls[id]
	if !ok || g.table.Symbol(sym).Rejected {
		return
	}
	dst := g.storage(sym)
	if !n.B.IsValid() {
		g.move(dst, g.zero(id, g.table.Symbol(sym).Type))
		return
	}
	g.move(dst, g.expr(n.B, needAny))
}

func (g *generator) cond(id ast.NodeID, target bytecode.Label) {
	c := g.expr(id, needAny)
	g.emit(bytecode.OpJf, c, target.Operand())
	g.free(c)
}

func (g *generator) ifStmt(n *ast.Node) {
	end := g.b.NewLabel()
	if !n.C.IsValid() {
		g.cond(n.A, end)
		g.stmt(n.B)
		g.b.Bind(end)
		return
	}
	els := g.b.NewLabel()
	g.cond(n.A, els)
	g.stmt(n.B)
	g.emit(bytecode.OpJmp, end.Operand())
	g.b.Bind(els)
	g.stmt(n.C)
	g.b.Bind(end)
}

func (g *generator) while(n *ast.Node) {
	top, brk := g.b.NewLabel(), g.b.NewLabel()
	g.b.Bind(top)
	g.cond(n.A, brk)
	g.inLoop(loop{label: n.Label, brk: brk, cont: top}, n.B)
	g.emit(bytecode.OpJmp, top.Operand())
	g.b.Bind(brk)
}

func (g *generator) forStmt(n *ast.Node) {
	g.stmt(n.A)
	top, cont, brk := g.b.NewLabel(), g.b.NewLabel(), g.b.NewLabel()
	g.b.Bind(top)
	if n.B.IsValid() {
		g.cond(n.B, brk)
	}
	g.inLoop(loop{label: n.Label, brk: brk, cont: cont}, n.D)
	g.b.Bind(cont)
	g.stmt(n.C)
	g.emit(bytecode.OpJmp, top.Operand())
	g.b.Bind(brk)
}

// foreach keeps the iterator in a held reference register for the whole
// loop; calls in the body spill and restore it.
func (g *generator) foreach(id ast.NodeID, n *ast.Node) {
	x := g.expr(n.A, needAny)
	g.emit(bytecode.OpIter, x)
	g.free(x)
	it := g.r.acquire(id)
	g.emit(bytecode.OpMov, it, bytecode.CR)
	g.r.hold(it)

	top, brk := g.b.NewLabel(), g.b.NewLabel()
	g.b.Bind(top)
	g.emit(bytecode.OpIterNext, it, brk.Operand())
	if sym, ok := g.res.Decls[id]; ok {
		g.emit(bytecode.OpIterVal, it)
		g.move(g.storage(sym), bytecode.CR)
	}
	if sym, ok := g.res.Keys[id]; ok {
		g.emit(bytecode.OpIterKey, it)
		g.move(g.storage(sym), bytecode.CR)
	}
	g.inLoop(loop{label: n.Label, brk: brk, cont: top}, n.B)
	g.emit(bytecode.OpJmp, top.Operand())
	g.b.Bind(brk)
	g.r.unhold(it)
}

// match dispatches on the variant tag of the subject. Arms are tested in
// source order; the default arm, if any, is taken when none matches.
func (g *generator) match(id ast.NodeID, n *ast.Node) {
	subj := g.stable(g.expr(n.A, needAny), g.node(n.A).ValueType, id)
	held := subj.Kind == bytecode.KindR
	if held {
		g.r.hold(subj)
	}
	g.emit(bytecode.OpTag, subj)
	tag := g.t.acquire(id)
	g.emit(bytecode.OpMov, tag, bytecode.CR)

	end := g.b.NewLabel()
	arms := make([]bytecode.Label, len(n.List))
	fallback := end
	for i, c := range n.List {
		arms[i] = g.b.NewLabel()
		t, ok := g.res.Cases[c]
		if !ok {
			fatalf(c, "match arm was never resolved")
		}
		if t < 0 {
			fallback = arms[i]
			continue
		}
		g.emit(bytecode.Specialize(bytecode.OpEq, bytecode.PrimInt), tag, bytecode.Int(int64(t)))
		g.emit(bytecode.OpJt, bytecode.CR, arms[i].Operand())
	}
	g.emit(bytecode.OpJmp, fallback.Operand())
	g.t.release(tag)

	for i, c := range n.List {
		g.b.Bind(arms[i])
		cn := g.node(c)
		g.dbg.Node(g.b.Pos(), cn.Span)
		if sym, ok := g.res.Decls[c]; ok {
			g.emit(bytecode.OpVal, subj)
			g.move(g.storage(sym), bytecode.CR)
		}
		g.stmt(cn.A)
		g.emit(bytecode.OpJmp, end.Operand())
	}
	g.b.Bind(end)
	if held {
		g.r.unhold(subj)
	} else {
		g.free(subj)
	}
}

func (g *generator) ret(n *ast.Node) {
	if g.fn.fn == symbols.NoSymbolID {
		if n.A.IsValid() {
			g.free(g.expr(n.A, needAny))
		}
		g.emit(bytecode.OpHalt)
		return
	}
	if !n.A.IsValid() {
		g.emit(bytecode.OpRet, bytecode.None)
		return
	}
	v := g.expr(n.A, needAny)
	g.emit(bytecode.OpRet, v)
	g.free(v)
}

func (g *generator) inLoop(l loop, body ast.NodeID) {
	g.fn.loops = append(g.fn.loops, l)
	g.stmt(body)
	g.fn.loops = g.fn.loops[:len(g.fn.loops)-1]
}

// target finds the loop of break or continue: the innermost loop, or the
// innermost one carrying label.
func (g *generator) target(id ast.NodeID, label string) loop {
	for i := len(g.fn.loops) - 1; i >= 0; i-- {
		if l := g.fn.loops[i]; label == "" || l.label == label {
			return l
		}
	}
	fatalf(id, "no enclosing loop for %q", label)
	return loop{}
}
