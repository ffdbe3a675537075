package codegen

import (
	"loom/internal/ast"
	"loom/internal/bytecode"
	"loom/internal/symbols"
	"loom/internal/types"
)

// need is what the consumer of an expression accepts.
type need uint8

const (
	needAny need = iota // immediates, memory and the volatile cr/rr included
	needReg             // a scratch register owned by the consumer
)

// expr materializes the value of an expression. Scratch registers in the
// result belong to the caller, which frees them once consumed.
func (g *generator) expr(id ast.NodeID, nd need) bytecode.Operand {
	n := g.node(id)
	if !n.Completed || !g.types.IsResolved(n.ValueType) {
		fatalf(id, "%s reached code generation unresolved", n.Kind)
	}
	g.dbg.Node(g.b.Pos(), n.Span)
	op := g.value(id, n)
	if nd == needReg {
		op = g.reg(op, n.ValueType, id)
	}
	return op
}

func (g *generator) value(id ast.NodeID, n *ast.Node) bytecode.Operand {
	switch n.Kind {
	case ast.KindLitInt:
		return bytecode.Int(n.Int)
	case ast.KindLitReal:
		return bytecode.Real(n.Real)
	case ast.KindLitString:
		return g.b.String(n.Str)
	case ast.KindLitBool:
		return bytecode.Bool(n.Int != 0)
	case ast.KindTypeIs:
		return bytecode.Bool(n.Int != 0)
	case ast.KindIdent:
		return g.ident(id, n)
	case ast.KindBinary:
		return g.binary(id, n)
	case ast.KindUnary:
		return g.unary(n)
	case ast.KindAssign:
		return g.assign(id, n)
	case ast.KindCall:
		return g.call(id, n)
	case ast.KindIndex:
		ops := g.operands(n.A, n.B)
		g.emit(bytecode.OpIdx, ops[0], ops[1])
		g.free(ops...)
		return bytecode.CR
	case ast.KindMember:
		x := g.expr(n.A, needAny)
		g.emit(bytecode.OpFld, x, g.field(id, n))
		g.free(x)
		return bytecode.CR
	case ast.KindArrayLit:
		g.pushAll(n.List)
		g.emit(bytecode.OpMkArr, bytecode.Int(int64(len(n.List))))
		return bytecode.CR
	case ast.KindMapLit:
		for _, p := range n.List {
			pn := g.node(p)
			g.push(pn.A)
			g.push(pn.B)
		}
		g.emit(bytecode.OpMkMap, bytecode.Int(int64(len(n.List))))
		return bytecode.CR
	case ast.KindTupleLit:
		g.pushAll(n.List)
		g.emit(bytecode.OpMkTup, bytecode.Int(int64(len(n.List))))
		return bytecode.CR
	case ast.KindStructLit:
		given := make(map[string]ast.NodeID, len(n.List))
		for _, f := range n.List {
			fn := g.node(f)
			given[fn.Name] = fn.A
		}
		return g.makeStruct(id, n.ValueType, given)
	case ast.KindCast:
		return g.cast(id, n)
	case ast.KindFunc:
		return g.lambda(id)
	}
	fatalf(id, "cannot emit %s as a value", n.Kind)
	return bytecode.None
}

func (g *generator) binding(id ast.NodeID) symbols.SymbolID {
	sym, ok := g.res.Bindings[id]
	if !ok {
		fatalf(id, "identifier %s is unbound", g.node(id).QualifiedName())
	}
	return sym
}

func (g *generator) ident(id ast.NodeID, n *ast.Node) bytecode.Operand {
	sym := g.binding(id)
	s := g.table.Symbol(sym)
	switch s.Kind {
	case symbols.KindVariable:
		return g.storage(sym)
	case symbols.KindFunction:
		if s.Attrs.Has(symbols.AttrExtern) {
			return bytecode.Native(g.nativeRef(sym))
		}
		return bytecode.Func(g.funcRef(sym))
	case symbols.KindVariant:
		g.emit(bytecode.OpMkVar, bytecode.Type(g.typeRef(n.ValueType)), bytecode.Int(int64(s.Tag)), bytecode.Int(0))
		return bytecode.CR
	}
	fatalf(id, "%s %s is not a value", s.Kind, n.QualifiedName())
	return bytecode.None
}

// field addresses a struct member by offset, or by name on dynamic values.
func (g *generator) field(id ast.NodeID, n *ast.Node) bytecode.Operand {
	if i, ok := g.res.Fields[id]; ok {
		return bytecode.Int(int64(i))
	}
	return g.b.String(n.Name)
}

// lambda materializes a function literal: a plain function reference, or a
// closure over the current values of its captures.
func (g *generator) lambda(id ast.NodeID) bytecode.Operand {
	fn, ok := g.res.Funcs[id]
	if !ok {
		fatalf(id, "function literal was never declared")
	}
	idx := g.funcRef(fn)
	caps := g.res.FuncScope(fn).Captures
	if len(caps) == 0 {
		return bytecode.Func(idx)
	}
	for _, c := range caps {
		g.emit(bytecode.OpPsh, g.storage(c))
	}
	g.emit(bytecode.OpMkClos, bytecode.Func(idx), bytecode.Int(int64(len(caps))))
	return bytecode.CR
}

func (g *generator) cast(id ast.NodeID, n *ast.Node) bytecode.Operand {
	v := g.expr(n.A, needAny)
	from := g.types.Kind(g.types.Underlying(g.node(n.A).ValueType))
	to := g.types.Kind(g.types.Underlying(n.ValueType))
	if from == to || to == types.KindDynamic {
		return v
	}
	if to == types.KindVoid {
		fatalf(id, "cast to void")
	}
	g.emit(bytecode.OpCast, v, bytecode.Operand{Kind: bytecode.KindType, Val: int64(to)})
	g.free(v)
	return bytecode.CR
}

// makeStruct pushes every field of struct type t in declaration order, taking
// given values, then declared defaults, then zero values.
func (g *generator) makeStruct(at ast.NodeID, t types.TypeID, given map[string]ast.NodeID) bytecode.Operand {
	st := g.types.MustLookup(g.types.Underlying(t))
	defaults, ok := g.res.FieldDefaults[t]
	if !ok {
		defaults = g.res.FieldDefaults[g.types.Underlying(t)]
	}
	for i, f := range st.Fields {
		switch v, ok := given[f.Name]; {
		case ok:
			g.push(v)
		case i < len(defaults) && defaults[i].IsValid():
			g.push(defaults[i])
		default:
			g.pushOp(g.zero(at, f.Type))
		}
	}
	g.emit(bytecode.OpMkStruct, bytecode.Type(g.typeRef(t)), bytecode.Int(int64(len(st.Fields))))
	return bytecode.CR
}

// zero is the initial value of a variable of type t declared without an
// initializer.
func (g *generator) zero(at ast.NodeID, t types.TypeID) bytecode.Operand {
	tt := g.types.MustLookup(g.types.Underlying(t))
	switch tt.Kind {
	case types.KindBool:
		return bytecode.Bool(false)
	case types.KindReal:
		return bytecode.Real(0)
	case types.KindString:
		return g.b.String("")
	case types.KindArray:
		g.emit(bytecode.OpMkArr, bytecode.Int(0))
		return bytecode.CR
	case types.KindMap:
		g.emit(bytecode.OpMkMap, bytecode.Int(0))
		return bytecode.CR
	case types.KindTuple:
		for _, p := range tt.Params {
			g.pushOp(g.zero(at, p))
		}
		g.emit(bytecode.OpMkTup, bytecode.Int(int64(len(tt.Params))))
		return bytecode.CR
	case types.KindStruct:
		return g.makeStruct(at, t, nil)
	}
	return bytecode.Int(0)
}

func (g *generator) push(id ast.NodeID) {
	g.pushOp(g.expr(id, needAny))
}

func (g *generator) pushOp(op bytecode.Operand) {
	g.emit(bytecode.OpPsh, op)
	g.free(op)
}

func (g *generator) pushAll(ids []ast.NodeID) {
	for _, id := range ids {
		g.push(id)
	}
}

// registers

// isValue reports types held in the value pool; everything else is a
// reference.
func (g *generator) isValue(t types.TypeID) bool {
	switch g.types.Kind(g.types.Underlying(t)) {
	case types.KindBool, types.KindInt, types.KindReal, types.KindHandle:
		return true
	}
	return false
}

func (g *generator) poolFor(t types.TypeID) *pool {
	if g.isValue(t) {
		return g.t
	}
	return g.r
}

// reg copies op into a fresh scratch register unless it already is one.
func (g *generator) reg(op bytecode.Operand, t types.TypeID, at ast.NodeID) bytecode.Operand {
	switch op.Kind {
	case bytecode.KindT, bytecode.KindR:
		return op
	case bytecode.KindNone:
		fatalf(at, "void value used as an operand")
	}
	r := g.poolFor(t).acquire(at)
	g.emit(bytecode.OpMov, r, op)
	return r
}

// stable moves a volatile operand out of cr or rr.
func (g *generator) stable(op bytecode.Operand, t types.TypeID, at ast.NodeID) bytecode.Operand {
	if op.Kind == bytecode.KindCR || op.Kind == bytecode.KindRR {
		return g.reg(op, t, at)
	}
	return op
}

func (g *generator) free(ops ...bytecode.Operand) {
	for _, op := range ops {
		switch op.Kind {
		case bytecode.KindT:
			g.t.release(op)
		case bytecode.KindR:
			g.r.release(op)
		}
	}
}

// operands evaluates ids left to right. A variable read ahead of an
// operand that may store to variables is copied into a scratch register
// first. When a later operand overwrites the accumulator or the return
// register that an earlier result still lives in, the whole sequence is
// discarded and re-emitted with that earlier operand forced into a scratch
// register.
func (g *generator) operands(ids ...ast.NodeID) []bytecode.Operand {
	forced := make([]bool, len(ids))
	writes := make([]bool, len(ids))
	for i := len(ids) - 2; i >= 0; i-- {
		writes[i] = writes[i+1] || g.stores(ids[i+1])
	}
	for {
		m := g.mark()
		ops := make([]bytecode.Operand, len(ids))
		crAt := make([]uint64, len(ids))
		rrAt := make([]uint64, len(ids))
		for i, id := range ids {
			nd := needAny
			if forced[i] {
				nd = needReg
			}
			ops[i] = g.expr(id, nd)
			if writes[i] && isVariable(ops[i]) {
				ops[i] = g.reg(ops[i], g.node(id).ValueType, id)
			}
			crAt[i], rrAt[i] = g.crGen, g.rrGen
		}
		clobbered := false
		for i, op := range ops[:len(ops)-1] {
			if op.Kind == bytecode.KindCR && crAt[i] != g.crGen ||
				op.Kind == bytecode.KindRR && rrAt[i] != g.rrGen {
				forced[i] = true
				clobbered = true
			}
		}
		if !clobbered {
			return ops
		}
		g.rewind(m)
	}
}

func isVariable(op bytecode.Operand) bool {
	return op.Kind == bytecode.KindGlobal || op.Kind == bytecode.KindStack
}

// stores reports whether evaluating id may assign a variable: it contains an
// assignment or a call. Function literal bodies do not run at evaluation.
func (g *generator) stores(id ast.NodeID) bool {
	found := false
	g.tree.Walk(id, func(c ast.NodeID) bool {
		switch g.node(c).Kind {
		case ast.KindAssign, ast.KindCall:
			found = true
		case ast.KindFunc:
			return false
		}
		return !found
	})
	return found
}
