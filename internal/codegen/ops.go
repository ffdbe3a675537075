package codegen

import (
	"loom/internal/ast"
	"loom/internal/bytecode"
	"loom/internal/types"
)

var binaryOps = map[ast.Op]bytecode.Opcode{
	ast.OpAdd:    bytecode.OpAdd,
	ast.OpSub:    bytecode.OpSub,
	ast.OpMul:    bytecode.OpMul,
	ast.OpDiv:    bytecode.OpDiv,
	ast.OpMod:    bytecode.OpMod,
	ast.OpBitAnd: bytecode.OpBAnd,
	ast.OpBitOr:  bytecode.OpBOr,
	ast.OpBitXor: bytecode.OpBXor,
	ast.OpShl:    bytecode.OpShl,
	ast.OpShr:    bytecode.OpShr,
	ast.OpEq:     bytecode.OpEq,
	ast.OpNe:     bytecode.OpNe,
	ast.OpLt:     bytecode.OpLt,
	ast.OpLe:     bytecode.OpLe,
	ast.OpGt:     bytecode.OpGt,
	ast.OpGe:     bytecode.OpGe,
}

var unaryOps = map[ast.Op]bytecode.Opcode{
	ast.OpNeg:    bytecode.OpNeg,
	ast.OpNot:    bytecode.OpNot,
	ast.OpBitNot: bytecode.OpBNot,
}

// prim is the primitive kind shared by both operands, if any.
func (g *generator) prim(l, r ast.NodeID) bytecode.Prim {
	lk := g.types.Kind(g.types.Underlying(g.node(l).ValueType))
	if r.IsValid() && g.types.Kind(g.types.Underlying(g.node(r).ValueType)) != lk {
		return bytecode.PrimNone
	}
	switch lk {
	case types.KindInt:
		return bytecode.PrimInt
	case types.KindReal:
		return bytecode.PrimReal
	case types.KindString:
		return bytecode.PrimString
	}
	return bytecode.PrimNone
}

// binaryOp picks the type-specialised opcode when both operands agree on a
// primitive kind, the dynamically dispatched one otherwise.
func (g *generator) binaryOp(at ast.NodeID, op ast.Op, l, r ast.NodeID) bytecode.Opcode {
	code, ok := binaryOps[op]
	if !ok {
		fatalf(at, "no instruction for operator %s", op)
	}
	return bytecode.Specialize(code, g.prim(l, r))
}

func (g *generator) binary(id ast.NodeID, n *ast.Node) bytecode.Operand {
	if n.Op.IsLogical() {
		return g.logical(id, n)
	}
	op := g.binaryOp(id, n.Op, n.A, n.B)
	ops := g.operands(n.A, n.B)
	g.emit(op, ops[0], ops[1])
	g.free(ops...)
	return bytecode.CR
}

// logical emits && and || with a conditional jump over the right operand.
func (g *generator) logical(id ast.NodeID, n *ast.Node) bytecode.Operand {
	res := g.t.acquire(id)
	g.move(res, g.expr(n.A, needAny))
	end := g.b.NewLabel()
	jump := bytecode.OpJf
	if n.Op == ast.OpOr {
		jump = bytecode.OpJt
	}
	g.emit(jump, res, end.Operand())
	g.move(res, g.expr(n.B, needAny))
	g.b.Bind(end)
	return res
}

func (g *generator) unary(n *ast.Node) bytecode.Operand {
	code, ok := unaryOps[n.Op]
	if !ok {
		fatalf(n.A, "no instruction for operator %s", n.Op)
	}
	code = bytecode.Specialize(code, g.prim(n.A, ast.NoNodeID))
	x := g.expr(n.A, needAny)
	g.emit(code, x)
	g.free(x)
	return bytecode.CR
}

// assign stores into a variable, an element or a field. Compound forms
// compute the new value in cr first. The result is the stored value.
func (g *generator) assign(id ast.NodeID, n *ast.Node) bytecode.Operand {
	tn := g.node(n.A)
	switch tn.Kind {
	case ast.KindIdent:
		dst := g.storage(g.binding(n.A))
		if n.Op == ast.OpNone {
			g.move(dst, g.expr(n.B, needAny))
			return dst
		}
		ops := g.operands(n.A, n.B)
		g.emit(g.binaryOp(id, n.Op, n.A, n.B), ops[0], ops[1])
		g.free(ops...)
		g.move(dst, bytecode.CR)
		return dst
	case ast.KindIndex:
		ops := g.operands(tn.A, tn.B, n.B)
		v := ops[2]
		if n.Op != ast.OpNone {
			ops[0] = g.stable(ops[0], g.node(tn.A).ValueType, id)
			ops[1] = g.stable(ops[1], g.node(tn.B).ValueType, id)
			v = g.stable(v, g.node(n.B).ValueType, id)
			g.emit(bytecode.OpIdx, ops[0], ops[1])
			g.emit(g.binaryOp(id, n.Op, n.A, n.B), bytecode.CR, v)
			g.free(v)
			v = bytecode.CR
		}
		g.emit(bytecode.OpIdxSet, ops[0], ops[1], v)
		g.free(ops[0], ops[1])
		return v
	case ast.KindMember:
		ops := g.operands(tn.A, n.B)
		field := g.field(n.A, tn)
		v := ops[1]
		if n.Op != ast.OpNone {
			ops[0] = g.stable(ops[0], g.node(tn.A).ValueType, id)
			v = g.stable(v, g.node(n.B).ValueType, id)
			g.emit(bytecode.OpFld, ops[0], field)
			g.emit(g.binaryOp(id, n.Op, n.A, n.B), bytecode.CR, v)
			g.free(v)
			v = bytecode.CR
		}
		g.emit(bytecode.OpFldSet, ops[0], field, v)
		g.free(ops[0])
		return v
	}
	fatalf(id, "cannot assign to %s", tn.Kind)
	return bytecode.None
}
