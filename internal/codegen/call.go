package codegen

import (
	"loom/internal/ast"
	"loom/internal/bytecode"
	"loom/internal/sema"
	"loom/internal/types"
)

// spilled is a scratch register saved across a call.
type spilled struct {
	reg, slot bytecode.Operand
}

// call emits a call. Arguments are pushed last to first so that argument i
// lands at the i-th argument slot of the callee frame; a method receiver is
// argument 0. Unpacked arguments add their element count to tc.
func (g *generator) call(id ast.NodeID, n *ast.Node) bytecode.Operand {
	info, ok := g.res.Calls[id]
	if !ok {
		fatalf(id, "call was never resolved")
	}
	if info.Kind == sema.CallVariant {
		return g.variant(id, n, info)
	}

	var (
		op     bytecode.Opcode
		callee bytecode.Operand
	)
	switch info.Kind {
	case sema.CallStatic:
		op, callee = bytecode.OpCall, bytecode.Func(g.funcRef(info.Target))
	case sema.CallNative:
		op, callee = bytecode.OpCallN, bytecode.Native(g.nativeRef(info.Target))
	case sema.CallValue:
		op = bytecode.OpCallV
		callee = g.stable(g.expr(n.A, needAny), g.node(n.A).ValueType, id)
	default:
		fatalf(id, "unknown call kind %d", info.Kind)
	}

	spread := false
	for _, arg := range n.List {
		if g.tree.Kind(arg) == ast.KindUnpack {
			spread = true
		}
	}
	var savedTC bytecode.Operand
	if spread {
		// an enclosing call is still counting its own spread arguments
		if g.tcLive > 0 {
			savedTC = g.fn.spill()
			g.emit(bytecode.OpMov, savedTC, bytecode.TC)
		}
		g.emit(bytecode.OpMov, bytecode.TC, bytecode.Int(0))
		g.tcLive++
	}

	fixed := 0
	for i := len(n.List) - 1; i >= 0; i-- {
		fixed += g.pushArg(n.List[i])
	}
	if info.Method {
		g.push(g.node(n.A).A)
		fixed++
	}
	if spread {
		g.tcLive--
	}

	// the callee register is read by the call itself and need not survive it
	g.free(callee)
	saved := g.spillLive()
	g.emit(op, callee, bytecode.Int(int64(fixed)))
	g.restoreLive(saved)
	if savedTC.Kind != bytecode.KindNone {
		g.emit(bytecode.OpMov, bytecode.TC, savedTC)
		g.fn.unspill(1)
	}

	if g.types.Kind(n.ValueType) == types.KindVoid {
		return bytecode.None
	}
	return bytecode.RR
}

// pushArg pushes one argument and returns how many fixed slots it took.
func (g *generator) pushArg(arg ast.NodeID) int {
	an := g.node(arg)
	if an.Kind != ast.KindUnpack {
		g.push(arg)
		return 1
	}
	g.dbg.Node(g.b.Pos(), an.Span)
	v := g.expr(an.A, needAny)
	g.emit(bytecode.OpUnpk, v, bytecode.Int(an.Int))
	g.free(v)
	return 0
}

// spillLive saves every scratch register in use to a fresh spill slot.
func (g *generator) spillLive() []spilled {
	var out []spilled
	for _, p := range [...]*pool{g.t, g.r} {
		for _, reg := range p.live() {
			s := spilled{reg: reg, slot: g.fn.spill()}
			g.emit(bytecode.OpMov, s.slot, s.reg)
			out = append(out, s)
		}
	}
	return out
}

func (g *generator) restoreLive(saved []spilled) {
	for _, s := range saved {
		g.emit(bytecode.OpMov, s.reg, s.slot)
	}
	g.fn.unspill(len(saved))
}

// variant constructs a union value from a variant constructor call.
func (g *generator) variant(id ast.NodeID, n *ast.Node, info sema.CallInfo) bytecode.Operand {
	tag := g.table.Symbol(info.Target).Tag
	g.pushAll(n.List)
	g.emit(bytecode.OpMkVar,
		bytecode.Type(g.typeRef(n.ValueType)),
		bytecode.Int(int64(tag)),
		bytecode.Int(int64(len(n.List))))
	if !g.types.IsResolved(n.ValueType) {
		fatalf(id, "variant of unresolved union")
	}
	return bytecode.CR
}
