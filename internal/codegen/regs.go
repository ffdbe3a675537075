package codegen

import (
	"slices"

	"loom/internal/ast"
	"loom/internal/bytecode"
)

// pool is one bank of scratch registers. A register is owned by whoever
// acquired it until released; a held register additionally survives
// releases issued by nested evaluation until it is unheld.
type pool struct {
	name string
	kind bytecode.OperandKind
	used []bool
	held []bool
}

type poolState struct {
	used, held []bool
}

func newPool(name string, kind bytecode.OperandKind, size int) *pool {
	return &pool{
		name: name,
		kind: kind,
		used: make([]bool, size),
		held: make([]bool, size),
	}
}

// acquire returns a free register. Running out is fatal: two live values
// must never share a register.
func (p *pool) acquire(at ast.NodeID) bytecode.Operand {
	i := slices.Index(p.used, false)
	if i < 0 {
		fatalf(at, "%s register pool exhausted: %d registers live", p.name, len(p.used))
	}
	p.used[i] = true
	return bytecode.Operand{Kind: p.kind, Val: int64(i)}
}

func (p *pool) release(r bytecode.Operand) {
	i := r.Index()
	if p.held[i] {
		return
	}
	if !p.used[i] {
		fatalf(ast.NoNodeID, "%s%d released twice", p.name, i)
	}
	p.used[i] = false
}

// hold pins an acquired register.
func (p *pool) hold(r bytecode.Operand) {
	i := r.Index()
	if !p.used[i] || p.held[i] {
		fatalf(ast.NoNodeID, "unbalanced hold of %s%d", p.name, i)
	}
	p.held[i] = true
}

// unhold unpins and releases a held register.
func (p *pool) unhold(r bytecode.Operand) {
	i := r.Index()
	if !p.held[i] {
		fatalf(ast.NoNodeID, "unbalanced hold of %s%d", p.name, i)
	}
	p.held[i] = false
	p.used[i] = false
}

// live lists the registers in use, in index order.
func (p *pool) live() []bytecode.Operand {
	var out []bytecode.Operand
	for i, u := range p.used {
		if u {
			out = append(out, bytecode.Operand{Kind: p.kind, Val: int64(i)})
		}
	}
	return out
}

func (p *pool) save() poolState {
	return poolState{used: slices.Clone(p.used), held: slices.Clone(p.held)}
}

func (p *pool) restore(s poolState) {
	copy(p.used, s.used)
	copy(p.held, s.held)
}
