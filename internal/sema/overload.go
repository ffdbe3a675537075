package sema

import (
	"loom/internal/ast"
	"loom/internal/diag"
	"loom/internal/symbols"
	"loom/internal/types"
)

// actual is one argument after unpack expansion.
type actual struct {
	slot *ast.NodeID // argument slot; nil for elements expanded from an unpack
	typ  types.TypeID
}

// tier orders overload candidates; lower wins. Template candidates rank
// directly below the plain candidates of the same class.
type tier uint8

const (
	tierBest tier = iota
	tierBestTemplate
	tierCast
	tierCastTemplate
	tierVariadic
	tierVariadicTemplate
	tierCount
)

type rejection uint8

const (
	rejectNone rejection = iota
	rejectArity
	rejectType
	rejectDerive
	rejectWhere
	rejectAccess
)

type candidate struct {
	fn     symbols.SymbolID // selected function; the instance for templates
	casts  []int            // actuals that need an implicit cast
	reason rejection
}

type selection struct {
	winner    candidate
	ok        bool
	pending   bool
	ambiguous []candidate
	rejected  []candidate
}

// classify matches actuals against a parameter list. Variadic functions
// always land in the variadic class, even when the count matches exactly.
func (a *Analyzer) classify(params []types.TypeID, variadic bool, acts []actual, spread bool) (tier, []int, rejection) {
	np := len(params)
	if len(acts) < np || (len(acts) > np || spread) && !variadic {
		return 0, nil, rejectArity
	}
	var casts []int
	for i, p := range params {
		at := acts[i].typ
		switch {
		case a.types.Accept(p, at):
		case acts[i].slot != nil && a.types.ImplicitCast(at, p):
			casts = append(casts, i)
		default:
			return 0, nil, rejectType
		}
	}
	switch {
	case variadic:
		return tierVariadic, casts, rejectNone
	case len(casts) > 0:
		return tierCast, casts, rejectNone
	}
	return tierBest, nil, rejectNone
}

// selectOverload picks the candidate of cands that best matches acts.
// Inaccessible candidates are dropped first; generic candidates are
// instantiated from explicit or derived type arguments.
func (a *Analyzer) selectOverload(q symbols.Query, cands []symbols.SymbolID, explicit []types.TypeID, hasExplicit bool, acts []actual, spread bool) selection {
	var (
		sel   selection
		tiers [tierCount][]candidate
	)
	reject := func(fn symbols.SymbolID, r rejection) {
		sel.rejected = append(sel.rejected, candidate{fn: fn, reason: r})
	}
	for _, c := range cands {
		if !a.table.Accessible(q, c) {
			reject(c, rejectAccess)
			continue
		}
		sym := a.table.Symbol(c)
		fn, template := c, sym.IsGeneric()
		switch {
		case template:
			args := explicit
			if !hasExplicit {
				var ok bool
				if args, ok = a.derive(c, acts); !ok {
					reject(c, rejectDerive)
					continue
				}
			} else if len(args) != len(sym.Template.Params) {
				reject(c, rejectDerive)
				continue
			}
			fn = a.instantiate(c, args)
			if a.table.Symbol(fn).Rejected {
				reject(c, rejectWhere)
				continue
			}
		case hasExplicit:
			reject(c, rejectDerive)
			continue
		}
		info := a.funcs[fn]
		if !a.paramTypes(info) {
			sel.pending = true
			continue
		}
		t, casts, r := a.classify(info.params, info.variadic, acts, spread)
		if r != rejectNone {
			reject(fn, r)
			continue
		}
		if template {
			t++
		}
		tiers[t] = append(tiers[t], candidate{fn: fn, casts: casts})
	}
	if sel.pending {
		return sel
	}
	for _, members := range tiers {
		switch {
		case len(members) == 1:
			sel.winner, sel.ok = members[0], true
			return sel
		case len(members) > 1:
			sel.ambiguous = members
			return sel
		}
	}
	return sel
}

// reportSelection explains why no candidate was selected.
func (a *Analyzer) reportSelection(id ast.NodeID, name string, sel selection, acts []actual) {
	span := a.tree.Span(id)
	if len(sel.ambiguous) > 0 {
		b := a.errorf(diag.SemaAmbiguousOverload, span, "call to %s is ambiguous", name)
		for _, c := range sel.ambiguous {
			b = b.WithNote(a.table.Symbol(c.fn).Span, "candidate "+a.signatureString(c.fn))
		}
		b.Emit()
		return
	}
	var counts [rejectAccess + 1]int
	for _, c := range sel.rejected {
		counts[c.reason]++
	}
	argTypes := make([]types.TypeID, len(acts))
	for i, act := range acts {
		argTypes[i] = act.typ
	}
	total := len(sel.rejected)
	switch {
	case counts[rejectWhere] == 1:
		a.errorf(diag.SemaWhereClauseRejected, span, "%s is rejected by its where clause for (%s)", name, a.typeList(argTypes)).Emit()
		return
	case total > 0 && counts[rejectArity] == total:
		a.errorf(diag.SemaArity, span, "no overload of %s takes %d arguments", name, len(acts)).Emit()
		return
	case total > 0 && counts[rejectAccess] == total:
		a.errorf(diag.SemaAccessibility, span, "%s is not accessible here", name).Emit()
		return
	case total > 0 && counts[rejectDerive] == total:
		a.errorf(diag.SemaTemplateDerivation, span, "cannot derive the type arguments of %s from (%s)", name, a.typeList(argTypes)).Emit()
		return
	}
	b := a.errorf(diag.SemaNoOverload, span, "no overload of %s matches (%s)", name, a.typeList(argTypes))
	for _, c := range sel.rejected {
		if c.reason == rejectType || c.reason == rejectArity {
			b = b.WithNote(a.table.Symbol(c.fn).Span, "candidate "+a.signatureString(c.fn))
		}
	}
	b.Emit()
}
