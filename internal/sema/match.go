package sema

import (
	"strings"

	"loom/internal/ast"
	"loom/internal/diag"
	"loom/internal/types"
)

// defaultArm is the case name that matches every remaining variant.
const defaultArm = "_"

// resolveMatch checks a match over a union value: each arm names a variant
// at most once, and the arms cover every variant unless a default arm is
// present.
func (a *Analyzer) resolveMatch(id ast.NodeID, n *ast.Node) types.TypeID {
	st := a.resolve(n.A)
	if !a.resolved(st) {
		a.touchCases(n)
		return a.pendingOrFail(id)
	}
	u := a.types.MustLookup(st)
	if u.Kind != types.KindUnion {
		a.errorf(diag.SemaTypeMismatch, a.tree.Span(n.A), "cannot match on %s, want a union value", a.typeStr(st)).Emit()
		a.touchCases(n)
		return a.fail(id)
	}

	seen := make(map[int]ast.NodeID, len(n.List))
	hasDefault := false
	done := true
	for _, c := range n.List {
		cn := a.node(c)
		tag := -1
		if cn.Name == defaultArm {
			if hasDefault {
				a.errorf(diag.SemaDuplicateMatchArm, cn.Span, "duplicate default arm").Emit()
			}
			hasDefault = true
		} else {
			var ok bool
			if tag, ok = u.FieldIndex(cn.Name); !ok {
				a.errorf(diag.SemaUnknownMember, cn.Span, "%s has no variant %s", a.typeStr(st), cn.Name).Emit()
			} else if prev, dup := seen[tag]; dup {
				a.errorf(diag.SemaDuplicateMatchArm, cn.Span, "variant %s is matched twice", cn.Name).
					WithNote(a.tree.Span(prev), "first arm here").Emit()
			} else {
				seen[tag] = c
				if cn.Bind != "" && u.Fields[tag].Type == types.NoTypeID {
					a.errorf(diag.SemaTypeMismatch, cn.Span, "variant %s has no payload to bind", cn.Name).Emit()
				}
			}
		}
		a.res.Cases[c] = tag
		if !a.resolved(a.resolve(c)) {
			done = false
		}
	}
	if !hasDefault && len(seen) < len(u.Fields) {
		var missing []string
		for i, f := range u.Fields {
			if _, ok := seen[i]; !ok {
				missing = append(missing, f.Name)
			}
		}
		a.errorf(diag.SemaIncompleteMatch, n.Span, "match on %s does not handle %s", a.typeStr(st), strings.Join(missing, ", ")).Emit()
	}
	if !done {
		return a.pendingType()
	}
	return a.finish(id, a.builtins.Void)
}

func (a *Analyzer) touchCases(n *ast.Node) {
	for _, c := range n.List {
		a.resolve(c)
	}
}

// caseBindType is the type of the payload bound by a match arm.
func (a *Analyzer) caseBindType(caseID ast.NodeID) types.TypeID {
	m, ok := a.matchOf[caseID]
	if !ok {
		return a.builtins.Dynamic
	}
	st := a.resolve(a.node(m).A)
	if !a.resolved(st) {
		return st
	}
	t := a.builtins.Dynamic
	u := a.types.MustLookup(st)
	if u.Kind == types.KindUnion {
		if tag, ok := u.FieldIndex(a.node(caseID).Name); ok && u.Fields[tag].Type != types.NoTypeID {
			t = u.Fields[tag].Type
		}
	}
	if sym, ok := a.res.Decls[caseID]; ok {
		a.table.Symbol(sym).Type = t
	}
	return t
}
