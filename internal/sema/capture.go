package sema

import (
	"loom/internal/ast"
	"loom/internal/diag"
	"loom/internal/symbols"
)

// captureIfNeeded rebinds a reference to a variable of another function to
// a captured copy owned by the referencing function literal. Only anonymous
// functions capture, and only from the function that immediately encloses
// them. ok is false after a reported violation.
func (a *Analyzer) captureIfNeeded(id ast.NodeID, sym symbols.SymbolID) (symbols.SymbolID, bool) {
	s := a.table.Symbol(sym)
	switch s.Storage.Kind {
	case symbols.StorageLocal, symbols.StorageCaptured:
	default:
		return sym, true
	}
	use := a.table.FuncScope(a.scopeOf(id))
	owner := a.table.FuncScope(s.Scope)
	if !use.IsValid() || use == owner {
		return sym, true
	}
	fn := a.table.Scope(use)
	span := a.tree.Span(id)
	name := a.name(sym)
	if !fn.Anonymous {
		a.errorf(diag.SemaCaptureRule, span, "function %s cannot capture %s; only function literals capture",
			a.name(fn.Func), name).WithNote(s.Span, "declared here").Emit()
		return symbols.NoSymbolID, false
	}
	if a.table.FuncScope(fn.Parent) != owner {
		a.errorf(diag.SemaCaptureRule, span, "%s belongs to an outer function; a literal captures only from the function that directly encloses it",
			name).WithNote(s.Span, "declared here").Emit()
		return symbols.NoSymbolID, false
	}
	return a.table.Capture(use, sym), true
}
