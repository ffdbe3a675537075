package sema

import (
	"loom/internal/ast"
	"loom/internal/symbols"
	"loom/internal/types"
)

// CallKind selects how a call site is emitted.
type CallKind uint8

const (
	CallStatic  CallKind = iota + 1 // direct call of a known function body
	CallNative                      // extern function through its native handle
	CallValue                       // callee is a computed function value
	CallVariant                     // union variant constructor
)

// CallInfo records the outcome of resolving one call node.
type CallInfo struct {
	Kind   CallKind
	Target symbols.SymbolID // selected candidate or variant
	Method bool             // receiver of the Member callee is the first argument
}

// GlobalInit is a global slot initialized before the unit's top-level code.
type GlobalInit struct {
	Symbol symbols.SymbolID
	Init   ast.NodeID
}

// Result is everything code generation needs from analysis.
type Result struct {
	Tree  *ast.Tree
	Types *types.Interner
	Table *symbols.Table

	// Bindings maps identifiers to the symbol they denote after capture
	// rebinding and overload selection.
	Bindings map[ast.NodeID]symbols.SymbolID
	// Decls maps Let, Param, Case and Foreach nodes to the variables they declare.
	Decls map[ast.NodeID]symbols.SymbolID
	// Keys maps Foreach nodes to their key variable, when bound.
	Keys  map[ast.NodeID]symbols.SymbolID
	Funcs map[ast.NodeID]symbols.SymbolID // Func node -> function symbol
	Calls map[ast.NodeID]CallInfo
	// Fields maps Member nodes to struct field offsets.
	Fields map[ast.NodeID]int
	// Cases maps Case nodes to the variant tag they match; -1 for the default arm.
	Cases map[ast.NodeID]int
	// FieldDefaults lists per struct type the default initializer of each field.
	FieldDefaults map[types.TypeID][]ast.NodeID
	// Statics are static locals and generic variable instances.
	Statics []GlobalInit

	Sweeps int
}

func newResult(tree *ast.Tree, in *types.Interner, table *symbols.Table) *Result {
	return &Result{
		Tree:          tree,
		Types:         in,
		Table:         table,
		Bindings:      make(map[ast.NodeID]symbols.SymbolID),
		Decls:         make(map[ast.NodeID]symbols.SymbolID),
		Keys:          make(map[ast.NodeID]symbols.SymbolID),
		Funcs:         make(map[ast.NodeID]symbols.SymbolID),
		Calls:         make(map[ast.NodeID]CallInfo),
		Fields:        make(map[ast.NodeID]int),
		Cases:         make(map[ast.NodeID]int),
		FieldDefaults: make(map[types.TypeID][]ast.NodeID),
	}
}

// FuncScope returns the function scope of a function symbol.
func (r *Result) FuncScope(fn symbols.SymbolID) *symbols.Scope {
	return r.Table.Scope(r.Table.Symbol(fn).Body)
}
