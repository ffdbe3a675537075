package sema

import (
	"loom/internal/ast"
	"loom/internal/diag"
	"loom/internal/symbols"
	"loom/internal/types"
)

// resolveTypeExpr evaluates a type expression in the scope it was declared
// in. Errors complete the node as dynamic.
func (a *Analyzer) resolveTypeExpr(id ast.NodeID) types.TypeID {
	if !id.IsValid() {
		return a.builtins.Void
	}
	n := a.node(id)
	if n.Completed {
		return n.ValueType
	}
	var t types.TypeID
	switch n.Kind {
	case ast.KindTypeName:
		t = a.namedType(id, n)
	case ast.KindTypeArray:
		elem := a.resolveTypeExpr(n.A)
		if !a.resolved(elem) {
			return a.pendingType()
		}
		t = a.types.Array(elem)
	case ast.KindTypeMap:
		key, elem := a.resolveTypeExpr(n.A), a.resolveTypeExpr(n.B)
		if !a.resolved(key) || !a.resolved(elem) {
			return a.pendingType()
		}
		t = a.types.Map(key, elem)
	case ast.KindTypeTuple:
		elems, ok := a.typeExprs(n.List)
		if !ok {
			return a.pendingType()
		}
		t = a.types.Tuple(elems...)
	case ast.KindTypeFunc:
		params, ok := a.typeExprs(n.List)
		result := a.resolveTypeExpr(n.A)
		if !ok || !a.resolved(result) {
			return a.pendingType()
		}
		t = a.types.Func(params, n.Flags.Has(ast.FlagVariadic), result)
	case ast.KindTypeStruct:
		t = a.structType(n)
	default:
		a.errorf(diag.SemaNotAType, n.Span, "expected a type, found %s", n.Kind).Emit()
		return a.fail(id)
	}
	return a.finish(id, t)
}

func (a *Analyzer) typeExprs(ids []ast.NodeID) ([]types.TypeID, bool) {
	out := make([]types.TypeID, len(ids))
	for i, id := range ids {
		out[i] = a.resolveTypeExpr(id)
		if !a.resolved(out[i]) {
			return nil, false
		}
	}
	return out, true
}

func (a *Analyzer) namedType(id ast.NodeID, n *ast.Node) types.TypeID {
	if !a.typeArgsReady(n) {
		return a.builtins.Pending
	}
	symID, ok := a.lookupIdent(id, n)
	if !ok {
		return a.builtins.Dynamic
	}
	sym := a.table.Symbol(symID)
	if sym.Kind != symbols.KindType {
		a.errorf(diag.SemaNotAType, n.Span, "%s is not a type", n.QualifiedName()).
			WithNote(sym.Span, "declared here").Emit()
		return a.builtins.Dynamic
	}
	if !sym.IsGeneric() {
		if len(n.TypeArgs) > 0 {
			a.errorf(diag.SemaTemplateArgMismatch, n.Span, "type %s is not generic", n.QualifiedName()).Emit()
			return a.builtins.Dynamic
		}
		return a.typeOfTypeSymbol(symID)
	}
	args, _ := a.typeArgs(n)
	if len(args) != len(sym.Template.Params) {
		a.errorf(diag.SemaTemplateArgMismatch, n.Span, "type %s takes %d type arguments, got %d",
			n.QualifiedName(), len(sym.Template.Params), len(args)).Emit()
		return a.builtins.Dynamic
	}
	return a.typeOfTypeSymbol(a.instantiate(symID, args))
}

// structType builds a struct type and records the default initializer of
// each field.
func (a *Analyzer) structType(n *ast.Node) types.TypeID {
	fields := make([]types.Field, len(n.List))
	defaults := make([]ast.NodeID, len(n.List))
	seen := make(map[string]bool, len(n.List))
	for i, f := range n.List {
		fn := a.node(f)
		ft := a.resolveTypeExpr(fn.A)
		if !a.resolved(ft) {
			return a.builtins.Pending
		}
		if seen[fn.Name] {
			a.errorf(diag.SemaRedefinition, fn.Span, "field %q is declared twice", fn.Name).Emit()
		}
		seen[fn.Name] = true
		if fn.B.IsValid() {
			if !a.resolved(a.resolve(fn.B)) {
				return a.builtins.Pending
			}
			a.coerce(&fn.B, ft, diag.SemaAssignMismatch)
		}
		fields[i] = types.Field{Name: fn.Name, Type: ft}
		defaults[i] = fn.B
		a.finish(f, ft)
	}
	t := a.types.Struct(fields...)
	if _, ok := a.res.FieldDefaults[t]; !ok {
		a.res.FieldDefaults[t] = defaults
	}
	return t
}

// typeOfTypeSymbol resolves the type a type symbol denotes. Aliases share
// the TypeID of their target; other declarations produce a named type.
func (a *Analyzer) typeOfTypeSymbol(id symbols.SymbolID) types.TypeID {
	sym := a.table.Symbol(id)
	if a.resolved(sym.Type) || !sym.Decl.IsValid() {
		return sym.Type
	}
	if a.typing[id] {
		a.errorf(diag.SemaRecursiveDeclaration, sym.Span, "type %s refers to itself", a.name(id)).Emit()
		sym.Type = a.builtins.Dynamic
		return sym.Type
	}
	a.typing[id] = true
	defer delete(a.typing, id)

	n := a.node(sym.Decl)
	name := a.name(id)
	switch n.Kind {
	case ast.KindTypeDecl:
		base := a.resolveTypeExpr(n.A)
		if !a.resolved(base) || a.resolved(sym.Type) {
			return base
		}
		if n.Flags.Has(ast.FlagAlias) {
			sym.Type = base
			return base
		}
		sym.Type = a.types.Named(base, uint32(id), name, sym.TemplateArgs)
		if defs, ok := a.res.FieldDefaults[a.types.Underlying(base)]; ok {
			a.res.FieldDefaults[sym.Type] = defs
		}
	case ast.KindUnionDecl:
		variants := make([]types.Field, len(n.List))
		for i, v := range n.List {
			vn := a.node(v)
			variants[i] = types.Field{Name: vn.Name}
			if vn.A.IsValid() {
				p := a.resolveTypeExpr(vn.A)
				if !a.resolved(p) {
					return p
				}
				variants[i].Type = p
			}
			a.finish(v, a.builtins.Void)
		}
		sym.Type = a.types.Named(a.types.Union(variants...), uint32(id), name, sym.TemplateArgs)
	default:
		internalf(sym.Decl, "type symbol %s declared by %s", name, n.Kind)
	}
	return sym.Type
}

// variantTypes returns the payload type of a variant (NoTypeID when it has
// none) and the union it belongs to.
func (a *Analyzer) variantTypes(id symbols.SymbolID) (payload, union types.TypeID) {
	v := a.table.Symbol(id)
	union = a.typeOfTypeSymbol(v.Set)
	if !a.resolved(union) {
		return types.NoTypeID, union
	}
	u := a.types.MustLookup(union)
	if u.Kind != types.KindUnion || v.Tag >= len(u.Fields) {
		internalf(v.Decl, "variant %s is not part of its union", a.name(id))
	}
	payload = u.Fields[v.Tag].Type
	if !a.resolved(v.Type) {
		v.Type = union
		if payload != types.NoTypeID {
			v.Type = a.types.Func([]types.TypeID{payload}, false, union)
		}
	}
	return payload, union
}
