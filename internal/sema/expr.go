package sema

import (
	"strings"

	"loom/internal/ast"
	"loom/internal/diag"
	"loom/internal/symbols"
	"loom/internal/types"
)

func (a *Analyzer) resolveExpr(id ast.NodeID, n *ast.Node) types.TypeID {
	switch n.Kind {
	case ast.KindLitInt:
		return a.finish(id, a.builtins.Int)
	case ast.KindLitReal:
		return a.finish(id, a.builtins.Real)
	case ast.KindLitString:
		return a.finish(id, a.builtins.String)
	case ast.KindLitBool:
		return a.finish(id, a.builtins.Bool)
	case ast.KindIdent:
		return a.resolveIdent(id, n)
	case ast.KindBinary:
		return a.resolveBinary(id, n)
	case ast.KindUnary:
		return a.resolveUnary(id, n)
	case ast.KindAssign:
		return a.resolveAssign(id, n)
	case ast.KindCall:
		return a.resolveCall(id, n)
	case ast.KindIndex:
		return a.resolveIndex(id, n)
	case ast.KindMember:
		return a.resolveMember(id, n)
	case ast.KindArrayLit:
		return a.resolveArray(id, n)
	case ast.KindMapLit:
		return a.resolveMap(id, n)
	case ast.KindTupleLit:
		return a.resolveTuple(id, n)
	case ast.KindStructLit:
		return a.resolveStructLit(id, n)
	case ast.KindCast:
		return a.resolveCast(id, n)
	case ast.KindTypeIs:
		return a.resolveTypeIs(id, n)
	case ast.KindUnpack:
		a.resolve(n.A)
		a.errorf(diag.SemaTypeMismatch, n.Span, "unpacking is only allowed in call arguments").Emit()
		return a.fail(id)
	case ast.KindPair, ast.KindField:
		internalf(id, "%s resolved outside of its literal", n.Kind)
	}
	internalf(id, "unexpected node kind %s", n.Kind)
	return types.NoTypeID
}

// finishRef completes a reference to a symbol whose type may still be
// inferred elsewhere.
func (a *Analyzer) finishRef(id ast.NodeID, t types.TypeID) types.TypeID {
	if a.resolved(t) {
		return a.finish(id, t)
	}
	return a.pendingOrFail(id)
}

// identifiers

// lookupIdent resolves the symbol an identifier names, reporting unknown,
// ambiguous and inaccessible names. Access violations are reported but the
// binding still proceeds.
func (a *Analyzer) lookupIdent(id ast.NodeID, n *ast.Node) (symbols.SymbolID, bool) {
	q := a.query(id)
	r, ok := a.table.LookupQualified(q, n.Path, n.Flags.Has(ast.FlagFromGlobal), n.Name)
	if !ok {
		a.errorf(diag.SemaUnknownNamespace, n.Span, "unknown namespace in %s", n.QualifiedName()).Emit()
		return symbols.NoSymbolID, false
	}
	if !r.Found() {
		switch {
		case n.Flags.Has(ast.FlagImplicit):
			a.errorf(diag.SemaOperatorUnsupported, n.Span, "no %s is defined for these operands", n.Name).Emit()
		case n.Kind == ast.KindTypeName:
			a.errorf(diag.SemaUnresolvedType, n.Span, "unknown type %s", n.QualifiedName()).Emit()
		default:
			a.errorf(diag.SemaUnknownIdentifier, n.Span, "unknown identifier %s", n.QualifiedName()).Emit()
		}
		return symbols.NoSymbolID, false
	}
	if len(r.Ambiguous) > 0 {
		b := a.errorf(diag.SemaAmbiguousSymbol, n.Span, "%s is ambiguous", n.QualifiedName())
		for _, s := range r.Ambiguous {
			sym := a.table.Symbol(s)
			b = b.WithNote(sym.Span, "candidate declared in "+a.table.QualifiedName(sym.Scope))
		}
		b.Emit()
		return symbols.NoSymbolID, false
	}
	if r.Denied {
		sym := a.table.Symbol(r.Symbol)
		a.errorf(diag.SemaAccessibility, n.Span, "%s is not accessible here", n.QualifiedName()).
			WithNote(sym.Span, "declared here").Emit()
	}
	return r.Symbol, true
}

func (a *Analyzer) resolveIdent(id ast.NodeID, n *ast.Node) types.TypeID {
	if !a.typeArgsReady(n) {
		return a.pendingOrFail(id)
	}
	symID, ok := a.lookupIdent(id, n)
	if !ok {
		return a.fail(id)
	}
	sym := a.table.Symbol(symID)
	switch sym.Kind {
	case symbols.KindVariable:
		if sym.IsGeneric() {
			inst, ok := a.explicitInstance(id, n, symID)
			if !ok {
				return a.fail(id)
			}
			symID = inst
		} else if symID, ok = a.captureIfNeeded(id, symID); !ok {
			return a.fail(id)
		}
		a.res.Bindings[id] = symID
		return a.finishRef(id, a.varType(symID))
	case symbols.KindOverloads, symbols.KindFunction:
		fn, ok := a.functionValue(id, n, symID)
		if !ok {
			return a.fail(id)
		}
		a.res.Bindings[id] = fn
		return a.finishRef(id, a.ensureFunc(fn))
	case symbols.KindVariant:
		payload, union := a.variantTypes(symID)
		if !a.resolved(union) {
			return a.pendingOrFail(id)
		}
		if payload != types.NoTypeID {
			a.errorf(diag.SemaNotAValue, n.Span, "variant %s needs a payload", n.QualifiedName()).Emit()
			return a.fail(id)
		}
		a.res.Bindings[id] = symID
		return a.finish(id, union)
	default:
		a.errorf(diag.SemaNotAValue, n.Span, "%s is a type, not a value", n.QualifiedName()).Emit()
		return a.fail(id)
	}
}

// functionValue picks the single function an identifier denotes when it is
// used as a value rather than called.
func (a *Analyzer) functionValue(id ast.NodeID, n *ast.Node, symID symbols.SymbolID) (symbols.SymbolID, bool) {
	cands := []symbols.SymbolID{symID}
	if sym := a.table.Symbol(symID); sym.Kind == symbols.KindOverloads {
		cands = sym.Overloads
	}
	q := a.query(id)
	var plain, generic []symbols.SymbolID
	for _, c := range cands {
		if !a.table.Accessible(q, c) {
			continue
		}
		if a.table.Symbol(c).IsGeneric() {
			generic = append(generic, c)
		} else {
			plain = append(plain, c)
		}
	}
	if len(n.TypeArgs) > 0 {
		if len(generic) != 1 {
			a.errorf(diag.SemaTemplateArgMismatch, n.Span, "%s does not name a single generic function", n.QualifiedName()).Emit()
			return symbols.NoSymbolID, false
		}
		return a.explicitInstance(id, n, generic[0])
	}
	switch {
	case len(plain) == 1:
		return plain[0], true
	case len(plain) > 1:
		b := a.errorf(diag.SemaAmbiguousOverload, n.Span, "%s names %d overloads; the value is ambiguous", n.QualifiedName(), len(plain))
		for _, c := range plain {
			b = b.WithNote(a.table.Symbol(c).Span, "candidate "+a.signatureString(c))
		}
		b.Emit()
	case len(generic) > 0:
		a.errorf(diag.SemaTemplateDerivation, n.Span, "generic %s needs explicit type arguments when used as a value", n.QualifiedName()).Emit()
	default:
		a.errorf(diag.SemaAccessibility, n.Span, "%s is not accessible here", n.QualifiedName()).Emit()
	}
	return symbols.NoSymbolID, false
}

// explicitInstance instantiates a generic named with type arguments, <T...>.
func (a *Analyzer) explicitInstance(id ast.NodeID, n *ast.Node, gen symbols.SymbolID) (symbols.SymbolID, bool) {
	args, ok := a.typeArgs(n)
	if !ok {
		return symbols.NoSymbolID, false
	}
	g := a.table.Symbol(gen)
	if len(args) != len(g.Template.Params) {
		a.errorf(diag.SemaTemplateArgMismatch, n.Span, "%s takes %d type arguments, got %d",
			n.QualifiedName(), len(g.Template.Params), len(args)).Emit()
		return symbols.NoSymbolID, false
	}
	inst := a.instantiate(gen, args)
	if a.table.Symbol(inst).Rejected {
		a.errorf(diag.SemaWhereClauseRejected, n.Span, "%s<%s> is rejected by its where clause",
			n.QualifiedName(), a.typeList(args)).Emit()
		return symbols.NoSymbolID, false
	}
	return inst, true
}

// typeArgsReady resolves the explicit type arguments of an identifier and
// reports whether all of them are known.
func (a *Analyzer) typeArgsReady(n *ast.Node) bool {
	for _, ta := range n.TypeArgs {
		if !a.resolved(a.resolveTypeExpr(ta)) {
			return false
		}
	}
	return true
}

// typeArgs returns the explicit type arguments once typeArgsReady holds.
func (a *Analyzer) typeArgs(n *ast.Node) ([]types.TypeID, bool) {
	args := make([]types.TypeID, len(n.TypeArgs))
	for i, ta := range n.TypeArgs {
		args[i] = a.resolveTypeExpr(ta)
		if !a.resolved(args[i]) {
			return nil, false
		}
	}
	return args, true
}

func (a *Analyzer) typeList(ts []types.TypeID) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = a.typeStr(t)
	}
	return strings.Join(parts, ", ")
}

func (a *Analyzer) signatureString(fn symbols.SymbolID) string {
	sym := a.table.Symbol(fn)
	if a.resolved(sym.Type) {
		return a.name(fn) + ": " + a.typeStr(sym.Type)
	}
	return a.name(fn)
}

// operators

func opClass(op ast.Op) types.OpClass {
	switch op {
	case ast.OpAdd:
		return types.ClassAdd
	case ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		return types.ClassArith
	case ast.OpEq, ast.OpNe:
		return types.ClassEquality
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return types.ClassOrdering
	case ast.OpAnd, ast.OpOr:
		return types.ClassLogical
	case ast.OpNeg:
		return types.ClassNeg
	case ast.OpNot:
		return types.ClassNot
	case ast.OpBitNot:
		return types.ClassBitNot
	default:
		return types.ClassBitwise
	}
}

func (a *Analyzer) isNamed(t types.TypeID) bool {
	tt, ok := a.types.Lookup(t)
	return ok && tt.Named()
}

func (a *Analyzer) resolveBinary(id ast.NodeID, n *ast.Node) types.TypeID {
	l, r := a.resolve(n.A), a.resolve(n.B)
	if !a.resolved(l) || !a.resolved(r) {
		return a.pendingType()
	}
	t, ok := a.types.BinaryUpper(opClass(n.Op), l, r)
	if !ok {
		if a.isNamed(l) && a.isNamed(r) {
			return a.rewriteOperator(id, n, n.A, n.B)
		}
		a.errorf(diag.SemaOperatorUnsupported, n.Span, "operator %s is not defined for %s and %s",
			n.Op, a.typeStr(l), a.typeStr(r)).Emit()
		return a.fail(id)
	}
	a.balanceOperands(n, l, r, t)
	return a.finish(id, t)
}

// balanceOperands casts mixed primitive operands to a common kind so that
// code generation can pick a type-specialised instruction.
func (a *Analyzer) balanceOperands(n *ast.Node, l, r, result types.TypeID) {
	if a.types.Kind(l) == types.KindDynamic || a.types.Kind(r) == types.KindDynamic || l == r {
		return
	}
	common := result
	if n.Op.IsComparison() {
		if !a.types.Kind(l).IsNumeric() || !a.types.Kind(r).IsNumeric() {
			return
		}
		common = a.builtins.Real
	}
	switch a.types.Kind(common) {
	case types.KindReal, types.KindString:
	default:
		return
	}
	if l != common {
		a.castSlot(&n.A, common)
	}
	if r != common {
		a.castSlot(&n.B, common)
	}
}

func (a *Analyzer) resolveUnary(id ast.NodeID, n *ast.Node) types.TypeID {
	x := a.resolve(n.A)
	if !a.resolved(x) {
		return a.pendingType()
	}
	t, ok := a.types.UnaryUpper(opClass(n.Op), x)
	if !ok {
		if a.isNamed(x) {
			return a.rewriteOperator(id, n, n.A)
		}
		a.errorf(diag.SemaOperatorUnsupported, n.Span, "operator %s is not defined for %s", n.Op, a.typeStr(x)).Emit()
		return a.fail(id)
	}
	return a.finish(id, t)
}

// rewriteOperator turns an operator over custom types into a call of the
// function named after it, "operator+", resolved like any other call.
func (a *Analyzer) rewriteOperator(id ast.NodeID, n *ast.Node, operands ...ast.NodeID) types.TypeID {
	callee := a.tree.New(ast.Node{
		Kind:  ast.KindIdent,
		Span:  n.Span,
		Name:  n.Op.OperatorName(),
		Flags: ast.FlagImplicit,
	})
	a.adopt(callee, id)
	n.Kind = ast.KindCall
	n.Op = ast.OpNone
	n.A, n.B = callee, ast.NoNodeID
	n.List = operands
	return a.resolveCall(id, n)
}

func (a *Analyzer) resolveAssign(id ast.NodeID, n *ast.Node) types.TypeID {
	target := a.resolve(n.A)
	value := a.resolve(n.B)
	if !a.resolved(target) || !a.resolved(value) {
		return a.pendingType()
	}
	tn := a.node(n.A)
	switch tn.Kind {
	case ast.KindIdent:
		sym, ok := a.res.Bindings[n.A]
		if !ok {
			return a.fail(id)
		}
		s := a.table.Symbol(sym)
		if s.Kind != symbols.KindVariable {
			a.errorf(diag.SemaAssignMismatch, tn.Span, "cannot assign to %s", tn.QualifiedName()).Emit()
			return a.fail(id)
		}
		if s.Attrs.Has(symbols.AttrConst) {
			a.errorf(diag.SemaAssignToConst, tn.Span, "cannot assign to constant %s", tn.QualifiedName()).
				WithNote(s.Span, "declared const here").Emit()
		}
	case ast.KindIndex:
		if a.types.Kind(a.types.Underlying(a.node(tn.A).ValueType)) == types.KindString {
			a.errorf(diag.SemaAssignMismatch, tn.Span, "strings are immutable").Emit()
			return a.fail(id)
		}
	case ast.KindMember:
	default:
		a.errorf(diag.SemaAssignMismatch, tn.Span, "cannot assign to this expression").Emit()
		return a.fail(id)
	}
	if n.Op != ast.OpNone {
		if _, ok := a.types.BinaryUpper(opClass(n.Op), target, value); !ok {
			a.errorf(diag.SemaOperatorUnsupported, n.Span, "operator %s= is not defined for %s and %s",
				n.Op, a.typeStr(target), a.typeStr(value)).Emit()
			return a.fail(id)
		}
	}
	a.coerce(&n.B, target, diag.SemaAssignMismatch)
	return a.finish(id, target)
}

// access

func (a *Analyzer) resolveIndex(id ast.NodeID, n *ast.Node) types.TypeID {
	x, k := a.resolve(n.A), a.resolve(n.B)
	if !a.resolved(x) || !a.resolved(k) {
		return a.pendingType()
	}
	b := a.builtins
	t := a.types.MustLookup(a.types.Underlying(x))
	switch t.Kind {
	case types.KindArray:
		a.coerce(&n.B, b.Int, diag.SemaIndexMismatch)
		return a.finish(id, t.Elem)
	case types.KindString:
		a.coerce(&n.B, b.Int, diag.SemaIndexMismatch)
		return a.finish(id, b.String)
	case types.KindMap:
		a.coerce(&n.B, t.Key, diag.SemaIndexMismatch)
		return a.finish(id, t.Elem)
	case types.KindTuple:
		kn := a.node(n.B)
		if kn.Kind != ast.KindLitInt || kn.Int < 0 || kn.Int >= int64(len(t.Params)) {
			a.errorf(diag.SemaIndexMismatch, kn.Span, "tuple %s needs a constant index below %d", a.typeStr(x), len(t.Params)).Emit()
			return a.fail(id)
		}
		return a.finish(id, t.Params[kn.Int])
	case types.KindDynamic:
		return a.finish(id, b.Dynamic)
	}
	a.errorf(diag.SemaIndexMismatch, n.Span, "cannot index %s", a.typeStr(x)).Emit()
	return a.fail(id)
}

func (a *Analyzer) resolveMember(id ast.NodeID, n *ast.Node) types.TypeID {
	x := a.resolve(n.A)
	if !a.resolved(x) {
		return a.pendingType()
	}
	t := a.types.MustLookup(a.types.Underlying(x))
	switch t.Kind {
	case types.KindStruct:
		if i, ok := t.FieldIndex(n.Name); ok {
			a.res.Fields[id] = i
			return a.finish(id, t.Fields[i].Type)
		}
	case types.KindDynamic:
		return a.finish(id, a.builtins.Dynamic)
	}
	a.errorf(diag.SemaUnknownMember, n.Span, "%s has no member %q", a.typeStr(x), n.Name).Emit()
	return a.fail(id)
}

// literals

// unifyElems coerces every element slot to the type of the first one.
func (a *Analyzer) unifyElems(slots []ast.NodeID) (types.TypeID, bool) {
	elem := types.NoTypeID
	for _, s := range slots {
		if !a.resolved(a.resolve(s)) {
			return a.builtins.Pending, false
		}
	}
	for i := range slots {
		if i == 0 {
			elem = a.node(slots[0]).ValueType
			continue
		}
		a.coerce(&slots[i], elem, diag.SemaTypeMismatch)
	}
	if elem == types.NoTypeID {
		elem = a.builtins.Dynamic
	}
	return elem, true
}

func (a *Analyzer) resolveArray(id ast.NodeID, n *ast.Node) types.TypeID {
	elem, ok := a.unifyElems(n.List)
	if !ok {
		return a.pendingType()
	}
	return a.finish(id, a.types.Array(elem))
}

func (a *Analyzer) resolveMap(id ast.NodeID, n *ast.Node) types.TypeID {
	keys := make([]ast.NodeID, len(n.List))
	values := make([]ast.NodeID, len(n.List))
	for i, p := range n.List {
		pn := a.node(p)
		keys[i], values[i] = pn.A, pn.B
	}
	kt, kok := a.unifyElems(keys)
	vt, vok := a.unifyElems(values)
	if !kok || !vok {
		return a.pendingType()
	}
	for i, p := range n.List {
		pn := a.node(p)
		pn.A, pn.B = keys[i], values[i]
		a.finish(p, a.node(values[i]).ValueType)
	}
	return a.finish(id, a.types.Map(kt, vt))
}

func (a *Analyzer) resolveTuple(id ast.NodeID, n *ast.Node) types.TypeID {
	elems := make([]types.TypeID, len(n.List))
	for i, e := range n.List {
		elems[i] = a.resolve(e)
		if !a.resolved(elems[i]) {
			return a.pendingType()
		}
	}
	return a.finish(id, a.types.Tuple(elems...))
}

// resolveStructLit checks a struct literal against its declared type, or
// builds an anonymous struct type from the fields when no type is given.
// Omitted fields take their declared defaults.
func (a *Analyzer) resolveStructLit(id ast.NodeID, n *ast.Node) types.TypeID {
	for _, f := range n.List {
		if !a.resolved(a.resolve(a.node(f).A)) {
			return a.pendingType()
		}
	}
	if !n.A.IsValid() {
		fields := make([]types.Field, len(n.List))
		for i, f := range n.List {
			fn := a.node(f)
			fields[i] = types.Field{Name: fn.Name, Type: a.node(fn.A).ValueType}
			a.finish(f, fields[i].Type)
		}
		return a.finish(id, a.types.Struct(fields...))
	}
	st := a.resolveTypeExpr(n.A)
	if !a.resolved(st) {
		return a.pendingType()
	}
	t := a.types.MustLookup(a.types.Underlying(st))
	if t.Kind != types.KindStruct {
		if t.Kind != types.KindDynamic {
			a.errorf(diag.SemaTypeMismatch, n.Span, "%s is not a struct type", a.typeStr(st)).Emit()
		}
		return a.fail(id)
	}
	seen := make(map[string]bool, len(n.List))
	for _, f := range n.List {
		fn := a.node(f)
		i, ok := t.FieldIndex(fn.Name)
		if !ok {
			a.errorf(diag.SemaUnknownMember, fn.Span, "%s has no field %q", a.typeStr(st), fn.Name).Emit()
			a.fail(f)
			continue
		}
		if seen[fn.Name] {
			a.errorf(diag.SemaRedefinition, fn.Span, "field %q is set twice", fn.Name).Emit()
		}
		seen[fn.Name] = true
		a.coerce(&fn.A, t.Fields[i].Type, diag.SemaAssignMismatch)
		a.finish(f, t.Fields[i].Type)
	}
	return a.finish(id, st)
}

func (a *Analyzer) resolveCast(id ast.NodeID, n *ast.Node) types.TypeID {
	from := a.resolve(n.A)
	to := a.resolveTypeExpr(n.B)
	if !a.resolved(from) || !a.resolved(to) {
		return a.pendingType()
	}
	if !a.types.ExplicitCast(from, to) {
		a.errorf(diag.SemaCastMismatch, n.Span, "cannot convert %s to %s", a.typeStr(from), a.typeStr(to)).Emit()
		return a.fail(id)
	}
	return a.finish(id, to)
}

// resolveTypeIs folds `x is T` to a boolean constant.
func (a *Analyzer) resolveTypeIs(id ast.NodeID, n *ast.Node) types.TypeID {
	v := a.resolve(n.A)
	t := a.resolveTypeExpr(n.B)
	if !a.resolved(v) || !a.resolved(t) {
		return a.pendingType()
	}
	n.Flags |= ast.FlagFolded
	n.Int = 0
	if a.types.IsSame(v, t) {
		n.Int = 1
	}
	return a.finish(id, a.builtins.Bool)
}
