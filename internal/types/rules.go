package types

// Accept reports whether a value of type actual may be used where formal is
// expected without conversion. Reflexive on resolved types, dynamic accepts
// everything, and a pending type on either side never satisfies the check.
func (in *Interner) Accept(formal, actual TypeID) bool {
	if !in.IsResolved(formal) || !in.IsResolved(actual) {
		return false
	}
	if formal == actual {
		return true
	}
	f := in.MustLookup(formal)
	a := in.MustLookup(actual)
	if f.Kind == KindDynamic {
		return true
	}
	if f.Kind != a.Kind || f.Sym != a.Sym {
		return false
	}
	switch f.Kind {
	case KindArray:
		return in.Accept(f.Elem, a.Elem)
	case KindMap:
		return in.Accept(f.Key, a.Key) && in.Accept(f.Elem, a.Elem)
	case KindTuple:
		return in.acceptAll(f.Params, a.Params)
	case KindFunc:
		if f.Variadic != a.Variadic || len(f.Params) != len(a.Params) {
			return false
		}
		for i := range f.Params {
			if !in.Accept(a.Params[i], f.Params[i]) {
				return false
			}
		}
		return in.Accept(f.Result, a.Result)
	}
	return false
}

func (in *Interner) acceptAll(formal, actual []TypeID) bool {
	if len(formal) != len(actual) {
		return false
	}
	for i := range formal {
		if !in.Accept(formal[i], actual[i]) {
			return false
		}
	}
	return true
}

// IsSame is strict identity, including alias symbol and template arguments.
func (in *Interner) IsSame(a, b TypeID) bool {
	return a == b && in.IsResolved(a)
}

// ImplicitCast reports whether from converts to to without an explicit cast.
func (in *Interner) ImplicitCast(from, to TypeID) bool {
	if !in.IsResolved(from) || !in.IsResolved(to) {
		return false
	}
	if from == to {
		return true
	}
	fk, tk := in.Kind(from), in.Kind(to)
	if fk == KindVoid || tk == KindVoid {
		return false
	}
	if fk == KindDynamic || tk == KindDynamic {
		return true
	}
	if in.MustLookup(from).Named() || in.MustLookup(to).Named() {
		return false
	}
	return implicitTable[fk][tk]
}

// ExplicitCast additionally allows narrowing, parsing from strings and
// converting between a named type and its structure.
func (in *Interner) ExplicitCast(from, to TypeID) bool {
	if in.ImplicitCast(from, to) {
		return true
	}
	if !in.IsResolved(from) || !in.IsResolved(to) {
		return false
	}
	uf, ut := in.Underlying(from), in.Underlying(to)
	if uf == ut {
		return true
	}
	return explicitTable[in.Kind(uf)][in.Kind(ut)] || implicitTable[in.Kind(uf)][in.Kind(ut)]
}

var implicitTable = func() (t [KindParam + 1][KindParam + 1]bool) {
	t[KindInt][KindReal] = true
	t[KindReal][KindInt] = true
	t[KindInt][KindHandle] = true
	t[KindHandle][KindInt] = true
	for _, k := range []Kind{KindBool, KindInt, KindReal, KindHandle} {
		t[k][KindString] = true
	}
	return t
}()

var explicitTable = func() (t [KindParam + 1][KindParam + 1]bool) {
	t[KindBool][KindInt] = true
	t[KindInt][KindBool] = true
	t[KindReal][KindBool] = true
	for _, k := range []Kind{KindBool, KindInt, KindReal} {
		t[KindString][k] = true
	}
	return t
}()
