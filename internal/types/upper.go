package types

// OpClass groups operators that share typing rules.
type OpClass uint8

const (
	ClassAdd      OpClass = iota // + (numeric or string concatenation)
	ClassArith                   // - * / %
	ClassBitwise                 // & | ^ << >>
	ClassEquality                // == !=
	ClassOrdering                // < <= > >=
	ClassLogical                 // && ||
	ClassNeg                     // unary -
	ClassNot                     // unary !
	ClassBitNot                  // unary ~
)

// BinaryUpper computes the result type of a binary operator over primitive
// operands. ok is false when no built-in rule applies; named operands never
// match here and go through operator overloading instead.
func (in *Interner) BinaryUpper(class OpClass, l, r TypeID) (TypeID, bool) {
	if !in.IsResolved(l) || !in.IsResolved(r) {
		return in.builtins.Pending, true
	}
	lt, rt := in.MustLookup(l), in.MustLookup(r)
	b := in.builtins
	if lt.Named() || rt.Named() {
		if class == ClassEquality && l == r {
			return b.Bool, true
		}
		return NoTypeID, false
	}
	lk, rk := lt.Kind, rt.Kind
	if lk == KindDynamic || rk == KindDynamic {
		switch class {
		case ClassEquality, ClassOrdering, ClassLogical:
			return b.Bool, true
		}
		return b.Dynamic, true
	}
	switch class {
	case ClassLogical:
		if lk == KindBool && rk == KindBool {
			return b.Bool, true
		}
	case ClassEquality:
		if l == r || lk.IsNumeric() && rk.IsNumeric() {
			return b.Bool, true
		}
	case ClassOrdering:
		if lk.IsNumeric() && rk.IsNumeric() || lk == KindString && rk == KindString {
			return b.Bool, true
		}
	case ClassBitwise:
		if lk == KindInt && rk == KindInt {
			return b.Int, true
		}
	case ClassAdd:
		if lk == KindString && rk.IsPrimitive() || rk == KindString && lk.IsPrimitive() {
			return b.String, true
		}
		return in.numericUpper(lk, rk)
	case ClassArith:
		return in.numericUpper(lk, rk)
	}
	return NoTypeID, false
}

func (in *Interner) numericUpper(lk, rk Kind) (TypeID, bool) {
	switch {
	case lk == KindInt && rk == KindInt:
		return in.builtins.Int, true
	case lk.IsNumeric() && rk.IsNumeric():
		return in.builtins.Real, true
	}
	return NoTypeID, false
}

// UnaryUpper is BinaryUpper for prefix operators.
func (in *Interner) UnaryUpper(class OpClass, x TypeID) (TypeID, bool) {
	if !in.IsResolved(x) {
		return in.builtins.Pending, true
	}
	t := in.MustLookup(x)
	if t.Named() {
		return NoTypeID, false
	}
	switch {
	case t.Kind == KindDynamic:
		if class == ClassNot {
			return in.builtins.Bool, true
		}
		return x, true
	case class == ClassNeg && t.Kind.IsNumeric():
		return x, true
	case class == ClassNot && t.Kind == KindBool:
		return x, true
	case class == ClassBitNot && t.Kind == KindInt:
		return x, true
	}
	return NoTypeID, false
}
