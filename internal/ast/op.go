package ast

// Op is the operator of Binary, Unary and compound Assign nodes.
type Op uint8

const (
	OpNone Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpNeg
	OpNot
	OpBitNot
)

var opText = [...]string{
	OpNone:   "",
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpDiv:    "/",
	OpMod:    "%",
	OpBitAnd: "&",
	OpBitOr:  "|",
	OpBitXor: "^",
	OpShl:    "<<",
	OpShr:    ">>",
	OpEq:     "==",
	OpNe:     "!=",
	OpLt:     "<",
	OpLe:     "<=",
	OpGt:     ">",
	OpGe:     ">=",
	OpAnd:    "&&",
	OpOr:     "||",
	OpNeg:    "-",
	OpNot:    "!",
	OpBitNot: "~",
}

func (o Op) String() string {
	if int(o) < len(opText) {
		return opText[o]
	}
	return "?"
}

// OperatorName is the function name an overload of this operator is declared under.
func (o Op) OperatorName() string {
	if o == OpNeg {
		return "operator neg"
	}
	return "operator" + o.String()
}

func (o Op) IsArithmetic() bool { return o >= OpAdd && o <= OpMod }
func (o Op) IsBitwise() bool    { return o >= OpBitAnd && o <= OpShr }
func (o Op) IsComparison() bool { return o >= OpEq && o <= OpGe }
func (o Op) IsLogical() bool    { return o == OpAnd || o == OpOr }
func (o Op) IsUnary() bool      { return o >= OpNeg && o <= OpBitNot }
