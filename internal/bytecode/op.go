package bytecode

// Opcode identifies one VM instruction. Arithmetic, comparison and data
// construction opcodes leave their result in the accumulator register CR.
type Opcode uint8

const (
	OpNop Opcode = iota
	OpMov        // A <- B
	OpHalt

	// arithmetic: CR <- A op B. The I/R/S suffixes are the type-specialised
	// forms for int, real and string operands; the bare forms dispatch on the
	// runtime type.
	OpAdd
	OpAddI
	OpAddR
	OpAddS
	OpSub
	OpSubI
	OpSubR
	OpMul
	OpMulI
	OpMulR
	OpDiv
	OpDivI
	OpDivR
	OpMod
	OpModI
	OpBAnd
	OpBOr
	OpBXor
	OpShl
	OpShr

	// comparison: CR <- bool(A op B)
	OpEq
	OpEqI
	OpEqR
	OpEqS
	OpNe
	OpNeI
	OpNeR
	OpNeS
	OpLt
	OpLtI
	OpLtR
	OpLtS
	OpLe
	OpLeI
	OpLeR
	OpLeS
	OpGt
	OpGtI
	OpGtR
	OpGtS
	OpGe
	OpGeI
	OpGeR
	OpGeS

	// unary: CR <- op A
	OpNeg
	OpNegI
	OpNegR
	OpNot
	OpBNot
	OpCast // CR <- A converted to the kind in B

	// control flow
	OpJmp // goto A
	OpJt  // if A goto B
	OpJf  // if !A goto B

	// calls
	OpPsh     // push A
	OpPop     // drop A values
	OpCall    // call function A with B fixed arguments plus TC spread ones
	OpCallV   // call function value A
	OpCallN   // call native A
	OpRet     // RR <- A; return
	OpReserve // grow the frame by A slots
	OpUnpk    // push B elements of A (all when B is -1), TC += count

	// data construction: pops its inputs, CR <- new value
	OpMkArr    // A elements
	OpMkMap    // A key/value pairs
	OpMkTup    // A elements
	OpMkStruct // type A, B fields
	OpMkClos   // function A, B captures
	OpMkVar    // union type A, variant tag B, C payload values

	// access
	OpIdx    // CR <- A[B]
	OpIdxSet // A[B] <- C
	OpFld    // CR <- A.field(B)
	OpFldSet // A.field(B) <- C
	OpTag    // CR <- variant tag of A
	OpVal    // CR <- payload of A

	// iteration
	OpIter     // CR <- iterator over A
	OpIterNext // advance iterator A; goto B when exhausted
	OpIterKey  // CR <- current key of iterator A
	OpIterVal  // CR <- current value of iterator A

	opCount
)

var opNames = [...]string{
	OpNop: "nop", OpMov: "mov", OpHalt: "halt",
	OpAdd: "add", OpAddI: "add.i", OpAddR: "add.r", OpAddS: "add.s",
	OpSub: "sub", OpSubI: "sub.i", OpSubR: "sub.r",
	OpMul: "mul", OpMulI: "mul.i", OpMulR: "mul.r",
	OpDiv: "div", OpDivI: "div.i", OpDivR: "div.r",
	OpMod: "mod", OpModI: "mod.i",
	OpBAnd: "band", OpBOr: "bor", OpBXor: "bxor", OpShl: "shl", OpShr: "shr",
	OpEq: "eq", OpEqI: "eq.i", OpEqR: "eq.r", OpEqS: "eq.s",
	OpNe: "ne", OpNeI: "ne.i", OpNeR: "ne.r", OpNeS: "ne.s",
	OpLt: "lt", OpLtI: "lt.i", OpLtR: "lt.r", OpLtS: "lt.s",
	OpLe: "le", OpLeI: "le.i", OpLeR: "le.r", OpLeS: "le.s",
	OpGt: "gt", OpGtI: "gt.i", OpGtR: "gt.r", OpGtS: "gt.s",
	OpGe: "ge", OpGeI: "ge.i", OpGeR: "ge.r", OpGeS: "ge.s",
	OpNeg: "neg", OpNegI: "neg.i", OpNegR: "neg.r", OpNot: "not", OpBNot: "bnot", OpCast: "cast",
	OpJmp: "jmp", OpJt: "jt", OpJf: "jf",
	OpPsh: "psh", OpPop: "pop", OpCall: "call", OpCallV: "callv", OpCallN: "calln",
	OpRet: "ret", OpReserve: "reserve", OpUnpk: "unpk",
	OpMkArr: "mkarr", OpMkMap: "mkmap", OpMkTup: "mktup", OpMkStruct: "mkstruct",
	OpMkClos: "mkclos", OpMkVar: "mkvar",
	OpIdx: "idx", OpIdxSet: "idxset", OpFld: "fld", OpFldSet: "fldset", OpTag: "tag", OpVal: "val",
	OpIter: "iter", OpIterNext: "iternext", OpIterKey: "iterkey", OpIterVal: "iterval",
}

func (op Opcode) String() string {
	if op < opCount && opNames[op] != "" {
		return opNames[op]
	}
	return "op?"
}

// WritesCR reports whether op leaves its result in the accumulator.
func (op Opcode) WritesCR() bool {
	switch {
	case op >= OpAdd && op <= OpCast:
		return true
	case op >= OpMkArr && op <= OpMkVar:
		return true
	}
	switch op {
	case OpIdx, OpFld, OpTag, OpVal, OpIter, OpIterKey, OpIterVal:
		return true
	}
	return false
}

// Prim is the static operand kind an opcode can be specialised for.
type Prim uint8

const (
	PrimNone Prim = iota
	PrimInt
	PrimReal
	PrimString
)

// specialised[generic] lists the int, real and string forms of a generic
// opcode; OpNop marks a missing form.
var specialised = map[Opcode][3]Opcode{
	OpAdd: {OpAddI, OpAddR, OpAddS},
	OpSub: {OpSubI, OpSubR, OpNop},
	OpMul: {OpMulI, OpMulR, OpNop},
	OpDiv: {OpDivI, OpDivR, OpNop},
	OpMod: {OpModI, OpNop, OpNop},
	OpEq:  {OpEqI, OpEqR, OpEqS},
	OpNe:  {OpNeI, OpNeR, OpNeS},
	OpLt:  {OpLtI, OpLtR, OpLtS},
	OpLe:  {OpLeI, OpLeR, OpLeS},
	OpGt:  {OpGtI, OpGtR, OpGtS},
	OpGe:  {OpGeI, OpGeR, OpGeS},
	OpNeg: {OpNegI, OpNegR, OpNop},
}

// Specialize returns the type-specialised form of a generic opcode for
// operands of kind p, or op itself when there is none.
func Specialize(op Opcode, p Prim) Opcode {
	forms, ok := specialised[op]
	if !ok || p == PrimNone {
		return op
	}
	if s := forms[p-1]; s != OpNop {
		return s
	}
	return op
}
