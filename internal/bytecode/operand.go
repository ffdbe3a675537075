package bytecode

import (
	"fmt"
	"math"
	"strconv"

	"fortio.org/safecast"
)

// OperandKind classifies an instruction operand.
type OperandKind uint8

const (
	KindNone   OperandKind = iota
	KindInt                // immediate integer
	KindReal               // immediate real, IEEE bits in Val
	KindBool               // immediate bool
	KindStr                // string pool index
	KindGlobal             // global slot
	KindStack              // frame slot relative to bp
	KindT                  // scratch value register
	KindR                  // scratch reference register
	KindCR                 // accumulator
	KindRR                 // return register
	KindTC                 // spread argument count
	KindLabel              // unresolved jump target
	KindAddr               // resolved instruction address
	KindFunc               // function table index
	KindNative             // native table index
	KindType               // type table index, or a cast target kind
)

// Operand is one instruction argument.
type Operand struct {
	Kind OperandKind `msgpack:"k"`
	Val  int64       `msgpack:"v,omitempty"`
}

var (
	None = Operand{}
	CR   = Operand{Kind: KindCR}
	RR   = Operand{Kind: KindRR}
	TC   = Operand{Kind: KindTC}
)

func Int(v int64) Operand { return Operand{Kind: KindInt, Val: v} }

func Real(v float64) Operand {
	return Operand{Kind: KindReal, Val: int64(math.Float64bits(v))} //nolint:gosec // bit pattern
}

func Bool(v bool) Operand {
	if v {
		return Operand{Kind: KindBool, Val: 1}
	}
	return Operand{Kind: KindBool}
}

func Global(slot uint32) Operand { return Operand{Kind: KindGlobal, Val: int64(slot)} }
func Stack(off int32) Operand    { return Operand{Kind: KindStack, Val: int64(off)} }
func T(i int) Operand            { return Operand{Kind: KindT, Val: int64(i)} }
func R(i int) Operand            { return Operand{Kind: KindR, Val: int64(i)} }
func Func(idx uint32) Operand    { return Operand{Kind: KindFunc, Val: int64(idx)} }
func Native(idx uint32) Operand  { return Operand{Kind: KindNative, Val: int64(idx)} }
func Type(idx uint32) Operand    { return Operand{Kind: KindType, Val: int64(idx)} }

// IsImm reports a constant operand.
func (o Operand) IsImm() bool {
	switch o.Kind {
	case KindInt, KindReal, KindBool, KindStr:
		return true
	}
	return false
}

// IsReg reports a scratch or implicit register.
func (o Operand) IsReg() bool {
	switch o.Kind {
	case KindT, KindR, KindCR, KindRR, KindTC:
		return true
	}
	return false
}

// Index returns Val as a table or register index.
func (o Operand) Index() int { return safecast.MustConv[int](o.Val) }

// Float decodes a real immediate.
func (o Operand) Float() float64 { return math.Float64frombits(uint64(o.Val)) } //nolint:gosec // bit pattern

func (o Operand) String() string {
	switch o.Kind {
	case KindNone:
		return "_"
	case KindInt:
		return strconv.FormatInt(o.Val, 10)
	case KindReal:
		return strconv.FormatFloat(o.Float(), 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(o.Val != 0)
	case KindStr:
		return fmt.Sprintf("s%d", o.Val)
	case KindGlobal:
		return fmt.Sprintf("g%d", o.Val)
	case KindStack:
		return fmt.Sprintf("[bp%+d]", o.Val)
	case KindT:
		return fmt.Sprintf("t%d", o.Val)
	case KindR:
		return fmt.Sprintf("r%d", o.Val)
	case KindCR:
		return "cr"
	case KindRR:
		return "rr"
	case KindTC:
		return "tc"
	case KindLabel:
		return fmt.Sprintf("L%d", o.Val)
	case KindAddr:
		return fmt.Sprintf("@%d", o.Val)
	case KindFunc:
		return fmt.Sprintf("f%d", o.Val)
	case KindNative:
		return fmt.Sprintf("n%d", o.Val)
	case KindType:
		return fmt.Sprintf("ty%d", o.Val)
	}
	return "?"
}

// Instr is one instruction. Unused operands are None.
type Instr struct {
	Op Opcode  `msgpack:"op"`
	A  Operand `msgpack:"a"`
	B  Operand `msgpack:"b"`
	C  Operand `msgpack:"c"`
}

func (in Instr) String() string {
	s := in.Op.String()
	sep := " "
	for _, o := range [...]Operand{in.A, in.B, in.C} {
		if o.Kind == KindNone {
			continue
		}
		s += sep + o.String()
		sep = ", "
	}
	return s
}
