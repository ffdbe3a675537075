package bytecode

import (
	"fmt"

	"fortio.org/safecast"
)

// Label is a jump target allocated before its address is known.
type Label uint32

// Mark is a position in the instruction stream that the builder can be
// rewound to, discarding everything emitted after it.
type Mark struct {
	ip    int
	binds int
}

// Builder accumulates the instruction stream of one program. Jumps refer to
// labels, which Finish resolves to addresses.
type Builder struct {
	code    []Instr
	labels  []int // label -> ip, -1 while unbound
	binds   []Label
	strings []string
	strIdx  map[string]int
	funcs   []FuncInfo
	natives []NativeRef
	types   []TypeInfo
	typeIdx map[string]int
	globals uint32
}

func NewBuilder() *Builder {
	return &Builder{
		strIdx:  make(map[string]int),
		typeIdx: make(map[string]int),
	}
}

// Emit appends an instruction and returns its address.
func (b *Builder) Emit(op Opcode, args ...Operand) int {
	if len(args) > 3 {
		panic(fmt.Sprintf("bytecode: %s takes at most 3 operands", op))
	}
	in := Instr{Op: op}
	ops := [...]*Operand{&in.A, &in.B, &in.C}
	for i, a := range args {
		*ops[i] = a
	}
	b.code = append(b.code, in)
	return len(b.code) - 1
}

// Pos is the address of the next instruction.
func (b *Builder) Pos() int { return len(b.code) }

// At returns the instruction at ip.
func (b *Builder) At(ip int) Instr { return b.code[ip] }

func (b *Builder) Mark() Mark { return Mark{ip: len(b.code), binds: len(b.binds)} }

// Rewind discards the instructions and label bindings made after m.
func (b *Builder) Rewind(m Mark) {
	for _, l := range b.binds[m.binds:] {
		b.labels[l] = -1
	}
	b.binds = b.binds[:m.binds]
	b.code = b.code[:m.ip]
}

func (b *Builder) NewLabel() Label {
	b.labels = append(b.labels, -1)
	return Label(safecast.MustConv[uint32](len(b.labels) - 1))
}

// Bind places l at the next instruction.
func (b *Builder) Bind(l Label) {
	if b.labels[l] >= 0 {
		panic(fmt.Sprintf("bytecode: label L%d bound twice", l))
	}
	b.labels[l] = len(b.code)
	b.binds = append(b.binds, l)
}

// Bound reports whether l has been placed.
func (b *Builder) Bound(l Label) bool { return b.labels[l] >= 0 }

func (l Label) Operand() Operand { return Operand{Kind: KindLabel, Val: int64(l)} }

// Reserve emits a frame reservation whose size is patched once known.
func (b *Builder) Reserve() int { return b.Emit(OpReserve, Int(0)) }

// Patch overwrites the size of the reservation at ip.
func (b *Builder) Patch(ip int, slots int) {
	if b.code[ip].Op != OpReserve {
		panic(fmt.Sprintf("bytecode: patch of %s at %d", b.code[ip].Op, ip))
	}
	b.code[ip].A = Int(int64(slots))
}

// String interns s in the string pool.
func (b *Builder) String(s string) Operand {
	i, ok := b.strIdx[s]
	if !ok {
		i = len(b.strings)
		b.strings = append(b.strings, s)
		b.strIdx[s] = i
	}
	return Operand{Kind: KindStr, Val: int64(i)}
}

// DeclareFunc adds a function table entry; its entry label is bound when
// the body is emitted.
func (b *Builder) DeclareFunc(name string, params int) (uint32, Label) {
	l := b.NewLabel()
	b.funcs = append(b.funcs, FuncInfo{Name: name, Params: params, entry: l})
	return safecast.MustConv[uint32](len(b.funcs) - 1), l
}

// SetFrame records the frame shape of a function after its body is emitted.
func (b *Builder) SetFrame(idx uint32, frame, captures int) {
	f := &b.funcs[idx]
	f.Frame = frame
	f.Captures = captures
}

func (b *Builder) AddNative(ref NativeRef) uint32 {
	b.natives = append(b.natives, ref)
	return safecast.MustConv[uint32](len(b.natives) - 1)
}

// AddType interns a type description by name.
func (b *Builder) AddType(info TypeInfo) uint32 {
	key := info.Name + "|" + info.Kind
	if i, ok := b.typeIdx[key]; ok {
		return safecast.MustConv[uint32](i)
	}
	b.types = append(b.types, info)
	b.typeIdx[key] = len(b.types) - 1
	return safecast.MustConv[uint32](len(b.types) - 1)
}

func (b *Builder) SetGlobals(n uint32) { b.globals = n }

// Finish resolves labels and returns the program. entry labels the first
// instruction of the unit's top-level code.
func (b *Builder) Finish(entry Label) (*Program, error) {
	resolve := func(o *Operand, ip int) error {
		if o.Kind != KindLabel {
			return nil
		}
		at := b.labels[o.Val]
		if at < 0 {
			return fmt.Errorf("instruction %d jumps to unbound label L%d", ip, o.Val)
		}
		*o = Operand{Kind: KindAddr, Val: int64(at)}
		return nil
	}
	code := make([]Instr, len(b.code))
	copy(code, b.code)
	for ip := range code {
		in := &code[ip]
		for _, o := range [...]*Operand{&in.A, &in.B, &in.C} {
			if err := resolve(o, ip); err != nil {
				return nil, err
			}
		}
	}
	funcs := make([]FuncInfo, len(b.funcs))
	for i, f := range b.funcs {
		if b.labels[f.entry] < 0 {
			return nil, fmt.Errorf("function %s has no body", f.Name)
		}
		f.Entry = b.labels[f.entry]
		funcs[i] = f
	}
	if b.labels[entry] < 0 {
		return nil, fmt.Errorf("entry label L%d is unbound", entry)
	}
	return &Program{
		Version: ProgramVersion,
		Code:    code,
		Strings: append([]string(nil), b.strings...),
		Funcs:   funcs,
		Natives: append([]NativeRef(nil), b.natives...),
		Types:   append([]TypeInfo(nil), b.types...),
		Globals: b.globals,
		Entry:   b.labels[entry],
	}, nil
}
