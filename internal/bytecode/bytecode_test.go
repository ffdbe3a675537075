package bytecode

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestFinishResolvesLabels(t *testing.T) {
	b := NewBuilder()
	entry := b.NewLabel()
	end := b.NewLabel()
	b.Bind(entry)
	b.Emit(OpJmp, end.Operand())
	b.Emit(OpNop)
	b.Bind(end)
	b.Emit(OpHalt)

	p, err := b.Finish(entry)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if got := p.Code[0].A; got.Kind != KindAddr || got.Val != 2 {
		t.Fatalf("jmp target = %s, want @2", got)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestFinishRejectsUnboundLabel(t *testing.T) {
	b := NewBuilder()
	entry := b.NewLabel()
	b.Bind(entry)
	b.Emit(OpJmp, b.NewLabel().Operand())
	if _, err := b.Finish(entry); err == nil {
		t.Fatalf("expected an error for an unbound jump target")
	}
}

func TestFinishRejectsFunctionWithoutBody(t *testing.T) {
	b := NewBuilder()
	entry := b.NewLabel()
	b.DeclareFunc("f", 0)
	b.Bind(entry)
	b.Emit(OpHalt)
	if _, err := b.Finish(entry); err == nil || !strings.Contains(err.Error(), "f has no body") {
		t.Fatalf("err = %v", err)
	}
}

func TestRewindUnbindsLabels(t *testing.T) {
	b := NewBuilder()
	b.Emit(OpNop)
	m := b.Mark()
	l := b.NewLabel()
	b.Bind(l)
	b.Emit(OpAdd, T(0), Int(1))
	b.Rewind(m)

	if b.Pos() != 1 {
		t.Fatalf("pos after rewind = %d, want 1", b.Pos())
	}
	if b.Bound(l) {
		t.Fatalf("label bound after the mark survived the rewind")
	}
	// the label can be placed again after a rewind
	b.Bind(l)
	if !b.Bound(l) {
		t.Fatalf("rebind failed")
	}
}

func TestPatchReserve(t *testing.T) {
	b := NewBuilder()
	ip := b.Reserve()
	b.Patch(ip, 5)
	if got := b.At(ip).A; got != Int(5) {
		t.Fatalf("reserve operand = %s", got)
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("patching a non-reserve instruction did not panic")
		}
	}()
	b.Patch(b.Emit(OpNop), 1)
}

func TestStringPoolDedup(t *testing.T) {
	b := NewBuilder()
	x := b.String("hi")
	y := b.String("there")
	z := b.String("hi")
	if x != z || x == y {
		t.Fatalf("pool indices: %s %s %s", x, y, z)
	}
}

func TestSpecialize(t *testing.T) {
	cases := []struct {
		op   Opcode
		p    Prim
		want Opcode
	}{
		{OpAdd, PrimInt, OpAddI},
		{OpAdd, PrimString, OpAddS},
		{OpSub, PrimString, OpSub},
		{OpMod, PrimReal, OpMod},
		{OpLt, PrimReal, OpLtR},
		{OpBAnd, PrimInt, OpBAnd},
		{OpEq, PrimNone, OpEq},
	}
	for _, c := range cases {
		if got := Specialize(c.op, c.p); got != c.want {
			t.Errorf("Specialize(%s, %d) = %s, want %s", c.op, c.p, got, c.want)
		}
	}
}

func TestWritesCR(t *testing.T) {
	for _, op := range []Opcode{OpAddI, OpGeS, OpCast, OpMkVar, OpIdx, OpIterVal} {
		if !op.WritesCR() {
			t.Errorf("%s should write cr", op)
		}
	}
	for _, op := range []Opcode{OpMov, OpJmp, OpPsh, OpCall, OpIdxSet, OpIterNext} {
		if op.WritesCR() {
			t.Errorf("%s should not write cr", op)
		}
	}
}

func TestInstrString(t *testing.T) {
	in := Instr{Op: OpAddI, A: Stack(-1), B: Int(3)}
	if got := in.String(); got != "add.i [bp-1], 3" {
		t.Fatalf("got %q", got)
	}
	if got := (Instr{Op: OpRet}).String(); got != "ret" {
		t.Fatalf("got %q", got)
	}
}

func sampleProgram(t *testing.T) *Program {
	t.Helper()
	b := NewBuilder()
	fn, body := b.DeclareFunc("twice", 1)
	entry := b.NewLabel()

	b.Bind(body)
	b.Emit(OpMulI, Stack(2), Int(2))
	b.Emit(OpRet, CR)
	b.SetFrame(fn, 0, 0)

	b.Bind(entry)
	b.Emit(OpPsh, Real(1.5))
	b.Emit(OpCall, Func(fn), Int(1))
	b.Emit(OpMov, Global(0), RR)
	b.Emit(OpPsh, b.String("done"))
	b.Emit(OpCallN, Native(b.AddNative(NativeRef{Library: "io", Symbol: "print"})), Int(1))
	b.Emit(OpHalt)
	b.SetGlobals(1)

	p, err := b.Finish(entry)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	return p
}

func TestProgramCodecRoundTrip(t *testing.T) {
	p := sampleProgram(t)
	var buf bytes.Buffer
	if err := p.Encode(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	q, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var want, got strings.Builder
	if err := Disassemble(&want, p, DisasmOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := Disassemble(&got, q, DisasmOptions{}); err != nil {
		t.Fatal(err)
	}
	if want.String() != got.String() {
		t.Fatalf("round trip changed the program:\n%s\nvs\n%s", want.String(), got.String())
	}
	if q.Code[2].A.Float() != 1.5 {
		t.Fatalf("real immediate = %v", q.Code[2].A.Float())
	}
}

func TestDecodeRejectsOtherVersion(t *testing.T) {
	p := sampleProgram(t)
	p.Version = ProgramVersion + 1
	var buf bytes.Buffer
	if err := p.Encode(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(&buf); !errors.Is(err, ErrProgramVersion) {
		t.Fatalf("err = %v, want ErrProgramVersion", err)
	}
}

func TestValidateCatchesBadReference(t *testing.T) {
	p := sampleProgram(t)
	p.Code = append(p.Code, Instr{Op: OpPsh, A: Global(7)})
	if err := p.Validate(); err == nil {
		t.Fatalf("global out of range was accepted")
	}
}

func TestDisassembleListing(t *testing.T) {
	p := sampleProgram(t)
	var sb strings.Builder
	err := Disassemble(&sb, p, DisasmOptions{Pos: func(ip int) string {
		if ip == 0 {
			return "a.lm:1:1"
		}
		return ""
	}})
	if err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	for _, want := range []string{
		"f0 twice params=1",
		"entry:",
		"call f0, 1  ; twice",
		"calln n0, 1  ; print",
		`psh s0  ; "done"`,
		"# a.lm:1:1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing lacks %q:\n%s", want, out)
		}
	}
}
