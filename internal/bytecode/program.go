package bytecode

import (
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// ProgramVersion is bumped whenever the instruction set or the wire layout
// changes.
const ProgramVersion = 1

// ErrProgramVersion is returned for programs written by an incompatible
// code generator.
var ErrProgramVersion = errors.New("unsupported program version")

// FuncInfo describes one emitted function body.
//
// Frame layout, relative to bp: captures at bp+2+i, arguments after them,
// locals at bp, bp-1, ... and spill slots below the locals. Frame counts the
// slots reserved below bp+1.
type FuncInfo struct {
	Name     string `msgpack:"name"`
	Entry    int    `msgpack:"entry"`
	Params   int    `msgpack:"params"`
	Captures int    `msgpack:"captures"`
	Frame    int    `msgpack:"frame"`

	entry Label
}

// NativeRef is an extern entry point resolved at compile time.
type NativeRef struct {
	Library string `msgpack:"lib"`
	Symbol  string `msgpack:"sym"`
	Handle  uint64 `msgpack:"handle"`
}

// TypeInfo names a struct or union shape for construction opcodes and for
// runtime formatting.
type TypeInfo struct {
	Name   string   `msgpack:"name"`
	Kind   string   `msgpack:"kind"`
	Fields []string `msgpack:"fields,omitempty"`
}

// Program is a finished, immutable instruction stream with its tables.
type Program struct {
	Version int         `msgpack:"version"`
	Code    []Instr     `msgpack:"code"`
	Strings []string    `msgpack:"strings"`
	Funcs   []FuncInfo  `msgpack:"funcs"`
	Natives []NativeRef `msgpack:"natives"`
	Types   []TypeInfo  `msgpack:"types"`
	Globals uint32      `msgpack:"globals"`
	Entry   int         `msgpack:"entry"`
}

// Validate checks that every table reference and jump target is in range.
func (p *Program) Validate() error {
	n := len(p.Code)
	check := func(ip int, o Operand) error {
		var limit int
		switch o.Kind {
		case KindAddr:
			limit = n
		case KindStr:
			limit = len(p.Strings)
		case KindFunc:
			limit = len(p.Funcs)
		case KindNative:
			limit = len(p.Natives)
		case KindGlobal:
			limit = int(p.Globals)
		case KindLabel:
			return fmt.Errorf("instruction %d: unresolved label", ip)
		default:
			return nil
		}
		if o.Val < 0 || o.Val >= int64(limit) {
			return fmt.Errorf("instruction %d: %s out of range", ip, o)
		}
		return nil
	}
	for ip, in := range p.Code {
		if in.Op >= opCount {
			return fmt.Errorf("instruction %d: invalid opcode %d", ip, in.Op)
		}
		for _, o := range [...]Operand{in.A, in.B, in.C} {
			if err := check(ip, o); err != nil {
				return err
			}
		}
	}
	if p.Entry < 0 || p.Entry > n {
		return fmt.Errorf("entry %d out of range", p.Entry)
	}
	return nil
}

// Encode writes p as msgpack.
func (p *Program) Encode(w io.Writer) error {
	enc := msgpack.NewEncoder(w)
	enc.UseCompactInts(true)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode program: %w", err)
	}
	return nil
}

// Decode reads and validates a program.
func Decode(r io.Reader) (*Program, error) {
	var p Program
	if err := msgpack.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode program: %w", err)
	}
	if p.Version != ProgramVersion {
		return nil, fmt.Errorf("%w: %d", ErrProgramVersion, p.Version)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("decode program: %w", err)
	}
	return &p, nil
}
