package bytecode

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// DisasmOptions configures Disassemble.
type DisasmOptions struct {
	// Pos, when set, returns a source position for an instruction address;
	// an empty result omits the annotation.
	Pos func(ip int) string
	// Raw disables the string, function and native name annotations.
	Raw bool
}

// Disassemble writes a human-readable listing of p.
func Disassemble(w io.Writer, p *Program, opts DisasmOptions) error {
	if w == nil || p == nil {
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "version=%d globals=%d entry=@%d\n", p.Version, p.Globals, p.Entry)

	if len(p.Strings) > 0 {
		fmt.Fprintf(&sb, "strings=%d\n", len(p.Strings))
		for i, s := range p.Strings {
			fmt.Fprintf(&sb, "  s%d: %s\n", i, strconv.Quote(s))
		}
	}
	if len(p.Natives) > 0 {
		fmt.Fprintf(&sb, "natives=%d\n", len(p.Natives))
		for i, n := range p.Natives {
			fmt.Fprintf(&sb, "  n%d: %s!%s\n", i, n.Library, n.Symbol)
		}
	}
	if len(p.Types) > 0 {
		fmt.Fprintf(&sb, "types=%d\n", len(p.Types))
		for i, t := range p.Types {
			fmt.Fprintf(&sb, "  ty%d: %s %s", i, t.Kind, t.Name)
			if len(t.Fields) > 0 {
				fmt.Fprintf(&sb, " {%s}", strings.Join(t.Fields, ", "))
			}
			sb.WriteByte('\n')
		}
	}

	// headers[ip] names the function or entry block starting at ip
	headers := make(map[int]string, len(p.Funcs)+1)
	order := make([]int, 0, len(p.Funcs))
	for i := range p.Funcs {
		order = append(order, i)
	}
	slices.SortStableFunc(order, func(a, b int) int { return p.Funcs[a].Entry - p.Funcs[b].Entry })
	for _, i := range order {
		f := p.Funcs[i]
		headers[f.Entry] = fmt.Sprintf("f%d %s params=%d captures=%d frame=%d", i, f.Name, f.Params, f.Captures, f.Frame)
	}
	if _, taken := headers[p.Entry]; !taken {
		headers[p.Entry] = "entry"
	}

	fmt.Fprintf(&sb, "code=%d\n", len(p.Code))
	for ip, in := range p.Code {
		if h, ok := headers[ip]; ok {
			fmt.Fprintf(&sb, "%s:\n", h)
		}
		line := fmt.Sprintf("  %5d  %s", ip, in)
		if !opts.Raw {
			if note := p.annotate(in); note != "" {
				line += "  ; " + note
			}
		}
		if opts.Pos != nil {
			if pos := opts.Pos(ip); pos != "" {
				line = fmt.Sprintf("%-48s  # %s", line, pos)
			}
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func (p *Program) annotate(in Instr) string {
	var notes []string
	for _, o := range [...]Operand{in.A, in.B, in.C} {
		if o.Val < 0 {
			continue
		}
		i := o.Index()
		switch o.Kind {
		case KindStr:
			if i < len(p.Strings) {
				notes = append(notes, strconv.Quote(p.Strings[i]))
			}
		case KindFunc:
			if i < len(p.Funcs) {
				notes = append(notes, p.Funcs[i].Name)
			}
		case KindNative:
			if i < len(p.Natives) {
				notes = append(notes, p.Natives[i].Symbol)
			}
		case KindType:
			if in.Op != OpCast && i < len(p.Types) {
				notes = append(notes, p.Types[i].Name)
			}
		}
	}
	return strings.Join(notes, " ")
}
