// Package debuginfo maps instruction addresses of an emitted program back to
// source positions and function names.
package debuginfo

import (
	"fmt"
	"io"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"loom/internal/source"
)

// Pos is a resolved source position.
type Pos struct {
	File string `msgpack:"f"`
	Line uint32 `msgpack:"l"`
	Col  uint32 `msgpack:"c"`
}

func (p Pos) String() string {
	if p.File == "" {
		return "<no-span>"
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Entry is the innermost node whose code starts at IP.
type Entry struct {
	IP   int         `msgpack:"ip"`
	Span source.Span `msgpack:"s"`
	Pos  Pos         `msgpack:"p"`
}

// FuncRange is the code of one function body, [Start, End).
type FuncRange struct {
	Name  string `msgpack:"name"`
	Start int    `msgpack:"start"`
	End   int    `msgpack:"end"`
	Pos   Pos    `msgpack:"p"`

	span source.Span
}

// Table is the finished debug information of one program.
type Table struct {
	Entries []Entry     `msgpack:"entries"`
	Funcs   []FuncRange `msgpack:"funcs"`
}

// Recorder is notified by the code generator while it emits. Entries must
// arrive in non-decreasing address order; Truncate drops what a rewind of
// the instruction stream discarded.
type Recorder struct {
	entries []Entry
	funcs   []FuncRange
	open    []int // indices into funcs of bodies being emitted
}

func NewRecorder() *Recorder { return &Recorder{} }

// Node records that the code of the node at span starts at ip.
func (r *Recorder) Node(ip int, span source.Span) {
	if span.Empty() && span.File == 0 {
		return
	}
	if n := len(r.entries); n > 0 {
		last := &r.entries[n-1]
		if last.IP == ip {
			last.Span = span
			return
		}
		if last.Span == span {
			return
		}
	}
	r.entries = append(r.entries, Entry{IP: ip, Span: span})
}

// BeginFunc opens the range of a function body starting at ip.
func (r *Recorder) BeginFunc(name string, ip int, span source.Span) {
	r.open = append(r.open, len(r.funcs))
	r.funcs = append(r.funcs, FuncRange{Name: name, Start: ip, End: -1, span: span})
}

// EndFunc closes the innermost open function at ip.
func (r *Recorder) EndFunc(ip int) {
	if len(r.open) == 0 {
		panic("debuginfo: EndFunc without BeginFunc")
	}
	i := r.open[len(r.open)-1]
	r.open = r.open[:len(r.open)-1]
	r.funcs[i].End = ip
}

// Truncate forgets every entry at or after ip.
func (r *Recorder) Truncate(ip int) {
	n := sort.Search(len(r.entries), func(i int) bool { return r.entries[i].IP >= ip })
	r.entries = r.entries[:n]
	for len(r.funcs) > 0 && r.funcs[len(r.funcs)-1].Start >= ip {
		last := len(r.funcs) - 1
		if k := len(r.open); k > 0 && r.open[k-1] == last {
			r.open = r.open[:k-1]
		}
		r.funcs = r.funcs[:last]
	}
}

// Len is the number of recorded entries.
func (r *Recorder) Len() int { return len(r.entries) }

// Finish resolves every span against files and returns the table. Functions
// still open end at end.
func (r *Recorder) Finish(files *source.FileSet, end int) *Table {
	t := &Table{
		Entries: make([]Entry, len(r.entries)),
		Funcs:   make([]FuncRange, len(r.funcs)),
	}
	for i, e := range r.entries {
		e.Pos = resolve(files, e.Span)
		t.Entries[i] = e
	}
	for i, f := range r.funcs {
		if f.End < 0 {
			f.End = end
		}
		f.Pos = resolve(files, f.span)
		t.Funcs[i] = f
	}
	sort.SliceStable(t.Funcs, func(i, j int) bool { return t.Funcs[i].Start < t.Funcs[j].Start })
	return t
}

func resolve(files *source.FileSet, span source.Span) Pos {
	if files == nil || (span.Start == 0 && span.End == 0) {
		return Pos{}
	}
	f := files.Get(span.File)
	if f == nil {
		return Pos{}
	}
	start, _ := files.Resolve(span)
	return Pos{File: f.Path, Line: start.Line, Col: start.Col}
}

// Lookup returns the entry covering ip: the last one starting at or before it.
func (t *Table) Lookup(ip int) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	n := sort.Search(len(t.Entries), func(i int) bool { return t.Entries[i].IP > ip })
	if n == 0 {
		return Entry{}, false
	}
	return t.Entries[n-1], true
}

// FuncAt returns the function whose body contains ip.
func (t *Table) FuncAt(ip int) (FuncRange, bool) {
	if t == nil {
		return FuncRange{}, false
	}
	n := sort.Search(len(t.Funcs), func(i int) bool { return t.Funcs[i].Start > ip })
	for i := n - 1; i >= 0; i-- {
		if f := t.Funcs[i]; ip < f.End {
			return f, true
		}
	}
	return FuncRange{}, false
}

// Position formats the source position of ip, or "" when unknown.
func (t *Table) Position(ip int) string {
	e, ok := t.Lookup(ip)
	if !ok || e.Pos.File == "" {
		return ""
	}
	if f, ok := t.FuncAt(ip); ok && e.IP < f.Start {
		return ""
	}
	return e.Pos.String()
}

// Frame is one level of a runtime backtrace.
type Frame struct {
	FuncName string
	Pos      Pos
}

// Backtrace maps the return addresses of a runtime call stack, innermost
// first, to frames.
func (t *Table) Backtrace(ips []int) []Frame {
	out := make([]Frame, 0, len(ips))
	for _, ip := range ips {
		fr := Frame{FuncName: "<entry>"}
		if f, ok := t.FuncAt(ip); ok {
			fr.FuncName = f.Name
		}
		if e, ok := t.Lookup(ip); ok {
			fr.Pos = e.Pos
		}
		out = append(out, fr)
	}
	return out
}

// Encode writes t as msgpack.
func (t *Table) Encode(w io.Writer) error {
	enc := msgpack.NewEncoder(w)
	enc.UseCompactInts(true)
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("encode debug info: %w", err)
	}
	return nil
}

// Decode reads a table written by Encode.
func Decode(r io.Reader) (*Table, error) {
	var t Table
	if err := msgpack.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode debug info: %w", err)
	}
	return &t, nil
}
