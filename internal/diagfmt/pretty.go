package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"loom/internal/diag"
	"loom/internal/source"
)

const tabWidth = 4

type palette struct {
	sev      map[diag.Severity]*color.Color
	code     *color.Color
	gutter   *color.Color
	caret    *color.Color
	note     *color.Color
	location *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		sev: map[diag.Severity]*color.Color{
			diag.SevError:   color.New(color.FgRed, color.Bold),
			diag.SevWarning: color.New(color.FgYellow, color.Bold),
			diag.SevInfo:    color.New(color.FgCyan, color.Bold),
		},
		code:     color.New(color.Bold),
		gutter:   color.New(color.FgBlue),
		caret:    color.New(color.FgRed, color.Bold),
		note:     color.New(color.FgCyan),
		location: color.New(color.Faint),
	}
	all := []*color.Color{p.code, p.gutter, p.caret, p.note, p.location}
	for _, c := range p.sev {
		all = append(all, c)
	}
	for _, c := range all {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Pretty prints diagnostics in bag order (call bag.Sort first for a stable
// listing). Each one reads
//
//	<path>:<line>:<col>: <SEV> <CODE>: <Message>
//
// followed by the source line with the span underlined ^~~~, then the notes
// in the same format.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		sev, ok := p.sev[d.Severity]
		if !ok {
			sev = p.code
		}
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			p.location.Sprint(location(fs, d.Primary, opts.PathMode, opts.BaseDir)),
			sev.Sprint(d.Severity.String()),
			p.code.Sprint(d.Code.ID()),
			d.Message)
		snippet(w, fs, d.Primary, opts, p)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  %s %s: %s\n",
				p.note.Sprint("note:"),
				location(fs, n.Span, opts.PathMode, opts.BaseDir),
				n.Msg)
		}
	}
	if dropped := bag.Dropped(); dropped > 0 {
		fmt.Fprintf(w, "\n... %d more diagnostics not shown\n", dropped)
	}
}

// Summary prints a one-line count of errors and warnings.
func Summary(w io.Writer, name string, bag *diag.Bag) {
	errs, warns := bag.Counts()
	fmt.Fprintf(w, "%s: %s, %s\n", name, plural(errs, "error"), plural(warns, "warning"))
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}

func location(fs *source.FileSet, sp source.Span, mode PathMode, base string) string {
	f := fs.Get(sp.File)
	if f == nil {
		return "<unknown>"
	}
	path := formatPath(f.Path, mode, base)
	start, _ := fs.Resolve(sp)
	if start.Line == 0 {
		return fmt.Sprintf("%s:@%d", path, sp.Start)
	}
	return fmt.Sprintf("%s:%d:%d", path, start.Line, start.Col)
}

// snippet quotes the primary line (plus opts.Context lines above it) and
// underlines the span. Columns are measured in display cells so wide runes
// and tabs keep the caret aligned.
func snippet(w io.Writer, fs *source.FileSet, sp source.Span, opts PrettyOpts, p palette) {
	f := fs.Get(sp.File)
	if f == nil || f.Flags&source.FileNoContent != 0 {
		return
	}
	start, end := fs.Resolve(sp)
	if start.Line == 0 {
		return
	}
	first := max(1, int(start.Line)-int(opts.Context))
	digits := len(strconv.Itoa(int(start.Line)))
	pad := strings.Repeat(" ", digits)

	for ln := first; ln <= int(start.Line); ln++ {
		text := expandTabs(f.GetLine(uint32(ln))) //nolint:gosec // ln is bounded by start.Line
		if opts.Width > 0 {
			text = runewidth.Truncate(text, int(opts.Width), "…")
		}
		fmt.Fprintf(w, " %s %s %s\n", p.gutter.Sprintf("%*d", digits, ln), p.gutter.Sprint("|"), text)
	}

	line := f.GetLine(start.Line)
	from := clampCol(line, start.Col)
	to := len(line)
	if end.Line == start.Line {
		to = clampCol(line, end.Col)
	}
	lead := runewidth.StringWidth(expandTabs(line[:from]))
	width := max(1, runewidth.StringWidth(expandTabs(line[from:max(from, to)])))
	if opts.Width > 0 && lead >= int(opts.Width) {
		return
	}
	underline := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, " %s %s %s%s\n", pad, p.gutter.Sprint("|"), strings.Repeat(" ", lead), p.caret.Sprint(underline))
}

// clampCol converts a 1-based byte column to an offset into line.
func clampCol(line string, col uint32) int {
	return min(max(int(col)-1, 0), len(line))
}

func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var sb strings.Builder
	cells := 0
	for _, r := range s {
		if r == '\t' {
			n := tabWidth - cells%tabWidth
			sb.WriteString(strings.Repeat(" ", n))
			cells += n
			continue
		}
		sb.WriteRune(r)
		cells += runewidth.RuneWidth(r)
	}
	return sb.String()
}
