package diag

import "loom/internal/source"

// Note points at a secondary location, such as an earlier declaration.
type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is one finding. The msgpack tags keep cached diagnostics
// compact.
type Diagnostic struct {
	Severity Severity    `msgpack:"s"`
	Code     Code        `msgpack:"c"`
	Message  string      `msgpack:"m"`
	Primary  source.Span `msgpack:"p"`
	Notes    []Note      `msgpack:"n,omitempty"`
}

func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

// WithNote returns a copy of d with one more note.
func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes[:len(d.Notes):len(d.Notes)], Note{Span: sp, Msg: msg})
	return d
}

// identity is what makes two diagnostics the same report; notes do not
// count.
type identity struct {
	code Code
	sev  Severity
	span source.Span
	msg  string
}

func (d *Diagnostic) identity() identity {
	return identity{code: d.Code, sev: d.Severity, span: d.Primary, msg: d.Message}
}
