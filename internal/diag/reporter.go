package diag

import (
	"fmt"

	"loom/internal/source"
)

// Reporter receives diagnostics from the analysis passes.
type Reporter interface {
	Report(code Code, sev Severity, primary source.Span, msg string, notes []Note)
}

// Draft is a diagnostic under construction. Nothing reaches the reporter
// until Emit.
type Draft struct {
	to   Reporter
	d    Diagnostic
	sent bool
}

func NewDraft(r Reporter, sev Severity, code Code, primary source.Span, msg string) *Draft {
	return &Draft{to: r, d: New(sev, code, primary, msg)}
}

// Errorf drafts an error with a formatted message.
func Errorf(r Reporter, code Code, primary source.Span, format string, args ...any) *Draft {
	return NewDraft(r, SevError, code, primary, fmt.Sprintf(format, args...))
}

func (b *Draft) WithNote(sp source.Span, msg string) *Draft {
	if b != nil {
		b.d = b.d.WithNote(sp, msg)
	}
	return b
}

// Emit reports the draft. Later calls do nothing.
func (b *Draft) Emit() {
	if b == nil || b.sent {
		return
	}
	b.sent = true
	if b.to != nil {
		b.to.Report(b.d.Code, b.d.Severity, b.d.Primary, b.d.Message, b.d.Notes)
	}
}

// BagReporter stores reports in Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if r.Bag != nil {
		r.Bag.Add(Diagnostic{Severity: sev, Code: code, Message: msg, Primary: primary, Notes: notes})
	}
}

// NopReporter drops everything.
type NopReporter struct{}

func (NopReporter) Report(Code, Severity, source.Span, string, []Note) {}
