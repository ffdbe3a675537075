package diag

import (
	"slices"

	"loom/internal/source"
)

// Buffer is a Reporter that holds diagnostics of a speculative resolution.
// The owner decides afterwards whether they reach the parent reporter.
type Buffer struct {
	parent Reporter
	items  []Diagnostic
	closed bool
}

// NewBuffer opens a buffer in front of parent.
func NewBuffer(parent Reporter) *Buffer {
	return &Buffer{parent: parent}
}

func (b *Buffer) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if b.closed {
		if b.parent != nil {
			b.parent.Report(code, sev, primary, msg, notes)
		}
		return
	}
	b.items = append(b.items, Diagnostic{
		Severity: sev, Code: code, Message: msg,
		Primary: primary, Notes: notes,
	})
}

// HasErrors reports whether the speculative path produced an error.
func (b *Buffer) HasErrors() bool {
	return slices.ContainsFunc(b.items, func(d Diagnostic) bool { return d.Severity.Blocks() })
}

// Items returns the held diagnostics.
func (b *Buffer) Items() []Diagnostic {
	return b.items
}

// Commit forwards the held diagnostics to the parent and closes the buffer.
func (b *Buffer) Commit() {
	if b.closed {
		return
	}
	b.closed = true
	if b.parent == nil {
		return
	}
	for _, d := range b.items {
		b.parent.Report(d.Code, d.Severity, d.Primary, d.Message, d.Notes)
	}
	b.items = nil
}

// Discard drops the held diagnostics and closes the buffer.
func (b *Buffer) Discard() {
	b.closed = true
	b.items = nil
}
