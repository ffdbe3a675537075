package diag

import "loom/internal/source"

// DedupReporter forwards each distinct diagnostic once. Two reports are the
// same when code, severity, primary span and message match.
type DedupReporter struct {
	next       Reporter
	seen       map[identity]struct{}
	suppressed int
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[identity]struct{})}
}

func (r *DedupReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	d := Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
	key := d.identity()
	if _, dup := r.seen[key]; dup {
		r.suppressed++
		return
	}
	r.seen[key] = struct{}{}
	if r.next != nil {
		r.next.Report(code, sev, primary, msg, notes)
	}
}

// Suppressed returns how many repeats were swallowed.
func (r *DedupReporter) Suppressed() int { return r.suppressed }
