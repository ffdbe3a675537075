package sema

import (
	"loom/internal/diag"
	"loom/internal/source"
)

// trying runs a speculative resolution. Its diagnostics are held in a buffer
// and reach the reporter only when fn succeeds without errors; otherwise they
// are dropped. Nesting is bounded by Options.MaxTryDepth.
func (a *Analyzer) trying(fn func() bool) bool {
	if a.tryDepth >= a.opts.MaxTryDepth {
		a.errorf(diag.SemaTryDepthExceeded, source.Span{},
			"speculative resolution nested deeper than %d levels", a.opts.MaxTryDepth).Emit()
		return false
	}
	saved := a.reporter
	buf := diag.NewBuffer(saved)
	a.reporter = buf
	a.tryDepth++
	defer func() {
		a.tryDepth--
		a.reporter = saved
	}()

	if fn() && !buf.HasErrors() {
		buf.Commit()
		return true
	}
	buf.Discard()
	return false
}
