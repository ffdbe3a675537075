// Package diag defines the diagnostic model shared by the analysis and
// emission phases.
//
// Phases report through a Reporter rather than writing into storage directly.
// BagReporter collects into a Bag; DedupReporter filters repeats produced by
// repeated resolution sweeps; Buffer holds the diagnostics of a speculative
// sub-resolution until the caller either commits them to the parent reporter
// or discards them.
//
// Diagnostics never abort compilation. The producer attaches the finding to
// the offending span and keeps going with a placeholder type so that
// unrelated problems are still found in one run.
package diag
