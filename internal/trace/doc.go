// Package trace records begin/end spans for the compile driver, the analysis
// passes and individual functions. Tracing is off by default; the Nop tracer
// makes every call site free when disabled.
package trace
