// Package sema type-checks and symbol-resolves one compilation unit.
//
// Analysis runs in two passes over the input tree. The declaration pass walks
// every file top-down, opening scopes and registering symbols before their
// initializers are visited. The resolution pass then re-walks the tree in
// sweeps: lenient sweeps leave nodes that depend on not-yet-known types
// pending, and a final strict sweep reports whatever is still unresolved.
// Overload resolution, template reification and closure capture all happen
// during resolution. Every node is completed at most once, so repeating a
// sweep over finished code is a no-op.
package sema
