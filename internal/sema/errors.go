package sema

import (
	"fmt"

	"loom/internal/ast"
)

// InternalError is raised (as a panic value) when an analyzer invariant is
// broken. It is never a user diagnostic; Analyze converts it into an error.
type InternalError struct {
	Node ast.NodeID
	Msg  string
}

func (e *InternalError) Error() string {
	if e.Node.IsValid() {
		return fmt.Sprintf("sema: internal error at node %d: %s", e.Node, e.Msg)
	}
	return "sema: internal error: " + e.Msg
}

func internalf(node ast.NodeID, format string, args ...any) {
	panic(&InternalError{Node: node, Msg: fmt.Sprintf(format, args...)})
}
