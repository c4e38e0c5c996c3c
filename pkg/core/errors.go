package core

import (
	"fmt"
	"runtime/debug"
)

// PreconditionError is the panic value raised when the graph is used in a way
// it cannot recover from: ticking a source, mixing graphs, stealing an
// expression twice, detaching an observer twice, using a released node.
type PreconditionError struct {
	Op         string
	Message    string
	StackTrace []byte
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("ripple: precondition violated in %s: %s", e.Op, e.Message)
}

// Require panics with a PreconditionError when cond is false.
func Require(cond bool, op string, format string, args ...any) {
	if cond {
		return
	}
	panic(&PreconditionError{
		Op:         op,
		Message:    fmt.Sprintf(format, args...),
		StackTrace: debug.Stack(),
	})
}
