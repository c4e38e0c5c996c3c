package ripple

import (
	"errors"

	"github.com/pumped-fn/ripple/pkg/core"
)

// PreconditionError is the panic value raised on misuse of the graph, such as
// writing a released source, mixing nodes of two graphs or unsubscribing an
// observer twice.
type PreconditionError = core.PreconditionError

// ErrGraphDisposed is returned by operations on a disposed graph
var ErrGraphDisposed = errors.New("ripple: graph disposed")

// AsPrecondition reports whether a recovered panic value is a precondition
// violation.
func AsPrecondition(recovered any) (*PreconditionError, bool) {
	switch v := recovered.(type) {
	case *PreconditionError:
		return v, true
	case error:
		var pe *PreconditionError
		if errors.As(v, &pe) {
			return pe, true
		}
	}
	return nil, false
}
