package ripple

import "github.com/pumped-fn/ripple/pkg/core"

// Source is a Signal that accepts writes from outside the graph
type Source[T any] struct {
	Signal[T]
}

type sourceNode[T any] struct {
	nodeHeader

	value     T
	staged    T
	isReplace bool
	isMutate  bool
	eq        Equality[T]
	format    func(T) string
}

// NewSource creates an input node holding initial
func NewSource[T any](g *Graph, initial T, opts ...NodeOption) Source[T] {
	cfg := newNodeConfig(opts)
	n := &sourceNode[T]{value: initial, eq: equalityFor[T](cfg), format: formatFor[T](cfg)}
	initNode(g, n, core.KindSource, cfg)
	return Source[T]{Signal[T]{n: n}}
}

// Set replaces the value. Outside a transaction the change is propagated
// before Set returns; inside one it is applied when the transaction commits.
// Setting a value equal to the current one propagates nothing.
func (s Source[T]) Set(v T) {
	n := s.source("set")
	n.graph.write(OpWrite, n, func() {
		n.graph.core.Input(n, func() {
			n.staged = v
			n.isReplace = true
		})
	})
}

// Modify edits the value in place. A modification always counts as a change.
// Following a Set in the same transaction, fn edits the value that was set.
func (s Source[T]) Modify(fn func(*T)) {
	n := s.source("modify")
	n.graph.write(OpModify, n, func() {
		n.graph.core.Input(n, func() {
			if !n.isReplace && !n.isMutate {
				n.staged = n.value
			}
			if !n.isReplace {
				n.isMutate = true
			}
			fn(&n.staged)
		})
	})
}

// Retain adds a reference and returns a handle owning it
func (s Source[T]) Retain() Source[T] {
	return Source[T]{s.Signal.Retain()}
}

func (s Source[T]) source(op string) *sourceNode[T] {
	return s.node(op).(*sourceNode[T])
}

func (n *sourceNode[T]) get() T {
	return n.value
}

func (n *sourceNode[T]) Tick() {
	core.Require(false, "tick", "source %d is an input and cannot be recomputed", n.ID())
}

func (n *sourceNode[T]) ApplyInput() bool {
	replace, mutate := n.isReplace, n.isMutate
	staged := n.staged
	n.DiscardInput()

	switch {
	case replace:
		if n.eq(n.value, staged) {
			return false
		}
	case mutate:
	default:
		return false
	}

	n.value = staged
	n.graph.core.OnInputChange(n)
	return true
}

func (n *sourceNode[T]) DiscardInput() {
	var zero T
	n.staged = zero
	n.isReplace = false
	n.isMutate = false
}

func (n *sourceNode[T]) predecessors() []anyNode {
	return nil
}

func (n *sourceNode[T]) describe() string {
	return n.format(n.value)
}

func (n *sourceNode[T]) dispose() {
	n.DestroyObservers()
	n.graph.unregister(n)
}
