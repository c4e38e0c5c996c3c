package ripple

import "github.com/pumped-fn/ripple/pkg/core"

// Signal is a handle to a node holding a value of type T.
//
// Handles are small comparable values; two handles are equal when they refer
// to the same node. A handle returned by a constructor owns one reference to
// its node. Call Release when the handle is no longer needed so the node can
// detach from its dependencies; copy a handle with Retain when it needs an
// independent lifetime.
type Signal[T any] struct {
	n valueNode[T]
}

func (s Signal[T]) node(op string) valueNode[T] {
	core.Require(s.n != nil, op, "signal is empty")
	core.Require(!s.n.Base().Disposed(), op, "node %d was already released", s.n.Base().ID())
	return s.n
}

// Value returns the node's current value
func (s Signal[T]) Value() T {
	return s.node("value").get()
}

// Valid reports whether the handle refers to a live node
func (s Signal[T]) Valid() bool {
	return s.n != nil && !s.n.Base().Disposed()
}

// Equals reports whether both handles refer to the same node
func (s Signal[T]) Equals(other Signal[T]) bool {
	return s.n == other.n
}

// Graph returns the graph the node belongs to
func (s Signal[T]) Graph() *Graph {
	if s.n == nil {
		return nil
	}
	return s.n.header().graph
}

// Info returns a read-only view of the node
func (s Signal[T]) Info() NodeInfo {
	return infoOf(s.node("info"))
}

// Retain adds a reference and returns a handle owning it
func (s Signal[T]) Retain() Signal[T] {
	n := s.node("retain")
	n.Base().Retain()
	n.header().handles++
	return s
}

// Release drops the reference owned by this handle. Releasing a node more
// often than it was created and retained is a precondition violation.
func (s Signal[T]) Release() {
	core.Require(s.n != nil, "release", "signal is empty")
	if s.n.header().graph.disposed {
		return
	}
	releaseHandle(s.n)
}

// Subject is implemented by Signal and Source
type Subject[T any] interface {
	signal() Signal[T]
}

func (s Signal[T]) signal() Signal[T] {
	return s
}

func (s Signal[T]) expr() Expr[T] {
	n := s.node("expr")
	return Expr[T]{
		graph:  n.header().graph,
		eval:   n.get,
		leaves: []anyNode{n},
	}
}
