package core

// NodeBase carries the scheduling state every node needs. Embed it and
// initialize it with Graph.Init before the node takes part in the graph.
type NodeBase struct {
	graph *Graph
	kind  Kind
	id    uint64

	level    int
	newLevel int
	queued   bool

	// Successors are non-owning back-links in insertion order.
	successors []Node

	refs     int
	disposed bool
}

// Base returns the node's scheduling state
func (b *NodeBase) Base() *NodeBase {
	return b
}

// Graph returns the graph the node belongs to
func (b *NodeBase) Graph() *Graph {
	return b.graph
}

// Kind returns the node kind
func (b *NodeBase) Kind() Kind {
	return b.kind
}

// ID returns the node's graph-unique identifier
func (b *NodeBase) ID() uint64 {
	return b.id
}

// Level returns the node's position in topological order
func (b *NodeBase) Level() int {
	return b.level
}

// Queued reports whether the node is scheduled in the current pulse
func (b *NodeBase) Queued() bool {
	return b.queued
}

// Successors returns a copy of the node's successor list
func (b *NodeBase) Successors() []Node {
	result := make([]Node, len(b.successors))
	copy(result, b.successors)
	return result
}

// Refs returns the number of owning references
func (b *NodeBase) Refs() int {
	return b.refs
}

// Disposed reports whether the last owning reference was released
func (b *NodeBase) Disposed() bool {
	return b.disposed
}

// Retain adds an owning reference.
func (b *NodeBase) Retain() {
	Require(!b.disposed, "retain", "node %d was already released", b.id)
	b.refs++
}

// Release drops an owning reference and reports whether it was the last one.
// The caller is responsible for tearing the node down when it returns true.
func (b *NodeBase) Release() bool {
	Require(b.refs > 0, "release", "node %d has no references left", b.id)
	b.refs--
	if b.refs == 0 {
		b.disposed = true
		return true
	}
	return false
}

// MarkDisposed ends the node's life without going through the reference count.
func (b *NodeBase) MarkDisposed() {
	b.refs = 0
	b.disposed = true
}

func appendUnique[T comparable](slice []T, item T) []T {
	for _, existing := range slice {
		if existing == item {
			return slice
		}
	}
	return append(slice, item)
}

func removeElement[T comparable](slice []T, item T) ([]T, bool) {
	for i, existing := range slice {
		if existing == item {
			return append(slice[:i], slice[i+1:]...), true
		}
	}
	return slice, false
}
