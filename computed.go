package ripple

import "github.com/pumped-fn/ripple/pkg/core"

type computedNode[T any] struct {
	nodeHeader

	value  T
	eval   func() T
	leaves []anyNode
	eq     Equality[T]
	format func(T) string
	stolen bool
}

// newComputed builds a node from e. With owned set the caller hands over the
// references it holds on the leaves; otherwise each leaf is retained.
func newComputed[T any](e Expr[T], owned bool, opts []NodeOption) Signal[T] {
	cfg := newNodeConfig(opts)
	g := sameGraph("compute", e.graph)
	n := &computedNode[T]{
		eval:   e.eval,
		leaves: uniqueLeaves(e.leaves),
		eq:     equalityFor[T](cfg),
		format: formatFor[T](cfg),
	}
	n.value = n.eval()

	initNode(g, n, core.KindComputed, cfg)
	for _, leaf := range n.leaves {
		if !owned {
			leaf.Base().Retain()
		}
		g.core.Attach(n, leaf)
	}

	return Signal[T]{n: n}
}

func (c *computedNode[T]) get() T {
	return c.value
}

func (c *computedNode[T]) Tick() {
	if c.stolen || c.Disposed() {
		return
	}
	v := c.eval()
	if c.eq(c.value, v) {
		return
	}
	c.value = v
	c.graph.core.OnNodePulse(c)
}

func (c *computedNode[T]) stealable() bool {
	return !c.stolen && !c.Disposed() &&
		c.Refs() == 1 && len(c.Successors()) == 0 && c.ObserverCount() == 0
}

// steal moves the expression out of c together with the references c holds
// on its leaves. c is dead afterwards.
func (c *computedNode[T]) steal() Expr[T] {
	core.Require(!c.stolen, "steal", "expression of node %d was already stolen", c.ID())
	for _, leaf := range c.leaves {
		c.graph.core.Detach(c, leaf)
	}

	e := Expr[T]{graph: c.graph, eval: c.eval, leaves: c.leaves}
	c.stolen = true
	c.eval, c.leaves = nil, nil
	c.MarkDisposed()
	c.graph.unregister(c)
	return e
}

func (c *computedNode[T]) predecessors() []anyNode {
	return c.leaves
}

func (c *computedNode[T]) describe() string {
	return c.format(c.value)
}

func (c *computedNode[T]) dispose() {
	if !c.stolen {
		for _, leaf := range c.leaves {
			c.graph.core.Detach(c, leaf)
			release(leaf)
		}
		c.leaves = nil
	}
	c.DestroyObservers()
	c.graph.unregister(c)
}
