package ripple

import "github.com/pumped-fn/ripple/pkg/core"

type flattenNode[T any] struct {
	nodeHeader

	outer  valueNode[Signal[T]]
	inner  valueNode[T]
	value  T
	eq     Equality[T]
	format func(T) string
}

// Flatten collapses a signal of signals into a signal that always carries the
// value of whichever signal outer currently holds. When outer switches to
// another signal the node rewires itself during the same pulse.
//
// The flatten node keeps outer and the currently selected signal alive.
func Flatten[T any](outer Signal[Signal[T]], opts ...NodeOption) Signal[T] {
	cfg := newNodeConfig(opts)
	o := outer.node("flatten")
	inner := o.get().node("flatten")
	g := sameGraph("flatten", o.header().graph, inner.header().graph)

	n := &flattenNode[T]{
		outer:  o,
		inner:  inner,
		value:  inner.get(),
		eq:     equalityFor[T](cfg),
		format: formatFor[T](cfg),
	}
	initNode(g, n, core.KindFlatten, cfg)

	o.Base().Retain()
	inner.Base().Retain()
	g.core.Attach(n, o)
	g.core.Attach(n, inner)

	return Signal[T]{n: n}
}

func (f *flattenNode[T]) get() T {
	return f.value
}

func (f *flattenNode[T]) Tick() {
	if f.Disposed() {
		return
	}

	target := f.outer.get().node("flatten")
	if target != f.inner {
		old := f.inner
		target.Base().Retain()
		f.graph.core.DynamicDetach(f, old)
		f.graph.core.DynamicAttach(f, target)
		f.inner = target
		release(old)
		return
	}

	v := f.inner.get()
	if f.eq(f.value, v) {
		return
	}
	f.value = v
	f.graph.core.OnNodePulse(f)
}

func (f *flattenNode[T]) predecessors() []anyNode {
	return []anyNode{f.outer, f.inner}
}

func (f *flattenNode[T]) describe() string {
	return f.format(f.value)
}

func (f *flattenNode[T]) dispose() {
	f.graph.core.Detach(f, f.outer)
	f.graph.core.Detach(f, f.inner)
	release(f.outer)
	release(f.inner)
	f.DestroyObservers()
	f.graph.unregister(f)
}
