package core

import "fmt"

// Minimal node kinds used to drive the engine from tests.

type fakeSource struct {
	NodeBase
	Observable

	value     int
	staged    int
	hasStaged bool
}

func newFakeSource(g *Graph, v int) *fakeSource {
	s := &fakeSource{value: v}
	g.Init(s, KindSource)
	return s
}

func (s *fakeSource) Tick() {
	Require(false, "tick", "source %d cannot be ticked", s.id)
}

func (s *fakeSource) ApplyInput() bool {
	if !s.hasStaged {
		return false
	}
	s.hasStaged = false
	if s.staged == s.value {
		return false
	}
	s.value = s.staged
	s.graph.OnInputChange(s)
	return true
}

func (s *fakeSource) DiscardInput() {
	s.hasStaged = false
}

func (s *fakeSource) set(v int) {
	s.graph.Input(s, func() {
		s.staged = v
		s.hasStaged = true
	})
}

type fakeComputed struct {
	NodeBase
	Observable

	name  string
	value int
	fn    func() int
	ticks int
	trace *[]string
}

func newFakeComputed(g *Graph, name string, trace *[]string, fn func() int, deps ...Node) *fakeComputed {
	c := &fakeComputed{name: name, fn: fn, trace: trace}
	g.Init(c, KindComputed)
	c.value = fn()
	for _, d := range deps {
		g.Attach(c, d)
	}
	return c
}

func (c *fakeComputed) Tick() {
	c.ticks++
	if c.trace != nil {
		*c.trace = append(*c.trace, c.name)
	}
	if v := c.fn(); v != c.value {
		c.value = v
		c.graph.OnNodePulse(c)
	}
}

// fakeFlatten follows inners[outer.value].
type fakeFlatten struct {
	NodeBase

	outer   *fakeSource
	inners  []valued
	current valued
	value   int
	ticks   int
}

type valued interface {
	Node
	get() int
}

func (s *fakeSource) get() int   { return s.value }
func (c *fakeComputed) get() int { return c.value }

func newFakeFlatten(g *Graph, outer *fakeSource, inners ...valued) *fakeFlatten {
	f := &fakeFlatten{outer: outer, inners: inners}
	g.Init(f, KindFlatten)
	f.current = inners[outer.value]
	f.value = f.current.get()
	g.Attach(f, outer)
	g.Attach(f, f.current)
	return f
}

func (f *fakeFlatten) Tick() {
	f.ticks++
	target := f.inners[f.outer.value]
	if target != f.current {
		f.graph.DynamicDetach(f, f.current)
		f.graph.DynamicAttach(f, target)
		f.current = target
		return
	}
	if v := target.get(); v != f.value {
		f.value = v
		f.graph.OnNodePulse(f)
	}
}

type observed interface {
	valued
	RegisterObserver(o Observer)
	UnregisterObserver(o Observer)
}

type fakeObserver struct {
	NodeBase

	subject observed
	fn      func(int) bool
	calls   []int
}

func newFakeObserver(g *Graph, subject observed, fn func(int) bool) *fakeObserver {
	o := &fakeObserver{subject: subject, fn: fn}
	g.Init(o, KindObserver)
	g.Attach(o, subject)
	subject.RegisterObserver(o)
	return o
}

func (o *fakeObserver) Tick() {
	if o.subject == nil {
		return
	}
	v := o.subject.get()
	o.calls = append(o.calls, v)
	if !o.fn(v) {
		o.graph.QueueObserverForDetach(o)
	}
}

func (o *fakeObserver) UnregisterSelf() {
	if o.subject != nil {
		o.subject.UnregisterObserver(o)
	}
}

func (o *fakeObserver) DetachObserver() {
	o.graph.Detach(o, o.subject)
	o.subject = nil
}

type recordingHooks struct {
	started    []uint64
	recomputed []string
	finished   []PulseStats
}

func (h *recordingHooks) PulseStarted(pulse uint64) {
	h.started = append(h.started, pulse)
}

func (h *recordingHooks) NodeRecomputed(n Node, changed bool) {
	h.recomputed = append(h.recomputed, fmt.Sprintf("%d:%t", n.Base().ID(), changed))
}

func (h *recordingHooks) PulseFinished(stats PulseStats) {
	h.finished = append(h.finished, stats)
}

// edgesPointUp reports the first edge whose successor does not sit above its
// predecessor.
func edgesPointUp(nodes ...Node) error {
	for _, n := range nodes {
		for _, succ := range n.Base().Successors() {
			if succ.Base().Level() <= n.Base().Level() {
				return fmt.Errorf("edge %d(level %d) -> %d(level %d) is not ordered",
					n.Base().ID(), n.Base().Level(), succ.Base().ID(), succ.Base().Level())
			}
		}
	}
	return nil
}

func requirePrecondition(fn func()) (err *PreconditionError) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(*PreconditionError)
		}
	}()
	fn()
	return nil
}
