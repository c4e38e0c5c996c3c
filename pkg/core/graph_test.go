package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_SumFollowsWritesAndTransactions(t *testing.T) {
	g := NewGraph()
	x := newFakeSource(g, 2)
	y := newFakeSource(g, 3)
	s := newFakeComputed(g, "sum", nil, func() int { return x.value + y.value }, x, y)
	obs := newFakeObserver(g, s, func(int) bool { return true })

	require.Equal(t, 5, s.value)
	assert.Equal(t, 1, s.Level())

	x.set(4)
	assert.Equal(t, 7, s.value)
	assert.Equal(t, 1, s.ticks)

	g.DoTransaction(func() {
		x.set(10)
		y.set(20)
	})
	assert.Equal(t, 30, s.value)
	assert.Equal(t, 2, s.ticks)
	assert.Equal(t, []int{7, 30}, obs.calls, "observer never sees a half-applied transaction")

	totals := g.Totals()
	assert.Equal(t, uint64(2), totals.Pulses)
	assert.Equal(t, uint64(1), totals.Transactions)
}

func TestGraph_DiamondRecomputesJoinOnce(t *testing.T) {
	g := NewGraph()
	var trace []string

	a := newFakeSource(g, 1)
	b := newFakeComputed(g, "b", &trace, func() int { return a.value * 2 }, a)
	c := newFakeComputed(g, "c", &trace, func() int { return a.value + 10 }, a)
	d := newFakeComputed(g, "d", &trace, func() int { return b.value + c.value }, b, c)

	a.set(2)

	assert.Equal(t, []string{"b", "c", "d"}, trace)
	assert.Equal(t, 1, d.ticks)
	assert.Equal(t, 16, d.value)
	assert.NoError(t, edgesPointUp(a, b, c, d))
}

func TestGraph_EqualWriteSkipsPropagation(t *testing.T) {
	g := NewGraph()
	a := newFakeSource(g, 1)
	b := newFakeComputed(g, "b", nil, func() int { return a.value }, a)

	a.set(1)

	assert.Zero(t, b.ticks)
	assert.Zero(t, g.Totals().Pulses)
	assert.Equal(t, PhaseIdle, g.Phase())
}

func TestGraph_NestedTransactionsCoalesce(t *testing.T) {
	g := NewGraph()
	x := newFakeSource(g, 2)
	y := newFakeSource(g, 3)
	s := newFakeComputed(g, "sum", nil, func() int { return x.value + y.value }, x, y)

	g.DoTransaction(func() {
		assert.Equal(t, PhaseCollecting, g.Phase())
		x.set(10)

		g.DoTransaction(func() {
			assert.Equal(t, 2, g.Depth())
			y.set(20)
		})

		assert.Equal(t, 1, g.Depth())
		assert.Equal(t, 5, s.value, "inner commit must not propagate")
	})

	assert.Equal(t, 30, s.value)
	assert.Equal(t, 1, s.ticks)
	assert.Zero(t, g.Depth())
	assert.Equal(t, PhaseIdle, g.Phase())
}

func TestGraph_DynamicAttachSwitchesInner(t *testing.T) {
	g := NewGraph()
	outer := newFakeSource(g, 0)
	innerA := newFakeSource(g, 1)
	innerB := newFakeSource(g, 2)
	f := newFakeFlatten(g, outer, innerA, innerB)
	h := newFakeComputed(g, "h", nil, func() int { return f.value * 10 }, f)

	outer.set(1)

	assert.Equal(t, 2, f.value)
	assert.Equal(t, 20, h.value)
	assert.Equal(t, 2, f.ticks, "switch pulse re-queues the flatten node once")
	assert.NotContains(t, innerA.Successors(), Node(f))
	assert.Contains(t, innerB.Successors(), Node(f))

	innerA.set(5)
	assert.Equal(t, 2, f.ticks)
	assert.Equal(t, 20, h.value)

	innerB.set(7)
	assert.Equal(t, 70, h.value)
	assert.NoError(t, edgesPointUp(outer, innerA, innerB, f, h))
}

func TestGraph_DynamicAttachRaisesQueuedDescendants(t *testing.T) {
	g := NewGraph()
	outer := newFakeSource(g, 0)
	shallow := newFakeSource(g, 1)
	root := newFakeSource(g, 100)
	c1 := newFakeComputed(g, "c1", nil, func() int { return root.value }, root)
	c2 := newFakeComputed(g, "c2", nil, func() int { return c1.value }, c1)

	f := newFakeFlatten(g, outer, shallow, c2)
	mid := newFakeComputed(g, "mid", nil, func() int { return f.value }, f)
	k := newFakeSource(g, 0)

	var joins []int
	join := newFakeComputed(g, "join", nil, func() int {
		v := mid.value + k.value
		joins = append(joins, v)
		return v
	}, mid, k)
	joins = nil

	g.DoTransaction(func() {
		outer.set(1)
		k.set(5)
	})

	assert.Equal(t, 105, join.value)
	assert.Equal(t, []int{105}, joins, "join waits for the rewired branch")
	assert.Equal(t, 1, join.ticks)
	assert.NoError(t, edgesPointUp(outer, shallow, root, c1, c2, f, mid, k, join))
}

func TestGraph_LevelsSettleWhenSuccessorIsNotScheduled(t *testing.T) {
	g := NewGraph()
	root := newFakeSource(g, 0)
	chain := []Node{root}
	var last valued = root
	for i := 0; i < 4; i++ {
		prev := last
		c := newFakeComputed(g, "chain", nil, func() int { return prev.get() }, prev)
		chain = append(chain, c)
		last = c
	}

	outer := newFakeSource(g, 0)
	shallow := newFakeSource(g, 0)
	f := newFakeFlatten(g, outer, shallow, last)
	tail := newFakeComputed(g, "tail", nil, func() int { return f.value }, f)
	require.Equal(t, 2, tail.Level())

	outer.set(1)

	assert.Equal(t, 5, f.Level())
	assert.Equal(t, 6, tail.Level())
	assert.Zero(t, tail.ticks, "equal inner value does not schedule the tail")
	assert.NoError(t, edgesPointUp(append(chain, outer, shallow, f, tail)...))
}

func TestGraph_ObserverStopIsDeferred(t *testing.T) {
	g := NewGraph()
	x := newFakeSource(g, 0)

	var seenCount []int
	stop := newFakeObserver(g, x, func(int) bool { return false })
	keep := newFakeObserver(g, x, func(int) bool {
		seenCount = append(seenCount, x.ObserverCount())
		return true
	})

	x.set(1)

	assert.Equal(t, []int{2}, seenCount, "sibling still registered while the pulse runs")
	assert.Equal(t, 1, x.ObserverCount())
	assert.Nil(t, stop.subject)
	assert.Equal(t, []Node{keep}, x.Successors())

	x.set(2)
	assert.Equal(t, []int{1}, stop.calls)
	assert.Equal(t, []int{1, 2}, keep.calls)
}

func TestGraph_WriteDuringPulseRunsFollowUpPulse(t *testing.T) {
	g := NewGraph()
	x := newFakeSource(g, 0)
	y := newFakeSource(g, 0)
	s := newFakeComputed(g, "sum", nil, func() int { return x.value + y.value }, x, y)
	echo := newFakeObserver(g, x, func(v int) bool {
		y.set(v * 10)
		return true
	})

	x.set(1)

	assert.Equal(t, 11, s.value)
	assert.Equal(t, 2, s.ticks)
	assert.Equal(t, []int{1}, echo.calls)
	assert.Equal(t, uint64(2), g.Totals().Pulses)
	assert.Equal(t, PhaseIdle, g.Phase())
}

func TestGraph_PanicInComputationRestoresIdle(t *testing.T) {
	g := NewGraph()
	x := newFakeSource(g, 0)
	s := newFakeComputed(g, "s", nil, func() int {
		if x.value == 13 {
			panic("boom")
		}
		return x.value
	}, x)

	require.PanicsWithValue(t, "boom", func() { x.set(13) })

	assert.Equal(t, PhaseIdle, g.Phase())
	assert.Zero(t, g.Depth())
	assert.Equal(t, Node(s), g.Ticking())
	assert.False(t, s.Queued())

	x.set(1)
	assert.Equal(t, 1, s.value)
}

func TestGraph_PanicInTransactionDiscardsStagedWrites(t *testing.T) {
	g := NewGraph()
	x := newFakeSource(g, 0)
	s := newFakeComputed(g, "s", nil, func() int { return x.value }, x)

	require.PanicsWithValue(t, "fail", func() {
		g.DoTransaction(func() {
			x.set(5)
			panic("fail")
		})
	})

	assert.Zero(t, x.value)
	assert.False(t, x.hasStaged)
	assert.Zero(t, g.Depth())
	assert.Equal(t, PhaseIdle, g.Phase())

	x.set(2)
	assert.Equal(t, 2, s.value)
}

func TestGraph_RecoveredInnerPanicKeepsOuterTransaction(t *testing.T) {
	g := NewGraph()
	x := newFakeSource(g, 0)
	y := newFakeSource(g, 0)
	s := newFakeComputed(g, "sum", nil, func() int { return x.value + y.value }, x, y)

	g.DoTransaction(func() {
		x.set(1)
		func() {
			defer func() { _ = recover() }()
			g.DoTransaction(func() {
				y.set(2)
				panic("inner")
			})
		}()
	})

	assert.Equal(t, 3, s.value)
	assert.Equal(t, 1, s.ticks)
}

func TestGraph_DeferRunsAfterPulse(t *testing.T) {
	g := NewGraph()
	x := newFakeSource(g, 0)

	ran := false
	var phase Phase
	newFakeObserver(g, x, func(int) bool {
		g.Defer(func() {
			ran = true
			phase = g.Phase()
		})
		assert.False(t, ran)
		return true
	})

	x.set(1)
	assert.True(t, ran)
	assert.Equal(t, PhaseDetaching, phase)

	immediate := false
	g.Defer(func() { immediate = true })
	assert.True(t, immediate)
}

func TestGraph_HooksReceivePulseEvents(t *testing.T) {
	g := NewGraph()
	hooks := &recordingHooks{}
	g.SetHooks(hooks)

	x := newFakeSource(g, 2)
	y := newFakeSource(g, 3)
	newFakeComputed(g, "sum", nil, func() int { return x.value + y.value }, x, y)

	x.set(4)
	x.set(4)

	assert.Equal(t, []uint64{1}, hooks.started)
	assert.Equal(t, []string{"3:true"}, hooks.recomputed)
	require.Len(t, hooks.finished, 1)

	stats := hooks.finished[0]
	assert.Equal(t, uint64(1), stats.Pulse)
	assert.Equal(t, 1, stats.Inputs)
	assert.Equal(t, 1, stats.Batches)
	assert.Equal(t, 1, stats.Recomputed)
	assert.Equal(t, 1, stats.Changed)
	assert.Equal(t, 1, stats.MaxLevel)
}

func TestGraph_Preconditions(t *testing.T) {
	tests := []struct {
		name string
		op   string
		run  func(g *Graph, x, y *fakeSource)
	}{
		{
			name: "tick source",
			op:   "tick",
			run:  func(g *Graph, x, y *fakeSource) { x.Tick() },
		},
		{
			name: "cross graph attach",
			op:   "attach",
			run: func(g *Graph, x, y *fakeSource) {
				other := newFakeSource(NewGraph(), 0)
				g.Attach(x, other)
			},
		},
		{
			name: "detach non successor",
			op:   "detach",
			run:  func(g *Graph, x, y *fakeSource) { g.Detach(x, y) },
		},
		{
			name: "release below zero",
			op:   "release",
			run: func(g *Graph, x, y *fakeSource) {
				x.Release()
				x.Release()
			},
		},
		{
			name: "retain released",
			op:   "retain",
			run: func(g *Graph, x, y *fakeSource) {
				x.Release()
				x.Retain()
			},
		},
		{
			name: "write released",
			op:   "input",
			run: func(g *Graph, x, y *fakeSource) {
				x.Release()
				x.set(1)
			},
		},
		{
			name: "init twice",
			op:   "init",
			run:  func(g *Graph, x, y *fakeSource) { g.Init(x, KindSource) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGraph()
			x, y := newFakeSource(g, 0), newFakeSource(g, 0)

			err := requirePrecondition(func() { tt.run(g, x, y) })
			require.NotNil(t, err)
			assert.Equal(t, tt.op, err.Op)
			assert.NotEmpty(t, err.StackTrace)
			assert.Contains(t, err.Error(), "precondition violated in "+tt.op)
		})
	}
}

func TestGraph_ReleaseCountsReferences(t *testing.T) {
	g := NewGraph()
	x := newFakeSource(g, 0)

	x.Retain()
	assert.Equal(t, 2, x.Refs())
	assert.False(t, x.Release())
	assert.False(t, x.Disposed())
	assert.True(t, x.Release())
	assert.True(t, x.Disposed())
}
