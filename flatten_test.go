package ripple

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten_FollowsSelectedSignal(t *testing.T) {
	g := NewGraph()
	a := NewSource(g, "a1")
	b := NewSource(g, "b1")
	selected := NewSource(g, a.Signal)
	current := Flatten(selected.Signal)

	var seen []string
	Observe(current, func(v string) { seen = append(seen, v) })

	require.Equal(t, "a1", current.Value())

	selected.Set(b.Signal)
	assert.Equal(t, "b1", current.Value())
	assert.Empty(t, a.Info().Successors(), "old inner is detached")
	assert.Len(t, b.Info().Successors(), 1)

	a.Set("a2")
	assert.Equal(t, "b1", current.Value())

	b.Set("b2")
	assert.Equal(t, "b2", current.Value())
	assert.Equal(t, []string{"b1", "b2"}, seen)
}

func TestFlatten_SwitchToDeeperSignalRaisesLevels(t *testing.T) {
	g := NewGraph()
	shallow := NewSource(g, 0)

	root := NewSource(g, 0)
	deep := Derive1(root, func(v int) int { return v })
	for i := 0; i < 3; i++ {
		deep = Fuse(deep.Retain(), func(v int) int { return v })
	}
	require.Equal(t, 4, deep.Info().Level())

	selected := NewSource(g, shallow.Signal)
	current := Flatten(selected.Signal)
	tail := Derive1(current, func(v int) int { return v * 2 })
	require.Equal(t, 2, tail.Info().Level())

	selected.Set(deep)

	assert.Equal(t, 5, current.Info().Level())
	assert.Equal(t, 6, tail.Info().Level(), "levels settle even when the value did not change")

	for _, n := range g.Nodes() {
		for _, s := range n.Successors() {
			assert.Greater(t, s.Level(), n.Level(), "%s -> %s", n.Name(), s.Name())
		}
	}

	root.Set(21)
	assert.Equal(t, 42, tail.Value())
}

func TestFlatten_SwitchInTransactionHidesIntermediateState(t *testing.T) {
	g := NewGraph()
	a := NewSource(g, 1)
	b := NewSource(g, 100)
	deep := Derive1(Derive1(b, func(v int) int { return v }), func(v int) int { return v })

	selected := NewSource(g, a.Signal)
	current := Flatten(selected.Signal)
	mirror := Derive1(current, func(v int) int { return v })
	k := NewSource(g, 0)

	var recomputed int
	total := Derive2(mirror, k, func(m, k int) int {
		recomputed++
		return m + k
	})
	var seen []int
	Observe(total, func(v int) { seen = append(seen, v) })
	recomputed = 0

	g.Transaction(func() {
		selected.Set(deep)
		k.Set(5)
	})

	assert.Equal(t, 105, total.Value())
	assert.Equal(t, []int{105}, seen, "the old inner value combined with the new k is never published")
	assert.Equal(t, 1, recomputed)

	for _, n := range g.Nodes() {
		for _, s := range n.Successors() {
			assert.Greater(t, s.Level(), n.Level(), "%s -> %s", n.Name(), s.Name())
		}
	}
}

func TestFlatten_OverComputedSelector(t *testing.T) {
	g := NewGraph()
	useMetric := NewSource(g, true)
	metric := NewSource(g, 100.0)
	imperial := NewSource(g, 328.0)

	unit := Derive1(useMetric, func(m bool) Signal[float64] {
		if m {
			return metric.Signal
		}
		return imperial.Signal
	})
	height := Flatten(unit)

	var seen []float64
	Observe(height, func(v float64) { seen = append(seen, v) })

	g.Transaction(func() {
		useMetric.Set(false)
		metric.Set(101)
	})
	assert.Equal(t, 328.0, height.Value())

	imperial.Set(330)
	assert.Equal(t, []float64{328, 330}, seen)
}

func TestFlatten_KeepsSelectedSignalsAlive(t *testing.T) {
	g := NewGraph()
	a := NewSource(g, 1)
	b := NewSource(g, 2)
	selected := NewSource(g, a.Signal)
	current := Flatten(selected.Signal)

	a.Release()
	assert.True(t, a.Valid(), "flatten holds the selected signal")
	assert.Equal(t, 1, current.Value())

	selected.Set(b.Signal)
	assert.False(t, a.Valid(), "switching drops the reference on the old signal")
	assert.Equal(t, 2, current.Value())

	selected.Release()
	assert.True(t, selected.Valid())

	current.Release()
	assert.False(t, selected.Valid())
	assert.True(t, b.Valid(), "b still has its own handle")
	assert.Len(t, g.Nodes(), 1)
}

func TestFlatten_EmptyInnerPanics(t *testing.T) {
	g := NewGraph()
	selected := NewSource(g, Signal[int]{})

	requirePrecondition(t, "flatten", func() { Flatten(selected.Signal) })
}
