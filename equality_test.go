package ripple

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultEquality(t *testing.T) {
	assert.True(t, DefaultEquality[int]()(1, 1))
	assert.False(t, DefaultEquality[string]()("a", "b"))
	assert.True(t, DefaultEquality[[]int]()([]int{1, 2}, []int{1, 2}))
	assert.False(t, DefaultEquality[map[string]int]()(map[string]int{"a": 1}, map[string]int{"a": 2}))
	assert.True(t, DefaultEquality[any]()([]int{1}, []int{1}), "interfaces holding slices do not panic")
	assert.False(t, NeverEqual[int]()(1, 1))
}

func TestDefaultEquality_SignalsCompareByNode(t *testing.T) {
	g := NewGraph()
	a := NewSource(g, 1)
	b := NewSource(g, 1)

	eq := DefaultEquality[Signal[int]]()
	assert.True(t, eq(a.Signal, a.Retain().Signal))
	assert.False(t, eq(a.Signal, b.Signal), "equal values in different nodes are different signals")
	assert.True(t, a.Equals(a.Signal))
}
