package ripple

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
)

// Equality decides whether a recomputed value differs from the cached one.
// Returning true suppresses propagation to dependents.
type Equality[T any] func(a, b T) bool

// DefaultEquality compares comparable types with == and everything else with
// reflect.DeepEqual. Signal values are comparable and therefore compare by the
// node they refer to.
func DefaultEquality[T any]() Equality[T] {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Interface && t.Comparable() {
		return func(a, b T) bool {
			return any(a) == any(b)
		}
	}
	return func(a, b T) bool {
		return reflect.DeepEqual(a, b)
	}
}

// CmpEqual builds an equality from go-cmp options, useful for structs with
// unexported fields or float tolerances.
func CmpEqual[T any](opts ...cmp.Option) Equality[T] {
	return func(a, b T) bool {
		return cmp.Equal(a, b, opts...)
	}
}

// NeverEqual treats every recomputation as a change
func NeverEqual[T any]() Equality[T] {
	return func(T, T) bool {
		return false
	}
}
