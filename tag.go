package ripple

// Tag is a type-safe key for metadata
type Tag[T any] struct {
	key string
}

// NameTag holds the display name given with WithName
var NameTag = NewTag[string]("ripple.name")

// NewTag creates a new tag with the given key
func NewTag[T any](key string) Tag[T] {
	return Tag[T]{key: key}
}

// Key returns the tag's key (for debugging)
func (t Tag[T]) Key() string {
	return t.key
}

type tagged interface {
	GetTag(key any) (any, bool)
}

// Get retrieves the tag value from a node or a graph
func (t Tag[T]) Get(src tagged) (T, bool) {
	val, ok := src.GetTag(t)
	if !ok {
		var zero T
		return zero, false
	}
	return val.(T), true
}

// MustGet retrieves the tag value or panics if not found
func (t Tag[T]) MustGet(src tagged) T {
	val, ok := t.Get(src)
	if !ok {
		panic("tag " + t.key + " not found")
	}
	return val
}

// GetOrDefault retrieves the tag value or returns a default
func (t Tag[T]) GetOrDefault(src tagged, defaultVal T) T {
	if val, ok := t.Get(src); ok {
		return val
	}
	return defaultVal
}

// SetOnGraph stores the tag value on a graph
func (t Tag[T]) SetOnGraph(g *Graph, val T) {
	g.SetTag(t, val)
}
