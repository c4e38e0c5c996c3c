package ripple

import (
	"fmt"

	"github.com/pumped-fn/ripple/pkg/core"
)

// anyNode is implemented by every node type of this package
type anyNode interface {
	core.Node
	header() *nodeHeader
	predecessors() []anyNode
	describe() string
	dispose()
	observable() *core.Observable
}

// valueNode is a node that caches a value of type T and can be observed
type valueNode[T any] interface {
	anyNode
	get() T
}

type nodeHeader struct {
	core.NodeBase
	core.Observable

	graph *Graph
	tags  map[any]any

	// references owned by handles, as opposed to dependents
	handles int
}

func (h *nodeHeader) header() *nodeHeader {
	return h
}

func (h *nodeHeader) observable() *core.Observable {
	return &h.Observable
}

func (h *nodeHeader) getTag(key any) (any, bool) {
	val, ok := h.tags[key]
	return val, ok
}

// NodeOption configures a node at construction
type NodeOption func(*nodeConfig)

type nodeConfig struct {
	tags     map[any]any
	equality any
	format   any
}

func newNodeConfig(opts []NodeOption) nodeConfig {
	cfg := nodeConfig{tags: make(map[any]any)}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithTag returns an option that sets a tag on a node
func WithTag[T any](tag Tag[T], val T) NodeOption {
	return func(cfg *nodeConfig) {
		cfg.tags[tag] = val
	}
}

// WithName names a node for logs, metrics and dependency dumps
func WithName(name string) NodeOption {
	return WithTag(NameTag, name)
}

// WithEquality replaces the change detection of a node holding T. Using it on
// a node of another value type is a precondition violation.
func WithEquality[T any](eq Equality[T]) NodeOption {
	return func(cfg *nodeConfig) {
		cfg.equality = eq
	}
}

// WithFormat sets how a node holding T renders its value in NodeInfo.Value
func WithFormat[T any](format func(T) string) NodeOption {
	return func(cfg *nodeConfig) {
		cfg.format = format
	}
}

func formatFor[T any](cfg nodeConfig) func(T) string {
	if cfg.format == nil {
		return func(v T) string { return fmt.Sprintf("%v", v) }
	}
	format, ok := cfg.format.(func(T) string)
	core.Require(ok, "format", "format %T cannot render values of type %T", cfg.format, *new(T))
	return format
}

func equalityFor[T any](cfg nodeConfig) Equality[T] {
	if cfg.equality == nil {
		return DefaultEquality[T]()
	}
	eq, ok := cfg.equality.(Equality[T])
	core.Require(ok, "equality", "equality %T cannot compare values of type %T", cfg.equality, *new(T))
	return eq
}

// initNode binds n to g and records it in the graph's registry
func initNode(g *Graph, n anyNode, kind core.Kind, cfg nodeConfig) {
	g.ensureUsable()
	h := n.header()
	h.graph = g
	h.tags = cfg.tags
	g.core.Init(n, kind)
	h.handles = 1
	g.nodes[h.ID()] = n
}

// release drops one owning reference on n. The last release tears n down once
// the running pulse, if any, has finished.
func release(n anyNode) {
	if !n.Base().Release() {
		return
	}
	n.header().graph.core.Defer(n.dispose)
}

// releaseHandle drops a reference owned by a handle. Releasing more handles
// than were handed out fails instead of taking a dependent's reference.
func releaseHandle(n anyNode) {
	h := n.header()
	core.Require(h.handles > 0, "release", "node %d has no handle references left", h.ID())
	h.handles--
	release(n)
}

// NodeInfo is a read-only view of a node used by extensions and tooling.
type NodeInfo interface {
	ID() uint64
	Name() string
	Kind() core.Kind
	Level() int
	Value() string
	Predecessors() []NodeInfo
	Successors() []NodeInfo
	GetTag(key any) (any, bool)
}

type nodeInfo struct {
	n anyNode
}

func infoOf(n anyNode) NodeInfo {
	if n == nil {
		return nil
	}
	return nodeInfo{n: n}
}

func (i nodeInfo) ID() uint64 {
	return i.n.Base().ID()
}

func (i nodeInfo) Name() string {
	if name, ok := NameTag.Get(i); ok {
		return name
	}
	return fmt.Sprintf("%s#%d", i.n.Base().Kind(), i.n.Base().ID())
}

func (i nodeInfo) Kind() core.Kind {
	return i.n.Base().Kind()
}

func (i nodeInfo) Level() int {
	return i.n.Base().Level()
}

func (i nodeInfo) Value() string {
	if i.n.Base().Disposed() {
		return "<released>"
	}
	return i.n.describe()
}

func (i nodeInfo) Predecessors() []NodeInfo {
	preds := i.n.predecessors()
	result := make([]NodeInfo, 0, len(preds))
	for _, p := range preds {
		result = append(result, nodeInfo{n: p})
	}
	return result
}

func (i nodeInfo) Successors() []NodeInfo {
	succs := i.n.Base().Successors()
	result := make([]NodeInfo, 0, len(succs))
	for _, s := range succs {
		if n, ok := s.(anyNode); ok {
			result = append(result, nodeInfo{n: n})
		}
	}
	return result
}

func (i nodeInfo) GetTag(key any) (any, bool) {
	return i.n.header().getTag(key)
}
