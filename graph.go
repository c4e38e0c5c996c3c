package ripple

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/pumped-fn/ripple/pkg/core"
)

// PulseStats describes one propagation pass
type PulseStats = core.PulseStats

// Totals accumulates statistics over the lifetime of a graph
type Totals = core.Totals

// Graph is an isolated computation universe. Every node is created on exactly
// one graph and can only depend on nodes of the same graph.
//
// A Graph is not safe for concurrent use. Drive it from one goroutine or
// guard it with your own lock.
type Graph struct {
	core       *core.Graph
	id         uuid.UUID
	ctx        context.Context
	logger     *slog.Logger
	extensions []Extension
	tags       map[any]any
	nodes      map[uint64]anyNode
	disposed   bool
}

// GraphOption is a modifier for graphs
type GraphOption func(*Graph)

// WithLogger sets the logger used for pulse diagnostics
func WithLogger(logger *slog.Logger) GraphOption {
	return func(g *Graph) {
		g.logger = logger
	}
}

// WithContext sets the context handed to extension Wrap calls
func WithContext(ctx context.Context) GraphOption {
	return func(g *Graph) {
		g.ctx = ctx
	}
}

// WithGraphTag returns an option that sets a tag on a graph
func WithGraphTag[T any](tag Tag[T], val T) GraphOption {
	return func(g *Graph) {
		tag.SetOnGraph(g, val)
	}
}

// WithExtension returns an option that registers an extension to a graph
func WithExtension(ext Extension) GraphOption {
	return func(g *Graph) {
		if err := g.UseExtension(ext); err != nil {
			panic(err)
		}
	}
}

// NewGraph creates a new graph with optional configuration
func NewGraph(opts ...GraphOption) *Graph {
	g := &Graph{
		core:   core.NewGraph(),
		id:     uuid.New(),
		ctx:    context.Background(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tags:   make(map[any]any),
		nodes:  make(map[uint64]anyNode),
	}
	g.core.SetHooks(graphHooks{g: g})

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// ID returns the graph's unique identifier
func (g *Graph) ID() uuid.UUID {
	return g.id
}

// Logger returns the graph's logger
func (g *Graph) Logger() *slog.Logger {
	return g.logger
}

// Context returns the context handed to extensions
func (g *Graph) Context() context.Context {
	return g.ctx
}

// UseExtension registers an extension to the graph
func (g *Graph) UseExtension(ext Extension) error {
	g.extensions = append(g.extensions, ext)
	sort.SliceStable(g.extensions, func(i, j int) bool {
		return g.extensions[i].Order() < g.extensions[j].Order()
	})

	return ext.Init(g)
}

// Transaction runs body with every source write staged. When the outermost
// transaction returns, the staged writes are applied together and propagated
// in a single pulse. If body panics the staged writes are discarded.
func (g *Graph) Transaction(body func()) {
	g.ensureUsable()
	if g.core.Phase() != core.PhaseIdle {
		g.core.DoTransaction(body)
		return
	}
	g.run(&Operation{Kind: OpTransaction, Graph: g}, func() {
		g.core.DoTransaction(body)
	})
}

// InTransaction reports whether writes are currently being staged
func (g *Graph) InTransaction() bool {
	return g.core.Depth() > 0
}

// Stats returns cumulative propagation counters
func (g *Graph) Stats() Totals {
	return g.core.Totals()
}

// Phase returns the state of the commit state machine
func (g *Graph) Phase() core.Phase {
	return g.core.Phase()
}

// Ticking returns the node being recomputed, or the node whose recompute
// panicked during the last aborted pulse.
func (g *Graph) Ticking() NodeInfo {
	n, ok := g.core.Ticking().(anyNode)
	if !ok {
		return nil
	}
	return infoOf(n)
}

// Node looks up a live node by identifier
func (g *Graph) Node(id uint64) (NodeInfo, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return infoOf(n), true
}

// Nodes returns every live node ordered by level, then by creation
func (g *Graph) Nodes() []NodeInfo {
	nodes := make([]anyNode, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		li, lj := nodes[i].Base().Level(), nodes[j].Base().Level()
		if li != lj {
			return li < lj
		}
		return nodes[i].Base().ID() < nodes[j].Base().ID()
	})

	result := make([]NodeInfo, len(nodes))
	for i, n := range nodes {
		result[i] = infoOf(n)
	}
	return result
}

// GetTag retrieves a tag value from the graph
func (g *Graph) GetTag(tag any) (any, bool) {
	val, ok := g.tags[tag]
	return val, ok
}

// SetTag stores a tag value on the graph
func (g *Graph) SetTag(tag any, val any) {
	g.tags[tag] = val
}

// Dispose releases every node and its observers and disposes the extensions.
// Handles that outlive the graph report Valid() == false.
func (g *Graph) Dispose() error {
	if g.disposed {
		return ErrGraphDisposed
	}
	core.Require(!g.core.Busy(), "dispose", "graph %s is propagating", g.id)

	for _, n := range g.nodes {
		n.observable().DestroyObservers()
	}
	for _, n := range g.nodes {
		n.Base().MarkDisposed()
	}
	clear(g.nodes)
	g.disposed = true

	var errs []error
	for _, ext := range g.extensions {
		if err := ext.Dispose(g); err != nil {
			errs = append(errs, fmt.Errorf("disposing extension %s: %w", ext.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (g *Graph) ensureUsable() {
	core.Require(!g.disposed, "graph", "graph %s was disposed", g.id)
}

func (g *Graph) unregister(n anyNode) {
	delete(g.nodes, n.Base().ID())
}

// write starts a commit through the extension chain. Writes that only stage
// (inside a transaction or a running pulse) bypass the chain.
func (g *Graph) write(kind OperationKind, n anyNode, fn func()) {
	if g.core.Phase() != core.PhaseIdle || len(g.extensions) == 0 {
		fn()
		return
	}
	g.run(&Operation{Kind: kind, Node: infoOf(n), Graph: g}, fn)
}

func (g *Graph) run(op *Operation, fn func()) {
	next := fn
	for i := len(g.extensions) - 1; i >= 0; i-- {
		ext, inner := g.extensions[i], next
		next = func() {
			ext.Wrap(g.ctx, inner, op)
		}
	}
	next()
}

type graphHooks struct {
	g *Graph
}

func (h graphHooks) PulseStarted(pulse uint64) {
	h.g.logger.Debug("pulse started", "graph", h.g.id, "pulse", pulse)
}

func (h graphHooks) NodeRecomputed(n core.Node, changed bool) {
	if len(h.g.extensions) == 0 {
		return
	}
	node, ok := n.(anyNode)
	if !ok {
		return
	}
	info := infoOf(node)
	for _, ext := range h.g.extensions {
		ext.OnRecompute(h.g, info, changed)
	}
}

func (h graphHooks) PulseFinished(stats core.PulseStats) {
	h.g.logger.Debug("pulse finished",
		"graph", h.g.id,
		"pulse", stats.Pulse,
		"inputs", stats.Inputs,
		"batches", stats.Batches,
		"recomputed", stats.Recomputed,
		"changed", stats.Changed,
		"promotions", stats.Promotions,
		"max_level", stats.MaxLevel,
		"duration", stats.Duration,
	)
	for _, ext := range h.g.extensions {
		ext.OnPulse(h.g, stats)
	}
}
