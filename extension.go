package ripple

import "context"

// Extension provides hooks into the propagation lifecycle
type Extension interface {
	// Name returns the extension's name
	Name() string

	// Order determines extension execution order (lower = earlier)
	Order() int

	// Init is called when the extension is registered to a graph
	Init(g *Graph) error

	// Wrap intercepts operations that start a commit (write, modify, transaction).
	// Implementations must call next exactly once. A panic raised by user code
	// travels through Wrap; recover only to observe it and panic again.
	Wrap(ctx context.Context, next func(), op *Operation)

	// OnPulse is called after every propagation pass
	OnPulse(g *Graph, stats PulseStats)

	// OnRecompute is called after a node's recompute ran during a pulse
	OnRecompute(g *Graph, node NodeInfo, changed bool)

	// Dispose is called when the graph is disposed
	Dispose(g *Graph) error
}

// BaseExtension provides default implementations for Extension methods
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a new base extension with the given name
func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{name: name}
}

func (e *BaseExtension) Name() string {
	return e.name
}

func (e *BaseExtension) Order() int {
	return 100
}

func (e *BaseExtension) Init(g *Graph) error {
	return nil
}

func (e *BaseExtension) Wrap(ctx context.Context, next func(), op *Operation) {
	next()
}

func (e *BaseExtension) OnPulse(g *Graph, stats PulseStats) {
}

func (e *BaseExtension) OnRecompute(g *Graph, node NodeInfo, changed bool) {
}

func (e *BaseExtension) Dispose(g *Graph) error {
	return nil
}

// Operation describes what operation is happening
type Operation struct {
	Kind  OperationKind
	Node  NodeInfo
	Graph *Graph
}

// OperationKind represents the type of operation
type OperationKind string

const (
	// OpWrite indicates a source replacement outside a transaction
	OpWrite OperationKind = "write"
	// OpModify indicates an in-place source mutation outside a transaction
	OpModify OperationKind = "modify"
	// OpTransaction indicates an outermost transaction
	OpTransaction OperationKind = "transaction"
)
