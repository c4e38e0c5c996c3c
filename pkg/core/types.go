package core

// Kind represents the type of a graph node
type Kind string

const (
	// KindSource is an externally writable input
	KindSource Kind = "source"
	// KindComputed derives its value from an expression over other nodes
	KindComputed Kind = "computed"
	// KindFlatten follows whichever node its selector currently denotes
	KindFlatten Kind = "flatten"
	// KindObserver runs a side-effecting callback instead of caching a value
	KindObserver Kind = "observer"
)

// Node is a vertex of the propagation graph.
//
// Tick recomputes the node. Implementations decide whether their cached value
// changed and, if so, call Graph.OnNodePulse so that successors get scheduled.
type Node interface {
	Base() *NodeBase
	Tick()
}

// InputNode is a node that accepts staged writes.
type InputNode interface {
	Node
	// ApplyInput adopts the staged write and reports whether the value changed.
	ApplyInput() bool
	// DiscardInput drops a staged write without applying it.
	DiscardInput()
}

// Observer is a callback node owned by an Observable subject.
type Observer interface {
	Node
	// UnregisterSelf asks the subject to drop this observer. Safe to call
	// repeatedly and after the subject is gone.
	UnregisterSelf()
	// DetachObserver removes the edge to the subject and forgets it.
	DetachObserver()
}

// Phase is the state of a graph's commit state machine.
type Phase int

const (
	// PhaseIdle accepts writes and applies them immediately
	PhaseIdle Phase = iota
	// PhaseCollecting stages writes inside an open transaction
	PhaseCollecting
	// PhaseApplying adopts staged writes on input nodes
	PhaseApplying
	// PhasePropagating drains the topological queue
	PhasePropagating
	// PhaseDetaching flushes observer removals and deferred releases
	PhaseDetaching
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCollecting:
		return "collecting"
	case PhaseApplying:
		return "applying"
	case PhasePropagating:
		return "propagating"
	case PhaseDetaching:
		return "detaching"
	default:
		return "unknown"
	}
}

// Hooks receives engine events. All calls happen on the goroutine driving the graph.
type Hooks interface {
	PulseStarted(pulse uint64)
	NodeRecomputed(n Node, changed bool)
	PulseFinished(stats PulseStats)
}
