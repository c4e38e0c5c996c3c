package core

import "time"

// Graph schedules recomputation for every node created on it.
//
// A write outside a transaction is applied and propagated before the call
// returns. Inside a transaction writes are staged and committed together
// when the outermost transaction body returns. Writes issued while a pulse is
// running (from a computation or an observer) are staged as well and
// committed by a follow-up pulse once the current one has settled.
//
// Graph is not safe for concurrent use.
type Graph struct {
	queue queue
	phase Phase
	depth int

	changedInputs  []InputNode
	deferredInputs []InputNode

	detachedObservers []Observer
	deferred          []func()

	ticking     Node
	tickChanged bool

	// Nodes whose required level was raised but not yet adopted.
	pendingLevels []Node

	nextID uint64
	totals Totals
	hooks  Hooks
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{}
}

// SetHooks installs the receiver of engine events
func (g *Graph) SetHooks(h Hooks) {
	g.hooks = h
}

// Init binds a node to the graph and assigns its identifier. The node starts
// with one owning reference held by whoever created it.
func (g *Graph) Init(n Node, kind Kind) {
	b := n.Base()
	Require(b.graph == nil, "init", "node %d already belongs to a graph", b.id)
	g.nextID++
	b.graph = g
	b.kind = kind
	b.id = g.nextID
	b.refs = 1
}

// Phase returns the current state of the commit state machine
func (g *Graph) Phase() Phase {
	return g.phase
}

// Depth returns the transaction nesting depth
func (g *Graph) Depth() int {
	return g.depth
}

// Busy reports whether a commit is in progress
func (g *Graph) Busy() bool {
	return g.phase >= PhaseApplying
}

// Totals returns cumulative statistics
func (g *Graph) Totals() Totals {
	return g.totals
}

// Ticking returns the node whose Tick is running, or the node whose Tick
// panicked during the last aborted pulse.
func (g *Graph) Ticking() Node {
	return g.ticking
}

// Attach registers node as a successor of parent and raises node's level
// above parent's.
func (g *Graph) Attach(node, parent Node) {
	nb, pb := node.Base(), parent.Base()
	Require(nb.graph == g && pb.graph == g, "attach",
		"node %d and parent %d belong to different graphs", nb.id, pb.id)
	Require(!pb.disposed, "attach", "parent %d was already released", pb.id)

	pb.successors = appendUnique(pb.successors, node)
	if nb.level <= pb.level {
		nb.level = pb.level + 1
	}
}

// Detach removes node from parent's successors.
func (g *Graph) Detach(node, parent Node) {
	pb := parent.Base()
	var found bool
	pb.successors, found = removeElement(pb.successors, node)
	Require(found, "detach", "node %d is not a successor of %d", node.Base().id, pb.id)
}

// DynamicAttach attaches node to parent while a pulse is running and
// re-schedules node at its corrected level.
func (g *Graph) DynamicAttach(node, parent Node) {
	g.Attach(node, parent)
	g.invalidateSuccessors(node)

	b := node.Base()
	b.queued = true
	g.queue.push(node, b.level)
}

// DynamicDetach detaches node from parent while a pulse is running.
func (g *Graph) DynamicDetach(node, parent Node) {
	g.Detach(node, parent)
}

// OnInputChange schedules the successors of an input that adopted a new value.
func (g *Graph) OnInputChange(n Node) {
	g.processChildren(n)
}

// OnNodePulse schedules the successors of a node whose value changed.
func (g *Graph) OnNodePulse(n Node) {
	if n == g.ticking {
		g.tickChanged = true
	}
	g.processChildren(n)
}

// Input stages a write through stage and then applies it according to the
// current phase.
func (g *Graph) Input(n InputNode, stage func()) {
	Require(n.Base().graph == g, "input", "node %d belongs to a different graph", n.Base().id)
	Require(!n.Base().disposed, "input", "node %d was already released", n.Base().id)

	stage()

	switch g.phase {
	case PhaseIdle:
		g.commit([]InputNode{n})
	case PhaseCollecting:
		g.changedInputs = append(g.changedInputs, n)
	default:
		g.deferredInputs = append(g.deferredInputs, n)
	}
}

// DoTransaction runs body with writes staged; only the outermost transaction
// applies them and propagates once.
func (g *Graph) DoTransaction(body func()) {
	if g.phase == PhaseIdle {
		g.phase = PhaseCollecting
		g.ticking = nil
	}
	g.depth++

	completed := false
	defer func() {
		if completed {
			return
		}
		g.depth--
		if g.depth == 0 && g.phase == PhaseCollecting {
			g.abort()
		}
	}()

	body()
	completed = true
	g.depth--

	if g.depth != 0 || g.phase != PhaseCollecting {
		return
	}

	g.totals.Transactions++
	inputs := g.changedInputs
	g.changedInputs = nil
	g.commit(inputs)
}

// QueueObserverForDetach defers the removal of an observer until the running
// pulse has finished. Outside a pulse the observer is removed right away.
func (g *Graph) QueueObserverForDetach(o Observer) {
	if !g.Busy() {
		o.UnregisterSelf()
		return
	}
	g.detachedObservers = append(g.detachedObservers, o)
}

// Defer runs fn once the running pulse has finished, or immediately when no
// pulse is running.
func (g *Graph) Defer(fn func()) {
	if !g.Busy() {
		fn()
		return
	}
	g.deferred = append(g.deferred, fn)
}

func (g *Graph) commit(inputs []InputNode) {
	g.ticking = nil
	completed := false
	defer func() {
		if !completed {
			g.abort()
		}
	}()

	for len(inputs) > 0 {
		g.pulse(inputs)
		inputs, g.deferredInputs = g.deferredInputs, nil
	}

	g.phase = PhaseIdle
	completed = true
}

func (g *Graph) pulse(inputs []InputNode) {
	start := time.Now()
	stats := PulseStats{Pulse: g.totals.Pulses + 1}

	g.phase = PhaseApplying
	for _, n := range inputs {
		if n.ApplyInput() {
			stats.Inputs++
		}
	}

	if stats.Inputs > 0 {
		if g.hooks != nil {
			g.hooks.PulseStarted(stats.Pulse)
		}
		g.phase = PhasePropagating
		g.propagate(&stats)
	}

	g.phase = PhaseDetaching
	g.flushDetached()

	if stats.Inputs > 0 {
		stats.Duration = time.Since(start)
		g.totals.add(stats)
		if g.hooks != nil {
			g.hooks.PulseFinished(stats)
		}
	}
}

func (g *Graph) propagate(stats *PulseStats) {
	for g.queue.fetchNext() {
		stats.Batches++

		scheduled := g.queue.batchLevel()
		for _, n := range g.queue.batch() {
			b := n.Base()
			if b.level > scheduled {
				g.queue.push(n, b.level)
				continue
			}
			if b.level < b.newLevel {
				b.level = b.newLevel
				g.invalidateSuccessors(n)
				g.queue.push(n, b.level)
				stats.Promotions++
				continue
			}

			b.queued = false
			g.ticking, g.tickChanged = n, false
			n.Tick()

			stats.Recomputed++
			if g.tickChanged {
				stats.Changed++
			}
			if b.level > stats.MaxLevel {
				stats.MaxLevel = b.level
			}
			if g.hooks != nil {
				g.hooks.NodeRecomputed(n, g.tickChanged)
			}
		}
	}
	g.ticking = nil
	g.settleLevels()
}

// settleLevels promotes nodes whose required level grew during the pulse but
// which were never scheduled, so every edge points upwards once the queue is
// empty.
func (g *Graph) settleLevels() {
	for len(g.pendingLevels) > 0 {
		last := len(g.pendingLevels) - 1
		n := g.pendingLevels[last]
		g.pendingLevels[last] = nil
		g.pendingLevels = g.pendingLevels[:last]

		b := n.Base()
		if b.level < b.newLevel {
			b.level = b.newLevel
			g.invalidateSuccessors(n)
		}
	}
}

func (g *Graph) processChildren(n Node) {
	for _, succ := range n.Base().successors {
		sb := succ.Base()
		if !sb.queued {
			sb.queued = true
			g.queue.push(succ, sb.level)
		}
	}
}

// invalidateSuccessors raises the required level of everything downstream of
// n. The raise reaches past direct successors so that a node already queued
// below the new level is promoted instead of running ahead of its inputs.
func (g *Graph) invalidateSuccessors(n Node) {
	stack := []Node{n}
	for len(stack) > 0 {
		last := len(stack) - 1
		cur := stack[last]
		stack = stack[:last]

		cb := cur.Base()
		level := max(cb.level, cb.newLevel)
		for _, succ := range cb.successors {
			sb := succ.Base()
			if sb.level > level || sb.newLevel > level {
				continue
			}
			sb.newLevel = level + 1
			g.pendingLevels = append(g.pendingLevels, succ)
			stack = append(stack, succ)
		}
	}
}

func (g *Graph) flushDetached() {
	for len(g.detachedObservers) > 0 || len(g.deferred) > 0 {
		observers := g.detachedObservers
		g.detachedObservers = nil
		for _, o := range observers {
			o.UnregisterSelf()
		}

		deferred := g.deferred
		g.deferred = nil
		for _, fn := range deferred {
			fn()
		}
	}
}

// abort restores an idle graph after a user callback panicked. Staged writes
// are dropped; nodes not yet visited keep whatever state they had.
func (g *Graph) abort() {
	g.queue.reset()
	g.settleLevels()

	for _, n := range g.changedInputs {
		n.DiscardInput()
	}
	for _, n := range g.deferredInputs {
		n.DiscardInput()
	}
	g.changedInputs = nil
	g.deferredInputs = nil
	g.depth = 0

	g.phase = PhaseDetaching
	g.flushDetached()
	g.phase = PhaseIdle
}
