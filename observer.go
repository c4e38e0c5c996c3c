package ripple

import "github.com/pumped-fn/ripple/pkg/core"

// Action tells the graph what to do with an observer after its callback ran
type Action int

const (
	// Continue keeps the observer registered
	Continue Action = iota
	// StopAndDetach removes the observer once the running pulse has finished
	StopAndDetach
)

type observerNode[T any] struct {
	nodeHeader

	subject valueNode[T]
	fn      func(T) Action
}

// Observer is the handle of a subscription
type Observer struct {
	node         observerHandle
	unsubscribed bool
}

type observerHandle interface {
	anyNode
	core.Observer
	attached() bool
}

// Subscribe registers fn to run with the new value after every pulse in which
// s changed. fn is not called for the current value. The subscription keeps
// s alive until it ends, either through Unsubscribe or by fn returning
// StopAndDetach.
func Subscribe[T any](s Subject[T], fn func(T) Action, opts ...NodeOption) *Observer {
	subject := s.signal().node("subscribe")
	g := subject.header().graph
	cfg := newNodeConfig(opts)

	o := &observerNode[T]{subject: subject, fn: fn}
	initNode(g, o, core.KindObserver, cfg)
	subject.Base().Retain()
	g.core.Attach(o, subject)
	subject.observable().RegisterObserver(o)

	return &Observer{node: o}
}

// Observe registers fn like Subscribe, for callbacks that never stop on their own
func Observe[T any](s Subject[T], fn func(T), opts ...NodeOption) *Observer {
	return Subscribe(s, func(v T) Action {
		fn(v)
		return Continue
	}, opts...)
}

// Unsubscribe ends the subscription. During a pulse the observer is removed
// once the pulse has finished. Calling Unsubscribe twice is a precondition
// violation; calling it after the observer stopped itself is allowed.
func (o *Observer) Unsubscribe() {
	core.Require(!o.unsubscribed, "unsubscribe", "observer %d was already unsubscribed", o.node.Base().ID())
	o.unsubscribed = true

	g := o.node.header().graph
	if g.disposed {
		return
	}
	g.core.QueueObserverForDetach(o.node)
}

// Valid reports whether the observer is still registered on its subject
func (o *Observer) Valid() bool {
	return !o.unsubscribed && o.node.attached()
}

// Info returns a read-only view of the observer node
func (o *Observer) Info() NodeInfo {
	return infoOf(o.node)
}

func (o *observerNode[T]) attached() bool {
	return o.subject != nil && !o.Disposed()
}

func (o *observerNode[T]) Tick() {
	if o.subject == nil {
		return
	}
	if o.fn(o.subject.get()) == StopAndDetach {
		o.graph.core.QueueObserverForDetach(o)
	}
}

func (o *observerNode[T]) UnregisterSelf() {
	if o.subject == nil {
		return
	}
	subject := o.subject
	subject.observable().UnregisterObserver(o)
	release(subject)
}

func (o *observerNode[T]) DetachObserver() {
	if o.subject == nil {
		return
	}
	o.graph.core.Detach(o, o.subject)
	o.subject = nil
	o.MarkDisposed()
	o.graph.unregister(o)
}

func (o *observerNode[T]) predecessors() []anyNode {
	if o.subject == nil {
		return nil
	}
	return []anyNode{o.subject}
}

func (o *observerNode[T]) describe() string {
	return ""
}

func (o *observerNode[T]) dispose() {
	o.UnregisterSelf()
}
