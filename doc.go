// Package ripple provides push-based incremental computation for Go.
//
// # Overview
//
// Ripple organizes state around a dependency graph of typed nodes:
//
//  1. Sources: values written from outside the graph
//  2. Computed signals: values derived from other signals through an expression
//  3. Observers: callbacks run after a value changed
//
// When a source changes, every signal that depends on it is recomputed exactly
// once, in dependency order, and only when one of its inputs actually changed.
// Readers never observe a partially propagated state.
//
// # Basic Usage
//
//	g := ripple.NewGraph()
//
//	x := ripple.NewSource(g, 2)
//	y := ripple.NewSource(g, 3)
//
//	sum := ripple.Derive2(x, y, func(a, b int) int {
//	    return a + b
//	}, ripple.WithName("sum"))
//
//	ripple.Observe(sum, func(v int) {
//	    fmt.Println("sum is now", v)
//	})
//
//	x.Set(4) // prints "sum is now 7"
//
// # Transactions
//
// Writes inside a transaction are staged and committed together when the
// outermost transaction returns, producing a single propagation pass:
//
//	g.Transaction(func() {
//	    x.Set(10)
//	    y.Set(20)
//	}) // prints "sum is now 30" once
//
// Transactions nest; inner transactions commit with the outermost one. A
// panic inside the body discards the staged writes.
//
// # Expressions
//
// Lift1..Lift4 and LiftAll build expressions without creating nodes.
// Expressions nest, and Compute turns a whole expression tree into one node:
//
//	scaled := ripple.Lift2(x, y, func(a, b int) int { return a * b })
//	shifted := ripple.Map(scaled, func(v int) int { return v + 1 })
//	node := ripple.Compute(shifted)
//
// Fuse appends a transformation to an existing computed signal. When the
// signal is not shared, its expression moves into the new node instead of
// adding a second one.
//
// # Dynamic Dependencies
//
// Flatten follows whichever signal another signal currently holds. The
// flatten node rewires itself while the pulse that switched the selector runs:
//
//	a := ripple.NewSource(g, "a")
//	b := ripple.NewSource(g, "b")
//	selected := ripple.NewSource(g, a.Signal)
//	current := ripple.Flatten(selected.Signal)
//
//	selected.Set(b.Signal) // current now follows b
//
// # Ownership
//
// Every constructor returns a handle owning one reference to its node. A node
// stays alive while a handle, a dependent node or a subscription refers to
// it. Release drops the handle's reference; the last release detaches the
// node from its dependencies, once the running pulse has finished.
// Releasing a node more often than handles to it were created or retained
// panics.
//
// # Equality
//
// A recomputed value that equals the cached one stops propagation. Values of
// comparable types are compared with ==, other values with reflect.DeepEqual.
// Signal values compare by node identity. WithEquality and CmpEqual override
// the comparison for one node.
//
// # Extensions
//
// Extensions observe and wrap graph operations:
//
//	type MyExtension struct {
//	    ripple.BaseExtension
//	}
//
//	func (e *MyExtension) Wrap(ctx context.Context, next func(), op *ripple.Operation) {
//	    start := time.Now()
//	    next()
//	    log.Printf("%s took %v", op.Kind, time.Since(start))
//	}
//
//	g := ripple.NewGraph(ripple.WithExtension(&MyExtension{
//	    BaseExtension: ripple.NewBaseExtension("timing"),
//	}))
//
// # Errors
//
// Misuse of the graph (writing a released source, mixing graphs, recomputing
// an input, unsubscribing twice) panics with a *PreconditionError. Panics
// raised by user functions propagate to the caller of the write that started
// the pulse; the graph returns to idle, nodes visited before the panic keep
// their new values and the rest keep their old ones.
//
// # Concurrency
//
// A Graph and its nodes are not safe for concurrent use. All propagation runs
// synchronously on the goroutine that performs the write.
package ripple
