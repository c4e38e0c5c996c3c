package ripple

import "github.com/pumped-fn/ripple/pkg/core"

// Expr is an unevaluated computation over signals. Expressions nest: lifting
// a function over other expressions produces one larger expression, and
// Compute turns the whole tree into a single node that depends on every
// signal at its leaves.
type Expr[T any] struct {
	graph  *Graph
	eval   func() T
	leaves []anyNode
}

// Operand is anything an expression can be built from: a Signal, a Source or
// another Expr.
type Operand[T any] interface {
	expr() Expr[T]
}

func (e Expr[T]) expr() Expr[T] {
	core.Require(e.eval != nil, "expr", "expression is empty")
	return e
}

// Eval evaluates the expression against the current values of its leaves
func (e Expr[T]) Eval() T {
	return e.expr().eval()
}

// Graph returns the graph the expression's signals belong to
func (e Expr[T]) Graph() *Graph {
	return e.graph
}

// Const is an expression without dependencies
func Const[T any](g *Graph, v T) Expr[T] {
	return Expr[T]{
		graph: g,
		eval:  func() T { return v },
	}
}

// Compute creates a node caching the value of an expression. The expression
// is evaluated once immediately and again whenever one of its signals changes.
func Compute[T any](o Operand[T], opts ...NodeOption) Signal[T] {
	return newComputed(o.expr(), false, opts)
}

// Map lifts a unary function over an operand
func Map[A, T any](o Operand[A], fn func(A) T) Expr[T] {
	return Lift1(o, fn)
}

// Fuse applies fn to s and consumes the handle s. When s is the only
// reference to a computed node nobody depends on, its expression is moved
// into the new node instead of keeping two nodes alive.
func Fuse[A, T any](s Signal[A], fn func(A) T, opts ...NodeOption) Signal[T] {
	if c, ok := s.n.(*computedNode[A]); ok {
		core.Require(!c.stolen, "steal", "expression of node %d was already stolen", c.ID())
		if c.stealable() {
			inner := c.steal()
			return newComputed(Expr[T]{
				graph:  inner.graph,
				eval:   func() T { return fn(inner.eval()) },
				leaves: inner.leaves,
			}, true, opts)
		}
	}

	n := s.node("fuse")
	out := Compute(Map(s, fn), opts...)
	releaseHandle(n)
	return out
}

// LiftAll lifts a function over a homogeneous list of operands
func LiftAll[A, T any](g *Graph, ops []Operand[A], fn func([]A) T) Expr[T] {
	evals := make([]func() A, len(ops))
	var leaves []anyNode
	for i, o := range ops {
		e := o.expr()
		sameGraph("lift", g, e.graph)
		evals[i] = e.eval
		leaves = append(leaves, e.leaves...)
	}

	return Expr[T]{
		graph: g,
		eval: func() T {
			args := make([]A, len(evals))
			for i, eval := range evals {
				args[i] = eval()
			}
			return fn(args)
		},
		leaves: leaves,
	}
}

// DeriveAll creates a node over a homogeneous list of operands
func DeriveAll[A, T any](g *Graph, ops []Operand[A], fn func([]A) T, opts ...NodeOption) Signal[T] {
	return Compute(LiftAll(g, ops, fn), opts...)
}

// sameGraph returns the graph shared by all expressions. Expressions without
// signals (constants) adopt the graph of the others.
func sameGraph(op string, graphs ...*Graph) *Graph {
	var g *Graph
	for _, other := range graphs {
		if other == nil {
			continue
		}
		if g == nil {
			g = other
			continue
		}
		core.Require(g == other, op, "operands belong to different graphs (%s, %s)", g.id, other.id)
	}
	core.Require(g != nil, op, "expression is not bound to a graph")
	return g
}

func joinLeaves(lists ...[]anyNode) []anyNode {
	var total int
	for _, l := range lists {
		total += len(l)
	}
	result := make([]anyNode, 0, total)
	for _, l := range lists {
		result = append(result, l...)
	}
	return result
}

func uniqueLeaves(leaves []anyNode) []anyNode {
	result := make([]anyNode, 0, len(leaves))
	seen := make(map[anyNode]struct{}, len(leaves))
	for _, leaf := range leaves {
		if _, ok := seen[leaf]; ok {
			continue
		}
		seen[leaf] = struct{}{}
		result = append(result, leaf)
	}
	return result
}
