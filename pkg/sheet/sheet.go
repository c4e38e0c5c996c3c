// Package sheet runs declarative reactive sheets on a ripple graph.
//
// A sheet is an HCL file of three block types:
//
//	source "price" { value = 12.5 }
//	cell "total" { value = cell.price * cell.quantity }
//	select "shown" { on = cell.view }
//
// Sources hold values written from outside. Cells recompute from the entries
// their expression references. A select follows whichever entry its name
// expression currently yields.
package sheet

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/pumped-fn/ripple"
)

var (
	// ErrUnknownEntry is returned for a name the sheet does not declare
	ErrUnknownEntry = errors.New("unknown sheet entry")
	// ErrNotSource is returned when writing to a cell or select
	ErrNotSource = errors.New("sheet entry is not a source")
	// ErrClosed is returned by a sheet after Close
	ErrClosed = errors.New("sheet is closed")
)

// Sheet is a Definition instantiated on a graph
type Sheet struct {
	graph *ripple.Graph
	def   *Definition

	signals map[string]ripple.Signal[cty.Value]
	sources map[string]ripple.Source[cty.Value]
	null    ripple.Source[cty.Value]

	// Evaluation problems by entry, cleared once the entry evaluates again
	errs map[string]hcl.Diagnostics

	watchers []*ripple.Observer
	closed   bool
}

// New builds the nodes of def on g
func New(g *ripple.Graph, def *Definition) (*Sheet, error) {
	s := &Sheet{
		graph:   g,
		def:     def,
		signals: make(map[string]ripple.Signal[cty.Value], len(def.Decls)),
		sources: make(map[string]ripple.Source[cty.Value]),
		errs:    make(map[string]hcl.Diagnostics),
	}
	s.null = ripple.NewSource(g, cty.NullVal(cty.DynamicPseudoType), s.valueOptions("sheet.null")...)

	for _, name := range def.Order {
		decl := def.Decls[name]
		switch decl.Kind {
		case KindSource:
			val, diags := decl.Expr.Value(&hcl.EvalContext{Functions: Functions()})
			if diags.HasErrors() {
				s.Close()
				return nil, fmt.Errorf("failed to evaluate source %q: %w", name, diags)
			}
			src := ripple.NewSource(g, val, s.valueOptions(name)...)
			s.sources[name] = src
			s.signals[name] = src.Signal
		case KindCell:
			s.signals[name] = ripple.DeriveAll(g, s.operands(decl), func(vals []cty.Value) cty.Value {
				return s.evalCell(decl, vals)
			}, s.valueOptions(name)...)
		case KindSelect:
			selector := ripple.DeriveAll(g, s.operands(decl), func(vals []cty.Value) ripple.Signal[cty.Value] {
				return s.resolve(decl, vals)
			}, ripple.WithName(name+".on"), ripple.WithFormat(func(target ripple.Signal[cty.Value]) string {
				if !target.Valid() {
					return "-"
				}
				return target.Info().Name()
			}))
			s.signals[name] = ripple.Flatten(selector, s.valueOptions(name)...)
			selector.Release()
		}
	}

	g.Logger().Debug("sheet built", "graph", g.ID(), "entries", len(def.Order))
	return s, nil
}

func (s *Sheet) valueOptions(name string) []ripple.NodeOption {
	return []ripple.NodeOption{
		ripple.WithName(name),
		ripple.WithEquality(ripple.Equality[cty.Value](rawEqual)),
		ripple.WithFormat(FormatValue),
	}
}

func (s *Sheet) operands(decl *Decl) []ripple.Operand[cty.Value] {
	ops := make([]ripple.Operand[cty.Value], len(decl.Deps))
	for i, dep := range decl.Deps {
		ops[i] = s.signals[dep]
	}
	return ops
}

func (s *Sheet) evalContext(decl *Decl, vals []cty.Value) *hcl.EvalContext {
	cells := make(map[string]cty.Value, len(vals))
	for i, dep := range decl.Deps {
		cells[dep] = vals[i]
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"cell": cty.ObjectVal(cells)},
		Functions: Functions(),
	}
}

func (s *Sheet) evalCell(decl *Decl, vals []cty.Value) cty.Value {
	val, diags := decl.Expr.Value(s.evalContext(decl, vals))
	if diags.HasErrors() {
		s.fail(decl, diags)
		return cty.DynamicVal
	}
	delete(s.errs, decl.Name)
	return val
}

// resolve picks the signal a select follows. Anything but the name of a
// targetable entry selects the null source.
func (s *Sheet) resolve(decl *Decl, vals []cty.Value) ripple.Signal[cty.Value] {
	val, diags := decl.Expr.Value(s.evalContext(decl, vals))
	if diags.HasErrors() {
		s.fail(decl, diags)
		return s.null.Signal
	}
	if !val.IsKnown() || val.IsNull() || val.Type() != cty.String {
		s.fail(decl, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid select target",
			Detail:   fmt.Sprintf("Select %q needs the name of an entry, got %s.", decl.Name, FormatValue(val)),
			Subject:  decl.Range.Ptr(),
		}})
		return s.null.Signal
	}

	target := val.AsString()
	targetDecl, ok := s.def.Decls[target]
	if !ok || !targetDecl.Targetable {
		s.fail(decl, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid select target",
			Detail:   fmt.Sprintf("Select %q cannot follow %q: it is undeclared or depends on a select.", decl.Name, target),
			Subject:  decl.Range.Ptr(),
		}})
		return s.null.Signal
	}

	delete(s.errs, decl.Name)
	return s.signals[target]
}

func (s *Sheet) fail(decl *Decl, diags hcl.Diagnostics) {
	s.errs[decl.Name] = diags
	s.graph.Logger().Debug("sheet entry failed", "entry", decl.Name, "error", diags.Error())
}

// Graph returns the graph the sheet is built on
func (s *Sheet) Graph() *ripple.Graph {
	return s.graph
}

// Names lists the entries, each after the entries it depends on
func (s *Sheet) Names() []string {
	return append([]string(nil), s.def.Order...)
}

// Kind reports how name was declared
func (s *Sheet) Kind(name string) (Kind, error) {
	decl, ok := s.def.Decls[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEntry, name)
	}
	return decl.Kind, nil
}

func (s *Sheet) signal(name string) (ripple.Signal[cty.Value], error) {
	if s.closed {
		return ripple.Signal[cty.Value]{}, ErrClosed
	}
	sig, ok := s.signals[name]
	if !ok {
		return ripple.Signal[cty.Value]{}, fmt.Errorf("%w: %q", ErrUnknownEntry, name)
	}
	return sig, nil
}

// Value returns the current value of name. A cell whose expression failed
// holds an unknown value; Err tells why.
func (s *Sheet) Value(name string) (cty.Value, error) {
	sig, err := s.signal(name)
	if err != nil {
		return cty.NilVal, err
	}
	return sig.Value(), nil
}

// Err returns the problem found the last time name was evaluated, or nil
func (s *Sheet) Err(name string) error {
	if diags, ok := s.errs[name]; ok {
		return diags
	}
	return nil
}

// Info returns the graph node behind name
func (s *Sheet) Info(name string) (ripple.NodeInfo, error) {
	sig, err := s.signal(name)
	if err != nil {
		return nil, err
	}
	return sig.Info(), nil
}

func (s *Sheet) source(name string) (ripple.Source[cty.Value], error) {
	if s.closed {
		return ripple.Source[cty.Value]{}, ErrClosed
	}
	src, ok := s.sources[name]
	if ok {
		return src, nil
	}
	if _, declared := s.def.Decls[name]; declared {
		return ripple.Source[cty.Value]{}, fmt.Errorf("%w: %q", ErrNotSource, name)
	}
	return ripple.Source[cty.Value]{}, fmt.Errorf("%w: %q", ErrUnknownEntry, name)
}

// Set writes a source. Inside Transaction the write is applied on commit.
func (s *Sheet) Set(name string, v cty.Value) error {
	src, err := s.source(name)
	if err != nil {
		return err
	}
	src.Set(v)
	return nil
}

// Apply writes every source in writes and propagates once. Nothing is
// written when one of the names is not a source.
func (s *Sheet) Apply(writes map[string]cty.Value) error {
	for name := range writes {
		if _, err := s.source(name); err != nil {
			return err
		}
	}
	return s.Transaction(func() error {
		for name, v := range writes {
			if err := s.Set(name, v); err != nil {
				return err
			}
		}
		return nil
	})
}

type abortTransaction struct {
	err error
}

// Transaction runs fn with writes staged and propagates them once fn returns.
// If fn fails its writes are discarded and the error is returned, unless the
// call is nested in another transaction, whose commit then applies them.
func (s *Sheet) Transaction(fn func() error) (err error) {
	if s.closed {
		return ErrClosed
	}
	defer func() {
		if r := recover(); r != nil {
			abort, ok := r.(abortTransaction)
			if !ok {
				panic(r)
			}
			err = abort.err
		}
	}()

	s.graph.Transaction(func() {
		if err := fn(); err != nil {
			panic(abortTransaction{err: err})
		}
	})
	return nil
}

// Watch calls fn with every new value of name until the sheet is closed or
// the returned observer is unsubscribed
func (s *Sheet) Watch(name string, fn func(cty.Value)) (*ripple.Observer, error) {
	sig, err := s.signal(name)
	if err != nil {
		return nil, err
	}
	obs := ripple.Observe(sig, fn, ripple.WithName("watch."+name))
	s.watchers = append(s.watchers, obs)
	return obs, nil
}

// Close stops every watcher and releases the sheet's nodes
func (s *Sheet) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, w := range s.watchers {
		if w.Valid() {
			w.Unsubscribe()
		}
	}
	for _, sig := range s.signals {
		sig.Release()
	}
	s.null.Release()
	s.watchers = nil
}
