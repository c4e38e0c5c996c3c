package extensions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/m1gwings/treedrawer/tree"

	"github.com/pumped-fn/ripple"
)

// GraphDebugExtension logs the dependency tree of the failing node when a
// computation or observer panics during propagation.
//
// Usage:
//
//	// Human-readable formatted output (with line breaks)
//	handler := extensions.NewHumanHandler(os.Stdout, slog.LevelError)
//	ext := extensions.NewGraphDebugExtension(handler)
//
//	// Structured JSON logging (compact, machine-readable)
//	handler := slog.NewJSONHandler(os.Stdout, nil)
//	ext := extensions.NewGraphDebugExtension(handler)
//
//	// Silent (for testing)
//	ext := extensions.NewGraphDebugExtension(extensions.NewSilentHandler())
//
// The panic is re-raised after logging.
type GraphDebugExtension struct {
	ripple.BaseExtension

	// Nodes recomputed by the running commit, with their change flag
	recomputed map[uint64]bool
	logger     *slog.Logger
	maxDepth   int
}

// NewGraphDebugExtension creates a new graph debug extension.
// logHandler: slog.Handler for logging (use HumanHandler for formatted output, or any other slog.Handler)
func NewGraphDebugExtension(logHandler slog.Handler) *GraphDebugExtension {
	return &GraphDebugExtension{
		BaseExtension: ripple.NewBaseExtension("graph-debug"),
		recomputed:    make(map[uint64]bool),
		logger:        slog.New(logHandler),
		maxDepth:      8,
	}
}

// Order runs the extension outside the others so it sees every panic
func (e *GraphDebugExtension) Order() int {
	return 10
}

// Wrap tracks recomputations and reports panics
func (e *GraphDebugExtension) Wrap(ctx context.Context, next func(), op *ripple.Operation) {
	clear(e.recomputed)
	defer func() {
		if r := recover(); r != nil {
			e.report(op, r)
			panic(r)
		}
	}()
	next()
}

// OnRecompute records nodes visited by the running commit
func (e *GraphDebugExtension) OnRecompute(g *ripple.Graph, node ripple.NodeInfo, changed bool) {
	e.recomputed[node.ID()] = changed
}

func (e *GraphDebugExtension) report(op *ripple.Operation, recovered any) {
	stack := debug.Stack()
	if pe, ok := ripple.AsPrecondition(recovered); ok {
		stack = pe.StackTrace
	}

	attrs := []any{
		"operation", string(op.Kind),
		"panic", fmt.Sprintf("%v", recovered),
		"stack_trace", string(stack),
	}

	if failed := op.Graph.Ticking(); failed != nil {
		attrs = append(attrs,
			"node", failed.Name(),
			"dependency_graph", e.formatDependencyGraph(failed),
		)
	} else if op.Node != nil {
		attrs = append(attrs, "node", op.Node.Name())
	}

	e.logger.Error("Propagation Panic", attrs...)
}

func (e *GraphDebugExtension) formatDependencyGraph(failed ripple.NodeInfo) string {
	return "\n" + DrawDependencies(failed, e.maxDepth, func(n ripple.NodeInfo) string {
		if n.ID() == failed.ID() {
			return " ❌ FAILED"
		}
		changed, visited := e.recomputed[n.ID()]
		switch {
		case !visited:
			return ""
		case changed:
			return " ✓"
		default:
			return " (unchanged)"
		}
	})
}

// DrawDependencies renders node and, recursively, the nodes it depends on as
// a text tree. annotate may be nil; its result is appended to each label.
func DrawDependencies(node ripple.NodeInfo, maxDepth int, annotate func(ripple.NodeInfo) string) string {
	t := tree.NewTree(tree.NodeString(nodeLabel(node, annotate)))
	addPredecessors(t, node, 1, maxDepth, annotate)
	return t.String()
}

func addPredecessors(t *tree.Tree, node ripple.NodeInfo, depth, maxDepth int, annotate func(ripple.NodeInfo) string) {
	for _, pred := range node.Predecessors() {
		if depth >= maxDepth {
			t.AddChild(tree.NodeString("..."))
			return
		}
		child := t.AddChild(tree.NodeString(nodeLabel(pred, annotate)))
		addPredecessors(child, pred, depth+1, maxDepth, annotate)
	}
}

func nodeLabel(n ripple.NodeInfo, annotate func(ripple.NodeInfo) string) string {
	var sb strings.Builder
	sb.WriteString(n.Name())
	if v := n.Value(); v != "" {
		sb.WriteString(" = ")
		sb.WriteString(v)
	}
	sb.WriteString(fmt.Sprintf(" [L%d]", n.Level()))
	if annotate != nil {
		sb.WriteString(annotate(n))
	}
	return sb.String()
}

// SilentHandler is a slog.Handler that discards all log output
// Useful for testing when you don't want log output
type SilentHandler struct{}

// NewSilentHandler creates a new silent log handler
func NewSilentHandler() *SilentHandler {
	return &SilentHandler{}
}

func (h *SilentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return false
}

func (h *SilentHandler) Handle(ctx context.Context, record slog.Record) error {
	return nil
}

func (h *SilentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *SilentHandler) WithGroup(name string) slog.Handler {
	return h
}

// HumanHandler is a slog.Handler that formats logs for human readability
// with proper line breaks and visual formatting (especially for dependency graphs)
type HumanHandler struct {
	writer io.Writer
	level  slog.Level
}

// NewHumanHandler creates a new human-readable log handler
func NewHumanHandler(writer io.Writer, level slog.Level) *HumanHandler {
	return &HumanHandler{
		writer: writer,
		level:  level,
	}
}

func (h *HumanHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *HumanHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Message == "Propagation Panic" {
		return h.handlePropagationPanic(record)
	}

	if _, err := fmt.Fprintf(h.writer, "[%s] %s\n", record.Level, record.Message); err != nil {
		return err
	}
	var writeErr error
	record.Attrs(func(a slog.Attr) bool {
		if _, err := fmt.Fprintf(h.writer, "  %s: %v\n", a.Key, a.Value); err != nil {
			writeErr = err
			return false
		}
		return true
	})
	return writeErr
}

func (h *HumanHandler) handlePropagationPanic(record slog.Record) error {
	var node, panicMsg, operation, dependencyGraph, stackTrace string

	record.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "node":
			node = a.Value.String()
		case "panic":
			panicMsg = a.Value.String()
		case "operation":
			operation = a.Value.String()
		case "dependency_graph":
			dependencyGraph = a.Value.String()
		case "stack_trace":
			stackTrace = a.Value.String()
		}
		return true
	})

	separator := strings.Repeat("=", 70)
	var sb strings.Builder
	sb.WriteString("\n" + separator + "\n")
	sb.WriteString("[GraphDebug] Propagation Panic\n")
	sb.WriteString(separator + "\n")
	if node != "" {
		sb.WriteString(fmt.Sprintf("\nFailed Node: %s\n", node))
	}
	sb.WriteString(fmt.Sprintf("Panic: %s\n", panicMsg))
	sb.WriteString(fmt.Sprintf("Operation: %s\n", operation))
	if dependencyGraph != "" {
		sb.WriteString(fmt.Sprintf("\nDependency Graph:%s\n", dependencyGraph))
	}
	sb.WriteString(fmt.Sprintf("\nStack Trace:\n%s\n", stackTrace))
	sb.WriteString(separator + "\n\n")

	_, err := io.WriteString(h.writer, sb.String())
	return err
}

func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *HumanHandler) WithGroup(name string) slog.Handler {
	return h
}
