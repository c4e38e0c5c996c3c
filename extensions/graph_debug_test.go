package extensions

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumped-fn/ripple"
)

func TestGraphDebugExtension_ReportsFailedNode(t *testing.T) {
	var buf bytes.Buffer
	handler := NewHumanHandler(&buf, slog.LevelError)

	g := ripple.NewGraph(ripple.WithExtension(NewGraphDebugExtension(handler)))
	defer g.Dispose()

	storage := ripple.NewSource(g, "storage", ripple.WithName("Storage"))
	users := ripple.Derive1(storage, func(s string) int {
		if s == "broken" {
			panic("type assertion failed: expected *User")
		}
		return len(s)
	}, ripple.WithName("UserService"))

	assert.PanicsWithValue(t, "type assertion failed: expected *User", func() {
		storage.Set("broken")
	})
	assert.Equal(t, 7, users.Value(), "failed recompute keeps the previous value")

	output := buf.String()
	assert.Contains(t, output, strings.Repeat("=", 70))
	assert.Contains(t, output, "[GraphDebug] Propagation Panic")
	assert.Contains(t, output, "Failed Node: UserService")
	assert.Contains(t, output, "Panic: type assertion failed")
	assert.Contains(t, output, "Operation: write")
	assert.Contains(t, output, "Dependency Graph:")
	assert.Contains(t, output, "UserService = 7 [L1] ❌ FAILED")
	assert.Contains(t, output, "Storage = broken [L0]")
	assert.Contains(t, output, "Stack Trace:")

	storage.Set("ok")
	assert.Equal(t, 2, users.Value(), "graph keeps working after the panic")
}

func TestGraphDebugExtension_TracksRecomputedNodes(t *testing.T) {
	ext := NewGraphDebugExtension(NewSilentHandler())
	g := ripple.NewGraph(ripple.WithExtension(ext))
	defer g.Dispose()

	x := ripple.NewSource(g, 1)
	parity := ripple.Derive1(x, func(v int) bool { return v%2 == 0 })
	label := ripple.Derive1(parity, func(even bool) string {
		if even {
			return "even"
		}
		return "odd"
	})

	x.Set(3)

	assert.Equal(t, map[uint64]bool{parity.Info().ID(): false}, ext.recomputed)

	x.Set(4)
	assert.Equal(t, map[uint64]bool{
		parity.Info().ID(): true,
		label.Info().ID():  true,
	}, ext.recomputed)
}

func TestGraphDebugExtension_PreconditionUsesCapturedStack(t *testing.T) {
	var buf bytes.Buffer
	g := ripple.NewGraph(ripple.WithExtension(NewGraphDebugExtension(slog.NewJSONHandler(&buf, nil))))
	defer g.Dispose()

	x := ripple.NewSource(g, 0, ripple.WithName("x"))
	selected := ripple.NewSource(g, ripple.Signal[int]{})

	assert.Panics(t, func() {
		g.Transaction(func() {
			x.Set(1)
			ripple.Flatten(selected.Signal)
		})
	})
	assert.Zero(t, x.Value(), "staged write was discarded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Propagation Panic", entry["msg"])
	assert.Equal(t, "transaction", entry["operation"])
	assert.Contains(t, entry["panic"], "precondition violated")
	assert.NotEmpty(t, entry["stack_trace"])
	assert.NotContains(t, entry, "dependency_graph", "no node was ticking")
}

func TestDrawDependencies(t *testing.T) {
	g := ripple.NewGraph()
	defer g.Dispose()

	config := ripple.NewSource(g, "cfg", ripple.WithName("Config"))
	storage := ripple.NewSource(g, "db", ripple.WithName("Storage"))
	service := ripple.Derive2(config, storage, func(c, s string) string {
		return c + "-" + s
	}, ripple.WithName("Service"))

	out := DrawDependencies(service.Info(), 8, nil)
	assert.Contains(t, out, "Service = cfg-db [L1]")
	assert.Contains(t, out, "Config = cfg [L0]")
	assert.Contains(t, out, "Storage = db [L0]")

	shallow := DrawDependencies(service.Info(), 1, func(ripple.NodeInfo) string { return " *" })
	assert.Contains(t, shallow, "Service = cfg-db [L1] *")
	assert.Contains(t, shallow, "...")
	assert.NotContains(t, shallow, "Config")
}

func TestHumanHandler_PlainRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHumanHandler(&buf, slog.LevelInfo))

	logger.Debug("hidden")
	logger.Info("pulse finished", "recomputed", 3)

	assert.Equal(t, "[INFO] pulse finished\n  recomputed: 3\n", buf.String())
}
