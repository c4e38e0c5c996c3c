package extensions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pumped-fn/ripple"
)

// LoggingExtension logs every write, modify and transaction along with the
// pulses it caused
type LoggingExtension struct {
	ripple.BaseExtension
	logger *slog.Logger
}

// NewLoggingExtension creates a new logging extension. A nil logger uses slog.Default().
func NewLoggingExtension(logger *slog.Logger) *LoggingExtension {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingExtension{
		BaseExtension: ripple.NewBaseExtension("logging"),
		logger:        logger,
	}
}

func (e *LoggingExtension) Wrap(ctx context.Context, next func(), op *ripple.Operation) {
	start := time.Now()
	attrs := []any{"extension", e.Name(), "operation", string(op.Kind)}
	if op.Node != nil {
		attrs = append(attrs, "node", op.Node.Name())
	}
	e.logger.InfoContext(ctx, "operation starting", attrs...)

	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "operation failed",
				append(attrs, "duration", time.Since(start), "panic", fmt.Sprintf("%v", r))...)
			panic(r)
		}
	}()
	next()

	e.logger.InfoContext(ctx, "operation completed", append(attrs, "duration", time.Since(start))...)
}

func (e *LoggingExtension) OnPulse(g *ripple.Graph, stats ripple.PulseStats) {
	e.logger.Debug("pulse",
		"extension", e.Name(),
		"pulse", stats.Pulse,
		"recomputed", stats.Recomputed,
		"changed", stats.Changed,
		"max_level", stats.MaxLevel,
	)
}
