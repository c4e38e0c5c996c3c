package extensions

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/pumped-fn/ripple"
)

const instrumentationName = "github.com/pumped-fn/ripple"

// TelemetryOption configures a TelemetryExtension
type TelemetryOption func(*TelemetryExtension)

// WithTracerProvider overrides the global tracer provider
func WithTracerProvider(tp trace.TracerProvider) TelemetryOption {
	return func(e *TelemetryExtension) {
		e.tracer = tp.Tracer(instrumentationName)
	}
}

// WithMeterProvider overrides the global meter provider
func WithMeterProvider(mp metric.MeterProvider) TelemetryOption {
	return func(e *TelemetryExtension) {
		e.meter = mp.Meter(instrumentationName)
	}
}

// TelemetryExtension traces every operation that starts a commit.
//
// Each write, modify or transaction becomes a span named "ripple.<operation>".
// Pulses run inside it are recorded as span events. A panic marks the span as
// failed before it continues unwinding.
type TelemetryExtension struct {
	ripple.BaseExtension

	tracer trace.Tracer
	meter  metric.Meter

	// Span of the running operation; a graph runs one at a time
	span trace.Span

	pulseDuration  metric.Float64Histogram
	recomputations metric.Int64Counter
}

// NewTelemetryExtension creates a telemetry extension using the global
// providers unless overridden
func NewTelemetryExtension(opts ...TelemetryOption) *TelemetryExtension {
	e := &TelemetryExtension{
		BaseExtension: ripple.NewBaseExtension("telemetry"),
		tracer:        otel.Tracer(instrumentationName),
		meter:         otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Order places spans outside the metrics and logging extensions
func (e *TelemetryExtension) Order() int {
	return 50
}

func (e *TelemetryExtension) Init(g *ripple.Graph) error {
	var errs []error
	var err error

	e.pulseDuration, err = e.meter.Float64Histogram("ripple_pulse_duration_seconds",
		metric.WithDescription("Time spent in one propagation pass"),
		metric.WithUnit("s"),
	)
	if err != nil {
		errs = append(errs, fmt.Errorf("pulse duration: %w", err))
	}

	e.recomputations, err = e.meter.Int64Counter("ripple_recomputations_total",
		metric.WithDescription("Number of node recomputes"),
	)
	if err != nil {
		errs = append(errs, fmt.Errorf("recomputations: %w", err))
	}

	return errors.Join(errs...)
}

func (e *TelemetryExtension) Wrap(ctx context.Context, next func(), op *ripple.Operation) {
	attrs := []attribute.KeyValue{
		attribute.String("ripple.graph", op.Graph.ID().String()),
		attribute.String("ripple.operation", string(op.Kind)),
	}
	if op.Node != nil {
		attrs = append(attrs, attribute.String("ripple.node", op.Node.Name()))
	}

	_, span := e.tracer.Start(ctx, "ripple."+string(op.Kind), trace.WithAttributes(attrs...))
	e.span = span
	defer func() {
		e.span = nil
		if r := recover(); r != nil {
			if failed := op.Graph.Ticking(); failed != nil {
				span.SetAttributes(attribute.String("ripple.failed_node", failed.Name()))
			}
			span.RecordError(fmt.Errorf("%v", r))
			span.SetStatus(codes.Error, "propagation panicked")
			span.End()
			panic(r)
		}
		span.SetStatus(codes.Ok, "")
		span.End()
	}()
	next()
}

func (e *TelemetryExtension) OnPulse(g *ripple.Graph, stats ripple.PulseStats) {
	graphAttr := attribute.String("ripple.graph", g.ID().String())
	if e.pulseDuration != nil {
		e.pulseDuration.Record(g.Context(), stats.Duration.Seconds(), metric.WithAttributes(graphAttr))
	}
	if e.span == nil {
		return
	}
	e.span.AddEvent("pulse", trace.WithAttributes(
		attribute.Int64("ripple.pulse", int64(stats.Pulse)),
		attribute.Int("ripple.inputs", stats.Inputs),
		attribute.Int("ripple.recomputed", stats.Recomputed),
		attribute.Int("ripple.changed", stats.Changed),
		attribute.Int("ripple.max_level", stats.MaxLevel),
	))
}

func (e *TelemetryExtension) OnRecompute(g *ripple.Graph, node ripple.NodeInfo, changed bool) {
	if e.recomputations == nil {
		return
	}
	e.recomputations.Add(g.Context(), 1, metric.WithAttributes(attribute.Bool("changed", changed)))
}
