package extensions

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pumped-fn/ripple"
)

const (
	metricsNamespace = "ripple"
	metricsSubsystem = "engine"
)

// MetricsExtension exports propagation counters to Prometheus.
//
// Metrics are registered on the given registerer, so several graphs sharing
// one registerer need one shared extension value.
type MetricsExtension struct {
	ripple.BaseExtension

	// operations counts outermost writes, modifies and transactions.
	// Labels: operation, outcome (ok, panic)
	operations *prometheus.CounterVec

	// recomputations counts node recomputes.
	// Labels: changed (true, false)
	recomputations *prometheus.CounterVec

	pulses        prometheus.Counter
	promotions    prometheus.Counter
	pulseDuration prometheus.Histogram
	maxLevel      prometheus.Gauge
}

// NewMetricsExtension registers the engine metrics on reg
func NewMetricsExtension(reg prometheus.Registerer) *MetricsExtension {
	factory := promauto.With(reg)
	return &MetricsExtension{
		BaseExtension: ripple.NewBaseExtension("metrics"),
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "operations_total",
			Help:      "Writes, modifies and transactions started from idle",
		}, []string{"operation", "outcome"}),
		recomputations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "recomputations_total",
			Help:      "Node recomputes by whether the value changed",
		}, []string{"changed"}),
		pulses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "pulses_total",
			Help:      "Propagation passes",
		}),
		promotions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "promotions_total",
			Help:      "Nodes re-queued at a higher level during propagation",
		}),
		pulseDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "pulse_duration_seconds",
			Help:      "Propagation pass latency in seconds",
			Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		maxLevel: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "max_level",
			Help:      "Highest level visited by the last pulse",
		}),
	}
}

func (e *MetricsExtension) Wrap(ctx context.Context, next func(), op *ripple.Operation) {
	outcome := "panic"
	defer func() {
		e.operations.WithLabelValues(string(op.Kind), outcome).Inc()
	}()
	next()
	outcome = "ok"
}

func (e *MetricsExtension) OnPulse(g *ripple.Graph, stats ripple.PulseStats) {
	e.pulses.Inc()
	e.promotions.Add(float64(stats.Promotions))
	e.pulseDuration.Observe(stats.Duration.Seconds())
	e.maxLevel.Set(float64(stats.MaxLevel))
}

func (e *MetricsExtension) OnRecompute(g *ripple.Graph, node ripple.NodeInfo, changed bool) {
	e.recomputations.WithLabelValues(strconv.FormatBool(changed)).Inc()
}
