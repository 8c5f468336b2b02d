package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector a Shard reports through. The
// zero value is not usable; build one with NewMetrics, which registers
// every collector against reg. Passing prometheus.NewRegistry() gives an
// isolated registry suitable for tests; passing nil registers against the
// default global registry.
type Metrics struct {
	changesProcessed *prometheus.CounterVec
	pendingLength    prometheus.Gauge
	frontierAdvances *prometheus.CounterVec
	recomputes       *prometheus.CounterVec
}

// NewMetrics constructs and registers a Metrics against reg. If reg is nil,
// prometheus.DefaultRegisterer is used.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		changesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dflow",
			Name:      "changes_processed_total",
			Help:      "Number of individual row changes the executor has processed, by node kind.",
		}, []string{"kind"}),
		pendingLength: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dflow",
			Name:      "pending_queue_length",
			Help:      "Number of work items currently queued for Shard.DoWork.",
		}),
		frontierAdvances: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dflow",
			Name:      "frontier_advances_total",
			Help:      "Number of times a node's output frontier moved forward, by node kind.",
		}, []string{"kind"}),
		recomputes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dflow",
			Name:      "recomputes_total",
			Help:      "Number of Index/Distinct/Reduce timestamps released by a frontier advance, by node kind.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) observeProcessed(kind NodeKind, n int) {
	if m == nil {
		return
	}
	m.changesProcessed.WithLabelValues(kind.String()).Add(float64(n))
}

func (m *Metrics) observePendingLength(n int) {
	if m == nil {
		return
	}
	m.pendingLength.Set(float64(n))
}

func (m *Metrics) observeFrontierAdvance(kind NodeKind) {
	if m == nil {
		return
	}
	m.frontierAdvances.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) observeRecompute(kind NodeKind) {
	if m == nil {
		return
	}
	m.recomputes.WithLabelValues(kind.String()).Inc()
}
