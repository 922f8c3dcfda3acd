// Package metrics exposes the Prometheus collectors named in the
// expanded spec's ambient observability stack: tick duration/jitter,
// queue depth, commands processed, and persistence save outcomes.
// Grounded on the pack's two real `prometheus/client_golang` users
// (r3e's service layer, acdtunes-spacetraders) rather than the teacher,
// which has no metrics surface of its own.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the simulation and persistence bridge
// report into. A single instance is constructed in cmd/coreserver and
// threaded through via sim.Hooks and the command-handler wrapper there;
// the persistence bridge does not receive it.
type Metrics struct {
	TickDuration prometheus.Histogram
	TickJitter   prometheus.Histogram
	QueueDepth   prometheus.Gauge

	CommandsProcessed *prometheus.CounterVec

	SaveDuration prometheus.Histogram
	SavesTotal   *prometheus.CounterVec
}

// New registers every collector against a fresh registry and returns
// both, so the API server can serve the registry at `/metrics` without
// reaching into package-level globals.
func New() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coreserver",
			Subsystem: "sim",
			Name:      "tick_duration_seconds",
			Help:      "Wall-clock time spent running one full tick's system pipeline.",
			Buckets:   prometheus.DefBuckets,
		}),
		TickJitter: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coreserver",
			Subsystem: "sim",
			Name:      "tick_jitter_seconds",
			Help:      "Deviation of the actual inter-tick interval from the configured tick rate.",
			Buckets:   prometheus.DefBuckets,
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "coreserver",
			Subsystem: "sim",
			Name:      "command_queue_depth",
			Help:      "Number of commands waiting to be drained at the start of the most recent tick.",
		}),
		CommandsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coreserver",
			Subsystem: "sim",
			Name:      "commands_processed_total",
			Help:      "Commands drained from the queue, labeled by kind.",
		}, []string{"kind"}),
		SaveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coreserver",
			Subsystem: "persistence",
			Name:      "save_duration_seconds",
			Help:      "Wall-clock time spent running one periodic snapshot.",
			Buckets:   prometheus.DefBuckets,
		}),
		SavesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coreserver",
			Subsystem: "persistence",
			Name:      "saves_total",
			Help:      "Periodic snapshot runs, labeled by outcome (ok, skipped, failed).",
		}, []string{"outcome"}),
	}

	return m, reg
}

// ObserveTick records one tick's duration and scheduling jitter, for
// sim.Hooks.RecordTick.
func (m *Metrics) ObserveTick(duration, jitter time.Duration) {
	m.TickDuration.Observe(duration.Seconds())
	if jitter < 0 {
		jitter = -jitter
	}
	m.TickJitter.Observe(jitter.Seconds())
}

// ObserveQueueDepth feeds sim.Hooks.RecordQueueDepth.
func (m *Metrics) ObserveQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}

// ObserveCommand increments the per-kind command counter.
func (m *Metrics) ObserveCommand(kind string) {
	m.CommandsProcessed.WithLabelValues(kind).Inc()
}

// Outcome enumerates the labels ObserveSave accepts.
type Outcome string

const (
	SaveOK      Outcome = "ok"
	SaveSkipped Outcome = "skipped"
	SaveFailed  Outcome = "failed"
)

// ObserveSave records one snapshot run's duration and outcome.
func (m *Metrics) ObserveSave(duration time.Duration, outcome Outcome) {
	m.SaveDuration.Observe(duration.Seconds())
	m.SavesTotal.WithLabelValues(string(outcome)).Inc()
}
