package timer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/compose-network/countdown/metrics"
)

// Metrics holds engine-level metrics.
type Metrics struct {
	TimersTotal      prometheus.Gauge
	TimersRunning    prometheus.Gauge
	TicksTotal       prometheus.Counter
	ExpirationsTotal prometheus.Counter
	CommandsTotal    *prometheus.CounterVec
	SpawnErrorsTotal prometheus.Counter
	StartedDuration  prometheus.Histogram
}

// NewMetrics registers engine metrics on the process registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(metrics.NewComponentRegistry("countdown", "engine"))
}

// NewMetricsWith registers engine metrics on reg.
func NewMetricsWith(reg *metrics.ComponentRegistry) *Metrics {
	return &Metrics{
		TimersTotal: reg.NewGauge(prometheus.GaugeOpts{
			Name: "timers",
			Help: "Number of timers in the collection",
		}),

		TimersRunning: reg.NewGauge(prometheus.GaugeOpts{
			Name: "timers_running",
			Help: "Number of timers with an active tick task",
		}),

		TicksTotal: reg.NewCounter(prometheus.CounterOpts{
			Name: "ticks_total",
			Help: "Total number of countdown ticks applied",
		}),

		ExpirationsTotal: reg.NewCounter(prometheus.CounterOpts{
			Name: "expirations_total",
			Help: "Total number of timers that reached zero",
		}),

		CommandsTotal: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "commands_total",
			Help: "Total number of timer commands by name",
		}, []string{"command"}),

		SpawnErrorsTotal: reg.NewCounter(prometheus.CounterOpts{
			Name: "spawn_errors_total",
			Help: "Total number of tick tasks that could not be scheduled",
		}),

		StartedDuration: reg.NewHistogram(prometheus.HistogramOpts{
			Name:    "started_duration_seconds",
			Help:    "Remaining seconds at the moment a countdown is started",
			Buckets: metrics.CountdownBuckets,
		}),
	}
}

// Each recorder is safe on a nil receiver so timers built without metrics skip them.

func (m *Metrics) recordCommand(name string) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(name).Inc()
}

func (m *Metrics) recordStarted(remaining int) {
	if m == nil {
		return
	}
	m.TimersRunning.Inc()
	m.StartedDuration.Observe(float64(remaining))
}

func (m *Metrics) recordReleased() {
	if m == nil {
		return
	}
	m.TimersRunning.Dec()
}

func (m *Metrics) recordTick() {
	if m == nil {
		return
	}
	m.TicksTotal.Inc()
}

func (m *Metrics) recordExpired() {
	if m == nil {
		return
	}
	m.ExpirationsTotal.Inc()
}

func (m *Metrics) recordSpawnError() {
	if m == nil {
		return
	}
	m.SpawnErrorsTotal.Inc()
}

func (m *Metrics) recordTimers(n int) {
	if m == nil {
		return
	}
	m.TimersTotal.Set(float64(n))
}
