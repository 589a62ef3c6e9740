// Package metrics exposes Prometheus metrics for group supervision.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loopcast/internal/events"
	"loopcast/internal/process"
)

// Metrics holds Prometheus collectors for the streamer.
type Metrics struct {
	registry      *prometheus.Registry
	groups        prometheus.Gauge
	groupUp       *prometheus.GaugeVec
	restartsTotal *prometheus.CounterVec
}

// New creates and registers the Prometheus metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	groups := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "loopcast_groups",
		Help: "Number of stream groups under supervision",
	})
	groupUp := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "loopcast_group_up",
		Help: "Whether the group's encoder process is currently running",
	}, []string{"group"})
	restartsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loopcast_restarts_total",
		Help: "Total number of encoder restarts after unexpected exits",
	}, []string{"group"})

	registry.MustRegister(groups, groupUp, restartsTotal)

	return &Metrics{
		registry:      registry,
		groups:        groups,
		groupUp:       groupUp,
		restartsTotal: restartsTotal,
	}
}

// SetGroupCount records the number of supervised groups.
func (m *Metrics) SetGroupCount(n int) {
	m.groups.Set(float64(n))
}

// Observe subscribes to the event bus and keeps the collectors current.
// Returns an unsubscribe function.
func (m *Metrics) Observe(bus *events.Bus) func() {
	unsubState := bus.Subscribe(func(e events.GroupStateChangedEvent) {
		switch process.State(e.NewState) {
		case process.StateRunning:
			m.groupUp.WithLabelValues(e.GroupID).Set(1)
		default:
			m.groupUp.WithLabelValues(e.GroupID).Set(0)
		}
	})
	unsubRestart := bus.Subscribe(func(e events.GroupRestartedEvent) {
		m.restartsTotal.WithLabelValues(e.GroupID).Inc()
	})

	return func() {
		unsubState()
		unsubRestart()
	}
}

// Handler returns the HTTP handler serving the metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
