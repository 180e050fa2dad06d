package metrics

import (
	"strings"

	"github.com/mcdev12/streamscore/go/internal/scoreboard"
	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics tracks state replacements.
type StoreMetrics struct {
	Replacements *prometheus.CounterVec
	Revision     prometheus.Gauge
}

// NewStoreMetrics creates and registers store metrics on the given registry.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		Replacements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "replacements_total",
			Help:      "Total number of match state replacements by source.",
		}, []string{"source"}),
		Revision: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "revision",
			Help:      "Revision of the current match state snapshot.",
		}),
	}

	reg.MustRegister(m.Replacements, m.Revision)
	return m
}

// SnapshotReplaced implements scoreboard.Listener
func (m *StoreMetrics) SnapshotReplaced(snap scoreboard.Snapshot) {
	m.Replacements.WithLabelValues(source(snap.Origin)).Inc()
	m.Revision.Set(float64(snap.Revision))
}

// source collapses origins into a bounded label set
func source(origin string) string {
	switch {
	case origin == "api":
		return "api"
	case strings.HasPrefix(origin, "relay:"):
		return "relay"
	case origin == "":
		return "internal"
	default:
		return "websocket"
	}
}
