// Package metrics records persistence activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/gradebook/internal/storage"
)

// Ensure Metrics implements storage.Observer
var _ storage.Observer = (*Metrics)(nil)

// Metrics holds the gradebook collectors.
type Metrics struct {
	saves        *prometheus.CounterVec
	loads        *prometheus.CounterVec
	mirrors      *prometheus.CounterVec
	snapshotSize prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradebook",
			Name:      "saves_total",
			Help:      "Collection saves by outcome.",
		}, []string{"outcome"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradebook",
			Name:      "loads_total",
			Help:      "Collection loads by the tier that served them.",
		}, []string{"tier"}),
		mirrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradebook",
			Name:      "mirror_writes_total",
			Help:      "Backup mirror writes by tier and result.",
		}, []string{"tier", "result"}),
		snapshotSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gradebook",
			Name:      "snapshot_size_chars",
			Help:      "Size of the last collection written to the primary store.",
		}),
	}
	reg.MustRegister(m.saves, m.loads, m.mirrors, m.snapshotSize)
	return m
}

// SaveCompleted counts a save and records the size written.
func (m *Metrics) SaveCompleted(outcome storage.SaveOutcome, size int) {
	m.saves.WithLabelValues(string(outcome)).Inc()
	if outcome == storage.SaveOK || outcome == storage.SaveDegraded {
		m.snapshotSize.Set(float64(size))
	}
}

// Loaded counts a load by the tier that served it.
func (m *Metrics) Loaded(tier string, semesters int) {
	m.loads.WithLabelValues(tier).Inc()
}

// Mirrored counts a mirror write.
func (m *Metrics) Mirrored(tier string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.mirrors.WithLabelValues(tier, result).Inc()
}
