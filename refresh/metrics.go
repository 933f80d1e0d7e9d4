package refresh

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the refresh cycle.
type Metrics struct {
	cycles   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	triples  *prometheus.GaugeVec
}

// NewMetrics registers the refresh collectors on reg; nil registers on the
// default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zotero_refresh_cycles_total",
			Help: "Refresh cycles per library and outcome.",
		}, []string{"library", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zotero_refresh_duration_seconds",
			Help:    "Wall time of one refresh cycle.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"library"}),
		triples: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "zotero_graph_triples",
			Help: "Triples loaded into a named graph by the last refresh.",
		}, []string{"graph"}),
	}
}

func (m *Metrics) observe(library string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.cycles.WithLabelValues(library, outcome).Inc()
	m.duration.WithLabelValues(library).Observe(d.Seconds())
}

func (m *Metrics) setGraphSize(graph string, triples int) {
	if m == nil {
		return
	}
	m.triples.WithLabelValues(graph).Set(float64(triples))
}
