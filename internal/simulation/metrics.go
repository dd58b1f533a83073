package simulation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "causalsim"

// Metrics holds the orchestrator's Prometheus instruments. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	// ReplicationsTotal counts completed replications.
	// Labels: scenario
	ReplicationsTotal *prometheus.CounterVec

	// RedrawsTotal counts discarded draws.
	// Labels: scenario, reason (degenerate, linalg, bootstrap)
	RedrawsTotal *prometheus.CounterVec

	// ReplicationSeconds measures wall time per completed replication,
	// redraws included.
	// Labels: scenario
	ReplicationSeconds *prometheus.HistogramVec
}

// NewMetrics creates the instruments and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReplicationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "replications_total",
				Help:      "Completed Monte Carlo replications by scenario",
			},
			[]string{"scenario"},
		),
		RedrawsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "redraws_total",
				Help:      "Discarded draws by scenario and failure reason",
			},
			[]string{"scenario", "reason"},
		),
		ReplicationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "replication_seconds",
				Help:      "Wall time per replication in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"scenario"},
		),
	}
}

func (m *Metrics) recordReplication(scenario string, d time.Duration) {
	if m == nil {
		return
	}
	m.ReplicationsTotal.WithLabelValues(scenario).Inc()
	m.ReplicationSeconds.WithLabelValues(scenario).Observe(d.Seconds())
}

func (m *Metrics) recordRedraw(scenario, reason string) {
	if m == nil {
		return
	}
	m.RedrawsTotal.WithLabelValues(scenario, reason).Inc()
}

// Snapshot gathers reg and returns the causalsim counter totals keyed by
// metric name, summed over labels. Histograms report their sample count.
func Snapshot(reg prometheus.Gatherer) (map[string]float64, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				out[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				out[mf.GetName()+"_count"] += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out, nil
}
