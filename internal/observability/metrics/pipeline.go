package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics contains Prometheus metrics for analysis pipeline runs.
type PipelineMetrics struct {
	runsTotal            *prometheus.CounterVec
	runDuration          *prometheus.HistogramVec
	tierEscalationsTotal *prometheus.CounterVec
	pointsProducedTotal  *prometheus.CounterVec
	coverageFallbacks    prometheus.Counter
}

// NewPipelineMetrics creates and registers new pipeline metrics.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	m.initMetrics()
	for _, c := range m.collectors() {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of analysis pipeline runs",
		},
		[]string{"kind", "status"}, // status: success, error
	)

	m.runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_run_duration_seconds",
			Help: "Time taken by one analysis pipeline run",
			// A run spans several blocking archive round-trips, 1s to ~17min
			Buckets: prometheus.ExponentialBuckets(BucketStart1s, BucketFactor2, BucketCount10),
		},
		[]string{"kind"},
	)

	m.tierEscalationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_tier_escalations_total",
			Help: "Total number of tier escalations after compute-limit rejections",
		},
		[]string{"from", "to"},
	)

	m.pointsProducedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_points_produced_total",
			Help: "Total number of observation points produced",
		},
		[]string{"tier"},
	)

	m.coverageFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_coverage_fallbacks_total",
			Help: "Runs where coverage filtering removed every candidate and the unfiltered set was used",
		},
	)
}

func (m *PipelineMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.runsTotal,
		m.runDuration,
		m.tierEscalationsTotal,
		m.pointsProducedTotal,
		m.coverageFallbacks,
	}
}

// RecordRun records the outcome of one pipeline run.
func (m *PipelineMetrics) RecordRun(kind, status string) {
	m.runsTotal.WithLabelValues(kind, status).Inc()
}

// RecordRunDuration records how long one pipeline run took.
func (m *PipelineMetrics) RecordRunDuration(kind string, seconds float64) {
	m.runDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordTierEscalation records one compute-limit driven escalation.
func (m *PipelineMetrics) RecordTierEscalation(from, to string) {
	m.tierEscalationsTotal.WithLabelValues(from, to).Inc()
}

// RecordPointsProduced records points produced by the given tier.
func (m *PipelineMetrics) RecordPointsProduced(tier string, count int) {
	m.pointsProducedTotal.WithLabelValues(tier).Add(float64(count))
}

// RecordCoverageFallback records one fallback to the unfiltered candidate set.
func (m *PipelineMetrics) RecordCoverageFallback() {
	m.coverageFallbacks.Inc()
}
