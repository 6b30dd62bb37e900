// Package observability provides Prometheus metrics for the terraseries
// pipeline and the optional HTTP endpoint that exposes them.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tkorpela/terraseries/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Pipeline *metrics.PipelineMetrics
	Archive  *metrics.ArchiveMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric
// collectors. It returns an error if any collector fails to register.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	pipelineMetrics, err := metrics.NewPipelineMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	archiveMetrics, err := metrics.NewArchiveMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Pipeline: pipelineMetrics,
		Archive:  archiveMetrics,
	}, nil
}

// Registry exposes the underlying registry for the telemetry endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
