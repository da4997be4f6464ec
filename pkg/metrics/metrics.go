// Package metrics exposes Prometheus collectors for the simulation
// server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the server's Prometheus instruments.
type Collector struct {
	// API metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Simulation metrics
	RunsTotal           *prometheus.CounterVec
	RunDuration         prometheus.Histogram
	StepsSimulated      prometheus.Counter
	UnconvergedSteps    prometheus.Counter
	ActiveStreamClients prometheus.Gauge
}

// NewCollector registers the collectors under namespace with the default
// registry.
func NewCollector(namespace string) *Collector {
	return &Collector{
		APIRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "API requests by endpoint, method and status",
			},
			[]string{"endpoint", "method", "status"},
		),
		APIRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"endpoint"},
		),
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "simulation_runs_total",
				Help:      "Completed simulation runs by outcome",
			},
			[]string{"outcome"},
		),
		RunDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "simulation_run_duration_seconds",
				Help:      "Wall-clock duration of simulation runs",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),
		StepsSimulated: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "simulation_steps_total",
				Help:      "Simulation steps executed",
			},
		),
		UnconvergedSteps: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "simulation_unconverged_steps_total",
				Help:      "Steps where the solver/dispatch exchange failed to settle",
			},
		),
		ActiveStreamClients: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stream_clients",
				Help:      "Connected result stream clients",
			},
		),
	}
}

// ObserveRequest records one handled API request.
func (c *Collector) ObserveRequest(endpoint, method, status string, start time.Time) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
	c.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
