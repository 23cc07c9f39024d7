package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCycleMetrics() {
	r.CyclesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskgraph_cycles_total",
			Help: "Total number of maintenance cycles by final status",
		},
		[]string{"status"},
	)

	r.CycleDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "riskgraph_cycle_duration_seconds",
			Help:    "Maintenance cycle duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 30, 120, 600},
		},
	)

	r.StageDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "riskgraph_stage_duration_seconds",
			Help:    "Duration of each cycle stage in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
		},
		[]string{"stage"},
	)

	r.LastCycleTimestamp = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "riskgraph_last_cycle_timestamp_seconds",
			Help: "Unix time the last cycle finished",
		},
	)

	r.LastSuccessTimestamp = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "riskgraph_last_success_timestamp_seconds",
			Help: "Unix time the last fully successful cycle finished",
		},
	)
}
