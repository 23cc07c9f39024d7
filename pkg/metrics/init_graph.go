package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.GraphNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "riskgraph_graph_nodes",
			Help: "Nodes in the last analysed snapshot",
		},
	)

	r.GraphEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "riskgraph_graph_edges",
			Help: "Edges in the last analysed snapshot",
		},
	)

	r.GraphComponents = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "riskgraph_graph_components",
			Help: "Connected components in the last analysed snapshot",
		},
	)

	r.ArticulationPoints = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "riskgraph_articulation_points",
			Help: "Cut vertices in the last analysed snapshot",
		},
	)

	r.TierNodes = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "riskgraph_tier_nodes",
			Help: "Nodes per risk tier in the last analysed snapshot",
		},
		[]string{"tier"},
	)

	r.DegreeScores = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "riskgraph_degree_score",
			Help:    "Distribution of per-node degree scores",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 500, 1000},
		},
	)

	r.ClosenessScores = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "riskgraph_closeness_score",
			Help:    "Distribution of per-node closeness scores",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)
}

func (r *Registry) initSystemMetrics() {
	r.UptimeSeconds = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "riskgraph_uptime_seconds",
			Help: "Time since the process started in seconds",
		},
	)

	r.GoRoutines = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "riskgraph_goroutines",
			Help: "Number of goroutines",
		},
	)

	r.MemoryAllocBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "riskgraph_memory_alloc_bytes",
			Help: "Bytes of allocated heap objects",
		},
	)
}
