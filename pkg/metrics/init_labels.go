package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLabelMetrics() {
	r.LabelsAddedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskgraph_labels_added_total",
			Help: "Labels added to nodes, by label",
		},
		[]string{"label"},
	)

	r.LabelsRemovedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskgraph_labels_removed_total",
			Help: "Labels removed from nodes, by label",
		},
		[]string{"label"},
	)

	r.ApplyRetriesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "riskgraph_apply_retries_total",
			Help: "Label delta writes that were retried",
		},
	)

	r.UnresolvedNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "riskgraph_unresolved_nodes",
			Help: "Nodes whose label delta could not be committed in the last cycle",
		},
	)
}
