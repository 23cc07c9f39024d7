package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry:  prometheus.NewRegistry(),
		startedAt: time.Now(),
	}

	r.initCycleMetrics()
	r.initLabelMetrics()
	r.initGraphMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RecordCycle records the outcome of one maintenance cycle
func (r *Registry) RecordCycle(status string, success bool, duration time.Duration) {
	r.CyclesTotal.WithLabelValues(status).Inc()
	r.CycleDuration.Observe(duration.Seconds())

	now := float64(time.Now().Unix())
	r.LastCycleTimestamp.Set(now)
	if success {
		r.LastSuccessTimestamp.Set(now)
	}
}

// RecordStage records how long one cycle stage took
func (r *Registry) RecordStage(stage string, duration time.Duration) {
	r.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordLabelChanges adds per-label delta counts
func (r *Registry) RecordLabelChanges(added, removed map[string]int) {
	for label, n := range added {
		r.LabelsAddedTotal.WithLabelValues(label).Add(float64(n))
	}
	for label, n := range removed {
		r.LabelsRemovedTotal.WithLabelValues(label).Add(float64(n))
	}
}

// UpdateGraphMetrics sets the size gauges from a snapshot
func (r *Registry) UpdateGraphMetrics(nodes, edges, components, articulation int) {
	r.GraphNodes.Set(float64(nodes))
	r.GraphEdges.Set(float64(edges))
	r.GraphComponents.Set(float64(components))
	r.ArticulationPoints.Set(float64(articulation))
}

// SetTierCounts replaces the per-tier node gauge
func (r *Registry) SetTierCounts(counts map[string]int) {
	r.TierNodes.Reset()
	for tier, n := range counts {
		r.TierNodes.WithLabelValues(tier).Set(float64(n))
	}
}

// ObserveScores feeds per-node scores into the distribution histograms
func (r *Registry) ObserveScores(degree []float64, closeness []float64) {
	for _, v := range degree {
		r.DegreeScores.Observe(v)
	}
	for _, v := range closeness {
		r.ClosenessScores.Observe(v)
	}
}

// UpdateSystemMetrics refreshes runtime gauges
func (r *Registry) UpdateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.UptimeSeconds.Set(time.Since(r.startedAt).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
}
