package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the analytics engine
type Registry struct {
	// Cycle Metrics
	CyclesTotal          *prometheus.CounterVec
	CycleDuration        prometheus.Histogram
	StageDuration        *prometheus.HistogramVec
	LastCycleTimestamp   prometheus.Gauge
	LastSuccessTimestamp prometheus.Gauge

	// Label Metrics
	LabelsAddedTotal   *prometheus.CounterVec
	LabelsRemovedTotal *prometheus.CounterVec
	ApplyRetriesTotal  prometheus.Counter
	UnresolvedNodes    prometheus.Gauge

	// Graph Metrics
	GraphNodes         prometheus.Gauge
	GraphEdges         prometheus.Gauge
	GraphComponents    prometheus.Gauge
	ArticulationPoints prometheus.Gauge
	TierNodes          *prometheus.GaugeVec
	DegreeScores       prometheus.Histogram
	ClosenessScores    prometheus.Histogram

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge

	registry  *prometheus.Registry
	startedAt time.Time
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)
