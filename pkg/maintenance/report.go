package maintenance

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/dd0wney/cluso-riskgraph/pkg/graph"
	"github.com/dd0wney/cluso-riskgraph/pkg/metrics"
)

// summarise fills tier counts and score distributions.
func summarise(r *CycleReport, snap *graph.Snapshot, sig signals, states map[string]graph.NodeState) {
	r.TierCounts = make(map[string]int, 4)
	for _, st := range states {
		r.TierCounts[st.RiskTier.String()]++
	}

	degree := make([]float64, 0, snap.Len())
	closeness := make([]float64, 0, snap.Len())
	for _, id := range snap.NodeIDs() {
		degree = append(degree, float64(sig.degree[id]))
		closeness = append(closeness, sig.closeness[id])
	}
	r.Degree = Summarise(degree)
	r.Closeness = Summarise(closeness)
}

// Summarise computes the distribution of values. The slice is sorted in
// place. An empty slice yields the zero Distribution.
func Summarise(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sort.Float64s(values)
	return Distribution{
		Min:  values[0],
		Mean: stat.Mean(values, nil),
		Max:  values[len(values)-1],
		P50:  stat.Quantile(0.50, stat.Empirical, values, nil),
		P90:  stat.Quantile(0.90, stat.Empirical, values, nil),
		P99:  stat.Quantile(0.99, stat.Empirical, values, nil),
	}
}

// countApplied tallies committed label changes per label and node type.
// Unresolved nodes are left out.
func countApplied(r *CycleReport, deltas []NodeDelta, unresolved []string) {
	failed := make(map[string]struct{}, len(unresolved))
	for _, id := range unresolved {
		failed[id] = struct{}{}
	}

	r.Added = make(map[string]int)
	r.Removed = make(map[string]int)
	r.AddedByType = make(map[graph.NodeType]int)
	r.RemovedByType = make(map[graph.NodeType]int)
	for _, d := range deltas {
		if _, ok := failed[d.NodeID]; ok {
			continue
		}
		for _, l := range d.Add {
			r.Added[l]++
		}
		for _, l := range d.Remove {
			r.Removed[l]++
		}
		r.AddedByType[d.NodeType] += len(d.Add)
		r.RemovedByType[d.NodeType] += len(d.Remove)
	}
}

func recordReport(m *metrics.Registry, r *CycleReport) {
	m.RecordCycle(string(r.Status), r.Status.Healthy(), r.Duration)
	m.UnresolvedNodes.Set(float64(len(r.Unresolved)))
	if r.NodeStates == nil {
		return
	}

	m.UpdateGraphMetrics(r.NodeCount, r.EdgeCount, r.ComponentCount, r.ArticulationCount)
	m.SetTierCounts(r.TierCounts)
	m.RecordLabelChanges(r.Added, r.Removed)

	degree := make([]float64, 0, len(r.NodeStates))
	closeness := make([]float64, 0, len(r.NodeStates))
	for _, st := range r.NodeStates {
		if st.DegreeScore != nil {
			degree = append(degree, float64(*st.DegreeScore))
		}
		if st.ClosenessScore != nil {
			closeness = append(closeness, *st.ClosenessScore)
		}
	}
	m.ObserveScores(degree, closeness)
}
