package algorithms

import "github.com/dd0wney/cluso-riskgraph/pkg/graph"

// DegreeFilter restricts the degree computation. Empty fields mean "all".
type DegreeFilter struct {
	// NodeTypes selects which nodes receive a score.
	NodeTypes []graph.NodeType
	// EdgeTypes selects which edges count towards the degree.
	EdgeTypes []graph.EdgeType
}

// Degree counts distinct neighbors per node over the undirected projection.
// Parallel edges to the same neighbor count once. Nodes with no qualifying
// neighbor score 0.
func Degree(snap *graph.Snapshot, filter DegreeFilter) map[string]int {
	nodeTypes := make(map[graph.NodeType]struct{}, len(filter.NodeTypes))
	for _, t := range filter.NodeTypes {
		nodeTypes[t] = struct{}{}
	}

	return degreeWith(snap, func(n graph.Node) ([]graph.EdgeType, bool) {
		if len(nodeTypes) > 0 {
			if _, ok := nodeTypes[n.Type]; !ok {
				return nil, false
			}
		}
		return filter.EdgeTypes, true
	})
}

// DegreeByType scores every node, counting only the edge types configured
// for its node type. Node types missing from filters count all edges.
func DegreeByType(snap *graph.Snapshot, filters map[graph.NodeType][]graph.EdgeType) map[string]int {
	return degreeWith(snap, func(n graph.Node) ([]graph.EdgeType, bool) {
		return filters[n.Type], true
	})
}

func degreeWith(snap *graph.Snapshot, pick func(graph.Node) ([]graph.EdgeType, bool)) map[string]int {
	n := snap.Len()
	degree := make(map[string]int, n)

	// mark[v] == u+1 means v was already counted for u
	mark := make([]int, n)
	for u := 0; u < n; u++ {
		edgeTypes, ok := pick(snap.At(u))
		if !ok {
			continue
		}
		allow := toSet(edgeTypes)

		count := 0
		for _, h := range snap.Incident(u) {
			if allow != nil {
				if _, ok := allow[h.Type]; !ok {
					continue
				}
			}
			if mark[h.To] == u+1 {
				continue
			}
			mark[h.To] = u + 1
			count++
		}
		degree[snap.ID(u)] = count
	}

	return degree
}

func toSet(types []graph.EdgeType) map[graph.EdgeType]struct{} {
	if len(types) == 0 {
		return nil
	}
	set := make(map[graph.EdgeType]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}
