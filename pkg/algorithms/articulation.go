package algorithms

import (
	"sort"

	"github.com/dd0wney/cluso-riskgraph/pkg/graph"
)

// dfsFrame is one entry of the explicit DFS stack.
type dfsFrame struct {
	node       int
	parentEdge uint64 // edge used to enter node, 0 for a root
	next       int    // next index into the incidence list
	children   int
}

// ArticulationPoints returns the cut vertices of the undirected projection
// using discovery/low-link values in O(V+E).
//
// The traversal uses an explicit stack so deep identity chains cannot
// overflow the goroutine stack. Only the exact edge used to enter a node is
// skipped on the way back, so a parallel edge to the parent counts as a back
// edge and the pair is never reported as a bridge through a cut vertex.
func ArticulationPoints(snap *graph.Snapshot) map[string]struct{} {
	n := snap.Len()
	disc := make([]int, n) // 0 = unvisited
	low := make([]int, n)
	cut := make([]bool, n)
	timer := 0

	stack := make([]dfsFrame, 0, 64)
	for root := 0; root < n; root++ {
		if disc[root] != 0 {
			continue
		}
		timer++
		disc[root], low[root] = timer, timer
		stack = append(stack[:0], dfsFrame{node: root})

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			incident := snap.Incident(top.node)

			if top.next < len(incident) {
				h := incident[top.next]
				top.next++
				if h.Edge == top.parentEdge {
					continue
				}
				if disc[h.To] == 0 {
					top.children++
					timer++
					disc[h.To], low[h.To] = timer, timer
					stack = append(stack, dfsFrame{node: h.To, parentEdge: h.Edge})
				} else if disc[h.To] < low[top.node] {
					low[top.node] = disc[h.To]
				}
				continue
			}

			done := *top
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				if done.children > 1 {
					cut[done.node] = true
				}
				continue
			}

			parent := stack[len(stack)-1].node
			if low[done.node] < low[parent] {
				low[parent] = low[done.node]
			}
			// the root is handled by its child count instead
			if len(stack) > 1 && low[done.node] >= disc[parent] {
				cut[parent] = true
			}
		}
	}

	points := make(map[string]struct{})
	for i, isCut := range cut {
		if isCut {
			points[snap.ID(i)] = struct{}{}
		}
	}
	return points
}

// SortedIDs returns the members of an ID set in ascending order.
func SortedIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
