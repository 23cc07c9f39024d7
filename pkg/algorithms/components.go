package algorithms

import "github.com/dd0wney/cluso-riskgraph/pkg/graph"

// Components describes the connected components of the undirected projection.
type Components struct {
	// Of maps node ID to component index. Components are numbered in order
	// of their smallest node ID.
	Of    map[string]int
	Sizes []int
}

// Count returns the number of components.
func (c Components) Count() int { return len(c.Sizes) }

// Largest returns the size of the largest component.
func (c Components) Largest() int {
	max := 0
	for _, s := range c.Sizes {
		if s > max {
			max = s
		}
	}
	return max
}

// ConnectedComponents labels every node with its component via BFS.
func ConnectedComponents(snap *graph.Snapshot) Components {
	n := snap.Len()
	comp := make([]int, n)
	for i := range comp {
		comp[i] = -1
	}

	var sizes []int
	queue := make([]int, 0, n)
	for start := 0; start < n; start++ {
		if comp[start] >= 0 {
			continue
		}
		id := len(sizes)
		comp[start] = id
		queue = append(queue[:0], start)
		size := 0
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			size++
			for _, h := range snap.Incident(v) {
				if comp[h.To] < 0 {
					comp[h.To] = id
					queue = append(queue, h.To)
				}
			}
		}
		sizes = append(sizes, size)
	}

	of := make(map[string]int, n)
	for i, c := range comp {
		of[snap.ID(i)] = c
	}
	return Components{Of: of, Sizes: sizes}
}
