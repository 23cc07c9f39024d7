package algorithms

import (
	"fmt"
	"testing"

	"github.com/dd0wney/cluso-riskgraph/pkg/graph"
)

// buildSnapshot creates a snapshot from "a-b" style undirected edge strings.
func buildSnapshot(t *testing.T, ids []string, pairs ...[2]string) *graph.Snapshot {
	t.Helper()

	nodes := make([]graph.Node, len(ids))
	for i, id := range ids {
		nodes[i] = graph.Node{ID: id, Type: graph.NodeCustomer}
	}
	edges := make([]graph.Edge, len(pairs))
	for i, p := range pairs {
		edges[i] = graph.Edge{Source: p[0], Target: p[1], Type: graph.EdgeHasEmail}
	}

	snap, err := graph.NewSnapshot(1, nodes, edges)
	if err != nil {
		t.Fatalf("Failed to build snapshot: %v", err)
	}
	return snap
}

// randomSnapshot decodes generated integers into a multigraph of n nodes.
// Codes that map to self-loops are skipped; duplicates become parallel edges.
func randomSnapshot(n int, codes []int) *graph.Snapshot {
	nodes := make([]graph.Node, n)
	for i := range nodes {
		nodes[i] = graph.Node{ID: fmt.Sprintf("n%02d", i), Type: graph.NodeCustomer}
	}
	var edges []graph.Edge
	for _, c := range codes {
		a, b := (c/16)%n, (c%16)%n
		if a == b {
			continue
		}
		edges = append(edges, graph.Edge{Source: nodes[a].ID, Target: nodes[b].ID, Type: graph.EdgeHasPhone})
	}
	snap, err := graph.NewSnapshot(1, nodes, edges)
	if err != nil {
		panic(err)
	}
	return snap
}

// withoutNode returns a copy of snap with one node and its edges removed.
func withoutNode(snap *graph.Snapshot, id string) *graph.Snapshot {
	var nodes []graph.Node
	for _, n := range snap.Nodes() {
		if n.ID != id {
			nodes = append(nodes, n)
		}
	}
	var edges []graph.Edge
	for _, e := range snap.Edges() {
		if e.Source != id && e.Target != id {
			edges = append(edges, e)
		}
	}
	out, err := graph.NewSnapshot(snap.Version(), nodes, edges)
	if err != nil {
		panic(err)
	}
	return out
}

func path(ids ...string) [][2]string {
	pairs := make([][2]string, 0, len(ids)-1)
	for i := 1; i < len(ids); i++ {
		pairs = append(pairs, [2]string{ids[i-1], ids[i]})
	}
	return pairs
}
