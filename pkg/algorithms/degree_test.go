package algorithms

import (
	"testing"

	"github.com/dd0wney/cluso-riskgraph/pkg/graph"
)

// TestDegree_EmptyGraph tests degree on an empty graph
func TestDegree_EmptyGraph(t *testing.T) {
	snap := buildSnapshot(t, nil)

	result := Degree(snap, DegreeFilter{})
	if len(result) != 0 {
		t.Errorf("Expected 0 scores for empty graph, got %d", len(result))
	}
}

// TestDegree_IsolatedNodeScoresZero checks zero is present, not absent
func TestDegree_IsolatedNodeScoresZero(t *testing.T) {
	snap := buildSnapshot(t, []string{"a", "b", "c"}, [2]string{"a", "b"})

	result := Degree(snap, DegreeFilter{})
	score, ok := result["c"]
	if !ok {
		t.Fatal("Expected isolated node to have a score")
	}
	if score != 0 {
		t.Errorf("Expected 0 for isolated node, got %d", score)
	}
}

// TestDegree_UndirectedAndDistinct counts both directions and folds parallel edges
func TestDegree_UndirectedAndDistinct(t *testing.T) {
	snap := buildSnapshot(t, []string{"hub", "a", "b"},
		[2]string{"a", "hub"},
		[2]string{"hub", "b"},
		[2]string{"b", "hub"},
	)

	result := Degree(snap, DegreeFilter{})
	if result["hub"] != 2 {
		t.Errorf("Expected hub degree 2, got %d", result["hub"])
	}
	if result["b"] != 1 {
		t.Errorf("Expected b degree 1, got %d", result["b"])
	}
}

// TestDegree_EdgeTypeFilter: k neighbors via the filtered type, m via others
func TestDegree_EdgeTypeFilter(t *testing.T) {
	const k, m = 4, 3

	nodes := []graph.Node{{ID: "email", Type: graph.NodeEmail}}
	var edges []graph.Edge
	for i := 0; i < k; i++ {
		id := string(rune('a' + i))
		nodes = append(nodes, graph.Node{ID: id, Type: graph.NodeCustomer})
		edges = append(edges, graph.Edge{Source: id, Target: "email", Type: graph.EdgeHasEmail})
	}
	for i := 0; i < m; i++ {
		id := string(rune('p' + i))
		nodes = append(nodes, graph.Node{ID: id, Type: graph.NodeAccount})
		edges = append(edges, graph.Edge{Source: "email", Target: id, Type: graph.EdgeBenefitsTo})
	}
	snap, err := graph.NewSnapshot(1, nodes, edges)
	if err != nil {
		t.Fatalf("NewSnapshot failed: %v", err)
	}

	filtered := Degree(snap, DegreeFilter{EdgeTypes: []graph.EdgeType{graph.EdgeHasEmail}})
	if filtered["email"] != k {
		t.Errorf("Expected filtered degree %d, got %d", k, filtered["email"])
	}

	all := Degree(snap, DegreeFilter{})
	if all["email"] != k+m {
		t.Errorf("Expected unfiltered degree %d, got %d", k+m, all["email"])
	}

	emailsOnly := Degree(snap, DegreeFilter{NodeTypes: []graph.NodeType{graph.NodeEmail}})
	if len(emailsOnly) != 1 {
		t.Errorf("Expected only the email node to be scored, got %d scores", len(emailsOnly))
	}
}

func TestDegreeByType(t *testing.T) {
	snap, err := graph.NewSnapshot(1,
		[]graph.Node{
			{ID: "c", Type: graph.NodeCustomer},
			{ID: "e", Type: graph.NodeEmail},
			{ID: "p", Type: graph.NodePhone},
		},
		[]graph.Edge{
			{Source: "c", Target: "e", Type: graph.EdgeHasEmail},
			{Source: "c", Target: "p", Type: graph.EdgeHasPhone},
		},
	)
	if err != nil {
		t.Fatalf("NewSnapshot failed: %v", err)
	}

	result := DegreeByType(snap, map[graph.NodeType][]graph.EdgeType{
		graph.NodeCustomer: {graph.EdgeHasPhone},
	})
	if result["c"] != 1 {
		t.Errorf("Expected customer degree 1 via HAS_PHONE, got %d", result["c"])
	}
	if result["e"] != 1 || result["p"] != 1 {
		t.Errorf("Expected unfiltered types to count all edges, got e=%d p=%d", result["e"], result["p"])
	}
}
