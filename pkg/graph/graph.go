package graph

import (
	"context"
	"sort"
	"sync"
)

// Graph owns the live node and edge sets. Writers take the exclusive lock;
// Snapshot takes the shared lock only long enough to copy, which is the one
// synchronisation point between ingestion and analytics.
type Graph struct {
	mu         sync.RWMutex
	nodes      map[string]Node
	edges      map[uint64]Edge
	incident   map[string]map[uint64]struct{}
	nextEdgeID uint64
	version    uint64
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]Node),
		edges:    make(map[uint64]Edge),
		incident: make(map[string]map[uint64]struct{}),
	}
}

// AddNode inserts a node, or updates its type and value if the ID exists.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return NewError("AddNode").Node("").Context("empty node id").Cause(ErrInvariantViolation).Err()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes[n.ID] = n
	if _, ok := g.incident[n.ID]; !ok {
		g.incident[n.ID] = make(map[uint64]struct{})
	}
	g.version++
	return nil
}

// RemoveNode deletes a node and every edge incident to it.
func (g *Graph) RemoveNode(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[id]; !ok {
		return NewError("RemoveNode").Node(id).Cause(ErrNodeNotFound).Err()
	}

	for edgeID := range g.incident[id] {
		g.unlinkEdge(edgeID)
	}
	delete(g.incident, id)
	delete(g.nodes, id)
	g.version++
	return nil
}

// AddEdge stores a new edge and returns it with its assigned ID. Self-loops
// and edges to unknown nodes are rejected.
func (g *Graph) AddEdge(source, target string, typ EdgeType) (Edge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e := Edge{Source: source, Target: target, Type: typ}
	if err := checkEdge("AddEdge", e, g.hasNodeLocked); err != nil {
		return Edge{}, err
	}

	g.nextEdgeID++
	e.ID = g.nextEdgeID
	g.edges[e.ID] = e
	g.incident[source][e.ID] = struct{}{}
	g.incident[target][e.ID] = struct{}{}
	g.version++
	return e, nil
}

// RemoveEdge deletes an edge by ID.
func (g *Graph) RemoveEdge(id uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.edges[id]; !ok {
		return NewError("RemoveEdge").Edge(id).Cause(ErrEdgeNotFound).Err()
	}
	g.unlinkEdge(id)
	g.version++
	return nil
}

// Replace swaps the whole graph content atomically. The new content is
// validated first; on error the graph is left untouched.
func (g *Graph) Replace(nodes []Node, edges []Edge) error {
	snap, err := NewSnapshot(0, nodes, edges)
	if err != nil {
		return err
	}

	nextNodes := make(map[string]Node, snap.Len())
	nextIncident := make(map[string]map[uint64]struct{}, snap.Len())
	for _, n := range snap.Nodes() {
		nextNodes[n.ID] = n
		nextIncident[n.ID] = make(map[uint64]struct{})
	}
	nextEdges := make(map[uint64]Edge, snap.EdgeCount())
	var maxID uint64
	for _, e := range snap.Edges() {
		nextEdges[e.ID] = e
		nextIncident[e.Source][e.ID] = struct{}{}
		nextIncident[e.Target][e.ID] = struct{}{}
		if e.ID > maxID {
			maxID = e.ID
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = nextNodes
	g.edges = nextEdges
	g.incident = nextIncident
	g.nextEdgeID = maxID
	g.version++
	return nil
}

// Snapshot returns an immutable copy of the current graph. It satisfies the
// maintenance snapshot provider contract.
func (g *Graph) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.RLock()
	nodes := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	edges := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, e)
	}
	version := g.version
	g.mu.RUnlock()

	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	return NewSnapshot(version, nodes, edges)
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// Version returns the mutation counter.
func (g *Graph) Version() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.version
}

func (g *Graph) hasNodeLocked(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// unlinkEdge removes an edge from both indices. Caller holds the write lock.
func (g *Graph) unlinkEdge(id uint64) {
	e, ok := g.edges[id]
	if !ok {
		return
	}
	delete(g.incident[e.Source], id)
	delete(g.incident[e.Target], id)
	delete(g.edges, id)
}
