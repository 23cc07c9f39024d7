package graph

import (
	"sort"
)

// HalfEdge is one direction of an edge in the undirected projection.
// Edge is the stored edge ID so parallel edges stay distinguishable.
type HalfEdge struct {
	Edge uint64
	To   int
	Type EdgeType
}

// Snapshot is an immutable point-in-time view of the graph. Node positions
// are dense indices in sorted ID order, so every traversal over a snapshot
// is deterministic.
type Snapshot struct {
	version uint64
	ids     []string
	pos     map[string]int
	nodes   []Node
	edges   []Edge
	adj     [][]HalfEdge
}

// NewSnapshot builds a snapshot from raw collections, enforcing the graph
// invariants: unique non-empty node IDs, no dangling endpoints, no
// self-loops, unique edge IDs. Edges with a zero ID get one assigned.
func NewSnapshot(version uint64, nodes []Node, edges []Edge) (*Snapshot, error) {
	s := &Snapshot{
		version: version,
		ids:     make([]string, 0, len(nodes)),
		pos:     make(map[string]int, len(nodes)),
	}

	byID := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			return nil, NewError("NewSnapshot").Node("").Context("empty node id").Cause(ErrInvariantViolation).Err()
		}
		if _, dup := byID[n.ID]; dup {
			return nil, NewError("NewSnapshot").Node(n.ID).Cause(ErrDuplicateNode).Err()
		}
		byID[n.ID] = n
		s.ids = append(s.ids, n.ID)
	}
	sort.Strings(s.ids)

	s.nodes = make([]Node, len(s.ids))
	for i, id := range s.ids {
		s.pos[id] = i
		s.nodes[i] = byID[id]
	}

	var maxID uint64
	for _, e := range edges {
		if e.ID > maxID {
			maxID = e.ID
		}
	}

	seen := make(map[uint64]struct{}, len(edges))
	s.edges = make([]Edge, 0, len(edges))
	for _, e := range edges {
		if e.ID == 0 {
			maxID++
			e.ID = maxID
		}
		if _, dup := seen[e.ID]; dup {
			return nil, NewError("NewSnapshot").Edge(e.ID).Context("duplicate edge id").Cause(ErrInvariantViolation).Err()
		}
		seen[e.ID] = struct{}{}
		if err := checkEdge("NewSnapshot", e, func(id string) bool { _, ok := s.pos[id]; return ok }); err != nil {
			return nil, err
		}
		s.edges = append(s.edges, e)
	}
	sort.Slice(s.edges, func(i, j int) bool { return s.edges[i].ID < s.edges[j].ID })

	s.adj = make([][]HalfEdge, len(s.ids))
	for _, e := range s.edges {
		u, v := s.pos[e.Source], s.pos[e.Target]
		s.adj[u] = append(s.adj[u], HalfEdge{Edge: e.ID, To: v, Type: e.Type})
		s.adj[v] = append(s.adj[v], HalfEdge{Edge: e.ID, To: u, Type: e.Type})
	}

	return s, nil
}

// checkEdge validates endpoint existence and rejects self-loops.
func checkEdge(op string, e Edge, exists func(string) bool) error {
	if e.Source == e.Target {
		return NewError(op).Edge(e.ID).Context("self-loop on %q", e.Source).Cause(ErrInvariantViolation).Err()
	}
	if !exists(e.Source) {
		return NewError(op).Edge(e.ID).Context("dangling source %q", e.Source).Cause(ErrInvariantViolation).Err()
	}
	if !exists(e.Target) {
		return NewError(op).Edge(e.ID).Context("dangling target %q", e.Target).Cause(ErrInvariantViolation).Err()
	}
	return nil
}

// Version returns the graph version the snapshot was taken at.
func (s *Snapshot) Version() uint64 { return s.version }

// Len returns the number of nodes.
func (s *Snapshot) Len() int { return len(s.ids) }

// EdgeCount returns the number of stored edges.
func (s *Snapshot) EdgeCount() int { return len(s.edges) }

// NodeIDs returns node IDs in sorted order. The slice must not be modified.
func (s *Snapshot) NodeIDs() []string { return s.ids }

// Nodes returns the nodes in sorted ID order. The slice must not be modified.
func (s *Snapshot) Nodes() []Node { return s.nodes }

// Edges returns the edges ordered by ID. The slice must not be modified.
func (s *Snapshot) Edges() []Edge { return s.edges }

// ID returns the node ID at dense index i.
func (s *Snapshot) ID(i int) string { return s.ids[i] }

// At returns the node at dense index i.
func (s *Snapshot) At(i int) Node { return s.nodes[i] }

// Index returns the dense index of a node ID.
func (s *Snapshot) Index(id string) (int, bool) {
	i, ok := s.pos[id]
	return i, ok
}

// Node looks up a node by ID.
func (s *Snapshot) Node(id string) (Node, bool) {
	i, ok := s.pos[id]
	if !ok {
		return Node{}, false
	}
	return s.nodes[i], true
}

// Incident returns the undirected incidence list of the node at index i.
// The slice must not be modified.
func (s *Snapshot) Incident(i int) []HalfEdge { return s.adj[i] }

// Neighbors returns the distinct neighbor IDs of a node in the undirected
// projection, restricted to the given edge types when any are passed.
func (s *Snapshot) Neighbors(id string, types ...EdgeType) []string {
	i, ok := s.pos[id]
	if !ok {
		return nil
	}

	allow := edgeTypeSet(types)
	seen := make(map[int]struct{}, len(s.adj[i]))
	out := make([]string, 0, len(s.adj[i]))
	for _, h := range s.adj[i] {
		if allow != nil {
			if _, ok := allow[h.Type]; !ok {
				continue
			}
		}
		if _, dup := seen[h.To]; dup {
			continue
		}
		seen[h.To] = struct{}{}
		out = append(out, s.ids[h.To])
	}
	return out
}

func edgeTypeSet(types []EdgeType) map[EdgeType]struct{} {
	if len(types) == 0 {
		return nil
	}
	set := make(map[EdgeType]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}

// Validate re-checks the edge invariants. Snapshots built by NewSnapshot
// always pass; a nil snapshot does not.
func (s *Snapshot) Validate() error {
	if s == nil {
		return NewError("Validate").Context("nil snapshot").Cause(ErrInvariantViolation).Err()
	}
	if len(s.pos) != len(s.ids) {
		return NewError("Validate").Context("duplicate node ids").Cause(ErrInvariantViolation).Err()
	}
	exists := func(id string) bool { _, ok := s.pos[id]; return ok }
	for _, e := range s.edges {
		if err := checkEdge("Validate", e, exists); err != nil {
			return err
		}
	}
	return nil
}
