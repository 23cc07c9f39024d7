// Package maintenance runs the label maintenance cycle: snapshot the graph,
// compute the three structural signals, classify every node and reconcile
// the persisted labels with the result.
package maintenance

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-riskgraph/pkg/graph"
)

// SnapshotProvider yields a consistent point-in-time view of the graph.
// *graph.Graph, graph.FileProvider and *graph.S3Provider implement it.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (*graph.Snapshot, error)
}

// State is the controller's position in the cycle.
type State int32

const (
	StateIdle State = iota
	StateSnapshotting
	StateComputing
	StateDiffing
	StateApplying
	StateReporting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSnapshotting:
		return "Snapshotting"
	case StateComputing:
		return "Computing"
	case StateDiffing:
		return "Diffing"
	case StateApplying:
		return "Applying"
	case StateReporting:
		return "Reporting"
	default:
		return "Unknown"
	}
}

// Status is the outcome of one cycle.
type Status string

const (
	StatusSuccess            Status = "Success"
	StatusPartialFailure     Status = "PartialFailure"
	StatusInvariantViolation Status = "InvariantViolation"
	StatusScaleLimitExceeded Status = "ScaleLimitExceeded"
	StatusCancelled          Status = "Cancelled"
	StatusStoreReadFailure   Status = "StoreReadFailure"
	StatusSnapshotFailure    Status = "SnapshotFailure"
)

// Healthy reports whether every delta was committed.
func (s Status) Healthy() bool { return s == StatusSuccess }

// NodeDelta is the label change computed for one node.
type NodeDelta struct {
	NodeID   string         `json:"node_id"`
	NodeType graph.NodeType `json:"node_type"`
	Add      []string       `json:"add,omitempty"`
	Remove   []string       `json:"remove,omitempty"`
}

// Empty reports whether the delta changes nothing.
func (d NodeDelta) Empty() bool { return len(d.Add) == 0 && len(d.Remove) == 0 }

// Distribution summarises one score across all nodes.
type Distribution struct {
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
	Max  float64 `json:"max"`
	P50  float64 `json:"p50"`
	P90  float64 `json:"p90"`
	P99  float64 `json:"p99"`
}

// CycleReport describes one maintenance cycle. Aborted cycles carry a
// non-success Status and a Cause; their count fields are zero.
type CycleReport struct {
	ID        string        `json:"id"`
	Status    Status        `json:"status"`
	Cause     string        `json:"cause,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	GraphVersion uint64 `json:"graph_version"`
	NodeCount    int    `json:"node_count"`
	EdgeCount    int    `json:"edge_count"`

	ArticulationCount int `json:"articulation_count"`
	ComponentCount    int `json:"component_count"`
	LargestComponent  int `json:"largest_component"`

	Added         map[string]int         `json:"added,omitempty"`
	Removed       map[string]int         `json:"removed,omitempty"`
	AddedByType   map[graph.NodeType]int `json:"added_by_type,omitempty"`
	RemovedByType map[graph.NodeType]int `json:"removed_by_type,omitempty"`
	TierCounts    map[string]int         `json:"tier_counts,omitempty"`

	Degree    Distribution `json:"degree"`
	Closeness Distribution `json:"closeness"`

	Deltas     []NodeDelta                `json:"deltas,omitempty"`
	Unresolved []string                   `json:"unresolved,omitempty"`
	NodeStates map[string]graph.NodeState `json:"-"`
}
