package labels

import (
	"context"
	"sync"
)

// MemoryStore keeps labels in process. One mutex guards every node, which
// makes each ApplyDelta trivially atomic.
type MemoryStore struct {
	mu     sync.RWMutex
	labels map[string]map[string]struct{}
	writes int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{labels: make(map[string]map[string]struct{})}
}

// ReadLabels returns the sorted labels of a node.
func (s *MemoryStore) ReadLabels(ctx context.Context, nodeID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(nodeID), nil
}

// ReadAllLabels returns every labelled node.
func (s *MemoryStore) ReadAllLabels(ctx context.Context) (map[string][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string, len(s.labels))
	for id := range s.labels {
		if l := s.sortedLocked(id); len(l) > 0 {
			out[id] = l
		}
	}
	return out, nil
}

// ApplyDelta removes then adds labels for one node.
func (s *MemoryStore) ApplyDelta(ctx context.Context, nodeID string, add, remove []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.labels[nodeID]
	for _, l := range remove {
		delete(set, l)
	}
	if len(add) > 0 && set == nil {
		set = make(map[string]struct{}, len(add))
		s.labels[nodeID] = set
	}
	for _, l := range add {
		set[l] = struct{}{}
	}
	if len(set) == 0 {
		delete(s.labels, nodeID)
	}
	s.writes++
	return nil
}

// Seed sets the labels of a node directly, bypassing the write counter.
func (s *MemoryStore) Seed(nodeID string, labels ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	s.labels[nodeID] = set
}

// Writes returns how many deltas have been applied.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *MemoryStore) sortedLocked(nodeID string) []string {
	set := s.labels[nodeID]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	return Normalize(out)
}
