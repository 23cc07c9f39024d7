// Package labels persists the classification labels attached to nodes.
package labels

import (
	"context"
	"errors"
	"sort"
)

// ErrWriteFailure marks a delta that could not be committed.
var ErrWriteFailure = errors.New("label store write failure")

// Store is the persisted label state. ApplyDelta must be atomic per node:
// either every addition and removal lands or none does. Applying the same
// delta twice must leave the same state as applying it once.
type Store interface {
	ReadLabels(ctx context.Context, nodeID string) ([]string, error)
	ApplyDelta(ctx context.Context, nodeID string, add, remove []string) error
}

// BulkReader is implemented by stores that can return all labels at once.
// The maintenance controller prefers it over per-node reads.
type BulkReader interface {
	ReadAllLabels(ctx context.Context) (map[string][]string, error)
}

// Normalize returns labels sorted with duplicates and empties removed.
func Normalize(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Diff returns the labels to add and remove to move current to desired,
// touching only labels for which managed returns true.
func Diff(current, desired []string, managed func(string) bool) (add, remove []string) {
	have := make(map[string]struct{}, len(current))
	for _, l := range current {
		have[l] = struct{}{}
	}
	want := make(map[string]struct{}, len(desired))
	for _, l := range desired {
		want[l] = struct{}{}
		if _, ok := have[l]; !ok {
			add = append(add, l)
		}
	}
	for _, l := range current {
		if _, ok := want[l]; ok {
			continue
		}
		if managed == nil || managed(l) {
			remove = append(remove, l)
		}
	}
	return Normalize(add), Normalize(remove)
}
