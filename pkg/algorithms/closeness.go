package algorithms

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dd0wney/cluso-riskgraph/pkg/graph"
	"github.com/dd0wney/cluso-riskgraph/pkg/parallel"
)

// ErrScaleLimitExceeded is returned when the graph is too large for the
// quadratic all-sources BFS.
var ErrScaleLimitExceeded = errors.New("node count exceeds closeness computation ceiling")

// ClosenessOptions bounds the closeness computation.
type ClosenessOptions struct {
	// MaxNodes refuses graphs larger than this. Zero disables the check.
	MaxNodes int
	// Workers is the number of concurrent BFS sources. Zero means GOMAXPROCS.
	Workers int
}

// CheckClosenessLimit reports ErrScaleLimitExceeded for n nodes above max.
func CheckClosenessLimit(n, max int) error {
	if max > 0 && n > max {
		return fmt.Errorf("%w: %d nodes > %d", ErrScaleLimitExceeded, n, max)
	}
	return nil
}

// Closeness computes closeness centrality for all nodes over the undirected
// projection with unit edge lengths. A node reaching r others at total
// distance d in a graph of n nodes scores (r/d)·(r/(n-1)), so members of
// small components are scaled down. Isolated nodes score 0.
func Closeness(ctx context.Context, snap *graph.Snapshot, opts ClosenessOptions) (map[string]float64, error) {
	n := snap.Len()
	if err := CheckClosenessLimit(n, opts.MaxNodes); err != nil {
		return nil, err
	}

	scores := make([]float64, n)
	buffers := sync.Pool{
		New: func() any {
			buf := make([]int32, 2*n)
			return &buf
		},
	}

	err := parallel.ForEach(ctx, opts.Workers, n, func(source int) {
		bufp := buffers.Get().(*[]int32)
		scores[source] = closenessFrom(snap, source, *bufp)
		buffers.Put(bufp)
	})
	if err != nil {
		return nil, err
	}

	closeness := make(map[string]float64, n)
	for i, s := range scores {
		closeness[snap.ID(i)] = s
	}
	return closeness, nil
}

// closenessFrom runs one BFS. buf holds the distance array in its first half
// and the queue in its second half.
func closenessFrom(snap *graph.Snapshot, source int, buf []int32) float64 {
	n := snap.Len()
	if n <= 1 {
		return 0
	}

	dist, queue := buf[:n], buf[n:2*n]
	for i := range dist {
		dist[i] = -1
	}
	dist[source] = 0
	queue[0] = int32(source)
	head, tail := 0, 1

	reached, total := 0, 0
	for head < tail {
		v := int(queue[head])
		head++
		for _, h := range snap.Incident(v) {
			if dist[h.To] >= 0 {
				continue
			}
			dist[h.To] = dist[v] + 1
			reached++
			total += int(dist[h.To])
			queue[tail] = int32(h.To)
			tail++
		}
	}

	if total == 0 {
		return 0
	}
	r := float64(reached)
	return (r / float64(total)) * (r / float64(n-1))
}
