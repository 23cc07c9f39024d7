package parallel

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// ErrTooManyWorkers is returned when the worker count exceeds the maximum allowed.
var ErrTooManyWorkers = fmt.Errorf("worker count exceeds maximum")

// MaxWorkers caps pool size so the queue buffer size cannot overflow.
const MaxWorkers = 1 << 16

// Pool runs submitted tasks on a fixed set of goroutines.
type Pool struct {
	workers int
	tasks   chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards tasks against close during send
	closed  bool

	panicMu sync.Mutex
	panics  []any
}

// NewPool starts a pool. Non-positive worker counts default to GOMAXPROCS.
func NewPool(workers int) (*Pool, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}

	p := &Pool{
		workers: workers,
		tasks:   make(chan func(), workers*2),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p, nil
}

// Workers returns the pool size.
func (p *Pool) Workers() int { return p.workers }

func (p *Pool) worker() {
	defer p.wg.Done()

	for task := range p.tasks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.panicMu.Lock()
					p.panics = append(p.panics, r)
					p.panicMu.Unlock()
				}
			}()
			task()
		}()
	}
}

// Submit queues a task. It returns false once the pool is closed.
func (p *Pool) Submit(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false
	}
	p.tasks <- task
	return true
}

// Close stops accepting tasks and waits for queued ones to finish. A task
// that panicked is reported as an error here.
func (p *Pool) Close() error {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
	})
	p.wg.Wait()

	p.panicMu.Lock()
	defer p.panicMu.Unlock()
	if len(p.panics) > 0 {
		return fmt.Errorf("%d task(s) panicked, first: %v", len(p.panics), p.panics[0])
	}
	return nil
}

// ForEach calls fn(i) for every i in [0, n) across the pool and waits.
// Scheduling stops early when ctx is cancelled; the context error is returned.
func ForEach(ctx context.Context, workers, n int, fn func(i int)) error {
	if n == 0 {
		return ctx.Err()
	}
	if workers > n {
		workers = n
	}

	pool, err := NewPool(workers)
	if err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		pool.Submit(func() { fn(i) })
	}

	if err := pool.Close(); err != nil {
		return err
	}
	return ctx.Err()
}
