package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dd0wney/cluso-riskgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-riskgraph/pkg/config"
	"github.com/dd0wney/cluso-riskgraph/pkg/graph"
	"github.com/dd0wney/cluso-riskgraph/pkg/health"
	"github.com/dd0wney/cluso-riskgraph/pkg/labels"
	"github.com/dd0wney/cluso-riskgraph/pkg/logging"
	"github.com/dd0wney/cluso-riskgraph/pkg/metrics"
	"github.com/dd0wney/cluso-riskgraph/pkg/pubsub"
	"github.com/dd0wney/cluso-riskgraph/pkg/scoring"
)

// Controller owns the label maintenance cycle. Cycles are serialised; a
// second RunCycle waits for the first to finish.
type Controller struct {
	provider   SnapshotProvider
	store      labels.Store
	cfg        config.Config
	classifier *scoring.Classifier
	limiter    *rate.Limiter

	logger  logging.Logger
	metrics *metrics.Registry
	broker  *pubsub.Broker[*CycleReport]

	cycleMu sync.Mutex
	state   atomic.Int32

	lastMu sync.RWMutex
	last   *CycleReport
}

// NewController validates cfg and wires a controller.
func NewController(provider SnapshotProvider, store labels.Store, cfg config.Config, opts ...Option) (*Controller, error) {
	if provider == nil {
		return nil, errors.New("maintenance: nil snapshot provider")
	}
	if store == nil {
		return nil, errors.New("maintenance: nil label store")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		provider:   provider,
		store:      store,
		cfg:        cfg,
		classifier: scoring.NewClassifier(cfg),
		logger:     logging.NewNopLogger(),
	}
	if wps := cfg.Maintenance.WritesPerSecond; wps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(wps), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logging.Component("maintenance"))
	return c, nil
}

// RunMaintenanceCycle runs a single cycle with a throwaway controller.
func RunMaintenanceCycle(ctx context.Context, provider SnapshotProvider, cfg config.Config, store labels.Store, opts ...Option) (*CycleReport, error) {
	c, err := NewController(provider, store, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return c.RunCycle(ctx)
}

// State returns the current stage.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// LastReport returns the most recent finished report, or nil.
func (c *Controller) LastReport() *CycleReport {
	c.lastMu.RLock()
	defer c.lastMu.RUnlock()
	return c.last
}

// CycleState adapts the last report for the health checker.
func (c *Controller) CycleState() health.CycleState {
	r := c.LastReport()
	if r == nil {
		return health.CycleState{}
	}
	return health.CycleState{
		Ran:        true,
		Status:     string(r.Status),
		Healthy:    r.Status.Healthy(),
		FinishedAt: r.StartedAt.Add(r.Duration),
		Unresolved: len(r.Unresolved),
	}
}

// RunCycle performs one full cycle and always returns a report. The error
// is non-nil whenever the status is not Success; it wraps
// graph.ErrInvariantViolation, algorithms.ErrScaleLimitExceeded,
// labels.ErrWriteFailure or the context error as appropriate.
//
// Cancellation is observed up to the start of Applying. Once writes begin
// every delta is attempted so that a cycle never stops half way through
// its own plan.
func (c *Controller) RunCycle(ctx context.Context) (*CycleReport, error) {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()
	defer c.setState(StateIdle)

	report := &CycleReport{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
	}
	log := c.logger.With(logging.CycleID(report.ID))
	log.Info("Maintenance cycle started")

	err := c.run(ctx, log, report)

	c.setState(StateReporting)
	report.Duration = time.Since(report.StartedAt)
	if err != nil {
		report.Cause = err.Error()
	}
	c.publish(log, report)
	return report, err
}

func (c *Controller) run(ctx context.Context, log logging.Logger, report *CycleReport) error {
	// Snapshotting
	c.setState(StateSnapshotting)
	stage := c.startStage(log, "snapshot")
	snap, err := c.snapshot(ctx)
	stage.done(err)
	if err != nil {
		report.Status = classifySnapshotError(err)
		return err
	}
	report.GraphVersion = snap.Version()
	report.NodeCount = snap.Len()
	report.EdgeCount = snap.EdgeCount()

	if err := algorithms.CheckClosenessLimit(snap.Len(), c.cfg.MaxNodesForClosenessComputation); err != nil {
		report.Status = StatusScaleLimitExceeded
		return err
	}

	// Computing
	c.setState(StateComputing)
	stage = c.startStage(log, "compute")
	sig, err := c.compute(ctx, snap)
	stage.done(err)
	if err != nil {
		report.Status = StatusCancelled
		if errors.Is(err, algorithms.ErrScaleLimitExceeded) {
			report.Status = StatusScaleLimitExceeded
		}
		return err
	}
	report.ArticulationCount = len(sig.articulation)
	report.ComponentCount = sig.components.Count()
	report.LargestComponent = sig.components.Largest()

	// Diffing
	c.setState(StateDiffing)
	stage = c.startStage(log, "diff")
	states := c.classify(snap, sig)
	deltas, err := c.diff(ctx, snap, states)
	stage.done(err)
	if err != nil {
		if ctx.Err() != nil {
			report.Status = StatusCancelled
			return err
		}
		report.Status = StatusStoreReadFailure
		return err
	}
	report.NodeStates = states
	report.Deltas = deltas
	summarise(report, snap, sig, states)

	if err := ctx.Err(); err != nil {
		report.Status = StatusCancelled
		return err
	}

	// Applying
	c.setState(StateApplying)
	stage = c.startStage(log, "apply")
	unresolved := c.apply(context.WithoutCancel(ctx), log, deltas)
	report.Unresolved = unresolved
	countApplied(report, deltas, unresolved)

	if len(unresolved) > 0 {
		err = fmt.Errorf("%w: %d of %d node deltas unresolved", labels.ErrWriteFailure, len(unresolved), len(deltas))
		stage.done(err)
		report.Status = StatusPartialFailure
		return err
	}
	stage.done(nil)
	report.Status = StatusSuccess
	return nil
}

func (c *Controller) snapshot(ctx context.Context) (*graph.Snapshot, error) {
	snap, err := c.provider.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

func classifySnapshotError(err error) Status {
	switch {
	case graph.IsInvariantViolation(err), errors.Is(err, graph.ErrDuplicateNode):
		return StatusInvariantViolation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCancelled
	default:
		return StatusSnapshotFailure
	}
}

// signals holds the private engine outputs of one cycle.
type signals struct {
	degree       map[string]int
	closeness    map[string]float64
	articulation map[string]struct{}
	components   algorithms.Components
}

func (c *Controller) compute(ctx context.Context, snap *graph.Snapshot) (signals, error) {
	var sig signals
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sig.degree = algorithms.DegreeByType(snap, c.cfg.EdgeTypeFilters)
		return gctx.Err()
	})
	g.Go(func() error {
		sig.articulation = algorithms.ArticulationPoints(snap)
		return gctx.Err()
	})
	g.Go(func() error {
		sig.components = algorithms.ConnectedComponents(snap)
		return gctx.Err()
	})
	g.Go(func() error {
		var err error
		sig.closeness, err = algorithms.Closeness(gctx, snap, algorithms.ClosenessOptions{
			MaxNodes: c.cfg.MaxNodesForClosenessComputation,
			Workers:  c.cfg.Maintenance.ClosenessWorkers,
		})
		return err
	})

	if err := g.Wait(); err != nil {
		return signals{}, err
	}
	return sig, nil
}

func (c *Controller) classify(snap *graph.Snapshot, sig signals) map[string]graph.NodeState {
	states := make(map[string]graph.NodeState, snap.Len())
	for _, id := range snap.NodeIDs() {
		degree, hasDegree := sig.degree[id]
		closeness := sig.closeness[id]
		_, cut := sig.articulation[id]

		res := c.classifier.Classify(scoring.Inputs{
			Degree:       degree,
			Closeness:    closeness,
			Articulation: cut,
		})

		st := graph.NodeState{
			ClosenessScore:      &closeness,
			IsArticulationPoint: cut,
			RiskScore:           res.RiskScore,
			RiskTier:            res.Tier,
			Labels:              res.Labels,
		}
		if hasDegree {
			st.DegreeScore = &degree
		}
		states[id] = st
	}
	return states
}

// diff reads current labels and plans per-node deltas in node ID order.
func (c *Controller) diff(ctx context.Context, snap *graph.Snapshot, states map[string]graph.NodeState) ([]NodeDelta, error) {
	current, err := c.readLabels(ctx, snap)
	if err != nil {
		return nil, err
	}

	var deltas []NodeDelta
	for _, n := range snap.Nodes() {
		add, remove := labels.Diff(current[n.ID], states[n.ID].Labels, scoring.IsManaged)
		d := NodeDelta{NodeID: n.ID, NodeType: n.Type, Add: add, Remove: remove}
		if !d.Empty() {
			deltas = append(deltas, d)
		}
	}
	return deltas, nil
}

func (c *Controller) readLabels(ctx context.Context, snap *graph.Snapshot) (map[string][]string, error) {
	if bulk, ok := c.store.(labels.BulkReader); ok {
		all, err := bulk.ReadAllLabels(ctx)
		if err != nil {
			return nil, fmt.Errorf("read labels: %w", err)
		}
		return all, nil
	}

	current := make(map[string][]string, snap.Len())
	for _, id := range snap.NodeIDs() {
		l, err := c.store.ReadLabels(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("read labels for %s: %w", id, err)
		}
		if len(l) > 0 {
			current[id] = l
		}
	}
	return current, nil
}

// apply writes every delta with bounded retries and returns the IDs of the
// nodes that could not be committed.
func (c *Controller) apply(ctx context.Context, log logging.Logger, deltas []NodeDelta) []string {
	var unresolved []string
	for _, d := range deltas {
		if err := c.applyOne(ctx, log, d); err != nil {
			log.Error("Label delta unresolved",
				logging.NodeID(d.NodeID),
				logging.Strings("add", d.Add),
				logging.Strings("remove", d.Remove),
				logging.Error(err))
			unresolved = append(unresolved, d.NodeID)
		}
	}
	sort.Strings(unresolved)
	return unresolved
}

func (c *Controller) applyOne(ctx context.Context, log logging.Logger, d NodeDelta) error {
	backoff := c.cfg.Maintenance.RetryBackoff
	attempts := c.cfg.Maintenance.ApplyRetries + 1

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if c.limiter != nil {
			if err = c.limiter.Wait(ctx); err != nil {
				break
			}
		}
		if err = c.store.ApplyDelta(ctx, d.NodeID, d.Add, d.Remove); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		log.Warn("Label delta failed, retrying",
			logging.NodeID(d.NodeID),
			logging.Attempt(attempt),
			logging.Error(err))
		if c.metrics != nil {
			c.metrics.ApplyRetriesTotal.Inc()
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	if errors.Is(err, labels.ErrWriteFailure) {
		return err
	}
	return fmt.Errorf("%w: %v", labels.ErrWriteFailure, err)
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

func (c *Controller) publish(log logging.Logger, r *CycleReport) {
	c.lastMu.Lock()
	c.last = r
	c.lastMu.Unlock()

	fields := []logging.Field{
		logging.Status(string(r.Status)),
		logging.GraphVersion(r.GraphVersion),
		logging.Int("nodes", r.NodeCount),
		logging.Int("edges", r.EdgeCount),
		logging.Int("deltas", len(r.Deltas)),
		logging.Int("unresolved", len(r.Unresolved)),
		logging.Latency(r.Duration),
	}
	if r.Status.Healthy() {
		log.Info("Maintenance cycle finished", fields...)
	} else {
		log.Error("Maintenance cycle failed", append(fields, logging.String("cause", r.Cause))...)
	}

	if c.metrics != nil {
		recordReport(c.metrics, r)
	}
	if c.broker != nil {
		topic := pubsub.TopicCycleCompleted
		if !r.Status.Healthy() {
			topic = pubsub.TopicCycleFailed
		}
		c.broker.Publish(topic, r)
	}
}

// stageTimer times one stage into the log and the stage histogram.
type stageTimer struct {
	name    string
	op      *logging.TimedOperation
	metrics *metrics.Registry
}

func (c *Controller) startStage(log logging.Logger, name string) stageTimer {
	return stageTimer{
		name:    name,
		op:      logging.StartTimer(log, "Cycle stage", logging.Stage(name)),
		metrics: c.metrics,
	}
}

func (s stageTimer) done(err error) {
	if err != nil {
		s.op.EndError(err)
	} else {
		s.op.End()
	}
	if s.metrics != nil {
		s.metrics.RecordStage(s.name, s.op.Elapsed())
	}
}
