package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-riskgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-riskgraph/pkg/config"
	"github.com/dd0wney/cluso-riskgraph/pkg/graph"
	"github.com/dd0wney/cluso-riskgraph/pkg/labels"
	"github.com/dd0wney/cluso-riskgraph/pkg/metrics"
	"github.com/dd0wney/cluso-riskgraph/pkg/pubsub"
	"github.com/dd0wney/cluso-riskgraph/pkg/scoring"
)

var hubLabels = []string{
	scoring.LabelBridgeNode,
	scoring.LabelCriticalCloseness,
	scoring.LabelExcludeFromMatching,
	scoring.LabelInformationHub,
	scoring.LabelSuperConnector,
}

// starGraph builds one customer sharing twelve email addresses. The hub
// scores degree 12, closeness 1.0 and is a cut vertex; the leaves score
// closeness 12/23 and carry no labels.
func starGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	require.NoError(t, g.AddNode(graph.Node{ID: "c0", Type: graph.NodeCustomer}))
	for i := 1; i <= 12; i++ {
		id := fmt.Sprintf("e%02d", i)
		require.NoError(t, g.AddNode(graph.Node{ID: id, Type: graph.NodeEmail}))
		_, err := g.AddEdge("c0", id, graph.EdgeHasEmail)
		require.NoError(t, err)
	}
	return g
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Maintenance.RetryBackoff = time.Millisecond
	return cfg
}

type providerFunc func(ctx context.Context) (*graph.Snapshot, error)

func (f providerFunc) Snapshot(ctx context.Context) (*graph.Snapshot, error) { return f(ctx) }

// flakyStore fails ApplyDelta for selected nodes. A negative count fails forever.
type flakyStore struct {
	*labels.MemoryStore
	mu       sync.Mutex
	failures map[string]int
	attempts map[string]int
}

func newFlakyStore(failures map[string]int) *flakyStore {
	return &flakyStore{
		MemoryStore: labels.NewMemoryStore(),
		failures:    failures,
		attempts:    make(map[string]int),
	}
}

func (s *flakyStore) ApplyDelta(ctx context.Context, nodeID string, add, remove []string) error {
	s.mu.Lock()
	s.attempts[nodeID]++
	n := s.failures[nodeID]
	if n > 0 {
		s.failures[nodeID]--
	}
	s.mu.Unlock()

	if n != 0 {
		return errors.New("connection reset by peer")
	}
	return s.MemoryStore.ApplyDelta(ctx, nodeID, add, remove)
}

// plainStore hides BulkReader so the per-node read path is used.
type plainStore struct {
	labels.Store
}

func readLabels(t *testing.T, s labels.Store, id string) []string {
	t.Helper()
	l, err := s.ReadLabels(context.Background(), id)
	require.NoError(t, err)
	return l
}

func TestRunCycle_StarGraph(t *testing.T) {
	store := labels.NewMemoryStore()

	report, err := RunMaintenanceCycle(context.Background(), starGraph(t), testConfig(), store)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, report.Status)
	assert.NotEmpty(t, report.ID)
	assert.Empty(t, report.Cause)
	assert.Equal(t, 13, report.NodeCount)
	assert.Equal(t, 12, report.EdgeCount)
	assert.Equal(t, 1, report.ArticulationCount)
	assert.Equal(t, 1, report.ComponentCount)
	assert.Equal(t, 13, report.LargestComponent)

	assert.Equal(t, hubLabels, readLabels(t, store, "c0"))
	assert.Empty(t, readLabels(t, store, "e01"))

	require.Len(t, report.Deltas, 1)
	assert.Equal(t, "c0", report.Deltas[0].NodeID)
	for _, l := range hubLabels {
		assert.Equal(t, 1, report.Added[l], l)
	}
	assert.Equal(t, 5, report.AddedByType[graph.NodeCustomer])
	assert.Equal(t, map[string]int{"Exclude": 1, "None": 12}, report.TierCounts)

	hub := report.NodeStates["c0"]
	require.NotNil(t, hub.DegreeScore)
	assert.Equal(t, 12, *hub.DegreeScore)
	assert.InDelta(t, 1.0, *hub.ClosenessScore, 1e-12)
	assert.True(t, hub.IsArticulationPoint)
	assert.Equal(t, 5, hub.RiskScore)
	assert.Equal(t, graph.TierExclude, hub.RiskTier)

	leaf := report.NodeStates["e07"]
	assert.InDelta(t, 12.0/23.0, *leaf.ClosenessScore, 1e-12)
	assert.Equal(t, graph.TierNone, leaf.RiskTier)

	assert.Equal(t, 1.0, report.Degree.Min)
	assert.Equal(t, 12.0, report.Degree.Max)
	assert.Equal(t, 1.0, report.Closeness.Max)
}

func TestRunCycle_SecondCycleIsEmpty(t *testing.T) {
	g := starGraph(t)
	store := labels.NewMemoryStore()
	c, err := NewController(g, store, testConfig())
	require.NoError(t, err)

	_, err = c.RunCycle(context.Background())
	require.NoError(t, err)
	writes := store.Writes()

	report, err := c.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, report.Status)
	assert.Empty(t, report.Deltas)
	assert.Equal(t, writes, store.Writes())
}

func TestRunCycle_Deterministic(t *testing.T) {
	g := starGraph(t)

	first, err := RunMaintenanceCycle(context.Background(), g, testConfig(), labels.NewMemoryStore())
	require.NoError(t, err)
	second, err := RunMaintenanceCycle(context.Background(), g, testConfig(), labels.NewMemoryStore())
	require.NoError(t, err)

	assert.Equal(t, first.Deltas, second.Deltas)
	assert.Equal(t, first.NodeStates, second.NodeStates)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestRunCycle_PreservesForeignLabels(t *testing.T) {
	store := labels.NewMemoryStore()
	store.Seed("c0", "VIP")
	store.Seed("e01", scoring.LabelMonitorNode, "ManualReview")

	report, err := RunMaintenanceCycle(context.Background(), starGraph(t), testConfig(), store)
	require.NoError(t, err)

	assert.Contains(t, readLabels(t, store, "c0"), "VIP")
	assert.Equal(t, []string{"ManualReview"}, readLabels(t, store, "e01"))
	assert.Equal(t, 1, report.Removed[scoring.LabelMonitorNode])
	assert.Equal(t, 1, report.RemovedByType[graph.NodeEmail])
}

func TestRunCycle_PerNodeReadPath(t *testing.T) {
	mem := labels.NewMemoryStore()
	mem.Seed("e03", scoring.LabelBridgeNode)

	_, err := RunMaintenanceCycle(context.Background(), starGraph(t), testConfig(), plainStore{mem})
	require.NoError(t, err)

	assert.Equal(t, hubLabels, readLabels(t, mem, "c0"))
	assert.Empty(t, readLabels(t, mem, "e03"))
}

func TestRunCycle_ScaleLimitLeavesStoreUntouched(t *testing.T) {
	store := labels.NewMemoryStore()
	store.Seed("c0", scoring.LabelMonitorNode)

	cfg := testConfig()
	cfg.MaxNodesForClosenessComputation = 5

	report, err := RunMaintenanceCycle(context.Background(), starGraph(t), cfg, store)
	require.Error(t, err)
	assert.ErrorIs(t, err, algorithms.ErrScaleLimitExceeded)
	assert.Equal(t, StatusScaleLimitExceeded, report.Status)
	assert.NotEmpty(t, report.Cause)
	assert.Equal(t, 13, report.NodeCount)
	assert.Nil(t, report.NodeStates)

	assert.Equal(t, 0, store.Writes())
	assert.Equal(t, []string{scoring.LabelMonitorNode}, readLabels(t, store, "c0"))
}

func TestRunCycle_SnapshotErrors(t *testing.T) {
	tests := []struct {
		name     string
		provider providerFunc
		want     Status
	}{
		{
			name: "self-loop",
			provider: func(ctx context.Context) (*graph.Snapshot, error) {
				return graph.NewSnapshot(1, []graph.Node{{ID: "a"}}, []graph.Edge{{Source: "a", Target: "a"}})
			},
			want: StatusInvariantViolation,
		},
		{
			name: "duplicate node",
			provider: func(ctx context.Context) (*graph.Snapshot, error) {
				return graph.NewSnapshot(1, []graph.Node{{ID: "a"}, {ID: "a"}}, nil)
			},
			want: StatusInvariantViolation,
		},
		{
			name: "nil snapshot",
			provider: func(ctx context.Context) (*graph.Snapshot, error) {
				return nil, nil
			},
			want: StatusInvariantViolation,
		},
		{
			name: "unavailable",
			provider: func(ctx context.Context) (*graph.Snapshot, error) {
				return nil, errors.New("bucket not found")
			},
			want: StatusSnapshotFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := labels.NewMemoryStore()
			report, err := RunMaintenanceCycle(context.Background(), tt.provider, testConfig(), store)
			require.Error(t, err)
			assert.Equal(t, tt.want, report.Status)
			assert.Equal(t, err.Error(), report.Cause)
			assert.Equal(t, 0, store.Writes())
		})
	}
}

func TestRunCycle_RetriesThenCommits(t *testing.T) {
	store := newFlakyStore(map[string]int{"c0": 2})
	reg := metrics.NewRegistry()

	report, err := RunMaintenanceCycle(context.Background(), starGraph(t), testConfig(), store, WithMetrics(reg))
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, report.Status)
	assert.Equal(t, 3, store.attempts["c0"])
	assert.Equal(t, hubLabels, readLabels(t, store, "c0"))

	var m dto.Metric
	require.NoError(t, reg.ApplyRetriesTotal.Write(&m))
	assert.Equal(t, 2.0, m.Counter.GetValue())
}

func TestRunCycle_WriteFailureIsPartial(t *testing.T) {
	store := newFlakyStore(map[string]int{"c0": -1})
	store.Seed("e01", scoring.LabelMonitorNode)

	cfg := testConfig()
	cfg.Maintenance.ApplyRetries = 2

	report, err := RunMaintenanceCycle(context.Background(), starGraph(t), cfg, store)
	require.Error(t, err)
	assert.ErrorIs(t, err, labels.ErrWriteFailure)

	assert.Equal(t, StatusPartialFailure, report.Status)
	assert.Equal(t, []string{"c0"}, report.Unresolved)
	assert.Equal(t, 3, store.attempts["c0"])

	// Other nodes still commit
	assert.Empty(t, readLabels(t, store, "e01"))
	assert.Equal(t, 1, report.Removed[scoring.LabelMonitorNode])
	assert.Zero(t, report.Added[scoring.LabelSuperConnector])
	assert.Empty(t, readLabels(t, store, "c0"))
}

func TestRunCycle_ThrottledWrites(t *testing.T) {
	store := labels.NewMemoryStore()
	for _, id := range []string{"e01", "e02", "e03", "e04"} {
		store.Seed(id, scoring.LabelMonitorNode)
	}

	cfg := testConfig()
	cfg.Maintenance.WritesPerSecond = 100

	start := time.Now()
	report, err := RunMaintenanceCycle(context.Background(), starGraph(t), cfg, store)
	require.NoError(t, err)

	// Five deltas at 100/s with a burst of one need at least 40ms
	assert.Len(t, report.Deltas, 5)
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
	assert.Equal(t, 5, store.Writes())
}

func TestRunCycle_CancelledBeforeSnapshot(t *testing.T) {
	store := labels.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := RunMaintenanceCycle(ctx, starGraph(t), testConfig(), store)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusCancelled, report.Status)
	assert.Equal(t, 0, store.Writes())
}

// cancellingStore cancels the cycle once labels have been read.
type cancellingStore struct {
	*labels.MemoryStore
	cancel context.CancelFunc
}

func (s cancellingStore) ReadAllLabels(ctx context.Context) (map[string][]string, error) {
	all, err := s.MemoryStore.ReadAllLabels(ctx)
	s.cancel()
	return all, err
}

func TestRunCycle_CancelledBeforeApplying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := cancellingStore{MemoryStore: labels.NewMemoryStore(), cancel: cancel}

	report, err := RunMaintenanceCycle(ctx, starGraph(t), testConfig(), store)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusCancelled, report.Status)
	assert.Len(t, report.Deltas, 1, "plan is reported even when not applied")
	assert.Equal(t, 0, store.Writes())
}

func TestRunCycle_EmptyGraph(t *testing.T) {
	store := labels.NewMemoryStore()
	report, err := RunMaintenanceCycle(context.Background(), graph.New(), testConfig(), store)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, report.Status)
	assert.Zero(t, report.NodeCount)
	assert.Empty(t, report.Deltas)
	assert.Equal(t, Distribution{}, report.Degree)
}

func TestRunCycle_PublishesAndRecords(t *testing.T) {
	broker := pubsub.NewBroker[*CycleReport](4)
	defer broker.Shutdown()
	done, err := broker.Subscribe(context.Background(), pubsub.TopicCycleCompleted)
	require.NoError(t, err)
	failed, err := broker.Subscribe(context.Background(), pubsub.TopicCycleFailed)
	require.NoError(t, err)

	reg := metrics.NewRegistry()
	c, err := NewController(starGraph(t), labels.NewMemoryStore(), testConfig(), WithBroker(broker), WithMetrics(reg))
	require.NoError(t, err)

	report, err := c.RunCycle(context.Background())
	require.NoError(t, err)

	select {
	case got := <-done.Channel():
		assert.Equal(t, report.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("report not published")
	}
	assert.Len(t, failed.Channel(), 0)

	var m dto.Metric
	counter, err := reg.CyclesTotal.GetMetricWithLabelValues(string(StatusSuccess))
	require.NoError(t, err)
	require.NoError(t, counter.Write(&m))
	assert.Equal(t, 1.0, m.Counter.GetValue())

	m.Reset()
	require.NoError(t, reg.ArticulationPoints.Write(&m))
	assert.Equal(t, 1.0, m.Gauge.GetValue())
}

func TestController_StateAndLastReport(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	g := starGraph(t)
	provider := providerFunc(func(ctx context.Context) (*graph.Snapshot, error) {
		close(entered)
		<-release
		return g.Snapshot(ctx)
	})

	c, err := NewController(provider, labels.NewMemoryStore(), testConfig())
	require.NoError(t, err)
	assert.Equal(t, StateIdle, c.State())
	assert.Nil(t, c.LastReport())
	assert.False(t, c.CycleState().Ran)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.RunCycle(context.Background())
	}()

	<-entered
	assert.Equal(t, StateSnapshotting, c.State())
	close(release)
	<-done

	assert.Equal(t, StateIdle, c.State())
	require.NotNil(t, c.LastReport())
	cs := c.CycleState()
	assert.True(t, cs.Ran)
	assert.True(t, cs.Healthy)
	assert.Equal(t, "Success", cs.Status)
}

func TestController_SerialisesCycles(t *testing.T) {
	store := labels.NewMemoryStore()
	c, err := NewController(starGraph(t), store, testConfig())
	require.NoError(t, err)

	var wg sync.WaitGroup
	reports := make([]*CycleReport, 4)
	for i := range reports {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reports[i], _ = c.RunCycle(context.Background())
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, r := range reports {
		assert.Equal(t, StatusSuccess, r.Status)
		applied += len(r.Deltas)
	}
	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, store.Writes())
}

func TestNewController_Rejects(t *testing.T) {
	_, err := NewController(nil, labels.NewMemoryStore(), testConfig())
	assert.Error(t, err)

	_, err = NewController(graph.New(), nil, testConfig())
	assert.Error(t, err)

	cfg := testConfig()
	cfg.RiskTierBands = [3]int{5, 3, 2}
	report, err := RunMaintenanceCycle(context.Background(), graph.New(), cfg, labels.NewMemoryStore())
	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestSummarise(t *testing.T) {
	values := make([]float64, 0, 100)
	for i := 100; i >= 1; i-- {
		values = append(values, float64(i))
	}

	d := Summarise(values)
	assert.Equal(t, 1.0, d.Min)
	assert.Equal(t, 100.0, d.Max)
	assert.InDelta(t, 50.5, d.Mean, 1e-9)
	assert.Equal(t, 50.0, d.P50)
	assert.Equal(t, 90.0, d.P90)
	assert.Equal(t, 99.0, d.P99)
}

func TestStatusAndStateStrings(t *testing.T) {
	assert.True(t, StatusSuccess.Healthy())
	assert.False(t, StatusPartialFailure.Healthy())
	assert.Equal(t, "Applying", StateApplying.String())
	assert.Equal(t, "Unknown", State(42).String())
}
