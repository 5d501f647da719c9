package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sovereignctl/internal/analysis"
	"sovereignctl/internal/bootstrap"
	"sovereignctl/internal/metrics"
)

type constRand float64

func (r constRand) Float64() float64 { return float64(r) }

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fakeGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	prompts []string
	block   chan struct{}
	started chan struct{}
}

func (f *fakeGenerator) Generate(ctx context.Context, req analysis.Request) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	block, started := f.block, f.started
	f.mu.Unlock()
	if started != nil {
		close(started)
	}
	if block != nil {
		<-block
	}
	return f.text, f.err
}

func newTestController(t *testing.T, gen analysis.Generator, reg *metrics.Registry) *Controller {
	t.Helper()
	return New(analysis.NewGateway(gen, nil), Options{
		Rand:    constRand(0.75),
		Clock:   &stepClock{t: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)},
		Metrics: reg,
	})
}

func TestNew_SeedsStateAndStartupLogs(t *testing.T) {
	t.Parallel()

	c := newTestController(t, &fakeGenerator{}, nil)
	st := c.State()

	require.Len(t, st.Nodes, 4)
	assert.Equal(t, "pi-01", st.Nodes[0].ID)
	require.Len(t, st.Metrics, 24)
	assert.Len(t, st.Models, 3)
	assert.Len(t, st.FedRounds, 5)
	assert.Len(t, st.Peers, 3)
	assert.False(t, st.Analyzing)
	assert.Empty(t, st.Insights)

	require.Len(t, st.Logs, 3)
	assert.Equal(t, MsgAggregator, st.Logs[0].Message)
	assert.Equal(t, MsgMeshUp, st.Logs[1].Message)
	assert.Equal(t, MsgInitialized, st.Logs[2].Message)
}

func TestTick_AdvancesState(t *testing.T) {
	t.Parallel()

	c := newTestController(t, &fakeGenerator{}, nil)
	before := c.State()
	c.Tick()
	after := c.State()

	assert.Equal(t, uint64(1), after.Ticks)
	assert.Equal(t, before.Nodes[0].CPUUsage+2, after.Nodes[0].CPUUsage)
	require.Len(t, after.Metrics, 24)
	assert.Equal(t, before.Metrics[1], after.Metrics[0])
	assert.NotEqual(t, before.Metrics[23].Timestamp, after.Metrics[23].Timestamp)
	assert.Equal(t, before.Telemetry.Pressure, after.Telemetry.Pressure)
}

func TestState_IsACopy(t *testing.T) {
	t.Parallel()

	c := newTestController(t, &fakeGenerator{}, nil)
	st := c.State()
	st.Nodes[0].CPUUsage = -1
	snap := c.Snapshot()
	snap.Metrics[0].Latency = -1

	assert.NotEqual(t, -1.0, c.State().Nodes[0].CPUUsage)
	assert.NotEqual(t, -1.0, c.Snapshot().Metrics[0].Latency)
}

func TestRunAnalysis_StoresInsights(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{text: "## All good"}
	c := newTestController(t, gen, nil)

	res := c.RunAnalysis(context.Background())
	assert.Equal(t, analysis.OutcomeSuccess, res.Outcome)

	st := c.State()
	assert.Equal(t, "## All good", st.Insights)
	assert.Equal(t, res.RunID, st.LastRunID)
	assert.False(t, st.Analyzing)
	assert.Equal(t, MsgAnalysisComplete, st.Logs[0].Message)
	assert.Equal(t, MsgAnalysisStart, st.Logs[1].Message)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], `"id": "pi-04"`)
}

func TestRunAnalysis_FailureText(t *testing.T) {
	t.Parallel()

	c := newTestController(t, &fakeGenerator{err: errors.New("dial tcp: no route")}, nil)
	res := c.RunAnalysis(context.Background())

	assert.Equal(t, analysis.OutcomeFailure, res.Outcome)
	assert.Equal(t, analysis.FailureText, c.State().Insights)
}

func TestRunAnalysis_BusyWhileInFlight(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{text: "done", block: make(chan struct{}), started: make(chan struct{})}
	reg := metrics.NewRegistry()
	c := newTestController(t, gen, reg)

	done := make(chan analysis.Result, 1)
	go func() { done <- c.RunAnalysis(context.Background()) }()
	<-gen.started

	assert.True(t, c.State().Analyzing)
	logsBefore := len(c.Logs())

	busy := c.RunAnalysis(context.Background())
	assert.Equal(t, analysis.OutcomeBusy, busy.Outcome)
	assert.ErrorIs(t, busy.Err, analysis.ErrBusy)
	assert.Len(t, c.Logs(), logsBefore)

	close(gen.block)
	res := <-done
	assert.Equal(t, analysis.OutcomeSuccess, res.Outcome)
	assert.False(t, c.State().Analyzing)

	gen.mu.Lock()
	assert.Len(t, gen.prompts, 1)
	gen.mu.Unlock()
}

func TestRunAnalysis_SharedGatewayBusy(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{text: "done", block: make(chan struct{}), started: make(chan struct{})}
	gw := analysis.NewGateway(gen, nil)
	first := New(gw, Options{Rand: constRand(0.5)})
	second := New(gw, Options{Rand: constRand(0.5)})

	done := make(chan analysis.Result, 1)
	go func() { done <- first.RunAnalysis(context.Background()) }()
	<-gen.started

	res := second.RunAnalysis(context.Background())
	assert.Equal(t, analysis.OutcomeBusy, res.Outcome)

	st := second.State()
	assert.False(t, st.Analyzing)
	assert.Empty(t, st.Insights)
	require.GreaterOrEqual(t, len(st.Logs), 2)
	assert.Equal(t, analysis.BusyText, st.Logs[0].Message)
	assert.Equal(t, MsgAnalysisStart, st.Logs[1].Message)

	close(gen.block)
	assert.Equal(t, analysis.OutcomeSuccess, (<-done).Outcome)
}

func TestCopyScript_Logs(t *testing.T) {
	t.Parallel()

	c := newTestController(t, &fakeGenerator{}, nil)
	assert.Equal(t, bootstrap.Script, c.CopyScript())
	assert.Contains(t, c.Logs()[0], MsgScriptCopied)
}

func TestSubscribe_LatestWins(t *testing.T) {
	t.Parallel()

	c := newTestController(t, &fakeGenerator{}, nil)
	ch, cancel := c.Subscribe()
	defer cancel()

	c.Tick()
	c.Tick()
	c.Tick()

	select {
	case st := <-ch:
		assert.Equal(t, uint64(3), st.Ticks)
	case <-time.After(time.Second):
		t.Fatal("no state delivered")
	}

	select {
	case st := <-ch:
		t.Fatalf("unexpected extra state: ticks=%d", st.Ticks)
	default:
	}
}

func TestSubscribe_CancelClosesOnce(t *testing.T) {
	t.Parallel()

	c := newTestController(t, &fakeGenerator{}, nil)
	ch, cancel := c.Subscribe()
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	c.Tick()
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()

	c := New(analysis.NewGateway(&fakeGenerator{}, nil), Options{Interval: 5 * time.Millisecond, Rand: constRand(0.5)})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return c.Ticks() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}

	stopped := c.Ticks()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, c.Ticks())
}

func TestMetricsRegistryObserved(t *testing.T) {
	t.Parallel()

	reg := metrics.NewRegistry()
	c := newTestController(t, &fakeGenerator{text: "ok"}, reg)
	c.Tick()
	c.RunAnalysis(context.Background())

	families, err := reg.Prometheus().Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["sovereign_ticks_total"])
	assert.True(t, names["sovereign_node_cpu_usage_percent"])
	assert.True(t, names["sovereign_analysis_requests_total"])
}

func TestSnapshot_MatchesState(t *testing.T) {
	t.Parallel()

	c := newTestController(t, &fakeGenerator{}, nil)
	want := c.State().Snapshot()
	assert.Equal(t, want, c.Snapshot())
}
