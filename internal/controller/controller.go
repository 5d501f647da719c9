package controller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"sovereignctl/internal/analysis"
	"sovereignctl/internal/bootstrap"
	"sovereignctl/internal/eventlog"
	"sovereignctl/internal/metrics"
	"sovereignctl/internal/model"
	"sovereignctl/internal/sim"
	"sovereignctl/internal/store"
)

// Event log lines.
const (
	MsgInitialized      = "Sovereign Platform Control Initialized"
	MsgMeshUp           = "WireGuard Mesh Tunnel (wg-edge) established"
	MsgAggregator       = "Federated learning aggregator listening on :8080"
	MsgAnalysisStart    = "Executing Sovereign AI Infrastructure Audit..."
	MsgAnalysisComplete = "Sovereign Analysis Complete."
	MsgScriptCopied     = "Bootstrap script copied to clipboard."
)

// Options configure a Controller. Zero values fall back to defaults.
type Options struct {
	Interval    time.Duration
	Window      int
	LogCapacity int
	Sim         sim.Options
	Catalog     *store.Catalog
	Rand        sim.Rand
	Clock       sim.Clock
	Logger      *zap.Logger
	Metrics     *metrics.Registry
}

// Controller is the single owner of the dashboard state. Ticks, analysis
// runs and readers may come from different goroutines.
type Controller struct {
	gen      *sim.Generator
	gateway  *analysis.Gateway
	events   *eventlog.Log
	logger   *zap.Logger
	registry *metrics.Registry
	interval time.Duration

	mu        sync.Mutex
	nodes     []model.Node
	window    []model.InferenceMetric
	telemetry model.TelemetryReading
	models    []model.LocalModel
	rounds    []model.FederatedRound
	peers     []model.P2PPeer
	insights  string
	analyzing bool
	lastRunID string
	ticks     uint64
	updatedAt time.Time

	subs    map[int]chan model.State
	nextSub int
}

// New seeds a controller and records the startup log lines.
func New(gw *analysis.Gateway, opts Options) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = sim.DefaultInterval
	}
	if opts.Window <= 0 {
		opts.Window = sim.DefaultWindow
	}
	if opts.Rand == nil {
		opts.Rand = sim.NewRand(0)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Catalog == nil {
		opts.Catalog = store.Builtin()
	}

	gen := sim.NewGenerator(opts.Rand, opts.Clock, opts.Sim)
	events := eventlog.New(opts.LogCapacity).WithClock(gen.Clock.Now)

	c := &Controller{
		gen:       gen,
		gateway:   gw,
		events:    events,
		logger:    opts.Logger,
		registry:  opts.Metrics,
		interval:  opts.Interval,
		nodes:     cloneNodes(opts.Catalog.Nodes),
		window:    sim.InitialMetrics(opts.Rand, opts.Window),
		telemetry: sim.InitialTelemetry(),
		models:    opts.Catalog.Models,
		rounds:    opts.Catalog.Rounds,
		peers:     opts.Catalog.Peers,
		updatedAt: gen.Clock.Now(),
		subs:      make(map[int]chan model.State),
	}

	c.events.Add(MsgInitialized)
	c.events.Add(MsgMeshUp)
	c.events.Add(MsgAggregator)

	if c.registry != nil {
		c.registry.ObserveState(c.State())
	}
	return c
}

// Interval returns the tick period used by Run.
func (c *Controller) Interval() time.Duration { return c.interval }

// Run ticks at the configured interval until ctx is done. The ticker is
// stopped on return and no tick is applied afterwards.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info("simulation started", zap.Duration("interval", c.interval))
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("simulation stopped", zap.Uint64("ticks", c.Ticks()))
			return ctx.Err()
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Tick applies one simulation step and notifies subscribers.
func (c *Controller) Tick() {
	c.mu.Lock()
	c.nodes, c.window, c.telemetry = c.gen.Tick(c.nodes, c.window, c.telemetry)
	c.ticks++
	c.updatedAt = c.gen.Clock.Now()
	st := c.stateLocked()
	c.broadcastLocked(st)
	c.mu.Unlock()

	if c.registry != nil {
		c.registry.RecordTick()
		c.registry.ObserveState(st)
	}
}

// Ticks returns the number of ticks applied so far.
func (c *Controller) Ticks() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// State returns a deep copy of the full state.
func (c *Controller) State() model.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Snapshot returns a deep copy of the analysis bundle.
func (c *Controller) Snapshot() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Logs returns the rendered event log, newest first.
func (c *Controller) Logs() []string {
	return c.events.Lines()
}

// Log appends msg to the event log.
func (c *Controller) Log(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events.Add(msg)
	c.broadcastLocked(c.stateLocked())
}

// RunAnalysis sends the current snapshot through the gateway and stores the
// display text as the insights. A call while one is running returns a busy
// result and leaves the state untouched.
func (c *Controller) RunAnalysis(ctx context.Context) analysis.Result {
	c.mu.Lock()
	if c.analyzing {
		c.mu.Unlock()
		return analysis.Result{Outcome: analysis.OutcomeBusy, Err: analysis.ErrBusy}
	}
	c.analyzing = true
	snap := c.snapshotLocked()
	c.events.Add(MsgAnalysisStart)
	c.broadcastLocked(c.stateLocked())
	c.mu.Unlock()

	res := c.gateway.Analyze(ctx, snap)

	c.mu.Lock()
	c.analyzing = false
	if res.Outcome == analysis.OutcomeBusy {
		// Another controller holds the shared gateway.
		c.events.Add(analysis.BusyText)
	} else {
		c.insights = res.Display()
		c.lastRunID = res.RunID
		c.events.Add(MsgAnalysisComplete)
	}
	c.broadcastLocked(c.stateLocked())
	c.mu.Unlock()

	if c.registry != nil {
		c.registry.RecordAnalysis(string(res.Outcome), res.Duration)
	}
	return res
}

// CopyScript returns the bootstrap script and logs the copy.
func (c *Controller) CopyScript() string {
	c.Log(MsgScriptCopied)
	return bootstrap.Script
}

// Subscribe returns a channel that receives a state copy after every change.
// The channel holds only the latest state; a slow reader skips intermediate
// ones. cancel unsubscribes and closes the channel; it is safe to call twice.
func (c *Controller) Subscribe() (<-chan model.State, func()) {
	ch := make(chan model.State, 1)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			close(ch)
			c.mu.Unlock()
		})
	}
	return ch, cancel
}

func (c *Controller) broadcastLocked(st model.State) {
	for _, ch := range c.subs {
		send := st.Clone()
		select {
		case ch <- send:
		default:
			// Replace the stale pending state.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- send:
			default:
			}
		}
	}
}

func (c *Controller) stateLocked() model.State {
	st := model.State{
		Nodes:     c.nodes,
		Metrics:   c.window,
		Telemetry: c.telemetry,
		Models:    c.models,
		FedRounds: c.rounds,
		Peers:     c.peers,
		Logs:      c.events.Entries(),
		Insights:  c.insights,
		Analyzing: c.analyzing,
		LastRunID: c.lastRunID,
		Ticks:     c.ticks,
		UpdatedAt: c.updatedAt,
	}
	return st.Clone()
}

func (c *Controller) snapshotLocked() model.Snapshot {
	return model.Snapshot{
		Nodes:     c.nodes,
		Metrics:   c.window,
		FedRounds: c.rounds,
		Models:    c.models,
		Peers:     c.peers,
	}.Clone()
}

func cloneNodes(nodes []model.Node) []model.Node {
	out := make([]model.Node, len(nodes))
	copy(out, nodes)
	return out
}
