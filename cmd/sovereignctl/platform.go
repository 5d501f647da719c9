package main

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"sovereignctl/internal/analysis"
	"sovereignctl/internal/config"
	"sovereignctl/internal/controller"
	"sovereignctl/internal/logging"
	"sovereignctl/internal/metrics"
	"sovereignctl/internal/sim"
	"sovereignctl/internal/store"
)

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *zap.Logger {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fatal(err)
	}
	return logger
}

// newFileLogger keeps process logs off the terminal. An empty path discards them.
func newFileLogger(cfg config.Config, path string) (*zap.Logger, func()) {
	if path == "" {
		return zap.NewNop(), func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fatal(err)
	}
	logger, err := logging.NewWriter(f, cfg.Log.Level)
	if err != nil {
		f.Close()
		fatal(err)
	}
	return logger, func() {
		_ = logger.Sync()
		f.Close()
	}
}

func newGateway(cfg config.Config, logger *zap.Logger) *analysis.Gateway {
	client := analysis.NewGeminiClient(analysis.GeminiConfig{
		Endpoint:       cfg.Analysis.Endpoint,
		Model:          cfg.Analysis.Model,
		APIKey:         cfg.Analysis.APIKey,
		ThinkingBudget: cfg.Analysis.ThinkingBudget,
		Timeout:        cfg.Analysis.Timeout,
	})
	return analysis.NewGateway(client, logger.Named("analysis"))
}

// newController wires a controller from cfg. A nil clock uses the system clock.
func newController(cfg config.Config, logger *zap.Logger, reg *metrics.Registry, clock sim.Clock) (*controller.Controller, error) {
	catalog, err := store.LoadCatalog(cfg.Simulation.CatalogPath)
	if err != nil {
		return nil, err
	}

	ctl := controller.New(newGateway(cfg, logger), controller.Options{
		Interval:    cfg.Simulation.Interval,
		Window:      cfg.Simulation.Window,
		LogCapacity: cfg.Log.Capacity,
		Sim:         sim.Options{DriftAll: cfg.Simulation.DriftAll},
		Catalog:     catalog,
		Rand:        sim.NewRand(cfg.Simulation.Seed),
		Clock:       clock,
		Logger:      logger.Named("controller"),
		Metrics:     reg,
	})
	return ctl, nil
}

// stepClock is simulated time for the offline commands. It only moves when
// advanced, so back-to-back ticks still get distinct sample labels.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newStepClock(start time.Time, step time.Duration) *stepClock {
	return &stepClock{now: start, step: step}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) advance() {
	c.mu.Lock()
	c.now = c.now.Add(c.step)
	c.mu.Unlock()
}

// warmUp applies n ticks without waiting, moving clock one interval per tick.
func warmUp(ctl *controller.Controller, clock *stepClock, n int) {
	for i := 0; i < n; i++ {
		clock.advance()
		ctl.Tick()
	}
}
