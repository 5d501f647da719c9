package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"sovereignctl/internal/auth"
	"sovereignctl/internal/bootstrap"
	"sovereignctl/internal/broadcast"
	"sovereignctl/internal/config"
	"sovereignctl/internal/controller"
	"sovereignctl/internal/dash"
	"sovereignctl/internal/doctor"
	"sovereignctl/internal/metrics"
	"sovereignctl/internal/model"
	"sovereignctl/internal/server"
	"sovereignctl/internal/store"
)

const usage = `sovereignctl - sovereign edge cluster simulator and analysis gateway

Usage:
  sovereignctl init --config <path> [--catalog <path>]
  sovereignctl serve [--config <path>] [--listen :8080] [--publish tcp://127.0.0.1:7711]
  sovereignctl dash [--config <path>] [--log-file <path>]
  sovereignctl analyze [--config <path>] [--snapshot <file.json>] [--ticks n]
  sovereignctl snapshot [--config <path>] [--ticks n]
  sovereignctl stats [--config <path>] [--ticks n] [--csv <file>] [--json]
  sovereignctl export csv --out <file> [--config <path>] [--ticks n] [--append]
  sovereignctl watch --addr tcp://127.0.0.1:7711
  sovereignctl token --subject <name> [--config <path>]
  sovereignctl doctor [--config <path>] [--offline] [--json]
  sovereignctl bootstrap-script [--checksum]

Environment:
  API_KEY    key for the analysis endpoint
  LOG_LEVEL  overrides log.level
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd := os.Args[1]
	switch cmd {
	case "-h", "--help", "help":
		fmt.Print(usage)
	case "init":
		handleInit(os.Args[2:])
	case "serve":
		handleServe(os.Args[2:])
	case "dash":
		handleDash(os.Args[2:])
	case "analyze":
		handleAnalyze(os.Args[2:])
	case "snapshot":
		handleSnapshot(os.Args[2:])
	case "stats":
		handleStats(os.Args[2:])
	case "export":
		handleExport(os.Args[2:])
	case "watch":
		handleWatch(os.Args[2:])
	case "token":
		handleToken(os.Args[2:])
	case "doctor":
		handleDoctor(os.Args[2:])
	case "bootstrap-script":
		handleBootstrapScript(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func handleInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "", "path to write the YAML config")
	catalogPath := fs.String("catalog", "", "also write the built-in catalog here")
	force := fs.Bool("force", false, "overwrite existing files")
	_ = fs.Parse(args)

	if *configPath == "" {
		fatal(errors.New("--config is required"))
	}
	if !*force {
		for _, p := range []string{*configPath, *catalogPath} {
			if p == "" {
				continue
			}
			if _, err := os.Stat(p); err == nil {
				fatal(fmt.Errorf("%s exists (use --force)", p))
			}
		}
	}

	cfg := config.Default()
	cfg.Simulation.CatalogPath = *catalogPath
	if err := config.Save(*configPath, cfg); err != nil {
		fatal(err)
	}
	fmt.Fprintf(os.Stdout, "wrote %s\n", *configPath)

	if *catalogPath != "" {
		if err := store.SaveCatalog(*catalogPath, store.Builtin()); err != nil {
			fatal(err)
		}
		fmt.Fprintf(os.Stdout, "wrote %s\n", *catalogPath)
	}
}

func handleServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	listen := fs.String("listen", "", "HTTP listen address override")
	publish := fs.String("publish", "", "nng pub address override")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *publish != "" {
		cfg.Server.PublishAddr = *publish
	}

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	reg := metrics.NewRegistry()
	ctl, err := newController(cfg, logger, reg, nil)
	if err != nil {
		fatal(err)
	}

	var tokens *auth.TokenService
	if cfg.Server.AuthSecret != "" {
		tokens = auth.NewTokenService(cfg.Server.AuthSecret, cfg.Server.TokenTTL)
	}
	srv := server.New(ctl, server.Options{
		Listen:      cfg.Server.Listen,
		CORSOrigins: cfg.Server.CORSOrigins,
		Tokens:      tokens,
		Metrics:     reg,
		Logger:      logger.Named("http"),
	})

	ctx, stop := signalContext()
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(ctl.Run(ctx)) })
	g.Go(func() error { return srv.ListenAndServe(ctx) })

	if cfg.Server.PublishAddr != "" {
		pub, err := broadcast.Listen(cfg.Server.PublishAddr, logger.Named("broadcast"))
		if err != nil {
			fatal(err)
		}
		defer pub.Close()

		states, cancel := ctl.Subscribe()
		defer cancel()
		g.Go(func() error { return ignoreCanceled(pub.Run(ctx, states)) })
	}

	fatal(g.Wait())
}

func handleDash(args []string) {
	fs := flag.NewFlagSet("dash", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	logFile := fs.String("log-file", "", "write process logs to this file")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	logger, closeLog := newFileLogger(cfg, *logFile)
	defer closeLog()

	ctl, err := newController(cfg, logger, nil, nil)
	if err != nil {
		fatal(err)
	}

	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(ctl.Run(gctx)) })
	g.Go(func() error {
		defer cancel()
		return dash.Run(gctx, ctl)
	})
	fatal(g.Wait())
}

func handleAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	snapshotPath := fs.String("snapshot", "", "analyze this snapshot JSON instead of a simulated one")
	ticks := fs.Int("ticks", 0, "simulation ticks to apply before analyzing")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	var snap model.Snapshot
	if *snapshotPath != "" {
		snap, err = readSnapshot(*snapshotPath)
		if err != nil {
			fatal(err)
		}
	} else {
		clock := newStepClock(time.Now(), cfg.Simulation.Interval)
		ctl, err := newController(cfg, logger, nil, clock)
		if err != nil {
			fatal(err)
		}
		warmUp(ctl, clock, *ticks)
		snap = ctl.Snapshot()
	}

	ctx, stop := signalContext()
	defer stop()

	res := newGateway(cfg, logger).Analyze(ctx, snap)
	fmt.Fprintln(os.Stdout, res.Display())
	if res.Err != nil {
		os.Exit(1)
	}
}

func handleSnapshot(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	ticks := fs.Int("ticks", 0, "simulation ticks to apply first")
	_ = fs.Parse(args)

	ctl := simulate(*configPath, *ticks)
	data, err := json.MarshalIndent(ctl.Snapshot(), "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Fprintln(os.Stdout, string(data))
}

func handleStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	ticks := fs.Int("ticks", 0, "simulation ticks to apply first")
	csvPath := fs.String("csv", "", "summarize an exported CSV instead of a simulated window")
	asJSON := fs.Bool("json", false, "print the summary as JSON")
	_ = fs.Parse(args)

	var items []model.InferenceMetric
	if *csvPath != "" {
		var err error
		items, err = metrics.ReadCSV(*csvPath)
		if err != nil {
			fatal(err)
		}
	} else {
		items = simulate(*configPath, *ticks).Snapshot().Metrics
	}
	summary := metrics.Summarize(items)

	if *asJSON {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			fatal(err)
		}
		fmt.Fprintln(os.Stdout, string(data))
		return
	}
	if summary.Count == 0 {
		fmt.Fprintln(os.Stdout, "no samples in window")
		return
	}

	fmt.Fprintf(os.Stdout, "samples=%d from=%s to=%s\n", summary.Count, summary.From, summary.To)
	fmt.Fprintf(os.Stdout, "latency avg=%.2fms p95=%.2fms min=%.2fms max=%.2fms\n", summary.AvgLatencyMs, summary.P95LatencyMs, summary.MinLatencyMs, summary.MaxLatencyMs)
	fmt.Fprintf(os.Stdout, "throughput avg=%.2f min=%.2f max=%.2f req/s\n", summary.AvgThroughput, summary.MinThroughput, summary.MaxThroughput)
}

func handleExport(args []string) {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, "export subcommand required\n")
		os.Exit(2)
	}
	if args[0] != "csv" {
		fmt.Fprintf(os.Stderr, "unknown export format %q\n", args[0])
		os.Exit(2)
	}

	fs := flag.NewFlagSet("export csv", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	out := fs.String("out", "", "output file")
	ticks := fs.Int("ticks", 0, "simulation ticks to apply first")
	appendRows := fs.Bool("append", false, "append to an existing file")
	_ = fs.Parse(args[1:])

	if *out == "" {
		fatal(errors.New("--out is required"))
	}

	items := simulate(*configPath, *ticks).Snapshot().Metrics
	if *appendRows {
		if err := metrics.AppendCSV(*out, items); err != nil {
			fatal(err)
		}
	} else {
		f, err := os.Create(*out)
		if err != nil {
			fatal(err)
		}
		if err := metrics.WriteCSV(f, items); err != nil {
			f.Close()
			fatal(err)
		}
		if err := f.Close(); err != nil {
			fatal(err)
		}
	}
	fmt.Fprintf(os.Stdout, "exported %d samples to %s\n", len(items), *out)
}

func handleWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	addr := fs.String("addr", "", "publisher address, e.g. tcp://127.0.0.1:7711")
	_ = fs.Parse(args)

	if *addr == "" {
		fatal(errors.New("--addr is required"))
	}

	ctx, stop := signalContext()
	defer stop()

	err := broadcast.Watch(ctx, *addr, func(st model.State) error {
		fmt.Fprintln(os.Stdout, formatState(st))
		return nil
	})
	fatal(ignoreCanceled(err))
}

func handleToken(args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	subject := fs.String("subject", "", "operator name")
	ttl := fs.Duration("ttl", 0, "token lifetime override")
	_ = fs.Parse(args)

	if *subject == "" {
		fatal(errors.New("--subject is required"))
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	if cfg.Server.AuthSecret == "" {
		fatal(errors.New("server.auth_secret is not set"))
	}
	if *ttl > 0 {
		cfg.Server.TokenTTL = *ttl
	}

	token, err := auth.NewTokenService(cfg.Server.AuthSecret, cfg.Server.TokenTTL).Issue(*subject)
	if err != nil {
		fatal(err)
	}
	fmt.Fprintln(os.Stdout, token)
}

func handleDoctor(args []string) {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	offline := fs.Bool("offline", false, "skip network checks")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	timeout := fs.Duration("timeout", 3*time.Second, "per-probe timeout")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(err)
	}

	ctx, stop := signalContext()
	defer stop()

	report := doctor.Run(ctx, doctor.Options{
		STUNServers: cfg.Doctor.STUNServers,
		STUNTimeout: *timeout,
		Endpoint:    cfg.Analysis.Endpoint,
		APIKey:      cfg.Analysis.APIKey,
		SkipNetwork: *offline,
	})

	if *asJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fatal(err)
		}
		fmt.Fprintln(os.Stdout, string(data))
	} else if err := doctor.WriteText(os.Stdout, report); err != nil {
		fatal(err)
	}

	if report.Status == doctor.StatusUnhealthy {
		os.Exit(1)
	}
}

func handleBootstrapScript(args []string) {
	fs := flag.NewFlagSet("bootstrap-script", flag.ExitOnError)
	checksum := fs.Bool("checksum", false, "print the SHA-256 of the script instead")
	_ = fs.Parse(args)

	if *checksum {
		fmt.Fprintln(os.Stdout, bootstrap.Checksum())
		return
	}
	fmt.Fprintf(os.Stdout, "%s", bootstrap.Script)
}

// simulate builds a quiet controller and applies ticks; used by the
// offline commands.
func simulate(configPath string, ticks int) *controller.Controller {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fatal(err)
	}
	clock := newStepClock(time.Now(), cfg.Simulation.Interval)
	ctl, err := newController(cfg, newLogger(cfg), nil, clock)
	if err != nil {
		fatal(err)
	}
	warmUp(ctl, clock, ticks)
	return ctl
}

func readSnapshot(path string) (model.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Snapshot{}, err
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return snap, nil
}

func formatState(st model.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "tick=%d", st.Ticks)
	for _, n := range st.Nodes {
		fmt.Fprintf(&b, " %s=%.1f%%/%.1fC", n.ID, n.CPUUsage, n.Temp)
	}
	if len(st.Metrics) > 0 {
		last := st.Metrics[len(st.Metrics)-1]
		fmt.Fprintf(&b, " latency=%.1fms throughput=%.1f", last.Latency, last.Throughput)
	}
	if st.Analyzing {
		b.WriteString(" analyzing")
	}
	return b.String()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func fatal(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
