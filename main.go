package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/pthm-cable/tilenav/config"
	"github.com/pthm-cable/tilenav/game"
	"github.com/pthm-cable/tilenav/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for per-window snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	restore := flag.String("restore", "", "Snapshot file to restore instead of generating a scenario")
	seed := flag.Int64("seed", 0, "RNG seed (0 = scenario.seed from config)")
	strategy := flag.String("strategy", "", "Override movement.strategy (hierarchical, reactive, direct)")
	maxTicks := flag.Int("max-ticks", 3600, "Stop after N ticks")
	logEvery := flag.Int("log-every", 0, "Print a world summary every N ticks (0 = off)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *strategy != "" {
		cfg.Movement.Strategy = *strategy
	}

	opts := game.Options{
		Seed:           *seed,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		SnapshotDir:    *snapshotDir,
		OutputDir:      *outputDir,
	}

	g, err := game.NewGame(cfg, opts)
	if err != nil {
		slog.Error("failed to create game", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := g.Close(); err != nil {
			slog.Error("failed to close output", "error", err)
		}
	}()
	game.SetLogWriter(os.Stderr)

	if *restore != "" {
		snap, err := telemetry.LoadSnapshot(*restore)
		if err != nil {
			slog.Error("failed to load snapshot", "error", err)
			os.Exit(1)
		}
		if err := g.Restore(snap); err != nil {
			slog.Error("failed to restore snapshot", "error", err)
			os.Exit(1)
		}
	} else {
		g.GenerateScenario()
	}

	slog.Info("starting headless simulation",
		"seed", g.Seed(),
		"strategy", cfg.Movement.Strategy,
		"agents", len(g.Agents()),
		"obstacles", g.ObstacleCount(),
		"gates", g.Clusters().GateCount(),
		"max_ticks", *maxTicks,
	)

	for int(g.Tick()) < *maxTicks {
		g.Step()
		if *logEvery > 0 && int(g.Tick())%*logEvery == 0 {
			g.LogWorldState()
			g.LogPerfStats()
		}
	}

	tot := g.Collector().Totals()
	slog.Info("max ticks reached",
		"tick", g.Tick(),
		"arrivals", tot.Arrivals,
		"blocked", tot.Blocked,
		"truncated", tot.Truncated,
	)
}
