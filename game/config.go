package game

import "github.com/pthm-cable/tilenav/telemetry"

// Options holds per-run settings that are not part of the engine config.
type Options struct {
	Seed           int64   // 0 = use scenario.seed from config
	LogStats       bool    // emit window stats via slog
	StatsWindowSec float64 // 0 = use telemetry.stats_window from config
	OutputDir      string  // CSV, config and snapshot output; empty disables
	SnapshotDir    string  // extra snapshot destination; empty disables

	// StatsCallback, if set, receives every flushed stats window.
	StatsCallback func(telemetry.WindowStats)
}
