package game

import (
	"fmt"
	"io"
	"time"

	"github.com/pthm-cable/tilenav/telemetry"
)

// logWriter is the destination for log output.
var logWriter io.Writer

// SetLogWriter sets the log output destination.
func SetLogWriter(w io.Writer) {
	logWriter = w
}

// Logf writes a formatted log message.
func Logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if logWriter != nil {
		fmt.Fprintln(logWriter, msg)
	} else {
		fmt.Println(msg)
	}
}

// LogPerfStats logs per-phase timing over the perf window.
func (g *Game) LogPerfStats() {
	stats := g.perfCollector.Stats()
	Logf("=== Perf @ Tick %d | %.0f ticks/s ===", g.tick, stats.TicksPerSecond)
	Logf("Avg step time: %s (min %s, p90 %s, max %s) over %d steps",
		stats.AvgTickDuration.Round(time.Microsecond),
		stats.MinTickDuration.Round(time.Microsecond),
		stats.P90TickDuration.Round(time.Microsecond),
		stats.MaxTickDuration.Round(time.Microsecond),
		stats.Steps)
	for _, ph := range []telemetry.Phase{
		telemetry.PhaseRefresh, telemetry.PhaseMovement, telemetry.PhasePatrol, telemetry.PhaseTelemetry,
	} {
		pt := stats.Phase(ph)
		Logf("  %-12s %10s  %5.1f%%", ph, pt.Avg.Round(time.Microsecond), pt.Pct)
	}
	Logf("")
}

// LogWorldState logs the current map and agent state.
func (g *Game) LogWorldState() {
	cols, rows := g.nav.Dims()
	Logf("=== Tick %d ===", g.tick)
	Logf("Map: %dx%d tiles, %dx%d clusters, %d obstacles, %d gates (gen %d)",
		g.grid.Width, g.grid.Height, cols, rows, len(g.obstacles), g.nav.GateCount(), g.nav.Generation())

	var active, waiting int
	byStrategy := make(map[string]int)
	for _, e := range g.agents {
		_, _, mv := g.agentMapper.Get(e)
		if mv.Active {
			active++
			if mv.WaitTicks > 0 {
				waiting++
			}
		}
		byStrategy[g.strategyNames[e]]++
	}
	Logf("Agents: %d (active: %d, waiting: %d)", len(g.agents), active, waiting)
	for name, n := range byStrategy {
		Logf("  %-12s %d", name, n)
	}

	tot := g.collector.Totals()
	Logf("Searches: local=%d (fail %d), abstract=%d (fail %d), gatelink=%d, truncated=%d",
		tot.Searches[0], tot.Failures[0], tot.Searches[1], tot.Failures[1], tot.Searches[2], tot.Truncated)
	Logf("Moves: arrivals=%d, blocked=%d, waiting=%d", tot.Arrivals, tot.Blocked, tot.Waiting)
	Logf("")
}
