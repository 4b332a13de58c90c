package game

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/tilenav/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and writes it out.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	stats := g.collector.Flush(g.tick, g.ActiveAgents(), g.nav.Generation())
	perfStats := g.perfCollector.Stats()

	if g.opts.StatsCallback != nil {
		g.opts.StatsCallback(stats)
	}

	if g.opts.LogStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if g.outputManager != nil {
		if err := g.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	if g.opts.SnapshotDir != "" {
		if _, err := telemetry.SaveSnapshot(g.Snapshot(), g.opts.SnapshotDir); err != nil {
			slog.Error("failed to save snapshot", "error", err)
		}
	}
}

// Snapshot captures obstacles and agents for a later Restore.
func (g *Game) Snapshot() *telemetry.Snapshot {
	s := &telemetry.Snapshot{
		Version:     telemetry.SnapshotVersion,
		Seed:        g.seed,
		TileSize:    g.grid.TileSize,
		WidthTiles:  g.grid.Width,
		HeightTiles: g.grid.Height,
		ClusterSize: g.cfg.Grid.ClusterSize,
		Tick:        g.tick,
		Generation:  g.nav.Generation(),
		Gates:       g.nav.GateCount(),
	}

	for ty := 0; ty < g.grid.Height; ty++ {
		for tx := 0; tx < g.grid.Width; tx++ {
			if _, ok := g.ObstacleAt(tx, ty); ok {
				s.Obstacles = append(s.Obstacles, telemetry.TileState{X: tx, Y: ty})
			}
		}
	}

	for _, e := range g.agents {
		pos, _, mv := g.agentMapper.Get(e)
		a := telemetry.AgentState{
			ID:       e.ID(),
			Strategy: g.strategyNames[e],
			X:        pos.X,
			Y:        pos.Y,
			Speed:    mv.Speed,
			Active:   mv.Active,
			TargetX:  mv.Final.X,
			TargetY:  mv.Final.Y,
		}
		if ls := g.lifetimeTracker.Get(e.ID()); ls != nil {
			rec := ls.Record(e.ID())
			a.Lifetime = &rec
		}
		s.Agents = append(s.Agents, a)
	}
	return s
}

// Restore rebuilds obstacles and agents from a snapshot into an empty game.
// Agents keep their exact positions; those with an active order are
// re-ordered and replan from scratch.
func (g *Game) Restore(s *telemetry.Snapshot) error {
	if len(g.agents) > 0 || len(g.obstacles) > 0 {
		return fmt.Errorf("restore into non-empty game")
	}
	if s.WidthTiles != g.grid.Width || s.HeightTiles != g.grid.Height || s.TileSize != g.grid.TileSize {
		return fmt.Errorf("snapshot map %dx%d@%v does not match %dx%d@%v",
			s.WidthTiles, s.HeightTiles, s.TileSize, g.grid.Width, g.grid.Height, g.grid.TileSize)
	}

	g.tick = s.Tick
	for _, o := range s.Obstacles {
		g.AddObstacle(o.X, o.Y)
	}
	g.BuildNavigation()

	for _, a := range s.Agents {
		pos := r2.Vec{X: a.X, Y: a.Y}
		if !g.grid.Contains(pos) || g.occ.IsBlockedByStatic(pos) {
			return fmt.Errorf("restore agent %d: position (%.1f, %.1f) not walkable", a.ID, a.X, a.Y)
		}
		e, err := g.spawn(pos, a.Strategy)
		if err != nil {
			return fmt.Errorf("restore agent %d: %w", a.ID, err)
		}
		if a.Speed > 0 {
			g.moverMap.Get(e).Speed = a.Speed
		}
		if a.Active {
			if err := g.MoveTo(e, r2.Vec{X: a.TargetX, Y: a.TargetY}); err != nil {
				return err
			}
		}
	}
	return nil
}
