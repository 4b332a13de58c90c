package game

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/tilenav/systems"
	"github.com/pthm-cable/tilenav/telemetry"
)

// Step advances the simulation by one tick.
//
// Agents are processed in spawn order; each agent's occupancy update is
// visible to the agents processed after it in the same tick.
func (g *Game) Step() {
	g.perfCollector.StartTick()

	g.perfCollector.StartPhase(telemetry.PhaseRefresh)
	if !g.navBuilt {
		g.BuildNavigation()
	} else if g.nav.Dirty() {
		g.nav.Refresh()
	}

	g.perfCollector.StartPhase(telemetry.PhaseMovement)
	g.updateMovement()

	g.perfCollector.StartPhase(telemetry.PhasePatrol)
	g.updatePatrols()

	g.tick++

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()

	g.perfCollector.EndTick()
}

// Run advances the simulation by n ticks.
func (g *Game) Run(n int) {
	for i := 0; i < n; i++ {
		g.Step()
	}
}

// updateMovement steps every agent once.
func (g *Game) updateMovement() {
	g.arrivedBuf = g.arrivedBuf[:0]
	dt := g.cfg.Movement.DT

	for _, e := range g.agents {
		pos, _, mv := g.agentMapper.Get(e)
		before := r2.Vec(*pos)

		out := g.movement.Step(e, pos, mv, g.strategies[e])

		g.collector.RecordMove(out)
		moved := systems.Distance(before, r2.Vec(*pos))
		g.lifetimeTracker.RecordOutcome(e.ID(), out, moved, g.tick, dt)

		if out == systems.MoveArrived {
			g.arrivedBuf = append(g.arrivedBuf, e)
		}
	}
}

// updatePatrols sends agents that just arrived to their next patrol point.
func (g *Game) updatePatrols() {
	for _, e := range g.arrivedBuf {
		if !g.patrolMap.HasAll(e) {
			continue
		}
		next, ok := systems.AdvancePatrol(g.patrolMap.Get(e))
		if !ok {
			continue
		}
		g.order(e, r2.Vec(next))
	}
}
