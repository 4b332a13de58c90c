package systems

import (
	"testing"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/tilenav/components"
)

// stuckStrategy never has a step.
type stuckStrategy struct{ resets int }

func (s *stuckStrategy) Reset() { s.resets++ }
func (s *stuckStrategy) NextTile(ecs.Entity, r2.Vec, r2.Vec) (r2.Vec, bool) {
	return r2.Vec{}, false
}

func newMovementFixture() (*OccupancyIndex, *MovementSystem, ecs.Entity, *components.Position, *components.Mover) {
	grid := NewTileGrid(16, 10, 10)
	occ := NewOccupancyIndex(grid)
	sys := NewMovementSystem(occ, MovementParams{DT: 0.25, ArrivalThreshold: 2})
	self := newTestEntities(1)[0]
	pos := components.Position(grid.Center(0, 0))
	occ.Upsert(self, components.KindMobile, r2.Vec(pos))
	mv := &components.Mover{Speed: 16} // 4 units per tick
	return occ, sys, self, &pos, mv
}

func TestMovementWalksToTarget(t *testing.T) {
	occ, sys, self, pos, mv := newMovementFixture()
	grid := occ.Grid()
	strat := NewDirectStrategy(grid)
	sys.Order(*pos, mv, r2.Vec{X: 50, Y: 3}, strat)

	if mv.Final != components.Position(grid.Center(3, 0)) {
		t.Fatalf("final = %v, want snapped tile centre", mv.Final)
	}

	ticks := 0
	for ; ticks < 100; ticks++ {
		out := sys.Step(self, pos, mv, strat)
		if out == MoveArrived {
			break
		}
		if out != MoveAdvanced {
			t.Fatalf("tick %d: outcome %v", ticks, out)
		}
		if key, _ := occ.CellOf(self); key != grid.Key(r2.Vec(*pos)) {
			t.Fatalf("tick %d: index cell out of step with position %v", ticks, *pos)
		}
	}
	// 48 units at 4 per tick, then one tick to notice arrival.
	if ticks != 12 {
		t.Errorf("arrived after %d moving ticks, want 12", ticks)
	}
	if mv.Active {
		t.Error("mover still active after arrival")
	}
	if mv.Steps != 3 {
		t.Errorf("steps = %d, want 3", mv.Steps)
	}
	if sys.Step(self, pos, mv, strat) != MoveIdle {
		t.Error("inactive mover should be idle")
	}
}

func TestMovementStopsBeforeOccupant(t *testing.T) {
	occ, sys, self, pos, mv := newMovementFixture()
	grid := occ.Grid()
	other := newTestEntities(1)[0]
	occ.Upsert(other, components.KindMobile, grid.Center(1, 0))

	strat := NewDirectStrategy(grid)
	sys.Order(*pos, mv, grid.Center(3, 0), strat)

	start := *pos
	if out := sys.Step(self, pos, mv, strat); out != MoveBlocked {
		t.Fatalf("outcome = %v, want blocked", out)
	}
	if *pos != start {
		t.Errorf("blocked agent moved to %v", *pos)
	}
	if mv.Next != start {
		t.Errorf("next = %v, want own tile centre", mv.Next)
	}

	occ.Remove(other)
	if out := sys.Step(self, pos, mv, strat); out != MoveAdvanced {
		t.Errorf("outcome after the tile cleared = %v, want advanced", out)
	}
}

func TestMovementWaitsWithoutStep(t *testing.T) {
	_, sys, self, pos, mv := newMovementFixture()
	strat := &stuckStrategy{}
	sys.Order(*pos, mv, r2.Vec{X: 150, Y: 150}, strat)

	if strat.resets != 1 {
		t.Errorf("Order reset the strategy %d times, want 1", strat.resets)
	}
	for i := 0; i < 3; i++ {
		if out := sys.Step(self, pos, mv, strat); out != MoveWaiting {
			t.Fatalf("outcome = %v, want waiting", out)
		}
	}
	if mv.WaitTicks != 3 || !mv.Active {
		t.Errorf("wait ticks %d active %v, want 3 and still active", mv.WaitTicks, mv.Active)
	}
}

func TestAdvancePatrolLoops(t *testing.T) {
	p := &components.Patrol{Points: []components.Position{{X: 1}, {X: 2}, {X: 3}}}
	var got []float64
	for i := 0; i < 4; i++ {
		next, ok := AdvancePatrol(p)
		if !ok {
			t.Fatal("expected a patrol point")
		}
		got = append(got, next.X)
	}
	want := []float64{2, 3, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("patrol order = %v, want %v", got, want)
			break
		}
	}
	if _, ok := AdvancePatrol(&components.Patrol{}); ok {
		t.Error("empty patrol has no next point")
	}
}
