package systems

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/tilenav/components"
)

// MoveOutcome reports what one movement tick did for an agent.
type MoveOutcome uint8

const (
	MoveIdle     MoveOutcome = iota // no active order
	MoveArrived                     // final target reached this tick
	MoveWaiting                     // strategy had no step
	MoveBlocked                     // another occupant half a tile ahead
	MoveAdvanced                    // position changed
)

var moveOutcomeNames = [...]string{"idle", "arrived", "waiting", "blocked", "advanced"}

func (o MoveOutcome) String() string {
	if int(o) < len(moveOutcomeNames) {
		return moveOutcomeNames[o]
	}
	return "unknown"
}

// MovementParams holds movement execution parameters.
type MovementParams struct {
	DT               float64 // seconds per tick
	ArrivalThreshold float64 // world units
}

// MovementSystem advances agents toward their next tile and keeps the
// occupancy index in step with their positions.
type MovementSystem struct {
	occ    *OccupancyIndex
	params MovementParams
}

// NewMovementSystem creates a movement system writing to occ.
func NewMovementSystem(occ *OccupancyIndex, params MovementParams) *MovementSystem {
	return &MovementSystem{occ: occ, params: params}
}

// Order sets a new final target. The target is snapped to its tile centre,
// the intermediate tile is reset to the current position and the strategy
// drops its cached plan.
func (s *MovementSystem) Order(pos components.Position, mv *components.Mover, target r2.Vec, strat Strategy) {
	grid := s.occ.Grid()
	mv.Final = components.Position(grid.Snap(target))
	mv.Next = pos
	mv.Active = true
	mv.WaitTicks = 0
	mv.Steps = 0
	if strat != nil {
		strat.Reset()
	}
}

// Step advances one agent by one tick.
//
// Once the intermediate tile is reached the strategy is asked for the next
// one. Before moving, the point half a tile ahead is checked; if another
// occupant stands there the agent retargets the centre of its own tile and
// asks again once it is there.
func (s *MovementSystem) Step(e ecs.Entity, pos *components.Position, mv *components.Mover, strat Strategy) MoveOutcome {
	if !mv.Active {
		return MoveIdle
	}
	grid := s.occ.Grid()
	p := r2.Vec(*pos)
	final := r2.Vec(mv.Final)

	if HasReached(p, final, s.params.ArrivalThreshold) {
		mv.Active = false
		mv.WaitTicks = 0
		return MoveArrived
	}

	next := r2.Vec(mv.Next)
	if HasReached(p, next, s.params.ArrivalThreshold) {
		step, ok := strat.NextTile(e, p, final)
		if !ok {
			mv.WaitTicks++
			return MoveWaiting
		}
		next = step
		mv.Next = components.Position(step)
		mv.Steps++
	}

	delta := r2.Sub(next, p)
	dist := r2.Norm(delta)
	if dist == 0 {
		mv.WaitTicks++
		return MoveWaiting
	}
	dir := r2.Scale(1/dist, delta)

	ahead := r2.Add(p, r2.Scale(grid.TileSize/2, dir))
	if grid.Key(ahead) != grid.Key(p) && s.occ.IsBlockedFor(ahead, e) {
		mv.Next = components.Position(grid.Snap(p))
		mv.WaitTicks++
		return MoveBlocked
	}

	travel := mv.Speed * s.params.DT
	if travel >= dist {
		p = next
	} else {
		p = r2.Add(p, r2.Scale(travel, dir))
	}
	*pos = components.Position(p)
	s.occ.Upsert(e, components.KindMobile, p)
	mv.WaitTicks = 0
	return MoveAdvanced
}

// AdvancePatrol moves a patrol to its next point and returns it.
func AdvancePatrol(p *components.Patrol) (components.Position, bool) {
	if len(p.Points) == 0 {
		return components.Position{}, false
	}
	p.Index = (p.Index + 1) % len(p.Points)
	return p.Points[p.Index], true
}
