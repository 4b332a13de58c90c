package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

// Turn is a remembered detour side.
type Turn int8

const (
	TurnNone  Turn = 0
	TurnLeft  Turn = 1  // positive rotation
	TurnRight Turn = -1 // negative rotation
)

func (t Turn) String() string {
	switch t {
	case TurnLeft:
		return "left"
	case TurnRight:
		return "right"
	}
	return "none"
}

// SteeringParams holds the probing angles of the reactive strategy.
type SteeringParams struct {
	ProbeStep float64 // radians between probes
	MaxProbe  float64 // largest probe offset
	Commit    float64 // offset at which the chosen side is committed
}

// DefaultSteeringParams probes at 45, 90 and 135 degrees and commits at 90.
func DefaultSteeringParams() SteeringParams {
	return SteeringParams{
		ProbeStep: math.Pi / 4,
		MaxProbe:  3 * math.Pi / 4,
		Commit:    math.Pi / 2,
	}
}

// ReactiveStrategy walks straight toward the target and detours around
// whatever blocks the direct tile by probing at growing angles to both sides.
// Once a detour reaches the commit angle the side is kept until the direct
// tile opens again, so the agent follows walls instead of oscillating.
// The tile vacated by the last move is never chosen.
type ReactiveStrategy struct {
	occ    *OccupancyIndex
	params SteeringParams

	commit  Turn
	current TileKey
	hasCur  bool
	last    TileKey // tile vacated by the last move
	hasLast bool
}

// NewReactiveStrategy creates a reactive strategy over occ.
func NewReactiveStrategy(occ *OccupancyIndex, params SteeringParams) *ReactiveStrategy {
	return &ReactiveStrategy{occ: occ, params: params}
}

// Commitment returns the committed detour side.
func (r *ReactiveStrategy) Commitment() Turn {
	return r.commit
}

func (r *ReactiveStrategy) Reset() {
	r.commit = TurnNone
	r.hasCur = false
	r.hasLast = false
}

func (r *ReactiveStrategy) NextTile(self ecs.Entity, pos, target r2.Vec) (r2.Vec, bool) {
	grid := r.occ.Grid()
	here := grid.Key(pos)
	if r.hasCur && here != r.current {
		r.last = r.current
		r.hasLast = true
	}
	r.current = here
	r.hasCur = true

	if here == grid.Key(target) {
		return grid.Snap(target), true
	}
	dir, ok := directionTo(grid.Snap(pos), target)
	if !ok {
		return r2.Vec{}, false
	}

	free := func(p r2.Vec) bool {
		if !grid.Contains(p) || r.occ.IsBlockedFor(p, self) {
			return false
		}
		return !r.hasLast || grid.Key(p) != r.last
	}

	if direct := stepToward(grid, pos, dir); free(direct) {
		r.commit = TurnNone
		return direct, true
	}

	probe := func(side Turn, offset float64) (r2.Vec, bool) {
		d := r2.Rotate(dir, float64(side)*offset, r2.Vec{})
		p := stepToward(grid, pos, d)
		return p, free(p)
	}
	choose := func(side Turn, offset float64, p r2.Vec) (r2.Vec, bool) {
		if offset >= r.params.Commit-1e-9 {
			r.commit = side
		}
		return p, true
	}

	offsets := r.offsets()
	if r.commit != TurnNone {
		for _, side := range []Turn{r.commit, -r.commit} {
			for _, off := range offsets {
				if p, ok := probe(side, off); ok {
					return choose(side, off, p)
				}
			}
		}
	} else {
		for _, off := range offsets {
			lp, lok := probe(TurnLeft, off)
			rp, rok := probe(TurnRight, off)
			switch {
			case lok && rok:
				if Distance(rp, target) < Distance(lp, target) {
					return choose(TurnRight, off, rp)
				}
				return choose(TurnLeft, off, lp)
			case lok:
				return choose(TurnLeft, off, lp)
			case rok:
				return choose(TurnRight, off, rp)
			}
		}
	}

	// Boxed in: allow backtracking on the next query.
	r.hasLast = false
	return r2.Vec{}, false
}

// offsets lists the probe angles in increasing order.
func (r *ReactiveStrategy) offsets() []float64 {
	var out []float64
	step := r.params.ProbeStep
	if step <= 0 {
		return nil
	}
	for off := step; off <= r.params.MaxProbe+1e-9; off += step {
		out = append(out, off)
	}
	return out
}
