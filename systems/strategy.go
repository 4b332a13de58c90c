package systems

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

// Strategy chooses the next tile an agent should walk to. Each agent owns its
// own instance; no state is shared between agents.
type Strategy interface {
	// Reset discards cached state. Called whenever a new final target is issued.
	Reset()
	// NextTile returns the centre of the next tile toward target, or false
	// when no step is available this tick.
	NextTile(self ecs.Entity, pos, target r2.Vec) (r2.Vec, bool)
}

// stepToward returns the tile entered by moving one tile length from the
// centre of pos's tile along dir.
func stepToward(grid TileGrid, pos, dir r2.Vec) r2.Vec {
	return grid.Snap(r2.Add(grid.Snap(pos), r2.Scale(grid.TileSize, dir)))
}

// directionTo returns the unit vector from pos to target, or false if they
// coincide.
func directionTo(pos, target r2.Vec) (r2.Vec, bool) {
	d := r2.Sub(target, pos)
	if r2.Norm(d) == 0 {
		return r2.Vec{}, false
	}
	return r2.Unit(d), true
}
