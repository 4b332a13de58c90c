package systems

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

// DirectStrategy walks the straight line to the target with no avoidance.
// Blocked steps are left to the movement collision check.
type DirectStrategy struct {
	grid TileGrid
}

// NewDirectStrategy creates a direct strategy.
func NewDirectStrategy(grid TileGrid) *DirectStrategy {
	return &DirectStrategy{grid: grid}
}

func (d *DirectStrategy) Reset() {}

func (d *DirectStrategy) NextTile(_ ecs.Entity, pos, target r2.Vec) (r2.Vec, bool) {
	if d.grid.Key(pos) == d.grid.Key(target) {
		return d.grid.Snap(target), true
	}
	dir, ok := directionTo(d.grid.Snap(pos), target)
	if !ok {
		return r2.Vec{}, false
	}
	return stepToward(d.grid, pos, dir), true
}
