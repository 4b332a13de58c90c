package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Cluster is a square block of tiles, the unit of hierarchical decomposition.
// Clusters along the right and bottom map edges may be partial.
type Cluster struct {
	CX, CY int // cluster coordinates

	// Tile bounds, min inclusive, max exclusive, clipped to the map.
	MinX, MinY int
	MaxX, MaxY int

	Gates      []*Gate
	gateByTile map[TileKey]*Gate
}

func newCluster(cx, cy, size int, grid TileGrid) *Cluster {
	return &Cluster{
		CX:         cx,
		CY:         cy,
		MinX:       cx * size,
		MinY:       cy * size,
		MaxX:       min((cx+1)*size, grid.Width),
		MaxY:       min((cy+1)*size, grid.Height),
		gateByTile: make(map[TileKey]*Gate),
	}
}

// ContainsTile reports whether tile coordinates lie inside the cluster.
func (c *Cluster) ContainsTile(tx, ty int) bool {
	return tx >= c.MinX && tx < c.MaxX && ty >= c.MinY && ty < c.MaxY
}

// GateAt returns the gate owning the border tile k.
func (c *Cluster) GateAt(k TileKey) (*Gate, bool) {
	g, ok := c.gateByTile[k]
	return g, ok
}

// TileGraph exposes the interior tiles of one cluster as a 4-connected search
// graph. Edge cost and heuristic are both Euclidean distance between tile
// centres.
type TileGraph struct {
	grid    TileGrid
	cluster *Cluster
	blocked BlockFunc
	epsilon float64
}

// NewTileGraph creates a tile graph bounded to cluster c. blocked decides
// which tiles are occupied; epsilon is the goal tolerance in world units.
func NewTileGraph(grid TileGrid, c *Cluster, blocked BlockFunc, epsilon float64) *TileGraph {
	return &TileGraph{grid: grid, cluster: c, blocked: blocked, epsilon: epsilon}
}

// tileOffsets lists the cardinal directions in expansion order: E, W, S, N.
var tileOffsets = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// Neighbors returns the unoccupied cardinal neighbours inside the cluster.
func (t *TileGraph) Neighbors(node r2.Vec) []r2.Vec {
	tx, ty := t.grid.TileOf(node)
	out := make([]r2.Vec, 0, 4)
	for _, d := range tileOffsets {
		nx, ny := tx+d[0], ty+d[1]
		if !t.cluster.ContainsTile(nx, ny) {
			continue
		}
		p := t.grid.Center(nx, ny)
		if t.blocked != nil && t.blocked(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Cost returns the Euclidean distance.
func (t *TileGraph) Cost(from, to r2.Vec) float64 {
	return Distance(from, to)
}

// Heuristic returns the Euclidean distance.
func (t *TileGraph) Heuristic(node, goal r2.Vec) float64 {
	return Distance(node, goal)
}

// IsGoal reports whether node is within epsilon of goal.
func (t *TileGraph) IsGoal(node, goal r2.Vec) bool {
	return math.Abs(node.X-goal.X) <= t.epsilon && math.Abs(node.Y-goal.Y) <= t.epsilon
}
