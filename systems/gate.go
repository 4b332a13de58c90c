package systems

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// Side identifies one edge of a cluster.
type Side uint8

const (
	SideNorth Side = iota
	SideEast
	SideSouth
	SideWest
)

var sideNames = [...]string{"north", "east", "south", "west"}

func (s Side) String() string {
	if int(s) < len(sideNames) {
		return sideNames[s]
	}
	return "unknown"
}

// Offset returns the unit tile offset pointing across the side.
func (s Side) Offset() (dx, dy int) {
	switch s {
	case SideNorth:
		return 0, -1
	case SideEast:
		return 1, 0
	case SideSouth:
		return 0, 1
	default:
		return -1, 0
	}
}

// GateID identifies one physical boundary crossing. Both gate objects facing
// each other across a cluster border share it: it is the unordered pair of
// the two middle tiles.
type GateID struct {
	Lo, Hi TileKey
}

func makeGateID(a, b TileKey) GateID {
	if b < a {
		a, b = b, a
	}
	return GateID{Lo: a, Hi: b}
}

// GateLink is a cached intra-cluster path cost to another gate.
type GateLink struct {
	To   *Gate
	Cost float64
}

// Gate is a maximal contiguous run of walkable border tiles on one side of a
// cluster whose cross-border counterparts are also walkable.
type Gate struct {
	ID       GateID
	Cluster  *Cluster
	Neighbor *Cluster // cluster on the other side
	Side     Side
	Tiles    []TileKey // border tiles in scan order

	// mirror is the gate object facing this one from Neighbor. It is nil
	// until resolved, or when the neighbour no longer has a matching gate.
	mirror *Gate

	links     []GateLink
	linkIndex map[*Gate]int
}

// Middle returns the representative tile of the gate.
func (g *Gate) Middle() TileKey {
	return g.Tiles[len(g.Tiles)/2]
}

// Across returns the tile facing the middle tile in the neighbour cluster.
func (g *Gate) Across() TileKey {
	tx, ty := g.Middle().Coords()
	dx, dy := g.Side.Offset()
	return MakeTileKey(tx+dx, ty+dy)
}

// Direction returns the unit offset vector pointing into the neighbour.
func (g *Gate) Direction() r2.Vec {
	dx, dy := g.Side.Offset()
	return r2.Vec{X: float64(dx), Y: float64(dy)}
}

// Mirror returns the gate on the other side of the boundary, if it exists.
func (g *Gate) Mirror() (*Gate, bool) {
	return g.mirror, g.mirror != nil
}

// Links returns the reachable gates of the same cluster in discovery order.
func (g *Gate) Links() []GateLink {
	return g.links
}

// CostTo returns the cached intra-cluster cost to another gate.
func (g *Gate) CostTo(other *Gate) (float64, bool) {
	i, ok := g.linkIndex[other]
	if !ok {
		return UnreachableCost, false
	}
	return g.links[i].Cost, true
}

func (g *Gate) addLink(other *Gate, cost float64) {
	if g.linkIndex == nil {
		g.linkIndex = make(map[*Gate]int)
	}
	if i, ok := g.linkIndex[other]; ok {
		g.links[i].Cost = cost
		return
	}
	g.linkIndex[other] = len(g.links)
	g.links = append(g.links, GateLink{To: other, Cost: cost})
}

func (g *Gate) clearLinks() {
	g.links = g.links[:0]
	clear(g.linkIndex)
}
