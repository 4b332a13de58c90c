package systems

import (
	"slices"

	"gonum.org/v1/gonum/spatial/r2"
)

// abstractGraph treats gate middles as nodes. Interior points (the search
// start) connect to the gates of their cluster they can reach locally. A gate
// node connects to the gates its own table reaches and, after hopping to its
// mirror, to the gates the mirror's table reaches.
//
// Only static occupants are considered. Local reachability results are cached
// for the lifetime of one search.
type abstractGraph struct {
	m     *ClusterMap
	reach map[[2]TileKey]float64
}

func newAbstractGraph(m *ClusterMap) *abstractGraph {
	return &abstractGraph{m: m, reach: make(map[[2]TileKey]float64)}
}

// localCost returns the static local path cost from -> to inside c, or
// UnreachableCost.
func (a *abstractGraph) localCost(c *Cluster, from, to r2.Vec) float64 {
	key := [2]TileKey{a.m.grid.Key(from), a.m.grid.Key(to)}
	if cost, ok := a.reach[key]; ok {
		return cost
	}
	cost := float64(UnreachableCost)
	if res := a.m.localSearch(SearchLocal, c, from, to, a.m.staticBlocked); res.Success() {
		cost = res.Cost
	}
	a.reach[key] = cost
	return cost
}

func (a *abstractGraph) Neighbors(node r2.Vec) []r2.Vec {
	grid := a.m.grid
	gates := a.m.GatesAt(node)

	var out []r2.Vec
	add := func(k TileKey) {
		p := grid.KeyCenter(k)
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}

	if len(gates) == 0 {
		c := a.m.ClusterAt(node)
		if c == nil {
			return nil
		}
		for _, g := range c.Gates {
			if a.localCost(c, node, grid.KeyCenter(g.Middle())) < UnreachableCost {
				add(g.Middle())
			}
		}
		return out
	}

	for _, g := range gates {
		for _, l := range g.links {
			add(l.To.Middle())
		}
		if g.mirror != nil {
			for _, l := range g.mirror.links {
				add(l.To.Middle())
			}
		}
	}
	return out
}

func (a *abstractGraph) Cost(from, to r2.Vec) float64 {
	grid := a.m.grid
	gates := a.m.GatesAt(from)
	if len(gates) == 0 {
		c := a.m.ClusterAt(from)
		if c == nil {
			return UnreachableCost
		}
		return a.localCost(c, from, to)
	}

	toKey := grid.Key(to)
	best := float64(UnreachableCost)
	for _, g := range gates {
		for _, l := range g.links {
			if l.To.Middle() == toKey {
				best = min(best, l.Cost)
			}
		}
		if g.mirror == nil {
			continue
		}
		hop := Distance(from, grid.KeyCenter(g.mirror.Middle()))
		for _, l := range g.mirror.links {
			if l.To.Middle() == toKey {
				best = min(best, hop+l.Cost)
			}
		}
	}
	return best
}

func (a *abstractGraph) Heuristic(node, goal r2.Vec) float64 {
	return Distance(node, goal)
}

// IsGoal accepts a node once the destination cluster is locally reachable:
// either the node is inside it, or the node is a gate whose mirror is.
func (a *abstractGraph) IsGoal(node, goal r2.Vec) bool {
	gc := a.m.ClusterAt(goal)
	if gc == nil {
		return false
	}
	if a.m.ClusterAt(node) == gc && a.localCost(gc, node, goal) < UnreachableCost {
		return true
	}
	for _, g := range a.m.GatesAt(node) {
		if g.Neighbor != gc || g.mirror == nil {
			continue
		}
		if a.localCost(gc, a.m.grid.KeyCenter(g.mirror.Middle()), goal) < UnreachableCost {
			return true
		}
	}
	return false
}

// MarkClosed closes the mirror side of every gate at node.
func (a *abstractGraph) MarkClosed(node r2.Vec, closed map[TileKey]struct{}) {
	for _, g := range a.m.GatesAt(node) {
		if g.mirror != nil {
			closed[g.mirror.Middle()] = struct{}{}
		}
	}
}

// GateInfo is a value snapshot of one gate, used for diagnostics and to
// compare generations.
type GateInfo struct {
	ID       GateID
	Cluster  [2]int
	Side     Side
	Tiles    []TileKey
	Mirrored bool
	Links    []LinkInfo
}

// LinkInfo is a value snapshot of one gate table entry.
type LinkInfo struct {
	To   GateID
	Cost float64
}

// Snapshot returns every gate with its table, in cluster then scan order.
func (m *ClusterMap) Snapshot() []GateInfo {
	var out []GateInfo
	for _, c := range m.clusters {
		for _, g := range c.Gates {
			info := GateInfo{
				ID:       g.ID,
				Cluster:  [2]int{c.CX, c.CY},
				Side:     g.Side,
				Tiles:    slices.Clone(g.Tiles),
				Mirrored: g.mirror != nil,
			}
			for _, l := range g.links {
				info.Links = append(info.Links, LinkInfo{To: l.To.ID, Cost: l.Cost})
			}
			out = append(out, info)
		}
	}
	return out
}
