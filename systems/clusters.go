package systems

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// NavParams holds tunable parameters of the hierarchical search.
type NavParams struct {
	ClusterSize   int     // tiles per cluster edge
	MaxExpansions int     // per-search expansion cap, 0 = unlimited
	GoalEpsilon   float64 // goal tolerance of tile-level searches
}

// DefaultNavParams returns the parameters of a 10x10 cluster map.
func DefaultNavParams() NavParams {
	return NavParams{
		ClusterSize:   10,
		MaxExpansions: 0,
		GoalEpsilon:   0.1,
	}
}

// ClusterMap partitions the map into clusters, owns their gates and answers
// abstract (gate-level) and stitched full-path queries.
//
// Gates and gate tables only consider static occupants. They are built by
// Generate and are not updated when obstacles change until the host calls
// MarkDirty followed by Refresh (or the next abstract search refreshes).
type ClusterMap struct {
	grid     TileGrid
	occ      *OccupancyIndex
	params   NavParams
	observer SearchObserver

	cols, rows int
	clusters   []*Cluster // row-major

	// gateByMiddle maps a middle tile to its gates. A corner tile can be the
	// middle of one gate on each of its two sides.
	gateByMiddle map[TileKey][]*Gate

	dirty      []bool
	dirtyCount int
	generation uint64
}

// NewClusterMap creates an empty cluster map over the index's grid. The
// cluster grid is ceiling-rounded so partial clusters cover the map edges.
func NewClusterMap(occ *OccupancyIndex, params NavParams) *ClusterMap {
	grid := occ.Grid()
	size := max(params.ClusterSize, 1)
	params.ClusterSize = size
	return &ClusterMap{
		grid:         grid,
		occ:          occ,
		params:       params,
		cols:         (grid.Width + size - 1) / size,
		rows:         (grid.Height + size - 1) / size,
		gateByMiddle: make(map[TileKey][]*Gate),
	}
}

// SetObserver installs a sink for search diagnostics. nil disables reporting.
func (m *ClusterMap) SetObserver(o SearchObserver) {
	m.observer = o
}

// Grid returns the tile geometry.
func (m *ClusterMap) Grid() TileGrid {
	return m.grid
}

// Occupancy returns the backing occupancy index.
func (m *ClusterMap) Occupancy() *OccupancyIndex {
	return m.occ
}

// Params returns the search parameters.
func (m *ClusterMap) Params() NavParams {
	return m.params
}

// Dims returns the cluster grid size.
func (m *ClusterMap) Dims() (cols, rows int) {
	return m.cols, m.rows
}

// Generation increments every time gates are (re)built.
func (m *ClusterMap) Generation() uint64 {
	return m.generation
}

// Clusters returns all clusters in row-major order.
func (m *ClusterMap) Clusters() []*Cluster {
	return m.clusters
}

// Cluster returns the cluster at cluster coordinates, or nil.
func (m *ClusterMap) Cluster(cx, cy int) *Cluster {
	if cx < 0 || cy < 0 || cx >= m.cols || cy >= m.rows || m.clusters == nil {
		return nil
	}
	return m.clusters[cy*m.cols+cx]
}

// ClusterAt returns the cluster containing a world position, or nil.
func (m *ClusterMap) ClusterAt(pos r2.Vec) *Cluster {
	tx, ty := m.grid.TileOf(pos)
	if !m.grid.InBounds(tx, ty) {
		return nil
	}
	size := m.params.ClusterSize
	return m.Cluster(tx/size, ty/size)
}

// GatesAt returns the gates whose middle tile contains pos.
func (m *ClusterMap) GatesAt(pos r2.Vec) []*Gate {
	return m.gateByMiddle[m.grid.Key(pos)]
}

// GateCount returns the number of gates on the map.
func (m *ClusterMap) GateCount() int {
	n := 0
	for _, c := range m.clusters {
		n += len(c.Gates)
	}
	return n
}

// Generate builds every cluster, then their gates, then the gate tables.
// Gates need every neighbour cluster to exist, hence the separate passes.
func (m *ClusterMap) Generate() {
	m.clusters = make([]*Cluster, 0, m.cols*m.rows)
	for cy := 0; cy < m.rows; cy++ {
		for cx := 0; cx < m.cols; cx++ {
			m.clusters = append(m.clusters, newCluster(cx, cy, m.params.ClusterSize, m.grid))
		}
	}
	for _, c := range m.clusters {
		m.generateGates(c)
	}
	m.resolveMirrors()
	for _, c := range m.clusters {
		m.computeLinks(c)
	}

	m.dirty = make([]bool, len(m.clusters))
	m.dirtyCount = 0
	m.generation++
}

// MarkDirty tags the cluster containing pos for regeneration after a static
// obstacle was added or removed there.
func (m *ClusterMap) MarkDirty(pos r2.Vec) {
	c := m.ClusterAt(pos)
	if c == nil {
		return
	}
	i := c.CY*m.cols + c.CX
	if !m.dirty[i] {
		m.dirty[i] = true
		m.dirtyCount++
	}
}

// Dirty reports whether any cluster awaits regeneration.
func (m *ClusterMap) Dirty() bool {
	return m.dirtyCount > 0
}

// Refresh regenerates tagged clusters and their direct neighbours, whose
// gates depend on tiles across the shared border. Returns false if nothing
// was tagged.
func (m *ClusterMap) Refresh() bool {
	if m.dirtyCount == 0 {
		return false
	}

	affected := make([]bool, len(m.clusters))
	for i, d := range m.dirty {
		if !d {
			continue
		}
		c := m.clusters[i]
		affected[i] = true
		for side := SideNorth; side <= SideWest; side++ {
			dx, dy := side.Offset()
			if n := m.Cluster(c.CX+dx, c.CY+dy); n != nil {
				affected[n.CY*m.cols+n.CX] = true
			}
		}
	}

	for i, c := range m.clusters {
		if affected[i] {
			m.generateGates(c)
		}
	}
	m.resolveMirrors()
	for i, c := range m.clusters {
		if affected[i] {
			m.computeLinks(c)
		}
	}

	clear(m.dirty)
	m.dirtyCount = 0
	m.generation++
	return true
}

// staticBlocked is the occupancy test used by gates and the abstract layer.
func (m *ClusterMap) staticBlocked(pos r2.Vec) bool {
	return m.occ.IsBlockedByStatic(pos)
}

// borderTiles returns the tiles of one cluster side in scan order.
func borderTiles(c *Cluster, side Side) [][2]int {
	var out [][2]int
	switch side {
	case SideNorth, SideSouth:
		y := c.MinY
		if side == SideSouth {
			y = c.MaxY - 1
		}
		for x := c.MinX; x < c.MaxX; x++ {
			out = append(out, [2]int{x, y})
		}
	case SideEast, SideWest:
		x := c.MinX
		if side == SideEast {
			x = c.MaxX - 1
		}
		for y := c.MinY; y < c.MaxY; y++ {
			out = append(out, [2]int{x, y})
		}
	}
	return out
}

// generateGates scans each side of c for runs of walkable tile pairs.
func (m *ClusterMap) generateGates(c *Cluster) {
	c.Gates = nil
	c.gateByTile = make(map[TileKey]*Gate)

	for side := SideNorth; side <= SideWest; side++ {
		dx, dy := side.Offset()
		neighbor := m.Cluster(c.CX+dx, c.CY+dy)
		if neighbor == nil {
			continue
		}

		var run []TileKey
		flush := func() {
			if len(run) == 0 {
				return
			}
			g := &Gate{Cluster: c, Neighbor: neighbor, Side: side, Tiles: run}
			g.ID = makeGateID(g.Middle(), g.Across())
			c.Gates = append(c.Gates, g)
			for _, k := range run {
				c.gateByTile[k] = g
			}
			run = nil
		}

		for _, t := range borderTiles(c, side) {
			inside := m.grid.Center(t[0], t[1])
			across := m.grid.Center(t[0]+dx, t[1]+dy)
			if m.staticBlocked(inside) || m.staticBlocked(across) {
				flush()
				continue
			}
			run = append(run, MakeTileKey(t[0], t[1]))
		}
		flush()
	}
}

// resolveMirrors links every gate to the gate facing it and rebuilds the
// middle-tile lookup.
func (m *ClusterMap) resolveMirrors() {
	clear(m.gateByMiddle)
	for _, c := range m.clusters {
		for _, g := range c.Gates {
			mid := g.Middle()
			m.gateByMiddle[mid] = append(m.gateByMiddle[mid], g)

			g.mirror = nil
			across := g.Across()
			for _, h := range g.Neighbor.Gates {
				if h.Neighbor == c && h.Middle() == across {
					g.mirror = h
					break
				}
			}
		}
	}
}

// computeLinks fills the gate-to-gate table of c with a local search between
// every unordered pair of its gates. Costs are stored for both directions.
func (m *ClusterMap) computeLinks(c *Cluster) {
	for _, g := range c.Gates {
		g.clearLinks()
	}
	for i, a := range c.Gates {
		from := m.grid.KeyCenter(a.Middle())
		for _, b := range c.Gates[i+1:] {
			res := m.localSearch(SearchGateLink, c, from, m.grid.KeyCenter(b.Middle()), m.staticBlocked)
			if !res.Success() {
				continue
			}
			a.addLink(b, res.Cost)
			b.addLink(a, res.Cost)
		}
	}
}

// localSearch runs A* on the tile graph of c. Targets outside c fail at once.
func (m *ClusterMap) localSearch(kind SearchKind, c *Cluster, from, to r2.Vec, blocked BlockFunc) SearchResult {
	tx, ty := m.grid.TileOf(to)
	if c == nil || !c.ContainsTile(tx, ty) {
		return SearchResult{}
	}
	graph := NewTileGraph(m.grid, c, blocked, m.params.GoalEpsilon)
	res := FindPathLimited(m.grid, graph, from, to, m.params.MaxExpansions)
	m.observe(kind, res)
	return res
}

func (m *ClusterMap) observe(kind SearchKind, res SearchResult) {
	if m.observer != nil {
		m.observer.ObserveSearch(kind, res)
	}
}

// LocalPath searches the cluster containing from for a path to to. blocked
// decides which tiles are occupied; nil treats static occupants as blocking.
func (m *ClusterMap) LocalPath(from, to r2.Vec, blocked BlockFunc) SearchResult {
	if blocked == nil {
		blocked = m.staticBlocked
	}
	return m.localSearch(SearchLocal, m.ClusterAt(from), from, to, blocked)
}

// CrossingToward returns the tile facing the gate at pos, picking the gate
// that leads into target when pos is the middle of more than one gate.
func (m *ClusterMap) CrossingToward(pos r2.Vec, target *Cluster) (r2.Vec, bool) {
	var fallback *Gate
	for _, g := range m.GatesAt(pos) {
		if g.mirror == nil {
			continue
		}
		if g.Neighbor == target {
			return m.grid.KeyCenter(g.Across()), true
		}
		if fallback == nil {
			fallback = g
		}
	}
	if fallback == nil {
		return r2.Vec{}, false
	}
	return m.grid.KeyCenter(fallback.Across()), true
}

// FindAbstractPath searches the gate graph from start toward the cluster of
// end. The path holds the snapped start followed by gate middles; it stops
// once the destination cluster is reachable, not at end itself. Dirty
// clusters are refreshed first.
func (m *ClusterMap) FindAbstractPath(start, end r2.Vec) SearchResult {
	m.Refresh()
	if m.ClusterAt(start) == nil || m.ClusterAt(end) == nil {
		return SearchResult{}
	}
	res := FindPathLimited(m.grid, newAbstractGraph(m), start, end, m.params.MaxExpansions)
	m.observe(SearchAbstract, res)
	return res
}

// FindPath returns a complete tile path from start to end, stitching local
// segments between the waypoints of the abstract path. Only static occupants
// block. Expansion counts of every sub-search are summed.
func (m *ClusterMap) FindPath(start, end r2.Vec) SearchResult {
	start = m.grid.Snap(start)
	end = m.grid.Snap(end)
	sc, ec := m.ClusterAt(start), m.ClusterAt(end)
	if sc == nil || ec == nil {
		return SearchResult{}
	}

	var spent int
	if sc == ec {
		m.Refresh()
		res := m.localSearch(SearchLocal, sc, start, end, m.staticBlocked)
		if res.Success() {
			return res
		}
		spent = res.NodesExpanded
	}

	abs := m.FindAbstractPath(start, end)
	out := SearchResult{
		NodesExpanded: spent + abs.NodesExpanded,
		OpenSetSize:   abs.OpenSetSize,
		Truncated:     abs.Truncated,
	}
	if !abs.Success() {
		return out
	}

	path := []r2.Vec{start}
	cur := start
	segment := func(to r2.Vec) bool {
		seg := m.localSearch(SearchLocal, m.ClusterAt(cur), cur, to, m.staticBlocked)
		out.NodesExpanded += seg.NodesExpanded
		if !seg.Success() {
			out.Truncated = out.Truncated || seg.Truncated
			return false
		}
		path = append(path, seg.Path[1:]...)
		out.Cost += seg.Cost
		cur = to
		return true
	}

	// The first waypoint is the start itself. It still needs the crossing
	// step when the start is a gate middle.
	waypoints := abs.Path
	for i, wp := range waypoints {
		if i > 0 && !segment(wp) {
			out.Cost = 0
			return out
		}
		following := end
		if i+1 < len(waypoints) {
			following = waypoints[i+1]
		}
		next := m.ClusterAt(following)
		if next == m.ClusterAt(wp) {
			continue
		}
		across, ok := m.CrossingToward(wp, next)
		if !ok {
			out.Cost = 0
			return out
		}
		path = append(path, across)
		out.Cost += Distance(wp, across)
		cur = across
	}
	if !segment(end) {
		out.Cost = 0
		return out
	}

	out.Path = path
	return out
}
