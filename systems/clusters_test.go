package systems

import (
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/tilenav/components"
)

// gapWall returns a full-height wall at column x with one open tile at gapY.
func gapWall(x, height, gapY int) [][2]int {
	var walls [][2]int
	for y := 0; y < height; y++ {
		if y != gapY {
			walls = append(walls, [2]int{x, y})
		}
	}
	return walls
}

func TestClusterGridRoundsUp(t *testing.T) {
	_, m := newTestNav(25, 13, 10, nil)

	cols, rows := m.Dims()
	if cols != 3 || rows != 2 {
		t.Fatalf("dims = %dx%d, want 3x2", cols, rows)
	}
	last := m.Cluster(2, 1)
	if last.MaxX != 25 || last.MaxY != 13 {
		t.Errorf("partial cluster bounds end at (%d,%d), want (25,13)", last.MaxX, last.MaxY)
	}
	if c := m.ClusterAt(m.Grid().Center(24, 12)); c != last {
		t.Errorf("ClusterAt(24,12) = %+v, want the partial cluster", c)
	}
	if c := m.ClusterAt(m.Grid().Center(25, 0)); c != nil {
		t.Error("positions off the map belong to no cluster")
	}
}

func TestGatesOnOpenBorder(t *testing.T) {
	_, m := newTestNav(20, 10, 10, nil)
	left, right := m.Cluster(0, 0), m.Cluster(1, 0)

	if len(left.Gates) != 1 || len(right.Gates) != 1 {
		t.Fatalf("gates = %d/%d, want one per cluster", len(left.Gates), len(right.Gates))
	}
	g := left.Gates[0]
	if g.Side != SideEast || len(g.Tiles) != 10 {
		t.Errorf("gate side %v with %d tiles, want east with 10", g.Side, len(g.Tiles))
	}
	if g.Middle() != MakeTileKey(9, 5) {
		tx, ty := g.Middle().Coords()
		t.Errorf("middle = (%d,%d), want (9,5)", tx, ty)
	}
	mirror, ok := g.Mirror()
	if !ok || mirror != right.Gates[0] {
		t.Fatal("east gate should mirror the west gate of the right cluster")
	}
	if mirror.Middle() != g.Across() {
		t.Error("mirror middle should face the gate middle")
	}
	if mirror.ID != g.ID {
		t.Errorf("mirrored gates have ids %v and %v, want one shared id", g.ID, mirror.ID)
	}
	if g.Direction() != (r2.Vec{X: 1}) {
		t.Errorf("direction = %v, want +x", g.Direction())
	}
}

func TestGatesSplitByObstacle(t *testing.T) {
	// Blocking the tile across the border breaks the run on both sides.
	_, m := newTestNav(20, 10, 10, [][2]int{{10, 4}})
	left := m.Cluster(0, 0)

	if len(left.Gates) != 2 {
		t.Fatalf("got %d gates, want 2", len(left.Gates))
	}
	wantMiddles := []TileKey{MakeTileKey(9, 2), MakeTileKey(9, 7)}
	for i, g := range left.Gates {
		if g.Middle() != wantMiddles[i] {
			tx, ty := g.Middle().Coords()
			t.Errorf("gate %d middle = (%d,%d)", i, tx, ty)
		}
		if _, ok := g.Mirror(); !ok {
			t.Errorf("gate %d has no mirror", i)
		}
	}
	if _, ok := left.GateAt(MakeTileKey(9, 4)); ok {
		t.Error("tile facing the obstacle should not belong to a gate")
	}

	cost, ok := left.Gates[0].CostTo(left.Gates[1])
	if !ok || math.Abs(cost-5*16) > 1e-9 {
		t.Errorf("link cost = %.2f (%v), want 80", cost, ok)
	}
}

func TestGateTableSymmetric(t *testing.T) {
	walls := append(gapWall(15, 30, 11), [2]int{4, 9}, [2]int{5, 9}, [2]int{22, 20}, [2]int{20, 25})
	_, m := newTestNav(30, 30, 10, walls)

	links := 0
	for _, c := range m.Clusters() {
		for _, g := range c.Gates {
			for _, l := range g.Links() {
				links++
				back, ok := l.To.CostTo(g)
				if !ok {
					t.Errorf("link %v -> %v has no reverse entry", g.ID, l.To.ID)
					continue
				}
				if back != l.Cost {
					t.Errorf("cost %v -> %v = %.3f, reverse %.3f", g.ID, l.To.ID, l.Cost, back)
				}
				if l.To.Cluster != c {
					t.Errorf("link %v leaves its cluster", g.ID)
				}
			}
		}
	}
	if links == 0 {
		t.Fatal("expected some gate links")
	}
}

func TestWallSeparatesGateTable(t *testing.T) {
	// Column 15 splits cluster (1,0) into two halves with no gap inside it.
	_, m := newTestNav(30, 20, 10, gapWall(15, 20, 11))
	c := m.Cluster(1, 0)

	for _, g := range c.Gates {
		gx, _ := g.Middle().Coords()
		for _, l := range g.Links() {
			lx, _ := l.To.Middle().Coords()
			if (gx < 15) != (lx < 15) {
				t.Errorf("gate at x=%d linked across the wall to x=%d", gx, lx)
			}
		}
	}
}

func TestRegenerationIdempotent(t *testing.T) {
	walls := append(gapWall(15, 23, 11), [2]int{3, 9}, [2]int{30, 10}, [2]int{31, 10})
	_, m := newTestNav(40, 23, 10, walls)

	first := m.Snapshot()
	gen := m.Generation()
	m.Generate()
	if m.Generation() == gen {
		t.Error("Generate should bump the generation")
	}
	if second := m.Snapshot(); !reflect.DeepEqual(first, second) {
		t.Error("regenerating an unchanged map changed the gates")
	}

	m.MarkDirty(m.Grid().Center(12, 12))
	if !m.Refresh() {
		t.Fatal("Refresh should report work for a dirty cluster")
	}
	if third := m.Snapshot(); !reflect.DeepEqual(first, third) {
		t.Error("refreshing an unchanged cluster changed the gates")
	}
	if m.Refresh() {
		t.Error("second Refresh should have nothing to do")
	}
}

func TestRefreshAfterObstacleChange(t *testing.T) {
	occ, m := newTestNav(20, 10, 10, nil)
	grid := m.Grid()
	start, end := grid.Center(2, 5), grid.Center(17, 5)

	if res := m.FindPath(start, end); !res.Success() {
		t.Fatal("expected a path on the open map")
	}

	// Seal the border between the two clusters.
	wall := newTestEntities(10)
	for y, e := range wall {
		occ.Upsert(e, components.KindStatic, grid.Center(10, y))
	}
	m.MarkDirty(grid.Center(10, 0))
	gen := m.Generation()

	res := m.FindPath(start, end)
	if res.Success() {
		t.Fatalf("sealed border still yields a path: %v", res.Path)
	}
	if m.Generation() == gen {
		t.Error("search should have refreshed the dirty cluster")
	}
	if n := len(m.Cluster(0, 0).Gates); n != 0 {
		t.Errorf("left cluster kept %d gates after the border was sealed", n)
	}

	// Reopen one tile.
	occ.Remove(wall[6])
	m.MarkDirty(grid.Center(10, 6))
	res = m.FindPath(start, end)
	if !res.Success() {
		t.Fatal("reopened border should yield a path")
	}
	if !containsVec(res.Path, grid.Center(10, 6)) {
		t.Error("path should pass through the reopened tile")
	}
}

func TestAbstractPathStopsAtDestinationCluster(t *testing.T) {
	_, m := newTestNav(20, 10, 10, nil)
	grid := m.Grid()

	res := m.FindAbstractPath(grid.Center(2, 5), grid.Center(17, 5))
	if !res.Success() {
		t.Fatal("expected an abstract path")
	}
	want := []r2.Vec{grid.Center(2, 5), grid.Center(9, 5)}
	if !reflect.DeepEqual(res.Path, want) {
		t.Errorf("abstract path = %v, want %v", res.Path, want)
	}
}

func TestFindPathStitchesSegments(t *testing.T) {
	occ, m := newTestNav(20, 10, 10, nil)
	grid := m.Grid()
	start, end := grid.Center(2, 5), grid.Center(17, 5)

	res := m.FindPath(start, end)
	if !res.Success() {
		t.Fatal("expected a path")
	}
	if len(res.Path) != 16 {
		t.Errorf("path has %d tiles, want 16", len(res.Path))
	}
	if want := Distance(start, end); math.Abs(res.Cost-want) > 1e-9 {
		t.Errorf("cost = %.2f, want %.2f", res.Cost, want)
	}
	checkContiguous(t, occ, res.Path)
}

func TestFindPathFromGateMiddle(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		start  [2]int
		end    [2]int
		length int
	}{
		{"mirror in destination cluster", 20, [2]int{9, 5}, [2]int{17, 5}, 9},
		{"first hop through the mirror", 30, [2]int{9, 5}, [2]int{27, 5}, 19},
		{"start on the far side", 30, [2]int{10, 5}, [2]int{2, 5}, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occ, m := newTestNav(tt.width, 10, 10, nil)
			grid := m.Grid()
			start, end := grid.Center(tt.start[0], tt.start[1]), grid.Center(tt.end[0], tt.end[1])
			if len(m.GatesAt(start)) == 0 {
				t.Fatalf("start %v is not a gate tile", tt.start)
			}

			res := m.FindPath(start, end)
			if !res.Success() {
				t.Fatal("expected a path from the gate middle")
			}
			if len(res.Path) != tt.length {
				t.Errorf("path has %d tiles, want %d", len(res.Path), tt.length)
			}
			if res.Path[0] != start || res.Path[len(res.Path)-1] != end {
				t.Errorf("path runs %v -> %v", res.Path[0], res.Path[len(res.Path)-1])
			}
			if want := Distance(start, end); math.Abs(res.Cost-want) > 1e-9 {
				t.Errorf("cost = %.2f, want %.2f", res.Cost, want)
			}
			checkContiguous(t, occ, res.Path)
		})
	}
}

func TestFindPathThroughWallGap(t *testing.T) {
	occ, m := newTestNav(40, 23, 10, gapWall(15, 23, 11))
	grid := m.Grid()

	res := m.FindPath(grid.Center(5, 5), grid.Center(34, 17))
	if !res.Success() {
		t.Fatal("expected a path through the gap")
	}
	if !containsVec(res.Path, grid.Center(15, 11)) {
		t.Error("path does not pass through the gap tile")
	}
	if res.Path[len(res.Path)-1] != grid.Center(34, 17) {
		t.Errorf("path ends at %v", res.Path[len(res.Path)-1])
	}
	checkContiguous(t, occ, res.Path)
}

func TestFindPathEnclosedTargetFails(t *testing.T) {
	walls := [][2]int{{29, 15}, {31, 15}, {30, 14}, {30, 16}}
	_, m := newTestNav(40, 23, 10, walls)
	grid := m.Grid()

	res := m.FindPath(grid.Center(5, 5), grid.Center(30, 15))
	if res.Success() || len(res.Path) != 0 {
		t.Fatalf("expected failure, got %v", res.Path)
	}
	if res.NodesExpanded <= 0 || res.Truncated {
		t.Errorf("NodesExpanded = %d truncated %v, want an exhausted finite search", res.NodesExpanded, res.Truncated)
	}
}

// recordingObserver counts searches per kind.
type recordingObserver map[SearchKind]int

func (r recordingObserver) ObserveSearch(kind SearchKind, _ SearchResult) {
	r[kind]++
}

func TestObserverSeesEveryKind(t *testing.T) {
	grid := NewTileGrid(16, 20, 10)
	occ := NewOccupancyIndex(grid)
	m := NewClusterMap(occ, DefaultNavParams())
	rec := recordingObserver{}
	m.SetObserver(rec)
	m.Generate()

	m.FindPath(grid.Center(2, 5), grid.Center(17, 5))
	for _, kind := range []SearchKind{SearchLocal, SearchAbstract} {
		if rec[kind] == 0 {
			t.Errorf("no %s searches observed", kind)
		}
	}

	// Two obstacles split the border into three gates on each side: three
	// pairs per cluster.
	rec2 := recordingObserver{}
	_, m2 := newTestNav(20, 10, 10, [][2]int{{10, 3}, {10, 6}})
	m2.SetObserver(rec2)
	m2.Generate()
	if rec2[SearchGateLink] != 6 {
		t.Errorf("gate link searches = %d, want 6", rec2[SearchGateLink])
	}
}

func containsVec(path []r2.Vec, p r2.Vec) bool {
	for _, q := range path {
		if q == p {
			return true
		}
	}
	return false
}
