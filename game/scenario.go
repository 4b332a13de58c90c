package game

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// shapeKind selects an obstacle pattern.
type shapeKind int

const (
	shapeT shapeKind = iota
	shapeL
	shapeI
)

// GenerateScenario fills the map from the scenario config: a border of
// obstacles, a few random T/L/I shapes per cluster, then agents patrolling
// between random free tiles. Navigation is built before agents spawn.
func (g *Game) GenerateScenario() {
	sc := g.cfg.Scenario
	if sc.Border {
		g.addBorder()
	}

	cols, rows := g.nav.Dims()
	for cy := 0; cy < rows; cy++ {
		for cx := 0; cx < cols; cx++ {
			n := sc.ObstaclesMin
			if sc.ObstaclesMax > sc.ObstaclesMin {
				n += g.rng.Intn(sc.ObstaclesMax - sc.ObstaclesMin + 1)
			}
			for i := 0; i < n; i++ {
				g.addRandomShape(cx, cy, cols, rows)
			}
		}
	}

	g.BuildNavigation()

	for i := 0; i < sc.Agents; i++ {
		start, ok := g.randomFreeTile()
		if !ok {
			break
		}
		e, err := g.SpawnAgent(start, "")
		if err != nil {
			continue
		}
		var points []r2.Vec
		for j := 0; j < 2; j++ {
			if p, ok := g.randomFreeTile(); ok {
				points = append(points, p)
			}
		}
		if len(points) > 0 {
			g.Patrol(e, append(points, start))
		}
	}

	Logf("Scenario: seed %d, %d obstacles, %d agents, %d gates",
		g.seed, len(g.obstacles), len(g.agents), g.nav.GateCount())
}

// addBorder rings the map with obstacles.
func (g *Game) addBorder() {
	w, h := g.grid.Width, g.grid.Height
	for x := 0; x < w; x++ {
		g.AddObstacle(x, 0)
		g.AddObstacle(x, h-1)
	}
	for y := 1; y < h-1; y++ {
		g.AddObstacle(0, y)
		g.AddObstacle(w-1, y)
	}
}

// addRandomShape places one shape inside cluster (cx, cy), keeping the
// configured margin free along cluster edges. Clusters on the map edge get
// one extra tile of margin when a border is drawn.
func (g *Game) addRandomShape(cx, cy, cols, rows int) {
	size := g.cfg.Grid.ClusterSize
	margin := g.cfg.Scenario.Margin
	extra := 0
	if g.cfg.Scenario.Border {
		extra = 1
	}

	left, right, top, bottom := margin, margin, margin, margin
	if cx == 0 {
		left += extra
	}
	if cx == cols-1 {
		right += extra
	}
	if cy == 0 {
		top += extra
	}
	if cy == rows-1 {
		bottom += extra
	}

	minX, minY := cx*size, cy*size
	maxX := min(minX+size, g.grid.Width)
	maxY := min(minY+size, g.grid.Height)

	availX := (maxX - minX) - left - right
	availY := (maxY - minY) - top - bottom
	if availX < 2 || availY < 2 {
		return
	}

	x := minX + left + g.rng.Intn(availX)
	y := minY + top + g.rng.Intn(availY)
	kind := shapeKind(g.rng.Intn(3))
	length := 2 + g.rng.Intn(3)

	for _, t := range shapeTiles(kind, length, g.rng.Intn(4)) {
		g.AddObstacle(x+t[0], y+t[1])
	}
}

// shapeTiles returns tile offsets for a shape of the given arm length,
// rotated by rot quarter turns.
func shapeTiles(kind shapeKind, length, rot int) [][2]int {
	var tiles [][2]int
	switch kind {
	case shapeT:
		for i := 0; i < length; i++ {
			tiles = append(tiles, [2]int{i, 0})
		}
		mid := length / 2
		for i := 1; i <= length/2; i++ {
			tiles = append(tiles, [2]int{mid, i})
		}
	case shapeL:
		for i := 0; i < length; i++ {
			tiles = append(tiles, [2]int{0, i})
		}
		for i := 1; i < length; i++ {
			tiles = append(tiles, [2]int{i, length - 1})
		}
	case shapeI:
		for i := 0; i < length; i++ {
			tiles = append(tiles, [2]int{i, 0})
		}
	}
	for r := 0; r < rot%4; r++ {
		for i, t := range tiles {
			tiles[i] = [2]int{-t[1], t[0]}
		}
	}
	return tiles
}

// randomFreeTile picks a random tile centre not blocked by any occupant.
func (g *Game) randomFreeTile() (r2.Vec, bool) {
	for attempt := 0; attempt < 100; attempt++ {
		p := g.grid.Center(g.rng.Intn(g.grid.Width), g.rng.Intn(g.grid.Height))
		if !g.occ.IsBlocked(p) {
			return p, true
		}
	}
	return r2.Vec{}, false
}
