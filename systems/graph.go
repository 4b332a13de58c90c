package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// UnreachableCost is returned for edges that should be treated as missing:
// a gate whose table has no entry for the target, or a mirror that no longer
// exists. A* never relaxes an edge at or above this cost.
const UnreachableCost = math.MaxFloat32

// SearchGraph is the space explored by A*. Nodes are tile centres.
type SearchGraph interface {
	// Neighbors returns the nodes reachable in one edge from node.
	Neighbors(node r2.Vec) []r2.Vec
	// Cost returns the edge cost between two adjacent nodes.
	Cost(from, to r2.Vec) float64
	// Heuristic estimates the remaining cost from node to goal.
	Heuristic(node, goal r2.Vec) float64
	// IsGoal reports whether node terminates the search for goal.
	IsGoal(node, goal r2.Vec) bool
}

// ClosedSetMarker is implemented by graphs that close more than the expanded
// node. The abstract graph uses it to close the mirror side of a gate.
type ClosedSetMarker interface {
	MarkClosed(node r2.Vec, closed map[TileKey]struct{})
}

// BlockFunc reports whether the tile containing pos cannot be entered.
type BlockFunc func(pos r2.Vec) bool

// SearchKind tags a search for instrumentation.
type SearchKind uint8

const (
	SearchLocal    SearchKind = iota // tile-level search inside one cluster
	SearchAbstract                   // gate-level search across clusters
	SearchGateLink                   // gate-to-gate table construction
)

// String returns the label used in telemetry output.
func (k SearchKind) String() string {
	switch k {
	case SearchLocal:
		return "local"
	case SearchAbstract:
		return "abstract"
	case SearchGateLink:
		return "gatelink"
	}
	return "unknown"
}

// SearchObserver receives the diagnostics of every search the cluster map runs.
// A nil observer disables reporting.
type SearchObserver interface {
	ObserveSearch(kind SearchKind, res SearchResult)
}

// SearchResult is the outcome of one A* run. A failed search has an empty path.
type SearchResult struct {
	Path          []r2.Vec // tile centres from start to goal, inclusive
	Cost          float64
	NodesExpanded int
	OpenSetSize   int  // open nodes left when the search stopped
	Truncated     bool // stopped by the expansion cap, not by exhausting the open set
}

// Success reports whether a path was found.
func (r SearchResult) Success() bool {
	return len(r.Path) > 0
}

// Next returns the first step after the start tile.
func (r SearchResult) Next() (r2.Vec, bool) {
	if len(r.Path) < 2 {
		return r2.Vec{}, false
	}
	return r.Path[1], true
}
