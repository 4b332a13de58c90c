package systems

import (
	"container/heap"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// searchNode is a node in the A* open set.
type searchNode struct {
	key    TileKey
	pos    r2.Vec
	g      float64
	f      float64 // f = g + h (priority)
	seq    uint64  // insertion order, breaks f ties FIFO
	index  int     // heap index, -1 once popped
	parent *searchNode
}

// nodeHeap implements heap.Interface for the A* open set. Equal f values pop
// in insertion order.
type nodeHeap []*searchNode

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].seq < h[j].seq
}
func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*searchNode)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[0 : n-1]
	return node
}

// FindPath runs A* over graph from start to end without an expansion cap.
func FindPath(grid TileGrid, graph SearchGraph, start, end r2.Vec) SearchResult {
	return FindPathLimited(grid, graph, start, end, 0)
}

// FindPathLimited runs A* over graph from start to end. Both endpoints are
// snapped to tile centres before the search. maxExpansions > 0 caps the number
// of expanded nodes; hitting the cap yields a failed, truncated result.
//
// State is allocated per call: the abstract graph runs local searches from
// inside its own expansion.
func FindPathLimited(grid TileGrid, graph SearchGraph, start, end r2.Vec, maxExpansions int) SearchResult {
	start = grid.Snap(start)
	end = grid.Snap(end)

	open := &nodeHeap{}
	nodes := make(map[TileKey]*searchNode, 64)
	closed := make(map[TileKey]struct{}, 64)
	marker, _ := graph.(ClosedSetMarker)

	var seq uint64
	root := &searchNode{
		key: grid.Key(start),
		pos: start,
		f:   graph.Heuristic(start, end),
	}
	nodes[root.key] = root
	heap.Push(open, root)

	var res SearchResult
	for open.Len() > 0 {
		if maxExpansions > 0 && res.NodesExpanded >= maxExpansions {
			res.Truncated = true
			break
		}

		current := heap.Pop(open).(*searchNode)
		if _, done := closed[current.key]; done {
			continue
		}
		res.NodesExpanded++

		if graph.IsGoal(current.pos, end) {
			res.Path = reconstructPath(current)
			res.Cost = current.g
			res.OpenSetSize = open.Len()
			return res
		}

		closed[current.key] = struct{}{}
		if marker != nil {
			marker.MarkClosed(current.pos, closed)
		}

		for _, next := range graph.Neighbors(current.pos) {
			next = grid.Snap(next)
			key := grid.Key(next)
			if _, done := closed[key]; done {
				continue
			}

			step := graph.Cost(current.pos, next)
			if step >= UnreachableCost || math.IsNaN(step) {
				continue
			}
			tentativeG := current.g + step

			node, seen := nodes[key]
			if seen && tentativeG >= node.g {
				continue
			}

			seq++
			if !seen {
				node = &searchNode{key: key, pos: next}
				nodes[key] = node
			}
			node.g = tentativeG
			node.f = tentativeG + graph.Heuristic(next, end)
			node.parent = current
			node.seq = seq

			if seen && node.index >= 0 {
				heap.Fix(open, node.index)
			} else {
				heap.Push(open, node)
			}
		}
	}

	res.OpenSetSize = open.Len()
	return res
}

// reconstructPath walks parent links back to the start.
func reconstructPath(goal *searchNode) []r2.Vec {
	n := 0
	for node := goal; node != nil; node = node.parent {
		n++
	}
	path := make([]r2.Vec, n)
	for node := goal; node != nil; node = node.parent {
		n--
		path[n] = node.pos
	}
	return path
}
