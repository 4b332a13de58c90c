package systems

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

// PlanState is the state of a hierarchical strategy.
type PlanState uint8

const (
	StateIdle          PlanState = iota // no target or target reached
	StateGlobalPlanned                  // following a cached gate waypoint list
	StateLocalStepping                  // inside the destination cluster
)

func (s PlanState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGlobalPlanned:
		return "global"
	case StateLocalStepping:
		return "local"
	}
	return "unknown"
}

// HierarchicalStrategy plans once over the gate graph and re-derives the
// local segment toward the next waypoint every time a step is requested.
//
// Waypoint consumption: every waypoint whose tile the agent stands on is
// popped. When a popped waypoint is a gate and the next target (the following
// waypoint, or the final target) lies outside the current cluster, the step
// is the tile across the gate. If that tile is occupied the waypoint is kept
// and no step is returned. Local steps treat every other occupant as
// blocking; the gate plan only sees static obstacles.
type HierarchicalStrategy struct {
	nav     *ClusterMap
	arrival float64

	target    r2.Vec
	hasTarget bool
	plan      []r2.Vec // pending waypoints, head first
	planned   bool
	planGen   uint64
	failed    bool // last plan attempt failed at failedGen
	failedGen uint64
	state     PlanState

	// Diagnostics
	Plans int // abstract searches run
}

// NewHierarchicalStrategy creates a strategy over nav. arrival is the
// distance at which the final target counts as reached.
func NewHierarchicalStrategy(nav *ClusterMap, arrival float64) *HierarchicalStrategy {
	return &HierarchicalStrategy{nav: nav, arrival: arrival}
}

// State returns the current plan state.
func (h *HierarchicalStrategy) State() PlanState {
	return h.state
}

// Waypoints returns the pending gate waypoints.
func (h *HierarchicalStrategy) Waypoints() []r2.Vec {
	return h.plan
}

// Reset drops the cached plan.
func (h *HierarchicalStrategy) Reset() {
	h.dropPlan()
	h.failed = false
	h.hasTarget = false
	h.state = StateIdle
}

func (h *HierarchicalStrategy) dropPlan() {
	h.plan = nil
	h.planned = false
}

func (h *HierarchicalStrategy) NextTile(self ecs.Entity, pos, target r2.Vec) (r2.Vec, bool) {
	if HasReached(pos, target, h.arrival) {
		h.state = StateIdle
		return r2.Vec{}, false
	}
	if !h.hasTarget || h.target != target {
		h.Reset()
		h.target = target
		h.hasTarget = true
	}

	cur := h.nav.ClusterAt(pos)
	dest := h.nav.ClusterAt(target)
	if cur == nil || dest == nil {
		return r2.Vec{}, false
	}

	occ := h.nav.Occupancy()
	live := func(p r2.Vec) bool { return occ.IsBlockedFor(p, self) }

	if cur == dest {
		h.state = StateLocalStepping
		if next, ok := h.nav.LocalPath(pos, target, live).Next(); ok {
			return next, true
		}
		// The target may only be reachable through another cluster.
	}

	for attempt := 0; attempt < 2; attempt++ {
		if !h.ensurePlan(pos, target) {
			return r2.Vec{}, false
		}
		h.state = StateGlobalPlanned
		step, ok, stale := h.follow(pos, target, cur, live)
		if !stale {
			return step, ok
		}
		h.dropPlan()
	}
	return r2.Vec{}, false
}

// ensurePlan makes sure a plan for the current generation exists. A failed
// attempt is not retried until the cluster map changes.
func (h *HierarchicalStrategy) ensurePlan(pos, target r2.Vec) bool {
	if h.planned && h.planGen == h.nav.Generation() && !h.nav.Dirty() {
		return true
	}
	if h.failed && h.failedGen == h.nav.Generation() && !h.nav.Dirty() {
		return false
	}

	h.dropPlan()
	res := h.nav.FindAbstractPath(pos, target)
	h.Plans++
	if !res.Success() {
		h.failed = true
		h.failedGen = h.nav.Generation()
		return false
	}
	h.failed = false
	h.plan = res.Path
	h.planned = true
	h.planGen = h.nav.Generation()
	return true
}

// follow consumes reached waypoints and picks the next step. stale is true
// when the head waypoint is not in the agent's cluster and the plan must be
// recomputed.
func (h *HierarchicalStrategy) follow(pos, target r2.Vec, cur *Cluster, live BlockFunc) (step r2.Vec, ok, stale bool) {
	grid := h.nav.Grid()
	here := grid.Key(pos)

	for len(h.plan) > 0 && grid.Key(h.plan[0]) == here {
		following := target
		if len(h.plan) > 1 {
			following = h.plan[1]
		}
		if next := h.nav.ClusterAt(following); next != cur {
			if across, crossing := h.nav.CrossingToward(h.plan[0], next); crossing {
				if live(across) {
					return r2.Vec{}, false, false
				}
				h.plan = h.plan[1:]
				return across, true, false
			}
		}
		h.plan = h.plan[1:]
	}

	waypoint := target
	if len(h.plan) > 0 {
		waypoint = h.plan[0]
	}
	if h.nav.ClusterAt(waypoint) != cur {
		return r2.Vec{}, false, true
	}
	step, ok = h.nav.LocalPath(pos, waypoint, live).Next()
	return step, ok, false
}
