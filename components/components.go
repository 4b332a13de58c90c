// Package components defines ECS components for the simulation.
package components

// OccupantKind distinguishes permanent obstacles from agents that move.
type OccupantKind uint8

const (
	KindStatic OccupantKind = iota // trees, walls: never move, shape the cluster gates
	KindMobile                     // agents driven by a movement strategy
)

// String returns a short label for logs.
func (k OccupantKind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindMobile:
		return "mobile"
	}
	return "unknown"
}

// Occupant marks an entity that takes up a tile in the occupancy index.
type Occupant struct {
	Kind OccupantKind
}

// Mover holds the movement state of an agent.
type Mover struct {
	Speed float64 // world units per second

	Final  Position // final target, snapped to a tile centre
	Next   Position // intermediate tile the agent is currently walking to
	Active bool     // false once the final target is reached or no order was given

	// Bookkeeping for telemetry
	WaitTicks int32 // consecutive ticks without a usable step
	Steps     int32 // tiles chosen since the last order
}

// Patrol loops an agent over a list of points.
type Patrol struct {
	Points []Position
	Index  int
}
