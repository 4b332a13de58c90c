package telemetry

import "github.com/pthm-cable/tilenav/systems"

// LifetimeStats tracks per-agent movement statistics since spawn.
type LifetimeStats struct {
	SpawnTick int32
	Strategy  string

	// Orders
	Orders      int
	Arrivals    int
	OrderTick   int32 // tick of the most recent order
	LastTripSec float64
	TotalTrip   float64 // seconds spent on completed trips

	// Tick outcomes while an order was active
	Advanced int
	Waiting  int
	Blocked  int

	Distance float64 // world units travelled
}

// LifetimeTracker manages per-agent lifetime statistics.
type LifetimeTracker struct {
	stats map[uint32]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint32]*LifetimeStats),
	}
}

// Register creates lifetime stats for a new agent.
func (lt *LifetimeTracker) Register(agentID uint32, spawnTick int32, strategy string) {
	lt.stats[agentID] = &LifetimeStats{
		SpawnTick: spawnTick,
		Strategy:  strategy,
	}
}

// Get returns the lifetime stats for an agent, or nil if not found.
func (lt *LifetimeTracker) Get(agentID uint32) *LifetimeStats {
	return lt.stats[agentID]
}

// Remove removes an agent's stats and returns them.
func (lt *LifetimeTracker) Remove(agentID uint32) *LifetimeStats {
	stats := lt.stats[agentID]
	delete(lt.stats, agentID)
	return stats
}

// RecordOrder notes that the agent received a new target.
func (lt *LifetimeTracker) RecordOrder(agentID uint32, tick int32) {
	if s := lt.stats[agentID]; s != nil {
		s.Orders++
		s.OrderTick = tick
	}
}

// RecordOutcome folds one movement tick into the agent's stats.
func (lt *LifetimeTracker) RecordOutcome(agentID uint32, out systems.MoveOutcome, moved float64, tick int32, dt float64) {
	s := lt.stats[agentID]
	if s == nil {
		return
	}
	s.Distance += moved
	switch out {
	case systems.MoveAdvanced:
		s.Advanced++
	case systems.MoveWaiting:
		s.Waiting++
	case systems.MoveBlocked:
		s.Blocked++
	case systems.MoveArrived:
		s.Arrivals++
		s.LastTripSec = float64(tick-s.OrderTick) * dt
		s.TotalTrip += s.LastTripSec
	}
}

// All returns all tracked stats.
func (lt *LifetimeTracker) All() map[uint32]*LifetimeStats {
	return lt.stats
}

// Count returns the number of tracked agents.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}

// AgentRecord is the flat CSV form of one agent's lifetime stats.
type AgentRecord struct {
	ID          uint32  `csv:"id" json:"id"`
	Strategy    string  `csv:"strategy" json:"strategy"`
	SpawnTick   int32   `csv:"spawn_tick" json:"spawn_tick"`
	Orders      int     `csv:"orders" json:"orders"`
	Arrivals    int     `csv:"arrivals" json:"arrivals"`
	MeanTripSec float64 `csv:"mean_trip_sec" json:"mean_trip_sec"`
	Advanced    int     `csv:"advanced" json:"advanced"`
	Waiting     int     `csv:"waiting" json:"waiting"`
	Blocked     int     `csv:"blocked" json:"blocked"`
	Distance    float64 `csv:"distance" json:"distance"`
}

// Record flattens the stats for CSV export.
func (ls *LifetimeStats) Record(agentID uint32) AgentRecord {
	r := AgentRecord{
		ID:        agentID,
		Strategy:  ls.Strategy,
		SpawnTick: ls.SpawnTick,
		Orders:    ls.Orders,
		Arrivals:  ls.Arrivals,
		Advanced:  ls.Advanced,
		Waiting:   ls.Waiting,
		Blocked:   ls.Blocked,
		Distance:  ls.Distance,
	}
	if ls.Arrivals > 0 {
		r.MeanTripSec = ls.TotalTrip / float64(ls.Arrivals)
	}
	return r
}
