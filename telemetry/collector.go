package telemetry

import "github.com/pthm-cable/tilenav/systems"

// searchCounters accumulates one kind of search within a window.
type searchCounters struct {
	count      int
	failures   int
	truncated  int
	expansions []float64
	costs      []float64 // successful searches only
	openSizes  []float64
}

func (s *searchCounters) reset() {
	s.count = 0
	s.failures = 0
	s.truncated = 0
	s.expansions = s.expansions[:0]
	s.costs = s.costs[:0]
	s.openSizes = s.openSizes[:0]
}

// Totals holds run-long counters.
type Totals struct {
	Searches  [3]int // indexed by systems.SearchKind
	Failures  [3]int
	Truncated int
	Arrivals  int
	Blocked   int
	Waiting   int
}

// Collector accumulates search diagnostics and movement outcomes within time
// windows and produces WindowStats. It implements systems.SearchObserver.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float64

	// Current window tracking
	windowStartTick int32

	searches [3]searchCounters
	moves    [5]int // indexed by systems.MoveOutcome

	totals Totals
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int32(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// ObserveSearch records the outcome of one search.
func (c *Collector) ObserveSearch(kind systems.SearchKind, res systems.SearchResult) {
	if int(kind) >= len(c.searches) {
		return
	}
	s := &c.searches[kind]
	s.count++
	s.expansions = append(s.expansions, float64(res.NodesExpanded))
	s.openSizes = append(s.openSizes, float64(res.OpenSetSize))
	if res.Success() {
		s.costs = append(s.costs, res.Cost)
	} else {
		s.failures++
		c.totals.Failures[kind]++
	}
	if res.Truncated {
		s.truncated++
		c.totals.Truncated++
	}
	c.totals.Searches[kind]++
}

// RecordMove records one agent's movement outcome for a tick.
func (c *Collector) RecordMove(out systems.MoveOutcome) {
	if int(out) >= len(c.moves) {
		return
	}
	c.moves[out]++
	switch out {
	case systems.MoveArrived:
		c.totals.Arrivals++
	case systems.MoveBlocked:
		c.totals.Blocked++
	case systems.MoveWaiting:
		c.totals.Waiting++
	}
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, activeAgents int, generation uint64) WindowStats {
	local := &c.searches[systems.SearchLocal]
	abstract := &c.searches[systems.SearchAbstract]
	links := &c.searches[systems.SearchGateLink]

	localExp := Summarize(local.expansions)
	absExp := Summarize(abstract.expansions)
	absCost := Summarize(abstract.costs)

	var open []float64
	open = append(open, local.openSizes...)
	open = append(open, abstract.openSizes...)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		ActiveAgents: activeAgents,
		Generation:   generation,

		Advanced: c.moves[systems.MoveAdvanced],
		Waiting:  c.moves[systems.MoveWaiting],
		Blocked:  c.moves[systems.MoveBlocked],
		Arrivals: c.moves[systems.MoveArrived],

		LocalSearches:    local.count,
		LocalFailures:    local.failures,
		AbstractSearches: abstract.count,
		AbstractFailures: abstract.failures,
		GateLinkSearches: links.count,
		Truncated:        local.truncated + abstract.truncated + links.truncated,

		LocalExpMean:    localExp.Mean,
		LocalExpP90:     localExp.P90,
		LocalExpMax:     localExp.Max,
		AbstractExpMean: absExp.Mean,
		AbstractExpStd:  absExp.Std,
		AbstractExpP50:  absExp.P50,
		AbstractExpP90:  absExp.P90,
		AbstractExpMax:  absExp.Max,

		AbstractCostMean: absCost.Mean,
		OpenSetMean:      Summarize(open).Mean,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	for i := range c.searches {
		c.searches[i].reset()
	}
	c.moves = [5]int{}

	return stats
}

// Totals returns counters accumulated since the collector was created.
func (c *Collector) Totals() Totals {
	return c.totals
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
