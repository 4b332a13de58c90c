package telemetry

import (
	"log/slog"
	"time"
)

// Phase is one timed section of a simulation step.
type Phase uint8

const (
	PhaseRefresh   Phase = iota // cluster map refresh after obstacle changes
	PhaseMovement               // strategy queries and position updates
	PhasePatrol                 // re-targeting agents that finished a patrol leg
	PhaseTelemetry              // window flush and output
	numPhases
)

var phaseNames = [numPhases]string{"refresh", "movement", "patrol", "telemetry"}

func (p Phase) String() string {
	if p < numPhases {
		return phaseNames[p]
	}
	return "unknown"
}

// stepTiming is the wall time of one step split by phase.
type stepTiming struct {
	total  time.Duration
	phases [numPhases]time.Duration
}

// PerfCollector keeps the timings of the last N steps in a ring.
//
// Usage per step: StartTick, StartPhase for each phase in order, EndTick.
// A phase runs until the next StartPhase or EndTick.
type PerfCollector struct {
	ring   []stepTiming
	next   int
	filled int

	cur     stepTiming
	began   time.Time
	mark    time.Time
	phase   Phase
	inPhase bool
}

// NewPerfCollector creates a collector averaging over window steps.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{ring: make([]stepTiming, window)}
}

func (p *PerfCollector) StartTick() {
	p.began = time.Now()
	p.cur = stepTiming{}
	p.inPhase = false
}

func (p *PerfCollector) StartPhase(phase Phase) {
	now := time.Now()
	p.closePhase(now)
	p.phase = phase
	p.mark = now
	p.inPhase = phase < numPhases
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.inPhase {
		p.cur.phases[p.phase] += now.Sub(p.mark)
	}
}

func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.closePhase(now)
	p.inPhase = false
	p.cur.total = now.Sub(p.began)

	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	if p.filled < len(p.ring) {
		p.filled++
	}
}

// PhaseTiming is the average share of one phase.
type PhaseTiming struct {
	Avg time.Duration
	Pct float64 // of the average step
}

// PerfStats summarises the steps in the window.
type PerfStats struct {
	Steps           int
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	P90TickDuration time.Duration
	MaxTickDuration time.Duration
	TicksPerSecond  float64
	Phases          [numPhases]PhaseTiming
}

// Phase returns the timing of one phase.
func (s PerfStats) Phase(p Phase) PhaseTiming {
	if p < numPhases {
		return s.Phases[p]
	}
	return PhaseTiming{}
}

func (p *PerfCollector) Stats() PerfStats {
	if p.filled == 0 {
		return PerfStats{}
	}

	totals := make([]float64, p.filled)
	var sums [numPhases]time.Duration
	minTick := p.ring[0].total
	for i, st := range p.ring[:p.filled] {
		totals[i] = float64(st.total)
		minTick = min(minTick, st.total)
		for ph, d := range st.phases {
			sums[ph] += d
		}
	}
	sum := Summarize(totals)

	out := PerfStats{
		Steps:           p.filled,
		AvgTickDuration: time.Duration(sum.Mean),
		MinTickDuration: minTick,
		P90TickDuration: time.Duration(sum.P90),
		MaxTickDuration: time.Duration(sum.Max),
	}
	if out.AvgTickDuration > 0 {
		out.TicksPerSecond = float64(time.Second) / float64(out.AvgTickDuration)
	}
	for ph := range sums {
		avg := sums[ph] / time.Duration(p.filled)
		out.Phases[ph].Avg = avg
		if out.AvgTickDuration > 0 {
			out.Phases[ph].Pct = 100 * float64(avg) / float64(out.AvgTickDuration)
		}
	}
	return out
}

// LogStats logs the window summary; phases under 0.1% are left out.
func (s PerfStats) LogStats() {
	attrs := []any{
		"steps", s.Steps,
		"avg_tick_us", s.AvgTickDuration.Microseconds(),
		"p90_tick_us", s.P90TickDuration.Microseconds(),
		"max_tick_us", s.MaxTickDuration.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
	}
	for ph := Phase(0); ph < numPhases; ph++ {
		if pct := s.Phases[ph].Pct; pct > 0.1 {
			attrs = append(attrs, ph.String()+"_pct", float64(int(pct*10))/10)
		}
	}
	slog.Info("perf", attrs...)
}

func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("steps", s.Steps),
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("p90_tick_us", s.P90TickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}
	for ph := Phase(0); ph < numPhases; ph++ {
		attrs = append(attrs, slog.Float64(ph.String()+"_pct", s.Phases[ph].Pct))
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one row of perf.csv.
type PerfStatsCSV struct {
	WindowEnd    int32   `csv:"window_end"`
	Steps        int     `csv:"steps"`
	AvgTickUS    int64   `csv:"avg_tick_us"`
	MinTickUS    int64   `csv:"min_tick_us"`
	P90TickUS    int64   `csv:"p90_tick_us"`
	MaxTickUS    int64   `csv:"max_tick_us"`
	TicksPerSec  float64 `csv:"ticks_per_sec"`
	RefreshPct   float64 `csv:"refresh_pct"`
	MovementPct  float64 `csv:"movement_pct"`
	PatrolPct    float64 `csv:"patrol_pct"`
	TelemetryPct float64 `csv:"telemetry_pct"`
}

func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:    windowEnd,
		Steps:        s.Steps,
		AvgTickUS:    s.AvgTickDuration.Microseconds(),
		MinTickUS:    s.MinTickDuration.Microseconds(),
		P90TickUS:    s.P90TickDuration.Microseconds(),
		MaxTickUS:    s.MaxTickDuration.Microseconds(),
		TicksPerSec:  s.TicksPerSecond,
		RefreshPct:   s.Phases[PhaseRefresh].Pct,
		MovementPct:  s.Phases[PhaseMovement].Pct,
		PatrolPct:    s.Phases[PhasePatrol].Pct,
		TelemetryPct: s.Phases[PhaseTelemetry].Pct,
	}
}
