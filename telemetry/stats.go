package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Summary describes a sample distribution.
type Summary struct {
	Mean float64
	Std  float64
	P50  float64
	P90  float64
	Max  float64
}

// Summarize computes mean, sample standard deviation, empirical quantiles
// and maximum. An empty sample yields zeros.
func Summarize(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	s := Summary{
		Mean: stat.Mean(sorted, nil),
		P50:  stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P90:  stat.Quantile(0.9, stat.Empirical, sorted, nil),
		Max:  sorted[n-1],
	}
	if n > 1 {
		s.Std = stat.StdDev(sorted, nil)
	}
	return s
}

// WindowStats holds aggregated search and movement statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Agents at window end
	ActiveAgents int    `csv:"active_agents"`
	Generation   uint64 `csv:"generation"` // cluster map generation

	// Movement outcomes during window (agent-ticks)
	Advanced int `csv:"advanced"`
	Waiting  int `csv:"waiting"`
	Blocked  int `csv:"blocked"`
	Arrivals int `csv:"arrivals"`

	// Searches during window
	LocalSearches    int `csv:"local_searches"`
	LocalFailures    int `csv:"local_failures"`
	AbstractSearches int `csv:"abstract_searches"`
	AbstractFailures int `csv:"abstract_failures"`
	GateLinkSearches int `csv:"gatelink_searches"`
	Truncated        int `csv:"truncated"`

	// Expansion distributions
	LocalExpMean    float64 `csv:"local_exp_mean"`
	LocalExpP90     float64 `csv:"local_exp_p90"`
	LocalExpMax     float64 `csv:"local_exp_max"`
	AbstractExpMean float64 `csv:"abstract_exp_mean"`
	AbstractExpStd  float64 `csv:"abstract_exp_std"`
	AbstractExpP50  float64 `csv:"abstract_exp_p50"`
	AbstractExpP90  float64 `csv:"abstract_exp_p90"`
	AbstractExpMax  float64 `csv:"abstract_exp_max"`

	// Successful abstract plans
	AbstractCostMean float64 `csv:"abstract_cost_mean"`
	OpenSetMean      float64 `csv:"open_set_mean"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("active_agents", s.ActiveAgents),
		slog.Uint64("generation", s.Generation),
		slog.Int("advanced", s.Advanced),
		slog.Int("waiting", s.Waiting),
		slog.Int("blocked", s.Blocked),
		slog.Int("arrivals", s.Arrivals),
		slog.Int("local_searches", s.LocalSearches),
		slog.Int("local_failures", s.LocalFailures),
		slog.Int("abstract_searches", s.AbstractSearches),
		slog.Int("abstract_failures", s.AbstractFailures),
		slog.Int("gatelink_searches", s.GateLinkSearches),
		slog.Int("truncated", s.Truncated),
		slog.Float64("local_exp_mean", s.LocalExpMean),
		slog.Float64("abstract_exp_mean", s.AbstractExpMean),
		slog.Float64("abstract_exp_p90", s.AbstractExpP90),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"active_agents", s.ActiveAgents,
		"generation", s.Generation,
		"advanced", s.Advanced,
		"waiting", s.Waiting,
		"blocked", s.Blocked,
		"arrivals", s.Arrivals,
		"local_searches", s.LocalSearches,
		"local_failures", s.LocalFailures,
		"abstract_searches", s.AbstractSearches,
		"abstract_failures", s.AbstractFailures,
		"truncated", s.Truncated,
		"local_exp_mean", s.LocalExpMean,
		"local_exp_p90", s.LocalExpP90,
		"abstract_exp_mean", s.AbstractExpMean,
		"abstract_exp_p90", s.AbstractExpP90,
		"abstract_cost_mean", s.AbstractCostMean,
	)
}
