package main

import (
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/tilenav/config"
	"github.com/pthm-cable/tilenav/game"
	"github.com/pthm-cable/tilenav/telemetry"
)

// FitnessEvaluator runs headless scenarios and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	maxTicks    int32
	seeds       []int64
	baseConfig  *config.Config
	statsWindow float64

	mu          sync.Mutex
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		statsWindow: 5.0,
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// runResult holds the results from a single scenario run.
type runResult struct {
	agents      int
	arrivals    int
	windowStats []telemetry.WindowStats // collected via StatsCallback each window
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Each seed runs in its own goroutine; games share no state.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	fitness := make([]float64, len(fe.seeds))
	quality := make([]float64, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			r := fe.runScenario(x, s)
			quality[idx] = computeQuality(r.windowStats)
			fitness[idx] = computeFitness(r, quality[idx])
		}(i, seed)
	}
	wg.Wait()

	fe.mu.Lock()
	fe.lastQuality = stat.Mean(quality, nil)
	fe.mu.Unlock()

	return stat.Mean(fitness, nil)
}

// runScenario generates the seeded scenario and runs it for maxTicks.
func (fe *FitnessEvaluator) runScenario(x []float64, seed int64) *runResult {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	result := &runResult{}
	g, err := game.NewGame(cfg, game.Options{
		Seed:           seed,
		StatsWindowSec: fe.statsWindow,
		StatsCallback: func(stats telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, stats)
		},
	})
	if err != nil {
		slog.Error("invalid candidate config", "error", err)
		return result
	}

	g.GenerateScenario()
	result.agents = len(g.Agents())
	for g.Tick() < fe.maxTicks {
		g.Step()
	}
	result.arrivals = g.Collector().Totals().Arrivals
	return result
}

// copyConfig returns a copy of the base config.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(arrivalsPerAgent × (1.0 + 0.2 × quality))
func computeFitness(r *runResult, quality float64) float64 {
	if r.agents == 0 {
		return 0
	}
	perAgent := float64(r.arrivals) / float64(r.agents)
	return -(perAgent * (1.0 + 0.2*quality))
}

// Quality component weights.
const (
	qualityWeightFlow      = 0.6
	qualityWeightStability = 0.4

	qualityWarmupWindows = 1 // skip first N windows
)

// computeQuality scores movement smoothness ∈ [0, 1] from window stats:
// the share of agent-ticks spent advancing, and how steady arrivals are
// across windows.
func computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}
	valid := windows[qualityWarmupWindows:]

	var flowSum float64
	var flowCount int
	arrivals := make([]float64, 0, len(valid))

	for _, w := range valid {
		arrivals = append(arrivals, float64(w.Arrivals))
		moving := w.Advanced + w.Waiting + w.Blocked
		if moving == 0 {
			continue
		}
		flowSum += float64(w.Advanced) / float64(moving)
		flowCount++
	}

	flowScore := 0.0
	if flowCount > 0 {
		flowScore = flowSum / float64(flowCount)
	}

	stabilityScore := 0.0
	if len(arrivals) >= 2 {
		mean, std := stat.MeanStdDev(arrivals, nil)
		if mean > 0 {
			cv := std / mean
			stabilityScore = math.Exp(-cv * cv)
		}
	}

	return clamp01(qualityWeightFlow*flowScore + qualityWeightStability*stabilityScore)
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	return min(max(x, 0), 1)
}
