// Command optimize tunes the reactive steering angles and the arrival
// threshold with CMA-ES. Every candidate walks the same seeded obstacle
// scenarios; the score is arrivals per agent weighted by movement quality
// (see fitness.go).
package main

import (
	"encoding/csv"
	"flag"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/tilenav/config"
)

type options struct {
	configPath string
	strategy   string
	outputDir  string
	maxTicks   int
	seeds      int
	maxEvals   int
	population int
}

func parseOptions() options {
	var o options
	flag.StringVar(&o.configPath, "config", "", "Base config YAML file (empty = defaults)")
	flag.StringVar(&o.strategy, "strategy", config.StrategyReactive, "Strategy of the scenario agents")
	flag.StringVar(&o.outputDir, "output", "", "Directory for optimize_log.csv and best_config.yaml")
	flag.IntVar(&o.maxTicks, "max-ticks", 3600, "Ticks per scenario run")
	flag.IntVar(&o.seeds, "seeds", 3, "Scenario seeds per candidate")
	flag.IntVar(&o.maxEvals, "max-evals", 200, "Evaluation budget")
	flag.IntVar(&o.population, "population", 0, "CMA-ES population (0 = 4 + 3 ln dim)")
	flag.Parse()
	return o
}

// scenarioSeeds returns n fixed seeds so every candidate sees the same maps.
func scenarioSeeds(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(42 + 1000*i)
	}
	return out
}

// arrivalsPerAgent recovers the raw arrival rate from a fitness value.
func arrivalsPerAgent(fitness, quality float64) float64 {
	return -fitness / (1 + 0.2*quality)
}

// tuningLog writes one CSV row per evaluation and remembers the best
// candidate seen, which CMA-ES does not always report as its final point.
type tuningLog struct {
	w       *csv.Writer
	evals   int
	budget  int
	best    float64
	bestX   []float64
	started time.Time
}

func newTuningLog(w io.Writer, params *ParamVector, budget int) (*tuningLog, error) {
	l := &tuningLog{
		w:       csv.NewWriter(w),
		budget:  budget,
		best:    math.Inf(1),
		started: time.Now(),
	}
	header := []string{"eval", "fitness", "arrivals_per_agent", "quality"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := l.w.Write(header); err != nil {
		return nil, err
	}
	l.w.Flush()
	return l, l.w.Error()
}

// record logs one evaluation of the clamped parameter values x.
func (l *tuningLog) record(x []float64, fitness, quality float64) error {
	l.evals++
	if fitness < l.best {
		l.best = fitness
		l.bestX = append(l.bestX[:0], x...)
	}

	row := []string{
		strconv.Itoa(l.evals),
		strconv.FormatFloat(fitness, 'f', 6, 64),
		strconv.FormatFloat(arrivalsPerAgent(fitness, quality), 'f', 4, 64),
		strconv.FormatFloat(quality, 'f', 4, 64),
	}
	for _, v := range x {
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	if err := l.w.Write(row); err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}

// eta extrapolates the remaining time from the mean evaluation time.
func (l *tuningLog) eta() time.Duration {
	if l.evals == 0 {
		return 0
	}
	per := time.Since(l.started) / time.Duration(l.evals)
	return time.Duration(max(l.budget-l.evals, 0)) * per
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	opts := parseOptions()
	if opts.outputDir == "" {
		slog.Error("-output is required")
		os.Exit(2)
	}
	if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
		slog.Error("create output dir", "error", err)
		os.Exit(1)
	}

	if err := config.Init(opts.configPath); err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	base := config.Cfg()
	base.Movement.Strategy = opts.strategy
	if err := base.Validate(); err != nil {
		slog.Error("invalid base config", "error", err)
		os.Exit(1)
	}

	params := NewParamVector()
	evaluator := NewFitnessEvaluator(params, int32(opts.maxTicks), scenarioSeeds(opts.seeds), base)

	f, err := os.Create(filepath.Join(opts.outputDir, "optimize_log.csv"))
	if err != nil {
		slog.Error("create log", "error", err)
		os.Exit(1)
	}
	defer f.Close()
	tlog, err := newTuningLog(f, params, opts.maxEvals)
	if err != nil {
		slog.Error("write log header", "error", err)
		os.Exit(1)
	}

	// CMA-ES works in the unit cube; candidates are mapped back and clamped
	// before they reach the simulation.
	problem := optimize.Problem{
		Func: func(unit []float64) float64 {
			x := params.Clamp(params.Denormalize(unit))
			fitness := evaluator.Evaluate(x)
			quality := evaluator.LastQuality()
			if err := tlog.record(x, fitness, quality); err != nil {
				slog.Warn("log evaluation", "error", err)
			}
			slog.Info("eval",
				"n", tlog.evals,
				"arrivals_per_agent", arrivalsPerAgent(fitness, quality),
				"quality", quality,
				"best", tlog.best,
				"eta", tlog.eta().Round(time.Second))
			return fitness
		},
	}

	dim := params.Dim()
	pop := opts.population
	if pop <= 0 {
		pop = 4 + int(3*math.Log(float64(dim)))
	}
	slog.Info("tuning",
		"params", dim, "population", pop, "budget", opts.maxEvals,
		"seeds", opts.seeds, "ticks", opts.maxTicks, "strategy", opts.strategy)

	result, err := optimize.Minimize(problem,
		params.Normalize(params.DefaultVector()),
		&optimize.Settings{FuncEvaluations: opts.maxEvals},
		&optimize.CmaEsChol{InitStepSize: 0.3, Population: pop})
	if err != nil {
		slog.Warn("optimizer stopped", "error", err)
	}

	best := tlog.bestX
	if best == nil && result != nil {
		best = params.Clamp(params.Denormalize(result.X))
	}
	if best == nil {
		slog.Error("no candidate evaluated")
		os.Exit(1)
	}

	attrs := []any{"evals", tlog.evals, "fitness", tlog.best, "took", time.Since(tlog.started).Round(time.Second)}
	for i, spec := range params.Specs {
		attrs = append(attrs, spec.Name, best[i])
	}
	slog.Info("best", attrs...)

	out, err := config.Load(opts.configPath)
	if err != nil {
		slog.Error("reload config", "error", err)
		os.Exit(1)
	}
	out.Movement.Strategy = opts.strategy
	params.ApplyToConfig(out, best)
	path := filepath.Join(opts.outputDir, "best_config.yaml")
	if err := out.WriteYAML(path); err != nil {
		slog.Error("write best config", "error", err)
		os.Exit(1)
	}
	slog.Info("saved", "path", path)
}
