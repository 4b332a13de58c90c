// Package config provides configuration loading and access for the navigation engine.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Strategy names accepted by movement.strategy.
const (
	StrategyHierarchical = "hierarchical"
	StrategyReactive     = "reactive"
	StrategyDirect       = "direct"
)

// Config holds all engine configuration parameters.
type Config struct {
	Grid      GridConfig      `yaml:"grid"`
	Movement  MovementConfig  `yaml:"movement"`
	Steering  SteeringConfig  `yaml:"steering"`
	Search    SearchConfig    `yaml:"search"`
	Scenario  ScenarioConfig  `yaml:"scenario"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// GridConfig fixes the map geometry. It is read once at map-build time.
type GridConfig struct {
	TileSize    float64 `yaml:"tile_size"`    // world units per tile edge
	ClusterSize int     `yaml:"cluster_size"` // tiles per cluster edge
	WidthTiles  int     `yaml:"width_tiles"`
	HeightTiles int     `yaml:"height_tiles"`
}

// MovementConfig holds agent movement parameters.
type MovementConfig struct {
	Speed            float64 `yaml:"speed"`             // world units per second
	DT               float64 `yaml:"dt"`                // seconds per tick
	ArrivalThreshold float64 `yaml:"arrival_threshold"` // distance at which a tile counts as reached
	Strategy         string  `yaml:"strategy"`          // default strategy for new agents
}

// SteeringConfig holds the reactive wall-following parameters.
type SteeringConfig struct {
	ProbeStepDeg float64 `yaml:"probe_step_deg"`
	MaxProbeDeg  float64 `yaml:"max_probe_deg"`
	CommitDeg    float64 `yaml:"commit_deg"` // offset at which a turn side is committed
}

// SearchConfig holds A* parameters.
type SearchConfig struct {
	MaxExpansions int     `yaml:"max_expansions"` // 0 = unlimited
	GoalEpsilon   float64 `yaml:"goal_epsilon"`
}

// ScenarioConfig drives the procedural map used by the headless runner.
type ScenarioConfig struct {
	Seed         int64 `yaml:"seed"`
	Agents       int   `yaml:"agents"`
	Border       bool  `yaml:"border"`
	ObstaclesMin int   `yaml:"obstacles_min"` // per cluster
	ObstaclesMax int   `yaml:"obstacles_max"`
	Margin       int   `yaml:"margin"` // free tiles kept along cluster edges
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // seconds
	PerfWindow  int     `yaml:"perf_window"`  // ticks
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	ClustersX   int     // ceil(width / cluster size)
	ClustersY   int     // ceil(height / cluster size)
	WorldWidth  float64 // width in world units
	WorldHeight float64
	StatsTicks  int32 // stats window in ticks
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ComputeDerived()

	return cfg, nil
}

// Validate rejects values the engine cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Grid.TileSize <= 0 {
		errs = append(errs, fmt.Errorf("grid.tile_size must be positive, got %v", c.Grid.TileSize))
	}
	if c.Grid.ClusterSize <= 0 {
		errs = append(errs, fmt.Errorf("grid.cluster_size must be positive, got %d", c.Grid.ClusterSize))
	}
	if c.Grid.WidthTiles <= 0 || c.Grid.HeightTiles <= 0 {
		errs = append(errs, fmt.Errorf("grid size must be positive, got %dx%d", c.Grid.WidthTiles, c.Grid.HeightTiles))
	}
	if c.Movement.Speed <= 0 {
		errs = append(errs, fmt.Errorf("movement.speed must be positive, got %v", c.Movement.Speed))
	}
	if c.Movement.DT <= 0 {
		errs = append(errs, fmt.Errorf("movement.dt must be positive, got %v", c.Movement.DT))
	}
	switch c.Movement.Strategy {
	case StrategyHierarchical, StrategyReactive, StrategyDirect:
	default:
		errs = append(errs, fmt.Errorf("unknown movement.strategy %q", c.Movement.Strategy))
	}
	if c.Steering.ProbeStepDeg <= 0 || c.Steering.MaxProbeDeg < c.Steering.ProbeStepDeg {
		errs = append(errs, fmt.Errorf("steering probe range invalid: step %v, max %v",
			c.Steering.ProbeStepDeg, c.Steering.MaxProbeDeg))
	}
	if c.Search.MaxExpansions < 0 {
		errs = append(errs, errors.New("search.max_expansions must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ComputeDerived calculates values derived from loaded config.
// Exported so callers that tweak a loaded config can refresh the derived block.
func (c *Config) ComputeDerived() {
	cs := c.Grid.ClusterSize
	// Partial last row/column of clusters when the size does not divide the map
	c.Derived.ClustersX = (c.Grid.WidthTiles + cs - 1) / cs
	c.Derived.ClustersY = (c.Grid.HeightTiles + cs - 1) / cs
	c.Derived.WorldWidth = float64(c.Grid.WidthTiles) * c.Grid.TileSize
	c.Derived.WorldHeight = float64(c.Grid.HeightTiles) * c.Grid.TileSize

	ticks := int32(c.Telemetry.StatsWindow / c.Movement.DT)
	if ticks < 1 {
		ticks = 1
	}
	c.Derived.StatsTicks = ticks
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
