// Package game hosts the navigation engine: it owns the ECS world, the
// occupancy index and cluster map, and advances agents tick by tick.
package game

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/tilenav/components"
	"github.com/pthm-cable/tilenav/config"
	"github.com/pthm-cable/tilenav/systems"
	"github.com/pthm-cable/tilenav/telemetry"
)

// Game holds the complete simulation state.
type Game struct {
	cfg  *config.Config
	opts Options

	world *ecs.World
	rng   *rand.Rand
	seed  int64

	// Entity mappers
	obstacleMapper *ecs.Map2[components.Position, components.Occupant]
	agentMapper    *ecs.Map3[components.Position, components.Occupant, components.Mover]
	moverFilter    *ecs.Filter1[components.Mover]

	// Individual component mappers for lookups
	posMap    *ecs.Map1[components.Position]
	moverMap  *ecs.Map1[components.Mover]
	patrolMap *ecs.Map1[components.Patrol]

	// Navigation
	grid     systems.TileGrid
	occ      *systems.OccupancyIndex
	nav      *systems.ClusterMap
	movement *systems.MovementSystem
	navBuilt bool

	// Agents in spawn order; processed in this order every tick
	agents        []ecs.Entity
	strategies    map[ecs.Entity]systems.Strategy
	strategyNames map[ecs.Entity]string
	obstacles     map[systems.TileKey]ecs.Entity
	arrivedBuf    []ecs.Entity

	// Telemetry
	collector       *telemetry.Collector
	perfCollector   *telemetry.PerfCollector
	lifetimeTracker *telemetry.LifetimeTracker
	outputManager   *telemetry.OutputManager

	tick int32
}

// NewGame creates a game with an empty map. Obstacles are added with
// AddObstacle, then BuildNavigation generates clusters and gates.
func NewGame(cfg *config.Config, opts Options) (*Game, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = cfg.Scenario.Seed
	}
	statsWindow := opts.StatsWindowSec
	if statsWindow <= 0 {
		statsWindow = cfg.Telemetry.StatsWindow
	}

	world := ecs.NewWorld()
	grid := systems.NewTileGrid(cfg.Grid.TileSize, cfg.Grid.WidthTiles, cfg.Grid.HeightTiles)
	occ := systems.NewOccupancyIndex(grid)

	g := &Game{
		cfg:  cfg,
		opts: opts,

		world: world,
		rng:   rand.New(rand.NewSource(seed)),
		seed:  seed,

		obstacleMapper: ecs.NewMap2[components.Position, components.Occupant](world),
		agentMapper:    ecs.NewMap3[components.Position, components.Occupant, components.Mover](world),
		moverFilter:    ecs.NewFilter1[components.Mover](world),
		posMap:         ecs.NewMap1[components.Position](world),
		moverMap:       ecs.NewMap1[components.Mover](world),
		patrolMap:      ecs.NewMap1[components.Patrol](world),

		grid: grid,
		occ:  occ,
		nav: systems.NewClusterMap(occ, systems.NavParams{
			ClusterSize:   cfg.Grid.ClusterSize,
			MaxExpansions: cfg.Search.MaxExpansions,
			GoalEpsilon:   cfg.Search.GoalEpsilon,
		}),
		movement: systems.NewMovementSystem(occ, systems.MovementParams{
			DT:               cfg.Movement.DT,
			ArrivalThreshold: cfg.Movement.ArrivalThreshold,
		}),

		strategies:    make(map[ecs.Entity]systems.Strategy),
		strategyNames: make(map[ecs.Entity]string),
		obstacles:     make(map[systems.TileKey]ecs.Entity),

		collector:       telemetry.NewCollector(statsWindow, cfg.Movement.DT),
		perfCollector:   telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		lifetimeTracker: telemetry.NewLifetimeTracker(),
	}
	g.nav.SetObserver(g.collector)

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	g.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		om.Close()
		return nil, fmt.Errorf("output: %w", err)
	}

	return g, nil
}

// BuildNavigation generates clusters, gates and gate tables from the
// current static obstacles. Later obstacle changes are picked up
// incrementally at the start of the next tick.
func (g *Game) BuildNavigation() {
	g.nav.Generate()
	g.navBuilt = true
	slog.Debug("navigation built",
		"clusters", len(g.nav.Clusters()),
		"gates", g.nav.GateCount(),
		"generation", g.nav.Generation(),
	)
}

// Tick returns the current simulation tick.
func (g *Game) Tick() int32 {
	return g.tick
}

// Seed returns the RNG seed in use.
func (g *Game) Seed() int64 {
	return g.seed
}

// Config returns the engine configuration.
func (g *Game) Config() *config.Config {
	return g.cfg
}

// Occupancy returns the occupancy index.
func (g *Game) Occupancy() *systems.OccupancyIndex {
	return g.occ
}

// Clusters returns the cluster map.
func (g *Game) Clusters() *systems.ClusterMap {
	return g.nav
}

// Agents returns agents in spawn order.
func (g *Game) Agents() []ecs.Entity {
	return g.agents
}

// Strategy returns the movement strategy driving an agent.
func (g *Game) Strategy(e ecs.Entity) systems.Strategy {
	return g.strategies[e]
}

// Collector returns the telemetry collector.
func (g *Game) Collector() *telemetry.Collector {
	return g.collector
}

// Lifetime returns the per-agent stats tracker.
func (g *Game) Lifetime() *telemetry.LifetimeTracker {
	return g.lifetimeTracker
}

// FindPath returns a complete tile path between two world positions using
// the hierarchical search over static obstacles.
func (g *Game) FindPath(start, end r2.Vec) systems.SearchResult {
	if !g.navBuilt {
		g.BuildNavigation()
	}
	return g.nav.FindPath(start, end)
}

// Position returns an agent's or obstacle's position.
func (g *Game) Position(e ecs.Entity) (r2.Vec, bool) {
	if !g.world.Alive(e) || !g.posMap.HasAll(e) {
		return r2.Vec{}, false
	}
	return r2.Vec(*g.posMap.Get(e)), true
}

// Arrived reports whether an agent has no active order and stands within
// the arrival threshold of its last target.
func (g *Game) Arrived(e ecs.Entity) bool {
	if !g.isAgent(e) {
		return false
	}
	pos, _, mv := g.agentMapper.Get(e)
	return !mv.Active && systems.HasReached(r2.Vec(*pos), r2.Vec(mv.Final), g.cfg.Movement.ArrivalThreshold)
}

// ActiveAgents counts agents with an order in progress.
func (g *Game) ActiveAgents() int {
	n := 0
	query := g.moverFilter.Query()
	for query.Next() {
		if query.Get().Active {
			n++
		}
	}
	return n
}

// Close writes final per-agent output and closes output files.
func (g *Game) Close() error {
	if g.outputManager == nil {
		return nil
	}
	if err := g.outputManager.WriteAgents(g.lifetimeTracker); err != nil {
		slog.Error("failed to write agents", "error", err)
	}
	if _, err := g.outputManager.WriteSnapshot(g.Snapshot()); err != nil {
		slog.Error("failed to write snapshot", "error", err)
	}
	return g.outputManager.Close()
}
