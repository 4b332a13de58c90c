package game

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/tilenav/components"
	"github.com/pthm-cable/tilenav/systems"
)

// ErrNotAgent is returned when an order targets an entity that is not a live agent.
var ErrNotAgent = errors.New("entity is not an agent")

// AddObstacle places a static obstacle on tile (tx, ty). It returns false if
// the tile is off the map or already holds an obstacle.
func (g *Game) AddObstacle(tx, ty int) (ecs.Entity, bool) {
	if !g.grid.InBounds(tx, ty) {
		return ecs.Entity{}, false
	}
	key := systems.MakeTileKey(tx, ty)
	if _, ok := g.obstacles[key]; ok {
		return ecs.Entity{}, false
	}

	center := g.grid.Center(tx, ty)
	pos := components.Position(center)
	occ := components.Occupant{Kind: components.KindStatic}
	e := g.obstacleMapper.NewEntity(&pos, &occ)

	g.occ.Upsert(e, components.KindStatic, center)
	g.obstacles[key] = e
	if g.navBuilt {
		g.nav.MarkDirty(center)
	}
	return e, true
}

// RemoveObstacle deletes a static obstacle created by AddObstacle.
func (g *Game) RemoveObstacle(e ecs.Entity) bool {
	key, ok := g.occ.CellOf(e)
	if !ok || g.obstacles[key] != e {
		return false
	}
	delete(g.obstacles, key)
	g.occ.Remove(e)
	g.world.RemoveEntity(e)
	if g.navBuilt {
		g.nav.MarkDirty(g.grid.KeyCenter(key))
	}
	return true
}

// ObstacleAt returns the obstacle on tile (tx, ty), if any.
func (g *Game) ObstacleAt(tx, ty int) (ecs.Entity, bool) {
	e, ok := g.obstacles[systems.MakeTileKey(tx, ty)]
	return e, ok
}

// ObstacleCount returns the number of static obstacles.
func (g *Game) ObstacleCount() int {
	return len(g.obstacles)
}

// SpawnAgent places a new agent on the centre of the tile containing pos.
// strategy names the movement strategy; empty selects the configured default.
func (g *Game) SpawnAgent(pos r2.Vec, strategy string) (ecs.Entity, error) {
	if !g.grid.Contains(pos) {
		return ecs.Entity{}, fmt.Errorf("spawn at (%.1f, %.1f): off the map", pos.X, pos.Y)
	}
	if g.occ.IsBlocked(pos) {
		return ecs.Entity{}, fmt.Errorf("spawn at (%.1f, %.1f): tile occupied", pos.X, pos.Y)
	}
	return g.spawn(g.grid.Snap(pos), strategy)
}

// spawn creates an agent at exactly pos.
func (g *Game) spawn(pos r2.Vec, strategy string) (ecs.Entity, error) {
	strat, name, err := g.newStrategy(strategy)
	if err != nil {
		return ecs.Entity{}, err
	}

	p := components.Position(pos)
	occ := components.Occupant{Kind: components.KindMobile}
	mv := components.Mover{
		Speed: g.cfg.Movement.Speed,
		Final: p,
		Next:  p,
	}
	e := g.agentMapper.NewEntity(&p, &occ, &mv)

	g.occ.Upsert(e, components.KindMobile, pos)
	g.agents = append(g.agents, e)
	g.strategies[e] = strat
	g.strategyNames[e] = name
	g.lifetimeTracker.Register(e.ID(), g.tick, name)
	return e, nil
}

// RemoveAgent deletes an agent.
func (g *Game) RemoveAgent(e ecs.Entity) bool {
	if !g.isAgent(e) {
		return false
	}
	for i, a := range g.agents {
		if a == e {
			g.agents = append(g.agents[:i], g.agents[i+1:]...)
			break
		}
	}
	delete(g.strategies, e)
	delete(g.strategyNames, e)
	g.lifetimeTracker.Remove(e.ID())
	g.occ.Remove(e)
	g.world.RemoveEntity(e)
	return true
}

// MoveTo issues a new final target to an agent, replacing any previous
// order or patrol.
func (g *Game) MoveTo(e ecs.Entity, target r2.Vec) error {
	if !g.isAgent(e) {
		return ErrNotAgent
	}
	if g.patrolMap.HasAll(e) {
		g.patrolMap.Remove(e)
	}
	g.order(e, target)
	return nil
}

// Patrol loops an agent over points, starting with the first one.
func (g *Game) Patrol(e ecs.Entity, points []r2.Vec) error {
	if !g.isAgent(e) {
		return ErrNotAgent
	}
	if len(points) == 0 {
		return errors.New("patrol needs at least one point")
	}

	patrol := components.Patrol{Points: make([]components.Position, len(points))}
	for i, p := range points {
		patrol.Points[i] = components.Position(p)
	}
	if g.patrolMap.HasAll(e) {
		*g.patrolMap.Get(e) = patrol
	} else {
		g.patrolMap.Add(e, &patrol)
	}
	g.order(e, points[0])
	return nil
}

func (g *Game) order(e ecs.Entity, target r2.Vec) {
	pos, _, mv := g.agentMapper.Get(e)
	g.movement.Order(*pos, mv, target, g.strategies[e])
	g.lifetimeTracker.RecordOrder(e.ID(), g.tick)
	slog.Debug("order", "agent", e.ID(), "target_x", mv.Final.X, "target_y", mv.Final.Y)
}

func (g *Game) isAgent(e ecs.Entity) bool {
	if !g.world.Alive(e) {
		return false
	}
	_, ok := g.strategies[e]
	return ok
}
