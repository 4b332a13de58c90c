package game

import (
	"fmt"
	"math"

	"github.com/pthm-cable/tilenav/config"
	"github.com/pthm-cable/tilenav/systems"
)

// newStrategy builds a fresh strategy instance for one agent.
// An empty name selects the configured default.
func (g *Game) newStrategy(name string) (systems.Strategy, string, error) {
	if name == "" {
		name = g.cfg.Movement.Strategy
	}
	switch name {
	case config.StrategyHierarchical:
		return systems.NewHierarchicalStrategy(g.nav, g.cfg.Movement.ArrivalThreshold), name, nil
	case config.StrategyReactive:
		return systems.NewReactiveStrategy(g.occ, g.steeringParams()), name, nil
	case config.StrategyDirect:
		return systems.NewDirectStrategy(g.grid), name, nil
	}
	return nil, "", fmt.Errorf("unknown strategy %q", name)
}

func (g *Game) steeringParams() systems.SteeringParams {
	s := g.cfg.Steering
	return systems.SteeringParams{
		ProbeStep: s.ProbeStepDeg * math.Pi / 180,
		MaxProbe:  s.MaxProbeDeg * math.Pi / 180,
		Commit:    s.CommitDeg * math.Pi / 180,
	}
}
