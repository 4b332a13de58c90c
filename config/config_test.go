package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}

	if cfg.Grid.TileSize != 16 {
		t.Errorf("TileSize = %v, want 16", cfg.Grid.TileSize)
	}
	if cfg.Grid.ClusterSize != 10 {
		t.Errorf("ClusterSize = %d, want 10", cfg.Grid.ClusterSize)
	}
	if cfg.Movement.ArrivalThreshold != 2 {
		t.Errorf("ArrivalThreshold = %v, want 2", cfg.Movement.ArrivalThreshold)
	}
	if cfg.Movement.Strategy != StrategyHierarchical {
		t.Errorf("Strategy = %q, want %q", cfg.Movement.Strategy, StrategyHierarchical)
	}
}

// TestDerivedClusterGridRoundsUp verifies a partial last row of clusters is kept.
func TestDerivedClusterGridRoundsUp(t *testing.T) {
	cfg := Default()

	// 40x23 tiles with 10-tile clusters
	if cfg.Derived.ClustersX != 4 {
		t.Errorf("ClustersX = %d, want 4", cfg.Derived.ClustersX)
	}
	if cfg.Derived.ClustersY != 3 {
		t.Errorf("ClustersY = %d, want 3", cfg.Derived.ClustersY)
	}
	if cfg.Derived.WorldWidth != 640 || cfg.Derived.WorldHeight != 368 {
		t.Errorf("world size = %vx%v, want 640x368", cfg.Derived.WorldWidth, cfg.Derived.WorldHeight)
	}
	if cfg.Derived.StatsTicks < 1 {
		t.Errorf("StatsTicks = %d, want >= 1", cfg.Derived.StatsTicks)
	}
}

func TestLoadOverridesOnlyPresentKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "grid:\n  cluster_size: 8\nmovement:\n  strategy: reactive\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Grid.ClusterSize != 8 {
		t.Errorf("ClusterSize = %d, want 8", cfg.Grid.ClusterSize)
	}
	if cfg.Grid.TileSize != 16 {
		t.Errorf("TileSize = %v, want default 16", cfg.Grid.TileSize)
	}
	if cfg.Movement.Strategy != StrategyReactive {
		t.Errorf("Strategy = %q, want reactive", cfg.Movement.Strategy)
	}
	if cfg.Derived.ClustersX != 5 {
		t.Errorf("ClustersX = %d, want 5", cfg.Derived.ClustersX)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"zero tile size", "grid:\n  tile_size: 0\n", "tile_size"},
		{"negative cluster", "grid:\n  cluster_size: -1\n", "cluster_size"},
		{"unknown strategy", "movement:\n  strategy: teleport\n", "teleport"},
		{"negative cap", "search:\n  max_expansions: -5\n", "max_expansions"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Grid.ClusterSize = 12

	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load snapshot failed: %v", err)
	}
	if loaded.Grid.ClusterSize != 12 {
		t.Errorf("ClusterSize = %d, want 12", loaded.Grid.ClusterSize)
	}
}
