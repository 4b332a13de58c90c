package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the map and agent state needed to rebuild a run.
// Paths and plans are not stored; agents replan after a restore.
type Snapshot struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`

	TileSize    float64 `json:"tile_size"`
	WidthTiles  int     `json:"width_tiles"`
	HeightTiles int     `json:"height_tiles"`
	ClusterSize int     `json:"cluster_size"`

	Tick       int32  `json:"tick"`
	Generation uint64 `json:"generation"`
	Gates      int    `json:"gates"`

	Obstacles []TileState  `json:"obstacles"`
	Agents    []AgentState `json:"agents"`
}

// TileState identifies one static obstacle.
type TileState struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// AgentState holds one agent's state.
type AgentState struct {
	ID       uint32  `json:"id"`
	Strategy string  `json:"strategy"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Speed    float64 `json:"speed"`

	// Current order, if any
	Active  bool    `json:"active"`
	TargetX float64 `json:"target_x"`
	TargetY float64 `json:"target_y"`

	Lifetime *AgentRecord `json:"lifetime,omitempty"`
}

// SaveSnapshot writes a snapshot to dir as snapshot_<tick>.json.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("snapshot_%d.json", snapshot.Tick))

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
