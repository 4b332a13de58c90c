package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/gocarina/gocsv"
	"github.com/pthm-cable/tilenav/config"
)

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir           string
	telemetryFile *os.File
	perfFile      *os.File

	// Track if headers have been written
	telemetryHeaderWritten bool
	perfHeaderWritten      bool
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating telemetry.csv: %w", err)
	}
	om.telemetryFile = f

	f, err = os.Create(filepath.Join(dir, "perf.csv"))
	if err != nil {
		om.telemetryFile.Close()
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}
	om.perfFile = f

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// appendCSV writes records, emitting the header row only on the first call.
func appendCSV[T any](w io.Writer, records []T, headerWritten *bool) error {
	if !*headerWritten {
		if err := gocsv.Marshal(records, w); err != nil {
			return err
		}
		*headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, w)
}

// WriteTelemetry writes a window stats record to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	if err := appendCSV(om.telemetryFile, []WindowStats{stats}, &om.telemetryHeaderWritten); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int32) error {
	if om == nil {
		return nil
	}
	records := []PerfStatsCSV{stats.ToCSV(windowEnd)}
	if err := appendCSV(om.perfFile, records, &om.perfHeaderWritten); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteAgents writes one row per tracked agent to agents.csv, ordered by ID.
func (om *OutputManager) WriteAgents(lt *LifetimeTracker) error {
	if om == nil || lt == nil {
		return nil
	}

	records := make([]AgentRecord, 0, lt.Count())
	for id, s := range lt.All() {
		records = append(records, s.Record(id))
	}
	slices.SortFunc(records, func(a, b AgentRecord) int {
		return int(a.ID) - int(b.ID)
	})

	f, err := os.Create(filepath.Join(om.dir, "agents.csv"))
	if err != nil {
		return fmt.Errorf("creating agents.csv: %w", err)
	}
	defer f.Close()

	if err := gocsv.Marshal(records, f); err != nil {
		return fmt.Errorf("writing agents: %w", err)
	}
	return nil
}

// WriteSnapshot saves a snapshot into the output directory.
func (om *OutputManager) WriteSnapshot(s *Snapshot) (string, error) {
	if om == nil || s == nil {
		return "", nil
	}
	return SaveSnapshot(s, om.dir)
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error

	if om.telemetryFile != nil {
		if err := om.telemetryFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if om.perfFile != nil {
		if err := om.perfFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
