package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/tilenav/config"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestOutputManager_Disabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v", om, err)
	}
	// Nil manager methods are no-ops
	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}

func TestOutputManager_TelemetryHeaderOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	for i := int32(1); i <= 3; i++ {
		if err := om.WriteTelemetry(WindowStats{WindowEndTick: i * 600, LocalSearches: int(i)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := om.WritePerf(PerfStats{}, 600); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	lines := readLines(t, filepath.Join(dir, "telemetry.csv"))
	if len(lines) != 4 {
		t.Fatalf("telemetry.csv has %d lines, want 4:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	if !strings.HasPrefix(lines[0], "window_end,") {
		t.Errorf("header = %q", lines[0])
	}
	if strings.Contains(lines[0], "WindowStartTick") {
		t.Error("ignored column exported")
	}
	if !strings.HasPrefix(lines[3], "1800,") {
		t.Errorf("last row = %q", lines[3])
	}

	if perf := readLines(t, filepath.Join(dir, "perf.csv")); len(perf) != 2 {
		t.Errorf("perf.csv has %d lines, want 2", len(perf))
	}
}

func TestOutputManager_AgentsAndConfig(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer om.Close()

	lt := NewLifetimeTracker()
	lt.Register(9, 0, "reactive")
	lt.Register(2, 0, "hierarchical")
	if err := om.WriteAgents(lt); err != nil {
		t.Fatal(err)
	}

	lines := readLines(t, filepath.Join(dir, "agents.csv"))
	if len(lines) != 3 {
		t.Fatalf("agents.csv has %d lines, want 3", len(lines))
	}
	if !strings.HasPrefix(lines[1], "2,hierarchical") || !strings.HasPrefix(lines[2], "9,reactive") {
		t.Errorf("rows not ordered by id: %q", lines[1:])
	}

	if err := om.WriteConfig(config.Default()); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("written config does not load: %v", err)
	}
}
