package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"dispatchops-sim/internal/config"
	"dispatchops-sim/internal/engine"
	"dispatchops-sim/internal/event"
)

func testCfg() *config.SimulationConfig {
	cfg := &config.SimulationConfig{}
	cfg.ApplyDefaults()
	return cfg
}

func TestNewWritersPrintOnly(t *testing.T) {
	uw, ew, sw, cleanup, err := newWriters(testCfg(), true, false, "")
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	// Stdout is not a terminal under go test, so the JSON writer is chosen.
	if _, ok := uw.(*engine.StdoutWriter); !ok {
		t.Fatalf("expected *engine.StdoutWriter, got %T", uw)
	}
	if _, ok := ew.(*engine.StdoutWriter); !ok {
		t.Fatalf("expected event writer *engine.StdoutWriter, got %T", ew)
	}
	if _, ok := sw.(*engine.StdoutWriter); !ok {
		t.Fatalf("expected state writer *engine.StdoutWriter, got %T", sw)
	}
}

func TestNewWritersGreptimeFallback(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	uw, _, _, cleanup, err := newWriters(testCfg(), false, false, "")
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if _, ok := uw.(*engine.StdoutWriter); !ok {
		t.Fatalf("expected *engine.StdoutWriter without an endpoint, got %T", uw)
	}
}

func TestNewWritersLogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dispatch.log")
	uw, ew, sw, cleanup, err := newWriters(testCfg(), true, false, path)
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	if _, ok := uw.(*engine.MultiWriter); !ok {
		t.Fatalf("expected *engine.MultiWriter, got %T", uw)
	}

	row := event.UnitRow{SimID: "sim-1", VehicleID: "v-1", Status: "idle", Timestamp: time.Now()}
	if err := uw.WriteUnit(row); err != nil {
		t.Fatalf("write unit failed: %v", err)
	}
	if err := ew.WriteEvent(event.Row{SimID: "sim-1", Type: event.MissionCreated, Timestamp: time.Now()}); err != nil {
		t.Fatalf("write event failed: %v", err)
	}
	if err := sw.WriteState(event.StateRow{SimID: "sim-1", Balance: 1, Timestamp: time.Now()}); err != nil {
		t.Fatalf("write state failed: %v", err)
	}
	cleanup()

	for _, p := range []string{path, path + ".events", path + ".state"} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s failed: %v", p, err)
		}
		if info.Size() == 0 {
			t.Fatalf("expected %s to be non-empty", p)
		}
	}
}

func TestNewEventWriter(t *testing.T) {
	ew, err := newEventWriter(testCfg(), true)
	if err != nil {
		t.Fatalf("newEventWriter returned error: %v", err)
	}
	if ew == nil {
		t.Fatalf("expected an event writer")
	}
}
