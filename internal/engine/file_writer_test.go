package engine

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"dispatchops-sim/internal/event"
)

func readJSONLines(t *testing.T, path string, decode func([]byte)) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		decode(sc.Bytes())
		n++
	}
	return n
}

func TestFileWriterWritesAllThreeLogs(t *testing.T) {
	dir := t.TempDir()
	unitPath := filepath.Join(dir, "units.jsonl")
	eventPath := filepath.Join(dir, "events.jsonl")
	statePath := filepath.Join(dir, "state.jsonl")

	fw, err := NewFileWriter(unitPath, eventPath, statePath)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := fw.WriteUnits([]event.UnitRow{
		{SimID: "sim-f", VehicleID: "v-1", Status: "idle", Timestamp: testBase},
		{SimID: "sim-f", VehicleID: "v-2", Status: "responding", Timestamp: testBase},
	}); err != nil {
		t.Fatalf("write units: %v", err)
	}
	if err := fw.WriteEvent(event.Row{SimID: "sim-f", Type: event.MissionCreated, MissionID: "m-1", Timestamp: testBase}); err != nil {
		t.Fatalf("write event: %v", err)
	}
	if err := fw.WriteState(event.StateRow{SimID: "sim-f", Balance: 1000000, Timestamp: testBase}); err != nil {
		t.Fatalf("write state: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var lastUnit event.UnitRow
	if n := readJSONLines(t, unitPath, func(b []byte) {
		if err := json.Unmarshal(b, &lastUnit); err != nil {
			t.Errorf("bad unit line: %v", err)
		}
	}); n != 2 {
		t.Errorf("expected 2 unit lines, got %d", n)
	}
	if lastUnit.VehicleID != "v-2" {
		t.Errorf("unexpected last unit %+v", lastUnit)
	}

	var row event.Row
	if n := readJSONLines(t, eventPath, func(b []byte) {
		if err := json.Unmarshal(b, &row); err != nil {
			t.Errorf("bad event line: %v", err)
		}
	}); n != 1 {
		t.Errorf("expected 1 event line, got %d", n)
	}
	if row.Type != event.MissionCreated {
		t.Errorf("unexpected event %+v", row)
	}

	var state event.StateRow
	if n := readJSONLines(t, statePath, func(b []byte) {
		json.Unmarshal(b, &state)
	}); n != 1 {
		t.Errorf("expected 1 state line, got %d", n)
	}
	if state.Balance != 1000000 {
		t.Errorf("unexpected state %+v", state)
	}
}

func TestFileWriterSkipsDisabledLogs(t *testing.T) {
	dir := t.TempDir()
	unitPath := filepath.Join(dir, "units.jsonl")
	fw, err := NewFileWriter(unitPath, "", "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer fw.Close()

	if err := fw.WriteEvent(event.Row{Type: event.MissionCreated}); err != nil {
		t.Errorf("disabled event log should no-op: %v", err)
	}
	if err := fw.WriteState(event.StateRow{}); err != nil {
		t.Errorf("disabled state log should no-op: %v", err)
	}
	if err := fw.WriteUnit(event.UnitRow{VehicleID: "v-1"}); err != nil {
		t.Errorf("enabled unit log failed: %v", err)
	}
}

func TestMultiWriterFansOut(t *testing.T) {
	u1, u2 := &MockUnitWriter{}, &MockUnitWriter{}
	ew := &MockEventWriter{}
	sw := &MockStateWriter{}
	mw := NewMultiWriter(
		[]UnitWriter{u1, u2},
		[]EventWriter{ew},
		[]StateWriter{sw},
	)

	rows := []event.UnitRow{{VehicleID: "v-1"}, {VehicleID: "v-2"}}
	if err := mw.WriteUnits(rows); err != nil {
		t.Fatalf("write units: %v", err)
	}
	if len(u1.Rows) != 2 || len(u2.Rows) != 2 {
		t.Errorf("fan-out incomplete: %d and %d", len(u1.Rows), len(u2.Rows))
	}
	if err := mw.WriteEvent(event.Row{Type: event.SurgeToggled}); err != nil {
		t.Fatalf("write event: %v", err)
	}
	if len(ew.Rows) != 1 {
		t.Errorf("event not fanned out")
	}
	if err := mw.WriteState(event.StateRow{Balance: 5}); err != nil {
		t.Fatalf("write state: %v", err)
	}
	if len(sw.Rows) != 1 {
		t.Errorf("state not fanned out")
	}
}

// batchingUnitWriter proves the batch upgrade path is taken when available.
type batchingUnitWriter struct {
	MockUnitWriter
	batches int
}

func (w *batchingUnitWriter) WriteUnits(rows []event.UnitRow) error {
	w.batches++
	w.Rows = append(w.Rows, rows...)
	return nil
}

func TestMultiWriterUsesBatchPath(t *testing.T) {
	bw := &batchingUnitWriter{}
	plain := &MockUnitWriter{}
	mw := NewMultiWriter([]UnitWriter{bw, plain}, nil, nil)

	rows := []event.UnitRow{{VehicleID: "v-1"}, {VehicleID: "v-2"}, {VehicleID: "v-3"}}
	if err := mw.WriteUnits(rows); err != nil {
		t.Fatalf("write units: %v", err)
	}
	if bw.batches != 1 {
		t.Errorf("expected a single batched call, got %d", bw.batches)
	}
	if len(bw.Rows) != 3 || len(plain.Rows) != 3 {
		t.Errorf("rows lost in fan-out: %d and %d", len(bw.Rows), len(plain.Rows))
	}
}
