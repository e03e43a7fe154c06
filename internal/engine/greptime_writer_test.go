package engine

import (
	"testing"
	"time"

	"dispatchops-sim/internal/event"
)

func TestUnitTableBuildsRowPerRecord(t *testing.T) {
	ts := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rows := []event.UnitRow{
		{SimID: "sim-1", VehicleID: "v-1", Kind: "fire_truck", Class: "tanker", Lat: -33.86, Lon: 151.2, Status: "idle", Mode: "idle", Timestamp: ts},
		{SimID: "sim-1", VehicleID: "v-2", Kind: "ambulance", Class: "ambulance", Lat: -33.87, Lon: 151.21, Status: "responding", Mode: "code3", MissionID: "m-1", Timestamp: ts},
	}
	tbl, err := unitTable(rows)
	if err != nil {
		t.Fatalf("unit table: %v", err)
	}
	if got := len(tbl.GetRows().Rows); got != 2 {
		t.Errorf("row count: %d", got)
	}
}

func TestEventTableBuildsSingleRow(t *testing.T) {
	row := event.Row{
		SimID:     "sim-1",
		Type:      event.MissionCompleted,
		MissionID: "m-1",
		Amount:    75000,
		Balance:   825000,
		Timestamp: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	tbl, err := eventTable(row)
	if err != nil {
		t.Fatalf("event table: %v", err)
	}
	if got := len(tbl.GetRows().Rows); got != 1 {
		t.Errorf("row count: %d", got)
	}
}

func TestStateTableBuildsSingleRow(t *testing.T) {
	row := event.StateRow{
		SimID:          "sim-1",
		Balance:        500000,
		Buildings:      2,
		Vehicles:       3,
		ActiveMissions: 1,
		Surge:          true,
		Phase:          "day",
		Weather:        "clear",
		Timestamp:      time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	tbl, err := stateTable(row)
	if err != nil {
		t.Fatalf("state table: %v", err)
	}
	if got := len(tbl.GetRows().Rows); got != 1 {
		t.Errorf("row count: %d", got)
	}
}
