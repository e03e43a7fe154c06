package world

import (
	"errors"
	"testing"
	"time"
)

func TestAddEntitiesAllocateSequentialIDs(t *testing.T) {
	s := NewStore()
	b := s.AddBuilding("fire_station", 200000, Position{Lat: -37.8, Lon: 144.9})
	if b.ID != "b-1" {
		t.Errorf("expected b-1, got %s", b.ID)
	}
	v1 := s.AddVehicle("fire_truck", "tanker", 100000, b)
	v2 := s.AddVehicle("fire_truck", "tanker", 100000, b)
	if v1.ID != "v-1" || v2.ID != "v-2" {
		t.Errorf("unexpected vehicle ids %s, %s", v1.ID, v2.ID)
	}
	if v1.Status != VehicleIdle || v1.Mode != ModeIdle {
		t.Errorf("new vehicle not idle: %+v", v1)
	}
	if v1.Location != b.Location {
		t.Errorf("vehicle should start at its building")
	}
	if len(b.VehicleIDs) != 2 {
		t.Errorf("building membership not tracked: %v", b.VehicleIDs)
	}
	m := s.AddMission("bush_fire", Position{}, 75000, 20000, 1, time.Now(), time.Time{})
	if m.ID != "m-1" || m.Status != MissionActive {
		t.Errorf("unexpected mission %+v", m)
	}
}

func TestRemoveVehicleDetachesFromBuilding(t *testing.T) {
	s := NewStore()
	b := s.AddBuilding("fire_station", 200000, Position{})
	v := s.AddVehicle("fire_truck", "tanker", 100000, b)
	s.RemoveVehicle(v.ID)
	if _, ok := s.Vehicle(v.ID); ok {
		t.Fatalf("vehicle still present after removal")
	}
	if len(b.VehicleIDs) != 0 {
		t.Errorf("building still references removed vehicle: %v", b.VehicleIDs)
	}
	// Removing again is a no-op.
	s.RemoveVehicle(v.ID)
}

func TestInsertVehicleRequiresHome(t *testing.T) {
	s := NewStore()
	err := s.InsertVehicle(&Vehicle{ID: "v-9", Kind: "fire_truck", Home: "b-404"})
	if !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}
	b := s.AddBuilding("fire_station", 200000, Position{})
	if err := s.InsertVehicle(&Vehicle{ID: "v-9", Kind: "fire_truck", Home: b.ID}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if !contains(b.VehicleIDs, "v-9") {
		t.Errorf("membership not rebuilt on insert")
	}
	if err := s.InsertVehicle(&Vehicle{ID: "v-9", Home: b.ID}); err == nil {
		t.Errorf("expected duplicate insert to fail")
	}
}

func TestNextIDsSurviveRoundTrip(t *testing.T) {
	s := NewStore()
	b := s.AddBuilding("fire_station", 200000, Position{})
	s.AddVehicle("fire_truck", "tanker", 100000, b)
	nb, nv, nm := s.NextIDs()

	restored := NewStore()
	restored.SetNextIDs(nb, nv, nm)
	b2 := restored.AddBuilding("fire_station", 200000, Position{})
	if b2.ID != "b-2" {
		t.Errorf("id counter not restored, got %s", b2.ID)
	}

	restored.SetNextIDs(0, -1, 0)
	if b3 := restored.AddBuilding("x", 1, Position{}); b3.ID != "b-1" {
		t.Errorf("expected counter clamped to 1, got %s", b3.ID)
	}
}

func TestIDOrdinal(t *testing.T) {
	if IDOrdinal("v-12") != 12 {
		t.Errorf("expected 12, got %d", IDOrdinal("v-12"))
	}
	if IDOrdinal("m-3") >= IDOrdinal("m-20") {
		t.Errorf("ordinal ordering should be numeric, not lexical")
	}
	if IDOrdinal("garbage") <= IDOrdinal("v-999999") {
		t.Errorf("unparseable ids should sort last")
	}
}

func TestMissionStatusTerminal(t *testing.T) {
	for status, terminal := range map[MissionStatus]bool{
		MissionActive:     false,
		MissionAssigned:   false,
		MissionCompleting: false,
		MissionCompleted:  true,
		MissionFailed:     true,
	} {
		if status.Terminal() != terminal {
			t.Errorf("%s: expected Terminal()=%t", status, terminal)
		}
	}
}
