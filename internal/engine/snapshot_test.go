package engine

import (
	"testing"
	"time"

	"dispatchops-sim/internal/persist"
	"dispatchops-sim/internal/world"
)

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	cfg := testConfig()
	e, _, _, _ := newTestEngine(t, cfg)
	b, _ := e.BuyBuilding("fire_station", stationPos())
	v, _ := e.BuyVehicle("fire_truck", b.ID)
	m := e.store.AddMission("bush_fire", world.Position{Lat: -37.9, Lon: 145.0}, 75000, 20000, 1, testBase, testBase.Add(10*time.Minute))
	if err := e.Dispatch(v.ID, m.ID); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	snap := e.Snapshot()
	if snap.Version != persist.Version {
		t.Fatalf("snapshot version %d", snap.Version)
	}
	if !snap.SavedAt.Equal(testBase) {
		t.Errorf("saved_at should use the injected clock, got %v", snap.SavedAt)
	}
	if snap.Budget != 700000 {
		t.Errorf("snapshot budget %d", snap.Budget)
	}

	// Mutating the snapshot must not leak into the live engine.
	snap.Missions[0].AssignedIDs[0] = "tampered"
	if e.Missions()[0].AssignedIDs[0] != v.ID {
		t.Fatalf("snapshot shares slices with the engine")
	}
	snap.Missions[0].AssignedIDs[0] = v.ID

	e2, _, _, _ := newTestEngine(t, cfg)
	if err := e2.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if e2.Balance() != 700000 {
		t.Errorf("restored balance %d", e2.Balance())
	}
	vGot := e2.Vehicles()[0]
	if vGot.Status != world.VehicleResponding || vGot.MissionID != m.ID {
		t.Fatalf("restored vehicle %+v", vGot)
	}
	if vGot.Destination == nil || *vGot.Destination != m.Location {
		t.Errorf("responding destination not re-derived from the mission")
	}
	mGot := e2.Missions()[0]
	if mGot.Status != world.MissionAssigned || !mGot.HasAssigned(v.ID) {
		t.Fatalf("restored mission %+v", mGot)
	}

	// ID sequences continue where the old run stopped.
	nb, err := e2.BuyBuilding("fire_station", stationPos())
	if err != nil {
		t.Fatalf("buy after restore: %v", err)
	}
	if nb.ID != "b-2" {
		t.Errorf("expected next building id b-2, got %s", nb.ID)
	}
}

func TestRestoreRejectsBadSnapshots(t *testing.T) {
	e, _, _, _ := newTestEngine(t, testConfig())
	if err := e.Restore(nil); err == nil {
		t.Errorf("nil snapshot accepted")
	}
	if err := e.Restore(&persist.Snapshot{Version: persist.Version + 1}); err == nil {
		t.Errorf("future snapshot version accepted")
	}
}

func TestRestoreDropsUnknownKindsAndRehomes(t *testing.T) {
	e, _, _, _ := newTestEngine(t, testConfig())
	snap := &persist.Snapshot{
		Version: persist.Version,
		Budget:  500000,
		NextIDs: persist.NextIDs{Building: 4, Vehicle: 4, Mission: 1},
		Buildings: []world.Building{
			{ID: "b-1", Kind: "fire_station", Location: stationPos()},
			{ID: "b-2", Kind: "moon_base", Location: stationPos()},
		},
		Vehicles: []world.Vehicle{
			{ID: "v-1", Kind: "fire_truck", Class: "tanker", Home: "b-1", Location: stationPos(), Status: world.VehicleIdle, Mode: world.ModeIdle},
			{ID: "v-2", Kind: "fire_truck", Class: "tanker", Home: "b-2", Location: stationPos(), Status: world.VehicleIdle, Mode: world.ModeIdle},
			{ID: "v-3", Kind: "hovercraft", Class: "hover", Home: "b-1", Location: stationPos(), Status: world.VehicleIdle, Mode: world.ModeIdle},
		},
	}
	if err := e.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(e.Buildings()) != 1 {
		t.Fatalf("unknown building kind should be dropped, got %d", len(e.Buildings()))
	}
	vehicles := e.Vehicles()
	if len(vehicles) != 2 {
		t.Fatalf("expected 2 surviving vehicles, got %d", len(vehicles))
	}
	for _, v := range vehicles {
		if v.Home != "b-1" {
			t.Errorf("vehicle %s not re-homed, home=%s", v.ID, v.Home)
		}
	}
	b := e.Buildings()[0]
	if len(b.VehicleIDs) != 2 {
		t.Errorf("home membership not rebuilt: %v", b.VehicleIDs)
	}
}

func TestRestoreResetsBrokenAssignments(t *testing.T) {
	e, _, _, _ := newTestEngine(t, testConfig())
	snap := &persist.Snapshot{
		Version: persist.Version,
		Budget:  500000,
		NextIDs: persist.NextIDs{Building: 2, Vehicle: 2, Mission: 3},
		Buildings: []world.Building{
			{ID: "b-1", Kind: "fire_station", Location: stationPos()},
		},
		Vehicles: []world.Vehicle{
			// References a mission that no longer exists.
			{ID: "v-1", Kind: "fire_truck", Class: "tanker", Home: "b-1", Location: stationPos(), Status: world.VehicleResponding, Mode: world.ModeCode1, MissionID: "m-9"},
		},
		Missions: []world.Mission{
			// References a vehicle that does not claim it.
			{ID: "m-1", Kind: "bush_fire", Status: world.MissionAssigned, Location: stationPos(), Reward: 75000, Penalty: 20000, Urgency: 1, AssignedIDs: []string{"v-1"}},
			// Terminal missions never survive a restore.
			{ID: "m-2", Kind: "bush_fire", Status: world.MissionCompleted, Location: stationPos()},
		},
	}
	if err := e.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	v := e.Vehicles()[0]
	if v.Status != world.VehicleIdle || v.MissionID != "" || v.Mode != world.ModeIdle {
		t.Fatalf("broken assignment not reset: %+v", v)
	}
	missions := e.Missions()
	if len(missions) != 1 {
		t.Fatalf("expected 1 live mission, got %d", len(missions))
	}
	m := missions[0]
	if m.ID != "m-1" || m.Status != world.MissionActive || len(m.AssignedIDs) != 0 {
		t.Errorf("stale assignment not pruned: %+v", m)
	}
}

func TestRestoreRestartsCompletingDwell(t *testing.T) {
	e, _, _, _ := newTestEngine(t, testConfig())
	old := testBase.Add(-time.Hour)
	snap := &persist.Snapshot{
		Version: persist.Version,
		Budget:  500000,
		NextIDs: persist.NextIDs{Building: 2, Vehicle: 2, Mission: 2},
		Buildings: []world.Building{
			{ID: "b-1", Kind: "fire_station", Location: stationPos()},
		},
		Vehicles: []world.Vehicle{
			{ID: "v-1", Kind: "fire_truck", Class: "tanker", Home: "b-1", Location: stationPos(), Status: world.VehicleOnScene, Mode: world.ModeCode1, MissionID: "m-1"},
		},
		Missions: []world.Mission{
			{ID: "m-1", Kind: "bush_fire", Status: world.MissionCompleting, Location: world.Position{Lat: -37.9, Lon: 145.0}, Reward: 75000, Penalty: 20000, Urgency: 1, AssignedIDs: []string{"v-1"}, CompletesAt: old},
		},
	}
	if err := e.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	m := e.Missions()[0]
	if m.Status != world.MissionCompleting {
		t.Fatalf("completing mission demoted to %s", m.Status)
	}
	if !m.CompletesAt.Equal(testBase.Add(15 * time.Second)) {
		t.Errorf("dwell should restart in full, completes at %v", m.CompletesAt)
	}
	v := e.Vehicles()[0]
	if v.Location != m.Location {
		t.Errorf("on-scene vehicle should sit at the mission location")
	}
}
