package persist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dispatchops-sim/internal/world"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves", "state.json")
	store := NewStore(path)

	snap := &Snapshot{
		Version: Version,
		SavedAt: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
		Budget:  345000,
		NextIDs: NextIDs{Building: 3, Vehicle: 5, Mission: 9},
		Buildings: []world.Building{
			{ID: "b-1", Kind: "fire_station", Cost: 200000, VehicleIDs: []string{"v-1"}},
		},
		Vehicles: []world.Vehicle{
			{ID: "v-1", Kind: "fire_truck", Class: "tanker", Home: "b-1", Status: world.VehicleIdle, Mode: world.ModeIdle, Cost: 100000},
		},
		Missions: []world.Mission{
			{ID: "m-4", Kind: "bush_fire", Status: world.MissionActive, Reward: 75000},
		},
		Stats: Stats{MissionsCompleted: 7, MissionsFailed: 2, TotalRewards: 500000, TotalPenalties: 40000},
		Phase: "peak",
	}
	if err := store.Save(snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Budget != snap.Budget || got.Phase != snap.Phase {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.NextIDs != snap.NextIDs {
		t.Errorf("next ids mismatch: %+v", got.NextIDs)
	}
	if len(got.Buildings) != 1 || got.Buildings[0].ID != "b-1" {
		t.Errorf("buildings mismatch: %+v", got.Buildings)
	}
	if got.Stats != snap.Stats {
		t.Errorf("stats mismatch: %+v", got.Stats)
	}
	if !got.SavedAt.Equal(snap.SavedAt) {
		t.Errorf("saved_at mismatch: %v", got.SavedAt)
	}
}

func TestLoadMissingFileReturnsErrNoState(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "never-written.json"))
	if _, err := store.Load(); !errors.Is(err, ErrNoState) {
		t.Fatalf("expected ErrNoState, got %v", err)
	}
}

func TestLoadRejectsCorruptBlob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewStore(path).Load(); err == nil {
		t.Fatalf("expected decode error for corrupt blob")
	}
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"version": 99}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewStore(path).Load(); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestSaveOverwritesPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewStore(path)
	if err := store.Save(&Snapshot{Version: Version, Budget: 100}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.Save(&Snapshot{Version: Version, Budget: 200}); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Budget != 200 {
		t.Errorf("expected latest snapshot, got budget %d", got.Budget)
	}
}
