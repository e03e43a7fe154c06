// Snapshot types for saving and restoring a running simulation.
package persist

import (
	"time"

	"dispatchops-sim/internal/ledger"
	"dispatchops-sim/internal/world"
)

// Version is bumped when the snapshot layout changes incompatibly.
const Version = 1

// NextIDs carries the store's id counters across restarts.
type NextIDs struct {
	Building int `json:"building"`
	Vehicle  int `json:"vehicle"`
	Mission  int `json:"mission"`
}

// Stats accumulates lifetime counters across saves.
type Stats struct {
	MissionsCompleted int   `json:"missions_completed"`
	MissionsFailed    int   `json:"missions_failed"`
	TotalRewards      int64 `json:"total_rewards"`
	TotalPenalties    int64 `json:"total_penalties"`
}

// Snapshot is the JSON-compatible blob holding everything needed to rebuild
// a live simulation. Runtime handles (destinations are data, timers are not)
// are re-derived on restore from persisted status.
type Snapshot struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`

	Budget int64          `json:"budget"`
	Ledger []ledger.Entry `json:"ledger"`

	NextIDs NextIDs `json:"next_ids"`

	Buildings []world.Building `json:"buildings"`
	Vehicles  []world.Vehicle  `json:"vehicles"`
	Missions  []world.Mission  `json:"missions"`

	Stats Stats  `json:"stats"`
	Phase string `json:"phase,omitempty"`
}
