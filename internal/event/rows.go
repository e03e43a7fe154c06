// Event and unit rows emitted to presentation and telemetry writers.
package event

import (
	"os"
	"time"
)

// Event types emitted by the dispatch engine.
const (
	MissionCreated   = "mission_created"
	MissionAssigned  = "mission_assigned"
	NoUnitAvailable  = "no_unit_available"
	VehicleArrived   = "vehicle_arrived"
	MissionCompleted = "mission_completed"
	MissionFailed    = "mission_failed"
	BudgetChanged    = "budget_changed"
	EntityRemoved    = "entity_removed"
	SurgeToggled     = "surge"
)

// Row represents one dispatch event for writers and GreptimeDB.
type Row struct {
	SimID      string    `json:"sim_id"` // TAG
	Type       string    `json:"type"`   // TAG
	MissionID  string    `json:"mission_id,omitempty"`
	VehicleID  string    `json:"vehicle_id,omitempty"`
	BuildingID string    `json:"building_id,omitempty"`
	Amount     int64     `json:"amount,omitempty"`
	Balance    int64     `json:"balance,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Lat        float64   `json:"lat,omitempty"`
	Lon        float64   `json:"lon,omitempty"`
	Timestamp  time.Time `json:"ts"` // TIME INDEX
}

// UnitRow represents one per-tick vehicle state record.
type UnitRow struct {
	SimID     string    `json:"sim_id"`     // TAG
	VehicleID string    `json:"vehicle_id"` // TAG
	Kind      string    `json:"kind"`
	Class     string    `json:"class"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Status    string    `json:"status"`
	Mode      string    `json:"mode"`
	MissionID string    `json:"mission_id,omitempty"`
	Timestamp time.Time `json:"ts"` // TIME INDEX
}

// StateRow captures per-tick simulation summary metrics.
type StateRow struct {
	SimID             string    `json:"sim_id"`
	Balance           int64     `json:"balance"`
	Buildings         int       `json:"buildings"`
	Vehicles          int       `json:"vehicles"`
	ActiveMissions    int       `json:"active_missions"`
	MissionsCompleted int       `json:"missions_completed"`
	MissionsFailed    int       `json:"missions_failed"`
	Surge             bool      `json:"surge"`
	Phase             string    `json:"phase,omitempty"`
	Weather           string    `json:"weather,omitempty"`
	Timestamp         time.Time `json:"ts"`
}

// Table names default to the dispatch_* tables but can be overridden via
// environment variables when writing to GreptimeDB.
var (
	EventTableName = tableName("DISPATCH_EVENT_TABLE", "dispatch_events")
	UnitTableName  = tableName("DISPATCH_UNIT_TABLE", "dispatch_units")
	StateTableName = tableName("DISPATCH_STATE_TABLE", "dispatch_state")
)

func tableName(env, fallback string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return fallback
}

func (Row) TableName() string      { return EventTableName }
func (UnitRow) TableName() string  { return UnitTableName }
func (StateRow) TableName() string { return StateTableName }
