// Runtime entity types for the dispatch simulation.
package world

import (
	"errors"
	"time"
)

// Position holds latitude and longitude.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// VehicleStatus describes where a vehicle is in its dispatch cycle.
type VehicleStatus string

const (
	VehicleIdle       VehicleStatus = "idle"
	VehicleResponding VehicleStatus = "responding"
	VehicleOnScene    VehicleStatus = "on_scene"
	VehicleReturning  VehicleStatus = "returning"
)

// MissionStatus describes a mission's lifecycle state.
type MissionStatus string

const (
	MissionActive     MissionStatus = "active"
	MissionAssigned   MissionStatus = "assigned"
	MissionCompleting MissionStatus = "completing"
	MissionCompleted  MissionStatus = "completed"
	MissionFailed     MissionStatus = "failed"
)

// Terminal reports whether the status removes the mission from the live set.
func (s MissionStatus) Terminal() bool {
	return s == MissionCompleted || s == MissionFailed
}

// ResponseMode is the operator-selected urgency for a vehicle's next run.
type ResponseMode string

const (
	ModeIdle  ResponseMode = "idle"
	ModeCode1 ResponseMode = "code1"
	ModeCode3 ResponseMode = "code3"
)

// Building is a placed station housing vehicles.
type Building struct {
	ID         string   `json:"id"`
	Kind       string   `json:"kind"`
	Location   Position `json:"location"`
	VehicleIDs []string `json:"vehicle_ids"`
	Cost       int64    `json:"cost"`
}

// Vehicle is a dispatchable unit homed at a building.
type Vehicle struct {
	ID          string        `json:"id"`
	Kind        string        `json:"kind"`
	Class       string        `json:"class"`
	Home        string        `json:"home"`
	Location    Position      `json:"location"`
	Status      VehicleStatus `json:"status"`
	Mode        ResponseMode  `json:"mode"`
	MissionID   string        `json:"mission_id,omitempty"`
	Destination *Position     `json:"destination,omitempty"`
	Cost        int64         `json:"cost"`
}

// Assigned reports whether the vehicle is bound to a mission.
func (v *Vehicle) Assigned() bool {
	return v.Status == VehicleResponding || v.Status == VehicleOnScene
}

// Mission is a time-bounded demand for units at a location.
type Mission struct {
	ID          string        `json:"id"`
	Kind        string        `json:"kind"`
	Location    Position      `json:"location"`
	Status      MissionStatus `json:"status"`
	AssignedIDs []string      `json:"assigned_ids"`
	Reward      int64         `json:"reward"`
	Penalty     int64         `json:"penalty"`
	Urgency     int           `json:"urgency"`
	CreatedAt   time.Time     `json:"created_at"`
	Deadline    time.Time     `json:"deadline,omitzero"`
	CompletesAt time.Time     `json:"completes_at,omitzero"`
}

// HasAssigned reports whether the vehicle id is already attached to the mission.
func (m *Mission) HasAssigned(vehicleID string) bool {
	for _, id := range m.AssignedIDs {
		if id == vehicleID {
			return true
		}
	}
	return false
}

// Command error taxonomy. All are recoverable; callers report them and move on.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownEntity     = errors.New("unknown entity")
	ErrIllegalTransition = errors.New("illegal state transition")
	ErrCapacityExceeded  = errors.New("building capacity exceeded")
)
