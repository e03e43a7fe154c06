package world

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Store owns the authoritative building, vehicle, and mission collections.
// It allocates ids and maintains referential invariants; budget checks and
// dispatch policy live in the engine.
type Store struct {
	Buildings map[string]*Building
	Vehicles  map[string]*Vehicle
	Missions  map[string]*Mission

	nextBuilding int
	nextVehicle  int
	nextMission  int
}

// NewStore returns an empty store with id counters starting at 1.
func NewStore() *Store {
	return &Store{
		Buildings:    make(map[string]*Building),
		Vehicles:     make(map[string]*Vehicle),
		Missions:     make(map[string]*Mission),
		nextBuilding: 1,
		nextVehicle:  1,
		nextMission:  1,
	}
}

// AddBuilding allocates an id and registers a new building.
func (s *Store) AddBuilding(kind string, cost int64, loc Position) *Building {
	b := &Building{
		ID:       fmt.Sprintf("b-%d", s.nextBuilding),
		Kind:     kind,
		Location: loc,
		Cost:     cost,
	}
	s.nextBuilding++
	s.Buildings[b.ID] = b
	return b
}

// AddVehicle allocates an id and registers a new vehicle homed at b.
// The vehicle starts idle at the building's location.
func (s *Store) AddVehicle(kind, class string, cost int64, b *Building) *Vehicle {
	v := &Vehicle{
		ID:       fmt.Sprintf("v-%d", s.nextVehicle),
		Kind:     kind,
		Class:    class,
		Home:     b.ID,
		Location: b.Location,
		Status:   VehicleIdle,
		Mode:     ModeIdle,
		Cost:     cost,
	}
	s.nextVehicle++
	s.Vehicles[v.ID] = v
	b.VehicleIDs = append(b.VehicleIDs, v.ID)
	return v
}

// AddMission allocates an id and registers a new active mission.
func (s *Store) AddMission(kind string, loc Position, reward, penalty int64, urgency int, createdAt, deadline time.Time) *Mission {
	m := &Mission{
		ID:        fmt.Sprintf("m-%d", s.nextMission),
		Kind:      kind,
		Location:  loc,
		Status:    MissionActive,
		Reward:    reward,
		Penalty:   penalty,
		Urgency:   urgency,
		CreatedAt: createdAt,
		Deadline:  deadline,
	}
	s.nextMission++
	s.Missions[m.ID] = m
	return m
}

// Building looks up a building by id.
func (s *Store) Building(id string) (*Building, bool) {
	b, ok := s.Buildings[id]
	return b, ok
}

// Vehicle looks up a vehicle by id.
func (s *Store) Vehicle(id string) (*Vehicle, bool) {
	v, ok := s.Vehicles[id]
	return v, ok
}

// Mission looks up a mission by id.
func (s *Store) Mission(id string) (*Mission, bool) {
	m, ok := s.Missions[id]
	return m, ok
}

// RemoveVehicle drops a vehicle and detaches it from its home building.
func (s *Store) RemoveVehicle(id string) {
	v, ok := s.Vehicles[id]
	if !ok {
		return
	}
	if b, ok := s.Buildings[v.Home]; ok {
		b.VehicleIDs = remove(b.VehicleIDs, id)
	}
	delete(s.Vehicles, id)
}

// RemoveBuilding drops a building. Homed vehicles are not touched; the
// engine cascades or rejects before calling this.
func (s *Store) RemoveBuilding(id string) {
	delete(s.Buildings, id)
}

// RemoveMission drops a mission from the live set.
func (s *Store) RemoveMission(id string) {
	delete(s.Missions, id)
}

// InsertBuilding registers a restored building verbatim, rejecting duplicates.
func (s *Store) InsertBuilding(b *Building) error {
	if b.ID == "" {
		return fmt.Errorf("building without id")
	}
	if _, dup := s.Buildings[b.ID]; dup {
		return fmt.Errorf("duplicate building %s", b.ID)
	}
	s.Buildings[b.ID] = b
	return nil
}

// InsertVehicle registers a restored vehicle. The home building must already
// be present; membership in the building's vehicle set is rebuilt here.
func (s *Store) InsertVehicle(v *Vehicle) error {
	if v.ID == "" {
		return fmt.Errorf("vehicle without id")
	}
	if _, dup := s.Vehicles[v.ID]; dup {
		return fmt.Errorf("duplicate vehicle %s", v.ID)
	}
	b, ok := s.Buildings[v.Home]
	if !ok {
		return fmt.Errorf("vehicle %s: %w: home building %s", v.ID, ErrUnknownEntity, v.Home)
	}
	s.Vehicles[v.ID] = v
	if !contains(b.VehicleIDs, v.ID) {
		b.VehicleIDs = append(b.VehicleIDs, v.ID)
	}
	return nil
}

// InsertMission registers a restored mission verbatim, rejecting duplicates.
func (s *Store) InsertMission(m *Mission) error {
	if m.ID == "" {
		return fmt.Errorf("mission without id")
	}
	if _, dup := s.Missions[m.ID]; dup {
		return fmt.Errorf("duplicate mission %s", m.ID)
	}
	s.Missions[m.ID] = m
	return nil
}

// NextIDs returns the id counters for persistence.
func (s *Store) NextIDs() (building, vehicle, mission int) {
	return s.nextBuilding, s.nextVehicle, s.nextMission
}

// SetNextIDs restores the id counters, clamping to at least 1.
func (s *Store) SetNextIDs(building, vehicle, mission int) {
	s.nextBuilding = max(building, 1)
	s.nextVehicle = max(vehicle, 1)
	s.nextMission = max(mission, 1)
}

// IDOrdinal extracts the numeric suffix of an entity id for deterministic
// ordering. Unparseable ids sort last.
func IDOrdinal(id string) int {
	if i := strings.LastIndexByte(id, '-'); i >= 0 {
		if n, err := strconv.Atoi(id[i+1:]); err == nil {
			return n
		}
	}
	return int(^uint(0) >> 1)
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
