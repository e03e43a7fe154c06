// Static kind registry for buildings, vehicles, and missions.
package catalog

import (
	"fmt"
	"time"
)

// BuildingKind defines a purchasable station type.
type BuildingKind struct {
	Name     string   `yaml:"name"`
	Cost     int64    `yaml:"cost"`
	Capacity int      `yaml:"capacity"`
	Classes  []string `yaml:"classes"`
	// RewardBonus is added to the mission reward multiplier while a
	// building of this kind is owned (training grounds).
	RewardBonus float64 `yaml:"reward_bonus"`
}

// VehicleKind defines a purchasable unit type. Capabilities lists the
// mission kinds the unit can serve; Class groups units for multi-unit
// mission requirements.
type VehicleKind struct {
	Name         string   `yaml:"name"`
	Cost         int64    `yaml:"cost"`
	Class        string   `yaml:"class"`
	Capabilities []string `yaml:"capabilities"`
}

// CanServe reports whether the kind covers a mission kind.
func (k VehicleKind) CanServe(mission string) bool {
	for _, c := range k.Capabilities {
		if c == mission {
			return true
		}
	}
	return false
}

// MissionKind defines an incident type. Units maps vehicle class to the
// required on-scene count. DeadlineS of zero means the mission never
// expires. Urgency 1 is a lights-and-sirens response.
type MissionKind struct {
	Name      string         `yaml:"name"`
	Units     map[string]int `yaml:"units"`
	Reward    int64          `yaml:"reward"`
	Penalty   int64          `yaml:"penalty"`
	DeadlineS int            `yaml:"deadline_s"`
	Urgency   int            `yaml:"urgency"`
}

// Deadline returns the expiry window, or zero when the mission never expires.
func (k MissionKind) Deadline() time.Duration {
	return time.Duration(k.DeadlineS) * time.Second
}

// Catalog is the read-only registry consulted for costs, capacities,
// capabilities, and rewards. Lookups of unknown kinds panic: they indicate a
// bug in the caller, not a runtime condition.
type Catalog struct {
	Buildings []BuildingKind `yaml:"buildings"`
	Vehicles  []VehicleKind  `yaml:"vehicles"`
	Missions  []MissionKind  `yaml:"missions"`
}

// Building returns the named building kind.
func (c *Catalog) Building(name string) BuildingKind {
	for _, k := range c.Buildings {
		if k.Name == name {
			return k
		}
	}
	panic(fmt.Sprintf("catalog: unknown building kind %q", name))
}

// Vehicle returns the named vehicle kind.
func (c *Catalog) Vehicle(name string) VehicleKind {
	for _, k := range c.Vehicles {
		if k.Name == name {
			return k
		}
	}
	panic(fmt.Sprintf("catalog: unknown vehicle kind %q", name))
}

// Mission returns the named mission kind.
func (c *Catalog) Mission(name string) MissionKind {
	for _, k := range c.Missions {
		if k.Name == name {
			return k
		}
	}
	panic(fmt.Sprintf("catalog: unknown mission kind %q", name))
}

// HasBuilding reports whether the kind exists. Used when reconciling
// persisted state, where unknown kinds are data corruption, not bugs.
func (c *Catalog) HasBuilding(name string) bool {
	for _, k := range c.Buildings {
		if k.Name == name {
			return true
		}
	}
	return false
}

// HasVehicle reports whether the kind exists.
func (c *Catalog) HasVehicle(name string) bool {
	for _, k := range c.Vehicles {
		if k.Name == name {
			return true
		}
	}
	return false
}

// HasMission reports whether the kind exists.
func (c *Catalog) HasMission(name string) bool {
	for _, k := range c.Missions {
		if k.Name == name {
			return true
		}
	}
	return false
}

// Validate checks internal consistency: unique names, known classes, and
// capabilities referencing real mission kinds.
func (c *Catalog) Validate() error {
	if len(c.Buildings) == 0 || len(c.Vehicles) == 0 || len(c.Missions) == 0 {
		return fmt.Errorf("catalog: buildings, vehicles, and missions must all be non-empty")
	}
	classes := make(map[string]bool)
	seen := make(map[string]bool)
	for _, k := range c.Vehicles {
		if seen["v:"+k.Name] {
			return fmt.Errorf("catalog: duplicate vehicle kind %q", k.Name)
		}
		seen["v:"+k.Name] = true
		if k.Class == "" {
			return fmt.Errorf("catalog: vehicle kind %q has no class", k.Name)
		}
		classes[k.Class] = true
		for _, cap := range k.Capabilities {
			if !c.HasMission(cap) {
				return fmt.Errorf("catalog: vehicle kind %q capability %q is not a mission kind", k.Name, cap)
			}
		}
	}
	for _, k := range c.Buildings {
		if seen["b:"+k.Name] {
			return fmt.Errorf("catalog: duplicate building kind %q", k.Name)
		}
		seen["b:"+k.Name] = true
		if k.Capacity < 0 {
			return fmt.Errorf("catalog: building kind %q has negative capacity", k.Name)
		}
		for _, cl := range k.Classes {
			if !classes[cl] {
				return fmt.Errorf("catalog: building kind %q allows unknown class %q", k.Name, cl)
			}
		}
	}
	for _, k := range c.Missions {
		if seen["m:"+k.Name] {
			return fmt.Errorf("catalog: duplicate mission kind %q", k.Name)
		}
		seen["m:"+k.Name] = true
		if len(k.Units) == 0 {
			return fmt.Errorf("catalog: mission kind %q requires no units", k.Name)
		}
		for cl, n := range k.Units {
			if !classes[cl] {
				return fmt.Errorf("catalog: mission kind %q requires unknown class %q", k.Name, cl)
			}
			if n <= 0 {
				return fmt.Errorf("catalog: mission kind %q requires %d units of class %q", k.Name, n, cl)
			}
		}
	}
	return nil
}

// Default returns the built-in registry used when the config omits a catalog
// section.
func Default() *Catalog {
	return &Catalog{
		Buildings: []BuildingKind{
			{Name: "fire_station", Cost: 200_000, Capacity: 4, Classes: []string{"tanker", "pumper"}},
			{Name: "hospital", Cost: 500_000, Capacity: 6, Classes: []string{"ambulance"}},
			{Name: "hazmat_unit", Cost: 300_000, Capacity: 2, Classes: []string{"pumper"}},
			{Name: "training_ground", Cost: 150_000, Capacity: 0, RewardBonus: 0.1},
		},
		Vehicles: []VehicleKind{
			{Name: "fire_truck", Cost: 100_000, Class: "tanker", Capabilities: []string{"bush_fire", "structure_fire"}},
			{Name: "heavy_pumper", Cost: 150_000, Class: "pumper", Capabilities: []string{"bush_fire", "structure_fire", "hazmat"}},
			{Name: "ambulance", Cost: 80_000, Class: "ambulance", Capabilities: []string{"medical"}},
		},
		Missions: []MissionKind{
			{Name: "bush_fire", Units: map[string]int{"tanker": 1}, Reward: 75_000, Penalty: 20_000, DeadlineS: 600, Urgency: 1},
			{Name: "structure_fire", Units: map[string]int{"tanker": 1, "pumper": 1}, Reward: 120_000, Penalty: 40_000, DeadlineS: 600, Urgency: 1},
			{Name: "medical", Units: map[string]int{"ambulance": 1}, Reward: 50_000, Penalty: 15_000, DeadlineS: 300, Urgency: 1},
			{Name: "hazmat", Units: map[string]int{"pumper": 1}, Reward: 90_000, Penalty: 30_000, Urgency: 3},
		},
	}
}
