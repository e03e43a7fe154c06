// YAML config loader with CUE validation integration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"dispatchops-sim/internal/catalog"
)

// Region defines the operational area missions and stations live in.
type Region struct {
	Name      string  `yaml:"name"`
	CenterLat float64 `yaml:"center_lat"`
	CenterLon float64 `yaml:"center_lon"`
	RadiusKM  float64 `yaml:"radius_km"`
}

// Policies collects the behaviors the source variants disagree on. Fields
// are pointers so an omitted flag is distinguishable from an explicit false
// and can take its documented default.
type Policies struct {
	// AllowRedirectReturning lets a returning vehicle be redirected to a
	// new mission, cancelling its return leg. Default true.
	AllowRedirectReturning *bool `yaml:"allow_redirect_returning"`
	// EnforceCapacity rejects vehicle purchases at a full building.
	// Default true.
	EnforceCapacity *bool `yaml:"enforce_capacity"`
	// RequireEligibleUnit gates mission generation on at least one
	// capable vehicle existing. Default false.
	RequireEligibleUnit *bool `yaml:"require_eligible_unit"`
	// AutoDispatch assigns the nearest eligible units when a mission
	// spawns; otherwise missions wait for manual dispatch. Default true.
	AutoDispatch *bool `yaml:"auto_dispatch"`
}

// Bool is a convenience for building Policies literals.
func Bool(v bool) *bool { return &v }

// RedirectReturning reports whether returning vehicles accept new missions.
func (p Policies) RedirectReturning() bool { return boolOr(p.AllowRedirectReturning, true) }

// CapacityEnforced reports whether building capacity limits purchases.
func (p Policies) CapacityEnforced() bool { return boolOr(p.EnforceCapacity, true) }

// EligibleUnitRequired reports whether generation skips kinds no owned
// vehicle can serve.
func (p Policies) EligibleUnitRequired() bool { return boolOr(p.RequireEligibleUnit, false) }

// AutoDispatchEnabled reports whether spawned missions dispatch themselves.
func (p Policies) AutoDispatchEnabled() bool { return boolOr(p.AutoDispatch, true) }

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// SimulationConfig is the root configuration for the dispatch simulation.
type SimulationConfig struct {
	Name   string `yaml:"name"`
	Region Region `yaml:"region"`

	InitialBudget   int64 `yaml:"initial_budget"`
	LedgerRetention int   `yaml:"ledger_retention"`

	MissionIntervalS int `yaml:"mission_interval_s"`
	SaveIntervalS    int `yaml:"save_interval_s"`
	DwellS           int `yaml:"dwell_s"`

	SpawnRadiusKM  float64 `yaml:"spawn_radius_km"`
	SpeedUrgentMPS float64 `yaml:"speed_urgent_mps"`
	SpeedNormalMPS float64 `yaml:"speed_normal_mps"`

	SpeedMultiplier float64 `yaml:"speed_multiplier"`
	RewardJitter    float64 `yaml:"reward_jitter"`

	RefundRateBuilding float64 `yaml:"refund_rate_building"`
	RefundRateVehicle  float64 `yaml:"refund_rate_vehicle"`

	Policies Policies `yaml:"policies"`
	Scenario string   `yaml:"scenario"`

	Catalog catalog.Catalog `yaml:"catalog"`
}

// Load loads YAML config, validates it against a CUE schema, applies
// defaults, and checks catalog consistency.
func Load(configPath, cueSchemaPath string) (*SimulationConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg SimulationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Catalog.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", configPath, err)
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields with the values the source variants used.
func (c *SimulationConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "dispatch-01"
	}
	if c.Region.RadiusKM <= 0 {
		c.Region = Region{Name: "melbourne", CenterLat: -37.8136, CenterLon: 144.9631, RadiusKM: 50}
	}
	if c.InitialBudget <= 0 {
		c.InitialBudget = 1_000_000
	}
	if c.LedgerRetention <= 0 {
		c.LedgerRetention = 100
	}
	if c.MissionIntervalS <= 0 {
		c.MissionIntervalS = 60
	}
	if c.SaveIntervalS <= 0 {
		c.SaveIntervalS = 60
	}
	if c.DwellS <= 0 {
		c.DwellS = 15
	}
	if c.SpawnRadiusKM <= 0 {
		c.SpawnRadiusKM = 5
	}
	if c.SpeedUrgentMPS <= 0 {
		c.SpeedUrgentMPS = 25
	}
	if c.SpeedNormalMPS <= 0 {
		c.SpeedNormalMPS = 15
	}
	if c.SpeedMultiplier <= 0 {
		c.SpeedMultiplier = 1
	}
	if c.RewardJitter < 0 {
		c.RewardJitter = 0
	}
	if c.RefundRateBuilding <= 0 {
		c.RefundRateBuilding = 0.7
	}
	if c.RefundRateVehicle <= 0 {
		c.RefundRateVehicle = 0.5
	}
	if c.Policies.AllowRedirectReturning == nil {
		c.Policies.AllowRedirectReturning = Bool(true)
	}
	if c.Policies.EnforceCapacity == nil {
		c.Policies.EnforceCapacity = Bool(true)
	}
	if c.Policies.RequireEligibleUnit == nil {
		c.Policies.RequireEligibleUnit = Bool(false)
	}
	if c.Policies.AutoDispatch == nil {
		c.Policies.AutoDispatch = Bool(true)
	}
	if len(c.Catalog.Buildings) == 0 && len(c.Catalog.Vehicles) == 0 && len(c.Catalog.Missions) == 0 {
		c.Catalog = *catalog.Default()
	}
}

// MissionInterval is the pause between generated missions.
func (c *SimulationConfig) MissionInterval() time.Duration {
	return time.Duration(c.MissionIntervalS) * time.Second
}

// SaveInterval is the autosave period.
func (c *SimulationConfig) SaveInterval() time.Duration {
	return time.Duration(c.SaveIntervalS) * time.Second
}

// Dwell is the fixed on-scene duration before a mission completes.
func (c *SimulationConfig) Dwell() time.Duration {
	return time.Duration(c.DwellS) * time.Second
}
