package config

import (
	"os"
	"path/filepath"
	"testing"
)

const testSchema = `
initial_budget?:     int & >0
mission_interval_s?: int & >0
speed_multiplier?:   number & >0
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "sim.yaml", "name: test-sim\ninitial_budget: 500000\n")
	cuePath := writeFile(t, dir, "sim.cue", testSchema)

	cfg, err := Load(cfgPath, cuePath)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Name != "test-sim" {
		t.Errorf("name not read: %s", cfg.Name)
	}
	if cfg.InitialBudget != 500000 {
		t.Errorf("initial budget not read: %d", cfg.InitialBudget)
	}
	if cfg.MissionIntervalS != 60 {
		t.Errorf("mission interval default missing: %d", cfg.MissionIntervalS)
	}
	if cfg.SpeedUrgentMPS != 25 || cfg.SpeedNormalMPS != 15 {
		t.Errorf("speed defaults missing: %+v", cfg)
	}
	if cfg.RefundRateBuilding != 0.7 || cfg.RefundRateVehicle != 0.5 {
		t.Errorf("refund defaults missing: %+v", cfg)
	}
	if len(cfg.Catalog.Missions) == 0 {
		t.Errorf("default catalog not applied")
	}
	if cfg.Region.RadiusKM <= 0 {
		t.Errorf("region default missing: %+v", cfg.Region)
	}
	if !cfg.Policies.AutoDispatchEnabled() || !cfg.Policies.RedirectReturning() || !cfg.Policies.CapacityEnforced() {
		t.Errorf("policy defaults missing: %+v", cfg.Policies)
	}
	if cfg.Policies.EligibleUnitRequired() {
		t.Errorf("require_eligible_unit should default off")
	}
}

func TestLoadKeepsExplicitPolicies(t *testing.T) {
	dir := t.TempDir()
	yaml := "policies:\n  auto_dispatch: false\n  allow_redirect_returning: false\n"
	cfgPath := writeFile(t, dir, "sim.yaml", yaml)
	cuePath := writeFile(t, dir, "sim.cue", testSchema)

	cfg, err := Load(cfgPath, cuePath)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Policies.AutoDispatchEnabled() {
		t.Errorf("explicit auto_dispatch=false overridden by defaults")
	}
	if cfg.Policies.RedirectReturning() {
		t.Errorf("explicit allow_redirect_returning=false overridden by defaults")
	}
	if !cfg.Policies.CapacityEnforced() {
		t.Errorf("enforce_capacity default missing")
	}
}

func TestLoadRejectsSchemaViolation(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "sim.yaml", "initial_budget: -5\n")
	cuePath := writeFile(t, dir, "sim.cue", testSchema)

	if _, err := Load(cfgPath, cuePath); err == nil {
		t.Fatalf("expected schema validation failure for negative budget")
	}
}

func TestLoadRejectsBrokenCatalog(t *testing.T) {
	dir := t.TempDir()
	yaml := `
catalog:
  buildings:
    - name: station
      cost: 1000
      capacity: 1
  vehicles:
    - name: truck
      cost: 100
      class: tanker
  missions:
    - name: fire
      units: {ghost_class: 1}
      reward: 10
`
	cfgPath := writeFile(t, dir, "sim.yaml", yaml)
	cuePath := writeFile(t, dir, "sim.cue", testSchema)

	if _, err := Load(cfgPath, cuePath); err == nil {
		t.Fatalf("expected catalog validation failure for unknown class")
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := &SimulationConfig{}
	cfg.ApplyDefaults()
	if cfg.MissionInterval().Seconds() != 60 {
		t.Errorf("mission interval: %v", cfg.MissionInterval())
	}
	if cfg.Dwell().Seconds() != 15 {
		t.Errorf("dwell: %v", cfg.Dwell())
	}
	if cfg.SaveInterval().Seconds() != 60 {
		t.Errorf("save interval: %v", cfg.SaveInterval())
	}
}
