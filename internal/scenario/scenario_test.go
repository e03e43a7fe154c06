package scenario

import (
	"os"
	"path/filepath"
	"testing"
)

func testScenario() *Scenario {
	return &Scenario{
		Name: "test",
		Phases: []Phase{
			{
				Name:     "buildup",
				Weather:  "hot",
				Weights:  map[string]float64{"bush_fire": 2, "medical": 0},
				Triggers: []Trigger{{Event: EventMissionsCompleted, Value: 3, Next: "peak"}},
			},
			{
				Name:     "peak",
				Weather:  "extreme",
				Triggers: []Trigger{{Event: EventTimeElapsed, Value: 600, Next: "buildup"}},
			},
		},
	}
}

func TestFirstPhase(t *testing.T) {
	s := testScenario()
	if s.First() != "buildup" {
		t.Errorf("expected buildup, got %s", s.First())
	}
	empty := &Scenario{}
	if empty.First() != "" {
		t.Errorf("empty scenario should have no first phase")
	}
}

func TestNextPhaseTriggersAtThreshold(t *testing.T) {
	s := testScenario()
	if _, ok := s.NextPhase("buildup", Event{Type: EventMissionsCompleted, Value: 2}); ok {
		t.Errorf("trigger fired below threshold")
	}
	next, ok := s.NextPhase("buildup", Event{Type: EventMissionsCompleted, Value: 3})
	if !ok || next != "peak" {
		t.Errorf("expected peak, got %q ok=%t", next, ok)
	}
	// Event types that no trigger listens for never advance the phase.
	if _, ok := s.NextPhase("buildup", Event{Type: EventMissionsFailed, Value: 99}); ok {
		t.Errorf("unexpected transition on unrelated event")
	}
	if _, ok := s.NextPhase("unknown", Event{Type: EventMissionsCompleted, Value: 10}); ok {
		t.Errorf("unknown phase should not transition")
	}
}

func TestWeightDefaultsAndSuppression(t *testing.T) {
	s := testScenario()
	if w := s.Weight("buildup", "bush_fire"); w != 2 {
		t.Errorf("expected weight 2, got %v", w)
	}
	if w := s.Weight("buildup", "medical"); w != 0 {
		t.Errorf("expected weight 0 to suppress, got %v", w)
	}
	if w := s.Weight("buildup", "hazmat"); w != 1 {
		t.Errorf("unlisted kind should weigh 1, got %v", w)
	}
	if w := s.Weight("peak", "bush_fire"); w != 1 {
		t.Errorf("phase without weights should weigh 1, got %v", w)
	}
	if w := s.Weight("nope", "bush_fire"); w != 1 {
		t.Errorf("unknown phase should weigh 1, got %v", w)
	}
}

func TestLoadScenarioFile(t *testing.T) {
	yaml := `
name: drill
phases:
  - name: only
    weather: mild
    weights:
      medical: 3
`
	path := filepath.Join(t.TempDir(), "drill.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Name != "drill" || s.First() != "only" {
		t.Errorf("unexpected scenario %+v", s)
	}
	if w := s.Weight("only", "medical"); w != 3 {
		t.Errorf("expected weight 3, got %v", w)
	}
}

func TestBuiltInArcsAreWellFormed(t *testing.T) {
	arcs := BuiltIn()
	for _, name := range []string{"calm", "fire-season"} {
		s, ok := arcs[name]
		if !ok {
			t.Fatalf("missing built-in arc %s", name)
		}
		if len(s.Phases) == 0 {
			t.Errorf("arc %s has no phases", name)
		}
		for _, p := range s.Phases {
			for _, tr := range p.Triggers {
				if _, ok := s.Phase(tr.Next); !ok {
					t.Errorf("arc %s: trigger targets unknown phase %s", name, tr.Next)
				}
			}
		}
	}
}
