package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a sequence of weather/difficulty phases that shape
// mission generation.
type Scenario struct {
	Name        string  `yaml:"name,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Phases      []Phase `yaml:"phases"`
}

// Phase weights mission kinds while it is active and declares the triggers
// that advance to the next phase. A kind missing from Weights keeps weight 1;
// weight 0 suppresses the kind entirely.
type Phase struct {
	Name     string             `yaml:"name"`
	Weather  string             `yaml:"weather,omitempty"`
	Weights  map[string]float64 `yaml:"weights,omitempty"`
	Triggers []Trigger          `yaml:"triggers,omitempty"`
}

// Trigger moves the scenario to another phase based on an event.
type Trigger struct {
	Event string `yaml:"event"`
	Value int    `yaml:"value"`
	Next  string `yaml:"next"`
}

// Event represents a runtime occurrence that may advance the scenario.
type Event struct {
	Type  string
	Value int
}

// Trigger event types fed by the engine.
const (
	EventMissionsCompleted = "missions_completed"
	EventMissionsFailed    = "missions_failed"
	EventTimeElapsed       = "time_elapsed" // value in seconds
)

// Load reads a YAML scenario definition from disk.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &s, nil
}

// First returns the name of the opening phase, or "" for an empty scenario.
func (s *Scenario) First() string {
	if len(s.Phases) == 0 {
		return ""
	}
	return s.Phases[0].Name
}

// Phase returns the named phase.
func (s *Scenario) Phase(name string) (Phase, bool) {
	for _, p := range s.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return Phase{}, false
}

// NextPhase returns the name of the next phase given the current phase and
// event. If no trigger matches, ok will be false.
func (s *Scenario) NextPhase(current string, ev Event) (next string, ok bool) {
	for _, p := range s.Phases {
		if p.Name != current {
			continue
		}
		for _, tr := range p.Triggers {
			if tr.Event == ev.Type && ev.Value >= tr.Value {
				return tr.Next, true
			}
		}
	}
	return "", false
}

// Weight returns the generation weight for a mission kind in the named
// phase. Unknown phases and unlisted kinds weigh 1.
func (s *Scenario) Weight(phase, kind string) float64 {
	p, ok := s.Phase(phase)
	if !ok || p.Weights == nil {
		return 1
	}
	w, ok := p.Weights[kind]
	if !ok {
		return 1
	}
	return w
}
