package scenario

// BuiltIn returns the predefined weather arcs selectable by name from the
// simulation config.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		"calm": {
			Name:        "Calm",
			Description: "A quiet stretch with an even spread of incidents.",
			Phases: []Phase{
				{Name: "steady", Weather: "clear"},
			},
		},
		"fire-season": {
			Name:        "Fire Season",
			Description: "A summer heatwave builds toward catastrophic fire danger before a cool change.",
			Phases: []Phase{
				{
					Name:     "buildup",
					Weather:  "hot",
					Weights:  map[string]float64{"bush_fire": 2},
					Triggers: []Trigger{{Event: EventMissionsCompleted, Value: 3, Next: "peak"}},
				},
				{
					Name:     "peak",
					Weather:  "catastrophic",
					Weights:  map[string]float64{"bush_fire": 4, "structure_fire": 2, "medical": 0.5},
					Triggers: []Trigger{{Event: EventTimeElapsed, Value: 1800, Next: "cool-change"}},
				},
				{
					Name:    "cool-change",
					Weather: "storm",
					Weights: map[string]float64{"bush_fire": 0.5, "medical": 2},
				},
			},
		},
	}
}
