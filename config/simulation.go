package config

import (
	"fmt"

	"github.com/kilianp07/dronecharge/core/simulation"
)

// SimulationConfig selects the scenario and bounds the run.
type SimulationConfig struct {
	// Scenario is the path of the memsim YAML scenario.
	Scenario string `json:"scenario"`
	// StepSeconds overrides the backend tick duration when positive.
	StepSeconds float64 `json:"step_seconds"`
	MaxEVs      int     `json:"max_evs"`
	MaxSteps    int     `json:"max_steps"`
	// Seed enables the per EV variation of request and threshold when non zero.
	Seed int64 `json:"seed"`
}

func (c *SimulationConfig) SetDefaults() {}

// Validate checks the numeric bounds. The scenario path is checked when the
// run starts so that sub commands not needing it still work.
func (c SimulationConfig) Validate() error {
	if c.StepSeconds < 0 {
		return fmt.Errorf("step_seconds must not be negative")
	}
	return c.Engine().Validate()
}

// Engine returns the engine bounds.
func (c SimulationConfig) Engine() simulation.Config {
	return simulation.Config{MaxEVs: c.MaxEVs, MaxSteps: c.MaxSteps}
}
