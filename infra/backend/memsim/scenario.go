package memsim

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario describes a road network and the vehicles driving on it.
type Scenario struct {
	StepSeconds float64       `yaml:"step_seconds"`
	Edges       []EdgeSpec    `yaml:"edges"`
	Stations    []StationSpec `yaml:"stations"`
	Types       []TypeSpec    `yaml:"vehicle_types"`
	Vehicles    []VehicleSpec `yaml:"vehicles"`
}

// EdgeSpec is a straight one-lane road between two points.
type EdgeSpec struct {
	ID   string     `yaml:"id"`
	From [2]float64 `yaml:"from"`
	To   [2]float64 `yaml:"to"`
	// Speed is the speed limit in m/s.
	Speed float64 `yaml:"speed"`
}

// StationSpec is a charging station on a lane.
type StationSpec struct {
	ID       string  `yaml:"id"`
	Lane     string  `yaml:"lane"`
	StartPos float64 `yaml:"start_pos"`
}

// TypeSpec groups the defaults of a vehicle type.
type TypeSpec struct {
	ID         string  `yaml:"id"`
	HasBattery bool    `yaml:"has_battery"`
	BatteryWh  float64 `yaml:"battery_wh"`
	WhPerM     float64 `yaml:"wh_per_m"`
	MaxSpeed   float64 `yaml:"max_speed"`
	Colour     []uint8 `yaml:"colour"`
}

// VehicleSpec is one vehicle of the scenario.
type VehicleSpec struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
	// Depart is the tick at which the vehicle is inserted.
	Depart int      `yaml:"depart"`
	Route  []string `yaml:"route"`
	// BatteryWh overrides the initial battery level of the type.
	BatteryWh float64 `yaml:"battery_wh"`
}

// LoadScenario reads a YAML scenario file.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(data []byte) (Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario: %w", err)
	}
	if s.StepSeconds == 0 {
		s.StepSeconds = 1
	}
	return s, s.Validate()
}

// Validate checks that every reference resolves.
func (s Scenario) Validate() error {
	if s.StepSeconds < 0 {
		return errors.New("step_seconds must be positive")
	}
	edges := make(map[string]bool, len(s.Edges))
	for _, e := range s.Edges {
		if e.ID == "" {
			return errors.New("edge without id")
		}
		if e.Speed <= 0 {
			return fmt.Errorf("edge %s: speed must be positive", e.ID)
		}
		edges[e.ID] = true
	}
	for _, st := range s.Stations {
		if !edges[laneEdge(st.Lane)] {
			return fmt.Errorf("station %s: unknown lane %s", st.ID, st.Lane)
		}
	}
	types := make(map[string]bool, len(s.Types))
	for _, t := range s.Types {
		types[t.ID] = true
	}
	for _, v := range s.Vehicles {
		if !types[v.Type] {
			return fmt.Errorf("vehicle %s: unknown type %s", v.ID, v.Type)
		}
		if len(v.Route) == 0 {
			return fmt.Errorf("vehicle %s: empty route", v.ID)
		}
		for _, e := range v.Route {
			if !edges[e] {
				return fmt.Errorf("vehicle %s: unknown edge %s", v.ID, e)
			}
		}
	}
	return nil
}
