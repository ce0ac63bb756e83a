package config

import (
	"fmt"

	"github.com/kilianp07/dronecharge/core/model"
)

// DeclaredDrone is a drone created before the run starts.
type DeclaredDrone struct {
	ID        string                   `json:"id"`
	X         float64                  `json:"x"`
	Y         float64                  `json:"y"`
	Overrides model.DroneTypeOverrides `json:"overrides"`
}

// DroneConfig selects the drone model.
type DroneConfig struct {
	// Type is a preset name: ehang184 or ehang184x.
	Type      string                   `json:"type"`
	SpeedKmh  float64                  `json:"speed_kmh"`
	Overrides model.DroneTypeOverrides `json:"overrides"`
	// Declared drones cap the fleet to their count.
	Declared []DeclaredDrone `json:"declared"`
}

func (c *DroneConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "ehang184"
	}
}

func (c DroneConfig) Validate() error {
	t, err := c.DroneType()
	if err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Declared))
	for _, d := range c.Declared {
		if d.ID == "" {
			return fmt.Errorf("declared drone without id")
		}
		if seen[d.ID] {
			return fmt.Errorf("declared drone %s listed twice", d.ID)
		}
		seen[d.ID] = true
		if err := d.Overrides.Apply(t).Validate(); err != nil {
			return fmt.Errorf("declared drone %s: %w", d.ID, err)
		}
	}
	return nil
}

// DroneType resolves the preset and applies the fleet wide overrides.
func (c DroneConfig) DroneType() (model.DroneType, error) {
	t, err := model.Preset(c.Type)
	if err != nil {
		return t, err
	}
	o := c.Overrides
	if c.SpeedKmh > 0 {
		o.SpeedKmh = c.SpeedKmh
	}
	return o.Apply(t), nil
}
