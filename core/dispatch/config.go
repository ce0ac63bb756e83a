package dispatch

import (
	"fmt"

	"github.com/kilianp07/dronecharge/core/model"
	"github.com/kilianp07/dronecharge/core/rendezvous"
)

// Config defines the scheduler settings.
type Config struct {
	// WEnergy weights the proximity sub-score, WUrgency the range sub-score.
	WEnergy  float64 `json:"w_energy"`
	WUrgency float64 `json:"w_urgency"`
	// ProximityRadius bounds the neighbours considered by the proximity score, in metres.
	ProximityRadius float64 `json:"proximity_radius"`
	MaxDrones       int     `json:"max_drones"`
	// FullChargeTolerance in seconds enables the completion feasibility check when positive.
	FullChargeTolerance float64 `json:"full_charge_tolerance"`
	ModelRendezvous     bool    `json:"model_rendezvous"`
	OnlyChargeOnce      bool    `json:"only_charge_once"`
	ParkAtHome          bool    `json:"park_at_home"`
	JunctionPenaltyM    float64 `json:"junction_penalty_m"`
	// EVSpeedFactor scales the allowed speed into an expected cruising speed.
	EVSpeedFactor float64 `json:"ev_speed_factor"`
	// DroneLog writes one journal record per drone per tick.
	DroneLog bool `json:"drone_log"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		WEnergy:          1,
		ProximityRadius:  1000,
		MaxDrones:        6,
		ModelRendezvous:  true,
		OnlyChargeOnce:   true,
		JunctionPenaltyM: rendezvous.DefaultJunctionPenalty,
		EVSpeedFactor:    0.9,
	}
}

// SetDefaults fills zero values that have no meaning.
func (c *Config) SetDefaults() {
	if c.ProximityRadius == 0 {
		c.ProximityRadius = 1000
	}
	if c.JunctionPenaltyM == 0 {
		c.JunctionPenaltyM = rendezvous.DefaultJunctionPenalty
	}
	if c.EVSpeedFactor == 0 {
		c.EVSpeedFactor = 0.9
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.WEnergy < 0 || c.WUrgency < 0 {
		return fmt.Errorf("weights must not be negative")
	}
	if c.WEnergy == 0 && c.WUrgency == 0 {
		return fmt.Errorf("at least one of w_energy and w_urgency must be positive")
	}
	if c.MaxDrones < 0 {
		return fmt.Errorf("max_drones must not be negative")
	}
	if c.ProximityRadius < 0 || c.FullChargeTolerance < 0 || c.JunctionPenaltyM < 0 {
		return fmt.Errorf("radius, tolerance and junction penalty must not be negative")
	}
	if c.EVSpeedFactor <= 0 || c.EVSpeedFactor > 1 {
		return fmt.Errorf("ev_speed_factor must be in (0,1]")
	}
	return nil
}

// EVOverride replaces the charge settings of a vehicle type or a single vehicle.
type EVOverride struct {
	ChargeRequestWh          float64 `json:"charge_request_wh"`
	ChargeRequestThresholdWh float64 `json:"charge_request_threshold_wh"`
	KmPerWh                  float64 `json:"km_per_wh"`
}

// EVConfig holds the fleet wide EV defaults and overrides.
type EVConfig struct {
	ChargeNeededThresholdWh float64               `json:"charge_needed_threshold_wh"`
	ChargeRequestWh         float64               `json:"charge_request_wh"`
	RandomVariation         float64               `json:"random_variation"`
	KmPerWh                 float64               `json:"km_per_wh"`
	Types                   map[string]EVOverride `json:"types"`
	Vehicles                map[string]EVOverride `json:"vehicles"`
}

// DefaultEVConfig returns the stock EV settings.
func DefaultEVConfig() EVConfig {
	return EVConfig{
		ChargeNeededThresholdWh: 30000,
		ChargeRequestWh:         2000,
		RandomVariation:         0.30,
		KmPerWh:                 0.0065,
	}
}

// SetDefaults fills unset values with the stock settings.
func (c *EVConfig) SetDefaults() {
	d := DefaultEVConfig()
	if c.ChargeNeededThresholdWh == 0 {
		c.ChargeNeededThresholdWh = d.ChargeNeededThresholdWh
	}
	if c.ChargeRequestWh == 0 {
		c.ChargeRequestWh = d.ChargeRequestWh
	}
	if c.KmPerWh == 0 {
		c.KmPerWh = d.KmPerWh
	}
}

// Validate checks the configuration.
func (c EVConfig) Validate() error {
	if c.RandomVariation < 0 || c.RandomVariation >= 1 {
		return fmt.Errorf("random_variation must be in [0,1)")
	}
	return model.VehicleSettings{
		ThresholdWh: c.ChargeNeededThresholdWh,
		RequestWh:   c.ChargeRequestWh,
		KmPerWh:     c.KmPerWh,
	}.Validate()
}

// Random is the source of the per-vehicle variation. *rand.Rand satisfies it.
type Random interface {
	Float64() float64
}

// Resolve computes the settings of a vehicle. Vehicle overrides take
// precedence over type overrides; a request override is only honoured above
// 1 Wh and a threshold override above 5000 Wh. With a non nil rnd the request
// and threshold are perturbed by up to RandomVariation of the request.
func (c EVConfig) Resolve(vehicleID, typeID string, rnd Random) model.VehicleSettings {
	s := model.VehicleSettings{
		ThresholdWh: c.ChargeNeededThresholdWh,
		RequestWh:   c.ChargeRequestWh,
		KmPerWh:     c.KmPerWh,
	}
	var req, thr float64
	for _, o := range []EVOverride{c.Types[typeID], c.Vehicles[vehicleID]} {
		if o.ChargeRequestWh != 0 {
			req = o.ChargeRequestWh
		}
		if o.ChargeRequestThresholdWh != 0 {
			thr = o.ChargeRequestThresholdWh
		}
		if o.KmPerWh > 0 {
			s.KmPerWh = o.KmPerWh
		}
	}
	if req > 1 {
		s.RequestWh = req
	}
	if thr > 5000 {
		s.ThresholdWh = thr
	}
	if rnd != nil {
		variation := c.RandomVariation * s.RequestWh * (2*rnd.Float64() - 1)
		// The jittered threshold starts again from the fleet default.
		s.ThresholdWh = c.ChargeNeededThresholdWh + variation + 1000*rnd.Float64() - 500
		s.RequestWh += variation
	}
	return s
}
