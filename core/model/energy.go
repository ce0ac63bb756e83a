package model

import (
	"errors"
	"fmt"
)

// ErrUnknownDroneType is returned when no preset matches a drone type name.
var ErrUnknownDroneType = errors.New("unknown drone type")

// DroneType holds the per-second base constants of a drone model.
type DroneType struct {
	Name             string  `json:"name"`
	SpeedKmh         float64 `json:"speed_kmh"`
	ChargeWh         float64 `json:"charge_wh"`
	FlyingWh         float64 `json:"flying_wh"`
	FlyingWhPerSec   float64 `json:"flying_wh_per_sec"`
	Contingency      float64 `json:"contingency"`
	Viable           float64 `json:"viable"`
	EVChargeWhPerSec float64 `json:"ev_charge_wh_per_sec"`
	RechargeWhPerSec float64 `json:"recharge_wh_per_sec"`
}

// Ehang184 models a 60 km/h drone with a 14.4 kWh flight battery good for
// 23 minutes and a 30 kWh battery for charging vehicles.
func Ehang184() DroneType {
	return DroneType{
		Name:             "ehang184",
		SpeedKmh:         60,
		ChargeWh:         30000,
		FlyingWh:         14400,
		FlyingWhPerSec:   14400 / (23 * 60.),
		Contingency:      0.05,
		Viable:           0.3,
		EVChargeWhPerSec: 25000 / 3600.,
		RechargeWhPerSec: 75000 / 3600.,
	}
}

// Ehang184x is Ehang184 with oversized batteries (charge x100, flight x1000)
// so that drones practically never need recharging. The drain rate is not
// rescaled.
func Ehang184x() DroneType {
	t := Ehang184()
	t.Name = "ehang184x"
	t.ChargeWh *= 100
	t.FlyingWh *= 1000
	return t
}

// Preset returns the drone type registered under name. An empty name selects
// ehang184.
func Preset(name string) (DroneType, error) {
	switch name {
	case "", "ehang184":
		return Ehang184(), nil
	case "ehang184x":
		return Ehang184x(), nil
	default:
		return DroneType{}, fmt.Errorf("%w: %s", ErrUnknownDroneType, name)
	}
}

// DroneTypeOverrides replaces individual base constants. Zero values keep
// the base value.
type DroneTypeOverrides struct {
	SpeedKmh      float64 `json:"speed_kmh"`
	ChargeWh      float64 `json:"charge_wh"`
	FlyingWh      float64 `json:"flying_wh"`
	FlyingMinutes float64 `json:"flying_minutes"`
	Contingency   float64 `json:"contingency"`
	Viable        float64 `json:"viable"`
	EVChargeRateW float64 `json:"ev_charge_rate_w"`
	RechargeRateW float64 `json:"recharge_rate_w"`
}

// Apply returns a copy of t with the non-zero overrides applied. A flight
// time override is converted into a drain rate using the resulting flight
// battery size.
func (o DroneTypeOverrides) Apply(t DroneType) DroneType {
	if o.SpeedKmh > 0 {
		t.SpeedKmh = o.SpeedKmh
	}
	if o.ChargeWh > 0 {
		t.ChargeWh = o.ChargeWh
	}
	if o.FlyingWh > 0 {
		t.FlyingWh = o.FlyingWh
	}
	if o.FlyingMinutes > 0 {
		t.FlyingWhPerSec = t.FlyingWh / (60 * o.FlyingMinutes)
	}
	if o.Contingency > 0 {
		t.Contingency = o.Contingency
	}
	if o.Viable > 0 {
		t.Viable = o.Viable
	}
	if o.EVChargeRateW > 0 {
		t.EVChargeWhPerSec = o.EVChargeRateW / 3600
	}
	if o.RechargeRateW > 0 {
		t.RechargeWhPerSec = o.RechargeRateW / 3600
	}
	return t
}

// Validate checks the base constants.
func (t DroneType) Validate() error {
	switch {
	case t.SpeedKmh <= 0:
		return fmt.Errorf("drone type %s: speed must be positive", t.Name)
	case t.ChargeWh <= 0 || t.FlyingWh <= 0:
		return fmt.Errorf("drone type %s: battery capacities must be positive", t.Name)
	case t.Contingency < 0 || t.Contingency >= 1:
		return fmt.Errorf("drone type %s: contingency must be in [0,1)", t.Name)
	case t.Viable < t.Contingency || t.Viable > 1:
		return fmt.Errorf("drone type %s: viable must be in [contingency,1]", t.Name)
	case t.FlyingWhPerSec <= 0 || t.EVChargeWhPerSec <= 0 || t.RechargeWhPerSec <= 0:
		return fmt.Errorf("drone type %s: rates must be positive", t.Name)
	}
	return nil
}

// EnergyProfile holds the per-tick constants of a drone type. It is derived
// once before the run and never mutated.
type EnergyProfile struct {
	Type     string
	StepSecs float64

	SpeedMps float64
	StepM    float64
	StepM2   float64

	ChargeWh float64
	FlyingWh float64

	FlyDrainPerTick float64
	EVChargePerTick float64
	RechargePerTick float64

	Contingency float64
	Viable      float64

	MinChargeWh    float64
	MinFlyingWh    float64
	ViableChargeWh float64
	ViableFlyingWh float64
}

// Derive scales the per-second constants of t by the tick duration.
func (t DroneType) Derive(stepSecs float64) EnergyProfile {
	if stepSecs <= 0 {
		stepSecs = 1
	}
	mps := t.SpeedKmh / 3.6
	step := mps * stepSecs
	return EnergyProfile{
		Type:            t.Name,
		StepSecs:        stepSecs,
		SpeedMps:        mps,
		StepM:           step,
		StepM2:          step * step,
		ChargeWh:        t.ChargeWh,
		FlyingWh:        t.FlyingWh,
		FlyDrainPerTick: t.FlyingWhPerSec * stepSecs,
		EVChargePerTick: t.EVChargeWhPerSec * stepSecs,
		RechargePerTick: t.RechargeWhPerSec * stepSecs,
		Contingency:     t.Contingency,
		Viable:          t.Viable,
		MinChargeWh:     t.Contingency * t.ChargeWh,
		MinFlyingWh:     t.Contingency * t.FlyingWh,
		ViableChargeWh:  t.Viable * t.ChargeWh,
		ViableFlyingWh:  t.Viable * t.FlyingWh,
	}
}
