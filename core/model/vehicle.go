package model

import "fmt"

// VehicleSettings is the immutable per-EV configuration resolved when the
// vehicle is first shadowed.
type VehicleSettings struct {
	// ThresholdWh triggers a charge request when the battery drops below it.
	ThresholdWh float64
	// RequestWh is the nominal size of each charge request.
	RequestWh float64
	// KmPerWh is the static efficiency used to estimate range.
	KmPerWh float64
}

// Validate checks that the settings are usable.
func (s VehicleSettings) Validate() error {
	if s.RequestWh <= 0 {
		return fmt.Errorf("request must be positive")
	}
	if s.KmPerWh <= 0 {
		return fmt.Errorf("km per Wh must be positive")
	}
	return nil
}

// ChargeDoneWh is the capacity the vehicle aims for after a full request.
func (s VehicleSettings) ChargeDoneWh() float64 {
	return s.ThresholdWh + s.RequestWh
}

// RangeKm estimates the distance, in kilometres, the vehicle can still drive on
// capacityWh using its static efficiency.
func (s VehicleSettings) RangeKm(capacityWh float64) float64 {
	return capacityWh * s.KmPerWh
}
