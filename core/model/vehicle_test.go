package model

import "testing"

func TestVehicleSettingsValidate(t *testing.T) {
	s := VehicleSettings{ThresholdWh: 30000, RequestWh: 2000, KmPerWh: 0.0065}
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ChargeDoneWh() != 32000 {
		t.Fatalf("expected 32000 got %v", s.ChargeDoneWh())
	}
	s.RequestWh = 0
	if err := s.Validate(); err == nil {
		t.Fatalf("expected error for zero request")
	}
}

func TestVehicleSettingsRange(t *testing.T) {
	s := VehicleSettings{RequestWh: 1, KmPerWh: 0.0065}
	if got := s.RangeKm(10000); got != 65 {
		t.Fatalf("expected 65 got %v", got)
	}
}
