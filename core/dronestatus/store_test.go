package dronestatus

import "testing"

func TestMemoryStore_FilterState(t *testing.T) {
	s := NewMemoryStore()
	s.Set(Status{DroneID: "d1", State: "parked"})
	s.Set(Status{DroneID: "d2", State: "charging_ev"})
	out := s.List(Filter{State: "parked"})
	if len(out) != 1 || out[0].DroneID != "d1" {
		t.Fatalf("filter failed: %#v", out)
	}
}

func TestMemoryStore_FilterViable(t *testing.T) {
	s := NewMemoryStore()
	s.Set(Status{DroneID: "d1", Viable: true})
	s.Set(Status{DroneID: "d2"})
	no := false
	out := s.List(Filter{Viable: &no})
	if len(out) != 1 || out[0].DroneID != "d2" {
		t.Fatalf("viable filter failed: %#v", out)
	}
}

func TestMemoryStore_AssignmentLifecycle(t *testing.T) {
	s := NewMemoryStore()
	s.RecordAssignment("d3", Assignment{EVID: "ev1", RequestWh: 5000, AssignedAt: 7})
	s.Set(Status{DroneID: "d3", State: "flying_to_ev"})
	out := s.List(Filter{EVID: "ev1"})
	if len(out) != 1 || out[0].Assignment.RequestWh != 5000 {
		t.Fatalf("assignment lost %#v", out)
	}
	s.Set(Status{DroneID: "d3", State: "flying_to_park"})
	if out := s.List(Filter{EVID: "ev1"}); len(out) != 0 {
		t.Fatalf("assignment should clear once the drone leaves the EV %#v", out)
	}
}

func TestMemoryStore_ListSorted(t *testing.T) {
	s := NewMemoryStore()
	for _, id := range []string{"d3", "d1", "d2"} {
		s.Set(Status{DroneID: id})
	}
	out := s.List(Filter{})
	if out[0].DroneID != "d1" || out[2].DroneID != "d3" {
		t.Fatalf("unsorted %#v", out)
	}
}
