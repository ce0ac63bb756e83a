package dronestatus

import (
	"sort"
	"sync"
)

// Assignment links a drone to the EV it currently serves.
type Assignment struct {
	EVID       string  `json:"ev_id"`
	RequestWh  float64 `json:"requested_wh"`
	AssignedAt int     `json:"assigned_at"`
}

// Status captures the latest known state of a drone.
type Status struct {
	DroneID    string      `json:"drone_id"`
	State      string      `json:"state"`
	X          float64     `json:"x"`
	Y          float64     `json:"y"`
	ChargeWh   float64     `json:"charge_wh"`
	FlyingWh   float64     `json:"flying_wh"`
	Viable     bool        `json:"viable"`
	Step       int         `json:"time_step"`
	Assignment *Assignment `json:"assignment,omitempty"`
}

type Filter struct {
	State  string
	EVID   string
	Viable *bool
}

type Store interface {
	Set(Status)
	List(Filter) []Status
	RecordAssignment(id string, a Assignment)
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Status
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Status{}}
}

// Set replaces the drone snapshot. An assignment recorded earlier survives
// while the drone still serves the same EV.
func (s *MemoryStore) Set(st Status) {
	s.mu.Lock()
	if st.Assignment == nil {
		if prev, ok := s.data[st.DroneID]; ok && prev.Assignment != nil && isServing(st.State) {
			st.Assignment = prev.Assignment
		}
	}
	s.data[st.DroneID] = st
	s.mu.Unlock()
}

func (s *MemoryStore) RecordAssignment(id string, a Assignment) {
	s.mu.Lock()
	st := s.data[id]
	if st.DroneID == "" {
		st.DroneID = id
	}
	st.Assignment = &a
	s.data[id] = st
	s.mu.Unlock()
}

func (s *MemoryStore) List(f Filter) []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Status, 0, len(s.data))
	for _, st := range s.data {
		if f.State != "" && st.State != f.State {
			continue
		}
		if f.EVID != "" && (st.Assignment == nil || st.Assignment.EVID != f.EVID) {
			continue
		}
		if f.Viable != nil && st.Viable != *f.Viable {
			continue
		}
		res = append(res, st)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].DroneID < res[j].DroneID })
	return res
}

func isServing(state string) bool {
	switch state {
	case "flying_to_rendezvous", "flying_to_ev", "charging_ev":
		return true
	}
	return false
}
