// Package backendtest provides an in-memory backend double for unit tests.
package backendtest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kilianp07/dronecharge/core/backend"
	"github.com/kilianp07/dronecharge/core/model"
)

// Vehicle is the mutable state of a fake vehicle.
type Vehicle struct {
	Pos      model.Point
	Route    backend.RoutePosition
	Speed    float64
	Odometer float64
	Consumed float64
	Battery  float64
	Type     string
	Colour   model.Colour
	// Distances maps an edge to the driving distance reported for it.
	// Missing edges are unreachable.
	Distances map[string]float64
}

// Segment is a straight edge between two points.
type Segment struct {
	From, To model.Point
	// Length overrides the geometric length when positive.
	Length float64
}

func (s Segment) length() float64 {
	if s.Length > 0 {
		return s.Length
	}
	return model.Dist(s.From, s.To)
}

// DroneMark is the last annotation received for a drone.
type DroneMark struct {
	Pos    model.Point
	Colour model.Colour
	Status string
	Moves  int
}

// Load is a synthetic hub load.
type Load struct {
	Edge       string
	Offset     float64
	CapacityWh float64
	LevelWh    float64
}

// Fake implements backend.Vehicles, backend.Network, backend.Annotator and
// backend.HubLoads.
type Fake struct {
	mu       sync.Mutex
	Vehicles map[string]*Vehicle
	Edges    map[string]Segment
	Stations []backend.Station
	Routes   map[string][]string
	Drones   map[string]*DroneMark
	Loads    map[string]Load
	// Err is returned by every vehicle query when set.
	Err error
}

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		Vehicles: map[string]*Vehicle{},
		Edges:    map[string]Segment{},
		Routes:   map[string][]string{},
		Drones:   map[string]*DroneMark{},
		Loads:    map[string]Load{},
	}
}

// AddVehicle registers a vehicle and returns it for further tweaking.
func (f *Fake) AddVehicle(id string, v Vehicle) *Vehicle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v.Distances == nil {
		v.Distances = map[string]float64{}
	}
	f.Vehicles[id] = &v
	return &v
}

// V returns the vehicle or panics; tests only.
func (f *Fake) V(id string) *Vehicle {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.Vehicles[id]
	if !ok {
		panic("unknown vehicle " + id)
	}
	return v
}

func (f *Fake) get(id string) (*Vehicle, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	v, ok := f.Vehicles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrUnknownVehicle, id)
	}
	return v, nil
}

func (f *Fake) Position(id string) (model.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := f.get(id)
	if err != nil {
		return model.Point{}, err
	}
	return v.Pos, nil
}

func (f *Fake) Route(id string) (backend.RoutePosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := f.get(id)
	if err != nil {
		return backend.RoutePosition{}, err
	}
	return v.Route, nil
}

func (f *Fake) DrivingDistance(id, edge string, _ float64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := f.get(id)
	if err != nil {
		return 0, err
	}
	d, ok := v.Distances[edge]
	if !ok {
		return 0, backend.ErrUnreachable
	}
	return d, nil
}

func (f *Fake) AllowedSpeed(id string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := f.get(id)
	if err != nil {
		return 0, err
	}
	return v.Speed, nil
}

func (f *Fake) Odometer(id string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := f.get(id)
	if err != nil {
		return 0, err
	}
	return v.Odometer, nil
}

func (f *Fake) EnergyConsumed(id string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := f.get(id)
	if err != nil {
		return 0, err
	}
	return v.Consumed, nil
}

func (f *Fake) BatteryCapacity(id string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := f.get(id)
	if err != nil {
		return 0, err
	}
	return v.Battery, nil
}

func (f *Fake) SetBatteryCapacity(id string, wh float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := f.get(id)
	if err != nil {
		return err
	}
	v.Battery = wh
	return nil
}

func (f *Fake) TypeID(id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := f.get(id)
	if err != nil {
		return "", err
	}
	return v.Type, nil
}

func (f *Fake) Colour(id string) (model.Colour, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := f.get(id)
	if err != nil {
		return model.Colour{}, err
	}
	return v.Colour, nil
}

func (f *Fake) SetColour(id string, c model.Colour) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := f.get(id)
	if err != nil {
		return err
	}
	v.Colour = c
	return nil
}

func (f *Fake) LaneLength(lane string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	edge := lane
	if i := strings.LastIndex(lane, "_"); i > 0 {
		edge = lane[:i]
	}
	s, ok := f.Edges[edge]
	if !ok {
		return 0, fmt.Errorf("unknown lane %s", lane)
	}
	return s.length(), nil
}

func (f *Fake) Convert2D(edge string, offset float64) (model.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.Edges[edge]
	if !ok {
		return model.Point{}, fmt.Errorf("unknown edge %s", edge)
	}
	l := s.length()
	if l == 0 {
		return s.From, nil
	}
	frac := offset / l
	return model.Point{
		X: s.From.X + (s.To.X-s.From.X)*frac,
		Y: s.From.Y + (s.To.Y-s.From.Y)*frac,
	}, nil
}

func (f *Fake) ChargingStations() ([]backend.Station, error) {
	return f.Stations, nil
}

func (f *Fake) AddRoute(id string, edges []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Routes[id] = edges
	return nil
}

func (f *Fake) AddDrone(id string, pos model.Point, c model.Colour) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Drones[id] = &DroneMark{Pos: pos, Colour: c}
	return nil
}

func (f *Fake) MoveDrone(id string, pos model.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.Drones[id]; ok {
		m.Pos = pos
		m.Moves++
	}
	return nil
}

func (f *Fake) SetDroneStatus(id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.Drones[id]; ok {
		m.Status = status
	}
	return nil
}

func (f *Fake) SetDroneColour(id string, c model.Colour) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.Drones[id]; ok {
		m.Colour = c
	}
	return nil
}

func (f *Fake) InsertHubLoad(id, edge string, offset, capacityWh, levelWh float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Loads[id] = Load{Edge: edge, Offset: offset, CapacityWh: capacityWh, LevelWh: levelWh}
	return nil
}

func (f *Fake) RemoveHubLoad(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Loads, id)
	return nil
}
