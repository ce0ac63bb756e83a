// Package memsim is an in-process traffic backend. Vehicles drive their
// routes at the speed limit and drain their battery proportionally to the
// distance covered.
package memsim

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kilianp07/dronecharge/core/backend"
	"github.com/kilianp07/dronecharge/core/model"
)

type edge struct {
	id       string
	from, to model.Point
	length   float64
	speed    float64
}

func (e *edge) at(offset float64) model.Point {
	if e.length == 0 {
		return e.from
	}
	f := offset / e.length
	return model.Point{X: e.from.X + (e.to.X-e.from.X)*f, Y: e.from.Y + (e.to.Y-e.from.Y)*f}
}

type vehicle struct {
	id         string
	typeID     string
	depart     int
	route      []string
	idx        int
	lanePos    float64
	hasBattery bool
	battery    float64
	odometer   float64
	consumed   float64
	whPerM     float64
	maxSpeed   float64
	colour     model.Colour
}

type load struct {
	edge     string
	offset   float64
	capacity float64
	level    float64
}

// DroneMark is the last annotation received for a drone.
type DroneMark struct {
	Pos    model.Point
	Colour model.Colour
	Status string
}

// Sim implements backend.Backend and backend.HubLoads.
type Sim struct {
	mu       sync.Mutex
	stepSecs float64
	tick     int

	edges    map[string]*edge
	stations []backend.Station
	routes   map[string][]string

	pending []*vehicle
	running map[string]*vehicle
	loaded  []string
	arrived []string

	loads  map[string]*load
	drones map[string]*DroneMark
}

// New builds a backend from a validated scenario.
func New(s Scenario) (*Sim, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	sim := &Sim{
		stepSecs: s.StepSeconds,
		edges:    make(map[string]*edge, len(s.Edges)),
		routes:   make(map[string][]string),
		running:  make(map[string]*vehicle),
		loads:    make(map[string]*load),
		drones:   make(map[string]*DroneMark),
	}
	if sim.stepSecs <= 0 {
		sim.stepSecs = 1
	}
	for _, e := range s.Edges {
		from, to := model.Point{X: e.From[0], Y: e.From[1]}, model.Point{X: e.To[0], Y: e.To[1]}
		sim.edges[e.ID] = &edge{id: e.ID, from: from, to: to, length: model.Dist(from, to), speed: e.Speed}
	}
	for _, st := range s.Stations {
		sim.stations = append(sim.stations, backend.Station{ID: st.ID, Lane: st.Lane, StartPos: st.StartPos})
	}
	types := make(map[string]TypeSpec, len(s.Types))
	for _, t := range s.Types {
		types[t.ID] = t
	}
	for _, v := range s.Vehicles {
		t := types[v.Type]
		battery := t.BatteryWh
		if v.BatteryWh > 0 {
			battery = v.BatteryWh
		}
		sim.pending = append(sim.pending, &vehicle{
			id:         v.ID,
			typeID:     v.Type,
			depart:     v.Depart,
			route:      append([]string(nil), v.Route...),
			hasBattery: t.HasBattery,
			battery:    battery,
			whPerM:     t.WhPerM,
			maxSpeed:   t.MaxSpeed,
			colour:     colourOf(t.Colour),
		})
	}
	sort.SliceStable(sim.pending, func(i, j int) bool { return sim.pending[i].depart < sim.pending[j].depart })
	return sim, nil
}

func colourOf(c []uint8) model.Colour {
	if len(c) < 3 {
		return model.Colour{R: 255, G: 255, A: 255}
	}
	out := model.Colour{R: c[0], G: c[1], B: c[2], A: 255}
	if len(c) > 3 {
		out.A = c[3]
	}
	return out
}

func laneEdge(lane string) string {
	if i := strings.LastIndex(lane, "_"); i > 0 {
		return lane[:i]
	}
	return lane
}

// DeltaT returns the tick duration in seconds.
func (s *Sim) DeltaT() float64 { return s.stepSecs }

// Tick returns the number of completed simulation steps.
func (s *Sim) Tick() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// MinExpectedNumber counts running vehicles and vehicles yet to depart.
func (s *Sim) MinExpectedNumber() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) + len(s.running)
}

// ExecuteMove inserts departing vehicles and moves the others one tick.
func (s *Sim) ExecuteMove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded, s.arrived = nil, nil
	for _, id := range s.runningIDs() {
		if s.advance(s.running[id]) {
			s.arrived = append(s.arrived, id)
		}
	}
	for len(s.pending) > 0 && s.pending[0].depart <= s.tick {
		v := s.pending[0]
		s.pending = s.pending[1:]
		s.running[v.id] = v
		s.loaded = append(s.loaded, v.id)
	}
	return nil
}

// SimulationStep removes the vehicles that reached the end of their route.
func (s *Sim) SimulationStep() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.arrived {
		delete(s.running, id)
	}
	s.tick++
	return nil
}

func (s *Sim) runningIDs() []string {
	ids := make([]string, 0, len(s.running))
	for id := range s.running {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// advance moves v by one tick and reports whether it reached its destination.
func (s *Sim) advance(v *vehicle) bool {
	remaining := s.speedOf(v) * s.stepSecs
	driven := 0.0
	done := false
	for remaining > 0 {
		e := s.edges[v.route[v.idx]]
		left := e.length - v.lanePos
		if remaining < left {
			v.lanePos += remaining
			driven += remaining
			break
		}
		driven += left
		remaining -= left
		if v.idx == len(v.route)-1 {
			v.lanePos = e.length
			done = true
			break
		}
		v.idx++
		v.lanePos = 0
	}
	v.odometer += driven
	if v.hasBattery {
		used := v.whPerM * driven
		if used > v.battery {
			used = v.battery
		}
		v.battery -= used
		v.consumed += used
	}
	return done
}

func (s *Sim) speedOf(v *vehicle) float64 {
	sp := s.edges[v.route[v.idx]].speed
	if v.maxSpeed > 0 && v.maxSpeed < sp {
		sp = v.maxSpeed
	}
	return sp
}

// LoadedIDs returns the vehicles inserted by the last ExecuteMove.
func (s *Sim) LoadedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.loaded...)
}

// ArrivedIDs returns the vehicles that reached their destination during the
// last ExecuteMove.
func (s *Sim) ArrivedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.arrived...)
}

// HasBattery reports whether id is a battery vehicle.
func (s *Sim) HasBattery(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.running[id]
	return ok && v.hasBattery
}

func (s *Sim) get(id string) (*vehicle, error) {
	v, ok := s.running[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrUnknownVehicle, id)
	}
	return v, nil
}

func (s *Sim) Position(id string) (model.Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.get(id)
	if err != nil {
		return model.Point{}, err
	}
	return s.edges[v.route[v.idx]].at(v.lanePos), nil
}

func (s *Sim) Route(id string) (backend.RoutePosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.get(id)
	if err != nil {
		return backend.RoutePosition{}, err
	}
	road := v.route[v.idx]
	return backend.RoutePosition{
		Edges:   append([]string(nil), v.route...),
		Index:   v.idx,
		Road:    road,
		Lane:    road + "_0",
		LanePos: v.lanePos,
	}, nil
}

// DrivingDistance returns the distance along the remaining route to the first
// occurrence of (edgeID, offset) ahead of the vehicle.
func (s *Sim) DrivingDistance(id, edgeID string, offset float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.get(id)
	if err != nil {
		return 0, err
	}
	dist := -v.lanePos
	for i := v.idx; i < len(v.route); i++ {
		e := s.edges[v.route[i]]
		if e.id == edgeID && (i > v.idx || offset >= v.lanePos) {
			return dist + offset, nil
		}
		dist += e.length
	}
	return 0, backend.ErrUnreachable
}

func (s *Sim) AllowedSpeed(id string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.get(id)
	if err != nil {
		return 0, err
	}
	return s.speedOf(v), nil
}

func (s *Sim) Odometer(id string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.get(id)
	if err != nil {
		return 0, err
	}
	return v.odometer, nil
}

func (s *Sim) EnergyConsumed(id string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.get(id)
	if err != nil {
		return 0, err
	}
	return v.consumed, nil
}

// BatteryCapacity returns the battery level of a vehicle or a hub load.
func (s *Sim) BatteryCapacity(id string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.loads[id]; ok {
		return l.level, nil
	}
	v, err := s.get(id)
	if err != nil {
		return 0, err
	}
	return v.battery, nil
}

// SetBatteryCapacity sets the battery level of a vehicle or a hub load.
func (s *Sim) SetBatteryCapacity(id string, wh float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.loads[id]; ok {
		l.level = wh
		return nil
	}
	v, err := s.get(id)
	if err != nil {
		return err
	}
	v.battery = wh
	return nil
}

func (s *Sim) TypeID(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.get(id)
	if err != nil {
		return "", err
	}
	return v.typeID, nil
}

func (s *Sim) Colour(id string) (model.Colour, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.get(id)
	if err != nil {
		return model.Colour{}, err
	}
	return v.colour, nil
}

func (s *Sim) SetColour(id string, c model.Colour) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.get(id)
	if err != nil {
		return err
	}
	v.colour = c
	return nil
}

func (s *Sim) LaneLength(lane string) (float64, error) {
	e, ok := s.edges[laneEdge(lane)]
	if !ok {
		return 0, fmt.Errorf("unknown lane %s", lane)
	}
	return e.length, nil
}

func (s *Sim) Convert2D(edgeID string, offset float64) (model.Point, error) {
	e, ok := s.edges[edgeID]
	if !ok {
		return model.Point{}, fmt.Errorf("unknown edge %s", edgeID)
	}
	return e.at(offset), nil
}

func (s *Sim) ChargingStations() ([]backend.Station, error) {
	return append([]backend.Station(nil), s.stations...), nil
}

func (s *Sim) AddRoute(id string, edges []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range edges {
		if _, ok := s.edges[e]; !ok {
			return fmt.Errorf("route %s: unknown edge %s", id, e)
		}
	}
	s.routes[id] = append([]string(nil), edges...)
	return nil
}

func (s *Sim) AddDrone(id string, pos model.Point, c model.Colour) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drones[id] = &DroneMark{Pos: pos, Colour: c}
	return nil
}

func (s *Sim) MoveDrone(id string, pos model.Point) error {
	return s.mark(id, func(m *DroneMark) { m.Pos = pos })
}

func (s *Sim) SetDroneStatus(id, status string) error {
	return s.mark(id, func(m *DroneMark) { m.Status = status })
}

func (s *Sim) SetDroneColour(id string, c model.Colour) error {
	return s.mark(id, func(m *DroneMark) { m.Colour = c })
}

func (s *Sim) mark(id string, fn func(*DroneMark)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.drones[id]
	if !ok {
		return fmt.Errorf("unknown drone %s", id)
	}
	fn(m)
	return nil
}

// Drone returns the last annotation of drone id.
func (s *Sim) Drone(id string) (DroneMark, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.drones[id]
	if !ok {
		return DroneMark{}, false
	}
	return *m, true
}

// InsertHubLoad parks a synthetic load at (edgeID, offset).
func (s *Sim) InsertHubLoad(id, edgeID string, offset, capacityWh, levelWh float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.edges[edgeID]; !ok {
		return fmt.Errorf("hub load %s: unknown edge %s", id, edgeID)
	}
	s.loads[id] = &load{edge: edgeID, offset: offset, capacity: capacityWh, level: levelWh}
	return nil
}

func (s *Sim) RemoveHubLoad(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.loads, id)
	return nil
}

// HubLoads returns the ids of the loads currently parked, sorted.
func (s *Sim) HubLoads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.loads))
	for id := range s.loads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
