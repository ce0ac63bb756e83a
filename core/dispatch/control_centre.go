package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/dronecharge/core/backend"
	"github.com/kilianp07/dronecharge/core/dispatch/logging"
	"github.com/kilianp07/dronecharge/core/dronestatus"
	"github.com/kilianp07/dronecharge/core/events"
	"github.com/kilianp07/dronecharge/core/hub"
	"github.com/kilianp07/dronecharge/core/logger"
	"github.com/kilianp07/dronecharge/core/model"
	"github.com/kilianp07/dronecharge/internal/eventbus"
)

// Deps groups the collaborators of a ControlCentre. Vehicles, Network and
// Hubs are required; the rest fall back to no-op implementations.
type Deps struct {
	Vehicles  backend.Vehicles
	Network   backend.Network
	Annotator backend.Annotator
	Hubs      *hub.Registry
	Logger    logger.Logger
	Bus       eventbus.EventBus
	// Random drives the per EV variation of request and threshold. Nil
	// disables the variation.
	Random Random
	// RunID tags journal records; a random one is generated when empty.
	RunID string
}

// ControlCentre is the dispatch scheduler. It owns every drone and EV agent
// and the pools linking them. It is not safe for concurrent use; the
// simulation engine drives it from a single goroutine.
type ControlCentre struct {
	cfg     Config
	evCfg   EVConfig
	profile model.EnergyProfile

	veh   backend.Vehicles
	net   backend.Network
	annot backend.Annotator
	loads backend.HubLoads
	hubs  *hub.Registry
	log   logger.Logger
	bus   eventbus.EventBus
	rnd   Random

	store  logging.LogStore
	status dronestatus.Store

	runID string
	step  int

	drones map[string]*Drone
	evs    map[string]*EV

	requests       map[string]float64
	allocatedEV    map[string]string // ev -> drone
	allocatedDrone map[string]string // drone -> ev
	free           map[string]struct{}
	needCharge     map[string]struct{}

	maxDrones int
	spawned   int
	idCount   int

	totals evTotals
}

// NewControlCentre validates the configuration and returns a scheduler with
// an empty fleet.
func NewControlCentre(cfg Config, evCfg EVConfig, profile model.EnergyProfile, deps Deps) (*ControlCentre, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	evCfg.SetDefaults()
	if err := evCfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Vehicles == nil || deps.Network == nil {
		return nil, errors.New("dispatch: vehicles and network backends are required")
	}
	if deps.Hubs == nil {
		return nil, errors.New("dispatch: hub registry is required")
	}
	cc := &ControlCentre{
		cfg:            cfg,
		evCfg:          evCfg,
		profile:        profile,
		veh:            deps.Vehicles,
		net:            deps.Network,
		annot:          deps.Annotator,
		hubs:           deps.Hubs,
		log:            logger.OrNop(deps.Logger),
		bus:            deps.Bus,
		rnd:            deps.Random,
		store:          logging.NopStore{},
		runID:          deps.RunID,
		drones:         make(map[string]*Drone),
		evs:            make(map[string]*EV),
		requests:       make(map[string]float64),
		allocatedEV:    make(map[string]string),
		allocatedDrone: make(map[string]string),
		free:           make(map[string]struct{}),
		needCharge:     make(map[string]struct{}),
		maxDrones:      cfg.MaxDrones,
	}
	if cc.annot == nil {
		cc.annot = backend.NopAnnotator{}
	}
	if cc.runID == "" {
		cc.runID = uuid.NewString()
	}
	for _, c := range []any{deps.Vehicles, deps.Network, deps.Annotator} {
		if hl, ok := c.(backend.HubLoads); ok {
			cc.loads = hl
			break
		}
	}
	return cc, nil
}

// SetLogStore sets the journal store.
func (cc *ControlCentre) SetLogStore(s logging.LogStore) {
	if s == nil {
		s = logging.NopStore{}
	}
	cc.store = s
}

// SetStatusStore sets the store receiving a drone status snapshot per tick.
func (cc *ControlCentre) SetStatusStore(s dronestatus.Store) { cc.status = s }

// SetTimeStep records the current simulation tick for journal records.
func (cc *ControlCentre) SetTimeStep(step int) { cc.step = step }

func (cc *ControlCentre) RunID() string                { return cc.runID }
func (cc *ControlCentre) Config() Config               { return cc.cfg }
func (cc *ControlCentre) Profile() model.EnergyProfile { return cc.profile }
func (cc *ControlCentre) Spawned() int                 { return cc.spawned }
func (cc *ControlCentre) MaxDrones() int               { return cc.maxDrones }

// SetMaxDrones changes the fleet cap. The spawn counter is synchronised to
// the drones already declared so that a declared fleet is its own cap.
func (cc *ControlCentre) SetMaxDrones(n int) {
	cc.maxDrones = n
	cc.spawned = cc.idCount
}

// EV returns the agent shadowing vehicle id, or nil.
func (cc *ControlCentre) EV(id string) *EV { return cc.evs[id] }

// Drone returns the drone with the given id, or nil.
func (cc *ControlCentre) Drone(id string) *Drone { return cc.drones[id] }

// Drones returns every drone ordered by id.
func (cc *ControlCentre) Drones() []*Drone {
	out := make([]*Drone, 0, len(cc.drones))
	for _, id := range sortedKeys(cc.drones) {
		out = append(out, cc.drones[id])
	}
	return out
}

// Pending returns the outstanding request of ev, if any.
func (cc *ControlCentre) Pending(ev string) (float64, bool) {
	wh, ok := cc.requests[ev]
	return wh, ok
}

// PendingCount returns the number of queued requests.
func (cc *ControlCentre) PendingCount() int { return len(cc.requests) }

// PoolSizes returns the sizes of the free, needs-charge and allocated pools.
func (cc *ControlCentre) PoolSizes() (free, needCharge, allocated int) {
	return len(cc.free), len(cc.needCharge), len(cc.allocatedDrone)
}

// AddEV starts shadowing a battery vehicle. Calling it twice for the same id
// returns the existing agent.
func (cc *ControlCentre) AddEV(id string) (*EV, error) {
	if e, ok := cc.evs[id]; ok {
		return e, nil
	}
	typeID, err := cc.veh.TypeID(id)
	if err != nil {
		return nil, fmt.Errorf("type of %s: %w", id, err)
	}
	colour, err := cc.veh.Colour(id)
	if err != nil {
		colour = model.ColourBlue
	}
	settings := cc.evCfg.Resolve(id, typeID, cc.rnd)
	e := newEV(cc, id, settings, colour)
	cc.evs[id] = e
	cc.totals.evCount++
	cc.log.Debugf("ev %s (%s) threshold %.0f Wh request %.0f Wh", id, typeID, settings.ThresholdWh, settings.RequestWh)
	return e, nil
}

// RemoveEV forgets a vehicle once it has left and been ticked to Null.
func (cc *ControlCentre) RemoveEV(id string) { delete(cc.evs, id) }

// DeclareDrone adds a pre-declared drone parked at pos. Its home is the hub
// registered at pos, if any, otherwise pos itself.
func (cc *ControlCentre) DeclareDrone(id string, pos model.Point, profile *model.EnergyProfile) (*Drone, error) {
	if _, ok := cc.drones[id]; ok {
		return nil, fmt.Errorf("drone %s already declared", id)
	}
	if id == "" {
		id = cc.nextDroneID()
	} else {
		cc.idCount++
	}
	p := cc.profile
	if profile != nil {
		p = *profile
	}
	home := model.Hub{ID: id, Pos: pos}
	if h, _, ok := cc.hubs.Nearest(pos); ok && model.Dist(h.Pos, pos) < arrivalTolerance {
		home = h
	}
	d := cc.addDrone(id, p, home)
	cc.free[id] = struct{}{}
	return d, nil
}

func (cc *ControlCentre) nextDroneID() string {
	for {
		cc.idCount++
		id := fmt.Sprintf("d%d", cc.idCount)
		if _, taken := cc.drones[id]; !taken {
			return id
		}
	}
}

func (cc *ControlCentre) addDrone(id string, p model.EnergyProfile, home model.Hub) *Drone {
	d := newDrone(cc, id, p, home)
	cc.drones[id] = d
	if err := cc.annot.AddDrone(id, home.Pos, droneColour); err != nil {
		cc.log.Warnf("annotate drone %s: %v", id, err)
	}
	return d
}

// spawn creates a drone at the hub nearest to ev.
func (cc *ControlCentre) spawn(ev *EV) *Drone {
	home := model.Hub{Pos: ev.pos}
	if h, _, ok := cc.hubs.Nearest(ev.pos); ok {
		home = h
	}
	id := cc.nextDroneID()
	if home.ID == "" {
		home.ID = id
	}
	cc.spawned++
	d := cc.addDrone(id, cc.profile, home)
	cc.log.Infof("spawned drone %s at hub %s for %s", id, home.ID, ev.id)
	return d
}

// RequestCharge queues a request of wh for ev.
func (cc *ControlCentre) RequestCharge(ev *EV, wh float64) {
	cc.requests[ev.id] = wh
	chargeRequests.Inc()
	cc.log.Debugf("charge request %s: %.1f Wh at capacity %.1f Wh", ev.id, wh, ev.capacityWh)
	cc.appendJournal(logging.LogRecord{
		Kind:        logging.KindCharge,
		EVID:        ev.id,
		State:       model.EVChargeRequested.String(),
		CapacityWh:  ev.capacityWh,
		RequestedWh: wh,
	})
	cc.publish(events.ChargeRequestEvent{EVID: ev.id, RequestedWh: wh, Step: cc.step})
}

// Tick runs the assignment pass then drives every unallocated drone.
func (cc *ControlCentre) Tick() error {
	headroom := len(cc.free) + cc.maxDrones - cc.spawned
	if headroom > 0 && len(cc.requests) > 0 {
		order, err := cc.calcUrgency()
		if err != nil {
			return err
		}
		if err := cc.allocateDrones(order); err != nil {
			return err
		}
	}
	for _, id := range cc.unallocated() {
		cc.drones[id].parkingUpdate()
	}
	cc.publishPools()
	return nil
}

// unallocated returns the free and needs-charge drones ordered by id.
func (cc *ControlCentre) unallocated() []string {
	ids := make([]string, 0, len(cc.free)+len(cc.needCharge))
	for id := range cc.free {
		ids = append(ids, id)
	}
	for id := range cc.needCharge {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NotifyDroneState moves d into the pool matching its viability and drops any
// stale allocation link.
func (cc *ControlCentre) NotifyDroneState(d *Drone) {
	if ev, ok := cc.allocatedDrone[d.id]; ok {
		delete(cc.allocatedDrone, d.id)
		delete(cc.allocatedEV, ev)
	}
	if d.Viable() {
		cc.free[d.id] = struct{}{}
		delete(cc.needCharge, d.id)
	} else {
		cc.needCharge[d.id] = struct{}{}
		delete(cc.free, d.id)
	}
	cc.publish(events.DroneStateEvent{
		DroneID:  d.id,
		State:    d.state,
		ChargeWh: d.chargeWh,
		FlyingWh: d.flyingWh,
		Viable:   d.viable,
		Step:     cc.step,
	})
}

// NotifyEVState journals a charge session transition of e. On departure
// every pending or allocated link of e is dropped.
func (cc *ControlCentre) NotifyEVState(e *EV, state model.EVState) {
	if state == model.EVLeftSimulation {
		delete(cc.requests, e.id)
		if d, ok := cc.allocatedEV[e.id]; ok {
			delete(cc.allocatedEV, e.id)
			delete(cc.allocatedDrone, d)
			cc.log.Infof("ev %s left while linked to drone %s", e.id, d)
		}
	}
	rec := logging.LogRecord{
		Kind:        logging.KindCharge,
		EVID:        e.id,
		DroneID:     e.drone,
		State:       state.String(),
		CapacityWh:  e.capacityWh,
		DeliveredWh: e.sessionWh,
	}
	if state != model.EVChargingFromDrone {
		rec.ChargeWh = e.sessionWh
	}
	cc.appendJournal(rec)
	cc.publish(events.ChargeSessionEvent{
		EVID:        e.id,
		DroneID:     e.drone,
		State:       state,
		CapacityWh:  e.capacityWh,
		DeliveredWh: e.sessionWh,
		Step:        cc.step,
	})
}

// TidyDrones removes the hub loads of every parked drone. It is called once
// at the end of the run.
func (cc *ControlCentre) TidyDrones() {
	for _, id := range cc.unallocated() {
		cc.drones[id].hideHubLoads()
	}
}

// Close releases the journal store.
func (cc *ControlCentre) Close() error {
	return cc.store.Close()
}

func (cc *ControlCentre) appendJournal(rec logging.LogRecord) {
	rec.Timestamp = time.Now()
	rec.RunID = cc.runID
	rec.Step = cc.step
	if err := cc.store.Append(context.Background(), rec); err != nil {
		cc.log.Warnf("journal append: %v", err)
	}
}

func (cc *ControlCentre) publish(e eventbus.Event) {
	if cc.bus != nil {
		cc.bus.Publish(e)
	}
}

// publishPools updates the pool gauges and the drone status snapshot.
func (cc *ControlCentre) publishPools() {
	dronePool.WithLabelValues("free").Set(float64(len(cc.free)))
	dronePool.WithLabelValues("need_charge").Set(float64(len(cc.needCharge)))
	dronePool.WithLabelValues("allocated").Set(float64(len(cc.allocatedDrone)))
	if cc.status == nil {
		return
	}
	for _, id := range sortedKeys(cc.drones) {
		d := cc.drones[id]
		cc.status.Set(dronestatus.Status{
			DroneID:  id,
			State:    d.state.String(),
			X:        d.pos.X,
			Y:        d.pos.Y,
			ChargeWh: d.chargeWh,
			FlyingWh: d.flyingWh,
			Viable:   d.viable,
			Step:     cc.step,
		})
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
