package dispatch

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/kilianp07/dronecharge/core/dispatch/logging"
	"github.com/kilianp07/dronecharge/core/model"
)

// Outcome classifies what happened to a drone during one tick.
type Outcome int

const (
	// Moving covers every tick without a notable event.
	Moving Outcome = iota
	// Arrived means the drone reached the target of its current leg.
	Arrived
	// Delivered means energy was moved to the EV and the session continues.
	Delivered
	// Completed means the requested energy has been fully delivered.
	Completed
	// Aborted means the drone broke off because a battery hit its floor.
	Aborted
)

func (o Outcome) String() string {
	switch o {
	case Moving:
		return "moving"
	case Arrived:
		return "arrived"
	case Delivered:
		return "delivered"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// arrivalTolerance is the Manhattan distance, in metres, at which a leg ends.
const arrivalTolerance = 5.0

// whEpsilon absorbs float residue when comparing energy amounts.
const whEpsilon = 1e-9

// droneColour is the colour of a viable drone.
var droneColour = model.ColourBlue

// TickResult is returned by Drone.Tick to the EV driving it.
type TickResult struct {
	Outcome Outcome
	// Wh moved to the EV during this tick.
	Wh float64
	// Shortfall is the unmet part of the request when Outcome is Aborted.
	Shortfall float64
}

// DroneStats accumulates per drone counters for the end of run report.
type DroneStats struct {
	FlyingTicks     int
	EVChargingTicks int
	// RefusedTicks counts charging ticks that ended in an abort before any
	// energy was moved.
	RefusedTicks    int
	FlownWh         float64
	DeliveredWh     float64
	RechargedFlyWh  float64
	RechargedChgWh  float64
	FullCharges     int
	BrokenCharges   int
	BrokenEVCharges int
	Chases          int
	ChaseTicks      int
	BrokenChases    int
}

// Drone is one charging drone. It is only ever driven from the scheduler
// goroutine: by its EV while allocated, by the control centre otherwise.
type Drone struct {
	id      string
	cc      *ControlCentre
	profile model.EnergyProfile

	state    model.DroneState
	pos      model.Point
	home     model.Hub
	park     model.Hub
	chargeWh float64
	flyingWh float64
	viable   bool
	hubLoad  bool

	ev          string
	requestedWh float64

	stats DroneStats
}

func newDrone(cc *ControlCentre, id string, profile model.EnergyProfile, home model.Hub) *Drone {
	return &Drone{
		id:       id,
		cc:       cc,
		profile:  profile,
		state:    model.DroneIdle,
		pos:      home.Pos,
		home:     home,
		park:     home,
		chargeWh: profile.ChargeWh,
		flyingWh: profile.FlyingWh,
		viable:   true,
	}
}

func (d *Drone) ID() string                   { return d.id }
func (d *Drone) State() model.DroneState      { return d.state }
func (d *Drone) Position() model.Point        { return d.pos }
func (d *Drone) ChargeWh() float64            { return d.chargeWh }
func (d *Drone) FlyingWh() float64            { return d.flyingWh }
func (d *Drone) EV() string                   { return d.ev }
func (d *Drone) RequestedWh() float64         { return d.requestedWh }
func (d *Drone) Stats() DroneStats            { return d.stats }
func (d *Drone) Profile() model.EnergyProfile { return d.profile }
func (d *Drone) ParkPosition() model.Point    { return d.park.Pos }

// Viable reports whether the drone may be handed a new EV.
func (d *Drone) Viable() bool { return d.viable }

// Tick advances the drone by one step. target is the current EV position or
// rendezvous point for the legs serving an EV and is ignored otherwise.
func (d *Drone) Tick(target model.Point) TickResult {
	switch d.state {
	case model.DroneParked:
		d.chargeMe()
		d.journal("parked")
	case model.DroneChargingAtHub:
		d.chargeMe()
		if d.state == model.DroneChargingAtHub {
			d.setViableCharge()
		}
		d.journal("charging self")
	case model.DroneFlyingToRendezvous, model.DroneFlyingToEV:
		return d.flyToEV(target)
	case model.DroneChargingEV:
		return d.chargeEV(target)
	case model.DroneFlyingToCharge:
		d.drainFlight()
		if d.fly(d.park.Pos) {
			d.arriveAtHub(model.DroneChargingAtHub, "parked - needs charge")
			d.setColour(model.ColourGreen)
			d.journal("arrived at charge hub")
			return TickResult{Outcome: Arrived}
		}
		d.journal("flying to charge hub")
	case model.DroneFlyingToPark:
		d.drainFlight()
		if d.fly(d.park.Pos) {
			d.arriveAtHub(model.DroneParked, "parked")
			d.journal("arrived at hub")
			return TickResult{Outcome: Arrived}
		}
		d.journal("flying to hub")
	}
	return TickResult{Outcome: Moving}
}

func (d *Drone) flyToEV(target model.Point) TickResult {
	if !d.drainFlight() {
		res := d.abort()
		d.fly(target)
		d.journal("breaking off")
		return res
	}
	if !d.fly(target) {
		if d.state == model.DroneFlyingToRendezvous {
			d.journal("flying to rendezvous")
		} else {
			d.journal("flying to EV")
		}
		return TickResult{Outcome: Moving}
	}
	if d.state == model.DroneFlyingToRendezvous {
		d.state = model.DroneFlyingToEV
		d.journal("arrived at rendezvous")
	} else {
		d.state = model.DroneChargingEV
		d.setStatus("charging " + d.ev)
		d.journal("arrived at EV")
	}
	return TickResult{Outcome: Arrived}
}

// chargeEV moves energy from the charge pool to the EV. The abort check runs
// before anything is drained, so every Wh leaving the drone reaches the EV.
func (d *Drone) chargeEV(evPos model.Point) TickResult {
	d.moveTo(evPos)
	deliver := math.Min(d.profile.EVChargePerTick, d.requestedWh)
	if d.chargeWh-deliver < d.profile.MinChargeWh {
		d.stats.RefusedTicks++
		res := d.abort()
		d.journal("breaking off")
		return res
	}
	d.chargeWh -= deliver
	d.requestedWh -= deliver
	d.stats.EVChargingTicks++
	d.stats.DeliveredWh += deliver
	whDelivered.Add(deliver)
	if d.requestedWh <= whEpsilon {
		d.requestedWh = 0
		d.stats.FullCharges++
		d.journal("charge complete")
		d.goPark()
		return TickResult{Outcome: Completed, Wh: deliver}
	}
	d.journal("charging EV")
	return TickResult{Outcome: Delivered, Wh: deliver}
}

// drainFlight charges one tick of flight to the flying pool and reports
// whether the pool is still above its floor.
func (d *Drone) drainFlight() bool {
	drain := math.Min(d.flyingWh, d.profile.FlyDrainPerTick)
	d.flyingWh -= drain
	d.stats.FlyingTicks++
	d.stats.FlownWh += drain
	return d.flyingWh >= d.profile.MinFlyingWh
}

// chargeMe recharges both pools from the hub and idles the drone once full.
func (d *Drone) chargeMe() {
	if d.flyingWh < d.profile.FlyingWh {
		add := math.Min(d.profile.RechargePerTick, d.profile.FlyingWh-d.flyingWh)
		d.flyingWh += add
		d.stats.RechargedFlyWh += add
	}
	if d.chargeWh < d.profile.ChargeWh {
		add := math.Min(d.profile.RechargePerTick, d.profile.ChargeWh-d.chargeWh)
		d.chargeWh += add
		d.stats.RechargedChgWh += add
	}
	d.updateHubLoads()
	if d.flyingWh >= d.profile.FlyingWh && d.chargeWh >= d.profile.ChargeWh {
		d.hideHubLoads()
		d.state = model.DroneIdle
		d.setStatus("idle")
		d.setViableCharge()
	}
}

// setViableCharge restores the drone to the free pool once both pools are
// back above the viable threshold.
func (d *Drone) setViableCharge() {
	if d.chargeWh >= d.profile.ViableChargeWh && d.flyingWh >= d.profile.ViableFlyingWh {
		if !d.viable {
			d.viable = true
			d.setColour(droneColour)
			d.cc.NotifyDroneState(d)
		}
		return
	}
	d.viable = false
}

// abort breaks off the current activity and sends the drone to recharge.
func (d *Drone) abort() TickResult {
	res := TickResult{Outcome: Aborted}
	phase := "flight"
	if d.state == model.DroneChargingEV {
		phase = "charge"
	}
	if d.ev != "" {
		// Whole Wh, rounded up past the outstanding amount.
		res.Shortfall = math.Floor(d.requestedWh + 1)
		d.stats.BrokenCharges++
		d.cc.log.Warnf("drone %s broke off %s for %s with %.1f Wh outstanding", d.id, phase, d.ev, d.requestedWh)
	}
	aborts.WithLabelValues(phase).Inc()
	d.ev = ""
	d.requestedWh = 0
	d.viable = false
	d.setParkPosition()
	d.state = model.DroneFlyingToCharge
	d.setColour(model.ColourRed)
	d.setStatus("flying to charge")
	d.cc.NotifyDroneState(d)
	return res
}

func (d *Drone) goPark() {
	d.setParkPosition()
	d.ev = ""
	d.requestedWh = 0
	d.state = model.DroneFlyingToPark
	d.setStatus("flying to park")
	d.cc.NotifyDroneState(d)
}

// parkingUpdate drives a drone that has no EV.
func (d *Drone) parkingUpdate() {
	switch d.state {
	case model.DroneFlyingToPark, model.DroneFlyingToCharge, model.DroneParked,
		model.DroneChargingAtHub, model.DroneIdle:
	default:
		d.state = model.DroneFlyingToPark
	}
	d.Tick(d.park.Pos)
}

// allocate hands the drone a new EV.
func (d *Drone) allocate(ev string, wh float64) {
	if d.state == model.DroneParked || d.state == model.DroneChargingAtHub {
		d.hideHubLoads()
	}
	d.ev = ev
	d.requestedWh = wh
	if d.cc.cfg.ModelRendezvous {
		d.state = model.DroneFlyingToRendezvous
	} else {
		d.state = model.DroneFlyingToEV
	}
	d.setStatus("allocated to " + ev)
}

// evLeft is called when the EV served by the drone leaves the simulation.
func (d *Drone) evLeft() {
	d.stats.BrokenEVCharges++
	if d.state != model.DroneParked && d.state != model.DroneChargingAtHub {
		d.goPark()
		return
	}
	d.hideHubLoads()
	d.ev = ""
	d.requestedWh = 0
	d.cc.NotifyDroneState(d)
}

func (d *Drone) notifyChase(ok bool, ticks int) {
	if ok {
		d.stats.Chases++
		d.stats.ChaseTicks += ticks
		return
	}
	d.stats.BrokenChases++
}

// setParkPosition picks the hub to return to.
func (d *Drone) setParkPosition() {
	if d.cc.cfg.ParkAtHome {
		d.park = d.home
		return
	}
	if h, _, ok := d.cc.hubs.Nearest(d.pos); ok {
		d.park = h
	}
}

// fly moves one step toward target and reports arrival.
func (d *Drone) fly(target model.Point) bool {
	delta := r2.Sub(target, d.pos)
	if dist := r2.Norm(delta); dist <= d.profile.StepM {
		d.moveTo(target)
	} else {
		d.moveTo(r2.Add(d.pos, r2.Scale(d.profile.StepM/dist, delta)))
	}
	return model.Manhattan(d.pos, target) < arrivalTolerance
}

func (d *Drone) moveTo(p model.Point) {
	d.pos = p
	if err := d.cc.annot.MoveDrone(d.id, p); err != nil {
		d.cc.log.Debugf("move drone %s: %v", d.id, err)
	}
}

func (d *Drone) setColour(c model.Colour) {
	if err := d.cc.annot.SetDroneColour(d.id, c); err != nil {
		d.cc.log.Debugf("colour drone %s: %v", d.id, err)
	}
}

func (d *Drone) setStatus(s string) {
	if err := d.cc.annot.SetDroneStatus(d.id, s); err != nil {
		d.cc.log.Debugf("status drone %s: %v", d.id, err)
	}
}

func (d *Drone) arriveAtHub(state model.DroneState, status string) {
	d.state = state
	d.setStatus(status)
	d.showHubLoads()
}

func (d *Drone) flightLoadID() string { return d.id + "-FB" }
func (d *Drone) chargeLoadID() string { return d.id + "-CB" }

// showHubLoads makes the drone batteries visible to the backend as charging
// loads parked at the hub.
func (d *Drone) showHubLoads() {
	if d.cc.loads == nil || d.park.Edge == "" || d.hubLoad {
		return
	}
	if err := d.cc.loads.InsertHubLoad(d.flightLoadID(), d.park.Edge, d.park.Offset, d.profile.FlyingWh, d.flyingWh); err != nil {
		d.cc.log.Warnf("insert hub load %s: %v", d.flightLoadID(), err)
		return
	}
	if err := d.cc.loads.InsertHubLoad(d.chargeLoadID(), d.park.Edge, d.park.Offset, d.profile.ChargeWh, d.chargeWh); err != nil {
		d.cc.log.Warnf("insert hub load %s: %v", d.chargeLoadID(), err)
	}
	d.hubLoad = true
}

// updateHubLoads mirrors the battery levels onto the visible loads.
func (d *Drone) updateHubLoads() {
	if !d.hubLoad {
		return
	}
	if err := d.cc.veh.SetBatteryCapacity(d.flightLoadID(), d.flyingWh); err != nil {
		d.cc.log.Debugf("update hub load %s: %v", d.flightLoadID(), err)
	}
	if err := d.cc.veh.SetBatteryCapacity(d.chargeLoadID(), d.chargeWh); err != nil {
		d.cc.log.Debugf("update hub load %s: %v", d.chargeLoadID(), err)
	}
}

func (d *Drone) hideHubLoads() {
	if !d.hubLoad || d.cc.loads == nil {
		return
	}
	for _, id := range []string{d.flightLoadID(), d.chargeLoadID()} {
		if err := d.cc.loads.RemoveHubLoad(id); err != nil {
			d.cc.log.Warnf("remove hub load %s: %v", id, err)
		}
	}
	d.hubLoad = false
}

// journal appends a drone activity line when the drone log is enabled.
func (d *Drone) journal(activity string) {
	if !d.cc.cfg.DroneLog {
		return
	}
	rec := logging.LogRecord{
		Kind:          logging.KindDrone,
		DroneID:       d.id,
		EVID:          d.ev,
		State:         activity,
		X:             d.pos.X,
		Y:             d.pos.Y,
		RequestedWh:   d.requestedWh,
		DroneChargeWh: d.chargeWh,
		DroneFlyingWh: d.flyingWh,
	}
	if d.ev != "" {
		if rp, err := d.cc.veh.Route(d.ev); err == nil {
			rec.Lane = rp.Lane
			rec.LanePos = rp.LanePos
		}
	}
	d.cc.appendJournal(rec)
}
