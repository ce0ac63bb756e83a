package dispatch

import (
	"fmt"

	"github.com/kilianp07/dronecharge/core/model"
)

// defaultCapacityWh shadows the battery level until the backend is queried.
const defaultCapacityWh = 32000

// EV mirrors one battery vehicle of the backend and drives its allocated
// drone while a charge session is open.
type EV struct {
	id       string
	cc       *ControlCentre
	settings model.VehicleSettings
	colour   model.Colour

	state      model.EVState
	leftFrom   model.EVState
	pos        model.Point
	rendezvous model.Point
	drone      string

	capacityWh  float64
	chargeDone  float64
	lastRequest float64
	chargeCount int
	chargeTicks int
	chaseTicks  int
	sessionWh   float64
	deliveredWh float64
}

func newEV(cc *ControlCentre, id string, settings model.VehicleSettings, colour model.Colour) *EV {
	return &EV{
		id:         id,
		cc:         cc,
		settings:   settings,
		colour:     colour,
		state:      model.EVDriving,
		capacityWh: defaultCapacityWh,
	}
}

func (e *EV) ID() string                      { return e.id }
func (e *EV) State() model.EVState            { return e.state }
func (e *EV) Position() model.Point           { return e.pos }
func (e *EV) Rendezvous() model.Point         { return e.rendezvous }
func (e *EV) Drone() string                   { return e.drone }
func (e *EV) Settings() model.VehicleSettings { return e.settings }
func (e *EV) CapacityWh() float64             { return e.capacityWh }
func (e *EV) ChargeCount() int                { return e.chargeCount }
func (e *EV) DeliveredWh() float64            { return e.deliveredWh }

// Tick advances the EV agent by one step.
func (e *EV) Tick() error {
	switch e.state {
	case model.EVDriving:
		return e.checkCharge()
	case model.EVChargeRequested:
		d := e.allocatedDrone()
		if d == nil {
			return nil
		}
		e.chaseTicks = 0
		if e.cc.cfg.ModelRendezvous {
			e.state = model.EVWaitingForRendezvous
			return e.follow(d.Tick(e.rendezvous))
		}
		if err := e.refreshPosition(); err != nil {
			return err
		}
		e.state = model.EVWaitingForDrone
		return e.follow(d.Tick(e.pos))
	case model.EVWaitingForRendezvous:
		if d := e.allocatedDrone(); d != nil {
			return e.follow(d.Tick(e.rendezvous))
		}
	case model.EVWaitingForDrone:
		d := e.allocatedDrone()
		if d == nil {
			return nil
		}
		if err := e.refreshPosition(); err != nil {
			return err
		}
		e.chaseTicks++
		return e.follow(d.Tick(e.pos))
	case model.EVChargingFromDrone:
		d := e.allocatedDrone()
		if d == nil {
			return nil
		}
		if err := e.refreshPosition(); err != nil {
			return err
		}
		if err := e.refreshCapacity(); err != nil {
			return err
		}
		return e.follow(d.Tick(e.pos))
	case model.EVLeftSimulation:
		e.leave()
	}
	return nil
}

// LeftSimulation marks the EV as gone; the next Tick tidies up.
func (e *EV) LeftSimulation() {
	if e.state == model.EVNull || e.state == model.EVLeftSimulation {
		return
	}
	e.leftFrom = e.state
	e.state = model.EVLeftSimulation
}

func (e *EV) allocatedDrone() *Drone {
	if e.drone == "" {
		return nil
	}
	return e.cc.drones[e.drone]
}

// checkCharge raises a charge request once the battery drops below the
// threshold.
func (e *EV) checkCharge() error {
	if e.cc.cfg.OnlyChargeOnce && e.chargeCount >= 1 {
		return nil
	}
	if err := e.refreshCapacity(); err != nil {
		return err
	}
	if e.capacityWh >= e.settings.ThresholdWh {
		return nil
	}
	if err := e.refreshPosition(); err != nil {
		return err
	}
	e.setColour(model.ColourRed)
	e.state = model.EVChargeRequested
	e.lastRequest = e.settings.RequestWh
	e.chargeDone = e.capacityWh + e.settings.RequestWh
	e.cc.RequestCharge(e, e.settings.RequestWh)
	return nil
}

// follow applies the drone tick result to the EV side of the session.
func (e *EV) follow(res TickResult) error {
	switch res.Outcome {
	case Aborted:
		return e.brokenOff(res.Shortfall)
	case Arrived:
		switch e.state {
		case model.EVWaitingForRendezvous:
			e.state = model.EVWaitingForDrone
		case model.EVWaitingForDrone:
			return e.startCharging()
		}
	case Delivered:
		return e.applyCharge(res.Wh)
	case Completed:
		if err := e.applyCharge(res.Wh); err != nil {
			return err
		}
		e.finishCharge()
	}
	return nil
}

func (e *EV) startCharging() error {
	if d := e.allocatedDrone(); d != nil {
		d.notifyChase(true, e.chaseTicks)
	}
	if err := e.refreshCapacity(); err != nil {
		return err
	}
	e.setColour(model.ColourGreen)
	e.state = model.EVChargingFromDrone
	e.chargeDone = e.capacityWh + e.lastRequest
	e.sessionWh = 0
	e.cc.NotifyEVState(e, model.EVChargingFromDrone)
	return nil
}

func (e *EV) applyCharge(wh float64) error {
	e.capacityWh += wh
	e.chargeTicks++
	e.sessionWh += wh
	e.deliveredWh += wh
	if err := e.cc.veh.SetBatteryCapacity(e.id, e.capacityWh); err != nil {
		return fmt.Errorf("set battery of %s: %w", e.id, err)
	}
	return nil
}

func (e *EV) finishCharge() {
	e.chargeCount++
	e.state = model.EVDriving
	e.setColour(e.colour)
	e.cc.NotifyEVState(e, model.EVDriving)
	e.drone = ""
}

// brokenOff re-queues the outstanding energy after the drone aborted.
func (e *EV) brokenOff(shortfall float64) error {
	prev := e.state
	if prev == model.EVWaitingForDrone {
		if d := e.allocatedDrone(); d != nil {
			d.notifyChase(false, e.chaseTicks)
		}
	}
	if prev == model.EVChargingFromDrone {
		e.cc.NotifyEVState(e, model.EVChargeBrokenOff)
	} else if err := e.refreshCapacity(); err != nil {
		return err
	}
	e.drone = ""
	if err := e.refreshPosition(); err != nil {
		return err
	}
	e.setColour(model.ColourRed)
	e.state = model.EVChargeRequested
	e.lastRequest = shortfall
	e.chargeDone = e.capacityWh + shortfall
	e.cc.RequestCharge(e, shortfall)
	return nil
}

// leave releases the drone and folds the EV counters into the run totals.
func (e *EV) leave() {
	if d := e.allocatedDrone(); d != nil {
		if e.leftFrom == model.EVWaitingForDrone || e.leftFrom == model.EVWaitingForRendezvous {
			d.notifyChase(false, e.chaseTicks)
		}
	}
	e.cc.NotifyEVState(e, model.EVLeftSimulation)
	if d := e.allocatedDrone(); d != nil {
		d.evLeft()
	}
	e.drone = ""
	e.cc.captureStats(e)
	e.state = model.EVNull
}

// allocate is called by the control centre when a drone is assigned.
func (e *EV) allocate(drone string, rendezvous model.Point) {
	e.drone = drone
	e.rendezvous = rendezvous
}

func (e *EV) refreshPosition() error {
	p, err := e.cc.veh.Position(e.id)
	if err != nil {
		return fmt.Errorf("position of %s: %w", e.id, err)
	}
	e.pos = p
	return nil
}

func (e *EV) refreshCapacity() error {
	c, err := e.cc.veh.BatteryCapacity(e.id)
	if err != nil {
		return fmt.Errorf("battery of %s: %w", e.id, err)
	}
	e.capacityWh = c
	return nil
}

func (e *EV) setColour(c model.Colour) {
	if err := e.cc.veh.SetColour(e.id, c); err != nil {
		e.cc.log.Debugf("colour ev %s: %v", e.id, err)
	}
}
