package dispatch

import (
	"errors"
	"fmt"

	"github.com/kilianp07/dronecharge/core/backend"
	"github.com/kilianp07/dronecharge/core/dronestatus"
	"github.com/kilianp07/dronecharge/core/events"
	"github.com/kilianp07/dronecharge/core/model"
	"github.com/kilianp07/dronecharge/core/rendezvous"
)

// allocateDrones assigns drones to the scored requests. With a single free
// drone every infeasible request scored ahead of the first feasible one is
// dropped for good.
func (cc *ControlCentre) allocateDrones(order []scored) error {
	headroom := cc.maxDrones - cc.spawned
	switch len(cc.free) {
	case 1:
		for _, s := range order {
			ok, err := cc.chargeCanComplete(s.ev)
			if err != nil {
				return err
			}
			if !ok {
				cc.drop(s.ev)
				continue
			}
			return cc.allocate(cc.onlyFree(), s.ev, "free")
		}
	case 0:
		for _, s := range order {
			if headroom <= 0 {
				break
			}
			d := cc.spawn(cc.evs[s.ev])
			if err := cc.allocate(d.id, s.ev, "spawn"); err != nil {
				return err
			}
			headroom--
		}
	default:
		for _, s := range order {
			ok, err := cc.chargeCanComplete(s.ev)
			if err != nil {
				return err
			}
			if !ok {
				cc.drop(s.ev)
				continue
			}
			if id, found := cc.nearestFree(cc.evs[s.ev].pos); found {
				if err := cc.allocate(id, s.ev, "free"); err != nil {
					return err
				}
				continue
			}
			if headroom <= 0 {
				continue
			}
			d := cc.spawn(cc.evs[s.ev])
			if err := cc.allocate(d.id, s.ev, "spawn"); err != nil {
				return err
			}
			headroom--
			if headroom == 0 {
				break
			}
		}
	}
	return nil
}

func (cc *ControlCentre) onlyFree() string {
	for id := range cc.free {
		return id
	}
	return ""
}

// nearestFree returns the free drone closest to p. Equal distances go to the
// larger id.
func (cc *ControlCentre) nearestFree(p model.Point) (string, bool) {
	best, bestDist := "", 0.0
	for _, id := range sortedKeys(cc.free) {
		d := model.Dist(p, cc.drones[id].pos)
		if best == "" || d < bestDist || (d == bestDist && id > best) {
			best, bestDist = id, d
		}
	}
	return best, best != ""
}

// drop removes a request that cannot complete before the end of the route.
func (cc *ControlCentre) drop(ev string) {
	wh := cc.requests[ev]
	delete(cc.requests, ev)
	requestsDropped.Inc()
	cc.log.Warnf("dropped charge request of %s (%.1f Wh): cannot complete before route end", ev, wh)
	cc.publish(events.RequestDroppedEvent{EVID: ev, RequestedWh: wh, Step: cc.step})
}

// chargeCanComplete reports whether the requested energy can be delivered
// before the EV reaches the end of its route.
func (cc *ControlCentre) chargeCanComplete(ev string) (bool, error) {
	if cc.cfg.FullChargeTolerance <= 0 {
		return true, nil
	}
	rp, err := cc.veh.Route(ev)
	if err != nil {
		return false, fmt.Errorf("route of %s: %w", ev, err)
	}
	if len(rp.Edges) == 0 {
		return false, nil
	}
	dist, err := cc.veh.DrivingDistance(ev, rp.Edges[len(rp.Edges)-1], 0)
	if errors.Is(err, backend.ErrUnreachable) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("driving distance of %s: %w", ev, err)
	}
	speed, err := cc.veh.AllowedSpeed(ev)
	if err != nil {
		return false, fmt.Errorf("speed of %s: %w", ev, err)
	}
	evSpeed := cc.cfg.EVSpeedFactor * speed
	if evSpeed <= 0 {
		return false, nil
	}
	// The remaining seconds are scaled by the per tick rate as is, so a tick
	// longer than one second makes the check more permissive.
	seconds := dist/evSpeed - cc.cfg.FullChargeTolerance
	deliverable := seconds * cc.profile.EVChargePerTick
	return deliverable >= cc.requests[ev], nil
}

// allocate links drone and ev and starts the drone on its way.
func (cc *ControlCentre) allocate(droneID, evID, mode string) error {
	d, e := cc.drones[droneID], cc.evs[evID]
	wh := cc.requests[evID]

	delete(cc.free, droneID)
	delete(cc.needCharge, droneID)
	cc.allocatedEV[evID] = droneID
	cc.allocatedDrone[droneID] = evID

	var rv model.Point
	if cc.cfg.ModelRendezvous {
		speed, err := cc.veh.AllowedSpeed(evID)
		if err != nil {
			return fmt.Errorf("speed of %s: %w", evID, err)
		}
		rv = rendezvous.Solve(rendezvous.Input{
			EVPos:      e.pos,
			EVSpeed:    cc.cfg.EVSpeedFactor * speed,
			DronePos:   d.pos,
			DroneSpeed: cc.profile.SpeedMps,
		}, rendezvous.EdgeWalker{
			Vehicles:        cc.veh,
			Network:         cc.net,
			VehicleID:       evID,
			JunctionPenalty: cc.cfg.JunctionPenaltyM,
		})
	}
	e.allocate(droneID, rv)
	d.allocate(evID, wh)
	delete(cc.requests, evID)

	allocations.WithLabelValues(mode).Inc()
	cc.log.Infof("allocated drone %s to %s for %.1f Wh (%s)", droneID, evID, wh, mode)
	cc.publish(events.AllocationEvent{
		EVID:       evID,
		DroneID:    droneID,
		Spawned:    mode == "spawn",
		Rendezvous: rv,
		Step:       cc.step,
	})
	if cc.status != nil {
		cc.status.RecordAssignment(droneID, dronestatus.Assignment{EVID: evID, RequestWh: wh, AssignedAt: cc.step})
	}
	return nil
}
